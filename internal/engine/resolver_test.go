package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/codadmin/pkg/types"
)

func TestResolverResolve(t *testing.T) {
	ctx := context.Background()

	t.Run("one option per referenced row", func(t *testing.T) {
		f := seedTenant(newFakeTransport())
		opts := NewResolver(f, nil).Resolve(ctx, schemaOf(types.ResourceUsers))

		require.Len(t, opts["merchant_id"], 2)
		assert.Equal(t, types.Option{Value: "1", Label: "Acme (#1)"}, opts["merchant_id"][0])
		assert.Equal(t, "#2 (#2)", opts["merchant_id"][1].Label, "empty name and no email falls back to #id")

		require.Len(t, opts["branch_id"], 3)
		assert.Equal(t, "Central (#3)", opts["branch_id"][0].Label)
		assert.Equal(t, "f3.png", opts["branch_id"][0].Meta(types.MetaFlagURL))
		assert.Equal(t, "1", opts["branch_id"][0].Meta(types.MetaMerchantID))
	})

	t.Run("branch roles carry their branch flag", func(t *testing.T) {
		f := seedTenant(newFakeTransport())
		opts := NewResolver(f, nil).Resolve(ctx, schemaOf(types.ResourceUsers))

		roles := opts["merchant_role_id"]
		require.Len(t, roles, 2)
		assert.Equal(t, "Manager (#30)", roles[0].Label)
		assert.Equal(t, "3", roles[0].Meta(types.MetaBranchID))
		assert.Equal(t, "f3.png", roles[0].Meta(types.MetaFlagURL))
		assert.Equal(t, "", roles[1].Meta(types.MetaFlagURL))
	})

	t.Run("each referenced resource is fetched once", func(t *testing.T) {
		f := seedTenant(newFakeTransport())
		NewResolver(f, nil).Resolve(ctx, schemaOf(types.ResourceUsers))
		assert.Len(t, f.callsOf("LIST", types.ResourceBranches), 1)
		assert.Len(t, f.callsOf("LIST", types.ResourceMerchants), 1)
		assert.Len(t, f.callsOf("LIST", types.ResourceBranchRoles), 1)
	})

	t.Run("branches are fetched for flags only when roles are referenced", func(t *testing.T) {
		f := seedTenant(newFakeTransport())
		NewResolver(f, nil).Resolve(ctx, schemaOf(types.ResourcePlatformAdmins))
		assert.Empty(t, f.callsOf("LIST", types.ResourceBranches))
	})

	t.Run("failed fetch degrades only its fields", func(t *testing.T) {
		f := seedTenant(newFakeTransport())
		f.failOn("LIST", types.ResourceMerchants, errBoom)
		opts := NewResolver(f, nil).Resolve(ctx, schemaOf(types.ResourceUsers))

		assert.NotNil(t, opts["merchant_id"])
		assert.Empty(t, opts["merchant_id"])
		assert.Len(t, opts["branch_id"], 3)
	})

	t.Run("failed flag lookup keeps role options", func(t *testing.T) {
		f := seedTenant(newFakeTransport())
		f.failOn("LIST", types.ResourceBranches, errBoom)
		opts := NewResolver(f, nil).Resolve(ctx, schemaOf(types.ResourceUsers))

		assert.Empty(t, opts["branch_id"])
		require.Len(t, opts["merchant_role_id"], 2)
		assert.Equal(t, "", opts["merchant_role_id"][0].Meta(types.MetaFlagURL))
	})

	t.Run("schema without references", func(t *testing.T) {
		f := newFakeTransport()
		opts := NewResolver(f, nil).Resolve(ctx, schemaOf(types.ResourcePermissions))
		assert.Empty(t, opts)
		assert.Empty(t, f.allCalls())
	})
}

func TestReferenceOptionsLabels(t *testing.T) {
	f := types.Field{Key: "admin_id", Kind: types.KindReference, Ref: "platform-admins", RefLabel: "display"}
	rows := []types.Row{
		{"id": 1, "display": "Root", "name": "ignored"},
		{"id": 2, "email": "a@example.com"},
		{"id": 3, "key_name": "k"},
		{"name": "no id"},
	}
	opts := ReferenceOptions(f, rows, nil)
	require.Len(t, opts, 3)
	assert.Equal(t, "Root (#1)", opts[0].Label)
	assert.Equal(t, "a@example.com (#2)", opts[1].Label)
	assert.Equal(t, "k (#3)", opts[2].Label)
}

func TestCompactLabel(t *testing.T) {
	assert.Equal(t, "Central", CompactLabel("Central (#3)"))
	assert.Equal(t, "Central (#x)", CompactLabel("Central (#x)"))
	assert.Equal(t, "", CompactLabel(""))
}

func TestFilterOptions(t *testing.T) {
	opts := []types.Option{{Value: "1", Label: "view-product"}, {Value: "2", Label: "Delete-Product"}, {Value: "3", Label: "view-user"}}
	assert.Equal(t, opts, FilterOptions(opts, ""))
	assert.Equal(t, []types.Option{opts[0], opts[1]}, FilterOptions(opts, "PRODUCT"))
	assert.Empty(t, FilterOptions(opts, "zzz"))
}
