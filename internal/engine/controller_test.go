package engine

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/codadmin/pkg/types"
)

func TestControllerCreateProduct(t *testing.T) {
	f := seedTenant(newFakeTransport())
	c := NewController(f, &fakeUploader{}, nil)
	f.reset()

	d := NewDraft(schemaOf(types.ResourceProducts))
	require.NoError(t, d.Set("name", "Widget"))
	require.NoError(t, d.Set("slug", "widget"))
	require.NoError(t, d.Set("branch_id", "3"))

	res, err := c.Save(context.Background(), d)
	require.NoError(t, err)
	assert.True(t, res.Created)
	assert.Equal(t, int64(13), res.ID)

	creates := f.callsOf("CREATE", "")
	require.Len(t, creates, 1)
	assert.Equal(t, types.ResourceProducts, creates[0].Resource)
	assert.Equal(t, map[string]any{"branch_id": int64(3), "name": "Widget", "slug": "widget"}, creates[0].Payload)
	assert.Empty(t, f.callsOf("DELETE", ""))
}

func TestControllerEditRolePermissions(t *testing.T) {
	f := seedTenant(newFakeTransport())
	c := NewController(f, nil, nil)
	schema := schemaOf(types.ResourceBranchRoles)

	d, err := DraftFromRow(schema, types.Row{"id": 30, "branch_id": 3, "name": "Manager"})
	require.NoError(t, err)
	d.Relations["permissions"] = []string{"1", "2"}
	require.NoError(t, d.ToggleRelation("permissions", "1"))
	require.NoError(t, d.ToggleRelation("permissions", "3"))
	f.reset()

	_, err = c.Save(context.Background(), d)
	require.NoError(t, err)

	updates := f.callsOf("UPDATE", types.ResourceBranchRoles)
	require.Len(t, updates, 1)
	assert.Equal(t, int64(30), updates[0].ID)

	var deleted []int64
	for _, del := range f.callsOf("DELETE", types.ResourceBranchRolePermissions) {
		deleted = append(deleted, del.ID)
	}
	assert.ElementsMatch(t, []int64{300, 301}, deleted)

	var created []any
	for _, cr := range f.callsOf("CREATE", types.ResourceBranchRolePermissions) {
		assert.Equal(t, int64(30), cr.Payload["branch_role_id"])
		created = append(created, cr.Payload["permission_id"])
	}
	assert.ElementsMatch(t, []any{int64(2), int64(3)}, created)

	calls := f.allCalls()
	lastDelete, firstCreate := -1, len(calls)
	for i, cl := range calls {
		if cl.Method == "DELETE" {
			lastDelete = i
		}
		if cl.Method == "CREATE" && i < firstCreate {
			firstCreate = i
		}
	}
	assert.Less(t, lastDelete, firstCreate, "all deletes finish before any create")
}

func TestControllerIDRecovery(t *testing.T) {
	ctx := context.Background()

	newDraft := func(name, slug string) *Draft {
		d := NewDraft(schemaOf(types.ResourceProducts))
		_ = d.Set("name", name)
		_ = d.Set("slug", slug)
		_ = d.Set("branch_id", "3")
		_ = d.SetRelation("categories", []string{"20"})
		return d
	}

	t.Run("recovers the id by business keys", func(t *testing.T) {
		f := seedTenant(newFakeTransport())
		f.omitID[types.ResourceProducts] = true
		res, err := NewController(f, nil, nil).Save(ctx, newDraft("Lamp", "lamp"))
		require.NoError(t, err)
		assert.Equal(t, int64(13), res.ID)

		links := f.callsOf("CREATE", types.ResourceProductCategories)
		require.Len(t, links, 1)
		assert.Equal(t, int64(13), links[0].Payload["product_id"])
	})

	t.Run("falls back to the slug alone", func(t *testing.T) {
		f := seedTenant(newFakeTransport())
		f.omitID[types.ResourceProducts] = true
		res, err := NewController(renamingTransport{f}, nil, nil).Save(ctx, newDraft("Lamp", "lamp"))
		require.NoError(t, err)
		assert.Equal(t, int64(13), res.ID)
	})

	t.Run("ambiguous match reports unsynced relations", func(t *testing.T) {
		f := seedTenant(newFakeTransport())
		f.seed(types.ResourceProducts, types.Row{"id": 50, "branch_id": 3, "name": "Widget", "slug": "widget"})
		f.omitID[types.ResourceProducts] = true

		_, err := NewController(f, nil, nil).Save(ctx, newDraft("Widget", "widget"))
		var se *SaveError
		require.ErrorAs(t, err, &se)
		assert.Equal(t, KindPartial, se.Kind)
		assert.Equal(t, "Product saved but could not sync categories or images.", se.Message)
		assert.ErrorIs(t, err, ErrAmbiguousRecovery)
		assert.Empty(t, f.callsOf("CREATE", types.ResourceProductCategories))
	})

	t.Run("no match reports unsynced relations", func(t *testing.T) {
		f := newFakeTransport()
		f.omitID[types.ResourceBranchRoles] = true
		d := NewDraft(schemaOf(types.ResourceBranchRoles))
		_ = d.Set("branch_id", "3")
		_ = d.Set("name", "Clerk")

		_, err := NewController(renamingTransport{f}, nil, nil).Save(ctx, d)
		var se *SaveError
		require.ErrorAs(t, err, &se)
		assert.Equal(t, KindPartial, se.Kind)
		assert.Equal(t, "Role saved but could not sync permissions.", se.Message)
		assert.ErrorIs(t, err, ErrNoRecovery)
	})
}

// renamingTransport stores created rows under a different name.
type renamingTransport struct {
	*fakeTransport
}

func (r renamingTransport) Create(ctx context.Context, resource string, payload map[string]any) (types.Row, error) {
	p := make(map[string]any, len(payload))
	for k, v := range payload {
		p[k] = v
	}
	if name, ok := p["name"].(string); ok {
		p["name"] = strings.ToUpper(name)
	}
	return r.fakeTransport.Create(ctx, resource, p)
}

func TestControllerErrors(t *testing.T) {
	ctx := context.Background()
	schema := schemaOf(types.ResourceProducts)

	valid := func() *Draft {
		d := NewDraft(schema)
		_ = d.Set("name", "Widget")
		_ = d.Set("slug", "widget")
		_ = d.Set("branch_id", "3")
		return d
	}

	t.Run("client validation sends nothing", func(t *testing.T) {
		f := newFakeTransport()
		_, err := NewController(f, nil, nil).Save(ctx, NewDraft(schema))
		var se *SaveError
		require.ErrorAs(t, err, &se)
		assert.Equal(t, KindClientValidation, se.Kind)
		assert.Equal(t, MessageRequired, se.Message)
		assert.Len(t, se.FieldErrors, 3)
		assert.ErrorIs(t, err, types.ErrValidation)
		assert.Empty(t, f.allCalls())
	})

	t.Run("server validation", func(t *testing.T) {
		for _, status := range []int{http.StatusBadRequest, http.StatusUnprocessableEntity} {
			f := newFakeTransport()
			f.failOn("CREATE", types.ResourceProducts, &statusError{
				status: status,
				body:   `{"message":"Validation failed","errors":[{"field":"slug","message":"already taken"}]}`,
			})
			_, err := NewController(f, nil, nil).Save(ctx, valid())
			var se *SaveError
			require.ErrorAs(t, err, &se)
			assert.Equal(t, KindServerValidation, se.Kind)
			assert.Equal(t, map[string]string{"slug": "already taken"}, se.FieldErrors)
			assert.Equal(t, "Validation failed", se.Message)
			assert.ErrorIs(t, err, types.ErrValidation)
		}
	})

	t.Run("server field errors without message fall back to the error text", func(t *testing.T) {
		f := newFakeTransport()
		f.failOn("CREATE", types.ResourceProducts, &statusError{status: 400, body: `{"errors":{"slug":"taken"}}`})
		_, err := NewController(f, nil, nil).Save(ctx, valid())
		var se *SaveError
		require.ErrorAs(t, err, &se)
		assert.Equal(t, KindServerValidation, se.Kind)
		assert.Equal(t, "request failed: {\"errors\":{\"slug\":\"taken\"}}", se.Message)
	})

	t.Run("other failures are transport errors", func(t *testing.T) {
		f := newFakeTransport()
		f.failOn("CREATE", types.ResourceProducts, &statusError{status: 500, body: `{"message":"db down"}`})
		_, err := NewController(f, nil, nil).Save(ctx, valid())
		var se *SaveError
		require.ErrorAs(t, err, &se)
		assert.Equal(t, KindTransport, se.Kind)
		assert.Empty(t, se.FieldErrors)

		f = newFakeTransport()
		f.failOn("CREATE", types.ResourceProducts, errBoom)
		_, err = NewController(f, nil, nil).Save(ctx, valid())
		require.ErrorAs(t, err, &se)
		assert.Equal(t, KindTransport, se.Kind)
		assert.ErrorIs(t, err, errBoom)
	})

	t.Run("relation failure after save is partial", func(t *testing.T) {
		f := seedTenant(newFakeTransport())
		f.failOn("CREATE", types.ResourceProductCategories, errBoom)
		d := valid()
		_ = d.SetRelation("categories", []string{"20", "21"})

		res, err := NewController(f, nil, nil).Save(ctx, d)
		var se *SaveError
		require.ErrorAs(t, err, &se)
		assert.Equal(t, KindPartial, se.Kind)
		assert.Equal(t, int64(13), se.ID)
		assert.Equal(t, int64(13), res.ID)
		assert.Equal(t, "Product saved but could not sync categories.", se.Message)

		var syncErr *SyncError
		require.True(t, errors.As(err, &syncErr))
		assert.ElementsMatch(t, []string{"20", "21"}, syncErr.Failed)
	})
}

func TestControllerDelete(t *testing.T) {
	ctx := context.Background()
	f := seedTenant(newFakeTransport())
	c := NewController(f, nil, nil)
	schema := schemaOf(types.ResourceProducts)

	assert.ErrorIs(t, c.Delete(ctx, schema, 10, false), types.ErrNotConfirmed)
	assert.Empty(t, f.callsOf("DELETE", ""))

	require.NoError(t, c.Delete(ctx, schema, 10, true))
	dels := f.callsOf("DELETE", types.ResourceProducts)
	require.Len(t, dels, 1)
	assert.Equal(t, int64(10), dels[0].ID)

	assert.ErrorIs(t, c.Delete(ctx, schema, 0, true), types.ErrInvalidID)
}

func TestControllerUploadAsset(t *testing.T) {
	ctx := context.Background()
	schema := schemaOf(types.ResourceUsers)

	u := &fakeUploader{response: types.Row{"avatar_url": "https://cdn/a.png"}}
	got, err := NewController(newFakeTransport(), u, nil).UploadAsset(ctx, schema, 40, "photo",
		types.FileUpload{Name: "me.png", Reader: strings.NewReader("png")})
	require.NoError(t, err)
	assert.Equal(t, "https://cdn/a.png", got)
	require.Len(t, u.uploads, 1)
	assert.Equal(t, "/merchant/users/40/photo", u.uploads[0].Path)
	assert.Equal(t, "png", u.uploads[0].Content)

	u = &fakeUploader{response: types.Row{"url": "https://cdn/f.png"}}
	got, err = NewController(newFakeTransport(), u, nil).UploadAsset(ctx, schemaOf(types.ResourceBranches), 3, "flag",
		types.FileUpload{Name: "f.png", Reader: strings.NewReader("f")})
	require.NoError(t, err)
	assert.Equal(t, "https://cdn/f.png", got)

	_, err = NewController(newFakeTransport(), u, nil).UploadAsset(ctx, schema, 40, "flag",
		types.FileUpload{Name: "f.png", Reader: strings.NewReader("f")})
	assert.ErrorIs(t, err, types.ErrNoUploadTarget)
}
