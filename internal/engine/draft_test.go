package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/codadmin/pkg/types"
)

func TestNewDraftDefaults(t *testing.T) {
	d := NewDraft(schemaOf(types.ResourceProducts))
	assert.False(t, d.Editing())
	assert.Equal(t, false, d.Get("is_active"))
	assert.Equal(t, "", d.Get("name"))
	assert.Equal(t, "", d.Get("branch_id"))
	assert.Equal(t, "", d.Get("created_by"))
}

func TestDraftFromRow(t *testing.T) {
	row := types.Row{
		"id": float64(10), "branch_id": float64(3), "name": "Widget", "moq": float64(12),
		"status": "active", "is_active": float64(1), "description": nil,
	}
	d, err := DraftFromRow(schemaOf(types.ResourceProducts), row)
	require.NoError(t, err)

	assert.True(t, d.Editing())
	assert.Equal(t, int64(10), d.ID)
	assert.Equal(t, "3", d.Get("branch_id"))
	assert.Equal(t, "12", d.Get("moq"))
	assert.Equal(t, "", d.Get("description"))
	assert.Equal(t, true, d.Get("is_active"))

	_, err = DraftFromRow(schemaOf(types.ResourceProducts), types.Row{"name": "x"})
	assert.ErrorIs(t, err, types.ErrInvalidID)
}

func TestDraftSet(t *testing.T) {
	d := NewDraft(schemaOf(types.ResourceProducts))

	require.NoError(t, d.Set("is_active", "yes"))
	assert.Equal(t, true, d.Get("is_active"))
	assert.True(t, d.touched["is_active"])

	require.NoError(t, d.Set("moq", 5))
	assert.Equal(t, "5", d.Get("moq"))

	assert.Error(t, d.Set("is_active", "maybe"))
	assert.ErrorIs(t, d.Set("price", "1"), types.ErrUnknownField)
}

func TestDraftRelations(t *testing.T) {
	d := NewDraft(schemaOf(types.ResourceBranchRoles))

	require.NoError(t, d.ToggleRelation("permissions", "1"))
	require.NoError(t, d.ToggleRelation("permissions", "2"))
	require.NoError(t, d.ToggleRelation("permissions", "1"))
	assert.Equal(t, []string{"2"}, d.Relations["permissions"])

	require.NoError(t, d.SetRelation("permissions", []string{"3", "4"}))
	assert.Equal(t, []string{"3", "4"}, d.Relations["permissions"])

	assert.ErrorIs(t, d.ToggleRelation("categories", "1"), types.ErrUnknownField)

	d.ToggleImageRemoval(7)
	d.ToggleImageRemoval(8)
	d.ToggleImageRemoval(7)
	assert.Equal(t, []int64{8}, d.RemovedImages)
}

func TestValidate(t *testing.T) {
	schema := schemaOf(types.ResourceProducts)

	t.Run("required fields", func(t *testing.T) {
		errs := Validate(NewDraft(schema))
		assert.Equal(t, map[string]string{
			"branch_id": "Branch is required.",
			"name":      "Name is required.",
			"slug":      "Slug is required.",
		}, errs)
	})

	t.Run("only the empty string is missing", func(t *testing.T) {
		d := NewDraft(schema)
		require.NoError(t, d.Set("name", "   "))
		assert.NotContains(t, Validate(d), "name")
	})

	t.Run("numbers must parse", func(t *testing.T) {
		d := NewDraft(schema)
		require.NoError(t, d.Set("branch_id", "x"))
		require.NoError(t, d.Set("moq", "lots"))
		errs := Validate(d)
		assert.Equal(t, "Branch must be a number.", errs["branch_id"])
		assert.Equal(t, "MOQ must be a number.", errs["moq"])
	})

	t.Run("booleans and read-only fields are exempt", func(t *testing.T) {
		s := types.ResourceSchema{Key: "flags", Fields: []types.Field{
			{Key: "on", Label: "On", Kind: types.KindBoolean, Required: true},
			{Key: "stamp", Label: "Stamp", Kind: types.KindText, Required: true, ReadOnly: true},
		}}
		assert.Empty(t, Validate(NewDraft(s)))
	})
}

func TestBuildPayload(t *testing.T) {
	schema := schemaOf(types.ResourceProducts)

	t.Run("create drops empty and untouched boolean fields", func(t *testing.T) {
		d := NewDraft(schema)
		require.NoError(t, d.Set("name", "Widget"))
		require.NoError(t, d.Set("slug", "widget"))
		require.NoError(t, d.Set("branch_id", "3"))

		p, err := BuildPayload(d)
		require.NoError(t, err)
		assert.Equal(t, map[string]any{"branch_id": int64(3), "name": "Widget", "slug": "widget"}, p)
	})

	t.Run("coerces numbers and touched booleans", func(t *testing.T) {
		d := NewDraft(schema)
		require.NoError(t, d.Set("moq", "2.5"))
		require.NoError(t, d.Set("is_active", false))
		p, err := BuildPayload(d)
		require.NoError(t, err)
		assert.Equal(t, 2.5, p["moq"])
		assert.Equal(t, false, p["is_active"])
	})

	t.Run("edit always sends booleans and never read-only fields", func(t *testing.T) {
		d, err := DraftFromRow(schema, types.Row{"id": 10, "name": "Widget", "created_by": 7, "is_active": true, "moq": 4})
		require.NoError(t, err)
		p, err := BuildPayload(d)
		require.NoError(t, err)
		assert.Equal(t, true, p["is_active"])
		assert.Equal(t, int64(4), p["moq"])
		assert.NotContains(t, p, "created_by")
		assert.NotContains(t, p, "id")
	})

	t.Run("invalid number is rejected", func(t *testing.T) {
		d := NewDraft(schema)
		require.NoError(t, d.Set("moq", "many"))
		_, err := BuildPayload(d)
		assert.ErrorIs(t, err, types.ErrInvalidPayload)
	})
}

func TestFieldError(t *testing.T) {
	f := types.Field{Key: "email", Label: "Email", Kind: types.KindEmail, Required: true}
	assert.Equal(t, "Email is required.", FieldError(f, ""))
	assert.Equal(t, "Email is required.", FieldError(f, nil))
	assert.Equal(t, "", FieldError(f, "a@b"))
	assert.Equal(t, "", FieldError(f, "  "))

	n := types.Field{Key: "moq", Label: "MOQ", Kind: types.KindNumber, Required: true}
	assert.Equal(t, "", FieldError(n, " 12 "))
	assert.Equal(t, "MOQ must be a number.", FieldError(n, "1 2"))
}

func TestDraftClone(t *testing.T) {
	d := NewDraft(schemaOf(types.ResourceProducts))
	require.NoError(t, d.Set("name", "Widget"))
	require.NoError(t, d.SetRelation("categories", []string{"20"}))
	d.ToggleImageRemoval(200)

	c := d.Clone()
	require.NoError(t, d.Set("name", "Other"))
	require.NoError(t, d.ToggleRelation("categories", "21"))
	d.ToggleImageRemoval(201)

	assert.Equal(t, "Widget", c.Value("name"))
	assert.True(t, c.touched["name"])
	assert.Equal(t, []string{"20"}, c.Relations["categories"])
	assert.Equal(t, []int64{200}, c.RemovedImages)
}
