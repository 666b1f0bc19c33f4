package types

import "fmt"

// RelationSpec describes a many-to-many join table hanging off a parent
// resource, e.g. branch-roles <-> permissions through branch-role-permissions.
type RelationSpec struct {
	// Name identifies the relation within its parent schema ("permissions").
	Name string
	// LinkResource is the join-table resource key.
	LinkResource string
	// ParentKey and ChildKey are the two foreign-key columns of a link row.
	ParentKey string
	ChildKey  string
	// ChildResource is the resource the child ids point into.
	ChildResource string
	// ChildLabel is the preferred label column of a child row.
	ChildLabel string
	// LinkDefaults are extra payload values sent with each created link.
	LinkDefaults map[string]any
	// CountColumn names the computed per-parent link count column, if any.
	CountColumn string
}

// Validate checks that the join-table wiring is complete.
func (r RelationSpec) Validate() error {
	if r.Name == "" || r.LinkResource == "" || r.ParentKey == "" || r.ChildKey == "" || r.ChildResource == "" {
		return fmt.Errorf("%w: incomplete relation %q", ErrInvalidSchema, r.Name)
	}
	return nil
}

// Payload builds the create payload of one link row.
func (r RelationSpec) Payload(parentID, childID int64) map[string]any {
	p := make(map[string]any, len(r.LinkDefaults)+2)
	for k, v := range r.LinkDefaults {
		p[k] = v
	}
	p[r.ParentKey] = parentID
	p[r.ChildKey] = childID
	return p
}

// RelationLink is one join-table row: two foreign keys plus its own id.
type RelationLink struct {
	ID       int64
	ParentID int64
	ChildID  int64
}

// LinkFromRow extracts a RelationLink from a join-table row. It reports false
// when the row has no usable parent id.
func LinkFromRow(spec RelationSpec, row Row) (RelationLink, bool) {
	parent, ok := ToInt64(row[spec.ParentKey])
	if !ok || parent == 0 {
		return RelationLink{}, false
	}
	id, _ := row.ID()
	child, _ := ToInt64(row[spec.ChildKey])
	return RelationLink{ID: id, ParentID: parent, ChildID: child}, true
}

// ImageSpec describes a product-style image gallery: image rows keyed by
// parent, plus a multipart upload endpoint for new files.
type ImageSpec struct {
	Resource   string
	ParentKey  string
	UploadPath string
	FileField  string
}
