package types

import (
	"errors"
	"fmt"
)

// FieldKind is the closed set of field variants a schema can declare.
type FieldKind int

const (
	KindText FieldKind = iota
	KindEmail
	KindPassword
	KindNumber
	KindBoolean
	KindSelect    // fixed enumeration from Field.Options
	KindReference // foreign key; options come from the rows of Field.Ref
)

// String returns the input type name used when rendering the field.
func (k FieldKind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindEmail:
		return "email"
	case KindPassword:
		return "password"
	case KindNumber:
		return "number"
	case KindBoolean:
		return "boolean"
	case KindSelect:
		return "select"
	case KindReference:
		return "reference"
	default:
		return "unknown"
	}
}

// Field describes one editable column of a resource.
type Field struct {
	Key      string
	Label    string
	Kind     FieldKind
	Required bool
	ReadOnly bool

	// Ref and RefLabel are set for KindReference only.
	Ref      string
	RefLabel string

	// Options is set for KindSelect only.
	Options []string
}

// Permissions holds the permission keys gating each CRUD operation. An empty
// key means the operation is not gated.
type Permissions struct {
	Read   string
	Create string
	Update string
	Delete string
}

// Actor is the class of authenticated principal.
type Actor string

const (
	ActorPlatform Actor = "platform"
	ActorMerchant Actor = "merchant"
	ActorBuyer    Actor = "buyer"
)

// Valid reports whether a is a known actor class.
func (a Actor) Valid() bool {
	switch a {
	case ActorPlatform, ActorMerchant, ActorBuyer:
		return true
	}
	return false
}

// ScopeKind selects how rows of a resource are narrowed by the active scope.
type ScopeKind int

const (
	// ScopeByColumns matches branch_id and merchant_id columns directly and
	// falls back to the owning branch's merchant.
	ScopeByColumns ScopeKind = iota
	// ScopeByOwningBranch requires branch_id, resolves the merchant through
	// the branch, and filters by category through Link.
	ScopeByOwningBranch
	// ScopeByLinkedOwners keeps the rows linked (through Link) to owner rows
	// that are themselves in scope.
	ScopeByLinkedOwners
)

// ScopeRule tells the scope filter how a resource relates to the tenant
// hierarchy.
type ScopeRule struct {
	Kind ScopeKind
	// Owner is the resource whose rows are scoped first (ScopeByLinkedOwners).
	Owner string
	// Link relates owners (parents) to categories (children).
	Link *RelationSpec
}

// UploadSpec describes an asset upload for existing records, posted to
// PathPrefix/{id}/{Kind}.
type UploadSpec struct {
	Kind       string // "photo" or "flag"
	PathPrefix string
	FileField  string
	URLField   string // draft field receiving the returned URL
}

// Path returns the upload path for the record id.
func (u UploadSpec) Path(id int64) string {
	return fmt.Sprintf("%s/%d/%s", u.PathPrefix, id, u.Kind)
}

// ResourceSchema is the declarative description of a backend resource.
// Schemas are immutable once registered.
type ResourceSchema struct {
	Key         string
	Title       string
	Noun        string // singular name used in messages ("Product")
	Section     Actor  // console section the resource lives in
	Permissions *Permissions
	Fields      []Field

	// Relations are many-to-many links replaced wholesale on save.
	Relations []RelationSpec
	// Images is set for resources with an attachment gallery.
	Images *ImageSpec
	// Uploads lists the asset uploads available on existing records.
	Uploads []UploadSpec
	// Scope narrows rows for tenant-restricted users.
	Scope ScopeRule
	// RecoveryKeys are business-key sets, tried in order, used to find the id
	// of a just-created row when the create response omits it.
	RecoveryKeys [][]string
}

// Field returns the field with the given key.
func (s ResourceSchema) Field(key string) (Field, bool) {
	for _, f := range s.Fields {
		if f.Key == key {
			return f, true
		}
	}
	return Field{}, false
}

// ReferenceFields returns the KindReference fields in declaration order.
func (s ResourceSchema) ReferenceFields() []Field {
	var out []Field
	for _, f := range s.Fields {
		if f.Kind == KindReference {
			out = append(out, f)
		}
	}
	return out
}

// Relation returns the relation with the given name.
func (s ResourceSchema) Relation(name string) (RelationSpec, bool) {
	for _, r := range s.Relations {
		if r.Name == name {
			return r, true
		}
	}
	return RelationSpec{}, false
}

// Upload returns the asset upload of the given kind.
func (s ResourceSchema) Upload(kind string) (UploadSpec, bool) {
	for _, u := range s.Uploads {
		if u.Kind == kind {
			return u, true
		}
	}
	return UploadSpec{}, false
}

// Columns returns the rendered column set: id, every field key in order, then
// one computed count column per relation that declares one.
func (s ResourceSchema) Columns() []string {
	cols := make([]string, 0, len(s.Fields)+1)
	cols = append(cols, ColumnID)
	for _, f := range s.Fields {
		cols = append(cols, f.Key)
	}
	for _, r := range s.Relations {
		if r.CountColumn != "" {
			cols = append(cols, r.CountColumn)
		}
	}
	return cols
}

// Schema definition errors.
var (
	ErrUnknownResource = errors.New("unknown resource")
	ErrUnknownField    = errors.New("unknown field")
	ErrInvalidSchema   = errors.New("invalid schema")
)

// Validate checks the structural rules of a schema: unique non-empty keys and
// kind-specific attributes.
func (s ResourceSchema) Validate() error {
	if s.Key == "" {
		return fmt.Errorf("%w: empty key", ErrInvalidSchema)
	}
	seen := map[string]bool{ColumnID: true}
	for _, f := range s.Fields {
		if f.Key == "" || seen[f.Key] {
			return fmt.Errorf("%w: %s: duplicate or empty field key %q", ErrInvalidSchema, s.Key, f.Key)
		}
		seen[f.Key] = true
		switch f.Kind {
		case KindReference:
			if f.Ref == "" {
				return fmt.Errorf("%w: %s.%s: reference without ref", ErrInvalidSchema, s.Key, f.Key)
			}
		case KindSelect:
			if len(f.Options) == 0 {
				return fmt.Errorf("%w: %s.%s: select without options", ErrInvalidSchema, s.Key, f.Key)
			}
		case KindText, KindEmail, KindPassword, KindNumber, KindBoolean:
			if f.Ref != "" || len(f.Options) > 0 {
				return fmt.Errorf("%w: %s.%s: %s field with ref or options", ErrInvalidSchema, s.Key, f.Key, f.Kind)
			}
		default:
			return fmt.Errorf("%w: %s.%s: unknown kind %d", ErrInvalidSchema, s.Key, f.Key, int(f.Kind))
		}
	}
	for _, r := range s.Relations {
		if err := r.Validate(); err != nil {
			return fmt.Errorf("%s: %w", s.Key, err)
		}
	}
	return nil
}
