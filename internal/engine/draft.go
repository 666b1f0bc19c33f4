// This file implements the record draft: field values seeded from schema
// defaults or an existing row, required/type validation, and payload building.
package engine

import (
	"fmt"
	"maps"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/mesh-intelligence/codadmin/pkg/types"
)

// MessageRequired is the general message of a failed client validation.
const MessageRequired = "Please fill in the required fields."

// Draft is the editable state of one record. Boolean fields hold a bool,
// every other field holds a string.
type Draft struct {
	Schema types.ResourceSchema
	// ID is the record being edited; zero for a create.
	ID int64

	values  map[string]any
	touched map[string]bool

	// Relations holds the selected child ids per relation name.
	Relations map[string][]string
	// Existing images of the record and the ones marked for removal.
	Images        []types.Row
	RemovedImages []int64
	// Files are pending image uploads.
	Files []types.FileUpload
}

// NewDraft returns a create draft with schema defaults: false for booleans
// and "" for everything else.
func NewDraft(schema types.ResourceSchema) *Draft {
	d := &Draft{
		Schema:    schema,
		values:    make(map[string]any, len(schema.Fields)),
		touched:   make(map[string]bool),
		Relations: make(map[string][]string),
	}
	for _, f := range schema.Fields {
		if f.Kind == types.KindBoolean {
			d.values[f.Key] = false
		} else {
			d.values[f.Key] = ""
		}
	}
	return d
}

// DraftFromRow returns an edit draft seeded from row. Reference and select
// values become strings so they compare equal to option values.
func DraftFromRow(schema types.ResourceSchema, row types.Row) (*Draft, error) {
	id, ok := row.ID()
	if !ok {
		return nil, fmt.Errorf("%w: row without id", types.ErrInvalidID)
	}
	d := NewDraft(schema)
	d.ID = id
	for _, f := range schema.Fields {
		if f.Kind == types.KindBoolean {
			d.values[f.Key] = truthy(row[f.Key])
			continue
		}
		d.values[f.Key] = row.String(f.Key)
	}
	return d, nil
}

// Editing reports whether the draft edits an existing record.
func (d *Draft) Editing() bool {
	return d.ID != 0
}

// Get returns the value of a field.
func (d *Draft) Get(key string) any {
	return d.values[key]
}

// Value returns the string form of a field value.
func (d *Draft) Value(key string) string {
	return types.Stringify(d.values[key])
}

// Set assigns a field value. Booleans accept a bool or a boolean string;
// other kinds store the string form of value.
func (d *Draft) Set(key string, value any) error {
	f, ok := d.Schema.Field(key)
	if !ok {
		return fmt.Errorf("%w %q on %s", types.ErrUnknownField, key, d.Schema.Key)
	}
	if f.Kind == types.KindBoolean {
		b, err := parseBool(value)
		if err != nil {
			return fmt.Errorf("%s: %w", f.Label, err)
		}
		d.values[key] = b
	} else {
		d.values[key] = types.Stringify(value)
	}
	d.touched[key] = true
	return nil
}

// Clone returns a deep copy of the draft. Pending files share their readers.
func (d *Draft) Clone() *Draft {
	c := &Draft{
		Schema:        d.Schema,
		ID:            d.ID,
		values:        maps.Clone(d.values),
		touched:       maps.Clone(d.touched),
		Relations:     make(map[string][]string, len(d.Relations)),
		Images:        slices.Clone(d.Images),
		RemovedImages: slices.Clone(d.RemovedImages),
		Files:         slices.Clone(d.Files),
	}
	for name, ids := range d.Relations {
		c.Relations[name] = slices.Clone(ids)
	}
	return c
}

// SetRelation replaces the selected children of a relation.
func (d *Draft) SetRelation(name string, ids []string) error {
	if _, ok := d.Schema.Relation(name); !ok {
		return fmt.Errorf("%w: relation %q on %s", types.ErrUnknownField, name, d.Schema.Key)
	}
	d.Relations[name] = append([]string(nil), ids...)
	return nil
}

// ToggleRelation adds id to a relation selection, or removes it when present.
func (d *Draft) ToggleRelation(name, id string) error {
	if _, ok := d.Schema.Relation(name); !ok {
		return fmt.Errorf("%w: relation %q on %s", types.ErrUnknownField, name, d.Schema.Key)
	}
	cur := d.Relations[name]
	for i, v := range cur {
		if v == id {
			d.Relations[name] = append(cur[:i:i], cur[i+1:]...)
			return nil
		}
	}
	d.Relations[name] = append(cur, id)
	return nil
}

// ToggleImageRemoval marks an existing image for removal, or unmarks it.
func (d *Draft) ToggleImageRemoval(imageID int64) {
	for i, v := range d.RemovedImages {
		if v == imageID {
			d.RemovedImages = append(d.RemovedImages[:i:i], d.RemovedImages[i+1:]...)
			return
		}
	}
	d.RemovedImages = append(d.RemovedImages, imageID)
}

// FieldError returns the live validation message of one field value, or "".
func FieldError(f types.Field, value any) string {
	if f.ReadOnly || f.Kind == types.KindBoolean {
		return ""
	}
	raw := types.Stringify(value)
	if raw == "" {
		if f.Required {
			return f.Label + " is required."
		}
		return ""
	}
	s := strings.TrimSpace(raw)
	if s == "" {
		return ""
	}
	switch f.Kind {
	case types.KindNumber:
		if _, ok := parseNumber(s); !ok {
			return f.Label + " must be a number."
		}
	case types.KindReference:
		if _, err := strconv.ParseInt(s, 10, 64); err != nil {
			return f.Label + " must be a number."
		}
	}
	return ""
}

// Validate returns the per-field errors of the draft; an empty map means the
// draft can be submitted. Read-only fields are never validated and booleans
// are exempt from the required check.
func Validate(d *Draft) map[string]string {
	errs := make(map[string]string)
	for _, f := range d.Schema.Fields {
		if msg := FieldError(f, d.values[f.Key]); msg != "" {
			errs[f.Key] = msg
		}
	}
	return errs
}

// BuildPayload converts a validated draft into the request payload. Read-only
// and empty fields are dropped, numbers and references become numeric, and
// booleans are sent on edit or once they have been set.
func BuildPayload(d *Draft) (map[string]any, error) {
	payload := make(map[string]any, len(d.Schema.Fields))
	for _, f := range d.Schema.Fields {
		if f.ReadOnly {
			continue
		}
		v := d.values[f.Key]
		switch f.Kind {
		case types.KindBoolean:
			if d.Editing() || d.touched[f.Key] {
				payload[f.Key] = truthy(v)
			}
		case types.KindNumber:
			s := strings.TrimSpace(types.Stringify(v))
			if s == "" {
				continue
			}
			n, ok := parseNumber(s)
			if !ok {
				return nil, fmt.Errorf("%w: %s must be a number", types.ErrInvalidPayload, f.Label)
			}
			payload[f.Key] = n
		case types.KindReference:
			s := strings.TrimSpace(types.Stringify(v))
			if s == "" {
				continue
			}
			n, err := strconv.ParseInt(s, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("%w: %s must be a number", types.ErrInvalidPayload, f.Label)
			}
			payload[f.Key] = n
		case types.KindText, types.KindEmail, types.KindPassword, types.KindSelect:
			s := types.Stringify(v)
			if s == "" {
				continue
			}
			payload[f.Key] = s
		default:
			panic(fmt.Sprintf("engine: unknown field kind %d", int(f.Kind)))
		}
	}
	return payload, nil
}

// parseNumber returns an int64 for integral input and a float64 otherwise.
func parseNumber(s string) (any, bool) {
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, true
	}
	x, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(x) || math.IsInf(x, 0) {
		return nil, false
	}
	return x, true
}

func parseBool(v any) (bool, error) {
	switch x := v.(type) {
	case bool:
		return x, nil
	case nil:
		return false, nil
	case string:
		switch strings.ToLower(strings.TrimSpace(x)) {
		case "", "0", "false", "no", "off":
			return false, nil
		case "1", "true", "yes", "on":
			return true, nil
		}
		return false, fmt.Errorf("%w: %q is not a boolean", types.ErrInvalidPayload, x)
	default:
		return truthy(v), nil
	}
}

// truthy mirrors how the backend's loosely typed flags read: non-zero
// numbers and "true"/"1" strings are true.
func truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case string:
		b, err := parseBool(x)
		return err == nil && b
	default:
		n, ok := types.ToInt64(v)
		if ok {
			return n != 0
		}
		if f, isFloat := v.(float64); isFloat {
			return f != 0
		}
		return true
	}
}
