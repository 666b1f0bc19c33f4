// Package catalog holds the static resource schema registry of the console.
//
// The registry is populated once at process start and is read-only
// afterwards, so it is safe for concurrent lookups.
package catalog

import (
	"fmt"

	"github.com/mesh-intelligence/codadmin/pkg/types"
)

// Registry maps resource keys to their schemas, keeping registration order.
type Registry struct {
	schemas map[string]types.ResourceSchema
	order   []string
}

// NewRegistry builds a registry from the given schemas. It returns an error
// when a schema is structurally invalid, a key is registered twice, or a
// reference points at a resource that is not registered.
func NewRegistry(schemas ...types.ResourceSchema) (*Registry, error) {
	r := &Registry{schemas: make(map[string]types.ResourceSchema, len(schemas))}
	for _, s := range schemas {
		if err := s.Validate(); err != nil {
			return nil, err
		}
		if _, dup := r.schemas[s.Key]; dup {
			return nil, fmt.Errorf("%w: duplicate resource %q", types.ErrInvalidSchema, s.Key)
		}
		r.schemas[s.Key] = s
		r.order = append(r.order, s.Key)
	}
	for _, s := range schemas {
		for _, f := range s.ReferenceFields() {
			if _, ok := r.schemas[f.Ref]; !ok {
				return nil, fmt.Errorf("%w: %s.%s references unknown resource %q", types.ErrInvalidSchema, s.Key, f.Key, f.Ref)
			}
		}
	}
	return r, nil
}

// Schema returns the schema for key.
func (r *Registry) Schema(key string) (types.ResourceSchema, bool) {
	s, ok := r.schemas[key]
	return s, ok
}

// MustSchema returns the schema for key and panics when the key is unknown.
// Use it only for keys that are compile-time constants; an unknown key there
// is a programming error.
func (r *Registry) MustSchema(key string) types.ResourceSchema {
	s, ok := r.schemas[key]
	if !ok {
		panic(fmt.Sprintf("catalog: %v %q", types.ErrUnknownResource, key))
	}
	return s
}

// Lookup returns the schema for a user-supplied key, wrapping
// ErrUnknownResource when it is not registered.
func (r *Registry) Lookup(key string) (types.ResourceSchema, error) {
	s, ok := r.schemas[key]
	if !ok {
		return types.ResourceSchema{}, fmt.Errorf("%w %q", types.ErrUnknownResource, key)
	}
	return s, nil
}

// Keys returns every registered resource key in registration order.
func (r *Registry) Keys() []string {
	return append([]string(nil), r.order...)
}

// Section returns the schemas of one console section in registration order.
func (r *Registry) Section(actor types.Actor) []types.ResourceSchema {
	var out []types.ResourceSchema
	for _, k := range r.order {
		if s := r.schemas[k]; s.Section == actor {
			out = append(out, s)
		}
	}
	return out
}

// ResolvePath maps a console route such as /merchant/products to its schema.
func (r *Registry) ResolvePath(path string) (types.ResourceSchema, error) {
	for _, k := range r.order {
		s := r.schemas[k]
		if RoutePath(s) == path {
			return s, nil
		}
	}
	return types.ResourceSchema{}, fmt.Errorf("%w: no resource at %q", types.ErrUnknownResource, path)
}

// RoutePath returns the console route of a schema (/{section}/{key}).
func RoutePath(s types.ResourceSchema) string {
	return "/" + string(s.Section) + "/" + s.Key
}
