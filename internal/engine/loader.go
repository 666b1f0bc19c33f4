// This file implements the data loader: one concurrent list fetch per
// collection a view needs, followed by the derived link and image indexes.
package engine

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mesh-intelligence/codadmin/pkg/types"
)

// Dataset is the result of one load: the rows of every fetched collection and
// the indexes derived from them.
type Dataset struct {
	Resource string
	Rows     []types.Row

	collections map[string][]types.Row
	links       map[string]*LinkIndex
	images      *Index[types.Row]
}

// Collection returns the rows fetched for resource (nil when not fetched).
func (d *Dataset) Collection(resource string) []types.Row {
	if d == nil {
		return nil
	}
	return d.collections[resource]
}

// Fetched reports whether resource was part of the load.
func (d *Dataset) Fetched(resource string) bool {
	if d == nil {
		return false
	}
	_, ok := d.collections[resource]
	return ok
}

// Links returns the parent-to-links index of a relation's join table. The
// index is empty when the join table was not loaded.
func (d *Dataset) Links(spec types.RelationSpec) *LinkIndex {
	if d != nil {
		if ix, ok := d.links[spec.LinkResource]; ok {
			return ix
		}
	}
	return NewIndex[types.RelationLink]()
}

// Images returns the images of a parent row in fetch order.
func (d *Dataset) Images(parentID int64) []types.Row {
	if d == nil {
		return nil
	}
	return d.images.Get(parentID)
}

// Loader fetches the collections a resource view needs.
type Loader struct {
	transport types.Transport
	logger    *zap.Logger
}

// NewLoader creates a loader. A nil logger disables logging.
func NewLoader(t types.Transport, logger *zap.Logger) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{transport: t, logger: logger}
}

// Plan returns the collections to fetch for schema as seen by identity, in
// fetch order, without duplicates.
func Plan(schema types.ResourceSchema, identity types.Identity) []string {
	var out []string
	seen := map[string]bool{}
	add := func(keys ...string) {
		for _, k := range keys {
			if k != "" && !seen[k] {
				seen[k] = true
				out = append(out, k)
			}
		}
	}
	add(schema.Key)
	for _, r := range schema.Relations {
		add(r.ChildResource, r.LinkResource)
	}
	if schema.Images != nil {
		add(schema.Images.Resource)
	}
	if identity.IsClient() {
		add(types.ResourceBranches, types.ResourceMerchants)
		if schema.Scope.Kind == types.ScopeByLinkedOwners {
			add(schema.Scope.Owner)
		}
		if schema.Scope.Link != nil {
			add(schema.Scope.Link.LinkResource)
		}
	}
	return out
}

// Load fetches every planned collection concurrently and returns once all of
// them have completed. The first failure cancels the remaining fetches and
// fails the whole load.
func (l *Loader) Load(ctx context.Context, schema types.ResourceSchema, identity types.Identity) (*Dataset, error) {
	plan := Plan(schema, identity)
	start := time.Now()
	l.logger.Debug("load started", zap.String("resource", schema.Key), zap.Strings("collections", plan))

	results := make([][]types.Row, len(plan))
	g, gctx := errgroup.WithContext(ctx)
	for i, resource := range plan {
		g.Go(func() error {
			rows, err := l.transport.List(gctx, resource)
			if err != nil {
				return fmt.Errorf("listing %s: %w", resource, err)
			}
			results[i] = rows
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		l.logger.Debug("load failed", zap.String("resource", schema.Key), zap.Error(err))
		return nil, err
	}

	d := &Dataset{
		Resource:    schema.Key,
		collections: make(map[string][]types.Row, len(plan)),
		links:       make(map[string]*LinkIndex),
	}
	for i, resource := range plan {
		rows := results[i]
		if rows == nil {
			rows = []types.Row{}
		}
		d.collections[resource] = rows
	}
	d.Rows = d.collections[schema.Key]

	specs := append([]types.RelationSpec(nil), schema.Relations...)
	if schema.Scope.Link != nil {
		specs = append(specs, *schema.Scope.Link)
	}
	for _, spec := range specs {
		if _, done := d.links[spec.LinkResource]; done || !d.Fetched(spec.LinkResource) {
			continue
		}
		d.links[spec.LinkResource] = BuildLinkIndex(spec, d.collections[spec.LinkResource])
	}
	if schema.Images != nil {
		d.images = BuildRowIndex(d.collections[schema.Images.Resource], schema.Images.ParentKey)
	}

	l.logger.Debug("load finished",
		zap.String("resource", schema.Key),
		zap.Int("rows", len(d.Rows)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return d, nil
}
