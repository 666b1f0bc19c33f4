package engine

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mesh-intelligence/codadmin/pkg/types"
)

// Resolver builds the option lists of reference fields.
type Resolver struct {
	transport types.Transport
	logger    *zap.Logger
}

// NewResolver creates a resolver. A nil logger disables logging.
func NewResolver(t types.Transport, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{transport: t, logger: logger}
}

// Resolve returns the options of every reference field of schema, keyed by
// field key. Each referenced resource is fetched once. Branch-role references
// also need the branches collection to attach each role's branch flag; that
// second lookup is the only transitive step.
//
// A failed fetch degrades the affected fields to an empty option list and is
// logged; Resolve itself never fails.
func (r *Resolver) Resolve(ctx context.Context, schema types.ResourceSchema) map[string][]types.Option {
	fields := schema.ReferenceFields()
	out := make(map[string][]types.Option, len(fields))
	if len(fields) == 0 {
		return out
	}

	var refs []string
	seen := map[string]bool{}
	needFlags := false
	for _, f := range fields {
		if !seen[f.Ref] {
			seen[f.Ref] = true
			refs = append(refs, f.Ref)
		}
		if f.Ref == types.ResourceBranchRoles {
			needFlags = true
		}
	}
	if needFlags && !seen[types.ResourceBranches] {
		refs = append(refs, types.ResourceBranches)
	}

	var (
		mu     sync.Mutex
		rows   = make(map[string][]types.Row, len(refs))
		failed = make(map[string]error)
	)
	var g errgroup.Group
	for _, ref := range refs {
		g.Go(func() error {
			list, err := r.transport.List(ctx, ref)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failed[ref] = err
				return nil
			}
			rows[ref] = list
			return nil
		})
	}
	_ = g.Wait()

	var flags map[string]string
	if needFlags {
		if err, bad := failed[types.ResourceBranches]; bad {
			r.logger.Warn("branch flags unavailable", zap.String("resource", schema.Key), zap.Error(err))
		}
		flags = branchFlags(rows[types.ResourceBranches])
	}

	for _, f := range fields {
		if err, bad := failed[f.Ref]; bad {
			r.logger.Warn("reference options degraded",
				zap.String("resource", schema.Key),
				zap.String("field", f.Key),
				zap.String("ref", f.Ref),
				zap.Error(err),
			)
			out[f.Key] = []types.Option{}
			continue
		}
		out[f.Key] = ReferenceOptions(f, rows[f.Ref], flags)
	}
	return out
}

// ReferenceOptions builds one option per referenced row, in row order. The
// label is the field's RefLabel column, else name, email or key_name, else
// #id, always suffixed with " (#id)".
func ReferenceOptions(f types.Field, rows []types.Row, flags map[string]string) []types.Option {
	opts := make([]types.Option, 0, len(rows))
	for _, row := range rows {
		id, ok := row.ID()
		if !ok {
			continue
		}
		value := types.FormatID(id)
		opt := types.Option{
			Value: value,
			Label: fmt.Sprintf("%s (#%s)", rowLabel(row, f.RefLabel, types.ColumnName, types.ColumnEmail, "key_name"), value),
		}
		switch f.Ref {
		case types.ResourceBranches:
			opt.Metadata = map[string]string{
				types.MetaFlagURL:    row.String(types.ColumnFlagURL),
				types.MetaMerchantID: row.String(types.ColumnMerchantID),
			}
		case types.ResourceBranchRoles:
			branchID := row.String(types.ColumnBranchID)
			opt.Metadata = map[string]string{
				types.MetaBranchID: branchID,
				types.MetaFlagURL:  flags[branchID],
			}
		}
		opts = append(opts, opt)
	}
	return opts
}

func branchFlags(branches []types.Row) map[string]string {
	flags := make(map[string]string, len(branches))
	for _, b := range branches {
		if id, ok := b.ID(); ok {
			flags[types.FormatID(id)] = b.String(types.ColumnFlagURL)
		}
	}
	return flags
}

// rowLabel returns the first non-empty column among keys, else "#id".
func rowLabel(row types.Row, keys ...string) string {
	for _, k := range keys {
		if k == "" {
			continue
		}
		if s := row.String(k); s != "" {
			return s
		}
	}
	return "#" + row.String(types.ColumnID)
}

var optionSuffix = regexp.MustCompile(`\s*\(#\d+\)\s*$`)

// CompactLabel strips the trailing " (#id)" from an option label.
func CompactLabel(label string) string {
	return optionSuffix.ReplaceAllString(label, "")
}

// FilterOptions keeps the options whose label contains query, ignoring case.
func FilterOptions(opts []types.Option, query string) []types.Option {
	if query == "" {
		return opts
	}
	q := strings.ToLower(query)
	var out []types.Option
	for _, o := range opts {
		if strings.Contains(strings.ToLower(o.Label), q) {
			out = append(out, o)
		}
	}
	return out
}
