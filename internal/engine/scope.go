// This file implements the merchant -> branch -> category scope filter used
// for tenant-restricted (client) users.
package engine

import (
	"fmt"
	"net/url"

	"github.com/mesh-intelligence/codadmin/pkg/types"
)

// Client gate messages shown instead of rows until the scope is deep enough.
const (
	GateMerchant = "Select a merchant first."
	GateBranch   = "Select a branch first."
	GateCategory = "Select a category first."
)

// ScopeFilter narrows the rows of one loaded resource to the active scope and
// computes the options of the three scope pickers.
type ScopeFilter struct {
	schema         types.ResourceSchema
	data           *Dataset
	merchants      []types.Option
	branches       []types.Option
	branchMerchant map[string]string
}

// NewScopeFilter prepares the scope filter of schema over a loaded dataset.
// The dataset must include branches and merchants.
func NewScopeFilter(schema types.ResourceSchema, d *Dataset) *ScopeFilter {
	merchantRows := d.Collection(types.ResourceMerchants)
	branchRows := d.Collection(types.ResourceBranches)

	f := &ScopeFilter{
		schema:         schema,
		data:           d,
		branchMerchant: make(map[string]string, len(branchRows)),
	}
	merchantLabels := make(map[string]string, len(merchantRows))
	for _, m := range merchantRows {
		id, ok := m.ID()
		if !ok {
			continue
		}
		value := types.FormatID(id)
		label := rowLabel(m, types.ColumnName, "legal_name")
		merchantLabels[value] = label
		f.merchants = append(f.merchants, types.Option{Value: value, Label: label})
	}
	for _, b := range branchRows {
		id, ok := b.ID()
		if !ok {
			continue
		}
		value := types.FormatID(id)
		merchantID := b.String(types.ColumnMerchantID)
		f.branchMerchant[value] = merchantID

		name := b.String(types.ColumnName)
		if name == "" {
			name = "Branch #" + value
		}
		owner, ok := merchantLabels[merchantID]
		if !ok {
			owner = "#" + merchantID
		}
		f.branches = append(f.branches, types.Option{
			Value:    value,
			Label:    name + " • " + owner,
			Metadata: map[string]string{types.MetaMerchantID: merchantID},
		})
	}
	return f
}

// MerchantOptions returns every merchant option.
func (f *ScopeFilter) MerchantOptions() []types.Option {
	return f.merchants
}

// BranchOptions returns the branch options narrowed to the selected merchant.
func (f *ScopeFilter) BranchOptions(s types.ScopeState) []types.Option {
	if s.MerchantID == "" {
		return f.branches
	}
	var out []types.Option
	for _, o := range f.branches {
		if o.Meta(types.MetaMerchantID) == s.MerchantID {
			out = append(out, o)
		}
	}
	return out
}

// CategoryOptions returns the categories linked to in-scope owner rows, or all
// categories when no owner row is in scope. It is nil for resources without a
// category link.
func (f *ScopeFilter) CategoryOptions(s types.ScopeState) []types.Option {
	link := f.schema.Scope.Link
	if link == nil || f.schema.Scope.Kind != types.ScopeByOwningBranch {
		return nil
	}
	all := RelationOptions(*link, f.data)
	owners := f.scopedOwnerIDs(f.data.Rows, s)
	if len(owners) == 0 {
		return all
	}
	allowed := f.linkedChildren(*link, owners)
	var out []types.Option
	for _, o := range all {
		if allowed[o.Value] {
			out = append(out, o)
		}
	}
	return out
}

// SelectMerchant sets the merchant level. The branch is kept only when it
// belongs to the new merchant; the category is kept only when it is still
// offered under the resulting scope.
func (f *ScopeFilter) SelectMerchant(s types.ScopeState, merchantID string) (types.ScopeState, error) {
	if merchantID != "" {
		if _, ok := types.FindOption(f.merchants, merchantID); !ok {
			return s, fmt.Errorf("%w: merchant %q", types.ErrInvalidScope, merchantID)
		}
	}
	next := s
	next.MerchantID = merchantID
	if next.BranchID != "" {
		if _, ok := types.FindOption(f.BranchOptions(next), next.BranchID); !ok {
			next.BranchID = ""
		}
	}
	return f.pruneCategory(next), nil
}

// SelectBranch sets the branch level. Clearing the branch clears the category.
func (f *ScopeFilter) SelectBranch(s types.ScopeState, branchID string) (types.ScopeState, error) {
	if branchID != "" {
		if _, ok := types.FindOption(f.BranchOptions(s), branchID); !ok {
			return s, fmt.Errorf("%w: branch %q", types.ErrInvalidScope, branchID)
		}
	}
	next := s
	next.BranchID = branchID
	return f.pruneCategory(next), nil
}

// SelectCategory sets the category level.
func (f *ScopeFilter) SelectCategory(s types.ScopeState, categoryID string) (types.ScopeState, error) {
	if categoryID != "" {
		if _, ok := types.FindOption(f.CategoryOptions(s), categoryID); !ok {
			return s, fmt.Errorf("%w: category %q", types.ErrInvalidScope, categoryID)
		}
	}
	next := s
	next.CategoryID = categoryID
	return next, nil
}

func (f *ScopeFilter) pruneCategory(s types.ScopeState) types.ScopeState {
	if s.CategoryID == "" {
		return s
	}
	if s.BranchID == "" {
		s.CategoryID = ""
		return s
	}
	if _, ok := types.FindOption(f.CategoryOptions(s), s.CategoryID); !ok {
		s.CategoryID = ""
	}
	return s
}

// Filter returns the rows visible under s, in their original order.
func (f *ScopeFilter) Filter(rows []types.Row, s types.ScopeState) []types.Row {
	switch f.schema.Scope.Kind {
	case types.ScopeByColumns:
		return f.filterByColumns(rows, s)
	case types.ScopeByOwningBranch:
		out := f.filterByBranch(rows, s)
		if s.CategoryID == "" || f.schema.Scope.Link == nil {
			return out
		}
		links := f.data.Links(*f.schema.Scope.Link)
		var kept []types.Row
		for _, row := range out {
			id, _ := row.ID()
			for _, l := range links.Get(id) {
				if types.FormatID(l.ChildID) == s.CategoryID {
					kept = append(kept, row)
					break
				}
			}
		}
		return kept
	case types.ScopeByLinkedOwners:
		if f.schema.Scope.Link == nil {
			return rows
		}
		owners := f.scopedOwnerIDs(f.data.Collection(f.schema.Scope.Owner), s)
		allowed := f.linkedChildren(*f.schema.Scope.Link, owners)
		var out []types.Row
		for _, row := range rows {
			if allowed[row.String(types.ColumnID)] {
				out = append(out, row)
			}
		}
		return out
	default:
		panic(fmt.Sprintf("engine: unknown scope kind %d", int(f.schema.Scope.Kind)))
	}
}

// filterByColumns matches branch_id and merchant_id directly when the row has
// them, resolving the merchant through the owning branch otherwise. A selected
// branch drops rows without branch_id; the merchant alone does not constrain
// rows with neither column.
func (f *ScopeFilter) filterByColumns(rows []types.Row, s types.ScopeState) []types.Row {
	var out []types.Row
	for _, row := range rows {
		if s.BranchID != "" && (!row.Has(types.ColumnBranchID) || row.String(types.ColumnBranchID) != s.BranchID) {
			continue
		}
		if s.MerchantID != "" {
			switch {
			case row.Has(types.ColumnMerchantID):
				if row.String(types.ColumnMerchantID) != s.MerchantID {
					continue
				}
			case row.Has(types.ColumnBranchID):
				if f.branchMerchant[row.String(types.ColumnBranchID)] != s.MerchantID {
					continue
				}
			}
		}
		out = append(out, row)
	}
	return out
}

// filterByBranch requires the row's branch to match and its merchant to be
// resolvable through the branch.
func (f *ScopeFilter) filterByBranch(rows []types.Row, s types.ScopeState) []types.Row {
	var out []types.Row
	for _, row := range rows {
		branch := row.String(types.ColumnBranchID)
		if s.BranchID != "" && branch != s.BranchID {
			continue
		}
		if s.MerchantID != "" {
			m, ok := f.branchMerchant[branch]
			if !ok || m == "" || m != s.MerchantID {
				continue
			}
		}
		out = append(out, row)
	}
	return out
}

func (f *ScopeFilter) scopedOwnerIDs(owners []types.Row, s types.ScopeState) map[int64]bool {
	ids := make(map[int64]bool)
	for _, row := range f.filterByBranch(owners, s) {
		if id, ok := row.ID(); ok {
			ids[id] = true
		}
	}
	return ids
}

func (f *ScopeFilter) linkedChildren(link types.RelationSpec, owners map[int64]bool) map[string]bool {
	links := f.data.Links(link)
	allowed := make(map[string]bool)
	for _, parent := range links.Keys() {
		if !owners[parent] {
			continue
		}
		for _, l := range links.Get(parent) {
			allowed[types.FormatID(l.ChildID)] = true
		}
	}
	return allowed
}

// Gate returns the message shown to a client user instead of rows while the
// scope is too shallow for schema, or "" when rows can be shown.
func Gate(schema types.ResourceSchema, s types.ScopeState) string {
	if schema.Key == types.ResourceMerchants {
		return ""
	}
	if s.MerchantID == "" {
		return GateMerchant
	}
	if schema.Key == types.ResourceBranches {
		return ""
	}
	if s.BranchID == "" {
		return GateBranch
	}
	if schema.Scope.Kind == types.ScopeByOwningBranch && schema.Scope.Link != nil && s.CategoryID == "" {
		return GateCategory
	}
	return ""
}

// DrillDown returns the location a client user moves to from row: merchants
// open their branches, branches their categories, and categories their
// products. It reports false for resources without a drill-down.
func DrillDown(schema types.ResourceSchema, row types.Row, s types.ScopeState) (string, url.Values, bool) {
	id := row.String(types.ColumnID)
	switch schema.Key {
	case types.ResourceMerchants:
		next := types.ScopeState{MerchantID: id}
		return "/merchant/" + types.ResourceBranches, next.Encode(nil), true
	case types.ResourceBranches:
		next := types.ScopeState{MerchantID: row.String(types.ColumnMerchantID), BranchID: id}
		return "/merchant/" + types.ResourceCategories, next.Encode(nil), true
	case types.ResourceCategories:
		next := types.ScopeState{MerchantID: s.MerchantID, BranchID: s.BranchID, CategoryID: id}
		return "/merchant/" + types.ResourceProducts, next.Encode(nil), true
	}
	return "", nil, false
}
