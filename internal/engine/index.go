package engine

import "github.com/mesh-intelligence/codadmin/pkg/types"

// Index groups values by an integer parent key. Keys keep first-seen order and
// values keep the order in which they were added, which is the order of the
// underlying fetch.
type Index[T any] struct {
	keys   []int64
	groups map[int64][]T
}

// NewIndex returns an empty index.
func NewIndex[T any]() *Index[T] {
	return &Index[T]{groups: make(map[int64][]T)}
}

// Add appends v to the group of key.
func (ix *Index[T]) Add(key int64, v T) {
	if _, ok := ix.groups[key]; !ok {
		ix.keys = append(ix.keys, key)
	}
	ix.groups[key] = append(ix.groups[key], v)
}

// Get returns the group of key (nil when absent).
func (ix *Index[T]) Get(key int64) []T {
	if ix == nil {
		return nil
	}
	return ix.groups[key]
}

// Len returns the size of the group of key.
func (ix *Index[T]) Len(key int64) int {
	return len(ix.Get(key))
}

// Keys returns the parent keys in first-seen order.
func (ix *Index[T]) Keys() []int64 {
	if ix == nil {
		return nil
	}
	return append([]int64(nil), ix.keys...)
}

// LinkIndex groups join-table rows by parent id.
type LinkIndex = Index[types.RelationLink]

// BuildLinkIndex indexes join-table rows by their parent column. Rows without
// a parent id are skipped.
func BuildLinkIndex(spec types.RelationSpec, rows []types.Row) *LinkIndex {
	ix := NewIndex[types.RelationLink]()
	for _, row := range rows {
		link, ok := types.LinkFromRow(spec, row)
		if !ok {
			continue
		}
		ix.Add(link.ParentID, link)
	}
	return ix
}

// BuildRowIndex indexes rows by the integer value of parentKey. Rows without
// a parent id are skipped.
func BuildRowIndex(rows []types.Row, parentKey string) *Index[types.Row] {
	ix := NewIndex[types.Row]()
	for _, row := range rows {
		parent, ok := types.ToInt64(row[parentKey])
		if !ok || parent == 0 {
			continue
		}
		ix.Add(parent, row)
	}
	return ix
}

// ChildIDs returns the child ids of links in order.
func ChildIDs(links []types.RelationLink) []int64 {
	out := make([]int64, 0, len(links))
	for _, l := range links {
		out = append(out, l.ChildID)
	}
	return out
}
