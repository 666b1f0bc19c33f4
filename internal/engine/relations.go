package engine

import "github.com/mesh-intelligence/codadmin/pkg/types"

// RelationOptions returns the selectable children of a relation, in fetch
// order. Labels use the relation's ChildLabel column, else name, slug or
// key_name, else #id.
func RelationOptions(spec types.RelationSpec, d *Dataset) []types.Option {
	rows := d.Collection(spec.ChildResource)
	opts := make([]types.Option, 0, len(rows))
	for _, row := range rows {
		id, ok := row.ID()
		if !ok {
			continue
		}
		opts = append(opts, types.Option{
			Value: types.FormatID(id),
			Label: childLabel(spec, row),
		})
	}
	return opts
}

// LinkedLabels returns the labels of the children linked to parentID, in link
// order. Children missing from the child collection are shown as #id.
func LinkedLabels(spec types.RelationSpec, d *Dataset, parentID int64) []string {
	labels := make(map[int64]string)
	for _, row := range d.Collection(spec.ChildResource) {
		if id, ok := row.ID(); ok {
			labels[id] = childLabel(spec, row)
		}
	}
	links := d.Links(spec).Get(parentID)
	out := make([]string, 0, len(links))
	for _, l := range links {
		if label, ok := labels[l.ChildID]; ok {
			out = append(out, label)
			continue
		}
		out = append(out, "#"+types.FormatID(l.ChildID))
	}
	return out
}

// SelectedChildren returns the child ids currently linked to parentID as
// option values, in link order.
func SelectedChildren(spec types.RelationSpec, d *Dataset, parentID int64) []string {
	links := d.Links(spec).Get(parentID)
	out := make([]string, 0, len(links))
	for _, id := range ChildIDs(links) {
		out = append(out, types.FormatID(id))
	}
	return out
}

func childLabel(spec types.RelationSpec, row types.Row) string {
	return rowLabel(row, spec.ChildLabel, types.ColumnName, "slug", "key_name")
}
