package engine

import (
	"strconv"
	"strings"

	"github.com/mesh-intelligence/codadmin/pkg/types"
)

// CellValue returns the string form of one displayed column of row. Relation
// count columns are computed from the dataset's link index.
func CellValue(schema types.ResourceSchema, d *Dataset, row types.Row, column string) string {
	for _, r := range schema.Relations {
		if r.CountColumn != "" && r.CountColumn == column {
			id, _ := row.ID()
			return strconv.Itoa(d.Links(r).Len(id))
		}
	}
	return row.String(column)
}

// Search keeps the rows where at least one displayed column contains query,
// ignoring case. An empty query keeps every row.
func Search(schema types.ResourceSchema, d *Dataset, rows []types.Row, query string) []types.Row {
	if query == "" {
		return rows
	}
	q := strings.ToLower(query)
	cols := schema.Columns()
	var out []types.Row
	for _, row := range rows {
		for _, c := range cols {
			if strings.Contains(strings.ToLower(CellValue(schema, d, row, c)), q) {
				out = append(out, row)
				break
			}
		}
	}
	return out
}

// TotalPages returns max(1, ceil(n/size)).
func TotalPages(n, size int) int {
	if size <= 0 || n <= 0 {
		return 1
	}
	return (n + size - 1) / size
}

// ClampPage limits page to [1, totalPages].
func ClampPage(page, totalPages int) int {
	if page < 1 {
		return 1
	}
	if page > totalPages {
		return totalPages
	}
	return page
}

// Page is one page of a filtered row set.
type Page struct {
	Rows       []types.Row
	Page       int
	PageSize   int
	TotalPages int
	Total      int
}

// Paginate returns the requested page of rows, clamping the page number.
func Paginate(rows []types.Row, page, size int) Page {
	if size <= 0 {
		size = types.DefaultPageSize
	}
	total := TotalPages(len(rows), size)
	page = ClampPage(page, total)
	start := (page - 1) * size
	end := min(start+size, len(rows))
	return Page{
		Rows:       rows[start:end],
		Page:       page,
		PageSize:   size,
		TotalPages: total,
		Total:      len(rows),
	}
}

// StatusCount is the number of rows with one status value.
type StatusCount struct {
	Status string
	Count  int
}

// Stats summarizes a loaded resource.
type Stats struct {
	Total    int
	MaxID    int64
	Statuses []StatusCount
}

// maxStatuses is how many status counts Stats reports.
const maxStatuses = 3

// ComputeStats counts rows, finds the highest id and, when the schema has a
// status field, the first three status values by first appearance. Rows
// without a status count as "unknown".
func ComputeStats(schema types.ResourceSchema, rows []types.Row) Stats {
	st := Stats{Total: len(rows)}
	_, hasStatus := schema.Field(types.ColumnStatus)
	pos := make(map[string]int)
	var counts []StatusCount
	for _, row := range rows {
		if id, ok := row.ID(); ok && id > st.MaxID {
			st.MaxID = id
		}
		if !hasStatus {
			continue
		}
		status := row.String(types.ColumnStatus)
		if status == "" {
			status = "unknown"
		}
		i, seen := pos[status]
		if !seen {
			i = len(counts)
			pos[status] = i
			counts = append(counts, StatusCount{Status: status})
		}
		counts[i].Count++
	}
	if len(counts) > maxStatuses {
		counts = counts[:maxStatuses]
	}
	st.Statuses = counts
	return st
}

// FormatValue renders a cell for display: "-" for null, Yes/No for booleans,
// the string form otherwise.
func FormatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return "-"
	case bool:
		if x {
			return "Yes"
		}
		return "No"
	default:
		return types.Stringify(v)
	}
}
