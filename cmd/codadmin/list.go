// Read commands: list and show.
package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/codadmin/internal/engine"
	"github.com/mesh-intelligence/codadmin/pkg/types"
)

// listView is the JSON form of a listing.
type listView struct {
	Resource   string      `json:"resource"`
	Gate       string      `json:"gate,omitempty"`
	Page       int         `json:"page"`
	PageSize   int         `json:"page_size"`
	TotalPages int         `json:"total_pages"`
	Total      int         `json:"total"`
	Stats      statsView   `json:"stats"`
	Rows       []types.Row `json:"rows"`
}

type statsView struct {
	Total    int            `json:"total"`
	MaxID    int64          `json:"max_id"`
	Statuses map[string]int `json:"statuses,omitempty"`
}

func newStatsView(st engine.Stats) statsView {
	sv := statsView{Total: st.Total, MaxID: st.MaxID}
	if len(st.Statuses) > 0 {
		sv.Statuses = make(map[string]int, len(st.Statuses))
		for _, s := range st.Statuses {
			sv.Statuses[s.Status] = s.Count
		}
	}
	return sv
}

func newListCmd(a *app) *cobra.Command {
	var (
		search   string
		page     int
		pageSize int
		loc      string
	)
	cmd := &cobra.Command{
		Use:   "list <resource>",
		Short: "List the rows of a resource",
		Long: `List loads a resource and prints one page of its rows, narrowed by the
search text and, for client users, by the merchant/branch/category scope of
the location.

Example:
  codadmin list products --search shoe --page 2
  codadmin list products --location "/merchant/products?merchant_id=1&branch_id=3&category_id=20"`,
		Args: checkArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			v, _, err := a.openView(ctx, args[0], loc)
			if err != nil {
				return err
			}
			defer v.Unmount()
			if pageSize > 0 {
				if err := v.SetPageSize(pageSize); err != nil {
					return err
				}
			}
			v.SetSearch(search)
			v.SetPage(page)
			return printListing(cmd.OutOrStdout(), a.flags.jsonMode, v)
		},
	}
	cmd.Flags().StringVar(&search, "search", "", "case-insensitive search text")
	cmd.Flags().IntVar(&page, "page", 1, "page number")
	cmd.Flags().IntVar(&pageSize, "page-size", 0, "rows per page (default: page_size)")
	cmd.Flags().StringVar(&loc, "location", "", "location carrying the scope query")
	return cmd
}

func printListing(w io.Writer, jsonMode bool, v *engine.View) error {
	l := v.Visible()
	if l.Err != nil {
		return l.Err
	}
	if jsonMode {
		rows := l.Page.Rows
		if rows == nil {
			rows = []types.Row{}
		}
		return printJSON(w, listView{
			Resource:   v.Schema().Key,
			Gate:       l.Gate,
			Page:       l.Page.Page,
			PageSize:   l.Page.PageSize,
			TotalPages: l.Page.TotalPages,
			Total:      l.Page.Total,
			Stats:      newStatsView(l.Stats),
			Rows:       rows,
		})
	}
	if l.Gate != "" {
		_, err := fmt.Fprintln(w, l.Gate)
		return err
	}
	rows := make([][]string, 0, len(l.Page.Rows))
	for _, row := range l.Page.Rows {
		cells := make([]string, len(l.Columns))
		for i, col := range l.Columns {
			cells[i] = v.Cell(row, col)
		}
		rows = append(rows, cells)
	}
	if err := printTable(w, l.Columns, rows); err != nil {
		return err
	}
	fmt.Fprintf(w, "\nPage %d of %d (%d rows, %d total, max id %d)\n",
		l.Page.Page, l.Page.TotalPages, l.Page.Total, l.Stats.Total, l.Stats.MaxID)
	for _, s := range l.Stats.Statuses {
		fmt.Fprintf(w, "  %s: %d\n", s.Status, s.Count)
	}
	if l.Message != "" {
		fmt.Fprintln(w, l.Message)
	}
	return nil
}

// parseID reads a record id argument.
func parseID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: %q", types.ErrInvalidID, arg)
	}
	return id, nil
}

// recordView is the JSON form of one record.
type recordView struct {
	Resource  string              `json:"resource"`
	Row       types.Row           `json:"row"`
	Relations map[string][]string `json:"relations,omitempty"`
	Images    []types.Row         `json:"images,omitempty"`
}

func newShowCmd(a *app) *cobra.Command {
	var loc string
	cmd := &cobra.Command{
		Use:   "show <resource> <id>",
		Short: "Show one row with its linked children and images",
		Args:  checkArgs(cobra.ExactArgs(2)),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[1])
			if err != nil {
				return err
			}
			v, _, err := a.openView(cmd.Context(), args[0], loc)
			if err != nil {
				return err
			}
			defer v.Unmount()
			row, ok := v.Row(id)
			if !ok {
				return fmt.Errorf("%w: %s %d", types.ErrNotFound, args[0], id)
			}
			schema := v.Schema()
			data := v.State().Data
			rec := recordView{Resource: schema.Key, Row: row, Images: data.Images(id)}
			for _, rel := range schema.Relations {
				if rec.Relations == nil {
					rec.Relations = make(map[string][]string)
				}
				rec.Relations[rel.Name] = engine.LinkedLabels(rel, data, id)
			}
			w := cmd.OutOrStdout()
			if a.flags.jsonMode {
				return printJSON(w, rec)
			}
			rows := make([][]string, 0, len(schema.Columns()))
			for _, col := range schema.Columns() {
				label := col
				if f, ok := schema.Field(col); ok {
					label = f.Label
				}
				rows = append(rows, []string{label, v.Cell(row, col)})
			}
			if err := printTable(w, []string{"field", "value"}, rows); err != nil {
				return err
			}
			for _, rel := range schema.Relations {
				fmt.Fprintf(w, "%s: %s\n", rel.Name, orDash(strings.Join(rec.Relations[rel.Name], ", ")))
			}
			for _, img := range rec.Images {
				fmt.Fprintf(w, "image #%s: %s\n", img.String(types.ColumnID), img.String("url"))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&loc, "location", "", "location carrying the scope query")
	return cmd
}
