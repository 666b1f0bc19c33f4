// Package export writes the filtered rows of a resource view to an xlsx
// workbook.
package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/mesh-intelligence/codadmin/internal/engine"
	"github.com/mesh-intelligence/codadmin/pkg/types"
)

// Table is a rendered sheet: a header row and string cells.
type Table struct {
	Sheet  string
	Header []string
	Rows   [][]string
}

// FromView renders every scope- and search-filtered row of v, across all
// pages, with the view's column set as header.
func FromView(v *engine.View) Table {
	schema := v.Schema()
	cols := schema.Columns()
	t := Table{Sheet: schema.Title, Header: headerLabels(schema, cols)}
	for _, row := range v.Filtered() {
		cells := make([]string, len(cols))
		for i, c := range cols {
			cells[i] = v.Cell(row, c)
		}
		t.Rows = append(t.Rows, cells)
	}
	return t
}

func headerLabels(schema types.ResourceSchema, cols []string) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		if f, ok := schema.Field(c); ok && f.Label != "" {
			out[i] = f.Label
			continue
		}
		out[i] = c
	}
	return out
}

// WriteXLSX writes t as a single-sheet workbook with a bold header row.
func WriteXLSX(w io.Writer, t Table) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := t.Sheet
	if sheet == "" {
		sheet = "Export"
	}
	index, err := f.NewSheet(sheet)
	if err != nil {
		return fmt.Errorf("creating sheet: %w", err)
	}
	if sheet != "Sheet1" {
		if err := f.DeleteSheet("Sheet1"); err != nil {
			return fmt.Errorf("removing default sheet: %w", err)
		}
	}
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6F3FF"}, Pattern: 1},
	})
	if err != nil {
		return fmt.Errorf("creating header style: %w", err)
	}

	if err := writeRow(f, sheet, 1, t.Header); err != nil {
		return err
	}
	if len(t.Header) > 0 {
		last, _ := excelize.CoordinatesToCellName(len(t.Header), 1)
		if err := f.SetCellStyle(sheet, "A1", last, headerStyle); err != nil {
			return fmt.Errorf("styling header: %w", err)
		}
	}
	for i, row := range t.Rows {
		if err := writeRow(f, sheet, i+2, row); err != nil {
			return err
		}
	}
	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("writing workbook: %w", err)
	}
	return nil
}

func writeRow(f *excelize.File, sheet string, rowNum int, cells []string) error {
	if len(cells) == 0 {
		return nil
	}
	start, err := excelize.CoordinatesToCellName(1, rowNum)
	if err != nil {
		return err
	}
	values := make([]any, len(cells))
	for i, c := range cells {
		values[i] = c
	}
	if err := f.SetSheetRow(sheet, start, &values); err != nil {
		return fmt.Errorf("writing row %d: %w", rowNum, err)
	}
	return nil
}
