// Output helpers shared by the codadmin commands.
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"
	"text/tabwriter"

	"github.com/mesh-intelligence/codadmin/internal/engine"
)

// printJSON writes v as indented JSON.
func printJSON(w io.Writer, v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal output: %w", err)
	}
	_, err = fmt.Fprintln(w, string(out))
	return err
}

// printTable writes an aligned table with an upper-cased header row.
func printTable(w io.Writer, header []string, rows [][]string) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	upper := make([]string, len(header))
	for i, h := range header {
		upper[i] = strings.ToUpper(h)
	}
	fmt.Fprintln(tw, strings.Join(upper, "\t"))
	for _, row := range rows {
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	return tw.Flush()
}

// printFieldErrors lists the per-field messages of a failed save, sorted by
// field key.
func printFieldErrors(w io.Writer, err error) {
	var se *engine.SaveError
	if !errors.As(err, &se) || len(se.FieldErrors) == 0 {
		return
	}
	keys := make([]string, 0, len(se.FieldErrors))
	for k := range se.FieldErrors {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		fmt.Fprintf(w, "  %s: %s\n", k, se.FieldErrors[k])
	}
}

// yesNo renders a flag as Yes or No.
func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}
