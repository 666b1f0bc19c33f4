// File commands: upload and export.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/codadmin/internal/export"
	"github.com/mesh-intelligence/codadmin/pkg/types"
)

func newUploadCmd(a *app) *cobra.Command {
	var (
		save bool
		loc  string
	)
	cmd := &cobra.Command{
		Use:   "upload <resource> <id> <photo|flag> <file>",
		Short: "Upload a photo or flag for an existing row",
		Long: `Upload posts an asset for an existing row and prints the URL the server
returns. With --save the URL is written into the row's URL field and the row
is saved.

Example:
  codadmin upload users 40 photo avatar.png --save
  codadmin upload merchants 1 flag flag.svg`,
		Args: checkArgs(cobra.ExactArgs(4)),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[1])
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			v, _, err := a.openView(ctx, args[0], loc)
			if err != nil {
				return err
			}
			defer v.Unmount()
			if err := v.OpenEdit(id); err != nil {
				return err
			}
			file, err := os.Open(args[3])
			if err != nil {
				return fmt.Errorf("open %s: %w", args[3], err)
			}
			defer file.Close()
			url, err := v.UploadAsset(ctx, args[2], types.FileUpload{Name: filepath.Base(args[3]), Reader: file})
			if err != nil {
				return err
			}
			if _, err := fmt.Fprintln(cmd.OutOrStdout(), url); err != nil {
				return err
			}
			if !save {
				return nil
			}
			return submit(ctx, cmd, v, "updated")
		},
	}
	cmd.Flags().BoolVar(&save, "save", false, "save the returned URL into the row")
	cmd.Flags().StringVar(&loc, "location", "", "location carrying the scope query")
	return cmd
}

func newExportCmd(a *app) *cobra.Command {
	var out, search, loc string
	cmd := &cobra.Command{
		Use:   "export <resource>",
		Short: "Export the filtered rows of a resource to an xlsx workbook",
		Long: `Export writes every row of the list view, across all pages and narrowed by
--search and the scope, to an xlsx workbook.

Example:
  codadmin export products --out products.xlsx --search shoe`,
		Args: checkArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, _, err := a.openView(cmd.Context(), args[0], loc)
			if err != nil {
				return err
			}
			defer v.Unmount()
			v.SetSearch(search)
			if out == "" {
				out = args[0] + ".xlsx"
			}
			t := export.FromView(v)
			f, err := os.Create(out)
			if err != nil {
				return fmt.Errorf("create %s: %w", out, err)
			}
			if err := export.WriteXLSX(f, t); err != nil {
				f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return fmt.Errorf("close %s: %w", out, err)
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Exported %d rows to %s\n", len(t.Rows), out)
			return err
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (default: <resource>.xlsx)")
	cmd.Flags().StringVar(&search, "search", "", "case-insensitive search text")
	cmd.Flags().StringVar(&loc, "location", "", "location carrying the scope query")
	return cmd
}
