// Write commands: create, update and delete.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/codadmin/internal/engine"
	"github.com/mesh-intelligence/codadmin/pkg/types"
)

// editFlags are the draft inputs shared by create and update.
type editFlags struct {
	links        []string
	files        []string
	removeImages []int64
	loc          string
}

func (f *editFlags) register(cmd *cobra.Command, update bool) {
	cmd.Flags().StringArrayVar(&f.links, "link", nil, "relation selection as name=id,id (name may be omitted when the resource has one relation)")
	cmd.Flags().StringArrayVar(&f.files, "file", nil, "image file to upload with the record (repeatable)")
	cmd.Flags().StringVar(&f.loc, "location", "", "location carrying the scope query")
	if update {
		cmd.Flags().Int64SliceVar(&f.removeImages, "remove-image", nil, "id of an existing image to remove (repeatable)")
	}
}

// parseAssignment splits a key=value argument.
func parseAssignment(arg string) (string, string, error) {
	key, value, ok := strings.Cut(arg, "=")
	if !ok || strings.TrimSpace(key) == "" {
		return "", "", usageError{err: fmt.Errorf("invalid assignment %q (expected key=value)", arg)}
	}
	return strings.TrimSpace(key), value, nil
}

// parseLink reads a --link value into a relation name and child ids.
func parseLink(schema types.ResourceSchema, arg string) (string, []string, error) {
	name, list, ok := strings.Cut(arg, "=")
	if !ok {
		if len(schema.Relations) != 1 {
			return "", nil, usageError{err: fmt.Errorf("--link %q: name the relation (name=ids)", arg)}
		}
		name, list = schema.Relations[0].Name, arg
	}
	ids := []string{}
	for _, part := range strings.Split(list, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if _, err := strconv.ParseInt(part, 10, 64); err != nil {
			return "", nil, fmt.Errorf("%w: --link %s id %q", types.ErrInvalidID, name, part)
		}
		ids = append(ids, part)
	}
	return name, ids, nil
}

// fill applies assignments and flags to the open draft of v. The returned
// function closes the files it opened.
func (f *editFlags) fill(v *engine.View, assignments []string) (func(), error) {
	var opened []*os.File
	closeAll := func() {
		for _, file := range opened {
			file.Close()
		}
	}
	for _, arg := range assignments {
		key, value, err := parseAssignment(arg)
		if err != nil {
			return closeAll, err
		}
		if err := v.Change(key, value); err != nil {
			return closeAll, err
		}
	}
	for _, arg := range f.links {
		name, ids, err := parseLink(v.Schema(), arg)
		if err != nil {
			return closeAll, err
		}
		if err := v.SetRelation(name, ids); err != nil {
			return closeAll, err
		}
	}
	for _, id := range f.removeImages {
		if err := v.ToggleImageRemoval(id); err != nil {
			return closeAll, err
		}
	}
	for _, path := range f.files {
		file, err := os.Open(path)
		if err != nil {
			return closeAll, fmt.Errorf("open %s: %w", path, err)
		}
		opened = append(opened, file)
		if err := v.AttachFile(types.FileUpload{Name: filepath.Base(path), Reader: file}); err != nil {
			return closeAll, err
		}
	}
	return closeAll, nil
}

// submit saves the draft and reports the outcome. A partial save is reported
// with its message and still returned as an error.
func submit(ctx context.Context, cmd *cobra.Command, v *engine.View, verb string) error {
	err := v.Submit(ctx)
	var se *engine.SaveError
	if errors.As(err, &se) && se.Kind == engine.KindPartial {
		fmt.Fprintln(cmd.ErrOrStderr(), se.Message)
		return err
	}
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s %s.\n", v.Schema().Noun, verb)
	return err
}

func newCreateCmd(a *app) *cobra.Command {
	var f editFlags
	cmd := &cobra.Command{
		Use:   "create <resource> [key=value...]",
		Short: "Create a row",
		Long: `Create opens an empty draft, applies the key=value assignments, and saves
it. Relation selections are replaced wholesale after the row is created, and
--file images are uploaded to it.

Example:
  codadmin create branch-roles branch_id=3 name=Manager --link 1,2
  codadmin create products branch_id=3 name=Shoe slug=shoe --link categories=20 --file shoe.png`,
		Args: checkArgs(cobra.MinimumNArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			v, _, err := a.openView(ctx, args[0], f.loc)
			if err != nil {
				return err
			}
			defer v.Unmount()
			if err := v.OpenCreate(); err != nil {
				return err
			}
			closeFiles, err := f.fill(v, args[1:])
			defer closeFiles()
			if err != nil {
				return err
			}
			return submit(ctx, cmd, v, "created")
		},
	}
	f.register(cmd, false)
	return cmd
}

func newUpdateCmd(a *app) *cobra.Command {
	var f editFlags
	cmd := &cobra.Command{
		Use:   "update <resource> <id> [key=value...]",
		Short: "Update a row",
		Long: `Update opens a draft of the row, applies the key=value assignments, and
saves it. A --link replaces the relation's selection; relations that are
not named keep their current children.

Example:
  codadmin update products 10 name="Running Shoe" --remove-image 200
  codadmin update platform-roles 5 --link permissions=1,4,7`,
		Args: checkArgs(cobra.MinimumNArgs(2)),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[1])
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			v, _, err := a.openView(ctx, args[0], f.loc)
			if err != nil {
				return err
			}
			defer v.Unmount()
			if err := v.OpenEdit(id); err != nil {
				return err
			}
			closeFiles, err := f.fill(v, args[2:])
			defer closeFiles()
			if err != nil {
				return err
			}
			return submit(ctx, cmd, v, "updated")
		},
	}
	f.register(cmd, true)
	return cmd
}

func newDeleteCmd(a *app) *cobra.Command {
	var (
		yes bool
		loc string
	)
	cmd := &cobra.Command{
		Use:   "delete <resource> <id>",
		Short: "Delete a row",
		Long:  `Delete removes one row. It requires --yes as confirmation.`,
		Args:  checkArgs(cobra.ExactArgs(2)),
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
			if err := v.RequestDelete(id); err != nil {
				return err
			}
			if !yes {
				v.CancelDelete()
				return fmt.Errorf("%w: rerun with --yes to delete %s %d", types.ErrNotConfirmed, args[0], id)
			}
			if err := v.ConfirmDelete(ctx); err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s/%d\n", args[0], id)
			return err
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "confirm the delete")
	cmd.Flags().StringVar(&loc, "location", "", "location carrying the scope query")
	return cmd
}
