// Navigation commands: scope, drill and options.
package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/codadmin/internal/engine"
	"github.com/mesh-intelligence/codadmin/internal/location"
	"github.com/mesh-intelligence/codadmin/pkg/types"
)

// scopeView is the JSON form of the scope pickers.
type scopeView struct {
	Location   string         `json:"location"`
	Scope      scopeSelection `json:"scope"`
	Merchants  []optionView   `json:"merchants"`
	Branches   []optionView   `json:"branches"`
	Categories []optionView   `json:"categories"`
}

type scopeSelection struct {
	MerchantID string `json:"merchant_id,omitempty"`
	BranchID   string `json:"branch_id,omitempty"`
	CategoryID string `json:"category_id,omitempty"`
}

type optionView struct {
	Value    string            `json:"value"`
	Label    string            `json:"label"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

func newOptionViews(opts []types.Option) []optionView {
	out := make([]optionView, 0, len(opts))
	for _, o := range opts {
		out = append(out, optionView{Value: o.Value, Label: o.Label, Metadata: o.Metadata})
	}
	return out
}

// resourceArg returns the resource named by args, or the one the stored
// location points at.
func (a *app) resourceArg(cmd *cobra.Command, args []string) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}
	stored, err := a.store.Location(cmd.Context())
	if err != nil {
		return "", err
	}
	if stored == "" {
		return "", usageError{err: fmt.Errorf("no resource given and no stored location")}
	}
	loc, err := location.Parse(stored)
	if err != nil {
		return "", err
	}
	schema, err := a.registry.ResolvePath(loc.Path())
	if err != nil {
		return "", err
	}
	return schema.Key, nil
}

func newScopeCmd(a *app) *cobra.Command {
	var merchant, branch, category, loc string
	cmd := &cobra.Command{
		Use:   "scope [resource]",
		Short: "Show or change the merchant/branch/category scope",
		Long: `Scope shows the scope pickers of a client user's view and, with --merchant,
--branch or --category, changes the selection. Changing a level clears the
levels below it. The resulting location is stored and reused by later
commands on the same resource.

Example:
  codadmin scope products --merchant 1 --branch 3 --category 20
  codadmin scope --branch ""`,
		Args: checkArgs(cobra.MaximumNArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			resource, err := a.resourceArg(cmd, args)
			if err != nil {
				return err
			}
			v, u, err := a.openView(ctx, resource, loc)
			if err != nil {
				return err
			}
			defer v.Unmount()
			flags := cmd.Flags()
			changed := false
			steps := []struct {
				flag  string
				value string
				apply func(string) error
			}{
				{"merchant", merchant, v.SelectMerchant},
				{"branch", branch, v.SelectBranch},
				{"category", category, v.SelectCategory},
			}
			for _, step := range steps {
				if !flags.Changed(step.flag) {
					continue
				}
				if err := step.apply(step.value); err != nil {
					return err
				}
				changed = true
			}
			if changed {
				if err := a.saveLocation(ctx, u); err != nil {
					return err
				}
			}
			return printScope(cmd.OutOrStdout(), a.flags.jsonMode, v, u)
		},
	}
	cmd.Flags().StringVar(&merchant, "merchant", "", "merchant id (empty for all)")
	cmd.Flags().StringVar(&branch, "branch", "", "branch id (empty for all)")
	cmd.Flags().StringVar(&category, "category", "", "category id (empty for all)")
	cmd.Flags().StringVar(&loc, "location", "", "location carrying the scope query")
	return cmd
}

func printScope(w io.Writer, jsonMode bool, v *engine.View, u *location.URL) error {
	s := v.State().Scope
	opts := v.ScopeOptions()
	if jsonMode {
		return printJSON(w, scopeView{
			Location:   u.String(),
			Scope:      scopeSelection{MerchantID: s.MerchantID, BranchID: s.BranchID, CategoryID: s.CategoryID},
			Merchants:  newOptionViews(opts.Merchants),
			Branches:   newOptionViews(opts.Branches),
			Categories: newOptionViews(opts.Categories),
		})
	}
	fmt.Fprintf(w, "Location: %s\n", u.String())
	if !v.Scoped() {
		_, err := fmt.Fprintln(w, "Scope is not restricted for this identity.")
		return err
	}
	if gate := engine.Gate(v.Schema(), s); gate != "" {
		fmt.Fprintln(w, gate)
	}
	printPicker(w, "Merchants", opts.Merchants, s.MerchantID)
	printPicker(w, "Branches", opts.Branches, s.BranchID)
	printPicker(w, "Categories", opts.Categories, s.CategoryID)
	return nil
}

func printPicker(w io.Writer, title string, opts []types.Option, selected string) {
	fmt.Fprintf(w, "\n%s:\n", title)
	if len(opts) == 0 {
		fmt.Fprintln(w, "  (none)")
		return
	}
	for _, o := range opts {
		mark := " "
		if o.Value == selected {
			mark = "*"
		}
		fmt.Fprintf(w, "%s %s\t%s\n", mark, o.Value, o.Label)
	}
}

func newDrillCmd(a *app) *cobra.Command {
	var loc string
	cmd := &cobra.Command{
		Use:   "drill <resource> <id>",
		Short: "Move from a row to the level below it",
		Long: `Drill moves from a merchant to its branches, from a branch to its
categories, or from a category to its products, and stores the new location.

Example:
  codadmin drill merchants 1
  codadmin list branches`,
		Args: checkArgs(cobra.ExactArgs(2)),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[1])
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			v, u, err := a.openView(ctx, args[0], loc)
			if err != nil {
				return err
			}
			defer v.Unmount()
			if err := v.DrillDown(id); err != nil {
				return err
			}
			if err := a.saveLocation(ctx, u); err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), u.String())
			return err
		},
	}
	cmd.Flags().StringVar(&loc, "location", "", "location carrying the scope query")
	return cmd
}

func newOptionsCmd(a *app) *cobra.Command {
	var search, loc string
	cmd := &cobra.Command{
		Use:   "options <resource> <field>",
		Short: "List the choices of a reference, select or relation field",
		Long: `Options lists the values a field accepts: the rows of a reference field's
resource, the fixed values of a select field, or the children a relation
can link to.

Example:
  codadmin options products branch_id
  codadmin options branch-roles permissions --search product`,
		Args: checkArgs(cobra.ExactArgs(2)),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, _, err := a.openView(cmd.Context(), args[0], loc)
			if err != nil {
				return err
			}
			defer v.Unmount()
			opts, err := fieldOptions(v, args[1], search)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			if a.flags.jsonMode {
				return printJSON(w, newOptionViews(opts))
			}
			return printTable(w, []string{"value", "label"}, optionRows(opts))
		},
	}
	cmd.Flags().StringVar(&search, "search", "", "case-insensitive label search")
	cmd.Flags().StringVar(&loc, "location", "", "location carrying the scope query")
	return cmd
}

// optionRows renders options as table rows. The value column already carries
// the id, so labels drop their " (#id)" suffix.
func optionRows(opts []types.Option) [][]string {
	rows := make([][]string, 0, len(opts))
	for _, o := range opts {
		rows = append(rows, []string{o.Value, engine.CompactLabel(o.Label)})
	}
	return rows
}

// fieldOptions returns the options of one field or relation of v.
func fieldOptions(v *engine.View, key, search string) ([]types.Option, error) {
	schema := v.Schema()
	if _, ok := schema.Relation(key); ok {
		return v.RelationOptions(key, search)
	}
	f, ok := schema.Field(key)
	if !ok {
		return nil, fmt.Errorf("%w %q on %s", types.ErrUnknownField, key, schema.Key)
	}
	switch f.Kind {
	case types.KindReference:
		return engine.FilterOptions(v.State().Options[key], search), nil
	case types.KindSelect:
		opts := make([]types.Option, 0, len(f.Options))
		for _, o := range f.Options {
			opts = append(opts, types.Option{Value: o, Label: o})
		}
		return engine.FilterOptions(opts, search), nil
	default:
		return nil, fmt.Errorf("%w: %s is a %s field without options", types.ErrUnknownField, key, f.Kind)
	}
}
