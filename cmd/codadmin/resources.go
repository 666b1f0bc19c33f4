// Catalog commands: resources and schema.
package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/codadmin/internal/catalog"
	"github.com/mesh-intelligence/codadmin/internal/engine"
	"github.com/mesh-intelligence/codadmin/pkg/types"
)

// resourceView is one row of the resources listing.
type resourceView struct {
	Key     string      `json:"key"`
	Title   string      `json:"title"`
	Section types.Actor `json:"section"`
	Route   string      `json:"route"`
	Access  string      `json:"access,omitempty"`
}

// accessString renders access as a crud mask, e.g. "r---" or "rcud".
func accessString(acc engine.Access) string {
	mask := []byte("----")
	for i, ok := range []bool{acc.Read, acc.Create, acc.Update, acc.Delete} {
		if ok {
			mask[i] = "rcud"[i]
		}
	}
	return string(mask)
}

func newResourcesCmd(a *app) *cobra.Command {
	var section string
	cmd := &cobra.Command{
		Use:   "resources",
		Short: "List the resources of the console",
		Long: `Resources lists every resource by console section. When signed in, the
ACCESS column shows what the current identity may do (read, create,
update, delete).`,
		Args: checkArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			identity, signedIn, err := a.optionalIdentity(cmd)
			if err != nil {
				return err
			}
			sections := []types.Actor{types.ActorPlatform, types.ActorMerchant}
			if section != "" {
				sections = []types.Actor{types.Actor(section)}
			}
			var out []resourceView
			for _, sec := range sections {
				for _, s := range a.registry.Section(sec) {
					rv := resourceView{Key: s.Key, Title: s.Title, Section: s.Section, Route: catalog.RoutePath(s)}
					if signedIn {
						rv.Access = accessString(engine.AccessFor(s, identity))
					}
					out = append(out, rv)
				}
			}
			if a.flags.jsonMode {
				return printJSON(cmd.OutOrStdout(), out)
			}
			header := []string{"key", "title", "section"}
			if signedIn {
				header = append(header, "access")
			}
			rows := make([][]string, 0, len(out))
			for _, rv := range out {
				row := []string{rv.Key, rv.Title, string(rv.Section)}
				if signedIn {
					row = append(row, rv.Access)
				}
				rows = append(rows, row)
			}
			return printTable(cmd.OutOrStdout(), header, rows)
		},
	}
	cmd.Flags().StringVar(&section, "section", "", "only list one section: platform or merchant")
	return cmd
}

// optionalIdentity returns the current identity, reporting false when no one
// is signed in.
func (a *app) optionalIdentity(cmd *cobra.Command) (types.Identity, bool, error) {
	sess, err := a.currentSession(cmd.Context())
	if errors.Is(err, types.ErrNotLoggedIn) {
		return types.Identity{}, false, nil
	}
	if err != nil {
		return types.Identity{}, false, err
	}
	return sess.Identity, true, nil
}

// fieldView is the printed form of one schema field.
type fieldView struct {
	Key      string   `json:"key"`
	Label    string   `json:"label"`
	Kind     string   `json:"kind"`
	Required bool     `json:"required"`
	ReadOnly bool     `json:"read_only"`
	Ref      string   `json:"ref,omitempty"`
	Options  []string `json:"options,omitempty"`
}

// schemaView is the printed form of a resource schema.
type schemaView struct {
	Key         string             `json:"key"`
	Title       string             `json:"title"`
	Section     types.Actor        `json:"section"`
	Permissions *types.Permissions `json:"permissions,omitempty"`
	Fields      []fieldView        `json:"fields"`
	Relations   []string           `json:"relations,omitempty"`
	Images      string             `json:"images,omitempty"`
	Uploads     []string           `json:"uploads,omitempty"`
}

func newSchemaView(s types.ResourceSchema) schemaView {
	sv := schemaView{Key: s.Key, Title: s.Title, Section: s.Section, Permissions: s.Permissions}
	for _, f := range s.Fields {
		sv.Fields = append(sv.Fields, fieldView{
			Key:      f.Key,
			Label:    f.Label,
			Kind:     f.Kind.String(),
			Required: f.Required,
			ReadOnly: f.ReadOnly,
			Ref:      f.Ref,
			Options:  f.Options,
		})
	}
	for _, r := range s.Relations {
		sv.Relations = append(sv.Relations, fmt.Sprintf("%s -> %s via %s", r.Name, r.ChildResource, r.LinkResource))
	}
	if s.Images != nil {
		sv.Images = s.Images.Resource
	}
	for _, u := range s.Uploads {
		sv.Uploads = append(sv.Uploads, u.Kind)
	}
	return sv
}

func newSchemaCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "schema <resource>",
		Short: "Describe the fields and relations of a resource",
		Args:  checkArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.registry.Lookup(args[0])
			if err != nil {
				return err
			}
			sv := newSchemaView(s)
			w := cmd.OutOrStdout()
			if a.flags.jsonMode {
				return printJSON(w, sv)
			}
			fmt.Fprintf(w, "%s (%s)\n\n", sv.Title, catalog.RoutePath(s))
			rows := make([][]string, 0, len(sv.Fields))
			for _, f := range sv.Fields {
				detail := f.Ref
				if len(f.Options) > 0 {
					detail = strings.Join(f.Options, "|")
				}
				rows = append(rows, []string{f.Key, f.Label, f.Kind, yesNo(f.Required), yesNo(f.ReadOnly), orDash(detail)})
			}
			if err := printTable(w, []string{"key", "label", "kind", "required", "read-only", "ref/options"}, rows); err != nil {
				return err
			}
			for _, r := range sv.Relations {
				fmt.Fprintf(w, "Relation: %s\n", r)
			}
			if sv.Images != "" {
				fmt.Fprintf(w, "Images:   %s\n", sv.Images)
			}
			for _, u := range sv.Uploads {
				fmt.Fprintf(w, "Upload:   %s\n", u)
			}
			return nil
		},
	}
}
