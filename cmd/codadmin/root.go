// Root command for the codadmin CLI.
package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mesh-intelligence/codadmin/internal/catalog"
	"github.com/mesh-intelligence/codadmin/internal/engine"
	"github.com/mesh-intelligence/codadmin/internal/location"
	"github.com/mesh-intelligence/codadmin/internal/logging"
	"github.com/mesh-intelligence/codadmin/internal/paths"
	"github.com/mesh-intelligence/codadmin/internal/session"
	"github.com/mesh-intelligence/codadmin/internal/transport"
	"github.com/mesh-intelligence/codadmin/pkg/types"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "0.1.0"

// rootFlags holds global flag values accessible to all subcommands.
type rootFlags struct {
	configDir string
	dataDir   string
	jsonMode  bool
	baseURL   string
	actor     string
	logLevel  string
}

// app carries the state shared by one invocation's commands.
type app struct {
	flags    rootFlags
	settings settings
	logger   *zap.Logger
	registry *catalog.Registry
	store    *session.Store
	client   *transport.Client
	token    string
}

func newApp() *app {
	return &app{registry: catalog.Default(), logger: zap.NewNop()}
}

// newRootCmd creates the top-level "codadmin" command with global flags and
// all subcommands registered.
func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "codadmin",
		Short: "Admin console for the platform and merchant resource API",
		Long: `codadmin manages the platform and merchant resources of the API:
roles, permissions, merchants, branches, categories, products and users.

Each command loads one resource view, applies the action, and prints the
result. Sign in first with "codadmin login <actor>".`,
		Version:           version,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}
	root.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return usageError{err: err}
	})

	pf := root.PersistentFlags()
	pf.StringVar(&a.flags.configDir, "config-dir", "", "configuration directory (default: platform config dir)")
	pf.StringVar(&a.flags.dataDir, "data-dir", "", "data directory for the session store (default: platform data dir)")
	pf.BoolVar(&a.flags.jsonMode, "json", false, "output in JSON format")
	pf.StringVar(&a.flags.baseURL, "base-url", "", "API base URL (overrides base_url)")
	pf.StringVar(&a.flags.actor, "actor", "", "actor whose session to use: platform, merchant or buyer")
	pf.StringVar(&a.flags.logLevel, "log-level", "", "log level: debug, info, warn or error")

	root.AddCommand(
		newVersionCmd(),
		newLoginCmd(a),
		newLogoutCmd(a),
		newWhoamiCmd(a),
		newResourcesCmd(a),
		newSchemaCmd(a),
		newListCmd(a),
		newShowCmd(a),
		newCreateCmd(a),
		newUpdateCmd(a),
		newDeleteCmd(a),
		newScopeCmd(a),
		newDrillCmd(a),
		newOptionsCmd(a),
		newUploadCmd(a),
		newExportCmd(a),
	)
	return root
}

// setup resolves the configuration, builds the logger, and opens the session
// store and the API client.
func (a *app) setup(cmd *cobra.Command, args []string) error {
	if cmd.Name() == "version" {
		return nil
	}
	if err := loadDotEnv(); err != nil {
		return err
	}
	configDir, err := paths.ResolveConfigDir(a.flags.configDir)
	if err != nil {
		return fmt.Errorf("resolve config dir: %w", err)
	}
	v, err := loadConfig(configDir)
	if err != nil {
		return err
	}
	s := settingsFrom(v)
	if a.flags.baseURL != "" {
		s.BaseURL = strings.TrimRight(a.flags.baseURL, "/")
	}
	if a.flags.actor != "" {
		s.Actor = types.Actor(a.flags.actor)
	}
	if a.flags.logLevel != "" {
		s.LogLevel = a.flags.logLevel
	}
	s.DataDir, err = paths.ResolveDataDir(a.flags.dataDir, s.DataDir)
	if err != nil {
		return fmt.Errorf("resolve data dir: %w", err)
	}
	if err := s.Validate(); err != nil {
		return fmt.Errorf("config %s: %w", paths.ConfigFile(configDir), err)
	}
	a.settings = s

	logger, err := logging.New(s.LogLevel, s.LogFormat)
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	a.logger = logger

	store, err := session.Open(s.DataDir)
	if err != nil {
		return err
	}
	a.store = store
	a.client = transport.New(a.transportOptions())
	a.logger.Debug("configured",
		zap.String("config_dir", configDir),
		zap.String("data_dir", s.DataDir),
		zap.String("base_url", s.BaseURL))
	return nil
}

func (a *app) transportOptions() transport.Options {
	return transport.Options{
		BaseURL:    a.settings.BaseURL,
		Timeout:    a.settings.Timeout,
		RetryCount: a.settings.RetryCount,
		Token:      func() string { return a.token },
		Logger:     a.logger,
	}
}

// close releases the session store. It is safe to call more than once.
func (a *app) close() error {
	_ = a.logger.Sync()
	if a.store == nil {
		return nil
	}
	err := a.store.Close()
	a.store = nil
	return err
}

// currentSession returns the session of --actor, or the current one, and
// makes its token the one the client sends.
func (a *app) currentSession(ctx context.Context) (session.Session, error) {
	var (
		sess session.Session
		err  error
	)
	if a.flags.actor != "" {
		sess, err = a.store.Get(ctx, types.Actor(a.flags.actor))
	} else {
		sess, err = a.store.Current(ctx)
	}
	if err != nil {
		return session.Session{}, err
	}
	a.token = sess.AccessToken
	return sess, nil
}

// openView mounts the view of resource for the current session. rawLoc, when
// set, is the location the view reads its scope from; otherwise the stored
// location is reused when it points at the same resource.
func (a *app) openView(ctx context.Context, resource, rawLoc string) (*engine.View, *location.URL, error) {
	schema, err := a.registry.Lookup(resource)
	if err != nil {
		return nil, nil, err
	}
	sess, err := a.currentSession(ctx)
	if err != nil {
		return nil, nil, err
	}
	loc, err := a.location(ctx, schema, rawLoc)
	if err != nil {
		return nil, nil, err
	}
	v := engine.NewView(schema, sess.Identity, engine.Deps{
		Transport: a.client,
		Uploader:  a.client,
		Location:  loc,
		Logger:    a.logger,
		PageSize:  a.settings.PageSize,
	})
	if err := v.Mount(ctx); err != nil {
		v.Unmount()
		return nil, nil, err
	}
	return v, loc, nil
}

func (a *app) location(ctx context.Context, schema types.ResourceSchema, rawLoc string) (*location.URL, error) {
	if rawLoc != "" {
		return location.Parse(rawLoc)
	}
	stored, err := a.store.Location(ctx)
	if err != nil {
		return nil, err
	}
	if stored != "" {
		loc, err := location.Parse(stored)
		if err == nil && loc.Path() == catalog.RoutePath(schema) {
			return loc, nil
		}
	}
	return location.ForResource(schema), nil
}

// saveLocation remembers loc for the next invocation.
func (a *app) saveLocation(ctx context.Context, loc *location.URL) error {
	return a.store.SetLocation(ctx, loc.String())
}
