package cli

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/replica/internal/config"
	"github.com/roach88/replica/internal/scene"
	"github.com/roach88/replica/internal/schema"
	"github.com/roach88/replica/internal/snapshot"
)

// RootOptions holds global flags for all commands and the configuration
// they resolve to.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	ConfigPath string

	// Config and Logger are filled by prepare.
	Config config.Config
	Logger *slog.Logger

	// overrides collects command flags that shadow configuration keys.
	overrides map[string]any
	prepared  bool
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the replica CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "replica",
		Short: "replica - snapshot reconciliation for replicated scenes",
		Long: `Encode authoritative scene state into snapshots, reconcile client scenes
against them, and archive or replay recorded sessions.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.prepare(cmd)
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "path to YAML config file")

	cmd.AddCommand(NewEncodeCommand(opts))
	cmd.AddCommand(NewDecodeCommand(opts))
	cmd.AddCommand(NewReplayCommand(opts))
	cmd.AddCommand(NewInspectCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))
	cmd.AddCommand(NewValidateCommand(opts))

	return cmd
}

// flagKeys maps command flags to the configuration keys they override.
var flagKeys = map[string]string{
	"db":                      "store.path",
	"schema":                  "schema.dir",
	"framed":                  "engine.framed",
	"auto-register":           "engine.auto_register",
	"prune-missing-variables": "engine.prune_missing_variables",
	"intercept-new-entities":  "engine.intercept_new_entities",
	"skip-prune-on-desync":    "engine.skip_prune_on_desync",
}

// override records a value that replaces a configuration key.
func (o *RootOptions) override(key string, value any) {
	if o.overrides == nil {
		o.overrides = make(map[string]any)
	}
	o.overrides[key] = value
}

// collectOverrides records every flag of cmd that was set explicitly and
// shadows a configuration key.
func (o *RootOptions) collectOverrides(cmd *cobra.Command) error {
	for name, key := range flagKeys {
		f := cmd.Flags().Lookup(name)
		if f == nil || !f.Changed {
			continue
		}
		if f.Value.Type() == "bool" {
			v, err := cmd.Flags().GetBool(name)
			if err != nil {
				return err
			}
			o.override(key, v)
			continue
		}
		o.override(key, f.Value.String())
	}
	if o.Verbose {
		o.override("log.level", "debug")
	}
	return nil
}

// prepare validates global flags, loads configuration and builds the
// logger. Subcommands call it too so they work without the root command.
func (o *RootOptions) prepare(cmd *cobra.Command) error {
	if o.prepared {
		return nil
	}
	if !isValidFormat(o.Format) {
		return NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be one of %v", o.Format, ValidFormats))
	}

	if err := o.collectOverrides(cmd); err != nil {
		return WrapExitError(ExitCommandError, "invalid flags", err)
	}
	loader := config.NewLoader(
		config.WithConfigFile(o.ConfigPath),
		config.WithOverrides(o.overrides),
	)
	cfg, err := loader.Load()
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load configuration", err)
	}
	logger, err := cfg.Log.NewLogger(cmd.ErrOrStderr())
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to build logger", err)
	}

	o.Config = cfg
	o.Logger = logger
	o.prepared = true
	logger.Debug("configuration loaded", "keys", loader.Keys())
	return nil
}

// engine builds a snapshot engine from the engine configuration.
func (o *RootOptions) engine(extra ...snapshot.Option) *snapshot.Engine {
	return snapshot.New(append(o.Config.Engine.EngineOptions(o.Logger), extra...)...)
}

// registry returns the built-in classes plus those compiled from the
// configured schema directory.
func (o *RootOptions) registry() (*scene.Registry, error) {
	reg := scene.DefaultRegistry()
	dir := o.Config.Schema.Dir
	if dir == "" {
		return reg, nil
	}
	result, errs := schema.LoadDir(dir)
	if len(errs) > 0 {
		return nil, WrapExitError(ExitCommandError, "failed to load schema "+dir, errors.Join(errs...))
	}
	if err := schema.Register(reg, result.Classes); err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to register schema classes", err)
	}
	o.Logger.Debug("schema loaded", "dir", dir, "files", result.FileCount, "classes", len(result.Classes))
	return reg, nil
}

// formatter returns an OutputFormatter for cmd.
func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   o.Verbose,
	}
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}
