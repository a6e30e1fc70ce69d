package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/citesync/internal/config"
	"github.com/roach88/citesync/internal/refdb"
	"github.com/roach88/citesync/internal/store"
	"github.com/roach88/citesync/internal/style"
	"github.com/roach88/citesync/internal/version"
)

// Library is the local library name used in item URIs.
const Library = "local"

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose  bool
	Format   string // "json" | "text"
	Config   string
	EnvFile  string
	Database string

	// cfg is loaded before any subcommand runs.
	cfg *config.Config
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the citesync CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:     "citesync",
		Short:   "citesync - citation fields for word processors",
		Long:    "Keeps citation and bibliography fields in a document in sync with a reference library and a citation style.",
		Version: version.Version,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			return opts.load()
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.Config, "config", "", "path to a YAML config file")
	cmd.PersistentFlags().StringVar(&opts.EnvFile, "env-file", "", "path to a dotenv file")
	cmd.PersistentFlags().StringVar(&opts.Database, "db", "", "path to the SQLite database (overrides config)")

	cmd.AddCommand(NewExecCommand(opts))
	cmd.AddCommand(NewBatchCommand(opts))
	cmd.AddCommand(NewItemsCommand(opts))
	cmd.AddCommand(NewStylesCommand(opts))
	cmd.AddCommand(NewJournalCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))

	return cmd
}

// load reads the configuration, applies flag overrides and installs the
// default logger.
func (o *RootOptions) load() error {
	cfg, err := config.Load(o.Config, o.EnvFile)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load config", err)
	}
	if o.Database != "" {
		cfg.Database = o.Database
	}
	o.cfg = cfg

	level, err := cfg.Level()
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid log level", err)
	}
	if o.Verbose {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler))
	return nil
}

// settings returns the loaded config, or defaults when a subcommand runs
// without the root command (as in tests).
func (o *RootOptions) settings() *config.Config {
	if o.cfg == nil {
		o.cfg = config.Default()
		if o.Database != "" {
			o.cfg.Database = o.Database
		}
	}
	return o.cfg
}

func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   o.Verbose,
	}
}

// library is the opened database with the style registry attached.
type library struct {
	store     *store.Store
	db        *refdb.SQL
	styles    *style.Registry
	installer *style.Installer
}

func (o *RootOptions) openLibrary(ctx context.Context) (*library, error) {
	cfg := o.settings()

	st, err := store.Open(cfg.Database)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}

	styles, err := style.NewRegistry()
	if err != nil {
		st.Close()
		return nil, WrapExitError(ExitCommandError, "failed to load built-in styles", err)
	}
	if cfg.StylesDir != "" {
		n, err := styles.LoadDir(cfg.StylesDir)
		if err != nil {
			st.Close()
			return nil, WrapExitError(ExitCommandError, "failed to load styles", err)
		}
		slog.Debug("styles loaded", "dir", cfg.StylesDir, "count", n)
	}
	if err := styles.Attach(ctx, st); err != nil {
		st.Close()
		return nil, WrapExitError(ExitCommandError, "failed to load installed styles", err)
	}

	return &library{
		store:  st,
		db:     refdb.NewSQL(st, Library),
		styles: styles,
		installer: &style.Installer{
			Registry:        styles,
			TrustedPrefixes: cfg.TrustedPrefixes,
		},
	}, nil
}

func (l *library) Close() error {
	return l.store.Close()
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}
