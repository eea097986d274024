// Package cli implements the strata command line interface.
package cli

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/stratadb/strata/internal/config"
	"github.com/stratadb/strata/internal/engine"
	"github.com/stratadb/strata/internal/port"
	"github.com/stratadb/strata/internal/postgres"
	"github.com/stratadb/strata/internal/schema"
	"github.com/stratadb/strata/internal/sqlite"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose   bool
	Format    string // "json" | "text"
	Backend   string
	DBPath    string
	SchemaDir string
	Tenant    string
	User      string
	System    string
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the strata CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}
	defaults := config.Default()

	cmd := &cobra.Command{
		Use:   "strata",
		Short: "strata - bitemporal entity store",
		Long: "Versioned entity storage: every save is a new revision, " +
			"nothing is overwritten, and any past state can be queried back.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.Backend, "backend", string(defaults.Backend), "persistence backend (sqlite|postgres|memory)")
	cmd.PersistentFlags().StringVar(&opts.DBPath, "db", defaults.SQLitePath, "sqlite database file")
	cmd.PersistentFlags().StringVar(&opts.SchemaDir, "schema-dir", defaults.SchemaDir, "directory of CUE entity declarations")
	cmd.PersistentFlags().StringVar(&opts.Tenant, "tenant", "", "tenant partition (empty uses the default tenant)")
	cmd.PersistentFlags().StringVar(&opts.User, "user", "cli", "editing user id recorded on writes")
	cmd.PersistentFlags().StringVar(&opts.System, "system", "strata-cli", "editing system id recorded on writes")

	cmd.AddCommand(NewSaveCommand(opts))
	cmd.AddCommand(NewGetCommand(opts))
	cmd.AddCommand(NewHistoryCommand(opts))
	cmd.AddCommand(NewListCommand(opts))
	cmd.AddCommand(NewAtCommand(opts))
	cmd.AddCommand(NewBetweenCommand(opts))
	cmd.AddCommand(NewDeleteCommand(opts))
	cmd.AddCommand(NewUndeleteCommand(opts))
	cmd.AddCommand(NewSchemaCommand(opts))

	return cmd
}

func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}

// session bundles the engine with the resources it borrows.
type session struct {
	engine *engine.Engine
	close  func() error
}

// openSession loads the schema directory, opens the selected backend and
// constructs an engine over it.
func openSession(opts *RootOptions) (*session, error) {
	registry, err := schema.LoadDir(opts.SchemaDir)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "load schema", err)
	}

	var (
		p       port.Port
		cleanup = func() error { return nil }
	)
	switch opts.Backend {
	case string(config.BackendMemory):
		p = port.NewMemory()
	case string(config.BackendSQLite):
		store, err := sqlite.Open(opts.DBPath)
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "open database", err)
		}
		p = store
		cleanup = store.Close
	case string(config.BackendPostgres):
		// Connection settings come from the STRATA_PG_* environment.
		cfg, err := config.Load()
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "load config", err)
		}
		store, err := postgres.Open(cfg.Postgres.DSN(), cfg.Postgres.MaxConns, cfg.Postgres.MaxIdle)
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "open database", err)
		}
		p = store
		cleanup = store.Close
	default:
		return nil, WrapExitError(ExitCommandError,
			fmt.Sprintf("unknown backend %q", opts.Backend), nil)
	}

	level := slog.LevelWarn
	if opts.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	eng, err := engine.New(engine.Config{
		Registry: registry,
		Port:     p,
		Logger:   logger,
	})
	if err != nil {
		cleanup()
		return nil, WrapExitError(ExitCommandError, "construct engine", err)
	}
	return &session{engine: eng, close: cleanup}, nil
}

// formatterFor builds the output formatter of one command invocation.
func formatterFor(opts *RootOptions, cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
}

// reportEngineError renders an engine failure and maps it to an exit code.
func reportEngineError(f *OutputFormatter, err error) error {
	code := "INTERNAL"
	var e *engine.Error
	if errors.As(err, &e) {
		code = string(e.Code)
	}
	f.Error(code, err.Error())
	return WrapExitError(ExitFailure, code, err)
}
