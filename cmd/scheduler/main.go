// Command scheduler detects and resolves shift scheduling conflicts, either
// as an HTTP service or through one-shot subcommands.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/example/shift-scheduler/internal/application"
	"github.com/example/shift-scheduler/internal/config"
	"github.com/example/shift-scheduler/internal/logging"
	"github.com/example/shift-scheduler/internal/persistence"
	"github.com/example/shift-scheduler/internal/persistence/jsonfile"
	"github.com/example/shift-scheduler/internal/persistence/sqlite"
)

var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		printError(os.Stderr, err.Error())
		os.Exit(1)
	}
}

// globalFlags override configuration values for a single invocation.
type globalFlags struct {
	store    string
	dsn      string
	dataDir  string
	logLevel string
	json     bool
}

func newRootCommand() *cobra.Command {
	flags := &globalFlags{}

	root := &cobra.Command{
		Use:     "scheduler",
		Version: version,
		Short:   "Shift conflict detection and resolution",
		Long: `scheduler checks calendar entries against user-defined conflict rules,
tries automated fixes on an isolated snapshot and commits them to the live
schedule on request.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&flags.store, "store", "", "storage backend: sqlite or json (overrides SCHEDULER_STORE)")
	pf.StringVar(&flags.dsn, "dsn", "", "SQLite database path (overrides SCHEDULER_SQLITE_DSN)")
	pf.StringVar(&flags.dataDir, "data-dir", "", "JSON store directory (overrides SCHEDULER_DATA_DIR)")
	pf.StringVar(&flags.logLevel, "log-level", "", "log level: debug, info, warn or error")
	pf.BoolVar(&flags.json, "json", false, "output in JSON format")

	root.AddGroup(
		&cobra.Group{ID: "conflicts", Title: "Conflicts:"},
		&cobra.Group{ID: "data", Title: "Rules, Profiles & Calendars:"},
		&cobra.Group{ID: "server", Title: "Server & Tooling:"},
	)

	for _, cmd := range []*cobra.Command{newScanCommand(flags), newResolveCommand(flags)} {
		cmd.GroupID = "conflicts"
		root.AddCommand(cmd)
	}
	for _, cmd := range []*cobra.Command{newRulesCommand(flags), newProfilesCommand(flags), newImportICSCommand(flags)} {
		cmd.GroupID = "data"
		root.AddCommand(cmd)
	}
	for _, cmd := range []*cobra.Command{newServeCommand(flags), newMigrateCommand(flags), newHashKeyCommand()} {
		cmd.GroupID = "server"
		root.AddCommand(cmd)
	}

	return root
}

// environment is what every subcommand works with: configuration, a logger,
// an open store and a service loaded from it.
type environment struct {
	cfg     config.Config
	logger  *slog.Logger
	store   persistence.Store
	service *application.ConflictService
}

func (e *environment) Close() {
	if e == nil || e.store == nil {
		return
	}
	if err := e.store.Close(); err != nil {
		e.logger.Error("failed to close storage", "error", err)
	}
}

// loadConfig reads the configuration and applies command line overrides.
func loadConfig(flags *globalFlags) (config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, err
	}
	if flags.store != "" {
		cfg.Store = flags.store
	}
	if flags.dsn != "" {
		cfg.SQLiteDSN = flags.dsn
	}
	if flags.dataDir != "" {
		cfg.DataDir = flags.dataDir
	}
	if flags.logLevel != "" {
		if err := cfg.LogLevel.UnmarshalText([]byte(flags.logLevel)); err != nil {
			return config.Config{}, fmt.Errorf("invalid --log-level %q", flags.logLevel)
		}
	}
	return cfg, nil
}

func newLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
}

// openStore opens the configured backend, migrating SQLite databases.
func openStore(ctx context.Context, cfg config.Config, logger *slog.Logger) (persistence.Store, error) {
	switch cfg.Store {
	case config.StoreJSON:
		return jsonfile.Open(cfg.DataDir)
	case config.StoreSQLite:
		store, err := sqlite.Open(cfg.SQLiteDSN)
		if err != nil {
			return nil, fmt.Errorf("open storage: %w", err)
		}
		if err := store.Migrate(logging.ContextWithLogger(ctx, logger)); err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("apply migrations: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown store %q", cfg.Store)
	}
}

// setup builds the environment for cmd. Logs go to stderr so that command
// output on stdout stays machine readable.
func setup(cmd *cobra.Command, flags *globalFlags, opts ...application.ServiceOption) (*environment, error) {
	cfg, err := loadConfig(flags)
	if err != nil {
		return nil, err
	}
	return setupWith(cmd.Context(), cfg, newLogger(cmd.ErrOrStderr(), cfg.LogLevel), opts...)
}

func setupWith(ctx context.Context, cfg config.Config, logger *slog.Logger, opts ...application.ServiceOption) (*environment, error) {
	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	opts = append([]application.ServiceOption{application.WithTimeZone(cfg.TimeZone)}, opts...)
	service := application.NewConflictServiceWithLogger(newRepositories(store, logger), nil, nil, logger, opts...)

	// Unreadable collections start empty; Save leaves them as stored.
	if _, err := service.Load(ctx); err != nil {
		logger.WarnContext(ctx, "continuing with the readable part of the store", "error", err, "error_kind", application.ErrorKind(err))
	}

	return &environment{cfg: cfg, logger: logger, store: store, service: service}, nil
}
