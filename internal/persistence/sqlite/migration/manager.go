package migration

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"
)

// Source lists available migrations. *Scanner implements it.
type Source interface {
	ScanMigrations() ([]Migration, error)
}

// Runner applies migrations and reports what has been applied. *Executor
// implements it.
type Runner interface {
	InitializeVersionTable(ctx context.Context) error
	Execute(ctx context.Context, migration Migration) (time.Duration, error)
	AppliedMigrations(ctx context.Context) ([]AppliedMigration, error)
}

// Manager applies pending migrations in version order.
type Manager struct {
	source Source
	runner Runner
	logger *slog.Logger
}

// NewManager wires a migration source and runner. A nil logger discards output.
func NewManager(source Source, runner Runner, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Manager{source: source, runner: runner, logger: logger.With("component", "migration")}
}

// RunMigrations applies every pending migration. Applied migrations whose
// file content changed since they ran abort the run with ErrChecksumMismatch.
func (m *Manager) RunMigrations(ctx context.Context) error {
	start := time.Now()

	pending, err := m.Pending(ctx)
	if err != nil {
		m.logger.ErrorContext(ctx, "scan for pending migrations failed", "error", err)
		return err
	}
	if len(pending) == 0 {
		m.logger.DebugContext(ctx, "schema up to date")
		return nil
	}

	for i, migration := range pending {
		m.logger.InfoContext(ctx, "applying migration",
			"version", migration.Version,
			"description", migration.Description,
			"position", fmt.Sprintf("%d/%d", i+1, len(pending)),
		)
		elapsed, err := m.runner.Execute(ctx, migration)
		if err != nil {
			m.logger.ErrorContext(ctx, "migration failed", "version", migration.Version, "error", err)
			return err
		}
		m.logger.InfoContext(ctx, "migration applied", "version", migration.Version, "elapsed", elapsed)
	}

	m.logger.InfoContext(ctx, "migrations complete", "count", len(pending), "elapsed", time.Since(start))
	return nil
}

// Pending returns the migrations that have not been applied yet.
func (m *Manager) Pending(ctx context.Context) ([]Migration, error) {
	status, err := m.Status(ctx)
	if err != nil {
		return nil, err
	}
	return status.Pending, nil
}

// Status compares the available migrations with the applied ones.
func (m *Manager) Status(ctx context.Context) (Status, error) {
	if err := m.runner.InitializeVersionTable(ctx); err != nil {
		return Status{}, err
	}

	available, err := m.source.ScanMigrations()
	if err != nil {
		return Status{}, err
	}
	applied, err := m.runner.AppliedMigrations(ctx)
	if err != nil {
		return Status{}, err
	}

	checksums := make(map[string]string, len(applied))
	for _, record := range applied {
		checksums[record.Version] = record.Checksum
	}

	status := Status{Applied: applied}
	for _, migration := range available {
		checksum, ok := checksums[migration.Version]
		if !ok {
			status.Pending = append(status.Pending, migration)
			continue
		}
		if checksum != "" && checksum != migration.Checksum {
			return Status{}, NewMigrationError(migration.Version, migration.FilePath, "verify checksum", ErrChecksumMismatch)
		}
	}
	if len(applied) > 0 {
		status.CurrentVersion = applied[len(applied)-1].Version
	}
	return status, nil
}
