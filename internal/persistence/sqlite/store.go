package sqlite

import (
	"context"
	"embed"
	"fmt"

	"github.com/example/shift-scheduler/internal/logging"
	"github.com/example/shift-scheduler/internal/persistence"
	"github.com/example/shift-scheduler/internal/persistence/sqlite/migration"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// Store is the SQLite implementation of persistence.Store.
type Store struct {
	*RuleRepository
	*ProfileRepository
	*CalendarRepository

	pool *ConnectionPool
}

var _ persistence.Store = (*Store)(nil)

// Open opens the database at dsn with the default server settings.
func Open(dsn string) (*Store, error) {
	return OpenWithConfig(migration.DefaultSQLiteConfig(dsn))
}

// OpenWithConfig opens a database with explicit connection settings.
func OpenWithConfig(config migration.SQLiteConfig) (*Store, error) {
	pool, err := NewConnectionPool(config)
	if err != nil {
		return nil, err
	}
	retry := NewRetryHelper(DefaultRetryConfig())
	return &Store{
		RuleRepository:     NewRuleRepository(pool, retry),
		ProfileRepository:  NewProfileRepository(pool, retry),
		CalendarRepository: NewCalendarRepository(pool, retry),
		pool:               pool,
	}, nil
}

// Migrate applies the embedded schema migrations. Progress is logged to the
// logger carried by ctx, if any.
func (s *Store) Migrate(ctx context.Context) error {
	if err := s.migrations(ctx).RunMigrations(ctx); err != nil {
		return fmt.Errorf("sqlite: migrate: %w", err)
	}
	return nil
}

// MigrationStatus reports which embedded migrations have been applied and
// which are still pending, without applying any.
func (s *Store) MigrationStatus(ctx context.Context) (migration.Status, error) {
	status, err := s.migrations(ctx).Status(ctx)
	if err != nil {
		return migration.Status{}, fmt.Errorf("sqlite: migration status: %w", err)
	}
	return status, nil
}

func (s *Store) migrations(ctx context.Context) *migration.Manager {
	return migration.NewManager(
		migration.NewScanner(migrationFiles, "migrations"),
		migration.NewExecutor(s.pool.DB()),
		logging.FromContext(ctx),
	)
}

// Close releases the connection pool.
func (s *Store) Close() error {
	return s.pool.Close()
}
