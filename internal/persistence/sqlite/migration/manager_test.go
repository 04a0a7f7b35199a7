package migration

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"testing/fstest"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := Open(TempFileTestSQLiteConfig(filepath.Join(t.TempDir(), "migrations.db")))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestManager_RunMigrations(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	fsys := mapFS(map[string]string{
		"001_initial_schema.sql": "CREATE TABLE rules (id TEXT PRIMARY KEY);\nCREATE TABLE profiles (name TEXT PRIMARY KEY);",
		"002_add_entries.sql":    "CREATE TABLE entries (id TEXT PRIMARY KEY, start_time TEXT NOT NULL);",
	})
	manager := NewManager(NewScanner(fsys, "migrations"), NewExecutor(db), nil)

	if err := manager.RunMigrations(ctx); err != nil {
		t.Fatalf("RunMigrations: %v", err)
	}

	for _, table := range []string{"rules", "profiles", "entries"} {
		var name string
		if err := db.QueryRowContext(ctx, `SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, table).Scan(&name); err != nil {
			t.Errorf("table %s missing: %v", table, err)
		}
	}

	status, err := manager.Status(ctx)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if status.CurrentVersion != "002" || len(status.Applied) != 2 || len(status.Pending) != 0 {
		t.Fatalf("unexpected status %+v", status)
	}

	// Running again applies nothing.
	if err := manager.RunMigrations(ctx); err != nil {
		t.Fatalf("second RunMigrations: %v", err)
	}
	applied, err := NewExecutor(db).AppliedMigrations(ctx)
	if err != nil {
		t.Fatalf("AppliedMigrations: %v", err)
	}
	if len(applied) != 2 {
		t.Fatalf("expected 2 applied migrations, got %d", len(applied))
	}
}

func TestManager_PendingAfterNewFile(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	fsys := mapFS(map[string]string{
		"001_initial_schema.sql": "CREATE TABLE rules (id TEXT PRIMARY KEY);",
	})
	if err := NewManager(NewScanner(fsys, "migrations"), NewExecutor(db), nil).RunMigrations(ctx); err != nil {
		t.Fatalf("RunMigrations: %v", err)
	}

	fsys["migrations/002_add_profiles.sql"] = &fstest.MapFile{Data: []byte("CREATE TABLE profiles (name TEXT PRIMARY KEY);")}
	pending, err := NewManager(NewScanner(fsys, "migrations"), NewExecutor(db), nil).Pending(ctx)
	if err != nil {
		t.Fatalf("Pending: %v", err)
	}
	if len(pending) != 1 || pending[0].Version != "002" {
		t.Fatalf("expected only 002 pending, got %+v", pending)
	}
}

func TestManager_ChecksumMismatch(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	original := mapFS(map[string]string{
		"001_initial_schema.sql": "CREATE TABLE rules (id TEXT PRIMARY KEY);",
	})
	if err := NewManager(NewScanner(original, "migrations"), NewExecutor(db), nil).RunMigrations(ctx); err != nil {
		t.Fatalf("RunMigrations: %v", err)
	}

	edited := mapFS(map[string]string{
		"001_initial_schema.sql": "CREATE TABLE rules (id TEXT PRIMARY KEY, position INTEGER);",
	})
	err := NewManager(NewScanner(edited, "migrations"), NewExecutor(db), nil).RunMigrations(ctx)
	if !errors.Is(err, ErrChecksumMismatch) {
		t.Fatalf("expected ErrChecksumMismatch, got %v", err)
	}
}

func TestManager_FailedMigrationRollsBack(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	fsys := mapFS(map[string]string{
		"001_broken.sql": "CREATE TABLE rules (id TEXT PRIMARY KEY);\nINSERT INTO missing_table VALUES (1);",
	})
	err := NewManager(NewScanner(fsys, "migrations"), NewExecutor(db), nil).RunMigrations(ctx)
	if !errors.Is(err, ErrMigrationFailed) {
		t.Fatalf("expected ErrMigrationFailed, got %v", err)
	}

	var count int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = 'rules'`).Scan(&count); err != nil {
		t.Fatalf("query sqlite_master: %v", err)
	}
	if count != 0 {
		t.Fatal("expected rules table creation to be rolled back")
	}
	applied, err := NewExecutor(db).IsVersionApplied(ctx, "001")
	if err != nil {
		t.Fatalf("IsVersionApplied: %v", err)
	}
	if applied {
		t.Fatal("failed migration must not be recorded")
	}
}

func TestSQLiteConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     SQLiteConfig
		wantErr bool
	}{
		{name: "default", cfg: DefaultSQLiteConfig("data/scheduler.db")},
		{name: "in memory", cfg: InMemoryTestSQLiteConfig()},
		{name: "empty DSN", cfg: SQLiteConfig{}, wantErr: true},
		{name: "bad journal mode", cfg: SQLiteConfig{DSN: "x.db", JournalMode: "SIDEWAYS"}, wantErr: true},
		{name: "bad synchronous", cfg: SQLiteConfig{DSN: "x.db", Synchronous: "SOMETIMES"}, wantErr: true},
		{name: "negative pool", cfg: SQLiteConfig{DSN: "x.db", MaxOpenConns: -1}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
