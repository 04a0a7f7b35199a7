// Package migration applies versioned SQL migrations to a SQLite database.
//
// Migrations are read from an fs.FS, usually an embedded directory, and must
// be named {version}_{description}.sql (e.g. "001_initial_schema.sql"). Each
// migration runs in its own transaction and is recorded in a schema_migrations
// table so that it is applied at most once.
//
// Example usage:
//
//	manager := NewManager(NewScanner(migrations, "migrations"), NewExecutor(db), logger)
//	if err := manager.RunMigrations(ctx); err != nil {
//		return err
//	}
package migration
