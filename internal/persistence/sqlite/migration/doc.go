// Package migration applies versioned SQL migrations to a SQLite database.
//
// Migrations are read from an fs.FS (usually an embed.FS compiled into the
// binary) and must be named {version}_{description}.sql, for example
// "001_create_wipes.sql". Applied versions are tracked in the
// schema_migrations table and every migration runs in its own transaction.
//
// Example usage:
//
//	manager := migration.NewManager(
//		migration.NewScanner(files, "migrations"),
//		migration.NewSQLiteExecutor(db),
//		logger,
//	)
//	if _, err := manager.Run(ctx); err != nil {
//		return err
//	}
package migration
