package store

import (
	"database/sql"
	"embed"
	"fmt"

	_ "github.com/mattn/go-sqlite3" // registers the "sqlite3" database/sql driver
)

//go:embed migrations/sqlite/*.sql
var sqliteMigrationFS embed.FS

// OpenSQLite opens (creating if absent) a SQLite run-history database at
// path and applies any pending migrations. Use this backend for local,
// single-process harness invocations that don't warrant a Postgres server.
func OpenSQLite(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("store: open sqlite: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: ping sqlite: %w", err)
	}
	files, err := readMigrations(sqliteMigrationFS, "migrations/sqlite")
	if err != nil {
		db.Close()
		return nil, err
	}
	if err := migrate(db, files); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: migrate sqlite: %w", err)
	}
	return &Store{db: db, dialect: sqliteDialect}, nil
}
