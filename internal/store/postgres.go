package store

import (
	"database/sql"
	"embed"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" database/sql driver
)

//go:embed migrations/postgres/*.sql
var postgresMigrationFS embed.FS

// OpenPostgres connects to a PostgreSQL run-history database at connStr and
// applies any pending migrations.
func OpenPostgres(connStr string) (*Store, error) {
	db, err := sql.Open("pgx", connStr)
	if err != nil {
		return nil, fmt.Errorf("store: open postgres: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: ping postgres: %w", err)
	}
	files, err := readMigrations(postgresMigrationFS, "migrations/postgres")
	if err != nil {
		db.Close()
		return nil, err
	}
	if err := migrate(db, files); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: migrate postgres: %w", err)
	}
	return &Store{db: db, dialect: postgresDialect}, nil
}
