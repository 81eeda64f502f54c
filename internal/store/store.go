// Package store persists scenario run history — one row per completed
// ScenarioOrchestrator.Run, enough to drive a regression baseline or a
// run-history dashboard across many invocations of the harness. It is
// optional: nothing in internal/orchestrator or internal/scoring depends on
// it, and cmd/voxharness only opens a Store when a DSN is configured.
package store

import (
	"database/sql"
	"embed"
	"fmt"
	"sort"
	"time"
)

// ScenarioRun is one row of scenario run history.
type ScenarioRun struct {
	ID           string
	ScenarioName string
	StartedAt    time.Time
	DurationMs   float64
	Passed       bool
	PassRate     float64
	MetricsJSON  string
	Tags         string
}

// Store persists and retrieves ScenarioRun history. Two concrete backends
// are provided: OpenPostgres (github.com/jackc/pgx/v5) and OpenSQLite
// (github.com/mattn/go-sqlite3), selected by the caller based on the
// configured DSN's scheme.
type Store struct {
	db      *sql.DB
	dialect dialect
}

// dialect abstracts the one syntax difference between the two backends:
// positional ($1) vs. ordinal (?) placeholders.
type dialect struct {
	placeholder func(n int) string
}

var postgresDialect = dialect{
	placeholder: func(n int) string {
		return fmt.Sprintf("$%d", n)
	},
}

var sqliteDialect = dialect{
	placeholder: func(int) string {
		return "?"
	},
}

// Close closes the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// RecordRun inserts a completed scenario run.
func (s *Store) RecordRun(run ScenarioRun) error {
	p := s.dialect.placeholder
	query := fmt.Sprintf(
		`INSERT INTO scenario_runs (id, scenario_name, started_at, duration_ms, passed, pass_rate, metrics_json, tags)
		 VALUES (%s, %s, %s, %s, %s, %s, %s, %s)`,
		p(1), p(2), p(3), p(4), p(5), p(6), p(7), p(8),
	)
	_, err := s.db.Exec(query,
		run.ID, run.ScenarioName, run.StartedAt.UTC(), run.DurationMs, run.Passed, run.PassRate, run.MetricsJSON, run.Tags)
	return err
}

// RecentRuns returns up to limit runs for scenarioName, newest first. An
// empty scenarioName returns runs across all scenarios.
func (s *Store) RecentRuns(scenarioName string, limit int) ([]ScenarioRun, error) {
	p := s.dialect.placeholder
	var rows *sql.Rows
	var err error
	if scenarioName == "" {
		rows, err = s.db.Query(
			fmt.Sprintf(`SELECT id, scenario_name, started_at, duration_ms, passed, pass_rate, metrics_json, tags
			             FROM scenario_runs ORDER BY started_at DESC LIMIT %s`, p(1)),
			limit,
		)
	} else {
		rows, err = s.db.Query(
			fmt.Sprintf(`SELECT id, scenario_name, started_at, duration_ms, passed, pass_rate, metrics_json, tags
			             FROM scenario_runs WHERE scenario_name = %s ORDER BY started_at DESC LIMIT %s`, p(1), p(2)),
			scenarioName, limit,
		)
	}
	if err != nil {
		return nil, fmt.Errorf("query recent runs: %w", err)
	}
	defer rows.Close()

	var out []ScenarioRun
	for rows.Next() {
		var r ScenarioRun
		if err := rows.Scan(&r.ID, &r.ScenarioName, &r.StartedAt, &r.DurationMs, &r.Passed, &r.PassRate, &r.MetricsJSON, &r.Tags); err != nil {
			return nil, fmt.Errorf("scan scenario run: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func migrate(db *sql.DB, files []migrationFile) error {
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (version INTEGER NOT NULL)`); err != nil {
		return err
	}

	var current int
	row := db.QueryRow(`SELECT COALESCE(MAX(version), -1) FROM schema_version`)
	if err := row.Scan(&current); err != nil {
		return err
	}

	for i := current + 1; i < len(files); i++ {
		if _, err := db.Exec(files[i].sql); err != nil {
			return fmt.Errorf("migration %d (%s): %w", i, files[i].name, err)
		}
		if _, err := db.Exec(fmt.Sprintf(`INSERT INTO schema_version (version) VALUES (%d)`, i)); err != nil {
			return fmt.Errorf("migration %d record: %w", i, err)
		}
	}
	return nil
}

type migrationFile struct {
	name string
	sql  string
}

// readMigrations loads every *.sql file under dir in an embed.FS, sorted by
// filename so numbered migrations (0001_init.sql, 0002_...) apply in order.
func readMigrations(fsys embed.FS, dir string) ([]migrationFile, error) {
	entries, err := fsys.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read migrations dir %s: %w", dir, err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)

	files := make([]migrationFile, 0, len(names))
	for _, name := range names {
		data, err := fsys.ReadFile(dir + "/" + name)
		if err != nil {
			return nil, fmt.Errorf("read migration %s: %w", name, err)
		}
		files = append(files, migrationFile{name: name, sql: string(data)})
	}
	return files, nil
}
