package store

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"
)

// Migration represents a database migration
type Migration struct {
	Version int
	Name    string
	SQL     string
}

var migrations = []Migration{
	{
		Version: 1,
		Name:    "001_create_sources",
		SQL: `
			CREATE TABLE sources (
				name TEXT PRIMARY KEY,
				created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
			);
			CREATE TABLE points (
				source TEXT NOT NULL REFERENCES sources(name) ON DELETE CASCADE,
				seq INTEGER NOT NULL,
				time_ns INTEGER NOT NULL,
				lat REAL, lon REAL, alt REAL, hr REAL, cadence REAL,
				speed REAL, distance REAL, temperature REAL,
				PRIMARY KEY (source, seq)
			);`,
	},
	{
		Version: 2,
		Name:    "002_create_runs",
		SQL: `
			CREATE TABLE runs (
				id TEXT PRIMARY KEY,
				name TEXT NOT NULL,
				sources TEXT NOT NULL,
				cleaned INTEGER NOT NULL DEFAULT 0,
				created_at INTEGER NOT NULL
			);
			CREATE TABLE run_points (
				run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
				seq INTEGER NOT NULL,
				name TEXT NOT NULL,
				time_ns INTEGER NOT NULL,
				lat REAL, lon REAL, alt REAL, hr REAL, cadence REAL,
				speed REAL, distance REAL, temperature REAL,
				PRIMARY KEY (run_id, seq)
			);`,
	},
}

// migrate creates the migrations tracking table and applies every pending
// migration in version order.
func (s *Store) migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS migrations (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`)
	if err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	applied, err := s.appliedMigrations(ctx)
	if err != nil {
		return err
	}

	for _, m := range migrations {
		if applied[m.Version] {
			continue
		}
		err := s.transaction(ctx, func(tx *sql.Tx) error {
			if _, err := tx.ExecContext(ctx, m.SQL); err != nil {
				return fmt.Errorf("failed to execute migration %d: %w", m.Version, err)
			}
			if _, err := tx.ExecContext(ctx, "INSERT INTO migrations (version, name) VALUES (?, ?)", m.Version, m.Name); err != nil {
				return fmt.Errorf("failed to record migration %d: %w", m.Version, err)
			}
			return nil
		})
		if err != nil {
			return err
		}
		s.log.Debug("applied migration", zap.Int("version", m.Version), zap.String("name", m.Name))
	}
	return nil
}

func (s *Store) appliedMigrations(ctx context.Context) (map[int]bool, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT version FROM migrations ORDER BY version")
	if err != nil {
		return nil, fmt.Errorf("failed to query migrations: %w", err)
	}
	defer rows.Close()

	applied := make(map[int]bool)
	for rows.Next() {
		var version int
		if err := rows.Scan(&version); err != nil {
			return nil, fmt.Errorf("failed to scan migration version: %w", err)
		}
		applied[version] = true
	}
	return applied, rows.Err()
}
