package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/planbiir/trkm/internal/track"
)

// Run describes one saved merge result.
type Run struct {
	ID        string
	Name      string
	Sources   []string
	Cleaned   bool
	CreatedAt time.Time
	Points    int
}

// SaveRun stores a merged (and possibly cleaned) sequence as a new run and
// returns its id.
func (s *Store) SaveRun(ctx context.Context, run Run, records []track.Record) (string, error) {
	id := uuid.NewString()
	created := time.Now().UTC()

	err := s.transaction(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			"INSERT INTO runs (id, name, sources, cleaned, created_at) VALUES (?, ?, ?, ?, ?)",
			id, run.Name, strings.Join(run.Sources, ","), run.Cleaned, created.UnixNano())
		if err != nil {
			return fmt.Errorf("failed to insert run: %w", err)
		}

		stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(
			"INSERT INTO run_points (run_id, seq, name, time_ns, %s) VALUES (?, ?, ?, ?, %s)",
			attrColumns(), placeholders(track.NumAttrs)))
		if err != nil {
			return fmt.Errorf("failed to prepare insert: %w", err)
		}
		defer stmt.Close()

		for i := range records {
			args := append([]any{id, i, records[i].Name}, recordArgs(&records[i])...)
			if _, err := stmt.ExecContext(ctx, args...); err != nil {
				return fmt.Errorf("failed to insert run point %d: %w", i, err)
			}
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	s.log.Info("run saved", zap.String("run_id", id), zap.String("name", run.Name), zap.Int("points", len(records)))
	return id, nil
}

// Runs lists saved runs, newest first.
func (s *Store) Runs(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT r.id, r.name, r.sources, r.cleaned, r.created_at, COUNT(p.seq)
		FROM runs r LEFT JOIN run_points p ON p.run_id = r.id
		GROUP BY r.id ORDER BY r.created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		run, err := scanRun(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, run)
	}
	return out, rows.Err()
}

// LoadRun returns a saved run and its points in order.
func (s *Store) LoadRun(ctx context.Context, id string) (Run, []track.Record, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT r.id, r.name, r.sources, r.cleaned, r.created_at, COUNT(p.seq)
		FROM runs r LEFT JOIN run_points p ON p.run_id = r.id
		WHERE r.id = ? GROUP BY r.id`, id)
	run, err := scanRun(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, nil, fmt.Errorf("%s: %w", id, ErrRunNotFound)
	}
	if err != nil {
		return Run{}, nil, err
	}

	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(
		"SELECT name, time_ns, %s FROM run_points WHERE run_id = ? ORDER BY seq", attrColumns()), id)
	if err != nil {
		return Run{}, nil, fmt.Errorf("failed to query run points: %w", err)
	}
	defer rows.Close()

	records := make([]track.Record, 0, run.Points)
	for rows.Next() {
		var name string
		rec, err := scanRecord(func(dest ...any) error {
			return rows.Scan(append([]any{&name}, dest...)...)
		}, "")
		if err != nil {
			return Run{}, nil, fmt.Errorf("failed to scan run point: %w", err)
		}
		rec.Name = name
		records = append(records, rec)
	}
	return run, records, rows.Err()
}

func scanRun(scan func(dest ...any) error) (Run, error) {
	var (
		run     Run
		sources string
		created int64
	)
	if err := scan(&run.ID, &run.Name, &sources, &run.Cleaned, &created, &run.Points); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return run, err
		}
		return run, fmt.Errorf("failed to scan run: %w", err)
	}
	if sources != "" {
		run.Sources = strings.Split(sources, ",")
	}
	run.CreatedAt = time.Unix(0, created).UTC()
	return run, nil
}
