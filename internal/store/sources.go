package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/planbiir/trkm/internal/geo"
	"github.com/planbiir/trkm/internal/track"
)

// ImportSource drains src and stores its records under src.Name(),
// replacing any stream already stored under that name.
func (s *Store) ImportSource(ctx context.Context, src track.Source) (int, error) {
	records, err := track.Collect(src)
	if err != nil {
		return 0, fmt.Errorf("failed to read %s: %w", src.Name(), err)
	}
	name := src.Name()

	err = s.transaction(ctx, func(tx *sql.Tx) error {
		for _, q := range []string{"DELETE FROM points WHERE source = ?", "DELETE FROM sources WHERE name = ?"} {
			if _, err := tx.ExecContext(ctx, q, name); err != nil {
				return fmt.Errorf("failed to replace source: %w", err)
			}
		}
		if _, err := tx.ExecContext(ctx, "INSERT INTO sources (name) VALUES (?)", name); err != nil {
			return fmt.Errorf("failed to insert source: %w", err)
		}

		stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(
			"INSERT INTO points (source, seq, time_ns, %s) VALUES (?, ?, ?, %s)",
			attrColumns(), placeholders(track.NumAttrs)))
		if err != nil {
			return fmt.Errorf("failed to prepare insert: %w", err)
		}
		defer stmt.Close()

		for i := range records {
			args := append([]any{name, i}, recordArgs(&records[i])...)
			if _, err := stmt.ExecContext(ctx, args...); err != nil {
				return fmt.Errorf("failed to insert point %d: %w", i, err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	s.log.Info("source imported", zap.String("source", name), zap.Int("points", len(records)))
	return len(records), nil
}

// SourceInfo describes one stored stream.
type SourceInfo struct {
	Name   string
	Points int
}

// Sources lists the stored streams by name.
func (s *Store) Sources(ctx context.Context) ([]SourceInfo, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT s.name, COUNT(p.seq)
		FROM sources s LEFT JOIN points p ON p.source = s.name
		GROUP BY s.name ORDER BY s.name`)
	if err != nil {
		return nil, fmt.Errorf("failed to query sources: %w", err)
	}
	defer rows.Close()

	var out []SourceInfo
	for rows.Next() {
		var info SourceInfo
		if err := rows.Scan(&info.Name, &info.Points); err != nil {
			return nil, fmt.Errorf("failed to scan source: %w", err)
		}
		out = append(out, info)
	}
	return out, rows.Err()
}

// DeleteSource removes a stored stream and its points.
func (s *Store) DeleteSource(ctx context.Context, name string) error {
	return s.transaction(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM points WHERE source = ?", name); err != nil {
			return fmt.Errorf("failed to delete points: %w", err)
		}
		res, err := tx.ExecContext(ctx, "DELETE FROM sources WHERE name = ?", name)
		if err != nil {
			return fmt.Errorf("failed to delete source: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("%s: %w", name, ErrSourceNotFound)
		}
		return nil
	})
}

// Source returns a stored stream as a record source. Points are read a page
// at a time as the consumer pulls them; records without a distance get the
// cumulative path length.
func (s *Store) Source(ctx context.Context, name string) (track.Source, error) {
	var exists int
	err := s.db.QueryRowContext(ctx, "SELECT 1 FROM sources WHERE name = ?", name).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", name, ErrSourceNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up source: %w", err)
	}
	return geo.WithDistance(&pagedSource{ctx: ctx, store: s, name: name, next: 0}), nil
}

// pagedSource reads points in seq order, one page per query, so several
// stored sources can be merged over a single connection.
type pagedSource struct {
	ctx   context.Context
	store *Store
	name  string

	page []track.Record
	pos  int
	next int
	done bool
}

func (p *pagedSource) Name() string { return p.name }

func (p *pagedSource) Next() (track.Record, error) {
	if p.pos >= len(p.page) {
		if p.done {
			return track.Record{}, io.EOF
		}
		if err := p.fill(); err != nil {
			return track.Record{}, err
		}
		if len(p.page) == 0 {
			return track.Record{}, io.EOF
		}
	}
	r := p.page[p.pos]
	p.pos++
	return r, nil
}

func (p *pagedSource) fill() error {
	rows, err := p.store.db.QueryContext(p.ctx, fmt.Sprintf(
		"SELECT seq, time_ns, %s FROM points WHERE source = ? AND seq >= ? ORDER BY seq LIMIT ?",
		attrColumns()), p.name, p.next, p.store.pageSize)
	if err != nil {
		return fmt.Errorf("failed to query points of %s: %w", p.name, err)
	}
	defer rows.Close()

	p.page = p.page[:0]
	p.pos = 0
	for rows.Next() {
		var seq int
		rec, err := scanRecord(func(dest ...any) error {
			return rows.Scan(append([]any{&seq}, dest...)...)
		}, p.name)
		if err != nil {
			return fmt.Errorf("failed to scan point of %s: %w", p.name, err)
		}
		p.page = append(p.page, rec)
		p.next = seq + 1
	}
	if err := rows.Err(); err != nil {
		return err
	}
	if len(p.page) < p.store.pageSize {
		p.done = true
	}
	return nil
}
