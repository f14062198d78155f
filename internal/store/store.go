// Package store keeps device streams and merged runs in a SQLite database.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/planbiir/trkm/internal/track"
)

var (
	// ErrSourceNotFound is returned when no stream is stored under a name.
	ErrSourceNotFound = errors.New("source not found")

	// ErrRunNotFound is returned for an unknown run id.
	ErrRunNotFound = errors.New("run not found")
)

// Config holds database configuration
type Config struct {
	Path   string
	Logger *zap.Logger

	// PageSize is how many points a stored source reads per query.
	PageSize int
}

// Store wraps the database connection.
type Store struct {
	db       *sql.DB
	log      *zap.Logger
	pageSize int
}

// Open opens (creating if needed) the database at cfg.Path and applies
// pending migrations.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = 500
	}

	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// A single connection serializes writers and keeps pragmas in effect.
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{"PRAGMA journal_mode=WAL", "PRAGMA foreign_keys=ON"} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", pragma, err)
		}
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &Store{db: db, log: cfg.Logger, pageSize: cfg.PageSize}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	s.log.Debug("database opened", zap.String("path", cfg.Path))
	return s, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// transaction executes fn within a database transaction
func (s *Store) transaction(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("transaction error: %v, rollback error: %w", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// attrColumns lists the value columns in attribute order.
func attrColumns() string {
	names := make([]string, track.NumAttrs)
	for i, a := range track.Attrs() {
		names[i] = a.String()
	}
	return strings.Join(names, ", ")
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

// recordArgs flattens a record into time plus one argument per attribute.
// Text readings are stored as text, unknown ones as NULL.
func recordArgs(r *track.Record) []any {
	args := make([]any, 0, 1+track.NumAttrs)
	args = append(args, r.Time.UnixNano())
	for _, a := range track.Attrs() {
		v := r.Get(a)
		switch {
		case v.Known():
			args = append(args, v.Num)
		case v.Kind == track.KindText:
			args = append(args, v.Text)
		default:
			args = append(args, nil)
		}
	}
	return args
}

// scanRecord reads time plus the attribute columns into a record.
func scanRecord(scan func(dest ...any) error, name string) (track.Record, error) {
	var nanos int64
	raw := make([]any, track.NumAttrs)
	dest := make([]any, 0, 1+track.NumAttrs)
	dest = append(dest, &nanos)
	for i := range raw {
		dest = append(dest, &raw[i])
	}
	if err := scan(dest...); err != nil {
		return track.Record{}, err
	}

	rec := track.Record{Name: name, Time: time.Unix(0, nanos).UTC()}
	for i, v := range raw {
		a := track.Attr(i)
		switch x := v.(type) {
		case float64:
			rec.Set(a, x)
		case int64:
			rec.Set(a, float64(x))
		case string:
			rec.SetValue(a, track.Text(x))
		case []byte:
			rec.SetValue(a, track.Text(string(x)))
		}
	}
	return rec, nil
}
