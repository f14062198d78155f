// Package input opens command line inputs as record sources.
package input

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/planbiir/trkm/internal/faker"
	"github.com/planbiir/trkm/internal/fitfile"
	"github.com/planbiir/trkm/internal/gpx"
	"github.com/planbiir/trkm/internal/store"
	"github.com/planbiir/trkm/internal/tcx"
	"github.com/planbiir/trkm/internal/track"
)

// StorePrefix marks an input naming a stream stored in the track database.
const StorePrefix = "db:"

// ErrNoStore is returned for a stored input when no database is open.
var ErrNoStore = errors.New("stored input needs a track database")

// Open returns the source behind arg. The kind of input follows from the
// file extension: .gpx, .tcx, .fit or a .yaml/.yml synthetic activity.
// "db:<name>" reads a stream previously imported into st.
func Open(ctx context.Context, arg string, st *store.Store) (track.Source, error) {
	if name, ok := strings.CutPrefix(arg, StorePrefix); ok {
		if st == nil {
			return nil, fmt.Errorf("%s: %w", arg, ErrNoStore)
		}
		return st.Source(ctx, name)
	}

	switch ext := strings.ToLower(filepath.Ext(arg)); ext {
	case ".gpx":
		return gpx.Open(arg)
	case ".tcx":
		return tcx.Open(arg)
	case ".fit":
		return fitfile.Open(arg)
	case ".yaml", ".yml":
		cfg, err := faker.LoadConfig(arg)
		if err != nil {
			return nil, err
		}
		f, err := faker.New(cfg)
		if err != nil {
			return nil, err
		}
		return f, nil
	default:
		return nil, fmt.Errorf("%s: unsupported input type %q", arg, ext)
	}
}

// OpenAll opens every argument in order. Nothing is returned when any of
// them fails.
func OpenAll(ctx context.Context, args []string, st *store.Store) ([]track.Source, error) {
	sources := make([]track.Source, 0, len(args))
	for _, arg := range args {
		src, err := Open(ctx, arg, st)
		if err != nil {
			return nil, err
		}
		sources = append(sources, src)
	}
	return sources, nil
}

// NeedsStore reports whether any argument reads from the track database.
func NeedsStore(args []string) bool {
	for _, arg := range args {
		if strings.HasPrefix(arg, StorePrefix) {
			return true
		}
	}
	return false
}
