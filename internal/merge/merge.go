package merge

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/planbiir/trkm/internal/interp"
	"github.com/planbiir/trkm/internal/track"
)

var (
	// ErrTypeMismatch means a source reported a non-numeric reading for an
	// attribute that has to be averaged.
	ErrTypeMismatch = errors.New("attribute values are not uniformly numeric")

	// ErrNoSources is returned when there is nothing to merge.
	ErrNoSources = errors.New("no sources to merge")

	// ErrIndexOutOfRange is returned by At past the end of the composite stream.
	ErrIndexOutOfRange = interp.ErrIndexOutOfRange
)

// Config controls how the merge operation behaves.
type Config struct {
	// Logger receives join/leave diagnostics. Nil means no logging.
	Logger *zap.Logger

	// DisableDistanceOffsets averages raw distances as reported. By default a
	// source joining after the composite stream has started gets the
	// composite distance at that moment added to all its distance readings.
	DisableDistanceOffsets bool

	// Progress, when set, is called with the number of points emitted so far.
	Progress func(emitted int)
}

// Stats reports what happened during the merge so callers can surface it to users.
type Stats struct {
	Steps         int
	Contributions map[string]int
	Offsets       map[string]float64

	Materialized int
	Synthesized  int
	Deduplicated int
	Dropped      int
}

// DefaultConfig returns the recommended configuration for production use.
func DefaultConfig() Config {
	return Config{Logger: zap.NewNop()}
}

// Point is one merged instant across all sources.
type Point struct {
	track.Record

	// Sources names the caches that contributed, in input order.
	Sources []string

	// Offsets holds the distance base offset of every source (by input index)
	// that has contributed so far.
	Offsets map[int]float64
}

// Merger drives several caches by a shared clock and yields composite points
// in strictly increasing time order.
type Merger struct {
	cfg     Config
	caches  []*interp.Cache
	live    []bool
	started []bool
	present []bool
	offsets map[int]float64

	clock time.Time
	begun bool
	done  bool
	out   []Point
}

// NewMerger returns a merger over caches. Nothing is read until Next is called.
func NewMerger(caches []*interp.Cache, cfg Config) *Merger {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	live := make([]bool, len(caches))
	for i := range live {
		live[i] = true
	}
	return &Merger{
		cfg:     cfg,
		caches:  caches,
		live:    live,
		started: make([]bool, len(caches)),
		present: make([]bool, len(caches)),
		offsets: make(map[int]float64),
	}
}

// Next returns the next composite point, or io.EOF once every source is spent.
func (m *Merger) Next() (Point, error) {
	if m.done {
		return Point{}, io.EOF
	}
	t, ok, err := m.advance()
	if err != nil {
		m.done = true
		return Point{}, err
	}
	if !ok {
		m.done = true
		return Point{}, io.EOF
	}
	m.clock = t

	pt, err := m.compose(t)
	if err != nil {
		m.done = true
		return Point{}, err
	}
	m.out = append(m.out, pt)
	if m.cfg.Progress != nil {
		m.cfg.Progress(len(m.out))
	}
	return pt, nil
}

// At returns the composite point at index, merging as far as needed.
func (m *Merger) At(index int) (Point, error) {
	if index < 0 {
		return Point{}, fmt.Errorf("composite[%d]: %w", index, ErrIndexOutOfRange)
	}
	for len(m.out) <= index {
		if _, err := m.Next(); err != nil {
			if err == io.EOF {
				return Point{}, fmt.Errorf("composite[%d]: %w", index, ErrIndexOutOfRange)
			}
			return Point{}, err
		}
	}
	return m.out[index], nil
}

// Drain merges to the end and returns every composite point.
func (m *Merger) Drain() ([]Point, error) {
	for {
		if _, err := m.Next(); err != nil {
			if err == io.EOF {
				return m.out, nil
			}
			return m.out, err
		}
	}
}

// Stats summarizes the merge so far.
func (m *Merger) Stats() Stats {
	s := Stats{
		Steps:         len(m.out),
		Contributions: make(map[string]int, len(m.caches)),
		Offsets:       make(map[string]float64, len(m.offsets)),
	}
	for _, pt := range m.out {
		for _, name := range pt.Sources {
			s.Contributions[name]++
		}
	}
	for idx, off := range m.offsets {
		s.Offsets[m.caches[idx].Name()] = off
	}
	for _, c := range m.caches {
		cs := c.Stats()
		s.Materialized += cs.Materialized
		s.Synthesized += cs.Synthesized
		s.Deduplicated += cs.Deduplicated
		s.Dropped += cs.Dropped
	}
	return s
}

// advance computes the next clock value: the earliest first timestamp on the
// first step, then the earliest timestamp strictly after the current clock.
// Sources with nothing left are retired for good.
func (m *Merger) advance() (time.Time, bool, error) {
	var next time.Time
	found := false
	for i, c := range m.caches {
		if !m.live[i] {
			continue
		}
		var (
			t   time.Time
			ok  bool
			err error
		)
		if !m.begun {
			var p *interp.Point
			p, err = c.First()
			if errors.Is(err, interp.ErrIndexOutOfRange) {
				err = nil
			} else if p != nil {
				t, ok = p.Time, true
			}
		} else {
			t, ok, err = c.NextAfter(m.clock)
		}
		if err != nil {
			return time.Time{}, false, err
		}
		if !ok {
			m.live[i] = false
			m.cfg.Logger.Debug("source exhausted", zap.String("source", c.Name()))
			continue
		}
		if !found || t.Before(next) {
			next, found = t, true
		}
	}
	m.begun = true
	return next, found, nil
}

func (m *Merger) compose(t time.Time) (Point, error) {
	type contribution struct {
		idx  int
		name string
		vals [track.NumAttrs]track.Value
	}

	var contribs []contribution
	for i, c := range m.caches {
		if !m.live[i] {
			m.present[i] = false
			continue
		}
		p, err := c.Probe(t)
		if err != nil {
			return Point{}, err
		}
		if p == nil {
			if m.present[i] {
				m.cfg.Logger.Debug("source left", zap.String("source", c.Name()), zap.Time("at", t))
			}
			m.present[i] = false
			continue
		}
		rec, err := c.Resolve(p)
		if err != nil {
			return Point{}, err
		}
		if !m.started[i] {
			m.started[i] = true
			m.join(i, t)
		}
		m.present[i] = true
		contribs = append(contribs, contribution{idx: i, name: p.Name(), vals: rec.Values})
	}

	pt := Point{
		Record:  track.Record{Time: t},
		Sources: make([]string, 0, len(contribs)),
		Offsets: make(map[int]float64, len(m.offsets)),
	}
	names := make([]string, 0, len(contribs))
	for _, cb := range contribs {
		pt.Sources = append(pt.Sources, m.caches[cb.idx].Name())
		names = append(names, cb.name)
	}
	pt.Name = strings.Join(names, "-")
	for idx, off := range m.offsets {
		pt.Offsets[idx] = off
	}

	for _, a := range track.Attrs() {
		sum, n := 0.0, 0
		for _, cb := range contribs {
			v := cb.vals[a]
			if v.Kind == track.KindText {
				return Point{}, fmt.Errorf("%s at %s from %s (%s): %w",
					a, t.Format(time.RFC3339), m.caches[cb.idx].Name(), v, ErrTypeMismatch)
			}
			f, ok := v.Float()
			if !ok {
				continue
			}
			if a == track.Distance {
				f += m.offsets[cb.idx]
			}
			sum += f
			n++
		}
		if n > 0 {
			pt.Set(a, sum/float64(n))
		}
	}
	return pt, nil
}

// join records the distance base offset of source i, which contributes for
// the first time at t.
func (m *Merger) join(i int, t time.Time) {
	offset := 0.0
	if !m.cfg.DisableDistanceOffsets && len(m.out) > 0 {
		if d, ok := m.out[len(m.out)-1].Float(track.Distance); ok {
			offset = d
		}
	}
	m.offsets[i] = offset
	m.cfg.Logger.Debug("source joined",
		zap.String("source", m.caches[i].Name()),
		zap.Time("at", t),
		zap.Float64("distance_offset", offset))
}

// Merge builds caches over sources, merges them to the end and returns the
// composite sequence.
func Merge(sources []track.Source, cfg Config) ([]Point, Stats, error) {
	if len(sources) == 0 {
		return nil, Stats{}, ErrNoSources
	}
	caches := make([]*interp.Cache, len(sources))
	for i, src := range sources {
		if src == nil {
			return nil, Stats{}, fmt.Errorf("source %d is nil", i)
		}
		caches[i] = interp.New(src)
	}

	m := NewMerger(caches, cfg)
	points, err := m.Drain()
	stats := m.Stats()
	if err != nil {
		return nil, stats, fmt.Errorf("merge: %w", err)
	}
	m.cfg.Logger.Info("merge completed",
		zap.Int("sources", len(sources)),
		zap.Int("points", stats.Steps),
		zap.Int("synthesized", stats.Synthesized),
		zap.Int("deduplicated", stats.Deduplicated),
		zap.Int("dropped", stats.Dropped))
	return points, stats, nil
}

// Records strips merge metadata, leaving the plain record sequence.
func Records(points []Point) []track.Record {
	out := make([]track.Record, len(points))
	for i := range points {
		out[i] = points[i].Record
	}
	return out
}
