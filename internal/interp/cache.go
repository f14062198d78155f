// Package interp turns a Source into a lazily materialized, time-addressable
// sequence of points whose missing attributes are filled from neighbors.
package interp

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/planbiir/trkm/internal/track"
)

// ErrIndexOutOfRange is returned when an index lies beyond what the source
// can supply.
var ErrIndexOutOfRange = errors.New("no such point")

// Point is a handle to one materialized instant of a source. Handles stay
// valid for the lifetime of the cache, whatever gets inserted around them.
type Point struct {
	id      int
	Time    time.Time
	name    string
	record  *track.Record
	members []*Point

	// Real is false for points synthesized by a time query.
	Real bool
}

// Name returns the name of the source record, or of the cache for
// synthesized points.
func (p *Point) Name() string { return p.name }

// Record returns the backing record, nil for synthesized and deduplicated points.
func (p *Point) Record() *track.Record { return p.record }

// Deduplicated reports whether p collapses several records sharing its time.
func (p *Point) Deduplicated() bool { return len(p.members) > 0 }

// Stats counts what the cache did to its source.
type Stats struct {
	Materialized int
	Synthesized  int
	Deduplicated int
	Dropped      int
}

type memoKey struct {
	id   int
	attr track.Attr
	dir  int
}

type memoEntry struct {
	from *Point
	val  track.Value
}

// Cache is the lazy, indexable and time-addressable adapter over a Source.
// It is not safe for concurrent use.
type Cache struct {
	src       track.Source
	name      string
	points    []*Point
	nextID    int
	memo      map[memoKey]memoEntry
	cursor    int
	exhausted bool
	lastReal  time.Time
	hasReal   bool
	stats     Stats
}

// New wraps src. Nothing is read until the cache is queried.
func New(src track.Source) *Cache {
	return &Cache{
		src:  src,
		name: src.Name(),
		memo: make(map[memoKey]memoEntry),
	}
}

// Name returns the source name.
func (c *Cache) Name() string { return c.name }

// Len returns the number of materialized points.
func (c *Cache) Len() int { return len(c.points) }

// Exhausted reports whether the source has been fully read.
func (c *Cache) Exhausted() bool { return c.exhausted }

// Stats returns a snapshot of the cache counters.
func (c *Cache) Stats() Stats { return c.stats }

// At returns the point at index, pulling from the source as needed.
func (c *Cache) At(index int) (*Point, error) {
	if index < 0 {
		return nil, fmt.Errorf("%s[%d]: %w", c.name, index, ErrIndexOutOfRange)
	}
	for len(c.points) <= index && !c.exhausted {
		if err := c.load(); err != nil {
			return nil, err
		}
	}
	if index >= len(c.points) {
		return nil, fmt.Errorf("%s[%d]: %w", c.name, index, ErrIndexOutOfRange)
	}
	return c.points[index], nil
}

// First returns the earliest point of the source.
func (c *Cache) First() (*Point, error) { return c.At(0) }

// AtTime returns the point at exactly t. Records sharing t are collapsed into
// one deduplicated point on first access. When no point exists at t and
// insert is set, a synthesized point is placed in time order; otherwise the
// result is nil. The boolean reports an exact match.
func (c *Cache) AtTime(t time.Time, insert bool) (*Point, bool, error) {
	if err := c.fillPast(t); err != nil {
		return nil, false, err
	}
	i := c.seek(t)
	if p := c.collapse(i, t); p != nil {
		return p, true, nil
	}
	if !insert {
		return nil, false, nil
	}
	return c.insert(i, t), false, nil
}

// Probe returns the point at t when the source has one there or can derive
// one from samples on both sides of t. Outside the source's own span it
// returns nil.
func (c *Cache) Probe(t time.Time) (*Point, error) {
	if err := c.fillPast(t); err != nil {
		return nil, err
	}
	i := c.seek(t)
	if p := c.collapse(i, t); p != nil {
		return p, nil
	}
	if i == 0 || i >= len(c.points) {
		return nil, nil
	}
	return c.insert(i, t), nil
}

// NextAfter returns the first materialized time strictly after t.
func (c *Cache) NextAfter(t time.Time) (time.Time, bool, error) {
	if err := c.fillPast(t); err != nil {
		return time.Time{}, false, err
	}
	i := sort.Search(len(c.points), func(i int) bool {
		return c.points[i].Time.After(t)
	})
	if i >= len(c.points) {
		return time.Time{}, false, nil
	}
	return c.points[i].Time, true, nil
}

// Neighbor returns the point step positions away from p, or nil at a boundary.
func (c *Cache) Neighbor(p *Point, step int) (*Point, error) {
	i := c.indexOf(p)
	if i < 0 || i+step < 0 {
		return nil, nil
	}
	q, err := c.At(i + step)
	if errors.Is(err, ErrIndexOutOfRange) {
		return nil, nil
	}
	return q, err
}

// load appends the next in-order record. Records earlier than the last one
// kept are discarded.
func (c *Cache) load() error {
	for {
		r, err := c.src.Next()
		if err == io.EOF {
			c.exhausted = true
			return nil
		}
		if err != nil {
			return fmt.Errorf("read %s: %w", c.name, err)
		}
		if c.hasReal && r.Time.Before(c.lastReal) {
			c.stats.Dropped++
			continue
		}
		rec := r
		if rec.Name == "" {
			rec.Name = c.name
		}
		c.lastReal, c.hasReal = rec.Time, true
		c.points = append(c.points, c.newPoint(rec.Time, rec.Name, &rec, true))
		c.stats.Materialized++
		return nil
	}
}

// fillPast materializes until some point lies after t, so that every record
// at or before t is known.
func (c *Cache) fillPast(t time.Time) error {
	for !c.exhausted && (len(c.points) == 0 || !c.points[len(c.points)-1].Time.After(t)) {
		if err := c.load(); err != nil {
			return err
		}
	}
	return nil
}

// seek returns the first index whose time is not before t. It scans forward
// from the last position used, which is the common access pattern.
func (c *Cache) seek(t time.Time) int {
	i := c.cursor
	if i > len(c.points) || (i > 0 && !c.points[i-1].Time.Before(t)) {
		i = sort.Search(len(c.points), func(k int) bool {
			return !c.points[k].Time.Before(t)
		})
	}
	for i < len(c.points) && c.points[i].Time.Before(t) {
		i++
	}
	c.cursor = i
	return i
}

// collapse returns the single point at index i with time t, merging a run of
// equal timestamps first. It returns nil when nothing sits at t.
func (c *Cache) collapse(i int, t time.Time) *Point {
	j := i
	for j < len(c.points) && c.points[j].Time.Equal(t) {
		j++
	}
	switch j - i {
	case 0:
		return nil
	case 1:
		return c.points[i]
	}
	members := make([]*Point, j-i)
	copy(members, c.points[i:j])
	p := c.newPoint(t, members[0].name, nil, true)
	p.members = members
	c.points[i] = p
	c.points = append(c.points[:i+1], c.points[j:]...)
	c.stats.Deduplicated++
	return p
}

func (c *Cache) insert(i int, t time.Time) *Point {
	p := c.newPoint(t, c.name, nil, false)
	c.points = append(c.points, nil)
	copy(c.points[i+1:], c.points[i:])
	c.points[i] = p
	c.stats.Synthesized++
	return p
}

func (c *Cache) newPoint(t time.Time, name string, rec *track.Record, isReal bool) *Point {
	c.nextID++
	return &Point{id: c.nextID, Time: t, name: name, record: rec, Real: isReal}
}

func (c *Cache) indexOf(p *Point) int {
	if p == nil {
		return -1
	}
	i := sort.Search(len(c.points), func(k int) bool {
		return !c.points[k].Time.Before(p.Time)
	})
	for ; i < len(c.points) && c.points[i].Time.Equal(p.Time); i++ {
		if c.points[i] == p {
			return i
		}
	}
	return -1
}
