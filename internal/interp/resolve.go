package interp

import (
	"errors"

	"github.com/planbiir/trkm/internal/track"
)

const (
	backward = -1
	local    = 0
	forward  = 1
)

// Value resolves attribute a at p. A value recorded on p itself wins;
// otherwise the nearest points carrying the attribute on either side are
// interpolated linearly by elapsed time. With only one side available its
// value is held flat; with none the result is unknown.
func (c *Cache) Value(p *Point, a track.Attr) (track.Value, error) {
	lo, err := c.lookup(p, a, backward)
	if err != nil {
		return track.Value{}, err
	}
	if lo.from == p && present(lo.val) {
		return lo.val, nil
	}
	hi, err := c.lookup(p, a, forward)
	if err != nil {
		return track.Value{}, err
	}

	hasLo, hasHi := present(lo.val), present(hi.val)
	switch {
	case hasLo && hasHi:
		return interpolate(p, lo, hi), nil
	case hasLo:
		return lo.val, nil
	case hasHi:
		return hi.val, nil
	}
	return track.Missing(), nil
}

// Float resolves a and reports whether the result is a known number.
func (c *Cache) Float(p *Point, a track.Attr) (float64, bool, error) {
	v, err := c.Value(p, a)
	if err != nil {
		return 0, false, err
	}
	f, ok := v.Float()
	return f, ok, nil
}

// Resolve fills a record with every attribute of p.
func (c *Cache) Resolve(p *Point) (track.Record, error) {
	rec := track.Record{Name: p.name, Time: p.Time}
	for _, a := range track.Attrs() {
		v, err := c.Value(p, a)
		if err != nil {
			return rec, err
		}
		rec.SetValue(a, v)
	}
	return rec, nil
}

func interpolate(p *Point, lo, hi memoEntry) track.Value {
	if lo.val.Kind == track.KindText {
		return lo.val
	}
	if hi.val.Kind == track.KindText {
		return hi.val
	}
	span := hi.from.Time.Sub(lo.from.Time).Seconds()
	if lo.from == hi.from || span <= 0 {
		return lo.val
	}
	elapsed := p.Time.Sub(lo.from.Time).Seconds()
	return track.Number(lo.val.Num + (hi.val.Num-lo.val.Num)*elapsed/span)
}

// lookup finds the first point carrying attribute a when walking from p in
// dir. The answer for every (point, attribute, direction) is computed once:
// a walk records its result for each point it passes, so resolving every
// point of a source stays linear even when a never turns up.
func (c *Cache) lookup(p *Point, a track.Attr, dir int) (memoEntry, error) {
	key := memoKey{id: p.id, attr: a, dir: dir}
	if e, ok := c.memo[key]; ok {
		return e, nil
	}
	if v := c.localValue(p, a); present(v) {
		e := memoEntry{from: p, val: v}
		c.memo[key] = e
		return e, nil
	}
	if dir == local {
		e := memoEntry{from: p}
		c.memo[key] = e
		return e, nil
	}

	// Indices stay put during the walk: loading only appends.
	passed := []*Point{p}
	var (
		found memoEntry
		ok    bool
	)
	if i := c.indexOf(p); i >= 0 {
		for j := i + dir; j >= 0; j += dir {
			q, err := c.At(j)
			if errors.Is(err, ErrIndexOutOfRange) {
				break
			}
			if err != nil {
				return memoEntry{}, err
			}
			if found, ok = c.memo[memoKey{id: q.id, attr: a, dir: dir}]; ok {
				break
			}
			if v := c.localValue(q, a); present(v) {
				found, ok = memoEntry{from: q, val: v}, true
				c.memo[memoKey{id: q.id, attr: a, dir: local}] = found
				break
			}
			passed = append(passed, q)
		}
	}
	for _, q := range passed {
		e := found
		if !ok || !present(found.val) {
			e = memoEntry{from: q}
		}
		c.memo[memoKey{id: q.id, attr: a, dir: dir}] = e
	}
	return c.memo[key], nil
}

// localValue is what p itself carries for a: the record value, or for a
// deduplicated point the mean of its members' known values.
func (c *Cache) localValue(p *Point, a track.Attr) track.Value {
	if p.record != nil {
		v := p.record.Get(a)
		if present(v) {
			return v
		}
		return track.Missing()
	}
	if len(p.members) == 0 {
		return track.Missing()
	}
	sum, n := 0.0, 0
	for _, m := range p.members {
		v := c.localValue(m, a)
		if v.Kind == track.KindText {
			return v
		}
		if v.Known() {
			sum += v.Num
			n++
		}
	}
	if n == 0 {
		return track.Missing()
	}
	return track.Number(sum / float64(n))
}

// present reports whether v counts as a reading: a known number or text the
// source could not interpret.
func present(v track.Value) bool {
	return v.Known() || v.Kind == track.KindText
}
