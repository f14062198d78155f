package clean

import (
	"math"

	"go.uber.org/zap"

	"github.com/planbiir/trkm/internal/track"
)

// pause is an inclusive index range of consecutive zero-cadence points.
type pause struct{ start, end int }

// findPauses returns every maximal zero-cadence run that is followed by a
// point with a known, non-zero cadence. Runs reaching the end of the track,
// or closed by a point without cadence, have no reference and are skipped.
func (c *cleaner) findPauses() []pause {
	var runs []pause
	start := -1
	for i := range c.pts {
		cad, ok := c.cadence(i)
		if ok && cad == 0 {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 && ok {
			runs = append(runs, pause{start: start, end: i - 1})
		}
		start = -1
	}
	return runs
}

func (c *cleaner) smoothPauses(st *Stats) {
	for _, p := range c.findPauses() {
		st.PausesFound++
		next := p.end + 1
		ref := math.Round(c.distanceDelta(next)*100) / 100
		tol := math.Abs(ref) * c.cfg.PauseTolerancePct / 100

		// A pause recorded as flat distance never matches a moving reference
		// step, so only pauses that kept counting distance get smoothed.
		within := func(i int) bool {
			return math.Abs(c.distanceDelta(i)-ref) <= tol
		}
		ok := true
		for i := p.start; i <= p.end; i++ {
			if !within(i) {
				ok = false
				break
			}
		}
		if !ok {
			c.debug("pause left untouched",
				zap.Int("start", p.start), zap.Int("end", p.end), zap.Float64("reference_delta", ref))
			continue
		}

		start := p.start
		for start > 0 && within(start-1) {
			start--
		}

		usable := 0.0
		for i := start; i <= p.end; i++ {
			if td := c.timeDelta(i); td <= c.cfg.MaxStep {
				usable += td
			}
		}
		if usable <= 0 {
			continue
		}

		base := 0.0
		if start > 0 {
			base = c.distance(start - 1)
		}
		cad, _ := c.cadence(next)
		c.distribute(start, p.end, base, c.distance(next)-base, usable, cad)
		st.PausesSmoothed++

		c.debug("pause smoothed",
			zap.Int("start", start),
			zap.Int("end", p.end),
			zap.Float64("distance", c.distance(next)-base),
			zap.Float64("usable_seconds", usable),
			zap.Float64("cadence", cad))
	}
}

// distribute spreads distance over [start, end] in proportion to each step's
// time delta. Steps longer than MaxStep keep the running distance and their
// cadence.
func (c *cleaner) distribute(start, end int, base, distance, usable, cadence float64) {
	step := distance / usable
	d := base
	for i := start; i <= end; i++ {
		td := c.timeDelta(i)
		if td > c.cfg.MaxStep {
			c.pts[i].Set(track.Distance, d)
			continue
		}
		d += step * td
		c.pts[i].Set(track.Distance, d)
		c.pts[i].Set(track.Cadence, cadence)
	}
}

func (c *cleaner) debug(msg string, fields ...zap.Field) {
	if c.cfg.Verbose {
		c.log.Info(msg, fields...)
		return
	}
	c.log.Debug(msg, fields...)
}
