package clean

import (
	"math"

	"go.uber.org/zap"

	"github.com/planbiir/trkm/internal/stats"
	"github.com/planbiir/trkm/internal/track"
)

// repairOutliers bounds every point's speed. Implausible speeds are rebuilt
// from the neighborhood; the rest never drop below the derived speed.
func (c *cleaner) repairOutliers(st *Stats) {
	for i := range c.pts {
		derived := c.derivedSpeed(i)
		recorded := c.recordedSpeed(i)
		cad, hasCad := c.cadence(i)

		switch {
		case c.timeDelta(i) > c.cfg.MaxStep && hasCad && cad == 0:
			c.setSpeed(i, 0)
			st.StopsForced++
		case derived > c.cfg.MaxSpeed || recorded > c.cfg.MaxSpeed:
			c.repairOutlier(i, derived, recorded)
			st.OutliersRepaired++
		default:
			if derived > recorded {
				st.SpeedsRaised++
			}
			c.setSpeed(i, max(recorded, derived))
		}
	}
}

// repairOutlier replaces the speed of point i with one consistent with the
// speed per cadence unit of its valid neighbors, jittering the cadence by
// their spread.
func (c *cleaner) repairOutlier(i int, derived, recorded float64) {
	cad, hasCad := c.cadence(i)
	if !hasCad {
		// Without cadence there is nothing to scale; use the neighbors' pace.
		speed := stats.Mean(c.neighborSpeeds(i))
		c.setSpeed(i, speed)
		c.debug("outlier repaired without cadence",
			zap.Int("index", i),
			zap.Float64("derived_kmh", derived),
			zap.Float64("recorded_kmh", recorded),
			zap.Float64("speed_kmh", speed))
		return
	}

	mean, stdev := stats.MeanStdDev(c.speedPerCadence(i))
	jitter := stats.SymmetricTriangular(c.rng, -stdev, stdev)
	newCad := math.Round(cad + cad*jitter)
	if math.IsNaN(newCad) || newCad < 0 {
		newCad = 0
	}
	c.pts[i].Set(track.Cadence, newCad)
	c.setSpeed(i, newCad*mean)

	c.debug("outlier repaired",
		zap.Int("index", i),
		zap.Float64("derived_kmh", derived),
		zap.Float64("recorded_kmh", recorded),
		zap.Float64("cadence", cad),
		zap.Float64("new_cadence", newCad),
		zap.Float64("speed_kmh", newCad*mean))
}

// speedPerCadence collects derived speed over cadence for up to Window valid
// samples on each side of i. A sample is valid when it has a known non-zero
// cadence and a plausible derived speed.
func (c *cleaner) speedPerCadence(i int) []float64 {
	var out []float64
	collect := func(j int) bool {
		cad, ok := c.cadence(j)
		if !ok || cad == 0 {
			return false
		}
		spd := c.derivedSpeed(j)
		if !c.plausibleSpeed(i, j, spd) {
			return false
		}
		out = append(out, spd/cad)
		return true
	}
	c.scan(i, collect)
	return out
}

// neighborSpeeds collects plausible derived speeds around i regardless of
// cadence.
func (c *cleaner) neighborSpeeds(i int) []float64 {
	var out []float64
	c.scan(i, func(j int) bool {
		spd := c.derivedSpeed(j)
		if !c.plausibleSpeed(i, j, spd) {
			return false
		}
		out = append(out, spd)
		return true
	})
	return out
}

// plausibleSpeed reports whether the derived speed at neighbor j of i may
// feed an estimate. A standing neighbor after i counts; before i it must
// move, which also rules out the first point with no elapsed time.
func (c *cleaner) plausibleSpeed(i, j int, spd float64) bool {
	if spd < 0 || spd > c.cfg.MaxSpeed {
		return false
	}
	return j > i || spd > 0
}

// scan visits indices outward from i, first backward then forward, until
// take has accepted Window samples on that side.
func (c *cleaner) scan(i int, take func(j int) bool) {
	n := 0
	for j := i - 1; j >= 0 && n < c.cfg.Window; j-- {
		if take(j) {
			n++
		}
	}
	n = 0
	for j := i + 1; j < len(c.pts) && n < c.cfg.Window; j++ {
		if take(j) {
			n++
		}
	}
}
