package clean

import (
	"math"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"

	"github.com/planbiir/trkm/internal/stats"
	"github.com/planbiir/trkm/internal/track"
)

// kmh converts m/s to km/h.
const kmh = 3.6

// Clean repairs pauses and speed outliers in a fully merged track. The input
// slice is not modified.
func Clean(points []track.Record, config Config) (CleaningResult, error) {
	startTime := time.Now()
	config = withDefaults(config)

	c := &cleaner{
		cfg: config,
		pts: make([]track.Record, len(points)),
		rng: config.Rand,
		log: config.Logger,
	}
	copy(c.pts, points)
	if c.rng == nil {
		c.rng = stats.NewRand(config.Seed)
	}

	st := Stats{
		OriginalPoints:   len(points),
		OriginalDistance: lastDistance(points) / 1000,
	}
	if len(points) < 2 {
		st.FinalPoints = len(points)
		st.FinalDistance = st.OriginalDistance
		st.ProcessingTime = time.Since(startTime)
		return CleaningResult{Points: c.pts, Stats: st}, nil
	}

	c.prepare()

	// Pass 1: spread the distance of mis-recorded pauses over their duration
	c.smoothPauses(&st)

	// Pass 2: bound speeds and rebuild the cumulative distance
	c.repairOutliers(&st)
	c.rebuildDistance()

	st.FinalPoints = len(c.pts)
	st.FinalDistance = lastDistance(c.pts) / 1000
	st.DistanceReduced = st.OriginalDistance - st.FinalDistance
	if st.OriginalDistance > 0 {
		st.DistancePercent = st.DistanceReduced / st.OriginalDistance * 100
	}
	st.ProcessingTime = time.Since(startTime)

	c.log.Info("cleaning completed",
		zap.Int("points", st.FinalPoints),
		zap.Int("pauses_smoothed", st.PausesSmoothed),
		zap.Int("outliers_repaired", st.OutliersRepaired),
		zap.Int("stops_forced", st.StopsForced),
		zap.Float64("original_km", st.OriginalDistance),
		zap.Float64("final_km", st.FinalDistance),
		zap.Duration("elapsed", st.ProcessingTime))

	return CleaningResult{Points: c.pts, Stats: st}, nil
}

func withDefaults(cfg Config) Config {
	def := DefaultConfig()
	if cfg.MaxSpeed <= 0 {
		cfg.MaxSpeed = def.MaxSpeed
	}
	if cfg.MaxStep <= 0 {
		cfg.MaxStep = def.MaxStep
	}
	if cfg.Window <= 0 {
		cfg.Window = def.Window
	}
	if cfg.PauseTolerancePct <= 0 {
		cfg.PauseTolerancePct = def.PauseTolerancePct
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return cfg
}

type cleaner struct {
	cfg Config
	pts []track.Record
	rng *rand.Rand
	log *zap.Logger
}

// prepare carries the last known distance over gaps so every point has one.
func (c *cleaner) prepare() {
	last := 0.0
	for i := range c.pts {
		if d, ok := c.pts[i].Float(track.Distance); ok {
			last = d
			continue
		}
		c.pts[i].Set(track.Distance, last)
	}
}

func (c *cleaner) distance(i int) float64 {
	d, _ := c.pts[i].Float(track.Distance)
	return d
}

func (c *cleaner) cadence(i int) (float64, bool) {
	return c.pts[i].Float(track.Cadence)
}

// distanceDelta is the distance covered by step i; the first point counts
// from zero.
func (c *cleaner) distanceDelta(i int) float64 {
	if i <= 0 {
		return c.distance(0)
	}
	return c.distance(i) - c.distance(i-1)
}

// timeDelta is the gap in seconds between point i and its predecessor.
func (c *cleaner) timeDelta(i int) float64 {
	if i <= 0 {
		return 0
	}
	return c.pts[i].Time.Sub(c.pts[i-1].Time).Seconds()
}

// derivedSpeed is the km/h speed implied by the distance and time deltas of
// step i, 0 when the time delta is not positive.
func (c *cleaner) derivedSpeed(i int) float64 {
	td := c.timeDelta(i)
	if td <= 0 {
		return 0
	}
	return c.distanceDelta(i) / td * kmh
}

// recordedSpeed is the speed field in km/h, 0 when unknown.
func (c *cleaner) recordedSpeed(i int) float64 {
	v, ok := c.pts[i].Float(track.Speed)
	if !ok {
		return 0
	}
	return v * kmh
}

func (c *cleaner) setSpeed(i int, kmhSpeed float64) {
	if math.IsNaN(kmhSpeed) || kmhSpeed < 0 {
		kmhSpeed = 0
	}
	c.pts[i].Set(track.Speed, kmhSpeed/kmh)
}

// rebuildDistance integrates the repaired speeds, keeping the first
// point's distance.
func (c *cleaner) rebuildDistance() {
	for i := 1; i < len(c.pts); i++ {
		td := max(c.timeDelta(i), 0)
		v, _ := c.pts[i].Float(track.Speed)
		c.pts[i].Set(track.Distance, c.distance(i-1)+v*td)
	}
}

func lastDistance(points []track.Record) float64 {
	for i := len(points) - 1; i >= 0; i-- {
		if d, ok := points[i].Float(track.Distance); ok {
			return d
		}
	}
	return 0
}
