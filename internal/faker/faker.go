// Package faker generates plausible synthetic activities: a speed profile
// shaped by recursive midpoint displacement with randomly placed pauses,
// cadence following speed and heart rate following cadence with a delay.
package faker

import (
	"io"
	"math"
	"math/rand/v2"
	"sort"
	"time"

	"github.com/planbiir/trkm/internal/stats"
	"github.com/planbiir/trkm/internal/track"
)

const (
	profileBase           = 1000.0
	displacementBounds    = 500.0
	displacementReduction = 0.5 // per recursion level
	minFragmentLength     = 5   // s
	pauseShape            = 1.5
	pauseLeadIn           = 2 // s
	pauseLeadOut          = 2 // s
)

type profiler struct {
	rng *rand.Rand
}

func (p profiler) displacement(v, lo, hi float64) float64 {
	return stats.Triangular(p.rng, lo, hi, v) - v
}

func (p profiler) displaceMidpoint(route *fragment, start, end int, bounds float64) {
	if end-start < minFragmentLength {
		return
	}
	at := int(stats.SymmetricTriangular(p.rng, float64(start), float64(end)))
	v := route.at(at)
	route.divide(at, p.displacement(v, v-bounds, v+bounds))
	p.displaceMidpoint(route, start, at, bounds*displacementReduction)
	p.displaceMidpoint(route, at, end, bounds*displacementReduction)
}

// speeds returns one speed per second, in km/h, averaging avg before
// clamping non-zero values into limits. Paused seconds are 0.
func (p profiler) speeds(length int, avg float64, limits Range, pauses []int) []float64 {
	lo, hi := profileBase-displacementBounds, profileBase+displacementBounds
	route := newFragment(length,
		profileBase+p.displacement(profileBase, lo, hi),
		profileBase+p.displacement(profileBase, lo, hi))
	p.displaceMidpoint(route, 0, length, displacementBounds)

	positions := make([]int, len(pauses))
	for i := range pauses {
		positions[i] = int(stats.Weibull(p.rng, float64(length), pauseShape))
	}
	sort.Ints(positions)
	for i, at := range positions {
		route.addPause(at, pauseLeadIn, pauses[i], pauseLeadOut)
	}

	raw := route.values()
	out := make([]float64, length)
	m := stats.Mean(raw)
	if m == 0 {
		return out
	}
	f := avg / m
	for i, s := range raw {
		if s == 0 {
			continue
		}
		out[i] = math.Min(math.Max(s*f, limits.Lo), limits.Hi)
	}
	return out
}

// Faker is a track.Source yielding one record per second of the configured
// activity.
type Faker struct {
	cfg    Config
	speeds []float64

	t          int
	distance   float64
	cadenceLog []float64

	cadencePerSpeed float64
	hrPerCadenceLow float64
	hrPerCadence    float64
}

// New validates cfg and generates its speed profile using cfg.Seed.
func New(cfg Config) (*Faker, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Name == "" {
		cfg.Name = "faker"
	}
	p := profiler{rng: stats.NewRand(cfg.Seed)}

	f := &Faker{
		cfg:             cfg,
		speeds:          p.speeds(cfg.Duration(), cfg.AverageSpeed(), cfg.Speed, cfg.Pauses),
		cadenceLog:      make([]float64, cfg.HREffectDelay+cfg.HREffectLasting),
		cadencePerSpeed: (cfg.Cadence.Hi - cfg.Cadence.Lo) / (cfg.Speed.Hi - cfg.Speed.Lo),
		hrPerCadenceLow: (cfg.HeartRate.Lo - cfg.BaseHeartRate) / cfg.Cadence.Lo,
	}
	if cfg.Cadence.Hi > cfg.Cadence.Lo {
		f.hrPerCadence = (cfg.HeartRate.Hi - cfg.HeartRate.Lo) / (cfg.Cadence.Hi - cfg.Cadence.Lo)
	}
	return f, nil
}

func (f *Faker) Name() string { return f.cfg.Name }

// Len returns the number of records the activity has.
func (f *Faker) Len() int { return len(f.speeds) }

func (f *Faker) Next() (track.Record, error) {
	if f.t >= len(f.speeds) {
		return track.Record{}, io.EOF
	}
	t := f.t
	f.t++

	speed := f.speeds[t]
	if t > 0 {
		f.distance += speed / 3.6
	}

	var cadence float64
	if speed > 0 {
		cadence = max(0, f.cfg.Cadence.Lo+(speed-f.cfg.Speed.Lo)*f.cadencePerSpeed)
	}
	copy(f.cadenceLog, f.cadenceLog[1:])
	f.cadenceLog[len(f.cadenceLog)-1] = cadence

	// Heart rate follows the cadence of HREffectDelay seconds ago, averaged
	// over HREffectLasting seconds.
	cm := stats.Mean(f.cadenceLog[:f.cfg.HREffectLasting])
	var hr float64
	if cm >= f.cfg.Cadence.Lo {
		hr = f.cfg.HeartRate.Lo + (cm-f.cfg.Cadence.Lo)*f.hrPerCadence
	} else {
		hr = f.cfg.BaseHeartRate + cm*f.hrPerCadenceLow
	}

	r := track.Record{
		Name: f.cfg.Name,
		Time: f.cfg.Time.Start.Add(time.Duration(t) * time.Second),
	}
	r.Set(track.HeartRate, math.Round(hr))
	r.Set(track.Cadence, math.Round(cadence))
	r.Set(track.Speed, speed/3.6)
	r.Set(track.Distance, f.distance)
	return r, nil
}
