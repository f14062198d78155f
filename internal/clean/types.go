package clean

import (
	"math/rand/v2"
	"time"

	"go.uber.org/zap"

	"github.com/planbiir/trkm/internal/options"
	"github.com/planbiir/trkm/internal/track"
)

// Config holds cleaning parameters
type Config struct {
	// Speed threshold
	MaxSpeed float64 // km/h - anything faster is an outlier

	// Gap handling
	MaxStep float64 // seconds - longer gaps are not usable time

	// Neighborhood statistics
	Window int // valid samples taken on each side of an outlier

	// Pause detection
	PauseTolerancePct float64 // percent - per-step distance tolerance

	// Verbose logs per-pause and per-outlier diagnostics at info level.
	Verbose bool

	// Rand drives the cadence jitter. When nil a generator seeded with Seed is used.
	Rand *rand.Rand
	Seed uint64

	Logger *zap.Logger
}

// DefaultConfig returns production-tested configuration
func DefaultConfig() Config {
	return Config{
		MaxSpeed:          50.0, // km/h - fast road cycling
		MaxStep:           10.0, // seconds - typical auto-pause threshold
		Window:            10,   // samples per side
		PauseTolerancePct: 10.0, // percent
	}
}

// ConfigFromOptions builds a configuration from a flat option set. Missing
// or zero values fall back to the defaults.
func ConfigFromOptions(opts options.Options) Config {
	cfg := DefaultConfig()
	if v := opts.Float("MaxSpeed"); v > 0 {
		cfg.MaxSpeed = v
	}
	if v := opts.Float("MaxStep"); v > 0 {
		cfg.MaxStep = v
	}
	if v := opts.Int("Window"); v > 0 {
		cfg.Window = v
	}
	if v := opts.Float("PauseTolerance"); v > 0 {
		cfg.PauseTolerancePct = v
	}
	cfg.Verbose = opts.Bool("verbose")
	if v := opts.Int("Seed"); v > 0 {
		cfg.Seed = uint64(v)
	}
	return cfg
}

// Stats represents cleaning results and metrics
type Stats struct {
	// Input
	OriginalPoints   int     `json:"original_points"`
	OriginalDistance float64 `json:"original_distance_km"`

	// Pass 1
	PausesFound    int `json:"pauses_found"`
	PausesSmoothed int `json:"pauses_smoothed"`

	// Pass 2
	StopsForced      int `json:"stops_forced"`
	OutliersRepaired int `json:"outliers_repaired"`
	SpeedsRaised     int `json:"speeds_raised"`

	// Results
	FinalPoints     int     `json:"final_points"`
	FinalDistance   float64 `json:"final_distance_km"`
	DistanceReduced float64 `json:"distance_reduced_km"`
	DistancePercent float64 `json:"distance_reduced_percent"`

	// Performance
	ProcessingTime time.Duration `json:"processing_time_ms"`
}

// CleaningResult contains the repaired points and statistics
type CleaningResult struct {
	Points []track.Record
	Stats  Stats
}
