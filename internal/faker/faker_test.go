package faker

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/planbiir/trkm/internal/track"
)

const sampleConfig = `
time: 2024-05-01 10:00:00+0000, 2024-05-01 11:00:00+0000
distance: 25
speed: [5, 60]
cadence: 60, 90
base_heart_rate: 70
heart_rate: [110, 170]
hr_effect_delay: 10
hr_effect_lasting: 30
seed: 7
`

func sample(t *testing.T) Config {
	t.Helper()
	cfg, err := ParseConfig([]byte(sampleConfig))
	require.NoError(t, err)
	return cfg
}

func TestParseConfig(t *testing.T) {
	cfg := sample(t)
	assert.True(t, cfg.Time.Start.Equal(time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)))
	assert.Equal(t, 3600, cfg.Duration())
	assert.Equal(t, Range{Lo: 5, Hi: 60}, cfg.Speed)
	assert.Equal(t, Range{Lo: 60, Hi: 90}, cfg.Cadence)
	assert.Equal(t, 25.0, cfg.AverageSpeed())
	assert.Equal(t, uint64(7), cfg.Seed)
}

func TestLoadConfigDefaultsName(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sunday-ride.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleConfig), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "sunday-ride", cfg.Name)
}

func TestParseConfigRejectsUnknownKeys(t *testing.T) {
	_, err := ParseConfig([]byte(sampleConfig + "colour: red\n"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		field  string
	}{
		{"average above range", func(c *Config) { c.Distance = 100 }, "speed"},
		{"average below range", func(c *Config) { c.Distance = 1 }, "speed"},
		{"end before start", func(c *Config) { c.Time.End = c.Time.Start.Add(-time.Minute) }, "time"},
		{"inverted speed", func(c *Config) { c.Speed = Range{Lo: 60, Hi: 5} }, "speed"},
		{"zero cadence", func(c *Config) { c.Cadence.Lo = 0 }, "cadence"},
		{"no hr window", func(c *Config) { c.HREffectLasting = 0 }, "hr_effect_lasting"},
		{"pause too long", func(c *Config) { c.Pauses = []int{4000} }, "pauses"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := sample(t)
			tt.modify(&cfg)

			err := cfg.Validate()
			var cerr *ConfigError
			require.True(t, errors.As(err, &cerr), "got %v", err)
			assert.Equal(t, tt.field, cerr.Field)

			_, err = New(cfg)
			assert.True(t, errors.As(err, &cerr))
		})
	}
}

func TestGeneratedActivity(t *testing.T) {
	cfg := sample(t)
	f, err := New(cfg)
	require.NoError(t, err)

	records, err := track.Collect(f)
	require.NoError(t, err)
	require.Len(t, records, 3600)

	assert.True(t, records[0].Time.Equal(cfg.Time.Start))
	assert.True(t, records[3599].Time.Equal(cfg.Time.Start.Add(3599*time.Second)))
	assert.Equal(t, 70.0, records[0].Values[track.HeartRate].Num)

	prev := -1.0
	for i, r := range records {
		d, ok := r.Float(track.Distance)
		require.True(t, ok)
		assert.GreaterOrEqual(t, d, prev, "record %d", i)
		prev = d

		speed, _ := r.Float(track.Speed)
		kmh := speed * 3.6
		assert.GreaterOrEqual(t, kmh, cfg.Speed.Lo-1e-9)
		assert.LessOrEqual(t, kmh, cfg.Speed.Hi+1e-9)

		cad, _ := r.Float(track.Cadence)
		assert.GreaterOrEqual(t, cad, cfg.Cadence.Lo)
		assert.LessOrEqual(t, cad, cfg.Cadence.Hi)

		if i >= cfg.HREffectDelay+cfg.HREffectLasting {
			hr, _ := r.Float(track.HeartRate)
			assert.GreaterOrEqual(t, hr, cfg.HeartRate.Lo, "record %d", i)
			assert.LessOrEqual(t, hr, cfg.HeartRate.Hi, "record %d", i)
		}
	}
	assert.InEpsilon(t, cfg.Distance*1000, prev, 0.05)
}

func TestPausedSecondsHaveNoCadence(t *testing.T) {
	cfg := sample(t)
	cfg.Pauses = []int{120, 300}
	f, err := New(cfg)
	require.NoError(t, err)

	records, err := track.Collect(f)
	require.NoError(t, err)
	for _, r := range records {
		speed, _ := r.Float(track.Speed)
		cad, _ := r.Float(track.Cadence)
		if speed == 0 {
			assert.Zero(t, cad)
		} else {
			assert.GreaterOrEqual(t, speed*3.6, cfg.Speed.Lo-1e-9)
		}
	}
}

func TestSameSeedSameActivity(t *testing.T) {
	cfg := sample(t)
	cfg.Pauses = []int{200}

	a, err := New(cfg)
	require.NoError(t, err)
	b, err := New(cfg)
	require.NoError(t, err)
	assert.Equal(t, a.speeds, b.speeds)

	cfg.Seed++
	c, err := New(cfg)
	require.NoError(t, err)
	assert.NotEqual(t, a.speeds, c.speeds)
}
