package faker

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ConfigError reports an unusable generator parameter.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("faker: %s: %s", e.Field, e.Reason)
}

func configErr(field, format string, args ...any) error {
	return &ConfigError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// Range is an inclusive [Lo, Hi] interval. In YAML it is written as a
// sequence or a comma separated string; the first and last entries are used.
type Range struct {
	Lo, Hi float64
}

func (r *Range) UnmarshalYAML(node *yaml.Node) error {
	parts, err := rangeParts(node)
	if err != nil {
		return err
	}
	vals := make([]float64, len(parts))
	for i, p := range parts {
		v, err := strconv.ParseFloat(p, 64)
		if err != nil {
			return fmt.Errorf("line %d: invalid number %q", node.Line, p)
		}
		vals[i] = v
	}
	r.Lo, r.Hi = vals[0], vals[len(vals)-1]
	return nil
}

// TimeRange is the start and end of the generated activity.
type TimeRange struct {
	Start, End time.Time
}

var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05Z0700",
	"2006-01-02T15:04:05Z0700",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
}

func parseTime(s string) (time.Time, error) {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid time %q", s)
}

func (r *TimeRange) UnmarshalYAML(node *yaml.Node) error {
	parts, err := rangeParts(node)
	if err != nil {
		return err
	}
	if r.Start, err = parseTime(parts[0]); err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	if r.End, err = parseTime(parts[len(parts)-1]); err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	return nil
}

func rangeParts(node *yaml.Node) ([]string, error) {
	var parts []string
	switch node.Kind {
	case yaml.ScalarNode:
		parts = strings.Split(node.Value, ",")
	case yaml.SequenceNode:
		for _, n := range node.Content {
			if n.Kind != yaml.ScalarNode {
				return nil, fmt.Errorf("line %d: range entries must be scalars", n.Line)
			}
			parts = append(parts, n.Value)
		}
	default:
		return nil, fmt.Errorf("line %d: expected a range", node.Line)
	}
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	if len(parts) == 0 || parts[0] == "" {
		return nil, fmt.Errorf("line %d: empty range", node.Line)
	}
	return parts, nil
}

// Config describes one synthetic activity.
type Config struct {
	Name string `yaml:"name"`

	Time     TimeRange `yaml:"time"`
	Distance float64   `yaml:"distance"` // km

	Speed   Range `yaml:"speed"` // km/h
	Cadence Range `yaml:"cadence"`

	BaseHeartRate   float64 `yaml:"base_heart_rate"`
	HeartRate       Range   `yaml:"heart_rate"`
	HREffectDelay   int     `yaml:"hr_effect_delay"`   // s
	HREffectLasting int     `yaml:"hr_effect_lasting"` // s

	// Pauses lists pause lengths in seconds. Positions are drawn at random.
	Pauses []int `yaml:"pauses"`

	Seed uint64 `yaml:"seed"`
}

// Duration is the activity length in whole seconds.
func (c Config) Duration() int {
	return int(c.Time.End.Sub(c.Time.Start) / time.Second)
}

// AverageSpeed is the speed in km/h needed to cover Distance in Duration.
func (c Config) AverageSpeed() float64 {
	d := c.Duration()
	if d <= 0 {
		return 0
	}
	return c.Distance / (float64(d) / 3600)
}

// Validate checks that the parameters describe a feasible activity.
func (c Config) Validate() error {
	if c.Time.Start.IsZero() || c.Time.End.IsZero() {
		return configErr("time", "start and end are required")
	}
	if c.Duration() < 1 {
		return configErr("time", "end %s is not after start %s",
			c.Time.End.Format(time.RFC3339), c.Time.Start.Format(time.RFC3339))
	}
	if c.Distance <= 0 {
		return configErr("distance", "must be positive, got %g", c.Distance)
	}
	if c.Speed.Lo < 0 || c.Speed.Hi <= c.Speed.Lo {
		return configErr("speed", "invalid range %g - %g", c.Speed.Lo, c.Speed.Hi)
	}
	if c.Cadence.Lo <= 0 || c.Cadence.Hi < c.Cadence.Lo {
		return configErr("cadence", "invalid range %g - %g", c.Cadence.Lo, c.Cadence.Hi)
	}
	if c.HeartRate.Lo <= 0 || c.HeartRate.Hi < c.HeartRate.Lo {
		return configErr("heart_rate", "invalid range %g - %g", c.HeartRate.Lo, c.HeartRate.Hi)
	}
	if c.BaseHeartRate < 0 {
		return configErr("base_heart_rate", "must not be negative, got %g", c.BaseHeartRate)
	}
	if c.HREffectDelay < 0 {
		return configErr("hr_effect_delay", "must not be negative, got %d", c.HREffectDelay)
	}
	if c.HREffectLasting < 1 {
		return configErr("hr_effect_lasting", "must be at least 1, got %d", c.HREffectLasting)
	}
	for _, p := range c.Pauses {
		if p <= 0 || p >= c.Duration() {
			return configErr("pauses", "pause of %ds does not fit a %ds activity", p, c.Duration())
		}
	}
	if avg := c.AverageSpeed(); avg < c.Speed.Lo || avg > c.Speed.Hi {
		return configErr("speed", "required average speed %.2f is not in permitted range %g - %g",
			avg, c.Speed.Lo, c.Speed.Hi)
	}
	return nil
}

// ParseConfig decodes and validates a YAML activity description. Unknown
// keys are rejected.
func ParseConfig(data []byte) (Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse faker config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadConfig reads a YAML activity description. The name defaults to the
// file name without its extension.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read %s: %w", path, err)
	}
	cfg, err := ParseConfig(data)
	if err != nil {
		return Config{}, err
	}
	if cfg.Name == "" {
		base := filepath.Base(path)
		cfg.Name = strings.TrimSuffix(base, filepath.Ext(base))
	}
	return cfg, nil
}
