// Package options holds the flat, string-keyed option set shared by the
// pipeline stages.
package options

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Options maps option names to their textual values. Typed accessors return
// the zero value of their type when a key is absent or does not parse.
type Options map[string]string

// Load reads a flat YAML mapping from path.
func Load(path string) (Options, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read options: %w", err)
	}
	return Parse(data)
}

// Parse decodes a flat YAML mapping. Scalar values of any YAML type are kept
// in their textual form.
func Parse(data []byte) (Options, error) {
	var raw map[string]yaml.Node
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse options: %w", err)
	}
	opts := make(Options, len(raw))
	for key, node := range raw {
		if node.Kind != yaml.ScalarNode {
			return nil, fmt.Errorf("option %q: expected a scalar value", key)
		}
		opts[key] = node.Value
	}
	return opts, nil
}

// ParseAssignment parses a "key=value" pair as given on the command line.
func ParseAssignment(s string) (string, string, error) {
	key, value, ok := strings.Cut(s, "=")
	key = strings.TrimSpace(key)
	if !ok || key == "" {
		return "", "", fmt.Errorf("invalid option %q: want key=value", s)
	}
	return key, strings.TrimSpace(value), nil
}

// Set stores value under key.
func (o Options) Set(key, value string) { o[key] = value }

// Has reports whether key is set.
func (o Options) Has(key string) bool {
	_, ok := o[key]
	return ok
}

// String returns the raw value of key.
func (o Options) String(key string) string { return o[key] }

// Int returns key as an integer, 0 when absent.
func (o Options) Int(key string) int {
	v, err := strconv.Atoi(strings.TrimSpace(o[key]))
	if err != nil {
		return 0
	}
	return v
}

// Float returns key as a float, 0.0 when absent.
func (o Options) Float(key string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(o[key]), 64)
	if err != nil {
		return 0
	}
	return v
}

// Bool returns key as a boolean, false when absent. Besides the strconv
// spellings, yes/no and on/off are accepted.
func (o Options) Bool(key string) bool {
	s := strings.ToLower(strings.TrimSpace(o[key]))
	switch s {
	case "yes", "on", "y":
		return true
	case "no", "off", "n", "":
		return false
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		return false
	}
	return v
}

// Merge copies every key of other into o, overriding existing values.
func (o Options) Merge(other Options) {
	for k, v := range other {
		o[k] = v
	}
}

// Keys returns the option names in sorted order.
func (o Options) Keys() []string {
	keys := make([]string, 0, len(o))
	for k := range o {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
