package track

import (
	"fmt"
	"math"
	"strconv"
	"time"
)

// Attr identifies one optional numeric attribute of a telemetry record.
type Attr int

const (
	Latitude Attr = iota
	Longitude
	Altitude
	HeartRate
	Cadence
	Speed    // m/s
	Distance // cumulative meters
	Temperature

	NumAttrs int = iota
)

var attrNames = [NumAttrs]string{
	Latitude:    "lat",
	Longitude:   "lon",
	Altitude:    "alt",
	HeartRate:   "hr",
	Cadence:     "cadence",
	Speed:       "speed",
	Distance:    "distance",
	Temperature: "temperature",
}

func (a Attr) String() string {
	if a < 0 || int(a) >= NumAttrs {
		return "attr(" + strconv.Itoa(int(a)) + ")"
	}
	return attrNames[a]
}

// Attrs lists every attribute in declaration order.
func Attrs() []Attr {
	out := make([]Attr, NumAttrs)
	for i := range out {
		out[i] = Attr(i)
	}
	return out
}

// ParseAttr maps a name produced by Attr.String back to the attribute.
func ParseAttr(name string) (Attr, error) {
	for i, n := range attrNames {
		if n == name {
			return Attr(i), nil
		}
	}
	return 0, fmt.Errorf("unknown attribute %q", name)
}

// Kind tells what a Value holds.
type Kind uint8

const (
	KindAbsent Kind = iota
	KindNumber
	KindText
)

// Value is one optional reading. Sources that decode loosely typed data may
// report KindText; the merger refuses to average those.
type Value struct {
	Kind Kind
	Num  float64
	Text string
}

// Number wraps a numeric reading.
func Number(v float64) Value { return Value{Kind: KindNumber, Num: v} }

// Text wraps a reading the source could not interpret as a number.
func Text(s string) Value { return Value{Kind: KindText, Text: s} }

// Missing is the absent value.
func Missing() Value { return Value{} }

// Known reports whether v is a usable number (present and not NaN).
func (v Value) Known() bool {
	return v.Kind == KindNumber && !math.IsNaN(v.Num)
}

// Float returns the number and whether it is known.
func (v Value) Float() (float64, bool) {
	if !v.Known() {
		return 0, false
	}
	return v.Num, true
}

func (v Value) String() string {
	switch v.Kind {
	case KindNumber:
		return strconv.FormatFloat(v.Num, 'f', -1, 64)
	case KindText:
		return strconv.Quote(v.Text)
	default:
		return "<unknown>"
	}
}

// Record is one timestamped sample.
type Record struct {
	Name   string
	Time   time.Time
	Values [NumAttrs]Value
}

// Get returns the value of attribute a.
func (r *Record) Get(a Attr) Value { return r.Values[a] }

// Set stores a numeric value for a.
func (r *Record) Set(a Attr, v float64) { r.Values[a] = Number(v) }

// SetValue stores v for a.
func (r *Record) SetValue(a Attr, v Value) { r.Values[a] = v }

// Clear marks a as absent.
func (r *Record) Clear(a Attr) { r.Values[a] = Value{} }

// Float is a shorthand for r.Get(a).Float().
func (r *Record) Float(a Attr) (float64, bool) { return r.Values[a].Float() }

// HasPosition reports whether both coordinates are known.
func (r *Record) HasPosition() bool {
	return r.Values[Latitude].Known() && r.Values[Longitude].Known()
}

// SetOptional stores p when non-nil and leaves the attribute absent otherwise.
func (r *Record) SetOptional(a Attr, p *float64) {
	if p == nil {
		r.Values[a] = Value{}
		return
	}
	r.Values[a] = Number(*p)
}
