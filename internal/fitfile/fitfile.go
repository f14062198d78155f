// Package fitfile reads record messages from Garmin FIT activity files.
package fitfile

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/tormoder/fit"

	"github.com/planbiir/trkm/internal/geo"
	"github.com/planbiir/trkm/internal/track"
)

// Open decodes a FIT activity file and returns its records as a source named
// after the file.
func Open(path string) (track.Source, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fit file: %w", err)
	}
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return Decode(name, bytes.NewReader(data))
}

// Decode reads a FIT activity from r.
func Decode(name string, r io.Reader) (track.Source, error) {
	decoded, err := fit.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("decode fit: %w", err)
	}
	activity, err := decoded.Activity()
	if err != nil {
		return nil, fmt.Errorf("decode activity: %w", err)
	}
	return NewSource(name, activity.Records), nil
}

// NewSource converts record messages into a source. Fields the device marked
// invalid stay unknown; records without a distance get the cumulative path
// length.
func NewSource(name string, msgs []*fit.RecordMsg) track.Source {
	records := make([]track.Record, 0, len(msgs))
	for _, msg := range msgs {
		if msg == nil || msg.Timestamp.IsZero() {
			continue
		}
		records = append(records, Record(name, msg))
	}
	return geo.WithDistance(track.NewSliceSource(name, records))
}

// Record converts one record message.
func Record(name string, msg *fit.RecordMsg) track.Record {
	rec := track.Record{Name: name, Time: msg.Timestamp.UTC()}

	if !msg.PositionLat.Invalid() && !msg.PositionLong.Invalid() {
		rec.Set(track.Latitude, msg.PositionLat.Degrees())
		rec.Set(track.Longitude, msg.PositionLong.Degrees())
	}

	setScaled(&rec, track.Altitude, msg.GetEnhancedAltitudeScaled(), msg.GetAltitudeScaled())
	setScaled(&rec, track.Speed, msg.GetEnhancedSpeedScaled(), msg.GetSpeedScaled())
	setScaled(&rec, track.Distance, msg.GetDistanceScaled())

	if msg.HeartRate != 0xFF {
		rec.Set(track.HeartRate, float64(msg.HeartRate))
	}
	if msg.Cadence != 0xFF {
		rec.Set(track.Cadence, float64(msg.Cadence))
	}
	if msg.Temperature != 0x7F {
		rec.Set(track.Temperature, float64(msg.Temperature))
	}
	return rec
}

// setScaled stores the first candidate that is not NaN.
func setScaled(rec *track.Record, a track.Attr, candidates ...float64) {
	for _, v := range candidates {
		if !math.IsNaN(v) {
			rec.Set(a, v)
			return
		}
	}
}
