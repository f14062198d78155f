package gpx

import (
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/planbiir/trkm/internal/geo"
	"github.com/planbiir/trkm/internal/track"
)

// Open parses a GPX file and returns it as a record source. The source is
// named after the first track, or the file name when no track has one.
// Records lacking a distance get the cumulative path length.
func Open(path string) (track.Source, error) {
	g, err := Parse(path)
	if err != nil {
		return nil, err
	}
	name := g.Name()
	if name == "" {
		name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return NewSource(name, g), nil
}

// NewSource returns the points of g, across all tracks and segments, as a
// record source.
func NewSource(name string, g *GPX) track.Source {
	return geo.WithDistance(&pointSource{name: name, points: g.FlattenPoints()})
}

type pointSource struct {
	name   string
	points []Point
	pos    int
}

func (s *pointSource) Name() string { return s.name }

func (s *pointSource) Next() (track.Record, error) {
	if s.pos >= len(s.points) {
		return track.Record{}, io.EOF
	}
	p := s.points[s.pos]
	s.pos++

	rec, err := pointRecord(s.name, &p)
	if err != nil {
		return track.Record{}, fmt.Errorf("%s: track %d segment %d point %d: %w",
			s.name, p.TrackIdx, p.SegIdx, p.PtIdx, err)
	}
	return rec, nil
}

// pointRecord converts a GPX point. Sensor readings that are not numbers are
// kept as text so the merge can reject them.
func pointRecord(name string, p *Point) (track.Record, error) {
	rec := track.Record{Name: name, Time: p.Time}
	rec.Set(track.Latitude, p.Lat)
	rec.Set(track.Longitude, p.Lon)
	rec.SetOptional(track.Altitude, p.Elevation)

	values, err := sensorText(p.Extensions)
	if err != nil {
		return rec, err
	}
	for key, attr := range map[string]track.Attr{
		"hr":    track.HeartRate,
		"cad":   track.Cadence,
		"atemp": track.Temperature,
		"speed": track.Speed,
	} {
		text, ok := values[key]
		if !ok {
			continue
		}
		if v, err := strconv.ParseFloat(text, 64); err == nil {
			rec.Set(attr, v)
		} else {
			rec.SetValue(attr, track.Text(text))
		}
	}
	return rec, nil
}
