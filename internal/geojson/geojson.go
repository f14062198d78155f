// Package geojson writes merged tracks as GeoJSON feature collections.
package geojson

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/simplify"

	"github.com/planbiir/trkm/internal/track"
)

// Options controls what the collection contains.
type Options struct {
	// Tolerance, in degrees, for Douglas-Peucker simplification of the line.
	// Zero keeps every point.
	Tolerance float64

	// Points adds one Point feature per positioned record carrying its
	// attributes as properties.
	Points bool
}

// Build returns a collection holding the track line and, if requested, its
// points. Records without a position are left out.
func Build(name string, records []track.Record, opts Options) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()

	line := make(orb.LineString, 0, len(records))
	times := make([]string, 0, len(records))
	var pointFeatures []*geojson.Feature
	for i := range records {
		r := &records[i]
		if !r.HasPosition() {
			continue
		}
		lat, _ := r.Float(track.Latitude)
		lon, _ := r.Float(track.Longitude)
		pt := orb.Point{lon, lat}
		line = append(line, pt)
		times = append(times, r.Time.UTC().Format(time.RFC3339))

		if opts.Points {
			f := geojson.NewFeature(pt)
			f.Properties["name"] = r.Name
			f.Properties["time"] = r.Time.UTC().Format(time.RFC3339)
			for _, a := range track.Attrs() {
				if a == track.Latitude || a == track.Longitude {
					continue
				}
				if v, ok := r.Float(a); ok {
					f.Properties[a.String()] = v
				}
			}
			pointFeatures = append(pointFeatures, f)
		}
	}

	if len(line) >= 2 {
		var geom orb.Geometry = line
		props := geojson.Properties{"name": name, "points": len(line)}
		if opts.Tolerance > 0 {
			geom = simplify.DouglasPeucker(opts.Tolerance).Simplify(line.Clone())
		} else {
			props["coordTimes"] = times
		}
		if d, ok := lastDistance(records); ok {
			props["distance"] = d
		}
		f := geojson.NewFeature(geom)
		f.Properties = props
		fc.Append(f)
	}
	for _, f := range pointFeatures {
		fc.Append(f)
	}
	return fc
}

// Encode writes records as an indented GeoJSON feature collection.
func Encode(w io.Writer, name string, records []track.Record, opts Options) error {
	fc := Build(name, records, opts)
	if len(fc.Features) == 0 {
		return fmt.Errorf("no positioned points to write")
	}
	data, err := json.MarshalIndent(fc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode GeoJSON: %w", err)
	}
	if _, err := w.Write(append(data, '\n')); err != nil {
		return err
	}
	return nil
}

func lastDistance(records []track.Record) (float64, bool) {
	for i := len(records) - 1; i >= 0; i-- {
		if d, ok := records[i].Float(track.Distance); ok {
			return d, true
		}
	}
	return 0, false
}
