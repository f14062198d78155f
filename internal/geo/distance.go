package geo

import (
	"github.com/golang/geo/s2"

	"github.com/planbiir/trkm/internal/track"
)

// EarthRadiusMeters is the mean Earth radius used for great-circle distances.
const EarthRadiusMeters = 6371000.0

// DistanceMeters returns the great-circle distance between two coordinates.
func DistanceMeters(lat1, lon1, lat2, lon2 float64) float64 {
	if lat1 == lat2 && lon1 == lon2 {
		return 0
	}
	p1 := s2.LatLngFromDegrees(lat1, lon1)
	p2 := s2.LatLngFromDegrees(lat2, lon2)
	return p1.Distance(p2).Radians() * EarthRadiusMeters
}

// RecordDistance returns the distance between the positions of two records,
// or false when either lacks a position.
func RecordDistance(a, b *track.Record) (float64, bool) {
	if !a.HasPosition() || !b.HasPosition() {
		return 0, false
	}
	lat1, _ := a.Float(track.Latitude)
	lon1, _ := a.Float(track.Longitude)
	lat2, _ := b.Float(track.Latitude)
	lon2, _ := b.Float(track.Longitude)
	return DistanceMeters(lat1, lon1, lat2, lon2), true
}

// PathLength sums the distance along the positioned records.
func PathLength(records []track.Record) float64 {
	total := 0.0
	var prev *track.Record
	for i := range records {
		if !records[i].HasPosition() {
			continue
		}
		if prev != nil {
			d, _ := RecordDistance(prev, &records[i])
			total += d
		}
		prev = &records[i]
	}
	return total
}

// distanceSource derives cumulative distance from positions for records that
// do not carry one.
type distanceSource struct {
	src   track.Source
	total float64
	last  *track.Record
}

// WithDistance wraps src so every positioned record without a distance gets
// the cumulative great-circle path length up to it. Records that already carry
// a distance pass through untouched.
func WithDistance(src track.Source) track.Source {
	return &distanceSource{src: src}
}

func (d *distanceSource) Name() string { return d.src.Name() }

func (d *distanceSource) Next() (track.Record, error) {
	r, err := d.src.Next()
	if err != nil {
		return r, err
	}
	if r.HasPosition() {
		if d.last != nil {
			step, _ := RecordDistance(d.last, &r)
			d.total += step
		}
		last := r
		d.last = &last
	}
	if !r.Get(track.Distance).Known() && d.last != nil {
		r.Set(track.Distance, d.total)
	}
	return r, nil
}
