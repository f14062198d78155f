package gpx

import (
	"fmt"
	"io"
	"os"

	"github.com/planbiir/trkm/internal/track"
)

// FromRecords builds a single-track GPX document. Records without a
// position cannot be represented and are skipped; the number skipped is
// returned alongside.
func FromRecords(name string, records []track.Record) (*GPX, int) {
	seg := TrackSegment{Points: make([]Point, 0, len(records))}
	skipped := 0
	for i := range records {
		r := &records[i]
		if !r.HasPosition() {
			skipped++
			continue
		}
		lat, _ := r.Float(track.Latitude)
		lon, _ := r.Float(track.Longitude)
		p := Point{Lat: lat, Lon: lon, Time: r.Time.UTC(), PtIdx: len(seg.Points)}
		if ele, ok := r.Float(track.Altitude); ok {
			p.Elevation = &ele
		}
		p.Extensions = Sensors{
			HeartRate:   optional(r, track.HeartRate),
			Cadence:     optional(r, track.Cadence),
			Temperature: optional(r, track.Temperature),
		}.Encode()
		seg.Points = append(seg.Points, p)
	}

	g := &GPX{
		Version:     "1.1",
		Creator:     Creator,
		XMLNS:       Namespace,
		XMLNSXSI:    xsiNamespace,
		XSI:         schemaLocation,
		XMLNSGPXTPX: TrackPointExtensionNS,
		Tracks:      []Track{{Name: name, Segments: []TrackSegment{seg}}},
	}
	if len(seg.Points) > 0 {
		start := seg.Points[0].Time
		g.Metadata = &Metadata{Name: name, Time: &start}
	}
	return g, skipped
}

// Encode writes records as a GPX 1.1 document.
func Encode(w io.Writer, name string, records []track.Record) error {
	g, _ := FromRecords(name, records)
	return g.WriteToWriter(w)
}

// WriteFile writes records to path as GPX. The file is only created once the
// document has been built.
func WriteFile(path, name string, records []track.Record) error {
	g, _ := FromRecords(name, records)
	if len(g.Tracks[0].Segments[0].Points) == 0 {
		return fmt.Errorf("no positioned points to write to %s", path)
	}
	if err := g.Write(path); err != nil {
		os.Remove(path)
		return err
	}
	return nil
}

func optional(r *track.Record, a track.Attr) *float64 {
	v, ok := r.Float(a)
	if !ok {
		return nil
	}
	return &v
}
