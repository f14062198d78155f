package gpx

import (
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/planbiir/trkm/internal/geo"
)

// Parse reads and parses a GPX file, preserving all extensions and namespaces
func Parse(filename string) (*GPX, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	return ParseReader(file)
}

// ParseReader parses GPX from an io.Reader
func ParseReader(r io.Reader) (*GPX, error) {
	decoder := xml.NewDecoder(r)

	var gpxData GPX
	if err := decoder.Decode(&gpxData); err != nil {
		return nil, fmt.Errorf("failed to parse GPX: %w", err)
	}

	// Set default namespaces if missing
	if gpxData.XMLNS == "" {
		gpxData.XMLNS = Namespace
	}
	if gpxData.Version == "" {
		gpxData.Version = "1.1"
	}
	if gpxData.Creator == "" {
		gpxData.Creator = Creator
	}

	// Add internal indices for multi-segment preservation
	for trackIdx, track := range gpxData.Tracks {
		for segIdx, segment := range track.Segments {
			for ptIdx := range segment.Points {
				gpxData.Tracks[trackIdx].Segments[segIdx].Points[ptIdx].TrackIdx = trackIdx
				gpxData.Tracks[trackIdx].Segments[segIdx].Points[ptIdx].SegIdx = segIdx
				gpxData.Tracks[trackIdx].Segments[segIdx].Points[ptIdx].PtIdx = ptIdx
			}
		}
	}

	return &gpxData, nil
}

// Write saves GPX data to a file, preserving all extensions and structure
func (g *GPX) Write(filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}

	if err := g.WriteToWriter(file); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

// WriteToWriter writes GPX data to an io.Writer
func (g *GPX) WriteToWriter(w io.Writer) error {
	// Write XML header
	if _, err := w.Write([]byte(xml.Header)); err != nil {
		return err
	}

	encoder := xml.NewEncoder(w)
	encoder.Indent("", "  ")

	if err := encoder.Encode(g); err != nil {
		return fmt.Errorf("failed to encode GPX: %w", err)
	}
	if _, err := w.Write([]byte("\n")); err != nil {
		return err
	}

	return nil
}

// Name returns the first non-empty track name, falling back to the metadata name.
func (g *GPX) Name() string {
	for _, t := range g.Tracks {
		if t.Name != "" {
			return t.Name
		}
	}
	if g.Metadata != nil {
		return g.Metadata.Name
	}
	return ""
}

// FlattenPoints returns all points from all tracks and segments in order
func (g *GPX) FlattenPoints() []Point {
	var points []Point

	for trackIdx, track := range g.Tracks {
		for segIdx, segment := range track.Segments {
			for ptIdx, point := range segment.Points {
				point.TrackIdx = trackIdx
				point.SegIdx = segIdx
				point.PtIdx = ptIdx
				points = append(points, point)
			}
		}
	}

	return points
}

// Stats returns basic statistics about the GPX data. Distance is in km.
func (g *GPX) Stats() (pointCount int, trackCount int, segmentCount int, duration time.Duration, distance float64) {
	points := g.FlattenPoints()
	pointCount = len(points)
	trackCount = len(g.Tracks)

	for _, track := range g.Tracks {
		segmentCount += len(track.Segments)
	}

	if len(points) >= 2 {
		duration = points[len(points)-1].Time.Sub(points[0].Time)
		for i := 1; i < len(points); i++ {
			distance += geo.DistanceMeters(points[i-1].Lat, points[i-1].Lon, points[i].Lat, points[i].Lon) / 1000
		}
	}

	return
}
