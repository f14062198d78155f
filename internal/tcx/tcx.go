// Package tcx reads Garmin Training Center (TCX) activity files.
package tcx

import (
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/planbiir/trkm/internal/geo"
	"github.com/planbiir/trkm/internal/track"
)

// Database is the TrainingCenterDatabase root element.
type Database struct {
	XMLName    xml.Name   `xml:"TrainingCenterDatabase"`
	Activities []Activity `xml:"Activities>Activity"`
}

// Activity is one recorded session.
type Activity struct {
	Sport string `xml:"Sport,attr"`
	ID    string `xml:"Id"`
	Laps  []Lap  `xml:"Lap"`
}

// Lap groups the trackpoints of one lap.
type Lap struct {
	StartTime string       `xml:"StartTime,attr"`
	Tracks    []Trackpoint `xml:"Track>Trackpoint"`
}

// Trackpoint is one sample. Optional elements are pointers.
type Trackpoint struct {
	Time       time.Time  `xml:"Time"`
	Position   *Position  `xml:"Position"`
	Altitude   *float64   `xml:"AltitudeMeters"`
	Distance   *float64   `xml:"DistanceMeters"`
	HeartRate  *HeartRate `xml:"HeartRateBpm"`
	Cadence    *float64   `xml:"Cadence"`
	Extensions *TPX       `xml:"Extensions>TPX"`
}

// Position is a WGS84 coordinate.
type Position struct {
	Latitude  float64 `xml:"LatitudeDegrees"`
	Longitude float64 `xml:"LongitudeDegrees"`
}

// HeartRate wraps the bpm value.
type HeartRate struct {
	Value float64 `xml:"Value"`
}

// TPX is the ActivityExtension v2 trackpoint block.
type TPX struct {
	Speed      *float64 `xml:"Speed"`
	RunCadence *float64 `xml:"RunCadence"`
}

// Decode parses a TCX document.
func Decode(r io.Reader) (*Database, error) {
	var db Database
	if err := xml.NewDecoder(r).Decode(&db); err != nil {
		return nil, fmt.Errorf("failed to parse TCX: %w", err)
	}
	return &db, nil
}

// Open parses a TCX file and returns its trackpoints, across all activities
// and laps, as a record source named after the file.
func Open(path string) (track.Source, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	db, err := Decode(file)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return NewSource(name, db), nil
}

// NewSource returns the trackpoints of db as a record source. Trackpoints
// without a distance get the cumulative path length.
func NewSource(name string, db *Database) track.Source {
	var records []track.Record
	for _, act := range db.Activities {
		for _, lap := range act.Laps {
			for i := range lap.Tracks {
				records = append(records, trackpointRecord(name, &lap.Tracks[i]))
			}
		}
	}
	return geo.WithDistance(track.NewSliceSource(name, records))
}

func trackpointRecord(name string, tp *Trackpoint) track.Record {
	rec := track.Record{Name: name, Time: tp.Time}
	if tp.Position != nil {
		rec.Set(track.Latitude, tp.Position.Latitude)
		rec.Set(track.Longitude, tp.Position.Longitude)
	}
	rec.SetOptional(track.Altitude, tp.Altitude)
	rec.SetOptional(track.Distance, tp.Distance)
	if tp.HeartRate != nil {
		rec.Set(track.HeartRate, tp.HeartRate.Value)
	}
	rec.SetOptional(track.Cadence, tp.Cadence)
	if x := tp.Extensions; x != nil {
		rec.SetOptional(track.Speed, x.Speed)
		if tp.Cadence == nil {
			rec.SetOptional(track.Cadence, x.RunCadence)
		}
	}
	return rec
}
