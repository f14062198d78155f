package geojson

import (
	"bytes"
	"testing"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/planbiir/trkm/internal/track"
)

var base = time.Date(2025, 7, 1, 5, 0, 0, 0, time.UTC)

func line(n int) []track.Record {
	out := make([]track.Record, n)
	for i := range out {
		r := track.Record{Name: "a-b", Time: base.Add(time.Duration(i) * time.Second)}
		r.Set(track.Latitude, 46)
		r.Set(track.Longitude, 7+float64(i)*0.001)
		r.Set(track.Distance, float64(i)*77)
		r.Set(track.HeartRate, 130)
		out[i] = r
	}
	return out
}

func TestBuildLine(t *testing.T) {
	records := line(4)
	records = append(records, track.Record{Time: base.Add(time.Minute)})

	fc := Build("ride", records, Options{})
	require.Len(t, fc.Features, 1)

	f := fc.Features[0]
	ls, ok := f.Geometry.(orb.LineString)
	require.True(t, ok)
	require.Len(t, ls, 4)
	assert.InDelta(t, 7.001, ls[1].Lon(), 1e-12)
	assert.Equal(t, 46.0, ls[1].Lat())
	assert.Equal(t, "ride", f.Properties["name"])
	assert.Equal(t, 4, f.Properties["points"])
	assert.Equal(t, 231.0, f.Properties["distance"])
	assert.Len(t, f.Properties["coordTimes"], 4)
}

func TestBuildSimplifiesCollinearPoints(t *testing.T) {
	fc := Build("ride", line(10), Options{Tolerance: 1e-6})
	require.Len(t, fc.Features, 1)
	ls, ok := fc.Features[0].Geometry.(orb.LineString)
	require.True(t, ok)
	assert.Len(t, ls, 2)
}

func TestBuildPointFeatures(t *testing.T) {
	fc := Build("ride", line(3), Options{Points: true})
	require.Len(t, fc.Features, 4)

	p := fc.Features[1]
	_, ok := p.Geometry.(orb.Point)
	require.True(t, ok)
	assert.Equal(t, 130.0, p.Properties["hr"])
	assert.Equal(t, "a-b", p.Properties["name"])
	assert.NotContains(t, p.Properties, "lat")
}

func TestEncodeRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, "ride", line(3), Options{}))

	fc, err := geojson.UnmarshalFeatureCollection(buf.Bytes())
	require.NoError(t, err)
	require.Len(t, fc.Features, 1)
	assert.Equal(t, "LineString", fc.Features[0].Geometry.GeoJSONType())
}

func TestEncodeRejectsEmpty(t *testing.T) {
	var buf bytes.Buffer
	assert.Error(t, Encode(&buf, "ride", []track.Record{{Time: base}}, Options{}))
	assert.Zero(t, buf.Len())
}
