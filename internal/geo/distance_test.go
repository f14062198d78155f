package geo

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/planbiir/trkm/internal/track"
)

func TestDistanceMeters(t *testing.T) {
	// 0.001 degree diagonal at 46N is roughly 136m.
	d := DistanceMeters(46.0, 7.0, 46.001, 7.001)
	assert.InDelta(t, 136, d, 10)
	assert.Zero(t, DistanceMeters(46.0, 7.0, 46.0, 7.0))
}

func TestWithDistanceFillsMissing(t *testing.T) {
	base := time.Date(2025, 1, 1, 7, 0, 0, 0, time.UTC)
	var recs []track.Record
	for i := 0; i < 3; i++ {
		var r track.Record
		r.Time = base.Add(time.Duration(i) * time.Second)
		r.Set(track.Latitude, 46.0+float64(i)*0.001)
		r.Set(track.Longitude, 7.0)
		recs = append(recs, r)
	}
	recs[2].Set(track.Distance, 5000)

	out, err := track.Collect(WithDistance(track.NewSliceSource("a", recs)))
	require.NoError(t, err)
	require.Len(t, out, 3)

	d0, ok := out[0].Float(track.Distance)
	require.True(t, ok)
	assert.Zero(t, d0)

	d1, ok := out[1].Float(track.Distance)
	require.True(t, ok)
	assert.InDelta(t, 111, d1, 2)

	d2, _ := out[2].Float(track.Distance)
	assert.Equal(t, 5000.0, d2)
}

func TestPathLengthSkipsUnpositioned(t *testing.T) {
	recs := make([]track.Record, 3)
	recs[0].Set(track.Latitude, 46.0)
	recs[0].Set(track.Longitude, 7.0)
	recs[2].Set(track.Latitude, 46.001)
	recs[2].Set(track.Longitude, 7.0)
	assert.InDelta(t, 111, PathLength(recs), 2)
}
