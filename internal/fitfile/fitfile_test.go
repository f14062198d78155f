package fitfile

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tormoder/fit"

	"github.com/planbiir/trkm/internal/track"
)

var start = time.Date(2025, 5, 4, 6, 30, 0, 0, time.UTC)

func TestRecordConvertsValidFields(t *testing.T) {
	msg := fit.NewRecordMsg()
	msg.Timestamp = start
	msg.PositionLat = fit.NewLatitudeDegrees(47.25)
	msg.PositionLong = fit.NewLongitudeDegrees(8.5)
	msg.Altitude = 3000 // (3000 / 5) - 500 = 100 m
	msg.Distance = 12345
	msg.Speed = 5500
	msg.HeartRate = 151
	msg.Cadence = 92
	msg.Temperature = 18

	rec := Record("edge", msg)
	assert.Equal(t, "edge", rec.Name)
	assert.Equal(t, start, rec.Time)

	lat, ok := rec.Float(track.Latitude)
	require.True(t, ok)
	assert.InDelta(t, 47.25, lat, 1e-6)
	lon, ok := rec.Float(track.Longitude)
	require.True(t, ok)
	assert.InDelta(t, 8.5, lon, 1e-6)

	for attr, want := range map[track.Attr]float64{
		track.Altitude:    100,
		track.Distance:    123.45,
		track.Speed:       5.5,
		track.HeartRate:   151,
		track.Cadence:     92,
		track.Temperature: 18,
	} {
		got, ok := rec.Float(attr)
		require.True(t, ok, attr.String())
		assert.InDelta(t, want, got, 1e-9, attr.String())
	}
}

func TestRecordLeavesInvalidFieldsUnknown(t *testing.T) {
	msg := fit.NewRecordMsg()
	msg.Timestamp = start

	rec := Record("edge", msg)
	for _, a := range track.Attrs() {
		assert.False(t, rec.Get(a).Known(), a.String())
	}
}

func TestNewSourceDerivesDistance(t *testing.T) {
	var msgs []*fit.RecordMsg
	for i := 0; i < 3; i++ {
		msg := fit.NewRecordMsg()
		msg.Timestamp = start.Add(time.Duration(i) * time.Second)
		msg.PositionLat = fit.NewLatitudeDegrees(47 + float64(i)*0.001)
		msg.PositionLong = fit.NewLongitudeDegrees(8)
		msgs = append(msgs, msg)
	}
	msgs = append(msgs, nil)

	records, err := track.Collect(NewSource("edge", msgs))
	require.NoError(t, err)
	require.Len(t, records, 3)

	d, ok := records[2].Float(track.Distance)
	require.True(t, ok)
	assert.InDelta(t, 222, d, 2)
}

func TestDecodeRejectsGarbage(t *testing.T) {
	_, err := Decode("junk", strings.NewReader("definitely not a fit file"))
	assert.Error(t, err)
}
