package merge

import (
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/planbiir/trkm/internal/interp"
	"github.com/planbiir/trkm/internal/track"
)

var base = time.Date(2025, 1, 1, 7, 0, 0, 0, time.UTC)

func at(sec int) time.Time { return base.Add(time.Duration(sec) * time.Second) }

// buildSource creates a source whose records carry the given distance at the
// given second offsets.
func buildSource(name string, secs []int, distances []float64) track.Source {
	records := make([]track.Record, len(secs))
	for i, s := range secs {
		records[i].Time = at(s)
		if distances != nil {
			records[i].Set(track.Distance, distances[i])
		}
	}
	return track.NewSliceSource(name, records)
}

func times(points []Point) []time.Time {
	out := make([]time.Time, len(points))
	for i, p := range points {
		out[i] = p.Time
	}
	return out
}

func TestMergeOrdersInterleavedSources(t *testing.T) {
	points, stats, err := Merge([]track.Source{
		buildSource("a", []int{0, 10, 20}, nil),
		buildSource("b", []int{5, 15, 25}, nil),
	}, DefaultConfig())
	require.NoError(t, err)

	assert.Equal(t, []time.Time{at(0), at(5), at(10), at(15), at(20), at(25)}, times(points))
	assert.Equal(t, 6, stats.Steps)
	for i := 1; i < len(points); i++ {
		assert.True(t, points[i].Time.After(points[i-1].Time))
	}
}

func TestMergeContributorsStayWithinTheirSpan(t *testing.T) {
	points, _, err := Merge([]track.Source{
		buildSource("a", []int{0, 10, 20}, nil),
		buildSource("b", []int{5, 15, 25}, nil),
	}, DefaultConfig())
	require.NoError(t, err)

	assert.Equal(t, []string{"a"}, points[0].Sources)
	assert.Equal(t, []string{"a", "b"}, points[1].Sources)
	assert.Equal(t, []string{"a", "b"}, points[4].Sources)
	assert.Equal(t, []string{"b"}, points[5].Sources)
	assert.Equal(t, "a-b", points[1].Name)
}

func TestMergeAveragesAndInterpolates(t *testing.T) {
	a := make([]track.Record, 2)
	a[0].Time, a[1].Time = at(0), at(10)
	a[0].Set(track.HeartRate, 100)
	a[1].Set(track.HeartRate, 120)
	a[0].Set(track.Temperature, 20)

	b := make([]track.Record, 1)
	b[0].Time = at(5)
	b[0].Set(track.HeartRate, 130)
	c := []track.Record{{Time: at(4)}, {Time: at(6)}}

	points, _, err := Merge([]track.Source{
		track.NewSliceSource("a", a),
		track.NewSliceSource("b", b),
		track.NewSliceSource("c", c),
	}, DefaultConfig())
	require.NoError(t, err)
	require.Len(t, points, 5)

	// t=5: a interpolates 110, b reports 130, c has no heart rate.
	p := points[2]
	require.Equal(t, at(5), p.Time)
	hr, ok := p.Float(track.HeartRate)
	require.True(t, ok)
	assert.InDelta(t, 120, hr, 1e-9)

	temp, ok := p.Float(track.Temperature)
	require.True(t, ok)
	assert.Equal(t, 20.0, temp)

	_, ok = p.Float(track.Cadence)
	assert.False(t, ok)
}

func TestMergeKeepsDistanceContinuous(t *testing.T) {
	points, stats, err := Merge([]track.Source{
		buildSource("a", []int{0, 5, 10}, []float64{0, 50, 100}),
		buildSource("b", []int{15, 20, 25}, []float64{0, 50, 100}),
	}, DefaultConfig())
	require.NoError(t, err)
	require.Len(t, points, 6)

	d10, _ := points[2].Float(track.Distance)
	assert.Equal(t, 100.0, d10)

	d15, ok := points[3].Float(track.Distance)
	require.True(t, ok)
	assert.GreaterOrEqual(t, d15, 100.0)

	prev := 0.0
	for _, p := range points {
		d, ok := p.Float(track.Distance)
		require.True(t, ok)
		assert.GreaterOrEqual(t, d, prev)
		prev = d
	}
	assert.Equal(t, 200.0, prev)
	assert.Equal(t, 100.0, stats.Offsets["b"])
	assert.Equal(t, 0.0, stats.Offsets["a"])
	assert.Equal(t, 100.0, points[3].Offsets[1])
}

func TestMergeOffsetsCanBeDisabled(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DisableDistanceOffsets = true
	points, _, err := Merge([]track.Source{
		buildSource("a", []int{0, 10}, []float64{0, 100}),
		buildSource("b", []int{15, 20}, []float64{0, 50}),
	}, cfg)
	require.NoError(t, err)

	d, _ := points[2].Float(track.Distance)
	assert.Equal(t, 0.0, d)
}

func TestMergeOverlappingSourcesAverageWithOffset(t *testing.T) {
	points, _, err := Merge([]track.Source{
		buildSource("a", []int{0, 10, 20}, []float64{0, 100, 200}),
		buildSource("b", []int{10, 20}, []float64{0, 90}),
	}, DefaultConfig())
	require.NoError(t, err)
	require.Len(t, points, 3)

	// b joins at t=10 on top of the composite distance of t=0.
	d10, _ := points[1].Float(track.Distance)
	assert.InDelta(t, 50, d10, 1e-9)
	d20, _ := points[2].Float(track.Distance)
	assert.InDelta(t, 145, d20, 1e-9)
}

func TestMergeRejectsNonNumericValues(t *testing.T) {
	a := []track.Record{{Time: at(0)}, {Time: at(10)}}
	a[0].SetValue(track.HeartRate, track.Text("high"))

	_, _, err := Merge([]track.Source{
		track.NewSliceSource("a", a),
		buildSource("b", []int{0, 10}, nil),
	}, DefaultConfig())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTypeMismatch))
}

func TestMergeWithoutSources(t *testing.T) {
	_, _, err := Merge(nil, DefaultConfig())
	assert.True(t, errors.Is(err, ErrNoSources))
}

func TestMergeSkipsEmptySource(t *testing.T) {
	points, _, err := Merge([]track.Source{
		track.NewSliceSource("empty", nil),
		buildSource("a", []int{0, 1}, nil),
	}, DefaultConfig())
	require.NoError(t, err)
	assert.Len(t, points, 2)
}

func TestMergeDeduplicatesRepeatedTimestamps(t *testing.T) {
	a := []track.Record{{Time: at(0)}, {Time: at(1)}, {Time: at(1)}, {Time: at(2)}}
	a[1].Set(track.Cadence, 80)
	a[2].Set(track.Cadence, 90)

	points, stats, err := Merge([]track.Source{track.NewSliceSource("a", a)}, DefaultConfig())
	require.NoError(t, err)
	require.Len(t, points, 3)
	cad, _ := points[1].Float(track.Cadence)
	assert.InDelta(t, 85, cad, 1e-9)
	assert.Equal(t, 1, stats.Deduplicated)
}

func TestMergeDropsOutOfOrderRecords(t *testing.T) {
	points, stats, err := Merge([]track.Source{
		buildSource("a", []int{0, 10, 5, 20}, nil),
	}, DefaultConfig())
	require.NoError(t, err)
	assert.Equal(t, []time.Time{at(0), at(10), at(20)}, times(points))
	assert.Equal(t, 1, stats.Dropped)
}

func TestMergerAtAndNext(t *testing.T) {
	caches := []*interp.Cache{
		interp.New(buildSource("a", []int{0, 2}, nil)),
		interp.New(buildSource("b", []int{1}, nil)),
	}
	emitted := 0
	m := NewMerger(caches, Config{Progress: func(n int) { emitted = n }})

	p, err := m.At(1)
	require.NoError(t, err)
	assert.Equal(t, at(1), p.Time)
	assert.Equal(t, 2, emitted)

	p, err = m.Next()
	require.NoError(t, err)
	assert.Equal(t, at(2), p.Time)

	_, err = m.Next()
	assert.Equal(t, io.EOF, err)

	_, err = m.At(7)
	assert.True(t, errors.Is(err, ErrIndexOutOfRange))
}

func TestMergeInterpolatedPositionsNeverZero(t *testing.T) {
	var a, b []track.Record
	for i := 0; i < 100; i++ {
		r := track.Record{Time: at(i * 2)}
		r.Set(track.Latitude, 46.0+float64(i)*0.0001)
		r.Set(track.Longitude, 7.0+float64(i)*0.0001)
		a = append(a, r)

		s := track.Record{Time: at(i*2 + 1)}
		if i%3 == 0 {
			s.Set(track.Latitude, 46.0+float64(i)*0.0001)
			s.Set(track.Longitude, 7.0+float64(i)*0.0001)
		}
		b = append(b, s)
	}

	points, _, err := Merge([]track.Source{
		track.NewSliceSource("a", a),
		track.NewSliceSource("b", b),
	}, DefaultConfig())
	require.NoError(t, err)
	require.Len(t, points, 200)

	for i, p := range points {
		lat, okLat := p.Float(track.Latitude)
		lon, okLon := p.Float(track.Longitude)
		require.True(t, okLat && okLon, "point %d lacks a position", i)
		require.NotZero(t, lat, "point %d", i)
		require.NotZero(t, lon, "point %d", i)
	}
}

func TestRecordsStripsMetadata(t *testing.T) {
	points, _, err := Merge([]track.Source{buildSource("a", []int{0, 1}, []float64{0, 3})}, DefaultConfig())
	require.NoError(t, err)
	recs := Records(points)
	require.Len(t, recs, 2)
	d, _ := recs[1].Float(track.Distance)
	assert.Equal(t, 3.0, d)
	assert.Equal(t, "a", recs[0].Name)
}
