package merge

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/planbiir/trkm/internal/track"
)

// syntheticStream returns n records two seconds apart starting offset seconds
// after base, with a steadily growing distance and heart rate. Altitude,
// cadence, speed and temperature are never recorded.
func syntheticStream(n, offset int) []track.Record {
	records := make([]track.Record, n)
	for i := range records {
		records[i].Time = base.Add(time.Duration(offset+2*i) * time.Second)
		records[i].Set(track.Latitude, 46.0+float64(i)*0.0001)
		records[i].Set(track.Longitude, 7.0+float64(i)*0.0001)
		records[i].Set(track.Distance, float64(i)*15)
		records[i].Set(track.HeartRate, 120+float64(i%40))
	}
	return records
}

// Benchmark merge performance with interleaved sources of different sizes
func BenchmarkMergeSizes(b *testing.B) {
	sizes := []int{1000, 5000, 20000}

	for _, size := range sizes {
		b.Run(fmt.Sprintf("merge-%d-points", size), func(b *testing.B) {
			watch := syntheticStream(size, 0)
			bike := syntheticStream(size, 1)

			b.ResetTimer()

			for i := 0; i < b.N; i++ {
				points, _, err := Merge([]track.Source{
					track.NewSliceSource("watch", watch),
					track.NewSliceSource("bike", bike),
				}, DefaultConfig())
				if err != nil {
					b.Fatal(err)
				}
				if len(points) != 2*size {
					b.Fatalf("got %d points, want %d", len(points), 2*size)
				}
			}
		})
	}
}

func mergeDuration(t *testing.T, size int) time.Duration {
	t.Helper()
	start := time.Now()
	points, _, err := Merge([]track.Source{
		track.NewSliceSource("watch", syntheticStream(size, 0)),
		track.NewSliceSource("bike", syntheticStream(size, 1)),
	}, DefaultConfig())
	require.NoError(t, err)
	require.Len(t, points, 2*size)
	return time.Since(start)
}

func TestMergeScalesWithAbsentAttributes(t *testing.T) {
	if testing.Short() {
		t.Skip("timing test")
	}
	mergeDuration(t, 500) // warm up

	small := mergeDuration(t, 2000)
	large := mergeDuration(t, 8000)

	// Four times the input must stay well below the sixteenfold cost of a
	// quadratic fill.
	ratio := float64(large) / float64(max(small, time.Millisecond))
	assert.Less(t, ratio, 10.0, "2000 points took %v, 8000 took %v", small, large)
}
