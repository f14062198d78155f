package stats

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMeanStdDev(t *testing.T) {
	mean, sd := MeanStdDev([]float64{2, 4, 4, 4, 5, 5, 7, 9})
	assert.InDelta(t, 5.0, mean, 1e-9)
	assert.InDelta(t, 2.138, sd, 1e-3)

	mean, sd = MeanStdDev(nil)
	assert.Zero(t, mean)
	assert.Zero(t, sd)

	mean, sd = MeanStdDev([]float64{3})
	assert.Equal(t, 3.0, mean)
	assert.Zero(t, sd)
}

func TestTriangularStaysInRange(t *testing.T) {
	rng := NewRand(7)
	for i := 0; i < 1000; i++ {
		v := SymmetricTriangular(rng, -0.3, 0.3)
		assert.GreaterOrEqual(t, v, -0.3)
		assert.LessOrEqual(t, v, 0.3)
	}
	assert.Equal(t, 1.5, Triangular(rng, 1.5, 1.5, 1.5))
}

func TestTriangularReversedBounds(t *testing.T) {
	rng := NewRand(1)
	for i := 0; i < 200; i++ {
		v := SymmetricTriangular(rng, 0.2, -0.2)
		assert.GreaterOrEqual(t, v, -0.2)
		assert.LessOrEqual(t, v, 0.2)
	}
}

func TestNewRandIsDeterministic(t *testing.T) {
	a, b := NewRand(42), NewRand(42)
	for i := 0; i < 10; i++ {
		assert.Equal(t, a.Float64(), b.Float64())
	}
}

func TestWeibullPositive(t *testing.T) {
	rng := NewRand(3)
	for i := 0; i < 100; i++ {
		assert.GreaterOrEqual(t, Weibull(rng, 100, 1.5), 0.0)
	}
}
