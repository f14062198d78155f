package stats

import (
	"math"
	"math/rand/v2"
)

// Mean calculates the arithmetic mean of values, 0 for an empty slice.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// Variance calculates the sample variance, 0 with fewer than two values.
func Variance(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	mean := Mean(values)
	var sum float64
	for _, v := range values {
		d := v - mean
		sum += d * d
	}
	return sum / float64(len(values)-1)
}

// StdDev calculates the sample standard deviation.
func StdDev(values []float64) float64 {
	return math.Sqrt(Variance(values))
}

// MeanStdDev returns both moments, (0, 0) for an empty slice.
func MeanStdDev(values []float64) (float64, float64) {
	return Mean(values), StdDev(values)
}

// NewRand returns a deterministic generator for seed.
func NewRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// Triangular draws from the triangular distribution on [lo, hi] peaking at
// mode. Bounds may be given in either order; a degenerate range returns lo.
func Triangular(rng *rand.Rand, lo, hi, mode float64) float64 {
	if hi == lo {
		return lo
	}
	u := rng.Float64()
	c := (mode - lo) / (hi - lo)
	if u > c {
		u = 1 - u
		c = 1 - c
		lo, hi = hi, lo
	}
	return lo + (hi-lo)*math.Sqrt(u*c)
}

// SymmetricTriangular draws from the triangular distribution on [lo, hi]
// peaking at the midpoint.
func SymmetricTriangular(rng *rand.Rand, lo, hi float64) float64 {
	return Triangular(rng, lo, hi, (lo+hi)/2)
}

// Weibull draws from the Weibull distribution with scale alpha and shape beta.
func Weibull(rng *rand.Rand, alpha, beta float64) float64 {
	u := 1 - rng.Float64()
	return alpha * math.Pow(-math.Log(u), 1/beta)
}
