package faker

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func linear(n int) *fragment { return newFragment(n, 0, float64(n)) }

func TestFragmentInterpolates(t *testing.T) {
	f := linear(10)
	for i := 0; i < 10; i++ {
		assert.Equal(t, float64(i), f.at(i))
	}
	assert.Equal(t, 9.0, f.at(-1))
	assert.Equal(t, 9.0, f.at(25))
}

func TestFragmentDivide(t *testing.T) {
	f := linear(10)
	f.divide(4, 2)

	assert.Len(t, f.parts, 2)
	assert.Equal(t, 4.5, f.at(3))
	assert.Equal(t, 6.0, f.at(4))
	assert.InDelta(t, 6+4.0/6*5, f.at(9), 1e-12)

	// A cut on an existing boundary leaves the profile alone.
	f.divide(4, 100)
	assert.Equal(t, 6.0, f.at(4))
}

func TestFragmentForce(t *testing.T) {
	f := linear(10)
	f.force(2, 3, 0)

	assert.Equal(t, []float64{0, 1, 0, 0, 0, 5, 6, 7, 8, 9}, f.values())

	f.force(0, 20, 3)
	assert.Nil(t, f.parts)
	assert.Equal(t, 3.0, f.at(9))
}

func TestAddPause(t *testing.T) {
	f := linear(100)
	assert.True(t, f.addPause(50, 2, 10, 2))

	assert.Equal(t, 42.0, f.at(42))
	assert.Equal(t, 43.0, f.at(43))
	assert.Equal(t, 21.5, f.at(44))
	for i := 45; i <= 55; i++ {
		assert.Zero(t, f.at(i), "slot %d", i)
	}
	assert.Equal(t, 28.5, f.at(56))
	assert.Equal(t, 57.0, f.at(57))
}

func TestAddPauseAtStart(t *testing.T) {
	f := linear(100)
	assert.True(t, f.addPause(3, 2, 10, 2))

	for i := 0; i <= 10; i++ {
		assert.Zero(t, f.at(i), "slot %d", i)
	}
	assert.Equal(t, 6.0, f.at(11))
	assert.Equal(t, 12.0, f.at(12))
}

func TestAddPausePastEnd(t *testing.T) {
	f := linear(100)
	assert.False(t, f.addPause(130, 2, 20, 2))
	assert.Nil(t, f.parts)

	// A pause centred past the end still zeroes the tail it overlaps.
	assert.True(t, f.addPause(105, 2, 20, 2))
	assert.Zero(t, f.at(99))
	assert.Equal(t, 93.0, f.at(93))
}
