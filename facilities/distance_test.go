package facilities

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHaversineSymmetricAndZero(t *testing.T) {
	points := [][2]float64{
		{40.7128, -74.0060},
		{34.0522, -118.2437},
		{-33.8688, 151.2093},
		{51.5074, -0.1278},
		{0, 0},
		{89.9, 179.9},
	}
	for _, a := range points {
		assert.Equal(t, 0.0, Haversine(a[0], a[1], a[0], a[1]))
		for _, b := range points {
			assert.Equal(t, Haversine(a[0], a[1], b[0], b[1]), Haversine(b[0], b[1], a[0], a[1]))
		}
	}
}

func TestHaversineKnownDistance(t *testing.T) {
	// New York to Los Angeles is roughly 2445 miles along the great circle.
	d := Haversine(40.7128, -74.0060, 34.0522, -118.2437)
	assert.InDelta(t, 2445, d, 5)

	// One degree of latitude is about 69.1 miles.
	assert.InDelta(t, 69.1, Haversine(0, 0, 1, 0), 0.1)
}

func TestRoundMiles(t *testing.T) {
	assert.Equal(t, 1.23, roundMiles(1.234))
	assert.Equal(t, 0.0, roundMiles(0.001))
	assert.False(t, math.IsNaN(roundMiles(Haversine(10, 10, 10, 10))))
}
