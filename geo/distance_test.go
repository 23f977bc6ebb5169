package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHaversineKmZeroDistance(t *testing.T) {
	p := Point{Lat: 17.385, Lng: 78.4867}
	assert.InDelta(t, 0, HaversineKm(p, p), 1e-9)
}

func TestHaversineKmKnownDistance(t *testing.T) {
	// One degree of latitude is about 111.2 km.
	d := HaversineKm(Point{0, 0}, Point{1, 0})
	assert.InDelta(t, 111.19, d, 0.1)
}

func TestInterpolate(t *testing.T) {
	a, b := Point{17, 80}, Point{18, 81}
	assert.Equal(t, a, Interpolate(a, b, -1))
	assert.Equal(t, b, Interpolate(a, b, 2))
	mid := Interpolate(a, b, 0.5)
	assert.InDelta(t, 17.5, mid.Lat, 1e-9)
	assert.InDelta(t, 80.5, mid.Lng, 1e-9)
}

func TestETAMinutes(t *testing.T) {
	assert.Equal(t, 0, ETAMinutes(0, AverageSpeedKmh))
	assert.Equal(t, 1, ETAMinutes(0.01, AverageSpeedKmh))
	assert.Equal(t, 15, ETAMinutes(10, AverageSpeedKmh))
	assert.Equal(t, 15, ETAMinutes(10, 0))
}

func TestPointValid(t *testing.T) {
	assert.True(t, Point{90, 180}.Valid())
	assert.True(t, Point{-90, -180}.Valid())
	assert.False(t, Point{90.1, 0}.Valid())
	assert.False(t, Point{0, -180.5}.Valid())
}
