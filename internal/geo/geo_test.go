package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

var (
	newYork    = Point{Lat: 40.7128, Lon: -74.0060}
	losAngeles = Point{Lat: 34.0522, Lon: -118.2437}
	chicago    = Point{Lat: 41.8781, Lon: -87.6298}
)

func TestHaversineKnownDistance(t *testing.T) {
	// NY to LA is roughly 3940 km great-circle.
	km := Haversine(newYork, losAngeles)
	assert.InDelta(t, 3940, km, 50)
}

func TestHaversineSymmetric(t *testing.T) {
	assert.InDelta(t, Haversine(newYork, chicago), Haversine(chicago, newYork), 1e-9)
}

func TestHaversineZero(t *testing.T) {
	assert.Equal(t, 0.0, Haversine(chicago, chicago))
}

func TestHaversineTriangleInequality(t *testing.T) {
	direct := Haversine(newYork, losAngeles)
	via := Haversine(newYork, chicago) + Haversine(chicago, losAngeles)
	assert.LessOrEqual(t, direct, via+1e-6)
}

func TestInterpolateEndpointsExact(t *testing.T) {
	assert.Equal(t, newYork, Interpolate(newYork, losAngeles, 0))
	assert.Equal(t, losAngeles, Interpolate(newYork, losAngeles, 1))
}

func TestInterpolateMidpoint(t *testing.T) {
	mid := Interpolate(Point{Lat: 10, Lon: 20}, Point{Lat: 20, Lon: 40}, 0.5)
	assert.InDelta(t, 15, mid.Lat, 1e-12)
	assert.InDelta(t, 30, mid.Lon, 1e-12)
}

func TestCumulativeDistances(t *testing.T) {
	pts := []Point{newYork, chicago, losAngeles}
	cum := CumulativeDistances(pts)
	assert.Len(t, cum, 3)
	assert.Equal(t, 0.0, cum[0])
	assert.InDelta(t, Haversine(newYork, chicago), cum[1], 1e-9)
	assert.InDelta(t, cum[1]+Haversine(chicago, losAngeles), cum[2], 1e-9)
}

func TestCumulativeDistancesEmpty(t *testing.T) {
	assert.Nil(t, CumulativeDistances(nil))
}

func TestBearingDueEast(t *testing.T) {
	b := Bearing(Point{Lat: 0, Lon: 0}, Point{Lat: 0, Lon: 1})
	assert.InDelta(t, 90, b, 0.1)
}

func TestBearingRange(t *testing.T) {
	b := Bearing(losAngeles, newYork)
	assert.GreaterOrEqual(t, b, 0.0)
	assert.Less(t, b, 360.0)
}
