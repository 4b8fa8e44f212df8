package sim

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"truck-simulator/internal/geo"
	"truck-simulator/internal/route"
)

func crossCountryRoute() *route.Route {
	return &route.Route{
		Waypoints: []geo.Point{
			{Lat: 40.7, Lon: -74.0},
			{Lat: 39.9, Lon: -75.1},
			{Lat: 41.8, Lon: -87.6},
		},
		DistanceKm:  1200,
		DurationMin: 900,
		Source:      route.SourceProvider,
	}
}

func TestResampleEmitsDenseMinutes(t *testing.T) {
	pts, err := Resample(crossCountryRoute())
	require.NoError(t, err)
	// 15 hours at one-minute resolution: minutes 0..900 inclusive.
	require.Len(t, pts, 901)
	for i, p := range pts {
		assert.Equal(t, i, p.Minute)
	}
}

func TestResampleTerminatesAtDestinationExactly(t *testing.T) {
	r := crossCountryRoute()
	pts, err := Resample(r)
	require.NoError(t, err)
	last := pts[len(pts)-1]
	dest := r.Waypoints[len(r.Waypoints)-1]
	assert.Equal(t, dest.Lat, last.Lat)
	assert.Equal(t, dest.Lon, last.Lon)
}

func TestResampleCumulativeDistanceMonotonic(t *testing.T) {
	r := crossCountryRoute()
	pts, err := Resample(r)
	require.NoError(t, err)

	total := geo.CumulativeDistances(r.Waypoints)
	wantTotal := total[len(total)-1]
	prev := -1.0
	for _, p := range pts {
		assert.GreaterOrEqual(t, p.CumKm, prev)
		prev = p.CumKm
	}
	assert.InDelta(t, wantTotal, pts[len(pts)-1].CumKm, 1e-6)
	assert.Equal(t, 0.0, pts[0].CumKm)
}

func TestResampleMidpointOnSecondSegment(t *testing.T) {
	r := crossCountryRoute()
	pts, err := Resample(r)
	require.NoError(t, err)

	cum := geo.CumulativeDistances(r.Waypoints)
	total := cum[len(cum)-1]

	mid := pts[450]
	assert.InDelta(t, total/2, mid.CumKm, 1e-9)
	// Halfway through a ~1190 km polyline is well past the first ~120 km leg,
	// so the point must lie on the Philadelphia-Chicago segment.
	assert.Greater(t, mid.CumKm, cum[1])
	assert.True(t, mid.Lat > 39.9 && mid.Lat < 41.8, "lat %f not on second segment", mid.Lat)
	assert.True(t, mid.Lon < -75.1 && mid.Lon > -87.6, "lon %f not on second segment", mid.Lon)
}

func TestResampleIdempotent(t *testing.T) {
	r := crossCountryRoute()
	a, err := Resample(r)
	require.NoError(t, err)
	b, err := Resample(r)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestResampleFractionalDuration(t *testing.T) {
	r := &route.Route{
		Waypoints:   []geo.Point{{Lat: 40.7, Lon: -74.0}, {Lat: 39.9, Lon: -75.1}},
		DurationMin: 90.5,
	}
	pts, err := Resample(r)
	require.NoError(t, err)
	// Minutes 0..90 plus the partial arrival minute.
	require.Len(t, pts, 92)
	last := pts[len(pts)-1]
	assert.Equal(t, 91, last.Minute)
	assert.Equal(t, 90.5, last.ElapsedMin)
	assert.Equal(t, r.Waypoints[1], last.Point())
}

func TestResampleDegenerateOriginEqualsDestination(t *testing.T) {
	origin := geo.Point{Lat: 41.8, Lon: -87.6}
	r := &route.Route{
		Waypoints:   []geo.Point{origin, origin},
		DurationMin: 0,
	}
	pts, err := Resample(r)
	require.NoError(t, err)
	require.Len(t, pts, 1)
	assert.Equal(t, 0, pts[0].Minute)
	assert.Equal(t, origin, pts[0].Point())
	assert.Equal(t, 0.0, pts[0].CumKm)
}

func TestResampleSkipsZeroWidthSegments(t *testing.T) {
	r := &route.Route{
		Waypoints: []geo.Point{
			{Lat: 40.7, Lon: -74.0},
			{Lat: 40.7, Lon: -74.0}, // duplicate waypoint
			{Lat: 39.9, Lon: -75.1},
		},
		DurationMin: 60,
	}
	pts, err := Resample(r)
	require.NoError(t, err)
	require.Len(t, pts, 61)
	for _, p := range pts {
		assert.False(t, math.IsNaN(p.Lat), "NaN lat at minute %d", p.Minute)
		assert.False(t, math.IsNaN(p.Lon), "NaN lon at minute %d", p.Minute)
	}
	assert.Equal(t, r.Waypoints[2], pts[len(pts)-1].Point())
}

func TestResampleInvariantViolations(t *testing.T) {
	cases := map[string]*route.Route{
		"nil route":         nil,
		"no waypoints":      {DurationMin: 10},
		"negative duration": {Waypoints: []geo.Point{{Lat: 1}, {Lat: 2}}, DurationMin: -5},
		"nan duration":      {Waypoints: []geo.Point{{Lat: 1}, {Lat: 2}}, DurationMin: math.NaN()},
		"zero duration":     {Waypoints: []geo.Point{{Lat: 1}, {Lat: 2}}, DurationMin: 0},
	}
	for name, r := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Resample(r)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvariant)
		})
	}
}
