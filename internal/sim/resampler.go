package sim

import (
	"errors"
	"fmt"
	"math"

	"truck-simulator/internal/geo"
	"truck-simulator/internal/route"
)

// ErrInvariant marks a route whose upstream data violates the resampler's
// preconditions. The affected trip is skipped; the batch continues.
var ErrInvariant = errors.New("route invariant violation")

// TrajectoryPoint is one per-minute sample of a trip. Minute indices form a
// dense, strictly increasing integer sequence starting at 0.
type TrajectoryPoint struct {
	Minute     int
	ElapsedMin float64
	Lat        float64
	Lon        float64
	CumKm      float64
}

// Point returns the sample position as a geo point.
func (p TrajectoryPoint) Point() geo.Point {
	return geo.Point{Lat: p.Lat, Lon: p.Lon}
}

// Resample converts a route into per-minute trajectory points, assuming
// uniform average speed along the waypoint polyline. The distance axis comes
// from the waypoint geometry; the time axis from the route's reported
// duration. The final point is the destination waypoint verbatim.
func Resample(r *route.Route) ([]TrajectoryPoint, error) {
	if r == nil || len(r.Waypoints) == 0 {
		return nil, fmt.Errorf("%w: route has no waypoints", ErrInvariant)
	}
	duration := r.DurationMin
	if math.IsNaN(duration) || math.IsInf(duration, 0) || duration < 0 {
		return nil, fmt.Errorf("%w: duration %v min", ErrInvariant, duration)
	}

	cum := geo.CumulativeDistances(r.Waypoints)
	total := cum[len(cum)-1]
	if math.IsNaN(total) || math.IsInf(total, 0) {
		return nil, fmt.Errorf("%w: non-finite cumulative distance", ErrInvariant)
	}

	// Degenerate route: origin equals destination.
	if total == 0 {
		origin := r.Waypoints[0]
		return []TrajectoryPoint{{Minute: 0, ElapsedMin: 0, Lat: origin.Lat, Lon: origin.Lon, CumKm: 0}}, nil
	}
	if duration == 0 {
		return nil, fmt.Errorf("%w: zero duration over %.3f km", ErrInvariant, total)
	}

	avgKmPerMin := total / duration
	lastWhole := int(math.Floor(duration))

	pts := make([]TrajectoryPoint, 0, lastWhole+2)
	seg := 0 // target distances are non-decreasing, so the segment scan never rewinds
	for t := 0; t <= lastWhole; t++ {
		elapsed := float64(t)
		d := elapsed * avgKmPerMin
		if d > total {
			d = total
		}
		var p geo.Point
		p, seg = locate(r.Waypoints, cum, d, seg)
		pts = append(pts, TrajectoryPoint{Minute: t, ElapsedMin: elapsed, Lat: p.Lat, Lon: p.Lon, CumKm: d})
	}

	if duration > float64(lastWhole) {
		// Arrival lands inside a minute; emit the partial final minute.
		pts = append(pts, TrajectoryPoint{Minute: lastWhole + 1, ElapsedMin: duration, CumKm: total})
	}

	// The trip must terminate at the destination waypoint exactly, not an
	// interpolated near-miss.
	dest := r.Waypoints[len(r.Waypoints)-1]
	last := &pts[len(pts)-1]
	last.Lat = dest.Lat
	last.Lon = dest.Lon
	last.CumKm = total

	return pts, nil
}

// locate finds the position at cumulative distance d along the waypoints,
// resuming the segment scan at from. Zero-width segments (duplicate
// consecutive waypoints) are skipped.
func locate(waypoints []geo.Point, cum []float64, d float64, from int) (geo.Point, int) {
	n := len(waypoints)
	i := from
	for i < n-1 && (cum[i+1] < d || cum[i+1] == cum[i]) {
		i++
	}
	if i >= n-1 {
		return waypoints[n-1], n - 1
	}
	width := cum[i+1] - cum[i]
	frac := (d - cum[i]) / width
	return geo.Interpolate(waypoints[i], waypoints[i+1], frac), i
}
