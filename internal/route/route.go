package route

import (
	"context"
	"math"

	log "github.com/sirupsen/logrus"

	"truck-simulator/internal/geo"
)

// Route source tags, carried through to the summary tables for quality reporting.
const (
	SourceProvider = "provider"
	SourceFallback = "fallback"
)

const (
	// DefaultDetourFactor approximates road distance from straight-line
	// distance when no route geometry is available. US interstate routes run
	// about 25% longer than the great-circle line.
	DefaultDetourFactor = 1.25

	// DefaultFallbackSpeedKmh is the assumed average truck speed used to
	// derive a duration for fallback routes.
	DefaultFallbackSpeedKmh = 80.0
)

// Route is the canonical representation of a trip's path, regardless of which
// provider produced it. Waypoints are in travel order; the first is the origin
// and the last the destination.
type Route struct {
	Waypoints   []geo.Point
	DistanceKm  float64
	DurationMin float64
	Source      string
}

// Planner produces a route between two coordinates, or an error when the
// backend cannot.
type Planner interface {
	Plan(ctx context.Context, origin, dest geo.Point) (*Route, error)
}

// Adapter wraps a Planner and absorbs its failures: Plan always returns a
// usable Route, degrading to a straight-line fallback when the backend fails
// or returns unusable geometry.
type Adapter struct {
	planner          Planner
	detourFactor     float64
	fallbackSpeedKmh float64
}

// NewAdapter builds an adapter around planner. Non-positive detourFactor or
// fallbackSpeedKmh fall back to the package defaults. A nil planner yields
// fallback routes for every request.
func NewAdapter(planner Planner, detourFactor, fallbackSpeedKmh float64) *Adapter {
	if detourFactor <= 0 {
		detourFactor = DefaultDetourFactor
	}
	if fallbackSpeedKmh <= 0 {
		fallbackSpeedKmh = DefaultFallbackSpeedKmh
	}
	return &Adapter{planner: planner, detourFactor: detourFactor, fallbackSpeedKmh: fallbackSpeedKmh}
}

// Plan returns a canonical route from origin to dest. It never returns an
// error: provider failures produce a fallback route tagged accordingly.
func (a *Adapter) Plan(ctx context.Context, origin, dest geo.Point) *Route {
	if a.planner != nil {
		r, err := a.planner.Plan(ctx, origin, dest)
		if err == nil && usable(r) {
			r.Source = SourceProvider
			return r
		}
		if err != nil {
			log.WithFields(log.Fields{
				"origin": origin,
				"dest": dest,
			}).WithError(err).Warn("route provider failed, using fallback route")
		} else {
			log.WithFields(log.Fields{
				"origin": origin,
				"dest": dest,
			}).Warn("route provider returned unusable route, using fallback route")
		}
	}
	return a.fallback(origin, dest)
}

func (a *Adapter) fallback(origin, dest geo.Point) *Route {
	distKm := geo.Haversine(origin, dest) * a.detourFactor
	return &Route{
		Waypoints:   []geo.Point{origin, dest},
		DistanceKm:  distKm,
		DurationMin: distKm / a.fallbackSpeedKmh * 60,
		Source:      SourceFallback,
	}
}

// usable rejects provider results with degenerate geometry or non-finite
// metadata, which are treated the same as a provider failure.
func usable(r *Route) bool {
	if r == nil || len(r.Waypoints) < 2 {
		return false
	}
	if !finiteNonNegative(r.DistanceKm) || !finiteNonNegative(r.DurationMin) {
		return false
	}
	for _, w := range r.Waypoints {
		if math.IsNaN(w.Lat) || math.IsNaN(w.Lon) || math.IsInf(w.Lat, 0) || math.IsInf(w.Lon, 0) {
			return false
		}
	}
	return true
}

func finiteNonNegative(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v >= 0
}
