package geo

import (
	"math"

	"github.com/umahmood/haversine"
)

// Point is a WGS84 coordinate in degrees.
type Point struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Haversine returns the great-circle distance between a and b in kilometers.
func Haversine(a, b Point) float64 {
	_, km := haversine.Distance(
		haversine.Coord{Lat: a.Lat, Lon: a.Lon},
		haversine.Coord{Lat: b.Lat, Lon: b.Lon},
	)
	return km
}

// Interpolate returns the point a fraction of the way from a to b, linearly in
// lat/lon space. Fraction 0 returns a exactly, fraction 1 returns b exactly.
// Linear interpolation is an acceptable approximation at metro-to-metro scale.
func Interpolate(a, b Point, fraction float64) Point {
	if fraction <= 0 {
		return a
	}
	if fraction >= 1 {
		return b
	}
	return Point{
		Lat: a.Lat + (b.Lat-a.Lat)*fraction,
		Lon: a.Lon + (b.Lon-a.Lon)*fraction,
	}
}

// CumulativeDistances returns the running haversine distance in km along the
// polyline. The result has the same length as pts, with the first entry 0.
func CumulativeDistances(pts []Point) []float64 {
	n := len(pts)
	if n == 0 {
		return nil
	}
	cum := make([]float64, n)
	sum := 0.0
	for i := 1; i < n; i++ {
		sum += Haversine(pts[i-1], pts[i])
		cum[i] = sum
	}
	return cum
}

// Bearing returns the initial bearing from a to b in degrees (0-360).
func Bearing(a, b Point) float64 {
	phi1 := a.Lat * math.Pi / 180
	phi2 := b.Lat * math.Pi / 180
	deltaLambda := (b.Lon - a.Lon) * math.Pi / 180

	x := math.Sin(deltaLambda) * math.Cos(phi2)
	y := math.Cos(phi1)*math.Sin(phi2) - math.Sin(phi1)*math.Cos(phi2)*math.Cos(deltaLambda)

	brng := math.Atan2(x, y) * 180 / math.Pi
	return math.Mod(brng+360, 360)
}
