package states

import (
	"fmt"
	"math"
	"os"
	"sync"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/planar"

	"truck-simulator/internal/geo"
)

const (
	// DefaultMaxSnapKm bounds the nearest-polygon fallback. Points farther
	// than this from every state boundary stay unattributed rather than
	// getting a misleading label.
	DefaultMaxSnapKm = 25.0

	// kmPerDegree converts planar degree distances to approximate kilometers.
	// Coarse, but the snap threshold only needs boundary-scale accuracy.
	kmPerDegree = 111.2

	// cacheScale buckets lookups to three decimal places (~111 m), enough to
	// dedupe near-identical per-minute samples without changing results.
	cacheScale = 1000
)

type shape struct {
	name string
	geom orb.Geometry
	area float64
}

type cacheKey struct {
	lat, lon int64
}

type cacheEntry struct {
	name string
	ok   bool
}

// Index answers "which US state contains this point" against a set of state
// polygons, with a bounded nearest-boundary fallback for points that fail
// exact containment (coastlines, bridges, simplified geometry).
type Index struct {
	shapes    []shape
	maxSnapKm float64

	mu    sync.Mutex
	cache map[cacheKey]cacheEntry
}

// Load reads a US states GeoJSON FeatureCollection from disk.
func Load(path string, maxSnapKm float64) (*Index, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read states file: %w", err)
	}
	fc, err := geojson.UnmarshalFeatureCollection(b)
	if err != nil {
		return nil, fmt.Errorf("parse states geojson: %w", err)
	}
	return New(fc, maxSnapKm)
}

// New builds an index from an already-parsed FeatureCollection. The state
// name is taken from the STATE_NAME, NAME, or name property, in that order.
func New(fc *geojson.FeatureCollection, maxSnapKm float64) (*Index, error) {
	if maxSnapKm <= 0 {
		maxSnapKm = DefaultMaxSnapKm
	}
	idx := &Index{
		maxSnapKm: maxSnapKm,
		cache:     make(map[cacheKey]cacheEntry),
	}
	for _, f := range fc.Features {
		name := featureName(f)
		if name == "" {
			continue
		}
		switch g := f.Geometry.(type) {
		case orb.Polygon, orb.MultiPolygon:
			idx.shapes = append(idx.shapes, shape{
				name: name,
				geom: g,
				area: math.Abs(planar.Area(g)),
			})
		}
	}
	if len(idx.shapes) == 0 {
		return nil, fmt.Errorf("states geojson contains no named polygons")
	}
	return idx, nil
}

func featureName(f *geojson.Feature) string {
	for _, key := range []string{"STATE_NAME", "NAME", "name"} {
		if v, ok := f.Properties[key].(string); ok && v != "" {
			return v
		}
	}
	return ""
}

// Count returns the number of indexed state shapes.
func (idx *Index) Count() int {
	return len(idx.shapes)
}

// Locate returns the state containing p, or the nearest state within the snap
// distance. The second return is false when no state qualifies. When multiple
// polygons contain the point (adjacent or overlapping borders, e.g. DC), the
// smallest-area polygon wins, which is deterministic across runs.
func (idx *Index) Locate(p geo.Point) (string, bool) {
	key := cacheKey{
		lat: int64(math.Round(p.Lat * cacheScale)),
		lon: int64(math.Round(p.Lon * cacheScale)),
	}
	idx.mu.Lock()
	if e, ok := idx.cache[key]; ok {
		idx.mu.Unlock()
		return e.name, e.ok
	}
	idx.mu.Unlock()

	name, ok := idx.locate(p)

	idx.mu.Lock()
	idx.cache[key] = cacheEntry{name: name, ok: ok}
	idx.mu.Unlock()
	return name, ok
}

func (idx *Index) locate(p geo.Point) (string, bool) {
	pt := orb.Point{p.Lon, p.Lat}

	best := ""
	bestArea := math.MaxFloat64
	for _, s := range idx.shapes {
		if contains(s.geom, pt) && s.area < bestArea {
			best = s.name
			bestArea = s.area
		}
	}
	if best != "" {
		return best, true
	}

	// Nearest boundary within the snap threshold.
	nearest := ""
	nearestDeg := math.MaxFloat64
	for _, s := range idx.shapes {
		d := planar.DistanceFrom(s.geom, pt)
		if d < nearestDeg {
			nearest = s.name
			nearestDeg = d
		}
	}
	if nearestDeg*kmPerDegree <= idx.maxSnapKm {
		return nearest, true
	}
	return "", false
}

func contains(g orb.Geometry, pt orb.Point) bool {
	switch geom := g.(type) {
	case orb.Polygon:
		return planar.PolygonContains(geom, pt)
	case orb.MultiPolygon:
		return planar.MultiPolygonContains(geom, pt)
	}
	return false
}
