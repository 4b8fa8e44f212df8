package states

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"truck-simulator/internal/geo"
)

// square returns a closed ring polygon covering [minLon,maxLon]x[minLat,maxLat].
func square(minLon, minLat, maxLon, maxLat float64) orb.Polygon {
	return orb.Polygon{orb.Ring{
		{minLon, minLat}, {maxLon, minLat}, {maxLon, maxLat}, {minLon, maxLat}, {minLon, minLat},
	}}
}

func testIndex(t *testing.T) *Index {
	t.Helper()
	fc := geojson.NewFeatureCollection()

	illinois := geojson.NewFeature(square(-91, 37, -87, 42))
	illinois.Properties["NAME"] = "Illinois"
	fc.Append(illinois)

	indiana := geojson.NewFeature(square(-87, 37, -84, 41))
	indiana.Properties["NAME"] = "Indiana"
	fc.Append(indiana)

	// A small district overlapping Illinois; smallest area must win there.
	district := geojson.NewFeature(square(-88, 40, -87.5, 40.5))
	district.Properties["NAME"] = "District"
	fc.Append(district)

	idx, err := New(fc, DefaultMaxSnapKm)
	require.NoError(t, err)
	return idx
}

func TestLocateContainment(t *testing.T) {
	idx := testIndex(t)
	name, ok := idx.Locate(geo.Point{Lat: 41.0, Lon: -87.9})
	require.True(t, ok)
	assert.Equal(t, "Illinois", name)
}

func TestLocateSmallestAreaWinsOnOverlap(t *testing.T) {
	idx := testIndex(t)
	name, ok := idx.Locate(geo.Point{Lat: 40.2, Lon: -87.8})
	require.True(t, ok)
	assert.Equal(t, "District", name)
}

func TestLocateNearestSnapWithinThreshold(t *testing.T) {
	idx := testIndex(t)
	// Just east of Indiana's border, ~10 km out.
	name, ok := idx.Locate(geo.Point{Lat: 39.0, Lon: -83.9})
	require.True(t, ok)
	assert.Equal(t, "Indiana", name)
}

func TestLocateFarPointUnknown(t *testing.T) {
	idx := testIndex(t)
	_, ok := idx.Locate(geo.Point{Lat: 30.0, Lon: -70.0})
	assert.False(t, ok)
}

func TestLocateCachedResultStable(t *testing.T) {
	idx := testIndex(t)
	p := geo.Point{Lat: 41.0, Lon: -87.9}
	first, ok1 := idx.Locate(p)
	second, ok2 := idx.Locate(p)
	assert.Equal(t, first, second)
	assert.Equal(t, ok1, ok2)
}

func TestLocateBorderCrossingChangesLabel(t *testing.T) {
	idx := testIndex(t)
	west, ok := idx.Locate(geo.Point{Lat: 39.0, Lon: -87.2})
	require.True(t, ok)
	east, ok := idx.Locate(geo.Point{Lat: 39.0, Lon: -86.8})
	require.True(t, ok)
	assert.Equal(t, "Illinois", west)
	assert.Equal(t, "Indiana", east)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "states.geojson")
	data := `{"type":"FeatureCollection","features":[
		{"type":"Feature","properties":{"STATE_NAME":"Texas"},
		 "geometry":{"type":"Polygon","coordinates":[[[-106,26],[-93,26],[-93,36],[-106,36],[-106,26]]]}}
	]}`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	idx, err := Load(path, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, idx.Count())

	name, ok := idx.Locate(geo.Point{Lat: 29.76, Lon: -95.37})
	require.True(t, ok)
	assert.Equal(t, "Texas", name)
}

func TestNewRejectsEmptyCollection(t *testing.T) {
	_, err := New(geojson.NewFeatureCollection(), 0)
	assert.Error(t, err)
}
