package metros

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"os"

	"truck-simulator/internal/geo"
)

// Metro is one metro region from the reference table. Population is carried
// for reporting only and never drives simulation logic.
type Metro struct {
	Name       string  `json:"name"`
	State      string  `json:"state"`
	Lat        float64 `json:"lat"`
	Lon        float64 `json:"lon"`
	Population int     `json:"population"`
}

// Location returns the metro center as a geo point.
func (m Metro) Location() geo.Point {
	return geo.Point{Lat: m.Lat, Lon: m.Lon}
}

type file struct {
	Metros []Metro `json:"metros"`
}

// Load reads a metros JSON file ({"metros": [...]}).
func Load(path string) ([]Metro, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read metros file: %w", err)
	}
	var f file
	if err := json.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("parse metros file: %w", err)
	}
	if len(f.Metros) == 0 {
		return nil, fmt.Errorf("metros file %q contains no metros", path)
	}
	return f.Metros, nil
}

// Default returns the built-in ten-metro reference set.
func Default() []Metro {
	return []Metro{
		{Name: "New York", State: "NY", Lat: 40.7128, Lon: -74.0060, Population: 19216182},
		{Name: "Los Angeles", State: "CA", Lat: 34.0522, Lon: -118.2437, Population: 13214799},
		{Name: "Chicago", State: "IL", Lat: 41.8781, Lon: -87.6298, Population: 9458539},
		{Name: "Dallas", State: "TX", Lat: 32.7767, Lon: -96.7970, Population: 7637387},
		{Name: "Houston", State: "TX", Lat: 29.7604, Lon: -95.3698, Population: 7122240},
		{Name: "Washington", State: "DC", Lat: 38.9072, Lon: -77.0369, Population: 6385162},
		{Name: "Miami", State: "FL", Lat: 25.7617, Lon: -80.1918, Population: 6166488},
		{Name: "Philadelphia", State: "PA", Lat: 39.9526, Lon: -75.1652, Population: 6102434},
		{Name: "Atlanta", State: "GA", Lat: 33.7490, Lon: -84.3880, Population: 6020364},
		{Name: "Boston", State: "MA", Lat: 42.3601, Lon: -71.0589, Population: 4941632},
	}
}

// RandomPair picks two distinct metros.
func RandomPair(rng *rand.Rand, ms []Metro) (Metro, Metro) {
	i := rng.Intn(len(ms))
	j := rng.Intn(len(ms) - 1)
	if j >= i {
		j++
	}
	return ms[i], ms[j]
}
