package route

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/twpayne/go-polyline"

	"truck-simulator/internal/geo"
)

const defaultOSRMTimeout = 30 * time.Second

// OSRMPlanner queries an OSRM HTTP server for driving routes.
type OSRMPlanner struct {
	baseURL string
	client  *http.Client
}

// NewOSRMPlanner returns a planner against the given OSRM base URL
// (e.g. "https://router.project-osrm.org").
func NewOSRMPlanner(baseURL string, timeout time.Duration) *OSRMPlanner {
	if timeout <= 0 {
		timeout = defaultOSRMTimeout
	}
	return &OSRMPlanner{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

type osrmResponse struct {
	Code   string `json:"code"`
	Routes []struct {
		Geometry string  `json:"geometry"`
		Distance float64 `json:"distance"` // meters
		Duration float64 `json:"duration"` // seconds
	} `json:"routes"`
}

// Plan requests the driving route from origin to dest. The full overview
// geometry is requested as an encoded polyline and decoded into waypoints.
func (p *OSRMPlanner) Plan(ctx context.Context, origin, dest geo.Point) (*Route, error) {
	u := fmt.Sprintf("%s/route/v1/driving/%f,%f;%f,%f?%s",
		p.baseURL, origin.Lon, origin.Lat, dest.Lon, dest.Lat,
		url.Values{"overview": {"full"}, "geometries": {"polyline"}}.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("build osrm request: %w", err)
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("osrm request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("osrm returned status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read osrm response: %w", err)
	}

	var out osrmResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("parse osrm response: %w", err)
	}
	if out.Code != "Ok" || len(out.Routes) == 0 {
		return nil, fmt.Errorf("osrm found no route (code %q)", out.Code)
	}

	r := out.Routes[0]
	coords, _, err := polyline.DecodeCoords([]byte(r.Geometry))
	if err != nil {
		return nil, fmt.Errorf("decode osrm geometry: %w", err)
	}
	if len(coords) < 2 {
		return nil, fmt.Errorf("osrm geometry has %d points", len(coords))
	}
	waypoints := make([]geo.Point, len(coords))
	for i, c := range coords {
		waypoints[i] = geo.Point{Lat: c[0], Lon: c[1]}
	}

	return &Route{
		Waypoints:   waypoints,
		DistanceKm:  r.Distance / 1000,
		DurationMin: r.Duration / 60,
	}, nil
}
