// Package routing talks to the external directions provider and owns the
// last-request-wins fetch discipline for the dispatcher's route display.
package routing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/trigo/dispatch/internal/models"
)

var (
	// ErrNoToken means the provider credential is missing. Fatal for the
	// route feature only; callers report it once and keep the simulators up.
	ErrNoToken = errors.New("directions access token not configured")
	// ErrNoRoute covers empty or non-2xx provider responses. Recoverable:
	// the caller keeps whatever route it was already showing.
	ErrNoRoute = errors.New("no route in provider response")
)

// Client performs directions lookups against a Mapbox-style HTTP API.
type Client struct {
	Endpoint string
	Profile  string
	Token    string
	HTTP     *http.Client
}

func NewClient(endpoint, profile, token string) *Client {
	if profile == "" {
		profile = "mapbox/driving"
	}
	return &Client{
		Endpoint: strings.TrimRight(endpoint, "/"),
		Profile:  profile,
		Token:    token,
		HTTP:     &http.Client{Timeout: 5 * time.Second},
	}
}

// Directions requests a full-geometry route through the given waypoints,
// normally trider position, pickup, dropoff.
func (c *Client) Directions(ctx context.Context, waypoints ...models.Coordinates) (models.Route, error) {
	if c.Token == "" {
		return models.Route{}, ErrNoToken
	}
	if len(waypoints) < 2 {
		return models.Route{}, fmt.Errorf("need at least 2 waypoints, got %d", len(waypoints))
	}

	coords := make([]string, len(waypoints))
	for i, w := range waypoints {
		coords[i] = fmt.Sprintf("%.6f,%.6f", w.Longitude, w.Latitude)
	}
	q := url.Values{}
	q.Set("geometries", "geojson")
	q.Set("overview", "full")
	q.Set("access_token", c.Token)
	u := fmt.Sprintf("%s/directions/v5/%s/%s?%s", c.Endpoint, c.Profile, strings.Join(coords, ";"), q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return models.Route{}, err
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return models.Route{}, fmt.Errorf("directions request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return models.Route{}, fmt.Errorf("directions status %d: %w", resp.StatusCode, ErrNoRoute)
	}

	var out struct {
		Routes []struct {
			Geometry struct {
				Coordinates [][]float64 `json:"coordinates"`
			} `json:"geometry"`
			Duration float64 `json:"duration"`
			Distance float64 `json:"distance"`
		} `json:"routes"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return models.Route{}, fmt.Errorf("directions decode: %w", err)
	}
	if len(out.Routes) == 0 {
		return models.Route{}, ErrNoRoute
	}

	best := out.Routes[0]
	geom := make([]models.Coordinates, 0, len(best.Geometry.Coordinates))
	for _, pair := range best.Geometry.Coordinates {
		if len(pair) < 2 {
			continue
		}
		// geojson order is lon,lat
		geom = append(geom, models.Coordinates{Latitude: pair[1], Longitude: pair[0]})
	}
	return models.Route{Geometry: geom, DurationSec: best.Duration, DistanceM: best.Distance}, nil
}
