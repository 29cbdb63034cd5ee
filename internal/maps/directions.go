// README: Google Maps directions client that turns a stop sequence into per-leg drive times.
package maps

import (
	"context"
	"errors"
	"fmt"
	"time"

	"googlemaps.github.io/maps"
)

type directionsAPI interface {
	Directions(ctx context.Context, r *maps.DirectionsRequest) ([]maps.Route, []maps.GeocodedWaypoint, error)
}

// DirectionsEstimator asks the Directions API for one driving route through every stop.
type DirectionsEstimator struct {
	client directionsAPI
	region string
}

func NewDirectionsEstimator(apiKey, region string) (*DirectionsEstimator, error) {
	client, err := maps.NewClient(maps.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create maps client: %w", err)
	}
	return &DirectionsEstimator{client: client, region: region}, nil
}

// LegDurations returns len(stops) durations: stop i to stop i+1, and the last stop to destination.
func (e *DirectionsEstimator) LegDurations(ctx context.Context, stops []string, destination string) ([]time.Duration, error) {
	if len(stops) == 0 {
		return nil, errors.New("at least one stop is required")
	}
	r := &maps.DirectionsRequest{
		Origin:      stops[0],
		Destination: destination,
		Waypoints:   stops[1:],
		Mode:        maps.TravelModeDriving,
		Region:      e.region,
	}

	routes, _, err := e.client.Directions(ctx, r)
	if err != nil {
		return nil, fmt.Errorf("maps api error: %w", err)
	}
	if len(routes) == 0 {
		return nil, errors.New("no route found")
	}

	legs := routes[0].Legs
	out := make([]time.Duration, len(legs))
	for i, leg := range legs {
		out[i] = leg.Duration
	}
	return out, nil
}
