package maps

import (
	"context"
	"fmt"

	"googlemaps.github.io/maps"
)

type GoogleMapsEstimator struct {
	client *maps.Client
}

func NewGoogleMapsEstimator(apiKey string) (*GoogleMapsEstimator, error) {
	client, err := maps.NewClient(maps.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create maps client: %w", err)
	}

	return &GoogleMapsEstimator{
		client: client,
	}, nil
}

func (g *GoogleMapsEstimator) Estimate(ctx context.Context, origin, destination Coordinate) (*RouteEstimate, error) {
	req := &maps.DirectionsRequest{
		Origin:      fmt.Sprintf("%f,%f", origin.Latitude, origin.Longitude),
		Destination: fmt.Sprintf("%f,%f", destination.Latitude, destination.Longitude),
		Mode:        maps.TravelModeDriving,
	}

	routes, _, err := g.client.Directions(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to get directions: %w", err)
	}
	if len(routes) == 0 || len(routes[0].Legs) == 0 {
		return nil, fmt.Errorf("no route found")
	}

	leg := routes[0].Legs[0]
	return &RouteEstimate{
		DistanceKM:      float64(leg.Distance.Meters) / 1000.0,
		Duration:        leg.Duration,
		PolylineEncoded: routes[0].OverviewPolyline.Points,
	}, nil
}
