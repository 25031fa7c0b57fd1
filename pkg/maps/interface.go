package maps

import (
	"context"
	"time"
)

type Coordinate struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type RouteEstimate struct {
	DistanceKM      float64       `json:"distance_km"`
	Duration        time.Duration `json:"duration"`
	PolylineEncoded string        `json:"polyline,omitempty"`
}

// RouteEstimator answers "how far and how long" for a pickup-dropoff pair.
// Fare calculation only needs the numbers, not the route geometry.
type RouteEstimator interface {
	Estimate(ctx context.Context, origin, destination Coordinate) (*RouteEstimate, error)
}
