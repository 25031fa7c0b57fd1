package maps

import (
	"context"
	"math"
	"time"
)

// assumed city driving speed when no routing provider is configured
const fallbackSpeedKMH = 25.0

// HaversineEstimator approximates road distance as great-circle distance
// scaled by a detour factor. Used when no Google Maps key is configured and
// in tests.
type HaversineEstimator struct {
	DetourFactor float64
}

func NewHaversineEstimator() *HaversineEstimator {
	return &HaversineEstimator{DetourFactor: 1.3}
}

func (h *HaversineEstimator) Estimate(ctx context.Context, origin, destination Coordinate) (*RouteEstimate, error) {
	distanceKM := haversineKM(origin.Latitude, origin.Longitude, destination.Latitude, destination.Longitude) * h.DetourFactor
	duration := time.Duration(distanceKM / fallbackSpeedKMH * float64(time.Hour))

	return &RouteEstimate{
		DistanceKM: distanceKM,
		Duration:   duration,
	}, nil
}

func haversineKM(lat1, lng1, lat2, lng2 float64) float64 {
	const earthRadiusKM = 6371.0

	dLat := (lat2 - lat1) * math.Pi / 180.0
	dLng := (lng2 - lng1) * math.Pi / 180.0

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*math.Pi/180.0)*math.Cos(lat2*math.Pi/180.0)*
			math.Sin(dLng/2)*math.Sin(dLng/2)

	return earthRadiusKM * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}
