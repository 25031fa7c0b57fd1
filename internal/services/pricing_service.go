package services

import (
	"math"

	"godispatch/internal/config"
	"godispatch/internal/models"
	"godispatch/internal/utils"
)

// Per-vehicle-type fare multipliers. A catalog entry with a positive
// fare_multiplier overrides this table.
var vehicleMultipliers = map[string]float64{
	"bike":   0.7,
	"auto":   0.8,
	"sedan":  1.0,
	"suv":    1.3,
	"luxury": 2.0,
}

type FareInput struct {
	VehicleType     string
	DistanceKM      float64
	DurationMin     float64
	SurgeMultiplier float64 // <= 0 falls back to the configured global surge
	FareMultiplier  float64 // <= 0 falls back to the vehicle-type table
	PromoDiscount   int64   // raw promo discount in minor units, pre-cap
}

// PricingService computes fare breakdowns. CalculateFare is a pure function
// of its input and the static config, evaluated twice per job: at request
// time for the estimate (duration 0) and at completion for the final fare.
type PricingService struct {
	config *config.PricingConfig
}

func NewPricingService(cfg *config.PricingConfig) *PricingService {
	return &PricingService{config: cfg}
}

func (s *PricingService) Currency() string {
	return s.config.Currency
}

func (s *PricingService) CalculateFare(in FareInput) models.FareBreakdown {
	multiplier := in.FareMultiplier
	if multiplier <= 0 {
		if m, ok := vehicleMultipliers[in.VehicleType]; ok {
			multiplier = m
		} else {
			multiplier = 1.0
		}
	}

	surge := in.SurgeMultiplier
	if surge <= 0 {
		surge = s.config.SurgeMultiplier
	}
	if surge < utils.MinSurgeMultiplier {
		surge = utils.MinSurgeMultiplier
	}
	if surge > utils.MaxSurgeMultiplier {
		surge = utils.MaxSurgeMultiplier
	}

	baseFare := roundMinor(float64(s.config.BaseFare) * multiplier)
	distanceFare := roundMinor(in.DistanceKM * float64(s.config.PerKMRate) * multiplier)
	timeFare := roundMinor(in.DurationMin * float64(s.config.PerMinuteRate) * multiplier)
	bookingFee := s.config.BookingFee

	subtotal := baseFare + distanceFare + timeFare + bookingFee
	surgeFare := roundMinor(float64(subtotal) * (surge - 1))
	totalFare := subtotal + surgeFare

	discount := in.PromoDiscount
	if maxDiscount := totalFare / 2; discount > maxDiscount {
		discount = maxDiscount
	}
	if discount < 0 {
		discount = 0
	}

	finalFare := totalFare - discount
	if finalFare < s.config.MinimumFare {
		finalFare = s.config.MinimumFare
	}

	return models.FareBreakdown{
		BaseFare:        baseFare,
		DistanceFare:    distanceFare,
		TimeFare:        timeFare,
		BookingFee:      bookingFee,
		SurgeFare:       surgeFare,
		TotalFare:       totalFare,
		Discount:        discount,
		FinalFare:       finalFare,
		SurgeMultiplier: surge,
		Currency:        s.config.Currency,
	}
}

func roundMinor(v float64) int64 {
	return int64(math.Round(v))
}
