package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalculateFareBreakdown(t *testing.T) {
	svc := NewPricingService(testPricingConfig())

	fare := svc.CalculateFare(FareInput{
		VehicleType: "sedan",
		DistanceKM:  10,
		DurationMin: 20,
	})

	// sedan multiplier 1.0: 3000 + 10*1200 + 20*150 + 500 = 18500
	assert.Equal(t, int64(3000), fare.BaseFare)
	assert.Equal(t, int64(12000), fare.DistanceFare)
	assert.Equal(t, int64(3000), fare.TimeFare)
	assert.Equal(t, int64(500), fare.BookingFee)
	assert.Equal(t, int64(0), fare.SurgeFare)
	assert.Equal(t, int64(18500), fare.TotalFare)
	assert.Equal(t, int64(18500), fare.FinalFare)
	assert.Equal(t, "INR", fare.Currency)
}

func TestCalculateFareDeterministic(t *testing.T) {
	svc := NewPricingService(testPricingConfig())
	in := FareInput{VehicleType: "suv", DistanceKM: 7.3, DurationMin: 14.2, SurgeMultiplier: 1.4}

	first := svc.CalculateFare(in)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, svc.CalculateFare(in))
	}
}

func TestCalculateFareVehicleMultipliers(t *testing.T) {
	svc := NewPricingService(testPricingConfig())

	cases := []struct {
		vehicleType string
		baseFare    int64
	}{
		{"bike", 2100},
		{"auto", 2400},
		{"sedan", 3000},
		{"suv", 3900},
		{"luxury", 6000},
		{"rickshaw", 3000}, // unknown type falls back to 1.0
	}

	for _, tc := range cases {
		fare := svc.CalculateFare(FareInput{VehicleType: tc.vehicleType, DistanceKM: 1, DurationMin: 0})
		assert.Equal(t, tc.baseFare, fare.BaseFare, "vehicle type %s", tc.vehicleType)
	}
}

func TestCalculateFareExplicitMultiplierWins(t *testing.T) {
	svc := NewPricingService(testPricingConfig())

	fare := svc.CalculateFare(FareInput{VehicleType: "bike", FareMultiplier: 2.0, DistanceKM: 1})
	assert.Equal(t, int64(6000), fare.BaseFare)
}

func TestCalculateFareBookingFeeNotMultiplied(t *testing.T) {
	svc := NewPricingService(testPricingConfig())

	fare := svc.CalculateFare(FareInput{VehicleType: "luxury", DistanceKM: 0, DurationMin: 0})
	assert.Equal(t, int64(500), fare.BookingFee)
}

func TestCalculateFareSurge(t *testing.T) {
	svc := NewPricingService(testPricingConfig())

	fare := svc.CalculateFare(FareInput{VehicleType: "sedan", DistanceKM: 10, DurationMin: 0, SurgeMultiplier: 1.5})
	// subtotal 3000+12000+500 = 15500, surge adds 50%
	assert.Equal(t, int64(7750), fare.SurgeFare)
	assert.Equal(t, int64(23250), fare.TotalFare)
}

func TestCalculateFareSurgeClamped(t *testing.T) {
	svc := NewPricingService(testPricingConfig())

	low := svc.CalculateFare(FareInput{VehicleType: "sedan", DistanceKM: 5, SurgeMultiplier: 0.2})
	assert.Equal(t, 1.0, low.SurgeMultiplier)
	assert.Equal(t, int64(0), low.SurgeFare)

	high := svc.CalculateFare(FareInput{VehicleType: "sedan", DistanceKM: 5, SurgeMultiplier: 9})
	assert.Equal(t, 5.0, high.SurgeMultiplier)
}

func TestCalculateFareDiscountCappedAtHalf(t *testing.T) {
	svc := NewPricingService(testPricingConfig())

	fare := svc.CalculateFare(FareInput{
		VehicleType:   "sedan",
		DistanceKM:    10,
		PromoDiscount: 1_000_000,
	})

	require.Equal(t, int64(15500), fare.TotalFare)
	assert.Equal(t, int64(7750), fare.Discount)
	assert.Equal(t, int64(7750), fare.FinalFare)
}

func TestCalculateFareMinimumFloor(t *testing.T) {
	svc := NewPricingService(testPricingConfig())

	fare := svc.CalculateFare(FareInput{VehicleType: "bike", DistanceKM: 0.1, DurationMin: 0})
	assert.Equal(t, int64(5000), fare.FinalFare)
}

func TestCalculateFareNegativeDiscountIgnored(t *testing.T) {
	svc := NewPricingService(testPricingConfig())

	fare := svc.CalculateFare(FareInput{VehicleType: "sedan", DistanceKM: 10, PromoDiscount: -500})
	assert.Equal(t, int64(0), fare.Discount)
	assert.Equal(t, fare.TotalFare, fare.FinalFare)
}
