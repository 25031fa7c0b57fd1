package validators

import (
	"godispatch/internal/models"
	"godispatch/internal/services"
)

// Typed request DTOs. The state machine only ever sees inputs that passed
// binding validation here.

type PlaceRequest struct {
	Lat     float64 `json:"lat" binding:"required,min=-90,max=90"`
	Lng     float64 `json:"lng" binding:"required,min=-180,max=180"`
	Address string  `json:"address" binding:"required"`
}

func (p PlaceRequest) ToPlace() models.Place {
	return models.Place{
		Point:   models.NewGeoPoint(p.Lat, p.Lng),
		Address: p.Address,
	}
}

type CreateJobRequest struct {
	Category      string       `json:"category" binding:"required,oneof=ride parcel"`
	VehicleType   string       `json:"vehicle_type"`
	Pickup        PlaceRequest `json:"pickup" binding:"required"`
	Dropoff       PlaceRequest `json:"dropoff" binding:"required"`
	PaymentMethod string       `json:"payment_method" binding:"required,oneof=cash card wallet upi"`
	PromoCode     string       `json:"promo_code"`
}

func (r CreateJobRequest) ToInput() services.CreateJobInput {
	return services.CreateJobInput{
		Category:      models.JobCategory(r.Category),
		VehicleType:   r.VehicleType,
		Pickup:        r.Pickup.ToPlace(),
		Dropoff:       r.Dropoff.ToPlace(),
		PaymentMethod: models.PaymentMethod(r.PaymentMethod),
		PromoCode:     r.PromoCode,
	}
}

type OTPRequest struct {
	OTP string `json:"otp" binding:"required,len=4"`
}

type CompleteJobRequest struct {
	ActualDistanceKM  float64 `json:"actual_distance_km" binding:"omitempty,gt=0"`
	ActualDurationMin int     `json:"actual_duration_min" binding:"omitempty,gt=0"`
}

type CancelJobRequest struct {
	Reason string `json:"reason" binding:"required,max=500"`
}

type RateJobRequest struct {
	Rating float64 `json:"rating" binding:"required,min=1,max=5"`
}

type NearbyJobsQuery struct {
	Category string  `form:"category" binding:"required,oneof=ride parcel"`
	Lat      float64 `form:"lat" binding:"required,min=-90,max=90"`
	Lng      float64 `form:"lng" binding:"required,min=-180,max=180"`
	RadiusKM float64 `form:"radius_km" binding:"omitempty,gt=0"`
}
