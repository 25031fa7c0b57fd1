package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type SubscriptionStatus string

const (
	SubscriptionActive    SubscriptionStatus = "active"
	SubscriptionExpired   SubscriptionStatus = "expired"
	SubscriptionCancelled SubscriptionStatus = "cancelled"
	SubscriptionPending   SubscriptionStatus = "pending"
)

// PlanCategoryAll marks a plan applicable to every job category.
const PlanCategoryAll = "all"

// VehicleTypeAll marks a plan or catalog entry applicable to every vehicle type.
const VehicleTypeAll = "all"

// SubscriptionPlan prices time-boxed access to the job marketplace. Price is in
// integer minor units (paise).
type SubscriptionPlan struct {
	ID           primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Name         string             `json:"name" bson:"name"`
	Description  string             `json:"description" bson:"description"`
	Price        int64              `json:"price" bson:"price"`
	DurationDays int                `json:"duration_days" bson:"duration_days"`
	Category     string             `json:"category" bson:"category"`
	VehicleType  string             `json:"vehicle_type" bson:"vehicle_type"`
	IsTrial      bool               `json:"is_trial" bson:"is_trial"`
	IsActive     bool               `json:"is_active" bson:"is_active"`
	CreatedAt    time.Time          `json:"created_at" bson:"created_at"`
	UpdatedAt    time.Time          `json:"updated_at" bson:"updated_at"`
}

// Subscription is a driver's time-boxed grant to accept jobs. Renewal always
// creates a new record; an expired or cancelled record is never reactivated.
type Subscription struct {
	ID              primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	DriverID        primitive.ObjectID `json:"driver_id" bson:"driver_id"`
	PlanID          primitive.ObjectID `json:"plan_id" bson:"plan_id"`
	Status          SubscriptionStatus `json:"status" bson:"status"`
	StartDate       time.Time          `json:"start_date" bson:"start_date"`
	EndDate         time.Time          `json:"end_date" bson:"end_date"`
	JobsCompleted   int64              `json:"jobs_completed" bson:"jobs_completed"`
	EarningsAccrued int64              `json:"earnings_accrued" bson:"earnings_accrued"`
	PaymentRef      string             `json:"payment_ref,omitempty" bson:"payment_ref,omitempty"`
	CreatedAt       time.Time          `json:"created_at" bson:"created_at"`
	UpdatedAt       time.Time          `json:"updated_at" bson:"updated_at"`
}

// IsValid reports whether the subscription currently entitles its driver to
// accept jobs.
func (s *Subscription) IsValid(now time.Time) bool {
	return s.Status == SubscriptionActive && s.EndDate.After(now)
}
