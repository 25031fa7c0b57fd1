package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type JobCategory string
type JobStatus string
type PaymentMethod string
type PaymentStatus string
type CancelActor string

const (
	CategoryRide   JobCategory = "ride"
	CategoryParcel JobCategory = "parcel"

	// Ride lifecycle
	StatusRequested JobStatus = "requested"
	StatusAccepted  JobStatus = "accepted"
	StatusArrived   JobStatus = "arrived"
	StatusStarted   JobStatus = "started"
	StatusCompleted JobStatus = "completed"

	// Parcel lifecycle
	StatusPending   JobStatus = "pending"
	StatusAssigned  JobStatus = "assigned"
	StatusPickedUp  JobStatus = "picked_up"
	StatusInTransit JobStatus = "in_transit"
	StatusDelivered JobStatus = "delivered"

	StatusCancelled JobStatus = "cancelled"

	PaymentMethodCash   PaymentMethod = "cash"
	PaymentMethodCard   PaymentMethod = "card"
	PaymentMethodWallet PaymentMethod = "wallet"
	PaymentMethodUPI    PaymentMethod = "upi"

	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
	PaymentFailed    PaymentStatus = "failed"
	PaymentRefunded  PaymentStatus = "refunded"

	CancelledByUser   CancelActor = "user"
	CancelledByDriver CancelActor = "driver"
	CancelledByAdmin  CancelActor = "admin"
)

// FareBreakdown holds all monetary amounts in integer minor units (paise).
// Only FinalFare is authoritative after completion.
type FareBreakdown struct {
	BaseFare        int64   `json:"base_fare" bson:"base_fare"`
	DistanceFare    int64   `json:"distance_fare" bson:"distance_fare"`
	TimeFare        int64   `json:"time_fare" bson:"time_fare"`
	BookingFee      int64   `json:"booking_fee" bson:"booking_fee"`
	SurgeFare       int64   `json:"surge_fare" bson:"surge_fare"`
	TotalFare       int64   `json:"total_fare" bson:"total_fare"`
	Discount        int64   `json:"discount" bson:"discount"`
	FinalFare       int64   `json:"final_fare" bson:"final_fare"`
	SurgeMultiplier float64 `json:"surge_multiplier" bson:"surge_multiplier"`
	Currency        string  `json:"currency" bson:"currency"`
}

// Job is the umbrella entity for a ride or parcel delivery order. It is never
// deleted, only transitioned to a terminal status.
type Job struct {
	ID           primitive.ObjectID  `json:"id" bson:"_id,omitempty"`
	Category     JobCategory         `json:"category" bson:"category"`
	TrackingCode string              `json:"tracking_code,omitempty" bson:"tracking_code,omitempty"`
	UserID       primitive.ObjectID  `json:"user_id" bson:"user_id"`
	DriverID     *primitive.ObjectID `json:"driver_id" bson:"driver_id"`
	VehicleType  string              `json:"vehicle_type" bson:"vehicle_type"`
	Status       JobStatus           `json:"status" bson:"status"`

	Pickup  Place `json:"pickup" bson:"pickup"`
	Dropoff Place `json:"dropoff" bson:"dropoff"`

	DistanceKM  float64       `json:"distance_km" bson:"distance_km"`
	DurationMin int           `json:"duration_min" bson:"duration_min"`
	Fare        FareBreakdown `json:"fare" bson:"fare"`

	// Verification codes, shared only with the requester. PickupOTP gates the
	// ride start / parcel pickup transition, DeliveryOTP the parcel delivery.
	PickupOTP   string `json:"pickup_otp,omitempty" bson:"pickup_otp"`
	DeliveryOTP string `json:"delivery_otp,omitempty" bson:"delivery_otp"`

	PaymentMethod PaymentMethod `json:"payment_method" bson:"payment_method"`
	PaymentStatus PaymentStatus `json:"payment_status" bson:"payment_status"`
	PromoCode     string        `json:"promo_code,omitempty" bson:"promo_code,omitempty"`

	RequestedAt time.Time  `json:"requested_at" bson:"requested_at"`
	AcceptedAt  *time.Time `json:"accepted_at" bson:"accepted_at"`
	ArrivedAt   *time.Time `json:"arrived_at" bson:"arrived_at"`
	PickedUpAt  *time.Time `json:"picked_up_at" bson:"picked_up_at"`
	StartedAt   *time.Time `json:"started_at" bson:"started_at"`
	InTransitAt *time.Time `json:"in_transit_at" bson:"in_transit_at"`
	CompletedAt *time.Time `json:"completed_at" bson:"completed_at"`
	CancelledAt *time.Time `json:"cancelled_at" bson:"cancelled_at"`

	CancelledBy  CancelActor `json:"cancelled_by,omitempty" bson:"cancelled_by,omitempty"`
	CancelReason string      `json:"cancel_reason,omitempty" bson:"cancel_reason,omitempty"`

	// Bidirectional post-completion ratings.
	DriverRating *float64 `json:"driver_rating" bson:"driver_rating"`
	UserRating   *float64 `json:"user_rating" bson:"user_rating"`

	CreatedAt time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time `json:"updated_at" bson:"updated_at"`

	// Populated by $near queries only, never persisted.
	DistanceMeters float64 `json:"distance_meters,omitempty" bson:"distance,omitempty"`
}

// InitialStatus is the status a job of the given category is created in.
func InitialStatus(category JobCategory) JobStatus {
	if category == CategoryParcel {
		return StatusPending
	}
	return StatusRequested
}

// AcceptedStatus is the status a job enters when a driver wins the accept race.
func AcceptedStatus(category JobCategory) JobStatus {
	if category == CategoryParcel {
		return StatusAssigned
	}
	return StatusAccepted
}

// TerminalSuccessStatus is completed for rides, delivered for parcels.
func TerminalSuccessStatus(category JobCategory) JobStatus {
	if category == CategoryParcel {
		return StatusDelivered
	}
	return StatusCompleted
}

func (j *Job) IsTerminal() bool {
	switch j.Status {
	case StatusCompleted, StatusDelivered, StatusCancelled:
		return true
	}
	return false
}

func (j *Job) IsAssignedTo(driverID primitive.ObjectID) bool {
	return j.DriverID != nil && *j.DriverID == driverID
}

// ViewFor returns a sanitized copy of the job for the given viewer. OTPs are a
// hard confidentiality invariant: they are visible to the requesting user and
// nobody else, on every read and notify path.
func (j *Job) ViewFor(role UserRole, viewerID primitive.ObjectID) *Job {
	view := *j
	if role == RoleUser && viewerID == j.UserID {
		return &view
	}
	view.PickupOTP = ""
	view.DeliveryOTP = ""
	return &view
}
