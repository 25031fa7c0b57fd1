package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type ApprovalStatus string

const (
	ApprovalPending   ApprovalStatus = "pending"
	ApprovalApproved  ApprovalStatus = "approved"
	ApprovalRejected  ApprovalStatus = "rejected"
	ApprovalSuspended ApprovalStatus = "suspended"
)

// Driver is the transporter profile fulfilling jobs. Created once on
// registration, mutated continuously (location pings, online toggles,
// current-job pointer) for the life of the account.
type Driver struct {
	ID             primitive.ObjectID  `json:"id" bson:"_id,omitempty"`
	UserID         primitive.ObjectID  `json:"user_id" bson:"user_id"`
	VehicleType    string              `json:"vehicle_type" bson:"vehicle_type"`
	VehicleNumber  string              `json:"vehicle_number" bson:"vehicle_number"`
	ApprovalStatus ApprovalStatus      `json:"approval_status" bson:"approval_status"`
	IsOnline       bool                `json:"is_online" bson:"is_online"`
	IsAvailable    bool                `json:"is_available" bson:"is_available"`
	CurrentJobID   *primitive.ObjectID `json:"current_job_id" bson:"current_job_id"`
	Location       *GeoPoint           `json:"location" bson:"location,omitempty"`
	LastLocationAt *time.Time          `json:"last_location_at" bson:"last_location_at"`
	SearchRadiusKM float64             `json:"search_radius_km" bson:"search_radius_km"`
	Rating         float64             `json:"rating" bson:"rating"`
	TotalRatings   int64               `json:"total_ratings" bson:"total_ratings"`
	TotalJobs      int64               `json:"total_jobs" bson:"total_jobs"`
	TotalEarnings  int64               `json:"total_earnings" bson:"total_earnings"`
	CreatedAt      time.Time           `json:"created_at" bson:"created_at"`
	UpdatedAt      time.Time           `json:"updated_at" bson:"updated_at"`
	ApprovedAt     *time.Time          `json:"approved_at" bson:"approved_at"`

	// Populated by $geoNear queries only, never persisted.
	DistanceMeters float64 `json:"distance_meters,omitempty" bson:"distance,omitempty"`
}

func (d *Driver) IsApproved() bool {
	return d.ApprovalStatus == ApprovalApproved
}

// TrialAnchor is the date a free trial is measured from: approval when known,
// registration otherwise.
func (d *Driver) TrialAnchor() time.Time {
	if d.ApprovedAt != nil {
		return *d.ApprovedAt
	}
	return d.CreatedAt
}
