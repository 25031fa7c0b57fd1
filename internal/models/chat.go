package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ChatThread links the requester and transporter of a job for in-app
// messaging. Ensured to exist when a job is accepted.
type ChatThread struct {
	ID        primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	JobID     primitive.ObjectID `json:"job_id" bson:"job_id"`
	UserID    primitive.ObjectID `json:"user_id" bson:"user_id"`
	DriverID  primitive.ObjectID `json:"driver_id" bson:"driver_id"`
	CreatedAt time.Time          `json:"created_at" bson:"created_at"`
}
