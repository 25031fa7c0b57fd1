package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CatalogEntry maps a (category, vehicle type) pair to eligibility and
// pricing. Operators enable or disable vehicle classes per job category here
// without touching driver records.
type CatalogEntry struct {
	ID             primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Category       JobCategory        `json:"category" bson:"category"`
	VehicleType    string             `json:"vehicle_type" bson:"vehicle_type"`
	DisplayName    string             `json:"display_name" bson:"display_name"`
	FareMultiplier float64            `json:"fare_multiplier" bson:"fare_multiplier"`
	IsActive       bool               `json:"is_active" bson:"is_active"`
	CreatedAt      time.Time          `json:"created_at" bson:"created_at"`
	UpdatedAt      time.Time          `json:"updated_at" bson:"updated_at"`
}
