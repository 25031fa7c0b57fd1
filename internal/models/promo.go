package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type PromoType string

const (
	PromoFlat    PromoType = "flat"
	PromoPercent PromoType = "percent"
)

type PromoCode struct {
	ID          primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Code        string             `json:"code" bson:"code"`
	Type        PromoType          `json:"type" bson:"type"`
	Value       int64              `json:"value" bson:"value"`
	MaxDiscount int64              `json:"max_discount" bson:"max_discount"`
	MinFare     int64              `json:"min_fare" bson:"min_fare"`
	IsActive    bool               `json:"is_active" bson:"is_active"`
	ExpiresAt   *time.Time         `json:"expires_at" bson:"expires_at"`
	UsageLimit  int64              `json:"usage_limit" bson:"usage_limit"`
	UsedCount   int64              `json:"used_count" bson:"used_count"`
	CreatedAt   time.Time          `json:"created_at" bson:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at" bson:"updated_at"`
}

// IsUsable reports whether the promo may be applied at the given time.
func (p *PromoCode) IsUsable(now time.Time) bool {
	if !p.IsActive {
		return false
	}
	if p.ExpiresAt != nil && !p.ExpiresAt.After(now) {
		return false
	}
	if p.UsageLimit > 0 && p.UsedCount >= p.UsageLimit {
		return false
	}
	return true
}

// DiscountFor computes the raw discount for a fare total in minor units. The
// fare calculator applies its own 50% cap on top of this.
func (p *PromoCode) DiscountFor(total int64) int64 {
	if total < p.MinFare {
		return 0
	}

	var discount int64
	switch p.Type {
	case PromoPercent:
		discount = total * p.Value / 100
	default:
		discount = p.Value
	}

	if p.MaxDiscount > 0 && discount > p.MaxDiscount {
		discount = p.MaxDiscount
	}
	return discount
}
