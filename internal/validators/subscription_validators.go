package validators

type PurchaseSubscriptionRequest struct {
	PlanID          string `json:"plan_id" binding:"required"`
	PaymentMethod   string `json:"payment_method" binding:"required,oneof=wallet card upi"`
	PaymentMethodID string `json:"payment_method_id"`
}

type CreatePlanRequest struct {
	Name         string `json:"name" binding:"required"`
	Description  string `json:"description"`
	Price        int64  `json:"price" binding:"required,gt=0"`
	DurationDays int    `json:"duration_days" binding:"required,gt=0"`
	Category     string `json:"category" binding:"omitempty,oneof=ride parcel all"`
	VehicleType  string `json:"vehicle_type"`
	IsTrial      bool   `json:"is_trial"`
}

type TopUpRequest struct {
	Amount          int64  `json:"amount" binding:"required,gt=0"`
	PaymentMethodID string `json:"payment_method_id" binding:"required"`
}

type CatalogEntryRequest struct {
	Category       string  `json:"category" binding:"required,oneof=ride parcel"`
	VehicleType    string  `json:"vehicle_type" binding:"required"`
	DisplayName    string  `json:"display_name"`
	FareMultiplier float64 `json:"fare_multiplier" binding:"omitempty,gt=0"`
	IsActive       bool    `json:"is_active"`
}

type PromoCodeRequest struct {
	Code        string `json:"code" binding:"required,min=3,max=20"`
	Type        string `json:"type" binding:"required,oneof=flat percent"`
	Value       int64  `json:"value" binding:"required,gt=0"`
	MaxDiscount int64  `json:"max_discount" binding:"omitempty,gt=0"`
	MinFare     int64  `json:"min_fare" binding:"omitempty,gte=0"`
	UsageLimit  int64  `json:"usage_limit" binding:"omitempty,gt=0"`
	ExpiresAt   string `json:"expires_at"`
}
