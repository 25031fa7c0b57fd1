package validators

type RegisterDriverRequest struct {
	VehicleType   string `json:"vehicle_type" binding:"required"`
	VehicleNumber string `json:"vehicle_number" binding:"required"`
}

type LocationUpdateRequest struct {
	Lat float64 `json:"lat" binding:"required,min=-90,max=90"`
	Lng float64 `json:"lng" binding:"required,min=-180,max=180"`
}

type SearchRadiusRequest struct {
	RadiusKM float64 `json:"radius_km" binding:"required,gt=0"`
}

type ApprovalRequest struct {
	Status string `json:"status" binding:"required,oneof=approved rejected suspended"`
}
