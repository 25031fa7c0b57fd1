package handlers

import (
	"github.com/gin-gonic/gin"

	"godispatch/internal/middleware"
	"godispatch/internal/services"
	"godispatch/internal/utils"
	"godispatch/internal/validators"
)

type DriverHandler struct {
	drivers *services.DriverService
}

func NewDriverHandler(drivers *services.DriverService) *DriverHandler {
	return &DriverHandler{drivers: drivers}
}

// Register creates the driver profile for the calling user.
func (h *DriverHandler) Register(c *gin.Context) {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		utils.UnauthorizedResponse(c)
		return
	}

	var request validators.RegisterDriverRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.BadRequestResponse(c, "Invalid request: "+err.Error())
		return
	}

	driver, err := h.drivers.Register(c.Request.Context(), actor, services.RegisterDriverInput{
		VehicleType:   request.VehicleType,
		VehicleNumber: request.VehicleNumber,
	})
	if err != nil {
		utils.FromError(c, err)
		return
	}

	utils.CreatedResponse(c, "Driver profile created, pending approval", driver)
}

func (h *DriverHandler) Profile(c *gin.Context) {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		utils.UnauthorizedResponse(c)
		return
	}

	driver, err := h.drivers.Profile(c.Request.Context(), actor)
	if err != nil {
		utils.FromError(c, err)
		return
	}

	utils.SuccessResponse(c, "", driver)
}

func (h *DriverHandler) GoOnline(c *gin.Context) {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		utils.UnauthorizedResponse(c)
		return
	}

	driver, err := h.drivers.GoOnline(c.Request.Context(), actor)
	if err != nil {
		utils.FromError(c, err)
		return
	}

	utils.SuccessResponse(c, "You are online", driver)
}

func (h *DriverHandler) GoOffline(c *gin.Context) {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		utils.UnauthorizedResponse(c)
		return
	}

	driver, err := h.drivers.GoOffline(c.Request.Context(), actor)
	if err != nil {
		utils.FromError(c, err)
		return
	}

	utils.SuccessResponse(c, "You are offline", driver)
}

func (h *DriverHandler) UpdateLocation(c *gin.Context) {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		utils.UnauthorizedResponse(c)
		return
	}

	var request validators.LocationUpdateRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.BadRequestResponse(c, "Invalid request: "+err.Error())
		return
	}

	if err := h.drivers.UpdateLocation(c.Request.Context(), actor, request.Lat, request.Lng); err != nil {
		utils.FromError(c, err)
		return
	}

	utils.SuccessResponse(c, "Location updated", nil)
}

func (h *DriverHandler) SetSearchRadius(c *gin.Context) {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		utils.UnauthorizedResponse(c)
		return
	}

	var request validators.SearchRadiusRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.BadRequestResponse(c, "Invalid request: "+err.Error())
		return
	}

	if err := h.drivers.SetSearchRadius(c.Request.Context(), actor, request.RadiusKM); err != nil {
		utils.FromError(c, err)
		return
	}

	utils.SuccessResponse(c, "Search radius updated", nil)
}
