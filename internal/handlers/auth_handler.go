package handlers

import (
	"github.com/gin-gonic/gin"

	"godispatch/internal/middleware"
	"godispatch/internal/services"
	"godispatch/internal/utils"
	"godispatch/internal/validators"
)

type AuthHandler struct {
	auth *services.AuthService
}

func NewAuthHandler(auth *services.AuthService) *AuthHandler {
	return &AuthHandler{auth: auth}
}

func (h *AuthHandler) Register(c *gin.Context) {
	var request validators.RegisterRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.BadRequestResponse(c, "Invalid request: "+err.Error())
		return
	}

	result, err := h.auth.Register(c.Request.Context(), services.RegisterInput{
		FirstName: request.FirstName,
		LastName:  request.LastName,
		Email:     request.Email,
		Phone:     request.Phone,
		Password:  request.Password,
	})
	if err != nil {
		utils.FromError(c, err)
		return
	}

	utils.CreatedResponse(c, "Account created", result)
}

func (h *AuthHandler) Login(c *gin.Context) {
	var request validators.LoginRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.BadRequestResponse(c, "Invalid request: "+err.Error())
		return
	}

	result, err := h.auth.Login(c.Request.Context(), request.Phone, request.Password)
	if err != nil {
		utils.FromError(c, err)
		return
	}

	utils.SuccessResponse(c, "Logged in", result)
}

func (h *AuthHandler) UpdateDeviceToken(c *gin.Context) {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		utils.UnauthorizedResponse(c)
		return
	}

	var request validators.DeviceTokenRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.BadRequestResponse(c, "Invalid request: "+err.Error())
		return
	}

	if err := h.auth.UpdateDeviceToken(c.Request.Context(), actor, request.DeviceToken); err != nil {
		utils.FromError(c, err)
		return
	}

	utils.SuccessResponse(c, "Device token updated", nil)
}
