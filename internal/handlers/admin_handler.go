package handlers

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"godispatch/internal/models"
	"godispatch/internal/services"
	"godispatch/internal/utils"
	"godispatch/internal/validators"
)

type AdminHandler struct {
	admin         *services.AdminService
	drivers       *services.DriverService
	catalog       *services.CatalogService
	subscriptions *services.SubscriptionService
}

func NewAdminHandler(admin *services.AdminService, drivers *services.DriverService, catalog *services.CatalogService, subscriptions *services.SubscriptionService) *AdminHandler {
	return &AdminHandler{
		admin:         admin,
		drivers:       drivers,
		catalog:       catalog,
		subscriptions: subscriptions,
	}
}

func (h *AdminHandler) ListDrivers(c *gin.Context) {
	params := utils.GetPaginationParams(c)
	drivers, total, err := h.drivers.List(c.Request.Context(), params)
	if err != nil {
		utils.FromError(c, err)
		return
	}

	utils.SuccessResponseWithMeta(c, "", drivers, &utils.Meta{
		Pagination: utils.NewPaginationMeta(params, total),
	})
}

func (h *AdminHandler) SetDriverApproval(c *gin.Context) {
	driverID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid driver ID")
		return
	}

	var request validators.ApprovalRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.BadRequestResponse(c, "Invalid request: "+err.Error())
		return
	}

	if err := h.drivers.SetApproval(c.Request.Context(), driverID, models.ApprovalStatus(request.Status)); err != nil {
		utils.FromError(c, err)
		return
	}

	utils.SuccessResponse(c, "Driver approval updated", nil)
}

func (h *AdminHandler) ListUsers(c *gin.Context) {
	params := utils.GetPaginationParams(c)
	users, total, err := h.admin.ListUsers(c.Request.Context(), params)
	if err != nil {
		utils.FromError(c, err)
		return
	}

	utils.SuccessResponseWithMeta(c, "", users, &utils.Meta{
		Pagination: utils.NewPaginationMeta(params, total),
	})
}

func (h *AdminHandler) ListCatalog(c *gin.Context) {
	entries, err := h.catalog.List(c.Request.Context())
	if err != nil {
		utils.FromError(c, err)
		return
	}

	utils.SuccessResponse(c, "", entries)
}

func (h *AdminHandler) UpsertCatalogEntry(c *gin.Context) {
	var request validators.CatalogEntryRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.BadRequestResponse(c, "Invalid request: "+err.Error())
		return
	}

	entry := &models.CatalogEntry{
		Category:       models.JobCategory(request.Category),
		VehicleType:    request.VehicleType,
		DisplayName:    request.DisplayName,
		FareMultiplier: request.FareMultiplier,
		IsActive:       request.IsActive,
	}
	if err := h.catalog.Upsert(c.Request.Context(), entry); err != nil {
		utils.FromError(c, err)
		return
	}

	utils.SuccessResponse(c, "Catalog entry saved", entry)
}

func (h *AdminHandler) CreatePlan(c *gin.Context) {
	var request validators.CreatePlanRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.BadRequestResponse(c, "Invalid request: "+err.Error())
		return
	}

	plan := &models.SubscriptionPlan{
		Name:         request.Name,
		Description:  request.Description,
		Price:        request.Price,
		DurationDays: request.DurationDays,
		Category:     request.Category,
		VehicleType:  request.VehicleType,
		IsTrial:      request.IsTrial,
		IsActive:     true,
	}
	if err := h.subscriptions.CreatePlan(c.Request.Context(), plan); err != nil {
		utils.FromError(c, err)
		return
	}

	utils.CreatedResponse(c, "Plan created", plan)
}

func (h *AdminHandler) CreatePromo(c *gin.Context) {
	var request validators.PromoCodeRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.BadRequestResponse(c, "Invalid request: "+err.Error())
		return
	}

	var expiresAt *time.Time
	if request.ExpiresAt != "" {
		parsed, err := time.Parse(time.RFC3339, request.ExpiresAt)
		if err != nil {
			utils.BadRequestResponse(c, "Invalid expires_at, expected RFC3339")
			return
		}
		expiresAt = &parsed
	}

	promo, err := h.admin.CreatePromo(c.Request.Context(), services.CreatePromoInput{
		Code:        request.Code,
		Type:        models.PromoType(request.Type),
		Value:       request.Value,
		MaxDiscount: request.MaxDiscount,
		MinFare:     request.MinFare,
		UsageLimit:  request.UsageLimit,
		ExpiresAt:   expiresAt,
	})
	if err != nil {
		utils.FromError(c, err)
		return
	}

	utils.CreatedResponse(c, "Promo code created", promo)
}

func (h *AdminHandler) ListPromos(c *gin.Context) {
	promos, err := h.admin.ListPromos(c.Request.Context())
	if err != nil {
		utils.FromError(c, err)
		return
	}

	utils.SuccessResponse(c, "", promos)
}

func (h *AdminHandler) JobStats(c *gin.Context) {
	var startDate, endDate time.Time
	if raw := c.Query("start_date"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			utils.BadRequestResponse(c, "Invalid start_date, expected YYYY-MM-DD")
			return
		}
		startDate = parsed
	}
	if raw := c.Query("end_date"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			utils.BadRequestResponse(c, "Invalid end_date, expected YYYY-MM-DD")
			return
		}
		endDate = parsed.AddDate(0, 0, 1)
	}

	stats, err := h.admin.JobStats(c.Request.Context(), startDate, endDate)
	if err != nil {
		utils.FromError(c, err)
		return
	}

	utils.SuccessResponse(c, "", stats)
}
