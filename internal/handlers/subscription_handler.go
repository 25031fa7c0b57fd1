package handlers

import (
	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"godispatch/internal/middleware"
	"godispatch/internal/models"
	"godispatch/internal/services"
	"godispatch/internal/utils"
	"godispatch/internal/validators"
)

type SubscriptionHandler struct {
	subscriptions *services.SubscriptionService
}

func NewSubscriptionHandler(subscriptions *services.SubscriptionService) *SubscriptionHandler {
	return &SubscriptionHandler{subscriptions: subscriptions}
}

func (h *SubscriptionHandler) ListPlans(c *gin.Context) {
	plans, err := h.subscriptions.ListPlans(c.Request.Context())
	if err != nil {
		utils.FromError(c, err)
		return
	}

	utils.SuccessResponse(c, "", plans)
}

func (h *SubscriptionHandler) Purchase(c *gin.Context) {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		utils.UnauthorizedResponse(c)
		return
	}

	var request validators.PurchaseSubscriptionRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.BadRequestResponse(c, "Invalid request: "+err.Error())
		return
	}

	planID, err := primitive.ObjectIDFromHex(request.PlanID)
	if err != nil {
		utils.BadRequestResponse(c, "Invalid plan ID")
		return
	}

	sub, err := h.subscriptions.Purchase(c.Request.Context(), actor, services.PurchaseInput{
		PlanID:          planID,
		Method:          models.PaymentMethod(request.PaymentMethod),
		PaymentMethodID: request.PaymentMethodID,
	})
	if err != nil {
		utils.FromError(c, err)
		return
	}

	utils.CreatedResponse(c, "Subscription activated", sub)
}

func (h *SubscriptionHandler) Current(c *gin.Context) {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		utils.UnauthorizedResponse(c)
		return
	}

	sub, err := h.subscriptions.Current(c.Request.Context(), actor)
	if err != nil {
		utils.FromError(c, err)
		return
	}

	utils.SuccessResponse(c, "", sub)
}

func (h *SubscriptionHandler) History(c *gin.Context) {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		utils.UnauthorizedResponse(c)
		return
	}

	params := utils.GetPaginationParams(c)
	subs, total, err := h.subscriptions.History(c.Request.Context(), actor, params)
	if err != nil {
		utils.FromError(c, err)
		return
	}

	utils.SuccessResponseWithMeta(c, "", subs, &utils.Meta{
		Pagination: utils.NewPaginationMeta(params, total),
	})
}

func (h *SubscriptionHandler) Cancel(c *gin.Context) {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		utils.UnauthorizedResponse(c)
		return
	}

	subID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid subscription ID")
		return
	}

	if err := h.subscriptions.Cancel(c.Request.Context(), actor, subID); err != nil {
		utils.FromError(c, err)
		return
	}

	utils.SuccessResponse(c, "Subscription cancelled", nil)
}
