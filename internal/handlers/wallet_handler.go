package handlers

import (
	"github.com/gin-gonic/gin"

	"godispatch/internal/middleware"
	"godispatch/internal/services"
	"godispatch/internal/utils"
	"godispatch/internal/validators"
)

type WalletHandler struct {
	wallets *services.WalletService
}

func NewWalletHandler(wallets *services.WalletService) *WalletHandler {
	return &WalletHandler{wallets: wallets}
}

func (h *WalletHandler) Balance(c *gin.Context) {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		utils.UnauthorizedResponse(c)
		return
	}

	wallet, err := h.wallets.Balance(c.Request.Context(), actor)
	if err != nil {
		utils.FromError(c, err)
		return
	}

	utils.SuccessResponse(c, "", wallet)
}

func (h *WalletHandler) TopUp(c *gin.Context) {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		utils.UnauthorizedResponse(c)
		return
	}

	var request validators.TopUpRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.BadRequestResponse(c, "Invalid request: "+err.Error())
		return
	}

	tx, err := h.wallets.TopUp(c.Request.Context(), actor, services.TopUpInput{
		Amount:          request.Amount,
		PaymentMethodID: request.PaymentMethodID,
	})
	if err != nil {
		utils.FromError(c, err)
		return
	}

	utils.SuccessResponse(c, "Wallet topped up", tx)
}

func (h *WalletHandler) Transactions(c *gin.Context) {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		utils.UnauthorizedResponse(c)
		return
	}

	params := utils.GetPaginationParams(c)
	txs, total, err := h.wallets.Transactions(c.Request.Context(), actor, params)
	if err != nil {
		utils.FromError(c, err)
		return
	}

	utils.SuccessResponseWithMeta(c, "", txs, &utils.Meta{
		Pagination: utils.NewPaginationMeta(params, total),
	})
}
