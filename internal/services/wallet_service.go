package services

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"godispatch/internal/apperr"
	"godispatch/internal/models"
	"godispatch/internal/repositories/interfaces"
	"godispatch/internal/utils"
	"godispatch/pkg/logger"
	"godispatch/pkg/payment"
)

// WalletService exposes the stored-value account users fund subscription
// purchases from.
type WalletService struct {
	wallets interfaces.WalletRepository
	gateway payment.Gateway
	logger  *logger.Logger
}

func NewWalletService(wallets interfaces.WalletRepository, gateway payment.Gateway, log *logger.Logger) *WalletService {
	return &WalletService{
		wallets: wallets,
		gateway: gateway,
		logger:  log,
	}
}

func (s *WalletService) Balance(ctx context.Context, actor Actor) (*models.Wallet, error) {
	wallet, err := s.wallets.GetOrCreate(ctx, actor.UserID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return wallet, nil
}

type TopUpInput struct {
	Amount          int64
	PaymentMethodID string
}

// TopUp charges the gateway and credits the wallet. The credit only happens
// after the charge clears.
func (s *WalletService) TopUp(ctx context.Context, actor Actor, input TopUpInput) (*models.WalletTransaction, error) {
	if input.Amount <= 0 {
		return nil, apperr.Validation("top-up amount must be positive")
	}

	result, err := s.gateway.Charge(ctx, &payment.ChargeRequest{
		Amount:          input.Amount,
		Currency:        "inr",
		PaymentMethodID: input.PaymentMethodID,
		CustomerRef:     actor.UserID.Hex(),
		Description:     "Wallet top-up",
	})
	if err != nil {
		return nil, apperr.Upstream("payment failed", err)
	}

	tx, err := s.wallets.Credit(ctx, actor.UserID, input.Amount, "wallet_topup", result.TransactionID)
	if err != nil {
		// Money was captured but the credit failed; refund so the books stay
		// straight.
		if _, rerr := s.gateway.Refund(ctx, result.TransactionID, input.Amount, "requested_by_customer"); rerr != nil {
			s.logger.WithError(rerr).WithField("transaction_id", result.TransactionID).
				Error("refund after failed wallet credit also failed")
		}
		return nil, apperr.Internal(err)
	}

	s.logger.WithFields(map[string]interface{}{
		"user_id": actor.UserID.Hex(),
		"amount":  input.Amount,
	}).Info(fmt.Sprintf("wallet topped up via %s", result.TransactionID))
	return tx, nil
}

func (s *WalletService) Transactions(ctx context.Context, actor Actor, params *utils.PaginationParams) ([]*models.WalletTransaction, int64, error) {
	txs, total, err := s.wallets.GetTransactions(ctx, actor.UserID, params)
	if err != nil {
		return nil, 0, apperr.Internal(err)
	}
	return txs, total, nil
}

// Refund credits a wallet from an admin action, e.g. compensating a
// cancelled prepaid job.
func (s *WalletService) Refund(ctx context.Context, userID primitive.ObjectID, amount int64, reference string) (*models.WalletTransaction, error) {
	if amount <= 0 {
		return nil, apperr.Validation("refund amount must be positive")
	}

	tx, err := s.wallets.Credit(ctx, userID, amount, "refund", reference)
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			return nil, apperr.NotFound("wallet")
		}
		return nil, apperr.Internal(err)
	}
	return tx, nil
}
