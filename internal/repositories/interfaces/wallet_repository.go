package interfaces

import (
	"context"

	"godispatch/internal/models"
	"godispatch/internal/utils"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type WalletRepository interface {
	// GetOrCreate returns the user's wallet, creating a zero-balance one on
	// first touch.
	GetOrCreate(ctx context.Context, userID primitive.ObjectID) (*models.Wallet, error)

	// Debit subtracts amount only while the balance covers it and records a
	// transaction. Returns ErrInsufficientFunds otherwise. Safe to call
	// inside a mongo session.
	Debit(ctx context.Context, userID primitive.ObjectID, amount int64, reason, reference string) (*models.WalletTransaction, error)

	Credit(ctx context.Context, userID primitive.ObjectID, amount int64, reason, reference string) (*models.WalletTransaction, error)

	GetTransactions(ctx context.Context, userID primitive.ObjectID, params *utils.PaginationParams) ([]*models.WalletTransaction, int64, error)
}
