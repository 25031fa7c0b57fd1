package interfaces

import (
	"context"

	"godispatch/internal/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type PromoRepository interface {
	Create(ctx context.Context, promo *models.PromoCode) error
	GetByCode(ctx context.Context, code string) (*models.PromoCode, error)
	IncrementUsage(ctx context.Context, id primitive.ObjectID) error
	SetActive(ctx context.Context, id primitive.ObjectID, active bool) error
	List(ctx context.Context) ([]*models.PromoCode, error)
}
