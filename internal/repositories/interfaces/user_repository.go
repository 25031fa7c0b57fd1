package interfaces

import (
	"context"

	"godispatch/internal/models"
	"godispatch/internal/utils"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	GetByPhone(ctx context.Context, phone string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Update(ctx context.Context, id primitive.ObjectID, updates map[string]interface{}) error
	List(ctx context.Context, params *utils.PaginationParams) ([]*models.User, int64, error)

	UpdateDeviceToken(ctx context.Context, id primitive.ObjectID, token string) error
	UpdateRating(ctx context.Context, id primitive.ObjectID, rating float64, totalRatings int) error
	IncrementTotalRides(ctx context.Context, id primitive.ObjectID) error
}
