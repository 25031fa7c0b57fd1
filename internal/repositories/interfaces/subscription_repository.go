package interfaces

import (
	"context"
	"time"

	"godispatch/internal/models"
	"godispatch/internal/utils"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type SubscriptionRepository interface {
	Create(ctx context.Context, sub *models.Subscription) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Subscription, error)
	GetByDriver(ctx context.Context, driverID primitive.ObjectID, params *utils.PaginationParams) ([]*models.Subscription, int64, error)

	// GetActiveByDriver returns the driver's active, unexpired subscription
	// (latest end date wins when several overlap), or ErrNotFound.
	GetActiveByDriver(ctx context.Context, driverID primitive.ObjectID, now time.Time) (*models.Subscription, error)

	// CountByDriver counts every subscription the driver has ever held,
	// including expired and cancelled ones. Zero means trial-eligible.
	CountByDriver(ctx context.Context, driverID primitive.ObjectID) (int64, error)

	IncrementUsage(ctx context.Context, id primitive.ObjectID, earnings int64) error
	Cancel(ctx context.Context, id primitive.ObjectID) error

	// ExpireDue flips active subscriptions whose end date has passed to
	// expired and returns the affected driver IDs.
	ExpireDue(ctx context.Context, now time.Time) ([]primitive.ObjectID, error)
}

type PlanRepository interface {
	Create(ctx context.Context, plan *models.SubscriptionPlan) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.SubscriptionPlan, error)
	Update(ctx context.Context, id primitive.ObjectID, updates map[string]interface{}) error
	ListActive(ctx context.Context) ([]*models.SubscriptionPlan, error)
	GetTrialPlan(ctx context.Context) (*models.SubscriptionPlan, error)
}
