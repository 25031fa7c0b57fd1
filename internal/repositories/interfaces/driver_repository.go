package interfaces

import (
	"context"

	"godispatch/internal/models"
	"godispatch/internal/utils"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type DriverRepository interface {
	Create(ctx context.Context, driver *models.Driver) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Driver, error)
	GetByUserID(ctx context.Context, userID primitive.ObjectID) (*models.Driver, error)
	Update(ctx context.Context, id primitive.ObjectID, updates map[string]interface{}) error
	List(ctx context.Context, params *utils.PaginationParams) ([]*models.Driver, int64, error)

	// Availability and presence
	SetOnline(ctx context.Context, id primitive.ObjectID, online bool) error
	SetAvailability(ctx context.Context, id primitive.ObjectID, available bool, currentJobID *primitive.ObjectID) error
	UpdateLocation(ctx context.Context, id primitive.ObjectID, lat, lng float64) error
	UpdateSearchRadius(ctx context.Context, id primitive.ObjectID, radiusKM float64) error

	// FindCandidates returns approved, online, available drivers of the given
	// vehicle types near the pickup point, sorted by distance. Each driver's
	// own search radius is honored, capped at the platform ceiling. The
	// returned drivers carry DistanceMeters.
	FindCandidates(ctx context.Context, lat, lng float64, vehicleTypes []string, limit int) ([]*models.Driver, error)

	// Stats written on job completion
	IncrementJobStats(ctx context.Context, id primitive.ObjectID, earnings int64) error
	UpdateRating(ctx context.Context, id primitive.ObjectID, rating float64, totalRatings int) error

	// Approval workflow
	SetApprovalStatus(ctx context.Context, id primitive.ObjectID, status models.ApprovalStatus) error
}
