package interfaces

import (
	"context"
	"time"

	"godispatch/internal/models"
	"godispatch/internal/utils"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type JobRepository interface {
	// Basic CRUD operations
	Create(ctx context.Context, job *models.Job) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Job, error)
	GetByTrackingCode(ctx context.Context, code string) (*models.Job, error)
	Update(ctx context.Context, id primitive.ObjectID, updates map[string]interface{}) error

	// Accept atomically assigns a driver to a job that is still in its
	// initial status with no driver. Returns the post-assignment document,
	// or ErrConditionFailed when another driver already won.
	Accept(ctx context.Context, id primitive.ObjectID, driverID primitive.ObjectID, acceptedAt time.Time) (*models.Job, error)

	// TryTransition applies updates only while the job is in one of the
	// expected statuses. Returns the updated document or ErrConditionFailed.
	TryTransition(ctx context.Context, id primitive.ObjectID, expected []models.JobStatus, updates map[string]interface{}) (*models.Job, error)

	// Search and filtering
	GetByUser(ctx context.Context, userID primitive.ObjectID, params *utils.PaginationParams) ([]*models.Job, int64, error)
	GetByDriver(ctx context.Context, driverID primitive.ObjectID, params *utils.PaginationParams) ([]*models.Job, int64, error)
	GetActiveByDriver(ctx context.Context, driverID primitive.ObjectID) (*models.Job, error)
	GetActiveByUser(ctx context.Context, userID primitive.ObjectID) (*models.Job, error)

	// GetOpenNearby returns unassigned jobs whose pickup lies within radiusKM
	// of the given location, newest first. Used by the driver-side pull feed.
	GetOpenNearby(ctx context.Context, category models.JobCategory, lat, lng, radiusKM float64, limit int) ([]*models.Job, error)

	// Analytics
	CountByStatus(ctx context.Context, status models.JobStatus) (int64, error)
	GetStats(ctx context.Context, startDate, endDate time.Time) (map[string]interface{}, error)
}
