package interfaces

import (
	"context"

	"godispatch/internal/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type CatalogRepository interface {
	Upsert(ctx context.Context, entry *models.CatalogEntry) error
	Get(ctx context.Context, category models.JobCategory, vehicleType string) (*models.CatalogEntry, error)
	List(ctx context.Context) ([]*models.CatalogEntry, error)
	SetActive(ctx context.Context, id primitive.ObjectID, active bool) error
}
