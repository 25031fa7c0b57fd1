package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"godispatch/internal/models"
	"godispatch/internal/repositories/interfaces"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type catalogRepository struct {
	collection *mongo.Collection
}

func NewCatalogRepository(db *mongo.Database) interfaces.CatalogRepository {
	return &catalogRepository{
		collection: db.Collection("service_catalog"),
	}
}

func (r *catalogRepository) Upsert(ctx context.Context, entry *models.CatalogEntry) error {
	now := time.Now()
	entry.UpdatedAt = now

	filter := bson.M{
		"category":     entry.Category,
		"vehicle_type": entry.VehicleType,
	}
	update := bson.M{
		"$set": bson.M{
			"display_name":    entry.DisplayName,
			"fare_multiplier": entry.FareMultiplier,
			"is_active":       entry.IsActive,
			"updated_at":      now,
		},
		"$setOnInsert": bson.M{
			"category":     entry.Category,
			"vehicle_type": entry.VehicleType,
			"created_at":   now,
		},
	}

	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	if err := r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(entry); err != nil {
		return fmt.Errorf("failed to upsert catalog entry: %w", err)
	}
	return nil
}

func (r *catalogRepository) Get(ctx context.Context, category models.JobCategory, vehicleType string) (*models.CatalogEntry, error) {
	var entry models.CatalogEntry
	err := r.collection.FindOne(ctx, bson.M{
		"category":     category,
		"vehicle_type": vehicleType,
	}).Decode(&entry)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, interfaces.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get catalog entry: %w", err)
	}
	return &entry, nil
}

func (r *catalogRepository) List(ctx context.Context) ([]*models.CatalogEntry, error) {
	opts := options.Find().SetSort(bson.D{{Key: "category", Value: 1}, {Key: "vehicle_type", Value: 1}})

	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list catalog: %w", err)
	}
	defer cursor.Close(ctx)

	var entries []*models.CatalogEntry
	if err := cursor.All(ctx, &entries); err != nil {
		return nil, fmt.Errorf("failed to decode catalog: %w", err)
	}
	return entries, nil
}

func (r *catalogRepository) SetActive(ctx context.Context, id primitive.ObjectID, active bool) error {
	update := bson.M{"$set": bson.M{
		"is_active":  active,
		"updated_at": time.Now(),
	}}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return fmt.Errorf("failed to update catalog entry: %w", err)
	}
	if result.MatchedCount == 0 {
		return interfaces.ErrNotFound
	}
	return nil
}
