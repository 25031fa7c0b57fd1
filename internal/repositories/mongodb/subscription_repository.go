package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"godispatch/internal/models"
	"godispatch/internal/repositories/interfaces"
	"godispatch/internal/utils"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type subscriptionRepository struct {
	collection *mongo.Collection
}

func NewSubscriptionRepository(db *mongo.Database) interfaces.SubscriptionRepository {
	return &subscriptionRepository{
		collection: db.Collection("subscriptions"),
	}
}

func (r *subscriptionRepository) Create(ctx context.Context, sub *models.Subscription) error {
	now := time.Now()
	sub.ID = primitive.NewObjectID()
	sub.CreatedAt = now
	sub.UpdatedAt = now

	if _, err := r.collection.InsertOne(ctx, sub); err != nil {
		return fmt.Errorf("failed to create subscription: %w", err)
	}
	return nil
}

func (r *subscriptionRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Subscription, error) {
	var sub models.Subscription
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&sub)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, interfaces.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get subscription: %w", err)
	}
	return &sub, nil
}

func (r *subscriptionRepository) GetByDriver(ctx context.Context, driverID primitive.ObjectID, params *utils.PaginationParams) ([]*models.Subscription, int64, error) {
	filter := bson.M{"driver_id": driverID}

	total, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count subscriptions: %w", err)
	}

	cursor, err := r.collection.Find(ctx, filter, params.GetSortOptions())
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list subscriptions: %w", err)
	}
	defer cursor.Close(ctx)

	var subs []*models.Subscription
	if err := cursor.All(ctx, &subs); err != nil {
		return nil, 0, fmt.Errorf("failed to decode subscriptions: %w", err)
	}
	return subs, total, nil
}

func (r *subscriptionRepository) GetActiveByDriver(ctx context.Context, driverID primitive.ObjectID, now time.Time) (*models.Subscription, error) {
	filter := bson.M{
		"driver_id": driverID,
		"status":    models.SubscriptionActive,
		"end_date":  bson.M{"$gt": now},
	}
	opts := options.FindOne().SetSort(bson.D{{Key: "end_date", Value: -1}})

	var sub models.Subscription
	err := r.collection.FindOne(ctx, filter, opts).Decode(&sub)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, interfaces.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get active subscription: %w", err)
	}
	return &sub, nil
}

func (r *subscriptionRepository) CountByDriver(ctx context.Context, driverID primitive.ObjectID) (int64, error) {
	count, err := r.collection.CountDocuments(ctx, bson.M{"driver_id": driverID})
	if err != nil {
		return 0, fmt.Errorf("failed to count driver subscriptions: %w", err)
	}
	return count, nil
}

func (r *subscriptionRepository) IncrementUsage(ctx context.Context, id primitive.ObjectID, earnings int64) error {
	update := bson.M{
		"$inc": bson.M{
			"jobs_completed":   1,
			"earnings_accrued": earnings,
		},
		"$set": bson.M{"updated_at": time.Now()},
	}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return fmt.Errorf("failed to increment subscription usage: %w", err)
	}
	if result.MatchedCount == 0 {
		return interfaces.ErrNotFound
	}
	return nil
}

func (r *subscriptionRepository) Cancel(ctx context.Context, id primitive.ObjectID) error {
	filter := bson.M{
		"_id":    id,
		"status": models.SubscriptionActive,
	}
	update := bson.M{"$set": bson.M{
		"status":     models.SubscriptionCancelled,
		"updated_at": time.Now(),
	}}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to cancel subscription: %w", err)
	}
	if result.MatchedCount == 0 {
		return interfaces.ErrConditionFailed
	}
	return nil
}

func (r *subscriptionRepository) ExpireDue(ctx context.Context, now time.Time) ([]primitive.ObjectID, error) {
	filter := bson.M{
		"status":   models.SubscriptionActive,
		"end_date": bson.M{"$lte": now},
	}

	// Collect the affected drivers first so the sweep can notify them.
	cursor, err := r.collection.Find(ctx, filter, options.Find().SetProjection(bson.M{"driver_id": 1}))
	if err != nil {
		return nil, fmt.Errorf("failed to find due subscriptions: %w", err)
	}

	var rows []struct {
		DriverID primitive.ObjectID `bson:"driver_id"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("failed to decode due subscriptions: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	update := bson.M{"$set": bson.M{
		"status":     models.SubscriptionExpired,
		"updated_at": now,
	}}
	if _, err := r.collection.UpdateMany(ctx, filter, update); err != nil {
		return nil, fmt.Errorf("failed to expire subscriptions: %w", err)
	}

	driverIDs := make([]primitive.ObjectID, 0, len(rows))
	for _, row := range rows {
		driverIDs = append(driverIDs, row.DriverID)
	}
	return driverIDs, nil
}
