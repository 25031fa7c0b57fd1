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

type planRepository struct {
	collection *mongo.Collection
}

func NewPlanRepository(db *mongo.Database) interfaces.PlanRepository {
	return &planRepository{
		collection: db.Collection("subscription_plans"),
	}
}

func (r *planRepository) Create(ctx context.Context, plan *models.SubscriptionPlan) error {
	now := time.Now()
	plan.ID = primitive.NewObjectID()
	plan.CreatedAt = now
	plan.UpdatedAt = now

	if _, err := r.collection.InsertOne(ctx, plan); err != nil {
		return fmt.Errorf("failed to create plan: %w", err)
	}
	return nil
}

func (r *planRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.SubscriptionPlan, error) {
	var plan models.SubscriptionPlan
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&plan)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, interfaces.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get plan: %w", err)
	}
	return &plan, nil
}

func (r *planRepository) Update(ctx context.Context, id primitive.ObjectID, updates map[string]interface{}) error {
	updates["updated_at"] = time.Now()

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": updates})
	if err != nil {
		return fmt.Errorf("failed to update plan: %w", err)
	}
	if result.MatchedCount == 0 {
		return interfaces.ErrNotFound
	}
	return nil
}

func (r *planRepository) ListActive(ctx context.Context) ([]*models.SubscriptionPlan, error) {
	opts := options.Find().SetSort(bson.D{{Key: "price", Value: 1}})

	cursor, err := r.collection.Find(ctx, bson.M{"is_active": true}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list plans: %w", err)
	}
	defer cursor.Close(ctx)

	var plans []*models.SubscriptionPlan
	if err := cursor.All(ctx, &plans); err != nil {
		return nil, fmt.Errorf("failed to decode plans: %w", err)
	}
	return plans, nil
}

func (r *planRepository) GetTrialPlan(ctx context.Context) (*models.SubscriptionPlan, error) {
	var plan models.SubscriptionPlan
	err := r.collection.FindOne(ctx, bson.M{"is_trial": true, "is_active": true}).Decode(&plan)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, interfaces.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get trial plan: %w", err)
	}
	return &plan, nil
}
