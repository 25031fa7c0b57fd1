package mongodb

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"godispatch/internal/models"
	"godispatch/internal/repositories/interfaces"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type promoRepository struct {
	collection *mongo.Collection
}

func NewPromoRepository(db *mongo.Database) interfaces.PromoRepository {
	return &promoRepository{
		collection: db.Collection("promo_codes"),
	}
}

func (r *promoRepository) Create(ctx context.Context, promo *models.PromoCode) error {
	now := time.Now()
	promo.ID = primitive.NewObjectID()
	promo.Code = strings.ToUpper(strings.TrimSpace(promo.Code))
	promo.CreatedAt = now
	promo.UpdatedAt = now

	if _, err := r.collection.InsertOne(ctx, promo); err != nil {
		return fmt.Errorf("failed to create promo code: %w", err)
	}
	return nil
}

func (r *promoRepository) GetByCode(ctx context.Context, code string) (*models.PromoCode, error) {
	var promo models.PromoCode
	err := r.collection.FindOne(ctx, bson.M{"code": strings.ToUpper(strings.TrimSpace(code))}).Decode(&promo)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, interfaces.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get promo code: %w", err)
	}
	return &promo, nil
}

func (r *promoRepository) IncrementUsage(ctx context.Context, id primitive.ObjectID) error {
	update := bson.M{
		"$inc": bson.M{"used_count": 1},
		"$set": bson.M{"updated_at": time.Now()},
	}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return fmt.Errorf("failed to increment promo usage: %w", err)
	}
	if result.MatchedCount == 0 {
		return interfaces.ErrNotFound
	}
	return nil
}

func (r *promoRepository) SetActive(ctx context.Context, id primitive.ObjectID, active bool) error {
	update := bson.M{"$set": bson.M{
		"is_active":  active,
		"updated_at": time.Now(),
	}}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return fmt.Errorf("failed to update promo code: %w", err)
	}
	if result.MatchedCount == 0 {
		return interfaces.ErrNotFound
	}
	return nil
}

func (r *promoRepository) List(ctx context.Context) ([]*models.PromoCode, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})

	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list promo codes: %w", err)
	}
	defer cursor.Close(ctx)

	var promos []*models.PromoCode
	if err := cursor.All(ctx, &promos); err != nil {
		return nil, fmt.Errorf("failed to decode promo codes: %w", err)
	}
	return promos, nil
}
