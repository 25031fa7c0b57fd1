package database

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// EnsureIndexes creates the indexes the dispatch core depends on: 2dsphere
// for proximity queries, unique keys for idempotency guarantees.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	indexes := map[string][]mongo.IndexModel{
		"drivers": {
			{Keys: bson.D{{Key: "location", Value: "2dsphere"}}},
			{Keys: bson.D{{Key: "user_id", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "is_online", Value: 1}, {Key: "is_available", Value: 1}, {Key: "vehicle_type", Value: 1}}},
		},
		"jobs": {
			{Keys: bson.D{{Key: "pickup.point", Value: "2dsphere"}}},
			{Keys: bson.D{{Key: "tracking_code", Value: 1}}, Options: options.Index().SetUnique(true).SetSparse(true)},
			{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}}},
			{Keys: bson.D{{Key: "driver_id", Value: 1}, {Key: "created_at", Value: -1}}},
			{Keys: bson.D{{Key: "status", Value: 1}, {Key: "category", Value: 1}}},
		},
		"subscriptions": {
			{Keys: bson.D{{Key: "driver_id", Value: 1}, {Key: "status", Value: 1}}},
			{Keys: bson.D{{Key: "status", Value: 1}, {Key: "end_date", Value: 1}}},
		},
		"subscription_plans": {
			{Keys: bson.D{{Key: "is_active", Value: 1}, {Key: "category", Value: 1}}},
		},
		"service_catalog": {
			{Keys: bson.D{{Key: "category", Value: 1}, {Key: "vehicle_type", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		"wallets": {
			{Keys: bson.D{{Key: "user_id", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		"wallet_transactions": {
			{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}}},
		},
		"promo_codes": {
			{Keys: bson.D{{Key: "code", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		"chat_threads": {
			{Keys: bson.D{{Key: "job_id", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
	}

	for collection, models := range indexes {
		if _, err := db.Collection(collection).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("failed to create indexes for %s: %w", collection, err)
		}
	}

	return nil
}
