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

type chatRepository struct {
	collection *mongo.Collection
}

func NewChatRepository(db *mongo.Database) interfaces.ChatRepository {
	return &chatRepository{
		collection: db.Collection("chat_threads"),
	}
}

func (r *chatRepository) EnsureThread(ctx context.Context, jobID, userID, driverID primitive.ObjectID) (*models.ChatThread, error) {
	filter := bson.M{"job_id": jobID}
	update := bson.M{"$setOnInsert": bson.M{
		"job_id":     jobID,
		"user_id":    userID,
		"driver_id":  driverID,
		"created_at": time.Now(),
	}}

	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	var thread models.ChatThread
	if err := r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&thread); err != nil {
		return nil, fmt.Errorf("failed to ensure chat thread: %w", err)
	}
	return &thread, nil
}

func (r *chatRepository) GetByJob(ctx context.Context, jobID primitive.ObjectID) (*models.ChatThread, error) {
	var thread models.ChatThread
	err := r.collection.FindOne(ctx, bson.M{"job_id": jobID}).Decode(&thread)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, interfaces.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get chat thread: %w", err)
	}
	return &thread, nil
}
