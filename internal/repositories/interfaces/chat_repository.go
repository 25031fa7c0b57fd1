package interfaces

import (
	"context"

	"godispatch/internal/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type ChatRepository interface {
	// EnsureThread creates the job's chat thread if missing and returns it.
	EnsureThread(ctx context.Context, jobID, userID, driverID primitive.ObjectID) (*models.ChatThread, error)
	GetByJob(ctx context.Context, jobID primitive.ObjectID) (*models.ChatThread, error)
}
