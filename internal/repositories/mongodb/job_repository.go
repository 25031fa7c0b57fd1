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

// Statuses in which a job occupies its driver.
var activeStatuses = []models.JobStatus{
	models.StatusAccepted,
	models.StatusArrived,
	models.StatusStarted,
	models.StatusAssigned,
	models.StatusPickedUp,
	models.StatusInTransit,
}

type jobRepository struct {
	collection *mongo.Collection
}

func NewJobRepository(db *mongo.Database) interfaces.JobRepository {
	return &jobRepository{
		collection: db.Collection("jobs"),
	}
}

func (r *jobRepository) Create(ctx context.Context, job *models.Job) error {
	now := time.Now()
	job.ID = primitive.NewObjectID()
	job.CreatedAt = now
	job.UpdatedAt = now
	if job.RequestedAt.IsZero() {
		job.RequestedAt = now
	}

	if _, err := r.collection.InsertOne(ctx, job); err != nil {
		return fmt.Errorf("failed to create job: %w", err)
	}
	return nil
}

func (r *jobRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Job, error) {
	var job models.Job
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&job)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, interfaces.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	return &job, nil
}

func (r *jobRepository) GetByTrackingCode(ctx context.Context, code string) (*models.Job, error) {
	var job models.Job
	err := r.collection.FindOne(ctx, bson.M{"tracking_code": code}).Decode(&job)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, interfaces.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get job by tracking code: %w", err)
	}
	return &job, nil
}

func (r *jobRepository) Update(ctx context.Context, id primitive.ObjectID, updates map[string]interface{}) error {
	updates["updated_at"] = time.Now()

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": updates})
	if err != nil {
		return fmt.Errorf("failed to update job: %w", err)
	}
	if result.MatchedCount == 0 {
		return interfaces.ErrNotFound
	}
	return nil
}

// Accept is the single-winner assignment. The filter demands the job still be
// in its category's initial status with no driver, so concurrent accepts
// resolve to exactly one winner at the database.
func (r *jobRepository) Accept(ctx context.Context, id primitive.ObjectID, driverID primitive.ObjectID, acceptedAt time.Time) (*models.Job, error) {
	filter := bson.M{
		"_id":       id,
		"driver_id": nil,
		"status": bson.M{"$in": []models.JobStatus{
			models.StatusRequested,
			models.StatusPending,
		}},
	}

	var job models.Job
	err := r.collection.FindOne(ctx, filter).Decode(&job)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, interfaces.ErrConditionFailed
		}
		return nil, fmt.Errorf("failed to load job for accept: %w", err)
	}

	update := bson.M{"$set": bson.M{
		"driver_id":   driverID,
		"status":      models.AcceptedStatus(job.Category),
		"accepted_at": acceptedAt,
		"updated_at":  acceptedAt,
	}}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var updated models.Job
	err = r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&updated)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, interfaces.ErrConditionFailed
		}
		return nil, fmt.Errorf("failed to accept job: %w", err)
	}
	return &updated, nil
}

func (r *jobRepository) TryTransition(ctx context.Context, id primitive.ObjectID, expected []models.JobStatus, updates map[string]interface{}) (*models.Job, error) {
	updates["updated_at"] = time.Now()

	filter := bson.M{
		"_id":    id,
		"status": bson.M{"$in": expected},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var updated models.Job
	err := r.collection.FindOneAndUpdate(ctx, filter, bson.M{"$set": updates}, opts).Decode(&updated)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, interfaces.ErrConditionFailed
		}
		return nil, fmt.Errorf("failed to transition job: %w", err)
	}
	return &updated, nil
}

func (r *jobRepository) GetByUser(ctx context.Context, userID primitive.ObjectID, params *utils.PaginationParams) ([]*models.Job, int64, error) {
	return r.findPaginated(ctx, bson.M{"user_id": userID}, params)
}

func (r *jobRepository) GetByDriver(ctx context.Context, driverID primitive.ObjectID, params *utils.PaginationParams) ([]*models.Job, int64, error) {
	return r.findPaginated(ctx, bson.M{"driver_id": driverID}, params)
}

func (r *jobRepository) findPaginated(ctx context.Context, filter bson.M, params *utils.PaginationParams) ([]*models.Job, int64, error) {
	total, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count jobs: %w", err)
	}

	cursor, err := r.collection.Find(ctx, filter, params.GetSortOptions())
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list jobs: %w", err)
	}
	defer cursor.Close(ctx)

	var jobs []*models.Job
	if err := cursor.All(ctx, &jobs); err != nil {
		return nil, 0, fmt.Errorf("failed to decode jobs: %w", err)
	}
	return jobs, total, nil
}

func (r *jobRepository) GetActiveByDriver(ctx context.Context, driverID primitive.ObjectID) (*models.Job, error) {
	filter := bson.M{
		"driver_id": driverID,
		"status":    bson.M{"$in": activeStatuses},
	}

	var job models.Job
	err := r.collection.FindOne(ctx, filter).Decode(&job)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, interfaces.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get active job for driver: %w", err)
	}
	return &job, nil
}

func (r *jobRepository) GetActiveByUser(ctx context.Context, userID primitive.ObjectID) (*models.Job, error) {
	open := append([]models.JobStatus{models.StatusRequested, models.StatusPending}, activeStatuses...)
	filter := bson.M{
		"user_id": userID,
		"status":  bson.M{"$in": open},
	}

	var job models.Job
	err := r.collection.FindOne(ctx, filter).Decode(&job)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, interfaces.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get active job for user: %w", err)
	}
	return &job, nil
}

func (r *jobRepository) GetOpenNearby(ctx context.Context, category models.JobCategory, lat, lng, radiusKM float64, limit int) ([]*models.Job, error) {
	filter := bson.M{
		"category":  category,
		"driver_id": nil,
		"status":    bson.M{"$in": []models.JobStatus{models.StatusRequested, models.StatusPending}},
		"pickup.point": bson.M{
			"$near": bson.M{
				"$geometry": bson.M{
					"type":        "Point",
					"coordinates": []float64{lng, lat},
				},
				"$maxDistance": radiusKM * 1000,
			},
		},
	}

	cursor, err := r.collection.Find(ctx, filter, options.Find().SetLimit(int64(limit)))
	if err != nil {
		return nil, fmt.Errorf("failed to find nearby jobs: %w", err)
	}
	defer cursor.Close(ctx)

	var jobs []*models.Job
	if err := cursor.All(ctx, &jobs); err != nil {
		return nil, fmt.Errorf("failed to decode nearby jobs: %w", err)
	}
	return jobs, nil
}

func (r *jobRepository) CountByStatus(ctx context.Context, status models.JobStatus) (int64, error) {
	count, err := r.collection.CountDocuments(ctx, bson.M{"status": status})
	if err != nil {
		return 0, fmt.Errorf("failed to count jobs by status: %w", err)
	}
	return count, nil
}

func (r *jobRepository) GetStats(ctx context.Context, startDate, endDate time.Time) (map[string]interface{}, error) {
	pipeline := []bson.M{
		{"$match": bson.M{
			"created_at": bson.M{"$gte": startDate, "$lte": endDate},
		}},
		{"$group": bson.M{
			"_id":           "$status",
			"count":         bson.M{"$sum": 1},
			"total_revenue": bson.M{"$sum": "$fare.final_fare"},
		}},
	}

	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate job stats: %w", err)
	}
	defer cursor.Close(ctx)

	var rows []bson.M
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("failed to decode job stats: %w", err)
	}

	stats := map[string]interface{}{}
	for _, row := range rows {
		status, _ := row["_id"].(string)
		stats[status] = map[string]interface{}{
			"count":         row["count"],
			"total_revenue": row["total_revenue"],
		}
	}
	return stats, nil
}
