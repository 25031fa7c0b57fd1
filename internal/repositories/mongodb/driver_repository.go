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
)

type driverRepository struct {
	collection *mongo.Collection
}

func NewDriverRepository(db *mongo.Database) interfaces.DriverRepository {
	return &driverRepository{
		collection: db.Collection("drivers"),
	}
}

func (r *driverRepository) Create(ctx context.Context, driver *models.Driver) error {
	now := time.Now()
	driver.ID = primitive.NewObjectID()
	driver.CreatedAt = now
	driver.UpdatedAt = now
	if driver.SearchRadiusKM == 0 {
		driver.SearchRadiusKM = utils.DefaultSearchRadiusKM
	}

	if _, err := r.collection.InsertOne(ctx, driver); err != nil {
		return fmt.Errorf("failed to create driver: %w", err)
	}
	return nil
}

func (r *driverRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Driver, error) {
	var driver models.Driver
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&driver)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, interfaces.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get driver: %w", err)
	}
	return &driver, nil
}

func (r *driverRepository) GetByUserID(ctx context.Context, userID primitive.ObjectID) (*models.Driver, error) {
	var driver models.Driver
	err := r.collection.FindOne(ctx, bson.M{"user_id": userID}).Decode(&driver)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, interfaces.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get driver by user: %w", err)
	}
	return &driver, nil
}

func (r *driverRepository) Update(ctx context.Context, id primitive.ObjectID, updates map[string]interface{}) error {
	updates["updated_at"] = time.Now()

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": updates})
	if err != nil {
		return fmt.Errorf("failed to update driver: %w", err)
	}
	if result.MatchedCount == 0 {
		return interfaces.ErrNotFound
	}
	return nil
}

func (r *driverRepository) List(ctx context.Context, params *utils.PaginationParams) ([]*models.Driver, int64, error) {
	total, err := r.collection.CountDocuments(ctx, bson.M{})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count drivers: %w", err)
	}

	cursor, err := r.collection.Find(ctx, bson.M{}, params.GetSortOptions())
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list drivers: %w", err)
	}
	defer cursor.Close(ctx)

	var drivers []*models.Driver
	if err := cursor.All(ctx, &drivers); err != nil {
		return nil, 0, fmt.Errorf("failed to decode drivers: %w", err)
	}
	return drivers, total, nil
}

func (r *driverRepository) SetOnline(ctx context.Context, id primitive.ObjectID, online bool) error {
	updates := map[string]interface{}{
		"is_online": online,
	}
	// Going offline always clears availability so a stale flag cannot leave
	// the driver matchable.
	if !online {
		updates["is_available"] = false
	}
	return r.Update(ctx, id, updates)
}

func (r *driverRepository) SetAvailability(ctx context.Context, id primitive.ObjectID, available bool, currentJobID *primitive.ObjectID) error {
	return r.Update(ctx, id, map[string]interface{}{
		"is_available":   available,
		"current_job_id": currentJobID,
	})
}

func (r *driverRepository) UpdateLocation(ctx context.Context, id primitive.ObjectID, lat, lng float64) error {
	return r.Update(ctx, id, map[string]interface{}{
		"location":         models.NewGeoPoint(lat, lng),
		"last_location_at": time.Now(),
	})
}

func (r *driverRepository) UpdateSearchRadius(ctx context.Context, id primitive.ObjectID, radiusKM float64) error {
	return r.Update(ctx, id, map[string]interface{}{
		"search_radius_km": radiusKM,
	})
}

// FindCandidates runs a $geoNear capped at the platform ceiling, then filters
// each driver against their own configured radius. A driver who set a 2km
// radius does not get pinged for a pickup 8km away even though the platform
// would allow it.
func (r *driverRepository) FindCandidates(ctx context.Context, lat, lng float64, vehicleTypes []string, limit int) ([]*models.Driver, error) {
	staleCutoff := time.Now().Add(-utils.LocationStaleness)

	matchQuery := bson.M{
		"approval_status":  models.ApprovalApproved,
		"is_online":        true,
		"is_available":     true,
		"current_job_id":   nil,
		"last_location_at": bson.M{"$gte": staleCutoff},
	}
	if len(vehicleTypes) > 0 {
		matchQuery["vehicle_type"] = bson.M{"$in": vehicleTypes}
	}

	pipeline := []bson.M{
		{"$geoNear": bson.M{
			"near": bson.M{
				"type":        "Point",
				"coordinates": []float64{lng, lat},
			},
			"distanceField": "distance",
			"maxDistance":   utils.MatchCeilingKM * 1000,
			"spherical":     true,
			"query":         matchQuery,
		}},
		{"$match": bson.M{
			"$expr": bson.M{
				"$lte": []interface{}{
					"$distance",
					bson.M{"$multiply": []interface{}{"$search_radius_km", 1000}},
				},
			},
		}},
		{"$limit": limit},
	}

	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to find candidate drivers: %w", err)
	}
	defer cursor.Close(ctx)

	var drivers []*models.Driver
	if err := cursor.All(ctx, &drivers); err != nil {
		return nil, fmt.Errorf("failed to decode candidate drivers: %w", err)
	}
	return drivers, nil
}

func (r *driverRepository) IncrementJobStats(ctx context.Context, id primitive.ObjectID, earnings int64) error {
	update := bson.M{
		"$inc": bson.M{
			"total_jobs":     1,
			"total_earnings": earnings,
		},
		"$set": bson.M{
			"updated_at": time.Now(),
		},
	}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return fmt.Errorf("failed to increment driver stats: %w", err)
	}
	if result.MatchedCount == 0 {
		return interfaces.ErrNotFound
	}
	return nil
}

func (r *driverRepository) UpdateRating(ctx context.Context, id primitive.ObjectID, rating float64, totalRatings int) error {
	return r.Update(ctx, id, map[string]interface{}{
		"rating":        rating,
		"total_ratings": totalRatings,
	})
}

func (r *driverRepository) SetApprovalStatus(ctx context.Context, id primitive.ObjectID, status models.ApprovalStatus) error {
	updates := map[string]interface{}{
		"approval_status": status,
	}
	if status == models.ApprovalApproved {
		updates["approved_at"] = time.Now()
	}
	return r.Update(ctx, id, updates)
}
