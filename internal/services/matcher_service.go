package services

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"godispatch/internal/apperr"
	"godispatch/internal/models"
	"godispatch/internal/repositories/interfaces"
	"godispatch/internal/utils"
	"godispatch/pkg/logger"
	"godispatch/pkg/realtime"
)

// MatcherService finds the drivers worth telling about a new job. The push
// path honors each candidate's own search radius; the pull path applies the
// browsing driver's requested radius directly.
type MatcherService struct {
	jobs     interfaces.JobRepository
	drivers  interfaces.DriverRepository
	catalog  *CatalogService
	notifier *NotificationService
	logger   *logger.Logger
}

func NewMatcherService(jobs interfaces.JobRepository, drivers interfaces.DriverRepository, catalog *CatalogService, notifier *NotificationService, log *logger.Logger) *MatcherService {
	return &MatcherService{
		jobs:     jobs,
		drivers:  drivers,
		catalog:  catalog,
		notifier: notifier,
		logger:   log,
	}
}

// FindCandidates returns approved, online, available drivers near the job's
// pickup, distance-ranked, each within their own configured radius.
func (s *MatcherService) FindCandidates(ctx context.Context, job *models.Job) ([]*models.Driver, error) {
	lat, lng := job.Pickup.Point.Lat(), job.Pickup.Point.Lng()

	types := s.eligibleTypes(ctx, job)
	candidates, err := s.drivers.FindCandidates(ctx, lat, lng, types, utils.MaxCandidates)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return candidates, nil
}

// eligibleTypes resolves the vehicle types to target. Catalog failures and
// empty catalogs fall back to a broad category broadcast rather than
// suppressing the job.
func (s *MatcherService) eligibleTypes(ctx context.Context, job *models.Job) []string {
	if job.VehicleType != "" {
		return []string{job.VehicleType}
	}

	types, err := s.catalog.ListEligibleVehicleTypes(ctx, job.Category)
	if err != nil {
		s.logger.WithError(err).Warn("catalog lookup failed, broadcasting to all vehicle types")
		return nil
	}
	return types
}

// BroadcastJob notifies every candidate about a newly created job and emits
// the category-wide broadcast event. Returns the number of drivers notified.
func (s *MatcherService) BroadcastJob(ctx context.Context, job *models.Job) (int, error) {
	candidates, err := s.FindCandidates(ctx, job)
	if err != nil {
		return 0, err
	}

	// Drivers never see OTPs.
	view := job.ViewFor(models.RoleDriver, primitive.NilObjectID)
	payload := eventPayload(view)

	effects := make([]Effect, 0, len(candidates)+1)
	effects = append(effects, RealtimeEffect(
		realtime.DriverCategoryRoom(string(job.Category)),
		"job_available",
		payload,
	))

	for _, candidate := range candidates {
		data := eventPayload(view)
		data["distance_meters"] = candidate.DistanceMeters
		effects = append(effects, RealtimeEffect(
			realtime.UserRoom(candidate.UserID),
			"job_offer",
			data,
		))
	}

	s.notifier.Dispatch(effects)

	s.logger.WithFields(map[string]interface{}{
		"job_id":     job.ID.Hex(),
		"category":   string(job.Category),
		"candidates": len(candidates),
	}).Info("job broadcast to candidate drivers")

	return len(candidates), nil
}

// OpenJobsNear is the pull feed for a browsing driver. The radius is clamped
// to the allowed range; jobs come back sanitized.
func (s *MatcherService) OpenJobsNear(ctx context.Context, driver *models.Driver, category models.JobCategory, lat, lng, radiusKM float64) ([]*models.Job, error) {
	if !driver.IsApproved() {
		return nil, apperr.Authorization("driver is not approved")
	}
	if category != models.CategoryRide && category != models.CategoryParcel {
		return nil, apperr.Validation("unknown job category %q", category)
	}

	if radiusKM <= 0 {
		radiusKM = driver.SearchRadiusKM
	}
	if radiusKM < utils.MinSearchRadiusKM {
		radiusKM = utils.MinSearchRadiusKM
	}
	if radiusKM > utils.MaxSearchRadiusKM {
		radiusKM = utils.MaxSearchRadiusKM
	}

	jobs, err := s.jobs.GetOpenNearby(ctx, category, lat, lng, radiusKM, utils.DefaultPageSize)
	if err != nil {
		return nil, apperr.Internal(err)
	}

	views := make([]*models.Job, 0, len(jobs))
	for _, job := range jobs {
		views = append(views, job.ViewFor(models.RoleDriver, driver.UserID))
	}
	return views, nil
}
