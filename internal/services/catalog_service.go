package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"godispatch/internal/apperr"
	"godispatch/internal/models"
	"godispatch/internal/repositories/interfaces"
	"godispatch/pkg/cache"
	"godispatch/pkg/logger"
)

const catalogCacheTTL = 5 * time.Minute

// CatalogService answers "is this (category, vehicle type) pair enabled and
// how is it priced" with a redis read-through cache in front of the catalog
// collection. The cache is optional; without it every lookup hits mongo.
type CatalogService struct {
	catalog interfaces.CatalogRepository
	cache   *cache.RedisCache
	logger  *logger.Logger
}

func NewCatalogService(catalog interfaces.CatalogRepository, redisCache *cache.RedisCache, log *logger.Logger) *CatalogService {
	return &CatalogService{
		catalog: catalog,
		cache:   redisCache,
		logger:  log,
	}
}

func catalogCacheKey(category models.JobCategory, vehicleType string) string {
	return fmt.Sprintf("catalog:%s:%s", category, vehicleType)
}

// Entry returns the catalog entry for the pair, ErrNotFound when none exists.
func (s *CatalogService) Entry(ctx context.Context, category models.JobCategory, vehicleType string) (*models.CatalogEntry, error) {
	key := catalogCacheKey(category, vehicleType)

	if s.cache != nil {
		var cached models.CatalogEntry
		if err := s.cache.Get(ctx, key, &cached); err == nil {
			return &cached, nil
		}
	}

	entry, err := s.catalog.Get(ctx, category, vehicleType)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, entry, catalogCacheTTL); err != nil {
			s.logger.WithError(err).Warn("failed to cache catalog entry")
		}
	}
	return entry, nil
}

// IsEligible reports whether an active catalog entry exists for the pair.
// A missing entry is a plain false, not an error.
func (s *CatalogService) IsEligible(ctx context.Context, category models.JobCategory, vehicleType string) (bool, error) {
	entry, err := s.Entry(ctx, category, vehicleType)
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return entry.IsActive, nil
}

// FareMultiplier returns the catalog override for the pair, or 0 when the
// pricing table default should apply.
func (s *CatalogService) FareMultiplier(ctx context.Context, category models.JobCategory, vehicleType string) float64 {
	entry, err := s.Entry(ctx, category, vehicleType)
	if err != nil || !entry.IsActive {
		return 0
	}
	return entry.FareMultiplier
}

// ListEligibleVehicleTypes returns the vehicle types with an active entry for
// the category.
func (s *CatalogService) ListEligibleVehicleTypes(ctx context.Context, category models.JobCategory) ([]string, error) {
	entries, err := s.catalog.List(ctx)
	if err != nil {
		return nil, err
	}

	var types []string
	for _, entry := range entries {
		if entry.IsActive && entry.Category == category {
			types = append(types, entry.VehicleType)
		}
	}
	return types, nil
}

func (s *CatalogService) List(ctx context.Context) ([]*models.CatalogEntry, error) {
	entries, err := s.catalog.List(ctx)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return entries, nil
}

func (s *CatalogService) Upsert(ctx context.Context, entry *models.CatalogEntry) error {
	if entry.Category != models.CategoryRide && entry.Category != models.CategoryParcel {
		return apperr.Validation("unknown job category %q", entry.Category)
	}
	if entry.VehicleType == "" {
		return apperr.Validation("vehicle type is required")
	}
	if entry.FareMultiplier < 0 {
		return apperr.Validation("fare multiplier cannot be negative")
	}

	if err := s.catalog.Upsert(ctx, entry); err != nil {
		return apperr.Internal(err)
	}
	s.invalidate(ctx, entry.Category, entry.VehicleType)
	return nil
}

func (s *CatalogService) SetActive(ctx context.Context, entry *models.CatalogEntry, active bool) error {
	if err := s.catalog.SetActive(ctx, entry.ID, active); err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			return apperr.NotFound("catalog entry")
		}
		return apperr.Internal(err)
	}
	s.invalidate(ctx, entry.Category, entry.VehicleType)
	return nil
}

func (s *CatalogService) invalidate(ctx context.Context, category models.JobCategory, vehicleType string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, catalogCacheKey(category, vehicleType)); err != nil {
		s.logger.WithError(err).Warn("failed to invalidate catalog cache")
	}
}
