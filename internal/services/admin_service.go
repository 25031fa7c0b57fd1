package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"godispatch/internal/apperr"
	"godispatch/internal/models"
	"godispatch/internal/repositories/interfaces"
	"godispatch/internal/utils"
	"godispatch/pkg/logger"
)

// AdminService groups the operator-only reads and writes that do not belong
// to a single domain service: promo codes, user listings, and job stats.
type AdminService struct {
	users  interfaces.UserRepository
	jobs   interfaces.JobRepository
	promos interfaces.PromoRepository
	logger *logger.Logger
}

func NewAdminService(users interfaces.UserRepository, jobs interfaces.JobRepository, promos interfaces.PromoRepository, log *logger.Logger) *AdminService {
	return &AdminService{
		users:  users,
		jobs:   jobs,
		promos: promos,
		logger: log,
	}
}

type CreatePromoInput struct {
	Code        string
	Type        models.PromoType
	Value       int64
	MaxDiscount int64
	MinFare     int64
	UsageLimit  int64
	ExpiresAt   *time.Time
}

func (s *AdminService) CreatePromo(ctx context.Context, input CreatePromoInput) (*models.PromoCode, error) {
	if input.Type == models.PromoPercent && input.Value > 100 {
		return nil, apperr.Validation("Percent promo value cannot exceed 100")
	}

	now := time.Now()
	promo := &models.PromoCode{
		Code:        strings.ToUpper(strings.TrimSpace(input.Code)),
		Type:        input.Type,
		Value:       input.Value,
		MaxDiscount: input.MaxDiscount,
		MinFare:     input.MinFare,
		UsageLimit:  input.UsageLimit,
		ExpiresAt:   input.ExpiresAt,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.promos.Create(ctx, promo); err != nil {
		return nil, apperr.Internal(err)
	}

	s.logger.WithField("code", promo.Code).Info("Promo code created")
	return promo, nil
}

func (s *AdminService) ListPromos(ctx context.Context) ([]*models.PromoCode, error) {
	promos, err := s.promos.List(ctx)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return promos, nil
}

func (s *AdminService) SetPromoActive(ctx context.Context, promoID primitive.ObjectID, active bool) error {
	if err := s.promos.SetActive(ctx, promoID, active); err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			return apperr.NotFound("Promo code not found")
		}
		return apperr.Internal(err)
	}
	return nil
}

func (s *AdminService) ListUsers(ctx context.Context, params *utils.PaginationParams) ([]*models.User, int64, error) {
	users, total, err := s.users.List(ctx, params)
	if err != nil {
		return nil, 0, apperr.Internal(err)
	}
	return users, total, nil
}

// JobStats aggregates counts and fare totals between the two dates. A zero
// start defaults to 30 days back, a zero end to now.
func (s *AdminService) JobStats(ctx context.Context, startDate, endDate time.Time) (map[string]interface{}, error) {
	if endDate.IsZero() {
		endDate = time.Now()
	}
	if startDate.IsZero() {
		startDate = endDate.AddDate(0, 0, -30)
	}
	if !startDate.Before(endDate) {
		return nil, apperr.Validation("Start date must be before end date")
	}

	stats, err := s.jobs.GetStats(ctx, startDate, endDate)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return stats, nil
}
