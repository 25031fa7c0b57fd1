package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"godispatch/internal/apperr"
	"godispatch/internal/models"
	"godispatch/internal/repositories/interfaces"
	"godispatch/internal/utils"
	"godispatch/pkg/cache"
	"godispatch/pkg/logger"
)

// EligibilityService decides whether a driver is entitled to take jobs. A
// driver with no subscription history gets the one-time free trial granted on
// first lookup; the grant is idempotent across concurrent checks and server
// instances.
type EligibilityService struct {
	subscriptions interfaces.SubscriptionRepository
	plans         interfaces.PlanRepository
	cache         *cache.RedisCache
	logger        *logger.Logger
}

func NewEligibilityService(subscriptions interfaces.SubscriptionRepository, plans interfaces.PlanRepository, redisCache *cache.RedisCache, log *logger.Logger) *EligibilityService {
	return &EligibilityService{
		subscriptions: subscriptions,
		plans:         plans,
		cache:         redisCache,
		logger:        log,
	}
}

// Entitlement returns the subscription entitling the driver to take jobs of
// the given category. Conflict errors describe why the driver is not
// entitled; anything else is an infrastructure failure.
func (s *EligibilityService) Entitlement(ctx context.Context, driver *models.Driver, category models.JobCategory) (*models.Subscription, error) {
	now := time.Now()

	sub, err := s.subscriptions.GetActiveByDriver(ctx, driver.ID, now)
	if err == nil {
		if err := s.checkCoverage(ctx, sub, driver, category); err != nil {
			return nil, err
		}
		return sub, nil
	}
	if !errors.Is(err, interfaces.ErrNotFound) {
		return nil, apperr.Internal(err)
	}

	granted, err := s.maybeGrantTrial(ctx, driver, now)
	if err != nil {
		return nil, err
	}
	if granted == nil {
		return nil, apperr.Conflict("subscription expired")
	}
	if err := s.checkCoverage(ctx, granted, driver, category); err != nil {
		return nil, err
	}
	return granted, nil
}

// HasValidSubscription is the boolean convenience used by the go-online flow.
// It fails safe: infrastructure errors read as "not entitled".
func (s *EligibilityService) HasValidSubscription(ctx context.Context, driver *models.Driver) bool {
	_, err := s.Entitlement(ctx, driver, models.JobCategory(models.PlanCategoryAll))
	return err == nil
}

func (s *EligibilityService) checkCoverage(ctx context.Context, sub *models.Subscription, driver *models.Driver, category models.JobCategory) error {
	plan, err := s.plans.GetByID(ctx, sub.PlanID)
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			return apperr.Conflict("subscription plan no longer exists")
		}
		return apperr.Internal(err)
	}

	if string(category) != models.PlanCategoryAll &&
		plan.Category != models.PlanCategoryAll && plan.Category != string(category) {
		return apperr.Conflict("subscription does not cover %s jobs", category)
	}
	if plan.VehicleType != models.VehicleTypeAll && plan.VehicleType != driver.VehicleType {
		return apperr.Conflict("subscription does not cover vehicle type %s", driver.VehicleType)
	}
	return nil
}

// maybeGrantTrial creates the one-time trial subscription for a driver with
// no subscription history. The trial window is anchored to the driver's
// approval (or registration) date, so a driver who sat idle past the trial
// duration gets nothing. Returns nil when no grant applies.
func (s *EligibilityService) maybeGrantTrial(ctx context.Context, driver *models.Driver, now time.Time) (*models.Subscription, error) {
	count, err := s.subscriptions.CountByDriver(ctx, driver.ID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if count > 0 {
		return nil, nil
	}

	plan, err := s.plans.GetTrialPlan(ctx)
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			return nil, nil
		}
		return nil, apperr.Internal(err)
	}

	start := driver.TrialAnchor()
	end := start.AddDate(0, 0, plan.DurationDays)
	if !end.After(now) {
		return nil, nil
	}

	// Cross-instance guard: only one concurrent check may insert the trial.
	if s.cache != nil {
		key := fmt.Sprintf("trial_grant:%s", driver.ID.Hex())
		acquired, err := s.cache.SetNX(ctx, key, now.Unix(), utils.TrialGrantLockTTL)
		if err != nil {
			s.logger.WithError(err).Warn("trial grant lock unavailable, proceeding with existence check only")
		} else if !acquired {
			// A concurrent grant is in flight; re-read instead of inserting.
			sub, err := s.subscriptions.GetActiveByDriver(ctx, driver.ID, now)
			if err != nil {
				if errors.Is(err, interfaces.ErrNotFound) {
					return nil, nil
				}
				return nil, apperr.Internal(err)
			}
			return sub, nil
		}
	}

	// Re-check under the lock so a grant that landed between the first count
	// and lock acquisition is not duplicated.
	count, err = s.subscriptions.CountByDriver(ctx, driver.ID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if count > 0 {
		sub, err := s.subscriptions.GetActiveByDriver(ctx, driver.ID, now)
		if err != nil {
			if errors.Is(err, interfaces.ErrNotFound) {
				return nil, nil
			}
			return nil, apperr.Internal(err)
		}
		return sub, nil
	}

	sub := &models.Subscription{
		DriverID:  driver.ID,
		PlanID:    plan.ID,
		Status:    models.SubscriptionActive,
		StartDate: start,
		EndDate:   end,
	}
	if err := s.subscriptions.Create(ctx, sub); err != nil {
		return nil, apperr.Internal(err)
	}

	s.logger.WithFields(map[string]interface{}{
		"driver_id": driver.ID.Hex(),
		"plan_id":   plan.ID.Hex(),
		"end_date":  end,
	}).Info("granted free trial subscription")

	return sub, nil
}
