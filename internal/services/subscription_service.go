package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"godispatch/internal/apperr"
	"godispatch/internal/models"
	"godispatch/internal/repositories/interfaces"
	"godispatch/internal/utils"
	"godispatch/pkg/logger"
	"godispatch/pkg/payment"
	"godispatch/pkg/realtime"
)

// TxRunner executes fn atomically. Backed by a mongo session in production.
type TxRunner interface {
	RunTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// SubscriptionService sells and expires the time-boxed grants that entitle
// drivers to accept jobs. Wallet purchases are transactional: no charge
// without a subscription, no subscription without a cleared charge.
type SubscriptionService struct {
	subscriptions interfaces.SubscriptionRepository
	plans         interfaces.PlanRepository
	drivers       interfaces.DriverRepository
	wallets       interfaces.WalletRepository
	gateway       payment.Gateway
	tx            TxRunner
	eligibility   *EligibilityService
	notifier      *NotificationService
	logger        *logger.Logger
}

type SubscriptionServiceDeps struct {
	Subscriptions interfaces.SubscriptionRepository
	Plans         interfaces.PlanRepository
	Drivers       interfaces.DriverRepository
	Wallets       interfaces.WalletRepository
	Gateway       payment.Gateway
	Tx            TxRunner
	Eligibility   *EligibilityService
	Notifier      *NotificationService
	Logger        *logger.Logger
}

func NewSubscriptionService(deps SubscriptionServiceDeps) *SubscriptionService {
	return &SubscriptionService{
		subscriptions: deps.Subscriptions,
		plans:         deps.Plans,
		drivers:       deps.Drivers,
		wallets:       deps.Wallets,
		gateway:       deps.Gateway,
		tx:            deps.Tx,
		eligibility:   deps.Eligibility,
		notifier:      deps.Notifier,
		logger:        deps.Logger,
	}
}

type PurchaseInput struct {
	PlanID          primitive.ObjectID
	Method          models.PaymentMethod
	PaymentMethodID string
}

// Purchase buys a plan for the calling driver.
func (s *SubscriptionService) Purchase(ctx context.Context, actor Actor, input PurchaseInput) (*models.Subscription, error) {
	driver, err := s.requireDriver(ctx, actor)
	if err != nil {
		return nil, err
	}
	if !driver.IsApproved() {
		return nil, apperr.Conflict("driver is not approved")
	}

	plan, err := s.plans.GetByID(ctx, input.PlanID)
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			return nil, apperr.NotFound("subscription plan")
		}
		return nil, apperr.Internal(err)
	}
	if !plan.IsActive {
		return nil, apperr.Validation("plan is not available")
	}
	if plan.IsTrial {
		return nil, apperr.Validation("trial plans cannot be purchased")
	}

	now := time.Now()
	if _, err := s.subscriptions.GetActiveByDriver(ctx, driver.ID, now); err == nil {
		return nil, apperr.Conflict("subscription already active")
	} else if !errors.Is(err, interfaces.ErrNotFound) {
		return nil, apperr.Internal(err)
	}

	sub := &models.Subscription{
		DriverID:  driver.ID,
		PlanID:    plan.ID,
		Status:    models.SubscriptionActive,
		StartDate: now,
		EndDate:   now.AddDate(0, 0, plan.DurationDays),
	}

	switch input.Method {
	case models.PaymentMethodWallet:
		err = s.tx.RunTransaction(ctx, func(txCtx context.Context) error {
			tx, err := s.wallets.Debit(txCtx, actor.UserID, plan.Price, "subscription_purchase", plan.ID.Hex())
			if err != nil {
				return err
			}
			sub.PaymentRef = tx.ID.Hex()
			return s.subscriptions.Create(txCtx, sub)
		})
		if err != nil {
			if errors.Is(err, interfaces.ErrInsufficientFunds) {
				return nil, apperr.Conflict("insufficient wallet balance")
			}
			return nil, apperr.Internal(err)
		}

	case models.PaymentMethodCard, models.PaymentMethodUPI:
		result, err := s.gateway.Charge(ctx, &payment.ChargeRequest{
			Amount:          plan.Price,
			Currency:        "inr",
			PaymentMethodID: input.PaymentMethodID,
			CustomerRef:     actor.UserID.Hex(),
			Description:     fmt.Sprintf("Subscription: %s", plan.Name),
			Metadata: map[string]string{
				"driver_id": driver.ID.Hex(),
				"plan_id":   plan.ID.Hex(),
			},
		})
		if err != nil {
			return nil, apperr.Upstream("payment failed", err)
		}
		sub.PaymentRef = result.TransactionID

		if err := s.subscriptions.Create(ctx, sub); err != nil {
			// The charge cleared but the record did not land; refund rather
			// than leave money taken for nothing.
			if _, rerr := s.gateway.Refund(ctx, result.TransactionID, plan.Price, "requested_by_customer"); rerr != nil {
				s.logger.WithError(rerr).WithField("transaction_id", result.TransactionID).
					Error("refund after failed subscription insert also failed")
			}
			return nil, apperr.Internal(err)
		}

	default:
		return nil, apperr.Validation("unsupported payment method %q", input.Method)
	}

	s.logger.WithFields(map[string]interface{}{
		"driver_id": driver.ID.Hex(),
		"plan_id":   plan.ID.Hex(),
		"end_date":  sub.EndDate,
	}).Info("subscription purchased")

	s.notifier.Dispatch([]Effect{
		RealtimeEffect(realtime.UserRoom(actor.UserID), "subscription_activated", eventPayload(sub)),
	})
	return sub, nil
}

// Current returns the driver's active subscription. Reading through the
// eligibility service preserves the first-lookup trial grant.
func (s *SubscriptionService) Current(ctx context.Context, actor Actor) (*models.Subscription, error) {
	driver, err := s.requireDriver(ctx, actor)
	if err != nil {
		return nil, err
	}
	return s.eligibility.Entitlement(ctx, driver, models.JobCategory(models.PlanCategoryAll))
}

func (s *SubscriptionService) History(ctx context.Context, actor Actor, params *utils.PaginationParams) ([]*models.Subscription, int64, error) {
	driver, err := s.requireDriver(ctx, actor)
	if err != nil {
		return nil, 0, err
	}

	subs, total, err := s.subscriptions.GetByDriver(ctx, driver.ID, params)
	if err != nil {
		return nil, 0, apperr.Internal(err)
	}
	return subs, total, nil
}

func (s *SubscriptionService) Cancel(ctx context.Context, actor Actor, subscriptionID primitive.ObjectID) error {
	driver, err := s.requireDriver(ctx, actor)
	if err != nil {
		return err
	}

	sub, err := s.subscriptions.GetByID(ctx, subscriptionID)
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			return apperr.NotFound("subscription")
		}
		return apperr.Internal(err)
	}
	if sub.DriverID != driver.ID {
		return apperr.Authorization("subscription does not belong to you")
	}

	if err := s.subscriptions.Cancel(ctx, subscriptionID); err != nil {
		if errors.Is(err, interfaces.ErrConditionFailed) {
			return apperr.Conflict("subscription is not active")
		}
		return apperr.Internal(err)
	}
	return nil
}

func (s *SubscriptionService) ListPlans(ctx context.Context) ([]*models.SubscriptionPlan, error) {
	plans, err := s.plans.ListActive(ctx)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return plans, nil
}

func (s *SubscriptionService) CreatePlan(ctx context.Context, plan *models.SubscriptionPlan) error {
	if plan.Price < 0 {
		return apperr.Validation("plan price cannot be negative")
	}
	if plan.DurationDays <= 0 {
		return apperr.Validation("plan duration must be positive")
	}
	if plan.Category == "" {
		plan.Category = models.PlanCategoryAll
	}
	if plan.VehicleType == "" {
		plan.VehicleType = models.VehicleTypeAll
	}

	if err := s.plans.Create(ctx, plan); err != nil {
		return apperr.Internal(err)
	}
	return nil
}

// ExpireDue flips lapsed subscriptions and forces the affected drivers
// offline unless another grant still covers them.
func (s *SubscriptionService) ExpireDue(ctx context.Context) error {
	now := time.Now()
	driverIDs, err := s.subscriptions.ExpireDue(ctx, now)
	if err != nil {
		return apperr.Internal(err)
	}

	for _, driverID := range driverIDs {
		if _, err := s.subscriptions.GetActiveByDriver(ctx, driverID, now); err == nil {
			continue
		}

		driver, err := s.drivers.GetByID(ctx, driverID)
		if err != nil {
			s.logger.WithError(err).WithField("driver_id", driverID.Hex()).Warn("expired driver not found")
			continue
		}

		if err := s.drivers.SetOnline(ctx, driverID, false); err != nil {
			s.logger.WithError(err).WithField("driver_id", driverID.Hex()).Error("failed to force expired driver offline")
		}
		s.notifier.Dispatch([]Effect{
			RealtimeEffect(realtime.UserRoom(driver.UserID), "subscription_expired", map[string]interface{}{
				"driver_id": driverID.Hex(),
			}),
		})
	}

	if len(driverIDs) > 0 {
		s.logger.WithField("count", len(driverIDs)).Info("expired lapsed subscriptions")
	}
	return nil
}

// RunExpirySweep periodically expires lapsed subscriptions until ctx ends.
func (s *SubscriptionService) RunExpirySweep(ctx context.Context) {
	ticker := time.NewTicker(utils.SubscriptionSweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.ExpireDue(ctx); err != nil {
				s.logger.WithError(err).Error("subscription expiry sweep failed")
			}
		}
	}
}

func (s *SubscriptionService) requireDriver(ctx context.Context, actor Actor) (*models.Driver, error) {
	if actor.Role != models.RoleDriver {
		return nil, apperr.Authorization("driver role required")
	}

	driver, err := s.drivers.GetByUserID(ctx, actor.UserID)
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			return nil, apperr.NotFound("driver profile")
		}
		return nil, apperr.Internal(err)
	}
	return driver, nil
}
