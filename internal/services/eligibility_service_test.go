package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"godispatch/internal/apperr"
	"godispatch/internal/models"
	"godispatch/internal/repositories/interfaces"
)

func newEligibilityEnv() (*EligibilityService, *fakeSubscriptionRepo, *fakePlanRepo) {
	subs := newFakeSubscriptionRepo()
	plans := newFakePlanRepo()
	return NewEligibilityService(subs, plans, nil, testLogger()), subs, plans
}

func approvedDriver(approvedAgo time.Duration) *models.Driver {
	approvedAt := time.Now().Add(-approvedAgo)
	return &models.Driver{
		ID:             primitive.NewObjectID(),
		UserID:         primitive.NewObjectID(),
		VehicleType:    "sedan",
		ApprovalStatus: models.ApprovalApproved,
		CreatedAt:      approvedAt.Add(-24 * time.Hour),
		ApprovedAt:     &approvedAt,
	}
}

func seedTrialPlan(plans *fakePlanRepo, durationDays int) *models.SubscriptionPlan {
	plan := &models.SubscriptionPlan{
		Name:         "Free Trial",
		DurationDays: durationDays,
		Category:     models.PlanCategoryAll,
		VehicleType:  models.VehicleTypeAll,
		IsTrial:      true,
		IsActive:     true,
	}
	_ = plans.Create(context.Background(), plan)
	return plan
}

func TestTrialGrantedOnFirstLookup(t *testing.T) {
	svc, subs, plans := newEligibilityEnv()
	ctx := context.Background()
	seedTrialPlan(plans, 7)
	driver := approvedDriver(24 * time.Hour)

	sub, err := svc.Entitlement(ctx, driver, models.CategoryRide)
	require.NoError(t, err)
	require.NotNil(t, sub)
	assert.Equal(t, models.SubscriptionActive, sub.Status)

	// Window anchored to approval, not to the lookup.
	assert.WithinDuration(t, *driver.ApprovedAt, sub.StartDate, time.Second)
	assert.WithinDuration(t, driver.ApprovedAt.AddDate(0, 0, 7), sub.EndDate, time.Second)

	count, err := subs.CountByDriver(ctx, driver.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestTrialGrantedOnceAcrossRepeatedLookups(t *testing.T) {
	svc, subs, plans := newEligibilityEnv()
	ctx := context.Background()
	seedTrialPlan(plans, 7)
	driver := approvedDriver(24 * time.Hour)

	first, err := svc.Entitlement(ctx, driver, models.CategoryRide)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		sub, err := svc.Entitlement(ctx, driver, models.CategoryRide)
		require.NoError(t, err)
		assert.Equal(t, first.ID, sub.ID)
	}

	count, err := subs.CountByDriver(ctx, driver.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestTrialNotGrantedWhenAnchorLapsed(t *testing.T) {
	svc, subs, plans := newEligibilityEnv()
	ctx := context.Background()
	seedTrialPlan(plans, 7)

	// Approved 10 days ago, 7-day trial: the window already closed.
	driver := approvedDriver(10 * 24 * time.Hour)

	_, err := svc.Entitlement(ctx, driver, models.CategoryRide)
	require.Error(t, err)
	assert.True(t, apperr.IsConflict(err))

	count, err := subs.CountByDriver(ctx, driver.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)
}

func TestTrialNotGrantedAfterAnySubscriptionHistory(t *testing.T) {
	svc, subs, plans := newEligibilityEnv()
	ctx := context.Background()
	seedTrialPlan(plans, 7)
	driver := approvedDriver(24 * time.Hour)

	_ = subs.Create(ctx, &models.Subscription{
		DriverID:  driver.ID,
		PlanID:    primitive.NewObjectID(),
		Status:    models.SubscriptionCancelled,
		StartDate: time.Now().AddDate(0, 0, -3),
		EndDate:   time.Now().AddDate(0, 0, -1),
	})

	_, err := svc.Entitlement(ctx, driver, models.CategoryRide)
	require.Error(t, err)
	assert.True(t, apperr.IsConflict(err))
}

func TestNoTrialPlanMeansNoGrant(t *testing.T) {
	svc, _, _ := newEligibilityEnv()

	driver := approvedDriver(24 * time.Hour)
	_, err := svc.Entitlement(context.Background(), driver, models.CategoryRide)
	require.Error(t, err)
	assert.True(t, apperr.IsConflict(err))
}

func TestEntitlementPrefersLatestActiveSubscription(t *testing.T) {
	svc, subs, plans := newEligibilityEnv()
	ctx := context.Background()
	plan := seedTrialPlan(plans, 7)
	driver := approvedDriver(24 * time.Hour)

	_ = subs.Create(ctx, &models.Subscription{
		DriverID:  driver.ID,
		PlanID:    plan.ID,
		Status:    models.SubscriptionActive,
		StartDate: time.Now().AddDate(0, 0, -5),
		EndDate:   time.Now().AddDate(0, 0, 2),
	})
	longer := &models.Subscription{
		DriverID:  driver.ID,
		PlanID:    plan.ID,
		Status:    models.SubscriptionActive,
		StartDate: time.Now(),
		EndDate:   time.Now().AddDate(0, 0, 30),
	}
	_ = subs.Create(ctx, longer)

	sub, err := svc.Entitlement(ctx, driver, models.CategoryRide)
	require.NoError(t, err)
	assert.Equal(t, longer.ID, sub.ID)
}

func TestEntitlementChecksCategoryCoverage(t *testing.T) {
	svc, subs, plans := newEligibilityEnv()
	ctx := context.Background()
	driver := approvedDriver(24 * time.Hour)

	rideOnly := &models.SubscriptionPlan{
		Name:        "Rides Only",
		Category:    string(models.CategoryRide),
		VehicleType: models.VehicleTypeAll,
		IsActive:    true,
	}
	_ = plans.Create(ctx, rideOnly)
	_ = subs.Create(ctx, &models.Subscription{
		DriverID:  driver.ID,
		PlanID:    rideOnly.ID,
		Status:    models.SubscriptionActive,
		StartDate: time.Now(),
		EndDate:   time.Now().AddDate(0, 0, 30),
	})

	_, err := svc.Entitlement(ctx, driver, models.CategoryRide)
	assert.NoError(t, err)

	_, err = svc.Entitlement(ctx, driver, models.CategoryParcel)
	require.Error(t, err)
	assert.True(t, apperr.IsConflict(err))
}

func TestEntitlementChecksVehicleCoverage(t *testing.T) {
	svc, subs, plans := newEligibilityEnv()
	ctx := context.Background()
	driver := approvedDriver(24 * time.Hour)

	bikesOnly := &models.SubscriptionPlan{
		Name:        "Bikes Only",
		Category:    models.PlanCategoryAll,
		VehicleType: "bike",
		IsActive:    true,
	}
	_ = plans.Create(ctx, bikesOnly)
	_ = subs.Create(ctx, &models.Subscription{
		DriverID:  driver.ID,
		PlanID:    bikesOnly.ID,
		Status:    models.SubscriptionActive,
		StartDate: time.Now(),
		EndDate:   time.Now().AddDate(0, 0, 30),
	})

	_, err := svc.Entitlement(ctx, driver, models.CategoryRide)
	require.Error(t, err)
	assert.True(t, apperr.IsConflict(err))
}

func TestHasValidSubscriptionFalseWithoutEntitlement(t *testing.T) {
	subs := newFakeSubscriptionRepo()
	plans := newFakePlanRepo()
	svc := NewEligibilityService(subs, plans, nil, testLogger())

	driver := approvedDriver(24 * time.Hour)
	assert.False(t, svc.HasValidSubscription(context.Background(), driver))
}

func TestExpiredSubscriptionIsNotAnEntitlement(t *testing.T) {
	svc, subs, plans := newEligibilityEnv()
	ctx := context.Background()
	plan := seedTrialPlan(plans, 7)
	driver := approvedDriver(24 * time.Hour)

	_ = subs.Create(ctx, &models.Subscription{
		DriverID:  driver.ID,
		PlanID:    plan.ID,
		Status:    models.SubscriptionActive,
		StartDate: time.Now().AddDate(0, 0, -10),
		EndDate:   time.Now().Add(-time.Minute),
	})

	_, err := svc.Entitlement(ctx, driver, models.CategoryRide)
	require.Error(t, err)
	assert.True(t, apperr.IsConflict(err))

	// The repo never returns the lapsed record as active.
	_, err = subs.GetActiveByDriver(ctx, driver.ID, time.Now())
	assert.ErrorIs(t, err, interfaces.ErrNotFound)
}
