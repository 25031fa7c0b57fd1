package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"godispatch/internal/apperr"
	"godispatch/internal/models"
)

func TestFindCandidatesTargetsRequestedVehicleType(t *testing.T) {
	env := newTestEnv()
	env.addDriver("bike")
	env.addDriver("suv")

	job := env.createRide("sedan")

	candidates, err := env.matcher.FindCandidates(context.Background(), job)
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, "sedan", candidates[0].VehicleType)
}

func TestFindCandidatesSkipsBusyAndOfflineDrivers(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	busy, _ := env.addDriver("sedan")
	jobID := primitive.NewObjectID()
	_ = env.drivers.SetAvailability(ctx, busy.ID, false, &jobID)

	offline, _ := env.addDriver("sedan")
	_ = env.drivers.SetOnline(ctx, offline.ID, false)

	job := env.createRide("sedan")

	candidates, err := env.matcher.FindCandidates(ctx, job)
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, env.driver.ID, candidates[0].ID)
}

func TestFindCandidatesUsesCatalogWhenNoVehicleTypeRequested(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	env.addDriver("bike")

	// Catalog lists only sedans for rides, so the bike driver is out even
	// though the job does not name a vehicle type.
	job := env.createRide("sedan")
	job.VehicleType = ""

	candidates, err := env.matcher.FindCandidates(ctx, job)
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, "sedan", candidates[0].VehicleType)
}

func TestFindCandidatesBroadensOnCatalogFailure(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	env.addDriver("bike")

	job := env.createRide("sedan")
	job.VehicleType = ""

	env.catalog.forceErr = errors.New("catalog store down")

	candidates, err := env.matcher.FindCandidates(ctx, job)
	require.NoError(t, err)
	assert.Len(t, candidates, 2)
}

func TestBroadcastJobReturnsCandidateCount(t *testing.T) {
	env := newTestEnv()
	env.addDriver("sedan")
	env.addDriver("sedan")

	job := env.createRide("sedan")

	notified, err := env.matcher.BroadcastJob(context.Background(), job)
	require.NoError(t, err)
	assert.Equal(t, 3, notified)
}

func TestOpenJobsNearRejectsUnapprovedDriver(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	pending, _ := env.addDriver("sedan")
	_ = env.drivers.SetApprovalStatus(ctx, pending.ID, models.ApprovalPending)
	pending, err := env.drivers.GetByID(ctx, pending.ID)
	require.NoError(t, err)

	_, err = env.matcher.OpenJobsNear(ctx, pending, models.CategoryRide, 12.97, 77.59, 5)
	require.Error(t, err)
	assert.True(t, apperr.IsAuthorization(err))
}

func TestOpenJobsNearRejectsUnknownCategory(t *testing.T) {
	env := newTestEnv()

	_, err := env.matcher.OpenJobsNear(context.Background(), env.driver, "freight", 12.97, 77.59, 5)
	require.Error(t, err)
	assert.True(t, apperr.IsValidation(err))
}

func TestOpenJobsNearFiltersByCategoryAndAssignment(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	ride := env.createRide("sedan")
	_, err := env.svc.Accept(ctx, env.driverActor, ride.ID)
	require.NoError(t, err)

	// A second, unassigned ride from another requester.
	other := &models.User{Role: models.RoleUser, IsActive: true}
	_ = env.users.Create(ctx, other)
	open, err := env.svc.Create(ctx, Actor{UserID: other.ID, Role: models.RoleUser}, CreateJobInput{
		Category:      models.CategoryRide,
		VehicleType:   "sedan",
		Pickup:        models.Place{Point: models.NewGeoPoint(12.9716, 77.5946), Address: "MG Road"},
		Dropoff:       models.Place{Point: models.NewGeoPoint(12.9352, 77.6245), Address: "Koramangala"},
		PaymentMethod: models.PaymentMethodCash,
	})
	require.NoError(t, err)

	browser, _ := env.addDriver("sedan")
	jobs, err := env.matcher.OpenJobsNear(ctx, browser, models.CategoryRide, 12.97, 77.59, 5)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, open.ID, jobs[0].ID)
}

func TestOpenJobsNearSanitizesOTPs(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	env.createRide("sedan")

	browser, _ := env.addDriver("sedan")
	jobs, err := env.matcher.OpenJobsNear(ctx, browser, models.CategoryRide, 12.97, 77.59, 5)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Empty(t, jobs[0].PickupOTP)
	assert.Empty(t, jobs[0].DeliveryOTP)
}
