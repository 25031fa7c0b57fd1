package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"godispatch/internal/apperr"
	"godispatch/internal/models"
)

func TestCreateRideJob(t *testing.T) {
	env := newTestEnv()

	job := env.createRide("sedan")

	assert.Equal(t, models.StatusRequested, job.Status)
	assert.Nil(t, job.DriverID)
	assert.Len(t, job.PickupOTP, 4)
	assert.Empty(t, job.DeliveryOTP)
	assert.Empty(t, job.TrackingCode)
	assert.Equal(t, models.PaymentPending, job.PaymentStatus)
	assert.Greater(t, job.DistanceKM, 0.0)
	assert.GreaterOrEqual(t, job.Fare.FinalFare, int64(5000))
}

func TestCreateParcelJob(t *testing.T) {
	env := newTestEnv()

	job := env.createParcel()

	assert.Equal(t, models.StatusPending, job.Status)
	assert.Len(t, job.PickupOTP, 4)
	assert.Len(t, job.DeliveryOTP, 4)
	assert.NotEmpty(t, job.TrackingCode)
}

func TestCreateRejectsSecondActiveJob(t *testing.T) {
	env := newTestEnv()
	env.createRide("sedan")

	_, err := env.svc.Create(context.Background(), env.requesterID, CreateJobInput{
		Category:      models.CategoryRide,
		VehicleType:   "sedan",
		Pickup:        models.Place{Point: models.NewGeoPoint(12.97, 77.59)},
		Dropoff:       models.Place{Point: models.NewGeoPoint(12.93, 77.62)},
		PaymentMethod: models.PaymentMethodCash,
	})
	require.Error(t, err)
	assert.True(t, apperr.IsConflict(err))
}

func TestCreateRejectsDriverCaller(t *testing.T) {
	env := newTestEnv()

	_, err := env.svc.Create(context.Background(), env.driverActor, CreateJobInput{
		Category: models.CategoryRide,
		Pickup:   models.Place{Point: models.NewGeoPoint(12.97, 77.59)},
		Dropoff:  models.Place{Point: models.NewGeoPoint(12.93, 77.62)},
	})
	require.Error(t, err)
	assert.True(t, apperr.IsAuthorization(err))
}

func TestCreateRejectsUnlistedVehicleType(t *testing.T) {
	env := newTestEnv()

	_, err := env.svc.Create(context.Background(), env.requesterID, CreateJobInput{
		Category:      models.CategoryRide,
		VehicleType:   "luxury",
		Pickup:        models.Place{Point: models.NewGeoPoint(12.97, 77.59)},
		Dropoff:       models.Place{Point: models.NewGeoPoint(12.93, 77.62)},
		PaymentMethod: models.PaymentMethodCash,
	})
	require.Error(t, err)
	assert.True(t, apperr.IsValidation(err))
}

func TestAcceptAssignsDriver(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	job := env.createRide("sedan")

	accepted, err := env.svc.Accept(ctx, env.driverActor, job.ID)
	require.NoError(t, err)

	assert.Equal(t, models.StatusAccepted, accepted.Status)
	require.NotNil(t, accepted.DriverID)
	assert.Equal(t, env.driver.ID, *accepted.DriverID)
	require.NotNil(t, accepted.AcceptedAt)

	// Driver flagged busy with the job pinned.
	driver, err := env.drivers.GetByID(ctx, env.driver.ID)
	require.NoError(t, err)
	assert.False(t, driver.IsAvailable)
	require.NotNil(t, driver.CurrentJobID)
	assert.Equal(t, job.ID, *driver.CurrentJobID)

	// Trial subscription was granted on the eligibility check.
	count, err := env.subs.CountByDriver(ctx, env.driver.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	// Chat thread exists for the pair.
	thread, err := env.chats.GetByJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, env.driver.ID, thread.DriverID)
}

func TestAcceptConcurrentSingleWinner(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	job := env.createRide("")

	const contenders = 8
	actors := make([]Actor, 0, contenders)
	actors = append(actors, env.driverActor)
	for i := 1; i < contenders; i++ {
		_, actor := env.addDriver("sedan")
		actors = append(actors, actor)
	}

	var wg sync.WaitGroup
	errs := make([]error, contenders)
	for i, actor := range actors {
		wg.Add(1)
		go func(i int, actor Actor) {
			defer wg.Done()
			_, errs[i] = env.svc.Accept(ctx, actor, job.ID)
		}(i, actor)
	}
	wg.Wait()

	winners := 0
	for _, err := range errs {
		if err == nil {
			winners++
		} else {
			assert.True(t, apperr.IsConflict(err), "loser must get a conflict, got %v", err)
		}
	}
	assert.Equal(t, 1, winners)

	final, err := env.jobs.GetByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusAccepted, final.Status)
	require.NotNil(t, final.DriverID)
}

func TestAcceptRequiresMatchingVehicleType(t *testing.T) {
	env := newTestEnv()
	_ = env.catalog.Upsert(context.Background(), &models.CatalogEntry{
		Category: models.CategoryRide, VehicleType: "bike", IsActive: true,
	})
	job := env.createRide("bike")

	_, err := env.svc.Accept(context.Background(), env.driverActor, job.ID)
	require.Error(t, err)
	assert.True(t, apperr.IsConflict(err))
}

func TestAcceptFailsClosedOnInactiveCatalogEntry(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	job := env.createRide("")

	// Disable the sedan/ride pairing after the job is created.
	entry, err := env.catalog.Get(ctx, models.CategoryRide, "sedan")
	require.NoError(t, err)
	entry.IsActive = false
	require.NoError(t, env.catalog.Upsert(ctx, entry))

	_, err = env.svc.Accept(ctx, env.driverActor, job.ID)
	require.Error(t, err)
	assert.True(t, apperr.IsConflict(err))
}

func TestAcceptRequiresSubscription(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	job := env.createRide("sedan")

	// Exhaust the trial: one expired subscription on record blocks a regrant.
	_ = env.subs.Create(ctx, &models.Subscription{
		DriverID:  env.driver.ID,
		PlanID:    primitive.NewObjectID(),
		Status:    models.SubscriptionExpired,
		StartDate: time.Now().AddDate(0, 0, -40),
		EndDate:   time.Now().AddDate(0, 0, -33),
	})

	_, err := env.svc.Accept(ctx, env.driverActor, job.ID)
	require.Error(t, err)
	assert.True(t, apperr.IsConflict(err))
	assert.Contains(t, apperr.MessageOf(err), "subscription expired")
}

func TestAcceptRequiresOnlineAvailableApproved(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	job := env.createRide("sedan")

	require.NoError(t, env.drivers.SetOnline(ctx, env.driver.ID, false))
	_, err := env.svc.Accept(ctx, env.driverActor, job.ID)
	assert.True(t, apperr.IsConflict(err))

	require.NoError(t, env.drivers.SetOnline(ctx, env.driver.ID, true))
	busy := primitive.NewObjectID()
	require.NoError(t, env.drivers.SetAvailability(ctx, env.driver.ID, false, &busy))
	_, err = env.svc.Accept(ctx, env.driverActor, job.ID)
	assert.True(t, apperr.IsConflict(err))

	require.NoError(t, env.drivers.SetAvailability(ctx, env.driver.ID, true, nil))
	require.NoError(t, env.drivers.SetApprovalStatus(ctx, env.driver.ID, models.ApprovalSuspended))
	_, err = env.svc.Accept(ctx, env.driverActor, job.ID)
	assert.True(t, apperr.IsConflict(err))
}

func TestRideLifecycle(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	job := env.createRide("sedan")

	accepted, err := env.svc.Accept(ctx, env.driverActor, job.ID)
	require.NoError(t, err)

	arrived, err := env.svc.Arrive(ctx, env.driverActor, job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusArrived, arrived.Status)
	require.NotNil(t, arrived.ArrivedAt)

	// Arrive retry is a no-op, not an error.
	again, err := env.svc.Arrive(ctx, env.driverActor, job.ID)
	require.NoError(t, err)
	assert.Equal(t, arrived.ArrivedAt.Unix(), again.ArrivedAt.Unix())

	started, err := env.svc.Start(ctx, env.driverActor, job.ID, job.PickupOTP)
	require.NoError(t, err)
	assert.Equal(t, models.StatusStarted, started.Status)

	completed, err := env.svc.Complete(ctx, env.driverActor, job.ID, CompleteJobInput{
		ActualDistanceKM:  8,
		ActualDurationMin: 25,
	})
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, completed.Status)
	assert.Equal(t, models.PaymentPending, completed.PaymentStatus) // cash stays pending
	require.NotNil(t, completed.CompletedAt)

	// Timestamps are monotonic through the lifecycle.
	assert.False(t, accepted.AcceptedAt.After(*arrived.ArrivedAt))
	assert.False(t, arrived.ArrivedAt.After(*started.StartedAt))
	assert.False(t, started.StartedAt.After(*completed.CompletedAt))

	// Settlement: driver released and credited the full fare.
	driver, err := env.drivers.GetByID(ctx, env.driver.ID)
	require.NoError(t, err)
	assert.True(t, driver.IsAvailable)
	assert.Nil(t, driver.CurrentJobID)
	assert.Equal(t, int64(1), driver.TotalJobs)
	assert.Equal(t, completed.Fare.FinalFare, driver.TotalEarnings)

	user, err := env.users.GetByID(ctx, env.requester.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), user.TotalRides)
}

func TestParcelLifecycle(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	job := env.createParcel()

	accepted, err := env.svc.Accept(ctx, env.driverActor, job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusAssigned, accepted.Status)

	picked, err := env.svc.PickupParcel(ctx, env.driverActor, job.ID, job.PickupOTP)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPickedUp, picked.Status)

	transit, err := env.svc.MarkInTransit(ctx, env.driverActor, job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusInTransit, transit.Status)

	delivered, err := env.svc.Deliver(ctx, env.driverActor, job.ID, job.DeliveryOTP)
	require.NoError(t, err)
	assert.Equal(t, models.StatusDelivered, delivered.Status)
}

func TestParcelDeliverDirectlyFromPickedUp(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	job := env.createParcel()

	_, err := env.svc.Accept(ctx, env.driverActor, job.ID)
	require.NoError(t, err)
	_, err = env.svc.PickupParcel(ctx, env.driverActor, job.ID, job.PickupOTP)
	require.NoError(t, err)

	delivered, err := env.svc.Deliver(ctx, env.driverActor, job.ID, job.DeliveryOTP)
	require.NoError(t, err)
	assert.Equal(t, models.StatusDelivered, delivered.Status)
}

func TestStartRejectsWrongOTP(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	job := env.createRide("sedan")

	_, err := env.svc.Accept(ctx, env.driverActor, job.ID)
	require.NoError(t, err)
	_, err = env.svc.Arrive(ctx, env.driverActor, job.ID)
	require.NoError(t, err)

	wrong := "0000"
	if job.PickupOTP == wrong {
		wrong = "1111"
	}
	_, err = env.svc.Start(ctx, env.driverActor, job.ID, wrong)
	require.Error(t, err)
	assert.True(t, apperr.IsValidation(err))
	assert.Equal(t, "Invalid OTP", apperr.MessageOf(err))

	// The failed attempt must not advance the state.
	current, err := env.jobs.GetByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusArrived, current.Status)
}

func TestDeliverRejectsPickupOTP(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	job := env.createParcel()

	_, err := env.svc.Accept(ctx, env.driverActor, job.ID)
	require.NoError(t, err)
	_, err = env.svc.PickupParcel(ctx, env.driverActor, job.ID, job.PickupOTP)
	require.NoError(t, err)

	if job.PickupOTP != job.DeliveryOTP {
		_, err = env.svc.Deliver(ctx, env.driverActor, job.ID, job.PickupOTP)
		require.Error(t, err)
		assert.Equal(t, "Invalid OTP", apperr.MessageOf(err))
	}
}

func TestStartBeforeArriveConflicts(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	job := env.createRide("sedan")

	_, err := env.svc.Accept(ctx, env.driverActor, job.ID)
	require.NoError(t, err)

	_, err = env.svc.Start(ctx, env.driverActor, job.ID, job.PickupOTP)
	require.Error(t, err)
	assert.True(t, apperr.IsConflict(err))
}

func TestTransitionsRejectUnassignedDriver(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	job := env.createRide("sedan")

	_, err := env.svc.Accept(ctx, env.driverActor, job.ID)
	require.NoError(t, err)

	_, otherActor := env.addDriver("sedan")
	_, err = env.svc.Arrive(ctx, otherActor, job.ID)
	require.Error(t, err)
	assert.True(t, apperr.IsAuthorization(err))
}

func TestCancelByRequesterBeforeAccept(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	job := env.createRide("sedan")

	cancelled, err := env.svc.Cancel(ctx, env.requesterID, job.ID, "changed my mind")
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, cancelled.Status)
	assert.Equal(t, models.CancelledByUser, cancelled.CancelledBy)
	assert.Equal(t, "changed my mind", cancelled.CancelReason)
	require.NotNil(t, cancelled.CancelledAt)
}

func TestCancelByDriverReleasesDriver(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	job := env.createRide("sedan")

	_, err := env.svc.Accept(ctx, env.driverActor, job.ID)
	require.NoError(t, err)

	cancelled, err := env.svc.Cancel(ctx, env.driverActor, job.ID, "vehicle breakdown")
	require.NoError(t, err)
	assert.Equal(t, models.CancelledByDriver, cancelled.CancelledBy)

	driver, err := env.drivers.GetByID(ctx, env.driver.ID)
	require.NoError(t, err)
	assert.True(t, driver.IsAvailable)
	assert.Nil(t, driver.CurrentJobID)
}

func TestCancelTerminalJobConflicts(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	job := env.createRide("sedan")

	_, err := env.svc.Cancel(ctx, env.requesterID, job.ID, "first")
	require.NoError(t, err)

	_, err = env.svc.Cancel(ctx, env.requesterID, job.ID, "second")
	require.Error(t, err)
	assert.True(t, apperr.IsConflict(err))
}

func TestCancelRejectsStrangers(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	job := env.createRide("sedan")

	stranger := &models.User{Role: models.RoleUser, IsActive: true}
	require.NoError(t, env.users.Create(ctx, stranger))

	_, err := env.svc.Cancel(ctx, Actor{UserID: stranger.ID, Role: models.RoleUser}, job.ID, "")
	require.Error(t, err)
	assert.True(t, apperr.IsAuthorization(err))
}

func TestCancelByAdmin(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	job := env.createRide("sedan")

	admin := Actor{UserID: primitive.NewObjectID(), Role: models.RoleAdmin}
	cancelled, err := env.svc.Cancel(ctx, admin, job.ID, "fraud review")
	require.NoError(t, err)
	assert.Equal(t, models.CancelledByAdmin, cancelled.CancelledBy)
}

func TestRateRequiresTerminalSuccess(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	job := env.createRide("sedan")

	_, err := env.svc.Accept(ctx, env.driverActor, job.ID)
	require.NoError(t, err)

	_, err = env.svc.Rate(ctx, env.requesterID, job.ID, 5)
	require.Error(t, err)
	assert.True(t, apperr.IsConflict(err))
}

func TestRateBothSidesOnceEach(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	job := completeRide(t, env)

	rated, err := env.svc.Rate(ctx, env.requesterID, job.ID, 4)
	require.NoError(t, err)
	require.NotNil(t, rated.DriverRating)
	assert.Equal(t, 4.0, *rated.DriverRating)

	_, err = env.svc.Rate(ctx, env.requesterID, job.ID, 5)
	require.Error(t, err)
	assert.True(t, apperr.IsConflict(err))

	rated, err = env.svc.Rate(ctx, env.driverActor, job.ID, 5)
	require.NoError(t, err)
	require.NotNil(t, rated.UserRating)
	assert.Equal(t, 5.0, *rated.UserRating)

	_, err = env.svc.Rate(ctx, env.driverActor, job.ID, 1)
	require.Error(t, err)
	assert.True(t, apperr.IsConflict(err))
}

func TestRateUpdatesRunningAverage(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	// Seed an existing average of 4.0 over 3 ratings.
	require.NoError(t, env.drivers.UpdateRating(ctx, env.driver.ID, 4.0, 3))

	job := completeRide(t, env)
	_, err := env.svc.Rate(ctx, env.requesterID, job.ID, 5)
	require.NoError(t, err)

	driver, err := env.drivers.GetByID(ctx, env.driver.ID)
	require.NoError(t, err)
	assert.InDelta(t, 4.25, driver.Rating, 1e-9) // (4*3+5)/4
	assert.Equal(t, int64(4), driver.TotalRatings)
}

func TestRateRejectsOutOfRange(t *testing.T) {
	env := newTestEnv()
	job := completeRide(t, env)

	for _, rating := range []float64{0, 0.5, 5.5, -1} {
		_, err := env.svc.Rate(context.Background(), env.requesterID, job.ID, rating)
		require.Error(t, err)
		assert.True(t, apperr.IsValidation(err))
	}
}

func TestGetSanitizesOTPsForDriver(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	job := env.createParcel()

	_, err := env.svc.Accept(ctx, env.driverActor, job.ID)
	require.NoError(t, err)

	driverView, err := env.svc.Get(ctx, env.driverActor, job.ID)
	require.NoError(t, err)
	assert.Empty(t, driverView.PickupOTP)
	assert.Empty(t, driverView.DeliveryOTP)

	requesterView, err := env.svc.Get(ctx, env.requesterID, job.ID)
	require.NoError(t, err)
	assert.Equal(t, job.PickupOTP, requesterView.PickupOTP)
	assert.Equal(t, job.DeliveryOTP, requesterView.DeliveryOTP)
}

func TestTrackSanitizesAlways(t *testing.T) {
	env := newTestEnv()
	job := env.createParcel()

	tracked, err := env.svc.Track(context.Background(), job.TrackingCode)
	require.NoError(t, err)
	assert.Empty(t, tracked.PickupOTP)
	assert.Empty(t, tracked.DeliveryOTP)
	assert.Equal(t, job.TrackingCode, tracked.TrackingCode)

	_, err = env.svc.Track(context.Background(), "NOPE123456")
	require.Error(t, err)
	assert.True(t, apperr.IsNotFound(err))
}

func TestCompletionForcesLapsedDriverOffline(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	job := env.createRide("sedan")

	_, err := env.svc.Accept(ctx, env.driverActor, job.ID)
	require.NoError(t, err)
	_, err = env.svc.Arrive(ctx, env.driverActor, job.ID)
	require.NoError(t, err)
	_, err = env.svc.Start(ctx, env.driverActor, job.ID, job.PickupOTP)
	require.NoError(t, err)

	// The trial granted at accept time lapses mid-ride.
	env.subs.mu.Lock()
	for _, sub := range env.subs.subs {
		sub.EndDate = time.Now().Add(-time.Minute)
	}
	env.subs.mu.Unlock()

	completed, err := env.svc.Complete(ctx, env.driverActor, job.ID, CompleteJobInput{})
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, completed.Status)

	driver, err := env.drivers.GetByID(ctx, env.driver.ID)
	require.NoError(t, err)
	assert.False(t, driver.IsOnline)
}

func TestFinalFareUsesActualDistance(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	job := env.createRide("sedan")

	_, err := env.svc.Accept(ctx, env.driverActor, job.ID)
	require.NoError(t, err)
	_, err = env.svc.Arrive(ctx, env.driverActor, job.ID)
	require.NoError(t, err)
	_, err = env.svc.Start(ctx, env.driverActor, job.ID, job.PickupOTP)
	require.NoError(t, err)

	completed, err := env.svc.Complete(ctx, env.driverActor, job.ID, CompleteJobInput{
		ActualDistanceKM:  20,
		ActualDurationMin: 40,
	})
	require.NoError(t, err)

	// 3000 + 20*1200 + 40*150 + 500 = 33500
	assert.Equal(t, int64(33500), completed.Fare.FinalFare)
	assert.Greater(t, completed.Fare.FinalFare, job.Fare.FinalFare)
}

func TestPromoAppliedAndUsageCounted(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	promo := &models.PromoCode{
		Code:     "SAVE20",
		Type:     models.PromoPercent,
		Value:    20,
		IsActive: true,
	}
	require.NoError(t, env.promos.Create(ctx, promo))

	job, err := env.svc.Create(ctx, env.requesterID, CreateJobInput{
		Category:      models.CategoryRide,
		VehicleType:   "sedan",
		Pickup:        models.Place{Point: models.NewGeoPoint(12.9716, 77.5946)},
		Dropoff:       models.Place{Point: models.NewGeoPoint(12.9352, 77.6245)},
		PaymentMethod: models.PaymentMethodCash,
		PromoCode:     "SAVE20",
	})
	require.NoError(t, err)
	assert.Equal(t, job.Fare.TotalFare/5, job.Fare.Discount)

	_, err = env.svc.Accept(ctx, env.driverActor, job.ID)
	require.NoError(t, err)
	_, err = env.svc.Arrive(ctx, env.driverActor, job.ID)
	require.NoError(t, err)
	_, err = env.svc.Start(ctx, env.driverActor, job.ID, job.PickupOTP)
	require.NoError(t, err)
	_, err = env.svc.Complete(ctx, env.driverActor, job.ID, CompleteJobInput{ActualDistanceKM: 5, ActualDurationMin: 10})
	require.NoError(t, err)

	stored, err := env.promos.GetByCode(ctx, "SAVE20")
	require.NoError(t, err)
	assert.Equal(t, int64(1), stored.UsedCount)
}

func TestCreateRejectsExpiredPromo(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	expired := time.Now().Add(-time.Hour)
	require.NoError(t, env.promos.Create(ctx, &models.PromoCode{
		Code:      "OLD",
		Type:      models.PromoFlat,
		Value:     1000,
		IsActive:  true,
		ExpiresAt: &expired,
	}))

	_, err := env.svc.Create(ctx, env.requesterID, CreateJobInput{
		Category:      models.CategoryRide,
		VehicleType:   "sedan",
		Pickup:        models.Place{Point: models.NewGeoPoint(12.97, 77.59)},
		Dropoff:       models.Place{Point: models.NewGeoPoint(12.93, 77.62)},
		PaymentMethod: models.PaymentMethodCash,
		PromoCode:     "OLD",
	})
	require.Error(t, err)
	assert.True(t, apperr.IsValidation(err))
}

func TestCardPaymentCompletedOnFinish(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	job, err := env.svc.Create(ctx, env.requesterID, CreateJobInput{
		Category:      models.CategoryRide,
		VehicleType:   "sedan",
		Pickup:        models.Place{Point: models.NewGeoPoint(12.9716, 77.5946)},
		Dropoff:       models.Place{Point: models.NewGeoPoint(12.9352, 77.6245)},
		PaymentMethod: models.PaymentMethodCard,
	})
	require.NoError(t, err)

	_, err = env.svc.Accept(ctx, env.driverActor, job.ID)
	require.NoError(t, err)
	_, err = env.svc.Arrive(ctx, env.driverActor, job.ID)
	require.NoError(t, err)
	_, err = env.svc.Start(ctx, env.driverActor, job.ID, job.PickupOTP)
	require.NoError(t, err)

	completed, err := env.svc.Complete(ctx, env.driverActor, job.ID, CompleteJobInput{})
	require.NoError(t, err)
	assert.Equal(t, models.PaymentCompleted, completed.PaymentStatus)
}

// completeRide drives a fresh ride through the happy path and returns the
// completed job.
func completeRide(t *testing.T, env *testEnv) *models.Job {
	t.Helper()
	ctx := context.Background()
	job := env.createRide("sedan")

	_, err := env.svc.Accept(ctx, env.driverActor, job.ID)
	require.NoError(t, err)
	_, err = env.svc.Arrive(ctx, env.driverActor, job.ID)
	require.NoError(t, err)
	_, err = env.svc.Start(ctx, env.driverActor, job.ID, job.PickupOTP)
	require.NoError(t, err)
	completed, err := env.svc.Complete(ctx, env.driverActor, job.ID, CompleteJobInput{})
	require.NoError(t, err)
	return completed
}
