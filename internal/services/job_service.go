package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"godispatch/internal/apperr"
	"godispatch/internal/models"
	"godispatch/internal/repositories/interfaces"
	"godispatch/internal/utils"
	"godispatch/pkg/logger"
	"godispatch/pkg/maps"
	"godispatch/pkg/realtime"
)

// Actor is the resolved caller identity every operation receives. Identity
// resolution itself happens in middleware.
type Actor struct {
	UserID primitive.ObjectID
	Role   models.UserRole
}

type CreateJobInput struct {
	Category      models.JobCategory
	VehicleType   string
	Pickup        models.Place
	Dropoff       models.Place
	PaymentMethod models.PaymentMethod
	PromoCode     string
}

type CompleteJobInput struct {
	ActualDistanceKM  float64
	ActualDurationMin int
}

// JobService owns the job lifecycle. Every transition validates the caller,
// applies a conditional update so concurrent writers cannot corrupt state,
// and emits effects the dispatcher delivers after commit.
type JobService struct {
	jobs          interfaces.JobRepository
	drivers       interfaces.DriverRepository
	users         interfaces.UserRepository
	promos        interfaces.PromoRepository
	chats         interfaces.ChatRepository
	subscriptions interfaces.SubscriptionRepository
	pricing       *PricingService
	catalog       *CatalogService
	eligibility   *EligibilityService
	matcher       *MatcherService
	routes        maps.RouteEstimator
	notifier      *NotificationService
	logger        *logger.Logger
}

type JobServiceDeps struct {
	Jobs          interfaces.JobRepository
	Drivers       interfaces.DriverRepository
	Users         interfaces.UserRepository
	Promos        interfaces.PromoRepository
	Chats         interfaces.ChatRepository
	Subscriptions interfaces.SubscriptionRepository
	Pricing       *PricingService
	Catalog       *CatalogService
	Eligibility   *EligibilityService
	Matcher       *MatcherService
	Routes        maps.RouteEstimator
	Notifier      *NotificationService
	Logger        *logger.Logger
}

func NewJobService(deps JobServiceDeps) *JobService {
	return &JobService{
		jobs:          deps.Jobs,
		drivers:       deps.Drivers,
		users:         deps.Users,
		promos:        deps.Promos,
		chats:         deps.Chats,
		subscriptions: deps.Subscriptions,
		pricing:       deps.Pricing,
		catalog:       deps.Catalog,
		eligibility:   deps.Eligibility,
		matcher:       deps.Matcher,
		routes:        deps.Routes,
		notifier:      deps.Notifier,
		logger:        deps.Logger,
	}
}

// Create opens a new job in its category's initial status, prices the
// estimate, and broadcasts it to candidate drivers.
func (s *JobService) Create(ctx context.Context, actor Actor, input CreateJobInput) (*models.Job, error) {
	if actor.Role != models.RoleUser {
		return nil, apperr.Authorization("only users can request jobs")
	}
	if input.Category != models.CategoryRide && input.Category != models.CategoryParcel {
		return nil, apperr.Validation("unknown job category %q", input.Category)
	}
	if !utils.IsValidCoordinates(input.Pickup.Point.Lat(), input.Pickup.Point.Lng()) ||
		!utils.IsValidCoordinates(input.Dropoff.Point.Lat(), input.Dropoff.Point.Lng()) {
		return nil, apperr.Validation("invalid pickup or dropoff coordinates")
	}

	if _, err := s.jobs.GetActiveByUser(ctx, actor.UserID); err == nil {
		return nil, apperr.Conflict("you already have an active job")
	} else if !errors.Is(err, interfaces.ErrNotFound) {
		return nil, apperr.Internal(err)
	}

	if input.VehicleType != "" {
		eligible, err := s.catalog.IsEligible(ctx, input.Category, input.VehicleType)
		if err != nil {
			return nil, apperr.Internal(err)
		}
		if !eligible {
			return nil, apperr.Validation("vehicle type %s is not available for %s jobs", input.VehicleType, input.Category)
		}
	}

	distanceKM, durationMin := s.estimateRoute(ctx, input.Pickup, input.Dropoff)

	promo, err := s.resolvePromo(ctx, input.PromoCode)
	if err != nil {
		return nil, err
	}

	// The quote at request time uses duration 0; the final fare at
	// completion uses the ridden duration.
	fare := s.priceJob(ctx, FareInput{
		VehicleType:    input.VehicleType,
		DistanceKM:     distanceKM,
		DurationMin:    0,
		FareMultiplier: s.catalog.FareMultiplier(ctx, input.Category, input.VehicleType),
	}, promo)

	now := time.Now()
	job := &models.Job{
		Category:      input.Category,
		UserID:        actor.UserID,
		VehicleType:   input.VehicleType,
		Status:        models.InitialStatus(input.Category),
		Pickup:        input.Pickup,
		Dropoff:       input.Dropoff,
		DistanceKM:    distanceKM,
		DurationMin:   durationMin,
		Fare:          fare,
		PickupOTP:     utils.GenerateOTP(),
		PaymentMethod: input.PaymentMethod,
		PaymentStatus: models.PaymentPending,
		PromoCode:     input.PromoCode,
		RequestedAt:   now,
	}
	if input.Category == models.CategoryParcel {
		job.DeliveryOTP = utils.GenerateOTP()
		job.TrackingCode = utils.GenerateTrackingCode()
	}

	if err := s.jobs.Create(ctx, job); err != nil {
		return nil, apperr.Internal(err)
	}

	if _, err := s.matcher.BroadcastJob(ctx, job); err != nil {
		s.logger.WithError(err).WithField("job_id", job.ID.Hex()).Warn("job broadcast failed")
	}
	s.notifier.Dispatch([]Effect{
		RealtimeEffect(realtime.RoleRoom(string(models.RoleAdmin)), "job_created",
			eventPayload(job.ViewFor(models.RoleAdmin, primitive.NilObjectID))),
	})

	return job, nil
}

// Accept is the race-safe driver assignment. Exactly one concurrent caller
// wins; losers get a clean conflict.
func (s *JobService) Accept(ctx context.Context, actor Actor, jobID primitive.ObjectID) (*models.Job, error) {
	driver, err := s.requireDriver(ctx, actor)
	if err != nil {
		return nil, err
	}

	if !driver.IsApproved() {
		return nil, apperr.Conflict("driver is not approved")
	}
	if !driver.IsOnline {
		return nil, apperr.Conflict("driver is offline")
	}
	if !driver.IsAvailable || driver.CurrentJobID != nil {
		return nil, apperr.Conflict("driver already has an active job")
	}

	job, err := s.getJob(ctx, jobID)
	if err != nil {
		return nil, err
	}

	if job.VehicleType != "" && job.VehicleType != driver.VehicleType {
		return nil, apperr.Conflict("job requires vehicle type %s", job.VehicleType)
	}

	// Catalog gate is fail-closed here: an accept must never slip through on
	// a disabled vehicle class.
	eligible, err := s.catalog.IsEligible(ctx, job.Category, driver.VehicleType)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if !eligible {
		return nil, apperr.Conflict("vehicle type %s is not eligible for %s jobs", driver.VehicleType, job.Category)
	}

	if _, err := s.eligibility.Entitlement(ctx, driver, job.Category); err != nil {
		return nil, err
	}

	acceptedAt := time.Now()
	accepted, err := s.jobs.Accept(ctx, jobID, driver.ID, acceptedAt)
	if err != nil {
		if errors.Is(err, interfaces.ErrConditionFailed) {
			return nil, s.acceptLossReason(ctx, jobID)
		}
		return nil, apperr.Internal(err)
	}

	// The job document is the source of truth; the driver flags are
	// best-effort and self-heal on the next transition.
	if err := s.drivers.SetAvailability(ctx, driver.ID, false, &accepted.ID); err != nil {
		s.logger.WithError(err).WithField("driver_id", driver.ID.Hex()).Error("failed to flag driver unavailable after accept")
	}
	if _, err := s.chats.EnsureThread(ctx, accepted.ID, accepted.UserID, driver.ID); err != nil {
		s.logger.WithError(err).WithField("job_id", accepted.ID.Hex()).Warn("failed to ensure chat thread")
	}

	s.notifier.Dispatch(s.acceptEffects(ctx, accepted, driver))

	return accepted, nil
}

// acceptLossReason distinguishes "job vanished" from "someone else won".
func (s *JobService) acceptLossReason(ctx context.Context, jobID primitive.ObjectID) error {
	job, err := s.jobs.GetByID(ctx, jobID)
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			return apperr.NotFound("job")
		}
		return apperr.Internal(err)
	}
	if job.DriverID != nil {
		return apperr.Conflict("job already taken by another driver")
	}
	return apperr.Conflict("job is no longer available")
}

func (s *JobService) acceptEffects(ctx context.Context, job *models.Job, driver *models.Driver) []Effect {
	// The requester's copy carries the OTP; it goes to them and nobody else.
	requesterView := eventPayload(job.ViewFor(models.RoleUser, job.UserID))
	requesterView["driver"] = map[string]interface{}{
		"vehicle_type":   driver.VehicleType,
		"vehicle_number": driver.VehicleNumber,
		"rating":         driver.Rating,
	}

	effects := []Effect{
		RealtimeEffect(realtime.UserRoom(job.UserID), "job_accepted", requesterView),
		RealtimeEffect(realtime.DriverCategoryRoom(string(job.Category)), "job_taken", map[string]interface{}{
			"job_id": job.ID.Hex(),
		}),
	}

	user, err := s.users.GetByID(ctx, job.UserID)
	if err != nil {
		s.logger.WithError(err).Warn("failed to load requester for accept notifications")
		return effects
	}

	if user.Phone != "" {
		effects = append(effects, SMSEffect(user.Phone,
			fmt.Sprintf("Your %s has been accepted. Share code %s with your driver at pickup.", job.Category, job.PickupOTP)))
	}
	if user.DeviceToken != "" {
		effects = append(effects, PushEffect(user.DeviceToken,
			"Driver on the way",
			fmt.Sprintf("Your %s request was accepted", job.Category),
			map[string]interface{}{"job_id": job.ID.Hex(), "event": "job_accepted"}))
	}
	return effects
}

// Arrive marks the driver at the pickup point. Re-entry is a no-op so a
// flaky client can retry without tripping the state guard.
func (s *JobService) Arrive(ctx context.Context, actor Actor, jobID primitive.ObjectID) (*models.Job, error) {
	_, job, err := s.requireAssigned(ctx, actor, jobID)
	if err != nil {
		return nil, err
	}
	if job.Category != models.CategoryRide {
		return nil, apperr.Validation("arrive applies to ride jobs only")
	}
	if job.Status == models.StatusArrived {
		return job, nil
	}

	updated, err := s.transition(ctx, job, []models.JobStatus{models.StatusAccepted}, map[string]interface{}{
		"status":     models.StatusArrived,
		"arrived_at": time.Now(),
	})
	if err != nil {
		return nil, err
	}

	s.notifier.Dispatch(s.requesterEffects(ctx, updated, "driver_arrived",
		"Your driver has arrived at the pickup point."))
	return updated, nil
}

// Start begins the ride. Gated on the pickup OTP the requester holds.
func (s *JobService) Start(ctx context.Context, actor Actor, jobID primitive.ObjectID, otp string) (*models.Job, error) {
	_, job, err := s.requireAssigned(ctx, actor, jobID)
	if err != nil {
		return nil, err
	}
	if job.Category != models.CategoryRide {
		return nil, apperr.Validation("start applies to ride jobs only")
	}
	if err := checkOTP(otp, job.PickupOTP); err != nil {
		return nil, err
	}

	updated, err := s.transition(ctx, job, []models.JobStatus{models.StatusArrived}, map[string]interface{}{
		"status":     models.StatusStarted,
		"started_at": time.Now(),
	})
	if err != nil {
		return nil, err
	}

	s.notifier.Dispatch(s.requesterEffects(ctx, updated, "job_started", ""))
	return updated, nil
}

// Complete finishes a ride, prices the final fare from the ridden
// distance/duration, and settles driver earnings and counters.
func (s *JobService) Complete(ctx context.Context, actor Actor, jobID primitive.ObjectID, input CompleteJobInput) (*models.Job, error) {
	driver, job, err := s.requireAssigned(ctx, actor, jobID)
	if err != nil {
		return nil, err
	}
	if job.Category != models.CategoryRide {
		return nil, apperr.Validation("complete applies to ride jobs only")
	}

	fare, err := s.finalFare(ctx, job, input)
	if err != nil {
		return nil, err
	}

	paymentStatus := models.PaymentCompleted
	if job.PaymentMethod == models.PaymentMethodCash {
		paymentStatus = models.PaymentPending
	}

	updated, err := s.transition(ctx, job, []models.JobStatus{models.StatusStarted}, map[string]interface{}{
		"status":         models.StatusCompleted,
		"completed_at":   time.Now(),
		"fare":           fare,
		"payment_status": paymentStatus,
	})
	if err != nil {
		return nil, err
	}

	s.settle(ctx, updated, driver)

	s.notifier.Dispatch(s.requesterEffects(ctx, updated, "job_completed",
		fmt.Sprintf("Your ride is complete. Fare: %s %.2f.", fare.Currency, float64(fare.FinalFare)/100)))
	return updated, nil
}

// PickupParcel hands the parcel to the courier. Gated on the pickup OTP.
func (s *JobService) PickupParcel(ctx context.Context, actor Actor, jobID primitive.ObjectID, otp string) (*models.Job, error) {
	_, job, err := s.requireAssigned(ctx, actor, jobID)
	if err != nil {
		return nil, err
	}
	if job.Category != models.CategoryParcel {
		return nil, apperr.Validation("pickup applies to parcel jobs only")
	}
	if err := checkOTP(otp, job.PickupOTP); err != nil {
		return nil, err
	}

	updated, err := s.transition(ctx, job, []models.JobStatus{models.StatusAssigned}, map[string]interface{}{
		"status":       models.StatusPickedUp,
		"picked_up_at": time.Now(),
	})
	if err != nil {
		return nil, err
	}

	s.notifier.Dispatch(s.requesterEffects(ctx, updated, "parcel_picked_up", ""))
	return updated, nil
}

// MarkInTransit is the no-OTP step between pickup and delivery.
func (s *JobService) MarkInTransit(ctx context.Context, actor Actor, jobID primitive.ObjectID) (*models.Job, error) {
	_, job, err := s.requireAssigned(ctx, actor, jobID)
	if err != nil {
		return nil, err
	}
	if job.Category != models.CategoryParcel {
		return nil, apperr.Validation("in-transit applies to parcel jobs only")
	}

	updated, err := s.transition(ctx, job, []models.JobStatus{models.StatusPickedUp}, map[string]interface{}{
		"status":        models.StatusInTransit,
		"in_transit_at": time.Now(),
	})
	if err != nil {
		return nil, err
	}

	s.notifier.Dispatch(s.requesterEffects(ctx, updated, "parcel_in_transit", ""))
	return updated, nil
}

// Deliver completes a parcel job. Gated on the delivery OTP the recipient
// side holds.
func (s *JobService) Deliver(ctx context.Context, actor Actor, jobID primitive.ObjectID, otp string) (*models.Job, error) {
	driver, job, err := s.requireAssigned(ctx, actor, jobID)
	if err != nil {
		return nil, err
	}
	if job.Category != models.CategoryParcel {
		return nil, apperr.Validation("deliver applies to parcel jobs only")
	}
	if err := checkOTP(otp, job.DeliveryOTP); err != nil {
		return nil, err
	}

	fare, err := s.finalFare(ctx, job, CompleteJobInput{})
	if err != nil {
		return nil, err
	}

	paymentStatus := models.PaymentCompleted
	if job.PaymentMethod == models.PaymentMethodCash {
		paymentStatus = models.PaymentPending
	}

	updated, err := s.transition(ctx, job,
		[]models.JobStatus{models.StatusPickedUp, models.StatusInTransit},
		map[string]interface{}{
			"status":         models.StatusDelivered,
			"completed_at":   time.Now(),
			"fare":           fare,
			"payment_status": paymentStatus,
		})
	if err != nil {
		return nil, err
	}

	s.settle(ctx, updated, driver)

	s.notifier.Dispatch(s.requesterEffects(ctx, updated, "parcel_delivered",
		fmt.Sprintf("Your parcel %s has been delivered.", updated.TrackingCode)))
	return updated, nil
}

// Cancel terminates a job from any non-terminal state. Requester, assigned
// driver, or admin only.
func (s *JobService) Cancel(ctx context.Context, actor Actor, jobID primitive.ObjectID, reason string) (*models.Job, error) {
	job, err := s.getJob(ctx, jobID)
	if err != nil {
		return nil, err
	}

	cancelledBy, err := s.cancelActor(ctx, actor, job)
	if err != nil {
		return nil, err
	}
	if job.IsTerminal() {
		return nil, apperr.Conflict("job is already %s", job.Status)
	}

	nonTerminal := []models.JobStatus{
		models.StatusRequested, models.StatusAccepted, models.StatusArrived, models.StatusStarted,
		models.StatusPending, models.StatusAssigned, models.StatusPickedUp, models.StatusInTransit,
	}
	updated, err := s.transition(ctx, job, nonTerminal, map[string]interface{}{
		"status":        models.StatusCancelled,
		"cancelled_at":  time.Now(),
		"cancelled_by":  cancelledBy,
		"cancel_reason": reason,
	})
	if err != nil {
		return nil, err
	}

	if updated.DriverID != nil {
		if err := s.drivers.SetAvailability(ctx, *updated.DriverID, true, nil); err != nil {
			s.logger.WithError(err).WithField("driver_id", updated.DriverID.Hex()).Error("failed to release driver after cancel")
		}
	}

	effects := s.requesterEffects(ctx, updated, "job_cancelled", "")
	if updated.DriverID != nil {
		driver, err := s.drivers.GetByID(ctx, *updated.DriverID)
		if err == nil {
			effects = append(effects, RealtimeEffect(realtime.UserRoom(driver.UserID), "job_cancelled",
				eventPayload(updated.ViewFor(models.RoleDriver, driver.UserID))))
		}
	}
	s.notifier.Dispatch(effects)

	return updated, nil
}

// Rate records a 1-5 rating after terminal success. The requester rates the
// driver and vice versa; each side submits once.
func (s *JobService) Rate(ctx context.Context, actor Actor, jobID primitive.ObjectID, rating float64) (*models.Job, error) {
	if rating < utils.MinRating || rating > utils.MaxRating {
		return nil, apperr.Validation("rating must be between %.0f and %.0f", utils.MinRating, utils.MaxRating)
	}

	job, err := s.getJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.Status != models.TerminalSuccessStatus(job.Category) {
		return nil, apperr.Conflict("job must be %s before rating", models.TerminalSuccessStatus(job.Category))
	}
	if job.DriverID == nil {
		return nil, apperr.Conflict("job has no driver to rate")
	}

	driver, err := s.drivers.GetByID(ctx, *job.DriverID)
	if err != nil {
		return nil, apperr.Internal(err)
	}

	switch {
	case actor.UserID == job.UserID && actor.Role == models.RoleUser:
		if job.DriverRating != nil {
			return nil, apperr.Conflict("you have already rated this job")
		}
		if err := s.jobs.Update(ctx, job.ID, map[string]interface{}{"driver_rating": rating}); err != nil {
			return nil, apperr.Internal(err)
		}
		job.DriverRating = &rating

		newAvg, newCount := runningAverage(driver.Rating, driver.TotalRatings, rating)
		if err := s.drivers.UpdateRating(ctx, driver.ID, newAvg, newCount); err != nil {
			s.logger.WithError(err).Error("failed to update driver rating")
		}

	case actor.Role == models.RoleDriver && actor.UserID == driver.UserID:
		if job.UserRating != nil {
			return nil, apperr.Conflict("you have already rated this job")
		}
		if err := s.jobs.Update(ctx, job.ID, map[string]interface{}{"user_rating": rating}); err != nil {
			return nil, apperr.Internal(err)
		}
		job.UserRating = &rating

		user, err := s.users.GetByID(ctx, job.UserID)
		if err != nil {
			return nil, apperr.Internal(err)
		}
		newAvg, newCount := runningAverage(user.Rating, user.TotalRatings, rating)
		if err := s.users.UpdateRating(ctx, user.ID, newAvg, newCount); err != nil {
			s.logger.WithError(err).Error("failed to update user rating")
		}

	default:
		return nil, apperr.Authorization("only the parties of a job may rate it")
	}

	return job, nil
}

// Get returns the job sanitized for the caller. Requester, assigned driver,
// and admins only.
func (s *JobService) Get(ctx context.Context, actor Actor, jobID primitive.ObjectID) (*models.Job, error) {
	job, err := s.getJob(ctx, jobID)
	if err != nil {
		return nil, err
	}

	switch {
	case actor.Role == models.RoleAdmin:
	case actor.Role == models.RoleUser && actor.UserID == job.UserID:
	case actor.Role == models.RoleDriver:
		driver, err := s.drivers.GetByUserID(ctx, actor.UserID)
		if err != nil || !job.IsAssignedTo(driver.ID) {
			return nil, apperr.Authorization("job is not assigned to you")
		}
	default:
		return nil, apperr.Authorization("not allowed to view this job")
	}

	return job.ViewFor(actor.Role, actor.UserID), nil
}

// Track is the public parcel-tracking lookup. Always sanitized.
func (s *JobService) Track(ctx context.Context, code string) (*models.Job, error) {
	job, err := s.jobs.GetByTrackingCode(ctx, code)
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			return nil, apperr.NotFound("parcel")
		}
		return nil, apperr.Internal(err)
	}
	return job.ViewFor(models.RoleDriver, primitive.NilObjectID), nil
}

// List returns the caller's job history, sanitized.
func (s *JobService) List(ctx context.Context, actor Actor, params *utils.PaginationParams) ([]*models.Job, int64, error) {
	var (
		jobs  []*models.Job
		total int64
		err   error
	)

	switch actor.Role {
	case models.RoleDriver:
		driver, derr := s.requireDriver(ctx, actor)
		if derr != nil {
			return nil, 0, derr
		}
		jobs, total, err = s.jobs.GetByDriver(ctx, driver.ID, params)
	default:
		jobs, total, err = s.jobs.GetByUser(ctx, actor.UserID, params)
	}
	if err != nil {
		return nil, 0, apperr.Internal(err)
	}

	views := make([]*models.Job, 0, len(jobs))
	for _, job := range jobs {
		views = append(views, job.ViewFor(actor.Role, actor.UserID))
	}
	return views, total, nil
}

// ActiveForDriver returns the driver's in-flight job, if any.
func (s *JobService) ActiveForDriver(ctx context.Context, actor Actor) (*models.Job, error) {
	driver, err := s.requireDriver(ctx, actor)
	if err != nil {
		return nil, err
	}

	job, err := s.jobs.GetActiveByDriver(ctx, driver.ID)
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			return nil, apperr.NotFound("active job")
		}
		return nil, apperr.Internal(err)
	}
	return job.ViewFor(models.RoleDriver, actor.UserID), nil
}

// --- internals ---

func (s *JobService) getJob(ctx context.Context, jobID primitive.ObjectID) (*models.Job, error) {
	job, err := s.jobs.GetByID(ctx, jobID)
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			return nil, apperr.NotFound("job")
		}
		return nil, apperr.Internal(err)
	}
	return job, nil
}

func (s *JobService) requireDriver(ctx context.Context, actor Actor) (*models.Driver, error) {
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

func (s *JobService) requireAssigned(ctx context.Context, actor Actor, jobID primitive.ObjectID) (*models.Driver, *models.Job, error) {
	driver, err := s.requireDriver(ctx, actor)
	if err != nil {
		return nil, nil, err
	}

	job, err := s.getJob(ctx, jobID)
	if err != nil {
		return nil, nil, err
	}
	if !job.IsAssignedTo(driver.ID) {
		return nil, nil, apperr.Authorization("job is not assigned to you")
	}
	return driver, job, nil
}

// transition applies the conditional update and maps a failed guard to a
// conflict describing the job's actual state.
func (s *JobService) transition(ctx context.Context, job *models.Job, expected []models.JobStatus, updates map[string]interface{}) (*models.Job, error) {
	updated, err := s.jobs.TryTransition(ctx, job.ID, expected, updates)
	if err != nil {
		if errors.Is(err, interfaces.ErrConditionFailed) {
			current, rerr := s.jobs.GetByID(ctx, job.ID)
			if rerr == nil {
				return nil, apperr.Conflict("job is %s, cannot apply this transition", current.Status)
			}
			return nil, apperr.Conflict("job is not in the required state")
		}
		return nil, apperr.Internal(err)
	}
	return updated, nil
}

// settle runs the post-completion bookkeeping. The driver keeps 100% of the
// final fare; the platform monetizes through subscriptions. Failures here are
// logged, never unwound: the completed job is the source of truth.
func (s *JobService) settle(ctx context.Context, job *models.Job, driver *models.Driver) {
	earnings := job.Fare.FinalFare

	if err := s.drivers.SetAvailability(ctx, driver.ID, true, nil); err != nil {
		s.logger.WithError(err).Error("failed to release driver after completion")
	}
	if err := s.drivers.IncrementJobStats(ctx, driver.ID, earnings); err != nil {
		s.logger.WithError(err).Error("failed to increment driver totals")
	}
	if err := s.users.IncrementTotalRides(ctx, job.UserID); err != nil {
		s.logger.WithError(err).Error("failed to increment requester totals")
	}

	if job.PromoCode != "" {
		if promo, err := s.promos.GetByCode(ctx, job.PromoCode); err == nil {
			if err := s.promos.IncrementUsage(ctx, promo.ID); err != nil {
				s.logger.WithError(err).Warn("failed to increment promo usage")
			}
		}
	}

	now := time.Now()
	sub, err := s.subscriptions.GetActiveByDriver(ctx, driver.ID, now)
	if err == nil {
		if err := s.subscriptions.IncrementUsage(ctx, sub.ID, earnings); err != nil {
			s.logger.WithError(err).Warn("failed to increment subscription usage")
		}
		return
	}
	if !errors.Is(err, interfaces.ErrNotFound) {
		s.logger.WithError(err).Warn("failed to load subscription during settlement")
		return
	}

	// Subscription lapsed mid-job: the finished job stands, but the driver
	// is forced offline until they renew.
	if err := s.drivers.SetOnline(ctx, driver.ID, false); err != nil {
		s.logger.WithError(err).Error("failed to force expired driver offline")
	}
	s.notifier.Dispatch([]Effect{
		RealtimeEffect(realtime.UserRoom(driver.UserID), "subscription_expired", map[string]interface{}{
			"driver_id": driver.ID.Hex(),
		}),
	})
}

// priceJob computes a fare, pricing a promo discount against the undiscounted
// total in a second deterministic pass.
func (s *JobService) priceJob(ctx context.Context, in FareInput, promo *models.PromoCode) models.FareBreakdown {
	fare := s.pricing.CalculateFare(in)
	if promo != nil {
		in.PromoDiscount = promo.DiscountFor(fare.TotalFare)
		fare = s.pricing.CalculateFare(in)
	}
	return fare
}

func (s *JobService) finalFare(ctx context.Context, job *models.Job, input CompleteJobInput) (models.FareBreakdown, error) {
	distanceKM := job.DistanceKM
	if input.ActualDistanceKM > 0 {
		distanceKM = input.ActualDistanceKM
	}

	durationMin := float64(job.DurationMin)
	if input.ActualDurationMin > 0 {
		durationMin = float64(input.ActualDurationMin)
	} else if job.StartedAt != nil {
		durationMin = time.Since(*job.StartedAt).Minutes()
	}

	in := FareInput{
		VehicleType:     job.VehicleType,
		DistanceKM:      distanceKM,
		DurationMin:     durationMin,
		SurgeMultiplier: job.Fare.SurgeMultiplier,
		FareMultiplier:  s.catalog.FareMultiplier(ctx, job.Category, job.VehicleType),
	}

	promo, err := s.resolvePromo(ctx, job.PromoCode)
	if err != nil {
		// A promo that expired mid-job keeps its quoted discount rather than
		// blocking completion.
		in.PromoDiscount = job.Fare.Discount
		return s.pricing.CalculateFare(in), nil
	}
	return s.priceJob(ctx, in, promo), nil
}

func (s *JobService) resolvePromo(ctx context.Context, code string) (*models.PromoCode, error) {
	if code == "" {
		return nil, nil
	}

	promo, err := s.promos.GetByCode(ctx, code)
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			return nil, apperr.Validation("invalid promo code")
		}
		return nil, apperr.Internal(err)
	}
	if !promo.IsUsable(time.Now()) {
		return nil, apperr.Validation("promo code is no longer usable")
	}
	return promo, nil
}

func (s *JobService) cancelActor(ctx context.Context, actor Actor, job *models.Job) (models.CancelActor, error) {
	switch actor.Role {
	case models.RoleAdmin:
		return models.CancelledByAdmin, nil
	case models.RoleUser:
		if actor.UserID == job.UserID {
			return models.CancelledByUser, nil
		}
	case models.RoleDriver:
		driver, err := s.drivers.GetByUserID(ctx, actor.UserID)
		if err == nil && job.IsAssignedTo(driver.ID) {
			return models.CancelledByDriver, nil
		}
	}
	return "", apperr.Authorization("only the requester, assigned driver, or an admin may cancel")
}

func (s *JobService) requesterEffects(ctx context.Context, job *models.Job, event, smsText string) []Effect {
	effects := []Effect{
		RealtimeEffect(realtime.UserRoom(job.UserID), event,
			eventPayload(job.ViewFor(models.RoleUser, job.UserID))),
	}

	if smsText == "" {
		return effects
	}

	user, err := s.users.GetByID(ctx, job.UserID)
	if err != nil {
		s.logger.WithError(err).Warn("failed to load requester for notification")
		return effects
	}
	if user.Phone != "" {
		effects = append(effects, SMSEffect(user.Phone, smsText))
	}
	if user.DeviceToken != "" {
		effects = append(effects, PushEffect(user.DeviceToken, "Update on your job", smsText,
			map[string]interface{}{"job_id": job.ID.Hex(), "event": event}))
	}
	return effects
}

func (s *JobService) estimateRoute(ctx context.Context, pickup, dropoff models.Place) (float64, int) {
	origin := maps.Coordinate{Latitude: pickup.Point.Lat(), Longitude: pickup.Point.Lng()}
	destination := maps.Coordinate{Latitude: dropoff.Point.Lat(), Longitude: dropoff.Point.Lng()}

	estimate, err := s.routes.Estimate(ctx, origin, destination)
	if err != nil {
		s.logger.WithError(err).Warn("route estimation failed, falling back to haversine")
		fallback := maps.NewHaversineEstimator()
		estimate, _ = fallback.Estimate(ctx, origin, destination)
	}

	return estimate.DistanceKM, int(estimate.Duration.Minutes())
}

func checkOTP(supplied, stored string) error {
	if strings.TrimSpace(supplied) == "" || strings.TrimSpace(supplied) != strings.TrimSpace(stored) {
		return apperr.Validation("Invalid OTP")
	}
	return nil
}

func runningAverage(oldAvg float64, oldCount int64, rating float64) (float64, int) {
	newCount := oldCount + 1
	newAvg := (oldAvg*float64(oldCount) + rating) / float64(newCount)
	return newAvg, int(newCount)
}
