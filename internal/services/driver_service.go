package services

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"godispatch/internal/apperr"
	"godispatch/internal/models"
	"godispatch/internal/repositories/interfaces"
	"godispatch/internal/utils"
	"godispatch/pkg/logger"
	"godispatch/pkg/realtime"
)

// DriverService manages the transporter profile: registration, approval,
// presence, and location.
type DriverService struct {
	drivers     interfaces.DriverRepository
	users       interfaces.UserRepository
	jobs        interfaces.JobRepository
	eligibility *EligibilityService
	notifier    *NotificationService
	logger      *logger.Logger
}

func NewDriverService(drivers interfaces.DriverRepository, users interfaces.UserRepository, jobs interfaces.JobRepository, eligibility *EligibilityService, notifier *NotificationService, log *logger.Logger) *DriverService {
	return &DriverService{
		drivers:     drivers,
		users:       users,
		jobs:        jobs,
		eligibility: eligibility,
		notifier:    notifier,
		logger:      log,
	}
}

type RegisterDriverInput struct {
	VehicleType   string
	VehicleNumber string
}

// Register creates a driver profile pending approval.
func (s *DriverService) Register(ctx context.Context, actor Actor, input RegisterDriverInput) (*models.Driver, error) {
	if input.VehicleType == "" {
		return nil, apperr.Validation("vehicle type is required")
	}
	if input.VehicleNumber == "" {
		return nil, apperr.Validation("vehicle number is required")
	}

	if _, err := s.drivers.GetByUserID(ctx, actor.UserID); err == nil {
		return nil, apperr.Conflict("driver profile already exists")
	} else if !errors.Is(err, interfaces.ErrNotFound) {
		return nil, apperr.Internal(err)
	}

	driver := &models.Driver{
		UserID:         actor.UserID,
		VehicleType:    input.VehicleType,
		VehicleNumber:  input.VehicleNumber,
		ApprovalStatus: models.ApprovalPending,
		SearchRadiusKM: utils.DefaultSearchRadiusKM,
	}
	if err := s.drivers.Create(ctx, driver); err != nil {
		return nil, apperr.Internal(err)
	}

	if err := s.users.Update(ctx, actor.UserID, map[string]interface{}{"role": models.RoleDriver}); err != nil {
		s.logger.WithError(err).Warn("failed to promote user role to driver")
	}

	s.notifier.Dispatch([]Effect{
		RealtimeEffect(realtime.RoleRoom(string(models.RoleAdmin)), "driver_registered", eventPayload(driver)),
	})
	return driver, nil
}

func (s *DriverService) Profile(ctx context.Context, actor Actor) (*models.Driver, error) {
	return s.requireDriver(ctx, actor)
}

// GoOnline puts the driver on the market. Requires approval and a valid
// subscription; the eligibility read grants the free trial to first-timers.
func (s *DriverService) GoOnline(ctx context.Context, actor Actor) (*models.Driver, error) {
	driver, err := s.requireDriver(ctx, actor)
	if err != nil {
		return nil, err
	}
	if !driver.IsApproved() {
		return nil, apperr.Conflict("driver is not approved")
	}

	if _, err := s.eligibility.Entitlement(ctx, driver, models.JobCategory(models.PlanCategoryAll)); err != nil {
		return nil, err
	}

	if err := s.drivers.SetOnline(ctx, driver.ID, true); err != nil {
		return nil, apperr.Internal(err)
	}
	if driver.CurrentJobID == nil {
		if err := s.drivers.SetAvailability(ctx, driver.ID, true, nil); err != nil {
			return nil, apperr.Internal(err)
		}
	}

	return s.drivers.GetByID(ctx, driver.ID)
}

func (s *DriverService) GoOffline(ctx context.Context, actor Actor) (*models.Driver, error) {
	driver, err := s.requireDriver(ctx, actor)
	if err != nil {
		return nil, err
	}

	if err := s.drivers.SetOnline(ctx, driver.ID, false); err != nil {
		return nil, apperr.Internal(err)
	}
	return s.drivers.GetByID(ctx, driver.ID)
}

// UpdateLocation records a position ping and relays it to the requester of
// the driver's active job.
func (s *DriverService) UpdateLocation(ctx context.Context, actor Actor, lat, lng float64) error {
	if !utils.IsValidCoordinates(lat, lng) {
		return apperr.Validation("invalid coordinates")
	}

	driver, err := s.requireDriver(ctx, actor)
	if err != nil {
		return err
	}

	if err := s.drivers.UpdateLocation(ctx, driver.ID, lat, lng); err != nil {
		return apperr.Internal(err)
	}

	if driver.CurrentJobID != nil {
		if job, err := s.jobs.GetByID(ctx, *driver.CurrentJobID); err == nil && !job.IsTerminal() {
			s.notifier.Dispatch([]Effect{
				RealtimeEffect(realtime.UserRoom(job.UserID), "driver_location", map[string]interface{}{
					"job_id": job.ID.Hex(),
					"lat":    lat,
					"lng":    lng,
					"at":     time.Now().Unix(),
				}),
			})
		}
	}
	return nil
}

func (s *DriverService) SetSearchRadius(ctx context.Context, actor Actor, radiusKM float64) error {
	if radiusKM < utils.MinSearchRadiusKM || radiusKM > utils.MaxSearchRadiusKM {
		return apperr.Validation("search radius must be between %.1f and %.0f km", utils.MinSearchRadiusKM, utils.MaxSearchRadiusKM)
	}

	driver, err := s.requireDriver(ctx, actor)
	if err != nil {
		return err
	}

	if err := s.drivers.UpdateSearchRadius(ctx, driver.ID, radiusKM); err != nil {
		return apperr.Internal(err)
	}
	return nil
}

// SetApproval is the admin approval decision.
func (s *DriverService) SetApproval(ctx context.Context, driverID primitive.ObjectID, status models.ApprovalStatus) error {
	switch status {
	case models.ApprovalApproved, models.ApprovalRejected, models.ApprovalSuspended:
	default:
		return apperr.Validation("unknown approval status %q", status)
	}

	driver, err := s.drivers.GetByID(ctx, driverID)
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			return apperr.NotFound("driver")
		}
		return apperr.Internal(err)
	}

	if err := s.drivers.SetApprovalStatus(ctx, driverID, status); err != nil {
		return apperr.Internal(err)
	}
	if status != models.ApprovalApproved {
		if err := s.drivers.SetOnline(ctx, driverID, false); err != nil {
			s.logger.WithError(err).Error("failed to force non-approved driver offline")
		}
	}

	s.notifier.Dispatch([]Effect{
		RealtimeEffect(realtime.UserRoom(driver.UserID), "approval_updated", map[string]interface{}{
			"approval_status": string(status),
		}),
	})
	return nil
}

func (s *DriverService) List(ctx context.Context, params *utils.PaginationParams) ([]*models.Driver, int64, error) {
	drivers, total, err := s.drivers.List(ctx, params)
	if err != nil {
		return nil, 0, apperr.Internal(err)
	}
	return drivers, total, nil
}

func (s *DriverService) requireDriver(ctx context.Context, actor Actor) (*models.Driver, error) {
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
