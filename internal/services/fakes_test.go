package services

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"godispatch/internal/config"
	"godispatch/internal/models"
	"godispatch/internal/repositories/interfaces"
	"godispatch/internal/utils"
	"godispatch/pkg/logger"
	"godispatch/pkg/maps"
)

func testLogger() *logger.Logger {
	log, _ := logger.NewLogger(&logger.Config{Level: "panic", Format: "text"})
	return log
}

func testPricingConfig() *config.PricingConfig {
	return &config.PricingConfig{
		BaseFare:        3000,
		PerKMRate:       1200,
		PerMinuteRate:   150,
		BookingFee:      500,
		MinimumFare:     5000,
		SurgeMultiplier: 1.0,
		Currency:        "INR",
	}
}

// --- job repository ---

type fakeJobRepo struct {
	mu   sync.Mutex
	jobs map[primitive.ObjectID]*models.Job
}

func newFakeJobRepo() *fakeJobRepo {
	return &fakeJobRepo{jobs: make(map[primitive.ObjectID]*models.Job)}
}

func (r *fakeJobRepo) Create(_ context.Context, job *models.Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if job.ID.IsZero() {
		job.ID = primitive.NewObjectID()
	}
	job.CreatedAt = time.Now()
	job.UpdatedAt = job.CreatedAt
	copied := *job
	r.jobs[job.ID] = &copied
	return nil
}

func (r *fakeJobRepo) GetByID(_ context.Context, id primitive.ObjectID) (*models.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[id]
	if !ok {
		return nil, interfaces.ErrNotFound
	}
	copied := *job
	return &copied, nil
}

func (r *fakeJobRepo) GetByTrackingCode(_ context.Context, code string) (*models.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, job := range r.jobs {
		if job.TrackingCode == code && code != "" {
			copied := *job
			return &copied, nil
		}
	}
	return nil, interfaces.ErrNotFound
}

func (r *fakeJobRepo) Update(_ context.Context, id primitive.ObjectID, updates map[string]interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[id]
	if !ok {
		return interfaces.ErrNotFound
	}
	applyJobUpdates(job, updates)
	return nil
}

func (r *fakeJobRepo) Accept(_ context.Context, id, driverID primitive.ObjectID, acceptedAt time.Time) (*models.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[id]
	if !ok {
		return nil, interfaces.ErrNotFound
	}
	if job.DriverID != nil || (job.Status != models.StatusRequested && job.Status != models.StatusPending) {
		return nil, interfaces.ErrConditionFailed
	}
	job.DriverID = &driverID
	job.Status = models.AcceptedStatus(job.Category)
	job.AcceptedAt = &acceptedAt
	job.UpdatedAt = acceptedAt
	copied := *job
	return &copied, nil
}

func (r *fakeJobRepo) TryTransition(_ context.Context, id primitive.ObjectID, expected []models.JobStatus, updates map[string]interface{}) (*models.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[id]
	if !ok {
		return nil, interfaces.ErrNotFound
	}

	matched := false
	for _, status := range expected {
		if job.Status == status {
			matched = true
			break
		}
	}
	if !matched {
		return nil, interfaces.ErrConditionFailed
	}

	applyJobUpdates(job, updates)
	job.UpdatedAt = time.Now()
	copied := *job
	return &copied, nil
}

func applyJobUpdates(job *models.Job, updates map[string]interface{}) {
	for key, value := range updates {
		switch key {
		case "status":
			job.Status = value.(models.JobStatus)
		case "arrived_at":
			t := value.(time.Time)
			job.ArrivedAt = &t
		case "started_at":
			t := value.(time.Time)
			job.StartedAt = &t
		case "picked_up_at":
			t := value.(time.Time)
			job.PickedUpAt = &t
		case "in_transit_at":
			t := value.(time.Time)
			job.InTransitAt = &t
		case "completed_at":
			t := value.(time.Time)
			job.CompletedAt = &t
		case "cancelled_at":
			t := value.(time.Time)
			job.CancelledAt = &t
		case "cancelled_by":
			job.CancelledBy = value.(models.CancelActor)
		case "cancel_reason":
			job.CancelReason = value.(string)
		case "fare":
			job.Fare = value.(models.FareBreakdown)
		case "payment_status":
			job.PaymentStatus = value.(models.PaymentStatus)
		case "driver_rating":
			v := value.(float64)
			job.DriverRating = &v
		case "user_rating":
			v := value.(float64)
			job.UserRating = &v
		}
	}
}

func (r *fakeJobRepo) GetByUser(_ context.Context, userID primitive.ObjectID, _ *utils.PaginationParams) ([]*models.Job, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Job
	for _, job := range r.jobs {
		if job.UserID == userID {
			copied := *job
			out = append(out, &copied)
		}
	}
	return out, int64(len(out)), nil
}

func (r *fakeJobRepo) GetByDriver(_ context.Context, driverID primitive.ObjectID, _ *utils.PaginationParams) ([]*models.Job, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Job
	for _, job := range r.jobs {
		if job.IsAssignedTo(driverID) {
			copied := *job
			out = append(out, &copied)
		}
	}
	return out, int64(len(out)), nil
}

func (r *fakeJobRepo) GetActiveByDriver(_ context.Context, driverID primitive.ObjectID) (*models.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, job := range r.jobs {
		if job.IsAssignedTo(driverID) && !job.IsTerminal() {
			copied := *job
			return &copied, nil
		}
	}
	return nil, interfaces.ErrNotFound
}

func (r *fakeJobRepo) GetActiveByUser(_ context.Context, userID primitive.ObjectID) (*models.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, job := range r.jobs {
		if job.UserID == userID && !job.IsTerminal() {
			copied := *job
			return &copied, nil
		}
	}
	return nil, interfaces.ErrNotFound
}

func (r *fakeJobRepo) GetOpenNearby(_ context.Context, category models.JobCategory, _, _, _ float64, limit int) ([]*models.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Job
	for _, job := range r.jobs {
		if job.Category == category && job.DriverID == nil && !job.IsTerminal() {
			copied := *job
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RequestedAt.After(out[j].RequestedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *fakeJobRepo) CountByStatus(_ context.Context, status models.JobStatus) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var count int64
	for _, job := range r.jobs {
		if job.Status == status {
			count++
		}
	}
	return count, nil
}

func (r *fakeJobRepo) GetStats(_ context.Context, _, _ time.Time) (map[string]interface{}, error) {
	return map[string]interface{}{}, nil
}

// --- driver repository ---

type fakeDriverRepo struct {
	mu      sync.Mutex
	drivers map[primitive.ObjectID]*models.Driver
}

func newFakeDriverRepo() *fakeDriverRepo {
	return &fakeDriverRepo{drivers: make(map[primitive.ObjectID]*models.Driver)}
}

func (r *fakeDriverRepo) Create(_ context.Context, driver *models.Driver) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if driver.ID.IsZero() {
		driver.ID = primitive.NewObjectID()
	}
	copied := *driver
	r.drivers[driver.ID] = &copied
	return nil
}

func (r *fakeDriverRepo) GetByID(_ context.Context, id primitive.ObjectID) (*models.Driver, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	driver, ok := r.drivers[id]
	if !ok {
		return nil, interfaces.ErrNotFound
	}
	copied := *driver
	return &copied, nil
}

func (r *fakeDriverRepo) GetByUserID(_ context.Context, userID primitive.ObjectID) (*models.Driver, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, driver := range r.drivers {
		if driver.UserID == userID {
			copied := *driver
			return &copied, nil
		}
	}
	return nil, interfaces.ErrNotFound
}

func (r *fakeDriverRepo) Update(_ context.Context, id primitive.ObjectID, updates map[string]interface{}) error {
	return nil
}

func (r *fakeDriverRepo) List(_ context.Context, _ *utils.PaginationParams) ([]*models.Driver, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Driver
	for _, driver := range r.drivers {
		copied := *driver
		out = append(out, &copied)
	}
	return out, int64(len(out)), nil
}

func (r *fakeDriverRepo) SetOnline(_ context.Context, id primitive.ObjectID, online bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	driver, ok := r.drivers[id]
	if !ok {
		return interfaces.ErrNotFound
	}
	driver.IsOnline = online
	if !online {
		driver.IsAvailable = false
	}
	return nil
}

func (r *fakeDriverRepo) SetAvailability(_ context.Context, id primitive.ObjectID, available bool, currentJobID *primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	driver, ok := r.drivers[id]
	if !ok {
		return interfaces.ErrNotFound
	}
	driver.IsAvailable = available
	driver.CurrentJobID = currentJobID
	return nil
}

func (r *fakeDriverRepo) UpdateLocation(_ context.Context, id primitive.ObjectID, lat, lng float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	driver, ok := r.drivers[id]
	if !ok {
		return interfaces.ErrNotFound
	}
	point := models.NewGeoPoint(lat, lng)
	now := time.Now()
	driver.Location = &point
	driver.LastLocationAt = &now
	return nil
}

func (r *fakeDriverRepo) UpdateSearchRadius(_ context.Context, id primitive.ObjectID, radiusKM float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	driver, ok := r.drivers[id]
	if !ok {
		return interfaces.ErrNotFound
	}
	driver.SearchRadiusKM = radiusKM
	return nil
}

func (r *fakeDriverRepo) FindCandidates(_ context.Context, _, _ float64, vehicleTypes []string, limit int) ([]*models.Driver, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Driver
	for _, driver := range r.drivers {
		if !driver.IsApproved() || !driver.IsOnline || !driver.IsAvailable || driver.CurrentJobID != nil {
			continue
		}
		if len(vehicleTypes) > 0 {
			match := false
			for _, vt := range vehicleTypes {
				if vt == driver.VehicleType {
					match = true
					break
				}
			}
			if !match {
				continue
			}
		}
		copied := *driver
		out = append(out, &copied)
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (r *fakeDriverRepo) IncrementJobStats(_ context.Context, id primitive.ObjectID, earnings int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	driver, ok := r.drivers[id]
	if !ok {
		return interfaces.ErrNotFound
	}
	driver.TotalJobs++
	driver.TotalEarnings += earnings
	return nil
}

func (r *fakeDriverRepo) UpdateRating(_ context.Context, id primitive.ObjectID, rating float64, totalRatings int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	driver, ok := r.drivers[id]
	if !ok {
		return interfaces.ErrNotFound
	}
	driver.Rating = rating
	driver.TotalRatings = int64(totalRatings)
	return nil
}

func (r *fakeDriverRepo) SetApprovalStatus(_ context.Context, id primitive.ObjectID, status models.ApprovalStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	driver, ok := r.drivers[id]
	if !ok {
		return interfaces.ErrNotFound
	}
	driver.ApprovalStatus = status
	if status == models.ApprovalApproved && driver.ApprovedAt == nil {
		now := time.Now()
		driver.ApprovedAt = &now
	}
	return nil
}

// --- user repository ---

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[primitive.ObjectID]*models.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[primitive.ObjectID]*models.User)}
}

func (r *fakeUserRepo) Create(_ context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	copied := *user
	r.users[user.ID] = &copied
	return nil
}

func (r *fakeUserRepo) GetByID(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return nil, interfaces.ErrNotFound
	}
	copied := *user
	return &copied, nil
}

func (r *fakeUserRepo) GetByPhone(_ context.Context, phone string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, user := range r.users {
		if user.Phone == phone {
			copied := *user
			return &copied, nil
		}
	}
	return nil, interfaces.ErrNotFound
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, user := range r.users {
		if user.Email == email {
			copied := *user
			return &copied, nil
		}
	}
	return nil, interfaces.ErrNotFound
}

func (r *fakeUserRepo) Update(_ context.Context, id primitive.ObjectID, _ map[string]interface{}) error {
	return nil
}

func (r *fakeUserRepo) List(_ context.Context, _ *utils.PaginationParams) ([]*models.User, int64, error) {
	return nil, 0, nil
}

func (r *fakeUserRepo) UpdateDeviceToken(_ context.Context, id primitive.ObjectID, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return interfaces.ErrNotFound
	}
	user.DeviceToken = token
	return nil
}

func (r *fakeUserRepo) UpdateRating(_ context.Context, id primitive.ObjectID, rating float64, totalRatings int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return interfaces.ErrNotFound
	}
	user.Rating = rating
	user.TotalRatings = int64(totalRatings)
	return nil
}

func (r *fakeUserRepo) IncrementTotalRides(_ context.Context, id primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return interfaces.ErrNotFound
	}
	user.TotalRides++
	return nil
}

// --- subscription + plan repositories ---

type fakeSubscriptionRepo struct {
	mu   sync.Mutex
	subs map[primitive.ObjectID]*models.Subscription
}

func newFakeSubscriptionRepo() *fakeSubscriptionRepo {
	return &fakeSubscriptionRepo{subs: make(map[primitive.ObjectID]*models.Subscription)}
}

func (r *fakeSubscriptionRepo) Create(_ context.Context, sub *models.Subscription) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if sub.ID.IsZero() {
		sub.ID = primitive.NewObjectID()
	}
	sub.CreatedAt = time.Now()
	copied := *sub
	r.subs[sub.ID] = &copied
	return nil
}

func (r *fakeSubscriptionRepo) GetByID(_ context.Context, id primitive.ObjectID) (*models.Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sub, ok := r.subs[id]
	if !ok {
		return nil, interfaces.ErrNotFound
	}
	copied := *sub
	return &copied, nil
}

func (r *fakeSubscriptionRepo) GetByDriver(_ context.Context, driverID primitive.ObjectID, _ *utils.PaginationParams) ([]*models.Subscription, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Subscription
	for _, sub := range r.subs {
		if sub.DriverID == driverID {
			copied := *sub
			out = append(out, &copied)
		}
	}
	return out, int64(len(out)), nil
}

func (r *fakeSubscriptionRepo) GetActiveByDriver(_ context.Context, driverID primitive.ObjectID, now time.Time) (*models.Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var best *models.Subscription
	for _, sub := range r.subs {
		if sub.DriverID != driverID || !sub.IsValid(now) {
			continue
		}
		if best == nil || sub.EndDate.After(best.EndDate) {
			best = sub
		}
	}
	if best == nil {
		return nil, interfaces.ErrNotFound
	}
	copied := *best
	return &copied, nil
}

func (r *fakeSubscriptionRepo) CountByDriver(_ context.Context, driverID primitive.ObjectID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var count int64
	for _, sub := range r.subs {
		if sub.DriverID == driverID {
			count++
		}
	}
	return count, nil
}

func (r *fakeSubscriptionRepo) IncrementUsage(_ context.Context, id primitive.ObjectID, earnings int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	sub, ok := r.subs[id]
	if !ok {
		return interfaces.ErrNotFound
	}
	sub.JobsCompleted++
	sub.EarningsAccrued += earnings
	return nil
}

func (r *fakeSubscriptionRepo) Cancel(_ context.Context, id primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	sub, ok := r.subs[id]
	if !ok {
		return interfaces.ErrNotFound
	}
	sub.Status = models.SubscriptionCancelled
	return nil
}

func (r *fakeSubscriptionRepo) ExpireDue(_ context.Context, now time.Time) ([]primitive.ObjectID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var affected []primitive.ObjectID
	for _, sub := range r.subs {
		if sub.Status == models.SubscriptionActive && !sub.EndDate.After(now) {
			sub.Status = models.SubscriptionExpired
			affected = append(affected, sub.DriverID)
		}
	}
	return affected, nil
}

type fakePlanRepo struct {
	mu    sync.Mutex
	plans map[primitive.ObjectID]*models.SubscriptionPlan
}

func newFakePlanRepo() *fakePlanRepo {
	return &fakePlanRepo{plans: make(map[primitive.ObjectID]*models.SubscriptionPlan)}
}

func (r *fakePlanRepo) Create(_ context.Context, plan *models.SubscriptionPlan) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if plan.ID.IsZero() {
		plan.ID = primitive.NewObjectID()
	}
	copied := *plan
	r.plans[plan.ID] = &copied
	return nil
}

func (r *fakePlanRepo) GetByID(_ context.Context, id primitive.ObjectID) (*models.SubscriptionPlan, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	plan, ok := r.plans[id]
	if !ok {
		return nil, interfaces.ErrNotFound
	}
	copied := *plan
	return &copied, nil
}

func (r *fakePlanRepo) Update(_ context.Context, _ primitive.ObjectID, _ map[string]interface{}) error {
	return nil
}

func (r *fakePlanRepo) ListActive(_ context.Context) ([]*models.SubscriptionPlan, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.SubscriptionPlan
	for _, plan := range r.plans {
		if plan.IsActive {
			copied := *plan
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (r *fakePlanRepo) GetTrialPlan(_ context.Context) (*models.SubscriptionPlan, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, plan := range r.plans {
		if plan.IsTrial && plan.IsActive {
			copied := *plan
			return &copied, nil
		}
	}
	return nil, interfaces.ErrNotFound
}

// --- catalog repository ---

type fakeCatalogRepo struct {
	mu       sync.Mutex
	entries  map[string]*models.CatalogEntry
	forceErr error
}

func newFakeCatalogRepo() *fakeCatalogRepo {
	return &fakeCatalogRepo{entries: make(map[string]*models.CatalogEntry)}
}

func catalogKey(category models.JobCategory, vehicleType string) string {
	return string(category) + "/" + vehicleType
}

func (r *fakeCatalogRepo) Upsert(_ context.Context, entry *models.CatalogEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if entry.ID.IsZero() {
		entry.ID = primitive.NewObjectID()
	}
	copied := *entry
	r.entries[catalogKey(entry.Category, entry.VehicleType)] = &copied
	return nil
}

func (r *fakeCatalogRepo) Get(_ context.Context, category models.JobCategory, vehicleType string) (*models.CatalogEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.forceErr != nil {
		return nil, r.forceErr
	}
	entry, ok := r.entries[catalogKey(category, vehicleType)]
	if !ok {
		return nil, interfaces.ErrNotFound
	}
	copied := *entry
	return &copied, nil
}

func (r *fakeCatalogRepo) List(_ context.Context) ([]*models.CatalogEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.forceErr != nil {
		return nil, r.forceErr
	}
	var out []*models.CatalogEntry
	for _, entry := range r.entries {
		copied := *entry
		out = append(out, &copied)
	}
	return out, nil
}

func (r *fakeCatalogRepo) SetActive(_ context.Context, id primitive.ObjectID, active bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, entry := range r.entries {
		if entry.ID == id {
			entry.IsActive = active
			return nil
		}
	}
	return interfaces.ErrNotFound
}

// --- promo repository ---

type fakePromoRepo struct {
	mu     sync.Mutex
	promos map[string]*models.PromoCode
}

func newFakePromoRepo() *fakePromoRepo {
	return &fakePromoRepo{promos: make(map[string]*models.PromoCode)}
}

func (r *fakePromoRepo) Create(_ context.Context, promo *models.PromoCode) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if promo.ID.IsZero() {
		promo.ID = primitive.NewObjectID()
	}
	copied := *promo
	r.promos[promo.Code] = &copied
	return nil
}

func (r *fakePromoRepo) GetByCode(_ context.Context, code string) (*models.PromoCode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	promo, ok := r.promos[code]
	if !ok {
		return nil, interfaces.ErrNotFound
	}
	copied := *promo
	return &copied, nil
}

func (r *fakePromoRepo) IncrementUsage(_ context.Context, id primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, promo := range r.promos {
		if promo.ID == id {
			promo.UsedCount++
			return nil
		}
	}
	return interfaces.ErrNotFound
}

func (r *fakePromoRepo) SetActive(_ context.Context, id primitive.ObjectID, active bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, promo := range r.promos {
		if promo.ID == id {
			promo.IsActive = active
			return nil
		}
	}
	return interfaces.ErrNotFound
}

func (r *fakePromoRepo) List(_ context.Context) ([]*models.PromoCode, error) {
	return nil, nil
}

// --- chat repository ---

type fakeChatRepo struct {
	mu      sync.Mutex
	threads map[primitive.ObjectID]*models.ChatThread
}

func newFakeChatRepo() *fakeChatRepo {
	return &fakeChatRepo{threads: make(map[primitive.ObjectID]*models.ChatThread)}
}

func (r *fakeChatRepo) EnsureThread(_ context.Context, jobID, userID, driverID primitive.ObjectID) (*models.ChatThread, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if thread, ok := r.threads[jobID]; ok {
		copied := *thread
		return &copied, nil
	}
	thread := &models.ChatThread{
		ID:        primitive.NewObjectID(),
		JobID:     jobID,
		UserID:    userID,
		DriverID:  driverID,
		CreatedAt: time.Now(),
	}
	r.threads[jobID] = thread
	copied := *thread
	return &copied, nil
}

func (r *fakeChatRepo) GetByJob(_ context.Context, jobID primitive.ObjectID) (*models.ChatThread, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	thread, ok := r.threads[jobID]
	if !ok {
		return nil, interfaces.ErrNotFound
	}
	copied := *thread
	return &copied, nil
}

// --- environment ---

type testEnv struct {
	jobs    *fakeJobRepo
	drivers *fakeDriverRepo
	users   *fakeUserRepo
	subs    *fakeSubscriptionRepo
	plans   *fakePlanRepo
	catalog *fakeCatalogRepo
	promos  *fakePromoRepo
	chats   *fakeChatRepo

	pricing     *PricingService
	catalogSvc  *CatalogService
	eligibility *EligibilityService
	matcher     *MatcherService
	notifier    *NotificationService
	svc         *JobService

	requester   *models.User
	driverUser  *models.User
	driver      *models.Driver
	requesterID Actor
	driverActor Actor
}

func newTestEnv() *testEnv {
	log := testLogger()

	env := &testEnv{
		jobs:    newFakeJobRepo(),
		drivers: newFakeDriverRepo(),
		users:   newFakeUserRepo(),
		subs:    newFakeSubscriptionRepo(),
		plans:   newFakePlanRepo(),
		catalog: newFakeCatalogRepo(),
		promos:  newFakePromoRepo(),
		chats:   newFakeChatRepo(),
	}

	env.pricing = NewPricingService(testPricingConfig())
	env.catalogSvc = NewCatalogService(env.catalog, nil, log)
	env.eligibility = NewEligibilityService(env.subs, env.plans, nil, log)
	env.notifier = NewNotificationService(nil, nil, nil, log)
	env.matcher = NewMatcherService(env.jobs, env.drivers, env.catalogSvc, env.notifier, log)
	env.svc = NewJobService(JobServiceDeps{
		Jobs:          env.jobs,
		Drivers:       env.drivers,
		Users:         env.users,
		Promos:        env.promos,
		Chats:         env.chats,
		Subscriptions: env.subs,
		Pricing:       env.pricing,
		Catalog:       env.catalogSvc,
		Eligibility:   env.eligibility,
		Matcher:       env.matcher,
		Routes:        maps.NewHaversineEstimator(),
		Notifier:      env.notifier,
		Logger:        log,
	})

	ctx := context.Background()

	env.requester = &models.User{
		FirstName: "Asha",
		LastName:  "Rao",
		Phone:     "+919800000001",
		Role:      models.RoleUser,
		IsActive:  true,
	}
	_ = env.users.Create(ctx, env.requester)

	env.driverUser = &models.User{
		FirstName: "Vikram",
		LastName:  "Singh",
		Phone:     "+919800000002",
		Role:      models.RoleDriver,
		IsActive:  true,
	}
	_ = env.users.Create(ctx, env.driverUser)

	now := time.Now()
	env.driver = &models.Driver{
		UserID:         env.driverUser.ID,
		VehicleType:    "sedan",
		VehicleNumber:  "KA01AB1234",
		ApprovalStatus: models.ApprovalApproved,
		IsOnline:       true,
		IsAvailable:    true,
		SearchRadiusKM: utils.DefaultSearchRadiusKM,
		CreatedAt:      now,
		ApprovedAt:     &now,
	}
	_ = env.drivers.Create(ctx, env.driver)

	for _, category := range []models.JobCategory{models.CategoryRide, models.CategoryParcel} {
		_ = env.catalog.Upsert(ctx, &models.CatalogEntry{
			Category:    category,
			VehicleType: "sedan",
			IsActive:    true,
		})
	}

	_ = env.plans.Create(ctx, &models.SubscriptionPlan{
		Name:         "Free Trial",
		DurationDays: 7,
		Category:     models.PlanCategoryAll,
		VehicleType:  models.VehicleTypeAll,
		IsTrial:      true,
		IsActive:     true,
	})

	env.requesterID = Actor{UserID: env.requester.ID, Role: models.RoleUser}
	env.driverActor = Actor{UserID: env.driverUser.ID, Role: models.RoleDriver}

	return env
}

// addDriver registers another approved, online, available driver and returns
// its actor.
func (env *testEnv) addDriver(vehicleType string) (*models.Driver, Actor) {
	ctx := context.Background()

	user := &models.User{Role: models.RoleDriver, IsActive: true}
	_ = env.users.Create(ctx, user)

	now := time.Now()
	driver := &models.Driver{
		UserID:         user.ID,
		VehicleType:    vehicleType,
		ApprovalStatus: models.ApprovalApproved,
		IsOnline:       true,
		IsAvailable:    true,
		SearchRadiusKM: utils.DefaultSearchRadiusKM,
		CreatedAt:      now,
		ApprovedAt:     &now,
	}
	_ = env.drivers.Create(ctx, driver)

	return driver, Actor{UserID: user.ID, Role: models.RoleDriver}
}

func (env *testEnv) createRide(vehicleType string) *models.Job {
	job, err := env.svc.Create(context.Background(), env.requesterID, CreateJobInput{
		Category:      models.CategoryRide,
		VehicleType:   vehicleType,
		Pickup:        models.Place{Point: models.NewGeoPoint(12.9716, 77.5946), Address: "MG Road"},
		Dropoff:       models.Place{Point: models.NewGeoPoint(12.9352, 77.6245), Address: "Koramangala"},
		PaymentMethod: models.PaymentMethodCash,
	})
	if err != nil {
		panic(err)
	}
	return job
}

func (env *testEnv) createParcel() *models.Job {
	job, err := env.svc.Create(context.Background(), env.requesterID, CreateJobInput{
		Category:      models.CategoryParcel,
		VehicleType:   "sedan",
		Pickup:        models.Place{Point: models.NewGeoPoint(12.9716, 77.5946), Address: "MG Road"},
		Dropoff:       models.Place{Point: models.NewGeoPoint(12.9352, 77.6245), Address: "Koramangala"},
		PaymentMethod: models.PaymentMethodCash,
	})
	if err != nil {
		panic(err)
	}
	return job
}
