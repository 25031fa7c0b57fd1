package handlers

import (
	"context"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"godispatch/internal/middleware"
	"godispatch/internal/models"
	"godispatch/internal/services"
	"godispatch/internal/utils"
	"godispatch/internal/validators"
)

type JobHandler struct {
	jobs    *services.JobService
	matcher *services.MatcherService
	drivers *services.DriverService
}

func NewJobHandler(jobs *services.JobService, matcher *services.MatcherService, drivers *services.DriverService) *JobHandler {
	return &JobHandler{
		jobs:    jobs,
		matcher: matcher,
		drivers: drivers,
	}
}

// Create opens a new ride or parcel job.
func (h *JobHandler) Create(c *gin.Context) {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		utils.UnauthorizedResponse(c)
		return
	}

	var request validators.CreateJobRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.BadRequestResponse(c, "Invalid request: "+err.Error())
		return
	}

	job, err := h.jobs.Create(c.Request.Context(), actor, request.ToInput())
	if err != nil {
		utils.FromError(c, err)
		return
	}

	utils.CreatedResponse(c, "Job created", job.ViewFor(actor.Role, actor.UserID))
}

func (h *JobHandler) Get(c *gin.Context) {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		utils.UnauthorizedResponse(c)
		return
	}

	jobID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid job ID")
		return
	}

	job, err := h.jobs.Get(c.Request.Context(), actor, jobID)
	if err != nil {
		utils.FromError(c, err)
		return
	}

	utils.SuccessResponse(c, "", job)
}

func (h *JobHandler) List(c *gin.Context) {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		utils.UnauthorizedResponse(c)
		return
	}

	params := utils.GetPaginationParams(c)
	jobs, total, err := h.jobs.List(c.Request.Context(), actor, params)
	if err != nil {
		utils.FromError(c, err)
		return
	}

	utils.SuccessResponseWithMeta(c, "", jobs, &utils.Meta{
		Pagination: utils.NewPaginationMeta(params, total),
	})
}

// Track is the public parcel-tracking endpoint; no auth, always sanitized.
func (h *JobHandler) Track(c *gin.Context) {
	job, err := h.jobs.Track(c.Request.Context(), c.Param("code"))
	if err != nil {
		utils.FromError(c, err)
		return
	}

	utils.SuccessResponse(c, "", job)
}

// Nearby is the driver pull feed of open jobs around a point.
func (h *JobHandler) Nearby(c *gin.Context) {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		utils.UnauthorizedResponse(c)
		return
	}

	var query validators.NearbyJobsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		utils.BadRequestResponse(c, "Invalid query: "+err.Error())
		return
	}

	driver, err := h.drivers.Profile(c.Request.Context(), actor)
	if err != nil {
		utils.FromError(c, err)
		return
	}

	jobs, err := h.matcher.OpenJobsNear(c.Request.Context(), driver,
		models.JobCategory(query.Category), query.Lat, query.Lng, query.RadiusKM)
	if err != nil {
		utils.FromError(c, err)
		return
	}

	utils.SuccessResponse(c, "", jobs)
}

func (h *JobHandler) Active(c *gin.Context) {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		utils.UnauthorizedResponse(c)
		return
	}

	job, err := h.jobs.ActiveForDriver(c.Request.Context(), actor)
	if err != nil {
		utils.FromError(c, err)
		return
	}

	utils.SuccessResponse(c, "", job)
}

func (h *JobHandler) Accept(c *gin.Context) {
	h.transition(c, h.jobs.Accept, "Job accepted")
}

func (h *JobHandler) Arrive(c *gin.Context) {
	h.transition(c, h.jobs.Arrive, "Arrival recorded")
}

func (h *JobHandler) Start(c *gin.Context) {
	h.otpTransition(c, h.jobs.Start, "Ride started")
}

func (h *JobHandler) Pickup(c *gin.Context) {
	h.otpTransition(c, h.jobs.PickupParcel, "Parcel picked up")
}

func (h *JobHandler) InTransit(c *gin.Context) {
	h.transition(c, h.jobs.MarkInTransit, "Parcel in transit")
}

func (h *JobHandler) Deliver(c *gin.Context) {
	h.otpTransition(c, h.jobs.Deliver, "Parcel delivered")
}

func (h *JobHandler) Complete(c *gin.Context) {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		utils.UnauthorizedResponse(c)
		return
	}

	jobID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid job ID")
		return
	}

	var request validators.CompleteJobRequest
	if err := c.ShouldBindJSON(&request); err != nil && c.Request.ContentLength > 0 {
		utils.BadRequestResponse(c, "Invalid request: "+err.Error())
		return
	}

	job, err := h.jobs.Complete(c.Request.Context(), actor, jobID, services.CompleteJobInput{
		ActualDistanceKM:  request.ActualDistanceKM,
		ActualDurationMin: request.ActualDurationMin,
	})
	if err != nil {
		utils.FromError(c, err)
		return
	}

	utils.SuccessResponse(c, "Ride completed", job.ViewFor(actor.Role, actor.UserID))
}

func (h *JobHandler) Cancel(c *gin.Context) {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		utils.UnauthorizedResponse(c)
		return
	}

	jobID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid job ID")
		return
	}

	var request validators.CancelJobRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.BadRequestResponse(c, "Invalid request: "+err.Error())
		return
	}

	job, err := h.jobs.Cancel(c.Request.Context(), actor, jobID, request.Reason)
	if err != nil {
		utils.FromError(c, err)
		return
	}

	utils.SuccessResponse(c, "Job cancelled", job.ViewFor(actor.Role, actor.UserID))
}

func (h *JobHandler) Rate(c *gin.Context) {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		utils.UnauthorizedResponse(c)
		return
	}

	jobID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid job ID")
		return
	}

	var request validators.RateJobRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.BadRequestResponse(c, "Invalid request: "+err.Error())
		return
	}

	job, err := h.jobs.Rate(c.Request.Context(), actor, jobID, request.Rating)
	if err != nil {
		utils.FromError(c, err)
		return
	}

	utils.SuccessResponse(c, "Rating recorded", job.ViewFor(actor.Role, actor.UserID))
}

// transition handles the OTP-less status changes.
func (h *JobHandler) transition(c *gin.Context, fn func(ctx context.Context, actor services.Actor, jobID primitive.ObjectID) (*models.Job, error), message string) {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		utils.UnauthorizedResponse(c)
		return
	}

	jobID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid job ID")
		return
	}

	job, err := fn(c.Request.Context(), actor, jobID)
	if err != nil {
		utils.FromError(c, err)
		return
	}

	utils.SuccessResponse(c, message, job.ViewFor(actor.Role, actor.UserID))
}

// otpTransition handles the OTP-gated status changes.
func (h *JobHandler) otpTransition(c *gin.Context, fn func(ctx context.Context, actor services.Actor, jobID primitive.ObjectID, otp string) (*models.Job, error), message string) {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		utils.UnauthorizedResponse(c)
		return
	}

	jobID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid job ID")
		return
	}

	var request validators.OTPRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.BadRequestResponse(c, "Invalid request: "+err.Error())
		return
	}

	job, err := fn(c.Request.Context(), actor, jobID, request.OTP)
	if err != nil {
		utils.FromError(c, err)
		return
	}

	utils.SuccessResponse(c, message, job.ViewFor(actor.Role, actor.UserID))
}
