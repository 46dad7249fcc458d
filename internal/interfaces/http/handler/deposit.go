package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	depositapp "github.com/fleetrent/backend/internal/application/deposit"
)

// DepositHoldCreator creates deposit authorization holds
type DepositHoldCreator interface {
	CreateDepositHold(ctx context.Context, input depositapp.CreateHoldInput) (*depositapp.CreateHoldResult, error)
}

// DepositJobRunner drains the pending deposit job queue
type DepositJobRunner interface {
	Run(ctx context.Context) error
}

// DepositHandler handles deposit hold endpoints
type DepositHandler struct {
	BaseHandler
	holds DepositHoldCreator
}

// NewDepositHandler creates a new DepositHandler
func NewDepositHandler(holds DepositHoldCreator) *DepositHandler {
	return &DepositHandler{holds: holds}
}

// CreateDepositHoldRequest is the request body for creating a deposit hold
type CreateDepositHoldRequest struct {
	BookingID   string `json:"booking_id" binding:"required,uuid"`
	AmountCents *int64 `json:"amount_cents,omitempty" binding:"omitempty,min=1"`
}

// CreateDepositHold handles POST /deposits/hold
func (h *DepositHandler) CreateDepositHold(c *gin.Context) {
	var req CreateDepositHoldRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	bookingID, err := uuid.Parse(req.BookingID)
	if err != nil {
		h.BadRequest(c, "Invalid booking_id")
		return
	}

	result, err := h.holds.CreateDepositHold(c.Request.Context(), depositapp.CreateHoldInput{
		BookingID:   bookingID,
		AmountCents: req.AmountCents,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, result)
}

// AdminJobHandler exposes the deposit job processor to staff for manual runs
type AdminJobHandler struct {
	BaseHandler
	jobs DepositJobRunner
}

// NewAdminJobHandler creates a new AdminJobHandler
func NewAdminJobHandler(jobs DepositJobRunner) *AdminJobHandler {
	return &AdminJobHandler{jobs: jobs}
}

// RunDepositJobs handles POST /admin/deposit-jobs/run
func (h *AdminJobHandler) RunDepositJobs(c *gin.Context) {
	if err := h.jobs.Run(c.Request.Context()); err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, gin.H{"triggered": true})
}
