package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/fleetrent/backend/internal/interfaces/http/dto"
)

// BookingLifecycle voids bookings and closes rental accounts
type BookingLifecycle interface {
	VoidBooking(ctx context.Context, bookingID uuid.UUID, actor string) error
	CloseAccount(ctx context.Context, bookingID uuid.UUID, actor string) error
}

// BookingHandler handles booking lifecycle endpoints
type BookingHandler struct {
	BaseHandler
	lifecycle BookingLifecycle
}

// NewBookingHandler creates a new BookingHandler
func NewBookingHandler(lifecycle BookingLifecycle) *BookingHandler {
	return &BookingHandler{lifecycle: lifecycle}
}

// VoidBooking handles POST /bookings/:id/void
func (h *BookingHandler) VoidBooking(c *gin.Context) {
	bookingID, ok := h.bookingID(c)
	if !ok {
		return
	}

	if err := h.lifecycle.VoidBooking(c.Request.Context(), bookingID, actor(c)); err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, gin.H{"booking_id": bookingID, "status": "cancelled"})
}

// CloseAccount handles POST /bookings/:id/close-account
func (h *BookingHandler) CloseAccount(c *gin.Context) {
	bookingID, ok := h.bookingID(c)
	if !ok {
		return
	}

	if err := h.lifecycle.CloseAccount(c.Request.Context(), bookingID, actor(c)); err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, gin.H{"booking_id": bookingID, "status": "completed"})
}

func (h *BookingHandler) bookingID(c *gin.Context) (uuid.UUID, bool) {
	var req dto.IDRequest
	if err := c.ShouldBindUri(&req); err != nil {
		h.BadRequest(c, "Invalid booking ID")
		return uuid.Nil, false
	}
	id, err := uuid.Parse(req.ID)
	if err != nil {
		h.BadRequest(c, "Invalid booking ID")
		return uuid.Nil, false
	}
	return id, true
}
