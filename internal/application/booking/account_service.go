package booking

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fleetrent/backend/internal/domain/audit"
	"github.com/fleetrent/backend/internal/domain/booking"
	"github.com/fleetrent/backend/internal/domain/notification"
	"github.com/fleetrent/backend/internal/domain/payment"
	"github.com/fleetrent/backend/internal/domain/shared"
)

// AccountService handles booking lifecycle operations: voiding a booking
// and closing out its rental account.
type AccountService struct {
	bookingRepo booking.Repository
	paymentRepo payment.Repository
	jobRepo     payment.JobRepository
	gateway     payment.Gateway
	dispatcher  notification.Dispatcher
	auditRepo   audit.Repository
	logger      *zap.Logger
}

// AccountServiceConfig contains configuration for AccountService
type AccountServiceConfig struct {
	BookingRepo booking.Repository
	PaymentRepo payment.Repository
	JobRepo     payment.JobRepository
	Gateway     payment.Gateway
	Dispatcher  notification.Dispatcher
	AuditRepo   audit.Repository
	Logger      *zap.Logger
}

// NewAccountService creates a new AccountService
func NewAccountService(cfg AccountServiceConfig) *AccountService {
	return &AccountService{
		bookingRepo: cfg.BookingRepo,
		paymentRepo: cfg.PaymentRepo,
		jobRepo:     cfg.JobRepo,
		gateway:     cfg.Gateway,
		dispatcher:  cfg.Dispatcher,
		auditRepo:   cfg.AuditRepo,
		logger:      cfg.Logger,
	}
}

// VoidBooking cancels a booking. Terminal bookings reject the transition
// before any write happens. A live authorization hold is cancelled at the
// provider; captured deposit funds get a queued release job.
func (s *AccountService) VoidBooking(ctx context.Context, bookingID uuid.UUID, actor string) error {
	b, err := s.bookingRepo.FindByID(ctx, bookingID)
	if err != nil {
		return fmt.Errorf("failed to load booking: %w", err)
	}
	if b == nil {
		return shared.ErrNotFound
	}

	hadLiveHold := b.HasLiveDepositHold()
	depositIntentID := b.DepositIntentID

	if err := b.Void(); err != nil {
		return err
	}

	if hadLiveHold {
		if _, err := s.gateway.CancelPaymentIntent(ctx, depositIntentID); err != nil {
			s.logger.Error("Failed to cancel deposit hold while voiding booking",
				zap.String("booking_id", b.ID.String()),
				zap.String("intent_id", depositIntentID),
				zap.Error(err))
			return shared.ErrPaymentGateway
		}
		if err := b.ReleaseDeposit(false); err != nil {
			return err
		}
	}

	b.IncrementVersion()
	if err := s.bookingRepo.SaveWithLock(ctx, b); err != nil {
		return fmt.Errorf("failed to save booking: %w", err)
	}

	s.enqueueDepositRelease(ctx, b)
	s.publishBookingEvents(ctx, b)
	s.audit(ctx, actor, "booking.void", b)

	s.logger.Info("Voided booking",
		zap.String("booking_id", b.ID.String()),
		zap.String("actor", actor))
	return nil
}

// CloseAccount completes the booking's rental account. Terminal bookings
// reject the transition before any write happens.
func (s *AccountService) CloseAccount(ctx context.Context, bookingID uuid.UUID, actor string) error {
	b, err := s.bookingRepo.FindByID(ctx, bookingID)
	if err != nil {
		return fmt.Errorf("failed to load booking: %w", err)
	}
	if b == nil {
		return shared.ErrNotFound
	}

	if err := b.CloseAccount(); err != nil {
		return err
	}

	b.IncrementVersion()
	if err := s.bookingRepo.SaveWithLock(ctx, b); err != nil {
		return fmt.Errorf("failed to save booking: %w", err)
	}

	s.enqueueDepositRelease(ctx, b)
	s.publishBookingEvents(ctx, b)
	s.audit(ctx, actor, "booking.close_account", b)

	s.logger.Info("Closed booking account",
		zap.String("booking_id", b.ID.String()),
		zap.String("actor", actor))
	return nil
}

// enqueueDepositRelease queues a release job when captured deposit funds
// remain on the booking. Authorized-but-uncaptured holds were already
// cancelled inline; the job covers the settled deposit payment.
func (s *AccountService) enqueueDepositRelease(ctx context.Context, b *booking.Booking) {
	if !b.DepositAmount.IsPositive() || b.DepositChargeID == "" {
		return
	}

	depositPayment, err := s.paymentRepo.FindDepositByBookingID(ctx, b.ID)
	if err != nil {
		s.logger.Error("Failed to look up deposit payment for release",
			zap.String("booking_id", b.ID.String()),
			zap.Error(err))
		return
	}

	var paymentID *uuid.UUID
	if depositPayment != nil {
		paymentID = &depositPayment.ID
	}

	job, err := payment.NewDepositJob(b.ID, paymentID, payment.JobRelease, b.DepositAmount)
	if err != nil {
		s.logger.Error("Failed to build deposit release job",
			zap.String("booking_id", b.ID.String()),
			zap.Error(err))
		return
	}
	if err := s.jobRepo.Save(ctx, job); err != nil {
		s.logger.Error("Failed to enqueue deposit release job",
			zap.String("booking_id", b.ID.String()),
			zap.Error(err))
		return
	}

	s.logger.Info("Enqueued deposit release job",
		zap.String("booking_id", b.ID.String()),
		zap.String("job_id", job.ID.String()))
}

func (s *AccountService) publishBookingEvents(ctx context.Context, b *booking.Booking) {
	templates := map[string]string{
		booking.EventBookingCancelled: notification.TemplateBookingCancelled,
		booking.EventBookingCompleted: notification.TemplateBookingCompleted,
		booking.EventDepositReleased:  notification.TemplateDepositReleased,
	}

	for _, event := range b.GetDomainEvents() {
		template, ok := templates[event.EventType()]
		if !ok {
			continue
		}
		err := s.dispatcher.Send(ctx, notification.Notification{
			BookingID:      b.ID,
			Channel:        notification.ChannelEmail,
			TemplateType:   template,
			Recipient:      b.CustomerEmail,
			IdempotencyKey: event.EventID().String(),
			Params: map[string]string{
				"booking_number": b.BookingNumber,
			},
		})
		if err != nil {
			s.logger.Warn("Failed to dispatch booking notification",
				zap.String("booking_id", b.ID.String()),
				zap.String("template", template),
				zap.Error(err))
		}
	}
	b.ClearDomainEvents()
}

func (s *AccountService) audit(ctx context.Context, actor, action string, b *booking.Booking) {
	detail, _ := json.Marshal(map[string]string{
		"booking_number": b.BookingNumber,
		"status":         string(b.Status),
		"deposit_status": string(b.DepositStatus),
	})
	entry := audit.NewEntry(actor, action, "booking", b.ID, string(detail))
	if err := s.auditRepo.Append(ctx, entry); err != nil {
		s.logger.Warn("Failed to append audit entry",
			zap.String("booking_id", b.ID.String()),
			zap.String("action", action),
			zap.Error(err))
	}
}
