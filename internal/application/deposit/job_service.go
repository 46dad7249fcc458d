package deposit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fleetrent/backend/internal/domain/audit"
	"github.com/fleetrent/backend/internal/domain/booking"
	"github.com/fleetrent/backend/internal/domain/notification"
	"github.com/fleetrent/backend/internal/domain/payment"
	"github.com/fleetrent/backend/internal/domain/shared/valueobject"
)

// DefaultBatchSize caps how many jobs one pass processes
const DefaultBatchSize = 10

// DefaultStaleThreshold is how long a processing job may run before a later
// pass considers it abandoned and requeues it.
const DefaultStaleThreshold = 15 * time.Minute

// JobService drains the deposit job queue: release, withhold and partial
// release operations against held or captured deposits. Jobs run strictly
// sequentially so the same deposit is never spent twice in one pass.
type JobService struct {
	jobRepo        payment.JobRepository
	bookingRepo    booking.Repository
	paymentRepo    payment.Repository
	ledgerRepo     payment.LedgerRepository
	gateway        payment.Gateway
	dispatcher     notification.Dispatcher
	auditRepo      audit.Repository
	logger         *zap.Logger
	batchSize      int
	staleThreshold time.Duration
}

// JobServiceConfig contains configuration for JobService
type JobServiceConfig struct {
	JobRepo        payment.JobRepository
	BookingRepo    booking.Repository
	PaymentRepo    payment.Repository
	LedgerRepo     payment.LedgerRepository
	Gateway        payment.Gateway
	Dispatcher     notification.Dispatcher
	AuditRepo      audit.Repository
	Logger         *zap.Logger
	BatchSize      int
	StaleThreshold time.Duration
}

// NewJobService creates a new JobService
func NewJobService(cfg JobServiceConfig) *JobService {
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	staleThreshold := cfg.StaleThreshold
	if staleThreshold <= 0 {
		staleThreshold = DefaultStaleThreshold
	}
	return &JobService{
		jobRepo:        cfg.JobRepo,
		bookingRepo:    cfg.BookingRepo,
		paymentRepo:    cfg.PaymentRepo,
		ledgerRepo:     cfg.LedgerRepo,
		gateway:        cfg.Gateway,
		dispatcher:     cfg.Dispatcher,
		auditRepo:      cfg.AuditRepo,
		logger:         cfg.Logger,
		batchSize:      batchSize,
		staleThreshold: staleThreshold,
	}
}

// EnqueueRelease queues a release of held deposit funds
func (s *JobService) EnqueueRelease(ctx context.Context, bookingID uuid.UUID, paymentID *uuid.UUID, amount valueobject.Money) error {
	job, err := payment.NewDepositJob(bookingID, paymentID, payment.JobRelease, amount)
	if err != nil {
		return err
	}
	if err := s.jobRepo.Save(ctx, job); err != nil {
		return fmt.Errorf("failed to enqueue release job: %w", err)
	}
	s.logger.Info("Enqueued deposit release job",
		zap.String("booking_id", bookingID.String()),
		zap.String("job_id", job.ID.String()),
		zap.Int64("amount_cents", amount.Cents()))
	return nil
}

// Run executes one processing pass: requeue stuck jobs, then drain up to
// one batch of pending jobs oldest first.
func (s *JobService) Run(ctx context.Context) error {
	if err := s.requeueStale(ctx); err != nil {
		s.logger.Warn("Failed to requeue stale deposit jobs", zap.Error(err))
	}

	jobs, err := s.jobRepo.FetchPending(ctx, s.batchSize)
	if err != nil {
		return fmt.Errorf("failed to fetch pending deposit jobs: %w", err)
	}
	if len(jobs) == 0 {
		return nil
	}

	s.logger.Info("Processing deposit jobs", zap.Int("count", len(jobs)))

	for _, job := range jobs {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		s.processJob(ctx, job)
	}
	return nil
}

// requeueStale returns jobs stuck in processing to the pending queue.
// Burned attempts are kept so crash loops still hit the attempt cap.
func (s *JobService) requeueStale(ctx context.Context) error {
	stale, err := s.jobRepo.FetchStaleProcessing(ctx, s.staleThreshold)
	if err != nil {
		return err
	}
	for _, job := range stale {
		job.Requeue()
		if err := s.jobRepo.Save(ctx, job); err != nil {
			s.logger.Error("Failed to requeue stale deposit job",
				zap.String("job_id", job.ID.String()),
				zap.Error(err))
			continue
		}
		s.logger.Warn("Requeued stale deposit job",
			zap.String("job_id", job.ID.String()),
			zap.Int("attempts", job.Attempts))
	}
	return nil
}

func (s *JobService) processJob(ctx context.Context, job *payment.DepositJob) {
	// The attempt is burned before any work happens; a crash mid-job
	// leaves a processing row the stale requeue picks up later.
	job.Begin()
	if err := s.jobRepo.Save(ctx, job); err != nil {
		s.logger.Error("Failed to mark deposit job processing",
			zap.String("job_id", job.ID.String()),
			zap.Error(err))
		return
	}

	if err := s.executeJob(ctx, job); err != nil {
		job.Fail(err)
		s.logger.Error("Deposit job execution failed",
			zap.String("job_id", job.ID.String()),
			zap.String("type", string(job.Type)),
			zap.Int("attempts", job.Attempts),
			zap.String("status", string(job.Status)),
			zap.Error(err))
	} else {
		job.Complete()
	}

	if err := s.jobRepo.Save(ctx, job); err != nil {
		s.logger.Error("Failed to save deposit job outcome",
			zap.String("job_id", job.ID.String()),
			zap.Error(err))
	}
}

func (s *JobService) executeJob(ctx context.Context, job *payment.DepositJob) error {
	b, err := s.bookingRepo.FindByID(ctx, job.BookingID)
	if err != nil {
		return fmt.Errorf("failed to load booking: %w", err)
	}
	if b == nil {
		return fmt.Errorf("booking %s not found", job.BookingID)
	}

	switch job.Type {
	case payment.JobRelease:
		return s.executeRelease(ctx, job, b, job.Amount)
	case payment.JobWithhold:
		return s.executeWithhold(ctx, job, b, job.Amount)
	case payment.JobPartialRelease:
		return s.executePartialRelease(ctx, job, b)
	default:
		return fmt.Errorf("unknown deposit job type %q", job.Type)
	}
}

// executeRelease returns held funds to the customer. A live authorization
// is cancelled at the provider; a captured deposit payment flips to refunded.
func (s *JobService) executeRelease(ctx context.Context, job *payment.DepositJob, b *booking.Booking, amount valueobject.Money) error {
	if b.HasLiveDepositHold() {
		if _, err := s.gateway.CancelPaymentIntent(ctx, b.DepositIntentID); err != nil {
			return fmt.Errorf("failed to cancel deposit hold at provider: %w", err)
		}
		if err := b.ReleaseDeposit(false); err != nil {
			return err
		}
		b.IncrementVersion()
		if err := s.bookingRepo.SaveWithLock(ctx, b); err != nil {
			return fmt.Errorf("failed to save booking: %w", err)
		}
	}

	if err := s.refundDepositPayment(ctx, job); err != nil {
		return err
	}

	if err := s.appendLedger(ctx, b.ID, payment.LedgerActionRelease, amount, "deposit released"); err != nil {
		return err
	}

	s.notify(ctx, b, notification.TemplateDepositReleased, job)
	s.auditJob(ctx, job, b, "deposit.release", amount)
	return nil
}

// executeWithhold keeps captured deposit funds to cover damages or fees.
// No money moves, so the deposit payment row stays completed.
func (s *JobService) executeWithhold(ctx context.Context, job *payment.DepositJob, b *booking.Booking, amount valueobject.Money) error {
	if err := s.appendLedger(ctx, b.ID, payment.LedgerActionDeduct, amount, "deposit withheld"); err != nil {
		return err
	}
	s.notify(ctx, b, notification.TemplateDepositWithheld, job)
	s.auditJob(ctx, job, b, "deposit.withhold", amount)
	return nil
}

// executePartialRelease returns job.Amount and withholds the remainder of
// the captured deposit.
func (s *JobService) executePartialRelease(ctx context.Context, job *payment.DepositJob, b *booking.Booking) error {
	releaseAmount := job.Amount

	withheld := valueobject.Zero(releaseAmount.Currency())
	if b.DepositAmount.IsPositive() {
		remainder, err := b.DepositAmount.Subtract(releaseAmount)
		if err != nil {
			return err
		}
		if remainder.IsPositive() {
			withheld = remainder
		}
	}

	if err := s.refundDepositPayment(ctx, job); err != nil {
		return err
	}

	if err := s.appendLedger(ctx, b.ID, payment.LedgerActionRelease, releaseAmount, "deposit partially released"); err != nil {
		return err
	}
	if withheld.IsPositive() {
		if err := s.appendLedger(ctx, b.ID, payment.LedgerActionDeduct, withheld, "deposit remainder withheld"); err != nil {
			return err
		}
	}

	s.notify(ctx, b, notification.TemplateDepositReleased, job)
	s.auditJob(ctx, job, b, "deposit.partial_release", releaseAmount)
	return nil
}

// refundDepositPayment flips the linked deposit payment to refunded when
// money actually moved back to the customer.
func (s *JobService) refundDepositPayment(ctx context.Context, job *payment.DepositJob) error {
	if job.PaymentID == nil {
		return nil
	}
	p, err := s.paymentRepo.FindByID(ctx, *job.PaymentID)
	if err != nil {
		return fmt.Errorf("failed to load deposit payment: %w", err)
	}
	if p == nil || p.Status != payment.StatusCompleted {
		return nil
	}
	if err := p.MarkRefunded(); err != nil {
		return err
	}
	if err := s.paymentRepo.Update(ctx, p); err != nil {
		return fmt.Errorf("failed to update deposit payment: %w", err)
	}
	return nil
}

func (s *JobService) appendLedger(ctx context.Context, bookingID uuid.UUID, action payment.LedgerAction, amount valueobject.Money, reason string) error {
	entry, err := payment.NewDepositLedgerEntry(bookingID, action, amount, reason)
	if err != nil {
		return err
	}
	if err := s.ledgerRepo.Append(ctx, entry); err != nil {
		return fmt.Errorf("failed to append deposit ledger entry: %w", err)
	}
	return nil
}

// notify is fire-and-forget: delivery failure never fails the job.
func (s *JobService) notify(ctx context.Context, b *booking.Booking, template string, job *payment.DepositJob) {
	err := s.dispatcher.Send(ctx, notification.Notification{
		BookingID:      b.ID,
		Channel:        notification.ChannelEmail,
		TemplateType:   template,
		Recipient:      b.CustomerEmail,
		IdempotencyKey: fmt.Sprintf("deposit-job:%s", job.ID),
		Params: map[string]string{
			"booking_number": b.BookingNumber,
			"amount":         job.Amount.String(),
		},
	})
	if err != nil {
		s.logger.Warn("Failed to dispatch deposit notification",
			zap.String("booking_id", b.ID.String()),
			zap.String("template", template),
			zap.Error(err))
	}
}

// auditJob is fire-and-forget like notifications
func (s *JobService) auditJob(ctx context.Context, job *payment.DepositJob, b *booking.Booking, action string, amount valueobject.Money) {
	detail, _ := json.Marshal(map[string]interface{}{
		"job_id":       job.ID.String(),
		"job_type":     string(job.Type),
		"amount_cents": amount.Cents(),
		"attempts":     job.Attempts,
	})
	entry := audit.NewEntry("deposit-job-processor", action, "booking", b.ID, string(detail))
	if err := s.auditRepo.Append(ctx, entry); err != nil {
		s.logger.Warn("Failed to append audit entry",
			zap.String("booking_id", b.ID.String()),
			zap.String("action", action),
			zap.Error(err))
	}
}
