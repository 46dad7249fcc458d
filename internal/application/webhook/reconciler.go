package webhook

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/webhook"
	"go.uber.org/zap"

	"github.com/fleetrent/backend/internal/domain/booking"
	"github.com/fleetrent/backend/internal/domain/notification"
	"github.com/fleetrent/backend/internal/domain/payment"
	"github.com/fleetrent/backend/internal/domain/shared"
	"github.com/fleetrent/backend/internal/domain/shared/valueobject"
	"github.com/fleetrent/backend/internal/infrastructure/billing"
)

// dedupTTL is how long event ids stay in the fast-path cache. The database
// record is the durable guard; the cache only short-circuits hot replays.
const dedupTTL = 24 * time.Hour

// Reconciler consumes asynchronous provider events and applies exactly one
// business-logic branch per event type. The dedup insert runs before any
// business effect: the first writer of an event id wins across concurrent
// deliveries, later writers observe duplicate=true and do nothing.
type Reconciler struct {
	config      *billing.StripeConfig
	bookingRepo booking.Repository
	paymentRepo payment.Repository
	ledgerRepo  payment.LedgerRepository
	eventRepo   payment.WebhookEventRepository
	idempotency shared.IdempotencyStore
	gateway     payment.Gateway
	dispatcher  notification.Dispatcher
	logger      *zap.Logger
}

// ReconcilerConfig contains configuration for Reconciler
type ReconcilerConfig struct {
	Config      *billing.StripeConfig
	BookingRepo booking.Repository
	PaymentRepo payment.Repository
	LedgerRepo  payment.LedgerRepository
	EventRepo   payment.WebhookEventRepository
	Idempotency shared.IdempotencyStore
	Gateway     payment.Gateway
	Dispatcher  notification.Dispatcher
	Logger      *zap.Logger
}

// NewReconciler creates a new webhook Reconciler
func NewReconciler(cfg ReconcilerConfig) *Reconciler {
	return &Reconciler{
		config:      cfg.Config,
		bookingRepo: cfg.BookingRepo,
		paymentRepo: cfg.PaymentRepo,
		ledgerRepo:  cfg.LedgerRepo,
		eventRepo:   cfg.EventRepo,
		idempotency: cfg.Idempotency,
		gateway:     cfg.Gateway,
		dispatcher:  cfg.Dispatcher,
		logger:      cfg.Logger,
	}
}

// Result is the structured outcome of one webhook delivery. It is returned
// to the HTTP layer and persisted onto the event record.
type Result struct {
	EventID   string `json:"event_id"`
	EventType string `json:"event_type"`
	Duplicate bool   `json:"duplicate"`
	Processed bool   `json:"processed"`
	BookingID string `json:"booking_id,omitempty"`
	Message   string `json:"message,omitempty"`
}

// ErrSignatureVerification wraps a failed signature check so the HTTP layer
// can map it to 401 instead of a generic 500.
var ErrSignatureVerification = shared.NewDomainError("WEBHOOK_SIGNATURE_INVALID", "Webhook signature verification failed")

// ProcessWebhook verifies, deduplicates and applies one provider event.
// Errors returned before the dedup record exists leave no trace, so the
// provider's retry redelivers the event and it is reprocessed from scratch.
func (r *Reconciler) ProcessWebhook(ctx context.Context, payload []byte, signature string) (*Result, error) {
	event, err := webhook.ConstructEvent(payload, signature, r.config.WebhookSecret)
	if err != nil {
		r.logger.Warn("Webhook signature verification failed", zap.Error(err))
		return nil, ErrSignatureVerification
	}

	result := &Result{
		EventID:   event.ID,
		EventType: string(event.Type),
	}

	// Fast path: hot replays never reach the database.
	if seen, err := r.idempotency.IsProcessed(ctx, event.ID); err == nil && seen {
		result.Duplicate = true
		return result, nil
	}

	record, err := payment.NewWebhookEventRecord(event.ID, string(event.Type))
	if err != nil {
		return nil, err
	}
	inserted, err := r.eventRepo.Record(ctx, record)
	if err != nil {
		return nil, fmt.Errorf("failed to record webhook event: %w", err)
	}
	if !inserted {
		result.Duplicate = true
		return result, nil
	}

	if _, err := r.idempotency.MarkProcessed(ctx, event.ID, dedupTTL); err != nil {
		r.logger.Warn("Failed to mark event in idempotency cache",
			zap.String("event_id", event.ID),
			zap.Error(err))
	}

	r.logger.Info("Processing webhook event",
		zap.String("event_id", event.ID),
		zap.String("event_type", string(event.Type)))

	r.applyEvent(ctx, event, result)
	r.persistResult(ctx, result)
	return result, nil
}

// applyEvent dispatches to the branch for the event type. Failures after the
// dedup insert are recorded on the result, not returned: the event is claimed
// and the provider must not retry it.
func (r *Reconciler) applyEvent(ctx context.Context, event stripe.Event, result *Result) {
	var err error
	switch event.Type {
	case "checkout.session.completed":
		err = r.handleSessionCompleted(ctx, event, result)
	case "payment_intent.succeeded":
		err = r.handlePaymentSucceeded(ctx, event, result)
	case "payment_intent.payment_failed":
		err = r.handlePaymentFailed(ctx, event, result)
	case "payment_intent.amount_capturable_updated":
		err = r.handleAmountCapturableUpdated(ctx, event, result)
	case "payment_intent.canceled":
		err = r.handleIntentCanceled(ctx, event, result)
	case "charge.captured":
		err = r.handleChargeCaptured(ctx, event, result)
	case "charge.refunded":
		err = r.handleChargeRefunded(ctx, event, result)
	default:
		r.logger.Debug("Unhandled webhook event type",
			zap.String("event_type", string(event.Type)))
		result.Processed = false
		result.Message = "event type not handled"
		return
	}

	if err != nil {
		r.logger.Error("Failed to process webhook event",
			zap.String("event_id", event.ID),
			zap.String("event_type", string(event.Type)),
			zap.Error(err))
		result.Processed = false
		result.Message = err.Error()
		return
	}
	result.Processed = true
}

func (r *Reconciler) persistResult(ctx context.Context, result *Result) {
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return
	}
	if err := r.eventRepo.SaveResult(ctx, result.EventID, string(resultJSON)); err != nil {
		r.logger.Warn("Failed to persist webhook result",
			zap.String("event_id", result.EventID),
			zap.Error(err))
	}
}

// resolveBooking finds the booking for an event: metadata booking_id first,
// then the intent id on bookings, then the intent id on payment rows.
func (r *Reconciler) resolveBooking(ctx context.Context, metadata map[string]string, intentID string) (*booking.Booking, error) {
	if raw, ok := metadata["booking_id"]; ok && raw != "" {
		id, err := uuid.Parse(raw)
		if err == nil {
			b, err := r.bookingRepo.FindByID(ctx, id)
			if err != nil {
				return nil, err
			}
			if b != nil {
				return b, nil
			}
		}
	}

	if intentID == "" {
		return nil, nil
	}

	b, err := r.bookingRepo.FindByPaymentIntentID(ctx, intentID)
	if err != nil {
		return nil, err
	}
	if b != nil {
		return b, nil
	}

	bookingID, err := r.paymentRepo.FindBookingIDByIntentID(ctx, intentID)
	if err != nil {
		return nil, err
	}
	if bookingID == uuid.Nil {
		return nil, nil
	}
	return r.bookingRepo.FindByID(ctx, bookingID)
}

func (r *Reconciler) handleSessionCompleted(ctx context.Context, event stripe.Event, result *Result) error {
	var session stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
		return fmt.Errorf("failed to unmarshal checkout session: %w", err)
	}

	intentID := ""
	if session.PaymentIntent != nil {
		intentID = session.PaymentIntent.ID
	}

	b, err := r.resolveBooking(ctx, session.Metadata, intentID)
	if err != nil {
		return err
	}
	if b == nil {
		// Events can reference bookings outside this system; acknowledge
		// so the provider stops retrying.
		r.logger.Warn("No booking found for checkout session",
			zap.String("session_id", session.ID))
		result.Message = "booking not found"
		return nil
	}
	result.BookingID = b.ID.String()

	if booking.SessionType(session.Metadata["session_type"]) == booking.SessionPaymentRequest {
		// Ad-hoc payment requests settle an outstanding alert; they never
		// move the booking through the reservation lifecycle.
		b.AppendNote(fmt.Sprintf("payment request %s settled", session.ID))
		b.IncrementVersion()
		if err := r.bookingRepo.SaveWithLock(ctx, b); err != nil {
			return fmt.Errorf("failed to save booking: %w", err)
		}
		result.Message = "payment request resolved"
		return nil
	}

	txnID := r.transactionIDForIntent(ctx, intentID)
	if txnID == "" {
		txnID = session.ID
	}

	inserted, err := r.insertRentalPayment(ctx, b, txnID, intentID, session.AmountTotal, string(session.Currency))
	if err != nil {
		return err
	}
	if !inserted {
		result.Message = "payment already recorded"
		return nil
	}

	if err := b.Confirm(); err != nil {
		return err
	}
	b.IncrementVersion()
	if err := r.bookingRepo.SaveWithLock(ctx, b); err != nil {
		return fmt.Errorf("failed to save booking: %w", err)
	}
	r.publishBookingEvents(ctx, b)
	result.Message = "booking confirmed"
	return nil
}

func (r *Reconciler) handlePaymentSucceeded(ctx context.Context, event stripe.Event, result *Result) error {
	var intent stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
		return fmt.Errorf("failed to unmarshal payment intent: %w", err)
	}

	b, err := r.resolveBooking(ctx, intent.Metadata, intent.ID)
	if err != nil {
		return err
	}
	if b == nil {
		result.Message = "booking not found"
		return nil
	}
	result.BookingID = b.ID.String()

	// The session-completed path usually lands first; a succeeded event for
	// an already-confirmed booking is a replay of the same settlement.
	if b.Status == booking.StatusConfirmed {
		result.Message = "booking already confirmed"
		return nil
	}

	txnID := intent.ID
	if intent.LatestCharge != nil && intent.LatestCharge.ID != "" {
		txnID = intent.LatestCharge.ID
	}

	amountCents := intent.AmountReceived
	if amountCents == 0 {
		amountCents = intent.Amount
	}

	inserted, err := r.insertRentalPayment(ctx, b, txnID, intent.ID, amountCents, string(intent.Currency))
	if err != nil {
		return err
	}
	if !inserted {
		result.Message = "payment already recorded"
		return nil
	}

	if err := b.Confirm(); err != nil {
		return err
	}
	b.IncrementVersion()
	if err := r.bookingRepo.SaveWithLock(ctx, b); err != nil {
		return fmt.Errorf("failed to save booking: %w", err)
	}
	r.publishBookingEvents(ctx, b)
	result.Message = "booking confirmed"
	return nil
}

func (r *Reconciler) handlePaymentFailed(ctx context.Context, event stripe.Event, result *Result) error {
	var intent stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
		return fmt.Errorf("failed to unmarshal payment intent: %w", err)
	}

	b, err := r.resolveBooking(ctx, intent.Metadata, intent.ID)
	if err != nil {
		return err
	}
	if b == nil {
		result.Message = "booking not found"
		return nil
	}
	result.BookingID = b.ID.String()

	failureReason := "payment failed"
	if intent.LastPaymentError != nil && intent.LastPaymentError.Msg != "" {
		failureReason = fmt.Sprintf("payment failed: %s", intent.LastPaymentError.Msg)
	}

	number, err := r.paymentRepo.GeneratePaymentNumber(ctx)
	if err != nil {
		return fmt.Errorf("failed to generate payment number: %w", err)
	}
	failedPayment, err := payment.NewPayment(payment.NewPaymentInput{
		BookingID:        b.ID,
		PaymentNumber:    number,
		Amount:           valueobject.NewMoneyFromCents(intent.Amount, currencyOrDefault(string(intent.Currency))),
		Type:             payment.TypeRental,
		Status:           payment.StatusFailed,
		ProviderIntentID: intent.ID,
		Method:           "card",
		Note:             failureReason,
	})
	if err != nil {
		return err
	}
	if err := r.paymentRepo.Insert(ctx, failedPayment); err != nil {
		return fmt.Errorf("failed to insert failed payment: %w", err)
	}

	// Draft bookings are pay-now flows; a failed payment must not surface
	// them in operational queues, so status is left untouched.
	b.RecordPaymentFailure(failureReason)
	b.IncrementVersion()
	if err := r.bookingRepo.SaveWithLock(ctx, b); err != nil {
		return fmt.Errorf("failed to save booking: %w", err)
	}

	r.notify(ctx, b, notification.TemplatePaymentFailed, event.ID)
	result.Message = "payment failure recorded"
	return nil
}

func (r *Reconciler) handleAmountCapturableUpdated(ctx context.Context, event stripe.Event, result *Result) error {
	var intent stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
		return fmt.Errorf("failed to unmarshal payment intent: %w", err)
	}

	b, err := r.resolveBooking(ctx, intent.Metadata, intent.ID)
	if err != nil {
		return err
	}
	if b == nil {
		result.Message = "booking not found"
		return nil
	}
	result.BookingID = b.ID.String()

	paymentMethodID := ""
	if intent.PaymentMethod != nil {
		paymentMethodID = intent.PaymentMethod.ID
	}

	cardBrand, cardLast4 := "", ""
	if paymentMethodID != "" {
		if card, err := r.gateway.GetPaymentMethodCard(ctx, paymentMethodID); err != nil {
			r.logger.Warn("Failed to fetch card details for deposit hold",
				zap.String("payment_method_id", paymentMethodID),
				zap.Error(err))
		} else {
			cardBrand, cardLast4 = card.Brand, card.Last4
		}
	}

	expiresAt := time.Now().Add(booking.HoldDuration)
	if err := b.AuthorizeDeposit(paymentMethodID, cardBrand, cardLast4, expiresAt); err != nil {
		return err
	}

	// Backup promotion: the client normally promotes after redirect, but the
	// webhook must not depend on the client having come back.
	b.PromoteDraft()

	b.IncrementVersion()
	if err := r.bookingRepo.SaveWithLock(ctx, b); err != nil {
		return fmt.Errorf("failed to save booking: %w", err)
	}

	entry, err := payment.NewDepositLedgerEntry(b.ID, payment.LedgerActionAuthorize,
		valueobject.NewMoneyFromCents(intent.AmountCapturable, currencyOrDefault(string(intent.Currency))),
		"deposit authorization confirmed")
	if err != nil {
		return err
	}
	if err := r.ledgerRepo.Append(ctx, entry); err != nil {
		return fmt.Errorf("failed to append deposit ledger entry: %w", err)
	}

	r.publishBookingEvents(ctx, b)
	result.Message = "deposit authorized"
	return nil
}

func (r *Reconciler) handleIntentCanceled(ctx context.Context, event stripe.Event, result *Result) error {
	var intent stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
		return fmt.Errorf("failed to unmarshal payment intent: %w", err)
	}

	b, err := r.resolveBooking(ctx, intent.Metadata, intent.ID)
	if err != nil {
		return err
	}
	if b == nil {
		result.Message = "booking not found"
		return nil
	}
	result.BookingID = b.ID.String()

	if intent.ID != b.DepositIntentID {
		b.AppendNote(fmt.Sprintf("payment intent %s canceled", intent.ID))
		b.IncrementVersion()
		if err := r.bookingRepo.SaveWithLock(ctx, b); err != nil {
			return fmt.Errorf("failed to save booking: %w", err)
		}
		result.Message = "cancellation noted"
		return nil
	}

	// The provider's automatic cancellation fires when the 7-day hold
	// ceiling elapses; anything else was an explicit cancel.
	automatic := intent.CancellationReason == stripe.PaymentIntentCancellationReasonAutomatic
	if err := b.ReleaseDeposit(automatic); err != nil {
		return err
	}
	b.IncrementVersion()
	if err := r.bookingRepo.SaveWithLock(ctx, b); err != nil {
		return fmt.Errorf("failed to save booking: %w", err)
	}

	entry, err := payment.NewDepositLedgerEntry(b.ID, payment.LedgerActionRelease, b.DepositAmount, "deposit hold released")
	if err != nil {
		return err
	}
	if err := r.ledgerRepo.Append(ctx, entry); err != nil {
		return fmt.Errorf("failed to append deposit ledger entry: %w", err)
	}

	r.publishBookingEvents(ctx, b)
	result.Message = "deposit hold released"
	return nil
}

func (r *Reconciler) handleChargeCaptured(ctx context.Context, event stripe.Event, result *Result) error {
	var charge stripe.Charge
	if err := json.Unmarshal(event.Data.Raw, &charge); err != nil {
		return fmt.Errorf("failed to unmarshal charge: %w", err)
	}

	intentID := ""
	if charge.PaymentIntent != nil {
		intentID = charge.PaymentIntent.ID
	}

	b, err := r.resolveBooking(ctx, charge.Metadata, intentID)
	if err != nil {
		return err
	}
	if b == nil {
		result.Message = "booking not found"
		return nil
	}
	result.BookingID = b.ID.String()

	if !b.RecordDepositCapture(charge.ID) {
		result.Message = "charge already recorded"
		return nil
	}
	b.IncrementVersion()
	if err := r.bookingRepo.SaveWithLock(ctx, b); err != nil {
		return fmt.Errorf("failed to save booking: %w", err)
	}
	result.Message = "capture recorded"
	return nil
}

func (r *Reconciler) handleChargeRefunded(ctx context.Context, event stripe.Event, result *Result) error {
	var charge stripe.Charge
	if err := json.Unmarshal(event.Data.Raw, &charge); err != nil {
		return fmt.Errorf("failed to unmarshal charge: %w", err)
	}

	intentID := ""
	if charge.PaymentIntent != nil {
		intentID = charge.PaymentIntent.ID
	}

	b, err := r.resolveBooking(ctx, charge.Metadata, intentID)
	if err != nil {
		return err
	}
	if b == nil {
		result.Message = "booking not found"
		return nil
	}
	result.BookingID = b.ID.String()

	exists, err := r.paymentRepo.ExistsByTransactionID(ctx, charge.ID, payment.TypeRefund)
	if err != nil {
		return err
	}
	if exists {
		result.Message = "refund already recorded"
		return nil
	}

	number, err := r.paymentRepo.GeneratePaymentNumber(ctx)
	if err != nil {
		return fmt.Errorf("failed to generate payment number: %w", err)
	}
	refund, err := payment.NewPayment(payment.NewPaymentInput{
		BookingID:             b.ID,
		PaymentNumber:         number,
		Amount:                valueobject.NewMoneyFromCents(charge.AmountRefunded, currencyOrDefault(string(charge.Currency))).Negate(),
		Type:                  payment.TypeRefund,
		Status:                payment.StatusCompleted,
		ProviderTransactionID: charge.ID,
		ProviderIntentID:      intentID,
		Method:                "card",
	})
	if err != nil {
		return err
	}
	if err := r.paymentRepo.Insert(ctx, refund); err != nil {
		return fmt.Errorf("failed to insert refund payment: %w", err)
	}
	result.Message = "refund recorded"
	return nil
}

// transactionIDForIntent fetches the settlement charge for a secondary dedup
// guard on payment insertion. Best effort, the event-id guard is primary.
func (r *Reconciler) transactionIDForIntent(ctx context.Context, intentID string) string {
	if intentID == "" {
		return ""
	}
	intent, err := r.gateway.GetPaymentIntent(ctx, intentID)
	if err != nil {
		r.logger.Warn("Failed to fetch intent for transaction id",
			zap.String("intent_id", intentID),
			zap.Error(err))
		return ""
	}
	if intent.LatestChargeID != "" {
		return intent.LatestChargeID
	}

	// Older intents expanded without latest_charge still carry their
	// charges in the charge list.
	charges, err := r.gateway.ListCharges(ctx, intentID)
	if err != nil {
		r.logger.Warn("Failed to list charges for transaction id",
			zap.String("intent_id", intentID),
			zap.Error(err))
		return ""
	}
	for _, c := range charges {
		if c.Captured {
			return c.ChargeID
		}
	}
	if len(charges) > 0 {
		return charges[0].ChargeID
	}
	return ""
}

// insertRentalPayment inserts a completed rental payment row guarded by the
// provider transaction id. Returns false when the row already exists.
func (r *Reconciler) insertRentalPayment(ctx context.Context, b *booking.Booking, txnID, intentID string, amountCents int64, currency string) (bool, error) {
	exists, err := r.paymentRepo.ExistsByTransactionID(ctx, txnID, payment.TypeRental)
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}

	number, err := r.paymentRepo.GeneratePaymentNumber(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to generate payment number: %w", err)
	}
	p, err := payment.NewPayment(payment.NewPaymentInput{
		BookingID:             b.ID,
		PaymentNumber:         number,
		Amount:                valueobject.NewMoneyFromCents(amountCents, currencyOrDefault(currency)),
		Type:                  payment.TypeRental,
		Status:                payment.StatusCompleted,
		ProviderTransactionID: txnID,
		ProviderIntentID:      intentID,
		Method:                "card",
	})
	if err != nil {
		return false, err
	}
	if err := r.paymentRepo.Insert(ctx, p); err != nil {
		return false, fmt.Errorf("failed to insert rental payment: %w", err)
	}
	return true, nil
}

// publishBookingEvents forwards pending aggregate events as notifications.
// Fire-and-forget: delivery failure never fails the reconciliation.
func (r *Reconciler) publishBookingEvents(ctx context.Context, b *booking.Booking) {
	templates := map[string]string{
		booking.EventBookingConfirmed:  notification.TemplateBookingConfirmed,
		booking.EventBookingCancelled:  notification.TemplateBookingCancelled,
		booking.EventBookingCompleted:  notification.TemplateBookingCompleted,
		booking.EventDepositAuthorized: notification.TemplateDepositHeld,
		booking.EventDepositReleased:   notification.TemplateDepositReleased,
	}

	for _, event := range b.GetDomainEvents() {
		template, ok := templates[event.EventType()]
		if !ok {
			continue
		}
		r.notify(ctx, b, template, event.EventID().String())
	}
	b.ClearDomainEvents()
}

func (r *Reconciler) notify(ctx context.Context, b *booking.Booking, template, idempotencyKey string) {
	err := r.dispatcher.Send(ctx, notification.Notification{
		BookingID:      b.ID,
		Channel:        notification.ChannelEmail,
		TemplateType:   template,
		Recipient:      b.CustomerEmail,
		IdempotencyKey: idempotencyKey,
		Params: map[string]string{
			"booking_number": b.BookingNumber,
		},
	})
	if err != nil {
		r.logger.Warn("Failed to dispatch notification",
			zap.String("booking_id", b.ID.String()),
			zap.String("template", template),
			zap.Error(err))
	}
}

func currencyOrDefault(currency string) valueobject.Currency {
	if currency == "" {
		return valueobject.DefaultCurrency
	}
	switch currency {
	case "usd", "USD":
		return valueobject.USD
	case "eur", "EUR":
		return valueobject.EUR
	case "gbp", "GBP":
		return valueobject.GBP
	case "cad", "CAD":
		return valueobject.CAD
	case "aud", "AUD":
		return valueobject.AUD
	}
	return valueobject.DefaultCurrency
}
