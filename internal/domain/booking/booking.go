package booking

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/fleetrent/backend/internal/domain/shared"
	"github.com/fleetrent/backend/internal/domain/shared/valueobject"
)

// Status represents the lifecycle state of a booking
type Status string

const (
	StatusDraft     Status = "draft"
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// IsValid checks if the status is valid
func (s Status) IsValid() bool {
	switch s {
	case StatusDraft, StatusPending, StatusConfirmed, StatusActive, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// IsTerminal reports whether the booking can no longer be voided or closed
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// CanTransitionTo checks if transition to target status is allowed
func (s Status) CanTransitionTo(target Status) bool {
	transitions := map[Status][]Status{
		StatusDraft:     {StatusPending, StatusConfirmed, StatusCancelled},
		StatusPending:   {StatusConfirmed, StatusCancelled},
		StatusConfirmed: {StatusActive, StatusCompleted, StatusCancelled},
		StatusActive:    {StatusCompleted, StatusCancelled},
		StatusCompleted: {},
		StatusCancelled: {},
	}
	for _, allowed := range transitions[s] {
		if allowed == target {
			return true
		}
	}
	return false
}

// DepositStatus represents the authorization-hold state of a booking's deposit
type DepositStatus string

const (
	DepositNone            DepositStatus = "none"
	DepositAuthorizing     DepositStatus = "authorizing"
	DepositRequiresPayment DepositStatus = "requires_payment"
	DepositAuthorized      DepositStatus = "authorized"
	DepositFailed          DepositStatus = "failed"
	DepositExpired         DepositStatus = "expired"
	DepositCanceled        DepositStatus = "canceled"
)

// IsValid checks if the deposit status is valid
func (s DepositStatus) IsValid() bool {
	switch s {
	case DepositNone, DepositAuthorizing, DepositRequiresPayment, DepositAuthorized,
		DepositFailed, DepositExpired, DepositCanceled:
		return true
	}
	return false
}

// CanTransitionTo checks if transition to target deposit status is allowed.
// Failed, expired and canceled holds may be retried with a fresh hold.
func (s DepositStatus) CanTransitionTo(target DepositStatus) bool {
	transitions := map[DepositStatus][]DepositStatus{
		DepositNone:            {DepositAuthorizing},
		DepositAuthorizing:     {DepositRequiresPayment, DepositAuthorized, DepositFailed, DepositCanceled},
		DepositRequiresPayment: {DepositAuthorized, DepositFailed, DepositExpired, DepositCanceled},
		DepositAuthorized:      {DepositExpired, DepositCanceled},
		DepositFailed:          {DepositAuthorizing},
		DepositExpired:         {DepositAuthorizing},
		DepositCanceled:        {DepositAuthorizing},
	}
	for _, allowed := range transitions[s] {
		if allowed == target {
			return true
		}
	}
	return false
}

// SessionType distinguishes standard checkout sessions from ad-hoc payment requests
type SessionType string

const (
	SessionStandard       SessionType = "standard"
	SessionPaymentRequest SessionType = "payment_request"
)

// HoldDuration is the provider's authorization-hold ceiling
const HoldDuration = 7 * 24 * time.Hour

// Booking is the aggregate root for a rental reservation
type Booking struct {
	shared.BaseAggregateRoot
	BookingNumber string
	CustomerID    uuid.UUID
	CustomerEmail string
	CustomerName  string
	VehicleID     *uuid.UUID
	StartDate     time.Time
	EndDate       time.Time
	TotalAmount   valueobject.Money
	Status        Status
	DepositStatus DepositStatus
	SessionType   SessionType

	StripeCustomerID string
	PaymentIntentID  string

	DepositIntentID        string
	DepositPaymentMethodID string
	DepositAmount          valueobject.Money
	DepositCardBrand       string
	DepositCardLast4       string
	DepositExpiresAt       *time.Time
	DepositChargeID        string

	Notes string
}

// NewBookingInput contains input for creating a booking
type NewBookingInput struct {
	BookingNumber string
	CustomerID    uuid.UUID
	CustomerEmail string
	CustomerName  string
	VehicleID     *uuid.UUID
	StartDate     time.Time
	EndDate       time.Time
	TotalAmount   valueobject.Money
	SessionType   SessionType
}

// NewBooking creates a new draft booking
func NewBooking(input NewBookingInput) (*Booking, error) {
	if input.BookingNumber == "" {
		return nil, shared.NewDomainError("INVALID_INPUT", "booking number is required")
	}
	if input.CustomerID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_INPUT", "customer ID is required")
	}
	if input.CustomerEmail == "" {
		return nil, shared.NewDomainError("INVALID_INPUT", "customer email is required")
	}
	if !input.TotalAmount.IsPositive() {
		return nil, shared.NewDomainError("INVALID_INPUT", "total amount must be positive")
	}
	sessionType := input.SessionType
	if sessionType == "" {
		sessionType = SessionStandard
	}

	return &Booking{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		BookingNumber:     input.BookingNumber,
		CustomerID:        input.CustomerID,
		CustomerEmail:     input.CustomerEmail,
		CustomerName:      input.CustomerName,
		VehicleID:         input.VehicleID,
		StartDate:         input.StartDate,
		EndDate:           input.EndDate,
		TotalAmount:       input.TotalAmount,
		Status:            StatusDraft,
		DepositStatus:     DepositNone,
		SessionType:       sessionType,
	}, nil
}

// IsPayable reports whether the booking can still accept rental payments
func (b *Booking) IsPayable() bool {
	return !b.Status.IsTerminal()
}

// transitionStatus applies a guarded booking status change
func (b *Booking) transitionStatus(target Status) error {
	if !b.Status.CanTransitionTo(target) {
		return shared.NewDomainError("INVALID_STATE_TRANSITION",
			fmt.Sprintf("cannot transition booking from %s to %s", b.Status, target))
	}
	b.Status = target
	b.UpdatedAt = time.Now()
	return nil
}

// transitionDeposit applies a guarded deposit status change
func (b *Booking) transitionDeposit(target DepositStatus) error {
	if !b.DepositStatus.CanTransitionTo(target) {
		return shared.NewDomainError("INVALID_STATE_TRANSITION",
			fmt.Sprintf("cannot transition deposit from %s to %s", b.DepositStatus, target))
	}
	b.DepositStatus = target
	b.UpdatedAt = time.Now()
	return nil
}

// BeginDepositHold marks the deposit as authorizing and records the intended amount
func (b *Booking) BeginDepositHold(amount valueobject.Money) error {
	if !amount.IsPositive() {
		return shared.NewDomainError("INVALID_INPUT", "deposit amount must be positive")
	}
	if err := b.transitionDeposit(DepositAuthorizing); err != nil {
		return err
	}
	b.DepositAmount = amount
	return nil
}

// AttachDepositIntent records the provider hold object and its expiry
func (b *Booking) AttachDepositIntent(intentID string, expiresAt time.Time) error {
	if intentID == "" {
		return shared.NewDomainError("INVALID_INPUT", "payment intent ID is required")
	}
	if err := b.transitionDeposit(DepositRequiresPayment); err != nil {
		return err
	}
	b.DepositIntentID = intentID
	b.DepositExpiresAt = &expiresAt
	return nil
}

// AuthorizeDeposit marks the hold as authorized and records the card used
func (b *Booking) AuthorizeDeposit(paymentMethodID, cardBrand, cardLast4 string, expiresAt time.Time) error {
	if err := b.transitionDeposit(DepositAuthorized); err != nil {
		return err
	}
	b.DepositPaymentMethodID = paymentMethodID
	b.DepositCardBrand = cardBrand
	b.DepositCardLast4 = cardLast4
	b.DepositExpiresAt = &expiresAt
	b.AddDomainEvent(NewDepositAuthorizedEvent(b))
	return nil
}

// FailDeposit marks the deposit hold as failed with a reason note
func (b *Booking) FailDeposit(reason string) {
	// Hold setup can fail from several intermediate states; force the
	// terminal failed state rather than guard it, so cleanup always lands.
	if b.DepositStatus == DepositAuthorizing || b.DepositStatus == DepositRequiresPayment {
		b.DepositStatus = DepositFailed
	}
	if reason != "" {
		b.AppendNote(reason)
	}
	b.UpdatedAt = time.Now()
}

// ReleaseDeposit releases the hold. An automatic cancellation (the provider's
// 7-day ceiling elapsed) lands on expired, a manual one on canceled.
func (b *Booking) ReleaseDeposit(automatic bool) error {
	target := DepositCanceled
	if automatic {
		target = DepositExpired
	}
	if err := b.transitionDeposit(target); err != nil {
		return err
	}
	b.AddDomainEvent(NewDepositReleasedEvent(b, automatic))
	return nil
}

// RecordDepositCapture stores the settlement charge id once
func (b *Booking) RecordDepositCapture(chargeID string) bool {
	if b.DepositChargeID != "" || chargeID == "" {
		return false
	}
	b.DepositChargeID = chargeID
	b.UpdatedAt = time.Now()
	return true
}

// AttachPaymentIntent records the rental payment intent on the booking
func (b *Booking) AttachPaymentIntent(intentID string) {
	b.PaymentIntentID = intentID
	b.UpdatedAt = time.Now()
}

// AttachStripeCustomer records the provider customer id
func (b *Booking) AttachStripeCustomer(customerID string) {
	b.StripeCustomerID = customerID
	b.UpdatedAt = time.Now()
}

// Confirm promotes the booking after a successful rental payment.
// Already-confirmed bookings no-op so replayed provider events stay harmless.
func (b *Booking) Confirm() error {
	if b.Status == StatusConfirmed {
		return nil
	}
	if err := b.transitionStatus(StatusConfirmed); err != nil {
		return err
	}
	b.AddDomainEvent(NewBookingConfirmedEvent(b))
	return nil
}

// PromoteDraft moves a draft booking into the operational pending queue
func (b *Booking) PromoteDraft() bool {
	if b.Status != StatusDraft {
		return false
	}
	b.Status = StatusPending
	b.UpdatedAt = time.Now()
	return true
}

// RecordPaymentFailure annotates the booking after a failed provider payment.
// Draft bookings are pay-now flows and must stay hidden from operational
// queues, so status is never promoted here.
func (b *Booking) RecordPaymentFailure(note string) {
	if note != "" {
		b.AppendNote(note)
	}
	if b.DepositStatus == DepositAuthorizing || b.DepositStatus == DepositRequiresPayment {
		b.DepositStatus = DepositFailed
	}
	b.UpdatedAt = time.Now()
}

// Void cancels the booking. Terminal states reject the transition.
func (b *Booking) Void() error {
	if b.Status.IsTerminal() {
		return shared.NewDomainError("INVALID_STATE_TRANSITION",
			fmt.Sprintf("cannot void booking in status %s", b.Status))
	}
	if err := b.transitionStatus(StatusCancelled); err != nil {
		return err
	}
	b.AddDomainEvent(NewBookingCancelledEvent(b))
	return nil
}

// CloseAccount completes the booking's rental account.
// Terminal states reject the transition.
func (b *Booking) CloseAccount() error {
	if b.Status.IsTerminal() {
		return shared.NewDomainError("INVALID_STATE_TRANSITION",
			fmt.Sprintf("cannot close account for booking in status %s", b.Status))
	}
	if err := b.transitionStatus(StatusCompleted); err != nil {
		return err
	}
	b.AddDomainEvent(NewBookingCompletedEvent(b))
	return nil
}

// HasLiveDepositHold reports whether authorized funds are still held at the provider
func (b *Booking) HasLiveDepositHold() bool {
	return b.DepositStatus == DepositAuthorized && b.DepositIntentID != ""
}

// AppendNote appends a timestamped note to the booking
func (b *Booking) AppendNote(note string) {
	entry := fmt.Sprintf("[%s] %s", time.Now().Format(time.RFC3339), note)
	if b.Notes == "" {
		b.Notes = entry
		return
	}
	b.Notes = strings.Join([]string{b.Notes, entry}, "\n")
}
