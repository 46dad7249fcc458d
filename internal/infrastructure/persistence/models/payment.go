package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/fleetrent/backend/internal/domain/payment"
	"github.com/fleetrent/backend/internal/domain/shared"
	"github.com/fleetrent/backend/internal/domain/shared/valueobject"
)

// PaymentModel is the persistence model for payment ledger rows.
type PaymentModel struct {
	BaseModel
	BookingID             uuid.UUID       `gorm:"type:uuid;not null;index"`
	PaymentNumber         string          `gorm:"type:varchar(50);not null;uniqueIndex"`
	Amount                decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Currency              string          `gorm:"type:varchar(3);not null;default:'USD'"`
	Type                  payment.Type    `gorm:"type:varchar(20);not null;index"`
	Status                payment.Status  `gorm:"type:varchar(20);not null;index"`
	ProviderTransactionID string          `gorm:"type:varchar(100);index"`
	ProviderIntentID      string          `gorm:"type:varchar(100);index"`
	Method                string          `gorm:"type:varchar(30)"`
	Note                  string          `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (PaymentModel) TableName() string {
	return "payments"
}

// ToDomain converts the persistence model to a domain Payment entity.
func (m *PaymentModel) ToDomain() *payment.Payment {
	currency := valueobject.Currency(m.Currency)
	if currency == "" {
		currency = valueobject.DefaultCurrency
	}
	amount, _ := valueobject.NewMoney(m.Amount, currency)

	return &payment.Payment{
		BaseEntity: shared.BaseEntity{
			ID:        m.ID,
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		BookingID:             m.BookingID,
		PaymentNumber:         m.PaymentNumber,
		Amount:                amount,
		Type:                  m.Type,
		Status:                m.Status,
		ProviderTransactionID: m.ProviderTransactionID,
		ProviderIntentID:      m.ProviderIntentID,
		Method:                m.Method,
		Note:                  m.Note,
	}
}

// FromDomain populates the persistence model from a domain Payment entity.
func (m *PaymentModel) FromDomain(p *payment.Payment) {
	m.FromDomainBaseEntity(p.BaseEntity)
	m.BookingID = p.BookingID
	m.PaymentNumber = p.PaymentNumber
	m.Amount = p.Amount.Amount()
	m.Currency = string(p.Amount.Currency())
	m.Type = p.Type
	m.Status = p.Status
	m.ProviderTransactionID = p.ProviderTransactionID
	m.ProviderIntentID = p.ProviderIntentID
	m.Method = p.Method
	m.Note = p.Note
}

// DepositLedgerModel is the persistence model for deposit ledger entries.
type DepositLedgerModel struct {
	BaseModel
	BookingID uuid.UUID            `gorm:"type:uuid;not null;index"`
	Action    payment.LedgerAction `gorm:"type:varchar(20);not null;index"`
	Amount    decimal.Decimal      `gorm:"type:decimal(18,4);not null"`
	Currency  string               `gorm:"type:varchar(3);not null;default:'USD'"`
	Reason    string               `gorm:"type:varchar(500)"`
}

// TableName returns the table name for GORM
func (DepositLedgerModel) TableName() string {
	return "deposit_ledger"
}

// ToDomain converts the persistence model to a domain DepositLedgerEntry.
func (m *DepositLedgerModel) ToDomain() *payment.DepositLedgerEntry {
	currency := valueobject.Currency(m.Currency)
	if currency == "" {
		currency = valueobject.DefaultCurrency
	}
	amount, _ := valueobject.NewMoney(m.Amount, currency)

	return &payment.DepositLedgerEntry{
		BaseEntity: shared.BaseEntity{
			ID:        m.ID,
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		BookingID: m.BookingID,
		Action:    m.Action,
		Amount:    amount,
		Reason:    m.Reason,
	}
}

// FromDomain populates the persistence model from a domain DepositLedgerEntry.
func (m *DepositLedgerModel) FromDomain(e *payment.DepositLedgerEntry) {
	m.FromDomainBaseEntity(e.BaseEntity)
	m.BookingID = e.BookingID
	m.Action = e.Action
	m.Amount = e.Amount.Amount()
	m.Currency = string(e.Amount.Currency())
	m.Reason = e.Reason
}

// DepositJobModel is the persistence model for queued deposit jobs.
type DepositJobModel struct {
	BaseModel
	BookingID   uuid.UUID         `gorm:"type:uuid;not null;index"`
	PaymentID   *uuid.UUID        `gorm:"type:uuid;index"`
	Type        payment.JobType   `gorm:"type:varchar(20);not null"`
	Amount      decimal.Decimal   `gorm:"type:decimal(18,4);not null"`
	Currency    string            `gorm:"type:varchar(3);not null;default:'USD'"`
	Attempts    int               `gorm:"not null;default:0"`
	MaxAttempts int               `gorm:"not null;default:3"`
	Status      payment.JobStatus `gorm:"type:varchar(20);not null;default:'pending';index"`
	LastError   string            `gorm:"type:text"`
	StartedAt   *time.Time        `gorm:"index"`
}

// TableName returns the table name for GORM
func (DepositJobModel) TableName() string {
	return "deposit_jobs"
}

// ToDomain converts the persistence model to a domain DepositJob.
func (m *DepositJobModel) ToDomain() *payment.DepositJob {
	currency := valueobject.Currency(m.Currency)
	if currency == "" {
		currency = valueobject.DefaultCurrency
	}
	amount, _ := valueobject.NewMoney(m.Amount, currency)

	return &payment.DepositJob{
		BaseEntity: shared.BaseEntity{
			ID:        m.ID,
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		BookingID:   m.BookingID,
		PaymentID:   m.PaymentID,
		Type:        m.Type,
		Amount:      amount,
		Attempts:    m.Attempts,
		MaxAttempts: m.MaxAttempts,
		Status:      m.Status,
		LastError:   m.LastError,
		StartedAt:   m.StartedAt,
	}
}

// FromDomain populates the persistence model from a domain DepositJob.
func (m *DepositJobModel) FromDomain(j *payment.DepositJob) {
	m.FromDomainBaseEntity(j.BaseEntity)
	m.BookingID = j.BookingID
	m.PaymentID = j.PaymentID
	m.Type = j.Type
	m.Amount = j.Amount.Amount()
	m.Currency = string(j.Amount.Currency())
	m.Attempts = j.Attempts
	m.MaxAttempts = j.MaxAttempts
	m.Status = j.Status
	m.LastError = j.LastError
	m.StartedAt = j.StartedAt
}

// WebhookEventModel is the persistence model for the webhook dedup table.
// EventID is the primary key so claiming an event is a single conditional
// insert, never a select-then-insert.
type WebhookEventModel struct {
	EventID     string     `gorm:"type:varchar(100);primary_key"`
	EventType   string     `gorm:"type:varchar(100);not null;index"`
	ReceivedAt  time.Time  `gorm:"not null"`
	ProcessedAt *time.Time `gorm:""`
	Result      string     `gorm:"type:jsonb;default:'{}'"`
}

// TableName returns the table name for GORM
func (WebhookEventModel) TableName() string {
	return "stripe_webhook_events"
}

// ToDomain converts the persistence model to a domain WebhookEventRecord.
func (m *WebhookEventModel) ToDomain() *payment.WebhookEventRecord {
	return &payment.WebhookEventRecord{
		EventID:     m.EventID,
		EventType:   m.EventType,
		ReceivedAt:  m.ReceivedAt,
		ProcessedAt: m.ProcessedAt,
		Result:      m.Result,
	}
}

// FromDomain populates the persistence model from a domain WebhookEventRecord.
func (m *WebhookEventModel) FromDomain(r *payment.WebhookEventRecord) {
	m.EventID = r.EventID
	m.EventType = r.EventType
	m.ReceivedAt = r.ReceivedAt
	m.ProcessedAt = r.ProcessedAt
	m.Result = r.Result
	if m.Result == "" {
		m.Result = "{}"
	}
}
