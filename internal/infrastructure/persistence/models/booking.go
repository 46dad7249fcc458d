package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/fleetrent/backend/internal/domain/booking"
	"github.com/fleetrent/backend/internal/domain/shared"
	"github.com/fleetrent/backend/internal/domain/shared/valueobject"
)

// BookingModel is the persistence model for the Booking aggregate root.
type BookingModel struct {
	AggregateModel
	BookingNumber string                `gorm:"type:varchar(50);not null;uniqueIndex"`
	CustomerID    uuid.UUID             `gorm:"type:uuid;not null;index"`
	CustomerEmail string                `gorm:"type:varchar(255);not null;index"`
	CustomerName  string                `gorm:"type:varchar(200)"`
	VehicleID     *uuid.UUID            `gorm:"type:uuid;index"`
	StartDate     time.Time             `gorm:"not null"`
	EndDate       time.Time             `gorm:"not null"`
	TotalAmount   decimal.Decimal       `gorm:"type:decimal(18,4);not null"`
	Currency      string                `gorm:"type:varchar(3);not null;default:'USD'"`
	Status        booking.Status        `gorm:"type:varchar(20);not null;default:'draft';index"`
	DepositStatus booking.DepositStatus `gorm:"type:varchar(20);not null;default:'none';index"`
	SessionType   booking.SessionType   `gorm:"type:varchar(20);not null;default:'standard'"`

	StripeCustomerID string `gorm:"type:varchar(100);index"`
	PaymentIntentID  string `gorm:"type:varchar(100);index"`

	DepositIntentID        string          `gorm:"type:varchar(100);index"`
	DepositPaymentMethodID string          `gorm:"type:varchar(100)"`
	DepositAmount          decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	DepositCardBrand       string          `gorm:"type:varchar(20)"`
	DepositCardLast4       string          `gorm:"type:varchar(4)"`
	DepositExpiresAt       *time.Time      `gorm:"index"`
	DepositChargeID        string          `gorm:"type:varchar(100)"`

	Notes string `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (BookingModel) TableName() string {
	return "bookings"
}

// ToDomain converts the persistence model to a domain Booking aggregate.
func (m *BookingModel) ToDomain() *booking.Booking {
	currency := valueobject.Currency(m.Currency)
	if currency == "" {
		currency = valueobject.DefaultCurrency
	}
	totalAmount, _ := valueobject.NewMoney(m.TotalAmount, currency)
	depositAmount, _ := valueobject.NewMoney(m.DepositAmount, currency)

	return &booking.Booking{
		BaseAggregateRoot: shared.BaseAggregateRoot{
			BaseEntity: shared.BaseEntity{
				ID:        m.ID,
				CreatedAt: m.CreatedAt,
				UpdatedAt: m.UpdatedAt,
			},
			Version: m.Version,
		},
		BookingNumber:          m.BookingNumber,
		CustomerID:             m.CustomerID,
		CustomerEmail:          m.CustomerEmail,
		CustomerName:           m.CustomerName,
		VehicleID:              m.VehicleID,
		StartDate:              m.StartDate,
		EndDate:                m.EndDate,
		TotalAmount:            totalAmount,
		Status:                 m.Status,
		DepositStatus:          m.DepositStatus,
		SessionType:            m.SessionType,
		StripeCustomerID:       m.StripeCustomerID,
		PaymentIntentID:        m.PaymentIntentID,
		DepositIntentID:        m.DepositIntentID,
		DepositPaymentMethodID: m.DepositPaymentMethodID,
		DepositAmount:          depositAmount,
		DepositCardBrand:       m.DepositCardBrand,
		DepositCardLast4:       m.DepositCardLast4,
		DepositExpiresAt:       m.DepositExpiresAt,
		DepositChargeID:        m.DepositChargeID,
		Notes:                  m.Notes,
	}
}

// FromDomain populates the persistence model from a domain Booking aggregate.
func (m *BookingModel) FromDomain(b *booking.Booking) {
	m.FromDomainAggregateRoot(b.BaseAggregateRoot)
	m.BookingNumber = b.BookingNumber
	m.CustomerID = b.CustomerID
	m.CustomerEmail = b.CustomerEmail
	m.CustomerName = b.CustomerName
	m.VehicleID = b.VehicleID
	m.StartDate = b.StartDate
	m.EndDate = b.EndDate
	m.TotalAmount = b.TotalAmount.Amount()
	m.Currency = string(b.TotalAmount.Currency())
	m.Status = b.Status
	m.DepositStatus = b.DepositStatus
	m.SessionType = b.SessionType
	m.StripeCustomerID = b.StripeCustomerID
	m.PaymentIntentID = b.PaymentIntentID
	m.DepositIntentID = b.DepositIntentID
	m.DepositPaymentMethodID = b.DepositPaymentMethodID
	m.DepositAmount = b.DepositAmount.Amount()
	m.DepositCardBrand = b.DepositCardBrand
	m.DepositCardLast4 = b.DepositCardLast4
	m.DepositExpiresAt = b.DepositExpiresAt
	m.DepositChargeID = b.DepositChargeID
	m.Notes = b.Notes
}
