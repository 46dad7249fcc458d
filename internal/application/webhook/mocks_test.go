package webhook

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/fleetrent/backend/internal/domain/booking"
	"github.com/fleetrent/backend/internal/domain/notification"
	"github.com/fleetrent/backend/internal/domain/payment"
	"github.com/fleetrent/backend/internal/domain/shared/valueobject"
)

// MockBookingRepository is a mock implementation of booking.Repository
type MockBookingRepository struct {
	mock.Mock
}

func (m *MockBookingRepository) FindByID(ctx context.Context, id uuid.UUID) (*booking.Booking, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*booking.Booking), args.Error(1)
}

func (m *MockBookingRepository) FindByPaymentIntentID(ctx context.Context, intentID string) (*booking.Booking, error) {
	args := m.Called(ctx, intentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*booking.Booking), args.Error(1)
}

func (m *MockBookingRepository) Save(ctx context.Context, b *booking.Booking) error {
	args := m.Called(ctx, b)
	return args.Error(0)
}

func (m *MockBookingRepository) SaveWithLock(ctx context.Context, b *booking.Booking) error {
	args := m.Called(ctx, b)
	return args.Error(0)
}

func (m *MockBookingRepository) GenerateBookingNumber(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

// MockPaymentRepository is a mock implementation of payment.Repository
type MockPaymentRepository struct {
	mock.Mock
}

func (m *MockPaymentRepository) FindByID(ctx context.Context, id uuid.UUID) (*payment.Payment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.Payment), args.Error(1)
}

func (m *MockPaymentRepository) FindDepositByBookingID(ctx context.Context, bookingID uuid.UUID) (*payment.Payment, error) {
	args := m.Called(ctx, bookingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.Payment), args.Error(1)
}

func (m *MockPaymentRepository) FindBookingIDByIntentID(ctx context.Context, intentID string) (uuid.UUID, error) {
	args := m.Called(ctx, intentID)
	return args.Get(0).(uuid.UUID), args.Error(1)
}

func (m *MockPaymentRepository) ExistsByTransactionID(ctx context.Context, transactionID string, paymentType payment.Type) (bool, error) {
	args := m.Called(ctx, transactionID, paymentType)
	return args.Bool(0), args.Error(1)
}

func (m *MockPaymentRepository) SumCompletedByType(ctx context.Context, bookingID uuid.UUID, paymentType payment.Type) (valueobject.Money, error) {
	args := m.Called(ctx, bookingID, paymentType)
	return args.Get(0).(valueobject.Money), args.Error(1)
}

func (m *MockPaymentRepository) Insert(ctx context.Context, p *payment.Payment) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

func (m *MockPaymentRepository) Update(ctx context.Context, p *payment.Payment) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

func (m *MockPaymentRepository) GeneratePaymentNumber(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

// MockLedgerRepository is a mock implementation of payment.LedgerRepository
type MockLedgerRepository struct {
	mock.Mock
}

func (m *MockLedgerRepository) Append(ctx context.Context, entry *payment.DepositLedgerEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockLedgerRepository) ListByBookingID(ctx context.Context, bookingID uuid.UUID) ([]*payment.DepositLedgerEntry, error) {
	args := m.Called(ctx, bookingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*payment.DepositLedgerEntry), args.Error(1)
}

func (m *MockLedgerRepository) CountByAction(ctx context.Context, bookingID uuid.UUID, action payment.LedgerAction) (int64, error) {
	args := m.Called(ctx, bookingID, action)
	return args.Get(0).(int64), args.Error(1)
}

// MockWebhookEventRepository is a mock implementation of payment.WebhookEventRepository
type MockWebhookEventRepository struct {
	mock.Mock
}

func (m *MockWebhookEventRepository) Record(ctx context.Context, record *payment.WebhookEventRecord) (bool, error) {
	args := m.Called(ctx, record)
	return args.Bool(0), args.Error(1)
}

func (m *MockWebhookEventRepository) SaveResult(ctx context.Context, eventID, resultJSON string) error {
	args := m.Called(ctx, eventID, resultJSON)
	return args.Error(0)
}

// MockGateway is a mock implementation of payment.Gateway
type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) UpsertCustomer(ctx context.Context, input payment.UpsertCustomerInput) (*payment.CustomerOutput, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.CustomerOutput), args.Error(1)
}

func (m *MockGateway) CreatePaymentIntent(ctx context.Context, input payment.CreateIntentInput) (*payment.IntentOutput, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.IntentOutput), args.Error(1)
}

func (m *MockGateway) GetPaymentIntent(ctx context.Context, intentID string) (*payment.IntentOutput, error) {
	args := m.Called(ctx, intentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.IntentOutput), args.Error(1)
}

func (m *MockGateway) CancelPaymentIntent(ctx context.Context, intentID string) (*payment.IntentOutput, error) {
	args := m.Called(ctx, intentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.IntentOutput), args.Error(1)
}

func (m *MockGateway) GetPaymentMethodCard(ctx context.Context, paymentMethodID string) (*payment.CardOutput, error) {
	args := m.Called(ctx, paymentMethodID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.CardOutput), args.Error(1)
}

func (m *MockGateway) ListCharges(ctx context.Context, intentID string) ([]*payment.ChargeOutput, error) {
	args := m.Called(ctx, intentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*payment.ChargeOutput), args.Error(1)
}

// MockDispatcher is a mock implementation of notification.Dispatcher
type MockDispatcher struct {
	mock.Mock
}

func (m *MockDispatcher) Send(ctx context.Context, n notification.Notification) error {
	args := m.Called(ctx, n)
	return args.Error(0)
}

// newTestBooking builds a draft booking for reconciler tests
func newTestBooking(totalAmount string) *booking.Booking {
	total, _ := valueobject.NewMoneyFromString(totalAmount, valueobject.USD)
	b, _ := booking.NewBooking(booking.NewBookingInput{
		BookingNumber: "BKG-202608-00003",
		CustomerID:    uuid.New(),
		CustomerEmail: "customer@example.com",
		CustomerName:  "Test Customer",
		StartDate:     time.Now().Add(24 * time.Hour),
		EndDate:       time.Now().Add(72 * time.Hour),
		TotalAmount:   total,
	})
	return b
}
