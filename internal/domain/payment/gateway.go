package payment

import (
	"context"
)

// Gateway abstracts the payment provider. The concrete adapter lives in
// infrastructure; services depend on this interface only and never expose
// raw provider objects to callers.
type Gateway interface {
	// UpsertCustomer finds or creates a provider customer keyed by email
	UpsertCustomer(ctx context.Context, input UpsertCustomerInput) (*CustomerOutput, error)

	// CreatePaymentIntent creates a payment or authorization-hold object
	CreatePaymentIntent(ctx context.Context, input CreateIntentInput) (*IntentOutput, error)

	// GetPaymentIntent retrieves an existing intent
	GetPaymentIntent(ctx context.Context, intentID string) (*IntentOutput, error)

	// CancelPaymentIntent cancels an intent, releasing any held funds
	CancelPaymentIntent(ctx context.Context, intentID string) (*IntentOutput, error)

	// GetPaymentMethodCard retrieves card details for a payment method
	GetPaymentMethodCard(ctx context.Context, paymentMethodID string) (*CardOutput, error)

	// ListCharges lists charges created by an intent
	ListCharges(ctx context.Context, intentID string) ([]*ChargeOutput, error)
}

// UpsertCustomerInput contains input for customer upsert
type UpsertCustomerInput struct {
	Email string
	Name  string
}

// CustomerOutput contains the provider customer identity
type CustomerOutput struct {
	CustomerID string
	Email      string
}

// CreateIntentInput contains input for intent creation
type CreateIntentInput struct {
	AmountCents    int64
	Currency       string
	CustomerID     string
	Description    string
	ManualCapture  bool
	IdempotencyKey string
	Metadata       map[string]string
}

// IntentOutput contains the provider intent state surfaced to services
type IntentOutput struct {
	IntentID           string
	ClientSecret       string
	Status             string
	AmountCents        int64
	Currency           string
	PaymentMethodID    string
	LatestChargeID     string
	CancellationReason string
}

// CardOutput contains card details of a payment method
type CardOutput struct {
	Brand string
	Last4 string
}

// ChargeOutput contains charge state surfaced to services
type ChargeOutput struct {
	ChargeID    string
	AmountCents int64
	Captured    bool
	Refunded    bool
}
