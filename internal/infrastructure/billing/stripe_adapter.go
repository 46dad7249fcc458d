package billing

import (
	"context"
	"fmt"

	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/charge"
	"github.com/stripe/stripe-go/v81/customer"
	"github.com/stripe/stripe-go/v81/paymentintent"
	"github.com/stripe/stripe-go/v81/paymentmethod"
	"go.uber.org/zap"

	"github.com/fleetrent/backend/internal/domain/payment"
)

// StripeAdapter implements payment.Gateway against the Stripe API
type StripeAdapter struct {
	config *StripeConfig
	logger *zap.Logger
}

// NewStripeAdapter creates a new Stripe adapter
func NewStripeAdapter(config *StripeConfig, logger *zap.Logger) (*StripeAdapter, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	config.InitStripeClient()

	return &StripeAdapter{
		config: config,
		logger: logger,
	}, nil
}

// UpsertCustomer finds a Stripe customer by email or creates one
func (a *StripeAdapter) UpsertCustomer(ctx context.Context, input payment.UpsertCustomerInput) (*payment.CustomerOutput, error) {
	if input.Email == "" {
		return nil, fmt.Errorf("stripe: customer email is required")
	}

	listParams := &stripe.CustomerListParams{
		Email: stripe.String(input.Email),
	}
	listParams.Limit = stripe.Int64(1)
	listParams.Context = ctx

	iter := customer.List(listParams)
	if iter.Next() {
		existing := iter.Customer()
		a.logger.Debug("Reusing existing Stripe customer",
			zap.String("customer_id", existing.ID),
			zap.String("email", input.Email))
		return &payment.CustomerOutput{
			CustomerID: existing.ID,
			Email:      existing.Email,
		}, nil
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("stripe: failed to look up customer: %w", err)
	}

	params := &stripe.CustomerParams{
		Email: stripe.String(input.Email),
	}
	params.Context = ctx
	if input.Name != "" {
		params.Name = stripe.String(input.Name)
	}

	cust, err := customer.New(params)
	if err != nil {
		a.logger.Error("Failed to create Stripe customer",
			zap.String("email", input.Email),
			zap.Error(err))
		return nil, fmt.Errorf("stripe: failed to create customer: %w", err)
	}

	a.logger.Info("Created Stripe customer",
		zap.String("customer_id", cust.ID),
		zap.String("email", input.Email))

	return &payment.CustomerOutput{
		CustomerID: cust.ID,
		Email:      cust.Email,
	}, nil
}

// CreatePaymentIntent creates a payment or manual-capture authorization intent
func (a *StripeAdapter) CreatePaymentIntent(ctx context.Context, input payment.CreateIntentInput) (*payment.IntentOutput, error) {
	if input.AmountCents <= 0 {
		return nil, fmt.Errorf("stripe: intent amount must be positive")
	}

	currency := input.Currency
	if currency == "" {
		currency = a.config.DefaultCurrency
	}

	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(input.AmountCents),
		Currency: stripe.String(currency),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.Context = ctx
	if input.CustomerID != "" {
		params.Customer = stripe.String(input.CustomerID)
	}
	if input.Description != "" {
		params.Description = stripe.String(input.Description)
	}
	if input.ManualCapture {
		params.CaptureMethod = stripe.String(string(stripe.PaymentIntentCaptureMethodManual))
	}
	if len(input.Metadata) > 0 {
		params.Metadata = input.Metadata
	}
	if input.IdempotencyKey != "" {
		params.SetIdempotencyKey(input.IdempotencyKey)
	}

	intent, err := paymentintent.New(params)
	if err != nil {
		a.logger.Error("Failed to create Stripe payment intent",
			zap.Int64("amount_cents", input.AmountCents),
			zap.Bool("manual_capture", input.ManualCapture),
			zap.Error(err))
		return nil, fmt.Errorf("stripe: failed to create payment intent: %w", err)
	}

	a.logger.Info("Created Stripe payment intent",
		zap.String("intent_id", intent.ID),
		zap.Int64("amount_cents", input.AmountCents),
		zap.Bool("manual_capture", input.ManualCapture))

	return intentOutput(intent), nil
}

// GetPaymentIntent retrieves an existing payment intent
func (a *StripeAdapter) GetPaymentIntent(ctx context.Context, intentID string) (*payment.IntentOutput, error) {
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx

	intent, err := paymentintent.Get(intentID, params)
	if err != nil {
		return nil, fmt.Errorf("stripe: failed to retrieve payment intent %s: %w", intentID, err)
	}
	return intentOutput(intent), nil
}

// CancelPaymentIntent cancels an intent, releasing any held funds
func (a *StripeAdapter) CancelPaymentIntent(ctx context.Context, intentID string) (*payment.IntentOutput, error) {
	params := &stripe.PaymentIntentCancelParams{}
	params.Context = ctx

	intent, err := paymentintent.Cancel(intentID, params)
	if err != nil {
		a.logger.Error("Failed to cancel Stripe payment intent",
			zap.String("intent_id", intentID),
			zap.Error(err))
		return nil, fmt.Errorf("stripe: failed to cancel payment intent %s: %w", intentID, err)
	}

	a.logger.Info("Cancelled Stripe payment intent",
		zap.String("intent_id", intentID))

	return intentOutput(intent), nil
}

// GetPaymentMethodCard retrieves card details for a payment method
func (a *StripeAdapter) GetPaymentMethodCard(ctx context.Context, paymentMethodID string) (*payment.CardOutput, error) {
	params := &stripe.PaymentMethodParams{}
	params.Context = ctx

	pm, err := paymentmethod.Get(paymentMethodID, params)
	if err != nil {
		return nil, fmt.Errorf("stripe: failed to retrieve payment method %s: %w", paymentMethodID, err)
	}
	if pm.Card == nil {
		return &payment.CardOutput{}, nil
	}
	return &payment.CardOutput{
		Brand: string(pm.Card.Brand),
		Last4: pm.Card.Last4,
	}, nil
}

// ListCharges lists charges created by an intent
func (a *StripeAdapter) ListCharges(ctx context.Context, intentID string) ([]*payment.ChargeOutput, error) {
	params := &stripe.ChargeListParams{
		PaymentIntent: stripe.String(intentID),
	}
	params.Context = ctx

	var charges []*payment.ChargeOutput
	iter := charge.List(params)
	for iter.Next() {
		ch := iter.Charge()
		charges = append(charges, &payment.ChargeOutput{
			ChargeID:    ch.ID,
			AmountCents: ch.Amount,
			Captured:    ch.Captured,
			Refunded:    ch.Refunded,
		})
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("stripe: failed to list charges for intent %s: %w", intentID, err)
	}
	return charges, nil
}

// intentOutput maps a Stripe payment intent to the gateway output type
func intentOutput(intent *stripe.PaymentIntent) *payment.IntentOutput {
	out := &payment.IntentOutput{
		IntentID:           intent.ID,
		ClientSecret:       intent.ClientSecret,
		Status:             string(intent.Status),
		AmountCents:        intent.Amount,
		Currency:           string(intent.Currency),
		CancellationReason: string(intent.CancellationReason),
	}
	if intent.PaymentMethod != nil {
		out.PaymentMethodID = intent.PaymentMethod.ID
	}
	if intent.LatestCharge != nil {
		out.LatestChargeID = intent.LatestCharge.ID
	}
	return out
}

var _ payment.Gateway = (*StripeAdapter)(nil)
