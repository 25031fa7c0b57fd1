package payment

import (
	"context"
	"fmt"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
)

type StripeGateway struct {
	client        *client.API
	webhookSecret string
}

func NewStripeGateway(secretKey, webhookSecret string) *StripeGateway {
	sc := &client.API{}
	sc.Init(secretKey, nil)

	return &StripeGateway{
		client:        sc,
		webhookSecret: webhookSecret,
	}
}

func (s *StripeGateway) Charge(ctx context.Context, request *ChargeRequest) (*ChargeResult, error) {
	params := &stripe.PaymentIntentParams{
		Amount:             stripe.Int64(request.Amount),
		Currency:           stripe.String(request.Currency),
		Description:        stripe.String(request.Description),
		ConfirmationMethod: stripe.String("manual"),
		Confirm:            stripe.Bool(true),
	}
	if request.PaymentMethodID != "" {
		params.PaymentMethod = stripe.String(request.PaymentMethodID)
	}
	for key, value := range request.Metadata {
		params.AddMetadata(key, value)
	}

	pi, err := s.client.PaymentIntents.New(params)
	if err != nil {
		return nil, fmt.Errorf("failed to create payment intent: %w", err)
	}

	return &ChargeResult{
		TransactionID: pi.ID,
		Status:        string(pi.Status),
		Amount:        pi.Amount,
		Currency:      string(pi.Currency),
		CreatedAt:     pi.Created,
	}, nil
}

func (s *StripeGateway) Refund(ctx context.Context, transactionID string, amount int64, reason string) (*RefundResult, error) {
	params := &stripe.RefundParams{
		PaymentIntent: stripe.String(transactionID),
		Reason:        stripe.String(reason),
	}
	if amount > 0 {
		params.Amount = stripe.Int64(amount)
	}

	refund, err := s.client.Refunds.New(params)
	if err != nil {
		return nil, fmt.Errorf("failed to create refund: %w", err)
	}

	return &RefundResult{
		RefundID:  refund.ID,
		Status:    string(refund.Status),
		Amount:    refund.Amount,
		CreatedAt: refund.Created,
	}, nil
}
