package payment

import (
	"context"
	"fmt"

	"github.com/razorpay/razorpay-go"
)

type RazorpayGateway struct {
	client *razorpay.Client
}

func NewRazorpayGateway(keyID, keySecret string) *RazorpayGateway {
	return &RazorpayGateway{
		client: razorpay.NewClient(keyID, keySecret),
	}
}

func (r *RazorpayGateway) Charge(ctx context.Context, request *ChargeRequest) (*ChargeResult, error) {
	orderData := map[string]interface{}{
		"amount":   request.Amount, // already in paise
		"currency": request.Currency,
		"receipt":  request.CustomerRef,
	}
	if len(request.Metadata) > 0 {
		notes := make(map[string]interface{}, len(request.Metadata))
		for key, value := range request.Metadata {
			notes[key] = value
		}
		orderData["notes"] = notes
	}

	order, err := r.client.Order.Create(orderData, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	// Razorpay authorizes on the frontend; the order is the capture handle.
	return &ChargeResult{
		TransactionID: order["id"].(string),
		Status:        "created",
		Amount:        request.Amount,
		Currency:      request.Currency,
	}, nil
}

func (r *RazorpayGateway) Refund(ctx context.Context, transactionID string, amount int64, reason string) (*RefundResult, error) {
	refundData := map[string]interface{}{
		"amount": amount,
		"notes": map[string]interface{}{
			"reason": reason,
		},
	}

	refund, err := r.client.Payment.Refund(transactionID, int(amount), refundData, map[string]string{})
	if err != nil {
		return nil, fmt.Errorf("failed to create refund: %w", err)
	}

	return &RefundResult{
		RefundID: refund["id"].(string),
		Status:   refund["status"].(string),
		Amount:   amount,
	}, nil
}
