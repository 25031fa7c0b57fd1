package payment

import (
	"context"
)

// Gateway captures a card/UPI charge for a subscription purchase. Amount is in
// integer minor units. Unlike SMS/push, the charge IS the primary effect of
// the operation that invokes it: a failure here aborts the purchase.
type Gateway interface {
	Charge(ctx context.Context, request *ChargeRequest) (*ChargeResult, error)
	Refund(ctx context.Context, transactionID string, amount int64, reason string) (*RefundResult, error)
}

type ChargeRequest struct {
	Amount          int64             `json:"amount"`
	Currency        string            `json:"currency"`
	PaymentMethodID string            `json:"payment_method_id,omitempty"`
	CustomerRef     string            `json:"customer_ref"`
	Description     string            `json:"description"`
	Metadata        map[string]string `json:"metadata,omitempty"`
}

type ChargeResult struct {
	TransactionID string `json:"transaction_id"`
	Status        string `json:"status"`
	Amount        int64  `json:"amount"`
	Currency      string `json:"currency"`
	CreatedAt     int64  `json:"created_at"`
}

type RefundResult struct {
	RefundID  string `json:"refund_id"`
	Status    string `json:"status"`
	Amount    int64  `json:"amount"`
	CreatedAt int64  `json:"created_at"`
}
