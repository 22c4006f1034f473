package payment

import "context"

// GatewayOrder is a payment intent registered with the gateway before the
// payer completes payment.
type GatewayOrder struct {
	ID          string
	AmountMinor int64
	Currency    string
	Receipt     string
}

// GatewayPayment is a captured payment as reported by the gateway.
type GatewayPayment struct {
	ID          string
	OrderID     string
	AmountMinor int64
	Email       string
	Contact     string
	Notes       map[string]string
}

type Gateway interface {
	CreateOrder(ctx context.Context, amountMinor int64, currency, receipt string, notes map[string]string) (*GatewayOrder, error)
	// FetchCapturedPayment returns the captured payment for an order, or nil
	// when the gateway has not captured anything for it yet.
	FetchCapturedPayment(ctx context.Context, orderID string) (*GatewayPayment, error)
}
