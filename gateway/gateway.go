// Package gateway wraps the external payment provider behind a narrow
// capability: create a remote order, fetch a payment by id, and verify
// the HMAC signatures the provider attaches to callbacks and webhooks.
//
// Amounts cross this boundary in minor units (paise); everything above
// it works in whole currency units.
package gateway

import "context"

type OrderRequest struct {
	Amount   int64
	Currency string
	Receipt  string
	Notes    map[string]string
}

type Order struct {
	ID       string
	Amount   int64
	Currency string
	Receipt  string
	Status   string
}

type Payment struct {
	ID       string
	OrderID  string
	Amount   int64
	Currency string
	Status   string
	Method   string
	Email    string
	Contact  string
}

type Client interface {
	CreateOrder(ctx context.Context, req OrderRequest) (Order, error)
	FetchPayment(ctx context.Context, paymentID string) (Payment, error)
}

// MinorUnits converts a whole-unit amount to the provider's minor-unit
// representation. WholeUnits is its inverse; for any non-negative int
// amount, WholeUnits(MinorUnits(amount)) == amount.
func MinorUnits(amount int) int64 {
	return int64(amount) * 100
}

func WholeUnits(minor int64) int {
	return int(minor / 100)
}
