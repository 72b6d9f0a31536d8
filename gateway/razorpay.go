package gateway

import (
	"context"
	"fmt"

	razorpay "github.com/razorpay/razorpay-go"
)

// Razorpay implements Client on top of the official SDK. The SDK speaks
// in untyped maps; the conversion to the typed capability lives here and
// nowhere else.
type Razorpay struct {
	cl *razorpay.Client
}

func NewRazorpay(key string, secret string) *Razorpay {
	return &Razorpay{cl: razorpay.NewClient(key, secret)}
}

func (rz *Razorpay) CreateOrder(ctx context.Context, req OrderRequest) (Order, error) {
	notes := make(map[string]interface{}, len(req.Notes))
	for k, v := range req.Notes {
		notes[k] = v
	}

	data := map[string]interface{}{
		"amount":   req.Amount,
		"currency": req.Currency,
		"receipt":  req.Receipt,
		"notes":    notes,
	}

	body, err := rz.cl.Order.Create(data, nil)
	if err != nil {
		return Order{}, fmt.Errorf("creating razorpay order: %w", err)
	}

	ord := Order{
		ID:       str(body["id"]),
		Amount:   num(body["amount"]),
		Currency: str(body["currency"]),
		Receipt:  str(body["receipt"]),
		Status:   str(body["status"]),
	}

	if ord.ID == "" {
		return Order{}, fmt.Errorf("razorpay order response carries no id: %v", body)
	}

	return ord, nil
}

func (rz *Razorpay) FetchPayment(ctx context.Context, paymentID string) (Payment, error) {
	body, err := rz.cl.Payment.Fetch(paymentID, nil, nil)
	if err != nil {
		return Payment{}, fmt.Errorf("fetching razorpay payment[%s]: %w", paymentID, err)
	}

	pay := Payment{
		ID:       str(body["id"]),
		OrderID:  str(body["order_id"]),
		Amount:   num(body["amount"]),
		Currency: str(body["currency"]),
		Status:   str(body["status"]),
		Method:   str(body["method"]),
		Email:    str(body["email"]),
		Contact:  str(body["contact"]),
	}

	if pay.ID == "" {
		return Payment{}, fmt.Errorf("razorpay payment response carries no id: %v", body)
	}

	return pay, nil
}

func str(v interface{}) string {
	s, _ := v.(string)
	return s
}

// num tolerates the types the SDK's json decoding may hand back for an
// integer amount.
func num(v interface{}) int64 {
	switch n := v.(type) {
	case float64:
		return int64(n)
	case int64:
		return n
	case int:
		return int64(n)
	}
	return 0
}
