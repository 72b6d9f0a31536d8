package payment

import "time"

type Status string

const (
	Created    Status = "created"
	Authorized Status = "authorized"
	Captured   Status = "captured"
	Failed     Status = "failed"
	Refunded   Status = "refunded"
)

// Payment is the local record of a payment attempt against an order.
// ExternalID (the gateway's payment id) is unique in storage; that
// uniqueness is the primary guard against crediting the same payment
// twice when the client callback races a webhook delivery.
type Payment struct {
	ID         string    `json:"id" db:"payment_id"`
	ExternalID string    `json:"externalPaymentId" db:"external_payment_id"`
	OrderID    string    `json:"orderId" db:"order_id"`
	UserID     string    `json:"userId" db:"user_id"`
	Amount     int       `json:"amount" db:"amount"`
	Currency   string    `json:"currency" db:"currency"`
	Status     Status    `json:"status" db:"status"`
	Method     string    `json:"method" db:"method"`
	Email      string    `json:"email" db:"email"`
	Contact    string    `json:"contact" db:"contact"`
	CreatedAt  time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt  time.Time `json:"updatedAt" db:"updated_at"`
}

type VerifyNew struct {
	ExternalPaymentID string `json:"externalPaymentId" validate:"required"`
	ExternalOrderID   string `json:"externalOrderId" validate:"required"`
	Signature         string `json:"signature" validate:"required"`
}
