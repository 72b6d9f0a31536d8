package order

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

type Status string

const (
	Created Status = "created"
	Paid    Status = "paid"
	Failed  Status = "failed"
)

const (
	CurrencyINR = "INR"
	CurrencyUSD = "USD"
)

// Notes is the free-form key-value metadata attached to an order. It is
// stored as jsonb and forwarded to the gateway on order creation; the
// enrollment granted after capture is resolved from it.
type Notes map[string]string

func (n Notes) Value() (driver.Value, error) {
	if n == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(n)
}

func (n *Notes) Scan(src interface{}) error {
	b, ok := src.([]byte)
	if !ok {
		return errors.New("order notes column is not a byte slice")
	}
	return json.Unmarshal(b, n)
}

// Order amounts are whole currency units; the gateway-facing minor-unit
// representation never reaches storage.
type Order struct {
	ID         string    `json:"id" db:"order_id"`
	ExternalID string    `json:"externalOrderId" db:"external_order_id"`
	UserID     string    `json:"userId" db:"user_id"`
	Amount     int       `json:"amount" db:"amount"`
	Currency   string    `json:"currency" db:"currency"`
	Receipt    string    `json:"receipt" db:"receipt"`
	Notes      Notes     `json:"notes" db:"notes"`
	Status     Status    `json:"status" db:"status"`
	CreatedAt  time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt  time.Time `json:"updatedAt" db:"updated_at"`
}

type OrderNew struct {
	Amount   int               `json:"amount" validate:"required,gt=0"`
	Currency string            `json:"currency" validate:"omitempty,oneof=INR USD"`
	Receipt  string            `json:"receipt"`
	Notes    map[string]string `json:"notes"`
}

type StatusUp struct {
	ExternalID string    `db:"external_order_id"`
	Status     Status    `db:"status"`
	UpdatedAt  time.Time `db:"updated_at"`
}
