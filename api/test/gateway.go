package test

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/irsalhamdi/coursepay/gateway"
	"github.com/irsalhamdi/coursepay/random"
)

// fakeGateway implements gateway.Client in memory. Orders are issued
// with provider-shaped ids; tests register the payments a user would
// have completed in the provider's UI before calling verify.
type fakeGateway struct {
	mu       sync.Mutex
	orders   map[string]gateway.Order
	payments map[string]gateway.Payment
	failNext bool
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		orders:   make(map[string]gateway.Order),
		payments: make(map[string]gateway.Payment),
	}
}

func (fg *fakeGateway) CreateOrder(ctx context.Context, req gateway.OrderRequest) (gateway.Order, error) {
	fg.mu.Lock()
	defer fg.mu.Unlock()

	if fg.failNext {
		fg.failNext = false
		return gateway.Order{}, errors.New("gateway unavailable")
	}

	ord := gateway.Order{
		ID:       "order_" + random.String(14),
		Amount:   req.Amount,
		Currency: req.Currency,
		Receipt:  req.Receipt,
		Status:   "created",
	}
	fg.orders[ord.ID] = ord

	return ord, nil
}

func (fg *fakeGateway) FetchPayment(ctx context.Context, paymentID string) (gateway.Payment, error) {
	fg.mu.Lock()
	defer fg.mu.Unlock()

	pay, ok := fg.payments[paymentID]
	if !ok {
		return gateway.Payment{}, fmt.Errorf("payment %s does not exist", paymentID)
	}

	return pay, nil
}

// FailNextOrder makes the next CreateOrder call fail once.
func (fg *fakeGateway) FailNextOrder() {
	fg.mu.Lock()
	defer fg.mu.Unlock()
	fg.failNext = true
}

// CompletePayment registers a payment against orderID as if the user had
// paid in the provider's UI, and returns it.
func (fg *fakeGateway) CompletePayment(orderID string, status string) gateway.Payment {
	fg.mu.Lock()
	defer fg.mu.Unlock()

	ord := fg.orders[orderID]
	pay := gateway.Payment{
		ID:       "pay_" + random.String(14),
		OrderID:  orderID,
		Amount:   ord.Amount,
		Currency: ord.Currency,
		Status:   status,
		Method:   "card",
		Email:    "learner@test.com",
		Contact:  "+911234567890",
	}
	fg.payments[pay.ID] = pay

	return pay
}

// Order returns the gateway's view of a created order.
func (fg *fakeGateway) Order(id string) (gateway.Order, bool) {
	fg.mu.Lock()
	defer fg.mu.Unlock()

	ord, ok := fg.orders[id]
	return ord, ok
}
