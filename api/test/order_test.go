package test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/irsalhamdi/coursepay/core/order"
)

type orderTest struct {
	*TestEnv
}

func TestOrder(t *testing.T) {
	env, err := NewTestEnv(t, "order_test")
	if err != nil {
		t.Fatalf("initializing test env: %v", err)
	}

	ot := &orderTest{env}

	if err := ot.Login(ot.UserEmail, ot.UserPass); err != nil {
		t.Fatal(err)
	}
	defer ot.Logout()

	ord := ot.createOrderOK(t, 599, "INR", map[string]string{"course_name": "Web Development"})

	if ord.Status != order.Created {
		t.Fatalf("expected status %q, got %q", order.Created, ord.Status)
	}
	if ord.Amount != 599 {
		t.Fatalf("expected stored amount 599 whole units, got %d", ord.Amount)
	}
	if ord.ExternalID == "" {
		t.Fatal("expected a gateway-issued external order id")
	}
	if ord.Notes["user_id"] != ot.UserID {
		t.Fatalf("expected notes to carry the user id, got %v", ord.Notes)
	}

	gwo, ok := ot.Gateway.Order(ord.ExternalID)
	if !ok {
		t.Fatalf("gateway does not know order %s", ord.ExternalID)
	}
	if gwo.Amount != 59900 {
		t.Fatalf("expected the gateway call to carry 59900 minor units, got %d", gwo.Amount)
	}

	var count int
	if err := ot.DB.Get(&count, "SELECT count(*) FROM orders"); err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Fatalf("expected exactly 1 order row, got %d", count)
	}

	ot.createOrderStatus(t, map[string]any{"amount": 0}, http.StatusBadRequest)
	ot.createOrderStatus(t, map[string]any{"amount": -10}, http.StatusBadRequest)
	ot.createOrderStatus(t, map[string]any{"amount": 100, "currency": "EUR"}, http.StatusBadRequest)

	ot.Gateway.FailNextOrder()
	ot.createOrderStatus(t, map[string]any{"amount": 100}, http.StatusBadGateway)

	// Failed attempts leave no local rows behind.
	if err := ot.DB.Get(&count, "SELECT count(*) FROM orders"); err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Fatalf("expected failed order attempts to persist nothing, got %d rows", count)
	}
}

func (ot *orderTest) createOrderOK(t *testing.T, amount int, currency string, notes map[string]string) order.Order {
	t.Helper()

	body, err := json.Marshal(map[string]any{
		"amount":   amount,
		"currency": currency,
		"notes":    notes,
	})
	if err != nil {
		t.Fatal(err)
	}

	w, err := ot.Client().Post(ot.URL+"/payments/orders", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	defer w.Body.Close()

	if w.StatusCode != http.StatusCreated {
		t.Fatalf("can't create order: status code %s", w.Status)
	}

	var resp struct {
		Order order.Order `json:"order"`
	}
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("cannot unmarshal created order: %v", err)
	}

	return resp.Order
}

func (ot *orderTest) createOrderStatus(t *testing.T, body map[string]any, expected int) {
	t.Helper()

	b, err := json.Marshal(body)
	if err != nil {
		t.Fatal(err)
	}

	w, err := ot.Client().Post(ot.URL+"/payments/orders", "application/json", bytes.NewReader(b))
	if err != nil {
		t.Fatal(err)
	}
	defer w.Body.Close()

	if w.StatusCode != expected {
		t.Fatalf("expected status %d, got %s", expected, w.Status)
	}
}
