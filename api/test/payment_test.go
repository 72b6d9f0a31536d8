package test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/irsalhamdi/coursepay/core/payment"
	"github.com/irsalhamdi/coursepay/gateway"
)

type paymentTest struct {
	*TestEnv
}

func TestVerify(t *testing.T) {
	env, err := NewTestEnv(t, "verify_test")
	if err != nil {
		t.Fatalf("initializing test env: %v", err)
	}

	pt := &paymentTest{env}
	ot := &orderTest{env}

	if err := pt.Login(pt.UserEmail, pt.UserPass); err != nil {
		t.Fatal(err)
	}
	defer pt.Logout()

	ord := ot.createOrderOK(t, 599, "INR", map[string]string{"course_name": "Web Development"})
	gwp := pt.Gateway.CompletePayment(ord.ExternalID, "captured")

	pay := pt.verifyOK(t, ord.ExternalID, gwp.ID)

	if pay.Status != payment.Captured {
		t.Fatalf("expected status captured, got %q", pay.Status)
	}
	if pay.Amount != 599 {
		t.Fatalf("expected amount converted back to 599 whole units, got %d", pay.Amount)
	}

	pt.assertCount(t, "SELECT count(*) FROM payments", 1)
	pt.assertCount(t, "SELECT count(*) FROM enrollments WHERE course_name = 'Web Development'", 1)
	pt.assertOrderStatus(t, ord.ExternalID, "captured")

	// Retrying the exact same confirmation trips the idempotency guard.
	pt.verifyStatus(t, ord.ExternalID, gwp.ID, pt.sign(ord.ExternalID, gwp.ID), http.StatusConflict)
	pt.assertCount(t, "SELECT count(*) FROM payments", 1)
	pt.assertCount(t, "SELECT count(*) FROM enrollments", 1)

	// A forged signature writes nothing, even for an otherwise valid
	// payment.
	ord2 := ot.createOrderOK(t, 299, "INR", map[string]string{"course_name": "UI/UX Design"})
	gwp2 := pt.Gateway.CompletePayment(ord2.ExternalID, "captured")

	pt.verifyStatus(t, ord2.ExternalID, gwp2.ID, "deadbeef", http.StatusBadRequest)
	pt.assertCount(t, "SELECT count(*) FROM payments", 1)
	pt.assertCount(t, "SELECT count(*) FROM enrollments", 1)
	pt.assertOrderStatus(t, ord2.ExternalID, "created")

	// A payment the gateway does not know fails upstream.
	pt.verifyStatus(t, ord2.ExternalID, "pay_unknown00000", pt.sign(ord2.ExternalID, "pay_unknown00000"), http.StatusBadGateway)

	// Another user cannot confirm this order.
	if err := pt.Login(pt.AdminEmail, pt.AdminPass); err != nil {
		t.Fatal(err)
	}
	pt.verifyStatus(t, ord2.ExternalID, gwp2.ID, pt.sign(ord2.ExternalID, gwp2.ID), http.StatusNotFound)

	// The owner still can; a non-captured payment grants nothing.
	if err := pt.Login(pt.UserEmail, pt.UserPass); err != nil {
		t.Fatal(err)
	}
	ord3 := ot.createOrderOK(t, 100, "INR", map[string]string{"course_name": "Data Science"})
	gwp3 := pt.Gateway.CompletePayment(ord3.ExternalID, "failed")
	pay3 := pt.verifyOK(t, ord3.ExternalID, gwp3.ID)
	if pay3.Status != payment.Failed {
		t.Fatalf("expected status failed, got %q", pay3.Status)
	}
	pt.assertCount(t, "SELECT count(*) FROM enrollments WHERE course_name = 'Data Science'", 0)
	pt.assertOrderStatus(t, ord3.ExternalID, "failed")
}

func (pt *paymentTest) sign(orderID string, paymentID string) string {
	return gateway.Sign(pt.KeySecret, []byte(orderID+"|"+paymentID))
}

func (pt *paymentTest) verifyOK(t *testing.T, orderID string, paymentID string) payment.Payment {
	t.Helper()

	w := pt.verify(t, orderID, paymentID, pt.sign(orderID, paymentID))
	defer w.Body.Close()

	if w.StatusCode != http.StatusOK {
		t.Fatalf("can't verify payment: status code %s", w.Status)
	}

	var resp struct {
		Payment payment.Payment `json:"payment"`
	}
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("cannot unmarshal verified payment: %v", err)
	}

	return resp.Payment
}

func (pt *paymentTest) verifyStatus(t *testing.T, orderID string, paymentID string, sig string, expected int) {
	t.Helper()

	w := pt.verify(t, orderID, paymentID, sig)
	defer w.Body.Close()

	if w.StatusCode != expected {
		t.Fatalf("expected status %d, got %s", expected, w.Status)
	}
}

func (pt *paymentTest) verify(t *testing.T, orderID string, paymentID string, sig string) *http.Response {
	t.Helper()

	body, err := json.Marshal(map[string]string{
		"externalPaymentId": paymentID,
		"externalOrderId":   orderID,
		"signature":         sig,
	})
	if err != nil {
		t.Fatal(err)
	}

	w, err := pt.Client().Post(pt.URL+"/payments/verify", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}

	return w
}

func (pt *paymentTest) assertCount(t *testing.T, query string, expected int) {
	t.Helper()

	var count int
	if err := pt.DB.Get(&count, query); err != nil {
		t.Fatal(err)
	}
	if count != expected {
		t.Fatalf("expected %d rows for %q, got %d", expected, query, count)
	}
}

func (pt *paymentTest) assertOrderStatus(t *testing.T, externalID string, expected string) {
	t.Helper()

	var status string
	if err := pt.DB.Get(&status, "SELECT status FROM orders WHERE external_order_id = $1", externalID); err != nil {
		t.Fatal(err)
	}
	if status != expected {
		t.Fatalf("expected order %s status %q, got %q", externalID, expected, status)
	}
}
