package test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"sync"
	"testing"

	"github.com/irsalhamdi/coursepay/core/payment"
	"github.com/irsalhamdi/coursepay/gateway"
)

// TestConvergence races the client confirmation against the webhook
// delivery for the same payment. Whichever write lands first is
// authoritative; the storage-level uniqueness on the payment id makes
// the loser a no-op, so the final state is one payment, one enrollment,
// a captured order.
func TestConvergence(t *testing.T) {
	env, err := NewTestEnv(t, "convergence_test")
	if err != nil {
		t.Fatalf("initializing test env: %v", err)
	}

	pt := &paymentTest{env}
	ot := &orderTest{env}
	wt := &webhookTest{env}

	if err := pt.Login(pt.UserEmail, pt.UserPass); err != nil {
		t.Fatal(err)
	}
	defer pt.Logout()

	for i := 0; i < 5; i++ {
		ord := ot.createOrderOK(t, 599, "INR", map[string]string{"course_name": "Go Fundamentals"})
		gwp := pt.Gateway.CompletePayment(ord.ExternalID, "captured")

		verifyBody, err := json.Marshal(map[string]string{
			"externalPaymentId": gwp.ID,
			"externalOrderId":   ord.ExternalID,
			"signature":         pt.sign(ord.ExternalID, gwp.ID),
		})
		if err != nil {
			t.Fatal(err)
		}

		evtBody, err := json.Marshal(wt.capturedEvent(gwp))
		if err != nil {
			t.Fatal(err)
		}

		var wg sync.WaitGroup
		wg.Add(2)

		go func() {
			defer wg.Done()

			w, err := pt.Client().Post(pt.URL+"/payments/verify", "application/json", bytes.NewReader(verifyBody))
			if err != nil {
				t.Error(err)
				return
			}
			defer w.Body.Close()

			if w.StatusCode != http.StatusOK && w.StatusCode != http.StatusConflict {
				t.Errorf("verify: unexpected status %s", w.Status)
			}
		}()

		go func() {
			defer wg.Done()

			r, err := http.NewRequest(http.MethodPost, wt.URL+"/payments/webhook", bytes.NewReader(evtBody))
			if err != nil {
				t.Error(err)
				return
			}
			r.Header.Set("Content-Type", "application/json")
			r.Header.Set(payment.SignatureHeader, gateway.Sign(wt.WebhookSecret, evtBody))

			w, err := wt.Client().Do(r)
			if err != nil {
				t.Error(err)
				return
			}
			defer w.Body.Close()

			if w.StatusCode != http.StatusOK {
				t.Errorf("webhook: unexpected status %s", w.Status)
			}
		}()

		wg.Wait()

		pt.assertCount(t, "SELECT count(*) FROM payments WHERE external_payment_id = '"+gwp.ID+"'", 1)
		pt.assertOrderStatus(t, ord.ExternalID, "captured")
	}

	pt.assertCount(t, "SELECT count(*) FROM enrollments WHERE course_name = 'Go Fundamentals'", 1)
	pt.assertCount(t, "SELECT count(*) FROM payments", 5)
}
