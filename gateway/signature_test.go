package gateway

import "testing"

func TestVerifyCallback(t *testing.T) {
	secret := "test-key-secret"
	orderID := "order_MkWvKjCCNsv2EP"
	paymentID := "pay_MkWw7Y3gWMCqxR"

	sig := Sign(secret, []byte(orderID+"|"+paymentID))

	if !VerifyCallback(secret, orderID, paymentID, sig) {
		t.Fatal("expected a freshly computed signature to verify")
	}

	if VerifyCallback(secret, orderID, paymentID, sig+"0") {
		t.Fatal("expected a lengthened signature to fail")
	}

	tampered := []byte(sig)
	tampered[0] ^= 0x1
	if VerifyCallback(secret, orderID, paymentID, string(tampered)) {
		t.Fatal("expected a tampered signature to fail")
	}

	if VerifyCallback("other-secret", orderID, paymentID, sig) {
		t.Fatal("expected a signature under another secret to fail")
	}

	if VerifyCallback(secret, paymentID, orderID, sig) {
		t.Fatal("expected swapped order/payment ids to fail")
	}
}

func TestVerifyWebhook(t *testing.T) {
	secret := "test-webhook-secret"
	body := []byte(`{"event":"payment.captured","payload":{}}`)

	sig := Sign(secret, body)

	if !VerifyWebhook(secret, body, sig) {
		t.Fatal("expected a freshly computed signature to verify")
	}

	if VerifyWebhook(secret, append(body, ' '), sig) {
		t.Fatal("expected a modified body to fail")
	}

	if VerifyWebhook(secret, body, "") {
		t.Fatal("expected an empty signature to fail")
	}
}
