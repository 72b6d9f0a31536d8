package gateway

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// Sign computes the hex HMAC-SHA256 of data under secret. It is the
// signature scheme the provider applies to client callbacks and webhook
// deliveries.
func Sign(secret string, data []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(data)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifyCallback checks the signature a client submits after completing
// a payment in the provider's UI. The signed material is
// "<orderID>|<paymentID>" under the API key secret.
func VerifyCallback(secret string, orderID string, paymentID string, signature string) bool {
	expected := Sign(secret, []byte(orderID+"|"+paymentID))
	return hmac.Equal([]byte(expected), []byte(signature))
}

// VerifyWebhook checks the signature header of a webhook delivery. The
// signed material is the raw, unparsed request body under the webhook
// secret, so it must be computed before any decoding.
func VerifyWebhook(secret string, body []byte, signature string) bool {
	expected := Sign(secret, body)
	return hmac.Equal([]byte(expected), []byte(signature))
}
