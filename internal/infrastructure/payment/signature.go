package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// VerifyPaymentSignature checks the signature returned to the client-side
// success callback: HMAC-SHA256 over "orderID|paymentID" keyed with the API
// key secret. Comparison is constant time.
func VerifyPaymentSignature(orderID, paymentID, signature, keySecret string) bool {
	mac := hmac.New(sha256.New, []byte(keySecret))
	mac.Write([]byte(orderID + "|" + paymentID))
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

// VerifyWebhookSignature checks the X-Razorpay-Signature header: HMAC-SHA256
// over the raw request body keyed with the webhook secret, which is distinct
// from the API key secret.
func VerifyWebhookSignature(body []byte, signature, webhookSecret string) bool {
	mac := hmac.New(sha256.New, []byte(webhookSecret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

// SignPayment produces the signature the gateway would attach to a client
// callback. Used by the mock gateway and tests.
func SignPayment(orderID, paymentID, keySecret string) string {
	mac := hmac.New(sha256.New, []byte(keySecret))
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

// SignWebhookBody produces the webhook signature header value for a raw body.
func SignWebhookBody(body []byte, webhookSecret string) string {
	mac := hmac.New(sha256.New, []byte(webhookSecret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}
