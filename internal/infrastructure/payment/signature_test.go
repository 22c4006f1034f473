package payment

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVerifyPaymentSignature(t *testing.T) {
	secret := "key_secret"
	sig := SignPayment("order_abc", "pay_xyz", secret)

	assert.True(t, VerifyPaymentSignature("order_abc", "pay_xyz", sig, secret))

	assert.False(t, VerifyPaymentSignature("order_abc", "pay_xyz", sig+"00", secret), "tampered signature")
	assert.False(t, VerifyPaymentSignature("order_abc", "pay_other", sig, secret), "different payment id")
	assert.False(t, VerifyPaymentSignature("order_abc", "pay_xyz", sig, "wrong_secret"), "wrong secret")
}

func TestVerifyWebhookSignature(t *testing.T) {
	secret := "webhook_secret"
	body := []byte(`{"event":"payment.captured"}`)
	sig := SignWebhookBody(body, secret)

	assert.True(t, VerifyWebhookSignature(body, sig, secret))

	assert.False(t, VerifyWebhookSignature(append(body, ' '), sig, secret), "tampered body")
	assert.False(t, VerifyWebhookSignature(body, sig, "key_secret"), "payment secret must not validate webhooks")
}
