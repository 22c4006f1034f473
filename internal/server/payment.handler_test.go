package server

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"fundbridge/internal/domain"
	"fundbridge/internal/infrastructure/payment"
	"fundbridge/internal/realtime"
	"fundbridge/internal/service"
)

type stubSettlement struct {
	webhookErr error
	confirmErr error
}

func (s *stubSettlement) CreateOrder(context.Context, service.CreateOrderRequest) (*service.OrderHandle, error) {
	return &service.OrderHandle{OrderID: "order_1", KeyID: "rzp_test", AmountMinor: 50000, Currency: "INR"}, nil
}
func (s *stubSettlement) ConfirmPayment(context.Context, string, string, string) error {
	return s.confirmErr
}
func (s *stubSettlement) HandleWebhook(context.Context, []byte, string) error {
	return s.webhookErr
}
func (s *stubSettlement) Settle(context.Context, *payment.GatewayPayment) error { return nil }

type stubHealth struct{}

func (stubHealth) Health() map[string]string { return map[string]string{"status": "up"} }
func (stubHealth) Close() error              { return nil }

func testRouter(settlement service.SettlementService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	s := New(nil, settlement, nil, realtime.NewHub(), stubHealth{})
	return s.Router()
}

func postWebhook(router *gin.Engine, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/payments/webhook", bytes.NewBufferString(body))
	req.Header.Set("X-Razorpay-Signature", "whatever")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestWebhookAcksOnSuccess(t *testing.T) {
	router := testRouter(&stubSettlement{})

	w := postWebhook(router, `{"event":"payment.captured"}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestWebhookAcksOnSignatureFailure(t *testing.T) {
	// A failed verification is logged and not processed, but the gateway
	// still gets its ack so it does not retry the event forever.
	router := testRouter(&stubSettlement{webhookErr: domain.ErrSignature})

	w := postWebhook(router, `{"event":"payment.captured"}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestWebhookAcksOnProcessingFailure(t *testing.T) {
	router := testRouter(&stubSettlement{webhookErr: domain.ErrPersistence})

	w := postWebhook(router, `{"event":"payment.captured"}`)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestVerifyPaymentMapsSignatureFailure(t *testing.T) {
	router := testRouter(&stubSettlement{confirmErr: domain.ErrSignature})

	body := `{"razorpay_order_id":"order_1","razorpay_payment_id":"pay_1","razorpay_signature":"bad"}`
	req := httptest.NewRequest(http.MethodPost, "/api/payments/verify-payment", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Invalid signature.")
}

func TestVerifyPaymentSuccess(t *testing.T) {
	router := testRouter(&stubSettlement{})

	body := `{"razorpay_order_id":"order_1","razorpay_payment_id":"pay_1","razorpay_signature":"sig"}`
	req := httptest.NewRequest(http.MethodPost, "/api/payments/verify-payment", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"success":true`)
}
