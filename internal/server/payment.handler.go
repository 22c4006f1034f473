package server

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"fundbridge/internal/domain"
	"fundbridge/internal/service"
)

type createOrderRequest struct {
	Amount     decimal.Decimal `json:"amount" binding:"required"`
	CampaignID string          `json:"campaignId" binding:"required"`
	DonorName  string          `json:"donorName" binding:"required"`
	DonorEmail string          `json:"donorContact"`
	DonorPAN   string          `json:"donorPan"`
	Anonymous  bool            `json:"anonymous"`
}

func (s *Server) handleCreateOrder(c *gin.Context) {
	var req createOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "All fields are required"})
		return
	}
	campaignID, err := uuid.Parse(req.CampaignID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid campaign id"})
		return
	}

	handle, err := s.settlement.CreateOrder(c.Request.Context(), service.CreateOrderRequest{
		CampaignID: campaignID,
		Amount:     req.Amount,
		DonorName:  req.DonorName,
		DonorEmail: req.DonorEmail,
		DonorPAN:   req.DonorPAN,
		Anonymous:  req.Anonymous,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"orderId":  handle.OrderID,
		"keyId":    handle.KeyID,
		"amount":   handle.AmountMinor,
		"currency": handle.Currency,
	})
}

type verifyPaymentRequest struct {
	OrderID   string `json:"razorpay_order_id" binding:"required"`
	PaymentID string `json:"razorpay_payment_id" binding:"required"`
	Signature string `json:"razorpay_signature" binding:"required"`
}

func (s *Server) handleVerifyPayment(c *gin.Context) {
	var req verifyPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "All fields are required"})
		return
	}

	err := s.settlement.ConfirmPayment(c.Request.Context(), req.OrderID, req.PaymentID, req.Signature)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Payment verified and campaign updated."})
}

// handleWebhook always acknowledges after the body is read, including on
// verification or processing failure, so the gateway does not retry a poison
// event forever. Failures are logged for audit instead.
func (s *Server) handleWebhook(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Unreadable body"})
		return
	}

	signature := c.GetHeader("X-Razorpay-Signature")
	if err := s.settlement.HandleWebhook(c.Request.Context(), body, signature); err != nil {
		if errors.Is(err, domain.ErrSignature) {
			log.Warn("webhook rejected: signature validation failed")
		} else {
			log.WithError(err).Error("webhook processing failed")
		}
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
