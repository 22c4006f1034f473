package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"fundbridge/internal/domain"
	"fundbridge/internal/infrastructure/mail"
	"fundbridge/internal/infrastructure/payment"
	"fundbridge/internal/repo"
)

// minorUnitFactor converts rupees to paise at the gateway boundary.
var minorUnitFactor = decimal.NewFromInt(100)

type CreateOrderRequest struct {
	CampaignID uuid.UUID
	Amount     decimal.Decimal
	DonorName  string
	DonorEmail string
	DonorPAN   string
	Anonymous  bool
}

// OrderHandle is what the client needs to complete payment in the browser.
type OrderHandle struct {
	OrderID     string
	KeyID       string
	AmountMinor int64
	Currency    string
}

type SettlementService interface {
	CreateOrder(ctx context.Context, req CreateOrderRequest) (*OrderHandle, error)
	ConfirmPayment(ctx context.Context, orderID, paymentID, signature string) error
	HandleWebhook(ctx context.Context, rawBody []byte, signatureHeader string) error
	// Settle applies the idempotent credit for a captured gateway payment.
	// Used by the webhook path and the reconciliation worker.
	Settle(ctx context.Context, p *payment.GatewayPayment) error
}

type settlementService struct {
	db            *sql.DB
	campaignRepo  repo.CampaignRepo
	donationRepo  repo.DonationRepo
	gateway       payment.Gateway
	receipts      mail.ReceiptNotifier
	keyID         string
	keySecret     string
	webhookSecret string
	minDonation   decimal.Decimal
}

func NewSettlementService(
	db *sql.DB,
	campaignRepo repo.CampaignRepo,
	donationRepo repo.DonationRepo,
	gateway payment.Gateway,
	receipts mail.ReceiptNotifier,
	keyID, keySecret, webhookSecret string,
	minDonation decimal.Decimal,
) SettlementService {
	return &settlementService{
		db:            db,
		campaignRepo:  campaignRepo,
		donationRepo:  donationRepo,
		gateway:       gateway,
		receipts:      receipts,
		keyID:         keyID,
		keySecret:     keySecret,
		webhookSecret: webhookSecret,
		minDonation:   minDonation,
	}
}

func (s *settlementService) CreateOrder(ctx context.Context, req CreateOrderRequest) (*OrderHandle, error) {
	if req.Amount.LessThan(s.minDonation) {
		return nil, fmt.Errorf("%w: minimum donation is %s", domain.ErrValidation, s.minDonation.StringFixed(2))
	}
	if req.DonorName == "" {
		return nil, fmt.Errorf("%w: donor name is required", domain.ErrValidation)
	}

	campaign, err := s.campaignRepo.FindById(ctx, req.CampaignID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrPersistence, err)
	}
	if campaign == nil {
		return nil, fmt.Errorf("%w: campaign %s", domain.ErrNotFound, req.CampaignID)
	}
	if campaign.Status != domain.CampaignApproved {
		return nil, fmt.Errorf("%w: campaign is not accepting donations", domain.ErrValidation)
	}

	// The notes travel with the gateway order so the webhook can settle the
	// payment without any client round trip.
	receipt := "receipt_" + uuid.NewString()[:20]
	notes := map[string]string{
		"campaignId": req.CampaignID.String(),
		"donorName":  req.DonorName,
		"donorPan":   req.DonorPAN,
		"donorEmail": req.DonorEmail,
		"anonymous":  fmt.Sprintf("%t", req.Anonymous),
	}

	amountMinor := req.Amount.Mul(minorUnitFactor).IntPart()
	order, err := s.gateway.CreateOrder(ctx, amountMinor, "INR", receipt, notes)
	if err != nil {
		return nil, err
	}

	donation := &domain.Donation{
		ID:         uuid.New(),
		CampaignID: req.CampaignID,
		DonorName:  req.DonorName,
		DonorPAN:   req.DonorPAN,
		DonorEmail: req.DonorEmail,
		Anonymous:  req.Anonymous,
		Amount:     req.Amount,
		OrderID:    order.ID,
		Status:     domain.DonationPending,
		CreatedAt:  time.Now(),
	}
	if err := s.donationRepo.CreatePending(ctx, donation); err != nil {
		return nil, fmt.Errorf("%w: create donation: %v", domain.ErrPersistence, err)
	}

	return &OrderHandle{
		OrderID:     order.ID,
		KeyID:       s.keyID,
		AmountMinor: order.AmountMinor,
		Currency:    order.Currency,
	}, nil
}

// ConfirmPayment is the client-callback confirmation channel. The client-path
// amount is advisory only: the credit uses the amount stored at order
// creation, which the gateway echoed back when the order was registered.
func (s *settlementService) ConfirmPayment(ctx context.Context, orderID, paymentID, signature string) error {
	if !payment.VerifyPaymentSignature(orderID, paymentID, signature, s.keySecret) {
		log.WithField("order_id", orderID).Warn("payment signature verification failed")
		return fmt.Errorf("%w: order %s", domain.ErrSignature, orderID)
	}

	credited, donation, err := s.credit(ctx, orderID, paymentID, nil, nil)
	if err != nil {
		return err
	}
	if donation == nil {
		return fmt.Errorf("%w: no donation for order %s", domain.ErrNotFound, orderID)
	}
	if credited {
		s.sendReceipt(donation)
	}
	return nil
}

// webhookEvent mirrors the gateway's payment.captured envelope.
type webhookEvent struct {
	Event   string `json:"event"`
	Payload struct {
		Payment struct {
			Entity struct {
				ID      string            `json:"id"`
				OrderID string            `json:"order_id"`
				Amount  int64             `json:"amount"`
				Email   string            `json:"email"`
				Contact string            `json:"contact"`
				Notes   map[string]string `json:"notes"`
			} `json:"entity"`
		} `json:"payment"`
	} `json:"payload"`
}

// HandleWebhook is the asynchronous gateway-initiated confirmation channel.
// It tolerates arriving before, after, or concurrently with ConfirmPayment
// for the same order.
func (s *settlementService) HandleWebhook(ctx context.Context, rawBody []byte, signatureHeader string) error {
	if s.webhookSecret != "" {
		if !payment.VerifyWebhookSignature(rawBody, signatureHeader, s.webhookSecret) {
			log.Warn("webhook signature verification failed")
			return domain.ErrSignature
		}
	}

	var event webhookEvent
	if err := json.Unmarshal(rawBody, &event); err != nil {
		return fmt.Errorf("%w: decode webhook body: %v", domain.ErrValidation, err)
	}
	if event.Event != "payment.captured" {
		return nil // not a capture, nothing to settle
	}

	entity := event.Payload.Payment.Entity
	return s.Settle(ctx, &payment.GatewayPayment{
		ID:          entity.ID,
		OrderID:     entity.OrderID,
		AmountMinor: entity.Amount,
		Email:       entity.Email,
		Contact:     entity.Contact,
		Notes:       entity.Notes,
	})
}

// Settle credits a gateway-reported capture. The gateway's captured amount is
// authoritative and overrides whatever the pending row carries.
func (s *settlementService) Settle(ctx context.Context, p *payment.GatewayPayment) error {
	amount := decimal.NewFromInt(p.AmountMinor).Div(minorUnitFactor)

	fallback, err := donationFromNotes(p, amount)
	if err != nil {
		return err
	}

	credited, donation, err := s.credit(ctx, p.OrderID, p.ID, &amount, fallback)
	if err != nil {
		return err
	}
	if credited {
		log.WithFields(log.Fields{
			"order_id":   p.OrderID,
			"payment_id": p.ID,
		}).Info("settled captured payment")
		s.sendReceipt(donation)
	}
	return nil
}

// donationFromNotes reconstructs a settled donation row from the metadata
// attached at order creation, for the case where the webhook lands before
// the pending row exists.
func donationFromNotes(p *payment.GatewayPayment, amount decimal.Decimal) (*domain.Donation, error) {
	campaignRaw, ok := p.Notes["campaignId"]
	if !ok {
		return nil, nil // no notes, settlement requires an existing pending row
	}
	campaignID, err := uuid.Parse(campaignRaw)
	if err != nil {
		return nil, fmt.Errorf("%w: bad campaignId in notes: %v", domain.ErrValidation, err)
	}

	email := p.Notes["donorEmail"]
	if email == "" {
		email = p.Email
	}
	return &domain.Donation{
		ID:         uuid.New(),
		CampaignID: campaignID,
		DonorName:  p.Notes["donorName"],
		DonorPAN:   p.Notes["donorPan"],
		DonorEmail: email,
		Anonymous:  p.Notes["anonymous"] == "true",
		Amount:     amount,
		OrderID:    p.OrderID,
		PaymentID:  p.ID,
		Status:     domain.DonationSuccess,
		CreatedAt:  time.Now(),
	}, nil
}

// credit is the single idempotent settlement transaction shared by both
// confirmation channels and the reconciliation worker.
//
// Inside one transaction it re-reads the donation under a row lock, skips the
// credit if the row is already settled, and otherwise flips the status and
// credits the campaign. A concurrent ConfirmPayment and HandleWebhook for the
// same order therefore serialize instead of both observing pending.
//
// override, when non-nil, replaces the stored amount (the gateway-reported
// captured amount is authoritative). fallback, when non-nil, is inserted if
// no donation row exists yet for the order.
func (s *settlementService) credit(
	ctx context.Context,
	orderID, paymentID string,
	override *decimal.Decimal,
	fallback *domain.Donation,
) (bool, *domain.Donation, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, nil, fmt.Errorf("%w: begin: %v", domain.ErrPersistence, err)
	}
	defer tx.Rollback()

	donation, err := s.donationRepo.FindByOrderIdForUpdate(ctx, tx, orderID)
	if err != nil {
		return false, nil, fmt.Errorf("%w: lock donation: %v", domain.ErrPersistence, err)
	}

	inserted := false
	if donation == nil {
		if fallback == nil {
			return false, nil, nil
		}
		// Webhook arrived before (or without) the pending row. The insert
		// blocks on the unique order-id index if another writer got there
		// first; in that case re-read the row it left behind.
		inserted, err = s.donationRepo.InsertSettled(ctx, tx, fallback)
		if err != nil {
			return false, nil, fmt.Errorf("%w: insert donation: %v", domain.ErrPersistence, err)
		}
		if inserted {
			donation = fallback
		} else {
			donation, err = s.donationRepo.FindByOrderIdForUpdate(ctx, tx, orderID)
			if err != nil || donation == nil {
				return false, nil, fmt.Errorf("%w: relock donation: %v", domain.ErrPersistence, err)
			}
		}
	}

	if !inserted {
		if donation.Status == domain.DonationSuccess {
			// Already credited by the other channel. Not an error: both
			// channels must commute, so the caller still reports success.
			if err := tx.Commit(); err != nil {
				return false, nil, fmt.Errorf("%w: commit: %v", domain.ErrPersistence, err)
			}
			return false, donation, nil
		}

		amount := donation.Amount
		if override != nil {
			amount = *override
		}
		if err := s.donationRepo.MarkSettled(ctx, tx, orderID, paymentID, amount); err != nil {
			return false, nil, fmt.Errorf("%w: mark settled: %v", domain.ErrPersistence, err)
		}
		donation.Status = domain.DonationSuccess
		donation.PaymentID = paymentID
		donation.Amount = amount
	}

	// The increment lives inside the same transaction as the status flip, so
	// it is causally tied to the idempotency check.
	if err := s.campaignRepo.Credit(ctx, tx, donation.CampaignID, donation.Amount); err != nil {
		return false, nil, fmt.Errorf("%w: credit campaign: %v", domain.ErrPersistence, err)
	}

	if err := tx.Commit(); err != nil {
		return false, nil, fmt.Errorf("%w: commit: %v", domain.ErrPersistence, err)
	}
	return true, donation, nil
}

// sendReceipt fires the donor receipt after commit. Best effort: a failure is
// logged and never reverses the settled payment.
func (s *settlementService) sendReceipt(d *domain.Donation) {
	if d.DonorEmail == "" {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		title := ""
		if campaign, err := s.campaignRepo.FindById(ctx, d.CampaignID); err == nil && campaign != nil {
			title = campaign.Title
		}
		if err := s.receipts.SendReceipt(ctx, d.DonorEmail, d.DonorName, title, d.Amount); err != nil {
			log.WithError(err).WithField("order_id", d.OrderID).
				Warnf("%v: receipt delivery failed", domain.ErrNotification)
		}
	}()
}
