package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type DonationStatus string

const (
	DonationPending DonationStatus = "pending"
	DonationSuccess DonationStatus = "success"
)

// Donation is both the payment intent and the settlement record. OrderID is
// the gateway-issued order identifier and doubles as the idempotency key: the
// pending -> success transition happens at most once per order, and that
// transition is the only thing that ever credits a campaign.
type Donation struct {
	ID         uuid.UUID
	CampaignID uuid.UUID
	DonorName  string
	DonorPAN   string
	DonorEmail string
	Anonymous  bool
	Amount     decimal.Decimal
	OrderID    string
	PaymentID  string
	Status     DonationStatus
	CreatedAt  time.Time
}
