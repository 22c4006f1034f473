package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type CampaignStatus string

const (
	CampaignPending  CampaignStatus = "pending"
	CampaignApproved CampaignStatus = "approved"
	CampaignRejected CampaignStatus = "rejected"
)

type Campaign struct {
	ID           uuid.UUID
	Title        string
	Description  string
	TargetAmount decimal.Decimal
	RaisedAmount decimal.Decimal
	CreatorName  string
	CreatorEmail string
	CreatorPhone string
	CreatorPAN   string
	NGOName      string
	NGOAddress   string
	NGOWebsite   string
	Image        string
	EndDate      time.Time
	Supporters   int
	Location     string
	Category     string
	Status       CampaignStatus
	CreatedAt    time.Time
}

// CampaignSummary is the read-path projection for listing pages:
// days_left and progress_percentage are computed in SQL.
type CampaignSummary struct {
	Campaign
	DaysLeft           int
	ProgressPercentage decimal.Decimal
}

// CategorySummary aggregates approved, still-running campaigns per category.
type CategorySummary struct {
	Category      string
	CampaignCount int
	TotalGoal     decimal.Decimal
	TotalRaised   decimal.Decimal
}

// CampaignUpdate is the change event published whenever a campaign's
// raised amount is credited. Field names match the payload built by the
// notify_campaign_update trigger.
type CampaignUpdate struct {
	ID           uuid.UUID       `json:"id"`
	RaisedAmount decimal.Decimal `json:"raised_amount"`
	TargetAmount decimal.Decimal `json:"target_amount"`
	Supporters   int             `json:"supporters"`
}
