package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"fundbridge/internal/domain"
	"fundbridge/internal/repo"
)

type SubmitCampaignRequest struct {
	CreatorName  string
	CreatorEmail string
	CreatorPhone string
	CreatorPAN   string
	Title        string
	Description  string
	TargetAmount decimal.Decimal
	Category     string
	DaysLeft     int
	Location     string
	Image        string
	IsNGO        bool
	NGOName      string
	NGOAddress   string
	NGOWebsite   string
}

type CampaignService interface {
	Submit(ctx context.Context, req SubmitCampaignRequest) (uuid.UUID, error)
	ListApproved(ctx context.Context, category string) ([]domain.CampaignSummary, error)
	Get(ctx context.Context, id uuid.UUID) (*domain.CampaignSummary, error)
	ListDonations(ctx context.Context, campaignID uuid.UUID) ([]domain.Donation, error)
	Categories(ctx context.Context) ([]domain.CategorySummary, error)
	ListPending(ctx context.Context) ([]domain.CampaignSummary, error)
	Review(ctx context.Context, id uuid.UUID, status domain.CampaignStatus) (*domain.Campaign, error)
}

type campaignService struct {
	campaignRepo repo.CampaignRepo
	donationRepo repo.DonationRepo
}

func NewCampaignService(campaignRepo repo.CampaignRepo, donationRepo repo.DonationRepo) CampaignService {
	return &campaignService{campaignRepo: campaignRepo, donationRepo: donationRepo}
}

func (s *campaignService) Submit(ctx context.Context, req SubmitCampaignRequest) (uuid.UUID, error) {
	if req.Title == "" || req.Description == "" || req.CreatorName == "" {
		return uuid.Nil, fmt.Errorf("%w: title, description and creator name are required", domain.ErrValidation)
	}
	if !req.TargetAmount.IsPositive() {
		return uuid.Nil, fmt.Errorf("%w: target amount must be positive", domain.ErrValidation)
	}
	if req.DaysLeft <= 0 {
		return uuid.Nil, fmt.Errorf("%w: campaign duration must be at least one day", domain.ErrValidation)
	}

	c := &domain.Campaign{
		ID:           uuid.New(),
		Title:        req.Title,
		Description:  req.Description,
		TargetAmount: req.TargetAmount,
		CreatorName:  req.CreatorName,
		CreatorEmail: req.CreatorEmail,
		CreatorPhone: req.CreatorPhone,
		CreatorPAN:   req.CreatorPAN,
		Image:        req.Image,
		EndDate:      time.Now().AddDate(0, 0, req.DaysLeft),
		Location:     req.Location,
		Category:     req.Category,
		Status:       domain.CampaignPending,
		CreatedAt:    time.Now(),
	}
	if req.IsNGO {
		c.NGOName = req.NGOName
		c.NGOAddress = req.NGOAddress
		c.NGOWebsite = req.NGOWebsite
	}

	if err := s.campaignRepo.Create(ctx, c); err != nil {
		return uuid.Nil, fmt.Errorf("%w: create campaign: %v", domain.ErrPersistence, err)
	}
	return c.ID, nil
}

func (s *campaignService) ListApproved(ctx context.Context, category string) ([]domain.CampaignSummary, error) {
	out, err := s.campaignRepo.ListApproved(ctx, category)
	if err != nil {
		return nil, fmt.Errorf("%w: list campaigns: %v", domain.ErrPersistence, err)
	}
	return out, nil
}

func (s *campaignService) Get(ctx context.Context, id uuid.UUID) (*domain.CampaignSummary, error) {
	c, err := s.campaignRepo.FindById(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%w: find campaign: %v", domain.ErrPersistence, err)
	}
	if c == nil {
		return nil, fmt.Errorf("%w: campaign %s", domain.ErrNotFound, id)
	}
	return c, nil
}

func (s *campaignService) ListDonations(ctx context.Context, campaignID uuid.UUID) ([]domain.Donation, error) {
	out, err := s.donationRepo.ListSettledByCampaign(ctx, campaignID)
	if err != nil {
		return nil, fmt.Errorf("%w: list donations: %v", domain.ErrPersistence, err)
	}
	return out, nil
}

func (s *campaignService) Categories(ctx context.Context) ([]domain.CategorySummary, error) {
	out, err := s.campaignRepo.CategorySummaries(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: category summary: %v", domain.ErrPersistence, err)
	}
	return out, nil
}

func (s *campaignService) ListPending(ctx context.Context) ([]domain.CampaignSummary, error) {
	out, err := s.campaignRepo.ListPending(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: list pending: %v", domain.ErrPersistence, err)
	}
	return out, nil
}

func (s *campaignService) Review(ctx context.Context, id uuid.UUID, status domain.CampaignStatus) (*domain.Campaign, error) {
	if status != domain.CampaignApproved && status != domain.CampaignRejected {
		return nil, fmt.Errorf("%w: invalid status %q", domain.ErrValidation, status)
	}
	c, err := s.campaignRepo.UpdateStatus(ctx, id, status)
	if err != nil {
		return nil, fmt.Errorf("%w: update status: %v", domain.ErrPersistence, err)
	}
	if c == nil {
		return nil, fmt.Errorf("%w: campaign %s", domain.ErrNotFound, id)
	}
	return c, nil
}
