package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"fundbridge/internal/domain"
	"fundbridge/internal/service"
)

type campaignResponse struct {
	ID                 uuid.UUID       `json:"id"`
	Title              string          `json:"title"`
	Description        string          `json:"description"`
	TargetAmount       decimal.Decimal `json:"target_amount"`
	RaisedAmount       decimal.Decimal `json:"raised_amount"`
	CreatorName        string          `json:"creator_name"`
	Image              string          `json:"image"`
	Category           string          `json:"category"`
	DaysLeft           int             `json:"days_left"`
	Supporters         int             `json:"supporters"`
	Location           string          `json:"location"`
	CreatedAt          string          `json:"created_at"`
	ProgressPercentage decimal.Decimal `json:"progress_percentage"`
}

func toCampaignResponse(c domain.CampaignSummary) campaignResponse {
	return campaignResponse{
		ID:                 c.ID,
		Title:              c.Title,
		Description:        c.Description,
		TargetAmount:       c.TargetAmount,
		RaisedAmount:       c.RaisedAmount,
		CreatorName:        c.CreatorName,
		Image:              c.Image,
		Category:           c.Category,
		DaysLeft:           c.DaysLeft,
		Supporters:         c.Supporters,
		Location:           c.Location,
		CreatedAt:          c.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		ProgressPercentage: c.ProgressPercentage,
	}
}

func (s *Server) handleListCampaigns(c *gin.Context) {
	list, err := s.campaigns.ListApproved(c.Request.Context(), c.Query("category"))
	if err != nil {
		respondError(c, err)
		return
	}

	out := make([]campaignResponse, 0, len(list))
	for _, item := range list {
		out = append(out, toCampaignResponse(item))
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "campaigns": out})
}

func (s *Server) handleGetCampaign(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Campaign not found"})
		return
	}

	campaign, err := s.campaigns.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "campaign": toCampaignResponse(*campaign)})
}

type submitCampaignRequest struct {
	CreatorName  string          `json:"creator_name" binding:"required"`
	CreatorEmail string          `json:"creator_email"`
	CreatorPhone string          `json:"creator_phone"`
	CreatorPAN   string          `json:"creator_pan"`
	Title        string          `json:"title" binding:"required"`
	Description  string          `json:"description" binding:"required"`
	TargetAmount decimal.Decimal `json:"target_amount" binding:"required"`
	Category     string          `json:"category"`
	DaysLeft     int             `json:"days_left" binding:"required"`
	Location     string          `json:"location"`
	Image        string          `json:"image" binding:"required"`
	IsNGO        bool            `json:"is_ngo"`
	NGOName      string          `json:"ngo_name"`
	NGOAddress   string          `json:"ngo_address"`
	NGOWebsite   string          `json:"ngo_website"`
}

func (s *Server) handleSubmitCampaign(c *gin.Context) {
	var req submitCampaignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Missing required campaign fields"})
		return
	}

	id, err := s.campaigns.Submit(c.Request.Context(), service.SubmitCampaignRequest{
		CreatorName:  req.CreatorName,
		CreatorEmail: req.CreatorEmail,
		CreatorPhone: req.CreatorPhone,
		CreatorPAN:   req.CreatorPAN,
		Title:        req.Title,
		Description:  req.Description,
		TargetAmount: req.TargetAmount,
		Category:     req.Category,
		DaysLeft:     req.DaysLeft,
		Location:     req.Location,
		Image:        req.Image,
		IsNGO:        req.IsNGO,
		NGOName:      req.NGOName,
		NGOAddress:   req.NGOAddress,
		NGOWebsite:   req.NGOWebsite,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success":     true,
		"message":     "Campaign submitted for approval! You will be notified once it is reviewed.",
		"campaign_id": id,
	})
}

func (s *Server) handleListDonations(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Campaign not found"})
		return
	}

	donations, err := s.campaigns.ListDonations(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	type donationResponse struct {
		DonorName string          `json:"donor_name"`
		Amount    decimal.Decimal `json:"amount"`
		CreatedAt string          `json:"created_at"`
	}
	out := make([]donationResponse, 0, len(donations))
	for _, d := range donations {
		name := d.DonorName
		if d.Anonymous {
			name = "Anonymous"
		}
		out = append(out, donationResponse{
			DonorName: name,
			Amount:    d.Amount,
			CreatedAt: d.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		})
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "donations": out})
}

func (s *Server) handleCategories(c *gin.Context) {
	categories, err := s.campaigns.Categories(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	type categoryResponse struct {
		Category      string          `json:"category"`
		CampaignCount int             `json:"campaign_count"`
		TotalGoal     decimal.Decimal `json:"total_goal"`
		TotalRaised   decimal.Decimal `json:"total_raised"`
	}
	out := make([]categoryResponse, 0, len(categories))
	for _, cat := range categories {
		out = append(out, categoryResponse{
			Category:      cat.Category,
			CampaignCount: cat.CampaignCount,
			TotalGoal:     cat.TotalGoal,
			TotalRaised:   cat.TotalRaised,
		})
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "categories": out})
}

func (s *Server) handlePendingCampaigns(c *gin.Context) {
	list, err := s.campaigns.ListPending(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	out := make([]campaignResponse, 0, len(list))
	for _, item := range list {
		out = append(out, toCampaignResponse(item))
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "campaigns": out})
}

func (s *Server) handleReviewCampaign(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Campaign not found."})
		return
	}

	var req struct {
		Status string `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid status."})
		return
	}

	campaign, err := s.campaigns.Review(c.Request.Context(), id, domain.CampaignStatus(req.Status))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"message":  "Campaign has been " + req.Status + ".",
		"campaign": gin.H{"id": campaign.ID, "title": campaign.Title, "status": campaign.Status},
	})
}
