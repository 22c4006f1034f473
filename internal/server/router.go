package server

import (
	"errors"
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"fundbridge/internal/database"
	"fundbridge/internal/domain"
	"fundbridge/internal/realtime"
	"fundbridge/internal/service"
)

type Server struct {
	campaigns  service.CampaignService
	settlement service.SettlementService
	auth       service.AuthService
	hub        *realtime.Hub
	health     database.Service
}

func New(
	campaigns service.CampaignService,
	settlement service.SettlementService,
	auth service.AuthService,
	hub *realtime.Hub,
	health database.Service,
) *Server {
	return &Server{
		campaigns:  campaigns,
		settlement: settlement,
		auth:       auth,
		hub:        hub,
		health:     health,
	}
}

func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	corsCfg := cors.DefaultConfig()
	corsCfg.AllowAllOrigins = true
	corsCfg.AllowHeaders = append(corsCfg.AllowHeaders, "Authorization")
	r.Use(cors.New(corsCfg))

	r.GET("/health", s.handleHealth)
	r.GET("/ws", gin.WrapH(s.hub))

	r.POST("/signup", s.handleSignup)
	r.POST("/login", s.handleLogin)

	api := r.Group("/api")
	{
		api.GET("/campaigns", s.handleListCampaigns)
		api.GET("/campaigns/:id", s.handleGetCampaign)
		api.POST("/campaigns", s.handleSubmitCampaign)
		api.GET("/campaigns/:id/donations", s.handleListDonations)
		api.GET("/categories", s.handleCategories)

		admin := api.Group("/admin")
		{
			admin.GET("/campaigns/pending", s.handlePendingCampaigns)
			admin.PUT("/campaigns/:id/status", s.handleReviewCampaign)
		}

		payments := api.Group("/payments")
		{
			payments.POST("/create-order", s.handleCreateOrder)
			payments.POST("/verify-payment", s.handleVerifyPayment)
			payments.POST("/webhook", s.handleWebhook)
		}
	}

	return r
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, s.health.Health())
}

// respondError maps the error taxonomy onto HTTP statuses. Idempotency
// no-ops never reach here; they report success upstream.
func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	message := "Internal server error."

	switch {
	case errors.Is(err, domain.ErrValidation):
		status = http.StatusBadRequest
		message = err.Error()
	case errors.Is(err, domain.ErrNotFound):
		status = http.StatusNotFound
		message = err.Error()
	case errors.Is(err, domain.ErrSignature):
		status = http.StatusBadRequest
		message = "Invalid signature."
	case errors.Is(err, domain.ErrGateway):
		status = http.StatusBadGateway
		message = "Payment gateway error."
	}

	c.JSON(status, gin.H{"success": false, "message": message})
}
