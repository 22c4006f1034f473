package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"

	"fundbridge/internal/config"
	"fundbridge/internal/database"
	"fundbridge/internal/infrastructure/mail"
	"fundbridge/internal/infrastructure/payment"
	"fundbridge/internal/notifier"
	"fundbridge/internal/realtime"
	"fundbridge/internal/repo"
	"fundbridge/internal/server"
	"fundbridge/internal/service"
	"fundbridge/internal/worker"
)

func main() {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("configuration error")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(cfg.DatabaseURL)
	if err != nil {
		log.WithError(err).Fatal("database connection failed")
	}
	defer db.Close()

	if err := database.Init(ctx, db); err != nil {
		log.WithError(err).Fatal("database initialization failed")
	}

	campaignRepo := repo.NewCampaignRepo(db)
	donationRepo := repo.NewDonationRepo(db)
	userRepo := repo.NewUserRepo(db)

	gateway := payment.NewRazorpayGateway(cfg.RazorpayKeyID, cfg.RazorpayKeySecret, "", cfg.GatewayTimeout)

	var receipts mail.ReceiptNotifier = mail.NoopNotifier{}
	if cfg.SMTPHost != "" {
		receipts = mail.NewSMTPNotifier(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPFrom)
	}

	settlement := service.NewSettlementService(
		db, campaignRepo, donationRepo, gateway, receipts,
		cfg.RazorpayKeyID, cfg.RazorpayKeySecret, cfg.RazorpayWebhookSecret,
		cfg.MinDonation,
	)
	campaigns := service.NewCampaignService(campaignRepo, donationRepo)
	auth := service.NewAuthService(userRepo)

	hub := realtime.NewHub()
	go hub.Run(ctx)

	listener := notifier.NewListener(cfg.DatabaseURL, hub)
	go listener.Run(ctx)

	reconciler := worker.NewReconciliationWorker(donationRepo, gateway, settlement, cfg.ReconcileInterval, cfg.ReconcileCutoff)
	go reconciler.Run(ctx)

	srv := server.New(campaigns, settlement, auth, hub, database.New(db))
	httpServer := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: srv.Router(),
	}

	go func() {
		log.Infof("Server running at %s", cfg.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("http server failed")
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("graceful shutdown failed")
	}
}
