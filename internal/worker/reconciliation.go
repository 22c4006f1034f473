package worker

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"fundbridge/internal/infrastructure/payment"
	"fundbridge/internal/repo"
	"fundbridge/internal/service"
)

const sweepBatchSize = 100

// ReconciliationWorker sweeps donations stuck in pending. The client callback
// is not guaranteed to fire (browser closed) and the webhook is not
// guaranteed to be fast or delivered at all; the sweep asks the gateway
// whether the order was actually captured and, if so, runs the same
// idempotent settlement the confirmation channels use. Orders the gateway
// never captured are simply left pending and expire on their own.
type ReconciliationWorker struct {
	donationRepo repo.DonationRepo
	gateway      payment.Gateway
	settlement   service.SettlementService
	interval     time.Duration
	cutoff       time.Duration
}

func NewReconciliationWorker(
	donationRepo repo.DonationRepo,
	gateway payment.Gateway,
	settlement service.SettlementService,
	interval time.Duration,
	cutoff time.Duration,
) *ReconciliationWorker {
	return &ReconciliationWorker{
		donationRepo: donationRepo,
		gateway:      gateway,
		settlement:   settlement,
		interval:     interval,
		cutoff:       cutoff,
	}
}

func (rw *ReconciliationWorker) Run(ctx context.Context) {
	ticker := time.NewTicker(rw.interval)
	defer ticker.Stop()

	log.Info("Reconciliation worker started")

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := rw.process(ctx); err != nil {
				log.WithError(err).Error("Reconciliation sweep failed")
			}
		}
	}
}

func (rw *ReconciliationWorker) process(ctx context.Context) error {
	stuck, err := rw.donationRepo.FindStuckPending(ctx, rw.cutoff, sweepBatchSize)
	if err != nil {
		return err
	}
	if len(stuck) == 0 {
		return nil
	}

	log.Infof("Found %d stuck pending donations, checking gateway", len(stuck))

	for _, d := range stuck {
		captured, err := rw.gateway.FetchCapturedPayment(ctx, d.OrderID)
		if err != nil {
			log.WithError(err).WithField("order_id", d.OrderID).
				Warn("gateway status check failed, will retry next sweep")
			continue
		}
		if captured == nil {
			continue // never captured; the pending row just never transitions
		}

		if err := rw.settlement.Settle(ctx, captured); err != nil {
			log.WithError(err).WithField("order_id", d.OrderID).
				Error("reconciliation settlement failed")
		}
	}
	return nil
}
