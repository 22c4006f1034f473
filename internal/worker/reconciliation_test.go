package worker

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fundbridge/internal/domain"
	"fundbridge/internal/infrastructure/payment"
	"fundbridge/internal/service"
)

type stubDonationRepo struct {
	stuck []domain.Donation
}

func (s *stubDonationRepo) CreatePending(context.Context, *domain.Donation) error { return nil }
func (s *stubDonationRepo) FindByOrderIdForUpdate(context.Context, *sql.Tx, string) (*domain.Donation, error) {
	return nil, nil
}
func (s *stubDonationRepo) MarkSettled(context.Context, *sql.Tx, string, string, decimal.Decimal) error {
	return nil
}
func (s *stubDonationRepo) InsertSettled(context.Context, *sql.Tx, *domain.Donation) (bool, error) {
	return false, nil
}
func (s *stubDonationRepo) ListSettledByCampaign(context.Context, uuid.UUID) ([]domain.Donation, error) {
	return nil, nil
}
func (s *stubDonationRepo) FindStuckPending(context.Context, time.Duration, int) ([]domain.Donation, error) {
	return s.stuck, nil
}

type stubGateway struct {
	captured map[string]*payment.GatewayPayment
	errs     map[string]error
}

func (g *stubGateway) CreateOrder(context.Context, int64, string, string, map[string]string) (*payment.GatewayOrder, error) {
	return nil, errors.New("not used")
}
func (g *stubGateway) FetchCapturedPayment(_ context.Context, orderID string) (*payment.GatewayPayment, error) {
	if err := g.errs[orderID]; err != nil {
		return nil, err
	}
	return g.captured[orderID], nil
}

type stubSettlement struct {
	settled []string
}

func (s *stubSettlement) CreateOrder(context.Context, service.CreateOrderRequest) (*service.OrderHandle, error) {
	return nil, errors.New("not used")
}
func (s *stubSettlement) ConfirmPayment(context.Context, string, string, string) error {
	return errors.New("not used")
}
func (s *stubSettlement) HandleWebhook(context.Context, []byte, string) error {
	return errors.New("not used")
}
func (s *stubSettlement) Settle(_ context.Context, p *payment.GatewayPayment) error {
	s.settled = append(s.settled, p.OrderID)
	return nil
}

func pendingDonation(orderID string) domain.Donation {
	return domain.Donation{
		ID:         uuid.New(),
		CampaignID: uuid.New(),
		DonorName:  "Ravi Kumar",
		Amount:     decimal.NewFromInt(500),
		OrderID:    orderID,
		Status:     domain.DonationPending,
		CreatedAt:  time.Now().Add(-time.Hour),
	}
}

func TestSweepSettlesCapturedOrders(t *testing.T) {
	repo := &stubDonationRepo{stuck: []domain.Donation{
		pendingDonation("order_captured"),
		pendingDonation("order_abandoned"),
	}}
	gateway := &stubGateway{captured: map[string]*payment.GatewayPayment{
		"order_captured": {ID: "pay_1", OrderID: "order_captured", AmountMinor: 50000},
	}}
	settlement := &stubSettlement{}

	rw := NewReconciliationWorker(repo, gateway, settlement, time.Second, time.Minute)
	require.NoError(t, rw.process(context.Background()))

	assert.Equal(t, []string{"order_captured"}, settlement.settled,
		"only gateway-captured orders settle; abandoned ones stay pending")
}

func TestSweepSkipsGatewayErrors(t *testing.T) {
	repo := &stubDonationRepo{stuck: []domain.Donation{
		pendingDonation("order_flaky"),
		pendingDonation("order_ok"),
	}}
	gateway := &stubGateway{
		captured: map[string]*payment.GatewayPayment{
			"order_ok": {ID: "pay_2", OrderID: "order_ok", AmountMinor: 50000},
		},
		errs: map[string]error{"order_flaky": errors.New("gateway down")},
	}
	settlement := &stubSettlement{}

	rw := NewReconciliationWorker(repo, gateway, settlement, time.Second, time.Minute)
	require.NoError(t, rw.process(context.Background()))

	assert.Equal(t, []string{"order_ok"}, settlement.settled,
		"a failing status check defers the order to the next sweep")
}
