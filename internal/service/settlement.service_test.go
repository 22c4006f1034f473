package service_test

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"fundbridge/internal/database"
	"fundbridge/internal/domain"
	"fundbridge/internal/infrastructure/mail"
	"fundbridge/internal/infrastructure/payment"
	"fundbridge/internal/notifier"
	"fundbridge/internal/repo"
	"fundbridge/internal/service"
)

const (
	testKeyID         = "rzp_test_key"
	testKeySecret     = "test_key_secret"
	testWebhookSecret = "test_webhook_secret"
)

var testConnStr string

func TestMain(m *testing.M) {
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("fundbridge_test"),
		tcpostgres.WithUsername("test"),
		tcpostgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		fmt.Fprintf(os.Stderr, "start postgres container: %v\n", err)
		os.Exit(1)
	}

	testConnStr, err = container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		fmt.Fprintf(os.Stderr, "container connection string: %v\n", err)
		os.Exit(1)
	}

	code := m.Run()
	_ = container.Terminate(ctx)
	os.Exit(code)
}

type fixture struct {
	db         *sql.DB
	gateway    *payment.MockGateway
	settlement service.SettlementService
	campaigns  repo.CampaignRepo
	donations  repo.DonationRepo
	campaignID uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	db, err := database.NewPostgres(testConnStr)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.Init(ctx, db))

	campaigns := repo.NewCampaignRepo(db)
	donations := repo.NewDonationRepo(db)
	gateway := payment.NewMockGateway()

	settlement := service.NewSettlementService(
		db, campaigns, donations, gateway, mail.NoopNotifier{},
		testKeyID, testKeySecret, testWebhookSecret,
		decimal.NewFromInt(50),
	)

	campaign := &domain.Campaign{
		ID:           uuid.New(),
		Title:        "Clean water for Dharwad",
		Description:  "Borewell and filtration for three villages.",
		TargetAmount: decimal.NewFromInt(1000),
		CreatorName:  "Asha Rao",
		Image:        "water.jpg",
		EndDate:      time.Now().AddDate(0, 1, 0),
		Category:     "Water",
		Status:       domain.CampaignPending,
		CreatedAt:    time.Now(),
	}
	require.NoError(t, campaigns.Create(ctx, campaign))
	_, err = campaigns.UpdateStatus(ctx, campaign.ID, domain.CampaignApproved)
	require.NoError(t, err)

	return &fixture{
		db:         db,
		gateway:    gateway,
		settlement: settlement,
		campaigns:  campaigns,
		donations:  donations,
		campaignID: campaign.ID,
	}
}

func (f *fixture) totals(t *testing.T) (decimal.Decimal, int) {
	t.Helper()
	var raised decimal.Decimal
	var supporters int
	err := f.db.QueryRow(
		`SELECT raised_amount, supporters FROM campaigns WHERE id = $1`, f.campaignID,
	).Scan(&raised, &supporters)
	require.NoError(t, err)
	return raised, supporters
}

func (f *fixture) donationCount(t *testing.T) int {
	t.Helper()
	var n int
	err := f.db.QueryRow(
		`SELECT COUNT(*) FROM donations WHERE campaign_id = $1`, f.campaignID,
	).Scan(&n)
	require.NoError(t, err)
	return n
}

func (f *fixture) createOrder(t *testing.T, amount int64) *service.OrderHandle {
	t.Helper()
	handle, err := f.settlement.CreateOrder(context.Background(), service.CreateOrderRequest{
		CampaignID: f.campaignID,
		Amount:     decimal.NewFromInt(amount),
		DonorName:  "Ravi Kumar",
		DonorEmail: "ravi@example.com",
	})
	require.NoError(t, err)
	return handle
}

func webhookBody(t *testing.T, p *payment.GatewayPayment) []byte {
	t.Helper()
	body, err := json.Marshal(map[string]any{
		"event": "payment.captured",
		"payload": map[string]any{
			"payment": map[string]any{
				"entity": map[string]any{
					"id":       p.ID,
					"order_id": p.OrderID,
					"amount":   p.AmountMinor,
					"email":    p.Email,
					"contact":  p.Contact,
					"notes":    p.Notes,
				},
			},
		},
	})
	require.NoError(t, err)
	return body
}

func TestCreateOrderBelowFloor(t *testing.T) {
	f := newFixture(t)

	_, err := f.settlement.CreateOrder(context.Background(), service.CreateOrderRequest{
		CampaignID: f.campaignID,
		Amount:     decimal.NewFromInt(10),
		DonorName:  "Ravi Kumar",
	})
	require.ErrorIs(t, err, domain.ErrValidation)
	assert.Equal(t, 0, f.donationCount(t), "no donation row for a rejected order")
}

func TestCreateOrderUnknownCampaign(t *testing.T) {
	f := newFixture(t)

	_, err := f.settlement.CreateOrder(context.Background(), service.CreateOrderRequest{
		CampaignID: uuid.New(),
		Amount:     decimal.NewFromInt(500),
		DonorName:  "Ravi Kumar",
	})
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCreateOrderPersistsPendingRow(t *testing.T) {
	f := newFixture(t)

	handle := f.createOrder(t, 500)
	assert.Equal(t, testKeyID, handle.KeyID)
	assert.Equal(t, int64(50000), handle.AmountMinor)
	assert.Equal(t, "INR", handle.Currency)

	var status string
	err := f.db.QueryRow(
		`SELECT status FROM donations WHERE razorpay_order_id = $1`, handle.OrderID,
	).Scan(&status)
	require.NoError(t, err)
	assert.Equal(t, "pending", status)

	raised, supporters := f.totals(t)
	assert.True(t, raised.IsZero(), "order creation must not credit")
	assert.Equal(t, 0, supporters)
}

func TestConfirmPaymentRejectsTamperedSignature(t *testing.T) {
	f := newFixture(t)
	handle := f.createOrder(t, 500)

	captured, err := f.gateway.Capture(handle.OrderID, "ravi@example.com", "", 0)
	require.NoError(t, err)

	bad := payment.SignPayment(handle.OrderID, captured.ID, "not the secret")
	err = f.settlement.ConfirmPayment(context.Background(), handle.OrderID, captured.ID, bad)
	require.ErrorIs(t, err, domain.ErrSignature)

	raised, supporters := f.totals(t)
	assert.True(t, raised.IsZero())
	assert.Equal(t, 0, supporters)

	var status string
	require.NoError(t, f.db.QueryRow(
		`SELECT status FROM donations WHERE razorpay_order_id = $1`, handle.OrderID,
	).Scan(&status))
	assert.Equal(t, "pending", status, "donation stays pending after a rejected signature")
}

func TestConfirmThenDuplicateWebhookCreditsOnce(t *testing.T) {
	f := newFixture(t)
	handle := f.createOrder(t, 500)

	captured, err := f.gateway.Capture(handle.OrderID, "ravi@example.com", "", 0)
	require.NoError(t, err)

	sig := payment.SignPayment(handle.OrderID, captured.ID, testKeySecret)
	require.NoError(t, f.settlement.ConfirmPayment(context.Background(), handle.OrderID, captured.ID, sig))

	raised, supporters := f.totals(t)
	assert.True(t, raised.Equal(decimal.NewFromInt(500)), "raised = %s", raised)
	assert.Equal(t, 1, supporters)

	// The webhook for the same capture arrives afterwards.
	body := webhookBody(t, captured)
	wsig := payment.SignWebhookBody(body, testWebhookSecret)
	require.NoError(t, f.settlement.HandleWebhook(context.Background(), body, wsig))

	raised, supporters = f.totals(t)
	assert.True(t, raised.Equal(decimal.NewFromInt(500)), "duplicate webhook must not double credit")
	assert.Equal(t, 1, supporters)
	assert.Equal(t, 1, f.donationCount(t))

	// And replaying the client callback is equally harmless.
	require.NoError(t, f.settlement.ConfirmPayment(context.Background(), handle.OrderID, captured.ID, sig))
	raised, supporters = f.totals(t)
	assert.True(t, raised.Equal(decimal.NewFromInt(500)))
	assert.Equal(t, 1, supporters)
}

func TestWebhookBeforeConfirmUsesCapturedAmount(t *testing.T) {
	f := newFixture(t)
	handle := f.createOrder(t, 500)

	// Gateway captured a different amount than the client claimed; the
	// gateway-reported figure is authoritative.
	captured, err := f.gateway.Capture(handle.OrderID, "ravi@example.com", "", 40000)
	require.NoError(t, err)

	body := webhookBody(t, captured)
	wsig := payment.SignWebhookBody(body, testWebhookSecret)
	require.NoError(t, f.settlement.HandleWebhook(context.Background(), body, wsig))

	raised, supporters := f.totals(t)
	assert.True(t, raised.Equal(decimal.NewFromInt(400)), "raised = %s", raised)
	assert.Equal(t, 1, supporters)

	var amount decimal.Decimal
	require.NoError(t, f.db.QueryRow(
		`SELECT amount FROM donations WHERE razorpay_order_id = $1`, handle.OrderID,
	).Scan(&amount))
	assert.True(t, amount.Equal(decimal.NewFromInt(400)))

	// The late client callback reports success without crediting again.
	sig := payment.SignPayment(handle.OrderID, captured.ID, testKeySecret)
	require.NoError(t, f.settlement.ConfirmPayment(context.Background(), handle.OrderID, captured.ID, sig))

	raised, supporters = f.totals(t)
	assert.True(t, raised.Equal(decimal.NewFromInt(400)))
	assert.Equal(t, 1, supporters)
}

func TestWebhookWithoutPendingRowInsertsSettled(t *testing.T) {
	f := newFixture(t)

	// The webhook can land before the pending row exists (or for an order
	// created through another surface); the metadata notes carry everything
	// needed to settle it.
	captured := &payment.GatewayPayment{
		ID:          "pay_direct_1",
		OrderID:     "order_direct_1",
		AmountMinor: 25000,
		Email:       "direct@example.com",
		Notes: map[string]string{
			"campaignId": f.campaignID.String(),
			"donorName":  "Direct Donor",
			"anonymous":  "false",
		},
	}

	body := webhookBody(t, captured)
	wsig := payment.SignWebhookBody(body, testWebhookSecret)
	require.NoError(t, f.settlement.HandleWebhook(context.Background(), body, wsig))

	raised, supporters := f.totals(t)
	assert.True(t, raised.Equal(decimal.NewFromInt(250)), "raised = %s", raised)
	assert.Equal(t, 1, supporters)

	var status, donor string
	require.NoError(t, f.db.QueryRow(
		`SELECT status, donor_name FROM donations WHERE razorpay_order_id = $1`, captured.OrderID,
	).Scan(&status, &donor))
	assert.Equal(t, "success", status)
	assert.Equal(t, "Direct Donor", donor)

	// Redelivery of the same event is a no-op.
	require.NoError(t, f.settlement.HandleWebhook(context.Background(), body, wsig))
	raised, supporters = f.totals(t)
	assert.True(t, raised.Equal(decimal.NewFromInt(250)))
	assert.Equal(t, 1, supporters)
}

func TestWebhookRejectsTamperedSignature(t *testing.T) {
	f := newFixture(t)
	handle := f.createOrder(t, 500)

	captured, err := f.gateway.Capture(handle.OrderID, "ravi@example.com", "", 0)
	require.NoError(t, err)

	body := webhookBody(t, captured)
	err = f.settlement.HandleWebhook(context.Background(), body, payment.SignWebhookBody(body, "wrong"))
	require.ErrorIs(t, err, domain.ErrSignature)

	raised, supporters := f.totals(t)
	assert.True(t, raised.IsZero())
	assert.Equal(t, 0, supporters)
}

func TestConcurrentConfirmAndWebhookCreditExactlyOnce(t *testing.T) {
	f := newFixture(t)
	handle := f.createOrder(t, 500)

	captured, err := f.gateway.Capture(handle.OrderID, "ravi@example.com", "", 0)
	require.NoError(t, err)

	sig := payment.SignPayment(handle.OrderID, captured.ID, testKeySecret)
	body := webhookBody(t, captured)
	wsig := payment.SignWebhookBody(body, testWebhookSecret)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			assert.NoError(t, f.settlement.ConfirmPayment(context.Background(), handle.OrderID, captured.ID, sig))
		}()
		go func() {
			defer wg.Done()
			assert.NoError(t, f.settlement.HandleWebhook(context.Background(), body, wsig))
		}()
	}
	wg.Wait()

	raised, supporters := f.totals(t)
	assert.True(t, raised.Equal(decimal.NewFromInt(500)), "raised = %s after racing channels", raised)
	assert.Equal(t, 1, supporters)
	assert.Equal(t, 1, f.donationCount(t))
}

// failingCreditRepo breaks the credit transaction after the donation status
// has already flipped inside it.
type failingCreditRepo struct {
	repo.CampaignRepo
}

func (failingCreditRepo) Credit(context.Context, *sql.Tx, uuid.UUID, decimal.Decimal) error {
	return errors.New("campaign row gone")
}

func TestCreditFailureRollsBackWholeTransaction(t *testing.T) {
	f := newFixture(t)
	handle := f.createOrder(t, 500)

	captured, err := f.gateway.Capture(handle.OrderID, "ravi@example.com", "", 0)
	require.NoError(t, err)

	broken := service.NewSettlementService(
		f.db, failingCreditRepo{f.campaigns}, f.donations, f.gateway, mail.NoopNotifier{},
		testKeyID, testKeySecret, testWebhookSecret,
		decimal.NewFromInt(50),
	)

	sig := payment.SignPayment(handle.OrderID, captured.ID, testKeySecret)
	err = broken.ConfirmPayment(context.Background(), handle.OrderID, captured.ID, sig)
	require.ErrorIs(t, err, domain.ErrPersistence)

	// The status flip happened inside the failed transaction, so it must be
	// gone along with everything else.
	var status string
	require.NoError(t, f.db.QueryRow(
		`SELECT status FROM donations WHERE razorpay_order_id = $1`, handle.OrderID,
	).Scan(&status))
	assert.Equal(t, "pending", status, "rollback must restore the pending status")

	raised, supporters := f.totals(t)
	assert.True(t, raised.IsZero(), "no partial credit may survive the rollback")
	assert.Equal(t, 0, supporters)

	// The donation is still settleable once the fault clears.
	require.NoError(t, f.settlement.ConfirmPayment(context.Background(), handle.OrderID, captured.ID, sig))
	raised, supporters = f.totals(t)
	assert.True(t, raised.Equal(decimal.NewFromInt(500)))
	assert.Equal(t, 1, supporters)
}

type chanBroadcaster chan domain.CampaignUpdate

func (c chanBroadcaster) BroadcastCampaignUpdate(u domain.CampaignUpdate) {
	c <- u
}

func TestCreditPublishesExactlyOneChangeEvent(t *testing.T) {
	f := newFixture(t)

	updates := make(chanBroadcaster, 8)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	listener := notifier.NewListener(testConnStr, updates)
	go listener.Run(ctx)
	// Give the dedicated connection time to issue LISTEN.
	time.Sleep(time.Second)

	handle := f.createOrder(t, 500)
	captured, err := f.gateway.Capture(handle.OrderID, "ravi@example.com", "", 0)
	require.NoError(t, err)

	sig := payment.SignPayment(handle.OrderID, captured.ID, testKeySecret)
	require.NoError(t, f.settlement.ConfirmPayment(context.Background(), handle.OrderID, captured.ID, sig))

	select {
	case u := <-updates:
		assert.Equal(t, f.campaignID, u.ID)
		assert.True(t, u.RaisedAmount.Equal(decimal.NewFromInt(500)), "event carries post-credit totals")
		assert.True(t, u.TargetAmount.Equal(decimal.NewFromInt(1000)))
		assert.Equal(t, 1, u.Supporters)
	case <-time.After(10 * time.Second):
		t.Fatal("no campaign_update notification after credit")
	}

	// A duplicate confirmation is a no-op and must not publish again.
	body := webhookBody(t, captured)
	require.NoError(t, f.settlement.HandleWebhook(context.Background(), body, payment.SignWebhookBody(body, testWebhookSecret)))

	select {
	case u := <-updates:
		t.Fatalf("unexpected second campaign_update: %+v", u)
	case <-time.After(700 * time.Millisecond):
	}
}
