package repo

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"fundbridge/internal/domain"
)

type DonationRepo interface {
	// tx *sql.Tx -> the caller controls the transaction boundary
	CreatePending(ctx context.Context, d *domain.Donation) error
	// FindByOrderIdForUpdate takes a row lock for the duration of the
	// transaction, so racing confirmation channels serialize on it.
	FindByOrderIdForUpdate(ctx context.Context, tx *sql.Tx, orderID string) (*domain.Donation, error)
	MarkSettled(ctx context.Context, tx *sql.Tx, orderID, paymentID string, amount decimal.Decimal) error
	// InsertSettled handles a webhook that lands before (or without) the
	// pending row. Returns false when another writer already holds the
	// razorpay_order_id; the unique constraint serializes the race.
	InsertSettled(ctx context.Context, tx *sql.Tx, d *domain.Donation) (bool, error)
	ListSettledByCampaign(ctx context.Context, campaignID uuid.UUID) ([]domain.Donation, error)
	FindStuckPending(ctx context.Context, olderThan time.Duration, limit int) ([]domain.Donation, error)
}

type donationRepo struct {
	db *sql.DB
}

func NewDonationRepo(db *sql.DB) DonationRepo {
	return &donationRepo{db: db}
}

func (r *donationRepo) CreatePending(ctx context.Context, d *domain.Donation) error {
	query := `
		INSERT INTO donations (id, campaign_id, donor_name, donor_pan, donor_email, anonymous, amount, razorpay_order_id, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err := r.db.ExecContext(ctx, query,
		d.ID, d.CampaignID, d.DonorName, nullable(d.DonorPAN), nullable(d.DonorEmail),
		d.Anonymous, d.Amount, d.OrderID, d.Status, d.CreatedAt,
	)
	return err
}

func (r *donationRepo) FindByOrderIdForUpdate(ctx context.Context, tx *sql.Tx, orderID string) (*domain.Donation, error) {
	row := tx.QueryRowContext(ctx, `
		SELECT id, campaign_id, donor_name, COALESCE(donor_pan, ''), COALESCE(donor_email, ''),
		       anonymous, amount, razorpay_order_id, COALESCE(razorpay_payment_id, ''), status, created_at
		FROM donations
		WHERE razorpay_order_id = $1
		FOR UPDATE`, orderID)

	var d domain.Donation
	err := row.Scan(
		&d.ID,
		&d.CampaignID,
		&d.DonorName,
		&d.DonorPAN,
		&d.DonorEmail,
		&d.Anonymous,
		&d.Amount,
		&d.OrderID,
		&d.PaymentID,
		&d.Status,
		&d.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil // not found
	}
	if err != nil {
		return nil, err // system error
	}
	return &d, nil
}

func (r *donationRepo) MarkSettled(ctx context.Context, tx *sql.Tx, orderID, paymentID string, amount decimal.Decimal) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE donations
		SET status = $1,
		    razorpay_payment_id = $2,
		    amount = $3
		WHERE razorpay_order_id = $4`,
		domain.DonationSuccess, paymentID, amount, orderID)
	return err
}

func (r *donationRepo) InsertSettled(ctx context.Context, tx *sql.Tx, d *domain.Donation) (bool, error) {
	res, err := tx.ExecContext(ctx, `
		INSERT INTO donations (id, campaign_id, donor_name, donor_pan, donor_email, anonymous, amount, razorpay_order_id, razorpay_payment_id, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (razorpay_order_id) DO NOTHING`,
		d.ID, d.CampaignID, d.DonorName, nullable(d.DonorPAN), nullable(d.DonorEmail),
		d.Anonymous, d.Amount, d.OrderID, d.PaymentID, domain.DonationSuccess, d.CreatedAt,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *donationRepo) ListSettledByCampaign(ctx context.Context, campaignID uuid.UUID) ([]domain.Donation, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, campaign_id, donor_name, COALESCE(donor_pan, ''), COALESCE(donor_email, ''),
		       anonymous, amount, razorpay_order_id, COALESCE(razorpay_payment_id, ''), status, created_at
		FROM donations
		WHERE campaign_id = $1 AND status = $2
		ORDER BY created_at DESC`, campaignID, domain.DonationSuccess)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanDonations(rows)
}

func (r *donationRepo) FindStuckPending(ctx context.Context, olderThan time.Duration, limit int) ([]domain.Donation, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, campaign_id, donor_name, COALESCE(donor_pan, ''), COALESCE(donor_email, ''),
		       anonymous, amount, razorpay_order_id, COALESCE(razorpay_payment_id, ''), status, created_at
		FROM donations
		WHERE status = $1 AND created_at < $2
		ORDER BY created_at ASC
		LIMIT $3`, domain.DonationPending, time.Now().Add(-olderThan), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanDonations(rows)
}

func scanDonations(rows *sql.Rows) ([]domain.Donation, error) {
	var out []domain.Donation
	for rows.Next() {
		var d domain.Donation
		err := rows.Scan(
			&d.ID,
			&d.CampaignID,
			&d.DonorName,
			&d.DonorPAN,
			&d.DonorEmail,
			&d.Anonymous,
			&d.Amount,
			&d.OrderID,
			&d.PaymentID,
			&d.Status,
			&d.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}
