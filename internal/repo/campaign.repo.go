package repo

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"fundbridge/internal/domain"
)

type CampaignRepo interface {
	Create(ctx context.Context, c *domain.Campaign) error
	FindById(ctx context.Context, id uuid.UUID) (*domain.CampaignSummary, error)
	ListApproved(ctx context.Context, category string) ([]domain.CampaignSummary, error)
	ListPending(ctx context.Context) ([]domain.CampaignSummary, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status domain.CampaignStatus) (*domain.Campaign, error)
	CategorySummaries(ctx context.Context) ([]domain.CategorySummary, error)
	// Credit adds amount to raised_amount and bumps supporters by one. It must
	// only ever be called from inside the settlement transaction that flips
	// the donation's status; nothing else may write raised_amount.
	Credit(ctx context.Context, tx *sql.Tx, id uuid.UUID, amount decimal.Decimal) error
}

type campaignRepo struct {
	db *sql.DB
}

func NewCampaignRepo(db *sql.DB) CampaignRepo {
	return &campaignRepo{db: db}
}

const campaignSummaryCols = `
	id, title, description, target_amount, raised_amount,
	creator_name, COALESCE(creator_email, ''), COALESCE(creator_phone, ''), COALESCE(creator_pan, ''),
	COALESCE(ngo_name, ''), COALESCE(ngo_address, ''), COALESCE(ngo_website, ''),
	image, end_date, supporters, COALESCE(location, ''), COALESCE(category, ''), status, created_at,
	GREATEST(0, FLOOR(DATE_PART('day', end_date - NOW())))::int AS days_left,
	ROUND((raised_amount / target_amount * 100)::numeric, 2) AS progress_percentage`

func scanCampaignSummary(row interface{ Scan(dest ...any) error }) (*domain.CampaignSummary, error) {
	var c domain.CampaignSummary
	err := row.Scan(
		&c.ID,
		&c.Title,
		&c.Description,
		&c.TargetAmount,
		&c.RaisedAmount,
		&c.CreatorName,
		&c.CreatorEmail,
		&c.CreatorPhone,
		&c.CreatorPAN,
		&c.NGOName,
		&c.NGOAddress,
		&c.NGOWebsite,
		&c.Image,
		&c.EndDate,
		&c.Supporters,
		&c.Location,
		&c.Category,
		&c.Status,
		&c.CreatedAt,
		&c.DaysLeft,
		&c.ProgressPercentage,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *campaignRepo) Create(ctx context.Context, c *domain.Campaign) error {
	query := `
		INSERT INTO campaigns (
			id, creator_name, creator_email, creator_phone, creator_pan,
			title, description, target_amount, category,
			end_date, location, image,
			ngo_name, ngo_address, ngo_website, status, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`
	_, err := r.db.ExecContext(ctx, query,
		c.ID, c.CreatorName, nullable(c.CreatorEmail), nullable(c.CreatorPhone), nullable(c.CreatorPAN),
		c.Title, c.Description, c.TargetAmount, c.Category,
		c.EndDate, c.Location, c.Image,
		nullable(c.NGOName), nullable(c.NGOAddress), nullable(c.NGOWebsite), c.Status, c.CreatedAt,
	)
	return err
}

func (r *campaignRepo) FindById(ctx context.Context, id uuid.UUID) (*domain.CampaignSummary, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+campaignSummaryCols+` FROM campaigns WHERE id = $1`, id)
	c, err := scanCampaignSummary(row)
	if err == sql.ErrNoRows {
		return nil, nil // not found
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (r *campaignRepo) ListApproved(ctx context.Context, category string) ([]domain.CampaignSummary, error) {
	query := `SELECT ` + campaignSummaryCols + `
		FROM campaigns
		WHERE status = 'approved' AND end_date >= NOW()`
	args := []any{}
	if category != "" {
		query += ` AND category = $1`
		args = append(args, category)
	}
	query += ` ORDER BY created_at DESC`

	return r.list(ctx, query, args...)
}

func (r *campaignRepo) ListPending(ctx context.Context) ([]domain.CampaignSummary, error) {
	query := `SELECT ` + campaignSummaryCols + `
		FROM campaigns
		WHERE status = 'pending'
		ORDER BY created_at ASC`
	return r.list(ctx, query)
}

func (r *campaignRepo) list(ctx context.Context, query string, args ...any) ([]domain.CampaignSummary, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.CampaignSummary
	for rows.Next() {
		c, err := scanCampaignSummary(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

func (r *campaignRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.CampaignStatus) (*domain.Campaign, error) {
	row := r.db.QueryRowContext(ctx, `
		UPDATE campaigns SET status = $1 WHERE id = $2
		RETURNING id, title, status`, status, id)

	var c domain.Campaign
	err := row.Scan(&c.ID, &c.Title, &c.Status)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *campaignRepo) CategorySummaries(ctx context.Context) ([]domain.CategorySummary, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT
			category,
			COUNT(*) AS campaign_count,
			SUM(target_amount) AS total_goal,
			SUM(raised_amount) AS total_raised
		FROM campaigns
		WHERE status = 'approved' AND category IS NOT NULL AND end_date >= NOW()
		GROUP BY category
		ORDER BY category`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.CategorySummary
	for rows.Next() {
		var s domain.CategorySummary
		if err := rows.Scan(&s.Category, &s.CampaignCount, &s.TotalGoal, &s.TotalRaised); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *campaignRepo) Credit(ctx context.Context, tx *sql.Tx, id uuid.UUID, amount decimal.Decimal) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE campaigns
		SET raised_amount = raised_amount + $1,
		    supporters = supporters + 1
		WHERE id = $2`, amount, id)
	return err
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

