package repo

import (
	"context"
	"database/sql"

	"fundbridge/internal/domain"
)

type UserRepo interface {
	Create(ctx context.Context, u *domain.User) error
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
}

type userRepo struct {
	db *sql.DB
}

func NewUserRepo(db *sql.DB) UserRepo {
	return &userRepo{db: db}
}

func (r *userRepo) Create(ctx context.Context, u *domain.User) error {
	query := `
		INSERT INTO users (id, full_name, email, password_hash, user_type, account_type, mobile_number, ngo_id, dob, address, city, pincode, country, occupation)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`
	_, err := r.db.ExecContext(ctx, query,
		u.ID, u.FullName, u.Email, u.PasswordHash, u.UserType,
		nullable(u.AccountType), nullable(u.MobileNumber), nullable(u.NGOID), u.DOB,
		nullable(u.Address), nullable(u.City), nullable(u.Pincode), nullable(u.Country), nullable(u.Occupation),
	)
	return err
}

func (r *userRepo) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, COALESCE(full_name, ''), email, password_hash, user_type,
		       COALESCE(account_type, ''), COALESCE(mobile_number, ''), COALESCE(ngo_id, ''),
		       dob, COALESCE(address, ''), COALESCE(city, ''), COALESCE(pincode, ''),
		       COALESCE(country, ''), COALESCE(occupation, '')
		FROM users WHERE email = $1`, email)

	var u domain.User
	var dob sql.NullTime
	err := row.Scan(
		&u.ID,
		&u.FullName,
		&u.Email,
		&u.PasswordHash,
		&u.UserType,
		&u.AccountType,
		&u.MobileNumber,
		&u.NGOID,
		&dob,
		&u.Address,
		&u.City,
		&u.Pincode,
		&u.Country,
		&u.Occupation,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if dob.Valid {
		u.DOB = &dob.Time
	}
	return &u, nil
}
