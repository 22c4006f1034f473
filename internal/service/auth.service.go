package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"fundbridge/internal/domain"
	"fundbridge/internal/repo"
)

type SignupRequest struct {
	FullName     string
	Email        string
	Password     string
	UserType     string
	AccountType  string
	MobileNumber string
	NGOID        string
	DOB          *time.Time
	Address      string
	City         string
	Pincode      string
	Country      string
	Occupation   string
}

// AuthService is a password-hash check with no token issuance; sessions are
// out of scope.
type AuthService interface {
	Signup(ctx context.Context, req SignupRequest) error
	Login(ctx context.Context, email, password string) (*domain.User, error)
}

type authService struct {
	userRepo repo.UserRepo
}

func NewAuthService(userRepo repo.UserRepo) AuthService {
	return &authService{userRepo: userRepo}
}

func (s *authService) Signup(ctx context.Context, req SignupRequest) error {
	if req.Email == "" || req.Password == "" {
		return fmt.Errorf("%w: email and password are required", domain.ErrValidation)
	}

	existing, err := s.userRepo.FindByEmail(ctx, req.Email)
	if err != nil {
		return fmt.Errorf("%w: lookup user: %v", domain.ErrPersistence, err)
	}
	if existing != nil {
		return fmt.Errorf("%w: email already registered", domain.ErrValidation)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	userType := req.UserType
	if userType == "" {
		userType = "user"
	}

	u := &domain.User{
		ID:           uuid.New(),
		FullName:     req.FullName,
		Email:        req.Email,
		PasswordHash: string(hash),
		UserType:     userType,
		AccountType:  req.AccountType,
		MobileNumber: req.MobileNumber,
		NGOID:        req.NGOID,
		DOB:          req.DOB,
		Address:      req.Address,
		City:         req.City,
		Pincode:      req.Pincode,
		Country:      req.Country,
		Occupation:   req.Occupation,
	}
	if err := s.userRepo.Create(ctx, u); err != nil {
		return fmt.Errorf("%w: create user: %v", domain.ErrPersistence, err)
	}
	return nil
}

func (s *authService) Login(ctx context.Context, email, password string) (*domain.User, error) {
	u, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("%w: lookup user: %v", domain.ErrPersistence, err)
	}
	if u == nil {
		return nil, fmt.Errorf("%w: unknown email", domain.ErrNotFound)
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return nil, fmt.Errorf("%w: invalid email or password", domain.ErrValidation)
	}
	return u, nil
}
