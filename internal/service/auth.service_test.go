package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fundbridge/internal/database"
	"fundbridge/internal/domain"
	"fundbridge/internal/repo"
	"fundbridge/internal/service"
)

func newAuthService(t *testing.T) service.AuthService {
	t.Helper()
	ctx := context.Background()

	db, err := database.NewPostgres(testConnStr)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.Init(ctx, db))

	return service.NewAuthService(repo.NewUserRepo(db))
}

func TestSignupAndLogin(t *testing.T) {
	auth := newAuthService(t)
	ctx := context.Background()

	req := service.SignupRequest{
		FullName: "Asha Rao",
		Email:    "asha@example.com",
		Password: "correct horse battery staple",
	}
	require.NoError(t, auth.Signup(ctx, req))

	user, err := auth.Login(ctx, req.Email, req.Password)
	require.NoError(t, err)
	assert.Equal(t, req.Email, user.Email)
	assert.Equal(t, "user", user.UserType)
	assert.NotEqual(t, req.Password, user.PasswordHash)
}

func TestSignupDuplicateEmail(t *testing.T) {
	auth := newAuthService(t)
	ctx := context.Background()

	req := service.SignupRequest{Email: "dup@example.com", Password: "hunter22"}
	require.NoError(t, auth.Signup(ctx, req))

	err := auth.Signup(ctx, req)
	require.ErrorIs(t, err, domain.ErrValidation)
}

func TestLoginWrongPassword(t *testing.T) {
	auth := newAuthService(t)
	ctx := context.Background()

	require.NoError(t, auth.Signup(ctx, service.SignupRequest{
		Email:    "ravi@example.com",
		Password: "right password",
	}))

	_, err := auth.Login(ctx, "ravi@example.com", "wrong password")
	require.ErrorIs(t, err, domain.ErrValidation)

	_, err = auth.Login(ctx, "nobody@example.com", "whatever")
	require.ErrorIs(t, err, domain.ErrNotFound)
}
