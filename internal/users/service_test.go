// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package users

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/torrentindex/index/internal/auth"
	"github.com/torrentindex/index/internal/database"
	"github.com/torrentindex/index/internal/domain"
	"github.com/torrentindex/index/internal/models"
)

type fakeMailer struct {
	sent []string
}

func (f *fakeMailer) SendVerificationEmail(to, username, verificationURL string) error {
	f.sent = append(f.sent, to)
	return nil
}

func newTestDB(t *testing.T) *database.DB {
	t.Helper()
	dir := t.TempDir()
	db, err := database.Open(database.OpenOptions{
		Engine:  "sqlite",
		SQLPath: filepath.Join(dir, "test.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func testConfig() domain.Config {
	cfg := domain.Config{}
	cfg.Auth.SecretKey = "test-secret"
	cfg.Auth.UserClaimTokenPepper = "test-pepper"
	cfg.Auth.EmailOnSignup = domain.EmailOnSignupOptional
	cfg.Auth.PasswordConstraints = domain.PasswordConstraints{MinLength: 6, MaxLength: 64}
	return cfg
}

func newTestService(t *testing.T, cfg domain.Config) (*Service, *fakeMailer) {
	store := models.NewUserStore(newTestDB(t))
	mailer := &fakeMailer{}
	return New(store, mailer, cfg, zerolog.Nop()), mailer
}

func TestService_RegisterAndLogin(t *testing.T) {
	svc, mailer := newTestService(t, testConfig())
	ctx := context.Background()

	user, err := svc.Register(ctx, RegisterParams{
		Username:        "alice",
		Email:           "alice@example.com",
		Password:        "hunter22",
		ConfirmPassword: "hunter22",
		BaseURL:         "https://example.com",
	})
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)
	assert.Len(t, mailer.sent, 1)

	result, err := svc.Login(ctx, "alice", "hunter22")
	require.NoError(t, err)
	assert.Equal(t, "alice", result.Username)
	assert.NotEmpty(t, result.Token)
}

func TestService_RegisterPasswordMismatch(t *testing.T) {
	svc, _ := newTestService(t, testConfig())

	_, err := svc.Register(context.Background(), RegisterParams{
		Username:        "bob",
		Password:        "hunter22",
		ConfirmPassword: "different",
	})
	require.Error(t, err)
	svcErr, ok := err.(*domain.ServiceError)
	require.True(t, ok)
	assert.Equal(t, domain.CodePasswordsDontMatch, svcErr.Code)
}

func TestService_RegisterInvalidUsername(t *testing.T) {
	svc, _ := newTestService(t, testConfig())

	_, err := svc.Register(context.Background(), RegisterParams{
		Username:        "this username has spaces",
		Password:        "hunter22",
		ConfirmPassword: "hunter22",
	})
	require.Error(t, err)
	svcErr, ok := err.(*domain.ServiceError)
	require.True(t, ok)
	assert.Equal(t, domain.CodeUsernameInvalid, svcErr.Code)
}

func TestService_RegisterDuplicateUsername(t *testing.T) {
	svc, _ := newTestService(t, testConfig())
	ctx := context.Background()
	params := RegisterParams{Username: "carol", Password: "hunter22", ConfirmPassword: "hunter22"}

	_, err := svc.Register(ctx, params)
	require.NoError(t, err)

	_, err = svc.Register(ctx, params)
	require.Error(t, err)
	svcErr, ok := err.(*domain.ServiceError)
	require.True(t, ok)
	assert.Equal(t, domain.CodeUsernameTaken, svcErr.Code)
}

func TestService_LoginWrongPassword(t *testing.T) {
	svc, _ := newTestService(t, testConfig())
	ctx := context.Background()

	_, err := svc.Register(ctx, RegisterParams{Username: "dave", Password: "hunter22", ConfirmPassword: "hunter22"})
	require.NoError(t, err)

	_, err = svc.Login(ctx, "dave", "wrong-password")
	require.Error(t, err)
	svcErr, ok := err.(*domain.ServiceError)
	require.True(t, ok)
	assert.Equal(t, domain.ErrKindUnauthenticated, svcErr.Kind)
}

func TestService_LoginRequiresVerifiedEmail(t *testing.T) {
	cfg := testConfig()
	cfg.Auth.EmailOnSignup = domain.EmailOnSignupRequired
	svc, _ := newTestService(t, cfg)
	ctx := context.Background()

	_, err := svc.Register(ctx, RegisterParams{
		Username:        "erin",
		Email:           "erin@example.com",
		Password:        "hunter22",
		ConfirmPassword: "hunter22",
	})
	require.NoError(t, err)

	_, err = svc.Login(ctx, "erin", "hunter22")
	require.Error(t, err)
	svcErr, ok := err.(*domain.ServiceError)
	require.True(t, ok)
	assert.Equal(t, domain.CodeEmailNotVerified, svcErr.Code)
}

func TestService_VerifyEmailUnlocksLogin(t *testing.T) {
	cfg := testConfig()
	cfg.Auth.EmailOnSignup = domain.EmailOnSignupRequired
	svc, _ := newTestService(t, cfg)
	ctx := context.Background()

	user, err := svc.Register(ctx, RegisterParams{
		Username:        "frank",
		Email:           "frank@example.com",
		Password:        "hunter22",
		ConfirmPassword: "hunter22",
	})
	require.NoError(t, err)

	token, err := auth.SignEmailVerification(user.UserID, cfg.Auth.UserClaimTokenPepper, time.Now())
	require.NoError(t, err)

	require.NoError(t, svc.VerifyEmail(ctx, token))

	_, err = svc.Login(ctx, "frank", "hunter22")
	require.NoError(t, err)
}

func TestService_TokenRenewAndVerify(t *testing.T) {
	svc, _ := newTestService(t, testConfig())
	ctx := context.Background()

	_, err := svc.Register(ctx, RegisterParams{Username: "gina", Password: "hunter22", ConfirmPassword: "hunter22"})
	require.NoError(t, err)

	result, err := svc.Login(ctx, "gina", "hunter22")
	require.NoError(t, err)

	claims, err := svc.VerifyToken(result.Token)
	require.NoError(t, err)
	assert.Equal(t, "gina", claims.User.Username)

	renewed, err := svc.RenewToken(result.Token)
	require.NoError(t, err)
	assert.Equal(t, result.Token, renewed)
}

func TestService_BanPreventsLogin(t *testing.T) {
	svc, _ := newTestService(t, testConfig())
	ctx := context.Background()

	_, err := svc.Register(ctx, RegisterParams{Username: "hank", Password: "hunter22", ConfirmPassword: "hunter22"})
	require.NoError(t, err)

	require.NoError(t, svc.Ban(ctx, "hank", "spam", nil))

	_, err = svc.Login(ctx, "hank", "hunter22")
	require.Error(t, err)
	svcErr, ok := err.(*domain.ServiceError)
	require.True(t, ok)
	assert.Equal(t, domain.CodeUnauthorized, svcErr.Code)
}

func TestService_BanUnknownUser(t *testing.T) {
	svc, _ := newTestService(t, testConfig())

	err := svc.Ban(context.Background(), "nobody", "spam", nil)
	require.Error(t, err)
	svcErr, ok := err.(*domain.ServiceError)
	require.True(t, ok)
	assert.Equal(t, domain.CodeUserNotFound, svcErr.Code)
}

