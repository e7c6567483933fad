// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package users composes the user repository, the authorization core and
// the mailer into the registration/login/verification/ban flows spec.md
// §4.10 describes as the index's authorization core.
package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/torrentindex/index/internal/auth"
	"github.com/torrentindex/index/internal/domain"
	"github.com/torrentindex/index/internal/mail"
	"github.com/torrentindex/index/internal/models"
)

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,20}$`)

// Service composes the user repository, password/token primitives and the
// mailer into the register/login/verify/renew/ban flows of the
// authorization core.
type Service struct {
	users  *models.UserStore
	mailer mail.Mailer
	cfg    domain.Config
	log    zerolog.Logger
}

func New(users *models.UserStore, mailer mail.Mailer, cfg domain.Config, log zerolog.Logger) *Service {
	return &Service{
		users:  users,
		mailer: mailer,
		cfg:    cfg,
		log:    log.With().Str("component", "users_service").Logger(),
	}
}

// RegisterParams is the input to Register.
type RegisterParams struct {
	Username        string
	Email           string
	Password        string
	ConfirmPassword string
	BaseURL         string
}

// LoginResult is returned by Login.
type LoginResult struct {
	Token         string
	Username      string
	Administrator bool
}

// Register validates and creates a new account, sending a verification
// email when the configured policy requires one. The returned user has no
// session; callers must call Login separately.
func (s *Service) Register(ctx context.Context, params RegisterParams) (*models.User, error) {
	if err := s.validateRegistration(params); err != nil {
		return nil, err
	}

	passwordHash, err := auth.HashPassword(params.Password)
	if err != nil {
		return nil, domain.WrapServiceError(domain.ErrKindInternal, domain.CodeInternalServerError, err)
	}

	user, err := s.users.Register(ctx, params.Username, params.Email, passwordHash)
	if err != nil {
		return nil, translateUserStoreError(err)
	}

	if s.cfg.Auth.EmailOnSignup != domain.EmailOnSignupIgnored && user.Email != "" {
		if err := s.sendVerificationEmail(user, params.BaseURL); err != nil {
			s.log.Error().Err(err).Int64("user_id", user.UserID).Msg("registration succeeded but verification email failed")
			return nil, domain.WrapServiceError(domain.ErrKindExternal, domain.CodeFailedToSendVerificationEmail, err)
		}
	}

	return user, nil
}

func (s *Service) validateRegistration(p RegisterParams) error {
	if !usernamePattern.MatchString(p.Username) {
		return domain.NewServiceError(domain.ErrKindValidation, domain.CodeUsernameInvalid, "username must be 1-20 characters of letters, digits, underscore or hyphen")
	}

	switch s.cfg.Auth.EmailOnSignup {
	case domain.EmailOnSignupRequired:
		if strings.TrimSpace(p.Email) == "" {
			return domain.NewServiceError(domain.ErrKindValidation, domain.CodeEmailMissing, "email is required")
		}
	}
	if p.Email != "" && !strings.Contains(p.Email, "@") {
		return domain.NewServiceError(domain.ErrKindValidation, domain.CodeEmailInvalid, "email is invalid")
	}

	if p.Password != p.ConfirmPassword {
		return domain.NewServiceError(domain.ErrKindValidation, domain.CodePasswordsDontMatch, "passwords do not match")
	}

	min := s.cfg.Auth.PasswordConstraints.MinLength
	max := s.cfg.Auth.PasswordConstraints.MaxLength
	if min > 0 && len(p.Password) < min {
		return domain.NewServiceError(domain.ErrKindValidation, domain.CodePasswordTooShort, fmt.Sprintf("password must be at least %d characters", min))
	}
	if max > 0 && len(p.Password) > max {
		return domain.NewServiceError(domain.ErrKindValidation, domain.CodePasswordTooLong, fmt.Sprintf("password must be at most %d characters", max))
	}

	return nil
}

func (s *Service) sendVerificationEmail(user *models.User, baseURL string) error {
	token, err := auth.SignEmailVerification(user.UserID, s.cfg.Auth.UserClaimTokenPepper, time.Now())
	if err != nil {
		return fmt.Errorf("sign verification token: %w", err)
	}

	url := s.cfg.Net.BaseURL
	if url == "" {
		url = baseURL
	}
	verificationURL := fmt.Sprintf("%s/v1/user/email/verify/%s", strings.TrimRight(url, "/"), token)

	return s.mailer.SendVerificationEmail(user.Email, user.Username, verificationURL)
}

// VerifyEmail marks the user embedded in token as verified.
func (s *Service) VerifyEmail(ctx context.Context, token string) error {
	userID, err := auth.VerifyEmailVerification(token, s.cfg.Auth.UserClaimTokenPepper, time.Now())
	if err != nil {
		return translateTokenError(err)
	}
	if err := s.users.SetEmailVerified(ctx, userID); err != nil {
		return translateUserStoreError(err)
	}
	return nil
}

// Login authenticates a username/password pair and issues a bearer token.
func (s *Service) Login(ctx context.Context, login, password string) (*LoginResult, error) {
	user, err := s.users.GetByUsername(ctx, login)
	if err != nil {
		if errors.Is(err, models.ErrUserNotFound) {
			return nil, domain.NewServiceError(domain.ErrKindUnauthenticated, domain.CodeUserNotFound, "invalid credentials")
		}
		return nil, domain.WrapServiceError(domain.ErrKindInternal, domain.CodeDatabaseError, err)
	}

	ok, err := auth.VerifyPasswordHash(password, user.PasswordHash)
	if err != nil || !ok {
		return nil, domain.NewServiceError(domain.ErrKindUnauthenticated, domain.CodeUserNotFound, "invalid credentials")
	}

	banned, err := s.users.IsBanned(ctx, user.UserID)
	if err != nil {
		return nil, domain.WrapServiceError(domain.ErrKindInternal, domain.CodeDatabaseError, err)
	}
	if banned {
		return nil, domain.NewServiceError(domain.ErrKindUnauthorized, domain.CodeUnauthorized, "account is banned")
	}

	if s.cfg.Auth.EmailVerificationRequired() && user.Email != "" && !user.EmailVerified {
		return nil, domain.NewServiceError(domain.ErrKindUnauthenticated, domain.CodeEmailNotVerified, "email not verified")
	}

	token, err := auth.Sign(auth.UserClaims{
		UserID:        user.UserID,
		Username:      user.Username,
		Administrator: user.IsAdministrator,
	}, s.cfg.Auth.SecretKey, time.Now())
	if err != nil {
		return nil, domain.WrapServiceError(domain.ErrKindInternal, domain.CodeInternalServerError, err)
	}

	return &LoginResult{Token: token, Username: user.Username, Administrator: user.IsAdministrator}, nil
}

// VerifyToken validates a bearer token and returns its claims.
func (s *Service) VerifyToken(token string) (*auth.Claims, error) {
	claims, err := auth.Verify(token, s.cfg.Auth.SecretKey, time.Now())
	if err != nil {
		return nil, translateTokenError(err)
	}
	return claims, nil
}

// RenewToken extends a still-valid bearer token per internal/auth's renewal
// threshold, returning the same token unchanged if it isn't close to expiry.
func (s *Service) RenewToken(token string) (string, error) {
	renewed, err := auth.Renew(token, s.cfg.Auth.SecretKey, time.Now())
	if err != nil {
		return "", translateTokenError(err)
	}
	return renewed, nil
}

// Ban bans username, optionally until a given expiry. A nil expiry bans
// indefinitely.
func (s *Service) Ban(ctx context.Context, username, reason string, expiry *time.Time) error {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, models.ErrUserNotFound) {
			return domain.NewServiceError(domain.ErrKindNotFound, domain.CodeUserNotFound, "user not found")
		}
		return domain.WrapServiceError(domain.ErrKindInternal, domain.CodeDatabaseError, err)
	}

	var nullExpiry sql.NullTime
	if expiry != nil {
		nullExpiry = sql.NullTime{Time: *expiry, Valid: true}
	}

	if err := s.users.Ban(ctx, user.UserID, reason, nullExpiry); err != nil {
		return domain.WrapServiceError(domain.ErrKindInternal, domain.CodeDatabaseError, err)
	}
	return nil
}

func translateTokenError(err error) error {
	switch {
	case errors.Is(err, auth.ErrTokenNotFound):
		return domain.NewServiceError(domain.ErrKindUnauthenticated, domain.CodeTokenNotFound, "token not found")
	case errors.Is(err, auth.ErrTokenExpired):
		return domain.NewServiceError(domain.ErrKindUnauthenticated, domain.CodeTokenExpired, "token expired")
	default:
		return domain.NewServiceError(domain.ErrKindUnauthenticated, domain.CodeTokenInvalid, "token invalid")
	}
}

func translateUserStoreError(err error) error {
	switch {
	case errors.Is(err, models.ErrUsernameTaken):
		return domain.NewServiceError(domain.ErrKindConflict, domain.CodeUsernameTaken, "username already taken")
	case errors.Is(err, models.ErrEmailTaken):
		return domain.NewServiceError(domain.ErrKindConflict, domain.CodeEmailTaken, "email already taken")
	case errors.Is(err, models.ErrUserNotFound):
		return domain.NewServiceError(domain.ErrKindNotFound, domain.CodeUserNotFound, "user not found")
	default:
		return domain.WrapServiceError(domain.ErrKindInternal, domain.CodeDatabaseError, err)
	}
}
