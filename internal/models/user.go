// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package models

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/torrentindex/index/internal/database"
)

// User composes the User/UserProfile/UserAuthentication entities into the
// single row shape most callers need; the three tables are written
// together by Register and read together by every lookup below.
type User struct {
	UserID          int64
	DateRegistered  time.Time
	IsAdministrator bool

	Username      string
	Email         string
	EmailVerified bool
	Bio           string
	Avatar        string

	PasswordHash string
}

// BanRecord reports that a user is currently banned.
type BanRecord struct {
	UserID     int64
	Reason     string
	DateExpiry sql.NullTime
}

var (
	ErrUsernameTaken = errors.New("username already taken")
	ErrEmailTaken    = errors.New("email already taken")
	ErrUserBanned    = errors.New("user is banned")
)

const userSelectColumns = `
	u.user_id, u.date_registered, u.is_administrator,
	p.username, COALESCE(p.email, ''), p.email_verified, COALESCE(p.bio, ''), COALESCE(p.avatar, ''),
	a.password_hash
`

// UserStore persists User/UserProfile/UserAuthentication/BannedUser rows.
type UserStore struct {
	db database.TxBeginner
}

func NewUserStore(db database.TxBeginner) *UserStore {
	return &UserStore{db: db}
}

// Register creates a new User, UserProfile and UserAuthentication row
// inside one transaction. email may be empty (optional per the data
// model); username is normalized to lowercase, matching the other lookup
// entities' case-insensitive uniqueness.
func (s *UserStore) Register(ctx context.Context, username, email, passwordHash string) (*User, error) {
	username = normalizeLowerTrim(username)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	return s.registerTx(ctx, tx, username, email, passwordHash)
}

func (s *UserStore) registerTx(ctx context.Context, tx *database.Tx, username, email, passwordHash string) (*User, error) {
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `INSERT INTO users (is_administrator) VALUES (?)`, false)
	if err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}
	userID, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("read user id: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO user_profiles (user_id, username, email) VALUES (?, ?, ?)`,
		userID, username, nullString(email),
	); err != nil {
		if isUniqueConstraintError(err) {
			return nil, classifyProfileConflict(ctx, s.db, username, email)
		}
		return nil, fmt.Errorf("insert user profile: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO user_authentication (user_id, password_hash) VALUES (?, ?)`,
		userID, passwordHash,
	); err != nil {
		return nil, fmt.Errorf("insert user authentication: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	return s.Get(ctx, userID)
}

// classifyProfileConflict distinguishes a username collision from an email
// collision after a unique-constraint violation on user_profiles, since
// the underlying driver error doesn't reliably name the column.
func classifyProfileConflict(ctx context.Context, db database.TxBeginner, username, email string) error {
	if _, err := (&UserStore{db: db}).GetByUsername(ctx, username); err == nil {
		return ErrUsernameTaken
	}
	if email != "" {
		if _, err := (&UserStore{db: db}).GetByEmail(ctx, email); err == nil {
			return ErrEmailTaken
		}
	}
	return ErrUsernameTaken
}

// MakeAdministrator creates an account through Register and then sets its
// is_administrator flag - used only by the `user create-admin` CLI
// bootstrap.
func (s *UserStore) MakeAdministrator(ctx context.Context, username, email, passwordHash string) (*User, error) {
	user, err := s.Register(ctx, username, email, passwordHash)
	if err != nil {
		return nil, err
	}
	if _, err := s.db.ExecContext(ctx, `UPDATE users SET is_administrator = TRUE WHERE user_id = ?`, user.UserID); err != nil {
		return nil, fmt.Errorf("promote administrator: %w", err)
	}
	return s.Get(ctx, user.UserID)
}

func (s *UserStore) scanUser(row *sql.Row) (*User, error) {
	u := &User{}
	err := row.Scan(
		&u.UserID, &u.DateRegistered, &u.IsAdministrator,
		&u.Username, &u.Email, &u.EmailVerified, &u.Bio, &u.Avatar,
		&u.PasswordHash,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan user: %w", err)
	}
	return u, nil
}

// Get resolves a user by id.
func (s *UserStore) Get(ctx context.Context, userID int64) (*User, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+userSelectColumns+`
		FROM users u
		JOIN user_profiles p ON p.user_id = u.user_id
		JOIN user_authentication a ON a.user_id = u.user_id
		WHERE u.user_id = ?
	`, userID)
	return s.scanUser(row)
}

// GetByUsername resolves a user by normalized username.
func (s *UserStore) GetByUsername(ctx context.Context, username string) (*User, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+userSelectColumns+`
		FROM users u
		JOIN user_profiles p ON p.user_id = u.user_id
		JOIN user_authentication a ON a.user_id = u.user_id
		WHERE p.username = ?
	`, normalizeLowerTrim(username))
	return s.scanUser(row)
}

// GetByEmail resolves a user by email.
func (s *UserStore) GetByEmail(ctx context.Context, email string) (*User, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+userSelectColumns+`
		FROM users u
		JOIN user_profiles p ON p.user_id = u.user_id
		JOIN user_authentication a ON a.user_id = u.user_id
		WHERE p.email = ?
	`, normalizeLowerTrim(email))
	return s.scanUser(row)
}

// SetEmailVerified marks a user's profile as verified.
func (s *UserStore) SetEmailVerified(ctx context.Context, userID int64) error {
	res, err := s.db.ExecContext(ctx, `UPDATE user_profiles SET email_verified = TRUE WHERE user_id = ?`, userID)
	if err != nil {
		return fmt.Errorf("set email verified: %w", err)
	}
	return requireRowsAffected(res, ErrUserNotFound)
}

// SetPasswordHash overwrites a user's stored password hash.
func (s *UserStore) SetPasswordHash(ctx context.Context, userID int64, passwordHash string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE user_authentication SET password_hash = ? WHERE user_id = ?`, passwordHash, userID)
	if err != nil {
		return fmt.Errorf("set password hash: %w", err)
	}
	return requireRowsAffected(res, ErrUserNotFound)
}

// Ban records a ban for userID, replacing any prior ban row. Implemented as
// select-then-write, matching TorrentStore.UpdateTrackerInfo's dialect-
// neutral upsert pattern rather than a driver-specific ON CONFLICT clause.
func (s *UserStore) Ban(ctx context.Context, userID int64, reason string, expiry sql.NullTime) error {
	var exists int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM user_bans WHERE user_id = ?`, userID).Scan(&exists)

	switch {
	case errors.Is(err, sql.ErrNoRows):
		_, err = s.db.ExecContext(ctx,
			`INSERT INTO user_bans (user_id, reason, date_expiry) VALUES (?, ?, ?)`, userID, reason, expiry)
	case err == nil:
		_, err = s.db.ExecContext(ctx,
			`UPDATE user_bans SET reason = ?, date_expiry = ? WHERE user_id = ?`, reason, expiry, userID)
	}
	if err != nil {
		return fmt.Errorf("ban user: %w", err)
	}
	return nil
}

// Unban removes any ban row for userID. Idempotent.
func (s *UserStore) Unban(ctx context.Context, userID int64) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM user_bans WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("unban user: %w", err)
	}
	return nil
}

// IsBanned reports whether userID currently has an unexpired ban row.
func (s *UserStore) IsBanned(ctx context.Context, userID int64) (bool, error) {
	var exists int
	err := s.db.QueryRowContext(ctx, `
		SELECT 1 FROM user_bans
		WHERE user_id = ? AND (date_expiry IS NULL OR date_expiry > ?)
	`, userID, time.Now().UTC()).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check ban: %w", err)
	}
	return true, nil
}
