// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package models

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserStore_RegisterAndGet(t *testing.T) {
	store := NewUserStore(newTestDB(t))
	ctx := context.Background()

	u, err := store.Register(ctx, "  Alice  ", "alice@example.com", "$argon2id$fake")
	require.NoError(t, err)
	assert.Equal(t, "alice", u.Username)
	assert.Equal(t, "alice@example.com", u.Email)
	assert.False(t, u.IsAdministrator)
	assert.False(t, u.EmailVerified)

	got, err := store.GetByUsername(ctx, "ALICE")
	require.NoError(t, err)
	assert.Equal(t, u.UserID, got.UserID)

	byEmail, err := store.GetByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.UserID, byEmail.UserID)
}

func TestUserStore_RegisterWithoutEmail(t *testing.T) {
	store := NewUserStore(newTestDB(t))
	ctx := context.Background()

	u, err := store.Register(ctx, "bob", "", "$argon2id$fake")
	require.NoError(t, err)
	assert.Empty(t, u.Email)
}

func TestUserStore_RegisterDuplicateUsername(t *testing.T) {
	store := NewUserStore(newTestDB(t))
	ctx := context.Background()

	_, err := store.Register(ctx, "carol", "carol@example.com", "hash")
	require.NoError(t, err)

	_, err = store.Register(ctx, "CAROL", "other@example.com", "hash")
	assert.ErrorIs(t, err, ErrUsernameTaken)
}

func TestUserStore_RegisterDuplicateEmail(t *testing.T) {
	store := NewUserStore(newTestDB(t))
	ctx := context.Background()

	_, err := store.Register(ctx, "dave", "dave@example.com", "hash")
	require.NoError(t, err)

	_, err = store.Register(ctx, "dave2", "dave@example.com", "hash")
	assert.ErrorIs(t, err, ErrEmailTaken)
}

func TestUserStore_GetByUsernameNotFound(t *testing.T) {
	store := NewUserStore(newTestDB(t))
	_, err := store.GetByUsername(context.Background(), "nobody")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestUserStore_SetEmailVerified(t *testing.T) {
	store := NewUserStore(newTestDB(t))
	ctx := context.Background()

	u, err := store.Register(ctx, "erin", "erin@example.com", "hash")
	require.NoError(t, err)

	require.NoError(t, store.SetEmailVerified(ctx, u.UserID))

	got, err := store.Get(ctx, u.UserID)
	require.NoError(t, err)
	assert.True(t, got.EmailVerified)
}

func TestUserStore_SetPasswordHash(t *testing.T) {
	store := NewUserStore(newTestDB(t))
	ctx := context.Background()

	u, err := store.Register(ctx, "frank", "", "old-hash")
	require.NoError(t, err)

	require.NoError(t, store.SetPasswordHash(ctx, u.UserID, "new-hash"))

	got, err := store.Get(ctx, u.UserID)
	require.NoError(t, err)
	assert.Equal(t, "new-hash", got.PasswordHash)
}

func TestUserStore_MakeAdministrator(t *testing.T) {
	store := NewUserStore(newTestDB(t))
	ctx := context.Background()

	admin, err := store.MakeAdministrator(ctx, "root", "root@example.com", "hash")
	require.NoError(t, err)
	assert.True(t, admin.IsAdministrator)
}

func TestUserStore_BanAndUnban(t *testing.T) {
	store := NewUserStore(newTestDB(t))
	ctx := context.Background()

	u, err := store.Register(ctx, "gina", "", "hash")
	require.NoError(t, err)

	banned, err := store.IsBanned(ctx, u.UserID)
	require.NoError(t, err)
	assert.False(t, banned)

	require.NoError(t, store.Ban(ctx, u.UserID, "spam", sql.NullTime{}))

	banned, err = store.IsBanned(ctx, u.UserID)
	require.NoError(t, err)
	assert.True(t, banned)

	require.NoError(t, store.Unban(ctx, u.UserID))

	banned, err = store.IsBanned(ctx, u.UserID)
	require.NoError(t, err)
	assert.False(t, banned)
}

func TestUserStore_BanExpiryInPast(t *testing.T) {
	store := NewUserStore(newTestDB(t))
	ctx := context.Background()

	u, err := store.Register(ctx, "hank", "", "hash")
	require.NoError(t, err)

	expired := sql.NullTime{Time: time.Now().UTC().Add(-time.Hour), Valid: true}
	require.NoError(t, store.Ban(ctx, u.UserID, "temp", expired))

	banned, err := store.IsBanned(ctx, u.UserID)
	require.NoError(t, err)
	assert.False(t, banned)
}

func TestUserStore_BanReplacesExistingRow(t *testing.T) {
	store := NewUserStore(newTestDB(t))
	ctx := context.Background()

	u, err := store.Register(ctx, "ivan", "", "hash")
	require.NoError(t, err)

	require.NoError(t, store.Ban(ctx, u.UserID, "first", sql.NullTime{}))
	require.NoError(t, store.Ban(ctx, u.UserID, "second", sql.NullTime{}))

	banned, err := store.IsBanned(ctx, u.UserID)
	require.NoError(t, err)
	assert.True(t, banned)
}
