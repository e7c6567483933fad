// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package models

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTagStore_CreateAndGet(t *testing.T) {
	store := NewTagStore(newTestDB(t))
	ctx := context.Background()

	tag, err := store.Create(ctx, " 4K ")
	require.NoError(t, err)
	assert.Equal(t, "4k", tag.Name)

	got, err := store.Get(ctx, tag.TagID)
	require.NoError(t, err)
	assert.Equal(t, tag.Name, got.Name)
}

func TestTagStore_CreateEmptyName(t *testing.T) {
	store := NewTagStore(newTestDB(t))
	_, err := store.Create(context.Background(), "")
	assert.ErrorIs(t, err, ErrTagNameEmpty)
}

func TestTagStore_CreateDuplicate(t *testing.T) {
	store := NewTagStore(newTestDB(t))
	ctx := context.Background()

	_, err := store.Create(ctx, "remux")
	require.NoError(t, err)
	_, err = store.Create(ctx, "REMUX")
	assert.ErrorIs(t, err, ErrTagAlreadyExists)
}

func TestTagStore_GetOrCreate_CreatesOnce(t *testing.T) {
	store := NewTagStore(newTestDB(t))
	ctx := context.Background()

	first, err := store.GetOrCreate(ctx, "x264")
	require.NoError(t, err)

	second, err := store.GetOrCreate(ctx, "X264")
	require.NoError(t, err)

	assert.Equal(t, first.TagID, second.TagID)
}

func TestTagStore_GetNotFound(t *testing.T) {
	store := NewTagStore(newTestDB(t))
	_, err := store.Get(context.Background(), 999)
	assert.ErrorIs(t, err, ErrTagNotFound)
}
