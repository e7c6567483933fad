// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package models

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInfoHashGroupStore_AddAndFindCanonical(t *testing.T) {
	store := NewInfoHashGroupStore(newTestDB(t))
	ctx := context.Background()

	const canonical = "5452869be36f9f3350ccee6b4544e7e76caaadab"
	require.NoError(t, store.AddMapping(ctx, canonical, canonical, true))

	got, err := store.FindCanonical(ctx, canonical)
	require.NoError(t, err)
	assert.Equal(t, canonical, got)
}

func TestInfoHashGroupStore_SecondOriginalResolvesToSameCanonical(t *testing.T) {
	store := NewInfoHashGroupStore(newTestDB(t))
	ctx := context.Background()

	const canonical = "5452869be36f9f3350ccee6b4544e7e76caaadab"
	const duplicateOriginal = "aaaa69be36f9f3350ccee6b4544e7e76caaaaaa"

	require.NoError(t, store.AddMapping(ctx, canonical, canonical, true))
	require.NoError(t, store.AddMapping(ctx, duplicateOriginal, canonical, true))

	got, err := store.FindCanonical(ctx, duplicateOriginal)
	require.NoError(t, err)
	assert.Equal(t, canonical, got)

	group, err := store.GroupOf(ctx, canonical)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{canonical, duplicateOriginal}, group)
}

func TestInfoHashGroupStore_AddMappingIsIdempotent(t *testing.T) {
	store := NewInfoHashGroupStore(newTestDB(t))
	ctx := context.Background()

	const hash = "5452869be36f9f3350ccee6b4544e7e76caaadab"
	require.NoError(t, store.AddMapping(ctx, hash, hash, false))
	require.NoError(t, store.AddMapping(ctx, hash, hash, true))

	group, err := store.GroupOf(ctx, hash)
	require.NoError(t, err)
	assert.Equal(t, []string{hash}, group)
}

func TestInfoHashGroupStore_FindCanonicalNotFound(t *testing.T) {
	store := NewInfoHashGroupStore(newTestDB(t))
	_, err := store.FindCanonical(context.Background(), "0000000000000000000000000000000000000a")
	assert.ErrorIs(t, err, ErrInfoHashNotFound)
}
