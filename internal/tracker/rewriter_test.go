// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package tracker

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/torrentindex/index/internal/metainfo"
	"github.com/torrentindex/index/internal/models"
)

func TestRewriter_AnonymousUsesDefaultURL(t *testing.T) {
	r := NewRewriter(nil, "https://tracker.example.com/announce")
	tor := &metainfo.Torrent{AnnounceList: [][]string{{"https://old.example.com/announce"}}}

	require.NoError(t, r.Rewrite(context.Background(), tor, nil))
	assert.Equal(t, "https://tracker.example.com/announce", tor.Announce)
	assert.Equal(t, [][]string{{"https://old.example.com/announce"}}, tor.AnnounceList)
}

func TestRewriter_AuthenticatedPrependsPersonalTier(t *testing.T) {
	db := newTestDB(t)
	userID := seedUser(t, db)
	keyStore := models.NewTrackerKeyStore(db)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"key": "userkey", "valid_until": time.Now().Add(2 * time.Hour).Unix()})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "tok", time.Second, zerolog.Nop())
	cache := NewKeyCache(client, keyStore, "https://tracker.example.com/announce", 3600)
	r := NewRewriter(cache, "https://tracker.example.com/announce")

	tor := &metainfo.Torrent{AnnounceList: [][]string{{"https://backup.example.com/announce"}}}
	require.NoError(t, r.Rewrite(context.Background(), tor, &userID))

	assert.Equal(t, "https://tracker.example.com/announce/userkey", tor.Announce)
	require.Len(t, tor.AnnounceList, 2)
	assert.Equal(t, []string{"https://tracker.example.com/announce/userkey"}, tor.AnnounceList[0])
}

func TestRewriter_DedupsExistingPersonalTier(t *testing.T) {
	db := newTestDB(t)
	userID := seedUser(t, db)
	keyStore := models.NewTrackerKeyStore(db)
	_, err := keyStore.Add(context.Background(), userID, "userkey", time.Now().Add(2*time.Hour))
	require.NoError(t, err)

	client := NewClient("http://unused.invalid", "tok", time.Second, zerolog.Nop())
	cache := NewKeyCache(client, keyStore, "https://tracker.example.com/announce", 3600)
	r := NewRewriter(cache, "https://tracker.example.com/announce")

	tor := &metainfo.Torrent{AnnounceList: [][]string{
		{"https://tracker.example.com/announce/userkey"},
		{"https://backup.example.com/announce"},
	}}
	require.NoError(t, r.Rewrite(context.Background(), tor, &userID))

	require.Len(t, tor.AnnounceList, 2)
	assert.Equal(t, []string{"https://tracker.example.com/announce/userkey"}, tor.AnnounceList[0])
	assert.Equal(t, []string{"https://backup.example.com/announce"}, tor.AnnounceList[1])
}
