// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package tracker

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/torrentindex/index/internal/database"
	"github.com/torrentindex/index/internal/models"
)

func newTestDB(t *testing.T) *database.DB {
	t.Helper()
	dir := t.TempDir()
	db, err := database.Open(database.OpenOptions{Engine: "sqlite", SQLPath: filepath.Join(dir, "test.db")})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func seedUser(t *testing.T, db *database.DB) int64 {
	t.Helper()
	res, err := db.ExecContext(context.Background(),
		`INSERT INTO users (date_registered, is_administrator) VALUES (?, ?)`, time.Now().UTC(), false)
	require.NoError(t, err)
	id, err := res.LastInsertId()
	require.NoError(t, err)
	return id
}

func TestKeyCache_IssuesAndCachesKey(t *testing.T) {
	db := newTestDB(t)
	userID := seedUser(t, db)
	keyStore := models.NewTrackerKeyStore(db)

	var issueCalls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&issueCalls, 1)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"key":         "freshkey",
			"valid_until": time.Now().Add(2 * time.Hour).Unix(),
		})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "tok", time.Second, zerolog.Nop())
	cache := NewKeyCache(client, keyStore, "https://tracker.example.com/announce", 3600)

	url1, err := cache.GetPersonalAnnounceURL(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, "https://tracker.example.com/announce/freshkey", url1)

	url2, err := cache.GetPersonalAnnounceURL(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, url1, url2)
	assert.EqualValues(t, 1, atomic.LoadInt32(&issueCalls))
}

func TestKeyCache_IgnoresKeyInsideSafetyMargin(t *testing.T) {
	db := newTestDB(t)
	userID := seedUser(t, db)
	keyStore := models.NewTrackerKeyStore(db)

	_, err := keyStore.Add(context.Background(), userID, "about-to-expire", time.Now().Add(30*time.Minute))
	require.NoError(t, err)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"key":         "renewed",
			"valid_until": time.Now().Add(2 * time.Hour).Unix(),
		})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "tok", time.Second, zerolog.Nop())
	cache := NewKeyCache(client, keyStore, "https://tracker.example.com/announce", 3600)

	url, err := cache.GetPersonalAnnounceURL(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, "https://tracker.example.com/announce/renewed", url)
}

func TestKeyCache_ConcurrentRequestsCollapseToOneIssue(t *testing.T) {
	db := newTestDB(t)
	userID := seedUser(t, db)
	keyStore := models.NewTrackerKeyStore(db)

	var issueCalls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&issueCalls, 1)
		time.Sleep(20 * time.Millisecond)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"key":         "onlyonce",
			"valid_until": time.Now().Add(2 * time.Hour).Unix(),
		})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "tok", time.Second, zerolog.Nop())
	cache := NewKeyCache(client, keyStore, "https://tracker.example.com/announce", 3600)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := cache.GetPersonalAnnounceURL(context.Background(), userID)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 1, atomic.LoadInt32(&issueCalls))
}
