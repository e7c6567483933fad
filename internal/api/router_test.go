// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package api

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/torrentindex/index/internal/config"
	"github.com/torrentindex/index/internal/database"
	"github.com/torrentindex/index/internal/domain"
	"github.com/torrentindex/index/internal/imageproxy"
	"github.com/torrentindex/index/internal/index"
	"github.com/torrentindex/index/internal/mail"
	"github.com/torrentindex/index/internal/models"
	"github.com/torrentindex/index/internal/tracker"
	"github.com/torrentindex/index/internal/users"
	"github.com/torrentindex/index/pkg/titles"
)

type noopMailer struct{}

func (noopMailer) SendVerificationEmail(to, username, verificationURL string) error { return nil }

func newTestDependencies(t *testing.T) *Dependencies {
	t.Helper()

	dir := t.TempDir()
	db, err := database.Open(database.OpenOptions{
		Engine:  "sqlite",
		SQLPath: filepath.Join(dir, "test.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	cfg := &config.AppConfig{}
	cfg.Auth.SecretKey = "test-secret"
	cfg.Auth.UserClaimTokenPepper = "test-pepper"
	cfg.Auth.PasswordConstraints = domain.PasswordConstraints{MinLength: 6, MaxLength: 64}
	cfg.API.DefaultTorrentPageSize = 25
	cfg.API.MaxTorrentPageSize = 100
	cfg.Tracker.URL = "https://tracker.example.test/announce"

	userStore := models.NewUserStore(db)
	categoryStore := models.NewCategoryStore(db)
	tagStore := models.NewTagStore(db)
	groupStore := models.NewInfoHashGroupStore(db)
	torrentStore := models.NewTorrentStore(db, groupStore, cfg.API.MaxTorrentPageSize)
	trackerKeyStore := models.NewTrackerKeyStore(db)

	trackerClient := tracker.NewClient(cfg.Tracker.APIURL, cfg.Tracker.Token, 5*time.Second, zerolog.Nop())
	keyCache := tracker.NewKeyCache(trackerClient, trackerKeyStore, cfg.Tracker.URL, 3600)
	rewriter := tracker.NewRewriter(keyCache, cfg.Tracker.URL)

	indexService := index.New(torrentStore, categoryStore, tagStore, trackerClient, keyCache, rewriter,
		titles.NewParser(), cfg.Tracker.URL, zerolog.Nop())

	usersService := users.New(userStore, noopMailer{}, cfg.Config, zerolog.Nop())

	imageProxy := imageproxy.New(imageproxy.Config{
		Capacity:               1 << 20,
		PerEntrySizeLimit:      1 << 18,
		MaxRequestTimeout:      5 * time.Second,
		UserQuotaPeriodSeconds: 3600,
		UserQuotaBytes:         1 << 20,
	})

	return &Dependencies{
		Config:     cfg,
		Users:      usersService,
		Categories: categoryStore,
		Tags:       tagStore,
		Torrents:   torrentStore,
		Index:      indexService,
		ImageProxy: imageProxy,
	}
}

var _ mail.Mailer = noopMailer{}

func TestNewRouter_RegistersExpectedRoutes(t *testing.T) {
	router := NewRouter(newTestDependencies(t))

	want := map[string]bool{
		"GET /v1/category":                     false,
		"POST /v1/category":                    false,
		"DELETE /v1/category":                  false,
		"GET /v1/tags":                         false,
		"POST /v1/tag":                         false,
		"DELETE /v1/tag":                       false,
		"GET /v1/torrents":                     false,
		"POST /v1/torrent/upload":              false,
		"GET /v1/torrent/{infoHash}":           false,
		"PUT /v1/torrent/{infoHash}":           false,
		"DELETE /v1/torrent/{infoHash}":        false,
		"GET /v1/torrent/download/{infoHash}":  false,
		"GET /v1/proxy/image/{url}":            false,
		"GET /v1/settings":                     false,
		"GET /v1/settings/public":              false,
		"GET /v1/settings/name":                false,
		"GET /health":                          false,
	}

	err := chi.Walk(router, func(method, path string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		if path != "/" {
			path = strings.TrimSuffix(path, "/")
		}
		if _, ok := want[method+" "+path]; ok {
			want[method+" "+path] = true
		}
		return nil
	})
	require.NoError(t, err)

	for route, seen := range want {
		require.Truef(t, seen, "expected route %s to be registered", route)
	}
}

func TestCORSPreflightBypassesAuth(t *testing.T) {
	router := NewRouter(newTestDependencies(t))

	req := httptest.NewRequest(http.MethodOptions, "/v1/settings", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))
	require.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
}

func TestHealthEndpoint(t *testing.T) {
	router := NewRouter(newTestDependencies(t))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
}
