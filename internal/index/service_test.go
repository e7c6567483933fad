// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package index

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zeebo/bencode"

	"github.com/torrentindex/index/internal/database"
	"github.com/torrentindex/index/internal/domain"
	"github.com/torrentindex/index/internal/models"
	"github.com/torrentindex/index/internal/tracker"
	"github.com/torrentindex/index/pkg/titles"
)

func newTestDB(t *testing.T) *database.DB {
	t.Helper()
	dir := t.TempDir()
	db, err := database.Open(database.OpenOptions{Engine: "sqlite", SQLPath: filepath.Join(dir, "test.db")})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func seedUploader(t *testing.T, db *database.DB) int64 {
	t.Helper()
	res, err := db.ExecContext(context.Background(),
		`INSERT INTO users (date_registered, is_administrator) VALUES (?, ?)`, time.Now().UTC(), false)
	require.NoError(t, err)
	id, err := res.LastInsertId()
	require.NoError(t, err)
	return id
}

func buildMetainfoBytes(t *testing.T, name string) []byte {
	t.Helper()
	info := map[string]interface{}{
		"name":         name,
		"piece length": int64(262144),
		"pieces":       string(make([]byte, 20)),
		"length":       int64(2048),
	}
	infoBytes, err := bencode.EncodeBytes(info)
	require.NoError(t, err)
	full := map[string]interface{}{
		"announce": "https://uploader-supplied.example/announce",
		"info":     bencode.RawMessage(infoBytes),
	}
	raw, err := bencode.EncodeBytes(full)
	require.NoError(t, err)
	return raw
}

type testEnv struct {
	db         *database.DB
	service    *Service
	torrents   *models.TorrentStore
	categories *models.CategoryStore
	uploaderID int64
}

func newTestEnv(t *testing.T, trackerHandler http.HandlerFunc) *testEnv {
	t.Helper()
	db := newTestDB(t)

	categories := models.NewCategoryStore(db)
	tags := models.NewTagStore(db)
	groups := models.NewInfoHashGroupStore(db)
	torrents := models.NewTorrentStore(db, groups, 25)
	trackerKeys := models.NewTrackerKeyStore(db)

	srv := httptest.NewServer(trackerHandler)
	t.Cleanup(srv.Close)

	client := tracker.NewClient(srv.URL, "tok", time.Second, zerolog.Nop())
	keyCache := tracker.NewKeyCache(client, trackerKeys, "https://tracker.example.com/announce", 3600)
	rewriter := tracker.NewRewriter(keyCache, "https://tracker.example.com/announce")
	parser := titles.NewParser()

	_, err := categories.Create(context.Background(), "movies", "")
	require.NoError(t, err)

	svc := New(torrents, categories, tags, client, keyCache, rewriter, parser, "https://tracker.example.com/announce", zerolog.Nop())
	return &testEnv{
		db:         db,
		service:    svc,
		torrents:   torrents,
		categories: categories,
		uploaderID: seedUploader(t, db),
	}
}

func TestService_Upload_Success(t *testing.T) {
	var whitelisted string
	env := newTestEnv(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			whitelisted = r.URL.Path
		}
		w.WriteHeader(http.StatusOK)
	})

	result, err := env.service.Upload(context.Background(), UploadParams{
		MetainfoBytes: buildMetainfoBytes(t, "Some.Movie.Title.2024.1080p.BluRay.x264-GROUP"),
		UploaderID:    env.uploaderID,
		Title:         "Ubuntu Desktop",
		Description:   "a linux distro",
		CategoryName:  "movies",
	})
	require.NoError(t, err)
	assert.NotZero(t, result.Torrent.TorrentID)
	assert.Contains(t, whitelisted, "/whitelist/")
	assert.Contains(t, result.SuggestedTags, "1080p")
}

func TestService_Upload_RejectsShortTitle(t *testing.T) {
	env := newTestEnv(t, func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })

	_, err := env.service.Upload(context.Background(), UploadParams{
		MetainfoBytes: buildMetainfoBytes(t, "x"),
		UploaderID:    env.uploaderID,
		Title:         "ab",
		CategoryName:  "movies",
	})
	var svcErr *domain.ServiceError
	require.ErrorAs(t, err, &svcErr)
	assert.Equal(t, domain.CodeInvalidTorrentTitleLength, svcErr.Code)
}

func TestService_Upload_UnknownCategory(t *testing.T) {
	env := newTestEnv(t, func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })

	_, err := env.service.Upload(context.Background(), UploadParams{
		MetainfoBytes: buildMetainfoBytes(t, "x"),
		UploaderID:    env.uploaderID,
		Title:         "Valid Title",
		CategoryName:  "does-not-exist",
	})
	var svcErr *domain.ServiceError
	require.ErrorAs(t, err, &svcErr)
	assert.Equal(t, domain.CodeInvalidCategory, svcErr.Code)
}

func TestService_Upload_WhitelistFailureCompensatesWithDelete(t *testing.T) {
	env := newTestEnv(t, func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusForbidden) })

	_, err := env.service.Upload(context.Background(), UploadParams{
		MetainfoBytes: buildMetainfoBytes(t, "Whitelist.Failure.Case"),
		UploaderID:    env.uploaderID,
		Title:         "Whitelist Failure Case",
		CategoryName:  "movies",
	})
	var svcErr *domain.ServiceError
	require.ErrorAs(t, err, &svcErr)
	assert.Equal(t, domain.CodeWhitelistingError, svcErr.Code)

	total, _, getErr := env.torrents.SearchSortedPaginated(context.Background(), models.SearchParams{Search: "Whitelist Failure Case", Limit: 10})
	require.NoError(t, getErr)
	assert.Zero(t, total, "torrent must be compensating-deleted after the whitelist call fails")
}

func TestService_GetTorrentInfo_FallsBackToStoredCountsOnRefreshFailure(t *testing.T) {
	env := newTestEnv(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	result, err := env.service.Upload(context.Background(), UploadParams{
		MetainfoBytes: buildMetainfoBytes(t, "Info.Lookup.Case"),
		UploaderID:    env.uploaderID,
		Title:         "Info Lookup Case",
		CategoryName:  "movies",
	})
	require.NoError(t, err)

	detail, err := env.service.GetTorrentInfo(context.Background(), result.Torrent.CanonicalInfoHash, nil)
	require.NoError(t, err)
	assert.Equal(t, "Info Lookup Case", detail.Torrent.Title)
	assert.Contains(t, detail.MagnetLink, "magnet:?xt=urn:btih:")
	assert.Equal(t, "movies", detail.Category.Name)
}

func TestService_DeleteTorrent(t *testing.T) {
	env := newTestEnv(t, func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })

	result, err := env.service.Upload(context.Background(), UploadParams{
		MetainfoBytes: buildMetainfoBytes(t, "Delete.Me.Case"),
		UploaderID:    env.uploaderID,
		Title:         "Delete Me Case",
		CategoryName:  "movies",
	})
	require.NoError(t, err)

	require.NoError(t, env.service.DeleteTorrent(context.Background(), result.Torrent.CanonicalInfoHash))

	_, err = env.service.GetTorrentInfo(context.Background(), result.Torrent.CanonicalInfoHash, nil)
	var svcErr *domain.ServiceError
	require.ErrorAs(t, err, &svcErr)
	assert.Equal(t, domain.CodeTorrentNotFound, svcErr.Code)
}
