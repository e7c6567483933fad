// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package handlers

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/torrentindex/index/internal/api/middleware"
	"github.com/torrentindex/index/internal/auth"
	"github.com/torrentindex/index/internal/index"
	"github.com/torrentindex/index/internal/models"
)

// uploadMaxFormMemory caps the multipart body index accepts for a torrent
// upload; metainfo files are small, the cap just bounds memory use.
const uploadMaxFormMemory int64 = 16 << 20

type TorrentsHandler struct {
	index           *index.Service
	torrents        *models.TorrentStore
	defaultPageSize int
	maxPageSize     int
}

func NewTorrentsHandler(idx *index.Service, torrents *models.TorrentStore, defaultPageSize, maxPageSize int) *TorrentsHandler {
	return &TorrentsHandler{index: idx, torrents: torrents, defaultPageSize: defaultPageSize, maxPageSize: maxPageSize}
}

// List handles GET /v1/torrents.
func (h *TorrentsHandler) List(w http.ResponseWriter, r *http.Request) {
	pagination := ParsePagination(r, h.defaultPageSize, h.maxPageSize)

	q := r.URL.Query()
	params := models.SearchParams{
		Search: q.Get("search"),
		Sort:   models.TorrentSort(q.Get("sort")),
		Offset: (pagination.Page - 1) * pagination.PageSize,
		Limit:  pagination.PageSize,
	}
	if categories := q.Get("categories"); categories != "" {
		params.Categories = strings.Split(categories, ",")
	}
	if tags := q.Get("tags"); tags != "" {
		params.Tags = strings.Split(tags, ",")
	}

	total, listings, err := h.torrents.SearchSortedPaginated(r.Context(), params)
	if err != nil {
		RespondDBError(w, err, "no torrents", "failed to search torrents")
		return
	}

	RespondData(w, http.StatusOK, map[string]any{
		"total":    total,
		"page":     pagination.Page,
		"pageSize": pagination.PageSize,
		"torrents": listings,
	})
}

// Upload handles POST /v1/torrent/upload.
func (h *TorrentsHandler) Upload(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		RespondError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	if err := r.ParseMultipartForm(uploadMaxFormMemory); err != nil {
		RespondError(w, http.StatusBadRequest, "failed to parse form data")
		return
	}

	file, _, err := r.FormFile("torrent")
	if err != nil {
		RespondError(w, http.StatusBadRequest, "torrent file is required")
		return
	}
	defer file.Close()

	metainfoBytes, err := io.ReadAll(file)
	if err != nil {
		RespondError(w, http.StatusBadRequest, "failed to read torrent file")
		return
	}

	var tagNames []string
	if raw := r.FormValue("tags"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &tagNames); err != nil {
			RespondError(w, http.StatusBadRequest, "tags must be a JSON array of strings")
			return
		}
	}

	result, err := h.index.Upload(r.Context(), index.UploadParams{
		MetainfoBytes: metainfoBytes,
		UploaderID:    claims.User.UserID,
		Title:         r.FormValue("title"),
		Description:   r.FormValue("description"),
		CategoryName:  r.FormValue("category"),
		TagNames:      tagNames,
	})
	if err != nil {
		RespondServiceError(w, err)
		return
	}

	RespondData(w, http.StatusOK, map[string]any{
		"torrent_id":    result.Torrent.TorrentID,
		"info_hash":     result.Torrent.CanonicalInfoHash,
		"suggested_tags": result.SuggestedTags,
	})
}

// Get handles GET /v1/torrent/{info_hash}.
func (h *TorrentsHandler) Get(w http.ResponseWriter, r *http.Request) {
	infoHash, ok := ParseInfoHash(w, r)
	if !ok {
		return
	}

	var userID *int64
	if claims, ok := middleware.ClaimsFromContext(r.Context()); ok {
		userID = &claims.User.UserID
	}

	detail, err := h.index.GetTorrentInfo(r.Context(), infoHash, userID)
	if err != nil {
		RespondServiceError(w, err)
		return
	}

	RespondData(w, http.StatusOK, map[string]any{
		"torrent":     detail.Torrent,
		"category":    detail.Category,
		"magnet_link": detail.MagnetLink,
	})
}

type updateTorrentRequest struct {
	Title       *string  `json:"title"`
	Description *string  `json:"description"`
	Category    *string  `json:"category"`
	Tags        []string `json:"tags"`
}

// Update handles PUT /v1/torrent/{info_hash}.
func (h *TorrentsHandler) Update(w http.ResponseWriter, r *http.Request) {
	infoHash, ok := ParseInfoHash(w, r)
	if !ok {
		return
	}

	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		RespondError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	existing, err := h.torrents.GetByInfoHash(r.Context(), infoHash)
	if err != nil {
		RespondDBError(w, err, "torrent not found", "failed to look up torrent")
		return
	}

	if err := auth.Authorize(auth.ActionUpdateTorrent, claims.User, &existing.UploaderID); err != nil {
		RespondError(w, http.StatusForbidden, "not permitted to update this torrent")
		return
	}

	var req updateTorrentRequest
	if !DecodeJSONOptional(w, r, &req) {
		return
	}

	updated, err := h.index.UpdateTorrent(r.Context(), infoHash, index.UpdateParams{
		Title:        req.Title,
		Description:  req.Description,
		CategoryName: req.Category,
		TagNames:     req.Tags,
	})
	if err != nil {
		RespondServiceError(w, err)
		return
	}

	RespondData(w, http.StatusOK, updated)
}

// Delete handles DELETE /v1/torrent/{info_hash}.
func (h *TorrentsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	infoHash, ok := ParseInfoHash(w, r)
	if !ok {
		return
	}

	if err := h.index.DeleteTorrent(r.Context(), infoHash); err != nil {
		RespondServiceError(w, err)
		return
	}

	RespondData(w, http.StatusOK, map[string]string{"message": "torrent deleted"})
}

// Download handles GET /v1/torrent/download/{info_hash}.
func (h *TorrentsHandler) Download(w http.ResponseWriter, r *http.Request) {
	infoHash, ok := ParseInfoHash(w, r)
	if !ok {
		return
	}

	var userID *int64
	if claims, ok := middleware.ClaimsFromContext(r.Context()); ok {
		userID = &claims.User.UserID
	}

	result, err := h.index.DownloadTorrent(r.Context(), infoHash, userID)
	if err != nil {
		RespondServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/x-bittorrent")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s.torrent", result.Name))
	w.Header().Set("x-torrust-torrent-infohash", result.CanonicalInfoHash)
	w.Header().Set("Content-Length", strconv.Itoa(len(result.Bytes)))
	w.WriteHeader(http.StatusOK)
	w.Write(result.Bytes)
}
