// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package handlers

import (
	"net/http"

	"github.com/torrentindex/index/internal/domain"
)

type SettingsHandler struct {
	cfg *domain.Config
}

func NewSettingsHandler(cfg *domain.Config) *SettingsHandler {
	return &SettingsHandler{cfg: cfg}
}

// Get handles GET /v1/settings: the full configuration document, for
// administrators only.
func (h *SettingsHandler) Get(w http.ResponseWriter, r *http.Request) {
	RespondData(w, http.StatusOK, h.cfg)
}

// publicSettings is the subset of configuration safe to expose to any
// caller: nothing that would let a reader reach the tracker's private API
// or this instance's signing secrets.
type publicSettings struct {
	Name                string               `json:"name"`
	TrackerListed       bool                 `json:"tracker_listed"`
	TrackerPrivate      bool                 `json:"tracker_private"`
	EmailOnSignup       domain.EmailOnSignup `json:"email_on_signup"`
	PasswordConstraints domain.PasswordConstraints `json:"password_constraints"`
	DefaultPageSize     int                  `json:"default_torrent_page_size"`
	MaxPageSize         int                  `json:"max_torrent_page_size"`
}

// Public handles GET /v1/settings/public.
func (h *SettingsHandler) Public(w http.ResponseWriter, r *http.Request) {
	RespondData(w, http.StatusOK, publicSettings{
		Name:                h.cfg.Website.Name,
		TrackerListed:       h.cfg.Tracker.Listed,
		TrackerPrivate:      h.cfg.Tracker.Private,
		EmailOnSignup:       h.cfg.Auth.EmailOnSignup,
		PasswordConstraints: h.cfg.Auth.PasswordConstraints,
		DefaultPageSize:     h.cfg.API.DefaultTorrentPageSize,
		MaxPageSize:         h.cfg.API.MaxTorrentPageSize,
	})
}

// Name handles GET /v1/settings/name.
func (h *SettingsHandler) Name(w http.ResponseWriter, r *http.Request) {
	RespondData(w, http.StatusOK, map[string]string{"name": h.cfg.Website.Name})
}
