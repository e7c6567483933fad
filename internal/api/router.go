// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package api

import (
	"net/http"

	"github.com/CAFxX/httpcompression"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/torrentindex/index/internal/api/handlers"
	apimiddleware "github.com/torrentindex/index/internal/api/middleware"
	"github.com/torrentindex/index/internal/config"
	"github.com/torrentindex/index/internal/imageproxy"
	"github.com/torrentindex/index/internal/index"
	"github.com/torrentindex/index/internal/models"
	"github.com/torrentindex/index/internal/users"
)

// Dependencies holds everything NewRouter needs to build the handler tree.
type Dependencies struct {
	Config     *config.AppConfig
	Users      *users.Service
	Categories *models.CategoryStore
	Tags       *models.TagStore
	Torrents   *models.TorrentStore
	Index      *index.Service
	ImageProxy *imageproxy.Proxy
}

// NewRouter builds the chi router implementing spec.md's §6 route table.
func NewRouter(deps *Dependencies) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID) // must precede the logger to capture the request id
	r.Use(apimiddleware.HTTPLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)

	compressor, err := httpcompression.DefaultAdapter()
	if err != nil {
		log.Error().Err(err).Msg("failed to create HTTP compression adapter")
	} else {
		r.Use(compressor)
	}

	allowedOrigins := []string{"http://localhost:3000", "http://localhost:5173"}
	if deps.Config.Net.BaseURL != "" {
		allowedOrigins = append(allowedOrigins, deps.Config.Net.BaseURL)
	}
	r.Use(apimiddleware.CORSWithCredentials(allowedOrigins))

	secretKey := deps.Config.Auth.SecretKey
	requireAuth := apimiddleware.RequireAuth(secretKey)
	optionalAuth := apimiddleware.OptionalAuth(secretKey)

	authHandler := handlers.NewAuthHandler(deps.Users)
	categoriesHandler := handlers.NewCategoriesHandler(deps.Categories)
	tagsHandler := handlers.NewTagsHandler(deps.Tags)
	torrentsHandler := handlers.NewTorrentsHandler(deps.Index, deps.Torrents,
		deps.Config.API.DefaultTorrentPageSize, deps.Config.API.MaxTorrentPageSize)
	imageProxyHandler := handlers.NewImageProxyHandler(deps.ImageProxy)
	settingsHandler := handlers.NewSettingsHandler(&deps.Config.Config)

	r.Route("/v1", func(r chi.Router) {
		r.Route("/user", func(r chi.Router) {
			r.Post("/register", authHandler.Register)
			r.Get("/email/verify/{token}", authHandler.VerifyEmail)
			r.Post("/login", authHandler.Login)
			r.Post("/token/verify", authHandler.VerifyToken)

			r.Group(func(r chi.Router) {
				r.Use(requireAuth)
				r.Post("/token/renew", authHandler.RenewToken)
			})

			r.Group(func(r chi.Router) {
				r.Use(requireAuth, apimiddleware.RequireAdmin)
				r.Delete("/ban/{username}", authHandler.BanUser)
			})
		})

		r.Get("/category", categoriesHandler.List)
		r.Get("/tags", tagsHandler.List)

		r.Group(func(r chi.Router) {
			r.Use(requireAuth, apimiddleware.RequireAdmin)
			r.Post("/category", categoriesHandler.Create)
			r.Delete("/category", categoriesHandler.Delete)
			r.Post("/tag", tagsHandler.Create)
			r.Delete("/tag", tagsHandler.Delete)
		})

		r.Get("/torrents", torrentsHandler.List)
		r.Get("/torrent/{infoHash}", torrentsHandler.Get)

		r.Group(func(r chi.Router) {
			r.Use(optionalAuth)
			r.Get("/torrent/download/{infoHash}", torrentsHandler.Download)
		})

		r.Group(func(r chi.Router) {
			r.Use(requireAuth)
			r.Post("/torrent/upload", torrentsHandler.Upload)
			r.Put("/torrent/{infoHash}", torrentsHandler.Update)
			r.Get("/proxy/image/{url}", imageProxyHandler.Get)
		})

		r.Group(func(r chi.Router) {
			r.Use(requireAuth, apimiddleware.RequireAdmin)
			r.Delete("/torrent/{infoHash}", torrentsHandler.Delete)
			r.Get("/settings", settingsHandler.Get)
		})

		r.Get("/settings/public", settingsHandler.Public)
		r.Get("/settings/name", settingsHandler.Name)
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	return r
}
