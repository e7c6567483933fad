// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/torrentindex/index/internal/api/ctxkeys"
	"github.com/torrentindex/index/internal/auth"
)

// bearerToken extracts the token from "Authorization: Bearer <token>",
// returning "" when the header is absent or malformed.
func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(header, prefix))
}

// RequireAuth rejects any request without a valid bearer token and stores
// its claims in the request context for downstream handlers and Authorize.
func RequireAuth(secretKey string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, err := auth.Verify(bearerToken(r), secretKey, time.Now())
			if err != nil {
				log.Debug().Err(err).Msg("rejecting request with invalid bearer token")
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), ctxkeys.Claims, claims)
			ctx = context.WithValue(ctx, ctxkeys.Username, claims.User.Username)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// OptionalAuth attaches claims to the context when a valid bearer token is
// present but never rejects the request, for routes like torrent download
// that personalize behavior for authenticated users without requiring one.
func OptionalAuth(secretKey string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			claims, err := auth.Verify(token, secretKey, time.Now())
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}

			ctx := context.WithValue(r.Context(), ctxkeys.Claims, claims)
			ctx = context.WithValue(ctx, ctxkeys.Username, claims.User.Username)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAdmin rejects any request whose context claims (set by RequireAuth,
// which must run first) aren't for an administrator.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := ClaimsFromContext(r.Context())
		if !ok || !claims.User.Administrator {
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ClaimsFromContext retrieves the claims RequireAuth/OptionalAuth attached
// to the request context, if any.
func ClaimsFromContext(ctx context.Context) (*auth.Claims, bool) {
	claims, ok := ctx.Value(ctxkeys.Claims).(*auth.Claims)
	return claims, ok
}
