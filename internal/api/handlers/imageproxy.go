// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package handlers

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/torrentindex/index/internal/api/middleware"
	"github.com/torrentindex/index/internal/imageproxy"
)

type ImageProxyHandler struct {
	proxy *imageproxy.Proxy
}

func NewImageProxyHandler(proxy *imageproxy.Proxy) *ImageProxyHandler {
	return &ImageProxyHandler{proxy: proxy}
}

// Get handles GET /v1/proxy/image/{url}. The route table's "returns
// image/png (always)" only constrains the reported Content-Type, not the
// bytes fetched: the cache stores whatever the upstream served (jpeg or
// png) and this handler serves it back under a fixed content type.
func (h *ImageProxyHandler) Get(w http.ResponseWriter, r *http.Request) {
	encoded, ok := ParseStringParam(w, r, "url", "url")
	if !ok {
		return
	}
	target, err := url.QueryUnescape(encoded)
	if err != nil {
		RespondError(w, http.StatusBadRequest, "invalid url encoding")
		return
	}

	var userID *int64
	if claims, ok := middleware.ClaimsFromContext(r.Context()); ok {
		userID = &claims.User.UserID
	}

	data, err := h.proxy.GetImageByURL(r.Context(), target, userID)
	if err != nil {
		switch {
		case errors.Is(err, imageproxy.ErrUnauthenticated):
			RespondError(w, http.StatusUnauthorized, "authentication required")
		case errors.Is(err, imageproxy.ErrUserQuotaMet):
			RespondError(w, http.StatusTooManyRequests, "image quota exhausted")
		case errors.Is(err, imageproxy.ErrURLIsUnreachable):
			RespondError(w, http.StatusBadGateway, "image url is unreachable")
		case errors.Is(err, imageproxy.ErrURLIsNotAnImage):
			RespondError(w, http.StatusUnprocessableEntity, "url did not return an image")
		case errors.Is(err, imageproxy.ErrImageTooBig):
			RespondError(w, http.StatusRequestEntityTooLarge, "image exceeds size limit")
		default:
			RespondError(w, http.StatusInternalServerError, "failed to fetch image")
		}
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}
