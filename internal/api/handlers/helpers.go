// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package handlers

import (
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/torrentindex/index/internal/domain"
)

// dataEnvelope wraps every successful API response.
type dataEnvelope struct {
	Data any `json:"data"`
}

// errorsEnvelope wraps every failed API response.
type errorsEnvelope struct {
	Errors []string `json:"errors"`
}

// RespondData sends a successful JSON response wrapped in {"data": ...}.
func RespondData(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(dataEnvelope{Data: data}); err != nil {
		log.Error().Err(err).Msg("failed to encode JSON response")
	}
}

// RespondErrors sends a failed JSON response wrapped in {"errors": [...]}.
func RespondErrors(w http.ResponseWriter, status int, messages ...string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(errorsEnvelope{Errors: messages}); err != nil {
		log.Error().Err(err).Msg("failed to encode JSON response")
	}
}

// RespondError is a convenience wrapper around RespondErrors for a single message.
func RespondError(w http.ResponseWriter, status int, message string) {
	RespondErrors(w, status, message)
}

// DecodeJSON decodes the request body into the provided struct.
// Returns false if decoding fails (error already sent to client).
func DecodeJSON[T any](w http.ResponseWriter, r *http.Request, dest *T) bool {
	if err := json.NewDecoder(r.Body).Decode(dest); err != nil {
		RespondError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

// DecodeJSONOptional decodes the request body into the provided struct.
// Returns true if decoding succeeds or body is empty (io.EOF).
func DecodeJSONOptional[T any](w http.ResponseWriter, r *http.Request, dest *T) bool {
	if err := json.NewDecoder(r.Body).Decode(dest); err != nil && err != io.EOF {
		RespondError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

// ParseStringParam extracts and validates a generic string URL parameter.
func ParseStringParam(w http.ResponseWriter, r *http.Request, paramName, displayName string) (string, bool) {
	value := strings.TrimSpace(chi.URLParam(r, paramName))
	if value == "" {
		RespondError(w, http.StatusBadRequest, displayName+" is required")
		return "", false
	}
	return value, true
}

// ParseIntParam64 extracts and validates a generic int64 URL parameter.
func ParseIntParam64(w http.ResponseWriter, r *http.Request, paramName, displayName string) (int64, bool) {
	str, ok := ParseStringParam(w, r, paramName, displayName)
	if !ok {
		return 0, false
	}
	value, err := strconv.ParseInt(str, 10, 64)
	if err != nil {
		RespondError(w, http.StatusBadRequest, "invalid "+displayName)
		return 0, false
	}
	return value, true
}

// ParseInfoHash extracts and validates the info_hash path parameter.
func ParseInfoHash(w http.ResponseWriter, r *http.Request) (string, bool) {
	return ParseStringParam(w, r, "infoHash", "info hash")
}

// PaginationParams holds parsed pagination parameters.
type PaginationParams struct {
	Page     int
	PageSize int
}

// ParsePagination extracts and clamps page/page_size query parameters.
func ParsePagination(r *http.Request, defaultPageSize, maxPageSize int) PaginationParams {
	p := PaginationParams{Page: 1, PageSize: defaultPageSize}

	if v := r.URL.Query().Get("page"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			p.Page = parsed
		}
	}

	if v := r.URL.Query().Get("page_size"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			if parsed > maxPageSize {
				parsed = maxPageSize
			}
			p.PageSize = parsed
		}
	}

	return p
}

// RespondServiceError translates a domain.ServiceError into the
// {"errors": [...]} envelope at its mapped HTTP status, using Code as the
// stable, client-facing identifier. Any other error is logged and reported
// as an opaque 500.
func RespondServiceError(w http.ResponseWriter, err error) {
	var svcErr *domain.ServiceError
	if errors.As(err, &svcErr) {
		RespondError(w, svcErr.HTTPStatus(), svcErr.Code)
		return
	}
	log.Error().Err(err).Msg("unhandled service error")
	RespondError(w, http.StatusInternalServerError, domain.CodeInternalServerError)
}

// RespondDBError handles repository errors with common patterns:
// sql.ErrNoRows -> 404 with notFoundMessage, anything else -> 500.
func RespondDBError(w http.ResponseWriter, err error, notFoundMessage, fallbackMessage string) {
	if errors.Is(err, sql.ErrNoRows) {
		RespondError(w, http.StatusNotFound, notFoundMessage)
		return
	}
	log.Error().Err(err).Msg(fallbackMessage)
	RespondError(w, http.StatusInternalServerError, fallbackMessage)
}
