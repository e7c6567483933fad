// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/torrentindex/index/internal/domain"
	"github.com/torrentindex/index/internal/users"
)

// AuthHandler exposes the registration/login/verification/ban routes backed
// by the users service's authorization core.
type AuthHandler struct {
	users *users.Service
}

func NewAuthHandler(usersService *users.Service) *AuthHandler {
	return &AuthHandler{users: usersService}
}

type registerRequest struct {
	Username        string `json:"username"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
}

// Register handles POST /v1/user/register.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	baseURL := "https://" + r.Host
	if r.TLS == nil {
		baseURL = "http://" + r.Host
	}

	user, err := h.users.Register(r.Context(), users.RegisterParams{
		Username:        req.Username,
		Email:           req.Email,
		Password:        req.Password,
		ConfirmPassword: req.ConfirmPassword,
		BaseURL:         baseURL,
	})
	if err != nil {
		RespondServiceError(w, err)
		return
	}

	RespondData(w, http.StatusCreated, map[string]any{
		"user_id":  user.UserID,
		"username": user.Username,
	})
}

// VerifyEmail handles GET /v1/user/email/verify/{token}, returning plain
// text per spec.md's route table rather than the JSON envelope.
func (h *AuthHandler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")

	if err := h.users.VerifyEmail(r.Context(), token); err != nil {
		status := http.StatusInternalServerError
		var svcErr *domain.ServiceError
		if errors.As(err, &svcErr) {
			status = svcErr.HTTPStatus()
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(status)
		w.Write([]byte("email verification failed"))
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("email verified"))
}

type loginRequest struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

// Login handles POST /v1/user/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	result, err := h.users.Login(r.Context(), req.Login, req.Password)
	if err != nil {
		RespondServiceError(w, err)
		return
	}

	RespondData(w, http.StatusOK, map[string]any{
		"token":    result.Token,
		"username": result.Username,
		"admin":    result.Administrator,
	})
}

type tokenRequest struct {
	Token string `json:"token"`
}

// VerifyToken handles POST /v1/user/token/verify.
func (h *AuthHandler) VerifyToken(w http.ResponseWriter, r *http.Request) {
	var req tokenRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	claims, err := h.users.VerifyToken(req.Token)
	if err != nil {
		RespondServiceError(w, err)
		return
	}

	RespondData(w, http.StatusOK, map[string]any{
		"username": claims.User.Username,
		"admin":    claims.User.Administrator,
	})
}

// RenewToken handles POST /v1/user/token/renew.
func (h *AuthHandler) RenewToken(w http.ResponseWriter, r *http.Request) {
	var req tokenRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	renewed, err := h.users.RenewToken(req.Token)
	if err != nil {
		RespondServiceError(w, err)
		return
	}

	RespondData(w, http.StatusOK, map[string]any{"token": renewed})
}

type banRequest struct {
	Reason string `json:"reason"`
}

// BanUser handles DELETE /v1/user/ban/{username}.
func (h *AuthHandler) BanUser(w http.ResponseWriter, r *http.Request) {
	username, ok := ParseStringParam(w, r, "username", "username")
	if !ok {
		return
	}

	var req banRequest
	if !DecodeJSONOptional(w, r, &req) {
		return
	}

	if err := h.users.Ban(r.Context(), username, req.Reason, nil); err != nil {
		RespondServiceError(w, err)
		return
	}

	RespondData(w, http.StatusOK, map[string]string{"message": "user banned"})
}
