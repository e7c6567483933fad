// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package handlers

import (
	"errors"
	"net/http"

	"github.com/torrentindex/index/internal/models"
)

// TagsHandler exposes tag CRUD per spec.md's §6 route table.
type TagsHandler struct {
	tags *models.TagStore
}

func NewTagsHandler(tags *models.TagStore) *TagsHandler {
	return &TagsHandler{tags: tags}
}

// List handles GET /v1/tags.
func (h *TagsHandler) List(w http.ResponseWriter, r *http.Request) {
	tags, err := h.tags.List(r.Context())
	if err != nil {
		RespondDBError(w, err, "no tags", "failed to list tags")
		return
	}
	RespondData(w, http.StatusOK, tags)
}

type createTagRequest struct {
	Name string `json:"name"`
}

// Create handles POST /v1/tag.
func (h *TagsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createTagRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	tag, err := h.tags.Create(r.Context(), req.Name)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrTagNameEmpty):
			RespondError(w, http.StatusBadRequest, "tag name is required")
		case errors.Is(err, models.ErrTagAlreadyExists):
			RespondError(w, http.StatusConflict, "tag already exists")
		default:
			RespondDBError(w, err, "tag not found", "failed to create tag")
		}
		return
	}

	RespondData(w, http.StatusCreated, tag)
}

type deleteTagRequest struct {
	TagID int64 `json:"tag_id"`
}

// Delete handles DELETE /v1/tag.
func (h *TagsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	var req deleteTagRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	if err := h.tags.Delete(r.Context(), req.TagID); err != nil {
		RespondDBError(w, err, "tag not found", "failed to delete tag")
		return
	}

	RespondData(w, http.StatusOK, map[string]string{"message": "tag deleted"})
}
