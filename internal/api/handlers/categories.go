// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package handlers

import (
	"errors"
	"net/http"

	"github.com/torrentindex/index/internal/models"
)

// CategoriesHandler exposes category CRUD per spec.md's §6 route table.
type CategoriesHandler struct {
	categories *models.CategoryStore
}

func NewCategoriesHandler(categories *models.CategoryStore) *CategoriesHandler {
	return &CategoriesHandler{categories: categories}
}

// List handles GET /v1/category.
func (h *CategoriesHandler) List(w http.ResponseWriter, r *http.Request) {
	categories, err := h.categories.List(r.Context())
	if err != nil {
		RespondDBError(w, err, "no categories", "failed to list categories")
		return
	}
	RespondData(w, http.StatusOK, categories)
}

type createCategoryRequest struct {
	Name string `json:"name"`
	Icon string `json:"icon"`
}

// Create handles POST /v1/category.
func (h *CategoriesHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createCategoryRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	category, err := h.categories.Create(r.Context(), req.Name, req.Icon)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrCategoryNameEmpty):
			RespondError(w, http.StatusBadRequest, "category name is required")
		case errors.Is(err, models.ErrCategoryAlreadyExists):
			RespondError(w, http.StatusConflict, "category already exists")
		default:
			RespondDBError(w, err, "category not found", "failed to create category")
		}
		return
	}

	RespondData(w, http.StatusCreated, category)
}

type deleteCategoryRequest struct {
	Name string `json:"name"`
}

// Delete handles DELETE /v1/category.
func (h *CategoriesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	var req deleteCategoryRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	category, err := h.categories.GetByName(r.Context(), req.Name)
	if err != nil {
		RespondDBError(w, err, "category not found", "failed to look up category")
		return
	}

	if err := h.categories.Delete(r.Context(), category.CategoryID); err != nil {
		switch {
		case errors.Is(err, models.ErrCategoryReferenced):
			RespondError(w, http.StatusConflict, "category is still referenced by torrents")
		default:
			RespondDBError(w, err, "category not found", "failed to delete category")
		}
		return
	}

	RespondData(w, http.StatusOK, map[string]string{"message": "category deleted"})
}
