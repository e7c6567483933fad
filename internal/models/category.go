// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package models

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/torrentindex/index/internal/database"
)

// Category groups torrents under a single named bucket (e.g. "software",
// "movies"). Names are unique case-insensitively.
type Category struct {
	CategoryID int64  `json:"category_id"`
	Name       string `json:"name"`
	Icon       string `json:"icon,omitempty"`
}

// CategoryStore persists Category rows.
type CategoryStore struct {
	db database.Querier
}

func NewCategoryStore(db database.Querier) *CategoryStore {
	return &CategoryStore{db: db}
}

// Create inserts a new category. Returns ErrCategoryNameEmpty if name is
// blank after normalization, ErrCategoryAlreadyExists on a case-insensitive
// collision.
func (s *CategoryStore) Create(ctx context.Context, name, iconURL string) (*Category, error) {
	name = normalizeLowerTrim(name)
	if name == "" {
		return nil, ErrCategoryNameEmpty
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO categories (name, icon) VALUES (?, ?)`,
		name, iconURL,
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return nil, ErrCategoryAlreadyExists
		}
		return nil, fmt.Errorf("insert category: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("read category id: %w", err)
	}

	return s.Get(ctx, id)
}

// Get returns a category by id.
func (s *CategoryStore) Get(ctx context.Context, id int64) (*Category, error) {
	c := &Category{}
	err := s.db.QueryRowContext(ctx,
		`SELECT category_id, name, icon FROM categories WHERE category_id = ?`, id,
	).Scan(&c.CategoryID, &c.Name, &c.Icon)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrCategoryNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get category: %w", err)
	}
	return c, nil
}

// GetByName resolves a category by its normalized name.
func (s *CategoryStore) GetByName(ctx context.Context, name string) (*Category, error) {
	name = normalizeLowerTrim(name)
	c := &Category{}
	err := s.db.QueryRowContext(ctx,
		`SELECT category_id, name, icon FROM categories WHERE name = ?`, name,
	).Scan(&c.CategoryID, &c.Name, &c.Icon)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrCategoryNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get category by name: %w", err)
	}
	return c, nil
}

// List returns every category ordered by name.
func (s *CategoryStore) List(ctx context.Context) ([]*Category, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT category_id, name, icon FROM categories ORDER BY name`,
	)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var out []*Category
	for rows.Next() {
		c := &Category{}
		if err := rows.Scan(&c.CategoryID, &c.Name, &c.Icon); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Rename updates a category's name, failing with ErrCategoryAlreadyExists on
// a case-insensitive collision with a different category.
func (s *CategoryStore) Rename(ctx context.Context, id int64, newName string) error {
	newName = normalizeLowerTrim(newName)
	if newName == "" {
		return ErrCategoryNameEmpty
	}

	res, err := s.db.ExecContext(ctx, `UPDATE categories SET name = ? WHERE category_id = ?`, newName, id)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrCategoryAlreadyExists
		}
		return fmt.Errorf("rename category: %w", err)
	}
	return requireRowsAffected(res, ErrCategoryNotFound)
}

// Delete removes a category. Rejects with ErrCategoryReferenced when any
// torrent still points at it - categories are never cascade-deleted since
// a torrent without a category would violate the data model.
func (s *CategoryStore) Delete(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM categories WHERE category_id = ?`, id)
	if err != nil {
		if isForeignKeyConstraintError(err) {
			return ErrCategoryReferenced
		}
		return fmt.Errorf("delete category: %w", err)
	}
	return requireRowsAffected(res, ErrCategoryNotFound)
}

func requireRowsAffected(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return notFound
	}
	return nil
}
