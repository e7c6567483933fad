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

// Tag is a free-form label a torrent can carry zero or more of, distinct
// from Category which is single-valued per torrent.
type Tag struct {
	TagID int64  `json:"tag_id"`
	Name  string `json:"name"`
}

// TagStore persists Tag rows and the torrent_tag_links join table.
type TagStore struct {
	db database.Querier
}

func NewTagStore(db database.Querier) *TagStore {
	return &TagStore{db: db}
}

func (s *TagStore) Create(ctx context.Context, name string) (*Tag, error) {
	name = normalizeLowerTrim(name)
	if name == "" {
		return nil, ErrTagNameEmpty
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO tags (name) VALUES (?)`, name,
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return nil, ErrTagAlreadyExists
		}
		return nil, fmt.Errorf("insert tag: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("read tag id: %w", err)
	}
	return s.Get(ctx, id)
}

func (s *TagStore) Get(ctx context.Context, id int64) (*Tag, error) {
	t := &Tag{}
	err := s.db.QueryRowContext(ctx,
		`SELECT tag_id, name FROM tags WHERE tag_id = ?`, id,
	).Scan(&t.TagID, &t.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTagNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get tag: %w", err)
	}
	return t, nil
}

// GetOrCreate resolves a tag by normalized name, creating it if absent. Used
// by the index service to turn free-form tag names from an upload into
// stable tag_ids without requiring a prior "create tag" call.
func (s *TagStore) GetOrCreate(ctx context.Context, name string) (*Tag, error) {
	name = normalizeLowerTrim(name)
	if name == "" {
		return nil, ErrTagNameEmpty
	}

	t, err := s.GetByName(ctx, name)
	if err == nil {
		return t, nil
	}
	if !errors.Is(err, ErrTagNotFound) {
		return nil, err
	}

	t, err = s.Create(ctx, name)
	if errors.Is(err, ErrTagAlreadyExists) {
		// Lost a create race; the row now exists, fetch it.
		return s.GetByName(ctx, name)
	}
	return t, err
}

func (s *TagStore) GetByName(ctx context.Context, name string) (*Tag, error) {
	name = normalizeLowerTrim(name)
	t := &Tag{}
	err := s.db.QueryRowContext(ctx,
		`SELECT tag_id, name FROM tags WHERE name = ?`, name,
	).Scan(&t.TagID, &t.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTagNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get tag by name: %w", err)
	}
	return t, nil
}

func (s *TagStore) List(ctx context.Context) ([]*Tag, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT tag_id, name FROM tags ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	defer rows.Close()

	var out []*Tag
	for rows.Next() {
		t := &Tag{}
		if err := rows.Scan(&t.TagID, &t.Name); err != nil {
			return nil, fmt.Errorf("scan tag: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// ListForTorrent returns the tags linked to a torrent.
func (s *TagStore) ListForTorrent(ctx context.Context, torrentID int64) ([]*Tag, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT t.tag_id, t.name
		FROM tags t
		JOIN torrent_tag_links l ON l.tag_id = t.tag_id
		WHERE l.torrent_id = ?
		ORDER BY t.name
	`, torrentID)
	if err != nil {
		return nil, fmt.Errorf("list tags for torrent: %w", err)
	}
	defer rows.Close()

	var out []*Tag
	for rows.Next() {
		t := &Tag{}
		if err := rows.Scan(&t.TagID, &t.Name); err != nil {
			return nil, fmt.Errorf("scan tag: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *TagStore) Delete(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM tags WHERE tag_id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete tag: %w", err)
	}
	return requireRowsAffected(res, ErrTagNotFound)
}

// linkTags associates torrentID with every tagID, inside the caller's
// transaction. Used only by TorrentStore.Add.
func linkTags(ctx context.Context, q database.Querier, torrentID int64, tagIDs []int64) error {
	for _, tagID := range tagIDs {
		if _, err := q.ExecContext(ctx,
			`INSERT INTO torrent_tag_links (torrent_id, tag_id) VALUES (?, ?)`, torrentID, tagID,
		); err != nil {
			return fmt.Errorf("link tag %d: %w", tagID, err)
		}
	}
	return nil
}
