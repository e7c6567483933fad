// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package models

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/torrentindex/index/internal/database"
)

// TrackerKey is a previously-issued, expiring per-user tracker credential.
type TrackerKey struct {
	TrackerKeyID int64
	UserID       int64
	Key          string
	ValidUntil   time.Time
}

// TrackerKeyStore persists issued tracker keys.
type TrackerKeyStore struct {
	db database.Querier
}

func NewTrackerKeyStore(db database.Querier) *TrackerKeyStore {
	return &TrackerKeyStore{db: db}
}

// Add records a newly-issued key for a user.
func (s *TrackerKeyStore) Add(ctx context.Context, userID int64, key string, validUntil time.Time) (*TrackerKey, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO tracker_keys (user_id, tracker_key, valid_until) VALUES (?, ?, ?)`,
		userID, key, validUntil,
	)
	if err != nil {
		return nil, fmt.Errorf("insert tracker key: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("read tracker key id: %w", err)
	}
	return &TrackerKey{TrackerKeyID: id, UserID: userID, Key: key, ValidUntil: validUntil}, nil
}

// LatestValidAfter returns the most recently issued key for a user whose
// valid_until is after the given cutoff, or ErrTrackerKeyNotFound if none
// qualifies - used by the tracker key cache to enforce the one-hour safety
// margin before a key is considered usable.
func (s *TrackerKeyStore) LatestValidAfter(ctx context.Context, userID int64, cutoff time.Time) (*TrackerKey, error) {
	k := &TrackerKey{}
	err := s.db.QueryRowContext(ctx, `
		SELECT tracker_key_id, user_id, tracker_key, valid_until
		FROM tracker_keys
		WHERE user_id = ? AND valid_until > ?
		ORDER BY valid_until DESC
		LIMIT 1
	`, userID, cutoff).Scan(&k.TrackerKeyID, &k.UserID, &k.Key, &k.ValidUntil)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTrackerKeyNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get latest tracker key: %w", err)
	}
	return k, nil
}
