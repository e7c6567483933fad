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

// ErrInfoHashNotFound is returned by InfoHashGroupStore.FindCanonical when an
// info-hash has never been observed.
var ErrInfoHashNotFound = errors.New("info hash not found")

// InfoHashGroupStore maps every info-hash ever observed (original or
// canonical) to the canonical info-hash of the Torrent it belongs to.
// Clients frequently inject gratuitous custom keys into the info dict to
// create duplicates; this table lets the index resolve all of them to the
// same stored Torrent while still remembering which original bytes were
// actually seen.
type InfoHashGroupStore struct {
	db database.Querier
}

func NewInfoHashGroupStore(db database.Querier) *InfoHashGroupStore {
	return &InfoHashGroupStore{db: db}
}

// FindCanonical resolves any info-hash (original or canonical) to the
// canonical info-hash of the Torrent it belongs to.
func (s *InfoHashGroupStore) FindCanonical(ctx context.Context, infoHash string) (string, error) {
	var canonical string
	err := s.db.QueryRowContext(ctx,
		`SELECT canonical_info_hash FROM torrent_info_hashes WHERE info_hash = ?`, infoHash,
	).Scan(&canonical)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrInfoHashNotFound
	}
	if err != nil {
		return "", fmt.Errorf("find canonical info hash: %w", err)
	}
	return canonical, nil
}

// AddMapping records that originalHash resolves to canonicalHash. Idempotent
// on originalHash: a second call for the same original hash widens
// original_is_known rather than erroring, since the same torrent bytes can
// legitimately be re-ingested. Implemented as select-then-write rather than
// an upsert so the same statement works unchanged against both SQLite's
// "ON CONFLICT" and MySQL's "ON DUPLICATE KEY" dialects.
func (s *InfoHashGroupStore) AddMapping(ctx context.Context, originalHash, canonicalHash string, originalIsKnown bool) error {
	var existingKnown bool
	err := s.db.QueryRowContext(ctx,
		`SELECT original_is_known FROM torrent_info_hashes WHERE info_hash = ?`, originalHash,
	).Scan(&existingKnown)

	switch {
	case errors.Is(err, sql.ErrNoRows):
		_, err = s.db.ExecContext(ctx,
			`INSERT INTO torrent_info_hashes (info_hash, canonical_info_hash, original_is_known) VALUES (?, ?, ?)`,
			originalHash, canonicalHash, originalIsKnown,
		)
		if err != nil {
			return fmt.Errorf("insert info hash mapping: %w", err)
		}
		return nil
	case err != nil:
		return fmt.Errorf("check info hash mapping: %w", err)
	default:
		_, err = s.db.ExecContext(ctx,
			`UPDATE torrent_info_hashes SET canonical_info_hash = ?, original_is_known = ? WHERE info_hash = ?`,
			canonicalHash, existingKnown || originalIsKnown, originalHash,
		)
		if err != nil {
			return fmt.Errorf("update info hash mapping: %w", err)
		}
		return nil
	}
}

// GroupOf returns every original info-hash that resolves to canonicalHash,
// including canonicalHash itself.
func (s *InfoHashGroupStore) GroupOf(ctx context.Context, canonicalHash string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT info_hash FROM torrent_info_hashes WHERE canonical_info_hash = ? ORDER BY info_hash`, canonicalHash,
	)
	if err != nil {
		return nil, fmt.Errorf("group of info hash: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var h string
		if err := rows.Scan(&h); err != nil {
			return nil, fmt.Errorf("scan info hash: %w", err)
		}
		out = append(out, h)
	}
	return out, rows.Err()
}
