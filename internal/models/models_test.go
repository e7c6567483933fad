// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package models

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/torrentindex/index/internal/database"
)

// newTestDB opens a migrated, temp-file-backed SQLite database for a single
// test. A real file (rather than ":memory:") is used because the database
// package's single-writer loop acquires a dedicated *sql.Conn, which an
// in-memory database would not share across connections.
func newTestDB(t *testing.T) *database.DB {
	t.Helper()

	dir := t.TempDir()
	db, err := database.Open(database.OpenOptions{
		Engine:  "sqlite",
		SQLPath: filepath.Join(dir, "test.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}
