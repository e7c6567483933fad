// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package database

import (
	"context"
	"database/sql"
)

// Querier is the centralized interface for database operations. It is
// implemented by *sql.DB, *sql.Tx, *DB and *Tx, so repositories can accept
// any of these and participate in a caller-managed transaction without
// duplicating read/write code paths.
type Querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// TxBeginner is implemented by *DB. Repositories that need multi-statement
// atomicity accept a TxBeginner and fall back to Querier-only behavior
// otherwise.
type TxBeginner interface {
	Querier
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*Tx, error)
}
