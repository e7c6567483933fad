// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package database

import (
	"context"
	"fmt"
	"strings"
)

type Dialect string

const (
	DialectSQLite Dialect = "sqlite"
	DialectMySQL  Dialect = "mysql"
)

func (d Dialect) String() string {
	return string(d)
}

func parseDialect(raw string) (Dialect, error) {
	normalized := strings.ToLower(strings.TrimSpace(raw))
	switch normalized {
	case "", string(DialectSQLite):
		return DialectSQLite, nil
	case string(DialectMySQL), "mariadb":
		return DialectMySQL, nil
	default:
		return "", fmt.Errorf("unsupported database engine %q", raw)
	}
}

func (db *DB) Dialect() string {
	if db == nil {
		return string(DialectSQLite)
	}
	if db.dialect == "" {
		return string(DialectSQLite)
	}
	return db.dialect.String()
}

func (t *Tx) Dialect() string {
	if t == nil || t.db == nil {
		return string(DialectSQLite)
	}
	return t.db.Dialect()
}

// DeferForeignKeyChecks relaxes referential-integrity checking for the
// lifetime of the transaction. Both supported engines use '?' positional
// placeholders natively so no query rewriting is needed between them; this
// is the only behavior that actually differs between the two drivers.
func (t *Tx) DeferForeignKeyChecks(ctx context.Context) error {
	if t == nil || t.db == nil {
		return nil
	}
	switch t.db.dialect {
	case DialectSQLite:
		_, err := t.ExecContext(ctx, "PRAGMA defer_foreign_keys = ON;")
		return err
	case DialectMySQL:
		_, err := t.ExecContext(ctx, "SET FOREIGN_KEY_CHECKS = 0;")
		return err
	default:
		return nil
	}
}

// bindQuery is a passthrough: SQLite and MySQL both accept '?' placeholders,
// unlike Postgres' '$N' convention, so no rebind step is required here.
func (db *DB) bindQuery(query string) string {
	return query
}
