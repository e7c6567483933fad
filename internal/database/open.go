// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"
	"modernc.org/sqlite"

	"github.com/torrentindex/index/internal/domain"
)

type OpenOptions struct {
	Engine   string
	SQLPath  string // sqlite file path
	MySQLDSN string

	MySQLHost     string
	MySQLPort     int
	MySQLUser     string
	MySQLPassword string
	MySQLDatabase string

	ConnectTimeout  time.Duration
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

func Open(opts OpenOptions) (*DB, error) {
	dialect, err := parseDialect(opts.Engine)
	if err != nil {
		return nil, err
	}

	switch dialect {
	case DialectSQLite:
		if strings.TrimSpace(opts.SQLPath) == "" {
			return nil, errors.New("sqlite database path is required")
		}
		return openSQLite(opts.SQLPath)
	case DialectMySQL:
		dsn := strings.TrimSpace(opts.MySQLDSN)
		if dsn == "" {
			dsn = buildMySQLDSN(opts)
		}
		if dsn == "" {
			return nil, errors.New("mysql dsn is required")
		}
		return openMySQL(dsn, opts)
	default:
		return nil, fmt.Errorf("unsupported database engine %q", opts.Engine)
	}
}

func OpenFromConfig(cfg *domain.Config, sqlitePath string) (*DB, error) {
	if cfg == nil {
		return nil, errors.New("nil config")
	}
	return Open(OpenOptions{
		Engine:          cfg.Database.Engine,
		SQLPath:         sqlitePath,
		MySQLDSN:        cfg.Database.DSN,
		MySQLHost:       cfg.Database.Host,
		MySQLPort:       cfg.Database.Port,
		MySQLUser:       cfg.Database.User,
		MySQLPassword:   cfg.Database.Password,
		MySQLDatabase:   cfg.Database.Name,
		ConnectTimeout:  time.Duration(cfg.Database.ConnectTimeoutSeconds) * time.Second,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: time.Duration(cfg.Database.ConnMaxLifetimeSeconds) * time.Second,
	})
}

func buildMySQLDSN(opts OpenOptions) string {
	host := strings.TrimSpace(opts.MySQLHost)
	user := strings.TrimSpace(opts.MySQLUser)
	dbName := strings.TrimSpace(opts.MySQLDatabase)
	if host == "" || user == "" || dbName == "" {
		return ""
	}

	port := opts.MySQLPort
	if port <= 0 {
		port = 3306
	}

	connectTimeout := opts.ConnectTimeout
	if connectTimeout <= 0 {
		connectTimeout = 10 * time.Second
	}

	q := url.Values{}
	q.Set("parseTime", "true")
	q.Set("timeout", connectTimeout.String())
	q.Set("multiStatements", "false")

	userInfo := user
	if opts.MySQLPassword != "" {
		userInfo = user + ":" + opts.MySQLPassword
	}

	return fmt.Sprintf("%s@tcp(%s:%d)/%s?%s", userInfo, host, port, dbName, q.Encode())
}

var sqliteHookOnce sync.Once

func registerSQLiteConnectionHook() {
	sqliteHookOnce.Do(func() {
		sqlite.RegisterConnectionHook(func(conn sqlite.ExecQuerierContext, dsn string) error {
			ctx, cancel := context.WithTimeout(context.Background(), connectionSetupTimeout)
			defer cancel()
			pragmas := []string{
				"PRAGMA journal_mode = WAL",
				"PRAGMA foreign_keys = ON",
				fmt.Sprintf("PRAGMA busy_timeout = %d", defaultBusyTimeoutMillis),
				"PRAGMA analysis_limit = 400",
			}
			for _, p := range pragmas {
				if _, err := conn.ExecContext(ctx, p, nil); err != nil {
					return fmt.Errorf("connection hook exec %q: %w", p, err)
				}
			}
			return nil
		})
	})
}

func openSQLite(databasePath string) (*DB, error) {
	log.Info().Msgf("initializing sqlite database at %s", databasePath)

	dir := filepath.Dir(databasePath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create database directory %s: %w", dir, err)
	}

	registerSQLiteConnectionHook()

	conn, err := sql.Open("sqlite", databasePath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database at %s: %w", databasePath, err)
	}

	// Single connection during migrations to avoid stale-schema races.
	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)

	db := &DB{
		dialect: DialectSQLite,
		conn:    conn,
		writeCh: make(chan writeReq, writeChannelBuffer),
		stmts:   newStmtCache(),
		stop:    make(chan struct{}),
	}

	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	conn.SetMaxOpenConns(0)
	conn.SetMaxIdleConns(2)
	conn.SetConnMaxLifetime(0)

	ctx, cancel := context.WithTimeout(context.Background(), connectionSetupTimeout)
	defer cancel()
	writeConn, err := conn.Conn(ctx)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("acquire write connection: %w", err)
	}
	db.writeConn = writeConn

	db.writerWG.Add(1)
	go db.writerLoop()

	return db, nil
}

func openMySQL(dsn string, opts OpenOptions) (*DB, error) {
	log.Info().Msg("initializing mysql database")

	conn, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("open mysql database: %w", err)
	}

	maxOpen := opts.MaxOpenConns
	if maxOpen <= 0 {
		maxOpen = 25
	}
	maxIdle := opts.MaxIdleConns
	if maxIdle <= 0 {
		maxIdle = 5
	}
	conn.SetMaxOpenConns(maxOpen)
	conn.SetMaxIdleConns(maxIdle)
	if opts.ConnMaxLifetime > 0 {
		conn.SetConnMaxLifetime(opts.ConnMaxLifetime)
	}

	ctx, cancel := context.WithTimeout(context.Background(), connectionSetupTimeout)
	defer cancel()
	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ping mysql database: %w", err)
	}

	db := &DB{
		dialect: DialectMySQL,
		conn:    conn,
		stmts:   newStmtCache(),
		stop:    make(chan struct{}),
	}

	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return db, nil
}
