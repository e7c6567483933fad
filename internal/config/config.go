// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package config loads the versioned TOML configuration document described
// by domain.Config, applying defaults and INDEX_-prefixed environment
// variable overrides on top of it.
package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/torrentindex/index/internal/domain"
)

const envPrefix = "INDEX_"

// AppConfig wraps the loaded document together with the viper instance that
// produced it, so callers can persist edits back with the same settings.
type AppConfig struct {
	domain.Config
	path string
	v    *viper.Viper
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("metadata.schema_version", "1")
	v.SetDefault("website.name", "Torrent Index")
	v.SetDefault("net.bind_address", "127.0.0.1:7474")
	v.SetDefault("tracker.token_valid_seconds", 7*24*3600)
	v.SetDefault("tracker.listed", true)
	v.SetDefault("auth.email_on_signup", string(domain.EmailOnSignupOptional))
	v.SetDefault("auth.password_constraints.min", 8)
	v.SetDefault("auth.password_constraints.max", 72)
	v.SetDefault("database.engine", "sqlite")
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime_seconds", 3600)
	v.SetDefault("image_cache.capacity", 512*1024*1024)
	v.SetDefault("image_cache.entry_size_limit", 8*1024*1024)
	v.SetDefault("image_cache.max_request_timeout_ms", 10000)
	v.SetDefault("image_cache.user_quota_period_seconds", 3600)
	v.SetDefault("image_cache.user_quota_bytes", 64*1024*1024)
	v.SetDefault("api.default_torrent_page_size", 50)
	v.SetDefault("api.max_torrent_page_size", 200)
	v.SetDefault("tracker_statistics_importer.torrent_info_update_interval", 1800)
	v.SetDefault("tracker_statistics_importer.port", 7475)
	v.SetDefault("logging.threshold", "INFO")
	v.SetDefault("logging.max_size", 50)
	v.SetDefault("logging.max_backups", 3)
}

// New loads configPath if it exists, applies defaults for anything the
// document and environment leave unset, and validates the result.
func New(configPath string) (*AppConfig, error) {
	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("toml")
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "__"))
	v.AutomaticEnv()
	// Unmarshal only sees keys viper already knows from a default or the
	// document; bind the rest so the environment alone can supply them.
	for _, key := range []string{
		"tracker.url", "tracker.api_url", "tracker.token", "tracker.private", "net.base_url",
		"auth.secret_key", "auth.user_claim_token_pepper", "database.connect_url",
		"database.host", "database.port", "database.user", "database.password", "database.name",
		"database.connect_timeout_seconds", "mail.from", "mail.reply_to", "mail.smtp.server",
		"mail.smtp.port", "mail.smtp.credentials.username", "mail.smtp.credentials.password",
		"mail.email_verification_enabled", "logging.path", "dataDir", "metricsHost",
		"metricsPort", "metricsEnabled", "metricsBasicAuthUsers", "pprofEnabled",
	} {
		_ = v.BindEnv(key)
	}

	if _, err := os.Stat(configPath); err == nil {
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("stat config file: %w", err)
	}

	var cfg domain.Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.DataDir == "" {
		cfg.DataDir = filepath.Dir(configPath)
	}
	if cfg.Auth.SecretKey == "" {
		secret, err := randomHexSecret(32)
		if err != nil {
			return nil, fmt.Errorf("generate auth secret key: %w", err)
		}
		cfg.Auth.SecretKey = secret
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &AppConfig{Config: cfg, path: configPath, v: v}, nil
}

// DatabasePath resolves where the sqlite database file lives relative to
// DataDir when no explicit DSN is configured. Non-sqlite engines connect via
// DSN/Host/Port instead and have no file path to resolve.
func (c *AppConfig) DatabasePath() string {
	if c.Database.Engine != "sqlite" {
		return ""
	}
	if c.Database.DSN != "" {
		return c.Database.DSN
	}
	return filepath.Join(c.DataDir, "index.db")
}

func randomHexSecret(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
