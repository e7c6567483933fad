// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package domain

import (
	"fmt"
	"strings"
)

// EmailOnSignup controls whether a newly registered user must verify their
// address before they can authenticate.
type EmailOnSignup string

const (
	EmailOnSignupRequired EmailOnSignup = "required"
	EmailOnSignupOptional EmailOnSignup = "optional"
	EmailOnSignupIgnored  EmailOnSignup = "ignored"
)

// Config is the root application configuration, loaded from a versioned TOML
// document and overridable by INDEX__-prefixed environment variables (double
// underscore as the nested-key separator, e.g. INDEX__TRACKER__TOKEN).
type Config struct {
	Metadata   MetadataConfig                   `toml:"metadata" mapstructure:"metadata"`
	Website    WebsiteConfig                    `toml:"website" mapstructure:"website"`
	Tracker    TrackerConfig                    `toml:"tracker" mapstructure:"tracker"`
	Net        NetConfig                        `toml:"net" mapstructure:"net"`
	Auth       AuthConfig                       `toml:"auth" mapstructure:"auth"`
	Database   DatabaseConfig                   `toml:"database" mapstructure:"database"`
	Mail       MailConfig                       `toml:"mail" mapstructure:"mail"`
	ImageCache ImageCacheConfig                 `toml:"image_cache" mapstructure:"image_cache"`
	API        APIConfig                        `toml:"api" mapstructure:"api"`
	Importer   TrackerStatisticsImporterConfig  `toml:"tracker_statistics_importer" mapstructure:"tracker_statistics_importer"`
	Logging    LoggingConfig                    `toml:"logging" mapstructure:"logging"`

	// Version is stamped at build time, not read from the document.
	Version string `toml:"-" mapstructure:"-"`

	DataDir               string `toml:"dataDir" mapstructure:"dataDir"`
	MetricsHost           string `toml:"metricsHost" mapstructure:"metricsHost"`
	MetricsPort           int    `toml:"metricsPort" mapstructure:"metricsPort"`
	MetricsEnabled        bool   `toml:"metricsEnabled" mapstructure:"metricsEnabled"`
	MetricsBasicAuthUsers string `toml:"metricsBasicAuthUsers" mapstructure:"metricsBasicAuthUsers"`
	PprofEnabled          bool   `toml:"pprofEnabled" mapstructure:"pprofEnabled"`
}

type MetadataConfig struct {
	SchemaVersion string `toml:"schema_version" mapstructure:"schema_version"`
}

type WebsiteConfig struct {
	Name string `toml:"name" mapstructure:"name"`
}

type TrackerConfig struct {
	URL               string `toml:"url" mapstructure:"url"`
	APIURL            string `toml:"api_url" mapstructure:"api_url"`
	Token             string `toml:"token" mapstructure:"token"`
	TokenValidSeconds int    `toml:"token_valid_seconds" mapstructure:"token_valid_seconds"`
	Listed            bool   `toml:"listed" mapstructure:"listed"`
	Private           bool   `toml:"private" mapstructure:"private"`
}

type TLSConfig struct {
	CertFilePath string `toml:"cert_file_path" mapstructure:"cert_file_path"`
	KeyFilePath  string `toml:"key_file_path" mapstructure:"key_file_path"`
}

type NetConfig struct {
	BindAddress string     `toml:"bind_address" mapstructure:"bind_address"`
	BaseURL     string     `toml:"base_url" mapstructure:"base_url"`
	TLS         *TLSConfig `toml:"tls" mapstructure:"tls"`
}

type PasswordConstraints struct {
	MinLength int `toml:"min" mapstructure:"min"`
	MaxLength int `toml:"max" mapstructure:"max"`
}

type AuthConfig struct {
	EmailOnSignup        EmailOnSignup       `toml:"email_on_signup" mapstructure:"email_on_signup"`
	PasswordConstraints  PasswordConstraints `toml:"password_constraints" mapstructure:"password_constraints"`
	SecretKey            string              `toml:"secret_key" mapstructure:"secret_key"`
	UserClaimTokenPepper string              `toml:"user_claim_token_pepper" mapstructure:"user_claim_token_pepper"`
}

// DatabaseConfig selects and configures the relational store. SQLite and
// MySQL are interchangeable; only Engine plus the fields it actually reads
// matter (SQLPath is supplied separately by the CLI, not this struct).
type DatabaseConfig struct {
	Engine                 string `toml:"engine" mapstructure:"engine"`
	DSN                    string `toml:"connect_url" mapstructure:"connect_url"`
	Host                   string `toml:"host" mapstructure:"host"`
	Port                   int    `toml:"port" mapstructure:"port"`
	User                   string `toml:"user" mapstructure:"user"`
	Password               string `toml:"password" mapstructure:"password"`
	Name                   string `toml:"name" mapstructure:"name"`
	ConnectTimeoutSeconds  int    `toml:"connect_timeout_seconds" mapstructure:"connect_timeout_seconds"`
	MaxOpenConns           int    `toml:"max_open_conns" mapstructure:"max_open_conns"`
	MaxIdleConns           int    `toml:"max_idle_conns" mapstructure:"max_idle_conns"`
	ConnMaxLifetimeSeconds int    `toml:"conn_max_lifetime_seconds" mapstructure:"conn_max_lifetime_seconds"`
}

type SMTPCredentials struct {
	Username string `toml:"username" mapstructure:"username"`
	Password string `toml:"password" mapstructure:"password"`
}

type SMTPConfig struct {
	Server      string          `toml:"server" mapstructure:"server"`
	Port        int             `toml:"port" mapstructure:"port"`
	Credentials SMTPCredentials `toml:"credentials" mapstructure:"credentials"`
}

type MailConfig struct {
	From                      string     `toml:"from" mapstructure:"from"`
	ReplyTo                   string     `toml:"reply_to" mapstructure:"reply_to"`
	SMTP                      SMTPConfig `toml:"smtp" mapstructure:"smtp"`
	EmailVerificationEnabled  bool       `toml:"email_verification_enabled" mapstructure:"email_verification_enabled"`
}

type ImageCacheConfig struct {
	CapacityBytes          int64 `toml:"capacity" mapstructure:"capacity"`
	EntrySizeLimitBytes    int64 `toml:"entry_size_limit" mapstructure:"entry_size_limit"`
	MaxRequestTimeoutMs    int   `toml:"max_request_timeout_ms" mapstructure:"max_request_timeout_ms"`
	UserQuotaPeriodSeconds int   `toml:"user_quota_period_seconds" mapstructure:"user_quota_period_seconds"`
	UserQuotaBytes         int64 `toml:"user_quota_bytes" mapstructure:"user_quota_bytes"`
}

type APIConfig struct {
	DefaultTorrentPageSize int `toml:"default_torrent_page_size" mapstructure:"default_torrent_page_size"`
	MaxTorrentPageSize     int `toml:"max_torrent_page_size" mapstructure:"max_torrent_page_size"`
}

type TrackerStatisticsImporterConfig struct {
	TorrentInfoUpdateIntervalSeconds int `toml:"torrent_info_update_interval" mapstructure:"torrent_info_update_interval"`
	Port                             int `toml:"port" mapstructure:"port"`
}

type LoggingConfig struct {
	Threshold  string `toml:"threshold" mapstructure:"threshold"`
	Path       string `toml:"path" mapstructure:"path"`
	MaxSize    int    `toml:"max_size" mapstructure:"max_size"`
	MaxBackups int    `toml:"max_backups" mapstructure:"max_backups"`
}

// Validate checks the options the document declares mandatory. It does not
// apply defaults; config.New does that before calling it.
func (c *Config) Validate() error {
	var missing []string

	if strings.TrimSpace(c.Metadata.SchemaVersion) == "" {
		missing = append(missing, "metadata.schema_version")
	}
	if strings.TrimSpace(c.Tracker.Token) == "" {
		missing = append(missing, "tracker.token")
	}
	if strings.TrimSpace(c.Auth.UserClaimTokenPepper) == "" {
		missing = append(missing, "auth.user_claim_token_pepper")
	}
	if strings.TrimSpace(c.Logging.Threshold) == "" {
		missing = append(missing, "logging.threshold")
	}

	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration options: %s", strings.Join(missing, ", "))
	}

	switch c.Auth.EmailOnSignup {
	case EmailOnSignupRequired, EmailOnSignupOptional, EmailOnSignupIgnored, "":
	default:
		return fmt.Errorf("invalid auth.email_on_signup value %q", c.Auth.EmailOnSignup)
	}

	return nil
}

// EmailVerificationRequired reports whether a fresh registration must verify
// its address before first login. EmailOnSignupIgnored and the zero value
// both mean "don't bother".
func (a AuthConfig) EmailVerificationRequired() bool {
	return a.EmailOnSignup == EmailOnSignupRequired
}
