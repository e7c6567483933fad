// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	cfg := &Config{}
	cfg.Metadata.SchemaVersion = "2.0.0"
	cfg.Tracker.Token = "s3cr3t"
	cfg.Auth.UserClaimTokenPepper = "pepper"
	cfg.Logging.Threshold = "info"
	return cfg
}

func TestConfigValidate(t *testing.T) {
	t.Run("passes with all mandatory options set", func(t *testing.T) {
		require.NoError(t, validConfig().Validate())
	})

	t.Run("fails when metadata.schema_version is missing", func(t *testing.T) {
		cfg := validConfig()
		cfg.Metadata.SchemaVersion = ""

		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "metadata.schema_version")
	})

	t.Run("fails when tracker.token is missing", func(t *testing.T) {
		cfg := validConfig()
		cfg.Tracker.Token = ""

		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "tracker.token")
	})

	t.Run("fails when auth.user_claim_token_pepper is missing", func(t *testing.T) {
		cfg := validConfig()
		cfg.Auth.UserClaimTokenPepper = ""

		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "auth.user_claim_token_pepper")
	})

	t.Run("fails when logging.threshold is missing", func(t *testing.T) {
		cfg := validConfig()
		cfg.Logging.Threshold = ""

		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "logging.threshold")
	})

	t.Run("reports every missing option at once", func(t *testing.T) {
		err := (&Config{}).Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "metadata.schema_version")
		assert.Contains(t, err.Error(), "tracker.token")
		assert.Contains(t, err.Error(), "auth.user_claim_token_pepper")
		assert.Contains(t, err.Error(), "logging.threshold")
	})

	t.Run("rejects an unrecognized email_on_signup value", func(t *testing.T) {
		cfg := validConfig()
		cfg.Auth.EmailOnSignup = "sometimes"

		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "email_on_signup")
	})
}

func TestAuthConfigEmailVerificationRequired(t *testing.T) {
	assert.True(t, AuthConfig{EmailOnSignup: EmailOnSignupRequired}.EmailVerificationRequired())
	assert.False(t, AuthConfig{EmailOnSignup: EmailOnSignupOptional}.EmailVerificationRequired())
	assert.False(t, AuthConfig{EmailOnSignup: EmailOnSignupIgnored}.EmailVerificationRequired())
	assert.False(t, AuthConfig{}.EmailVerificationRequired())
}
