// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package main

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/torrentindex/index/internal/auth"
	"github.com/torrentindex/index/internal/config"
	"github.com/torrentindex/index/internal/database"
	"github.com/torrentindex/index/internal/models"
)

func runUserCommand(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()

	// No config file exists in these tests, so the mandatory options come
	// from the environment.
	t.Setenv("INDEX__TRACKER__TOKEN", "admin-token")
	t.Setenv("INDEX__AUTH__USER_CLAIM_TOKEN_PEPPER", "pepper")

	cmd := RunUserCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)

	err := cmd.Execute()
	return out.String(), err
}

func TestCreateAdminCommand_CreatesAdministrator(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.toml")

	output, err := runUserCommand(t, "adminpass123\nadminpass123\n",
		"create-admin",
		"--config", configPath,
		"--username", "root-admin",
		"--email", "admin@example.test",
	)
	require.NoError(t, err)
	assert.Contains(t, output, "root-admin")

	cfg, err := config.New(configPath)
	require.NoError(t, err)

	db, err := database.OpenFromConfig(&cfg.Config, cfg.DatabasePath())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	userStore := models.NewUserStore(db)
	user, err := userStore.GetByUsername(context.Background(), "root-admin")
	require.NoError(t, err)
	assert.True(t, user.IsAdministrator)
	assert.Equal(t, "admin@example.test", user.Email)

	valid, err := auth.VerifyPasswordHash("adminpass123", user.PasswordHash)
	require.NoError(t, err)
	assert.True(t, valid)
}

func TestCreateAdminCommand_RejectsPasswordMismatch(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.toml")

	_, err := runUserCommand(t, "adminpass123\nsomethingelse\n",
		"create-admin",
		"--config", configPath,
		"--username", "root-admin",
		"--email", "admin@example.test",
	)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "do not match")
}

func TestCreateAdminCommand_RejectsDuplicateUsername(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.toml")

	_, err := runUserCommand(t, "adminpass123\nadminpass123\n",
		"create-admin",
		"--config", configPath,
		"--username", "root-admin",
		"--email", "admin@example.test",
	)
	require.NoError(t, err)

	_, err = runUserCommand(t, "adminpass123\nadminpass123\n",
		"create-admin",
		"--config", configPath,
		"--username", "root-admin",
		"--email", "admin@example.test",
	)
	require.Error(t, err)
}
