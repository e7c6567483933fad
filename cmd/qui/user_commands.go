// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/torrentindex/index/internal/auth"
	"github.com/torrentindex/index/internal/config"
	"github.com/torrentindex/index/internal/database"
	"github.com/torrentindex/index/internal/models"
)

func RunUserCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "User account operations",
	}

	cmd.AddCommand(runCreateAdminCommand())
	return cmd
}

// runCreateAdminCommand bootstraps the first administrator directly against
// models.UserStore.MakeAdministrator, since self-service registration
// (users.Service.Register) only ever creates ordinary accounts.
func runCreateAdminCommand() *cobra.Command {
	var (
		configPath string
		username   string
		email      string
	)

	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create the first administrator account",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.New(configPath)
			if err != nil {
				return err
			}

			reader := bufio.NewReader(cmd.InOrStdin())

			if username == "" {
				username, err = readLine(cmd, reader, "Username: ")
				if err != nil {
					return err
				}
			}
			username = strings.TrimSpace(username)
			if username == "" {
				return errors.New("username is required")
			}

			if email == "" {
				email, err = readLine(cmd, reader, "Email (optional): ")
				if err != nil {
					return err
				}
			}
			email = strings.TrimSpace(email)

			password, err := readPassword(cmd, reader, "Password: ")
			if err != nil {
				return err
			}
			confirm, err := readPassword(cmd, reader, "Confirm password: ")
			if err != nil {
				return err
			}
			if password != confirm {
				return errors.New("passwords do not match")
			}
			if min := cfg.Config.Auth.PasswordConstraints.MinLength; min > 0 && len(password) < min {
				return fmt.Errorf("password must be at least %d characters", min)
			}

			passwordHash, err := auth.HashPassword(password)
			if err != nil {
				return fmt.Errorf("hash password: %w", err)
			}

			db, err := database.OpenFromConfig(&cfg.Config, cfg.DatabasePath())
			if err != nil {
				return fmt.Errorf("open database: %w", err)
			}
			defer db.Close()

			userStore := models.NewUserStore(db)
			user, err := userStore.MakeAdministrator(cmd.Context(), username, email, passwordHash)
			if err != nil {
				return fmt.Errorf("create administrator: %w", err)
			}

			cmd.Printf("administrator %q created (user_id=%d)\n", user.Username, user.UserID)
			return nil
		},
	}

	cmd.Flags().StringVar(&configPath, "config", defaultConfigPath, "Path to the config.toml file")
	cmd.Flags().StringVar(&username, "username", "", "Administrator username (prompted when omitted)")
	cmd.Flags().StringVar(&email, "email", "", "Administrator email (prompted when omitted)")

	return cmd
}

func readLine(cmd *cobra.Command, reader *bufio.Reader, prompt string) (string, error) {
	cmd.Print(prompt)
	line, err := reader.ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("read input: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// readPassword reads a password without echoing it to the terminal when
// stdin is a TTY, falling back to reading a plain newline-terminated line
// from reader otherwise (piped input, e.g. CI bootstrap scripts). The
// fallback must share reader with the rest of the prompts rather than wrap
// stdin in a second bufio.Reader, which would silently drop already
// buffered-ahead input.
func readPassword(cmd *cobra.Command, reader *bufio.Reader, prompt string) (string, error) {
	cmd.Print(prompt)

	if f, ok := cmd.InOrStdin().(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		b, err := term.ReadPassword(int(f.Fd()))
		cmd.Println()
		if err != nil {
			return "", fmt.Errorf("read password: %w", err)
		}
		return string(b), nil
	}

	line, err := reader.ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}
