// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package main

import (
	"github.com/spf13/cobra"

	"github.com/torrentindex/index/internal/config"
	"github.com/torrentindex/index/internal/database"
)

func RunDBCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "db",
		Short: "Database operations",
	}

	cmd.AddCommand(runDBMigrateCommand())
	return cmd
}

// runDBMigrateCommand applies the embedded SQL migrations for the
// configured dialect and exits. database.Open/OpenFromConfig run the
// migration set as a side effect of establishing the connection, so this
// command's only job is to open and close the database.
func runDBMigrateCommand() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply embedded database migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.New(configPath)
			if err != nil {
				return err
			}

			db, err := database.OpenFromConfig(&cfg.Config, cfg.DatabasePath())
			if err != nil {
				return err
			}
			defer db.Close()

			cmd.Printf("migrations applied (%s)\n", cfg.Config.Database.Engine)
			return nil
		},
	}

	cmd.Flags().StringVar(&configPath, "config", defaultConfigPath, "Path to the config.toml file")

	return cmd
}
