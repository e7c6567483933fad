// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/torrentindex/index/internal/config"
	"github.com/torrentindex/index/internal/database"
	"github.com/torrentindex/index/internal/importer"
	"github.com/torrentindex/index/internal/logger"
	"github.com/torrentindex/index/internal/models"
	"github.com/torrentindex/index/internal/tracker"
)

func RunImporterCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "importer",
		Short: "Statistics importer operations",
	}

	cmd.AddCommand(runImporterRunOnceCommand())
	return cmd
}

// runImporterRunOnceCommand runs a single importer tick and exits, for
// cron-driven deployments that don't want the in-process ticker from the
// serve command.
func runImporterRunOnceCommand() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "run-once",
		Short: "Run a single statistics-importer tick and exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.New(configPath)
			if err != nil {
				return err
			}
			log := logger.Configure(cfg.Config.Logging)

			db, err := database.OpenFromConfig(&cfg.Config, cfg.DatabasePath())
			if err != nil {
				return err
			}
			defer db.Close()

			groupStore := models.NewInfoHashGroupStore(db)
			torrentStore := models.NewTorrentStore(db, groupStore, cfg.Config.API.MaxTorrentPageSize)
			trackerClient := tracker.NewClient(cfg.Config.Tracker.APIURL, cfg.Config.Tracker.Token, 15*time.Second, log)

			health := importer.NewHealthServer(time.Duration(cfg.Config.Importer.TorrentInfoUpdateIntervalSeconds)*time.Second + 10*time.Second)
			imp := importer.New(torrentStore, trackerClient,
				time.Duration(cfg.Config.Importer.TorrentInfoUpdateIntervalSeconds)*time.Second,
				health, "", log)

			imp.RunOnce(cmd.Context())
			cmd.Println("importer run-once complete")
			return nil
		},
	}

	cmd.Flags().StringVar(&configPath, "config", defaultConfigPath, "Path to the config.toml file")

	return cmd
}
