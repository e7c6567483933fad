// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/torrentindex/index/internal/api"
	"github.com/torrentindex/index/internal/config"
	"github.com/torrentindex/index/internal/database"
	"github.com/torrentindex/index/internal/imageproxy"
	"github.com/torrentindex/index/internal/importer"
	"github.com/torrentindex/index/internal/index"
	"github.com/torrentindex/index/internal/logger"
	"github.com/torrentindex/index/internal/mail"
	"github.com/torrentindex/index/internal/models"
	"github.com/torrentindex/index/internal/tracker"
	"github.com/torrentindex/index/internal/users"
	"github.com/torrentindex/index/pkg/titles"
)

func RunServeCommand() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the torrent index HTTP server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context(), configPath)
		},
	}

	cmd.Flags().StringVar(&configPath, "config", defaultConfigPath, "Path to the config.toml file")

	return cmd
}

func serve(ctx context.Context, configPath string) error {
	cfg, err := config.New(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log := logger.Configure(cfg.Config.Logging)
	log.Info().Str("addr", cfg.Config.Net.BindAddress).Msg("starting indexd")

	db, err := database.OpenFromConfig(&cfg.Config, cfg.DatabasePath())
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	userStore := models.NewUserStore(db)
	categoryStore := models.NewCategoryStore(db)
	tagStore := models.NewTagStore(db)
	groupStore := models.NewInfoHashGroupStore(db)
	torrentStore := models.NewTorrentStore(db, groupStore, cfg.Config.API.MaxTorrentPageSize)
	trackerKeyStore := models.NewTrackerKeyStore(db)

	trackerClient := tracker.NewClient(cfg.Config.Tracker.APIURL, cfg.Config.Tracker.Token, 15*time.Second, log)
	keyCache := tracker.NewKeyCache(trackerClient, trackerKeyStore, cfg.Config.Tracker.URL, cfg.Config.Tracker.TokenValidSeconds)
	rewriter := tracker.NewRewriter(keyCache, cfg.Config.Tracker.URL)

	indexService := index.New(torrentStore, categoryStore, tagStore, trackerClient, keyCache, rewriter,
		titles.NewParser(), cfg.Config.Tracker.URL, log)

	var mailer mail.Mailer = mail.NewSMTPMailer(cfg.Config.Mail)
	usersService := users.New(userStore, mailer, cfg.Config, log)

	imageProxy := imageproxy.New(imageproxy.Config{
		Capacity:               cfg.Config.ImageCache.CapacityBytes,
		PerEntrySizeLimit:      cfg.Config.ImageCache.EntrySizeLimitBytes,
		MaxRequestTimeout:      time.Duration(cfg.Config.ImageCache.MaxRequestTimeoutMs) * time.Millisecond,
		UserQuotaPeriodSeconds: int64(cfg.Config.ImageCache.UserQuotaPeriodSeconds),
		UserQuotaBytes:         uint64(cfg.Config.ImageCache.UserQuotaBytes),
	})

	router := api.NewRouter(&api.Dependencies{
		Config:     cfg,
		Users:      usersService,
		Categories: categoryStore,
		Tags:       tagStore,
		Torrents:   torrentStore,
		Index:      indexService,
		ImageProxy: imageProxy,
	})

	if err := api.StartPprofServer(cfg); err != nil {
		log.Error().Err(err).Msg("failed to start pprof server")
	}

	healthServer := importer.NewHealthServer(time.Duration(cfg.Config.Importer.TorrentInfoUpdateIntervalSeconds)*time.Second + 10*time.Second)
	imp := importer.New(
		torrentStore,
		trackerClient,
		time.Duration(cfg.Config.Importer.TorrentInfoUpdateIntervalSeconds)*time.Second,
		healthServer,
		fmt.Sprintf("http://127.0.0.1:%d", cfg.Config.Importer.Port),
		log,
	)

	importerCtx, cancelImporter := context.WithCancel(ctx)
	defer cancelImporter()
	go imp.Run(importerCtx)
	go func() {
		if err := importer.ListenAndServeHealth(importerCtx, cfg.Config.Importer.Port, healthServer); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("importer health server failed")
		}
	}()

	srv := &http.Server{
		Addr:         cfg.Config.Net.BindAddress,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
			return
		}
		serverErr <- nil
	}()

	stop, cancelStop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancelStop()

	select {
	case <-stop.Done():
		log.Info().Msg("shutdown signal received")
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	}

	imp.Stop()
	cancelImporter()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}

	return nil
}
