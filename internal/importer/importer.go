// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package importer

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/torrentindex/index/internal/models"
	"github.com/torrentindex/index/internal/tracker"
)

// batchSize bounds how many stale torrents a single tick refreshes, keeping
// the per-tick tracker round-trip count bounded rather than growing
// unbounded with catalog size.
const batchSize = 200

// Importer periodically refreshes every torrent's swarm statistics from the
// tracker. It holds a cancellation channel rather than a weak reference to
// its owner: Go has no pointer-weakness primitive that fits this shutdown
// shape, so the owning service closes Stop() to terminate the loop at the
// next tick boundary, the same pattern the rest of this codebase's
// background loops use.
type Importer struct {
	torrents *models.TorrentStore
	client   *tracker.Client
	interval time.Duration
	health   *HealthServer
	heartbeatURL string
	log      zerolog.Logger

	done chan struct{}
}

// New builds an Importer. heartbeatURL is this process's own loopback
// liveness endpoint base (e.g. "http://127.0.0.1:9300"); the tick loop POSTs
// its heartbeat there rather than updating HealthServer directly, so the
// heartbeat path is exercised exactly the way an external prober would see
// it.
func New(torrents *models.TorrentStore, client *tracker.Client, interval time.Duration, health *HealthServer, heartbeatURL string, log zerolog.Logger) *Importer {
	return &Importer{
		torrents:     torrents,
		client:       client,
		interval:     interval,
		health:       health,
		heartbeatURL: heartbeatURL,
		log:          log.With().Str("component", "statistics_importer").Logger(),
		done:         make(chan struct{}),
	}
}

// Stop terminates the tick loop at its next boundary. Safe to call once.
func (imp *Importer) Stop() {
	close(imp.done)
}

// Run blocks, ticking every interval until ctx is canceled or Stop is
// called. Each tick's errors are logged and never abort the loop.
func (imp *Importer) Run(ctx context.Context) {
	ticker := time.NewTicker(imp.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-imp.done:
			return
		case <-ticker.C:
			imp.tick(ctx)
		}
	}
}

// RunOnce performs a single tick, for the "importer run-once" CLI command.
func (imp *Importer) RunOnce(ctx context.Context) {
	imp.tick(ctx)
}

func (imp *Importer) tick(ctx context.Context) {
	imp.sendHeartbeat(ctx)

	cutoff := time.Now().UTC().Add(-imp.interval)
	stale, err := imp.torrents.GetTorrentsWithStatsNotUpdatedSince(ctx, cutoff, batchSize)
	if err != nil {
		imp.log.Error().Err(err).Msg("failed to list stale torrents")
		return
	}
	if len(stale) == 0 {
		return
	}

	hashes := make([]string, len(stale))
	byHash := make(map[string]int64, len(stale))
	for i, t := range stale {
		hashes[i] = t.CanonicalInfoHash
		byHash[t.CanonicalInfoHash] = t.TorrentID
	}

	live, err := imp.client.GetTorrents(ctx, hashes)
	if err != nil {
		imp.log.Error().Err(err).Int("batch_size", len(hashes)).Msg("failed to fetch live torrent stats")
		return
	}

	for _, hash := range hashes {
		torrentID := byHash[hash]
		seeders, leechers := 0, 0
		if info, ok := live[hash]; ok {
			seeders, leechers = info.Seeders, info.Leechers
		}
		if err := imp.torrents.UpdateTrackerInfo(ctx, torrentID, trackerURLKey, seeders, leechers); err != nil {
			imp.log.Error().Err(err).Int64("torrent_id", torrentID).Msg("failed to persist tracker stats")
		}
	}

	imp.log.Debug().Int("batch_size", len(hashes)).Msg("statistics import tick complete")
}

// trackerURLKey is the tracker_url column value for the single tracker this
// engine imports from; the schema supports multiple trackers per torrent,
// but this engine only ever configures one.
const trackerURLKey = "primary"

func (imp *Importer) sendHeartbeat(ctx context.Context) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, imp.heartbeatURL+"/heartbeat", nil)
	if err != nil {
		imp.log.Warn().Err(err).Msg("failed to build heartbeat request")
		return
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		imp.log.Warn().Err(err).Msg("failed to send heartbeat")
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		imp.log.Warn().Int("status", resp.StatusCode).Msg("heartbeat endpoint returned non-2xx")
	}
}

// ListenAndServeHealth starts the loopback-bound liveness HTTP server. It
// blocks until ctx is canceled, then shuts the server down gracefully.
func ListenAndServeHealth(ctx context.Context, port int, health *HealthServer) error {
	srv := &http.Server{
		Addr:    fmt.Sprintf("127.0.0.1:%d", port),
		Handler: health.Handler(),
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}
