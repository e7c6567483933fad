// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package api

import (
	"net/http"
	_ "net/http/pprof"

	"github.com/rs/zerolog/log"

	"github.com/torrentindex/index/internal/config"
)

// pprofAddr is fixed to loopback-only; pprof exposes heap/goroutine dumps
// and must never be reachable from outside the host.
const pprofAddr = "127.0.0.1:6060"

// StartPprofServer starts the pprof profiling server if enabled, serving
// net/http/pprof's side-effect registration on http.DefaultServeMux.
func StartPprofServer(cfg *config.AppConfig) error {
	if !cfg.Config.PprofEnabled {
		return nil
	}

	go func() {
		log.Info().Str("addr", pprofAddr).Msg("starting pprof server")
		if err := http.ListenAndServe(pprofAddr, nil); err != nil {
			log.Error().Err(err).Msg("pprof server failed")
		}
	}()

	return nil
}
