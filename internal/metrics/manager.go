// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package metrics registers the Prometheus collectors exposed on the
// loopback-bound /metrics endpoint: process/Go runtime collectors plus
// index-domain counters for uploads, deletes, searches, tracker client
// outcomes, importer ticks and image-proxy cache activity.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog/log"
)

// Manager owns the registry and the index-domain collector.
type Manager struct {
	registry *prometheus.Registry
	index    *IndexCollector
}

func NewManager() *Manager {
	registry := prometheus.NewRegistry()

	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	index := NewIndexCollector(registry)

	log.Info().Msg("metrics manager initialized with index collector")

	return &Manager{registry: registry, index: index}
}

func (m *Manager) GetRegistry() *prometheus.Registry {
	return m.registry
}

// Index returns the collector components report activity through.
func (m *Manager) Index() *IndexCollector {
	return m.index
}
