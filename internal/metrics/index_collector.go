// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// IndexCollector bundles the counters and histograms the core domain
// packages (index, importer, imageproxy, tracker) report activity through.
// Each metric is registered directly with the caller's registry rather than
// via the Collector interface, since these are plain counters/histograms
// with no computed-at-scrape-time state.
type IndexCollector struct {
	TorrentsUploaded prometheus.Counter
	TorrentsDeleted  prometheus.Counter
	SearchesServed   prometheus.Counter

	TrackerRequests *prometheus.CounterVec

	ImporterTickDuration prometheus.Histogram
	ImporterBatchSize    prometheus.Histogram

	ImageProxyCacheHits      prometheus.Counter
	ImageProxyCacheMisses    prometheus.Counter
	ImageProxyQuotaRejected  prometheus.Counter
}

func NewIndexCollector(registry prometheus.Registerer) *IndexCollector {
	c := &IndexCollector{
		TorrentsUploaded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "index", Subsystem: "torrents", Name: "uploaded_total",
			Help: "Total number of torrents successfully uploaded.",
		}),
		TorrentsDeleted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "index", Subsystem: "torrents", Name: "deleted_total",
			Help: "Total number of torrents deleted.",
		}),
		SearchesServed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "index", Subsystem: "torrents", Name: "searches_served_total",
			Help: "Total number of listing/search requests served.",
		}),
		TrackerRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "index", Subsystem: "tracker", Name: "requests_total",
			Help: "Tracker API client requests by operation and outcome.",
		}, []string{"operation", "outcome"}),
		ImporterTickDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "index", Subsystem: "importer", Name: "tick_duration_seconds",
			Help:    "Duration of each statistics importer tick.",
			Buckets: prometheus.DefBuckets,
		}),
		ImporterBatchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "index", Subsystem: "importer", Name: "batch_size",
			Help:    "Number of torrents refreshed per importer tick.",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000},
		}),
		ImageProxyCacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "index", Subsystem: "image_proxy", Name: "cache_hits_total",
			Help: "Image proxy requests served from the in-memory cache.",
		}),
		ImageProxyCacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "index", Subsystem: "image_proxy", Name: "cache_misses_total",
			Help: "Image proxy requests that required a remote fetch.",
		}),
		ImageProxyQuotaRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "index", Subsystem: "image_proxy", Name: "quota_rejected_total",
			Help: "Image proxy requests rejected for exceeding a user's rolling quota.",
		}),
	}

	registry.MustRegister(
		c.TorrentsUploaded,
		c.TorrentsDeleted,
		c.SearchesServed,
		c.TrackerRequests,
		c.ImporterTickDuration,
		c.ImporterBatchSize,
		c.ImageProxyCacheHits,
		c.ImageProxyCacheMisses,
		c.ImageProxyQuotaRejected,
	)

	return c
}

// ObserveImporterTick records one statistics-importer tick's duration and
// the batch size it processed.
func (c *IndexCollector) ObserveImporterTick(start time.Time, batchSize int) {
	c.ImporterTickDuration.Observe(time.Since(start).Seconds())
	c.ImporterBatchSize.Observe(float64(batchSize))
}
