// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus instrumentation for the resolver daemon: index build throughput,
// artist-data cache efficiency, fuzzy-search confidence, and shard routing.

var (
	// Build Metrics (C4 index builder)
	BuildRowsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "resolvd_build_rows_processed_total",
			Help: "Total number of source rows processed by the index builder",
		},
		[]string{"kind"}, // "artist", "release", "recording"
	)

	BuildBatchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "resolvd_build_batch_duration_seconds",
			Help:    "Duration of a single mapping-store batch flush",
			Buckets: prometheus.DefBuckets,
		},
	)

	BuildBatchRetries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "resolvd_build_batch_retries_total",
			Help: "Total number of batch flush retries due to write conflicts",
		},
	)

	// Fuzzy Index Metrics (C2)
	SearchConfidence = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "resolvd_search_confidence",
			Help:    "Distribution of top-candidate confidence scores returned by a search",
			Buckets: []float64{0.1, 0.3, 0.5, 0.6, 0.7, 0.8, 0.9, 0.95, 1.0},
		},
	)

	SearchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "resolvd_search_duration_seconds",
			Help:    "Duration of a fuzzy index search",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"stage"}, // "artist", "release", "recording"
	)

	// Artist-Data Materializer Metrics (C5)
	MaterializeDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "resolvd_materialize_duration_seconds",
			Help:    "Duration of building one artist's in-memory bundle and sub-index",
			Buckets: prometheus.DefBuckets,
		},
	)

	MaterializeEmptyArtist = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "resolvd_materialize_empty_artist_total",
			Help: "Total number of materialize calls for an artist with no recordings",
		},
	)

	// Artist-Data Cache Metrics (C6)
	CacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "resolvd_cache_hits_total",
			Help: "Total number of artist-data cache hits",
		},
	)

	CacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "resolvd_cache_misses_total",
			Help: "Total number of artist-data cache misses",
		},
	)

	CacheEvictions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "resolvd_cache_evictions_total",
			Help: "Total number of artist-data cache evictions",
		},
		[]string{"reason"}, // "watermark", "manual"
	)

	CacheSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "resolvd_cache_resident_bundles",
			Help: "Current number of artist-data bundles resident in the cache",
		},
	)

	// Shard Router/Worker Metrics (C7)
	ShardQueueDepth = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "resolvd_shard_queue_depth",
			Help: "Current number of queued requests per shard worker",
		},
		[]string{"shard"},
	)

	ShardRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "resolvd_shard_requests_total",
			Help: "Total number of requests dispatched to a shard worker",
		},
		[]string{"shard", "outcome"}, // outcome: "ok", "timeout", "unavailable", "not_found"
	)

	ShardReplyDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "resolvd_shard_reply_duration_seconds",
			Help:    "End-to-end duration from request dispatch to reply",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"shard"},
	)

	ShardBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "resolvd_shard_breaker_state",
			Help: "Circuit breaker state per shard (0=closed, 1=half-open, 2=open)",
		},
		[]string{"shard"},
	)
)

// RecordBuildBatch records the duration of a single batch flush.
func RecordBuildBatch(d time.Duration) {
	BuildBatchDuration.Observe(d.Seconds())
}

// RecordSearch records a search stage's duration. It does not record
// confidence; SearchConfidence is not observed here.
func RecordSearch(stage string, d time.Duration) {
	SearchDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// RecordMaterialize records the duration of materializing one artist bundle.
func RecordMaterialize(d time.Duration, empty bool) {
	MaterializeDuration.Observe(d.Seconds())
	if empty {
		MaterializeEmptyArtist.Inc()
	}
}

// breakerStateValue maps a circuit breaker state name to the gauge encoding
// documented on ShardBreakerState.
func breakerStateValue(state string) float64 {
	switch state {
	case "half-open":
		return 1
	case "open":
		return 2
	default:
		return 0
	}
}

// RecordBreakerState updates the per-shard circuit breaker gauge.
func RecordBreakerState(shard, state string) {
	ShardBreakerState.WithLabelValues(shard).Set(breakerStateValue(state))
}
