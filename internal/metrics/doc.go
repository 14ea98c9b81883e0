// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

/*
Package metrics instruments the resolver daemon with Prometheus counters,
gauges, and histograms.

# Available Metrics

Build (C4):
  - resolvd_build_rows_processed_total{kind}
  - resolvd_build_batch_duration_seconds
  - resolvd_build_batch_retries_total

Fuzzy index (C2):
  - resolvd_search_confidence
  - resolvd_search_duration_seconds{stage}

Artist materializer (C5):
  - resolvd_materialize_duration_seconds
  - resolvd_materialize_empty_artist_total

Artist-data cache (C6):
  - resolvd_cache_hits_total / resolvd_cache_misses_total
  - resolvd_cache_evictions_total{reason}
  - resolvd_cache_resident_bundles

Shard router/worker (C7):
  - resolvd_shard_queue_depth{shard}
  - resolvd_shard_requests_total{shard,outcome}
  - resolvd_shard_reply_duration_seconds{shard}
  - resolvd_shard_breaker_state{shard}

# Usage

	http.Handle("/metrics", promhttp.Handler())
	metrics.RecordSearch("recording", time.Since(start))
*/
package metrics
