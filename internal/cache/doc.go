// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

/*
Package cache implements the artist-data bundle cache (C6): a process-wide
cache of materialized per-artist release/recording sub-indexes, keyed by
artist_credit_id, shared across the shard worker pool.

# Layers

The spec describes an OS shared-memory region per cached artist. In a single
Go process tree that collapses to two cooperating layers:

  - An in-process TTL front cache (Cache, this package's original
    general-purpose cache primitive) holding recently touched bundles
    in memory for the fastest possible hit path.
  - A durable badger/v4-backed store (ArtistCache) that every worker goroutine
    shares, so a bundle materialized once survives a front-cache eviction
    without forcing the materializer to recompute it, and so the eviction
    sweep has one place to enforce the size budget.

A LRUCache tracks access recency for the eviction sweep (lru.go, adapted from
a general LRU/TTL primitive to drive ArtistCache's watermark eviction), and a
BloomFilter (bloom.go) front-runs the durable store: an artist id never saved
can be rejected without a badger read, since a Bloom filter never produces a
false negative.

The exact-match Trie primitive that shared this package in the teacher now
lives in internal/trie, split out so internal/fuzzyindex (which this package
depends on transitively through internal/artist) can use it without an
import cycle.

# Eviction

EvictionSweep runs on a fixed period (ArtistCacheConfig.SweepInterval) and,
whenever the number of resident bundles exceeds the high watermark, evicts
least-recently-accessed entries (via LRUCache.EvictLRU) until the cache is
back under the low watermark. Eviction is advisory: per spec, a worker that
already holds a bundle in hand keeps using it; only the next Load for that
artist observes the eviction and triggers rematerialization.

# See Also

  - internal/artist: produces the Bundle this package caches
  - internal/shard: the worker that calls Load/Save on a query
  - SPEC_FULL.md §4.6 / §C6
*/
package cache
