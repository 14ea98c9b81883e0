// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

// Package config loads and validates the resolver daemon's configuration.
package config

import (
	"fmt"
	"time"
)

// Config is the top-level configuration for the resolver daemon.
type Config struct {
	Index    IndexConfig    `koanf:"index"`
	Cache    CacheConfig    `koanf:"cache"`
	Database DatabaseConfig `koanf:"database"`
	Build    BuildConfig    `koanf:"build"`
	Shard    ShardConfig    `koanf:"shard"`
	Logging  LoggingConfig  `koanf:"logging"`
}

// IndexConfig controls where the fuzzy index and shard table live.
type IndexConfig struct {
	// Dir is the directory holding the built artist index, the symbolic
	// artist index and the shard partition table. Per-artist fuzzy
	// sub-indexes are not stored here.
	Dir string `koanf:"dir" validate:"required"`
	// ShardCount is the number of shard workers the artist namespace is
	// partitioned across.
	ShardCount int `koanf:"shard_count" validate:"required,min=1"`
}

// CacheConfig controls the artist-data bundle cache (C6).
type CacheConfig struct {
	// MaxEntries is the high watermark; the eviction sweep runs whenever the
	// cache exceeds this many resident bundles.
	MaxEntries int `koanf:"max_entries" validate:"required,min=1"`
	// LowWatermark is the target size the eviction sweep evicts down to.
	LowWatermark int `koanf:"low_watermark" validate:"required,min=1,ltefield=MaxEntries"`
	// SweepInterval is how often the background eviction sweep runs.
	SweepInterval time.Duration `koanf:"sweep_interval" validate:"required"`
	// BackingDir is where the durable (badger) backing store persists every
	// saved bundle; the eviction sweep deletes evicted bundles from it.
	BackingDir string `koanf:"backing_dir" validate:"required"`
}

// DatabaseConfig controls the DuckDB-backed mapping store (C3).
type DatabaseConfig struct {
	Path      string `koanf:"path" validate:"required"`
	MaxMemory string `koanf:"max_memory"`
	Threads   int    `koanf:"threads"`
}

// BuildConfig controls the offline index builder (C4).
type BuildConfig struct {
	// BatchSize is the number of source rows flushed per mapping-store
	// transaction (spec.md targets ~2500).
	BatchSize int `koanf:"batch_size" validate:"required,min=1"`
	// RetryAttempts bounds retries on a transient mapping-store write conflict.
	RetryAttempts int           `koanf:"retry_attempts" validate:"min=0"`
	RetryBackoff  time.Duration `koanf:"retry_backoff"`
}

// ShardConfig controls the shard router and workers (C7).
type ShardConfig struct {
	// RequestTimeout bounds how long the router waits for a worker reply
	// before returning ErrSearchTimeout.
	RequestTimeout time.Duration `koanf:"request_timeout" validate:"required"`
	// QueueDepth is the per-worker inbound request channel capacity.
	QueueDepth int `koanf:"queue_depth" validate:"required,min=1"`
	// CleanerConfidence is the best artist-search confidence at or below
	// which the router retries the search with the cleaner's output and
	// merges the extra hits.
	// See SPEC_FULL.md Open Question decision #2.
	CleanerConfidence float64 `koanf:"cleaner_confidence" validate:"gt=0,lte=1"`
}

// LoggingConfig controls the zerolog-backed logger.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// DefaultCleanerConfidence is the spec's default cleaner-rescue threshold,
// used when ShardConfig.CleanerConfidence is left unset.
const DefaultCleanerConfidence = 0.9

// Validate checks the configuration for obviously invalid values beyond what
// the struct tags already express, and fills in any remaining zero-value
// defaults that validator tags can't express (e.g. CleanerConfidence's
// documented fallback).
func (c *Config) Validate() error {
	if c.Shard.CleanerConfidence == 0 {
		c.Shard.CleanerConfidence = DefaultCleanerConfidence
	}
	if err := getValidator().Struct(c); err != nil {
		return fmt.Errorf("config validation: %w", err)
	}
	if c.Cache.LowWatermark > c.Cache.MaxEntries {
		return fmt.Errorf("cache.low_watermark (%d) must not exceed cache.max_entries (%d)",
			c.Cache.LowWatermark, c.Cache.MaxEntries)
	}
	return nil
}
