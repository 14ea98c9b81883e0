// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

// Package main is the entry point for the resolvd daemon.
//
// resolvd answers fuzzy (artist, release, recording) lookups against a
// sharded, artist-partitioned index built offline by cmd/builder. This
// process holds no external request surface of its own (§1 Non-goals:
// "HTTP surface"); it assembles the shard router and keeps its worker
// goroutines supervised and ready, to be driven by an embedding caller
// through internal/shard.Router's Go API.
//
// # Application Architecture
//
// main initializes components in the following order:
//
//  1. Configuration: layered Koanf v2 sources (defaults, config file, env)
//  2. Logging: zerolog, configured from the loaded config
//  3. Mapping store: DuckDB-backed relation built by cmd/builder
//  4. Artist-data cache: badger-backed bundle cache with a TTL front cache
//  5. Shard router: loads the artist/symbolic indexes and partition table,
//     bin-packs shard characters, builds one worker per shard
//  6. Supervisor tree: one suture.Service per shard worker, plus the
//     cache eviction sweep as a maintenance service
//
// # Signal Handling
//
// SIGINT and SIGTERM trigger a graceful shutdown: the supervisor tree's
// context is canceled, shard workers finish any in-flight request and
// stop, and the mapping store and artist cache are closed.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/tomtom215/resolvd/internal/builder"
	"github.com/tomtom215/resolvd/internal/cache"
	"github.com/tomtom215/resolvd/internal/config"
	"github.com/tomtom215/resolvd/internal/logging"
	"github.com/tomtom215/resolvd/internal/mapping"
	"github.com/tomtom215/resolvd/internal/shard"
	"github.com/tomtom215/resolvd/internal/supervisor"
	"github.com/tomtom215/resolvd/internal/supervisor/services"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})
	logging.Info().Msg("starting resolvd")

	store, err := mapping.Open(&cfg.Database)
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to open mapping store")
	}
	defer func() {
		if err := store.Close(); err != nil {
			logging.Error().Err(err).Msg("error closing mapping store")
		}
	}()

	bundleCache, err := cache.NewArtistCache(cache.ArtistCacheConfig{
		MaxEntries:    cfg.Cache.MaxEntries,
		LowWatermark:  cfg.Cache.LowWatermark,
		SweepInterval: cfg.Cache.SweepInterval,
		BackingDir:    cfg.Cache.BackingDir,
	})
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to open artist-data cache")
	}
	defer func() {
		if err := bundleCache.Close(); err != nil {
			logging.Error().Err(err).Msg("error closing artist-data cache")
		}
	}()

	partition, err := builder.ReadPartitionTable(cfg.Index.Dir)
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to read shard partition table")
	}

	bundles := &shard.CachingMaterializer{Cache: bundleCache, Source: store}

	router, err := shard.NewRouter(cfg.Index.Dir, partition, store, bundles, shard.NoopCleaner, shard.RouterConfig{
		ShardCount:        cfg.Index.ShardCount,
		RequestTimeout:    cfg.Shard.RequestTimeout,
		QueueDepth:        cfg.Shard.QueueDepth,
		CleanerConfidence: cfg.Shard.CleanerConfidence,
	})
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to build shard router")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to create supervisor tree")
	}

	for _, w := range router.Workers() {
		tree.AddWorkerService(shard.NewShardWorkerService(w))
	}
	sweep := cache.NewEvictionSweep(bundleCache, cfg.Cache.SweepInterval)
	tree.AddMaintenanceService(services.NewManagedService("cache-sweep", sweep))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("received shutdown signal")
		cancel()
	}()

	logging.Info().
		Int("shard_count", cfg.Index.ShardCount).
		Str("index_dir", cfg.Index.Dir).
		Msg("shard router ready")

	errCh := tree.ServeBackground(ctx)
	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("supervisor tree error")
		}
	}

	if unstopped, _ := tree.UnstoppedServiceReport(); len(unstopped) > 0 {
		logging.Warn().Int("count", len(unstopped)).Msg("services failed to stop within timeout")
	}
	logging.Info().Msg("resolvd stopped gracefully")
}
