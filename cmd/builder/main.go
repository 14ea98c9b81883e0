// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

// Package main is the offline index builder CLI: it streams a canonical
// artist/release/recording export into the mapping store and produces
// the artist index, symbolic-artist index, and shard partition table
// the resolver daemon (cmd/resolvd) serves from.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/tomtom215/resolvd/internal/builder"
	"github.com/tomtom215/resolvd/internal/config"
	"github.com/tomtom215/resolvd/internal/logging"
	"github.com/tomtom215/resolvd/internal/mapping"
)

func main() {
	sourcePath := flag.String("source", "", "path to a newline-delimited JSON export of the canonical source (required)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to load configuration")
	}
	logging.Init(logging.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format, Caller: cfg.Logging.Caller})

	if *sourcePath == "" {
		logging.Fatal().Msg("missing required -source flag")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logging.Warn().Msg("received shutdown signal, aborting build")
		cancel()
	}()

	store, err := mapping.Open(&cfg.Database)
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to open mapping store")
	}
	defer func() {
		if err := store.Close(); err != nil {
			logging.Error().Err(err).Msg("error closing mapping store")
		}
	}()

	cur, err := builder.NewJSONLCursor(*sourcePath)
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to open source cursor")
	}

	b := builder.New(store, cfg.Build, cfg.Index.Dir)
	logging.Info().Str("source", *sourcePath).Str("index_dir", cfg.Index.Dir).Msg("starting index build")

	result, err := b.Build(ctx, cur)
	if err != nil {
		logging.Fatal().Err(err).Msg("index build failed")
	}

	logging.Info().
		Int("rows_processed", result.RowsProcessed).
		Int("artists_indexed", result.ArtistsIndexed).
		Int("symbolic_artists", result.SymbolicArtists).
		Msg("index build complete")
}
