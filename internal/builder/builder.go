// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

// Package builder implements the offline index builder (C4): it streams
// the canonical source (§6), writes the mapping store, constructs and
// persists the global artist index (plus a symbolic-artist fallback),
// and records the shard-character partition table.
package builder

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/tomtom215/resolvd/internal/config"
	"github.com/tomtom215/resolvd/internal/fuzzyindex"
	"github.com/tomtom215/resolvd/internal/logging"
	"github.com/tomtom215/resolvd/internal/metrics"
	"github.com/tomtom215/resolvd/internal/model"
	"github.com/tomtom215/resolvd/internal/normalize"
)

// MappingSink is the subset of mapping.Store the builder writes through;
// narrowed to a single method so tests can substitute an in-memory
// double without standing up a DuckDB file.
type MappingSink interface {
	InsertBatch(ctx context.Context, rows []model.MappingRow) error
}

const (
	// ArtistIndexName and SymbolicIndexName are the fuzzyindex artifact
	// name prefixes under index_dir (§6's external interface table).
	// Exported so internal/shard can Load what Build saved without
	// duplicating the naming.
	ArtistIndexName   = "artist_index"
	SymbolicIndexName = "stupid_artist_index" // named per the external interface table
)

func artistIndexText(r model.ArtistIndexRow) string { return r.Text }

// Builder drives one full index build against a MappingSink and an
// index_dir (§6 persisted state layout).
type Builder struct {
	sink     MappingSink
	cfg      config.BuildConfig
	indexDir string
}

// New constructs a Builder. cfg.BatchSize governs the mapping-store flush
// cadence; cfg.RetryAttempts/RetryBackoff govern the retry-on-conflict
// policy for a batch flush (§9 design note: explicit bounded backoff, not
// a busy-wait loop).
func New(sink MappingSink, cfg config.BuildConfig, indexDir string) *Builder {
	return &Builder{sink: sink, cfg: cfg, indexDir: indexDir}
}

// Result summarizes a completed build.
type Result struct {
	RowsProcessed   int
	ArtistsIndexed  int
	SymbolicArtists int
}

// Build runs the full streaming build over cur. Any I/O error aborts the
// build; per §4.4's failure semantics, the caller is expected to discard
// whatever partial index_dir contents resulted (Build itself performs no
// cleanup — it is whole-or-nothing from the caller's point of view).
func (b *Builder) Build(ctx context.Context, cur Cursor) (*Result, error) {
	defer closeQuietly(cur)

	batchSize := b.cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 2500
	}

	var (
		result       Result
		mappingBatch []model.MappingRow
		artistRows   []model.ArtistIndexRow
		symbolicRows []model.ArtistIndexRow

		currentArtist model.ArtistCreditID
		currentRows   []model.MappingRow
		haveCurrent   bool
	)

	flush := func() error {
		if len(mappingBatch) == 0 {
			return nil
		}
		start := time.Now()
		op := func() error { return b.sink.InsertBatch(ctx, mappingBatch) }
		if err := backoff.Retry(op, b.retryPolicy()); err != nil {
			return fmt.Errorf("builder: flush mapping batch: %w", err)
		}
		metrics.RecordBuildBatch(time.Since(start))
		metrics.BuildRowsProcessed.WithLabelValues("artist").Add(float64(len(mappingBatch)))
		metrics.BuildRowsProcessed.WithLabelValues("release").Add(float64(len(mappingBatch)))
		metrics.BuildRowsProcessed.WithLabelValues("recording").Add(float64(len(mappingBatch)))
		mappingBatch = mappingBatch[:0]
		return nil
	}

	// finalizeArtist closes out the buffered rows for currentArtist: it
	// resolves shard_ch, emits the artist-index entry/entries, stamps
	// shard_ch onto every buffered mapping row, and appends them to the
	// flush batch. A row whose artist_credit_name yields neither a
	// standard nor symbolic normalization is skipped entirely (§4.4).
	finalizeArtist := func() {
		if !haveCurrent || len(currentRows) == 0 {
			return
		}
		defer func() { currentRows = nil }()

		representative := currentRows[0]
		encoded := normalize.Normalize(representative.ArtistCreditName)

		var shardCh model.ShardCh
		switch {
		case encoded != "":
			shardCh = model.ShardCh([]rune(encoded)[0])
			artistRows = append(artistRows, model.ArtistIndexRow{Text: encoded, ID: currentArtist, ShardCh: shardCh})
			if normalize.HasNonLatin(representative.ArtistCreditName) {
				if sortEncoded := normalize.Normalize(representative.ArtistCreditSortname); sortEncoded != "" && sortEncoded != encoded {
					// Duplicate entry carries the original shard_ch so
					// lookups under the romanized sort-name still route
					// to the same shard as the primary entry.
					artistRows = append(artistRows, model.ArtistIndexRow{Text: sortEncoded, ID: currentArtist, ShardCh: shardCh})
				}
			}
		default:
			symbolicEncoded := normalize.NormalizeSymbolic(representative.ArtistCreditName)
			if symbolicEncoded == "" {
				logging.Warn().
					Uint32("artist_credit_id", uint32(currentArtist)).
					Msg("skipping artist with no usable normalization")
				return
			}
			shardCh = model.SymbolicShardCh
			symbolicRows = append(symbolicRows, model.ArtistIndexRow{Text: symbolicEncoded, ID: currentArtist, ShardCh: shardCh})
		}

		for i := range currentRows {
			currentRows[i].ShardCh = shardCh
		}
		mappingBatch = append(mappingBatch, currentRows...)
		result.ArtistsIndexed++
		if shardCh == model.SymbolicShardCh {
			result.SymbolicArtists++
		}
	}

	for {
		row, ok, err := cur.Next(ctx)
		if err != nil {
			return nil, fmt.Errorf("builder: read source row: %w", err)
		}
		if !ok {
			break
		}
		result.RowsProcessed++

		if haveCurrent && row.ArtistCreditID != currentArtist {
			finalizeArtist()
			if len(mappingBatch) >= batchSize {
				if err := flush(); err != nil {
					return nil, err
				}
			}
		}
		currentArtist = row.ArtistCreditID
		haveCurrent = true
		currentRows = append(currentRows, model.MappingRow{
			ArtistCreditID:       row.ArtistCreditID,
			ArtistMbids:          joinMbids(row.ArtistMbids),
			ArtistCreditName:     row.ArtistCreditName,
			ArtistCreditSortname: row.ArtistCreditSortname,
			ReleaseID:            row.ReleaseID,
			ReleaseMbid:          row.ReleaseMbid,
			ReleaseName:          row.ReleaseName,
			RecordingID:          row.RecordingID,
			RecordingMbid:        row.RecordingMbid,
			RecordingName:        row.RecordingName,
			Score:                row.Score,
		})
	}
	finalizeArtist()
	if err := flush(); err != nil {
		return nil, err
	}

	if len(artistRows) == 0 && len(symbolicRows) == 0 {
		return nil, fmt.Errorf("builder: no input rows produced a usable artist normalization")
	}

	if len(artistRows) > 0 {
		idx := fuzzyindex.New(artistIndexText)
		if err := idx.Build(artistRows); err != nil {
			return nil, fmt.Errorf("builder: build global artist index: %w", err)
		}
		if err := idx.Save(b.indexDir, ArtistIndexName); err != nil {
			return nil, fmt.Errorf("builder: save global artist index: %w", err)
		}
	}
	if len(symbolicRows) > 0 {
		idx := fuzzyindex.New(artistIndexText)
		if err := idx.Build(symbolicRows); err != nil {
			return nil, fmt.Errorf("builder: build symbolic artist index: %w", err)
		}
		if err := idx.Save(b.indexDir, SymbolicIndexName); err != nil {
			return nil, fmt.Errorf("builder: save symbolic artist index: %w", err)
		}
	}

	partition := buildPartitionTable(artistRows, symbolicRows)
	if err := writePartitionTable(b.indexDir, partition); err != nil {
		return nil, fmt.Errorf("builder: write partition table: %w", err)
	}

	logging.Info().
		Int("rows_processed", result.RowsProcessed).
		Int("artists_indexed", result.ArtistsIndexed).
		Int("symbolic_artists", result.SymbolicArtists).
		Int("shard_chars", len(partition)).
		Msg("index build complete")

	return &result, nil
}

// retryPolicy builds the bounded exponential backoff used to retry a
// batch flush on a transient write conflict (§9: explicit retry with
// bounded backoff, not a busy-wait loop).
func (b *Builder) retryPolicy() backoff.BackOff {
	eb := backoff.NewExponentialBackOff()
	if b.cfg.RetryBackoff > 0 {
		eb.InitialInterval = b.cfg.RetryBackoff
	}
	attempts := b.cfg.RetryAttempts
	if attempts <= 0 {
		return backoff.WithMaxRetries(eb, 0)
	}
	return &retryCountingBackOff{
		BackOff: backoff.WithMaxRetries(eb, uint64(attempts)),
	}
}

// retryCountingBackOff wraps a backoff.BackOff and records a metric on
// every retry it hands out (NextBackOff is called once per failed
// attempt; a result other than backoff.Stop means another attempt is
// about to happen, and only those results are counted).
type retryCountingBackOff struct {
	backoff.BackOff
}

func (r *retryCountingBackOff) NextBackOff() time.Duration {
	d := r.BackOff.NextBackOff()
	if d != backoff.Stop {
		metrics.BuildBatchRetries.Inc()
	}
	return d
}

// buildPartitionTable counts, per shard character, how many artist-index
// rows (primary and non-Latin duplicate entries alike) were filed under
// it — the histogram the shard router bin-packs against.
func buildPartitionTable(artistRows, symbolicRows []model.ArtistIndexRow) []model.PartitionEntry {
	counts := make(map[model.ShardCh]int)
	for _, r := range artistRows {
		counts[r.ShardCh]++
	}
	for _, r := range symbolicRows {
		counts[r.ShardCh]++
	}
	out := make([]model.PartitionEntry, 0, len(counts))
	for ch, count := range counts {
		out = append(out, model.PartitionEntry{ShardCh: ch, Count: count})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ShardCh < out[j].ShardCh })
	return out
}

func closeQuietly(c Cursor) {
	if c != nil {
		_ = c.Close() //nolint:errcheck // build has already succeeded or failed by this point
	}
}
