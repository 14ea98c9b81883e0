// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package builder

import (
	"context"
	"sync"
	"testing"

	"github.com/tomtom215/resolvd/internal/config"
	"github.com/tomtom215/resolvd/internal/fuzzyindex"
	"github.com/tomtom215/resolvd/internal/model"
)

type memSink struct {
	mu   sync.Mutex
	rows []model.MappingRow
}

func (m *memSink) InsertBatch(_ context.Context, rows []model.MappingRow) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows = append(m.rows, rows...)
	return nil
}

func testBuildConfig() config.BuildConfig {
	return config.BuildConfig{BatchSize: 10, RetryAttempts: 2}
}

func TestBuildWritesMappingRowsAndIndexes(t *testing.T) {
	dir := t.TempDir()
	sink := &memSink{}
	rows := []SourceRow{
		{
			ArtistCreditID: 65, ArtistMbids: []string{"mbid-1"},
			ArtistCreditName: "Portishead", ArtistCreditSortname: "Portishead",
			ReleaseID: 10, ReleaseName: "Dummy",
			RecordingID: 100, RecordingName: "Strangers", Score: 50,
		},
		{
			ArtistCreditID: 66, ArtistMbids: []string{"mbid-2"},
			ArtistCreditName: "!!!", ArtistCreditSortname: "!!!",
			ReleaseID: 20, ReleaseName: "Louden Up Now",
			RecordingID: 200, RecordingName: "Me and Giuliani Down by the Schoolyard", Score: 10,
		},
	}

	b := New(sink, testBuildConfig(), dir)
	result, err := b.Build(context.Background(), NewSliceCursor(rows))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if result.RowsProcessed != 2 {
		t.Errorf("RowsProcessed = %d, want 2", result.RowsProcessed)
	}
	if result.ArtistsIndexed != 2 {
		t.Errorf("ArtistsIndexed = %d, want 2", result.ArtistsIndexed)
	}
	if result.SymbolicArtists != 1 {
		t.Errorf("SymbolicArtists = %d, want 1", result.SymbolicArtists)
	}

	if len(sink.rows) != 2 {
		t.Fatalf("expected 2 mapping rows written, got %d", len(sink.rows))
	}
	for _, r := range sink.rows {
		if r.ArtistCreditID == 65 && r.ShardCh != 'p' {
			t.Errorf("expected portishead shard_ch 'p', got %q", r.ShardCh)
		}
		if r.ArtistCreditID == 66 && r.ShardCh != model.SymbolicShardCh {
			t.Errorf("expected symbolic shard_ch for !!!, got %q", r.ShardCh)
		}
	}

	idx := fuzzyindex.New(func(r model.ArtistIndexRow) string { return r.Text })
	loaded, err := idx.Load(dir, ArtistIndexName)
	if err != nil || !loaded {
		t.Fatalf("expected global artist index artifacts, loaded=%v err=%v", loaded, err)
	}

	symbolicIdx := fuzzyindex.New(func(r model.ArtistIndexRow) string { return r.Text })
	loaded, err = symbolicIdx.Load(dir, SymbolicIndexName)
	if err != nil || !loaded {
		t.Fatalf("expected symbolic artist index artifacts, loaded=%v err=%v", loaded, err)
	}

	partition, err := ReadPartitionTable(dir)
	if err != nil {
		t.Fatalf("ReadPartitionTable: %v", err)
	}
	if len(partition) != 2 {
		t.Fatalf("expected 2 partition entries, got %d", len(partition))
	}
}

func TestBuildSkipsRowWithNoUsableNormalization(t *testing.T) {
	dir := t.TempDir()
	sink := &memSink{}
	rows := []SourceRow{
		{
			ArtistCreditID: 1, ArtistCreditName: "   ", ArtistCreditSortname: "   ",
			ReleaseID: 1, RecordingID: 1, Score: 1,
		},
		{
			ArtistCreditID: 2, ArtistCreditName: "Tricky", ArtistCreditSortname: "Tricky",
			ReleaseID: 2, RecordingID: 2, Score: 1,
		},
	}

	b := New(sink, testBuildConfig(), dir)
	result, err := b.Build(context.Background(), NewSliceCursor(rows))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if result.ArtistsIndexed != 1 {
		t.Errorf("ArtistsIndexed = %d, want 1 (blank-name artist should be skipped)", result.ArtistsIndexed)
	}
	if len(sink.rows) != 1 {
		t.Errorf("expected only Tricky's row written, got %d rows", len(sink.rows))
	}
}

func TestBuildNonLatinArtistGetsSortNameDuplicate(t *testing.T) {
	dir := t.TempDir()
	sink := &memSink{}
	rows := []SourceRow{
		{
			ArtistCreditID: 7, ArtistCreditName: "東京事変", ArtistCreditSortname: "Tokyo Jihen",
			ReleaseID: 1, RecordingID: 1, Score: 1,
		},
	}

	b := New(sink, testBuildConfig(), dir)
	if _, err := b.Build(context.Background(), NewSliceCursor(rows)); err != nil {
		t.Fatalf("Build: %v", err)
	}

	idx := fuzzyindex.New(func(r model.ArtistIndexRow) string { return r.Text })
	if _, err := idx.Load(dir, ArtistIndexName); err != nil {
		t.Fatalf("Load: %v", err)
	}
	// The primary entry (normalized original text) plus the romanized
	// sort-name duplicate should both be present.
	if idx.Len() != 2 {
		t.Fatalf("expected 2 artist-index rows (primary + sort-name duplicate), got %d", idx.Len())
	}
}

func TestBuildEmptySourceFails(t *testing.T) {
	dir := t.TempDir()
	sink := &memSink{}
	b := New(sink, testBuildConfig(), dir)
	if _, err := b.Build(context.Background(), NewSliceCursor(nil)); err == nil {
		t.Fatal("expected an error building from an empty source")
	}
}
