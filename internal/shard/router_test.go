// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package shard

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/resolvd/internal/artist"
	"github.com/tomtom215/resolvd/internal/fuzzyindex"
	"github.com/tomtom215/resolvd/internal/model"
)

const testPortisheadID model.ArtistCreditID = 7

func buildArtistIndex(t *testing.T, rows []model.ArtistIndexRow) *fuzzyindex.Index[model.ArtistIndexRow] {
	t.Helper()
	idx := fuzzyindex.New(artistIndexRowText)
	if err := idx.Build(rows); err != nil {
		t.Fatalf("build artist index: %v", err)
	}
	return idx
}

// testRouter assembles a Router over a single shard ('p') with one
// worker backed by a fixed bundle, skipping NewRouter's disk I/O.
func testRouter(t *testing.T, rows []model.ArtistIndexRow, bundles BundleProvider, mapping MappingEnricher, cfg RouterConfig) *Router {
	t.Helper()
	worker := NewWorker(0, []model.ShardCh{'p'}, 4, bundles)
	return &Router{
		artistIndex:   buildArtistIndex(t, rows),
		symbolicIndex: buildArtistIndex(t, []model.ArtistIndexRow{{Text: "", ID: 0, ShardCh: model.SymbolicShardCh}}),
		shardOf:       map[model.ShardCh]int{'p': 0},
		workers:       []*Worker{worker},
		breakers:      []*gobreaker.CircuitBreaker[WorkerResponse]{newBreaker(0)},
		mapping:       mapping,
		cleaner:       NoopCleaner,
		cfg:           cfg,
	}
}

type fakeMapping struct {
	rows map[string]model.MappingRow
}

func mapKey(release model.ReleaseID, recording model.RecordingID) string {
	return string(rune(release)) + "/" + string(rune(recording))
}

func (f *fakeMapping) SelectByReleaseRecording(_ context.Context, release model.ReleaseID, recording model.RecordingID) ([]model.MappingRow, error) {
	if row, ok := f.rows[mapKey(release, recording)]; ok {
		return []model.MappingRow{row}, nil
	}
	return nil, nil
}

func runWorkerLoop(t *testing.T, w *Worker, ctx context.Context) {
	t.Helper()
	go func() { _ = w.Serve(ctx) }()
}

func TestRouterResolveCanonicalMatch(t *testing.T) {
	bundle := mustBundle(t, testPortisheadID,
		[]model.RecordingBucket{{ID: 0, Text: "strangers", Rows: []model.RecordingScore{{RecordingID: 10, ReleaseID: 100, Score: 0.1}}}},
		[]model.ReleaseBucket{{ID: 0, Text: "dummy", Rows: []model.ReleaseIDScore{{ReleaseID: 100, Score: 0.1}}}},
		map[model.RecordingID]map[model.ReleaseID]struct{}{10: {100: struct{}{}}},
	)
	bundles := &fakeBundles{byID: map[model.ArtistCreditID]*artist.Bundle{testPortisheadID: bundle}}

	rows := []model.ArtistIndexRow{{Text: "portishead", ID: testPortisheadID, ShardCh: 'p'}}
	mapping := &fakeMapping{rows: map[string]model.MappingRow{
		mapKey(100, 10): {ArtistCreditID: testPortisheadID, ReleaseID: 100, RecordingID: 10, ReleaseName: "Dummy", RecordingName: "Strangers"},
	}}

	r := testRouter(t, rows, bundles, mapping, RouterConfig{ShardCount: 1, RequestTimeout: time.Second, QueueDepth: 4, CleanerConfidence: 0.9})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	runWorkerLoop(t, r.workers[0], ctx)

	hits, err := r.Resolve(ctx, "Portishead", "Dummy", "Strangers")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(hits) != 1 || hits[0].ReleaseID != 100 || hits[0].RecordingID != 10 {
		t.Fatalf("unexpected hits: %+v", hits)
	}
}

func TestRouterResolveNotFound(t *testing.T) {
	rows := []model.ArtistIndexRow{{Text: "portishead", ID: testPortisheadID, ShardCh: 'p'}}
	r := testRouter(t, rows, &fakeBundles{byID: map[model.ArtistCreditID]*artist.Bundle{}}, &fakeMapping{rows: map[string]model.MappingRow{}}, RouterConfig{ShardCount: 1, RequestTimeout: time.Second, QueueDepth: 4, CleanerConfidence: 0.9})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	runWorkerLoop(t, r.workers[0], ctx)

	_, err := r.Resolve(ctx, "zzzzzzz", "", "")
	if !errors.Is(err, model.ErrArtistNotFound) {
		t.Fatalf("expected ErrArtistNotFound, got %v", err)
	}
}

func TestRouterPicksSymbolicIndexForPunctuationOnlyName(t *testing.T) {
	rows := []model.ArtistIndexRow{{Text: "portishead", ID: testPortisheadID, ShardCh: 'p'}}
	r := testRouter(t, rows, &fakeBundles{}, &fakeMapping{}, RouterConfig{ShardCount: 1, RequestTimeout: time.Second, QueueDepth: 4, CleanerConfidence: 0.9})

	idx, term, symbolic := r.pickArtistIndex("!!!")
	if !symbolic {
		t.Error("expected a punctuation-only name to route to the symbolic index")
	}
	if idx != r.symbolicIndex {
		t.Error("expected pickArtistIndex to return the symbolic index")
	}
	if term == "" {
		t.Error("expected a non-empty symbolic-normalized term for \"!!!\"")
	}
}

func TestRouterDispatchTimesOutWhenWorkerQueueIsFull(t *testing.T) {
	worker := NewWorker(0, []model.ShardCh{'p'}, 1, &fakeBundles{})
	// Fill the single queue slot so the next send blocks until the
	// dispatch deadline elapses; nothing ever drains this request.
	worker.Input <- inflightRequest{req: WorkerRequest{ID: uuid.New()}, reply: make(chan WorkerResponse, 1)}

	r := &Router{
		workers:  []*Worker{worker},
		breakers: []*gobreaker.CircuitBreaker[WorkerResponse]{newBreaker(0)},
		cfg:      RouterConfig{RequestTimeout: 20 * time.Millisecond},
	}

	_, err := r.dispatch(context.Background(), 0, WorkerRequest{ID: uuid.New()})
	if !errors.Is(err, ErrServiceUnavailable) {
		t.Fatalf("expected ErrServiceUnavailable on a full queue, got %v", err)
	}
}

func TestUnionHitsDedupesByIndex(t *testing.T) {
	a := []model.Hit{{Index: 1, Confidence: 0.4}, {Index: 2, Confidence: 0.3}}
	b := []model.Hit{{Index: 2, Confidence: 0.9}, {Index: 3, Confidence: 0.5}}
	union := unionHits(a, b)
	if len(union) != 3 {
		t.Fatalf("expected 3 deduped hits, got %d: %+v", len(union), union)
	}
}

func TestConfidenceThresholdByTermLength(t *testing.T) {
	if confidenceThreshold("abcde") != 0.5 {
		t.Error("expected 0.5 threshold for a 5-rune term")
	}
	if confidenceThreshold("abcdef") != 0.7 {
		t.Error("expected 0.7 threshold for a 6-rune term")
	}
}
