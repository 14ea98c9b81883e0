// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package shard

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/tomtom215/resolvd/internal/artist"
	"github.com/tomtom215/resolvd/internal/logging"
	"github.com/tomtom215/resolvd/internal/metrics"
	"github.com/tomtom215/resolvd/internal/model"
	"github.com/tomtom215/resolvd/internal/normalize"
)

// subSearchMinConfidence is the fixed min_confidence a Worker applies to
// both the recording and release sub-index searches (§4.7 step 7).
const subSearchMinConfidence = 0.5

// topN bounds the recording-only response (§4.7 step 7) and the
// per-side candidate list feeding the release+recording Cartesian join.
const topN = 3

// ArtistCacheLoader is the subset of cache.ArtistCache a Worker needs:
// load a previously materialized bundle, or save a freshly materialized
// one. Narrowed to an interface so tests can substitute an in-memory
// double.
type ArtistCacheLoader interface {
	Load(id model.ArtistCreditID) (*artist.Bundle, bool, error)
	Save(id model.ArtistCreditID, bundle *artist.Bundle) error
}

// BundleProvider resolves an artist id to its materialized bundle,
// consulting a cache before falling back to materialization (C5/C6's
// "a miss triggers reconstruction").
type BundleProvider interface {
	GetOrMaterialize(ctx context.Context, id model.ArtistCreditID) (*artist.Bundle, error)
}

// CachingMaterializer is the default BundleProvider: an artist-data
// cache front-ending the materializer. Cache may be nil, in which case
// every call rematerializes (useful for tests).
type CachingMaterializer struct {
	Cache  ArtistCacheLoader
	Source artist.Source
}

// GetOrMaterialize implements BundleProvider.
func (m *CachingMaterializer) GetOrMaterialize(ctx context.Context, id model.ArtistCreditID) (*artist.Bundle, error) {
	if m.Cache != nil {
		if b, ok, err := m.Cache.Load(id); err != nil {
			logging.Warn().Err(err).Uint32("artist_credit_id", uint32(id)).Msg("artist cache load failed, rematerializing")
		} else if ok {
			return b, nil
		}
	}

	start := time.Now()
	b, err := artist.Materialize(ctx, m.Source, id)
	if err != nil {
		return nil, fmt.Errorf("shard: materialize artist %d: %w", id, err)
	}
	metrics.RecordMaterialize(time.Since(start), b.Empty)

	if m.Cache != nil {
		// CacheCollision (§7): a concurrent Save for the same id is
		// non-fatal, first writer wins; a Save error here is logged and
		// otherwise ignored, since the bundle in hand is still usable.
		if err := m.Cache.Save(id, b); err != nil {
			logging.Warn().Err(err).Uint32("artist_credit_id", uint32(id)).Msg("artist cache save failed")
		}
	}
	return b, nil
}

// Worker owns one shard: a set of shard characters, an inbound request
// channel, and the BundleProvider it consults for each candidate artist.
// It holds no other shard-specific state — the mapping store and artist
// cache are shared, read-only resources (§5).
type Worker struct {
	Index   int
	Chars   []model.ShardCh
	Input   chan inflightRequest
	Bundles BundleProvider
}

// NewWorker constructs a Worker with a queueDepth-deep inbound buffer.
func NewWorker(index int, chars []model.ShardCh, queueDepth int, bundles BundleProvider) *Worker {
	if queueDepth <= 0 {
		queueDepth = 1
	}
	return &Worker{
		Index:   index,
		Chars:   chars,
		Input:   make(chan inflightRequest, queueDepth),
		Bundles: bundles,
	}
}

// Serve runs the worker's event loop: idle -> dequeued -> searching ->
// replied -> idle, until ctx is canceled or an Exit request is received.
// A worker never closes its own Input channel; shutdown is driven by
// context cancellation (suture's standard contract), draining whatever
// is already queued is the caller's responsibility via a timeout.
func (w *Worker) Serve(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case item, ok := <-w.Input:
			if !ok {
				return nil
			}
			if item.req.Exit {
				close(item.reply)
				return nil
			}
			metrics.ShardQueueDepth.WithLabelValues(shardLabel(w.Index)).Set(float64(len(w.Input)))
			start := time.Now()
			resp := w.handle(ctx, item.req)
			resp.ElapsedMS = time.Since(start).Milliseconds()
			select {
			case item.reply <- resp:
			case <-ctx.Done():
			}
		}
	}
}

func shardLabel(idx int) string { return fmt.Sprintf("%d", idx) }

type recCandidate struct {
	artistID    model.ArtistCreditID
	recordingID model.RecordingID
	releaseID   model.ReleaseID
	score       float64
	confidence  float64
}

type relCandidate struct {
	artistID   model.ArtistCreditID
	releaseID  model.ReleaseID
	score      float64
	confidence float64
}

// handle runs §4.7 step 7 for one request: materialize-or-fetch every
// candidate artist, search recordings (and, if a release name was
// given, releases) across all of them, and rank the joined result.
func (w *Worker) handle(ctx context.Context, req WorkerRequest) WorkerResponse {
	bundles := make(map[model.ArtistCreditID]*artist.Bundle, len(req.ArtistIDs))
	for _, id := range req.ArtistIDs {
		b, err := w.Bundles.GetOrMaterialize(ctx, id)
		if err != nil {
			// Per-artist failures inside a multi-id query are logged and
			// skipped, not fatal (§7 propagation policy).
			logging.Warn().Err(err).Uint32("artist_credit_id", uint32(id)).Msg("skipping candidate artist")
			continue
		}
		if b.Empty {
			continue
		}
		bundles[id] = b
	}
	if len(bundles) == 0 {
		return WorkerResponse{ID: req.ID}
	}

	normRecording := normalize.Normalize(req.RecordingName)
	var recCands []recCandidate
	for id, b := range bundles {
		searchStart := time.Now()
		hits, err := b.RecordingIndex.Search(normRecording, subSearchMinConfidence)
		metrics.RecordSearch("recording", time.Since(searchStart))
		if err != nil || len(hits) == 0 {
			continue
		}
		for _, h := range hits {
			bucket := b.RecordingIndex.Record(h.Index)
			for _, row := range bucket.Rows {
				recCands = append(recCands, recCandidate{
					artistID: id, recordingID: row.RecordingID, releaseID: row.ReleaseID,
					score: row.Score, confidence: h.Confidence,
				})
			}
		}
	}
	sortByConfidenceThenScore(recCands)

	if req.ReleaseName == "" {
		n := topN
		if len(recCands) < n {
			n = len(recCands)
		}
		if n == 0 {
			return WorkerResponse{ID: req.ID}
		}
		pairs := make([]model.RecordingReleasePair, n)
		for i := 0; i < n; i++ {
			pairs[i] = model.RecordingReleasePair{
				ReleaseID: recCands[i].releaseID, RecordingID: recCands[i].recordingID,
				Confidence: recCands[i].confidence,
			}
		}
		return WorkerResponse{ID: req.ID, Hits: pairs}
	}

	normRelease := normalize.Normalize(req.ReleaseName)
	var relCands []relCandidate
	for id, b := range bundles {
		searchStart := time.Now()
		hits, err := b.ReleaseIndex.Search(normRelease, subSearchMinConfidence)
		metrics.RecordSearch("release", time.Since(searchStart))
		if err != nil || len(hits) == 0 {
			continue
		}
		for _, h := range hits {
			bucket := b.ReleaseIndex.Record(h.Index)
			for _, row := range bucket.Rows {
				relCands = append(relCands, relCandidate{
					artistID: id, releaseID: row.ReleaseID, score: row.Score, confidence: h.Confidence,
				})
			}
		}
	}
	sortRelByConfidenceThenScore(relCands)

	recTop := recCands
	if len(recTop) > topN {
		recTop = recTop[:topN]
	}
	relTop := relCands
	if len(relTop) > topN {
		relTop = relTop[:topN]
	}

	var best *model.RecordingReleasePair
	bestCombined := -1.0
	for _, rc := range recTop {
		b := bundles[rc.artistID]
		releases := b.RecordingReleases[rc.recordingID]
		for _, rl := range relTop {
			if rl.artistID != rc.artistID {
				continue
			}
			if _, ok := releases[rl.releaseID]; !ok {
				continue
			}
			combined := (rc.confidence + rl.confidence) / 2
			if combined > bestCombined {
				bestCombined = combined
				best = &model.RecordingReleasePair{
					ReleaseID: rl.releaseID, RecordingID: rc.recordingID, Confidence: combined,
				}
			}
		}
	}
	if best == nil {
		return WorkerResponse{ID: req.ID}
	}
	return WorkerResponse{ID: req.ID, Hits: []model.RecordingReleasePair{*best}}
}

// sortByConfidenceThenScore orders candidates by (-confidence, score):
// descending confidence, ascending score as the tie-break, matching the
// literal ordering key of §4.7 step 7.
func sortByConfidenceThenScore(c []recCandidate) {
	sort.SliceStable(c, func(i, j int) bool {
		if c[i].confidence != c[j].confidence {
			return c[i].confidence > c[j].confidence
		}
		return c[i].score < c[j].score
	})
}

func sortRelByConfidenceThenScore(c []relCandidate) {
	sort.SliceStable(c, func(i, j int) bool {
		if c[i].confidence != c[j].confidence {
			return c[i].confidence > c[j].confidence
		}
		return c[i].score < c[j].score
	})
}
