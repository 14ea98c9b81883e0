// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package shard

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/resolvd/internal/builder"
	"github.com/tomtom215/resolvd/internal/fuzzyindex"
	"github.com/tomtom215/resolvd/internal/logging"
	"github.com/tomtom215/resolvd/internal/metrics"
	"github.com/tomtom215/resolvd/internal/model"
	"github.com/tomtom215/resolvd/internal/normalize"
)

// ErrServiceUnavailable is the router's user-visible translation of a
// worker timeout or an open circuit breaker (§7: SearchTimeout is
// surfaced to the caller as a transient failure).
var ErrServiceUnavailable = errors.New("resolvd: shard service unavailable")

func artistIndexRowText(r model.ArtistIndexRow) string { return r.Text }

// MappingEnricher is the subset of mapping.Store the router needs to
// join a worker's (release_id, recording_id) hit back to full MBIDs and
// names; mapping.Store satisfies this.
type MappingEnricher interface {
	SelectByReleaseRecording(ctx context.Context, release model.ReleaseID, recording model.RecordingID) ([]model.MappingRow, error)
}

// RouterConfig mirrors config.ShardConfig plus the shard count from
// config.IndexConfig, kept separate from internal/config so this
// package stays free of a direct dependency on it.
type RouterConfig struct {
	ShardCount        int
	RequestTimeout    time.Duration
	QueueDepth        int
	CleanerConfidence float64
}

// EnrichedHit is one fully resolved result: the worker's (release_id,
// recording_id, confidence) tuple joined against the mapping store.
type EnrichedHit struct {
	ReleaseID   model.ReleaseID
	RecordingID model.RecordingID
	Confidence  float64
	Row         model.MappingRow
}

// Router is the C7 entry point: the global artist indexes, the shard
// assignment table, one Worker per shard fronted by a circuit breaker,
// and the mapping store used for final enrichment.
type Router struct {
	artistIndex   *fuzzyindex.Index[model.ArtistIndexRow]
	symbolicIndex *fuzzyindex.Index[model.ArtistIndexRow]
	shardOf       map[model.ShardCh]int
	workers       []*Worker
	breakers      []*gobreaker.CircuitBreaker[WorkerResponse]
	mapping       MappingEnricher
	cleaner       Cleaner
	cfg           RouterConfig
}

// NewRouter loads the global and symbolic artist indexes from indexDir
// (as written by internal/builder.Build), bin-packs partition into
// cfg.ShardCount shards, and constructs one Worker per shard backed by
// bundles. cleaner may be nil, in which case NoopCleaner is used.
func NewRouter(
	indexDir string,
	partition []model.PartitionEntry,
	mapping MappingEnricher,
	bundles BundleProvider,
	cleaner Cleaner,
	cfg RouterConfig,
) (*Router, error) {
	artistIdx := fuzzyindex.New(artistIndexRowText)
	loaded, err := artistIdx.Load(indexDir, builder.ArtistIndexName)
	if err != nil {
		return nil, fmt.Errorf("shard: load artist index: %w", err)
	}
	if !loaded {
		return nil, fmt.Errorf("shard: artist index not found under %s", indexDir)
	}

	symbolicIdx := fuzzyindex.New(artistIndexRowText)
	if _, err := symbolicIdx.Load(indexDir, builder.SymbolicIndexName); err != nil {
		return nil, fmt.Errorf("shard: load symbolic artist index: %w", err)
	}

	shardOf, err := PackShards(partition, RequestHistogram, cfg.ShardCount)
	if err != nil {
		return nil, fmt.Errorf("shard: pack shards: %w", err)
	}
	chars := charsByShard(shardOf)

	workers := make([]*Worker, cfg.ShardCount)
	breakers := make([]*gobreaker.CircuitBreaker[WorkerResponse], cfg.ShardCount)
	for i := 0; i < cfg.ShardCount; i++ {
		workers[i] = NewWorker(i, chars[i], cfg.QueueDepth, bundles)
		breakers[i] = newBreaker(i)
	}

	if cleaner == nil {
		cleaner = NoopCleaner
	}

	return &Router{
		artistIndex:   artistIdx,
		symbolicIndex: symbolicIdx,
		shardOf:       shardOf,
		workers:       workers,
		breakers:      breakers,
		mapping:       mapping,
		cleaner:       cleaner,
		cfg:           cfg,
	}, nil
}

// Workers returns the router's shard workers, for the caller to wire
// into a supervisor tree via NewShardWorkerService.
func (r *Router) Workers() []*Worker { return r.workers }

// confidenceThreshold implements §4.7 step 2: 0.5 for an encoded term of
// at most 5 runes, 0.7 otherwise.
func confidenceThreshold(term string) float64 {
	if len([]rune(term)) <= 5 {
		return 0.5
	}
	return 0.7
}

// Resolve runs the full query pipeline: artist search (with cleaner
// rescue), shard dispatch, and mapping-store enrichment.
func (r *Router) Resolve(ctx context.Context, artistName, releaseName, recordingName string) ([]EnrichedHit, error) {
	pairs, err := r.query(ctx, artistName, releaseName, recordingName)
	if err != nil {
		return nil, err
	}

	out := make([]EnrichedHit, 0, len(pairs))
	for _, p := range pairs {
		rows, err := r.mapping.SelectByReleaseRecording(ctx, p.ReleaseID, p.RecordingID)
		if err != nil {
			return nil, fmt.Errorf("shard: enrich result: %w", err)
		}
		if len(rows) == 0 {
			continue
		}
		out = append(out, EnrichedHit{ReleaseID: p.ReleaseID, RecordingID: p.RecordingID, Confidence: p.Confidence, Row: rows[0]})
	}
	if len(out) == 0 {
		return nil, model.ErrArtistNotFound
	}
	return out, nil
}

// query runs §4.7 steps 1-8, returning the raw worker hits before the
// mapping-store join.
func (r *Router) query(ctx context.Context, artistName, releaseName, recordingName string) ([]model.RecordingReleasePair, error) {
	idx, term, symbolic := r.pickArtistIndex(artistName)
	minConf := confidenceThreshold(term)

	searchStart := time.Now()
	hits, err := idx.Search(term, minConf)
	metrics.RecordSearch("artist", time.Since(searchStart))
	if err != nil {
		return nil, fmt.Errorf("shard: search artist index: %w", err)
	}

	if topConfidence(hits) <= r.cfg.CleanerConfidence {
		cleaned := r.cleaner.Clean(artistName)
		cleanedTerm := cleanedTerm(cleaned, symbolic)
		if cleanedTerm != "" && cleanedTerm != term {
			extra, err := idx.Search(cleanedTerm, minConf)
			if err == nil {
				hits = unionHits(hits, extra)
			}
		}
	}

	if len(hits) == 0 {
		return nil, model.ErrArtistNotFound
	}

	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Confidence > hits[j].Confidence })
	topShard := idx.Record(hits[0].Index).ShardCh

	seen := make(map[model.ArtistCreditID]bool)
	var candidateIDs []model.ArtistCreditID
	for _, h := range hits {
		row := idx.Record(h.Index)
		if row.ShardCh != topShard || seen[row.ID] {
			continue
		}
		seen[row.ID] = true
		candidateIDs = append(candidateIDs, row.ID)
	}
	if len(candidateIDs) == 0 {
		return nil, model.ErrArtistNotFound
	}

	shardIdx, ok := r.shardOf[topShard]
	if !ok {
		return nil, model.ErrShardUnavailable
	}

	reply, err := r.dispatch(ctx, shardIdx, WorkerRequest{
		ID:            uuid.New(),
		ArtistIDs:     candidateIDs,
		ArtistName:    artistName,
		ReleaseName:   releaseName,
		RecordingName: recordingName,
	})
	if err != nil {
		metrics.ShardRequestsTotal.WithLabelValues(shardLabel(shardIdx), outcomeOf(err)).Inc()
		return nil, err
	}
	if len(reply.Hits) == 0 {
		metrics.ShardRequestsTotal.WithLabelValues(shardLabel(shardIdx), "not_found").Inc()
		return nil, model.ErrArtistNotFound
	}
	metrics.ShardRequestsTotal.WithLabelValues(shardLabel(shardIdx), "ok").Inc()
	metrics.ShardReplyDuration.WithLabelValues(shardLabel(shardIdx)).Observe(float64(reply.ElapsedMS) / 1000)
	return reply.Hits, nil
}

func outcomeOf(err error) string {
	if errors.Is(err, ErrServiceUnavailable) {
		return "timeout"
	}
	return "unavailable"
}

// pickArtistIndex implements §4.7 step 1: the standard artist index
// keyed by the standard normalization if non-empty, else the symbolic
// index keyed by the symbolic normalization.
func (r *Router) pickArtistIndex(artistName string) (idx *fuzzyindex.Index[model.ArtistIndexRow], term string, symbolic bool) {
	if encoded := normalize.Normalize(artistName); encoded != "" {
		return r.artistIndex, encoded, false
	}
	return r.symbolicIndex, normalize.NormalizeSymbolic(artistName), true
}

func cleanedTerm(cleaned string, symbolic bool) string {
	if symbolic {
		return normalize.NormalizeSymbolic(cleaned)
	}
	return normalize.Normalize(cleaned)
}

// topConfidence returns the best confidence among hits, or 0 if hits is
// empty (so the cleaner-rescue branch always fires on a total miss).
func topConfidence(hits []model.Hit) float64 {
	best := 0.0
	for _, h := range hits {
		if h.Confidence > best {
			best = h.Confidence
		}
	}
	return best
}

// unionHits merges two hit lists, deduping by Index (both lists came
// from the same fuzzyindex.Index, so Index values are comparable).
func unionHits(a, b []model.Hit) []model.Hit {
	seen := make(map[int]bool, len(a))
	out := make([]model.Hit, 0, len(a)+len(b))
	for _, h := range a {
		if !seen[h.Index] {
			seen[h.Index] = true
			out = append(out, h)
		}
	}
	for _, h := range b {
		if !seen[h.Index] {
			seen[h.Index] = true
			out = append(out, h)
		}
	}
	return out
}

// dispatch sends req to the worker owning shardIdx through a circuit
// breaker, bounded by cfg.RequestTimeout, and returns its reply. A
// worker that replies after the timeout elapsed writes into a buffered
// channel nobody reads again; the stale response is silently discarded
// (§5, §9 scenario 6).
func (r *Router) dispatch(ctx context.Context, shardIdx int, req WorkerRequest) (WorkerResponse, error) {
	cb := r.breakers[shardIdx]
	resp, err := cb.Execute(func() (WorkerResponse, error) {
		return r.callWorker(ctx, shardIdx, req)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return WorkerResponse{}, ErrServiceUnavailable
		}
		if errors.Is(err, model.ErrSearchTimeout) {
			return WorkerResponse{}, ErrServiceUnavailable
		}
		return WorkerResponse{}, err
	}
	return resp, nil
}

func (r *Router) callWorker(ctx context.Context, shardIdx int, req WorkerRequest) (WorkerResponse, error) {
	timeout := r.cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	reply := make(chan WorkerResponse, 1)
	select {
	case r.workers[shardIdx].Input <- inflightRequest{req: req, reply: reply}:
	case <-ctx.Done():
		return WorkerResponse{}, ctx.Err()
	case <-deadline.C:
		logging.Warn().Int("shard", shardIdx).Str("request_id", req.ID.String()).Msg("shard worker queue full, timing out")
		return WorkerResponse{}, model.ErrSearchTimeout
	}

	select {
	case resp, ok := <-reply:
		if !ok {
			return WorkerResponse{}, model.ErrSearchTimeout
		}
		return resp, nil
	case <-ctx.Done():
		return WorkerResponse{}, ctx.Err()
	case <-deadline.C:
		return WorkerResponse{}, model.ErrSearchTimeout
	}
}
