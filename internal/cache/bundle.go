// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package cache

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/tomtom215/resolvd/internal/artist"
	"github.com/tomtom215/resolvd/internal/metrics"
	"github.com/tomtom215/resolvd/internal/model"
)

const (
	bundleMagic   uint32 = 0x42554e44 // "BUND"
	bundleVersion uint32 = 1

	// emptyMarker denotes the "[empty]" artist sentinel (spec §4.6): a
	// value with no recordings/releases, persisted without its sub-indexes.
	emptyMarker = "[empty]"

	// frontTTL bounds how long a bundle stays in the in-process front
	// cache once touched; the durable badger store is the source of
	// truth for "is this artist cached at all".
	frontTTL = 10 * time.Minute
)

// ArtistCacheConfig mirrors config.CacheConfig without importing it
// directly, keeping this package free of a dependency on internal/config.
type ArtistCacheConfig struct {
	MaxEntries    int
	LowWatermark  int
	SweepInterval time.Duration
	BackingDir    string
}

// ArtistCache is the C6 artist-data bundle cache: a process-wide cache of
// materialized artist.Bundle values keyed by artist_credit_id, backed by a
// badger/v4 store so every shard worker goroutine shares one copy. The spec's
// OS shared-memory region per artist collapses, in a single Go process tree,
// to this durable KV store plus an in-process TTL front cache for the hot
// path (see doc.go).
type ArtistCache struct {
	db       *badger.DB
	front    *Cache[*artist.Bundle] // TTL front cache, keyed by artist_credit_id
	recency  *LRUCache              // access-order tracker driving the watermark sweep
	presence *BloomFilter           // negative cache: ids that were never Saved
	cfg      ArtistCacheConfig
}

// NewArtistCache opens (or creates) the badger store at cfg.BackingDir.
func NewArtistCache(cfg ArtistCacheConfig) (*ArtistCache, error) {
	if cfg.MaxEntries <= 0 {
		cfg.MaxEntries = 50000
	}
	if cfg.LowWatermark <= 0 || cfg.LowWatermark > cfg.MaxEntries {
		cfg.LowWatermark = cfg.MaxEntries * 9 / 10
	}

	opts := badger.DefaultOptions(cfg.BackingDir).WithLoggingLevel(badger.WARNING)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("cache: open artist-data store: %w", err)
	}

	return &ArtistCache{
		db:       db,
		front:    New[*artist.Bundle](frontTTL),
		recency:  NewLRUCache(cfg.MaxEntries*2, 7*24*time.Hour),
		presence: NewBloomFilter(cfg.MaxEntries*4, 0.01),
		cfg:      cfg,
	}, nil
}

// Close releases the badger store.
func (c *ArtistCache) Close() error {
	return c.db.Close()
}

func badgerKey(id model.ArtistCreditID) string {
	return fmt.Sprintf("a%d", id)
}

// parseBadgerKey reverses badgerKey, used by sweepOnce to recover the
// artist id recency tracks by its badger key string.
func parseBadgerKey(key string) (model.ArtistCreditID, bool) {
	if len(key) < 2 || key[0] != 'a' {
		return 0, false
	}
	n, err := strconv.Atoi(key[1:])
	if err != nil {
		return 0, false
	}
	return model.ArtistCreditID(n), true
}

// Load implements C6's load(id) -> bundle | miss.
func (c *ArtistCache) Load(id model.ArtistCreditID) (*artist.Bundle, bool, error) {
	key := badgerKey(id)

	if v, ok := c.front.Get(id); ok {
		c.recency.Add(key, time.Now())
		metrics.CacheHits.Inc()
		return v, true, nil
	}

	// A Bloom filter never produces a false negative: if this id was never
	// Saved, Test reports false and we skip the badger read entirely.
	if !c.presence.Test(id) {
		metrics.CacheMisses.Inc()
		return nil, false, nil
	}

	var raw []byte
	err := c.db.View(func(txn *badger.Txn) error {
		item, getErr := txn.Get([]byte(key))
		if errors.Is(getErr, badger.ErrKeyNotFound) {
			return nil
		}
		if getErr != nil {
			return getErr
		}
		return item.Value(func(val []byte) error {
			raw = append([]byte(nil), val...)
			return nil
		})
	})
	if err != nil {
		return nil, false, fmt.Errorf("cache: load artist %d: %w", id, err)
	}
	if raw == nil {
		metrics.CacheMisses.Inc()
		return nil, false, nil
	}

	bundle, err := decodeBundle(id, raw)
	if err != nil {
		return nil, false, fmt.Errorf("cache: decode artist %d: %w", id, err)
	}

	c.front.Set(id, bundle)
	c.recency.Add(key, time.Now())
	metrics.CacheHits.Inc()
	return bundle, true, nil
}

// Save implements C6's save(id, bundle). Idempotent on a concurrent
// duplicate save for the same id: the first writer wins (CacheCollision,
// spec §7, is non-fatal), so a Save that loses the race is a silent no-op.
func (c *ArtistCache) Save(id model.ArtistCreditID, bundle *artist.Bundle) error {
	key := badgerKey(id)
	encoded, err := encodeBundle(bundle)
	if err != nil {
		return fmt.Errorf("cache: encode artist %d: %w", id, err)
	}

	won := false
	err = c.db.Update(func(txn *badger.Txn) error {
		if _, getErr := txn.Get([]byte(key)); getErr == nil {
			return nil // first writer already won
		}
		won = true
		return txn.Set([]byte(key), encoded)
	})
	if err != nil {
		return fmt.Errorf("cache: save artist %d: %w", id, err)
	}
	if !won {
		return nil
	}

	c.presence.Add(id)
	c.front.Set(id, bundle)
	c.recency.Add(key, time.Now())
	metrics.CacheSize.Set(float64(c.recency.Len()))
	return nil
}

// Clear flushes all entries, used at shutdown.
func (c *ArtistCache) Clear() error {
	c.front.Clear()
	c.recency.Clear()
	if err := c.db.DropAll(); err != nil {
		return fmt.Errorf("cache: clear artist-data store: %w", err)
	}
	metrics.CacheSize.Set(0)
	return nil
}

// sweepOnce evicts least-recently-accessed entries until the cache is back
// under the low watermark, run periodically by EvictionSweep.
func (c *ArtistCache) sweepOnce() {
	if c.recency.Len() <= c.cfg.MaxEntries {
		return
	}
	for c.recency.Len() > c.cfg.LowWatermark {
		key, ok := c.recency.EvictLRU()
		if !ok {
			break
		}
		if id, ok := parseBadgerKey(key); ok {
			c.front.Delete(id)
		}
		_ = c.db.Update(func(txn *badger.Txn) error { //nolint:errcheck // eviction is advisory, best-effort
			return txn.Delete([]byte(key))
		})
		metrics.CacheEvictions.WithLabelValues("watermark").Inc()
	}
	metrics.CacheSize.Set(float64(c.recency.Len()))
}

// EvictionSweep is the maintenance-layer service (internal/supervisor) that
// periodically runs ArtistCache's watermark eviction. It satisfies
// services.StartStopManager.
type EvictionSweep struct {
	cache    *ArtistCache
	interval time.Duration
	cancel   context.CancelFunc
	done     chan struct{}
}

// NewEvictionSweep builds a sweep for cache, running every interval. A
// non-positive interval falls back to cache.cfg.SweepInterval, then to a
// five-minute default.
func NewEvictionSweep(cache *ArtistCache, interval time.Duration) *EvictionSweep {
	if interval <= 0 {
		interval = cache.cfg.SweepInterval
	}
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &EvictionSweep{cache: cache, interval: interval}
}

// Start begins the periodic sweep loop. It returns immediately; the loop
// runs until ctx is canceled or Stop is called.
func (s *EvictionSweep) Start(ctx context.Context) error {
	sweepCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})

	go func() {
		defer close(s.done)
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-sweepCtx.Done():
				return
			case <-ticker.C:
				s.cache.sweepOnce()
			}
		}
	}()
	return nil
}

// Stop cancels the sweep loop and waits for it to exit.
func (s *EvictionSweep) Stop() error {
	if s.cancel != nil {
		s.cancel()
	}
	if s.done != nil {
		<-s.done
	}
	return nil
}

// persistedBundle is the plain structured payload a bundle's buckets and
// cross-reference table are encoded to; the two fuzzy sub-indexes are
// reconstructed on load via artist.FromBuckets rather than persisted as
// opaque blobs, since they are fully determined by this data.
type persistedBundle struct {
	RecordingData     []model.RecordingBucket                `json:"recording_data"`
	ReleaseData       []model.ReleaseBucket                   `json:"release_data"`
	RecordingReleases map[model.RecordingID][]model.ReleaseID `json:"recording_releases"`
}

func encodeBundle(b *artist.Bundle) ([]byte, error) {
	if b.Empty {
		return []byte(emptyMarker), nil
	}

	pb := persistedBundle{
		RecordingData:     b.RecordingData,
		ReleaseData:       b.ReleaseData,
		RecordingReleases: flattenRecordingReleases(b.RecordingReleases),
	}
	body, err := json.Marshal(pb)
	if err != nil {
		return nil, fmt.Errorf("marshal: %w", err)
	}

	header := make([]byte, 8)
	binary.BigEndian.PutUint32(header[0:4], bundleMagic)
	binary.BigEndian.PutUint32(header[4:8], bundleVersion)
	return append(header, body...), nil
}

func decodeBundle(id model.ArtistCreditID, data []byte) (*artist.Bundle, error) {
	if string(data) == emptyMarker {
		return &artist.Bundle{ArtistCreditID: id, Empty: true}, nil
	}
	if len(data) < 8 {
		return nil, fmt.Errorf("truncated bundle for artist %d", id)
	}
	if binary.BigEndian.Uint32(data[0:4]) != bundleMagic {
		return nil, fmt.Errorf("bad magic for artist %d", id)
	}
	if v := binary.BigEndian.Uint32(data[4:8]); v != bundleVersion {
		return nil, fmt.Errorf("unsupported bundle format version %d for artist %d", v, id)
	}

	var pb persistedBundle
	if err := json.Unmarshal(data[8:], &pb); err != nil {
		return nil, fmt.Errorf("unmarshal: %w", err)
	}

	return artist.FromBuckets(id, pb.RecordingData, pb.ReleaseData, unflattenRecordingReleases(pb.RecordingReleases))
}

func flattenRecordingReleases(m map[model.RecordingID]map[model.ReleaseID]struct{}) map[model.RecordingID][]model.ReleaseID {
	out := make(map[model.RecordingID][]model.ReleaseID, len(m))
	for rec, releases := range m {
		ids := make([]model.ReleaseID, 0, len(releases))
		for rel := range releases {
			ids = append(ids, rel)
		}
		out[rec] = ids
	}
	return out
}

func unflattenRecordingReleases(m map[model.RecordingID][]model.ReleaseID) map[model.RecordingID]map[model.ReleaseID]struct{} {
	out := make(map[model.RecordingID]map[model.ReleaseID]struct{}, len(m))
	for rec, releases := range m {
		set := make(map[model.ReleaseID]struct{}, len(releases))
		for _, rel := range releases {
			set[rel] = struct{}{}
		}
		out[rec] = set
	}
	return out
}
