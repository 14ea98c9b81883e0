// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package cache

import (
	"testing"
	"time"

	"github.com/tomtom215/resolvd/internal/model"
)

func TestCacheBasicOperations(t *testing.T) {
	c := New[string](1 * time.Minute)

	c.Set(1, "value1")
	value, exists := c.Get(1)
	if !exists {
		t.Error("Expected id 1 to exist")
	}
	if value != "value1" {
		t.Errorf("Expected value1, got %v", value)
	}

	_, exists = c.Get(2)
	if exists {
		t.Error("Expected id 2 to not exist")
	}
}

func TestCacheExpiration(t *testing.T) {
	c := New[string](100 * time.Millisecond)

	c.Set(1, "value1")

	_, exists := c.Get(1)
	if !exists {
		t.Error("Expected id 1 to exist immediately after set")
	}

	time.Sleep(150 * time.Millisecond)

	_, exists = c.Get(1)
	if exists {
		t.Error("Expected id 1 to be expired")
	}
}

func TestCacheDelete(t *testing.T) {
	c := New[string](1 * time.Minute)

	c.Set(1, "value1")
	c.Delete(1)

	_, exists := c.Get(1)
	if exists {
		t.Error("Expected id 1 to be deleted")
	}
}

func TestCacheClear(t *testing.T) {
	c := New[string](1 * time.Minute)

	c.Set(1, "value1")
	c.Set(2, "value2")
	c.Set(3, "value3")

	c.Clear()

	for _, id := range []model.ArtistCreditID{1, 2, 3} {
		_, exists := c.Get(id)
		if exists {
			t.Errorf("Expected %d to be cleared", id)
		}
	}
}

func TestCacheStats(t *testing.T) {
	c := New[string](1 * time.Minute)

	c.Set(1, "value1")
	c.Get(1) // hit
	c.Get(2) // miss
	c.Get(1) // hit

	stats := c.GetStats()

	if stats.Hits != 2 {
		t.Errorf("Expected 2 hits, got %d", stats.Hits)
	}
	if stats.Misses != 1 {
		t.Errorf("Expected 1 miss, got %d", stats.Misses)
	}

	hitRate := c.HitRate()
	expectedHitRate := 66.66666666666667 // 2/3 * 100
	if hitRate < expectedHitRate-0.01 || hitRate > expectedHitRate+0.01 {
		t.Errorf("Expected hit rate around %.2f%%, got %.2f%%", expectedHitRate, hitRate)
	}
}

func TestCacheSetWithTTL(t *testing.T) {
	c := New[string](1 * time.Minute)

	c.SetWithTTL(1, "value1", 100*time.Millisecond)

	_, exists := c.Get(1)
	if !exists {
		t.Error("Expected id 1 to exist")
	}

	time.Sleep(150 * time.Millisecond)

	_, exists = c.Get(1)
	if exists {
		t.Error("Expected id 1 to be expired")
	}
}

func TestCacheConcurrency(t *testing.T) {
	c := New[int](1 * time.Minute)

	done := make(chan bool)
	for i := 0; i < 10; i++ {
		go func(val int) {
			for j := 0; j < 100; j++ {
				c.Set(1, val)
				c.Get(1)
				if j%10 == 0 {
					c.Delete(1)
				}
			}
			done <- true
		}(i)
	}

	for i := 0; i < 10; i++ {
		<-done
	}

	stats := c.GetStats()
	if stats.Hits == 0 && stats.Misses == 0 {
		t.Error("Expected some cache activity from concurrent operations")
	}
}

func BenchmarkCacheSet(b *testing.B) {
	c := New[string](1 * time.Minute)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		c.Set(1, "value")
	}
}

func BenchmarkCacheGet(b *testing.B) {
	c := New[string](1 * time.Minute)
	c.Set(1, "value")

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		c.Get(1)
	}
}

func TestCacheManualCleanup(t *testing.T) {
	c := New[string](50 * time.Millisecond)

	c.Set(1, "value1")
	c.Set(2, "value2")
	c.Set(3, "value3")

	if _, exists := c.Get(1); !exists {
		t.Error("Expected id 1 to exist")
	}

	time.Sleep(100 * time.Millisecond)

	c.cleanup()

	stats := c.GetStats()
	if stats.TotalKeys != 0 {
		t.Errorf("Expected 0 total keys after cleanup, got %d", stats.TotalKeys)
	}

	if stats.Evictions != 3 {
		t.Errorf("Expected 3 evictions, got %d", stats.Evictions)
	}

	if stats.LastCleanup.IsZero() {
		t.Error("Expected LastCleanup to be set")
	}
}

func TestCachePartialExpiration(t *testing.T) {
	c := New[string](100 * time.Millisecond)

	c.SetWithTTL(1, "value1", 50*time.Millisecond)
	c.SetWithTTL(2, "value2", 200*time.Millisecond)

	time.Sleep(75 * time.Millisecond)

	c.cleanup()

	if _, exists := c.Get(1); exists {
		t.Error("Expected short-lived id to be cleaned up")
	}

	if _, exists := c.Get(2); !exists {
		t.Error("Expected long-lived id to still exist")
	}

	stats := c.GetStats()
	if stats.TotalKeys != 1 {
		t.Errorf("Expected 1 total key, got %d", stats.TotalKeys)
	}
}

func TestCacheCleanupLoop(t *testing.T) {
	c := New[string](1 * time.Millisecond)

	c.Set(1, "test-value")

	time.Sleep(10 * time.Millisecond)

	_, exists := c.Get(1)
	if exists {
		t.Log("Entry still exists - cleanup loop may not have run yet (this is timing-dependent)")
	}

	c.cleanup()
}

func TestCacheZeroTTL(t *testing.T) {
	c := New[string](0)

	c.Set(1, "value1")

	_, exists := c.Get(1)
	if exists {
		t.Error("Expected id with zero TTL to be expired immediately")
	}
}

func TestCacheVeryShortTTL(t *testing.T) {
	c := New[string](1 * time.Nanosecond)

	c.Set(1, "value1")

	time.Sleep(1 * time.Millisecond)
	_, exists := c.Get(1)
	if exists {
		t.Error("Expected id with nanosecond TTL to expire quickly")
	}
}

func TestCacheStatsCopy(t *testing.T) {
	c := New[string](1 * time.Minute)

	c.Set(1, "value1")
	c.Get(1)

	stats1 := c.GetStats()
	originalHits := stats1.Hits

	c.Get(1)
	c.Get(2)

	if stats1.Hits != originalHits {
		t.Error("GetStats should return a copy, not a reference")
	}

	stats2 := c.GetStats()
	if stats2.Hits == originalHits {
		t.Error("Expected new stats to reflect updated hits")
	}
}

func TestCacheHitRateZeroOperations(t *testing.T) {
	c := New[string](1 * time.Minute)

	hitRate := c.HitRate()
	if hitRate != 0.0 {
		t.Errorf("Expected 0%% hit rate with no operations, got %.2f%%", hitRate)
	}
}

func TestCacheHitRateOnlyMisses(t *testing.T) {
	c := New[string](1 * time.Minute)

	c.Get(1)
	c.Get(2)
	c.Get(3)

	hitRate := c.HitRate()
	if hitRate != 0.0 {
		t.Errorf("Expected 0%% hit rate with only misses, got %.2f%%", hitRate)
	}

	stats := c.GetStats()
	if stats.Hits != 0 {
		t.Errorf("Expected 0 hits, got %d", stats.Hits)
	}
	if stats.Misses != 3 {
		t.Errorf("Expected 3 misses, got %d", stats.Misses)
	}
}

func TestCacheHitRateOnlyHits(t *testing.T) {
	c := New[string](1 * time.Minute)

	c.Set(1, "value1")

	c.Get(1)
	c.Get(1)
	c.Get(1)

	hitRate := c.HitRate()
	if hitRate != 100.0 {
		t.Errorf("Expected 100%% hit rate with only hits, got %.2f%%", hitRate)
	}

	stats := c.GetStats()
	if stats.Hits != 3 {
		t.Errorf("Expected 3 hits, got %d", stats.Hits)
	}
	if stats.Misses != 0 {
		t.Errorf("Expected 0 misses, got %d", stats.Misses)
	}
}

func TestCacheEvictionCounter(t *testing.T) {
	c := New[string](1 * time.Minute)

	c.Set(1, "value1")
	c.Set(2, "value2")
	c.Set(3, "value3")

	initialStats := c.GetStats()
	initialEvictions := initialStats.Evictions

	c.Delete(1)

	stats := c.GetStats()
	if stats.Evictions != initialEvictions+1 {
		t.Errorf("Expected evictions to increase by 1, got %d", stats.Evictions-initialEvictions)
	}
}

func TestCacheEvictionCounterOnClear(t *testing.T) {
	c := New[string](1 * time.Minute)

	c.Set(1, "value1")
	c.Set(2, "value2")
	c.Set(3, "value3")

	initialStats := c.GetStats()

	c.Clear()

	stats := c.GetStats()
	expectedEvictions := initialStats.Evictions + 3
	if stats.Evictions != expectedEvictions {
		t.Errorf("Expected %d evictions, got %d", expectedEvictions, stats.Evictions)
	}

	if stats.TotalKeys != 0 {
		t.Errorf("Expected 0 total keys after clear, got %d", stats.TotalKeys)
	}
}

func TestCacheEvictionCounterOnExpiration(t *testing.T) {
	c := New[string](50 * time.Millisecond)

	c.Set(1, "value1")

	initialStats := c.GetStats()

	time.Sleep(100 * time.Millisecond)

	c.Get(1)

	stats := c.GetStats()
	if stats.Evictions <= initialStats.Evictions {
		t.Error("Expected evictions to increase when accessing expired id")
	}
}

func TestCacheTotalKeysCounter(t *testing.T) {
	c := New[string](1 * time.Minute)

	c.Set(1, "value1")
	stats := c.GetStats()
	if stats.TotalKeys != 1 {
		t.Errorf("Expected 1 total key, got %d", stats.TotalKeys)
	}

	c.Set(2, "value2")
	stats = c.GetStats()
	if stats.TotalKeys != 2 {
		t.Errorf("Expected 2 total keys, got %d", stats.TotalKeys)
	}

	c.Set(3, "value3")
	stats = c.GetStats()
	if stats.TotalKeys != 3 {
		t.Errorf("Expected 3 total keys, got %d", stats.TotalKeys)
	}

	// Overwrite existing id should not increase count
	c.Set(1, "new-value1")
	stats = c.GetStats()
	if stats.TotalKeys != 3 {
		t.Errorf("Expected 3 total keys after overwrite, got %d", stats.TotalKeys)
	}
}

func TestCacheLargeNumberOfEntries(t *testing.T) {
	c := New[int](1 * time.Minute)

	const numEntries = 10000
	for i := 0; i < numEntries; i++ {
		c.Set(model.ArtistCreditID(i), i*2)
	}

	stats := c.GetStats()
	if stats.TotalKeys != int64(numEntries) {
		t.Errorf("Expected %d total keys, got %d", numEntries, stats.TotalKeys)
	}

	for i := 0; i < 100; i++ {
		idx := i * 100
		value, exists := c.Get(model.ArtistCreditID(idx))
		if !exists {
			t.Errorf("Expected id %d to exist", idx)
		}
		if value != idx*2 {
			t.Errorf("Expected value %d, got %v", idx*2, value)
		}
	}
}

func TestCacheEntryOverwrite(t *testing.T) {
	c := New[string](200 * time.Millisecond) // increased TTL for CI stability

	c.Set(1, "value1")

	time.Sleep(50 * time.Millisecond)

	c.Set(1, "value2")

	time.Sleep(100 * time.Millisecond)

	value, exists := c.Get(1)
	if !exists {
		t.Error("Expected overwritten id to have reset expiration")
	}

	if value != "value2" {
		t.Errorf("Expected value2, got %v", value)
	}
}

func TestCacheSetWithTTLOverridesDefault(t *testing.T) {
	c := New[string](50 * time.Millisecond) // default 50ms

	c.SetWithTTL(1, "long-value", 200*time.Millisecond)
	c.Set(2, "short-value")

	time.Sleep(75 * time.Millisecond)

	if _, exists := c.Get(2); exists {
		t.Error("Expected short-ttl id to be expired")
	}

	if _, exists := c.Get(1); !exists {
		t.Error("Expected long-ttl id to still exist")
	}
}

func BenchmarkCacheCleanup(b *testing.B) {
	c := New[string](1 * time.Millisecond)

	for i := 0; i < 1000; i++ {
		c.Set(model.ArtistCreditID(i), "value")
	}

	time.Sleep(10 * time.Millisecond)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		c.cleanup()
	}
}
