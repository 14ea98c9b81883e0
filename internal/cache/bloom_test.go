// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package cache

import (
	"sync"
	"testing"

	"github.com/tomtom215/resolvd/internal/model"
)

func TestBloomFilter_BasicOperations(t *testing.T) {
	t.Parallel()

	bf := NewBloomFilter(1000, 0.01)

	bf.Add(model.ArtistCreditID(65))
	bf.Add(model.ArtistCreditID(9000))

	if !bf.Test(model.ArtistCreditID(65)) {
		t.Error("Expected artist 65 to be found")
	}
	if !bf.Test(model.ArtistCreditID(9000)) {
		t.Error("Expected artist 9000 to be found")
	}
}

func TestBloomFilter_NoFalseNegatives(t *testing.T) {
	t.Parallel()

	bf := NewBloomFilter(10000, 0.01)

	ids := make([]model.ArtistCreditID, 1000)
	for i := range ids {
		ids[i] = model.ArtistCreditID(i * 7)
		bf.Add(ids[i])
	}

	for _, id := range ids {
		if !bf.Test(id) {
			t.Errorf("false negative for artist %d", id)
		}
	}
}

func TestBloomFilter_FalsePositiveRateWithinBudget(t *testing.T) {
	t.Parallel()

	bf := NewBloomFilter(1000, 0.01)

	for i := 0; i < 1000; i++ {
		bf.Add(model.ArtistCreditID(i))
	}

	falsePositives := 0
	const probes = 10000
	for i := 1000; i < 1000+probes; i++ {
		if bf.Test(model.ArtistCreditID(i)) {
			falsePositives++
		}
	}

	// 1% target rate; allow generous headroom since this is a randomized
	// structure over a modest sample, not a statistical conformance test.
	rate := float64(falsePositives) / float64(probes)
	if rate > 0.05 {
		t.Errorf("false positive rate = %.4f, want <= ~0.05", rate)
	}
}

func TestBloomFilter_ProbeOfUnaddedIDKeepsCount(t *testing.T) {
	t.Parallel()

	bf := NewBloomFilter(1000, 0.01)
	bf.Add(model.ArtistCreditID(1))

	// Probing an id that was never added leaves the filter's count at the
	// one id added. A positive Test result alone is not a failure, since
	// bloom filters do have false positives.
	if bf.Test(model.ArtistCreditID(0)) && bf.Count() != 1 {
		t.Fatalf("unexpected filter state: count=%d", bf.Count())
	}
}

func TestBloomFilter_Clear(t *testing.T) {
	t.Parallel()

	bf := NewBloomFilter(1000, 0.01)
	bf.Add(model.ArtistCreditID(42))

	if bf.Count() != 1 {
		t.Errorf("Count() = %d, want 1", bf.Count())
	}

	bf.Clear()

	if bf.Count() != 0 {
		t.Errorf("Count() after Clear = %d, want 0", bf.Count())
	}
	if bf.Test(model.ArtistCreditID(42)) {
		t.Error("Test should not find artist 42 after Clear")
	}
}

func TestBloomFilter_DefaultsOnInvalidParams(t *testing.T) {
	t.Parallel()

	bf := NewBloomFilter(0, 0)
	bf.Add(model.ArtistCreditID(1))
	if !bf.Test(model.ArtistCreditID(1)) {
		t.Error("Expected artist 1 to be found with default sizing")
	}
}

func TestBloomFilter_Concurrent(t *testing.T) {
	t.Parallel()

	bf := NewBloomFilter(10000, 0.01)

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			bf.Add(model.ArtistCreditID(id))
			bf.Test(model.ArtistCreditID(id))
		}(i)
	}
	wg.Wait()

	for i := 0; i < 100; i++ {
		if !bf.Test(model.ArtistCreditID(i)) {
			t.Errorf("false negative for artist %d after concurrent adds", i)
		}
	}
}
