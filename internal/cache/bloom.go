// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package cache

import (
	"encoding/binary"
	"hash/fnv"
	"sync"

	"github.com/tomtom215/resolvd/internal/model"
)

// BloomFilter is a probabilistic set-membership structure over
// model.ArtistCreditID, used by ArtistCache as C6's negative cache: a
// Load for an id that was never Saved skips the badger read entirely.
//
// Key characteristics:
//   - No false negatives: if Test() returns false, the id definitely
//     wasn't Added
//   - Possible false positives: if Test() returns true, the id might
//     have been Added
//   - Space efficient: ~10 bits per element for a 1% false positive rate
//   - Cannot remove items
type BloomFilter struct {
	mu       sync.RWMutex
	bits     []uint64 // bit array
	size     uint64   // number of bits
	hashFns  int      // number of hash functions to use
	count    int      // number of items added
	capacity int      // expected capacity
}

// NewBloomFilter creates a new Bloom filter sized for expectedItems ids
// at the given target false positive rate (e.g. 0.01 for 1%).
func NewBloomFilter(expectedItems int, falsePositiveRate float64) *BloomFilter {
	if expectedItems <= 0 {
		expectedItems = 10000
	}
	if falsePositiveRate <= 0 || falsePositiveRate >= 1 {
		falsePositiveRate = 0.01
	}

	// m = -n * ln(p) / (ln(2)^2) where m = bits, n = items, p = false
	// positive rate; k = (m/n) * ln(2) where k = number of hash functions.
	const ln2 = 0.693147
	ln2Squared := ln2 * ln2
	lnP := approximateLn(falsePositiveRate)

	m := int(-float64(expectedItems) * lnP / ln2Squared)
	if m < 64 {
		m = 64
	}

	k := int(float64(m) / float64(expectedItems) * ln2)
	if k < 1 {
		k = 1
	}
	if k > 10 {
		k = 10
	}

	words := (m + 63) / 64

	return &BloomFilter{
		bits:     make([]uint64, words),
		size:     uint64(words * 64),
		hashFns:  k,
		capacity: expectedItems,
	}
}

// Add records id as present.
func (bf *BloomFilter) Add(id model.ArtistCreditID) {
	bf.mu.Lock()
	defer bf.mu.Unlock()

	for _, h := range bf.getHashes(id) {
		idx := h % bf.size
		bf.bits[idx/64] |= 1 << (idx % 64)
	}
	bf.count++
}

// Test reports whether id might have been Added. false means it
// definitely was not.
func (bf *BloomFilter) Test(id model.ArtistCreditID) bool {
	bf.mu.RLock()
	defer bf.mu.RUnlock()

	for _, h := range bf.getHashes(id) {
		idx := h % bf.size
		if bf.bits[idx/64]&(1<<(idx%64)) == 0 {
			return false
		}
	}
	return true
}

// Clear resets the Bloom filter.
func (bf *BloomFilter) Clear() {
	bf.mu.Lock()
	defer bf.mu.Unlock()

	for i := range bf.bits {
		bf.bits[i] = 0
	}
	bf.count = 0
}

// Count returns the number of ids added (may include duplicates).
func (bf *BloomFilter) Count() int {
	bf.mu.RLock()
	defer bf.mu.RUnlock()
	return bf.count
}

// getHashes generates bf.hashFns hash values for id via double hashing:
// h(i) = h1 + i*h2, cheaper than computing k independent hash functions.
func (bf *BloomFilter) getHashes(id model.ArtistCreditID) []uint64 {
	var key [4]byte
	binary.BigEndian.PutUint32(key[:], uint32(id))

	h1 := fnv.New64a()
	h1.Write(key[:])
	hash1 := h1.Sum64()

	h2 := fnv.New64()
	h2.Write(key[:])
	h2.Write([]byte{0xff}) // salt to differentiate from h1
	hash2 := h2.Sum64()

	hashes := make([]uint64, bf.hashFns)
	for i := 0; i < bf.hashFns; i++ {
		hashes[i] = hash1 + uint64(i)*hash2
	}
	return hashes
}

// approximateLn returns a lookup-table approximation of ln(x) for the
// false-positive rates BloomFilter sizing cares about (0 < x < 1).
func approximateLn(x float64) float64 {
	switch {
	case x >= 0.1:
		return -2.303 // ln(0.1)
	case x >= 0.05:
		return -2.996 // ln(0.05)
	case x >= 0.01:
		return -4.605 // ln(0.01)
	case x >= 0.005:
		return -5.298 // ln(0.005)
	case x >= 0.001:
		return -6.908 // ln(0.001)
	default:
		return -9.210 // ln(0.0001)
	}
}
