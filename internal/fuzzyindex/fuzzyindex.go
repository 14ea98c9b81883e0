// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

// Package fuzzyindex implements the trigram TF-IDF vectorizer and
// sparse inverted-file k-NN search used for every string-matching
// operation in the resolver: the global artist index and every
// per-artist release/recording sub-index are instances of Index.
package fuzzyindex

import (
	"math"
	"sort"
	"sync"

	"github.com/tomtom215/resolvd/internal/model"
	"github.com/tomtom215/resolvd/internal/trie"
)

// K is the fixed neighborhood size used by every search. Chosen to give
// enough surface area for the later release/recording join.
const K = 15

// vector is a sparse trigram -> TF-IDF weight map for one record.
type vector map[string]float64

// Index is a trigram TF-IDF vectorizer plus sparse inverted-file
// k-NN index over a slice of records of type T. TextOf extracts the
// field each record is matched on.
type Index[T any] struct {
	mu      sync.RWMutex
	built   bool
	textOf  func(T) string
	records []T
	idf     map[string]float64
	vectors []vector            // one per record, parallel to records
	posting map[string][]int    // trigram -> record indices containing it
	norms   []float64           // precomputed L2 norm per record vector
	exact   *trie.Trie[int]     // exact text -> record index, for the Search fast path
}

// New creates an unbuilt index. textOf must be stable and pure.
func New[T any](textOf func(T) string) *Index[T] {
	return &Index[T]{textOf: textOf}
}

// trigrams splits a string into overlapping character trigrams after
// padding with a single leading and trailing space, so "cat" yields
// " ca", "cat", "at ".
func trigrams(s string) []string {
	padded := " " + s + " "
	runes := []rune(padded)
	if len(runes) < 3 {
		return []string{string(runes)}
	}
	out := make([]string, 0, len(runes)-2)
	for i := 0; i+3 <= len(runes); i++ {
		out = append(out, string(runes[i:i+3]))
	}
	return out
}

// Build fits the vectorizer over records and constructs the inverted
// file. Replaces any prior state. Fails with model.ErrEmptyIndex if
// records is empty.
func (idx *Index[T]) Build(records []T) error {
	if len(records) == 0 {
		return model.ErrEmptyIndex
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	docFreq := make(map[string]int)
	tokenized := make([][]string, len(records))
	for i, r := range records {
		toks := trigrams(idx.textOf(r))
		tokenized[i] = toks
		seen := make(map[string]struct{}, len(toks))
		for _, t := range toks {
			if _, ok := seen[t]; ok {
				continue
			}
			seen[t] = struct{}{}
			docFreq[t]++
		}
	}

	n := float64(len(records))
	idf := make(map[string]float64, len(docFreq))
	for t, df := range docFreq {
		// min_df = 1, so every observed trigram participates.
		idf[t] = math.Log(n/float64(df)) + 1
	}

	vectors := make([]vector, len(records))
	norms := make([]float64, len(records))
	posting := make(map[string][]int)
	for i, toks := range tokenized {
		tf := make(map[string]int)
		for _, t := range toks {
			tf[t]++
		}
		v := make(vector, len(tf))
		var sumSq float64
		for t, count := range tf {
			w := float64(count) * idf[t]
			v[t] = w
			sumSq += w * w
			posting[t] = append(posting[t], i)
		}
		vectors[i] = v
		norms[i] = math.Sqrt(sumSq)
	}

	exact := trie.NewTrie[int]()
	for i, r := range records {
		exact.InsertWithData(idx.textOf(r), i)
	}

	idx.records = records
	idx.idf = idf
	idx.vectors = vectors
	idx.norms = norms
	idx.posting = posting
	idx.exact = exact
	idx.built = true
	return nil
}

// Search returns the up-to-K nearest records to query scoring at least
// minConfidence, in descending-confidence order. Fails with
// model.ErrIndexNotBuilt if Build has not succeeded yet.
func (idx *Index[T]) Search(query string, minConfidence float64) ([]model.Hit, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if !idx.built {
		return nil, model.ErrIndexNotBuilt
	}

	qv, qnorm := idx.vectorize(query)
	if qnorm == 0 || len(qv) == 0 {
		return nil, nil
	}

	candidates := make(map[int]struct{})
	for t := range qv {
		for _, i := range idx.posting[t] {
			candidates[i] = struct{}{}
		}
	}
	// An exact text match shares every trigram with the query, so the
	// posting lists above already surface it; the trie lookup adds it to the
	// candidates directly as well, and it is then scored like every other
	// candidate.
	if data, ok := idx.exact.Search(query); ok {
		candidates[data] = struct{}{}
	}

	hits := make([]model.Hit, 0, len(candidates))
	for i := range candidates {
		dot := 0.0
		rv := idx.vectors[i]
		for t, qw := range qv {
			if rw, ok := rv[t]; ok {
				dot += qw * rw
			}
		}
		if dot == 0 || idx.norms[i] == 0 {
			continue
		}
		confidence := dot / (qnorm * idx.norms[i])
		confidence = math.Abs(confidence)
		if confidence > 1 {
			confidence = 1
		}
		if confidence < minConfidence {
			continue
		}
		hits = append(hits, model.Hit{Index: i, Confidence: confidence})
	}

	sort.SliceStable(hits, func(a, b int) bool {
		return hits[a].Confidence > hits[b].Confidence
	})
	if len(hits) > K {
		hits = hits[:K]
	}
	return hits, nil
}

// Record returns the record at a Hit's Index. Only valid after Build.
func (idx *Index[T]) Record(i int) T {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.records[i]
}

// Built reports whether Build has succeeded at least once.
func (idx *Index[T]) Built() bool {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.built
}

// Len returns the number of indexed records.
func (idx *Index[T]) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.records)
}

// vectorize computes the TF-IDF vector of an already-normalized query
// string using the fitted IDF weights; unseen trigrams contribute zero.
func (idx *Index[T]) vectorize(text string) (vector, float64) {
	toks := trigrams(text)
	tf := make(map[string]int)
	for _, t := range toks {
		tf[t]++
	}
	v := make(vector, len(tf))
	var sumSq float64
	for t, count := range tf {
		w, ok := idx.idf[t]
		if !ok {
			continue
		}
		weight := float64(count) * w
		v[t] = weight
		sumSq += weight * weight
	}
	return v, math.Sqrt(sumSq)
}
