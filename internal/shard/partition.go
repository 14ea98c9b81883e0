// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package shard

import (
	"fmt"
	"sort"

	"github.com/tomtom215/resolvd/internal/model"
)

// PackShards assigns every shard character in entries to one of n shard
// indices, greedily bin-packing by RequestHistogram weight: characters
// are visited in descending weight order and each is placed into
// whichever shard currently carries the lightest total weight. Every
// shard_ch in entries is covered exactly once (§8 testable property).
func PackShards(entries []model.PartitionEntry, histogram map[model.ShardCh]float64, n int) (map[model.ShardCh]int, error) {
	if n <= 0 {
		return nil, fmt.Errorf("shard: shard count must be positive, got %d", n)
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("shard: partition table is empty")
	}

	type weighted struct {
		ch     model.ShardCh
		weight float64
	}

	items := make([]weighted, 0, len(entries))
	for _, e := range entries {
		w, ok := histogram[e.ShardCh]
		if !ok {
			w = fallbackWeight
		}
		items = append(items, weighted{ch: e.ShardCh, weight: w})
	}

	// Descending weight, with a stable tie-break on the character itself
	// so packing is deterministic given the same partition table.
	sort.Slice(items, func(i, j int) bool {
		if items[i].weight != items[j].weight {
			return items[i].weight > items[j].weight
		}
		return items[i].ch < items[j].ch
	})

	sums := make([]float64, n)
	assignment := make(map[model.ShardCh]int, len(items))
	for _, it := range items {
		lightest := 0
		for i := 1; i < n; i++ {
			if sums[i] < sums[lightest] {
				lightest = i
			}
		}
		assignment[it.ch] = lightest
		sums[lightest] += it.weight
	}
	return assignment, nil
}

// charsByShard inverts a PackShards assignment into shard index ->
// shard characters, used to label each Worker for logging/metrics.
func charsByShard(assignment map[model.ShardCh]int) map[int][]model.ShardCh {
	out := make(map[int][]model.ShardCh)
	for ch, idx := range assignment {
		out[idx] = append(out[idx], ch)
	}
	for idx := range out {
		sort.Slice(out[idx], func(i, j int) bool { return out[idx][i] < out[idx][j] })
	}
	return out
}
