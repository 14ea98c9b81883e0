// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package shard

import "github.com/tomtom215/resolvd/internal/model"

// RequestHistogram is the embedded request-frequency table of §6: a
// fixed map from normalized leading character to observed query weight,
// used only to bin-pack shard characters into roughly even-load shards
// at router startup. It intentionally tracks how often a leading
// character shows up at the front of real-world query traffic (English
// word-initial letter frequency, roughly), not how many artists the
// corpus happens to have starting with it — §3 says partitioning
// "reflects query load rather than corpus size".
var RequestHistogram = map[model.ShardCh]float64{
	't': 9.1, 'a': 8.2, 's': 7.6, 'b': 6.5, 'm': 6.1,
	'c': 5.8, 'd': 5.3, 'r': 5.0, 'l': 4.6, 'j': 4.3,
	'w': 4.0, 'g': 3.8, 'p': 3.6, 'n': 3.1, 'k': 2.8,
	'f': 2.6, 'e': 2.3, 'h': 2.0, 'i': 1.8, 'o': 1.5,
	'u': 1.2, 'v': 1.0, 'y': 0.8, 'z': 0.6, 'q': 0.4,
	'x': 0.3,
	'1': 0.4, '2': 0.3, '3': 0.2, '4': 0.2, '5': 0.2,
	'6': 0.2, '7': 0.2, '8': 0.2, '9': 0.2, '0': 0.2,
	model.SymbolicShardCh: 0.5,
}

// fallbackWeight is used for a partition-table shard character the
// histogram has no entry for (e.g. a rare Unicode leading letter); small
// but non-zero so it still participates in the greedy packing.
const fallbackWeight = 0.1

func weightOf(ch model.ShardCh) float64 {
	if w, ok := RequestHistogram[ch]; ok {
		return w
	}
	return fallbackWeight
}
