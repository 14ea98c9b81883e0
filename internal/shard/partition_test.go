// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package shard

import (
	"testing"

	"github.com/tomtom215/resolvd/internal/model"
)

func TestPackShardsCoversEveryCharExactlyOnce(t *testing.T) {
	entries := []model.PartitionEntry{
		{ShardCh: 'a', Count: 100}, {ShardCh: 'b', Count: 50}, {ShardCh: 'c', Count: 10},
		{ShardCh: 't', Count: 900}, {ShardCh: 'z', Count: 1}, {ShardCh: model.SymbolicShardCh, Count: 5},
	}

	assignment, err := PackShards(entries, RequestHistogram, 3)
	if err != nil {
		t.Fatalf("PackShards: %v", err)
	}

	if len(assignment) != len(entries) {
		t.Fatalf("expected %d assigned chars, got %d", len(entries), len(assignment))
	}
	for _, e := range entries {
		idx, ok := assignment[e.ShardCh]
		if !ok {
			t.Errorf("shard char %q not assigned", e.ShardCh)
		}
		if idx < 0 || idx >= 3 {
			t.Errorf("shard char %q assigned out-of-range shard %d", e.ShardCh, idx)
		}
	}
}

func TestPackShardsRejectsBadInput(t *testing.T) {
	if _, err := PackShards(nil, RequestHistogram, 3); err == nil {
		t.Error("expected error for empty partition table")
	}
	entries := []model.PartitionEntry{{ShardCh: 'a', Count: 1}}
	if _, err := PackShards(entries, RequestHistogram, 0); err == nil {
		t.Error("expected error for non-positive shard count")
	}
}

func TestPackShardsBalancesHeavyAgainstLight(t *testing.T) {
	// 't' (9.1) and 'a' (8.2) are the two heaviest characters; greedy
	// packing puts them on different shards, so the three heaviest never
	// all collapse onto one shard.
	entries := []model.PartitionEntry{
		{ShardCh: 't'}, {ShardCh: 'a'}, {ShardCh: 's'}, {ShardCh: 'b'},
	}
	assignment, err := PackShards(entries, RequestHistogram, 2)
	if err != nil {
		t.Fatalf("PackShards: %v", err)
	}
	if assignment['t'] == assignment['a'] && assignment['a'] == assignment['s'] {
		t.Error("expected the three heaviest characters not to all collapse onto one shard")
	}
}

func TestPackShardsFallsBackForUnknownChar(t *testing.T) {
	entries := []model.PartitionEntry{{ShardCh: '@'}}
	assignment, err := PackShards(entries, RequestHistogram, 1)
	if err != nil {
		t.Fatalf("PackShards: %v", err)
	}
	if _, ok := assignment['@']; !ok {
		t.Error("expected unknown shard char to still be assigned via fallbackWeight")
	}
}

func TestCharsByShardInvertsAssignment(t *testing.T) {
	assignment := map[model.ShardCh]int{'a': 0, 'b': 1, 'c': 0}
	inverted := charsByShard(assignment)
	if len(inverted[0]) != 2 || len(inverted[1]) != 1 {
		t.Fatalf("unexpected inversion: %+v", inverted)
	}
	if inverted[0][0] != 'a' || inverted[0][1] != 'c' {
		t.Errorf("expected shard 0 chars sorted [a c], got %v", inverted[0])
	}
}
