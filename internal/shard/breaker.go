// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package shard

import (
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/resolvd/internal/metrics"
)

// newBreaker builds the per-shard circuit breaker (§9 design note): a
// shard whose worker repeatedly fails to reply within budget trips the
// breaker so the router fails fast with ErrServiceUnavailable instead
// of queueing every subsequent request behind the full timeout.
func newBreaker(shardIdx int) *gobreaker.CircuitBreaker[WorkerResponse] {
	name := shardLabel(shardIdx)
	return gobreaker.NewCircuitBreaker[WorkerResponse](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     10 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(breakerName string, _, to gobreaker.State) {
			metrics.RecordBreakerState(breakerName, stateName(to))
		},
	})
}

func stateName(s gobreaker.State) string {
	switch s {
	case gobreaker.StateHalfOpen:
		return "half-open"
	case gobreaker.StateOpen:
		return "open"
	default:
		return "closed"
	}
}
