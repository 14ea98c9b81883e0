// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package shard

import (
	"context"
	"fmt"
)

// ShardWorkerService adapts a Worker's request loop to suture.Service so
// internal/supervisor.SupervisorTree can restart one shard independently
// of the others on panic or error, without touching the shared mapping
// store or artist cache.
type ShardWorkerService struct {
	worker *Worker
}

// NewShardWorkerService wraps w for supervision.
func NewShardWorkerService(w *Worker) *ShardWorkerService {
	return &ShardWorkerService{worker: w}
}

// Serve implements suture.Service.
func (s *ShardWorkerService) Serve(ctx context.Context) error {
	return s.worker.Serve(ctx)
}

// String implements fmt.Stringer for logging.
func (s *ShardWorkerService) String() string {
	return fmt.Sprintf("shard-worker-%d", s.worker.Index)
}
