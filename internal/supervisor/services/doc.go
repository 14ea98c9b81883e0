// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

/*
Package services provides suture.Service wrappers for the resolver daemon's
supervised components.

# Overview

Each wrapper implements the suture.Service interface:

	type Service interface {
	    Serve(ctx context.Context) error
	}

# Available Services

ShardWorkerService (internal/shard):
  - Wraps one shard Worker's request-processing loop
  - Shuts down on context cancellation; requests still queued are not drained

ManagedService:
  - Generic Start/Stop wrapper for any StartStopManager
  - Used for the artist-data cache eviction sweep

# Usage Example

	tree, _ := supervisor.NewSupervisorTree(logger, config)

	for _, w := range workers {
	    tree.AddWorkerService(shard.NewShardWorkerService(w))
	}

	sweep := cache.NewEvictionSweep(bundleCache, cfg.SweepInterval)
	tree.AddMaintenanceService(services.NewManagedService("cache-sweep", sweep))

	tree.Serve(ctx)

# Error Handling

Return values determine supervisor behavior:

	nil         -> Service stopped cleanly, will not restart
	error       -> Service crashed, supervisor will restart
	ctx.Err()   -> Shutdown requested, normal termination

# See Also

  - internal/supervisor: SupervisorTree that manages these services
  - github.com/thejerf/suture/v4: Underlying supervision library
*/
package services
