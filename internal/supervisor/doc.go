// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

/*
Package supervisor provides process supervision for the resolver daemon using
suture v4.

This package implements a two-layer supervisor tree that manages the
lifecycle of every long-running goroutine in the daemon, giving Erlang/OTP
style supervision: automatic restart, failure isolation, and graceful
shutdown.

# Overview

	RootSupervisor ("resolvd")
	├── WorkersSupervisor ("shard-workers")
	│   └── one shard.ShardWorkerService per internal/shard.Worker
	└── MaintenanceSupervisor ("maintenance")
	    └── services.ManagedService over cache.EvictionSweep

A crash in one shard worker's goroutine restarts only that shard; the cache
eviction sweep runs independently and can't take request-serving workers
down with it.

# Usage Example

	logger := slog.Default()
	tree, err := supervisor.NewSupervisorTree(logger, supervisor.DefaultTreeConfig())
	if err != nil {
	    log.Fatal(err)
	}

	for _, w := range workers {
	    tree.AddWorkerService(shard.NewShardWorkerService(w))
	}
	sweep := cache.NewEvictionSweep(bundleCache, sweepInterval)
	tree.AddMaintenanceService(services.NewManagedService("cache-sweep", sweep))

	ctx := context.Background()
	if err := tree.Serve(ctx); err != nil {
	    log.Printf("supervisor stopped: %v", err)
	}

# Configuration

	config := supervisor.TreeConfig{
	    FailureThreshold: 5.0,
	    FailureDecay:     30.0,
	    FailureBackoff:   15 * time.Second,
	    ShutdownTimeout:  10 * time.Second,
	}

# Service Interface

All services must implement suture.Service:

	type Service interface {
	    Serve(ctx context.Context) error
	}

Return nil for a clean stop (no restart); return an error to trigger a
restart; return promptly on context cancellation during shutdown.

# Debugging Shutdown Issues

	report, err := tree.UnstoppedServiceReport()
	for _, svc := range report {
	    log.Printf("service didn't stop: %v", svc)
	}

# See Also

  - internal/supervisor/services: Service wrappers
  - github.com/thejerf/suture/v4: Underlying library
*/
package supervisor
