// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package services

import (
	"context"
	"fmt"
)

// StartStopManager is the Start/Stop lifecycle any long-running component
// can implement to be wrapped as a suture.Service. It is satisfied by the
// artist-data cache's eviction sweep (internal/cache) and by any future
// background manager that needs supervised lifecycle management.
type StartStopManager interface {
	Start(ctx context.Context) error
	Stop() error
}

// ManagedService adapts a StartStopManager's Start/Stop lifecycle to
// suture's Serve pattern:
//  1. Calls Start(ctx) to begin the manager
//  2. Waits for context cancellation
//  3. Calls Stop() for graceful shutdown
//
// The manager handles its own goroutines internally, so this wrapper only
// orchestrates the lifecycle transitions.
type ManagedService struct {
	manager StartStopManager
	name    string
}

// NewManagedService creates a new supervised service wrapper.
//
// Example usage:
//
//	sweep := cache.NewEvictionSweep(bundleCache, cfg.SweepInterval)
//	svc := services.NewManagedService("cache-sweep", sweep)
//	tree.AddMaintenanceService(svc)
func NewManagedService(name string, manager StartStopManager) *ManagedService {
	return &ManagedService{manager: manager, name: name}
}

// Serve implements suture.Service.
//
// If Start() fails, the error is returned immediately, causing suture to
// restart the service according to its backoff policy.
func (s *ManagedService) Serve(ctx context.Context) error {
	if err := s.manager.Start(ctx); err != nil {
		return fmt.Errorf("%s start failed: %w", s.name, err)
	}

	<-ctx.Done()

	if err := s.manager.Stop(); err != nil {
		return fmt.Errorf("%s stop failed: %w", s.name, err)
	}

	return ctx.Err()
}

// String implements fmt.Stringer for logging.
func (s *ManagedService) String() string {
	return s.name
}
