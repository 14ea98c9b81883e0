// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

/*
Package shard implements the shard router and worker pool (C7): the query
entry point that turns a noisy (artist, release, recording) triple into a
ranked (release_id, recording_id, confidence) result.

# Partitioning

At startup, PackShards greedily bin-packs the shard characters read from
the builder's partition table (internal/builder.ReadPartitionTable) across
ShardCount buckets, weighted by RequestHistogram — a fixed, embedded
approximation of observed query load per leading character (§6) — not by
corpus size. Iterating shard characters in descending weight order and
always placing the next one into the currently lightest bucket keeps the
per-shard load roughly even.

# Router

Router.Resolve runs the full query pipeline of §4.7: normalize, search the
artist index (standard or symbolic), optionally retry with the external
Cleaner collaborator's output when confidence is low, pick the candidate
artist ids sharing the top hit's shard character, dispatch to the owning
Worker, and join the reply back against the mapping store for full MBIDs
and names.

Each shard is fronted by a github.com/sony/gobreaker/v2 circuit breaker:
a shard whose worker is repeatedly timing out trips the breaker so the
router fails fast (model.ErrSearchTimeout -> ErrServiceUnavailable)
instead of re-queueing behind the full request timeout on every call.

# Worker

A Worker owns one shard's goroutine and input channel; the shard only
determines which artists route to it, not which data it may read — the
mapping store and artist-data cache are shared, read-only resources
(§5). Request/response correlation uses a per-request reply channel
(§9's "simpler design": one output channel per in-flight request) rather
than a shared output queue scanned for a matching UUID; a request still
carries a uuid for tracing and for parity with the wire envelope in §6.
ShardWorkerService adapts Worker.Serve to suture.Service so
internal/supervisor.SupervisorTree can restart one wedged shard without
affecting the others.

# See Also

  - internal/builder: writes the artist indexes and partition table this
    package loads
  - internal/artist, internal/cache: the materializer/cache pair a Worker
    consults for each candidate artist
  - SPEC_FULL.md §4.7 / §C7
*/
package shard
