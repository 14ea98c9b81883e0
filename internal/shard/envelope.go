// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package shard

import (
	"github.com/google/uuid"

	"github.com/tomtom215/resolvd/internal/model"
)

// WorkerRequest is the router-to-worker envelope of §6: a set of
// candidate artist ids sharing one shard, plus the raw query terms the
// worker re-normalizes against each candidate's bundle. Exit, when set,
// is the sentinel that tells a Worker to drain its queue and stop.
type WorkerRequest struct {
	ID            uuid.UUID
	ArtistIDs     []model.ArtistCreditID
	ArtistName    string
	ReleaseName   string
	RecordingName string
	Exit          bool
}

// WorkerResponse is the worker-to-router envelope of §6. Hits is nil
// for "not found"; otherwise it is a non-empty list of up to 3
// (release_id, recording_id, confidence) tuples (recording-only branch)
// or a single best tuple (release+recording branch).
type WorkerResponse struct {
	ID        uuid.UUID
	Hits      []model.RecordingReleasePair
	ElapsedMS int64
}

// inflightRequest pairs a WorkerRequest with the private reply channel
// it should be answered on — the §9 "simpler design" of one output
// channel per in-flight request rather than a shared queue scanned for
// a matching id. The channel is buffered by 1 so a worker that replies
// after the router has already timed out never blocks on the send; the
// stale response is simply never read.
type inflightRequest struct {
	req   WorkerRequest
	reply chan WorkerResponse
}
