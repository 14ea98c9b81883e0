// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

// Package model holds the canonical key types and persisted/materialized
// record shapes shared across the resolver's components: the mapping
// store rows written by the builder, the artist-index rows fed to the
// fuzzy index, and the per-artist bundle produced by the materializer.
package model

import "errors"

// ArtistCreditID, ReleaseID and RecordingID are the corpus's canonical
// 32-bit surrogate keys.
type ArtistCreditID uint32

// ReleaseID identifies a release (album/single/etc) within the corpus.
type ReleaseID uint32

// RecordingID identifies a single recording within the corpus.
type RecordingID uint32

// Mbid is a 128-bit MusicBrainz identifier rendered as text.
type Mbid string

// ShardCh is the single Unicode scalar used to route a query to a shard.
// SymbolicShardCh is the reserved value for artists with no standard
// normalization (e.g. "!!!").
type ShardCh rune

// SymbolicShardCh marks rows belonging to the symbolic-artist fallback
// index rather than a leading-letter shard.
const SymbolicShardCh ShardCh = '$'

// Sentinel errors shared by the fuzzy index, shard router and workers.
var (
	// ErrArtistNotFound means no hit on either artist index, post-cleaner retry.
	ErrArtistNotFound = errors.New("resolvd: artist not found")
	// ErrShardUnavailable means a leading character routes to no configured shard.
	ErrShardUnavailable = errors.New("resolvd: shard unavailable")
	// ErrSearchTimeout means a worker did not reply within the request budget.
	ErrSearchTimeout = errors.New("resolvd: search timeout")
	// ErrIndexNotBuilt means Search was called before Build.
	ErrIndexNotBuilt = errors.New("resolvd: fuzzy index not built")
	// ErrEmptyIndex means Build was called with no input rows.
	ErrEmptyIndex = errors.New("resolvd: fuzzy index build input is empty")
)

// MappingRow is one persisted row of the mapping store: a single
// artist_credit x release x recording fact plus its popularity score
// and the shard character it was filed under at build time.
type MappingRow struct {
	ArtistCreditID       ArtistCreditID `json:"artist_credit_id"`
	ArtistMbids          string         `json:"artist_mbids"` // comma-joined
	ArtistCreditName     string         `json:"artist_credit_name"`
	ArtistCreditSortname string         `json:"artist_credit_sortname"`
	ReleaseID            ReleaseID      `json:"release_id"`
	ReleaseMbid          Mbid           `json:"release_mbid"`
	ReleaseName          string         `json:"release_name"`
	RecordingID          RecordingID    `json:"recording_id"`
	RecordingMbid        Mbid           `json:"recording_mbid"`
	RecordingName        string         `json:"recording_name"`
	Score                float64        `json:"score"`
	ShardCh              ShardCh        `json:"shard_ch"`
}

// ArtistIndexRow is one entry of the global (or symbolic) artist index:
// a normalized name paired with the artist id and the shard character
// queries against it should route to.
type ArtistIndexRow struct {
	Text    string         `json:"text"`
	ID      ArtistCreditID `json:"id"`
	ShardCh ShardCh        `json:"shard_ch"`
}

// PartitionEntry is one row of the shard partition table: how many
// artist-index rows started with a given normalized leading character.
type PartitionEntry struct {
	ShardCh ShardCh `json:"shard_ch"`
	Count   int     `json:"count"`
}

// RecordingScore is one (recording_id, release_id, score) fact folded
// into an artist bundle's recording bucket.
type RecordingScore struct {
	RecordingID RecordingID `json:"recording_id"`
	ReleaseID   ReleaseID   `json:"release_id"`
	Score       float64     `json:"score"`
}

// RecordingBucket groups every RecordingScore sharing the same
// normalized recording text under one dense index used by C2.
type RecordingBucket struct {
	Text  string           `json:"text"`
	ID    int              `json:"id"`
	Rows  []RecordingScore `json:"recording_data"`
}

// ReleaseIDScore is a (release_id, score) pair folded into an artist
// bundle's release bucket.
type ReleaseIDScore struct {
	ReleaseID ReleaseID `json:"release_id"`
	Score     float64   `json:"score"`
}

// ReleaseBucket groups every ReleaseIDScore sharing the same normalized
// release text under one dense index used by C2.
type ReleaseBucket struct {
	Text string           `json:"text"`
	ID   int              `json:"id"`
	Rows []ReleaseIDScore `json:"release_id_scores"`
}

// Hit is one result of a fuzzy-index search: the original record's
// positional index plus the confidence the query matched it with.
type Hit struct {
	Index      int     `json:"index"`
	Confidence float64 `json:"confidence"`
}

// ArtistHit is one artist-index search result, joining the matched row
// with its confidence.
type ArtistHit struct {
	Row        ArtistIndexRow `json:"row"`
	Confidence float64        `json:"confidence"`
}

// RecordingReleasePair is a single (release_id, recording_id, confidence)
// candidate returned by a shard worker: up to three of them when no
// release name was given, otherwise the single best joined pair.
type RecordingReleasePair struct {
	ReleaseID   ReleaseID   `json:"release_id"`
	RecordingID RecordingID `json:"recording_id"`
	Confidence  float64     `json:"confidence"`
}
