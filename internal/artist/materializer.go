// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

// Package artist materializes an artist-data bundle from the mapping
// store: per-artist release/recording sub-indexes and cross-reference
// tables, built on first query for that artist.
package artist

import (
	"context"
	"fmt"

	"github.com/tomtom215/resolvd/internal/fuzzyindex"
	"github.com/tomtom215/resolvd/internal/model"
	"github.com/tomtom215/resolvd/internal/normalize"
)

// Bundle is the materialized, queryable state for one artist: two
// fuzzy indexes (over recordings and releases) plus the cross-reference
// table used to validate (release, recording) co-occurrence. Empty
// reports the sentinel "empty artist" case: any query against it
// yields no hits without touching the sub-indexes.
type Bundle struct {
	ArtistCreditID    model.ArtistCreditID
	Empty             bool
	RecordingData     []model.RecordingBucket
	ReleaseData       []model.ReleaseBucket
	RecordingReleases map[model.RecordingID]map[model.ReleaseID]struct{}
	RecordingIndex    *fuzzyindex.Index[model.RecordingBucket]
	ReleaseIndex      *fuzzyindex.Index[model.ReleaseBucket]
}

func recordingBucketText(b model.RecordingBucket) string { return b.Text }
func releaseBucketText(b model.ReleaseBucket) string      { return b.Text }

// Source reads mapping rows for an artist; internal/mapping.Store
// satisfies this.
type Source interface {
	SelectByArtist(ctx context.Context, id model.ArtistCreditID) ([]model.MappingRow, error)
}

// Materialize builds a Bundle for id from rows in src. If either the
// recording or release bucket list ends up empty, the returned bundle
// is the empty-artist sentinel.
func Materialize(ctx context.Context, src Source, id model.ArtistCreditID) (*Bundle, error) {
	rows, err := src.SelectByArtist(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("artist: select rows for %d: %w", id, err)
	}

	recordingBuckets := make(map[string]*model.RecordingBucket)
	recordingOrder := make([]string, 0)
	releaseBuckets := make(map[string]*model.ReleaseBucket)
	releaseOrder := make([]string, 0)
	recordingReleases := make(map[model.RecordingID]map[model.ReleaseID]struct{})

	for _, r := range rows {
		recText := normalize.Normalize(r.RecordingName)
		if recText != "" {
			b, ok := recordingBuckets[recText]
			if !ok {
				b = &model.RecordingBucket{Text: recText}
				recordingBuckets[recText] = b
				recordingOrder = append(recordingOrder, recText)
			}
			b.Rows = append(b.Rows, model.RecordingScore{
				RecordingID: r.RecordingID,
				ReleaseID:   r.ReleaseID,
				Score:       r.Score,
			})
		}

		relText := normalize.Normalize(r.ReleaseName)
		if relText != "" {
			b, ok := releaseBuckets[relText]
			if !ok {
				b = &model.ReleaseBucket{Text: relText}
				releaseBuckets[relText] = b
				releaseOrder = append(releaseOrder, relText)
			}
			dup := false
			for _, existing := range b.Rows {
				if existing.ReleaseID == r.ReleaseID {
					dup = true
					break
				}
			}
			if !dup {
				b.Rows = append(b.Rows, model.ReleaseIDScore{ReleaseID: r.ReleaseID, Score: r.Score})
			}
		}

		if recordingReleases[r.RecordingID] == nil {
			recordingReleases[r.RecordingID] = make(map[model.ReleaseID]struct{})
		}
		recordingReleases[r.RecordingID][r.ReleaseID] = struct{}{}
	}

	recordingData := make([]model.RecordingBucket, 0, len(recordingOrder))
	for i, text := range recordingOrder {
		b := recordingBuckets[text]
		b.ID = i
		recordingData = append(recordingData, *b)
	}
	releaseData := make([]model.ReleaseBucket, 0, len(releaseOrder))
	for i, text := range releaseOrder {
		b := releaseBuckets[text]
		b.ID = i
		releaseData = append(releaseData, *b)
	}

	return FromBuckets(id, recordingData, releaseData, recordingReleases)
}

// FromBuckets builds a Bundle (including its two fuzzy sub-indexes) from
// already-materialized recording/release buckets and cross-reference table.
// Exposed so the artist-data cache (internal/cache) can rebuild a bundle
// from its deserialized, persisted form without duplicating the indexing
// logic Materialize uses for a freshly computed one.
func FromBuckets(
	id model.ArtistCreditID,
	recordingData []model.RecordingBucket,
	releaseData []model.ReleaseBucket,
	recordingReleases map[model.RecordingID]map[model.ReleaseID]struct{},
) (*Bundle, error) {
	bundle := &Bundle{
		ArtistCreditID:    id,
		RecordingData:     recordingData,
		ReleaseData:       releaseData,
		RecordingReleases: recordingReleases,
	}

	if len(recordingData) == 0 || len(releaseData) == 0 {
		bundle.Empty = true
		return bundle, nil
	}

	recIdx := fuzzyindex.New(recordingBucketText)
	if err := recIdx.Build(recordingData); err != nil {
		return nil, fmt.Errorf("artist: build recording index for %d: %w", id, err)
	}
	relIdx := fuzzyindex.New(releaseBucketText)
	if err := relIdx.Build(releaseData); err != nil {
		return nil, fmt.Errorf("artist: build release index for %d: %w", id, err)
	}

	bundle.RecordingIndex = recIdx
	bundle.ReleaseIndex = relIdx
	return bundle, nil
}
