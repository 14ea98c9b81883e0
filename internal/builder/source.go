// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package builder

import (
	"context"
	"strings"

	"github.com/tomtom215/resolvd/internal/model"
)

// SourceRow is one canonical row read from the external relational
// source (§6): artist_credit x release x recording, plus its popularity
// score. ArtistMbids holds the source's artist_mbids[] array form; the
// builder joins it to the mapping store's comma-separated text column.
type SourceRow struct {
	ArtistCreditID       model.ArtistCreditID
	ArtistMbids          []string
	ArtistCreditName     string
	ArtistCreditSortname string
	ReleaseID            model.ReleaseID
	ReleaseMbid          model.Mbid
	ReleaseName          string
	RecordingID          model.RecordingID
	RecordingMbid        model.Mbid
	RecordingName        string
	Score                float64
}

// Cursor streams SourceRows ordered by artist_credit_id, the ordering
// the streaming artist-boundary-detection build algorithm depends on.
type Cursor interface {
	// Next returns the next row, or ok=false once the cursor is exhausted.
	Next(ctx context.Context) (row SourceRow, ok bool, err error)
	Close() error
}

// SliceCursor is an in-memory Cursor over a pre-sorted slice, used by
// tests and by any caller that already has the canonical rows in memory
// (e.g. a one-off migration) rather than a live database cursor.
type SliceCursor struct {
	rows []SourceRow
	pos  int
}

// NewSliceCursor wraps rows as a Cursor. The caller is responsible for
// ordering rows by ArtistCreditID; SliceCursor does not sort.
func NewSliceCursor(rows []SourceRow) *SliceCursor {
	return &SliceCursor{rows: rows}
}

func (c *SliceCursor) Next(_ context.Context) (SourceRow, bool, error) {
	if c.pos >= len(c.rows) {
		return SourceRow{}, false, nil
	}
	row := c.rows[c.pos]
	c.pos++
	return row, true, nil
}

func (c *SliceCursor) Close() error { return nil }

func joinMbids(mbids []string) string {
	return strings.Join(mbids, ",")
}
