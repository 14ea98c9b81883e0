// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package builder

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/goccy/go-json"

	"github.com/tomtom215/resolvd/internal/model"
)

// jsonlRow is the on-disk shape of one canonical-source row: SourceRow
// with its id fields as plain integers and mbid fields as plain strings,
// matching how an export from the canonical relational source (§1's
// external collaborator) would naturally serialize.
type jsonlRow struct {
	ArtistCreditID       uint32   `json:"artist_credit_id"`
	ArtistMbids          []string `json:"artist_mbids"`
	ArtistCreditName     string   `json:"artist_credit_name"`
	ArtistCreditSortname string   `json:"artist_credit_sortname"`
	ReleaseID            uint32   `json:"release_id"`
	ReleaseMbid          string   `json:"release_mbid"`
	ReleaseName          string   `json:"release_name"`
	RecordingID          uint32   `json:"recording_id"`
	RecordingMbid        string   `json:"recording_mbid"`
	RecordingName        string   `json:"recording_name"`
	Score                float64  `json:"score"`
}

// JSONLCursor is a Cursor over a newline-delimited JSON export of the
// canonical source, ordered by artist_credit_id by whatever produced the
// file. It is the builder CLI's default Cursor implementation; a live
// database cursor is the external collaborator's concern (§1 Non-goals),
// not this package's.
type JSONLCursor struct {
	f       *os.File
	scanner *bufio.Scanner
}

// NewJSONLCursor opens path for streaming read.
func NewJSONLCursor(path string) (*JSONLCursor, error) {
	f, err := os.Open(path) //nolint:gosec // operator-supplied build input path
	if err != nil {
		return nil, fmt.Errorf("builder: open source file %s: %w", path, err)
	}
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	return &JSONLCursor{f: f, scanner: scanner}, nil
}

// Next implements Cursor.
func (c *JSONLCursor) Next(ctx context.Context) (SourceRow, bool, error) {
	if err := ctx.Err(); err != nil {
		return SourceRow{}, false, err
	}

	for c.scanner.Scan() {
		line := c.scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var jr jsonlRow
		if err := json.Unmarshal(line, &jr); err != nil {
			return SourceRow{}, false, fmt.Errorf("builder: decode source row: %w", err)
		}
		return SourceRow{
			ArtistCreditID:       model.ArtistCreditID(jr.ArtistCreditID),
			ArtistMbids:          jr.ArtistMbids,
			ArtistCreditName:     jr.ArtistCreditName,
			ArtistCreditSortname: jr.ArtistCreditSortname,
			ReleaseID:            model.ReleaseID(jr.ReleaseID),
			ReleaseMbid:          model.Mbid(jr.ReleaseMbid),
			ReleaseName:          jr.ReleaseName,
			RecordingID:          model.RecordingID(jr.RecordingID),
			RecordingMbid:        model.Mbid(jr.RecordingMbid),
			RecordingName:        jr.RecordingName,
			Score:                jr.Score,
		}, true, nil
	}
	if err := c.scanner.Err(); err != nil && err != io.EOF {
		return SourceRow{}, false, fmt.Errorf("builder: read source file: %w", err)
	}
	return SourceRow{}, false, nil
}

// Close implements Cursor.
func (c *JSONLCursor) Close() error {
	return c.f.Close()
}
