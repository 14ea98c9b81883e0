// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

// Package mapping is the persistent, append-only-at-build-time relation
// storing mapping rows: one artist_credit x release x recording fact
// per row, indexed for the three access patterns the core needs —
// by artist_credit_id (materializer), by (release_id, recording_id)
// (result enrichment), and full scan (none, by design: the builder is
// the only writer).
package mapping

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/duckdb/duckdb-go/v2"

	"github.com/tomtom215/resolvd/internal/config"
	"github.com/tomtom215/resolvd/internal/logging"
	"github.com/tomtom215/resolvd/internal/model"
)

const schema = `
CREATE TABLE IF NOT EXISTS mapping_rows (
	artist_credit_id       UINTEGER NOT NULL,
	artist_mbids           VARCHAR,
	artist_credit_name     VARCHAR NOT NULL,
	artist_credit_sortname VARCHAR,
	release_id             UINTEGER NOT NULL,
	release_mbid           VARCHAR,
	release_name           VARCHAR,
	recording_id           UINTEGER NOT NULL,
	recording_mbid         VARCHAR,
	recording_name         VARCHAR,
	score                  DOUBLE NOT NULL,
	shard_ch               VARCHAR NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_mapping_artist ON mapping_rows (artist_credit_id);
CREATE INDEX IF NOT EXISTS idx_mapping_release_recording ON mapping_rows (release_id, recording_id);
`

// Store wraps a DuckDB connection holding the mapping relation. Many
// readers are safe after Build; the builder is the sole writer and
// only during build.
type Store struct {
	conn *sql.DB
	cfg  *config.DatabaseConfig
}

// Open creates the parent directory if needed, opens (or creates) the
// DuckDB file at cfg.Path and ensures the schema exists.
func Open(cfg *config.DatabaseConfig) (*Store, error) {
	dbDir := filepath.Dir(cfg.Path)
	if dbDir != "" && dbDir != "." {
		if err := os.MkdirAll(dbDir, 0o750); err != nil {
			return nil, fmt.Errorf("mapping: create database directory %s: %w", dbDir, err)
		}
	}

	threads := cfg.Threads
	if threads <= 0 {
		threads = 4
	}
	maxMemory := cfg.MaxMemory
	if maxMemory == "" {
		maxMemory = "2GB"
	}

	connStr := fmt.Sprintf("%s?access_mode=read_write&threads=%d&max_memory=%s", cfg.Path, threads, maxMemory)
	conn, err := sql.Open("duckdb", connStr)
	if err != nil {
		return nil, fmt.Errorf("mapping: open database: %w", err)
	}

	if _, err := conn.Exec(schema); err != nil {
		closeQuietly(conn)
		return nil, fmt.Errorf("mapping: create schema: %w", err)
	}

	return &Store{conn: conn, cfg: cfg}, nil
}

// Close releases the underlying connection.
func (s *Store) Close() error {
	if s.conn == nil {
		return nil
	}
	return s.conn.Close()
}

// InsertBatch inserts rows in a single transaction, matching the
// builder's every-~2,500-rows flush cadence. Empty batches are a no-op.
func (s *Store) InsertBatch(ctx context.Context, rows []model.MappingRow) error {
	if len(rows) == 0 {
		return nil
	}

	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("mapping: begin batch: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO mapping_rows (
			artist_credit_id, artist_mbids, artist_credit_name, artist_credit_sortname,
			release_id, release_mbid, release_name,
			recording_id, recording_mbid, recording_name,
			score, shard_ch
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("mapping: prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, r := range rows {
		_, err := stmt.ExecContext(ctx,
			uint32(r.ArtistCreditID), r.ArtistMbids, r.ArtistCreditName, r.ArtistCreditSortname,
			uint32(r.ReleaseID), string(r.ReleaseMbid), r.ReleaseName,
			uint32(r.RecordingID), string(r.RecordingMbid), r.RecordingName,
			r.Score, string(r.ShardCh),
		)
		if err != nil {
			return fmt.Errorf("mapping: insert row: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("mapping: commit batch: %w", err)
	}

	logging.Debug().Int("rows", len(rows)).Msg("mapping batch flushed")
	return nil
}

// SelectByArtist returns every mapping row for one artist, the input
// the materializer needs to build an artist-data bundle.
func (s *Store) SelectByArtist(ctx context.Context, id model.ArtistCreditID) ([]model.MappingRow, error) {
	rows, err := s.conn.QueryContext(ctx, `
		SELECT artist_credit_id, artist_mbids, artist_credit_name, artist_credit_sortname,
		       release_id, release_mbid, release_name,
		       recording_id, recording_mbid, recording_name,
		       score, shard_ch
		FROM mapping_rows WHERE artist_credit_id = ?
	`, uint32(id))
	if err != nil {
		return nil, fmt.Errorf("mapping: select by artist: %w", err)
	}
	defer rows.Close()
	return scanRows(rows)
}

// SelectByReleaseRecording returns the mapping rows matching a
// (release_id, recording_id) pair, used to join a shard worker's
// result back to full MBIDs and names.
func (s *Store) SelectByReleaseRecording(ctx context.Context, release model.ReleaseID, recording model.RecordingID) ([]model.MappingRow, error) {
	rows, err := s.conn.QueryContext(ctx, `
		SELECT artist_credit_id, artist_mbids, artist_credit_name, artist_credit_sortname,
		       release_id, release_mbid, release_name,
		       recording_id, recording_mbid, recording_name,
		       score, shard_ch
		FROM mapping_rows WHERE release_id = ? AND recording_id = ?
	`, uint32(release), uint32(recording))
	if err != nil {
		return nil, fmt.Errorf("mapping: select by release/recording: %w", err)
	}
	defer rows.Close()
	return scanRows(rows)
}

func scanRows(rows *sql.Rows) ([]model.MappingRow, error) {
	var out []model.MappingRow
	for rows.Next() {
		var r model.MappingRow
		var artistID, releaseID, recordingID uint32
		var releaseMbid, recordingMbid, shardCh string
		if err := rows.Scan(
			&artistID, &r.ArtistMbids, &r.ArtistCreditName, &r.ArtistCreditSortname,
			&releaseID, &releaseMbid, &r.ReleaseName,
			&recordingID, &recordingMbid, &r.RecordingName,
			&r.Score, &shardCh,
		); err != nil {
			return nil, fmt.Errorf("mapping: scan row: %w", err)
		}
		r.ArtistCreditID = model.ArtistCreditID(artistID)
		r.ReleaseID = model.ReleaseID(releaseID)
		r.RecordingID = model.RecordingID(recordingID)
		r.ReleaseMbid = model.Mbid(releaseMbid)
		r.RecordingMbid = model.Mbid(recordingMbid)
		if len([]rune(shardCh)) > 0 {
			r.ShardCh = model.ShardCh([]rune(shardCh)[0])
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("mapping: row iteration: %w", err)
	}
	return out, nil
}

func closeQuietly(closer interface{ Close() error }) {
	if closer != nil {
		_ = closer.Close() //nolint:errcheck // cleanup is best-effort
	}
}
