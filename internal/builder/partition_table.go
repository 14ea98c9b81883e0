// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package builder

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"

	"github.com/goccy/go-json"

	"github.com/tomtom215/resolvd/internal/model"
)

// partitionTableName is the shard_table artifact's filename under
// index_dir (§6). The source stores this as a pickled object; per §9's
// design note, this implementation uses the same small versioned binary
// framing as internal/fuzzyindex's persisted artifacts instead.
const partitionTableName = "shard_table"

const (
	partitionMagic   uint32 = 0x53485244 // "SHRD"
	partitionVersion uint32 = 1
)

// writePartitionTable persists entries under dir/shard_table.
func writePartitionTable(dir string, entries []model.PartitionEntry) error {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("create index dir: %w", err)
	}

	body, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("marshal partition table: %w", err)
	}

	header := make([]byte, 8)
	binary.BigEndian.PutUint32(header[0:4], partitionMagic)
	binary.BigEndian.PutUint32(header[4:8], partitionVersion)

	path := filepath.Join(dir, partitionTableName)
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	if _, err := f.Write(header); err != nil {
		return fmt.Errorf("write %s header: %w", path, err)
	}
	if _, err := f.Write(body); err != nil {
		return fmt.Errorf("write %s body: %w", path, err)
	}
	return nil
}

// ReadPartitionTable loads a shard partition table previously written by
// Build. Exported so internal/shard can read it at router startup.
func ReadPartitionTable(dir string) ([]model.PartitionEntry, error) {
	path := filepath.Join(dir, partitionTableName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if len(data) < 8 {
		return nil, fmt.Errorf("truncated partition table: %s", path)
	}
	if got := binary.BigEndian.Uint32(data[0:4]); got != partitionMagic {
		return nil, fmt.Errorf("bad magic in %s: got %x want %x", path, got, partitionMagic)
	}
	if got := binary.BigEndian.Uint32(data[4:8]); got != partitionVersion {
		return nil, fmt.Errorf("unsupported partition table version %d in %s", got, path)
	}

	var entries []model.PartitionEntry
	if err := json.Unmarshal(data[8:], &entries); err != nil {
		return nil, fmt.Errorf("unmarshal partition table: %w", err)
	}
	return entries, nil
}
