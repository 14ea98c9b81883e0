// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package fuzzyindex

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"

	"github.com/goccy/go-json"

	"github.com/tomtom215/resolvd/internal/model"
	"github.com/tomtom215/resolvd/internal/trie"
)

// magic identifies a fuzzyindex artifact file; version allows the
// on-disk layout to change without breaking round-trip compatibility
// detection.
const (
	magic         uint32 = 0x46495458 // "FITX"
	formatVersion uint32 = 1
)

// persistedVectorizer and persistedInvertedFile, together with the record
// payload, are the complete serializable state of an Index, split into
// the three artifacts the spec names: vectorizer (idf), inverted file
// (posting + norms + vectors), and record payload (records).
type persistedVectorizer struct {
	IDF map[string]float64 `json:"idf"`
}

type persistedInvertedFile struct {
	Posting map[string][]int `json:"posting"`
	Norms   []float64        `json:"norms"`
	Vectors []vector         `json:"vectors"`
}

// Save writes three artifacts under dir, named "<name>.vectorizer",
// "<name>.invertedfile" and "<name>.payload". Fails if the index has
// not been built.
func (idx *Index[T]) Save(dir, name string) error {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if !idx.built {
		return model.ErrIndexNotBuilt
	}

	if err := writeArtifact(filepath.Join(dir, name+".vectorizer"), persistedVectorizer{IDF: idx.idf}); err != nil {
		return fmt.Errorf("fuzzyindex: save vectorizer: %w", err)
	}
	invFile := persistedInvertedFile{Posting: idx.posting, Norms: idx.norms, Vectors: idx.vectors}
	if err := writeArtifact(filepath.Join(dir, name+".invertedfile"), invFile); err != nil {
		return fmt.Errorf("fuzzyindex: save inverted file: %w", err)
	}
	if err := writeArtifact(filepath.Join(dir, name+".payload"), idx.records); err != nil {
		return fmt.Errorf("fuzzyindex: save payload: %w", err)
	}
	return nil
}

// Load reverses Save, replacing any prior state. Returns (false, nil)
// if the artifacts are not present so the caller can decide whether
// that is an error.
func (idx *Index[T]) Load(dir, name string) (bool, error) {
	vecPath := filepath.Join(dir, name+".vectorizer")
	if _, err := os.Stat(vecPath); os.IsNotExist(err) {
		return false, nil
	}

	var vec persistedVectorizer
	if err := readArtifact(vecPath, &vec); err != nil {
		return false, fmt.Errorf("fuzzyindex: load vectorizer: %w", err)
	}

	var invFile persistedInvertedFile
	if err := readArtifact(filepath.Join(dir, name+".invertedfile"), &invFile); err != nil {
		return false, fmt.Errorf("fuzzyindex: load inverted file: %w", err)
	}

	var records []T
	if err := readArtifact(filepath.Join(dir, name+".payload"), &records); err != nil {
		return false, fmt.Errorf("fuzzyindex: load payload: %w", err)
	}

	exact := trie.NewTrie[int]()
	for i, r := range records {
		exact.InsertWithData(idx.textOf(r), i)
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.idf = vec.IDF
	idx.posting = invFile.Posting
	idx.norms = invFile.Norms
	idx.vectors = invFile.Vectors
	idx.records = records
	idx.exact = exact
	idx.built = true
	return true, nil
}

// writeArtifact encodes v as JSON and frames it with a magic number,
// format version and length prefix so a reader can validate the file
// before attempting to decode its body.
func writeArtifact(path string, v interface{}) error {
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create: %w", err)
	}
	defer f.Close()

	header := make([]byte, 12)
	binary.BigEndian.PutUint32(header[0:4], magic)
	binary.BigEndian.PutUint32(header[4:8], formatVersion)
	binary.BigEndian.PutUint32(header[8:12], uint32(len(body)))

	if _, err := f.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	if _, err := f.Write(body); err != nil {
		return fmt.Errorf("write body: %w", err)
	}
	return nil
}

// readArtifact validates the framing header and decodes the body into v.
func readArtifact(path string, v interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read: %w", err)
	}
	if len(data) < 12 {
		return fmt.Errorf("truncated artifact: %s", path)
	}

	gotMagic := binary.BigEndian.Uint32(data[0:4])
	if gotMagic != magic {
		return fmt.Errorf("bad magic in %s: got %x want %x", path, gotMagic, magic)
	}
	gotVersion := binary.BigEndian.Uint32(data[4:8])
	if gotVersion != formatVersion {
		return fmt.Errorf("unsupported format version %d in %s", gotVersion, path)
	}
	length := binary.BigEndian.Uint32(data[8:12])
	body := data[12:]
	if uint32(len(body)) != length {
		return fmt.Errorf("length mismatch in %s: header says %d, got %d", path, length, len(body))
	}

	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	return nil
}
