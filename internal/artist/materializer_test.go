// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package artist

import (
	"context"
	"testing"

	"github.com/tomtom215/resolvd/internal/model"
)

type fakeSource struct {
	rows map[model.ArtistCreditID][]model.MappingRow
}

func (f *fakeSource) SelectByArtist(ctx context.Context, id model.ArtistCreditID) ([]model.MappingRow, error) {
	return f.rows[id], nil
}

func portisheadRows() []model.MappingRow {
	return []model.MappingRow{
		{ArtistCreditID: 1, ReleaseID: 10, ReleaseName: "Dummy", RecordingID: 100, RecordingName: "Strangers", Score: 0.9},
		{ArtistCreditID: 1, ReleaseID: 10, ReleaseName: "Dummy", RecordingID: 101, RecordingName: "Sour Times", Score: 0.7},
		{ArtistCreditID: 1, ReleaseID: 11, ReleaseName: "Third", RecordingID: 102, RecordingName: "Machine Gun", Score: 0.8},
	}
}

func TestMaterializeBuildsBundle(t *testing.T) {
	src := &fakeSource{rows: map[model.ArtistCreditID][]model.MappingRow{1: portisheadRows()}}

	bundle, err := Materialize(context.Background(), src, 1)
	if err != nil {
		t.Fatalf("Materialize failed: %v", err)
	}
	if bundle.Empty {
		t.Fatal("expected non-empty bundle")
	}
	if len(bundle.RecordingData) != 3 {
		t.Errorf("expected 3 recording buckets, got %d", len(bundle.RecordingData))
	}
	if len(bundle.ReleaseData) != 2 {
		t.Errorf("expected 2 release buckets, got %d", len(bundle.ReleaseData))
	}
	if bundle.RecordingIndex == nil || !bundle.RecordingIndex.Built() {
		t.Error("expected recording index to be built")
	}
	if bundle.ReleaseIndex == nil || !bundle.ReleaseIndex.Built() {
		t.Error("expected release index to be built")
	}

	if _, ok := bundle.RecordingReleases[100][10]; !ok {
		t.Error("expected recording 100 to co-occur with release 10")
	}
}

func TestMaterializeEmptyArtistSentinel(t *testing.T) {
	src := &fakeSource{rows: map[model.ArtistCreditID][]model.MappingRow{}}

	bundle, err := Materialize(context.Background(), src, 999)
	if err != nil {
		t.Fatalf("Materialize failed: %v", err)
	}
	if !bundle.Empty {
		t.Error("expected empty-artist sentinel for an artist with no rows")
	}
}

func TestMaterializeDedupesReleaseData(t *testing.T) {
	rows := []model.MappingRow{
		{ArtistCreditID: 2, ReleaseID: 20, ReleaseName: "Same Album", RecordingID: 200, RecordingName: "Track One", Score: 0.5},
		{ArtistCreditID: 2, ReleaseID: 20, ReleaseName: "Same Album", RecordingID: 201, RecordingName: "Track Two", Score: 0.6},
	}
	src := &fakeSource{rows: map[model.ArtistCreditID][]model.MappingRow{2: rows}}

	bundle, err := Materialize(context.Background(), src, 2)
	if err != nil {
		t.Fatalf("Materialize failed: %v", err)
	}
	if len(bundle.ReleaseData) != 1 {
		t.Fatalf("expected release rows to dedupe to 1 bucket, got %d", len(bundle.ReleaseData))
	}
	if len(bundle.ReleaseData[0].Rows) != 1 {
		t.Errorf("expected deduped (text,id) pair, got %d rows", len(bundle.ReleaseData[0].Rows))
	}
}
