package spill_test

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/geowork/roadpack/internal/adapters/spill"
	"github.com/geowork/roadpack/internal/core/domain"
)

func TestFileSink_AppendAndStream(t *testing.T) {
	factory := spill.Factory{Dir: t.TempDir()}
	sink, err := factory.Open("bizkaia", domain.CategoryRoadSurface)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer sink.Close()

	records := []domain.RoadSurfaceRecord{
		{Surface: "asphalt", Coords: []float64{-2.0, 43.0, -2.1, 43.1}},
		{Surface: "gravel", Coords: []float64{-2.2, 43.2, -2.3, 43.3}},
		{Surface: "unknown", Coords: []float64{-2.4, 43.4, -2.5, 43.5}},
	}
	for _, rec := range records {
		if err := sink.Append(rec); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	if sink.Count() != 3 {
		t.Errorf("expected count 3, got %d", sink.Count())
	}

	var buf bytes.Buffer
	if err := sink.Stream(&buf); err != nil {
		t.Fatalf("stream: %v", err)
	}

	// The streamed interior wrapped in brackets must be a valid JSON array
	// matching what was appended.
	var got []domain.RoadSurfaceRecord
	if err := json.Unmarshal([]byte("["+buf.String()+"]"), &got); err != nil {
		t.Fatalf("streamed interior is not a valid array interior: %v", err)
	}
	if len(got) != len(records) {
		t.Fatalf("expected %d records, got %d", len(records), len(got))
	}
	for i := range records {
		if got[i].Surface != records[i].Surface {
			t.Errorf("record %d: expected %q, got %q", i, records[i].Surface, got[i].Surface)
		}
	}
}

func TestFileSink_EmptyStream(t *testing.T) {
	factory := spill.Factory{Dir: t.TempDir()}
	sink, err := factory.Open("araba", domain.CategoryRoadWay)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer sink.Close()

	var buf bytes.Buffer
	if err := sink.Stream(&buf); err != nil {
		t.Fatalf("stream: %v", err)
	}
	if buf.Len() != 0 {
		t.Errorf("expected empty interior, got %q", buf.String())
	}
}

func TestFileSink_CloseRemovesFile(t *testing.T) {
	dir := t.TempDir()
	factory := spill.Factory{Dir: dir}
	sink, err := factory.Open("gipuzkoa", domain.CategoryRoadSurface)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := sink.Append(domain.RoadSurfaceRecord{Surface: "paved"}); err != nil {
		t.Fatalf("append: %v", err)
	}

	path := filepath.Join(dir, "roadpack-gipuzkoa-roadSurfaces.spill")
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected scratch file at %s: %v", path, err)
	}

	if err := sink.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("expected scratch file removed, stat err = %v", err)
	}

	// Closing again is a no-op.
	if err := sink.Close(); err != nil {
		t.Errorf("second close: %v", err)
	}
}

func TestFileSink_AppendAfterClose(t *testing.T) {
	factory := spill.Factory{Dir: t.TempDir()}
	sink, err := factory.Open("nafarroa", domain.CategoryRoadWay)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := sink.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := sink.Append(domain.RoadWayRecord{Highway: "service"}); err == nil {
		t.Error("expected error appending to a closed sink")
	}
}

func TestFactory_RejectsInMemoryCategories(t *testing.T) {
	factory := spill.Factory{Dir: t.TempDir()}
	for _, category := range []domain.Category{domain.CategoryTrafficCalming, domain.CategoryRoundabout} {
		if _, err := factory.Open("bizkaia", category); err == nil {
			t.Errorf("%s: expected error, the category is not spilled", category)
		}
	}
}

func TestFactory_TruncatesStaleFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "roadpack-bizkaia-roadWays.spill")
	if err := os.WriteFile(path, []byte("leftover from a crashed run"), 0o644); err != nil {
		t.Fatal(err)
	}

	factory := spill.Factory{Dir: dir}
	sink, err := factory.Open("bizkaia", domain.CategoryRoadWay)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer sink.Close()

	var buf bytes.Buffer
	if err := sink.Stream(&buf); err != nil {
		t.Fatalf("stream: %v", err)
	}
	if buf.Len() != 0 {
		t.Errorf("expected truncated sink, got %q", buf.String())
	}
}
