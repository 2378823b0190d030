package bundle_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/gzip"

	"github.com/geowork/roadpack/internal/adapters/bundle"
	"github.com/geowork/roadpack/internal/core/domain"
)

const testDocument = `{"version":"2026-08-23","region":"bizkaia",` +
	`"trafficCalming":[{"lat":43.26,"lon":-2.93,"type":"speed_bump"}],` +
	`"roundabouts":[{"lat":43.27,"lon":-2.94,"radius":15,"type":"roundabout"}],` +
	`"roadSurfaces":[{"surface":"asphalt","coords":[-2.93,43.26,-2.94,43.27]},{"surface":"gravel","coords":[-2.95,43.28,-2.96,43.29]}],` +
	`"roadWays":[{"highway":"residential","coords":[-2.93,43.26,-2.94,43.27]}]}`

func writeTestBundle(t *testing.T, dir, name, doc string) string {
	t.Helper()
	w, err := bundle.Factory{}.Create(dir, name)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := w.Write([]byte(doc)); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	return filepath.Join(dir, name)
}

func TestWriter_ProducesValidGzip(t *testing.T) {
	dir := t.TempDir()
	path := writeTestBundle(t, dir, "bizkaia.json.gz", testDocument)

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	gz, err := gzip.NewReader(f)
	if err != nil {
		t.Fatalf("expected gzip payload: %v", err)
	}
	gz.Close()
}

func TestWriter_AbortRemovesPartialFile(t *testing.T) {
	dir := t.TempDir()
	w, err := bundle.Factory{}.Create(dir, "partial.json.gz")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := w.Write([]byte(`{"version":`)); err != nil {
		t.Fatalf("write: %v", err)
	}
	w.Abort()

	if _, err := os.Stat(filepath.Join(dir, "partial.json.gz")); !os.IsNotExist(err) {
		t.Errorf("expected aborted file removed, stat err = %v", err)
	}
}

func TestReader_Read(t *testing.T) {
	dir := t.TempDir()
	path := writeTestBundle(t, dir, "bizkaia.json.gz", testDocument)

	doc, err := bundle.Reader{}.Read(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if doc.Version != "2026-08-23" || doc.Region != "bizkaia" {
		t.Errorf("bad envelope: %+v", doc)
	}
	if len(doc.TrafficCalming) != 1 || doc.TrafficCalming[0].Type != "speed_bump" {
		t.Errorf("bad trafficCalming: %+v", doc.TrafficCalming)
	}
	if doc.RoadSurfaces == nil || len(*doc.RoadSurfaces) != 2 {
		t.Errorf("bad roadSurfaces: %+v", doc.RoadSurfaces)
	}
}

func TestReader_ReadCoreSkipsHeavyArrays(t *testing.T) {
	dir := t.TempDir()
	path := writeTestBundle(t, dir, "bizkaia.json.gz", testDocument)

	doc, err := bundle.Reader{}.ReadCore(path)
	if err != nil {
		t.Fatalf("read core: %v", err)
	}
	if doc.Version != "2026-08-23" || doc.Region != "bizkaia" {
		t.Errorf("bad envelope: %+v", doc)
	}
	if len(doc.TrafficCalming) != 1 || len(doc.Roundabouts) != 1 {
		t.Errorf("core arrays not decoded: %+v", doc)
	}
	if !doc.HasSurfaces || !doc.HasWays {
		t.Error("expected heavy arrays noted as present")
	}
}

func TestReader_ReadCoreWithoutHeavyArrays(t *testing.T) {
	dir := t.TempDir()
	doc := `{"version":"2026-08-23","region":"araba","trafficCalming":[],"roundabouts":[]}`
	path := writeTestBundle(t, dir, "araba.json.gz", doc)

	core, err := bundle.Reader{}.ReadCore(path)
	if err != nil {
		t.Fatalf("read core: %v", err)
	}
	if core.HasSurfaces || core.HasWays {
		t.Error("expected heavy arrays noted as absent")
	}
	if core.TrafficCalming == nil || len(core.TrafficCalming) != 0 {
		t.Errorf("expected empty core array, got %+v", core.TrafficCalming)
	}
}

func TestReader_EachSurface(t *testing.T) {
	dir := t.TempDir()
	path := writeTestBundle(t, dir, "bizkaia.json.gz", testDocument)

	var surfaces []string
	err := bundle.Reader{}.EachSurface(path, func(rec domain.RoadSurfaceRecord) error {
		surfaces = append(surfaces, rec.Surface)
		return nil
	})
	if err != nil {
		t.Fatalf("each surface: %v", err)
	}
	if len(surfaces) != 2 || surfaces[0] != "asphalt" || surfaces[1] != "gravel" {
		t.Errorf("unexpected surfaces %v", surfaces)
	}
}

func TestReader_EachWay(t *testing.T) {
	dir := t.TempDir()
	path := writeTestBundle(t, dir, "bizkaia.json.gz", testDocument)

	var count int
	err := bundle.Reader{}.EachWay(path, func(rec domain.RoadWayRecord) error {
		count++
		if rec.Highway != "residential" || len(rec.Coords) != 4 {
			t.Errorf("unexpected record %+v", rec)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("each way: %v", err)
	}
	if count != 1 {
		t.Errorf("expected 1 way, got %d", count)
	}
}

func TestReader_EachSurfaceMissingArray(t *testing.T) {
	dir := t.TempDir()
	doc := `{"version":"2026-08-23","region":"araba","trafficCalming":[],"roundabouts":[]}`
	path := writeTestBundle(t, dir, "araba.json.gz", doc)

	called := false
	err := bundle.Reader{}.EachSurface(path, func(domain.RoadSurfaceRecord) error {
		called = true
		return nil
	})
	if err != nil {
		t.Fatalf("each surface: %v", err)
	}
	if called {
		t.Error("expected no calls for a bundle without the array")
	}
}

func TestReader_MissingFile(t *testing.T) {
	if _, err := (bundle.Reader{}).Read(filepath.Join(t.TempDir(), "nope.json.gz")); err == nil {
		t.Error("expected error for a missing bundle")
	}
}

func TestReader_CorruptPayload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "broken.json.gz")
	if err := os.WriteFile(path, []byte("this is not gzip"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := (bundle.Reader{}).Read(path); err == nil {
		t.Error("expected error for a corrupt bundle")
	}
}
