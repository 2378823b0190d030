package usecases_test

import (
	"bytes"
	"encoding/json"
	"io"
	"testing"

	"github.com/geowork/roadpack/internal/core/domain"
	"github.com/geowork/roadpack/internal/core/usecases"
)

// memorySink is an in-memory stand-in for a scratch file sink.
type memorySink struct {
	buf    bytes.Buffer
	count  int
	closed bool
}

func (s *memorySink) Append(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if s.count > 0 {
		s.buf.WriteByte(',')
	}
	s.buf.Write(data)
	s.count++
	return nil
}

func (s *memorySink) Count() int { return s.count }

func (s *memorySink) Stream(w io.Writer) error {
	_, err := io.Copy(w, bytes.NewReader(s.buf.Bytes()))
	return err
}

func (s *memorySink) Close() error {
	s.closed = true
	return nil
}

func TestAccumulator_RoutesByCategory(t *testing.T) {
	surfaces := &memorySink{}
	ways := &memorySink{}
	acc := usecases.NewAccumulator(surfaces, ways)

	records := []domain.Record{
		domain.TrafficCalmingRecord{Lat: 43.0, Lon: -2.0, Type: domain.CalmingSpeedBump},
		domain.RoundaboutRecord{Lat: 43.1, Lon: -2.1, Radius: 12, Type: domain.RoundaboutStandard},
		domain.RoadSurfaceRecord{Surface: "asphalt", Coords: []float64{-2.0, 43.0, -2.1, 43.1}},
		domain.RoadWayRecord{Highway: "residential", Coords: []float64{-2.0, 43.0, -2.1, 43.1}},
		domain.TrafficCalmingRecord{Lat: 43.2, Lon: -2.2, Type: domain.CalmingDip},
	}
	for _, rec := range records {
		if err := acc.Add(rec); err != nil {
			t.Fatalf("add: %v", err)
		}
	}

	if got := acc.TrafficCalming(); len(got) != 2 {
		t.Errorf("expected 2 calming records, got %d", len(got))
	}
	if got := acc.Roundabouts(); len(got) != 1 {
		t.Errorf("expected 1 roundabout, got %d", len(got))
	}
	if surfaces.count != 1 || ways.count != 1 {
		t.Errorf("expected one spilled record per heavy sink, got %d and %d", surfaces.count, ways.count)
	}
}

func TestAccumulator_PreservesEncounterOrder(t *testing.T) {
	acc := usecases.NewAccumulator(&memorySink{}, &memorySink{})
	for _, typ := range []string{domain.CalmingSpeedBump, domain.CalmingDip, domain.CalmingSpeedCamera} {
		if err := acc.Add(domain.TrafficCalmingRecord{Type: typ}); err != nil {
			t.Fatalf("add: %v", err)
		}
	}
	got := acc.TrafficCalming()
	want := []string{domain.CalmingSpeedBump, domain.CalmingDip, domain.CalmingSpeedCamera}
	for i, typ := range want {
		if got[i].Type != typ {
			t.Fatalf("expected order %v, got %+v", want, got)
		}
	}
}

func TestAccumulator_EmptyCategoriesAreNotNil(t *testing.T) {
	acc := usecases.NewAccumulator(&memorySink{}, &memorySink{})
	// Empty core arrays must still serialize as [] rather than null.
	if acc.TrafficCalming() == nil || acc.Roundabouts() == nil {
		t.Error("expected initialized empty slices")
	}
	data, err := json.Marshal(acc.TrafficCalming())
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "[]" {
		t.Errorf("expected [], got %s", data)
	}
}

func TestAccumulator_Counts(t *testing.T) {
	acc := usecases.NewAccumulator(&memorySink{}, &memorySink{})
	_ = acc.Add(domain.TrafficCalmingRecord{Type: domain.CalmingSpeedBump})
	_ = acc.Add(domain.RoadWayRecord{Highway: "service", Coords: []float64{0, 0, 1, 1}})
	_ = acc.Add(domain.RoadWayRecord{Highway: "primary", Coords: []float64{0, 0, 1, 1}})

	counts := acc.Counts()
	if counts["trafficCalming"] != 1 || counts["roundabouts"] != 0 ||
		counts["roadSurfaces"] != 0 || counts["roadWays"] != 2 {
		t.Errorf("unexpected counts %v", counts)
	}
}
