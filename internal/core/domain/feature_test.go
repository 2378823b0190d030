package domain_test

import (
	"testing"

	"github.com/geowork/roadpack/internal/core/domain"
)

func TestParseFeature_Point(t *testing.T) {
	line := []byte(`{"id":"node/42","geometry":{"type":"Point","coordinates":[-2.935,43.263]},"properties":{"traffic_calming":"hump"}}`)

	f, err := domain.ParseFeature(line)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.Kind != domain.GeometryPoint {
		t.Errorf("expected Point, got %s", f.Kind)
	}
	if f.PointCount() != 1 || f.Lon(0) != -2.935 || f.Lat(0) != 43.263 {
		t.Errorf("bad coordinates: %v", f.Coords)
	}
	if v, ok := f.Tags.Get("traffic_calming"); !ok || v != "hump" {
		t.Errorf("expected traffic_calming=hump, got %q", v)
	}
	if f.ID == nil || f.ID.Kind != "node" || f.ID.Ref != 42 {
		t.Errorf("bad feature id: %+v", f.ID)
	}
}

func TestParseFeature_LineString(t *testing.T) {
	line := []byte(`{"geometry":{"type":"LineString","coordinates":[[-2.0,43.0],[-2.1,43.1],[-2.2,43.2]]},"properties":{"highway":"residential"}}`)

	f, err := domain.ParseFeature(line)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.PointCount() != 3 {
		t.Fatalf("expected 3 points, got %d", f.PointCount())
	}
	if f.Lat(2) != 43.2 || f.Lon(2) != -2.2 {
		t.Errorf("bad last vertex: %v", f.Coords)
	}
	if f.ID != nil {
		t.Errorf("expected no id, got %+v", f.ID)
	}
}

func TestParseFeature_PolygonOuterRing(t *testing.T) {
	line := []byte(`{"geometry":{"type":"Polygon","coordinates":[[[-2.0,43.0],[-2.0,43.1],[-2.1,43.1],[-2.0,43.0]]]},"properties":{"junction":"roundabout"}}`)

	f, err := domain.ParseFeature(line)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.Kind != domain.GeometryPolygon || f.PointCount() != 4 {
		t.Fatalf("expected 4-vertex polygon, got %d of %s", f.PointCount(), f.Kind)
	}
	if !f.Closed() {
		t.Error("outer ring should be closed")
	}
}

func TestParseFeature_TagOrderPreserved(t *testing.T) {
	line := []byte(`{"geometry":{"type":"Point","coordinates":[0,0]},"properties":{"zulu":"1","alpha":"2","mike":"3"}}`)

	f, err := domain.ParseFeature(line)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var keys []string
	f.Tags.Each(func(k, v string) { keys = append(keys, k) })
	want := []string{"zulu", "alpha", "mike"}
	for i, k := range want {
		if keys[i] != k {
			t.Fatalf("expected key order %v, got %v", want, keys)
		}
	}
}

func TestParseFeature_NumericAndBoolProperties(t *testing.T) {
	line := []byte(`{"geometry":{"type":"Point","coordinates":[0,0]},"properties":{"maxspeed":30,"oneway":true,"note":null}}`)

	f, err := domain.ParseFeature(line)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v, _ := f.Tags.Get("maxspeed"); v != "30" {
		t.Errorf("expected maxspeed=30, got %q", v)
	}
	if v, _ := f.Tags.Get("oneway"); v != "true" {
		t.Errorf("expected oneway=true, got %q", v)
	}
	if f.Tags.Has("note") {
		t.Error("null property should be skipped")
	}
}

func TestParseFeature_Malformed(t *testing.T) {
	cases := [][]byte{
		[]byte(`{not json`),
		[]byte(`{"geometry":{"type":"MultiPoint","coordinates":[[0,0]]}}`),
		[]byte(`{"geometry":{"type":"Point","coordinates":"oops"}}`),
		[]byte(`{"geometry":{"type":"Polygon","coordinates":[]}}`),
		[]byte(`{"geometry":{"type":"Polygon","coordinates":[[[-2.0,43.0],[-2.0,43.1],[-2.1,43.1]]]}}`),
	}
	for _, line := range cases {
		if _, err := domain.ParseFeature(line); err == nil {
			t.Errorf("expected error for %s", line)
		}
	}
}

func TestParseFeature_UnparsableIDIgnored(t *testing.T) {
	line := []byte(`{"id":"whatever","geometry":{"type":"Point","coordinates":[0,0]},"properties":{}}`)
	f, err := domain.ParseFeature(line)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.ID != nil {
		t.Errorf("expected nil id, got %+v", f.ID)
	}
}

func TestTags_DuplicateKeyKeepsFirstPosition(t *testing.T) {
	tags := domain.NewTags([]domain.Tag{
		{Key: "surface", Value: "asphalt"},
		{Key: "highway", Value: "residential"},
		{Key: "surface", Value: "gravel"},
	})
	if tags.Len() != 2 {
		t.Fatalf("expected 2 keys, got %d", tags.Len())
	}
	if v, _ := tags.Get("surface"); v != "gravel" {
		t.Errorf("expected later value to win, got %q", v)
	}
}
