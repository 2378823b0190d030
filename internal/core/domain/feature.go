package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// GeometryKind identifies the geometry of a raw feature.
type GeometryKind string

const (
	GeometryPoint      GeometryKind = "Point"
	GeometryLineString GeometryKind = "LineString"
	GeometryPolygon    GeometryKind = "Polygon"
)

// Tag is a single key/value pair from a feature's properties.
type Tag struct {
	Key   string
	Value string
}

// Tags is an immutable mapping from tag key to value that remembers the
// order in which pairs were encountered during parse.
type Tags struct {
	pairs []Tag
	index map[string]int
}

// NewTags builds a Tags mapping from ordered pairs. Later duplicates of a
// key overwrite the value but keep the first position.
func NewTags(pairs []Tag) Tags {
	t := Tags{index: make(map[string]int, len(pairs))}
	for _, p := range pairs {
		if i, ok := t.index[p.Key]; ok {
			t.pairs[i].Value = p.Value
			continue
		}
		t.index[p.Key] = len(t.pairs)
		t.pairs = append(t.pairs, p)
	}
	return t
}

// Get returns the value for key and whether it is present.
func (t Tags) Get(key string) (string, bool) {
	i, ok := t.index[key]
	if !ok {
		return "", false
	}
	return t.pairs[i].Value, true
}

// Has reports whether key is present.
func (t Tags) Has(key string) bool {
	_, ok := t.index[key]
	return ok
}

// Is reports whether key is present with exactly the given value.
func (t Tags) Is(key, value string) bool {
	v, ok := t.Get(key)
	return ok && v == value
}

// Len returns the number of distinct keys.
func (t Tags) Len() int { return len(t.pairs) }

// Each visits every pair in encounter order.
func (t Tags) Each(fn func(key, value string)) {
	for _, p := range t.pairs {
		fn(p.Key, p.Value)
	}
}

// FeatureID is the stable identifier of a source feature, e.g. "way/1234".
type FeatureID struct {
	Kind string
	Ref  int64
}

// GeographicFeature is one raw record from the upstream filtered extract.
// Coords is a flat lon/lat pair sequence; it is never mutated after parse.
type GeographicFeature struct {
	ID     *FeatureID
	Kind   GeometryKind
	Coords []float64
	Tags   Tags
}

// PointCount returns the number of coordinate pairs.
func (f *GeographicFeature) PointCount() int { return len(f.Coords) / 2 }

// Lon returns the longitude of vertex i.
func (f *GeographicFeature) Lon(i int) float64 { return f.Coords[2*i] }

// Lat returns the latitude of vertex i.
func (f *GeographicFeature) Lat(i int) float64 { return f.Coords[2*i+1] }

// Closed reports whether the first and last vertices coincide.
func (f *GeographicFeature) Closed() bool {
	n := f.PointCount()
	if n < 3 {
		return false
	}
	return f.Lon(0) == f.Lon(n-1) && f.Lat(0) == f.Lat(n-1)
}

type rawGeometry struct {
	Type        string          `json:"type"`
	Coordinates json.RawMessage `json:"coordinates"`
}

type rawFeature struct {
	ID         string          `json:"id"`
	Geometry   rawGeometry     `json:"geometry"`
	Properties json.RawMessage `json:"properties"`
}

// ParseFeature decodes one NDJSON line into a GeographicFeature.
func ParseFeature(line []byte) (*GeographicFeature, error) {
	var raw rawFeature
	if err := json.Unmarshal(line, &raw); err != nil {
		return nil, fmt.Errorf("parse feature: %w", err)
	}

	f := &GeographicFeature{Kind: GeometryKind(raw.Geometry.Type)}

	switch f.Kind {
	case GeometryPoint:
		var pt [2]float64
		if err := json.Unmarshal(raw.Geometry.Coordinates, &pt); err != nil {
			return nil, fmt.Errorf("parse point coordinates: %w", err)
		}
		f.Coords = []float64{pt[0], pt[1]}
	case GeometryLineString:
		var pts [][2]float64
		if err := json.Unmarshal(raw.Geometry.Coordinates, &pts); err != nil {
			return nil, fmt.Errorf("parse line coordinates: %w", err)
		}
		f.Coords = flatten(pts)
	case GeometryPolygon:
		var rings [][][2]float64
		if err := json.Unmarshal(raw.Geometry.Coordinates, &rings); err != nil {
			return nil, fmt.Errorf("parse polygon coordinates: %w", err)
		}
		if len(rings) == 0 {
			return nil, fmt.Errorf("polygon without rings")
		}
		// Outer ring only; interior rings carry no classification signal.
		f.Coords = flatten(rings[0])
		if !f.Closed() {
			return nil, fmt.Errorf("polygon outer ring not closed")
		}
	default:
		return nil, fmt.Errorf("unsupported geometry type %q", raw.Geometry.Type)
	}

	if len(raw.Properties) > 0 && !bytes.Equal(raw.Properties, []byte("null")) {
		tags, err := parseOrderedProperties(raw.Properties)
		if err != nil {
			return nil, err
		}
		f.Tags = tags
	} else {
		f.Tags = NewTags(nil)
	}

	if raw.ID != "" {
		f.ID = parseFeatureID(raw.ID)
	}

	return f, nil
}

func flatten(pts [][2]float64) []float64 {
	out := make([]float64, 0, 2*len(pts))
	for _, p := range pts {
		out = append(out, p[0], p[1])
	}
	return out
}

// parseOrderedProperties walks the JSON object token stream so that tag
// encounter order survives decoding. A plain map would scramble it.
func parseOrderedProperties(data []byte) (Tags, error) {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return Tags{}, fmt.Errorf("parse properties: %w", err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return Tags{}, fmt.Errorf("properties is not an object")
	}

	var pairs []Tag
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return Tags{}, fmt.Errorf("parse properties key: %w", err)
		}
		key := keyTok.(string)

		valTok, err := dec.Token()
		if err != nil {
			return Tags{}, fmt.Errorf("parse properties value: %w", err)
		}
		switch v := valTok.(type) {
		case string:
			pairs = append(pairs, Tag{Key: key, Value: v})
		case float64:
			pairs = append(pairs, Tag{Key: key, Value: strconv.FormatFloat(v, 'f', -1, 64)})
		case bool:
			pairs = append(pairs, Tag{Key: key, Value: strconv.FormatBool(v)})
		case nil:
			// Skip null values.
		default:
			return Tags{}, fmt.Errorf("properties value for %q is not scalar", key)
		}
	}

	return NewTags(pairs), nil
}

func parseFeatureID(id string) *FeatureID {
	kind, ref, ok := strings.Cut(id, "/")
	if !ok {
		return nil
	}
	n, err := strconv.ParseInt(ref, 10, 64)
	if err != nil {
		return nil
	}
	return &FeatureID{Kind: kind, Ref: n}
}
