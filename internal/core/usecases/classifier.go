package usecases

import (
	"github.com/geowork/roadpack/internal/core/domain"
	"github.com/geowork/roadpack/internal/pkg/geospatial"
)

// calmingTypes maps recognized traffic_calming tag values to their output
// category, collapsing synonyms. Values outside this table produce no
// record at all.
var calmingTypes = map[string]string{
	"bump":         domain.CalmingSpeedBump,
	"hump":         domain.CalmingSpeedBump,
	"table":        domain.CalmingSpeedBump,
	"cushion":      domain.CalmingSpeedBump,
	"dynamic_bump": domain.CalmingSpeedBump,
	"dip":          domain.CalmingDip,
	"double_dip":   domain.CalmingDip,
	"chicane":      "chicane",
	"choker":       "choker",
	"island":       "island",
	"rumble_strip": "rumble_strip",
}

// surfaceCategories maps raw surface tag values to the fixed normalized
// vocabulary. Anything unmapped becomes "unknown", never dropped.
var surfaceCategories = map[string]string{
	"asphalt":          "asphalt",
	"chipseal":         "asphalt",
	"concrete":         "concrete",
	"concrete:plates":  "concrete",
	"concrete:lanes":   "concrete",
	"paved":            "paved",
	"metal":            "paved",
	"wood":             "paved",
	"cobblestone":      "cobblestone",
	"sett":             "cobblestone",
	"unhewn_cobblestone": "cobblestone",
	"paving_stones":    "cobblestone",
	"gravel":           "gravel",
	"fine_gravel":      "gravel",
	"pebblestone":      "gravel",
	"compacted":        "compacted",
	"dirt":             "dirt",
	"earth":            "dirt",
	"ground":           "dirt",
	"mud":              "dirt",
	"grass":            "grass",
	"grass_paver":      "grass",
	"unpaved":          "unpaved",
	"sand":             "unpaved",
}

// SurfaceUnknown is the fallback category for unrecognized surface values.
const SurfaceUnknown = "unknown"

// roadHighways is the set of highway classifications kept as road-way
// records, at full vertex density.
var roadHighways = map[string]bool{
	"primary":        true,
	"primary_link":   true,
	"secondary":      true,
	"secondary_link": true,
	"tertiary":       true,
	"tertiary_link":  true,
	"residential":    true,
	"unclassified":   true,
	"living_street":  true,
	"service":        true,
}

// calmingTagKeys is the allow-list of tags carried on a traffic-calming
// record when present on the source feature.
var calmingTagKeys = []string{"name", "maxspeed", "surface", "highway", "ref"}

// NormalizeSurface maps a raw surface tag value into the fixed vocabulary.
func NormalizeSurface(raw string) string {
	if cat, ok := surfaceCategories[raw]; ok {
		return cat
	}
	return SurfaceUnknown
}

// Classify maps one geographic feature to zero or more typed records. The
// rules are independent predicates over the tag mapping, so one feature
// can land in several categories; the only exclusion is that a roundabout
// way never doubles as a surface record.
func Classify(f *domain.GeographicFeature) []domain.Record {
	var out []domain.Record

	switch f.Kind {
	case domain.GeometryPoint:
		if f.PointCount() == 1 {
			out = classifyPoint(f, out)
		}
	case domain.GeometryLineString, domain.GeometryPolygon:
		if f.PointCount() >= 2 {
			out = classifyWay(f, out)
		}
	}

	return out
}

func classifyPoint(f *domain.GeographicFeature, out []domain.Record) []domain.Record {
	lat, lon := f.Lat(0), f.Lon(0)

	if v, ok := f.Tags.Get("traffic_calming"); ok {
		if category, known := calmingTypes[v]; known {
			out = append(out, domain.TrafficCalmingRecord{
				Lat: lat, Lon: lon,
				Type: category,
				Tags: calmingTagSubset(f.Tags),
			})
		}
	}

	if f.Tags.Is("highway", "speed_camera") || f.Tags.Is("enforcement", "maxspeed") {
		out = append(out, domain.TrafficCalmingRecord{
			Lat: lat, Lon: lon,
			Type: domain.CalmingSpeedCamera,
			Tags: calmingTagSubset(f.Tags),
		})
	}

	if f.Tags.Is("highway", "mini_roundabout") {
		out = append(out, domain.RoundaboutRecord{
			Lat: lat, Lon: lon,
			Radius: domain.MiniRoundaboutRadius,
			Type:   domain.RoundaboutMini,
		})
	}

	return out
}

func classifyWay(f *domain.GeographicFeature, out []domain.Record) []domain.Record {
	isRoundabout := f.Tags.Is("junction", "roundabout") &&
		(f.Kind == domain.GeometryPolygon || f.Kind == domain.GeometryLineString)

	if isRoundabout {
		if center, ok := geospatial.Centroid(f.Coords); ok {
			radius := geospatial.MaxDistance(center, f.Coords)
			out = append(out, domain.RoundaboutRecord{
				Lat: center.Lat, Lon: center.Lon,
				Radius: int(radius + 0.5),
				Type:   domain.RoundaboutStandard,
			})
		}
	}

	if f.Kind == domain.GeometryLineString {
		if f.Tags.Is("bridge", "yes") {
			out = append(out, spanRecord(f, domain.CalmingBridge))
		}
		if f.Tags.Is("tunnel", "yes") {
			out = append(out, spanRecord(f, domain.CalmingTunnel))
		}

		// A roundabout way is already represented; do not store its
		// geometry a second time as a surface segment.
		if v, ok := f.Tags.Get("surface"); ok && !isRoundabout {
			out = append(out, domain.RoadSurfaceRecord{
				Surface: NormalizeSurface(v),
				Coords:  geospatial.Round7All(f.Coords),
			})
		}

		if v, ok := f.Tags.Get("highway"); ok && roadHighways[v] {
			out = append(out, domain.RoadWayRecord{
				Highway: v,
				Coords:  f.Coords,
			})
		}
	}

	return out
}

// spanRecord builds a bridge or tunnel record. The first vertex is the
// position, the last is kept as a secondary endpoint so consumers can walk
// a route across the structure; the way identifier lets them merge the
// segments of one physical structure.
func spanRecord(f *domain.GeographicFeature, category string) domain.TrafficCalmingRecord {
	n := f.PointCount()
	endLat, endLon := f.Lat(n-1), f.Lon(n-1)

	rec := domain.TrafficCalmingRecord{
		Lat: f.Lat(0), Lon: f.Lon(0),
		Type:   category,
		EndLat: &endLat,
		EndLon: &endLon,
		Tags:   calmingTagSubset(f.Tags),
	}
	if f.ID != nil && f.ID.Kind == "way" {
		ref := f.ID.Ref
		rec.WayID = &ref
	}
	return rec
}

func calmingTagSubset(tags domain.Tags) map[string]string {
	var subset map[string]string
	for _, key := range calmingTagKeys {
		if v, ok := tags.Get(key); ok {
			if subset == nil {
				subset = make(map[string]string, len(calmingTagKeys))
			}
			subset[key] = v
		}
	}
	return subset
}
