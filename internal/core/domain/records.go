package domain

// Category names one destination bucket of the classifier.
type Category string

const (
	CategoryTrafficCalming Category = "trafficCalming"
	CategoryRoundabout     Category = "roundabouts"
	CategoryRoadSurface    Category = "roadSurfaces"
	CategoryRoadWay        Category = "roadWays"
)

// Heavy reports whether the category is high-cardinality and must be
// spilled to disk instead of held in memory.
func (c Category) Heavy() bool {
	return c == CategoryRoadSurface || c == CategoryRoadWay
}

// Record is one classified output record, tagged with its destination.
type Record interface {
	Category() Category
}

// TrafficCalmingRecord is a point obstacle or structure on a road:
// speed bumps, dips, speed cameras, bridges and tunnels.
type TrafficCalmingRecord struct {
	Lat    float64           `json:"lat"`
	Lon    float64           `json:"lon"`
	Type   string            `json:"type"`
	EndLat *float64          `json:"endLat,omitempty"`
	EndLon *float64          `json:"endLon,omitempty"`
	WayID  *int64            `json:"wayId,omitempty"`
	Tags   map[string]string `json:"tags,omitempty"`
}

func (TrafficCalmingRecord) Category() Category { return CategoryTrafficCalming }

// RoundaboutRecord is a roundabout junction with an estimated radius.
type RoundaboutRecord struct {
	Lat    float64 `json:"lat"`
	Lon    float64 `json:"lon"`
	Radius int     `json:"radius"`
	Type   string  `json:"type"`
}

func (RoundaboutRecord) Category() Category { return CategoryRoundabout }

// RoadSurfaceRecord is a road segment with a normalized surface category.
// Coords is a flat lon/lat sequence rounded to 7 decimal digits.
type RoadSurfaceRecord struct {
	Surface string    `json:"surface"`
	Coords  []float64 `json:"coords"`
}

func (RoadSurfaceRecord) Category() Category { return CategoryRoadSurface }

// RoadWayRecord is a road segment at full vertex density, tagged with its
// highway classification.
type RoadWayRecord struct {
	Highway string    `json:"highway"`
	Coords  []float64 `json:"coords"`
}

func (RoadWayRecord) Category() Category { return CategoryRoadWay }

// Traffic-calming categories.
const (
	CalmingSpeedBump   = "speed_bump"
	CalmingDip         = "dip"
	CalmingSpeedCamera = "speed_camera"
	CalmingBridge      = "bridge"
	CalmingTunnel      = "tunnel"
)

// Roundabout subtypes.
const (
	RoundaboutStandard = "roundabout"
	RoundaboutMini     = "mini_roundabout"
)

// MiniRoundaboutRadius is the fixed radius assigned to mini roundabouts;
// a single point geometry gives nothing to estimate from.
const MiniRoundaboutRadius = 3
