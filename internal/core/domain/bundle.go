package domain

import "time"

// Bundle kinds, used as the file-name suffix in split mode.
const (
	BundleCore     = "core"
	BundleSurfaces = "surfaces"
	BundleWays     = "ways"
)

// CoreBundleName returns the file name of a region's core bundle. In
// single-bundle mode the same file carries all four category arrays.
func CoreBundleName(region string) string { return region + ".json.gz" }

// HeavyBundleName returns the file name of a region's heavy bundle.
func HeavyBundleName(region, kind string) string { return region + "-" + kind + ".json.gz" }

// StoreName returns the file name of a region's uncompressed store.
func StoreName(region string) string { return region + ".db" }

// CompressedStoreName returns the file name of a region's durable store.
func CompressedStoreName(region string) string { return region + ".db.gz" }

// BundleVersion returns the deterministic version string for a run that
// started at t. All bundles produced in one run share it.
func BundleVersion(t time.Time) string { return t.UTC().Format("2006-01-02") }

// BundleDocument is the decoded form of any bundle file. Heavy arrays are
// pointers so that an absent array can be told apart from an empty one.
type BundleDocument struct {
	Version        string                  `json:"version"`
	Region         string                  `json:"region"`
	TrafficCalming []TrafficCalmingRecord  `json:"trafficCalming,omitempty"`
	Roundabouts    []RoundaboutRecord      `json:"roundabouts,omitempty"`
	RoadSurfaces   *[]RoadSurfaceRecord    `json:"roadSurfaces,omitempty"`
	RoadWays       *[]RoadWayRecord        `json:"roadWays,omitempty"`
}

// CoreDocument is a bundle decoded without materializing heavy arrays;
// only their presence is recorded.
type CoreDocument struct {
	Version        string
	Region         string
	TrafficCalming []TrafficCalmingRecord
	Roundabouts    []RoundaboutRecord
	HasSurfaces    bool
	HasWays        bool
}

// RegionEvent is published after a region build or load completes.
type RegionEvent struct {
	Region  string         `json:"region"`
	Version string         `json:"version"`
	Counts  map[string]int `json:"counts"`
	Files   []string       `json:"files,omitempty"`
	At      time.Time      `json:"at"`
}
