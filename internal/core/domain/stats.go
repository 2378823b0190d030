package domain

// RegionStats summarizes one region's built store.
type RegionStats struct {
	Region         string `json:"region"`
	Version        string `json:"version"`
	BuiltAt        string `json:"built_at"`
	TrafficCalming int    `json:"traffic_calming"`
	Roundabouts    int    `json:"roundabouts"`
	RoadSurfaces   int    `json:"road_surfaces"`
	RoadWays       int    `json:"road_ways"`
	HasSurfaceData bool   `json:"has_surface_data"`
	HasWayData     bool   `json:"has_way_data"`
}
