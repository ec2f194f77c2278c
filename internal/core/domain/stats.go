package domain

// RouteStatistics are the per-route metrics computed after enumeration.
type RouteStatistics struct {
	RouteID        int            `json:"route_id"`
	DistanceMeters float64        `json:"distance_m"`
	RoadTypes      map[string]int `json:"road_types"`
	Turns          int            `json:"turns"`
}

// RouteRef points at a route by ordinal together with its total
// distance.
type RouteRef struct {
	RouteID        int     `json:"route_id"`
	DistanceMeters float64 `json:"distance_m"`
}

// OverallStatistics aggregates a statistics collection. Shortest and
// Longest are nil when the collection is empty.
type OverallStatistics struct {
	RouteCount        int       `json:"route_count"`
	Shortest          *RouteRef `json:"shortest,omitempty"`
	Longest           *RouteRef `json:"longest,omitempty"`
	AvgDistanceMeters float64   `json:"avg_distance_m"`
}

// RoutePolyline is one rendered route: an ordered (lat, lon) sequence
// tagged with the route's ordinal id.
type RoutePolyline struct {
	RouteID int        `json:"route_id"`
	Points  []GeoPoint `json:"points"`
}

// RouteResult is one stored route: polyline plus statistics, keyed by
// job and ordinal.
type RouteResult struct {
	JobID    string          `json:"job_id"`
	RouteID  int             `json:"route_id"`
	Polyline []GeoPoint      `json:"polyline"`
	Stats    RouteStatistics `json:"stats"`
}
