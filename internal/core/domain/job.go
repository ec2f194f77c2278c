package domain

import "time"

// Job return codes as persisted on job rows.
const (
	ReturnCodeCompleted = 0
	ReturnCodeRunning   = 1
	ReturnCodeFailed    = 9
)

// Waypoint is a geographic point a route must pass near. Both fields
// are pointers so validation can tell "missing" apart from zero.
type Waypoint struct {
	Lat *float64 `json:"lat"`
	Lon *float64 `json:"lon"`
}

// JobRequest is the payload a route job runs with. Exactly one of
// RadiusMeters or Polygon describes the region around Start; End
// switches the computation from all-reachable-nodes to single-target.
type JobRequest struct {
	Start        *Waypoint  `json:"start"`
	End          *Waypoint  `json:"end,omitempty"`
	RadiusMeters *float64   `json:"radius_m,omitempty"`
	Polygon      []GeoPoint `json:"polygon,omitempty"`
	Waypoints    []Waypoint `json:"waypoints,omitempty"`
	NetworkType  string     `json:"network_type,omitempty"`
}

// GraphRequest describes the subgraph a job needs: a network type plus
// a region, either a radius around a center or a polygon.
type GraphRequest struct {
	NetworkType  string
	Center       *GeoPoint
	RadiusMeters float64
	Polygon      []GeoPoint
}

// ProgressSnapshot reports enumeration progress after each completed
// target. ETASeconds scales elapsed time per completed unit by the
// remaining units and is zero until the first unit completes.
type ProgressSnapshot struct {
	Completed  int     `json:"completed"`
	Total      int     `json:"total"`
	ETASeconds float64 `json:"eta_seconds"`
}

// Job is one route-computation request and its recorded lifecycle.
type Job struct {
	ID          string             `json:"id"`
	Request     JobRequest         `json:"request"`
	NetworkType string             `json:"network_type"`
	ReturnCode  int                `json:"return_code"`
	Completed   int                `json:"completed"`
	Total       int                `json:"total"`
	ETASeconds  float64            `json:"eta_seconds"`
	RouteCount  int                `json:"route_count"`
	Error       string             `json:"error,omitempty"`
	Overall     *OverallStatistics `json:"overall_stats,omitempty"`
	TimeStart   time.Time          `json:"time_start"`
	TimeEnd     *time.Time         `json:"time_end,omitempty"`
	CreatedAt   time.Time          `json:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at"`
}

// Status returns the API label for the job's return code.
func (j *Job) Status() string {
	switch j.ReturnCode {
	case ReturnCodeRunning:
		return "running"
	case ReturnCodeCompleted:
		return "completed"
	case ReturnCodeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// GraphRequest derives the region the job's graph must cover.
func (r JobRequest) GraphRequest() GraphRequest {
	gr := GraphRequest{NetworkType: r.NetworkType, Polygon: r.Polygon}
	if r.Start != nil && r.Start.Lat != nil && r.Start.Lon != nil {
		gr.Center = &GeoPoint{Lat: *r.Start.Lat, Lon: *r.Start.Lon}
	}
	if r.RadiusMeters != nil {
		gr.RadiusMeters = *r.RadiusMeters
	}
	return gr
}
