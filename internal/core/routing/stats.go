package routing

import (
	"fmt"

	"github.com/mbenedetti/percorsi/internal/core/domain"
	"github.com/mbenedetti/percorsi/internal/pkg/geospatial"
)

// turnThresholdDeg is the bend angle above which an interior node
// counts as a turn.
const turnThresholdDeg = 30.0

// untaggedLabel is the histogram bucket for untagged segments when
// labeling is enabled.
const untaggedLabel = "undefined"

// StatsOptions tune per-route statistics.
type StatsOptions struct {
	// LabelUntagged counts segments whose canonical edge record has no
	// road type under "undefined" instead of skipping them.
	LabelUntagged bool
}

// AllRouteStats computes statistics for each route independently.
func AllRouteStats(g *domain.Graph, routes []domain.Route, opts StatsOptions) ([]domain.RouteStatistics, error) {
	stats := make([]domain.RouteStatistics, 0, len(routes))
	for _, r := range routes {
		st, err := RouteStats(g, r, opts)
		if err != nil {
			return nil, err
		}
		stats = append(stats, st)
	}
	return stats, nil
}

// RouteStats computes distance, road-type composition, and turn count
// for one route.
func RouteStats(g *domain.Graph, r domain.Route, opts StatsOptions) (domain.RouteStatistics, error) {
	if g == nil {
		return domain.RouteStatistics{}, fmt.Errorf("graph not loaded: %w", domain.ErrGraphUnavailable)
	}

	st := domain.RouteStatistics{RouteID: r.ID, RoadTypes: make(map[string]int)}

	for i := 0; i < len(r.Path)-1; i++ {
		u, v := r.Path[i], r.Path[i+1]
		from, ok := g.Node(u)
		if !ok {
			return domain.RouteStatistics{}, fmt.Errorf("route %d node %d: %w", r.ID, u, domain.ErrNodeNotFound)
		}
		to, ok := g.Node(v)
		if !ok {
			return domain.RouteStatistics{}, fmt.Errorf("route %d node %d: %w", r.ID, v, domain.ErrNodeNotFound)
		}

		rec, hasEdge := g.FirstEdge(u, v)

		// Segment distance: recorded length when present, geodesic
		// between the endpoints otherwise. The fallback is per
		// segment, so one untagged edge does not poison the rest.
		if hasEdge && rec.Length != nil {
			st.DistanceMeters += *rec.Length
		} else {
			st.DistanceMeters += geospatial.Haversine(from.Lat, from.Lon, to.Lat, to.Lon)
		}

		switch {
		case hasEdge && rec.RoadType != "":
			st.RoadTypes[rec.RoadType]++
		case opts.LabelUntagged:
			st.RoadTypes[untaggedLabel]++
		}
	}

	for i := 1; i < len(r.Path)-1; i++ {
		p, _ := g.Node(r.Path[i-1])
		q, _ := g.Node(r.Path[i])
		n, _ := g.Node(r.Path[i+1])
		angle := geospatial.TurnAngle(p.Lat, p.Lon, q.Lat, q.Lon, n.Lat, n.Lon)
		if angle > turnThresholdDeg {
			st.Turns++
		}
	}

	return st, nil
}

// Aggregate reduces a statistics collection to its shortest and longest
// routes plus the mean distance. An empty collection yields an empty
// aggregate, not an error.
func Aggregate(stats []domain.RouteStatistics) domain.OverallStatistics {
	overall := domain.OverallStatistics{RouteCount: len(stats)}
	if len(stats) == 0 {
		return overall
	}

	shortest := domain.RouteRef{RouteID: stats[0].RouteID, DistanceMeters: stats[0].DistanceMeters}
	longest := shortest
	var sum float64

	for _, st := range stats {
		sum += st.DistanceMeters
		if st.DistanceMeters < shortest.DistanceMeters {
			shortest = domain.RouteRef{RouteID: st.RouteID, DistanceMeters: st.DistanceMeters}
		}
		if st.DistanceMeters > longest.DistanceMeters {
			longest = domain.RouteRef{RouteID: st.RouteID, DistanceMeters: st.DistanceMeters}
		}
	}

	overall.Shortest = &shortest
	overall.Longest = &longest
	overall.AvgDistanceMeters = sum / float64(len(stats))
	return overall
}
