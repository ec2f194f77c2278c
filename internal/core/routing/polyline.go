package routing

import (
	"fmt"

	"github.com/mbenedetti/percorsi/internal/core/domain"
)

// Polylines renders each route as an ordered (lat, lon) sequence tagged
// with the route's ordinal id.
func Polylines(g *domain.Graph, routes []domain.Route) ([]domain.RoutePolyline, error) {
	out := make([]domain.RoutePolyline, 0, len(routes))
	for _, r := range routes {
		pts, err := Polyline(g, r.Path)
		if err != nil {
			return nil, fmt.Errorf("route %d: %w", r.ID, err)
		}
		out = append(out, domain.RoutePolyline{RouteID: r.ID, Points: pts})
	}
	return out, nil
}

// Polyline renders a single path. For every consecutive node pair the
// canonical edge record supplies the physical geometry, converted from
// the stored lon/lat order to (lat, lon); a pair without geometry falls
// back to the two endpoint coordinates. Consecutive exact-duplicate
// points are collapsed so stitched segments do not repeat their shared
// endpoints.
func Polyline(g *domain.Graph, path domain.Path) ([]domain.GeoPoint, error) {
	if g == nil {
		return nil, fmt.Errorf("graph not loaded: %w", domain.ErrGraphUnavailable)
	}
	if len(path) == 0 {
		return nil, fmt.Errorf("degenerate route with empty path: %w", domain.ErrInvalidInput)
	}
	if len(path) == 1 {
		n, ok := g.Node(path[0])
		if !ok {
			return nil, fmt.Errorf("path node %d: %w", path[0], domain.ErrNodeNotFound)
		}
		return []domain.GeoPoint{n.Point()}, nil
	}

	pts := make([]domain.GeoPoint, 0, len(path)*2)
	for i := 0; i < len(path)-1; i++ {
		u, v := path[i], path[i+1]
		rec, ok := g.FirstEdge(u, v)
		if ok && len(rec.Geometry) > 0 {
			for _, pt := range rec.Geometry {
				pts = append(pts, domain.GeoPoint{Lat: pt[1], Lon: pt[0]})
			}
			continue
		}
		from, ok := g.Node(u)
		if !ok {
			return nil, fmt.Errorf("path node %d: %w", u, domain.ErrNodeNotFound)
		}
		to, ok := g.Node(v)
		if !ok {
			return nil, fmt.Errorf("path node %d: %w", v, domain.ErrNodeNotFound)
		}
		pts = append(pts, from.Point(), to.Point())
	}

	return collapseDuplicates(pts), nil
}

// collapseDuplicates drops every point exactly equal to its
// predecessor. Running it on already-clean input returns an equal
// sequence.
func collapseDuplicates(pts []domain.GeoPoint) []domain.GeoPoint {
	if len(pts) == 0 {
		return pts
	}
	clean := pts[:1]
	for _, pt := range pts[1:] {
		if pt != clean[len(clean)-1] {
			clean = append(clean, pt)
		}
	}
	return clean
}
