package domain

// Path is an ordered walk through graph nodes, identified by id. Paths
// produced by the planner are simple: no node repeats.
type Path []NodeID

// Contains reports whether the path visits id.
func (p Path) Contains(id NodeID) bool {
	for _, n := range p {
		if n == id {
			return true
		}
	}
	return false
}

// ContainsAll reports whether the path visits every given id, in any
// position. An empty requirement is trivially satisfied.
func (p Path) ContainsAll(ids []NodeID) bool {
	for _, id := range ids {
		if !p.Contains(id) {
			return false
		}
	}
	return true
}

// Route pairs a path with its 1-based ordinal in the final route set.
// Ordinals belong to the computation session, not the graph.
type Route struct {
	ID   int  `json:"route_id"`
	Path Path `json:"path"`
}

// RouteSet is the ordered outcome of one computation. Order is
// discovery order during enumeration. Ordinals are assigned when the
// final, possibly filtered set is materialized with Routes, so
// extraction and statistics always agree on ids.
type RouteSet struct {
	paths []Path
}

// NewRouteSet returns an empty set.
func NewRouteSet() *RouteSet { return &RouteSet{} }

// Append adds a path to the end of the set.
func (rs *RouteSet) Append(p Path) { rs.paths = append(rs.paths, p) }

// Len returns the number of paths.
func (rs *RouteSet) Len() int { return len(rs.paths) }

// Paths returns the underlying paths in set order. The slice is shared;
// callers must not mutate it.
func (rs *RouteSet) Paths() []Path { return rs.paths }

// Routes materializes ordinal-tagged routes, 1-based in set order.
func (rs *RouteSet) Routes() []Route {
	routes := make([]Route, len(rs.paths))
	for i, p := range rs.paths {
		routes[i] = Route{ID: i + 1, Path: p}
	}
	return routes
}
