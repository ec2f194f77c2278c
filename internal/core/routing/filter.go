package routing

import "github.com/mbenedetti/percorsi/internal/core/domain"

// FilterByNodes retains only routes whose node sequence contains every
// required id, in any position. Waypoint order relative to route
// traversal is not checked, only set membership. An empty requirement
// is the identity transform and returns the set itself.
func FilterByNodes(set *domain.RouteSet, required []domain.NodeID) *domain.RouteSet {
	if len(required) == 0 {
		return set
	}
	filtered := domain.NewRouteSet()
	for _, p := range set.Paths() {
		if p.ContainsAll(required) {
			filtered.Append(p)
		}
	}
	return filtered
}
