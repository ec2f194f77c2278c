package routing

import "github.com/mbenedetti/percorsi/internal/core/domain"

// searchPaths finds every simple path from source to target by
// depth-first backtracking over the collapsed adjacency (parallel edges
// count once for reachability). Each discovered path is handed to emit
// as a fresh slice; emit returns false to stop the search early.
//
// When source equals target nothing is emitted: a simple path cannot
// revisit its own start.
func (p *Planner) searchPaths(source, target domain.NodeID, emit func(domain.Path) bool) {
	visited := map[domain.NodeID]bool{source: true}
	path := domain.Path{source}
	maxDepth := p.opts.MaxDepth

	var dfs func(u domain.NodeID) bool
	dfs = func(u domain.NodeID) bool {
		for _, v := range p.graph.Neighbors(u) {
			if visited[v] {
				continue
			}
			if v == target {
				// The full path carries len(path) edges.
				if maxDepth > 0 && len(path) > maxDepth {
					continue
				}
				found := make(domain.Path, len(path)+1)
				copy(found, path)
				found[len(path)] = v
				if !emit(found) {
					return false
				}
				continue
			}
			// Descending adds one edge now and at least one more to
			// ever reach the target, so stop one short of the cap.
			if maxDepth > 0 && len(path) >= maxDepth {
				continue
			}
			visited[v] = true
			path = append(path, v)
			ok := dfs(v)
			path = path[:len(path)-1]
			delete(visited, v)
			if !ok {
				return false
			}
		}
		return true
	}
	dfs(source)
}
