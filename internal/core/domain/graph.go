package domain

import (
	"fmt"

	"github.com/paulmach/orb"
)

// NodeID identifies a node within a Graph. IDs come from the source
// network data (OSM node ids) and are unique per graph.
type NodeID int64

// Node is a single road-network junction.
type Node struct {
	ID  NodeID  `json:"id"`
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Point returns the node position as a GeoPoint.
func (n Node) Point() GeoPoint { return GeoPoint{Lat: n.Lat, Lon: n.Lon} }

// Edge is one directed road segment. Several parallel edges may connect
// the same ordered node pair; each keeps its own attributes.
type Edge struct {
	From NodeID
	To   NodeID
	// Length in meters. Nil when the source data carries none; distance
	// calculations then fall back to the geodesic between the endpoints.
	Length *float64
	// RoadType is the canonical highway tag, already reduced to a scalar
	// at load time. Empty when the segment is untagged.
	RoadType string
	// Geometry is the physical shape of the segment in lon/lat order,
	// independent of the endpoint positions. Nil when absent.
	Geometry orb.LineString
}

type edgeKey struct {
	from NodeID
	to   NodeID
}

// Graph is a directed multigraph of road-network nodes and edges.
//
// Node iteration follows insertion order, so repeated computations over
// the same source file enumerate targets identically. Parallel edges
// between a pair accumulate as separate records but contribute a single
// logical adjacency. A Graph is not safe for concurrent mutation; route
// computations treat it as strictly read-only.
type Graph struct {
	nodes    map[NodeID]Node
	order    []NodeID
	adj      map[NodeID][]NodeID
	edges    map[edgeKey][]Edge
	numEdges int
}

// NewGraph returns an empty graph.
func NewGraph() *Graph {
	return &Graph{
		nodes: make(map[NodeID]Node),
		adj:   make(map[NodeID][]NodeID),
		edges: make(map[edgeKey][]Edge),
	}
}

// AddNode inserts or replaces a node. Insertion order is remembered for
// deterministic iteration.
func (g *Graph) AddNode(n Node) {
	if _, ok := g.nodes[n.ID]; !ok {
		g.order = append(g.order, n.ID)
	}
	g.nodes[n.ID] = n
}

// AddEdge appends an edge record between two existing nodes. Both
// endpoints must already be present.
func (g *Graph) AddEdge(e Edge) error {
	if _, ok := g.nodes[e.From]; !ok {
		return fmt.Errorf("add edge %d->%d: from endpoint: %w", e.From, e.To, ErrNodeNotFound)
	}
	if _, ok := g.nodes[e.To]; !ok {
		return fmt.Errorf("add edge %d->%d: to endpoint: %w", e.From, e.To, ErrNodeNotFound)
	}
	key := edgeKey{from: e.From, to: e.To}
	if len(g.edges[key]) == 0 {
		g.adj[e.From] = append(g.adj[e.From], e.To)
	}
	g.edges[key] = append(g.edges[key], e)
	g.numEdges++
	return nil
}

// HasNode reports whether id is present.
func (g *Graph) HasNode(id NodeID) bool {
	_, ok := g.nodes[id]
	return ok
}

// Node returns the node for id.
func (g *Graph) Node(id NodeID) (Node, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

// Neighbors returns the successors of id in first-edge order. Parallel
// edges appear once. The returned slice is shared; callers must not
// mutate it.
func (g *Graph) Neighbors(id NodeID) []NodeID {
	return g.adj[id]
}

// Edges returns every parallel edge record from u to v, in insertion
// order. The first record is the canonical one for attribute lookup.
func (g *Graph) Edges(u, v NodeID) []Edge {
	return g.edges[edgeKey{from: u, to: v}]
}

// FirstEdge returns the canonical edge record for the pair, if any.
func (g *Graph) FirstEdge(u, v NodeID) (Edge, bool) {
	recs := g.edges[edgeKey{from: u, to: v}]
	if len(recs) == 0 {
		return Edge{}, false
	}
	return recs[0], true
}

// NodeIDs returns all node ids in insertion order. The returned slice
// is shared; callers must not mutate it.
func (g *Graph) NodeIDs() []NodeID {
	return g.order
}

// NumNodes returns the node count.
func (g *Graph) NumNodes() int { return len(g.nodes) }

// NumEdges returns the total edge record count, parallel edges included.
func (g *Graph) NumEdges() int { return g.numEdges }

// Bounds computes the bounding box of all nodes. ok is false for an
// empty graph.
func (g *Graph) Bounds() (Bounds, bool) {
	if len(g.order) == 0 {
		return Bounds{}, false
	}
	b := BoundsAround(g.nodes[g.order[0]].Point())
	for _, id := range g.order[1:] {
		b.Extend(g.nodes[id].Point())
	}
	return b, true
}
