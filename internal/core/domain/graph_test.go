package domain_test

import (
	"errors"
	"testing"

	"github.com/mbenedetti/percorsi/internal/core/domain"
)

func f64(v float64) *float64 { return &v }

func TestAddEdge_RequiresEndpoints(t *testing.T) {
	g := domain.NewGraph()
	g.AddNode(domain.Node{ID: 1, Lat: 43.26, Lon: -2.93})

	err := g.AddEdge(domain.Edge{From: 1, To: 2})
	if !errors.Is(err, domain.ErrNodeNotFound) {
		t.Fatalf("expected ErrNodeNotFound, got %v", err)
	}

	err = g.AddEdge(domain.Edge{From: 99, To: 1})
	if !errors.Is(err, domain.ErrNodeNotFound) {
		t.Fatalf("expected ErrNodeNotFound, got %v", err)
	}

	g.AddNode(domain.Node{ID: 2, Lat: 43.27, Lon: -2.94})
	if err := g.AddEdge(domain.Edge{From: 1, To: 2, Length: f64(120)}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestParallelEdges_SingleAdjacency(t *testing.T) {
	g := domain.NewGraph()
	g.AddNode(domain.Node{ID: 1})
	g.AddNode(domain.Node{ID: 2})

	if err := g.AddEdge(domain.Edge{From: 1, To: 2, RoadType: "residential"}); err != nil {
		t.Fatal(err)
	}
	if err := g.AddEdge(domain.Edge{From: 1, To: 2, RoadType: "service"}); err != nil {
		t.Fatal(err)
	}

	if n := g.Neighbors(1); len(n) != 1 || n[0] != 2 {
		t.Errorf("expected single adjacency to node 2, got %v", n)
	}
	if recs := g.Edges(1, 2); len(recs) != 2 {
		t.Errorf("expected 2 parallel records, got %d", len(recs))
	}
	if g.NumEdges() != 2 {
		t.Errorf("expected NumEdges 2, got %d", g.NumEdges())
	}

	first, ok := g.FirstEdge(1, 2)
	if !ok || first.RoadType != "residential" {
		t.Errorf("expected first record to be the residential one, got %+v", first)
	}
}

func TestNodeIDs_InsertionOrder(t *testing.T) {
	g := domain.NewGraph()
	for _, id := range []domain.NodeID{7, 3, 11, 5} {
		g.AddNode(domain.Node{ID: id})
	}
	// Re-adding must not duplicate the order entry.
	g.AddNode(domain.Node{ID: 3, Lat: 1})

	got := g.NodeIDs()
	want := []domain.NodeID{7, 3, 11, 5}
	if len(got) != len(want) {
		t.Fatalf("expected %d ids, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("position %d: expected %d, got %d", i, want[i], got[i])
		}
	}

	n, ok := g.Node(3)
	if !ok || n.Lat != 1 {
		t.Errorf("expected replaced node 3 with Lat 1, got %+v", n)
	}
}

func TestGraphBounds(t *testing.T) {
	g := domain.NewGraph()
	if _, ok := g.Bounds(); ok {
		t.Fatal("empty graph should have no bounds")
	}

	g.AddNode(domain.Node{ID: 1, Lat: 43.26, Lon: -2.93})
	g.AddNode(domain.Node{ID: 2, Lat: 43.30, Lon: -2.99})
	g.AddNode(domain.Node{ID: 3, Lat: 43.21, Lon: -2.90})

	b, ok := g.Bounds()
	if !ok {
		t.Fatal("expected bounds")
	}
	if b.MinLat != 43.21 || b.MaxLat != 43.30 {
		t.Errorf("unexpected lat bounds: %+v", b)
	}
	if b.MinLon != -2.99 || b.MaxLon != -2.90 {
		t.Errorf("unexpected lon bounds: %+v", b)
	}
}

func TestRouteSet_OrdinalAssignment(t *testing.T) {
	rs := domain.NewRouteSet()
	rs.Append(domain.Path{1, 2})
	rs.Append(domain.Path{1, 3, 2})

	routes := rs.Routes()
	if len(routes) != 2 {
		t.Fatalf("expected 2 routes, got %d", len(routes))
	}
	if routes[0].ID != 1 || routes[1].ID != 2 {
		t.Errorf("expected 1-based ordinals in set order, got %d and %d", routes[0].ID, routes[1].ID)
	}
}

func TestPathContainsAll(t *testing.T) {
	p := domain.Path{1, 4, 9, 2}
	if !p.ContainsAll(nil) {
		t.Error("empty requirement should hold")
	}
	if !p.ContainsAll([]domain.NodeID{9, 1}) {
		t.Error("expected {9,1} to be contained")
	}
	if p.ContainsAll([]domain.NodeID{9, 8}) {
		t.Error("8 is not on the path")
	}
}
