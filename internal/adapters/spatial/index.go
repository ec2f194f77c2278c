// Package spatial resolves coordinates to graph nodes using an S2
// cell-bucket index.
package spatial

import (
	"context"
	"fmt"
	"sync"

	"github.com/golang/geo/s1"
	"github.com/golang/geo/s2"

	"github.com/mbenedetti/percorsi/internal/core/domain"
)

// Level-15 cells are roughly 300 m across, a workable bucket size for
// street networks.
const cellLevel = 15

// maxRings bounds the outward search (~5 km at level 15) before the
// lookup falls back to a full scan.
const maxRings = 16

// maxCached bounds how many graphs keep a live index. Graphs are
// per-job truncations, so old entries age out quickly.
const maxCached = 8

// Index finds the node of a graph nearest to a coordinate. Cell
// buckets are built once per graph and cached by graph identity.
type Index struct {
	mu    sync.Mutex
	cache map[*domain.Graph]*cellBuckets
	order []*domain.Graph
}

// New creates an empty index.
func New() *Index {
	return &Index{cache: make(map[*domain.Graph]*cellBuckets)}
}

type cellBuckets struct {
	byCell map[s2.CellID][]domain.NodeID
}

// Nearest returns the id of the node closest to (lat, lon) on the
// sphere.
func (x *Index) Nearest(ctx context.Context, g *domain.Graph, lat, lon float64) (domain.NodeID, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if g == nil || g.NumNodes() == 0 {
		return 0, fmt.Errorf("nearest node lookup on empty graph: %w", domain.ErrNodeNotFound)
	}

	buckets := x.bucketsFor(g)
	target := s2.PointFromLatLng(s2.LatLngFromDegrees(lat, lon))
	center := s2.CellIDFromLatLng(s2.LatLngFromDegrees(lat, lon)).Parent(cellLevel)

	var (
		best     domain.NodeID
		bestDist = s1.InfChordAngle()
		found    bool
	)
	scan := func(cells []s2.CellID) {
		for _, cid := range cells {
			for _, id := range buckets.byCell[cid] {
				n, _ := g.Node(id)
				d := s2.ChordAngleBetweenPoints(target, nodePoint(n))
				if d < bestDist {
					best, bestDist, found = id, d, true
				}
			}
		}
	}

	visited := map[s2.CellID]bool{center: true}
	frontier := []s2.CellID{center}
	extraRing := false
	for ring := 0; ring < maxRings; ring++ {
		scan(frontier)
		if found {
			if extraRing {
				return best, nil
			}
			// A closer node may sit just across the cell boundary.
			extraRing = true
		}

		var next []s2.CellID
		for _, cid := range frontier {
			for _, nb := range cid.AllNeighbors(cellLevel) {
				if !visited[nb] {
					visited[nb] = true
					next = append(next, nb)
				}
			}
		}
		if len(next) == 0 {
			break
		}
		frontier = next
	}
	if found {
		return best, nil
	}

	// Sparse region, scan everything.
	for _, id := range g.NodeIDs() {
		n, _ := g.Node(id)
		d := s2.ChordAngleBetweenPoints(target, nodePoint(n))
		if d < bestDist {
			best, bestDist, found = id, d, true
		}
	}
	if !found {
		return 0, fmt.Errorf("no node near %.5f,%.5f: %w", lat, lon, domain.ErrNodeNotFound)
	}
	return best, nil
}

func (x *Index) bucketsFor(g *domain.Graph) *cellBuckets {
	x.mu.Lock()
	defer x.mu.Unlock()

	if b, ok := x.cache[g]; ok {
		return b
	}

	b := &cellBuckets{byCell: make(map[s2.CellID][]domain.NodeID)}
	for _, id := range g.NodeIDs() {
		n, _ := g.Node(id)
		cid := s2.CellIDFromLatLng(s2.LatLngFromDegrees(n.Lat, n.Lon)).Parent(cellLevel)
		b.byCell[cid] = append(b.byCell[cid], id)
	}

	x.cache[g] = b
	x.order = append(x.order, g)
	if len(x.order) > maxCached {
		oldest := x.order[0]
		x.order = x.order[1:]
		delete(x.cache, oldest)
	}
	return b
}

func nodePoint(n domain.Node) s2.Point {
	return s2.PointFromLatLng(s2.LatLngFromDegrees(n.Lat, n.Lon))
}
