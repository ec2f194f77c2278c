// Package graphfile loads prepared road networks from node-link JSON
// files and serves region-truncated subgraphs to the planner.
package graphfile

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"

	"github.com/mbenedetti/percorsi/internal/core/domain"
	"github.com/mbenedetti/percorsi/internal/pkg/geospatial"
	"github.com/mbenedetti/percorsi/internal/pkg/metrics"
)

// Store maps network types to graph files in a directory, one file per
// type (drive.json, walk.json, ...). Parsed base graphs are cached;
// every Load derives a fresh truncated subgraph from the cached base.
type Store struct {
	dir           string
	retainLargest bool

	mu   sync.RWMutex
	base map[string]*domain.Graph
}

// New creates a store reading graph files from dir. With retainLargest
// set, truncated subgraphs keep only their largest weakly connected
// component.
func New(dir string, retainLargest bool) *Store {
	return &Store{
		dir:           dir,
		retainLargest: retainLargest,
		base:          make(map[string]*domain.Graph),
	}
}

// Load returns the subgraph of the requested network type covering the
// requested region.
func (s *Store) Load(ctx context.Context, req domain.GraphRequest) (*domain.Graph, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if req.NetworkType == "" {
		return nil, fmt.Errorf("network type is required: %w", domain.ErrInvalidInput)
	}

	base, err := s.baseGraph(strings.ToLower(req.NetworkType))
	if err != nil {
		return nil, err
	}

	var keep func(domain.Node) bool
	switch {
	case req.RadiusMeters > 0:
		if req.Center == nil {
			return nil, fmt.Errorf("radius region needs a center: %w", domain.ErrInvalidInput)
		}
		keep = insideRadius(*req.Center, req.RadiusMeters)
	case len(req.Polygon) > 0:
		keep = insidePolygon(polygonRing(req.Polygon))
	default:
		return nil, fmt.Errorf("a radius or polygon region is required: %w", domain.ErrInvalidInput)
	}

	sub := copySubgraph(base, keep)
	if sub.NumNodes() == 0 {
		return nil, fmt.Errorf("no nodes inside the requested region: %w", domain.ErrGraphUnavailable)
	}
	if s.retainLargest {
		sub = largestComponent(sub)
	}
	return sub, nil
}

// NetworkInfo describes one graph file the store can serve.
type NetworkInfo struct {
	NetworkType string `json:"network_type"`
	SizeBytes   int64  `json:"size_bytes"`
	Loaded      bool   `json:"loaded"`
}

// Networks lists the network types available in the store directory,
// sorted by file name. Loaded marks types whose base graph is already
// parsed and cached.
func (s *Store) Networks() ([]NetworkInfo, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("read graph directory %s: %w", s.dir, err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var infos []NetworkInfo
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		info := NetworkInfo{NetworkType: strings.TrimSuffix(entry.Name(), ".json")}
		if fi, err := entry.Info(); err == nil {
			info.SizeBytes = fi.Size()
		}
		_, info.Loaded = s.base[info.NetworkType]
		infos = append(infos, info)
	}
	return infos, nil
}

// HasNetwork reports whether a graph file exists for the network type.
func (s *Store) HasNetwork(networkType string) bool {
	if networkType == "" {
		return false
	}
	_, err := os.Stat(filepath.Join(s.dir, strings.ToLower(networkType)+".json"))
	return err == nil
}

// Network returns the full, untruncated base graph for a network type.
func (s *Store) Network(ctx context.Context, networkType string) (*domain.Graph, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if networkType == "" {
		return nil, fmt.Errorf("network type is required: %w", domain.ErrInvalidInput)
	}
	return s.baseGraph(strings.ToLower(networkType))
}

func (s *Store) baseGraph(networkType string) (*domain.Graph, error) {
	s.mu.RLock()
	g, ok := s.base[networkType]
	s.mu.RUnlock()
	if ok {
		metrics.GraphCacheHits.Inc()
		return g, nil
	}
	metrics.GraphCacheMisses.Inc()

	s.mu.Lock()
	defer s.mu.Unlock()
	if g, ok := s.base[networkType]; ok {
		return g, nil
	}

	path := filepath.Join(s.dir, networkType+".json")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("no graph file for network type %q: %w", networkType, domain.ErrGraphUnavailable)
		}
		return nil, fmt.Errorf("read graph file %s: %w", path, err)
	}

	g, err = Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse graph file %s: %w", path, err)
	}

	s.base[networkType] = g
	slog.Info("graph loaded",
		"network_type", networkType,
		"nodes", g.NumNodes(),
		"edges", g.NumEdges())
	return g, nil
}

type nodeRecord struct {
	ID int64   `json:"id"`
	X  float64 `json:"x"`
	Y  float64 `json:"y"`
}

type linkRecord struct {
	Source   int64           `json:"source"`
	Target   int64           `json:"target"`
	Length   *float64        `json:"length"`
	Highway  json.RawMessage `json:"highway"`
	Geometry json.RawMessage `json:"geometry"`
}

type nodeLinkDoc struct {
	Nodes []nodeRecord `json:"nodes"`
	Links []linkRecord `json:"links"`
	Edges []linkRecord `json:"edges"`
}

// Parse decodes a node-link JSON document. Node x/y carry lon/lat,
// link attributes may arrive as scalars or lists, and edge geometry is
// optional.
func Parse(data []byte) (*domain.Graph, error) {
	var doc nodeLinkDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode node-link document: %w", err)
	}
	if len(doc.Nodes) == 0 {
		return nil, fmt.Errorf("document has no nodes: %w", domain.ErrGraphUnavailable)
	}

	// Exports name the edge list "links" or "edges" depending on the
	// producing tool.
	links := doc.Links
	if len(links) == 0 {
		links = doc.Edges
	}

	g := domain.NewGraph()
	for _, n := range doc.Nodes {
		g.AddNode(domain.Node{ID: domain.NodeID(n.ID), Lat: n.Y, Lon: n.X})
	}
	for _, l := range links {
		e := domain.Edge{
			From:     domain.NodeID(l.Source),
			To:       domain.NodeID(l.Target),
			Length:   l.Length,
			RoadType: firstTag(l.Highway),
			Geometry: parseGeometry(l.Geometry),
		}
		if err := g.AddEdge(e); err != nil {
			return nil, fmt.Errorf("link %d->%d: %w", l.Source, l.Target, err)
		}
	}
	return g, nil
}

// firstTag normalizes an attribute that arrives as either a scalar or
// a list to its first value.
func firstTag(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil && len(list) > 0 {
		return list[0]
	}
	return ""
}

// parseGeometry accepts a bare coordinate pair list or the
// GeoJSON-style object form, both in lon-lat order. Anything else
// counts as no geometry and polylines fall back to node endpoints.
func parseGeometry(raw json.RawMessage) orb.LineString {
	if len(raw) == 0 {
		return nil
	}
	var pairs [][2]float64
	if err := json.Unmarshal(raw, &pairs); err == nil {
		return toLineString(pairs)
	}
	var obj struct {
		Coordinates [][2]float64 `json:"coordinates"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil {
		return toLineString(obj.Coordinates)
	}
	return nil
}

func toLineString(pairs [][2]float64) orb.LineString {
	if len(pairs) == 0 {
		return nil
	}
	ls := make(orb.LineString, len(pairs))
	for i, p := range pairs {
		ls[i] = orb.Point{p[0], p[1]}
	}
	return ls
}

func insideRadius(center domain.GeoPoint, radiusMeters float64) func(domain.Node) bool {
	// Bounding-box reject before the haversine.
	minLat, minLon, maxLat, maxLon := geospatial.BoundingBox(center.Lat, center.Lon, radiusMeters)
	return func(n domain.Node) bool {
		if n.Lat < minLat || n.Lat > maxLat || n.Lon < minLon || n.Lon > maxLon {
			return false
		}
		return geospatial.Haversine(center.Lat, center.Lon, n.Lat, n.Lon) <= radiusMeters
	}
}

func insidePolygon(ring orb.Ring) func(domain.Node) bool {
	poly := orb.Polygon{ring}
	return func(n domain.Node) bool {
		return planar.PolygonContains(poly, orb.Point{n.Lon, n.Lat})
	}
}

// polygonRing closes the ring when the request left it open.
func polygonRing(pts []domain.GeoPoint) orb.Ring {
	ring := make(orb.Ring, 0, len(pts)+1)
	for _, p := range pts {
		ring = append(ring, orb.Point{p.Lon, p.Lat})
	}
	if len(ring) > 0 && !ring[0].Equal(ring[len(ring)-1]) {
		ring = append(ring, ring[0])
	}
	return ring
}

// copySubgraph keeps the nodes passing the predicate plus every edge
// record whose endpoints both survive, preserving record order.
func copySubgraph(base *domain.Graph, keep func(domain.Node) bool) *domain.Graph {
	sub := domain.NewGraph()
	for _, id := range base.NodeIDs() {
		n, _ := base.Node(id)
		if keep(n) {
			sub.AddNode(n)
		}
	}
	for _, u := range sub.NodeIDs() {
		for _, v := range base.Neighbors(u) {
			if !sub.HasNode(v) {
				continue
			}
			for _, e := range base.Edges(u, v) {
				// Both endpoints verified present.
				_ = sub.AddEdge(e)
			}
		}
	}
	return sub
}

// largestComponent keeps only the largest weakly connected component.
func largestComponent(g *domain.Graph) *domain.Graph {
	ids := g.NodeIDs()
	if len(ids) == 0 {
		return g
	}

	// Undirected adjacency for weak connectivity.
	und := make(map[domain.NodeID][]domain.NodeID, len(ids))
	for _, u := range ids {
		for _, v := range g.Neighbors(u) {
			und[u] = append(und[u], v)
			und[v] = append(und[v], u)
		}
	}

	visited := make(map[domain.NodeID]bool, len(ids))
	var best []domain.NodeID
	for _, seed := range ids {
		if visited[seed] {
			continue
		}
		comp := []domain.NodeID{seed}
		visited[seed] = true
		for i := 0; i < len(comp); i++ {
			for _, v := range und[comp[i]] {
				if !visited[v] {
					visited[v] = true
					comp = append(comp, v)
				}
			}
		}
		if len(comp) > len(best) {
			best = comp
		}
	}
	if len(best) == len(ids) {
		return g
	}

	inBest := make(map[domain.NodeID]bool, len(best))
	for _, id := range best {
		inBest[id] = true
	}
	return copySubgraph(g, func(n domain.Node) bool { return inBest[n.ID] })
}
