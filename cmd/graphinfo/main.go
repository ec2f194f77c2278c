// Command graphinfo summarizes node-link graph files: counts, extent,
// connectivity, and road-type breakdown. Useful for checking what a
// prepared network actually contains before pointing the API at it.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"sort"

	"github.com/dustin/go-humanize"

	"github.com/mbenedetti/percorsi/internal/adapters/graphfile"
	"github.com/mbenedetti/percorsi/internal/core/domain"
)

type report struct {
	File       string         `json:"file"`
	SizeBytes  int64          `json:"size_bytes"`
	Nodes      int            `json:"nodes"`
	Edges      int            `json:"edges"`
	Components int            `json:"components"`
	Largest    int            `json:"largest_component_nodes"`
	Bounds     *domain.Bounds `json:"bounds,omitempty"`
	RoadTypes  map[string]int `json:"road_types"`
}

func main() {
	jsonOut := flag.Bool("json", false, "emit the report as JSON")
	flag.Parse()

	if flag.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "usage: graphinfo [-json] <graph.json>...")
		os.Exit(2)
	}

	for i, path := range flag.Args() {
		rep, err := inspect(path)
		if err != nil {
			log.Fatalf("%s: %v", path, err)
		}
		if *jsonOut {
			b, err := json.Marshal(rep)
			if err != nil {
				log.Fatal(err)
			}
			fmt.Println(string(b))
			continue
		}
		if i > 0 {
			fmt.Println()
		}
		render(rep)
	}
}

func inspect(path string) (*report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	g, err := graphfile.Parse(data)
	if err != nil {
		return nil, err
	}

	rep := &report{
		File:      path,
		SizeBytes: int64(len(data)),
		Nodes:     g.NumNodes(),
		Edges:     g.NumEdges(),
		RoadTypes: roadTypes(g),
	}
	rep.Components, rep.Largest = components(g)
	if b, ok := g.Bounds(); ok {
		rep.Bounds = &b
	}
	return rep, nil
}

// components counts weakly connected components and the size of the
// largest one.
func components(g *domain.Graph) (count, largest int) {
	und := make(map[domain.NodeID][]domain.NodeID, g.NumNodes())
	for _, u := range g.NodeIDs() {
		for _, v := range g.Neighbors(u) {
			und[u] = append(und[u], v)
			und[v] = append(und[v], u)
		}
	}

	visited := make(map[domain.NodeID]bool, g.NumNodes())
	for _, seed := range g.NodeIDs() {
		if visited[seed] {
			continue
		}
		count++
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
		if len(comp) > largest {
			largest = len(comp)
		}
	}
	return count, largest
}

// roadTypes tallies edge records per highway classification. Untagged
// segments count under "untagged".
func roadTypes(g *domain.Graph) map[string]int {
	types := make(map[string]int)
	for _, u := range g.NodeIDs() {
		for _, v := range g.Neighbors(u) {
			for _, e := range g.Edges(u, v) {
				label := e.RoadType
				if label == "" {
					label = "untagged"
				}
				types[label]++
			}
		}
	}
	return types
}

func render(rep *report) {
	fmt.Printf("File: %s (%s)\n", rep.File, humanize.Bytes(uint64(rep.SizeBytes)))
	fmt.Printf("Nodes: %s\n", humanize.Comma(int64(rep.Nodes)))
	fmt.Printf("Edges: %s\n", humanize.Comma(int64(rep.Edges)))
	fmt.Printf("Components: %d (largest: %s nodes)\n",
		rep.Components, humanize.Comma(int64(rep.Largest)))
	if rep.Bounds != nil {
		fmt.Printf("Bounds: [%.5f, %.5f] to [%.5f, %.5f]\n",
			rep.Bounds.MinLat, rep.Bounds.MinLon, rep.Bounds.MaxLat, rep.Bounds.MaxLon)
	}

	names := make([]string, 0, len(rep.RoadTypes))
	for name := range rep.RoadTypes {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if rep.RoadTypes[names[i]] != rep.RoadTypes[names[j]] {
			return rep.RoadTypes[names[i]] > rep.RoadTypes[names[j]]
		}
		return names[i] < names[j]
	})
	fmt.Println("RoadTypes:")
	for _, name := range names {
		fmt.Printf("  %-16s %s\n", name, humanize.Comma(int64(rep.RoadTypes[name])))
	}
}
