// Package routing implements exhaustive simple-path enumeration over a
// road graph, together with route deduplication, waypoint filtering,
// polyline extraction, and per-route statistics. Everything here is
// pure computation: the graph is read-only, progress leaves through a
// callback, and persistence belongs to the callers.
package routing

import (
	"context"
	"fmt"

	"github.com/mbenedetti/percorsi/internal/core/domain"
)

// Options bound a computation. Zero values mean unlimited, which is the
// default: simple-path enumeration is worst-case exponential and the
// caller decides whether to accept that.
type Options struct {
	// MaxDepth caps the number of edges per path.
	MaxDepth int
	// MaxRoutes stops collection once this many distinct routes exist.
	MaxRoutes int
}

// ProgressFunc receives a snapshot after each completed enumeration
// unit. It runs synchronously on the enumeration goroutine; a slow sink
// degrades throughput but cannot corrupt the computation.
type ProgressFunc func(domain.ProgressSnapshot)

// Planner enumerates every distinct simple route through a road graph
// from a fixed start node. A Planner holds no mutable graph state and
// may be discarded after use; the graph it reads must not be mutated
// while a computation runs.
type Planner struct {
	graph    *domain.Graph
	opts     Options
	progress ProgressFunc
}

// New returns a planner over g.
func New(g *domain.Graph, opts Options) *Planner {
	return &Planner{graph: g, opts: opts}
}

// OnProgress installs the progress sink. A nil sink disables reporting.
func (p *Planner) OnProgress(fn ProgressFunc) { p.progress = fn }

func (p *Planner) emit(snap domain.ProgressSnapshot) {
	if p.progress != nil {
		p.progress(snap)
	}
}

func (p *Planner) validate(start domain.NodeID) error {
	if p.graph == nil || p.graph.NumNodes() == 0 {
		return fmt.Errorf("graph has no nodes: %w", domain.ErrInvalidInput)
	}
	if !p.graph.HasNode(start) {
		return fmt.Errorf("start node %d: %w", start, domain.ErrNodeNotFound)
	}
	return nil
}

// AllFromNode enumerates every simple path from start to each other
// node of the graph, deduplicated under sequence identity. Targets are
// visited in node insertion order; a target with no path contributes
// zero routes. One progress snapshot is emitted per completed target,
// and cancellation is honored between targets.
func (p *Planner) AllFromNode(ctx context.Context, start domain.NodeID) (*domain.RouteSet, error) {
	if err := p.validate(start); err != nil {
		return nil, err
	}

	targets := make([]domain.NodeID, 0, p.graph.NumNodes()-1)
	for _, id := range p.graph.NodeIDs() {
		if id != start {
			targets = append(targets, id)
		}
	}

	coll := newCollector(PolicySequence, p.opts.MaxRoutes)
	track := newTracker(len(targets))

	for i, target := range targets {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("enumeration canceled after %d of %d targets: %w", i, len(targets), err)
		}
		p.searchPaths(start, target, coll.add)
		p.emit(track.snapshot(i + 1))
		if coll.full() {
			break
		}
	}
	return coll.set, nil
}

// Between enumerates every simple path from start to end, deduplicated
// under node-set identity. No path between the pair is not an error:
// the result is simply empty. The whole traversal is one enumeration
// unit, so cancellation is only checked before it starts and a single
// progress snapshot is emitted after it.
func (p *Planner) Between(ctx context.Context, start, end domain.NodeID) (*domain.RouteSet, error) {
	if err := p.validate(start); err != nil {
		return nil, err
	}
	if !p.graph.HasNode(end) {
		return nil, fmt.Errorf("end node %d: %w", end, domain.ErrNodeNotFound)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("enumeration canceled: %w", err)
	}

	coll := newCollector(PolicyNodeSet, p.opts.MaxRoutes)
	track := newTracker(1)

	p.searchPaths(start, end, coll.add)
	p.emit(track.snapshot(1))

	return coll.set, nil
}
