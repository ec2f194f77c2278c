package ports

import (
	"context"

	"github.com/mbenedetti/percorsi/internal/core/domain"
)

// GraphProvider supplies a ready-to-search road graph for a region and
// network type. The returned graph is read-only and may be shared
// between computations.
type GraphProvider interface {
	Load(ctx context.Context, req domain.GraphRequest) (*domain.Graph, error)
}

// NearestNodeIndex resolves geographic coordinates to the closest node
// of a graph.
type NearestNodeIndex interface {
	Nearest(ctx context.Context, g *domain.Graph, lat, lon float64) (domain.NodeID, error)
}

// EventPublisher broadcasts job progress and lifecycle events to a
// message broker. Progress publishes are fire-and-forget and must
// tolerate one call per completed enumeration target.
type EventPublisher interface {
	PublishProgress(ctx context.Context, jobID string, snap domain.ProgressSnapshot) error
	PublishJobCompleted(ctx context.Context, job *domain.Job) error
	PublishJobFailed(ctx context.Context, job *domain.Job) error
}

// CacheService provides read-through caching.
type CacheService interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttlSeconds int) error
	Delete(ctx context.Context, key string) error
}
