package ports

import (
	"context"

	"github.com/mbenedetti/percorsi/internal/core/domain"
)

// JobRepository persists job records and their lifecycle transitions.
type JobRepository interface {
	Create(ctx context.Context, job *domain.Job) error
	GetByID(ctx context.Context, id string) (*domain.Job, error)
	// List returns recent jobs newest-first plus the total row count.
	List(ctx context.Context, limit, offset int) ([]domain.Job, int, error)
	UpdateProgress(ctx context.Context, id string, snap domain.ProgressSnapshot) error
	MarkCompleted(ctx context.Context, id string, routeCount int, overall *domain.OverallStatistics) error
	MarkFailed(ctx context.Context, id string, reason string) error
}

// RouteResultRepository persists computed routes.
type RouteResultRepository interface {
	InsertBatch(ctx context.Context, results []domain.RouteResult) error
	// ListByJob returns a page of results ordered by route ordinal plus
	// the total count for the job.
	ListByJob(ctx context.Context, jobID string, limit, offset int) ([]domain.RouteResult, int, error)
}
