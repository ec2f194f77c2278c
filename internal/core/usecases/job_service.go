package usecases

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/mbenedetti/percorsi/internal/core/domain"
	"github.com/mbenedetti/percorsi/internal/core/ports"
	"github.com/mbenedetti/percorsi/internal/core/routing"
	"github.com/mbenedetti/percorsi/internal/pkg/metrics"
)

var (
	tracerOnce sync.Once
	jobTracer  trace.Tracer
)

func tracer() trace.Tracer {
	tracerOnce.Do(func() {
		jobTracer = otel.Tracer("percorsi/usecases")
	})
	return jobTracer
}

// PlannerSettings bounds route enumeration and controls statistics
// labeling. Zero MaxDepth and MaxRoutes mean unlimited.
type PlannerSettings struct {
	MaxDepth       int
	MaxRoutes      int
	LabelUntagged  bool
	DefaultNetwork string
	RoutesCacheTTL int
}

// JobService owns the route-job lifecycle: validation, execution of
// the enumeration pipeline, and read access to jobs and their routes.
type JobService struct {
	jobs     ports.JobRepository
	results  ports.RouteResultRepository
	graphs   ports.GraphProvider
	index    ports.NearestNodeIndex
	events   ports.EventPublisher
	cache    ports.CacheService
	settings PlannerSettings
}

// nopEvents drops events when no broker is configured.
type nopEvents struct{}

func (nopEvents) PublishProgress(context.Context, string, domain.ProgressSnapshot) error { return nil }
func (nopEvents) PublishJobCompleted(context.Context, *domain.Job) error                 { return nil }
func (nopEvents) PublishJobFailed(context.Context, *domain.Job) error                    { return nil }

// NewJobService creates a new JobService. A nil events publisher is
// replaced with a no-op so the pipeline runs without a broker.
func NewJobService(
	jobs ports.JobRepository,
	results ports.RouteResultRepository,
	graphs ports.GraphProvider,
	index ports.NearestNodeIndex,
	events ports.EventPublisher,
	cache ports.CacheService,
	settings PlannerSettings,
) *JobService {
	if events == nil {
		events = nopEvents{}
	}
	return &JobService{
		jobs:     jobs,
		results:  results,
		graphs:   graphs,
		index:    index,
		events:   events,
		cache:    cache,
		settings: settings,
	}
}

// CreateJob validates the request and persists a new job in the
// running state. Execution happens separately on the runner.
func (s *JobService) CreateJob(ctx context.Context, req domain.JobRequest) (*domain.Job, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	networkType := req.NetworkType
	if networkType == "" {
		networkType = s.settings.DefaultNetwork
	}

	now := time.Now().UTC()
	job := &domain.Job{
		ID:          uuid.NewString(),
		Request:     req,
		NetworkType: networkType,
		ReturnCode:  domain.ReturnCodeRunning,
		TimeStart:   now,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.jobs.Create(ctx, job); err != nil {
		return nil, fmt.Errorf("create job: %w", err)
	}

	metrics.JobsSubmitted.Inc()
	return job, nil
}

// Execute runs the full pipeline for a previously created job and
// records the terminal state. Cancellation arrives through ctx.
func (s *JobService) Execute(ctx context.Context, job *domain.Job) error {
	ctx, span := tracer().Start(ctx, "jobs.Execute", trace.WithAttributes(
		attribute.String("job.id", job.ID),
		attribute.String("job.network_type", job.NetworkType),
	))
	defer span.End()

	metrics.ActiveJobs.Inc()
	defer metrics.ActiveJobs.Dec()

	start := time.Now()
	if err := s.run(ctx, job); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "job failed")
		s.fail(ctx, job, err)
		return err
	}

	metrics.JobsCompleted.Inc()
	metrics.JobDuration.Observe(time.Since(start).Seconds())
	span.SetAttributes(attribute.Int("job.routes", job.RouteCount))
	span.SetStatus(codes.Ok, "job completed")
	return nil
}

// FailJob records a failure that happened outside the execution path,
// such as a queue rejection.
func (s *JobService) FailJob(ctx context.Context, job *domain.Job, cause error) {
	s.fail(ctx, job, cause)
}

func (s *JobService) run(ctx context.Context, job *domain.Job) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("job canceled: %w", err)
	}

	req := job.Request

	// The graph request carries the resolved network type; the stored
	// request may have left it to the default.
	greq := req.GraphRequest()
	greq.NetworkType = job.NetworkType

	loadStart := time.Now()
	g, err := s.graphs.Load(ctx, greq)
	metrics.GraphLoadDuration.WithLabelValues(job.NetworkType).Observe(time.Since(loadStart).Seconds())
	if err != nil {
		return fmt.Errorf("load graph: %w", err)
	}

	startID, err := s.index.Nearest(ctx, g, *req.Start.Lat, *req.Start.Lon)
	if err != nil {
		return fmt.Errorf("resolve start: %w", err)
	}

	planner := routing.New(g, routing.Options{
		MaxDepth:  s.settings.MaxDepth,
		MaxRoutes: s.settings.MaxRoutes,
	})
	planner.OnProgress(func(snap domain.ProgressSnapshot) {
		job.Completed = snap.Completed
		job.Total = snap.Total
		job.ETASeconds = snap.ETASeconds
		// Progress is advisory; a missed update must not abort the job.
		_ = s.jobs.UpdateProgress(ctx, job.ID, snap)
		_ = s.events.PublishProgress(ctx, job.ID, snap)
		metrics.ProgressEvents.Inc()
	})

	var set *domain.RouteSet
	if req.End != nil {
		endID, err := s.index.Nearest(ctx, g, *req.End.Lat, *req.End.Lon)
		if err != nil {
			return fmt.Errorf("resolve end: %w", err)
		}
		set, err = planner.Between(ctx, startID, endID)
		if err != nil {
			return err
		}
	} else {
		set, err = planner.AllFromNode(ctx, startID)
		if err != nil {
			return err
		}
	}

	required := make([]domain.NodeID, 0, len(req.Waypoints))
	for i, wp := range req.Waypoints {
		id, err := s.index.Nearest(ctx, g, *wp.Lat, *wp.Lon)
		if err != nil {
			return fmt.Errorf("resolve waypoint %d: %w", i+1, err)
		}
		required = append(required, id)
	}
	set = routing.FilterByNodes(set, required)

	routes := set.Routes()

	polylines, err := routing.Polylines(g, routes)
	if err != nil {
		return fmt.Errorf("build polylines: %w", err)
	}
	stats, err := routing.AllRouteStats(g, routes, routing.StatsOptions{
		LabelUntagged: s.settings.LabelUntagged,
	})
	if err != nil {
		return fmt.Errorf("compute statistics: %w", err)
	}

	results := make([]domain.RouteResult, len(routes))
	for i := range routes {
		results[i] = domain.RouteResult{
			JobID:    job.ID,
			RouteID:  routes[i].ID,
			Polyline: polylines[i].Points,
			Stats:    stats[i],
		}
	}
	if len(results) > 0 {
		if err := s.results.InsertBatch(ctx, results); err != nil {
			return fmt.Errorf("persist routes: %w", err)
		}
	}

	overall := routing.Aggregate(stats)

	now := time.Now().UTC()
	job.ReturnCode = domain.ReturnCodeCompleted
	job.RouteCount = len(routes)
	job.Overall = &overall
	job.TimeEnd = &now
	job.UpdatedAt = now

	if err := s.jobs.MarkCompleted(ctx, job.ID, len(routes), &overall); err != nil {
		return fmt.Errorf("mark completed: %w", err)
	}

	metrics.RoutesPerJob.Observe(float64(len(routes)))
	_ = s.events.PublishJobCompleted(ctx, job)

	slog.Info("job completed",
		"job_id", job.ID,
		"network_type", job.NetworkType,
		"routes", len(routes))
	return nil
}

// fail persists the failure even when ctx was canceled, which is the
// normal path for user-initiated cancellation.
func (s *JobService) fail(ctx context.Context, job *domain.Job, cause error) {
	base := context.WithoutCancel(ctx)

	now := time.Now().UTC()
	job.ReturnCode = domain.ReturnCodeFailed
	job.Error = cause.Error()
	job.TimeEnd = &now
	job.UpdatedAt = now

	if err := s.jobs.MarkFailed(base, job.ID, cause.Error()); err != nil {
		slog.Error("mark job failed", "job_id", job.ID, "error", err)
	}
	_ = s.events.PublishJobFailed(base, job)
	metrics.JobsFailed.Inc()

	slog.Warn("job failed", "job_id", job.ID, "reason", cause.Error())
}

// GetJob returns a single job by id. Malformed ids read as not found
// so they never reach the uuid column.
func (s *JobService) GetJob(ctx context.Context, id string) (*domain.Job, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("job %q: %w", id, domain.ErrJobNotFound)
	}
	return s.jobs.GetByID(ctx, id)
}

// ListJobs returns a page of jobs newest-first plus the total count.
func (s *JobService) ListJobs(ctx context.Context, limit, offset int) ([]domain.Job, int, error) {
	limit, offset = clampPage(limit, offset)
	return s.jobs.List(ctx, limit, offset)
}

type routesPage struct {
	Results []domain.RouteResult `json:"results"`
	Total   int                  `json:"total"`
}

// JobRoutes returns a page of computed routes for a job. Pages of
// finished jobs are cached; running jobs always hit the repository.
func (s *JobService) JobRoutes(ctx context.Context, jobID string, limit, offset int) ([]domain.RouteResult, int, error) {
	limit, offset = clampPage(limit, offset)

	job, err := s.GetJob(ctx, jobID)
	if err != nil {
		return nil, 0, err
	}
	finished := job.ReturnCode != domain.ReturnCodeRunning

	cacheKey := fmt.Sprintf("routes:%s:%d:%d", jobID, limit, offset)
	if finished && s.cache != nil {
		if data, err := s.cache.Get(ctx, cacheKey); err == nil {
			var page routesPage
			if err := json.Unmarshal(data, &page); err == nil {
				metrics.CacheHits.WithLabelValues("job_routes").Inc()
				return page.Results, page.Total, nil
			}
		}
		metrics.CacheMisses.WithLabelValues("job_routes").Inc()
	}

	results, total, err := s.results.ListByJob(ctx, jobID, limit, offset)
	if err != nil {
		return nil, 0, err
	}

	if finished && s.cache != nil {
		ttl := s.settings.RoutesCacheTTL
		if ttl <= 0 {
			ttl = 300
		}
		if data, err := json.Marshal(routesPage{Results: results, Total: total}); err == nil {
			_ = s.cache.Set(ctx, cacheKey, data, ttl)
		}
	}

	return results, total, nil
}

func clampPage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

func validateRequest(req domain.JobRequest) error {
	if req.Start == nil || req.Start.Lat == nil || req.Start.Lon == nil {
		return fmt.Errorf("start point with lat and lon is required: %w", domain.ErrInvalidInput)
	}
	if !inRange(*req.Start.Lat, *req.Start.Lon) {
		return fmt.Errorf("start point out of range: %w", domain.ErrInvalidInput)
	}

	hasRadius := req.RadiusMeters != nil
	hasPolygon := len(req.Polygon) > 0
	if hasRadius == hasPolygon {
		return fmt.Errorf("exactly one of radius_m or polygon is required: %w", domain.ErrInvalidInput)
	}
	if hasRadius && *req.RadiusMeters <= 0 {
		return fmt.Errorf("radius_m must be positive: %w", domain.ErrInvalidInput)
	}
	if hasPolygon {
		if len(req.Polygon) < 3 {
			return fmt.Errorf("polygon needs at least 3 vertices: %w", domain.ErrInvalidInput)
		}
		for i, v := range req.Polygon {
			if !inRange(v.Lat, v.Lon) {
				return fmt.Errorf("polygon vertex %d out of range: %w", i+1, domain.ErrInvalidInput)
			}
		}
	}

	if req.End != nil {
		if req.End.Lat == nil || req.End.Lon == nil {
			return fmt.Errorf("end point needs both lat and lon: %w", domain.ErrInvalidInput)
		}
		if !inRange(*req.End.Lat, *req.End.Lon) {
			return fmt.Errorf("end point out of range: %w", domain.ErrInvalidInput)
		}
	}

	for i, wp := range req.Waypoints {
		if wp.Lat == nil || wp.Lon == nil {
			return fmt.Errorf("waypoint %d needs both lat and lon: %w", i+1, domain.ErrInvalidInput)
		}
		if !inRange(*wp.Lat, *wp.Lon) {
			return fmt.Errorf("waypoint %d out of range: %w", i+1, domain.ErrInvalidInput)
		}
	}

	return nil
}

func inRange(lat, lon float64) bool {
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}
