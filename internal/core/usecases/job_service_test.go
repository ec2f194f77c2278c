package usecases_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/mbenedetti/percorsi/internal/core/domain"
	"github.com/mbenedetti/percorsi/internal/core/usecases"
)

// --- Mock ports ---

type mockJobRepo struct {
	createFn         func(ctx context.Context, job *domain.Job) error
	getByIDFn        func(ctx context.Context, id string) (*domain.Job, error)
	listFn           func(ctx context.Context, limit, offset int) ([]domain.Job, int, error)
	updateProgressFn func(ctx context.Context, id string, snap domain.ProgressSnapshot) error
	markCompletedFn  func(ctx context.Context, id string, routeCount int, overall *domain.OverallStatistics) error
	markFailedFn     func(ctx context.Context, id string, reason string) error
}

func (m *mockJobRepo) Create(ctx context.Context, job *domain.Job) error {
	if m.createFn != nil {
		return m.createFn(ctx, job)
	}
	return nil
}

func (m *mockJobRepo) GetByID(ctx context.Context, id string) (*domain.Job, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, domain.ErrJobNotFound
}

func (m *mockJobRepo) List(ctx context.Context, limit, offset int) ([]domain.Job, int, error) {
	if m.listFn != nil {
		return m.listFn(ctx, limit, offset)
	}
	return nil, 0, nil
}

func (m *mockJobRepo) UpdateProgress(ctx context.Context, id string, snap domain.ProgressSnapshot) error {
	if m.updateProgressFn != nil {
		return m.updateProgressFn(ctx, id, snap)
	}
	return nil
}

func (m *mockJobRepo) MarkCompleted(ctx context.Context, id string, routeCount int, overall *domain.OverallStatistics) error {
	if m.markCompletedFn != nil {
		return m.markCompletedFn(ctx, id, routeCount, overall)
	}
	return nil
}

func (m *mockJobRepo) MarkFailed(ctx context.Context, id string, reason string) error {
	if m.markFailedFn != nil {
		return m.markFailedFn(ctx, id, reason)
	}
	return nil
}

type mockResultRepo struct {
	insertBatchFn func(ctx context.Context, results []domain.RouteResult) error
	listByJobFn   func(ctx context.Context, jobID string, limit, offset int) ([]domain.RouteResult, int, error)
}

func (m *mockResultRepo) InsertBatch(ctx context.Context, results []domain.RouteResult) error {
	if m.insertBatchFn != nil {
		return m.insertBatchFn(ctx, results)
	}
	return nil
}

func (m *mockResultRepo) ListByJob(ctx context.Context, jobID string, limit, offset int) ([]domain.RouteResult, int, error) {
	if m.listByJobFn != nil {
		return m.listByJobFn(ctx, jobID, limit, offset)
	}
	return nil, 0, nil
}

type mockGraphProvider struct {
	loadFn func(ctx context.Context, req domain.GraphRequest) (*domain.Graph, error)
}

func (m *mockGraphProvider) Load(ctx context.Context, req domain.GraphRequest) (*domain.Graph, error) {
	if m.loadFn != nil {
		return m.loadFn(ctx, req)
	}
	return nil, domain.ErrGraphUnavailable
}

type mockIndex struct {
	nearestFn func(ctx context.Context, g *domain.Graph, lat, lon float64) (domain.NodeID, error)
}

func (m *mockIndex) Nearest(ctx context.Context, g *domain.Graph, lat, lon float64) (domain.NodeID, error) {
	if m.nearestFn != nil {
		return m.nearestFn(ctx, g, lat, lon)
	}
	return 0, domain.ErrNodeNotFound
}

type mockPublisher struct {
	progressFn  func(ctx context.Context, jobID string, snap domain.ProgressSnapshot) error
	completedFn func(ctx context.Context, job *domain.Job) error
	failedFn    func(ctx context.Context, job *domain.Job) error
}

func (m *mockPublisher) PublishProgress(ctx context.Context, jobID string, snap domain.ProgressSnapshot) error {
	if m.progressFn != nil {
		return m.progressFn(ctx, jobID, snap)
	}
	return nil
}

func (m *mockPublisher) PublishJobCompleted(ctx context.Context, job *domain.Job) error {
	if m.completedFn != nil {
		return m.completedFn(ctx, job)
	}
	return nil
}

func (m *mockPublisher) PublishJobFailed(ctx context.Context, job *domain.Job) error {
	if m.failedFn != nil {
		return m.failedFn(ctx, job)
	}
	return nil
}

type mockCache struct {
	store map[string][]byte
	getFn func(ctx context.Context, key string) ([]byte, error)
	setFn func(ctx context.Context, key string, value []byte, ttlSeconds int) error
}

func newMockCache() *mockCache {
	return &mockCache{store: make(map[string][]byte)}
}

func (m *mockCache) Get(ctx context.Context, key string) ([]byte, error) {
	if m.getFn != nil {
		return m.getFn(ctx, key)
	}
	if data, ok := m.store[key]; ok {
		return data, nil
	}
	return nil, errors.New("cache miss")
}

func (m *mockCache) Set(ctx context.Context, key string, value []byte, ttlSeconds int) error {
	if m.setFn != nil {
		return m.setFn(ctx, key, value, ttlSeconds)
	}
	m.store[key] = value
	return nil
}

func (m *mockCache) Delete(ctx context.Context, key string) error {
	delete(m.store, key)
	return nil
}

// --- Helpers ---

func f64(v float64) *float64 { return &v }

// cornerGraph is three nodes with a right-angle bend at node 2, both
// edges 100 m long.
func cornerGraph(t *testing.T) *domain.Graph {
	t.Helper()
	g := domain.NewGraph()
	g.AddNode(domain.Node{ID: 1, Lat: 0, Lon: 0})
	g.AddNode(domain.Node{ID: 2, Lat: 0, Lon: 0.001})
	g.AddNode(domain.Node{ID: 3, Lat: 0.001, Lon: 0.001})
	mustAddEdge(t, g, domain.Edge{From: 1, To: 2, Length: f64(100), RoadType: "residential"})
	mustAddEdge(t, g, domain.Edge{From: 2, To: 3, Length: f64(100), RoadType: "primary"})
	return g
}

// splitGraph offers two node-disjoint ways from node 1 to node 4.
func splitGraph(t *testing.T) *domain.Graph {
	t.Helper()
	g := domain.NewGraph()
	g.AddNode(domain.Node{ID: 1, Lat: 0, Lon: 0})
	g.AddNode(domain.Node{ID: 2, Lat: 0, Lon: 0.001})
	g.AddNode(domain.Node{ID: 3, Lat: 0.001, Lon: 0})
	g.AddNode(domain.Node{ID: 4, Lat: 0.001, Lon: 0.001})
	mustAddEdge(t, g, domain.Edge{From: 1, To: 2, Length: f64(100)})
	mustAddEdge(t, g, domain.Edge{From: 1, To: 3, Length: f64(100)})
	mustAddEdge(t, g, domain.Edge{From: 2, To: 4, Length: f64(100)})
	mustAddEdge(t, g, domain.Edge{From: 3, To: 4, Length: f64(100)})
	return g
}

func mustAddEdge(t *testing.T, g *domain.Graph, e domain.Edge) {
	t.Helper()
	if err := g.AddEdge(e); err != nil {
		t.Fatalf("add edge: %v", err)
	}
}

// coordIndex resolves coordinates to the node with exactly matching
// position, which is all the service tests need.
func coordIndex() *mockIndex {
	return &mockIndex{
		nearestFn: func(ctx context.Context, g *domain.Graph, lat, lon float64) (domain.NodeID, error) {
			for _, id := range g.NodeIDs() {
				n, _ := g.Node(id)
				if n.Lat == lat && n.Lon == lon {
					return id, nil
				}
			}
			return 0, domain.ErrNodeNotFound
		},
	}
}

func newService(jobs *mockJobRepo, results *mockResultRepo, g *domain.Graph, cache *mockCache, pub *mockPublisher) *usecases.JobService {
	provider := &mockGraphProvider{
		loadFn: func(ctx context.Context, req domain.GraphRequest) (*domain.Graph, error) {
			return g, nil
		},
	}
	if pub == nil {
		pub = &mockPublisher{}
	}
	settings := usecases.PlannerSettings{DefaultNetwork: "drive", RoutesCacheTTL: 60}
	// A nil *mockCache must not reach the service as a non-nil interface.
	if cache == nil {
		return usecases.NewJobService(jobs, results, provider, coordIndex(), pub, nil, settings)
	}
	return usecases.NewJobService(jobs, results, provider, coordIndex(), pub, cache, settings)
}

// --- CreateJob ---

func TestCreateJob_Valid(t *testing.T) {
	var created *domain.Job
	jobs := &mockJobRepo{
		createFn: func(ctx context.Context, job *domain.Job) error {
			created = job
			return nil
		},
	}
	svc := newService(jobs, &mockResultRepo{}, cornerGraph(t), nil, nil)

	req := domain.JobRequest{
		Start:        &domain.Waypoint{Lat: f64(0), Lon: f64(0)},
		RadiusMeters: f64(500),
	}
	job, err := svc.CreateJob(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if created == nil {
		t.Fatal("job was not persisted")
	}
	if job.ID == "" {
		t.Error("expected a generated job id")
	}
	if job.Status() != "running" {
		t.Errorf("expected status running, got %s", job.Status())
	}
	if job.NetworkType != "drive" {
		t.Errorf("expected default network type drive, got %s", job.NetworkType)
	}
}

func TestCreateJob_MissingStart(t *testing.T) {
	svc := newService(&mockJobRepo{}, &mockResultRepo{}, cornerGraph(t), nil, nil)

	_, err := svc.CreateJob(context.Background(), domain.JobRequest{RadiusMeters: f64(500)})
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestCreateJob_RegionChoice(t *testing.T) {
	svc := newService(&mockJobRepo{}, &mockResultRepo{}, cornerGraph(t), nil, nil)
	start := &domain.Waypoint{Lat: f64(0), Lon: f64(0)}
	triangle := []domain.GeoPoint{{Lat: 0, Lon: 0}, {Lat: 0, Lon: 1}, {Lat: 1, Lon: 0}}

	cases := []struct {
		name string
		req  domain.JobRequest
		ok   bool
	}{
		{"radius only", domain.JobRequest{Start: start, RadiusMeters: f64(500)}, true},
		{"polygon only", domain.JobRequest{Start: start, Polygon: triangle}, true},
		{"both", domain.JobRequest{Start: start, RadiusMeters: f64(500), Polygon: triangle}, false},
		{"neither", domain.JobRequest{Start: start}, false},
		{"zero radius", domain.JobRequest{Start: start, RadiusMeters: f64(0)}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.CreateJob(context.Background(), tc.req)
			if tc.ok && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !tc.ok && !errors.Is(err, domain.ErrInvalidInput) {
				t.Fatalf("expected ErrInvalidInput, got %v", err)
			}
		})
	}
}

func TestCreateJob_BrokenWaypoint(t *testing.T) {
	svc := newService(&mockJobRepo{}, &mockResultRepo{}, cornerGraph(t), nil, nil)

	req := domain.JobRequest{
		Start:        &domain.Waypoint{Lat: f64(0), Lon: f64(0)},
		RadiusMeters: f64(500),
		Waypoints:    []domain.Waypoint{{Lat: f64(0)}},
	}
	_, err := svc.CreateJob(context.Background(), req)
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if !strings.Contains(err.Error(), "waypoint 1") {
		t.Errorf("expected the waypoint index in the message, got %q", err)
	}
}

// --- Execute ---

func TestExecute_SingleTarget(t *testing.T) {
	var (
		completedCount int
		overall        *domain.OverallStatistics
		inserted       []domain.RouteResult
		published      bool
	)
	jobs := &mockJobRepo{
		markCompletedFn: func(ctx context.Context, id string, routeCount int, ov *domain.OverallStatistics) error {
			completedCount = routeCount
			overall = ov
			return nil
		},
	}
	results := &mockResultRepo{
		insertBatchFn: func(ctx context.Context, rs []domain.RouteResult) error {
			inserted = rs
			return nil
		},
	}
	pub := &mockPublisher{
		completedFn: func(ctx context.Context, job *domain.Job) error {
			published = true
			return nil
		},
	}
	svc := newService(jobs, results, cornerGraph(t), nil, pub)

	job := &domain.Job{
		ID:          "job-1",
		NetworkType: "drive",
		ReturnCode:  domain.ReturnCodeRunning,
		Request: domain.JobRequest{
			Start:        &domain.Waypoint{Lat: f64(0), Lon: f64(0)},
			End:          &domain.Waypoint{Lat: f64(0.001), Lon: f64(0.001)},
			RadiusMeters: f64(500),
		},
	}
	if err := svc.Execute(context.Background(), job); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if completedCount != 1 {
		t.Fatalf("expected 1 route recorded, got %d", completedCount)
	}
	if overall == nil || overall.Shortest == nil {
		t.Fatal("expected aggregate statistics")
	}
	if overall.Shortest.DistanceMeters != 200 {
		t.Errorf("expected 200 m shortest, got %f", overall.Shortest.DistanceMeters)
	}
	if len(inserted) != 1 {
		t.Fatalf("expected 1 stored route, got %d", len(inserted))
	}
	if len(inserted[0].Polyline) != 3 {
		t.Errorf("expected a 3-point polyline, got %d", len(inserted[0].Polyline))
	}
	if inserted[0].Stats.Turns != 1 {
		t.Errorf("expected 1 turn at the corner, got %d", inserted[0].Stats.Turns)
	}
	if inserted[0].Stats.DistanceMeters != 200 {
		t.Errorf("expected 200 m, got %f", inserted[0].Stats.DistanceMeters)
	}
	if job.Status() != "completed" {
		t.Errorf("expected status completed, got %s", job.Status())
	}
	if !published {
		t.Error("completion was not published")
	}
}

func TestExecute_AllTargetsReportsProgress(t *testing.T) {
	var snaps []domain.ProgressSnapshot
	jobs := &mockJobRepo{
		updateProgressFn: func(ctx context.Context, id string, snap domain.ProgressSnapshot) error {
			snaps = append(snaps, snap)
			return nil
		},
	}
	var publishedSnaps int
	pub := &mockPublisher{
		progressFn: func(ctx context.Context, jobID string, snap domain.ProgressSnapshot) error {
			publishedSnaps++
			return nil
		},
	}
	var routeCount int
	jobs.markCompletedFn = func(ctx context.Context, id string, rc int, ov *domain.OverallStatistics) error {
		routeCount = rc
		return nil
	}
	svc := newService(jobs, &mockResultRepo{}, cornerGraph(t), nil, pub)

	job := &domain.Job{
		ID:         "job-2",
		ReturnCode: domain.ReturnCodeRunning,
		Request: domain.JobRequest{
			Start:        &domain.Waypoint{Lat: f64(0), Lon: f64(0)},
			RadiusMeters: f64(500),
		},
	}
	if err := svc.Execute(context.Background(), job); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Two targets, one snapshot each.
	if len(snaps) != 2 {
		t.Fatalf("expected 2 progress snapshots, got %d", len(snaps))
	}
	if snaps[0].Completed != 1 || snaps[0].Total != 2 {
		t.Errorf("unexpected first snapshot: %+v", snaps[0])
	}
	if snaps[1].Completed != 2 {
		t.Errorf("unexpected second snapshot: %+v", snaps[1])
	}
	if publishedSnaps != 2 {
		t.Errorf("expected 2 published snapshots, got %d", publishedSnaps)
	}
	// Paths 1-2 and 1-2-3.
	if routeCount != 2 {
		t.Errorf("expected 2 routes, got %d", routeCount)
	}
}

func TestExecute_WaypointFilter(t *testing.T) {
	var inserted []domain.RouteResult
	results := &mockResultRepo{
		insertBatchFn: func(ctx context.Context, rs []domain.RouteResult) error {
			inserted = rs
			return nil
		},
	}
	svc := newService(&mockJobRepo{}, results, splitGraph(t), nil, nil)

	job := &domain.Job{
		ID:         "job-3",
		ReturnCode: domain.ReturnCodeRunning,
		Request: domain.JobRequest{
			Start:        &domain.Waypoint{Lat: f64(0), Lon: f64(0)},
			End:          &domain.Waypoint{Lat: f64(0.001), Lon: f64(0.001)},
			RadiusMeters: f64(500),
			// Node 2 sits here, so the branch through node 3 is dropped.
			Waypoints: []domain.Waypoint{{Lat: f64(0), Lon: f64(0.001)}},
		},
	}
	if err := svc.Execute(context.Background(), job); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(inserted) != 1 {
		t.Fatalf("expected 1 surviving route, got %d", len(inserted))
	}
	if inserted[0].RouteID != 1 {
		t.Errorf("expected ordinal 1 after filtering, got %d", inserted[0].RouteID)
	}
	found := false
	for _, pt := range inserted[0].Polyline {
		if pt.Lat == 0 && pt.Lon == 0.001 {
			found = true
		}
	}
	if !found {
		t.Error("polyline does not pass through the waypoint node")
	}
}

func TestExecute_GraphLoadFailure(t *testing.T) {
	var failReason string
	jobs := &mockJobRepo{
		markFailedFn: func(ctx context.Context, id string, reason string) error {
			failReason = reason
			return nil
		},
	}
	provider := &mockGraphProvider{
		loadFn: func(ctx context.Context, req domain.GraphRequest) (*domain.Graph, error) {
			return nil, domain.ErrGraphUnavailable
		},
	}
	var failedPublished bool
	pub := &mockPublisher{
		failedFn: func(ctx context.Context, job *domain.Job) error {
			failedPublished = true
			return nil
		},
	}
	svc := usecases.NewJobService(jobs, &mockResultRepo{}, provider, coordIndex(), pub, nil,
		usecases.PlannerSettings{DefaultNetwork: "drive"})

	job := &domain.Job{
		ID:         "job-4",
		ReturnCode: domain.ReturnCodeRunning,
		Request: domain.JobRequest{
			Start:        &domain.Waypoint{Lat: f64(0), Lon: f64(0)},
			RadiusMeters: f64(500),
		},
	}
	err := svc.Execute(context.Background(), job)
	if !errors.Is(err, domain.ErrGraphUnavailable) {
		t.Fatalf("expected ErrGraphUnavailable, got %v", err)
	}
	if !strings.Contains(failReason, "load graph") {
		t.Errorf("expected the failure reason to name the stage, got %q", failReason)
	}
	if job.Status() != "failed" {
		t.Errorf("expected status failed, got %s", job.Status())
	}
	if !failedPublished {
		t.Error("failure was not published")
	}
}

func TestExecute_CanceledBeforeStart(t *testing.T) {
	var failReason string
	jobs := &mockJobRepo{
		markFailedFn: func(ctx context.Context, id string, reason string) error {
			failReason = reason
			return nil
		},
	}
	svc := newService(jobs, &mockResultRepo{}, cornerGraph(t), nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	job := &domain.Job{
		ID:         "job-5",
		ReturnCode: domain.ReturnCodeRunning,
		Request: domain.JobRequest{
			Start:        &domain.Waypoint{Lat: f64(0), Lon: f64(0)},
			RadiusMeters: f64(500),
		},
	}
	if err := svc.Execute(ctx, job); err == nil {
		t.Fatal("expected an error for the canceled job")
	}
	if !strings.Contains(failReason, "canceled") {
		t.Errorf("expected a cancellation reason, got %q", failReason)
	}
}

// --- Reads ---

func TestListJobs_ClampsLimit(t *testing.T) {
	var gotLimit int
	jobs := &mockJobRepo{
		listFn: func(ctx context.Context, limit, offset int) ([]domain.Job, int, error) {
			gotLimit = limit
			return nil, 0, nil
		},
	}
	svc := newService(jobs, &mockResultRepo{}, cornerGraph(t), nil, nil)

	_, _, _ = svc.ListJobs(context.Background(), 999, 0)
	if gotLimit != 100 {
		t.Errorf("expected limit clamped to 100, got %d", gotLimit)
	}
	_, _, _ = svc.ListJobs(context.Background(), 0, 0)
	if gotLimit != 20 {
		t.Errorf("expected default limit 20, got %d", gotLimit)
	}
}

func TestJobRoutes_CachesFinishedJobs(t *testing.T) {
	jobID := "aa855299-dd9e-4e2b-b2f4-8d0e60f63a01"
	repoCalls := 0
	jobs := &mockJobRepo{
		getByIDFn: func(ctx context.Context, id string) (*domain.Job, error) {
			return &domain.Job{ID: id, ReturnCode: domain.ReturnCodeCompleted, RouteCount: 1}, nil
		},
	}
	results := &mockResultRepo{
		listByJobFn: func(ctx context.Context, jobID string, limit, offset int) ([]domain.RouteResult, int, error) {
			repoCalls++
			return []domain.RouteResult{{JobID: jobID, RouteID: 1}}, 1, nil
		},
	}
	svc := newService(jobs, results, cornerGraph(t), newMockCache(), nil)

	for i := 0; i < 2; i++ {
		rs, total, err := svc.JobRoutes(context.Background(), jobID, 20, 0)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if total != 1 || len(rs) != 1 {
			t.Fatalf("expected 1 route, got %d of %d", len(rs), total)
		}
	}
	if repoCalls != 1 {
		t.Errorf("expected the second page read to hit the cache, got %d repo calls", repoCalls)
	}
}

func TestJobRoutes_RunningJobSkipsCache(t *testing.T) {
	jobs := &mockJobRepo{
		getByIDFn: func(ctx context.Context, id string) (*domain.Job, error) {
			return &domain.Job{ID: id, ReturnCode: domain.ReturnCodeRunning}, nil
		},
	}
	cache := newMockCache()
	cache.getFn = func(ctx context.Context, key string) ([]byte, error) {
		t.Error("cache consulted for a running job")
		return nil, errors.New("miss")
	}
	cache.setFn = func(ctx context.Context, key string, value []byte, ttlSeconds int) error {
		t.Error("cache written for a running job")
		return nil
	}
	svc := newService(jobs, &mockResultRepo{}, cornerGraph(t), cache, nil)

	if _, _, err := svc.JobRoutes(context.Background(), "aa855299-dd9e-4e2b-b2f4-8d0e60f63a02", 20, 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestJobRoutes_UnknownJob(t *testing.T) {
	svc := newService(&mockJobRepo{}, &mockResultRepo{}, cornerGraph(t), nil, nil)

	// Well-formed but unknown id hits the repository.
	_, _, err := svc.JobRoutes(context.Background(), "aa855299-dd9e-4e2b-b2f4-8d0e60f63a03", 20, 0)
	if !errors.Is(err, domain.ErrJobNotFound) {
		t.Fatalf("expected ErrJobNotFound, got %v", err)
	}
}

func TestGetJob_MalformedID(t *testing.T) {
	jobs := &mockJobRepo{
		getByIDFn: func(ctx context.Context, id string) (*domain.Job, error) {
			t.Error("repository reached with a malformed id")
			return nil, domain.ErrJobNotFound
		},
	}
	svc := newService(jobs, &mockResultRepo{}, cornerGraph(t), nil, nil)

	_, err := svc.GetJob(context.Background(), "not-a-uuid")
	if !errors.Is(err, domain.ErrJobNotFound) {
		t.Fatalf("expected ErrJobNotFound, got %v", err)
	}
}
