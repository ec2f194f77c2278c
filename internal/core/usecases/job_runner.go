package usecases

import (
	"context"
	"log/slog"
	"sync"

	"github.com/mbenedetti/percorsi/internal/core/domain"
	"github.com/mbenedetti/percorsi/internal/pkg/metrics"
)

// queuedJob pairs a job with the context its execution runs under.
// The context is detached from the submitting request so a job
// survives the HTTP call that created it.
type queuedJob struct {
	ctx context.Context
	job *domain.Job
}

// JobRunner executes jobs on a fixed pool of workers fed by a bounded
// queue. Submissions that find the queue full are rejected and the
// job is marked failed immediately.
type JobRunner struct {
	svc     *JobService
	queue   chan queuedJob
	workers int

	mu      sync.Mutex
	cancels map[string]context.CancelFunc
	closed  bool

	wg sync.WaitGroup
}

// NewJobRunner creates a runner with the given pool size and queue
// capacity. Non-positive values fall back to 4 workers and a queue
// of 64.
func NewJobRunner(svc *JobService, workers, queueSize int) *JobRunner {
	if workers <= 0 {
		workers = 4
	}
	if queueSize <= 0 {
		queueSize = 64
	}
	return &JobRunner{
		svc:     svc,
		queue:   make(chan queuedJob, queueSize),
		workers: workers,
		cancels: make(map[string]context.CancelFunc),
	}
}

// Start launches the worker pool.
func (r *JobRunner) Start() {
	for i := 0; i < r.workers; i++ {
		r.wg.Add(1)
		go r.worker()
	}
	slog.Info("job runner started", "workers", r.workers, "queue_size", cap(r.queue))
}

// Submit queues a job for execution. A full queue rejects the job,
// marks it failed, and returns ErrQueueFull.
func (r *JobRunner) Submit(job *domain.Job) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		metrics.JobsRejected.Inc()
		r.svc.FailJob(context.Background(), job, domain.ErrQueueFull)
		return domain.ErrQueueFull
	}

	ctx, cancel := context.WithCancel(context.Background())
	select {
	case r.queue <- queuedJob{ctx: ctx, job: job}:
		r.cancels[job.ID] = cancel
		r.mu.Unlock()
		metrics.QueuedJobs.Inc()
		return nil
	default:
		r.mu.Unlock()
		cancel()
		metrics.JobsRejected.Inc()
		r.svc.FailJob(context.Background(), job, domain.ErrQueueFull)
		return domain.ErrQueueFull
	}
}

// Cancel aborts a queued or running job. It reports whether the job
// was known to the runner; finished jobs are not.
func (r *JobRunner) Cancel(id string) bool {
	r.mu.Lock()
	cancel, ok := r.cancels[id]
	r.mu.Unlock()

	if ok {
		cancel()
	}
	return ok
}

// Stop rejects further submissions, cancels everything queued or
// running, and waits for the workers to drain.
func (r *JobRunner) Stop() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	cancels := make([]context.CancelFunc, 0, len(r.cancels))
	for _, c := range r.cancels {
		cancels = append(cancels, c)
	}
	r.mu.Unlock()

	for _, c := range cancels {
		c()
	}
	close(r.queue)
	r.wg.Wait()
	slog.Info("job runner stopped")
}

func (r *JobRunner) worker() {
	defer r.wg.Done()
	for item := range r.queue {
		metrics.QueuedJobs.Dec()
		// Terminal state, including cancellation, is recorded by Execute.
		_ = r.svc.Execute(item.ctx, item.job)
		r.release(item.job.ID)
	}
}

// release drops the cancel registration once a job reached a terminal
// state. Canceling an already finished context is a no-op.
func (r *JobRunner) release(id string) {
	r.mu.Lock()
	cancel, ok := r.cancels[id]
	delete(r.cancels, id)
	r.mu.Unlock()

	if ok {
		cancel()
	}
}
