package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/mbenedetti/percorsi/internal/core/domain"
)

// JobRepo implements ports.JobRepository with pgx.
type JobRepo struct {
	db *DB
}

// NewJobRepo creates a new JobRepo.
func NewJobRepo(db *DB) *JobRepo {
	return &JobRepo{db: db}
}

const jobColumns = `
	id, request, network_type, return_code, completed, total, eta_seconds,
	route_count, error, overall_stats, time_start, time_end, created_at, updated_at`

// Create inserts a new job row in the running state.
func (r *JobRepo) Create(ctx context.Context, job *domain.Job) error {
	request, err := json.Marshal(job.Request)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	_, err = r.db.Pool.Exec(ctx, `
		INSERT INTO jobs (id, request, network_type, return_code, time_start)
		VALUES ($1, $2, $3, $4, $5)
	`, job.ID, request, job.NetworkType, job.ReturnCode, job.TimeStart)
	return err
}

// GetByID returns a job by UUID.
func (r *JobRepo) GetByID(ctx context.Context, id string) (*domain.Job, error) {
	row := r.db.Pool.QueryRow(ctx, `
		SELECT `+jobColumns+`
		FROM jobs WHERE id = $1
	`, id)

	job, err := scanJob(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("job %s: %w", id, domain.ErrJobNotFound)
	}
	if err != nil {
		return nil, err
	}
	return job, nil
}

// List returns a page of jobs newest-first plus the total row count.
func (r *JobRepo) List(ctx context.Context, limit, offset int) ([]domain.Job, int, error) {
	var total int
	if err := r.db.Pool.QueryRow(ctx, `SELECT count(*) FROM jobs`).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.db.Pool.Query(ctx, `
		SELECT `+jobColumns+`
		FROM jobs
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var jobs []domain.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, 0, err
		}
		jobs = append(jobs, *job)
	}
	return jobs, total, rows.Err()
}

// UpdateProgress stores the latest enumeration snapshot.
func (r *JobRepo) UpdateProgress(ctx context.Context, id string, snap domain.ProgressSnapshot) error {
	_, err := r.db.Pool.Exec(ctx, `
		UPDATE jobs
		SET completed = $2, total = $3, eta_seconds = $4, updated_at = now()
		WHERE id = $1
	`, id, snap.Completed, snap.Total, snap.ETASeconds)
	return err
}

// MarkCompleted records a successful terminal state.
func (r *JobRepo) MarkCompleted(ctx context.Context, id string, routeCount int, overall *domain.OverallStatistics) error {
	stats, err := json.Marshal(overall)
	if err != nil {
		return fmt.Errorf("marshal overall stats: %w", err)
	}

	_, err = r.db.Pool.Exec(ctx, `
		UPDATE jobs
		SET return_code = $2, route_count = $3, overall_stats = $4,
		    eta_seconds = 0, time_end = now(), updated_at = now()
		WHERE id = $1
	`, id, domain.ReturnCodeCompleted, routeCount, stats)
	return err
}

// MarkFailed records a failed terminal state with its reason.
func (r *JobRepo) MarkFailed(ctx context.Context, id string, reason string) error {
	_, err := r.db.Pool.Exec(ctx, `
		UPDATE jobs
		SET return_code = $2, error = $3, time_end = now(), updated_at = now()
		WHERE id = $1
	`, id, domain.ReturnCodeFailed, reason)
	return err
}

func scanJob(row pgx.Row) (*domain.Job, error) {
	var (
		job     domain.Job
		request []byte
		overall []byte
	)
	err := row.Scan(
		&job.ID, &request, &job.NetworkType, &job.ReturnCode,
		&job.Completed, &job.Total, &job.ETASeconds,
		&job.RouteCount, &job.Error, &overall,
		&job.TimeStart, &job.TimeEnd, &job.CreatedAt, &job.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(request, &job.Request); err != nil {
		return nil, fmt.Errorf("decode request: %w", err)
	}
	if len(overall) > 0 {
		job.Overall = &domain.OverallStatistics{}
		if err := json.Unmarshal(overall, job.Overall); err != nil {
			return nil, fmt.Errorf("decode overall stats: %w", err)
		}
	}
	return &job, nil
}
