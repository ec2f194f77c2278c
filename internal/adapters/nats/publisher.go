package natsadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/mbenedetti/percorsi/internal/core/domain"
)

// Subject layout. Progress goes over core NATS because enumeration
// emits one snapshot per completed target and losing one is harmless;
// lifecycle events go through JetStream so late subscribers still see
// terminal states.
const (
	progressSubjectPrefix = "routes.progress."
	jobSubjectPrefix      = "routes.job."
)

// ProgressSubject returns the core-NATS subject carrying progress
// snapshots for a job.
func ProgressSubject(jobID string) string { return progressSubjectPrefix + jobID }

// JobSubject returns the JetStream subject for one lifecycle event,
// e.g. routes.job.<id>.completed.
func JobSubject(jobID, event string) string { return jobSubjectPrefix + jobID + "." + event }

// JobWildcard returns the subject matching every lifecycle event of a
// job.
func JobWildcard(jobID string) string { return jobSubjectPrefix + jobID + ".>" }

// Publisher implements ports.EventPublisher on NATS. Lifecycle events
// are persisted in the ROUTE_EVENTS stream for 24 hours.
type Publisher struct {
	conn *nats.Conn
	js   nats.JetStreamContext
}

// NewPublisher connects to NATS, enables JetStream, and ensures the
// lifecycle stream exists.
func NewPublisher(url string) (*Publisher, error) {
	conn, err := nats.Connect(url,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	js, err := conn.JetStream()
	if err != nil {
		return nil, fmt.Errorf("jetstream: %w", err)
	}

	cfg := nats.StreamConfig{
		Name:      "ROUTE_EVENTS",
		Subjects:  []string{jobSubjectPrefix + ">"},
		Retention: nats.LimitsPolicy,
		MaxAge:    24 * time.Hour,
		Storage:   nats.FileStorage,
	}
	if _, err := js.AddStream(&cfg); err != nil {
		// Stream may already exist; fall back to update.
		if _, err := js.UpdateStream(&cfg); err != nil {
			return nil, fmt.Errorf("ensure stream %s: %w", cfg.Name, err)
		}
	}

	return &Publisher{conn: conn, js: js}, nil
}

type progressEvent struct {
	Event      string  `json:"event"`
	JobID      string  `json:"job_id"`
	Completed  int     `json:"completed"`
	Total      int     `json:"total"`
	ETASeconds float64 `json:"eta_seconds"`
}

type lifecycleEvent struct {
	Event string      `json:"event"`
	JobID string      `json:"job_id"`
	Job   *domain.Job `json:"job"`
}

// PublishProgress broadcasts one progress snapshot. Delivery is
// best-effort: a dropped snapshot is superseded by the next one.
func (p *Publisher) PublishProgress(ctx context.Context, jobID string, snap domain.ProgressSnapshot) error {
	data, err := json.Marshal(progressEvent{
		Event:      "progress",
		JobID:      jobID,
		Completed:  snap.Completed,
		Total:      snap.Total,
		ETASeconds: snap.ETASeconds,
	})
	if err != nil {
		return err
	}
	return p.conn.Publish(ProgressSubject(jobID), data)
}

// PublishJobCompleted records the terminal completed event on the
// lifecycle stream. The full job document rides along so consumers
// need no follow-up read.
func (p *Publisher) PublishJobCompleted(ctx context.Context, job *domain.Job) error {
	return p.publishLifecycle(job, "completed")
}

// PublishJobFailed records the terminal failed event on the lifecycle
// stream.
func (p *Publisher) PublishJobFailed(ctx context.Context, job *domain.Job) error {
	return p.publishLifecycle(job, "failed")
}

func (p *Publisher) publishLifecycle(job *domain.Job, event string) error {
	data, err := json.Marshal(lifecycleEvent{Event: event, JobID: job.ID, Job: job})
	if err != nil {
		return err
	}
	_, err = p.js.Publish(JobSubject(job.ID, event), data)
	return err
}

// IsConnected reports broker connectivity for readiness checks.
func (p *Publisher) IsConnected() bool {
	return p.conn != nil && p.conn.IsConnected()
}

// Close drains and closes the connection.
func (p *Publisher) Close() {
	_ = p.conn.Drain()
}
