package natsadapter

import (
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
)

// Subscriber delivers per-job event feeds to in-process consumers,
// mainly the WebSocket relay. It listens over core NATS: progress
// arrives on routes.progress.<id> and lifecycle events are mirrored
// from the ROUTE_EVENTS stream subjects.
type Subscriber struct {
	conn *nats.Conn
}

// NewSubscriber dials a dedicated relay connection.
func NewSubscriber(url string) (*Subscriber, error) {
	conn, err := nats.Connect(url,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	return &Subscriber{conn: conn}, nil
}

// SubscribeJob routes every event published for one job to fn and
// returns a function dropping both subscriptions. Payloads are the
// raw event documents, self-describing through their "event" field.
func (s *Subscriber) SubscribeJob(jobID string, fn func(data []byte)) (func(), error) {
	handler := func(msg *nats.Msg) { fn(msg.Data) }

	progress, err := s.conn.Subscribe(ProgressSubject(jobID), handler)
	if err != nil {
		return nil, fmt.Errorf("subscribe progress: %w", err)
	}
	lifecycle, err := s.conn.Subscribe(JobWildcard(jobID), handler)
	if err != nil {
		_ = progress.Unsubscribe()
		return nil, fmt.Errorf("subscribe lifecycle: %w", err)
	}

	return func() {
		_ = progress.Unsubscribe()
		_ = lifecycle.Unsubscribe()
	}, nil
}

// IsConnected reports broker connectivity for readiness checks.
func (s *Subscriber) IsConnected() bool {
	return s.conn != nil && s.conn.IsConnected()
}

// Close drains the relay connection.
func (s *Subscriber) Close() {
	_ = s.conn.Drain()
}
