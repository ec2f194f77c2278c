package http

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"

	natsadapter "github.com/mbenedetti/percorsi/internal/adapters/nats"
	"github.com/mbenedetti/percorsi/internal/pkg/metrics"
)

// wsMessage is sent from client to follow or drop a job's event feed.
type wsMessage struct {
	Action string `json:"action"` // "subscribe" | "unsubscribe"
	JobID  string `json:"job_id"`
}

// WebSocketHandler returns a handler that upgrades to WebSocket and
// relays per-job progress and lifecycle events from NATS to the
// client. Clients send JSON: {"action":"subscribe","job_id":"<uuid>"}
// and receive every event published for that job until they
// unsubscribe or disconnect.
func WebSocketHandler(events *natsadapter.Subscriber) func(*websocket.Conn) {
	return func(c *websocket.Conn) {
		defer c.Close()

		remoteAddr := c.RemoteAddr().String()
		slog.Debug("ws client connected", "remote", remoteAddr)
		metrics.ActiveWebSockets.Inc()
		defer metrics.ActiveWebSockets.Dec()

		if events == nil {
			_ = c.WriteMessage(websocket.TextMessage, []byte(`{"error":"event relay not available"}`))
			return
		}

		// Serializes writes from the NATS callbacks, the ping loop, and
		// the read loop below.
		var mu sync.Mutex
		drops := make(map[string]func()) // job id -> unsubscribe

		writeJSON := func(v interface{}) error {
			data, err := json.Marshal(v)
			if err != nil {
				return err
			}
			mu.Lock()
			defer mu.Unlock()
			return c.WriteMessage(websocket.TextMessage, data)
		}

		// Keep-alive ping
		done := make(chan struct{})
		go func() {
			ticker := time.NewTicker(30 * time.Second)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					mu.Lock()
					err := c.WriteMessage(websocket.PingMessage, nil)
					mu.Unlock()
					if err != nil {
						return
					}
				case <-done:
					return
				}
			}
		}()

		// Read client messages for subscribe/unsubscribe
		for {
			_, msg, err := c.ReadMessage()
			if err != nil {
				break
			}

			var m wsMessage
			if err := json.Unmarshal(msg, &m); err != nil {
				_ = writeJSON(map[string]string{"error": "invalid JSON"})
				continue
			}
			if m.JobID == "" {
				_ = writeJSON(map[string]string{"error": "job_id is required"})
				continue
			}

			switch m.Action {
			case "subscribe":
				if _, exists := drops[m.JobID]; exists {
					_ = writeJSON(map[string]string{"status": "already subscribed", "job_id": m.JobID})
					continue
				}
				drop, err := events.SubscribeJob(m.JobID, func(data []byte) {
					_ = writeJSON(json.RawMessage(data))
				})
				if err != nil {
					_ = writeJSON(map[string]string{"error": "subscribe failed: " + err.Error()})
					continue
				}
				drops[m.JobID] = drop
				_ = writeJSON(map[string]string{"status": "subscribed", "job_id": m.JobID})

			case "unsubscribe":
				if drop, exists := drops[m.JobID]; exists {
					drop()
					delete(drops, m.JobID)
					_ = writeJSON(map[string]string{"status": "unsubscribed", "job_id": m.JobID})
				} else {
					_ = writeJSON(map[string]string{"error": "not subscribed to " + m.JobID})
				}

			default:
				_ = writeJSON(map[string]string{"error": "unknown action: " + m.Action})
			}
		}

		// Cleanup
		close(done)
		for _, drop := range drops {
			drop()
		}
		slog.Debug("ws client disconnected", "remote", remoteAddr)
	}
}
