package metrics

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
)

var (
	// HTTP metrics
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "percorsi",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total HTTP requests processed",
	}, []string{"method", "path", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "percorsi",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency in seconds",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	}, []string{"method", "path"})

	httpResponseSize = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "percorsi",
		Subsystem: "http",
		Name:      "response_size_bytes",
		Help:      "HTTP response size in bytes",
		Buckets:   prometheus.ExponentialBuckets(100, 10, 6),
	}, []string{"method", "path"})

	// Job metrics
	JobsSubmitted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "percorsi",
		Subsystem: "jobs",
		Name:      "submitted_total",
		Help:      "Total route jobs accepted for execution",
	})

	JobsCompleted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "percorsi",
		Subsystem: "jobs",
		Name:      "completed_total",
		Help:      "Total route jobs finished successfully",
	})

	JobsFailed = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "percorsi",
		Subsystem: "jobs",
		Name:      "failed_total",
		Help:      "Total route jobs that ended in failure, cancellations included",
	})

	JobsRejected = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "percorsi",
		Subsystem: "jobs",
		Name:      "rejected_total",
		Help:      "Total route jobs rejected because the queue was full",
	})

	ActiveJobs = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "percorsi",
		Subsystem: "jobs",
		Name:      "active",
		Help:      "Route jobs currently executing",
	})

	QueuedJobs = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "percorsi",
		Subsystem: "jobs",
		Name:      "queued",
		Help:      "Route jobs waiting for a worker",
	})

	JobDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "percorsi",
		Subsystem: "jobs",
		Name:      "duration_seconds",
		Help:      "Wall-clock duration of completed route jobs",
		Buckets:   []float64{0.1, 0.5, 1, 5, 15, 60, 300, 900, 3600},
	})

	RoutesPerJob = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "percorsi",
		Subsystem: "jobs",
		Name:      "routes_found",
		Help:      "Distinct routes produced per completed job",
		Buckets:   prometheus.ExponentialBuckets(1, 4, 10),
	})

	ProgressEvents = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "percorsi",
		Subsystem: "jobs",
		Name:      "progress_events_total",
		Help:      "Progress snapshots emitted by running enumerations",
	})

	// Graph metrics
	GraphLoadDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "percorsi",
		Subsystem: "graph",
		Name:      "load_duration_seconds",
		Help:      "Time to produce a job-ready graph, cache hits included",
		Buckets:   []float64{0.005, 0.025, 0.1, 0.5, 1, 5, 15, 60},
	}, []string{"network_type"})

	GraphCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "percorsi",
		Subsystem: "graph",
		Name:      "cache_hits_total",
		Help:      "Base graph loads served from the in-memory cache",
	})

	GraphCacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "percorsi",
		Subsystem: "graph",
		Name:      "cache_misses_total",
		Help:      "Base graph loads that had to parse the source file",
	})

	ActiveWebSockets = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "percorsi",
		Subsystem: "ws",
		Name:      "active_connections",
		Help:      "Current number of active WebSocket connections",
	})

	CacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "percorsi",
		Subsystem: "cache",
		Name:      "hits_total",
		Help:      "Total cache hits",
	}, []string{"operation"})

	CacheMisses = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "percorsi",
		Subsystem: "cache",
		Name:      "misses_total",
		Help:      "Total cache misses",
	}, []string{"operation"})

	// Database pool metrics
	DBPoolConnsOpen = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "percorsi",
		Subsystem: "db",
		Name:      "pool_conns_open",
		Help:      "Total connections open in the database pool",
	})

	DBPoolConnsAcquired = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "percorsi",
		Subsystem: "db",
		Name:      "pool_conns_acquired",
		Help:      "Connections currently acquired from the database pool",
	})

	DBPoolConnsIdle = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "percorsi",
		Subsystem: "db",
		Name:      "pool_conns_idle",
		Help:      "Idle connections in the database pool",
	})
)

// Middleware records request metrics.
func Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Response().StatusCode())
		path := c.Route().Path
		if path == "" {
			path = c.Path()
		}
		method := c.Method()

		httpRequestsTotal.WithLabelValues(method, path, status).Inc()
		httpRequestDuration.WithLabelValues(method, path).Observe(duration)
		httpResponseSize.WithLabelValues(method, path).Observe(float64(len(c.Response().Body())))

		return err
	}
}

// Handler returns a Fiber handler serving the Prometheus /metrics endpoint.
func Handler() fiber.Handler {
	handler := promhttp.Handler()
	return func(c *fiber.Ctx) error {
		fasthttpadaptor.NewFastHTTPHandler(handler)(c.Context())
		return nil
	}
}

// UpdateDBPoolMetrics updates database pool gauges from pgx pool stats.
// The stat parameter is matched structurally so this package does not
// import pgxpool.
func UpdateDBPoolMetrics(stat interface{}) {
	type poolStat interface {
		AcquiredConns() int32
		IdleConns() int32
		TotalConns() int32
	}

	if s, ok := stat.(poolStat); ok {
		DBPoolConnsAcquired.Set(float64(s.AcquiredConns()))
		DBPoolConnsIdle.Set(float64(s.IdleConns()))
		DBPoolConnsOpen.Set(float64(s.TotalConns()))
	}
}
