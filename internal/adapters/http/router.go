package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/fiber/v2/middleware/timeout"
	"github.com/gofiber/websocket/v2"

	"github.com/mbenedetti/percorsi/internal/pkg/metrics"
)

// SetupRoutes registers all REST, GraphQL, and WebSocket routes.
func SetupRoutes(app *fiber.App, deps *Dependencies) {
	// Prometheus metrics
	app.Use(metrics.Middleware())
	app.Get("/metrics", metrics.Handler())

	// Response compression (gzip)
	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed, // Balance speed vs compression ratio
	}))

	// Request ID
	app.Use(requestid.New())

	// Propagate request ID into slog context
	app.Use(RequestIDLogMiddleware())

	// Access logs (structured HTTP request logging)
	app.Use(AccessLogMiddleware())

	// Rate limiting: 120 requests per minute per IP
	app.Use(limiter.New(limiter.Config{
		Max:        120,
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(429).JSON(fiber.Map{
				"error":   "rate limit exceeded",
				"message": "too many requests, please try again later",
			})
		},
		SkipFailedRequests: false,
	}))

	// Security headers + API version
	app.Use(func(c *fiber.Ctx) error {
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-Frame-Options", "DENY")
		c.Set("X-XSS-Protection", "1; mode=block")
		c.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Set("X-API-Version", "1.0.0")
		return c.Next()
	})

	// ETag for conditional caching
	app.Use(ETagMiddleware())

	// Default Cache-Control headers
	app.Use(CachingMiddleware())

	// Health & readiness (no timeout — fast internal checks)
	app.Get("/v1/health", HealthHandler(deps))
	app.Get("/v1/ready", ReadyHandler(deps))

	// REST API v1 — 15s per-request timeout
	v1 := app.Group("/v1")
	v1.Post("/jobs", timeout.NewWithContext(CreateJobHandler(deps), 15*time.Second))
	v1.Get("/jobs", timeout.NewWithContext(ListJobsHandler(deps), 15*time.Second))
	v1.Get("/jobs/:id", timeout.NewWithContext(GetJobHandler(deps), 15*time.Second))
	v1.Post("/jobs/:id/cancel", timeout.NewWithContext(CancelJobHandler(deps), 15*time.Second))
	v1.Get("/jobs/:id/routes", timeout.NewWithContext(JobRoutesHandler(deps), 15*time.Second))
	v1.Get("/networks", timeout.NewWithContext(ListNetworksHandler(deps), 15*time.Second))
	v1.Get("/networks/:type/nearest", timeout.NewWithContext(NearestNodeHandler(deps), 15*time.Second))

	// Legacy submission endpoint, shimmed onto the jobs pipeline until
	// the last clients migrate
	app.Post("/start_job",
		DeprecationMiddleware([]DeprecatedRoute{{
			Path:        "/start_job",
			SunsetDate:  time.Date(2027, time.January, 31, 0, 0, 0, 0, time.UTC),
			Alternative: "/v1/jobs",
		}}),
		timeout.NewWithContext(StartJobHandler(deps), 15*time.Second))

	// GraphQL
	app.Post("/graphql", GraphQLHandler(deps))

	// API documentation (Swagger UI)
	SetupDocs(app)

	// WebSocket
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws", websocket.New(WebSocketHandler(deps.Events)))
}
