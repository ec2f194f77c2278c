package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/mbenedetti/percorsi/internal/adapters/graphfile"
	"github.com/mbenedetti/percorsi/internal/adapters/http"
	natsadapter "github.com/mbenedetti/percorsi/internal/adapters/nats"
	"github.com/mbenedetti/percorsi/internal/adapters/postgres"
	"github.com/mbenedetti/percorsi/internal/adapters/spatial"
	"github.com/mbenedetti/percorsi/internal/adapters/valkey"
	"github.com/mbenedetti/percorsi/internal/core/ports"
	"github.com/mbenedetti/percorsi/internal/core/usecases"
	"github.com/mbenedetti/percorsi/internal/pkg/config"
	"github.com/mbenedetti/percorsi/internal/pkg/logging"
	"github.com/mbenedetti/percorsi/internal/pkg/telemetry"
)

func main() {
	cfg, err := config.Load("percorsi-api")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Telemetry is a no-op until an OTLP endpoint is configured.
	shutdownTracer, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.OTLPEndpoint)
	if err != nil {
		slog.Warn("telemetry init failed", "error", err)
	} else {
		defer shutdownTracer()
	}

	// Database
	db, err := postgres.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()
	db.StartPoolMetrics(ctx, 15*time.Second)

	// Cache (optional)
	var cache *valkey.Cache
	if c, err := valkey.New(valkey.Options{
		Addr:     cfg.Valkey.Addr,
		Password: cfg.Valkey.Password,
		DB:       cfg.Valkey.DB,
	}); err != nil {
		slog.Warn("valkey unavailable, route caching disabled", "error", err)
	} else {
		cache = c
		defer cache.Close()
	}

	// NATS (optional): a publisher for the workers, a subscriber for
	// the WebSocket relay.
	var events ports.EventPublisher
	if pub, err := natsadapter.NewPublisher(cfg.NATS.URL); err != nil {
		slog.Warn("nats unavailable, events disabled", "error", err)
	} else {
		events = pub
		defer pub.Close()
	}

	var relay *natsadapter.Subscriber
	if sub, err := natsadapter.NewSubscriber(cfg.NATS.URL); err != nil {
		slog.Warn("nats relay unavailable, websocket updates disabled", "error", err)
	} else {
		relay = sub
		defer relay.Close()
	}

	// Graph store and spatial index
	graphs := graphfile.New(cfg.Graphs.Dir, cfg.Planner.RetainLargest)
	index := spatial.New()

	// A nil *valkey.Cache must stay a nil interface, or the service's
	// nil check passes vacuously and panics on use.
	var cacheSvc ports.CacheService
	if cache != nil {
		cacheSvc = cache
	}

	// Use cases
	jobSvc := usecases.NewJobService(
		postgres.NewJobRepo(db),
		postgres.NewRouteResultRepo(db),
		graphs,
		index,
		events,
		cacheSvc,
		usecases.PlannerSettings{
			MaxDepth:       cfg.Planner.MaxDepth,
			MaxRoutes:      cfg.Planner.MaxRoutes,
			LabelUntagged:  cfg.Planner.LabelUntagged,
			DefaultNetwork: cfg.Graphs.DefaultNetworkType,
			RoutesCacheTTL: cfg.Cache.RoutesTTLSeconds,
		},
	)
	runner := usecases.NewJobRunner(jobSvc, cfg.Planner.Workers, cfg.Planner.QueueSize)
	runner.Start()

	deps := &http.Dependencies{
		Jobs:   jobSvc,
		Runner: runner,
		Graphs: graphs,
		Index:  index,
		Events: relay,
		DB:     db,
		Cache:  cache,
	}

	// Fiber
	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    1024 * 1024, // 1 MB max request body
		AppName:      "Percorsi API",
	})
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     "http://localhost:3000, http://localhost:5173",
		AllowMethods:     "GET,POST,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: false,
		MaxAge:           3600,
	}))

	http.SetupRoutes(app, deps)

	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		slog.Info("API server starting",
			"addr", addr,
			"graphs_dir", cfg.Graphs.Dir,
			"workers", cfg.Planner.Workers)
		if err := app.Listen(addr); err != nil {
			log.Fatalf("listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	slog.Info("shutdown signal received, draining connections...", "signal", sig.String())

	// Give in-flight requests up to 10s to complete
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		slog.Error("forced shutdown", "error", err)
	}

	// Let running jobs reach a terminal state before the pool closes.
	runner.Stop()

	slog.Info("server stopped")
}
