package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	httpapi "github.com/i474232898/smart-city-backend/internal/api/http"
	"github.com/i474232898/smart-city-backend/internal/config"
	"github.com/i474232898/smart-city-backend/internal/logging"
	"github.com/i474232898/smart-city-backend/internal/scheduler"
	"github.com/i474232898/smart-city-backend/internal/store"
	"github.com/i474232898/smart-city-backend/internal/traffic"
	"github.com/i474232898/smart-city-backend/internal/traffic/providers"
)

func main() {
	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to load config")
	}

	logging.Init(logging.Config{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
	})

	if cfg.TomTomAPIKey == "" {
		logging.Warn().Msg("TOMTOM_API_KEY is not set; heatmap points will use the default intensity")
	}

	// Shared HTTP client for outbound provider calls.
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
	}

	flow := providers.NewTomTomFlowProvider(httpClient, cfg.TomTomBaseURL, cfg.TomTomAPIKey)
	live := providers.NewLiveTrafficProvider(httpClient, cfg.LiveTrafficURL, cfg.LiveTrafficAPIKey)

	heatmap := traffic.NewService(flow, cfg.HTTPTimeout)

	// In-memory issue store with configured retention.
	issues := store.NewMemoryIssueStore(cfg.IssueMaxCount, cfg.IssueMaxAge)

	if cfg.IssueMaxAge > 0 {
		sched := scheduler.New(issues, cfg.IssuePruneInterval)
		if err := sched.Start(); err != nil {
			logging.Fatal().Err(err).Msg("failed to start scheduler")
		}
		defer sched.Stop()
	}

	app := httpapi.NewApp("smart-city-backend")

	// Global middleware
	app.Use(requestid.New())
	app.Use(logger.New(logger.Config{
		Format: "${status} ${method} ${path} ${latency} ${locals:requestid}\n",
		Output: logging.Logger(),
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.CORSAllowOrigins,
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": "smart-city-backend",
		})
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	// API routes.
	httpapi.RegisterRoutes(app, httpapi.Deps{
		Heatmap:         heatmap,
		Flow:            flow,
		Live:            live,
		Issues:          issues,
		UpstreamTimeout: cfg.HTTPTimeout,
	})

	// Dashboard front-end.
	app.Static("/", cfg.StaticDir)

	go func() {
		logging.Info().Str("port", cfg.Port).Msg("server listening")
		if err := app.Listen(":" + cfg.Port); err != nil {
			logging.Error().Err(err).Msg("fiber server stopped")
		}
	}()

	// Wait for termination signal
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logging.Error().Err(err).Msg("error during shutdown")
	}
}
