package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"logistics-dashboard/internal/config"
	"logistics-dashboard/internal/middleware"
	"logistics-dashboard/internal/observability"
	"logistics-dashboard/internal/server"
	"logistics-dashboard/internal/services"
)

const (
	datasetLoadTimeout = 2 * time.Minute
	visitorSweepEvery  = time.Minute
)

// newHandler builds the routed server behind the full middleware chain.
func newHandler(cfg *config.Config, dashboard *services.Dashboard, limiter *middleware.RateLimiter, logger *slog.Logger) http.Handler {
	srv := server.NewServer(dashboard, logger)

	middlewareChain := middleware.Chain(
		middleware.Recovery(logger),
		middleware.RequestID(),
		middleware.Logger(logger),
		middleware.Tracing(logger),
		middleware.SecurityHeaders(),
		middleware.CORS(cfg.Security),
		middleware.TrustedProxy(cfg.Security),
		middleware.RateLimit(limiter, logger),
	)

	return middlewareChain(srv)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.Logger)
	slog.SetDefault(logger)

	logger.Info("starting application",
		"version", "1.0.0",
		"addr", cfg.Address(),
		"orders", cfg.Data.OrdersCSV,
		"geo_source", cfg.Data.GeoSource,
	)

	dashboard := services.NewDashboardFromConfig(cfg, logger)
	loadCtx, cancelLoad := context.WithTimeout(context.Background(), datasetLoadTimeout)
	start := time.Now()
	err = dashboard.Load(loadCtx)
	cancelLoad()
	if err != nil {
		logger.Error("failed to load dataset", "error", err)
		os.Exit(1)
	}
	logger.Info("dataset ready", "duration", time.Since(start))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rateLimiter := middleware.NewRateLimiter(cfg.Security)
	sweepCtx, stopSweep := context.WithCancel(context.Background())
	go rateLimiter.Run(sweepCtx, visitorSweepEvery)

	httpServer := &http.Server{
		Addr:         cfg.Address(),
		Handler:      newHandler(cfg, dashboard, rateLimiter, logger),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	gracefulServer := server.NewGracefulServer(httpServer, logger, cfg.Server)

	gracefulServer.RegisterShutdownHook("rate-limiter", func(ctx context.Context) error {
		stopSweep()
		return nil
	})
	gracefulServer.RegisterShutdownHook("dashboard", func(ctx context.Context) error {
		stats := dashboard.Stats()
		logger.Info("shutting down dashboard service",
			"recomputes", stats.Recomputes,
			"last_recompute", stats.LastRecomputeTime,
		)
		return nil
	})

	logger.Info("starting graceful server")
	if err := gracefulServer.ListenAndServe(ctx); err != nil {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}

	logger.Info("application stopped gracefully")
}
