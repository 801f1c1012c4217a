package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	_ "github.com/jackc/pgx/v5/stdlib"

	"catchup-feed/internal/bootstrap"
	workerPkg "catchup-feed/internal/infra/worker"
	"catchup-feed/internal/observability/logging"
)

// main runs the pipeline-only deployment: the Poller's sweep and batch
// cadences plus health/metrics, with no control HTTP surface. Pair it
// with cmd/api when an operator wants trigger_manual_batch,
// reset_circuit_breaker, status, and daily_limits_snapshot exposed —
// cmd/api builds its own Pipeline the same way and is the combined
// single-instance deployment; running both against the same database
// at once double-processes sources, since each keeps independent
// in-memory circuit breaker and holding queue state.
func main() {
	logger := initLogger()
	database := bootstrap.OpenDatabase(logger)
	defer func() {
		if err := database.Close(); err != nil {
			logger.Error("failed to close database", slog.Any("error", err))
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pipeline := bootstrap.Build(ctx, logger, database)

	healthAddr := ":" + strconv.Itoa(bootstrap.HealthPort(logger, pipeline.Metrics))
	healthServer := workerPkg.NewHealthServer(healthAddr, logger)
	go func() {
		if err := healthServer.Start(ctx); err != nil && err != http.ErrServerClosed {
			logger.Error("health server failed", slog.Any("error", err))
		}
	}()
	logger.Info("health check server started", slog.String("addr", healthAddr))

	startMetricsServer(ctx, logger, pipeline.Notify)

	if err := pipeline.Poller.Start(ctx); err != nil {
		logger.Error("failed to start poller", slog.Any("error", err))
		os.Exit(1)
	}
	healthServer.SetReady(true)
	logger.Info("worker started",
		slog.Duration("sweep_interval", pipeline.Config.SweepInterval),
		slog.Duration("batch_interval", pipeline.Config.BatchInterval),
		slog.String("timezone", pipeline.Config.Timezone))

	<-ctx.Done()
	logger.Info("shutdown signal received, stopping poller")
	pipeline.Poller.Stop()
}

// initLogger initializes and returns a structured logger based on environment configuration.
func initLogger() *slog.Logger {
	logger := logging.NewLogger()
	slog.SetDefault(logger)
	return logger
}
