package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"catchup-feed/internal/bootstrap"
	hhttp "catchup-feed/internal/handler/http"
	"catchup-feed/internal/handler/http/auth"
	"catchup-feed/internal/handler/http/control"
	"catchup-feed/internal/observability/logging"
	pkgconfig "catchup-feed/internal/pkg/config"
)

// main runs the control-plane deployment: the same Poller pipeline as
// cmd/worker, fronted by the four control operations over an
// authenticated HTTP mux. See cmd/worker's doc comment for the
// single-instance assumption this split makes.
func main() {
	logger := initLogger()
	validateControlJWTSecret(logger)

	database := bootstrap.OpenDatabase(logger)
	defer func() {
		if err := database.Close(); err != nil {
			logger.Error("failed to close database", slog.Any("error", err))
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pipeline := bootstrap.Build(ctx, logger, database)

	if err := pipeline.Poller.Start(ctx); err != nil {
		logger.Error("failed to start poller", slog.Any("error", err))
		os.Exit(1)
	}

	mux := setupRoutes(database, pipeline, logger)
	runServer(ctx, logger, mux)

	logger.Info("shutdown signal received, stopping poller")
	pipeline.Poller.Stop()
}

// initLogger initializes and returns a structured logger based on environment configuration.
func initLogger() *slog.Logger {
	logger := logging.NewLogger()
	slog.SetDefault(logger)
	return logger
}

// validateControlJWTSecret validates CONTROL_JWT_SECRET at startup so the
// process never serves control requests with a weak or empty signing
// key — the failure mode for a misconfigured secret should be "process
// won't start", not "every token validates".
func validateControlJWTSecret(logger *slog.Logger) {
	secret := os.Getenv("CONTROL_JWT_SECRET")
	if secret == "" {
		logger.Error("CONTROL_JWT_SECRET must be set")
		os.Exit(1)
	}
	if len(secret) < 32 {
		logger.Error("CONTROL_JWT_SECRET must be at least 32 characters (256 bits)")
		os.Exit(1)
	}
	weakSecrets := []string{"secret", "password", "test", "admin", "default"}
	for _, weak := range weakSecrets {
		if secret == weak || secret == weak+"123" {
			logger.Error("CONTROL_JWT_SECRET must not be a common weak value", slog.String("weak_value", weak))
			os.Exit(1)
		}
	}
}

// setupRoutes builds the control-plane mux: health/ready/live, metrics,
// and the four authenticated control routes.
func setupRoutes(database *sql.DB, pipeline *bootstrap.Pipeline, logger *slog.Logger) http.Handler {
	version := os.Getenv("VERSION")
	if version == "" {
		version = "dev"
	}

	mux := http.NewServeMux()
	mux.Handle("/health", &hhttp.HealthHandler{DB: database, Version: version})
	mux.Handle("/ready", &hhttp.ReadyHandler{DB: database})
	mux.Handle("/live", &hhttp.LiveHandler{})
	mux.Handle("/metrics", promhttp.Handler())

	control.Register(mux, pipeline.Poller, auth.RequireBearer)

	logger.Info("control routes registered",
		slog.String("routes", "/control/batch, /control/circuit-breaker/reset, /control/status, /control/quota"))

	return mux
}

// runServer starts the HTTP server and blocks until ctx is canceled,
// then shuts it down with a bounded grace period.
func runServer(ctx context.Context, logger *slog.Logger, handler http.Handler) {
	port := pkgconfig.LoadEnvString("API_PORT", "8080")
	addr := ":" + port

	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	go func() {
		logger.Info("control api starting", slog.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("control api failed", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down control api...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("control api shutdown failed", slog.Any("error", err))
	}
	logger.Info("control api stopped")
}
