package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"

	"github.com/Ramsey-B/fern/config"
	"github.com/Ramsey-B/fern/pkg/middleware"
	"github.com/Ramsey-B/fern/pkg/routes/health"
	"github.com/Ramsey-B/fern/pkg/routes/notification"
	"github.com/Ramsey-B/fern/pkg/routes/task"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Setup(ctx, cfg.Tracing())
	if err != nil {
		return fmt.Errorf("failed to set up tracing: %w", err)
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			logger.WithError(err).Warn("Failed to flush traces")
		}
	}()

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.close(context.Background())

	checker := health.NewChecker(version)
	checker.AddCheck("database", health.PingerFunc(a.db.PingContext), true)
	if a.redis != nil {
		checker.AddCheck("redis", health.PingerFunc(a.redis.Ping), cfg.ArtifactCounterBackend == config.CounterBackendRedis)
	}

	e := newServer(a, checker)
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		ReadTimeout:  cfg.HttpServerReadTimeout,
		WriteTimeout: cfg.HttpServerWriteTimeout,
		IdleTimeout:  cfg.HttpServerIdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- e.StartServer(server)
	}()

	checker.SetReady(true)
	logger.WithFields(map[string]any{
		"port":     cfg.Port,
		"version":  version,
		"artifact": a.artifacts.Writer(),
	}).Info("fern API started")

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	}

	checker.SetReady(false)
	logger.Info("Shutting down fern API")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HttpServerShutdownGrace)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}

func newServer(a *app, checker *health.Checker) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = middleware.Error(logger)

	e.Use(otelecho.Middleware(cfg.AppName))
	e.Use(middleware.Context(cfg.DefaultClient))
	e.Use(middleware.Logger(logger))

	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	checker.RegisterRoutes(e)

	api := e.Group("/api/v1")
	notification.NewHandler(a.processor, a.artifacts, logger).Register(api.Group("/notifications"))
	task.NewHandler(a.processor, a.artifacts).Register(api.Group("/tasks"))
	return e
}
