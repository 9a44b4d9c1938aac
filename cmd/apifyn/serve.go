package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/spf13/cobra"

	"github.com/Harshvardhan-91/APIfyn-backend/internal/api"
	"github.com/Harshvardhan-91/APIfyn-backend/internal/scheduler"
	"github.com/Harshvardhan-91/APIfyn-backend/pkg/mcp"
)

const shutdownTimeout = 30 * time.Second

func newServeCmd(load func() (Config, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, scheduler and MCP endpoint",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg)
		},
	}
}

func serve(ctx context.Context, cfg Config) error {
	a, err := newApp(ctx, cfg, os.Stderr)
	if err != nil {
		return err
	}
	defer a.Close()
	logger := a.logger

	var sched *scheduler.Scheduler
	if cfg.Scheduler.Enabled {
		sched = scheduler.NewScheduler(a.store, a.dispatcher, cfg.Scheduler.Interval, logger)
		if err := sched.Start(ctx); err != nil {
			return err
		}
	}

	deps := api.Deps{
		Store:       a.store,
		Executor:    a.engine,
		Dispatcher:  a.dispatcher,
		Validator:   a.validator,
		Sealer:      a.credentials,
		Hub:         a.hub,
		Blocks:      a.registry,
		Logger:      logger,
		Tracing:     cfg.Telemetry.Enabled,
		ServiceName: cfg.Telemetry.ServiceName,
	}
	if sched != nil {
		deps.Schedule = sched
	}
	if a.telemetry != nil {
		deps.TracerProvider = a.telemetry.Tracer
	}
	srv := api.NewServer(deps)
	mcpSrv := mcp.NewServer(mcp.ServerDeps{
		Executor:   a.engine,
		Dispatcher: a.dispatcher,
		Store:      a.store,
		Validator:  a.validator,
		Blocks:     a.registry,
		Logger:     logger,
		Version:    version,
	})
	srv.Echo().Any("/mcp/*", echo.WrapHandler(mcpSrv.SSEHandler(cfg.Server.BaseURL)))

	// WriteTimeout stays zero: SSE streams and synchronous test runs are
	// long-lived.
	httpSrv := &http.Server{
		Addr:              cfg.Server.ListenAddr,
		Handler:           srv,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("server starting",
			slog.String("address", cfg.Server.ListenAddr),
			slog.String("base_url", cfg.Server.BaseURL),
			slog.String("database", cfg.Database.Driver))
		serverErrors <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if sched != nil {
		if err := sched.Stop(); err != nil {
			logger.Error("scheduler stop failed", slog.String("error", err.Error()))
		}
	}
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown failed", slog.String("error", err.Error()))
	}
	if err := a.dispatcher.Shutdown(shutdownCtx); err != nil {
		logger.Error("dispatcher drain incomplete", slog.String("error", err.Error()))
	}
	logger.Info("server stopped")
	return nil
}
