// Command server runs the Teams emulator posts and replies API.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"teamsemu/internal/config"
	"teamsemu/internal/middleware"
	"teamsemu/internal/observability"
	"teamsemu/internal/server"
)

// @title Teams Emulator API
// @version 1.0
// @description Posts and threaded replies for workflow demos.
// @BasePath /api

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		middleware.Logger.Error("Failed to load configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}
	middleware.Logger = middleware.NewLogger(cfg.Env, slog.LevelInfo)

	shutdownTracing, err := observability.InitTracing(observability.TracingConfig{
		ServiceName:    "teamsemu-api",
		ServiceVersion: "1.0.0",
		Environment:    cfg.Env,
		Enabled:        cfg.TracingEnabled,
		Exporter:       cfg.TracingExporter,
		OTLPEndpoint:   cfg.OTLPEndpoint,
		SamplerRatio:   cfg.TracingSampleRatio,
	})
	if err != nil {
		middleware.Logger.Error("Failed to initialize tracing", slog.String("error", err.Error()))
		os.Exit(1)
	}

	srv, err := server.NewServer(context.Background(), cfg)
	if err != nil {
		middleware.Logger.Error("Failed to create server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := serve(ctx, srv, shutdownTracing, 10*time.Second); err != nil {
		middleware.Logger.Error("Server stopped", slog.String("error", err.Error()))
		os.Exit(1)
	}
	middleware.Logger.Info("Server exited")
}

type runner interface {
	Start() error
	Shutdown(ctx context.Context) error
}

// serve runs srv until ctx is done, then shuts it down and flushes tracing.
// It returns only after the shutdown sequence has finished, so the store
// close and span export are never cut off by process exit.
func serve(ctx context.Context, srv runner, shutdownTracing func(context.Context) error, timeout time.Duration) error {
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		<-ctx.Done()

		middleware.Logger.Info("Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			middleware.Logger.Error("Server shutdown error", slog.String("error", err.Error()))
		}
		if err := shutdownTracing(shutdownCtx); err != nil {
			middleware.Logger.Error("Tracing shutdown error", slog.String("error", err.Error()))
		}
	}()

	if err := srv.Start(); err != nil {
		return err
	}
	<-stopped
	return nil
}
