package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/logrelay/logrelay/server/internal/api"
	"github.com/logrelay/logrelay/server/internal/auth"
	"github.com/logrelay/logrelay/server/internal/config"
	"github.com/logrelay/logrelay/server/internal/hub"
	"github.com/logrelay/logrelay/server/internal/notify"
	"github.com/logrelay/logrelay/server/internal/registry"
	"github.com/logrelay/logrelay/server/internal/ws"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	slog.Info("logrelay-server starting", "config", *configPath)

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}

	slog.Info("config loaded",
		"http_port", cfg.Server.HTTPPort,
		"auth_mode", cfg.Server.Auth.Mode,
		"send_buffer", cfg.Server.Stream.SendBuffer,
		"webhooks", len(cfg.Server.Notify.Webhooks),
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	reg := registry.New()
	broadcaster := hub.New(reg, cfg.Server.Stream.SendBuffer)
	notifier := notify.New(cfg.Server.Notify)

	// Producer ingest API behind optional API key auth.
	apiAuth := auth.APIKeyMiddleware(
		cfg.Server.Auth.Mode,
		cfg.Server.Auth.EffectiveHeader(),
		cfg.Server.Auth.Key(),
	)

	mux := http.NewServeMux()
	mux.Handle("/api/", apiAuth(api.New(broadcaster, notifier)))
	mux.Handle("/ws/rooms", ws.New(broadcaster))
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.HTTPPort),
		Handler: mux,
	}
	go func() {
		slog.Info("HTTP server listening", "port", cfg.Server.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server stopped", "err", err)
		}
	}()

	<-ctx.Done()
	slog.Info("logrelay-server shutting down")
	srv.Shutdown(context.Background()) //nolint:errcheck
}
