// ABOUTME: Entry point for the edge forwarding gateway
// ABOUTME: Serves /api/ forwarding, health and metrics with graceful shutdown

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

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/codersneeded/miniapp/gateway/config"
	"github.com/codersneeded/miniapp/gateway/handlers"
	"github.com/codersneeded/miniapp/gateway/logger"
	"github.com/codersneeded/miniapp/gateway/middleware"
	"github.com/codersneeded/miniapp/gateway/services"
)

func main() {
	// Initialize structured logging
	logger.Init()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	forwarder, err := services.NewForwarder(cfg)
	if err != nil {
		slog.Error("Failed to initialize forwarder", "error", err)
		os.Exit(1)
	}

	slog.Info("Starting edge forwarding gateway")
	slog.Info("Backend configured", "url", forwarder.Backend(), "timeout", cfg.Timeout)
	if cfg.AllProxy != "" {
		slog.Info("Backend connections tunnelled through SOCKS5 proxy")
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := middleware.NewMetrics(registry)

	mux := handlers.NewRouter(cfg, forwarder, metrics)

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		// Forward timeout plus time to write the reply.
		WriteTimeout: cfg.Timeout + 10*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		slog.Info("Server listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("Graceful shutdown failed", "error", err)
		os.Exit(1)
	}
}
