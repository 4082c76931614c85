// Lendscore - Credit scoring and loan eligibility.
// Copyright (c) 2025 opensource.finance
// Licensed under the Apache License 2.0

package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/opensource-finance/lendscore/internal/assessment"
	"github.com/opensource-finance/lendscore/internal/cache"
	"github.com/opensource-finance/lendscore/internal/client"
	"github.com/opensource-finance/lendscore/internal/config"
	"github.com/opensource-finance/lendscore/internal/dashboard"
	"github.com/opensource-finance/lendscore/internal/metrics"
	"github.com/opensource-finance/lendscore/internal/rules"
)

// Version information (set via ldflags)
var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	slog.SetDefault(config.NewLogger(cfg.Logging, os.Stdout))

	slog.Info("starting lendscore dashboard",
		"version", Version,
		"commit", Commit,
		"build_date", BuildDate,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		slog.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	apiClient := client.New(cfg.Dashboard.APIURL, cfg.Dashboard.APITimeout)

	// Startup fails when the column order cannot be established.
	columns, err := dashboard.LoadColumns(ctx, cfg.Dashboard, apiClient)
	if err != nil {
		slog.Error("failed to load columns", "error", err)
		os.Exit(1)
	}

	// The service may come up with missing assets; report it but keep going.
	if status, err := apiClient.Status(ctx); err != nil {
		slog.Warn("prediction service not ready", "error", err)
	} else {
		slog.Info("prediction service reachable", "status", status.Status)
	}

	store, err := cache.New(cfg.Cache)
	if err != nil {
		slog.Error("failed to initialize report store", "error", err)
		os.Exit(1)
	}
	defer store.Close()
	slog.Info("report store initialized", "type", cfg.Cache.Type, "ttl", cfg.Dashboard.ReportTTL)

	engine, err := rules.NewEngine()
	if err != nil {
		slog.Error("failed to initialize rule engine", "error", err)
		os.Exit(1)
	}
	processor := assessment.NewProcessor(engine)
	slog.Info("rule engine initialized",
		"rules_count", engine.RulesCount(),
		"threshold", processor.Threshold,
	)

	srv := dashboard.NewServer(cfg.Dashboard, apiClient, processor, store, columns, metrics.New("dashboard"))

	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	slog.Info("lendscore dashboard is ready",
		"host", cfg.Dashboard.Server.Host,
		"port", cfg.Dashboard.Server.Port,
	)

	<-ctx.Done()
	slog.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
	}

	slog.Info("lendscore dashboard shutdown complete")
}
