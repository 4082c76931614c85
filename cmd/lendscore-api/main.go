// Lendscore - Credit scoring and loan eligibility.
// Copyright (c) 2025 opensource.finance
// Licensed under the Apache License 2.0

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/opensource-finance/lendscore/internal/api"
	"github.com/opensource-finance/lendscore/internal/config"
	"github.com/opensource-finance/lendscore/internal/domain"
	"github.com/opensource-finance/lendscore/internal/metrics"
	"github.com/opensource-finance/lendscore/internal/model"
	"github.com/opensource-finance/lendscore/internal/repository"
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

	if len(os.Args) > 1 && os.Args[1] == "import" {
		if err := runImport(context.Background(), cfg, os.Args[2:]); err != nil {
			slog.Error("import failed", "error", err)
			os.Exit(1)
		}
		return
	}

	slog.Info("starting lendscore api",
		"version", Version,
		"commit", Commit,
		"build_date", BuildDate,
	)
	slog.Info("configuration loaded",
		"model_source", cfg.Model.Source,
		"repository", cfg.Repository.Driver,
	)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		slog.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	// The artifact registry is only needed when models are served from it.
	var repo domain.ArtifactRepository
	if cfg.Model.Source == domain.ModelSourceRepository {
		repo, err = repository.New(cfg.Repository)
		if err != nil {
			slog.Error("failed to initialize repository", "error", err)
			os.Exit(1)
		}
		defer repo.Close()
		slog.Info("repository initialized", "driver", cfg.Repository.Driver)
	}

	m := metrics.New("api")

	// A failed load keeps the server up: /status and /predict report it.
	src := artifactSource(cfg.Model, repo)
	bundle, loadErr := model.Load(ctx, src)
	if loadErr != nil {
		slog.Error("model assets failed to load", "source", src.String(), "error", loadErr)
	} else {
		slog.Info("model assets loaded",
			"source", src.String(),
			"kind", bundle.Kind(),
			"columns", len(bundle.Columns()),
		)
	}

	srv := api.NewServer(cfg.Server, bundle, loadErr, repo, m, Version)

	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	slog.Info("lendscore api is ready",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"model_loaded", loadErr == nil,
	)

	printBanner(cfg, Version)

	<-ctx.Done()
	slog.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
	}

	slog.Info("lendscore api shutdown complete")
}

func artifactSource(cfg domain.ModelConfig, repo domain.ArtifactRepository) model.Source {
	if cfg.Source == domain.ModelSourceRepository {
		return model.RepositorySource{Repo: repo}
	}
	return model.FileSource{Dir: cfg.Dir}
}

// runImport validates the artifacts in a directory and stores them in the
// configured repository so the service can run with model.source=repository.
func runImport(ctx context.Context, cfg *domain.Config, args []string) error {
	fs := flag.NewFlagSet("import", flag.ContinueOnError)
	dir := fs.String("dir", cfg.Model.Dir, "directory holding columns.json, scaler.json and model.json")
	version := fs.String("version", "", "version label (default: checksum prefix)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	src := model.FileSource{Dir: *dir}
	if _, err := model.Load(ctx, src); err != nil {
		return fmt.Errorf("artifacts in %s are not a loadable bundle: %w", *dir, err)
	}

	repo, err := repository.New(cfg.Repository)
	if err != nil {
		return fmt.Errorf("open repository: %w", err)
	}
	defer repo.Close()

	var errs []error
	for _, name := range model.ArtifactNames() {
		data, err := src.Read(ctx, name)
		if err != nil {
			errs = append(errs, err)
			continue
		}

		a := &domain.Artifact{Name: name, Version: *version, Payload: data}
		if err := repo.SaveArtifact(ctx, a); err != nil {
			errs = append(errs, fmt.Errorf("save %s: %w", name, err))
			continue
		}
		slog.Info("artifact imported",
			"name", a.Name,
			"version", a.Version,
			"checksum", a.Checksum,
		)
	}
	return errors.Join(errs...)
}

func printBanner(cfg *domain.Config, version string) {
	fmt.Println()
	fmt.Println("  +-------------------------------------------+")
	fmt.Println("  |              LENDSCORE API                |")
	fmt.Println("  |    Credit scoring prediction service      |")
	fmt.Println("  +-------------------------------------------+")
	fmt.Println()
	fmt.Printf("  Version:  %s\n", version)
	fmt.Printf("  Model:    %s\n", cfg.Model.Source)
	fmt.Printf("  Server:   http://%s:%d\n", cfg.Server.Host, cfg.Server.Port)
	fmt.Println()
	fmt.Println("  Endpoints:")
	fmt.Println("    POST /predict  - Score a feature vector")
	fmt.Println("    GET  /status   - Model asset status")
	fmt.Println("    GET  /columns  - Training column order")
	fmt.Println("    GET  /health   - Health check")
	fmt.Println("    GET  /ready    - Readiness check")
	fmt.Println("    GET  /metrics  - Prometheus metrics")
	fmt.Println()
}
