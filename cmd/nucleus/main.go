// Command nucleus boots the Grounded-Theory coding platform: the four
// store adapters, the Semantic-Runner worker pool, and process-wide
// structured logging. It exposes no HTTP surface — collaborator-facing
// access is an explicit non-goal of this module.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/qualcode/nucleus/pkg/axial"
	"github.com/qualcode/nucleus/pkg/config"
	"github.com/qualcode/nucleus/pkg/graphstore"
	"github.com/qualcode/nucleus/pkg/ingest"
	"github.com/qualcode/nucleus/pkg/ledger"
	"github.com/qualcode/nucleus/pkg/llmgateway"
	"github.com/qualcode/nucleus/pkg/relstore"
	"github.com/qualcode/nucleus/pkg/reports"
	"github.com/qualcode/nucleus/pkg/retrieval"
	"github.com/qualcode/nucleus/pkg/runner"
	"github.com/qualcode/nucleus/pkg/tenantstore"
	"github.com/qualcode/nucleus/pkg/vectorstore"
	"github.com/qualcode/nucleus/pkg/version"
)

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func newLogger() *slog.Logger {
	level := slog.LevelInfo
	if getEnv("LOG_LEVEL", "") == "debug" {
		level = slog.LevelDebug
	}
	var handler slog.Handler
	if getEnv("ENV", "production") == "development" {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	} else {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	}
	return slog.New(handler)
}

func podID() string {
	if v := os.Getenv("POD_NAME"); v != "" {
		return v
	}
	host, err := os.Hostname()
	if err != nil {
		host = "nucleus"
	}
	return host
}

func main() {
	configPath := flag.String("config", getEnv("CONFIG_PATH", "./deploy/config/nucleus.yaml"), "Path to the YAML configuration file")
	flag.Parse()

	log := newLogger()
	slog.SetDefault(log)

	log.Info("starting nucleus", "version", version.Full(), "pod_id", podID(), "config_path", *configPath)

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rel, err := relstore.New(ctx, cfg.Relational)
	if err != nil {
		log.Error("failed to connect to relational store", "error", err)
		os.Exit(1)
	}
	defer rel.Close()
	log.Info("connected to relational store")

	vec, err := vectorstore.New(ctx, cfg.Vector, cfg.Runner.DiscoveryAnchorThreshold, log)
	if err != nil {
		log.Error("failed to connect to vector store", "error", err)
		os.Exit(1)
	}
	log.Info("connected to vector store")

	graph, err := graphstore.New(ctx, cfg.Graph, log)
	if err != nil {
		log.Error("failed to connect to graph store", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := graph.Close(ctx); err != nil {
			log.Warn("error closing graph store", "error", err)
		}
	}()
	if err := graph.EnsureConstraints(ctx); err != nil {
		log.Warn("could not ensure graph constraints", "error", err)
	}
	log.Info("connected to graph store")

	artifacts, err := newArtifactStore(ctx, cfg, log)
	if err != nil {
		log.Error("failed to initialize artifact store", "error", err)
		os.Exit(1)
	}

	llm := llmgateway.New(cfg.LLM, log)

	led := ledger.New(rel, vec, graph, llm)
	axialEngine := axial.New(rel, graph, log)
	ingestPipeline := ingest.New(rel, vec, graph, llm, log)
	searcher := retrieval.New(rel, vec, llm)
	reportSurface := reports.New(artifacts, rel)

	// Mark as used (no HTTP surface calls these directly; they are the
	// conceptual operations surface from §6, exercised by tests and by
	// the runner itself via led).
	_ = axialEngine
	_ = ingestPipeline
	_ = searcher
	_ = reportSurface

	engine := runner.NewEngine(rel, vec, led, llm, artifacts, cfg.Runner, log)
	pool := runner.NewPool(podID(), engine, cfg.Runner, log)
	pool.Start(ctx)
	log.Info("semantic-runner pool started", "worker_count", cfg.Runner.WorkerCount)

	<-ctx.Done()
	log.Info("shutdown signal received, stopping runner pool")
	pool.Stop()
	log.Info("nucleus stopped")
}

func newArtifactStore(ctx context.Context, cfg *config.Config, log *slog.Logger) (*tenantstore.Store, error) {
	if cfg.Features.ForceMockBlobs {
		log.Info("FORCE_MOCK_BLOBS set, using in-memory artifact backend")
		return tenantstore.New(tenantstore.NewMemoryBackend(), cfg.Artifacts.Bucket, cfg.Features.AllowOrglessTasks), nil
	}
	backend, err := tenantstore.NewS3Backend(ctx, cfg.Artifacts)
	if err != nil {
		if cfg.Features.ArtifactsAllowLocalFallback {
			log.Warn("S3 artifact backend unavailable, falling back to in-memory backend", "error", err)
			return tenantstore.New(tenantstore.NewMemoryBackend(), cfg.Artifacts.Bucket, cfg.Features.AllowOrglessTasks), nil
		}
		return nil, err
	}
	return tenantstore.New(backend, cfg.Artifacts.Bucket, cfg.Features.AllowOrglessTasks), nil
}
