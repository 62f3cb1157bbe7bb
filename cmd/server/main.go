// Package main provides the long-running service: scheduled pipeline runs
// over the PostgreSQL/ClickHouse stores (or memory stores), with Prometheus
// metrics and optional CSV snapshots of each run's feature table.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"polymarket-feature-lab/internal/flatfile"
	"polymarket-feature-lab/internal/observability"
	"polymarket-feature-lab/internal/pipeline"
	"polymarket-feature-lab/internal/storage"
	chstore "polymarket-feature-lab/internal/storage/clickhouse"
	"polymarket-feature-lab/internal/storage/memory"
	"polymarket-feature-lab/internal/storage/migrations"
	pgstore "polymarket-feature-lab/internal/storage/postgres"
)

// Server holds configuration and wiring for the scheduled pipeline.
type Server struct {
	pipelineInterval time.Duration
	outputDir        string
	snapshotCSV      bool

	runner       *pipeline.Runner
	featureStore storage.FeatureStore
	metrics      *observability.Metrics
	logger       *log.Logger
}

func main() {
	// Load .env file if exists
	loadEnvFile()

	// Parse flags (env vars as defaults)
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of PostgreSQL/ClickHouse")
	pipelineInterval := flag.Duration("pipeline-interval", 1*time.Hour, "Pipeline run interval")
	workers := flag.Int("workers", 4, "Parallel feature workers")
	outputDir := flag.String("output-dir", "output", "Directory for CSV snapshots")
	snapshotCSV := flag.Bool("snapshot-csv", true, "Write a feature CSV snapshot after each run")
	metricsAddr := flag.String("metrics-addr", ":9090", "Prometheus metrics HTTP address (empty to disable)")

	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lshortfile)

	if !*useMemory {
		if *postgresDSN == "" {
			logger.Fatal("--postgres-dsn is required without --use-memory")
		}
		if *clickhouseDSN == "" {
			logger.Fatal("--clickhouse-dsn is required without --use-memory")
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Printf("received signal %v, shutting down", sig)
		cancel()
	}()

	metrics := observability.NewMetrics("")

	var (
		marketStore      storage.MarketStore
		observationStore storage.ObservationStore
		featureStore     storage.FeatureStore
	)

	if *useMemory {
		marketStore = memory.NewMarketStore()
		observationStore = memory.NewObservationStore()
		featureStore = memory.NewFeatureStore()
		logger.Println("using in-memory stores")
	} else {
		pool, err := pgstore.NewPool(ctx, *postgresDSN)
		if err != nil {
			logger.Fatalf("postgres: %v", err)
		}
		defer pool.Close()

		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			logger.Fatalf("postgres migrations: %v", err)
		}

		conn, err := migrations.RunClickhouseMigrations(ctx, *clickhouseDSN)
		if err != nil {
			logger.Fatalf("clickhouse migrations: %v", err)
		}
		defer conn.Close()

		marketStore = pgstore.NewMarketStore(pool)
		observationStore = chstore.NewObservationStore(conn)
		featureStore = chstore.NewFeatureStore(conn)
		logger.Println("connected to postgres and clickhouse")
	}

	if *metricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", observability.Handler())
			logger.Printf("metrics listening on %s", *metricsAddr)
			if err := http.ListenAndServe(*metricsAddr, mux); err != nil {
				logger.Printf("metrics server: %v", err)
			}
		}()
	}

	srv := &Server{
		pipelineInterval: *pipelineInterval,
		outputDir:        *outputDir,
		snapshotCSV:      *snapshotCSV,
		featureStore:     featureStore,
		metrics:          metrics,
		logger:           logger,
		runner: pipeline.New(pipeline.Options{
			MarketStore:      marketStore,
			ObservationStore: observationStore,
			FeatureStore:     featureStore,
			Workers:          *workers,
			Logger:           logger,
			Metrics:          metrics,
		}),
	}

	srv.loop(ctx)
	logger.Println("shutdown complete")
}

// loop runs the pipeline immediately and then on every tick until cancelled.
func (s *Server) loop(ctx context.Context) {
	s.runOnce(ctx)

	ticker := time.NewTicker(s.pipelineInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

func (s *Server) runOnce(ctx context.Context) {
	result, err := s.runner.Run(ctx)
	if err != nil {
		s.metrics.PipelineRunsTotal.WithLabelValues("error").Inc()
		s.logger.Printf("pipeline run failed: %v", err)
		return
	}

	if s.snapshotCSV {
		if err := s.writeSnapshot(ctx, result); err != nil {
			s.logger.Printf("snapshot: %v", err)
		}
	}
}

// writeSnapshot dumps the stored feature table as a timestamped CSV.
func (s *Server) writeSnapshot(ctx context.Context, result *pipeline.Result) error {
	if result.FeatureRows == 0 {
		return nil
	}

	rows, err := s.featureStore.GetAll(ctx)
	if err != nil {
		return fmt.Errorf("load feature rows: %w", err)
	}

	if err := os.MkdirAll(s.outputDir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	name := fmt.Sprintf("feature_data_%s.csv", time.Now().UTC().Format("20060102T150405"))
	path := filepath.Join(s.outputDir, name)
	if err := flatfile.WriteFeatures(path, rows); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}

	s.logger.Printf("wrote snapshot %s (%d rows)", path, len(rows))
	return nil
}

// loadEnvFile loads KEY=VALUE pairs from a .env file without overriding
// variables already set in the environment.
func loadEnvFile() {
	data, err := os.ReadFile(".env")
	if err != nil {
		return // File doesn't exist, use system env vars
	}

	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		if os.Getenv(key) == "" {
			os.Setenv(key, value)
		}
	}
}
