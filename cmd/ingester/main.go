package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"weather-insight/internal/config"
	"weather-insight/internal/repository"
	"weather-insight/internal/services"
	"weather-insight/pkg/logging"
	"weather-insight/pkg/metrics"
)

func main() {
	// Load configuration first so flags default to it
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	dataDir := flag.String("data-dir", cfg.Ingest.DataDir, "Directory containing forecast data files")
	batchSize := flag.Int("batch-size", cfg.Ingest.BatchSize, "Maximum records per chunk")
	concurrency := flag.Int("concurrency", cfg.Ingest.Concurrency, "Maximum chunk loads in flight")
	dryRun := flag.Bool("dry-run", false, "Load into an in-memory store instead of the configured one")
	verbose := flag.Bool("verbose", false, "Log every chunk and row count at debug level")
	flag.Parse()

	cfg.Ingest.DataDir = *dataDir
	cfg.Ingest.BatchSize = *batchSize
	cfg.Ingest.Concurrency = *concurrency
	if *dryRun {
		cfg.Store.URI = "memory://"
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	logger := logging.NewStructuredLogger("weather-ingester", "1.0.0", logging.ParseLevel(cfg.Logging.Level))
	if *verbose {
		logger.SetLevel(logging.DebugLevel)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info(ctx, "[INGESTER_START] Starting forecast data load", logging.Fields{
		"version":     "1.0.0",
		"data_dir":    cfg.Ingest.DataDir,
		"batch_size":  cfg.Ingest.BatchSize,
		"concurrency": cfg.Ingest.Concurrency,
		"dry_run":     *dryRun,
	})

	metricsCollector := metrics.NewCollector("weather_ingester")

	repo, err := repository.Open(ctx, cfg.Store, logger, metricsCollector)
	if err != nil {
		logger.Fatal(ctx, "[INGESTER_ERROR] Failed to connect to store", logging.Fields{}, err)
	}
	defer repo.Close(context.Background())

	ingestion := services.NewIngestionService(repo, services.IngestionOptions{
		BatchSize:   cfg.Ingest.BatchSize,
		Concurrency: cfg.Ingest.Concurrency,
	}, logger, metricsCollector, nil)

	result, err := ingestion.LoadDirectory(ctx, cfg.Ingest.DataDir)
	if err != nil {
		// Fatal exits without running deferred calls
		repo.Close(context.Background())
		logger.Fatal(ctx, "[INGESTION_ERROR] Load failed", logging.Fields{}, err)
	}

	fmt.Println(strings.Repeat("=", 80))
	fmt.Println("LOAD COMPLETE")
	fmt.Println(strings.Repeat("=", 80))
	fmt.Printf("Files:          %d\n", result.Files)
	fmt.Printf("Chunks:         %d\n", result.Chunks)
	fmt.Printf("Records:        %d\n", result.Records)
	fmt.Printf("Duration:       %v\n", result.Duration)
	if secs := result.Duration.Seconds(); secs > 0 {
		fmt.Printf("Records/Second: %.2f\n", float64(result.Records)/secs)
	}

	logger.Info(ctx, "[INGESTER_COMPLETE] Load completed successfully", logging.Fields{
		"total_records":    result.Records,
		"duration_seconds": result.Duration.Seconds(),
	})
}
