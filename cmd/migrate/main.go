package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"weather-insight/internal/config"
	"weather-insight/internal/repository"
	"weather-insight/pkg/logging"
	"weather-insight/pkg/metrics"
)

func main() {
	direction := flag.String("direction", repository.MigrateUp, "Migration direction: up or down")
	flag.Parse()

	if *direction != repository.MigrateUp && *direction != repository.MigrateDown {
		fmt.Fprintf(os.Stderr, "Unknown direction %q, expected up or down\n", *direction)
		os.Exit(2)
	}

	if err := run(context.Background(), *direction, os.Stdout, metrics.NewCollector("weather_migrate")); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// run connects to the configured store and applies the migration. The store
// is closed on every return path.
func run(ctx context.Context, direction string, out io.Writer, metricsCollector *metrics.Collector) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger := logging.NewStructuredLogger("weather-migrate", "1.0.0", logging.ParseLevel(cfg.Logging.Level))

	repo, err := repository.Open(ctx, cfg.Store, logger, metricsCollector)
	if err != nil {
		return fmt.Errorf("failed to connect to store: %w", err)
	}
	fmt.Fprintln(out, "Connected to store successfully")

	return apply(ctx, repo, direction, out)
}

func apply(ctx context.Context, repo repository.ForecastRepository, direction string, out io.Writer) error {
	defer repo.Close(ctx)

	fmt.Fprintf(out, "Running migration: %s\n", direction)
	if err := migrate(ctx, repo, direction); err != nil {
		return fmt.Errorf("failed to execute migration: %w", err)
	}

	fmt.Fprintln(out, "Migration completed successfully")
	return nil
}

func migrate(ctx context.Context, repo repository.ForecastRepository, direction string) error {
	switch r := repo.(type) {
	case *repository.PostgresRepository:
		return r.Migrate(ctx, direction)
	case *repository.MongoRepository:
		if direction == repository.MigrateDown {
			return r.Drop(ctx)
		}
		return r.EnsureCoordinateIndex(ctx)
	default:
		if direction == repository.MigrateDown {
			return nil
		}
		return repo.EnsureCoordinateIndex(ctx)
	}
}
