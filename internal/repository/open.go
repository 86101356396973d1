package repository

import (
	"context"
	"fmt"

	"weather-insight/internal/config"
	"weather-insight/pkg/database"
	"weather-insight/pkg/logging"
	"weather-insight/pkg/metrics"
)

// Open connects to the store selected by the URI scheme
func Open(ctx context.Context, cfg config.StoreConfig, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) (ForecastRepository, error) {
	scheme, err := cfg.Scheme()
	if err != nil {
		return nil, err
	}

	switch scheme {
	case "mongodb", "mongodb+srv":
		var poolSize uint64
		if cfg.MaxOpenConns > 0 {
			poolSize = uint64(cfg.MaxOpenConns)
		}
		db, err := database.NewMongoDB(ctx, &database.MongoConfig{
			URI:         cfg.URI,
			Database:    cfg.Database,
			Collection:  cfg.Collection,
			MaxPoolSize: poolSize,
		}, logger, metricsCollector)
		if err != nil {
			return nil, err
		}
		return NewMongoRepository(db, logger, metricsCollector), nil

	case "postgres", "postgresql":
		db, err := database.NewPostgresDB(ctx, &database.Config{
			URI:             cfg.URI,
			MaxOpenConns:    cfg.MaxOpenConns,
			MaxIdleConns:    cfg.MaxIdleConns,
			ConnMaxLifetime: cfg.ConnMaxLifetime,
			ConnMaxIdleTime: cfg.ConnMaxIdleTime,
		}, logger, metricsCollector)
		if err != nil {
			return nil, err
		}
		return NewPostgresRepository(db, logger, metricsCollector), nil

	case "memory":
		logger.Warn(ctx, "[DB_INIT] Using in-memory store, data is lost on exit", logging.Fields{})
		return NewMemoryRepository(), nil

	default:
		return nil, fmt.Errorf("unsupported store scheme %q", scheme)
	}
}
