//go:build integration

package repository

import (
	"context"
	"io"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/mongodb"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"go.mongodb.org/mongo-driver/v2/bson"

	"weather-insight/internal/config"
	"weather-insight/internal/models"
	"weather-insight/pkg/logging"
	"weather-insight/pkg/metrics"
)

func integrationDeps() (*logging.StructuredLogger, *metrics.Collector) {
	logger := logging.NewStructuredLogger("integration", "test", logging.WarnLevel)
	logger.SetOutput(io.Discard)
	return logger, metrics.NewCollectorWithRegistry("integration", prometheus.NewRegistry())
}

// exerciseRepository runs the behavior every backend must share
func exerciseRepository(t *testing.T, repo ForecastRepository) {
	t.Helper()
	ctx := context.Background()

	require.NoError(t, repo.HealthCheck(ctx))

	// index creation on an empty collection, repeated
	require.NoError(t, repo.EnsureCoordinateIndex(ctx))
	require.NoError(t, repo.EnsureCoordinateIndex(ctx))

	require.NoError(t, repo.InsertMany(ctx, []models.ForecastRecord{
		record("51.5", "-0.12", "t1"),
		record("51.5", "-0.12", "t2"),
		record("51.50", "-0.12", "t3"),
	}))
	require.NoError(t, repo.InsertMany(ctx, nil))

	got, err := repo.FindByCoordinates(ctx, "51.5", "-0.12")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "t1", got[0].ForecastTime())
	assert.Equal(t, "t2", got[1].ForecastTime())
	assert.Equal(t, "20", got[0][models.FieldTemperatureC])

	none, err := repo.FindByCoordinates(ctx, "0", "0")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestMongoRepository_Integration(t *testing.T) {
	ctx := context.Background()

	ctr, err := mongodb.Run(ctx, "mongo:7")
	testcontainers.CleanupContainer(t, ctr)
	require.NoError(t, err)

	uri, err := ctr.ConnectionString(ctx)
	require.NoError(t, err)

	logger, collector := integrationDeps()
	repo, err := Open(ctx, config.StoreConfig{
		URI:        uri,
		Database:   "weather_db",
		Collection: "weather_collection",
	}, logger, collector)
	require.NoError(t, err)
	defer repo.Close(ctx)

	exerciseRepository(t, repo)

	mongoRepo := repo.(*MongoRepository)
	cursor, err := mongoRepo.coll.Indexes().List(ctx)
	require.NoError(t, err)
	var indexes []bson.M
	require.NoError(t, cursor.All(ctx, &indexes))

	// _id_ plus exactly one coordinate index
	require.Len(t, indexes, 2)
	names := []any{indexes[0]["name"], indexes[1]["name"]}
	assert.Contains(t, names, CoordinateIndexName)

	require.NoError(t, mongoRepo.Drop(ctx))
}

func TestPostgresRepository_Integration(t *testing.T) {
	ctx := context.Background()

	ctr, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("weather_db"),
		postgres.WithUsername("weather"),
		postgres.WithPassword("weather"),
		postgres.BasicWaitStrategies(),
	)
	testcontainers.CleanupContainer(t, ctr)
	require.NoError(t, err)

	uri, err := ctr.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	logger, collector := integrationDeps()
	repo, err := Open(ctx, config.StoreConfig{URI: uri, MaxOpenConns: 4, MaxIdleConns: 2}, logger, collector)
	require.NoError(t, err)
	defer repo.Close(ctx)

	exerciseRepository(t, repo)

	pgRepo := repo.(*PostgresRepository)
	var count int
	require.NoError(t, pgRepo.db.DB().GetContext(ctx, &count,
		`SELECT COUNT(*) FROM pg_indexes WHERE tablename = 'forecast_records' AND indexname = 'forecast_records_coordinates_idx'`))
	assert.Equal(t, 1, count)

	require.NoError(t, pgRepo.Migrate(ctx, MigrateDown))
	require.NoError(t, pgRepo.Migrate(ctx, MigrateUp))
}
