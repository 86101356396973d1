package repository

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"weather-insight/internal/config"
	"weather-insight/internal/models"
	"weather-insight/pkg/logging"
	"weather-insight/pkg/metrics"
)

func record(lat, lon, ts string) models.ForecastRecord {
	return models.ForecastRecord{
		models.FieldLatitude:     lat,
		models.FieldLongitude:    lon,
		models.FieldForecastTime: ts,
		models.FieldTemperatureC: "20",
	}
}

func TestMemoryRepository_FindByCoordinates_ExactMatchInOrder(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()

	require.NoError(t, repo.InsertMany(ctx, []models.ForecastRecord{
		record("10", "20", "t1"),
		record("10.0", "20", "t2"),
		record("10", "20", "t3"),
		record("20", "10", "t4"),
	}))

	got, err := repo.FindByCoordinates(ctx, "10", "20")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "t1", got[0].ForecastTime())
	assert.Equal(t, "t3", got[1].ForecastTime())

	none, err := repo.FindByCoordinates(ctx, "0", "0")
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func TestMemoryRepository_InsertCopiesRecords(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()

	rec := record("1", "2", "t1")
	require.NoError(t, repo.InsertMany(ctx, []models.ForecastRecord{rec}))
	rec[models.FieldForecastTime] = "changed"

	got, err := repo.FindByCoordinates(ctx, "1", "2")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "t1", got[0].ForecastTime())
}

func TestMemoryRepository_EnsureCoordinateIndex_Idempotent(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()

	// Works on an empty collection and repeats without duplicates.
	require.NoError(t, repo.EnsureCoordinateIndex(ctx))
	require.NoError(t, repo.EnsureCoordinateIndex(ctx))

	assert.Equal(t, []string{CoordinateIndexName}, repo.IndexNames())
	assert.Equal(t, []string{models.FieldLongitude, models.FieldLatitude}, repo.Indexes()[CoordinateIndexName])
}

func TestMemoryRepository_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	repo := NewMemoryRepository()
	assert.Error(t, repo.InsertMany(ctx, []models.ForecastRecord{record("1", "2", "t")}))
	assert.Equal(t, 0, repo.Count())
}

func TestOpen_Memory(t *testing.T) {
	logger := logging.NewStructuredLogger("test", "test", logging.ErrorLevel)
	collector := metrics.NewCollectorWithRegistry("test", prometheus.NewRegistry())

	repo, err := Open(context.Background(), config.StoreConfig{URI: "memory://"}, logger, collector)
	require.NoError(t, err)
	_, ok := repo.(*MemoryRepository)
	assert.True(t, ok)
	assert.NoError(t, repo.HealthCheck(context.Background()))
	assert.NoError(t, repo.Close(context.Background()))
}

func TestOpen_UnsupportedScheme(t *testing.T) {
	logger := logging.NewStructuredLogger("test", "test", logging.ErrorLevel)
	collector := metrics.NewCollectorWithRegistry("test", prometheus.NewRegistry())

	_, err := Open(context.Background(), config.StoreConfig{URI: "redis://localhost"}, logger, collector)
	require.Error(t, err)
}

func TestDocumentToRecord(t *testing.T) {
	rec := documentToRecord(map[string]any{
		"_id":                    "ignored",
		models.FieldLatitude:     "51.5",
		models.FieldTemperatureC: 12.5,
		"count":                  int32(3),
	})

	assert.NotContains(t, rec, "_id")
	assert.Equal(t, "51.5", rec.Latitude())
	assert.Equal(t, "12.5", rec[models.FieldTemperatureC])
	assert.Equal(t, "3", rec["count"])
}
