package repository

import (
	"context"

	"weather-insight/internal/models"
)

// CoordinateIndexName names the compound ascending (Longitude, Latitude) index
const CoordinateIndexName = "coordinates_idx"

// ForecastRepository provides data access for forecast records.
// Implementations must be safe for concurrent use by chunk loaders.
type ForecastRepository interface {
	// InsertMany appends records in one bulk write
	InsertMany(ctx context.Context, records []models.ForecastRecord) error

	// FindByCoordinates returns records whose coordinates equal lat and lon
	// exactly, in insertion order
	FindByCoordinates(ctx context.Context, lat, lon string) ([]models.ForecastRecord, error)

	// EnsureCoordinateIndex creates the coordinate index if it does not exist.
	// It succeeds on an empty collection and is safe to call repeatedly.
	EnsureCoordinateIndex(ctx context.Context) error

	// Utility operations
	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}
