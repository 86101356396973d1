package services

import (
	"context"

	"weather-insight/internal/models"
	"weather-insight/internal/repository"
	"weather-insight/pkg/logging"
)

// IndexManager ensures the (Longitude, Latitude) compound index exists
type IndexManager struct {
	repo   repository.ForecastRepository
	logger *logging.StructuredLogger
}

// NewIndexManager creates an index manager over repo
func NewIndexManager(repo repository.ForecastRepository, logger *logging.StructuredLogger) *IndexManager {
	return &IndexManager{repo: repo, logger: logger}
}

// EnsureIndex is safe to call on an empty collection and any number of times
func (m *IndexManager) EnsureIndex(ctx context.Context) error {
	m.logger.Info(ctx, "[INDEX_START] Indexing db", logging.Fields{
		"index": repository.CoordinateIndexName,
	})

	if err := m.repo.EnsureCoordinateIndex(ctx); err != nil {
		m.logger.Error(ctx, "[INDEX_ERROR] Failed to ensure coordinate index", logging.Fields{
			"index": repository.CoordinateIndexName,
		}, err)
		return &models.StoreWriteError{Op: "create_index", Err: err}
	}

	m.logger.Info(ctx, "[INDEX_COMPLETE] Finished indexing db", logging.Fields{
		"index": repository.CoordinateIndexName,
	})
	return nil
}
