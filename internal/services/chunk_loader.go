package services

import (
	"context"
	"path/filepath"
	"sync/atomic"

	"weather-insight/internal/models"
	"weather-insight/internal/repository"
	"weather-insight/pkg/logging"
	"weather-insight/pkg/metrics"
)

// DefaultBatchSize is the maximum number of records held in memory per chunk
const DefaultBatchSize = 100000

// ChunkLoader reads one chunk of a file and writes it with a single bulk insert
type ChunkLoader struct {
	repo      repository.ForecastRepository
	batchSize int
	logger    *logging.StructuredLogger
	metrics   *metrics.Collector
}

// NewChunkLoader creates a loader writing batches of up to batchSize records
func NewChunkLoader(repo repository.ForecastRepository, batchSize int, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *ChunkLoader {
	if batchSize < 1 {
		batchSize = DefaultBatchSize
	}
	return &ChunkLoader{
		repo:      repo,
		batchSize: batchSize,
		logger:    logger,
		metrics:   metricsCollector,
	}
}

// BatchSize returns the chunk size in rows
func (l *ChunkLoader) BatchSize() int {
	return l.batchSize
}

// LoadChunk reads up to BatchSize records of path starting at startRow and
// inserts them. An exhausted reader writes nothing and succeeds.
// progress, when set, accumulates rows written across the whole load.
func (l *ChunkLoader) LoadChunk(ctx context.Context, path string, startRow int, progress *atomic.Int64) (int, error) {
	l.metrics.ChunksInFlight.Inc()
	defer l.metrics.ChunksInFlight.Dec()

	timer := l.metrics.NewTimer(l.metrics.ChunkLoadDuration)
	log := l.logger.WithFields(logging.Fields{
		"file":      filepath.Base(path),
		"start_row": startRow,
	})

	reader, err := OpenRecordReader(path, startRow)
	if err != nil {
		l.metrics.RecordIngestionError("open_error")
		return 0, err
	}
	defer reader.Close()

	batch := make([]models.ForecastRecord, 0, min(l.batchSize, 1024))
	for len(batch) < l.batchSize && reader.Next() {
		batch = append(batch, reader.Record())
	}
	if err := reader.Err(); err != nil {
		l.metrics.RecordIngestionError("parse_error")
		return 0, err
	}

	if len(batch) == 0 {
		log.Debug(ctx, "[CHUNK_EMPTY] Reader exhausted, nothing to write", logging.Fields{})
		return 0, nil
	}

	if err := l.repo.InsertMany(ctx, batch); err != nil {
		l.metrics.RecordIngestionError("write_error")
		return 0, &models.StoreWriteError{Op: "insert_many", Err: err}
	}

	written := len(batch)
	var total int64
	if progress != nil {
		total = progress.Add(int64(written))
	}

	duration := timer.ObserveDuration()
	l.metrics.IngestionBatchSize.Observe(float64(written))
	l.metrics.IngestionRecordsTotal.Add(float64(written))

	log.Info(ctx, "[CHUNK_WRITTEN] Wrote rows to db", logging.Fields{
		"rows":        written,
		"total_rows":  total,
		"duration_ms": duration.Milliseconds(),
	})

	return written, nil
}
