package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"weather-insight/internal/models"
	"weather-insight/internal/repository"
	"weather-insight/pkg/logging"
	"weather-insight/pkg/metrics"
)

// DefaultConcurrency is the number of chunk loads allowed in flight at once,
// across all loads running on the same service
const DefaultConcurrency = 4

// IngestionOptions configures the bulk load
type IngestionOptions struct {
	BatchSize   int
	Concurrency int
}

// IngestionService loads every data file of a directory into the store
type IngestionService struct {
	loader      *ChunkLoader
	index       *IndexManager
	concurrency int
	inFlight    *semaphore.Weighted
	logger      *logging.StructuredLogger
	metrics     *metrics.Collector
	clock       clockwork.Clock
}

// LoadResult summarizes a completed load
type LoadResult struct {
	Files    int           `json:"files"`
	Chunks   int           `json:"chunks"`
	Records  int64         `json:"records"`
	Duration time.Duration `json:"duration"`
}

// NewIngestionService creates a new ingestion service
func NewIngestionService(repo repository.ForecastRepository, opts IngestionOptions, logger *logging.StructuredLogger, metricsCollector *metrics.Collector, clock clockwork.Clock) *IngestionService {
	if opts.Concurrency < 1 {
		opts.Concurrency = DefaultConcurrency
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &IngestionService{
		loader:      NewChunkLoader(repo, opts.BatchSize, logger, metricsCollector),
		index:       NewIndexManager(repo, logger),
		concurrency: opts.Concurrency,
		inFlight:    semaphore.NewWeighted(int64(opts.Concurrency)),
		logger:      logger,
		metrics:     metricsCollector,
		clock:       clock,
	}
}

// chunk is one unit of work: a file and the first row of its slice
type chunk struct {
	path     string
	startRow int
}

// LoadDirectory loads all data files in dir and then ensures the coordinate index.
// The first failing chunk aborts the load; chunks already written stay written.
func (s *IngestionService) LoadDirectory(ctx context.Context, dir string) (*LoadResult, error) {
	start := s.clock.Now()

	s.logger.Info(ctx, "[LOAD_START] Writing data to db", logging.Fields{
		"data_dir":    dir,
		"batch_size":  s.loader.BatchSize(),
		"concurrency": s.concurrency,
		"stage":       "INITIALIZATION",
	})

	files, err := DiscoverDataFiles(dir)
	if err != nil {
		s.metrics.RecordIngestionError("no_input")
		return nil, err
	}

	s.logger.Info(ctx, "[LOAD_FILES] Found data files", logging.Fields{
		"file_count": len(files),
		"stage":      "FILE_DISCOVERY",
	})

	chunks, err := s.plan(ctx, files)
	if err != nil {
		s.metrics.RecordIngestionError("plan_error")
		return nil, err
	}

	s.logger.Info(ctx, "[LOAD_PLAN] Computed chunk boundaries", logging.Fields{
		"file_count":  len(files),
		"chunk_count": len(chunks),
		"stage":       "PLANNING",
	})

	var written atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	for _, c := range chunks {
		c := c
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}

			if err := s.inFlight.Acquire(gctx, 1); err != nil {
				return err
			}
			defer s.inFlight.Release(1)

			if _, err := s.loader.LoadChunk(gctx, c.path, c.startRow, &written); err != nil {
				log := s.logger.WithFields(logging.Fields{
					"data_file": filepath.Base(c.path),
					"start_row": c.startRow,
				})
				log.Error(ctx, "[LOAD_CHUNK_ERROR] Chunk load failed", logging.Fields{
					"stage": "CHUNK_LOAD",
				}, err)
				return err
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		s.logger.Error(ctx, "[LOAD_ABORTED] Load aborted after chunk failure", logging.Fields{
			"rows_written": written.Load(),
			"stage":        "CHUNK_LOAD",
		}, err)
		return nil, err
	}

	s.logger.Info(ctx, "[LOAD_WRITTEN] Finished writing to db", logging.Fields{
		"rows_written": written.Load(),
		"stage":        "CHUNK_LOAD",
	})

	if err := s.index.EnsureIndex(ctx); err != nil {
		return nil, err
	}

	result := &LoadResult{
		Files:    len(files),
		Chunks:   len(chunks),
		Records:  written.Load(),
		Duration: s.clock.Since(start),
	}
	s.metrics.IngestionDuration.Observe(result.Duration.Seconds())

	fields := logging.Fields{
		"total_files":      result.Files,
		"total_chunks":     result.Chunks,
		"total_records":    result.Records,
		"duration_seconds": result.Duration.Seconds(),
		"stage":            "COMPLETE",
	}
	if secs := result.Duration.Seconds(); secs > 0 {
		fields["records_per_second"] = float64(result.Records) / secs
	}
	s.logger.Info(ctx, "[LOAD_COMPLETE] Weather data stored in db successfully", fields)

	return result, nil
}

// EnsureIndex exposes the index step for startup and migrations
func (s *IngestionService) EnsureIndex(ctx context.Context) error {
	return s.index.EnsureIndex(ctx)
}

// plan counts every file's rows, bounded by the same concurrency cap, and
// expands them into chunks in file order
func (s *IngestionService) plan(ctx context.Context, files []string) ([]chunk, error) {
	counts := make([]int, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, path := range files {
		i, path := i, path
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			n, err := CountRows(path)
			if err != nil {
				return err
			}
			counts[i] = n
			s.logger.Debug(ctx, "[LOAD_COUNT] Counted rows", logging.Fields{
				"file": filepath.Base(path),
				"rows": n,
			})
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var chunks []chunk
	for i, path := range files {
		for _, off := range ChunkOffsets(counts[i], s.loader.BatchSize()) {
			chunks = append(chunks, chunk{path: path, startRow: off})
		}
	}
	return chunks, nil
}

// DiscoverDataFiles lists the data files directly inside dir, sorted by name
func DiscoverDataFiles(dir string) ([]string, error) {
	info, err := os.Stat(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, &models.NoInputFilesError{Dir: dir, DirMissing: true}
		}
		return nil, &models.IOError{Path: dir, Err: err}
	}
	if !info.IsDir() {
		return nil, &models.NoInputFilesError{Dir: dir, DirMissing: true}
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, &models.IOError{Path: dir, Err: fmt.Errorf("failed to read directory: %w", err)}
	}

	files := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.Type().IsRegular() || !IsDataFile(e.Name()) {
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	if len(files) == 0 {
		return nil, &models.NoInputFilesError{Dir: dir}
	}

	sort.Strings(files)
	return files, nil
}

// ChunkOffsets returns 0, B, 2B, ... for every offset below rowCount
func ChunkOffsets(rowCount, batchSize int) []int {
	if rowCount <= 0 || batchSize < 1 {
		return nil
	}
	offsets := make([]int, 0, (rowCount+batchSize-1)/batchSize)
	for off := 0; off < rowCount; off += batchSize {
		offsets = append(offsets, off)
	}
	return offsets
}
