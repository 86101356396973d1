package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"weather-insight/internal/models"
	"weather-insight/internal/repository"
)

func newTestIngestion(repo repository.ForecastRepository, batchSize, concurrency int) *IngestionService {
	return NewIngestionService(repo, IngestionOptions{
		BatchSize:   batchSize,
		Concurrency: concurrency,
	}, newTestLogger(), newTestMetrics(), clockwork.NewFakeClock())
}

func TestChunkOffsets_CoverRowsExactly(t *testing.T) {
	for rows := 0; rows <= 40; rows++ {
		for batch := 1; batch <= 12; batch++ {
			offsets := ChunkOffsets(rows, batch)

			covered := make([]int, rows)
			for _, off := range offsets {
				require.Less(t, off, rows)
				for i := off; i < min(off+batch, rows); i++ {
					covered[i]++
				}
			}
			for i, c := range covered {
				require.Equalf(t, 1, c, "rows=%d batch=%d row=%d", rows, batch, i)
			}
		}
	}
}

func TestChunkOffsets(t *testing.T) {
	assert.Equal(t, []int{0, 100000, 200000}, ChunkOffsets(250000, 100000))
	assert.Equal(t, []int{0}, ChunkOffsets(100000, 100000))
	assert.Empty(t, ChunkOffsets(0, 10))
	assert.Empty(t, ChunkOffsets(10, 0))
}

func TestDiscoverDataFiles(t *testing.T) {
	dir := t.TempDir()
	writeCSV(t, dir, "b.csv", testRows(1))
	writeCSV(t, dir, "a.csv.gz", testRows(1))
	writeCSV(t, dir, "c.CSV", testRows(1))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested.csv"), 0o755))

	files, err := DiscoverDataFiles(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "a.csv.gz"),
		filepath.Join(dir, "b.csv"),
		filepath.Join(dir, "c.CSV"),
	}, files)
}

func TestLoadDirectory_Success(t *testing.T) {
	dir := t.TempDir()
	writeCSV(t, dir, "a.csv", testRows(7))
	writeCSV(t, dir, "b.csv.gz", testRows(3))
	writeCSV(t, dir, "c.csv.zst", testRows(0))

	repo := newRecordingRepo()
	svc := newTestIngestion(repo, 3, 4)

	result, err := svc.LoadDirectory(context.Background(), dir)
	require.NoError(t, err)

	assert.Equal(t, 3, result.Files)
	assert.Equal(t, 4, result.Chunks) // 3 for a.csv, 1 for b.csv.gz
	assert.Equal(t, int64(10), result.Records)
	assert.Equal(t, 10, repo.Count())
	assert.Equal(t, int64(1), repo.indexCalls.Load())
	assert.Equal(t, []string{repository.CoordinateIndexName}, repo.IndexNames())

	// every row of every file written exactly once
	seen := make(map[string]int)
	for _, rec := range repo.Records() {
		seen[rec.ForecastTime()]++
	}
	for i := 0; i < 3; i++ {
		assert.Equal(t, 2, seen[fmt.Sprintf("t%d", i)])
	}
	for i := 3; i < 7; i++ {
		assert.Equal(t, 1, seen[fmt.Sprintf("t%d", i)])
	}
}

func TestLoadDirectory_RerunAppendsAndKeepsOneIndex(t *testing.T) {
	dir := t.TempDir()
	writeCSV(t, dir, "a.csv", testRows(5))

	repo := newRecordingRepo()
	svc := newTestIngestion(repo, 2, 2)

	for i := 0; i < 2; i++ {
		_, err := svc.LoadDirectory(context.Background(), dir)
		require.NoError(t, err)
	}

	assert.Equal(t, 10, repo.Count())
	assert.Len(t, repo.Indexes(), 1)
}

func TestLoadDirectory_EmptyDirectory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "readme.md"), []byte("x"), 0o644))

	repo := newRecordingRepo()
	_, err := newTestIngestion(repo, 10, 4).LoadDirectory(context.Background(), dir)

	var nErr *models.NoInputFilesError
	require.True(t, errors.As(err, &nErr))
	assert.False(t, nErr.DirMissing)
	assert.Zero(t, repo.inserts.Load())
	assert.Zero(t, repo.indexCalls.Load())
}

func TestLoadDirectory_MissingDirectory(t *testing.T) {
	repo := newRecordingRepo()
	dir := filepath.Join(t.TempDir(), "absent")

	_, err := newTestIngestion(repo, 10, 4).LoadDirectory(context.Background(), dir)

	var nErr *models.NoInputFilesError
	require.True(t, errors.As(err, &nErr))
	assert.True(t, nErr.DirMissing)
	assert.Contains(t, err.Error(), "data folder path does not exist")
}

func TestLoadDirectory_ConcurrencyBound(t *testing.T) {
	dir := t.TempDir()
	writeCSV(t, dir, "a.csv", testRows(10))

	repo := newRecordingRepo()
	repo.delay = 20 * time.Millisecond
	svc := newTestIngestion(repo, 1, 4)

	result, err := svc.LoadDirectory(context.Background(), dir)
	require.NoError(t, err)

	assert.Equal(t, 10, result.Chunks)
	assert.Equal(t, int64(10), repo.inserts.Load())
	assert.LessOrEqual(t, repo.MaxInFlight(), 4)
	assert.GreaterOrEqual(t, repo.MaxInFlight(), 1)
}

func TestLoadDirectory_ConcurrentLoadsShareCap(t *testing.T) {
	dir := t.TempDir()
	writeCSV(t, dir, "a.csv", testRows(10))

	repo := newRecordingRepo()
	repo.delay = 50 * time.Millisecond
	svc := newTestIngestion(repo, 1, 4)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = svc.LoadDirectory(context.Background(), dir)
		}()
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}
	assert.Equal(t, int64(20), repo.inserts.Load())
	assert.LessOrEqual(t, repo.MaxInFlight(), 4)
}

func TestLoadDirectory_FirstFailureAborts(t *testing.T) {
	dir := t.TempDir()
	writeCSV(t, dir, "a.csv", testRows(20))

	repo := newRecordingRepo()
	repo.insertErr = errors.New("write concern error")
	svc := newTestIngestion(repo, 1, 2)

	_, err := svc.LoadDirectory(context.Background(), dir)

	var wErr *models.StoreWriteError
	require.True(t, errors.As(err, &wErr))
	assert.Less(t, repo.inserts.Load(), int64(20), "remaining chunks are not dispatched")
	assert.Zero(t, repo.indexCalls.Load(), "index is only built after a full load")
}

func TestLoadDirectory_MalformedFileFailsBeforeWrites(t *testing.T) {
	dir := t.TempDir()
	writeCSV(t, dir, "a.csv", testRows(3))
	writeCSV(t, dir, "b.csv", []string{"10,20,t0,5"})

	repo := newRecordingRepo()
	_, err := newTestIngestion(repo, 10, 4).LoadDirectory(context.Background(), dir)

	var pErr *models.ParseError
	require.True(t, errors.As(err, &pErr))
	assert.Zero(t, repo.inserts.Load())
}

func TestLoadDirectory_IndexFailure(t *testing.T) {
	dir := t.TempDir()
	writeCSV(t, dir, "a.csv", testRows(2))

	repo := newRecordingRepo()
	repo.indexErr = errors.New("not authorized")

	_, err := newTestIngestion(repo, 10, 4).LoadDirectory(context.Background(), dir)

	var wErr *models.StoreWriteError
	require.True(t, errors.As(err, &wErr))
	assert.Equal(t, "create_index", wErr.Op)
	assert.Equal(t, 2, repo.Count())
}

func TestIndexManager_EmptyCollectionAndRepeat(t *testing.T) {
	repo := repository.NewMemoryRepository()
	mgr := NewIndexManager(repo, newTestLogger())

	require.NoError(t, mgr.EnsureIndex(context.Background()))
	require.NoError(t, mgr.EnsureIndex(context.Background()))

	assert.Equal(t, []string{repository.CoordinateIndexName}, repo.IndexNames())
	assert.Equal(t, []string{models.FieldLongitude, models.FieldLatitude}, repo.Indexes()[repository.CoordinateIndexName])
}
