package services

import (
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"weather-insight/internal/models"
	"weather-insight/internal/repository"
	"weather-insight/pkg/logging"
	"weather-insight/pkg/metrics"
)

const testHeader = "Latitude,Longitude,forecast_time,Temperature Celsius,Precipitation Rate mm/hr"

func newTestLogger() *logging.StructuredLogger {
	logger := logging.NewStructuredLogger("test", "test", logging.ErrorLevel)
	logger.SetOutput(io.Discard)
	return logger
}

func newTestMetrics() *metrics.Collector {
	return metrics.NewCollectorWithRegistry("test", prometheus.NewRegistry())
}

// testRows renders n data rows; row i has forecast_time "t<i>"
func testRows(n int) []string {
	rows := make([]string, n)
	for i := range rows {
		rows[i] = fmt.Sprintf("10,20,t%d,%d,0.1", i, i)
	}
	return rows
}

func writeCSV(t *testing.T, dir, name string, rows []string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	content := testHeader + "\n" + strings.Join(rows, "\n")
	if len(rows) > 0 {
		content += "\n"
	}

	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	lower := strings.ToLower(name)
	var w io.WriteCloser
	switch {
	case strings.HasSuffix(lower, ".gz"):
		w = gzip.NewWriter(f)
	case strings.HasSuffix(lower, ".zst"):
		enc, err := zstd.NewWriter(f)
		require.NoError(t, err)
		w = enc
	default:
		_, err := f.WriteString(content)
		require.NoError(t, err)
		return path
	}

	_, err = w.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return path
}

// recordingRepo wraps the memory repository and tracks concurrent inserts
type recordingRepo struct {
	*repository.MemoryRepository

	delay     time.Duration
	insertErr error
	indexErr  error
	findErr   error

	mu          sync.Mutex
	inFlight    int
	maxInFlight int
	inserts     atomic.Int64
	indexCalls  atomic.Int64
}

func newRecordingRepo() *recordingRepo {
	return &recordingRepo{MemoryRepository: repository.NewMemoryRepository()}
}

func (r *recordingRepo) InsertMany(ctx context.Context, records []models.ForecastRecord) error {
	r.mu.Lock()
	r.inFlight++
	if r.inFlight > r.maxInFlight {
		r.maxInFlight = r.inFlight
	}
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		r.inFlight--
		r.mu.Unlock()
	}()

	r.inserts.Add(1)
	if r.delay > 0 {
		time.Sleep(r.delay)
	}
	if r.insertErr != nil {
		return r.insertErr
	}
	return r.MemoryRepository.InsertMany(ctx, records)
}

func (r *recordingRepo) EnsureCoordinateIndex(ctx context.Context) error {
	r.indexCalls.Add(1)
	if r.indexErr != nil {
		return r.indexErr
	}
	return r.MemoryRepository.EnsureCoordinateIndex(ctx)
}

func (r *recordingRepo) FindByCoordinates(ctx context.Context, lat, lon string) ([]models.ForecastRecord, error) {
	if r.findErr != nil {
		return nil, r.findErr
	}
	return r.MemoryRepository.FindByCoordinates(ctx, lat, lon)
}

func (r *recordingRepo) MaxInFlight() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.maxInFlight
}
