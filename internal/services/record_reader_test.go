package services

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"weather-insight/internal/models"
)

func readAll(t *testing.T, path string, startRow int) []models.ForecastRecord {
	t.Helper()
	r, err := OpenRecordReader(path, startRow)
	require.NoError(t, err)
	defer r.Close()

	var out []models.ForecastRecord
	for r.Next() {
		out = append(out, r.Record())
	}
	require.NoError(t, r.Err())
	return out
}

func TestRecordReader_FromStart(t *testing.T) {
	path := writeCSV(t, t.TempDir(), "a.csv", testRows(3))

	recs := readAll(t, path, 0)
	require.Len(t, recs, 3)
	assert.Equal(t, "10", recs[0].Latitude())
	assert.Equal(t, "20", recs[0].Longitude())
	assert.Equal(t, "t0", recs[0].ForecastTime())
	assert.Equal(t, "0.1", recs[2][models.FieldPrecipitationMmHr])
	assert.Equal(t, "t2", recs[2].ForecastTime())
}

func TestRecordReader_StartOffset(t *testing.T) {
	path := writeCSV(t, t.TempDir(), "a.csv", testRows(5))

	recs := readAll(t, path, 3)
	require.Len(t, recs, 2)
	assert.Equal(t, "t3", recs[0].ForecastTime())
	assert.Equal(t, "t4", recs[1].ForecastTime())
}

func TestRecordReader_PastEndIsEmpty(t *testing.T) {
	path := writeCSV(t, t.TempDir(), "a.csv", testRows(2))

	assert.Empty(t, readAll(t, path, 2))
	assert.Empty(t, readAll(t, path, 100))
}

func TestRecordReader_RecordsAreIndependent(t *testing.T) {
	path := writeCSV(t, t.TempDir(), "a.csv", testRows(2))

	r, err := OpenRecordReader(path, 0)
	require.NoError(t, err)
	defer r.Close()

	require.True(t, r.Next())
	first := r.Record()
	require.True(t, r.Next())
	assert.Equal(t, "t0", first.ForecastTime())
	assert.Equal(t, 1, r.Row())
}

func TestRecordReader_Compressed(t *testing.T) {
	for _, name := range []string{"a.csv.gz", "a.csv.zst", "A.CSV.GZ"} {
		t.Run(name, func(t *testing.T) {
			path := writeCSV(t, t.TempDir(), name, testRows(4))
			recs := readAll(t, path, 1)
			require.Len(t, recs, 3)
			assert.Equal(t, "t1", recs[0].ForecastTime())
		})
	}
}

func TestRecordReader_MissingFile(t *testing.T) {
	_, err := OpenRecordReader(filepath.Join(t.TempDir(), "nope.csv"), 0)

	var ioErr *models.IOError
	require.True(t, errors.As(err, &ioErr))
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestRecordReader_NegativeStart(t *testing.T) {
	path := writeCSV(t, t.TempDir(), "a.csv", testRows(1))

	_, err := OpenRecordReader(path, -1)
	var vErr *models.ValidationError
	assert.True(t, errors.As(err, &vErr))
}

func TestRecordReader_WrongColumnCount(t *testing.T) {
	rows := []string{"10,20,t0,5,0.1", "10,20,t1,5", "10,20,t2,5,0.1"}
	path := writeCSV(t, t.TempDir(), "bad.csv", rows)

	r, err := OpenRecordReader(path, 0)
	require.NoError(t, err)
	defer r.Close()

	require.True(t, r.Next())
	assert.False(t, r.Next())
	assert.False(t, r.Next())

	var pErr *models.ParseError
	require.True(t, errors.As(r.Err(), &pErr))
	assert.Equal(t, 1, pErr.Row)
	assert.Equal(t, path, pErr.Source)
}

func TestRecordReader_EmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.csv")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	assert.Empty(t, readAll(t, path, 0))

	n, err := CountRows(path)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestCountRows(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name string
		rows int
	}{
		{"none.csv", 0},
		{"one.csv", 1},
		{"many.csv.gz", 257},
		{"many.csv.zst", 1000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeCSV(t, dir, tt.name, testRows(tt.rows))
			n, err := CountRows(path)
			require.NoError(t, err)
			assert.Equal(t, tt.rows, n)
		})
	}
}

func TestIsDataFile(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"forecast.csv", true},
		{"FORECAST.CSV", true},
		{"forecast.csv.gz", true},
		{"forecast.csv.zst", true},
		{"forecast.txt", false},
		{"forecast.csv.bak", false},
		{"csv", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsDataFile(tt.name))
		})
	}
}
