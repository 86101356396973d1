package services

import (
	"compress/gzip"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"

	"weather-insight/internal/models"
)

// Recognized data file extensions, matched case-insensitively
const (
	extCSV     = ".csv"
	extCSVGzip = ".csv.gz"
	extCSVZstd = ".csv.zst"
)

// IsDataFile reports whether name carries a recognized data file extension
func IsDataFile(name string) bool {
	lower := strings.ToLower(name)
	return strings.HasSuffix(lower, extCSV) ||
		strings.HasSuffix(lower, extCSVGzip) ||
		strings.HasSuffix(lower, extCSVZstd)
}

// RecordReader streams data rows from one delimited file, one row at a time.
// It starts startRow rows after the header and cannot be rewound.
type RecordReader struct {
	path    string
	file    *os.File
	closers []func() error
	csv     *csv.Reader
	header  []string

	skip    int
	row     int
	current []string
	rec     models.ForecastRecord
	err     error
	done    bool
}

// CountRows counts the data rows of path in one streaming pass
func CountRows(path string) (int, error) {
	r, err := OpenRecordReader(path, 0)
	if err != nil {
		return 0, err
	}
	defer r.Close()

	n := 0
	for r.advance() {
		n++
	}
	if err := r.Err(); err != nil {
		return 0, err
	}
	return n, nil
}

// OpenRecordReader opens path and reads its header. Rows before startRow are
// skipped lazily on the first call to Next.
func OpenRecordReader(path string, startRow int) (*RecordReader, error) {
	if startRow < 0 {
		return nil, &models.ValidationError{
			Field:   "startRow",
			Value:   fmt.Sprint(startRow),
			Message: "start row must not be negative",
		}
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, &models.IOError{Path: path, Err: err}
	}

	r := &RecordReader{path: path, file: f, skip: startRow}

	src, err := r.decompress(f)
	if err != nil {
		r.Close()
		return nil, &models.IOError{Path: path, Err: err}
	}

	r.csv = csv.NewReader(src)
	r.csv.ReuseRecord = true

	header, err := r.csv.Read()
	switch {
	case errors.Is(err, io.EOF):
		// No header means no data rows
		r.done = true
		return r, nil
	case err != nil:
		r.Close()
		return nil, r.wrapReadErr(err, -1)
	}

	r.header = make([]string, len(header))
	for i, h := range header {
		r.header[i] = strings.TrimSpace(h)
	}
	r.csv.FieldsPerRecord = len(r.header)

	return r, nil
}

func (r *RecordReader) decompress(f *os.File) (io.Reader, error) {
	lower := strings.ToLower(filepath.Base(r.path))
	switch {
	case strings.HasSuffix(lower, ".gz"):
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("failed to create gzip reader: %w", err)
		}
		r.closers = append(r.closers, gz.Close)
		return gz, nil
	case strings.HasSuffix(lower, ".zst"):
		dec, err := zstd.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("failed to create zstd reader: %w", err)
		}
		r.closers = append(r.closers, func() error { dec.Close(); return nil })
		return dec, nil
	default:
		return f, nil
	}
}

// Next advances to the next record. It returns false at end of file or on
// the first error, after which Err reports the cause.
func (r *RecordReader) Next() bool {
	for r.skip > 0 {
		if !r.advance() {
			return false
		}
		r.skip--
	}

	if !r.advance() {
		return false
	}

	rec := make(models.ForecastRecord, len(r.header))
	for i, name := range r.header {
		rec[name] = r.current[i]
	}
	r.rec = rec
	return true
}

// advance reads one raw row without building a record
func (r *RecordReader) advance() bool {
	if r.done {
		return false
	}

	row, err := r.csv.Read()
	if err != nil {
		r.done = true
		r.current = nil
		if !errors.Is(err, io.EOF) {
			r.err = r.wrapReadErr(err, r.row)
		}
		return false
	}

	r.current = row
	r.row++
	return true
}

func (r *RecordReader) wrapReadErr(err error, row int) error {
	var parseErr *csv.ParseError
	if errors.As(err, &parseErr) {
		return &models.ParseError{Source: r.path, Row: row, Err: err}
	}
	return &models.IOError{Path: r.path, Err: err}
}

// Record returns the record read by the last call to Next
func (r *RecordReader) Record() models.ForecastRecord {
	return r.rec
}

// Row returns the 0-based data row index of the current record
func (r *RecordReader) Row() int {
	return r.row - 1
}

// Err returns the first error encountered, if any. Reaching end of file is not an error.
func (r *RecordReader) Err() error {
	return r.err
}

// Close releases the decompressor and the file
func (r *RecordReader) Close() error {
	var errs []error
	for i := len(r.closers) - 1; i >= 0; i-- {
		if err := r.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	r.closers = nil
	if r.file != nil {
		if err := r.file.Close(); err != nil {
			errs = append(errs, err)
		}
		r.file = nil
	}
	return errors.Join(errs...)
}
