package repository

import (
	"context"
	"sort"
	"sync"

	"weather-insight/internal/models"
)

// MemoryRepository keeps records in process memory. It backs memory:// URIs,
// dry runs and tests.
type MemoryRepository struct {
	mu      sync.RWMutex
	records []models.ForecastRecord
	indexes map[string][]string
}

// NewMemoryRepository creates an empty in-memory repository
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		indexes: make(map[string][]string),
	}
}

// InsertMany appends copies of the records
func (r *MemoryRepository) InsertMany(ctx context.Context, records []models.ForecastRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	copies := make([]models.ForecastRecord, len(records))
	for i, rec := range records {
		c := make(models.ForecastRecord, len(rec))
		for k, v := range rec {
			c[k] = v
		}
		copies[i] = c
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, copies...)
	return nil
}

// FindByCoordinates scans all records for an exact coordinate match
func (r *MemoryRepository) FindByCoordinates(ctx context.Context, lat, lon string) ([]models.ForecastRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	results := make([]models.ForecastRecord, 0)
	for _, rec := range r.records {
		if rec.Latitude() == lat && rec.Longitude() == lon {
			results = append(results, rec)
		}
	}
	return results, nil
}

// EnsureCoordinateIndex records the index definition once
func (r *MemoryRepository) EnsureCoordinateIndex(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.indexes[CoordinateIndexName]; !ok {
		r.indexes[CoordinateIndexName] = []string{models.FieldLongitude, models.FieldLatitude}
	}
	return nil
}

// Indexes returns index name to ordered key fields
func (r *MemoryRepository) Indexes() map[string][]string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string][]string, len(r.indexes))
	for name, keys := range r.indexes {
		out[name] = append([]string(nil), keys...)
	}
	return out
}

// IndexNames returns the sorted index names
func (r *MemoryRepository) IndexNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.indexes))
	for name := range r.indexes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Count returns the number of stored records
func (r *MemoryRepository) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.records)
}

// Records returns a snapshot of all stored records in insertion order
func (r *MemoryRepository) Records() []models.ForecastRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]models.ForecastRecord(nil), r.records...)
}

// HealthCheck always succeeds
func (r *MemoryRepository) HealthCheck(ctx context.Context) error {
	return ctx.Err()
}

// Close is a no-op
func (r *MemoryRepository) Close(ctx context.Context) error {
	return nil
}
