package repository

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"

	"weather-insight/internal/models"
	"weather-insight/pkg/database"
	"weather-insight/pkg/logging"
	"weather-insight/pkg/metrics"
)

//go:embed migrations/*.sql
var migrations embed.FS

const recordsTable = "forecast_records"

// Migration directions accepted by Migrate
const (
	MigrateUp   = "up"
	MigrateDown = "down"
)

// PostgresRepository stores forecast records as JSONB documents
type PostgresRepository struct {
	db      *database.PostgresDB
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
}

// NewPostgresRepository creates a repository over an open PostgreSQL connection
func NewPostgresRepository(db *database.PostgresDB, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *PostgresRepository {
	return &PostgresRepository{
		db:      db,
		logger:  logger,
		metrics: metricsCollector,
	}
}

// InsertMany copies the batch into forecast_records inside one transaction
func (r *PostgresRepository) InsertMany(ctx context.Context, records []models.ForecastRecord) error {
	if len(records) == 0 {
		return nil
	}

	rows := make([][]interface{}, len(records))
	for i, rec := range records {
		doc, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("failed to encode record: %w", err)
		}
		rows[i] = []interface{}{string(doc)}
	}

	if err := r.db.CopyIn(ctx, recordsTable, []string{"doc"}, rows); err != nil {
		return fmt.Errorf("failed to insert records: %w", err)
	}
	return nil
}

// FindByCoordinates selects documents by exact coordinate text, in insertion order
func (r *PostgresRepository) FindByCoordinates(ctx context.Context, lat, lon string) ([]models.ForecastRecord, error) {
	query := `
		SELECT doc
		FROM forecast_records
		WHERE doc->>'Latitude' = $1 AND doc->>'Longitude' = $2
		ORDER BY id
	`

	rows, err := r.db.QueryContext(ctx, "find_by_coordinates", query, lat, lon)
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	defer rows.Close()

	results := make([]models.ForecastRecord, 0)
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		var rec models.ForecastRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			r.metrics.RecordDBError("decode_error")
			return nil, fmt.Errorf("failed to decode record: %w", err)
		}
		results = append(results, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate records: %w", err)
	}

	return results, nil
}

// EnsureCoordinateIndex applies the schema, which creates the table and the
// coordinate index only when they are missing
func (r *PostgresRepository) EnsureCoordinateIndex(ctx context.Context) error {
	return r.Migrate(ctx, MigrateUp)
}

// Migrate runs the embedded schema script for the given direction
func (r *PostgresRepository) Migrate(ctx context.Context, direction string) error {
	if direction != MigrateUp && direction != MigrateDown {
		return fmt.Errorf("unknown migration direction %q", direction)
	}

	name := fmt.Sprintf("migrations/001_create_forecast_records.%s.sql", direction)
	script, err := migrations.ReadFile(name)
	if err != nil {
		return fmt.Errorf("failed to read migration %s: %w", name, err)
	}

	if _, err := r.db.ExecContext(ctx, "migrate_"+direction, string(script)); err != nil {
		return fmt.Errorf("failed to run migration %s: %w", name, err)
	}

	r.logger.Info(ctx, "[REPO_MIGRATE] Schema migration applied", logging.Fields{
		"direction": direction,
		"script":    name,
	})
	return nil
}

// HealthCheck performs a repository health check
func (r *PostgresRepository) HealthCheck(ctx context.Context) error {
	return r.db.HealthCheck(ctx)
}

// Close closes the underlying connection pool
func (r *PostgresRepository) Close(ctx context.Context) error {
	return r.db.Close()
}
