package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"weather-insight/internal/models"
	"weather-insight/pkg/database"
	"weather-insight/pkg/logging"
	"weather-insight/pkg/metrics"
)

// indexOptionsConflict is returned when an index on the same keys exists under another name
const indexOptionsConflict = 85

// MongoRepository stores forecast records as documents in one collection
type MongoRepository struct {
	db      *database.MongoDB
	coll    *mongo.Collection
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
}

// NewMongoRepository creates a repository over the configured collection
func NewMongoRepository(db *database.MongoDB, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *MongoRepository {
	return &MongoRepository{
		db:      db,
		coll:    db.Collection(),
		logger:  logger,
		metrics: metricsCollector,
	}
}

// InsertMany issues one unordered bulk insert for the batch
func (r *MongoRepository) InsertMany(ctx context.Context, records []models.ForecastRecord) error {
	if len(records) == 0 {
		return nil
	}

	timer := time.Now()
	defer func() {
		duration := time.Since(timer)
		r.metrics.DBQueryDuration.WithLabelValues("insert_many").Observe(duration.Seconds())
		r.logger.Debug(ctx, "[REPO_BATCH_INSERT] Batch insert completed", logging.Fields{
			"count":       len(records),
			"duration_ms": duration.Milliseconds(),
		})
	}()

	docs := make([]any, len(records))
	for i, rec := range records {
		docs[i] = rec
	}

	if _, err := r.coll.InsertMany(ctx, docs, options.InsertMany().SetOrdered(false)); err != nil {
		r.metrics.RecordDBError("insert_error")
		return fmt.Errorf("failed to insert records: %w", err)
	}
	return nil
}

// FindByCoordinates returns matching documents sorted by _id, which follows insertion order
func (r *MongoRepository) FindByCoordinates(ctx context.Context, lat, lon string) ([]models.ForecastRecord, error) {
	timer := time.Now()
	defer func() {
		r.metrics.DBQueryDuration.WithLabelValues("find_by_coordinates").Observe(time.Since(timer).Seconds())
	}()

	filter := bson.D{
		{Key: models.FieldLatitude, Value: lat},
		{Key: models.FieldLongitude, Value: lon},
	}
	cursor, err := r.coll.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		r.metrics.RecordDBError("query_error")
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	defer cursor.Close(ctx)

	results := make([]models.ForecastRecord, 0)
	for cursor.Next(ctx) {
		var doc bson.M
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode record: %w", err)
		}
		results = append(results, documentToRecord(doc))
	}
	if err := cursor.Err(); err != nil {
		r.metrics.RecordDBError("cursor_error")
		return nil, fmt.Errorf("failed to iterate records: %w", err)
	}

	return results, nil
}

// EnsureCoordinateIndex creates {Longitude: 1, Latitude: 1}. The server treats an
// identical index as already present.
func (r *MongoRepository) EnsureCoordinateIndex(ctx context.Context) error {
	model := mongo.IndexModel{
		Keys: bson.D{
			{Key: models.FieldLongitude, Value: 1},
			{Key: models.FieldLatitude, Value: 1},
		},
		Options: options.Index().SetName(CoordinateIndexName),
	}

	name, err := r.coll.Indexes().CreateOne(ctx, model)
	if err != nil {
		var serverErr mongo.ServerError
		if errors.As(err, &serverErr) && serverErr.HasErrorCode(indexOptionsConflict) {
			r.logger.Warn(ctx, "[REPO_INDEX_EXISTS] Coordinate index exists under another name", logging.Fields{
				"index": CoordinateIndexName,
			})
			return nil
		}
		r.metrics.RecordDBError("index_error")
		return fmt.Errorf("failed to create coordinate index: %w", err)
	}

	r.logger.Debug(ctx, "[REPO_INDEX] Coordinate index ensured", logging.Fields{
		"index": name,
	})
	return nil
}

// Drop removes the forecast collection and its indexes
func (r *MongoRepository) Drop(ctx context.Context) error {
	if err := r.coll.Drop(ctx); err != nil {
		return fmt.Errorf("failed to drop collection: %w", err)
	}
	return nil
}

// HealthCheck performs a repository health check
func (r *MongoRepository) HealthCheck(ctx context.Context) error {
	return r.db.HealthCheck(ctx)
}

// Close disconnects from MongoDB
func (r *MongoRepository) Close(ctx context.Context) error {
	return r.db.Close(ctx)
}

// documentToRecord drops _id and renders every value as text
func documentToRecord(doc bson.M) models.ForecastRecord {
	rec := make(models.ForecastRecord, len(doc))
	for k, v := range doc {
		if k == "_id" {
			continue
		}
		rec[k] = valueString(v)
	}
	return rec
}

func valueString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int32:
		return strconv.FormatInt(int64(t), 10)
	case int64:
		return strconv.FormatInt(t, 10)
	case bool:
		return strconv.FormatBool(t)
	case nil:
		return ""
	default:
		return fmt.Sprint(t)
	}
}
