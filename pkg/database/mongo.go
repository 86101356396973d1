package database

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"go.mongodb.org/mongo-driver/v2/event"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"

	"weather-insight/pkg/logging"
	"weather-insight/pkg/metrics"
)

// MongoConfig holds MongoDB connection configuration
type MongoConfig struct {
	URI         string
	Database    string
	Collection  string
	MaxPoolSize uint64
}

// MongoDB wraps a mongo.Client with pool metrics
type MongoDB struct {
	client  *mongo.Client
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
	config  *MongoConfig

	inUse atomic.Int64
	open  atomic.Int64
}

// NewMongoDB connects to MongoDB and verifies the connection with a ping
func NewMongoDB(ctx context.Context, cfg *MongoConfig, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) (*MongoDB, error) {
	m := &MongoDB{
		logger:  logger,
		metrics: metricsCollector,
		config:  cfg,
	}

	opts := options.Client().
		ApplyURI(cfg.URI).
		SetPoolMonitor(&event.PoolMonitor{Event: m.onPoolEvent})
	if cfg.MaxPoolSize > 0 {
		opts.SetMaxPoolSize(cfg.MaxPoolSize)
	}

	client, err := mongo.Connect(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create mongodb client: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	logger.Info(ctx, "[DB_INIT] MongoDB connection established", logging.Fields{
		"database":      cfg.Database,
		"collection":    cfg.Collection,
		"max_pool_size": cfg.MaxPoolSize,
	})

	m.client = client
	return m, nil
}

// Collection returns the configured forecast collection
func (m *MongoDB) Collection() *mongo.Collection {
	return m.client.Database(m.config.Database).Collection(m.config.Collection)
}

// Close disconnects the client
func (m *MongoDB) Close(ctx context.Context) error {
	m.logger.Info(ctx, "[DB_CLOSE] Closing MongoDB connection", logging.Fields{
		"database": m.config.Database,
	})
	return m.client.Disconnect(ctx)
}

// HealthCheck pings the primary
func (m *MongoDB) HealthCheck(ctx context.Context) error {
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := m.client.Ping(pingCtx, readpref.Primary()); err != nil {
		return fmt.Errorf("database health check failed: %w", err)
	}
	return nil
}

func (m *MongoDB) onPoolEvent(evt *event.PoolEvent) {
	switch evt.Type {
	case event.ConnectionCreated:
		m.open.Add(1)
	case event.ConnectionClosed:
		m.open.Add(-1)
	case event.ConnectionCheckedOut:
		m.inUse.Add(1)
	case event.ConnectionCheckedIn:
		m.inUse.Add(-1)
	default:
		return
	}

	inUse := int(m.inUse.Load())
	open := int(m.open.Load())
	idle := open - inUse
	if idle < 0 {
		idle = 0
	}
	m.metrics.UpdateDBConnectionPool(inUse, idle, open)
}
