package services

import (
	"context"
	"fmt"

	"github.com/jonboulle/clockwork"

	"weather-insight/internal/models"
	"weather-insight/internal/repository"
	"weather-insight/pkg/logging"
	"weather-insight/pkg/metrics"
)

// InsightService evaluates a named condition over the records at one coordinate
type InsightService struct {
	repo    repository.ForecastRepository
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
	clock   clockwork.Clock
}

// NewInsightService creates a new insight service
func NewInsightService(repo repository.ForecastRepository, logger *logging.StructuredLogger, metricsCollector *metrics.Collector, clock clockwork.Clock) *InsightService {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &InsightService{
		repo:    repo,
		logger:  logger,
		metrics: metricsCollector,
		clock:   clock,
	}
}

// Query returns one result per record matching lat and lon exactly, in store order.
// A record that cannot be evaluated fails the whole query.
func (s *InsightService) Query(ctx context.Context, condition, lat, lon string) ([]models.InsightResult, error) {
	if condition == "" || lat == "" || lon == "" {
		return nil, &models.ValidationError{
			Field:   missingParam(condition, lat, lon),
			Message: "Missing query parameters",
		}
	}

	cond, err := models.ParseCondition(condition)
	if err != nil {
		return nil, err
	}

	start := s.clock.Now()
	s.logger.Info(ctx, "[INSIGHT_QUERY] Querying DB", logging.Fields{
		"condition": condition,
		"lat":       lat,
		"lon":       lon,
	})

	records, err := s.repo.FindByCoordinates(ctx, lat, lon)
	if err != nil {
		return nil, &models.StoreQueryError{Op: "find_by_coordinates", Err: err}
	}

	results := make([]models.InsightResult, 0, len(records))
	for i, rec := range records {
		met, err := cond.Evaluate(rec)
		if err != nil {
			return nil, fmt.Errorf("record %d at forecast time %q: %w", i, rec.ForecastTime(), err)
		}
		s.metrics.RecordInsightEvaluation(string(cond), met)
		results = append(results, models.InsightResult{
			ForecastTime: rec.ForecastTime(),
			ConditionMet: met,
		})
	}

	s.logger.Info(ctx, "[INSIGHT_RESULT] Query results returned successfully", logging.Fields{
		"condition":   condition,
		"records":     len(results),
		"duration_ms": s.clock.Since(start).Milliseconds(),
	})

	return results, nil
}

func missingParam(condition, lat, lon string) string {
	switch {
	case condition == "":
		return "condition"
	case lat == "":
		return "lat"
	default:
		return "lon"
	}
}
