package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"weather-insight/internal/models"
	"weather-insight/internal/repository"
	"weather-insight/internal/services"
	"weather-insight/pkg/logging"
	"weather-insight/pkg/metrics"
)

const healthCheckTimeout = 2 * time.Second

// WeatherHandler handles the load and insight endpoints
type WeatherHandler struct {
	ingestion *services.IngestionService
	insight   *services.InsightService
	repo      repository.ForecastRepository
	dataDir   string
	logger    *logging.StructuredLogger
	metrics   *metrics.Collector
}

// NewWeatherHandler creates a new weather handler
func NewWeatherHandler(
	ingestion *services.IngestionService,
	insight *services.InsightService,
	repo repository.ForecastRepository,
	dataDir string,
	logger *logging.StructuredLogger,
	metricsCollector *metrics.Collector,
) *WeatherHandler {
	return &WeatherHandler{
		ingestion: ingestion,
		insight:   insight,
		repo:      repo,
		dataDir:   dataDir,
		logger:    logger,
		metrics:   metricsCollector,
	}
}

// ErrorResponse represents an API error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// LoadResponse is returned by a successful load
type LoadResponse struct {
	Message string               `json:"message"`
	Result  *services.LoadResult `json:"result"`
}

// LoadToDB handles GET /load_to_db
func (h *WeatherHandler) LoadToDB(w http.ResponseWriter, r *http.Request) {
	// A client disconnect must not abort a load that is already writing
	ctx := context.WithoutCancel(r.Context())

	result, err := h.ingestion.LoadDirectory(ctx, h.dataDir)
	if err != nil {
		h.handleError(w, r, "/load_to_db", err)
		return
	}

	h.sendJSON(w, LoadResponse{
		Message: "Weather data stored in db successfully",
		Result:  result,
	}, http.StatusOK)
}

// WeatherInsight handles GET /weather/insight
func (h *WeatherHandler) WeatherInsight(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	results, err := h.insight.Query(r.Context(), q.Get("condition"), q.Get("lat"), q.Get("lon"))
	if err != nil {
		h.handleError(w, r, "/weather/insight", err)
		return
	}

	h.sendJSON(w, results, http.StatusOK)
}

// HealthCheck handles GET /health
func (h *WeatherHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	status := map[string]string{
		"status":    "healthy",
		"store":     "up",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	code := http.StatusOK

	if err := h.repo.HealthCheck(ctx); err != nil {
		h.logger.Warn(ctx, "[HEALTH_CHECK] Store unreachable", logging.Fields{
			"error": err.Error(),
		})
		status["status"] = "unhealthy"
		status["store"] = "down"
		code = http.StatusServiceUnavailable
	}

	h.sendJSON(w, status, code)
}

// handleError logs the cause and maps it to a status and a generic message
func (h *WeatherHandler) handleError(w http.ResponseWriter, r *http.Request, endpoint string, err error) {
	ctx := r.Context()

	var (
		validationErr *models.ValidationError
		noInputErr    *models.NoInputFilesError
		writeErr      *models.StoreWriteError
		queryErr      *models.StoreQueryError
	)

	switch {
	case errors.As(err, &validationErr):
		h.metrics.RecordAPIError("validation_error", endpoint)
		h.sendError(w, validationErr.Message, http.StatusBadRequest)

	case errors.As(err, &noInputErr):
		h.logger.Warn(ctx, "[API_NO_INPUT] No data files to load", logging.Fields{
			"data_dir":    noInputErr.Dir,
			"dir_missing": noInputErr.DirMissing,
		})
		h.metrics.RecordAPIError("no_input_files", endpoint)
		message := "No data files found in the data folder"
		if noInputErr.DirMissing {
			message = "Data folder path does not exist"
		}
		h.sendError(w, message, http.StatusBadRequest)

	case errors.As(err, &writeErr):
		h.logger.Error(ctx, "[API_STORE_WRITE_ERROR] Error writing to database", logging.Fields{
			"endpoint": endpoint,
			"op":       writeErr.Op,
		}, err)
		h.metrics.RecordAPIError("store_write_error", endpoint)
		h.sendError(w, "Error writing to database", http.StatusInternalServerError)

	case errors.As(err, &queryErr):
		h.logger.Error(ctx, "[API_STORE_QUERY_ERROR] Database query error", logging.Fields{
			"endpoint": endpoint,
			"op":       queryErr.Op,
		}, err)
		h.metrics.RecordAPIError("store_query_error", endpoint)
		h.sendError(w, "Database query error", http.StatusInternalServerError)

	default:
		h.logger.Error(ctx, "[API_INTERNAL_ERROR] Error processing request", logging.Fields{
			"endpoint": endpoint,
		}, err)
		h.metrics.RecordAPIError("internal_error", endpoint)
		h.sendError(w, "Internal server error", http.StatusInternalServerError)
	}
}

// sendJSON sends a JSON response
func (h *WeatherHandler) sendJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

// sendError sends an error response
func (h *WeatherHandler) sendError(w http.ResponseWriter, message string, statusCode int) {
	response := ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
		Code:    statusCode,
	}

	h.sendJSON(w, response, statusCode)
}

// RegisterRoutes registers the API routes, the docs and the middleware chain
func (h *WeatherHandler) RegisterRoutes(router *mux.Router) {
	router.Use(RequestID, AccessLog(h.logger, h.metrics))

	router.HandleFunc("/load_to_db", h.LoadToDB).Methods("GET")
	router.HandleFunc("/weather/insight", h.WeatherInsight).Methods("GET")
	router.HandleFunc("/health", h.HealthCheck).Methods("GET")
	router.HandleFunc("/api/docs/openapi.json", OpenAPISpec).Methods("GET")
	router.HandleFunc("/api/docs", SwaggerUI).Methods("GET")
}
