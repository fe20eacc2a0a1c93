package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kjstillabower/clima-service/internal/client"
	"github.com/kjstillabower/clima-service/internal/degraded"
	"github.com/kjstillabower/clima-service/internal/lifecycle"
	"github.com/kjstillabower/clima-service/internal/models"
	"github.com/kjstillabower/clima-service/internal/observability"
	"github.com/kjstillabower/clima-service/internal/presentation"
	"github.com/kjstillabower/clima-service/internal/traffic"
	"github.com/kjstillabower/clima-service/internal/validation"
)

// HealthConfig holds thresholds for the health handler.
type HealthConfig struct {
	DegradedWindow   time.Duration
	DegradedErrorPct int
	Version          string
	// StorePing, when set, is called to check cache store reachability.
	StorePing func() error
}

// Handler holds dependencies for HTTP handlers. app is the template state; every
// request works on its own clone.
type Handler struct {
	app              *presentation.App
	healthConfig     *HealthConfig
	logger           *zap.Logger
	healthStatusMu   sync.Mutex
	healthStatusPrev string
}

// NewHandler returns a new Handler.
func NewHandler(app *presentation.App, healthConfig *HealthConfig, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		app:          app,
		healthConfig: healthConfig,
		logger:       logger,
	}
}

// Search handles GET /search?q=&country=. An empty candidate list is a 200.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	app, err := h.appForRequest(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "INVALID_PARAMETER", err.Error())
		return
	}
	q, err := validation.ValidateQuery(r.URL.Query().Get("q"), validation.MaxQueryLength)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "INVALID_PARAMETER", "q: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, app.Search(r.Context(), q))
}

// Weather handles GET /weather?name=&country=&admin1=&lat=&lon=&unit=.
func (h *Handler) Weather(w http.ResponseWriter, r *http.Request) {
	app := h.app.Clone()
	loc, err := locationFromQuery(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "INVALID_PARAMETER", err.Error())
		return
	}
	if u := r.URL.Query().Get("unit"); u != "" {
		if err := app.SetUnit(models.Unit(u)); err != nil {
			writeError(w, r, http.StatusBadRequest, "INVALID_PARAMETER", "unit: "+models.ErrInvalidUnit.Error())
			return
		}
	}
	app.Select(loc)

	view, err := app.Load(r.Context())
	if err != nil {
		traffic.RecordError()
		writeServiceError(w, r, err)
		return
	}
	traffic.RecordSuccess()
	writeJSON(w, http.StatusOK, view)
}

// appForRequest clones the template app and applies the optional country hint.
func (h *Handler) appForRequest(r *http.Request) (*presentation.App, error) {
	app := h.app.Clone()
	country, err := validation.NormalizeCountry(r.URL.Query().Get("country"))
	if err != nil {
		return nil, errors.New("country: " + err.Error())
	}
	if country != "" {
		app.Country = country
	}
	return app, nil
}

// locationFromQuery builds the selected location from name, country, admin1, lat and lon.
func locationFromQuery(r *http.Request) (models.Location, error) {
	q := r.URL.Query()
	name, err := validation.ValidatePlaceName(q.Get("name"), validation.MaxQueryLength)
	if err != nil {
		return models.Location{}, errors.New("name: " + err.Error())
	}
	country, err := validation.ValidateQuery(q.Get("country"), validation.MaxQueryLength)
	if err != nil {
		return models.Location{}, errors.New("country: " + err.Error())
	}
	admin1, err := validation.ValidateQuery(q.Get("admin1"), validation.MaxQueryLength)
	if err != nil {
		return models.Location{}, errors.New("admin1: " + err.Error())
	}
	lat, lon, err := validation.ParseCoordinates(q.Get("lat"), q.Get("lon"))
	if err != nil {
		return models.Location{}, err
	}
	return models.Location{Name: name, Country: country, Admin1: admin1, Latitude: lat, Longitude: lon}, nil
}

// healthResult holds the computed health status and metadata for logging.
type healthResult struct {
	status     string
	statusCode int
	reason     string
}

// GetHealth handles GET /health.
func (h *Handler) GetHealth(w http.ResponseWriter, r *http.Request) {
	storeErr := h.pingStore()
	result := h.computeHealthStatus(r.Context(), storeErr)

	h.healthStatusMu.Lock()
	prev := h.healthStatusPrev
	if prev != "" && prev != result.status {
		h.logger.Info("health status transition",
			zap.String("previous_status", prev),
			zap.String("current_status", result.status),
			zap.String("reason", result.reason))
	}
	h.healthStatusPrev = result.status
	h.healthStatusMu.Unlock()

	checks := map[string]string{"forecastApi": "healthy"}
	if result.reason == "error_rate_breach" {
		checks["forecastApi"] = "unhealthy"
	}
	if h.healthConfig != nil && h.healthConfig.StorePing != nil {
		checks["cache"] = "healthy"
		if storeErr != nil {
			checks["cache"] = "unhealthy"
		}
	}
	version := "dev"
	if h.healthConfig != nil && h.healthConfig.Version != "" {
		version = h.healthConfig.Version
	}
	writeJSON(w, result.statusCode, map[string]interface{}{
		"status":    result.status,
		"service":   "clima-service",
		"version":   version,
		"checks":    checks,
		"uptime":    lifecycle.Uptime().Round(time.Second).String(),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (h *Handler) pingStore() error {
	if h.healthConfig == nil || h.healthConfig.StorePing == nil {
		return nil
	}
	return h.healthConfig.StorePing()
}

// computeHealthStatus evaluates, in order: shutting-down, store unreachable,
// forecast error rate over threshold, healthy.
func (h *Handler) computeHealthStatus(ctx context.Context, storeErr error) healthResult {
	if lifecycle.IsShuttingDown() {
		return healthResult{"shutting-down", http.StatusServiceUnavailable, "signal"}
	}
	if storeErr != nil {
		observability.LoggerFromContext(ctx, h.logger).Debug("store ping failed", zap.Error(storeErr))
		return healthResult{"degraded", http.StatusServiceUnavailable, "store_unreachable"}
	}
	if h.healthConfig != nil {
		th := degraded.Threshold{Window: h.healthConfig.DegradedWindow, Pct: h.healthConfig.DegradedErrorPct}
		if th.Breached() {
			return healthResult{"degraded", http.StatusServiceUnavailable, "error_rate_breach"}
		}
	}
	return healthResult{"healthy", http.StatusOK, ""}
}

// writeJSON writes a JSON response with the specified HTTP status code.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes an error response in the standard error format with code, message,
// and requestId (correlation ID) if available in request context.
func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	writeJSON(w, status, map[string]interface{}{
		"error": map[string]string{
			"code":      code,
			"message":   message,
			"requestId": observability.CorrelationIDFromContext(r.Context()),
		},
	})
}

// writeServiceError writes a 503 with the generic weather failure message. The
// underlying error is only logged.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	writeError(w, r, http.StatusServiceUnavailable, "UPSTREAM_UNAVAILABLE", presentation.MsgWeatherFailed)
	observability.LoggerFromContext(r.Context(), zap.NewNop()).Debug("upstream error",
		zap.Error(err),
		zap.String("category", string(client.CategorizeError(err))))
}

// trimmed returns the trimmed query parameter.
func trimmed(r *http.Request, key string) string {
	return strings.TrimSpace(r.URL.Query().Get(key))
}
