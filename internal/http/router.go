// Package http exposes search, weather, page, health and metrics endpoints.
package http

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kjstillabower/clima-service/internal/observability"
)

// RouterConfig holds the cross-cutting settings applied to the routes.
type RouterConfig struct {
	// Limiter throttles /search, /weather and the page. Nil disables rate limiting.
	Limiter        *rate.Limiter
	RequestTimeout time.Duration
}

// NewRouter registers every route and the middleware chain.
func NewRouter(h *Handler, logger *zap.Logger, cfg RouterConfig) *mux.Router {
	router := mux.NewRouter()
	router.Use(CorrelationIDMiddleware(logger))
	router.Use(MetricsMiddleware)
	router.HandleFunc("/health", h.GetHealth).Methods(http.MethodGet)
	router.Handle("/metrics", observability.MetricsHandler()).Methods(http.MethodGet)

	api := router.NewRoute().Subrouter()
	api.Use(RateLimitMiddleware(cfg.Limiter))
	if cfg.RequestTimeout > 0 {
		api.Use(TimeoutMiddleware(cfg.RequestTimeout))
	}
	api.HandleFunc("/search", h.Search).Methods(http.MethodGet)
	api.HandleFunc("/weather", h.Weather).Methods(http.MethodGet)
	api.HandleFunc("/", h.Page).Methods(http.MethodGet)
	return router
}
