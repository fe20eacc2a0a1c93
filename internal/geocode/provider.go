// Package geocode resolves free-text place names to coordinates using a primary
// provider with a diacritic-stripping retry and a secondary fallback provider.
package geocode

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/kjstillabower/clima-service/internal/models"
	"github.com/kjstillabower/clima-service/internal/observability"
)

// MaxResults is the number of candidates requested from providers and returned by the Resolver.
const MaxResults = 7

// ErrProviderFailure is wrapped by every transport, status, or decoding failure of a provider.
var ErrProviderFailure = errors.New("geocoding provider failure")

// Provider searches one geocoding API and normalizes its response into Locations.
type Provider interface {
	Name() string
	Search(ctx context.Context, query, country string) ([]models.Location, error)
}

// StatusError reports a non-2xx response from a provider.
type StatusError struct {
	Provider   string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: HTTP %d", e.Provider, e.StatusCode)
}

// Unwrap makes StatusError match ErrProviderFailure.
func (e *StatusError) Unwrap() error {
	return ErrProviderFailure
}

// doGet issues req and returns the body of a 2xx response, recording provider metrics.
func doGet(client *http.Client, provider string, req *http.Request) ([]byte, error) {
	start := time.Now()
	resp, err := client.Do(req)
	observability.GeocodeDuration.WithLabelValues(provider).Observe(time.Since(start).Seconds())
	if err != nil {
		observability.GeocodeCallsTotal.WithLabelValues(provider, "error").Inc()
		return nil, fmt.Errorf("%w: %s request: %v", ErrProviderFailure, provider, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		observability.GeocodeCallsTotal.WithLabelValues(provider, statusLabel(resp.StatusCode)).Inc()
		return nil, &StatusError{Provider: provider, StatusCode: resp.StatusCode}
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		observability.GeocodeCallsTotal.WithLabelValues(provider, "error").Inc()
		return nil, fmt.Errorf("%w: %s read body: %v", ErrProviderFailure, provider, err)
	}
	observability.GeocodeCallsTotal.WithLabelValues(provider, "success").Inc()
	return body, nil
}

func statusLabel(statusCode int) string {
	if statusCode == http.StatusTooManyRequests {
		return "rate_limited"
	}
	if statusCode >= 400 && statusCode < 500 {
		return "client_error"
	}
	if statusCode >= 500 {
		return "server_error"
	}
	return "error"
}

func newHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &http.Client{Timeout: timeout}
}
