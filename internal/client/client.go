// Package client talks to the Open-Meteo forecast API.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/kjstillabower/clima-service/internal/circuitbreaker"
	"github.com/kjstillabower/clima-service/internal/models"
	"github.com/kjstillabower/clima-service/internal/observability"
)

// DefaultForecastURL is the Open-Meteo forecast endpoint.
const DefaultForecastURL = "https://api.open-meteo.com/v1/forecast"

// Endpoint names used in errors and metric labels.
const (
	EndpointCurrent = "current"
	EndpointDaily   = "daily"
)

const (
	currentFields = "temperature_2m,weather_code,wind_speed_10m,is_day"
	dailyFields   = "temperature_2m_max,temperature_2m_min"
	forecastDays  = "5"
)

var (
	ErrUpstreamFailure = errors.New("upstream failure")
	ErrCircuitOpen     = errors.New("forecast circuit open")
	// ErrInvalidJSON is returned when a 2xx response body is not JSON.
	ErrInvalidJSON = errors.New("invalid JSON body")
)

// HTTPError reports a non-2xx forecast response.
type HTTPError struct {
	Endpoint   string
	StatusCode int
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("forecast %s: HTTP %d", e.Endpoint, e.StatusCode)
}

// Unwrap makes HTTPError match ErrUpstreamFailure.
func (e *HTTPError) Unwrap() error {
	return ErrUpstreamFailure
}

// WeatherClient fetches raw forecast payloads. Implementations return the response
// body unchanged so callers can cache it verbatim.
type WeatherClient interface {
	Current(ctx context.Context, lat, lon float64, unit models.Unit) ([]byte, error)
	Daily(ctx context.Context, lat, lon float64, unit models.Unit) ([]byte, error)
}

// ForecastClient is the Open-Meteo implementation of WeatherClient. It makes exactly
// one request per call.
type ForecastClient struct {
	baseURL string
	timeout time.Duration
	client  *http.Client
	breaker *circuitbreaker.CircuitBreaker
}

// NewForecastClient creates a client. Empty baseURL uses DefaultForecastURL.
func NewForecastClient(baseURL string, timeout time.Duration) *ForecastClient {
	if baseURL == "" {
		baseURL = DefaultForecastURL
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ForecastClient{
		baseURL: baseURL,
		timeout: timeout,
		client:  &http.Client{Timeout: timeout},
	}
}

// SetCircuitBreaker wraps every call in cb. Passing nil disables the breaker.
func (c *ForecastClient) SetCircuitBreaker(cb *circuitbreaker.CircuitBreaker) {
	c.breaker = cb
}

// Current fetches current temperature, weather code, wind speed and day/night flag.
func (c *ForecastClient) Current(ctx context.Context, lat, lon float64, unit models.Unit) ([]byte, error) {
	params := coordinateParams(lat, lon, unit)
	params.Set("current", currentFields)
	return c.call(ctx, EndpointCurrent, params)
}

// Daily fetches five days of minimum and maximum temperatures.
func (c *ForecastClient) Daily(ctx context.Context, lat, lon float64, unit models.Unit) ([]byte, error) {
	params := coordinateParams(lat, lon, unit)
	params.Set("daily", dailyFields)
	params.Set("forecast_days", forecastDays)
	return c.call(ctx, EndpointDaily, params)
}

func coordinateParams(lat, lon float64, unit models.Unit) url.Values {
	params := url.Values{}
	params.Set("latitude", strconv.FormatFloat(lat, 'f', -1, 64))
	params.Set("longitude", strconv.FormatFloat(lon, 'f', -1, 64))
	if unit == "" {
		unit = models.UnitCelsius
	}
	params.Set("temperature_unit", string(unit))
	params.Set("timezone", "auto")
	return params
}

func (c *ForecastClient) call(ctx context.Context, endpoint string, params url.Values) ([]byte, error) {
	if c.breaker == nil {
		return c.fetch(ctx, endpoint, params)
	}
	var body []byte
	err := c.breaker.Call(ctx, func(ctx context.Context) error {
		var err error
		body, err = c.fetch(ctx, endpoint, params)
		return err
	})
	if errors.Is(err, circuitbreaker.ErrOpen) {
		observability.ForecastAPICallsTotal.WithLabelValues(endpoint, string(ErrorCategoryCircuitOpen)).Inc()
		return nil, fmt.Errorf("%w: %s", ErrCircuitOpen, endpoint)
	}
	return body, err
}

func (c *ForecastClient) fetch(ctx context.Context, endpoint string, params url.Values) ([]byte, error) {
	start := time.Now()

	req, err := c.buildRequest(ctx, params)
	if err != nil {
		observability.ForecastAPICallsTotal.WithLabelValues(endpoint, "error").Inc()
		return nil, fmt.Errorf("build request: %w", err)
	}
	if corrID := observability.CorrelationIDFromContext(ctx); corrID != "" {
		req.Header.Set("X-Correlation-ID", corrID)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		observability.ForecastAPICallsTotal.WithLabelValues(endpoint, "error").Inc()
		observability.ForecastAPIDuration.WithLabelValues(endpoint, "error").Observe(time.Since(start).Seconds())
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return nil, fmt.Errorf("forecast %s timeout: %w", endpoint, err)
		}
		return nil, fmt.Errorf("forecast %s request failed: %w", endpoint, err)
	}
	defer resp.Body.Close()

	status := statusLabel(resp.StatusCode)
	observability.ForecastAPICallsTotal.WithLabelValues(endpoint, status).Inc()
	observability.ForecastAPIDuration.WithLabelValues(endpoint, status).Observe(time.Since(start).Seconds())

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &HTTPError{Endpoint: endpoint, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s response body: %w", endpoint, err)
	}
	if !json.Valid(body) {
		return nil, fmt.Errorf("parse %s response: %w", endpoint, ErrInvalidJSON)
	}
	return body, nil
}

func (c *ForecastClient) buildRequest(ctx context.Context, params url.Values) (*http.Request, error) {
	baseURL, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid forecast URL: %w", err)
	}
	baseURL.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	return req, nil
}

func statusLabel(statusCode int) string {
	if statusCode >= 200 && statusCode < 300 {
		return "success"
	}
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

// IsBreakerFailure reports whether err should count against the forecast circuit breaker.
// 4xx responses mean the request was wrong, not that the upstream is down.
func IsBreakerFailure(err error) bool {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode >= 500 || httpErr.StatusCode == http.StatusTooManyRequests
	}
	return !errors.Is(err, ErrInvalidJSON)
}
