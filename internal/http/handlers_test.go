package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kjstillabower/clima-service/internal/client"
	"github.com/kjstillabower/clima-service/internal/geocode"
	"github.com/kjstillabower/clima-service/internal/lifecycle"
	"github.com/kjstillabower/clima-service/internal/models"
	"github.com/kjstillabower/clima-service/internal/presentation"
	"github.com/kjstillabower/clima-service/internal/traffic"
)

type mockSearcher struct {
	result    geocode.Result
	query     string
	country   string
	callCount int
}

func (m *mockSearcher) Lookup(ctx context.Context, query, country string) geocode.Result {
	m.callCount++
	m.query, m.country = query, country
	return m.result
}

type mockLoader struct {
	err  error
	loc  models.Location
	unit models.Unit
}

func (m *mockLoader) Load(ctx context.Context, loc models.Location, unit models.Unit) (models.Report, error) {
	m.loc, m.unit = loc, unit
	if m.err != nil {
		return models.Report{}, m.err
	}
	return models.Report{
		Location: loc,
		Unit:     unit,
		Current:  models.CurrentConditions{Temperature: 25.4, WeatherCode: 1, WindSpeedKmh: 12.3, IsDay: true},
		Daily: models.DailyForecast{
			{Date: time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), Min: 19.4, Max: 29.1},
		},
	}, nil
}

var saoPauloResults = []models.Location{
	{Name: "São Paulo", Admin1: "São Paulo", Country: "Brasil", Latitude: -23.5475, Longitude: -46.63611},
	{Name: "São Paulo de Olivença", Country: "Brasil", Latitude: -3.37833, Longitude: -68.8725},
}

func newTestHandler(s *mockSearcher, l *mockLoader, hc *HealthConfig) *Handler {
	return NewHandler(presentation.NewApp(s, l, nil), hc, zap.NewNop())
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(w.Body).Decode(v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

type errorBody struct {
	Error struct {
		Code      string `json:"code"`
		Message   string `json:"message"`
		RequestID string `json:"requestId"`
	} `json:"error"`
}

func TestHandler_Search_Success(t *testing.T) {
	s := &mockSearcher{result: geocode.Result{Locations: saoPauloResults, Outcome: geocode.OutcomeFound}}
	h := newTestHandler(s, &mockLoader{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/search?q=S%C3%A3o+Paulo&country=pt", nil)
	w := httptest.NewRecorder()
	h.Search(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var body struct {
		Query   string `json:"query"`
		Outcome string `json:"outcome"`
		Message string `json:"message"`
		Results []struct {
			Name     string  `json:"name"`
			Admin1   string  `json:"admin1"`
			Latitude float64 `json:"latitude"`
			Label    string  `json:"label"`
		} `json:"results"`
	}
	decodeBody(t, w, &body)
	if body.Query != "São Paulo" || body.Outcome != "found" || body.Message != "" {
		t.Errorf("body = %+v", body)
	}
	if len(body.Results) != 2 {
		t.Fatalf("len(results) = %d, want 2", len(body.Results))
	}
	if body.Results[0].Label != "São Paulo, São Paulo — Brasil" || body.Results[0].Latitude != -23.5475 {
		t.Errorf("results[0] = %+v", body.Results[0])
	}
	if s.country != "PT" {
		t.Errorf("country hint = %q, want PT", s.country)
	}
}

func TestHandler_Search_NoResultsIsOK(t *testing.T) {
	s := &mockSearcher{result: geocode.Result{Locations: []models.Location{}, Outcome: geocode.OutcomeUnavailable}}
	h := newTestHandler(s, &mockLoader{}, nil)

	w := httptest.NewRecorder()
	h.Search(w, httptest.NewRequest(http.MethodGet, "/search?q=Atlantis", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var body struct {
		Message string            `json:"message"`
		Results []json.RawMessage `json:"results"`
	}
	decodeBody(t, w, &body)
	if body.Message != presentation.MsgNoResults {
		t.Errorf("message = %q, want no-results message", body.Message)
	}
	if body.Results == nil || len(body.Results) != 0 {
		t.Errorf("results = %v, want []", body.Results)
	}
	if s.country != "BR" {
		t.Errorf("country hint = %q, want default BR", s.country)
	}
}

func TestHandler_Search_InvalidParameters(t *testing.T) {
	tests := []struct {
		name string
		url  string
	}{
		{"bad country", "/search?q=Lima&country=PERU"},
		{"too long", "/search?q=" + strings.Repeat("a", 101)},
		{"control char", "/search?q=Li%07ma"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &mockSearcher{}
			h := newTestHandler(s, &mockLoader{}, nil)
			w := httptest.NewRecorder()
			h.Search(w, httptest.NewRequest(http.MethodGet, tt.url, nil))

			if w.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", w.Code)
			}
			var body errorBody
			decodeBody(t, w, &body)
			if body.Error.Code != "INVALID_PARAMETER" {
				t.Errorf("code = %q, want INVALID_PARAMETER", body.Error.Code)
			}
			if s.callCount != 0 {
				t.Errorf("resolver called %d times, want 0", s.callCount)
			}
		})
	}
}

func TestHandler_Weather_Success(t *testing.T) {
	traffic.Reset()
	l := &mockLoader{}
	h := newTestHandler(&mockSearcher{}, l, nil)

	req := httptest.NewRequest(http.MethodGet, "/weather?name=S%C3%A3o+Paulo&country=Brasil&lat=-23.55&lon=-46.63&unit=fahrenheit", nil)
	w := httptest.NewRecorder()
	h.Weather(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body %s)", w.Code, w.Body.String())
	}
	var view presentation.View
	decodeBody(t, w, &view)
	if view.Title != "São Paulo — Brasil" || view.Temperature != "25°F" || view.Wind != "Vento: 12 km/h" || view.Period != "Dia" {
		t.Errorf("view = %+v", view)
	}
	if len(view.Days) != 1 || view.Days[0].Date != "15/01/2024" {
		t.Errorf("days = %+v", view.Days)
	}
	want := models.Location{Name: "São Paulo", Country: "Brasil", Latitude: -23.55, Longitude: -46.63}
	if l.loc != want || l.unit != models.UnitFahrenheit {
		t.Errorf("loader got %+v / %v", l.loc, l.unit)
	}
	if errs, total := traffic.ErrorRate(time.Minute); errs != 0 || total != 1 {
		t.Errorf("traffic = (%d, %d), want (0, 1)", errs, total)
	}
}

func TestHandler_Weather_InvalidParameters(t *testing.T) {
	tests := []struct {
		name string
		url  string
	}{
		{"missing name", "/weather?lat=1&lon=2"},
		{"missing lat", "/weather?name=Lima&lon=2"},
		{"lat out of range", "/weather?name=Lima&lat=91&lon=2"},
		{"lon not a number", "/weather?name=Lima&lat=1&lon=east"},
		{"bad unit", "/weather?name=Lima&lat=1&lon=2&unit=kelvin"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := &mockLoader{}
			h := newTestHandler(&mockSearcher{}, l, nil)
			w := httptest.NewRecorder()
			h.Weather(w, httptest.NewRequest(http.MethodGet, tt.url, nil))

			if w.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", w.Code)
			}
			var body errorBody
			decodeBody(t, w, &body)
			if body.Error.Code != "INVALID_PARAMETER" {
				t.Errorf("code = %q, want INVALID_PARAMETER", body.Error.Code)
			}
		})
	}
}

func TestHandler_Weather_UpstreamFailure(t *testing.T) {
	traffic.Reset()
	l := &mockLoader{err: &client.HTTPError{Endpoint: client.EndpointCurrent, StatusCode: 500}}
	h := newTestHandler(&mockSearcher{}, l, nil)

	w := httptest.NewRecorder()
	h.Weather(w, httptest.NewRequest(http.MethodGet, "/weather?name=Lima&lat=-12.05&lon=-77.04", nil))

	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", w.Code)
	}
	var body errorBody
	decodeBody(t, w, &body)
	if body.Error.Code != "UPSTREAM_UNAVAILABLE" || body.Error.Message != presentation.MsgWeatherFailed {
		t.Errorf("error = %+v", body.Error)
	}
	if strings.Contains(w.Body.String(), "HTTP 500") {
		t.Error("response leaks upstream error detail")
	}
	if errs, _ := traffic.ErrorRate(time.Minute); errs != 1 {
		t.Errorf("recorded errors = %d, want 1", errs)
	}
}

func TestHandler_Page_DefaultLocation(t *testing.T) {
	l := &mockLoader{}
	h := newTestHandler(&mockSearcher{}, l, nil)

	w := httptest.NewRecorder()
	h.Page(w, httptest.NewRequest(http.MethodGet, "/", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("Content-Type = %q", ct)
	}
	body := w.Body.String()
	for _, want := range []string{"São Paulo — Brazil", "25°C", "Principalmente limpo", "Vento: 12 km/h", "15/01/2024"} {
		if !strings.Contains(body, want) {
			t.Errorf("page missing %q", want)
		}
	}
	if l.loc != presentation.DefaultLocation {
		t.Errorf("loaded %+v, want default location", l.loc)
	}
}

func TestHandler_Page_SearchAndSelect(t *testing.T) {
	s := &mockSearcher{result: geocode.Result{Locations: saoPauloResults, Outcome: geocode.OutcomeFound}}
	l := &mockLoader{}
	h := newTestHandler(s, l, nil)

	w := httptest.NewRecorder()
	h.Page(w, httptest.NewRequest(http.MethodGet, "/?q=Sao+Paulo&name=Lisboa&country=Portugal&lat=38.72&lon=-9.14", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	body := w.Body.String()
	if !strings.Contains(body, "São Paulo de Olivença — Brasil") {
		t.Error("page missing suggestion label")
	}
	if !strings.Contains(body, "lat=-3.37833") {
		t.Error("suggestion link missing coordinates")
	}
	if l.loc.Name != "Lisboa" || l.loc.Latitude != 38.72 {
		t.Errorf("loaded %+v, want Lisboa", l.loc)
	}
}

func TestHandler_Page_LoadFailure(t *testing.T) {
	h := newTestHandler(&mockSearcher{}, &mockLoader{err: errors.New("boom")}, nil)

	w := httptest.NewRecorder()
	h.Page(w, httptest.NewRequest(http.MethodGet, "/", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if !strings.Contains(w.Body.String(), "Falha ao carregar clima") {
		t.Error("page missing weather failure message")
	}
}

func TestHandler_Page_NoResultsMessage(t *testing.T) {
	s := &mockSearcher{result: geocode.Result{Locations: []models.Location{}, Outcome: geocode.OutcomeNotFound}}
	h := newTestHandler(s, &mockLoader{}, nil)

	w := httptest.NewRecorder()
	h.Page(w, httptest.NewRequest(http.MethodGet, "/?q=Xyzzy", nil))

	if !strings.Contains(w.Body.String(), "Nenhum resultado") {
		t.Error("page missing no-results message")
	}
}

func TestHandler_GetHealth(t *testing.T) {
	tests := []struct {
		name       string
		setup      func()
		hc         *HealthConfig
		wantStatus string
		wantCode   int
		wantCache  string
	}{
		{
			name:       "healthy without config",
			wantStatus: "healthy",
			wantCode:   http.StatusOK,
		},
		{
			name:       "shutting down",
			setup:      func() { lifecycle.SetShuttingDown(true) },
			wantStatus: "shutting-down",
			wantCode:   http.StatusServiceUnavailable,
		},
		{
			name:       "store unreachable",
			hc:         &HealthConfig{StorePing: func() error { return errors.New("dial tcp: refused") }},
			wantStatus: "degraded",
			wantCode:   http.StatusServiceUnavailable,
			wantCache:  "unhealthy",
		},
		{
			name:       "store reachable",
			hc:         &HealthConfig{StorePing: func() error { return nil }},
			wantStatus: "healthy",
			wantCode:   http.StatusOK,
			wantCache:  "healthy",
		},
		{
			name: "error rate breach",
			setup: func() {
				traffic.RecordSuccess()
				traffic.RecordError()
			},
			hc:         &HealthConfig{DegradedWindow: time.Minute, DegradedErrorPct: 50},
			wantStatus: "degraded",
			wantCode:   http.StatusServiceUnavailable,
		},
		{
			name: "error rate below threshold",
			setup: func() {
				traffic.RecordSuccess()
				traffic.RecordSuccess()
				traffic.RecordError()
			},
			hc:         &HealthConfig{DegradedWindow: time.Minute, DegradedErrorPct: 50},
			wantStatus: "healthy",
			wantCode:   http.StatusOK,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			traffic.Reset()
			lifecycle.SetShuttingDown(false)
			defer lifecycle.SetShuttingDown(false)
			if tt.setup != nil {
				tt.setup()
			}
			h := newTestHandler(&mockSearcher{}, &mockLoader{}, tt.hc)

			w := httptest.NewRecorder()
			h.GetHealth(w, httptest.NewRequest(http.MethodGet, "/health", nil))

			if w.Code != tt.wantCode {
				t.Errorf("status code = %d, want %d", w.Code, tt.wantCode)
			}
			var body struct {
				Status  string            `json:"status"`
				Service string            `json:"service"`
				Checks  map[string]string `json:"checks"`
			}
			decodeBody(t, w, &body)
			if body.Status != tt.wantStatus {
				t.Errorf("status = %q, want %q", body.Status, tt.wantStatus)
			}
			if body.Service != "clima-service" {
				t.Errorf("service = %q", body.Service)
			}
			if body.Checks["cache"] != tt.wantCache {
				t.Errorf("checks.cache = %q, want %q", body.Checks["cache"], tt.wantCache)
			}
		})
	}
}
