package main

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/kjstillabower/clima-service/internal/config"
	"github.com/kjstillabower/clima-service/internal/presentation"
)

// fakeUpstream serves geocoding and forecast responses for the CLI tests.
type fakeUpstream struct {
	server        *httptest.Server
	forecastCalls atomic.Int32
	lastUnit      atomic.Value
	failForecast  bool
}

func newFakeUpstream(t *testing.T) *fakeUpstream {
	t.Helper()
	f := &fakeUpstream{}
	mux := http.NewServeMux()
	mux.HandleFunc("/geo", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Query().Get("name") != "Lima" {
			fmt.Fprint(w, `{}`)
			return
		}
		fmt.Fprint(w, `{"results":[
			{"name":"Lima","country":"Peru","admin1":"Lima","latitude":-12.04318,"longitude":-77.02824},
			{"name":"Lima","country":"United States","admin1":"Ohio","latitude":40.74255,"longitude":-84.10523}
		]}`)
	})
	mux.HandleFunc("/nominatim", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `[]`)
	})
	mux.HandleFunc("/forecast", func(w http.ResponseWriter, r *http.Request) {
		f.forecastCalls.Add(1)
		f.lastUnit.Store(r.URL.Query().Get("temperature_unit"))
		if f.failForecast {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Query().Get("current") != "" {
			fmt.Fprint(w, `{"current":{"temperature_2m":18.6,"weather_code":3,"wind_speed_10m":9.5,"is_day":0}}`)
			return
		}
		fmt.Fprint(w, `{"daily":{"time":["2024-01-15","2024-01-16"],"temperature_2m_max":[22.5,23.4],"temperature_2m_min":[16.4,17.5]}}`)
	})
	f.server = httptest.NewServer(mux)
	t.Cleanup(f.server.Close)
	return f
}

// writeConfig writes a config file pointing every provider at the fake upstream.
func (f *fakeUpstream) writeConfig(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "clima.yaml")
	content := fmt.Sprintf(`geocoding:
  primary_url: "%[1]s/geo"
  secondary_url: "%[1]s/nominatim"
  timeout: "2s"
forecast:
  url: "%[1]s/forecast"
  timeout: "2s"
cache:
  backend: "in_memory"
`, f.server.URL)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func runClima(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestSearch_PrintsLabels(t *testing.T) {
	f := newFakeUpstream(t)
	out, err := runClima(t, "search", "Lima", "--config", f.writeConfig(t), "--cache-db=")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	want := "0. Lima, Lima — Peru\n1. Lima, Ohio — United States\n"
	if out != want {
		t.Errorf("output = %q, want %q", out, want)
	}
}

func TestSearch_NoResults(t *testing.T) {
	f := newFakeUpstream(t)
	out, err := runClima(t, "search", "Xyzzy", "--config", f.writeConfig(t), "--cache-db=")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if strings.TrimSpace(out) != presentation.MsgNoResults {
		t.Errorf("output = %q, want no-results message", out)
	}
}

func TestSearch_RequiresQuery(t *testing.T) {
	if _, err := runClima(t, "search"); err == nil {
		t.Error("search without args: want error")
	}
}

func TestWeather_PickAndRender(t *testing.T) {
	f := newFakeUpstream(t)
	out, err := runClima(t, "weather", "Lima", "--pick", "1", "--config", f.writeConfig(t), "--cache-db=")
	if err != nil {
		t.Fatalf("weather: %v", err)
	}
	want := strings.Join([]string{
		"Lima — United States",
		"19°C  Nublado",
		"Vento: 10 km/h  Noite",
		"15/01/2024  16° / 23°",
		"16/01/2024  18° / 23°",
	}, "\n") + "\n"
	if out != want {
		t.Errorf("output =\n%s\nwant\n%s", out, want)
	}
	if got := f.forecastCalls.Load(); got != 2 {
		t.Errorf("forecast calls = %d, want 2", got)
	}
}

func TestWeather_DefaultCityFahrenheit(t *testing.T) {
	f := newFakeUpstream(t)
	out, err := runClima(t, "weather", "--unit", "fahrenheit", "--config", f.writeConfig(t), "--cache-db=")
	if err != nil {
		t.Fatalf("weather: %v", err)
	}
	if !strings.HasPrefix(out, presentation.Title(presentation.DefaultLocation)+"\n") {
		t.Errorf("output = %q, want default city title", out)
	}
	if !strings.Contains(out, "19°F") {
		t.Errorf("output = %q, want °F temperature", out)
	}
	if got, _ := f.lastUnit.Load().(string); got != "fahrenheit" {
		t.Errorf("temperature_unit = %q, want fahrenheit", got)
	}
}

func TestWeather_PickOutOfRange(t *testing.T) {
	f := newFakeUpstream(t)
	_, err := runClima(t, "weather", "Lima", "--pick", "5", "--config", f.writeConfig(t), "--cache-db=")
	if err == nil || !strings.Contains(err.Error(), "--pick 5") {
		t.Errorf("err = %v, want --pick range error", err)
	}
	if got := f.forecastCalls.Load(); got != 0 {
		t.Errorf("forecast calls = %d, want 0", got)
	}
}

func TestWeather_UpstreamFailure(t *testing.T) {
	f := newFakeUpstream(t)
	f.failForecast = true
	out, err := runClima(t, "weather", "Lima", "--config", f.writeConfig(t), "--cache-db=")
	if err == nil {
		t.Fatal("want error when the forecast provider fails")
	}
	if strings.TrimSpace(out) != presentation.MsgWeatherFailed {
		t.Errorf("output = %q, want weather failure message", out)
	}
}

func TestWeather_SQLiteCacheSurvivesRuns(t *testing.T) {
	f := newFakeUpstream(t)
	cfgPath := f.writeConfig(t)
	db := filepath.Join(t.TempDir(), "nested", "cache.db")

	first, err := runClima(t, "weather", "Lima", "--config", cfgPath, "--cache-db", db)
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	second, err := runClima(t, "weather", "Lima", "--config", cfgPath, "--cache-db", db)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if first != second {
		t.Errorf("second output = %q, want %q", second, first)
	}
	if got := f.forecastCalls.Load(); got != 2 {
		t.Errorf("forecast calls = %d, want 2 (second run served from cache)", got)
	}
}

func TestLoadConfig_Flags(t *testing.T) {
	tests := []struct {
		name        string
		opts        options
		wantErr     bool
		wantBackend string
		wantCountry string
	}{
		{"defaults in memory", options{country: "br", unit: "celsius"}, false, config.BackendInMemory, "BR"},
		{"sqlite path", options{country: "PT", unit: "fahrenheit", cacheDB: "/tmp/x.db"}, false, config.BackendSQLite, "PT"},
		{"empty country", options{unit: "celsius"}, false, config.BackendInMemory, ""},
		{"bad country", options{country: "Brazil", unit: "celsius"}, true, "", ""},
		{"bad unit", options{country: "BR", unit: "kelvin"}, true, "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := tt.opts.loadConfig()
			if tt.wantErr {
				if err == nil {
					t.Error("want error")
				}
				return
			}
			if err != nil {
				t.Fatalf("loadConfig: %v", err)
			}
			if cfg.CacheBackend != tt.wantBackend {
				t.Errorf("CacheBackend = %q, want %q", cfg.CacheBackend, tt.wantBackend)
			}
			if cfg.GeocodeCountry != tt.wantCountry {
				t.Errorf("GeocodeCountry = %q, want %q", cfg.GeocodeCountry, tt.wantCountry)
			}
		})
	}
}
