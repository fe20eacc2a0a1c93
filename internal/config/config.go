// Package config loads service settings from config/{ENV_NAME}.yaml with env overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kjstillabower/clima-service/internal/models"
)

// Cache backends.
const (
	BackendInMemory  = "in_memory"
	BackendMemcached = "memcached"
	BackendSQLite    = "sqlite"
)

// Config holds service configuration loaded from YAML and env.
type Config struct {
	ServerPort string

	GeocodePrimaryURL     string
	GeocodeSecondaryURL   string
	GeocodeLanguage       string
	GeocodeAcceptLanguage string
	GeocodeUserAgent      string
	GeocodeCountry        string
	GeocodeTimeout        time.Duration

	ForecastURL     string
	ForecastTimeout time.Duration

	RequestTimeout time.Duration
	CacheTTL       time.Duration
	CacheBackend   string // in_memory, memcached or sqlite

	MemcachedAddrs        string
	MemcachedTimeout      time.Duration
	MemcachedMaxIdleConns int
	SQLitePath            string

	RateLimitRPS   int
	RateLimitBurst int

	CircuitBreakerEnabled          bool
	CircuitBreakerFailureThreshold int
	CircuitBreakerSuccessThreshold int
	CircuitBreakerTimeout          time.Duration

	DegradedWindow   time.Duration
	DegradedErrorPct int

	ShutdownTimeout               time.Duration
	ShutdownInFlightTimeout       time.Duration
	ShutdownInFlightCheckInterval time.Duration

	WarmLocations []string
	WarmUnits     []models.Unit
	WarmInterval  time.Duration

	DefaultUnit            models.Unit
	DistinguishUnavailable bool

	TrackedLocations []string
}

type fileConfig struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`

	Geocoding struct {
		PrimaryURL     string `yaml:"primary_url"`
		SecondaryURL   string `yaml:"secondary_url"`
		Language       string `yaml:"language"`
		AcceptLanguage string `yaml:"accept_language"`
		UserAgent      string `yaml:"user_agent"`
		Country        string `yaml:"country"`
		Timeout        string `yaml:"timeout"`
	} `yaml:"geocoding"`

	Forecast struct {
		URL     string `yaml:"url"`
		Timeout string `yaml:"timeout"`
	} `yaml:"forecast"`

	Request struct {
		Timeout string `yaml:"timeout"`
	} `yaml:"request"`

	Cache struct {
		Backend string `yaml:"backend"`
		TTL     string `yaml:"ttl"`
		Memcached struct {
			Addrs        string `yaml:"addrs"`
			Timeout      string `yaml:"timeout"`
			MaxIdleConns int    `yaml:"max_idle_conns"`
		} `yaml:"memcached"`
		SQLite struct {
			Path string `yaml:"path"`
		} `yaml:"sqlite"`
	} `yaml:"cache"`

	Reliability struct {
		RateLimitRPS   int `yaml:"rate_limit_rps"`
		RateLimitBurst int `yaml:"rate_limit_burst"`
	} `yaml:"reliability"`

	CircuitBreaker struct {
		Enabled          *bool  `yaml:"enabled"`
		FailureThreshold int    `yaml:"failure_threshold"`
		SuccessThreshold int    `yaml:"success_threshold"`
		Timeout          string `yaml:"timeout"`
	} `yaml:"circuit_breaker"`

	Health struct {
		DegradedWindow   string `yaml:"degraded_window"`
		DegradedErrorPct int    `yaml:"degraded_error_pct"`
	} `yaml:"health"`

	Shutdown struct {
		Timeout               string `yaml:"timeout"`
		InFlightTimeout       string `yaml:"in_flight_timeout"`
		InFlightCheckInterval string `yaml:"in_flight_check_interval"`
	} `yaml:"shutdown"`

	Warm struct {
		Locations []string `yaml:"locations"`
		Units     []string `yaml:"units"`
		Interval  string   `yaml:"interval"`
	} `yaml:"warm"`

	Presentation struct {
		DefaultUnit            string `yaml:"default_unit"`
		DistinguishUnavailable bool   `yaml:"distinguish_unavailable"`
	} `yaml:"presentation"`

	Metrics struct {
		TrackedLocations []string `yaml:"tracked_locations"`
	} `yaml:"metrics"`
}

// Load reads configuration from config/{ENV_NAME}.yaml (default dev) relative to the
// working directory, then applies env overrides. Call from project root.
func Load() (*Config, error) {
	env := os.Getenv("ENV_NAME")
	if env == "" {
		env = "dev"
	}
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("config: get working directory: %w", err)
	}
	return LoadFile(filepath.Join(cwd, "config", env+".yaml"))
}

// LoadFile reads one YAML file, then applies env overrides and validates.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found: %s", path)
		}
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	cfg, err := fromFile(&fc)
	if err != nil {
		return nil, err
	}
	applyEnv(cfg)
	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the built-in configuration without reading files or env.
func Default() *Config {
	cfg, err := fromFile(&fileConfig{})
	if err != nil {
		panic(fmt.Sprintf("config: defaults invalid: %v", err))
	}
	return cfg
}

func fromFile(fc *fileConfig) (*Config, error) {
	cfg := &Config{}

	cfg.ServerPort = orDefault(fc.Server.Port, "8080")

	cfg.GeocodePrimaryURL = strings.TrimSpace(fc.Geocoding.PrimaryURL)
	cfg.GeocodeSecondaryURL = strings.TrimSpace(fc.Geocoding.SecondaryURL)
	cfg.GeocodeLanguage = orDefault(fc.Geocoding.Language, "pt")
	cfg.GeocodeAcceptLanguage = orDefault(fc.Geocoding.AcceptLanguage, "pt-BR")
	cfg.GeocodeUserAgent = strings.TrimSpace(fc.Geocoding.UserAgent)
	cfg.GeocodeCountry = strings.ToUpper(orDefault(fc.Geocoding.Country, "BR"))
	cfg.GeocodeTimeout = parseDuration(fc.Geocoding.Timeout, 5*time.Second)

	cfg.ForecastURL = strings.TrimSpace(fc.Forecast.URL)
	cfg.ForecastTimeout = parseDurationOrZero(fc.Forecast.Timeout, 5*time.Second)

	cfg.RequestTimeout = parseDuration(fc.Request.Timeout, 15*time.Second)

	cfg.CacheBackend = strings.ToLower(orDefault(fc.Cache.Backend, BackendInMemory))
	cfg.CacheTTL = parseDuration(fc.Cache.TTL, time.Hour)
	cfg.MemcachedAddrs = orDefault(fc.Cache.Memcached.Addrs, "localhost:11211")
	cfg.MemcachedTimeout = parseDuration(fc.Cache.Memcached.Timeout, 500*time.Millisecond)
	cfg.MemcachedMaxIdleConns = fc.Cache.Memcached.MaxIdleConns
	if cfg.MemcachedMaxIdleConns <= 0 {
		cfg.MemcachedMaxIdleConns = 2
	}
	cfg.SQLitePath = orDefault(fc.Cache.SQLite.Path, filepath.Join("data", "clima-cache.db"))

	cfg.RateLimitRPS = fc.Reliability.RateLimitRPS
	if cfg.RateLimitRPS <= 0 {
		cfg.RateLimitRPS = 20
	}
	cfg.RateLimitBurst = fc.Reliability.RateLimitBurst
	if cfg.RateLimitBurst <= 0 {
		cfg.RateLimitBurst = 40
	}

	cfg.CircuitBreakerEnabled = true
	if fc.CircuitBreaker.Enabled != nil {
		cfg.CircuitBreakerEnabled = *fc.CircuitBreaker.Enabled
	}
	cfg.CircuitBreakerFailureThreshold = fc.CircuitBreaker.FailureThreshold
	if cfg.CircuitBreakerFailureThreshold <= 0 {
		cfg.CircuitBreakerFailureThreshold = 5
	}
	cfg.CircuitBreakerSuccessThreshold = fc.CircuitBreaker.SuccessThreshold
	if cfg.CircuitBreakerSuccessThreshold <= 0 {
		cfg.CircuitBreakerSuccessThreshold = 2
	}
	cfg.CircuitBreakerTimeout = parseDuration(fc.CircuitBreaker.Timeout, 30*time.Second)

	cfg.DegradedWindow = parseDuration(fc.Health.DegradedWindow, 60*time.Second)
	cfg.DegradedErrorPct = fc.Health.DegradedErrorPct
	if cfg.DegradedErrorPct <= 0 {
		cfg.DegradedErrorPct = 50
	}

	cfg.ShutdownTimeout = parseDuration(fc.Shutdown.Timeout, 30*time.Second)
	cfg.ShutdownInFlightTimeout = parseDuration(fc.Shutdown.InFlightTimeout, 10*time.Second)
	cfg.ShutdownInFlightCheckInterval = parseDuration(fc.Shutdown.InFlightCheckInterval, 100*time.Millisecond)

	cfg.WarmLocations = fc.Warm.Locations
	for _, u := range fc.Warm.Units {
		unit, err := models.ParseUnit(u)
		if err != nil {
			return nil, fmt.Errorf("warm.units: %q: %w", u, err)
		}
		cfg.WarmUnits = append(cfg.WarmUnits, unit)
	}
	if len(cfg.WarmUnits) == 0 {
		cfg.WarmUnits = []models.Unit{models.UnitCelsius}
	}
	cfg.WarmInterval = parseDurationOrZero(fc.Warm.Interval, 0)

	unit, err := models.ParseUnit(fc.Presentation.DefaultUnit)
	if err != nil {
		return nil, fmt.Errorf("presentation.default_unit: %q: %w", fc.Presentation.DefaultUnit, err)
	}
	cfg.DefaultUnit = unit
	cfg.DistinguishUnavailable = fc.Presentation.DistinguishUnavailable

	cfg.TrackedLocations = fc.Metrics.TrackedLocations
	if len(cfg.TrackedLocations) == 0 {
		cfg.TrackedLocations = cfg.WarmLocations
	}
	return cfg, nil
}

// applyEnv overrides file values with CACHE_BACKEND, MEMCACHED_ADDRS, SQLITE_PATH and SERVER_PORT.
func applyEnv(cfg *Config) {
	if v := strings.TrimSpace(strings.ToLower(os.Getenv("CACHE_BACKEND"))); v != "" {
		cfg.CacheBackend = v
	}
	if v := strings.TrimSpace(os.Getenv("MEMCACHED_ADDRS")); v != "" {
		cfg.MemcachedAddrs = v
	}
	if v := strings.TrimSpace(os.Getenv("SQLITE_PATH")); v != "" {
		cfg.SQLitePath = v
	}
	if v := strings.TrimSpace(os.Getenv("SERVER_PORT")); v != "" {
		cfg.ServerPort = v
	}
}

func orDefault(s, def string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return def
	}
	return s
}

// parseDuration parses a duration string and returns defaultVal if parsing fails or result is <= 0.
func parseDuration(s string, defaultVal time.Duration) time.Duration {
	d := parseDurationOrZero(s, defaultVal)
	if d <= 0 {
		return defaultVal
	}
	return d
}

// parseDurationOrZero parses a duration string, returning defaultVal on empty string or parse error.
// Returns zero or negative durations as-is (caller should handle fallback).
func parseDurationOrZero(s string, defaultVal time.Duration) time.Duration {
	s = strings.TrimSpace(s)
	if s == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return defaultVal
	}
	return d
}

// validate performs post-load checks. RequestTimeout is raised to cover a geocoding
// lookup plus a forecast load when configured too low.
func validate(cfg *Config) error {
	if cfg.ForecastTimeout <= 0 {
		return fmt.Errorf("forecast.timeout must be positive")
	}
	if floor := cfg.ForecastTimeout + cfg.GeocodeTimeout; cfg.RequestTimeout < floor {
		cfg.RequestTimeout = floor + time.Second
	}
	switch cfg.CacheBackend {
	case BackendInMemory, BackendMemcached:
	case BackendSQLite:
		if strings.TrimSpace(cfg.SQLitePath) == "" {
			return fmt.Errorf("cache.sqlite.path is required for the sqlite backend")
		}
	default:
		return fmt.Errorf("cache.backend must be in_memory, memcached or sqlite, got %q", cfg.CacheBackend)
	}
	if cfg.WarmInterval < 0 {
		return fmt.Errorf("warm.interval must not be negative")
	}
	return nil
}
