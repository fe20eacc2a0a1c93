// Package bootstrap assembles the store, cache, geocoding, forecast and presentation
// components from a Config. Both the HTTP service and the CLI use it.
package bootstrap

import (
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/kjstillabower/clima-service/internal/cache"
	"github.com/kjstillabower/clima-service/internal/circuitbreaker"
	"github.com/kjstillabower/clima-service/internal/client"
	"github.com/kjstillabower/clima-service/internal/config"
	"github.com/kjstillabower/clima-service/internal/geocode"
	"github.com/kjstillabower/clima-service/internal/observability"
	"github.com/kjstillabower/clima-service/internal/presentation"
	"github.com/kjstillabower/clima-service/internal/service"
	"github.com/kjstillabower/clima-service/internal/store"
)

const breakerComponent = "forecast_api"

// Components is the wired object graph.
type Components struct {
	Store     store.Store
	Cache     *cache.Cache
	Resolver  *geocode.Resolver
	Forecast  *client.ForecastClient
	Fetcher   *service.Fetcher
	Preloader *service.Preloader
	App       *presentation.App

	pinger  store.Pinger
	closers []io.Closer
}

// OpenStore creates the store selected by cfg.CacheBackend.
func OpenStore(cfg *config.Config) (store.Store, error) {
	switch cfg.CacheBackend {
	case config.BackendMemcached:
		return store.NewMemcachedStore(cfg.MemcachedAddrs, cfg.MemcachedTimeout, cfg.MemcachedMaxIdleConns), nil
	case config.BackendSQLite:
		s, err := store.NewSQLiteStore(cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("sqlite store: %w", err)
		}
		return s, nil
	case config.BackendInMemory, "":
		return store.NewMemoryStore(), nil
	}
	return nil, fmt.Errorf("unknown cache backend %q", cfg.CacheBackend)
}

// Build wires every component. Call Close when done.
func Build(cfg *config.Config, logger *zap.Logger) (*Components, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	s, err := OpenStore(cfg)
	if err != nil {
		return nil, err
	}
	c := &Components{Store: s}
	if p, ok := s.(store.Pinger); ok {
		c.pinger = p
	}
	if cl, ok := s.(io.Closer); ok {
		c.closers = append(c.closers, cl)
	}
	logger.Info("cache backend", zap.String("backend", cfg.CacheBackend), zap.Duration("ttl", cfg.CacheTTL))

	c.Cache = cache.New(s, cfg.CacheTTL, cache.WithLogger(logger))

	primary := geocode.NewOpenMeteoProvider(cfg.GeocodePrimaryURL, cfg.GeocodeLanguage, cfg.GeocodeTimeout)
	secondary := geocode.NewNominatimProvider(cfg.GeocodeSecondaryURL, cfg.GeocodeAcceptLanguage, cfg.GeocodeUserAgent, cfg.GeocodeTimeout)
	c.Resolver = geocode.NewResolver(primary, secondary, logger)

	c.Forecast = client.NewForecastClient(cfg.ForecastURL, cfg.ForecastTimeout)
	if cfg.CircuitBreakerEnabled {
		c.Forecast.SetCircuitBreaker(circuitbreaker.New(circuitbreaker.Config{
			FailureThreshold: cfg.CircuitBreakerFailureThreshold,
			SuccessThreshold: cfg.CircuitBreakerSuccessThreshold,
			Timeout:          cfg.CircuitBreakerTimeout,
			Component:        breakerComponent,
			IsFailure:        client.IsBreakerFailure,
			OnStateChange: func(component string, from, to circuitbreaker.State) {
				observability.RecordCircuitBreakerTransition(component, from.String(), to.String(), int(to))
				logger.Warn("circuit breaker transition",
					zap.String("component", component),
					zap.String("from", from.String()),
					zap.String("to", to.String()))
			},
		}))
		observability.CircuitBreakerState.WithLabelValues(breakerComponent).Set(0)
	}

	c.Fetcher = service.NewFetcher(c.Forecast, c.Cache).WithLogger(logger)
	c.Preloader = service.NewPreloader(c.Resolver, c.Fetcher, cfg.GeocodeCountry)

	c.App = presentation.NewApp(c.Resolver, c.Fetcher, logger)
	c.App.Unit = cfg.DefaultUnit
	c.App.Country = cfg.GeocodeCountry
	c.App.DistinguishUnavailable = cfg.DistinguishUnavailable
	return c, nil
}

// Ping checks the store when it depends on an external service. Nil otherwise.
func (c *Components) Ping() error {
	if c.pinger == nil {
		return nil
	}
	return c.pinger.Ping()
}

// HasPinger reports whether Ping checks anything.
func (c *Components) HasPinger() bool {
	return c.pinger != nil
}

// Closers returns the resources to release on shutdown.
func (c *Components) Closers() []io.Closer {
	return c.closers
}

// Close releases the store.
func (c *Components) Close() error {
	var firstErr error
	for _, cl := range c.closers {
		if err := cl.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
