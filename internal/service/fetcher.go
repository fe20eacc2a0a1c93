// Package service loads current conditions and the short-range forecast for a
// location, serving fresh cached provider responses before calling the provider.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kjstillabower/clima-service/internal/cache"
	"github.com/kjstillabower/clima-service/internal/client"
	"github.com/kjstillabower/clima-service/internal/models"
	"github.com/kjstillabower/clima-service/internal/observability"
)

// ErrMalformedForecast is returned when a provider payload is JSON but not a usable forecast.
var ErrMalformedForecast = errors.New("malformed forecast payload")

const dateLayout = "2006-01-02"

// Fetcher implements the cache-aside read for both forecast kinds. Cache keys use the
// city name and unit, so two places sharing a name share entries.
type Fetcher struct {
	client client.WeatherClient
	cache  *cache.Cache
	logger *zap.Logger
}

// NewFetcher creates a Fetcher over the given client and cache.
func NewFetcher(c client.WeatherClient, cc *cache.Cache) *Fetcher {
	return &Fetcher{client: c, cache: cc, logger: zap.NewNop()}
}

// WithLogger sets the fallback logger used when the context carries none.
func (f *Fetcher) WithLogger(logger *zap.Logger) *Fetcher {
	if logger != nil {
		f.logger = logger
	}
	return f
}

type currentPayload struct {
	Current *struct {
		Temperature *float64 `json:"temperature_2m"`
		WeatherCode *int     `json:"weather_code"`
		WindSpeed   float64  `json:"wind_speed_10m"`
		IsDay       *int     `json:"is_day"`
	} `json:"current"`
}

type dailyPayload struct {
	Daily *struct {
		Time []string  `json:"time"`
		Max  []float64 `json:"temperature_2m_max"`
		Min  []float64 `json:"temperature_2m_min"`
	} `json:"daily"`
}

// FetchCurrent returns current conditions for city at (lat, lon) in unit.
func (f *Fetcher) FetchCurrent(ctx context.Context, city string, lat, lon float64, unit models.Unit) (models.CurrentConditions, error) {
	key := cache.Key(cache.KindCurrent, city, unit)
	logger := observability.LoggerFromContext(ctx, f.logger)

	if raw, ok := f.cache.GetRaw(ctx, key); ok {
		if cur, err := decodeCurrent(raw); err == nil {
			logger.Debug("weather served", zap.String("key", key), zap.Bool("cached", true))
			return cur, nil
		}
		logger.Debug("cached payload undecodable, refetching", zap.String("key", key))
	}

	body, err := f.client.Current(ctx, lat, lon, unit)
	if err != nil {
		return models.CurrentConditions{}, fmt.Errorf("fetch current for %s: %w", city, err)
	}
	f.cache.Set(ctx, key, json.RawMessage(body))

	cur, err := decodeCurrent(body)
	if err != nil {
		return models.CurrentConditions{}, fmt.Errorf("fetch current for %s: %w", city, err)
	}
	logger.Debug("weather served", zap.String("key", key), zap.Bool("cached", false))
	return cur, nil
}

// FetchDaily returns the five-day min/max forecast for city at (lat, lon) in unit.
func (f *Fetcher) FetchDaily(ctx context.Context, city string, lat, lon float64, unit models.Unit) (models.DailyForecast, error) {
	key := cache.Key(cache.KindForecast5, city, unit)
	logger := observability.LoggerFromContext(ctx, f.logger)

	if raw, ok := f.cache.GetRaw(ctx, key); ok {
		if daily, err := decodeDaily(raw); err == nil {
			logger.Debug("forecast served", zap.String("key", key), zap.Bool("cached", true))
			return daily, nil
		}
		logger.Debug("cached payload undecodable, refetching", zap.String("key", key))
	}

	body, err := f.client.Daily(ctx, lat, lon, unit)
	if err != nil {
		return nil, fmt.Errorf("fetch forecast for %s: %w", city, err)
	}
	f.cache.Set(ctx, key, json.RawMessage(body))

	daily, err := decodeDaily(body)
	if err != nil {
		return nil, fmt.Errorf("fetch forecast for %s: %w", city, err)
	}
	logger.Debug("forecast served", zap.String("key", key), zap.Bool("cached", false))
	return daily, nil
}

// Load fetches current conditions and the daily forecast concurrently and joins them.
// Both fetches run to completion, so a successful one is cached even when the other
// fails; the first error is returned once both have finished.
func (f *Fetcher) Load(ctx context.Context, loc models.Location, unit models.Unit) (models.Report, error) {
	start := time.Now()
	observability.RecordWeatherQuery(loc.Name)

	var (
		cur   models.CurrentConditions
		daily models.DailyForecast
	)
	var g errgroup.Group
	g.Go(func() error {
		var err error
		cur, err = f.FetchCurrent(ctx, loc.Name, loc.Latitude, loc.Longitude, unit)
		return err
	})
	g.Go(func() error {
		var err error
		daily, err = f.FetchDaily(ctx, loc.Name, loc.Latitude, loc.Longitude, unit)
		return err
	})
	if err := g.Wait(); err != nil {
		return models.Report{}, err
	}

	observability.LoggerFromContext(ctx, f.logger).Debug("report loaded",
		zap.String("location", loc.Name),
		zap.String("unit", string(unit)),
		zap.Duration("duration", time.Since(start)))
	return models.Report{Location: loc, Unit: unit, Current: cur, Daily: daily}, nil
}

// decodeCurrent reads a current-conditions payload. Missing fields default the way the
// display expects: temperature 0, unknown weather code, day.
func decodeCurrent(raw []byte) (models.CurrentConditions, error) {
	var p currentPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return models.CurrentConditions{}, fmt.Errorf("parse current: %w", err)
	}
	if p.Current == nil {
		return models.CurrentConditions{}, fmt.Errorf("%w: current block missing", ErrMalformedForecast)
	}
	cur := models.CurrentConditions{
		WeatherCode:  models.UnknownWeatherCode,
		WindSpeedKmh: p.Current.WindSpeed,
		IsDay:        true,
	}
	if p.Current.Temperature != nil {
		cur.Temperature = *p.Current.Temperature
	}
	if p.Current.WeatherCode != nil {
		cur.WeatherCode = *p.Current.WeatherCode
	}
	if p.Current.IsDay != nil {
		cur.IsDay = *p.Current.IsDay == 1
	}
	return cur, nil
}

// decodeDaily zips the parallel daily arrays into one entry per date.
func decodeDaily(raw []byte) (models.DailyForecast, error) {
	var p dailyPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("parse daily: %w", err)
	}
	if p.Daily == nil {
		return nil, fmt.Errorf("%w: daily block missing", ErrMalformedForecast)
	}
	d := p.Daily
	if len(d.Max) != len(d.Time) || len(d.Min) != len(d.Time) {
		return nil, fmt.Errorf("%w: %d dates, %d maxima, %d minima", ErrMalformedForecast, len(d.Time), len(d.Max), len(d.Min))
	}
	out := make(models.DailyForecast, 0, len(d.Time))
	for i, day := range d.Time {
		date, err := time.Parse(dateLayout, day)
		if err != nil {
			return nil, fmt.Errorf("%w: date %q", ErrMalformedForecast, day)
		}
		out = append(out, models.DailyTemperature{Date: date, Min: d.Min[i], Max: d.Max[i]})
	}
	return out, nil
}
