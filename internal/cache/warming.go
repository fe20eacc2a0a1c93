package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kjstillabower/clima-service/internal/models"
	"github.com/kjstillabower/clima-service/internal/observability"
)

// Loader is implemented by the service layer to resolve a place and load its weather,
// populating the cache as a side effect. Declared here to avoid an import cycle.
type Loader interface {
	Preload(ctx context.Context, query string, unit models.Unit) error
}

// Warmer pre-populates the cache for a fixed list of places.
type Warmer struct {
	loader Loader
	logger *zap.Logger
}

// NewWarmer creates a Warmer that uses the given loader and logger.
func NewWarmer(loader Loader, logger *zap.Logger) *Warmer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Warmer{loader: loader, logger: logger}
}

// Warm loads every (place, unit) pair concurrently. Returns the joined errors of failed pairs.
func (w *Warmer) Warm(ctx context.Context, places []string, units []models.Unit) error {
	start := time.Now()
	observability.CacheWarmingTotal.Inc()
	w.logger.Info("warming cache", zap.Int("places", len(places)), zap.Int("units", len(units)))

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	for _, place := range places {
		for _, unit := range units {
			wg.Add(1)
			go func(place string, unit models.Unit) {
				defer wg.Done()
				if err := w.loader.Preload(ctx, place, unit); err != nil {
					mu.Lock()
					errs = append(errs, fmt.Errorf("warm %s (%s): %w", place, unit, err))
					mu.Unlock()
				}
			}(place, unit)
		}
	}
	wg.Wait()

	duration := time.Since(start).Seconds()
	observability.CacheWarmingDurationSeconds.Observe(duration)
	w.logger.Info("cache warming complete", zap.Int("errors", len(errs)), zap.Float64("duration_seconds", duration))
	if len(errs) > 0 {
		observability.CacheWarmingErrorsTotal.Inc()
		return errors.Join(errs...)
	}
	return nil
}

// WarmPeriodic runs an initial Warm, then refreshes at the given interval until ctx is done.
func (w *Warmer) WarmPeriodic(ctx context.Context, places []string, units []models.Unit, interval time.Duration) error {
	if err := w.Warm(ctx, places, units); err != nil {
		w.logger.Warn("initial cache warm failed", zap.Error(err))
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := w.Warm(ctx, places, units); err != nil {
				w.logger.Warn("periodic cache warm failed", zap.Error(err))
			}
		}
	}
}
