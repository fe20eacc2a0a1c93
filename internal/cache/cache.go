// Package cache stores provider responses with a fixed time-to-live on top of a
// best-effort string store.
package cache

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kjstillabower/clima-service/internal/models"
	"github.com/kjstillabower/clima-service/internal/observability"
	"github.com/kjstillabower/clima-service/internal/store"
)

// DefaultTTL is how long an entry stays fresh.
const DefaultTTL = time.Hour

const keyPrefix = "wthr"

// Entry kinds used in cache keys.
const (
	KindCurrent   = "current"
	KindForecast5 = "forecast5"
)

// Cache wraps a store.Store. Entries are JSON envelopes {"t": epoch-millis, "v": payload}.
// Reads never fail: missing, expired, or unreadable entries are misses. Writes are best-effort.
type Cache struct {
	store  store.Store
	ttl    time.Duration
	now    func() time.Time
	logger *zap.Logger
}

// Option configures a Cache.
type Option func(*Cache)

// WithClock replaces time.Now. Used by tests to simulate expiry.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// WithLogger sets the logger used for debug output on swallowed failures.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Cache) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New creates a Cache over s. A ttl <= 0 uses DefaultTTL.
func New(s store.Store, ttl time.Duration, opts ...Option) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	c := &Cache{
		store:  s,
		ttl:    ttl,
		now:    time.Now,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// TTL returns the freshness window.
func (c *Cache) TTL() time.Duration {
	return c.ttl
}

// Key builds wthr:<kind>:<city>:<unit>. The city is lowercased so lookups are case-insensitive.
func Key(kind, city string, unit models.Unit) string {
	return keyPrefix + ":" + kind + ":" + strings.ToLower(city) + ":" + string(unit)
}

type entry struct {
	T int64           `json:"t"`
	V json.RawMessage `json:"v"`
}

// GetRaw returns the stored payload verbatim if the entry for key is fresh.
func (c *Cache) GetRaw(ctx context.Context, key string) (json.RawMessage, bool) {
	kind := kindOf(key)
	raw, ok := c.store.TryGet(ctx, key)
	if !ok {
		observability.CacheLookupsTotal.WithLabelValues(kind, "miss").Inc()
		return nil, false
	}
	var e entry
	if err := json.Unmarshal([]byte(raw), &e); err != nil || len(e.V) == 0 || string(e.V) == "null" {
		observability.CacheLookupsTotal.WithLabelValues(kind, "corrupt").Inc()
		c.logger.Debug("cache entry unreadable", zap.String("key", key))
		return nil, false
	}
	if c.now().Sub(time.UnixMilli(e.T)) >= c.ttl {
		observability.CacheLookupsTotal.WithLabelValues(kind, "expired").Inc()
		return nil, false
	}
	observability.CacheLookupsTotal.WithLabelValues(kind, "hit").Inc()
	return e.V, true
}

// Get decodes a fresh payload for key into out. A payload that does not decode
// into out is reported as a miss.
func (c *Cache) Get(ctx context.Context, key string, out any) bool {
	raw, ok := c.GetRaw(ctx, key)
	if !ok {
		return false
	}
	if err := json.Unmarshal(raw, out); err != nil {
		c.logger.Debug("cache payload decode failed", zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}

// Set stores v under key stamped with the current time. Pass json.RawMessage to
// store an already-encoded payload verbatim. Failures are logged and dropped.
func (c *Cache) Set(ctx context.Context, key string, v any) {
	payload, err := json.Marshal(v)
	if err != nil {
		c.logger.Debug("cache payload encode failed", zap.String("key", key), zap.Error(err))
		return
	}
	raw, err := json.Marshal(entry{T: c.now().UnixMilli(), V: payload})
	if err != nil {
		c.logger.Debug("cache entry encode failed", zap.String("key", key), zap.Error(err))
		return
	}
	if !c.store.TrySet(ctx, key, string(raw)) {
		observability.CacheWriteFailuresTotal.Inc()
		c.logger.Debug("cache write dropped", zap.String("key", key))
	}
}

// kindOf extracts the kind segment of a cache key for metric labels.
func kindOf(key string) string {
	parts := strings.SplitN(key, ":", 3)
	if len(parts) < 3 || parts[0] != keyPrefix {
		return "other"
	}
	switch parts[1] {
	case KindCurrent, KindForecast5:
		return parts[1]
	}
	return "other"
}
