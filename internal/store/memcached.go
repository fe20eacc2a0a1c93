package store

import (
	"context"
	"strings"
	"time"

	"github.com/bradfitz/gomemcache/memcache"
)

const memcachedKeyPrefix = "clima:"

// memcachedExpiration keeps items for memcached's maximum relative expiration (30 days).
// Stale entries are superseded by the next write, not swept.
const memcachedExpiration = 30 * 24 * 60 * 60

// MemcachedStore implements Store using memcached.
type MemcachedStore struct {
	client *memcache.Client
}

// NewMemcachedStore creates a MemcachedStore. addrs is a comma-separated list
// (e.g. "localhost:11211" or "host1:11211,host2:11211"). timeout and maxIdleConns
// configure the client; both use package defaults if zero.
func NewMemcachedStore(addrs string, timeout time.Duration, maxIdleConns int) *MemcachedStore {
	servers := parseAddrs(addrs)
	if len(servers) == 0 {
		servers = []string{"localhost:11211"}
	}
	client := memcache.New(servers...)
	if timeout > 0 {
		client.Timeout = timeout
	}
	if maxIdleConns > 0 {
		client.MaxIdleConns = maxIdleConns
	}
	return &MemcachedStore{client: client}
}

func parseAddrs(s string) []string {
	var out []string
	for _, a := range strings.Split(s, ",") {
		a = strings.TrimSpace(a)
		if a != "" {
			out = append(out, a)
		}
	}
	return out
}

// memcached keys are limited to 250 bytes without spaces or control characters.
func memcachedKey(k string) (string, bool) {
	key := memcachedKeyPrefix + strings.ReplaceAll(k, " ", "_")
	if len(key) > 250 {
		return "", false
	}
	for _, r := range key {
		if r < 0x21 || r == 0x7f {
			return "", false
		}
	}
	return key, true
}

// TryGet implements Store. Cache misses and client errors both report false.
func (s *MemcachedStore) TryGet(ctx context.Context, key string) (string, bool) {
	if ctx.Err() != nil {
		return "", false
	}
	k, ok := memcachedKey(key)
	if !ok {
		return "", false
	}
	item, err := s.client.Get(k)
	if err != nil {
		return "", false
	}
	return string(item.Value), true
}

// TrySet implements Store.
func (s *MemcachedStore) TrySet(ctx context.Context, key, value string) bool {
	if ctx.Err() != nil {
		return false
	}
	k, ok := memcachedKey(key)
	if !ok {
		return false
	}
	err := s.client.Set(&memcache.Item{
		Key:        k,
		Value:      []byte(value),
		Expiration: memcachedExpiration,
	})
	return err == nil
}

// Ping checks if memcached is reachable. Used for health checks.
func (s *MemcachedStore) Ping() error {
	return s.client.Ping()
}

// Close closes the memcached client connections. Call during shutdown.
func (s *MemcachedStore) Close() error {
	return s.client.Close()
}
