package store

import (
	"context"

	gocache "github.com/patrickmn/go-cache"
)

// MemoryStore keeps values in process memory. Entries never expire on their own;
// freshness is decided by the reader.
type MemoryStore struct {
	items *gocache.Cache
}

// NewMemoryStore creates an empty MemoryStore with no janitor goroutine.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: gocache.New(gocache.NoExpiration, 0)}
}

// TryGet implements Store.
func (s *MemoryStore) TryGet(ctx context.Context, key string) (string, bool) {
	v, ok := s.items.Get(key)
	if !ok {
		return "", false
	}
	str, ok := v.(string)
	return str, ok
}

// TrySet implements Store.
func (s *MemoryStore) TrySet(ctx context.Context, key, value string) bool {
	if ctx.Err() != nil {
		return false
	}
	s.items.Set(key, value, gocache.NoExpiration)
	return true
}

// Len returns the number of stored keys.
func (s *MemoryStore) Len() int {
	return s.items.ItemCount()
}
