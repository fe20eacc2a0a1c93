package store

import (
	"context"
	"strings"
	"testing"
	"time"
)

func TestParseAddrs(t *testing.T) {
	got := parseAddrs(" a:1 , ,b:2,")
	if len(got) != 2 || got[0] != "a:1" || got[1] != "b:2" {
		t.Errorf("parseAddrs() = %v, want [a:1 b:2]", got)
	}
}

func TestMemcachedKey(t *testing.T) {
	k, ok := memcachedKey("wthr:current:são paulo:celsius")
	if !ok {
		t.Fatal("memcachedKey() ok = false for legal key")
	}
	if k != "clima:wthr:current:são_paulo:celsius" {
		t.Errorf("memcachedKey() = %q", k)
	}
	if _, ok := memcachedKey(strings.Repeat("x", 300)); ok {
		t.Error("memcachedKey() ok = true for oversized key")
	}
	if _, ok := memcachedKey("bad\nkey"); ok {
		t.Error("memcachedKey() ok = true for key with control character")
	}
}

// TestMemcachedStore_UnreachableFailsSilently verifies that an unreachable server
// surfaces as misses and failed writes, never as errors.
func TestMemcachedStore_UnreachableFailsSilently(t *testing.T) {
	s := NewMemcachedStore("127.0.0.1:1", 50*time.Millisecond, 1)
	defer func() { _ = s.Close() }()

	ctx := context.Background()
	if s.TrySet(ctx, "k", "v") {
		t.Error("TrySet() = true against unreachable server")
	}
	if _, ok := s.TryGet(ctx, "k"); ok {
		t.Error("TryGet() ok = true against unreachable server")
	}
	if err := s.Ping(); err == nil {
		t.Error("Ping() error = nil against unreachable server")
	}
}
