package cache

import (
	"context"
	"testing"
	"time"

	"github.com/monomemo/monomemo/cache/memory"
)

func newMemoryCache(t *testing.T) *memory.Memory {
	config := memory.Config{
		NumCounters: 1000,
		MaxCost:     1 << 20,
		BufferItems: 64,
	}

	cache, err := memory.NewMemory(config)
	if err != nil {
		t.Fatalf("Failed to create memory cache: %v", err)
	}
	t.Cleanup(func() { _ = cache.Close() })
	return cache
}

func TestMemoryCache(t *testing.T) {
	cache := newMemoryCache(t)

	ctx := context.Background()
	key := "test_key"
	value := "test_value"
	expiration := 10 * time.Second

	if err := cache.Set(ctx, key, value, expiration); err != nil {
		t.Fatalf("Failed to set cache value: %v", err)
	}

	var retrievedValue string
	if err := cache.Get(ctx, key, &retrievedValue); err != nil {
		t.Fatalf("Failed to get cache value: %v", err)
	}
	if retrievedValue != value {
		t.Fatalf("Expected %q, got %q", value, retrievedValue)
	}

	exists, err := cache.Exists(ctx, key)
	if err != nil {
		t.Fatalf("Failed to check existence: %v", err)
	}
	if !exists {
		t.Fatal("Expected key to exist")
	}

	if err := cache.Delete(ctx, key); err != nil {
		t.Fatalf("Failed to delete cache value: %v", err)
	}
	if err := cache.Get(ctx, key, &retrievedValue); err == nil {
		t.Fatal("Expected cache miss after delete")
	}
}

func TestMemoryCache_StructValues(t *testing.T) {
	cache := newMemoryCache(t)

	type mediaItem struct {
		ID  uint   `json:"id"`
		URL string `json:"url"`
	}

	ctx := context.Background()
	items := []mediaItem{{ID: 1, URL: "http://blobs.example/a"}, {ID: 2, URL: "http://blobs.example/b"}}

	if err := cache.Set(ctx, "media", items, time.Minute); err != nil {
		t.Fatalf("Failed to set cache value: %v", err)
	}

	var got []mediaItem
	if err := cache.Get(ctx, "media", &got); err != nil {
		t.Fatalf("Failed to get cache value: %v", err)
	}
	if len(got) != 2 || got[0].ID != 1 || got[1].URL != "http://blobs.example/b" {
		t.Fatalf("Unexpected cached value: %+v", got)
	}
}

func TestIsCacheMiss(t *testing.T) {
	if !IsCacheMiss(ErrCacheMiss) {
		t.Fatal("Expected ErrCacheMiss to be a cache miss")
	}
	if IsCacheMiss(nil) {
		t.Fatal("nil is not a cache miss")
	}
	if IsCacheMiss(context.Canceled) {
		t.Fatal("unrelated error is not a cache miss")
	}
}
