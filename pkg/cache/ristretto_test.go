package cache

import (
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestRistrettoCache(t *testing.T) {
	logger, _ := zap.NewDevelopment()
	cacheInterface, err := NewRistrettoCache(&RistrettoConfig{
		NumCounters: 1000,
		MaxCost:     100,
		BufferItems: 64,
		Logger:      logger,
	})
	if err != nil {
		t.Fatalf("failed to create cache: %v", err)
	}
	defer cacheInterface.Close()

	// Cast to RistrettoCache for test-specific methods
	cache := cacheInterface.(*RistrettoCache)

	t.Run("set-and-get", func(t *testing.T) {
		key := "snapshot:alpha:BTC-USD"
		value := "test-snapshot"

		success := cache.Set(key, value, 1*time.Hour)
		if !success {
			t.Error("expected Set to succeed")
		}

		// Wait for Ristretto to process pending writes
		cache.Wait()

		retrieved, found := cache.Get(key)
		if !found {
			t.Error("expected key to be found")
		}

		if retrieved != value {
			t.Errorf("expected %q, got %q", value, retrieved)
		}
	})

	t.Run("get-missing-key", func(t *testing.T) {
		_, found := cache.Get("nonexistent")
		if found {
			t.Error("expected key to not be found")
		}
	})

	t.Run("delete", func(t *testing.T) {
		key := "delete-test"

		cache.Set(key, "delete-value", 1*time.Hour)
		cache.Wait()

		_, found := cache.Get(key)
		if !found {
			t.Error("expected key to exist before delete")
		}

		cache.Delete(key)

		_, found = cache.Get(key)
		if found {
			t.Error("expected key to be deleted")
		}
	})

	t.Run("ttl-expiration", func(t *testing.T) {
		key := "ttl-test"

		cache.Set(key, "ttl-value", 50*time.Millisecond)
		cache.Wait()

		if _, found := cache.Get(key); !found {
			t.Error("expected key to exist before TTL expiry")
		}

		time.Sleep(100 * time.Millisecond)

		if _, found := cache.Get(key); found {
			t.Error("expected key to expire after TTL")
		}
	})

	t.Run("clear", func(t *testing.T) {
		cache.Set("clear-a", 1, time.Hour)
		cache.Set("clear-b", 2, time.Hour)
		cache.Wait()

		cache.Clear()

		if _, found := cache.Get("clear-a"); found {
			t.Error("expected clear-a to be gone after Clear")
		}
		if _, found := cache.Get("clear-b"); found {
			t.Error("expected clear-b to be gone after Clear")
		}
	})
}
