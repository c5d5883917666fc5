package storage

import (
	"context"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

func getRedisClient(t *testing.T) *redis.Client {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}

	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(context.Background()).Err(); err != nil {
		t.Skipf("Redis not available: %v", err)
	}
	return client
}

func TestRedisAcquire_Exclusive(t *testing.T) {
	client := getRedisClient(t)
	defer client.Close()

	ctx := context.Background()
	adapter := NewRedisAdapter(client, time.Minute)

	// Setup
	client.Del(ctx, "checkout:test-terminal")

	ok, err := adapter.Acquire(ctx, "test-terminal", "token-a")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Fatal("expected first acquire to succeed")
	}

	ok, err = adapter.Acquire(ctx, "test-terminal", "token-b")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Error("expected second acquire to fail while held")
	}

	client.Del(ctx, "checkout:test-terminal")
}

func TestRedisRelease_OnlyByHolder(t *testing.T) {
	client := getRedisClient(t)
	defer client.Close()

	ctx := context.Background()
	adapter := NewRedisAdapter(client, time.Minute)

	// Setup
	client.Del(ctx, "checkout:release-terminal")
	if ok, _ := adapter.Acquire(ctx, "release-terminal", "holder"); !ok {
		t.Fatal("setup acquire failed")
	}

	// Release with a foreign token keeps the lock
	if err := adapter.Release(ctx, "release-terminal", "intruder"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	val, _ := client.Get(ctx, "checkout:release-terminal").Result()
	if val != "holder" {
		t.Errorf("expected lock still held by holder, got %q", val)
	}

	// Release by holder frees it
	if err := adapter.Release(ctx, "release-terminal", "holder"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	n, _ := client.Exists(ctx, "checkout:release-terminal").Result()
	if n != 0 {
		t.Error("expected lock key to be deleted")
	}
}

func TestRedisAcquire_Expires(t *testing.T) {
	client := getRedisClient(t)
	defer client.Close()

	ctx := context.Background()
	adapter := NewRedisAdapter(client, 50*time.Millisecond)

	client.Del(ctx, "checkout:ttl-terminal")
	if ok, _ := adapter.Acquire(ctx, "ttl-terminal", "first"); !ok {
		t.Fatal("setup acquire failed")
	}

	time.Sleep(150 * time.Millisecond)

	ok, err := adapter.Acquire(ctx, "ttl-terminal", "second")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Error("expected acquire to succeed after ttl")
	}

	client.Del(ctx, "checkout:ttl-terminal")
}

func TestRedisAcquire_Concurrent(t *testing.T) {
	client := getRedisClient(t)
	defer client.Close()

	ctx := context.Background()
	adapter := NewRedisAdapter(client, time.Minute)

	// Setup
	client.Del(ctx, "checkout:concurrent-terminal")

	var successCount atomic.Int32
	var wg sync.WaitGroup
	concurrency := 100

	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := adapter.Acquire(ctx, "concurrent-terminal", "token")
			if err != nil {
				t.Errorf("unexpected error: %v", err)
				return
			}
			if ok {
				successCount.Add(1)
			}
		}()
	}

	wg.Wait()

	// Only one should succeed
	if successCount.Load() != 1 {
		t.Errorf("expected exactly 1 success, got %d", successCount.Load())
	}

	client.Del(ctx, "checkout:concurrent-terminal")
}
