package redisx

import (
	"context"
	"fmt"
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

	client := New(addr)
	if err := client.Ping(context.Background()).Err(); err != nil {
		t.Skipf("Redis not available: %v", err)
	}
	return client
}

func TestMarkOnce(t *testing.T) {
	client := getRedisClient(t)
	defer client.Close()

	ctx := context.Background()
	key := fmt.Sprintf(KeyDedup, "test", "evt-1")
	client.Del(ctx, key)

	first, err := MarkOnce(ctx, client, key, time.Minute)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !first {
		t.Error("expected first mark to win")
	}

	again, err := MarkOnce(ctx, client, key, time.Minute)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if again {
		t.Error("expected second mark to lose")
	}

	ok, err := Exists(ctx, client, key)
	if err != nil || !ok {
		t.Errorf("expected key to exist, ok=%v err=%v", ok, err)
	}
}

func TestTryLock_Concurrent(t *testing.T) {
	client := getRedisClient(t)
	defer client.Close()

	ctx := context.Background()
	key := fmt.Sprintf(KeyCheckoutLock, "lock-test-user")
	client.Del(ctx, key)

	locker := NewLocker(client)

	var winners atomic.Int32
	var wg sync.WaitGroup
	releases := make(chan func(), 20)

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, ok, err := locker.TryLock(ctx, key, time.Minute)
			if err != nil {
				t.Errorf("unexpected error: %v", err)
				return
			}
			if ok {
				winners.Add(1)
				releases <- release
			}
		}()
	}
	wg.Wait()
	close(releases)

	if winners.Load() != 1 {
		t.Fatalf("expected exactly 1 lock holder, got %d", winners.Load())
	}

	for release := range releases {
		release()
	}
	if ok, _ := Exists(ctx, client, key); ok {
		t.Error("expected lock to be released")
	}
}

func TestRelease_DoesNotStealForeignLock(t *testing.T) {
	client := getRedisClient(t)
	defer client.Close()

	ctx := context.Background()
	key := fmt.Sprintf(KeyCheckoutLock, "lock-steal-user")
	client.Del(ctx, key)

	locker := NewLocker(client)
	release, ok, err := locker.TryLock(ctx, key, time.Minute)
	if err != nil || !ok {
		t.Fatalf("expected lock, ok=%v err=%v", ok, err)
	}

	// simulate expiry and takeover by another holder
	client.Set(ctx, key, "someone-else", time.Minute)
	release()

	val, _ := client.Get(ctx, key).Result()
	if val != "someone-else" {
		t.Errorf("foreign lock was removed, got %q", val)
	}
	client.Del(ctx, key)
}

func TestDedup(t *testing.T) {
	client := getRedisClient(t)
	defer client.Close()

	ctx := context.Background()
	d := NewDedup(client, "test")
	client.Del(ctx, fmt.Sprintf(KeyDedup, "test", "evt-2"))

	first, err := d.First(ctx, "evt-2")
	if err != nil || !first {
		t.Fatalf("expected first delivery, first=%v err=%v", first, err)
	}
	if again, _ := d.First(ctx, "evt-2"); again {
		t.Error("expected redelivery to be detected")
	}
	if err := d.Forget(ctx, "evt-2"); err != nil {
		t.Fatalf("forget: %v", err)
	}
	if first, _ := d.First(ctx, "evt-2"); !first {
		t.Error("expected event to be processable after Forget")
	}
	client.Del(ctx, fmt.Sprintf(KeyDedup, "test", "evt-2"))
}
