package lock

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

func TestKeyed_ExclusivePerKey(t *testing.T) {
	k := NewKeyed()
	ctx := context.Background()

	var mu sync.Mutex
	inside, maxInside := 0, 0

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := k.Lock(ctx, "wallet:w1", "market:m1")
			if err != nil {
				t.Errorf("lock failed: %v", err)
				return
			}
			mu.Lock()
			inside++
			if inside > maxInside {
				maxInside = inside
			}
			mu.Unlock()

			time.Sleep(time.Millisecond)

			mu.Lock()
			inside--
			mu.Unlock()
			unlock()
		}()
	}
	wg.Wait()

	if maxInside != 1 {
		t.Errorf("expected at most 1 holder at a time, saw %d", maxInside)
	}
	if len(k.locks) != 0 {
		t.Errorf("expected all entries to be released, got %d", len(k.locks))
	}
}

func TestKeyed_DisjointKeysDoNotBlock(t *testing.T) {
	k := NewKeyed()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	unlockA, err := k.Lock(ctx, "wallet:a")
	if err != nil {
		t.Fatalf("lock a: %v", err)
	}
	defer unlockA()

	unlockB, err := k.Lock(ctx, "wallet:b")
	if err != nil {
		t.Fatalf("disjoint key should not block: %v", err)
	}
	unlockB()
}

func TestKeyed_ContextCancelledWhileHeld(t *testing.T) {
	k := NewKeyed()

	unlock, err := k.Lock(context.Background(), "market:m1")
	if err != nil {
		t.Fatalf("lock: %v", err)
	}
	defer unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err = k.Lock(ctx, "wallet:w1", "market:m1")
	if !errors.Is(err, ErrLockHeld) {
		t.Fatalf("expected ErrLockHeld, got %v", err)
	}

	// wallet:w1 was acquired first and must have been released on failure.
	quick, cancelQuick := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancelQuick()
	unlockW, err := k.Lock(quick, "wallet:w1")
	if err != nil {
		t.Fatalf("partially acquired keys should be released: %v", err)
	}
	unlockW()
}

func TestKeyed_UnlockIdempotent(t *testing.T) {
	k := NewKeyed()
	unlock, err := k.Lock(context.Background(), "a", "a", "", "b")
	if err != nil {
		t.Fatalf("lock: %v", err)
	}
	unlock()
	unlock()

	if len(k.locks) != 0 {
		t.Errorf("expected no live entries, got %d", len(k.locks))
	}
}

func TestNormalize(t *testing.T) {
	got := normalize([]string{"wallet:w1", "", "market:m1", "wallet:w1"})
	want := []string{"market:m1", "wallet:w1"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("expected %v, got %v", want, got)
		}
	}
}

func TestRedis_ExclusiveAcrossLockers(t *testing.T) {
	url := os.Getenv("REDIS_URL")
	if url == "" {
		t.Skip("REDIS_URL not set")
	}
	opt, err := redis.ParseURL(url)
	if err != nil {
		t.Fatalf("invalid REDIS_URL: %v", err)
	}
	rdb := redis.NewClient(opt)
	defer rdb.Close()

	a := NewRedis(rdb, 5*time.Second)
	b := NewRedis(rdb, 5*time.Second)
	key := "test:" + uuid.New().String()

	unlock, err := a.Lock(context.Background(), key)
	if err != nil {
		t.Fatalf("lock a: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err := b.Lock(ctx, key); !errors.Is(err, ErrLockHeld) {
		t.Fatalf("expected ErrLockHeld while a holds the key, got %v", err)
	}

	unlock()

	unlockB, err := b.Lock(context.Background(), key)
	if err != nil {
		t.Fatalf("lock b after release: %v", err)
	}
	unlockB()
}
