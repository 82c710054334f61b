package assignment

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestScopeKey(t *testing.T) {
	c := int64(7)
	if got := ScopeKey(3, nil); got != "leadintake:rr:3:all" {
		t.Fatalf("unexpected tenant key %q", got)
	}
	if got := ScopeKey(3, &c); got != "leadintake:rr:3:7" {
		t.Fatalf("unexpected campaign key %q", got)
	}
}

func TestKeyedMutexSerializesSameKey(t *testing.T) {
	k := NewKeyedMutex()
	ctx := context.Background()

	var (
		mu      sync.Mutex
		active  int
		maxSeen int
		wg      sync.WaitGroup
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := k.Lock(ctx, "scope")
			if err != nil {
				t.Errorf("lock: %v", err)
				return
			}
			mu.Lock()
			active++
			if active > maxSeen {
				maxSeen = active
			}
			mu.Unlock()

			time.Sleep(time.Millisecond)

			mu.Lock()
			active--
			mu.Unlock()
			unlock()
		}()
	}
	wg.Wait()

	if maxSeen != 1 {
		t.Fatalf("expected at most one holder, saw %d", maxSeen)
	}
	if k.size() != 0 {
		t.Fatalf("expected entries to be released, got %d", k.size())
	}
}

func TestKeyedMutexHonoursContext(t *testing.T) {
	k := NewKeyedMutex()
	unlock, err := k.Lock(context.Background(), "scope")
	if err != nil {
		t.Fatalf("lock: %v", err)
	}
	defer unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, err := k.Lock(ctx, "scope"); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}

	other, err := k.Lock(context.Background(), "other-scope")
	if err != nil {
		t.Fatalf("different key must not block: %v", err)
	}
	other()
}

func newRedisLocker(t *testing.T, ttl time.Duration) (*RedisLocker, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisLocker(client, ttl), mr
}

func TestRedisLockerExcludesSecondHolder(t *testing.T) {
	locker, mr := newRedisLocker(t, 5*time.Second)
	locker.maxWait = 50 * time.Millisecond

	unlock, err := locker.Lock(context.Background(), "leadintake:rr:1:all")
	if err != nil {
		t.Fatalf("lock: %v", err)
	}
	if !mr.Exists("leadintake:rr:1:all") {
		t.Fatal("expected lock key in redis")
	}

	if _, err := locker.Lock(context.Background(), "leadintake:rr:1:all"); !errors.Is(err, ErrLockTimeout) {
		t.Fatalf("expected lock timeout, got %v", err)
	}

	unlock()
	if mr.Exists("leadintake:rr:1:all") {
		t.Fatal("expected lock key removed after unlock")
	}

	again, err := locker.Lock(context.Background(), "leadintake:rr:1:all")
	if err != nil {
		t.Fatalf("expected lock after release: %v", err)
	}
	again()
}

func TestRedisLockerReleaseKeepsForeignToken(t *testing.T) {
	locker, mr := newRedisLocker(t, time.Second)

	unlock, err := locker.Lock(context.Background(), "scope")
	if err != nil {
		t.Fatalf("lock: %v", err)
	}

	// The first holder stalls past its TTL and another process takes over.
	mr.FastForward(2 * time.Second)
	if err := mr.Set("scope", "someone-else"); err != nil {
		t.Fatalf("set: %v", err)
	}

	unlock()
	got, err := mr.Get("scope")
	if err != nil || got != "someone-else" {
		t.Fatalf("stale unlock must not delete the new holder's key, got %q (%v)", got, err)
	}
}

func TestRedisLockerRepeatedUnlockIsNoop(t *testing.T) {
	locker, mr := newRedisLocker(t, 5*time.Second)

	unlock, err := locker.Lock(context.Background(), "leadintake:rr:1:7")
	if err != nil {
		t.Fatalf("lock: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock()
		}()
	}
	wg.Wait()
	if mr.Exists("leadintake:rr:1:7") {
		t.Fatal("expected lock key removed after unlock")
	}

	next, err := locker.Lock(context.Background(), "leadintake:rr:1:7")
	if err != nil {
		t.Fatalf("relock: %v", err)
	}
	token, _ := mr.Get("leadintake:rr:1:7")

	unlock()
	if got, _ := mr.Get("leadintake:rr:1:7"); got != token {
		t.Fatalf("released unlock must not touch the next holder, key now %q", got)
	}
	next()
}
