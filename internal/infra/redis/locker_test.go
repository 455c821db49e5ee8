package redis

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestSubmissionLockerExcludesSecondHolder(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	locker := NewSubmissionLocker(newClient(mr), time.Minute)

	unlock, err := locker.Lock(context.Background(), 1)
	if err != nil {
		t.Fatalf("lock: %v", err)
	}
	if !mr.Exists("quiz:submission-lock:1") {
		t.Fatalf("expected lock key to be set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err := locker.Lock(ctx, 1); err == nil {
		t.Fatalf("expected second lock to time out while held")
	}

	// other participants are independent
	unlockOther, err := locker.Lock(context.Background(), 2)
	if err != nil {
		t.Fatalf("lock other participant: %v", err)
	}
	unlockOther()

	unlock()
	if mr.Exists("quiz:submission-lock:1") {
		t.Fatalf("expected lock key removed after unlock")
	}
	unlockAgain, err := locker.Lock(context.Background(), 1)
	if err != nil {
		t.Fatalf("relock after release: %v", err)
	}
	unlockAgain()
}

func TestSubmissionLockerReleaseKeepsForeignLock(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	locker := NewSubmissionLocker(newClient(mr), time.Minute)
	unlock, err := locker.Lock(context.Background(), 3)
	if err != nil {
		t.Fatalf("lock: %v", err)
	}

	// simulate expiry followed by another instance taking the lock
	if err := mr.Set("quiz:submission-lock:3", "someone-else"); err != nil {
		t.Fatalf("overwrite lock: %v", err)
	}
	unlock()

	got, err := mr.Get("quiz:submission-lock:3")
	if err != nil || got != "someone-else" {
		t.Fatalf("expected foreign lock to survive, got %q (%v)", got, err)
	}
}

func TestSubmissionLockerRenewsWhileHeld(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	ttl := 150 * time.Millisecond
	locker := NewSubmissionLocker(newClient(mr), ttl)
	unlock, err := locker.Lock(context.Background(), 4)
	if err != nil {
		t.Fatalf("lock: %v", err)
	}

	// a long upsert has nearly used up the lease
	mr.SetTTL("quiz:submission-lock:4", time.Millisecond)
	deadline := time.Now().Add(time.Second)
	for mr.TTL("quiz:submission-lock:4") != ttl {
		if time.Now().After(deadline) {
			t.Fatalf("lease was not extended, ttl %v", mr.TTL("quiz:submission-lock:4"))
		}
		time.Sleep(10 * time.Millisecond)
	}

	unlock()
	unlock()
	if mr.Exists("quiz:submission-lock:4") {
		t.Fatalf("expected lock key removed after unlock")
	}
	time.Sleep(2 * ttl)
	if mr.Exists("quiz:submission-lock:4") {
		t.Fatalf("renewal must stop after unlock")
	}
}

func newClient(mr *miniredis.Miniredis) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
}
