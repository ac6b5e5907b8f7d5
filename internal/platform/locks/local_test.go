package locks

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestLocalLocker(t *testing.T) {
	ctx := context.Background()
	l := NewLocalLocker()
	now := time.Unix(1_700_000_000, 0)
	l.now = func() time.Time { return now }

	key := CollectionKey("c1")
	lease, err := l.Acquire(ctx, key, time.Minute)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if lease.Key() != key {
		t.Fatalf("Key: got %q", lease.Key())
	}
	if _, err := l.Acquire(ctx, key, time.Minute); !errors.Is(err, ErrHeld) {
		t.Fatalf("second Acquire: expected ErrHeld, got %v", err)
	}
	if _, err := l.Acquire(ctx, CollectionKey("c2"), time.Minute); err != nil {
		t.Fatalf("other key: %v", err)
	}

	// expiry lets a new holder in, and the stale lease can no longer extend or release it
	now = now.Add(2 * time.Minute)
	second, err := l.Acquire(ctx, key, time.Minute)
	if err != nil {
		t.Fatalf("Acquire after expiry: %v", err)
	}
	if err := lease.Extend(ctx, time.Minute); !errors.Is(err, ErrHeld) {
		t.Fatalf("stale Extend: expected ErrHeld, got %v", err)
	}
	if err := lease.Release(ctx); err != nil {
		t.Fatalf("stale Release: %v", err)
	}
	if _, err := l.Acquire(ctx, key, time.Minute); !errors.Is(err, ErrHeld) {
		t.Fatalf("stale release must not free the key, got %v", err)
	}

	if err := second.Extend(ctx, time.Hour); err != nil {
		t.Fatalf("Extend: %v", err)
	}
	if err := second.Release(ctx); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if _, err := l.Acquire(ctx, key, time.Minute); err != nil {
		t.Fatalf("Acquire after release: %v", err)
	}
}
