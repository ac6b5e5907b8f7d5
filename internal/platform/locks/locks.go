package locks

import (
	"context"
	"errors"
	"time"
)

// ErrHeld is returned when another holder owns the key.
var ErrHeld = errors.New("locks: key is held")

type Lease interface {
	Key() string
	// Extend pushes the expiry out by ttl; it fails with ErrHeld if the lease was lost.
	Extend(ctx context.Context, ttl time.Duration) error
	Release(ctx context.Context) error
}

type Locker interface {
	// Acquire does not wait; it returns ErrHeld immediately when the key is taken.
	Acquire(ctx context.Context, key string, ttl time.Duration) (Lease, error)
}

func CollectionKey(collectionID string) string {
	return "hermes:lock:collection:" + collectionID
}
