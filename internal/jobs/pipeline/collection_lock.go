package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	jobrt "github.com/yungbote/hermes-backend/internal/jobs/runtime"
	"github.com/yungbote/hermes-backend/internal/platform/envutil"
	"github.com/yungbote/hermes-backend/internal/platform/locks"
)

// ErrCollectionBusy means another run holds the collection.
var ErrCollectionBusy = errors.New("collection is busy with another run")

func LockTTLFromEnv() time.Duration {
	return envutil.Duration("COLLECTION_LOCK_TTL", 10*time.Minute)
}

// WithCollectionLock runs fn while holding the run's collection lock. The lease
// is extended every ttl/3; fn's context is canceled if the lease is lost.
func WithCollectionLock(jc *jobrt.Context, locker locks.Locker, ttl time.Duration, fn func(ctx context.Context) error) error {
	if locker == nil {
		return fn(jc.Ctx)
	}
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	key := locks.CollectionKey(jc.Run.CollectionID.String())
	lease, err := locker.Acquire(jc.Ctx, key, ttl)
	if errors.Is(err, locks.ErrHeld) {
		return ErrCollectionBusy
	}
	if err != nil {
		return fmt.Errorf("acquire collection lock: %w", err)
	}
	defer func() {
		if err := lease.Release(context.WithoutCancel(jc.Ctx)); err != nil && !errors.Is(err, locks.ErrHeld) {
			jc.Log.Warn("release collection lock failed", "key", key, "error", err)
		}
	}()

	ctx, cancel := context.WithCancel(jc.Ctx)
	defer cancel()
	go func() {
		t := time.NewTicker(ttl / 3)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				if err := lease.Extend(ctx, ttl); err != nil {
					if ctx.Err() != nil {
						return
					}
					jc.Log.Warn("collection lock lost", "key", key, "error", err)
					cancel()
					return
				}
			}
		}
	}()
	return fn(ctx)
}
