package locks

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

type localEntry struct {
	token   string
	expires time.Time
}

// LocalLocker is an in-process Locker for single-replica deployments and tests.
type LocalLocker struct {
	mu   sync.Mutex
	held map[string]localEntry
	now  func() time.Time
}

func NewLocalLocker() *LocalLocker {
	return &LocalLocker{held: map[string]localEntry{}, now: time.Now}
}

func (l *LocalLocker) Acquire(_ context.Context, key string, ttl time.Duration) (Lease, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	if e, ok := l.held[key]; ok && now.Before(e.expires) {
		return nil, ErrHeld
	}
	token := uuid.NewString()
	l.held[key] = localEntry{token: token, expires: now.Add(ttl)}
	return &localLease{locker: l, key: key, token: token}, nil
}

type localLease struct {
	locker *LocalLocker
	key    string
	token  string
}

func (r *localLease) Key() string { return r.key }

func (r *localLease) Extend(_ context.Context, ttl time.Duration) error {
	r.locker.mu.Lock()
	defer r.locker.mu.Unlock()
	e, ok := r.locker.held[r.key]
	if !ok || e.token != r.token {
		return ErrHeld
	}
	e.expires = r.locker.now().Add(ttl)
	r.locker.held[r.key] = e
	return nil
}

func (r *localLease) Release(_ context.Context) error {
	r.locker.mu.Lock()
	defer r.locker.mu.Unlock()
	if e, ok := r.locker.held[r.key]; ok && e.token == r.token {
		delete(r.locker.held, r.key)
	}
	return nil
}
