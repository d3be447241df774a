package inmemory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/thanhpk/randstr"

	"github.com/copays/copayd/internal/core/ports"
)

const lockRetryInterval = 10 * time.Millisecond

type lockEntry struct {
	token  string
	expiry time.Time
}

type locker struct {
	locks map[string]lockEntry
	mtx   sync.Mutex
}

// NewLocker returns a volatile, process-local implementation of the lock
// contract with the same TTL lease semantics as the persistent one.
func NewLocker() ports.Locker {
	return &locker{locks: map[string]lockEntry{}}
}

func (l *locker) Acquire(
	ctx context.Context, key string, ttl, maxWait time.Duration,
) (ports.Lease, error) {
	token := randstr.Hex(16)
	deadline := time.Now().Add(maxWait)

	for {
		if l.tryAcquire(key, token, ttl) {
			return &lease{locker: l, key: key, token: token}, nil
		}

		if time.Now().After(deadline) {
			return nil, ports.ErrLockUnavailable
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(lockRetryInterval):
		}
	}
}

func (l *locker) tryAcquire(key, token string, ttl time.Duration) bool {
	l.mtx.Lock()
	defer l.mtx.Unlock()

	if entry, ok := l.locks[key]; ok && time.Now().Before(entry.expiry) {
		return false
	}
	l.locks[key] = lockEntry{token: token, expiry: time.Now().Add(ttl)}
	return true
}

type lease struct {
	locker *locker
	key    string
	token  string
}

func (l *lease) Key() string {
	return l.key
}

func (l *lease) Token() string {
	return l.token
}

func (l *lease) Renew(ttl time.Duration) error {
	l.locker.mtx.Lock()
	defer l.locker.mtx.Unlock()

	entry, ok := l.locker.locks[l.key]
	if !ok || entry.token != l.token {
		return fmt.Errorf("lease on %s is held by another owner", l.key)
	}
	entry.expiry = time.Now().Add(ttl)
	l.locker.locks[l.key] = entry
	return nil
}

func (l *lease) Release() error {
	l.locker.mtx.Lock()
	defer l.locker.mtx.Unlock()

	entry, ok := l.locker.locks[l.key]
	if !ok {
		return nil
	}
	if entry.token != l.token {
		return nil
	}
	delete(l.locker.locks, l.key)
	return nil
}
