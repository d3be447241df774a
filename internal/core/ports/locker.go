package ports

import (
	"context"
	"errors"
	"time"
)

// ErrLockUnavailable is returned when a lock could not be acquired within the
// bounded wait. Callers should retry with backoff.
var ErrLockUnavailable = errors.New("lock unavailable, try again later")

// Lease is a held lock on a key. It expires on its own after the TTL if the
// holder crashes without releasing it.
type Lease interface {
	// Key returns the locked key.
	Key() string
	// Token returns the fencing token of this lease.
	Token() string
	// Renew extends the lease TTL. It fails if the lease already expired.
	Renew(ttl time.Duration) error
	// Release frees the lock. Releasing an expired or already released lease
	// is a no-op.
	Release() error
}

// Locker is a named, TTL-based mutual exclusion primitive. Every operation
// that reads-then-writes wallet-scoped state must hold the lease for the
// wallet id for the whole read-validate-write sequence.
type Locker interface {
	// Acquire takes the lock on key, waiting at most maxWait. It returns
	// ErrLockUnavailable on timeout.
	Acquire(ctx context.Context, key string, ttl, maxWait time.Duration) (Lease, error)
}
