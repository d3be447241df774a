package dbbadger

import (
	"context"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v3"
	"github.com/thanhpk/randstr"

	"github.com/copays/copayd/internal/core/ports"
)

const lockRetryInterval = 50 * time.Millisecond

type locker struct {
	db *badger.DB
}

// NewLocker opens a dedicated badger db holding the lock leases. A lease is
// an entry with a badger TTL: if the holder crashes without releasing it, the
// entry expires and the lock becomes acquirable again.
func NewLocker(dbDir string, logger badger.Logger) (ports.Locker, error) {
	opts := badger.DefaultOptions(dbDir)
	opts.Logger = logger

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("opening locks db: %w", err)
	}
	return &locker{db}, nil
}

func (l *locker) Acquire(
	ctx context.Context, key string, ttl, maxWait time.Duration,
) (ports.Lease, error) {
	token := randstr.Hex(16)
	deadline := time.Now().Add(maxWait)

	for {
		acquired, err := l.tryAcquire(key, token, ttl)
		if err != nil {
			return nil, err
		}
		if acquired {
			return &lease{db: l.db, key: key, token: token}, nil
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

func (l *locker) tryAcquire(key, token string, ttl time.Duration) (bool, error) {
	err := l.db.Update(func(txn *badger.Txn) error {
		_, err := txn.Get([]byte(key))
		if err == nil {
			return badger.ErrConflict
		}
		if err != badger.ErrKeyNotFound {
			return err
		}

		entry := badger.NewEntry([]byte(key), []byte(token)).WithTTL(ttl)
		return txn.SetEntry(entry)
	})
	if err != nil {
		// a concurrent writer or a live lease, either way the lock is taken
		if err == badger.ErrConflict {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

type lease struct {
	db    *badger.DB
	key   string
	token string
}

func (l *lease) Key() string {
	return l.key
}

func (l *lease) Token() string {
	return l.token
}

func (l *lease) Renew(ttl time.Duration) error {
	return l.db.Update(func(txn *badger.Txn) error {
		if err := l.checkOwnership(txn); err != nil {
			return err
		}
		entry := badger.NewEntry([]byte(l.key), []byte(l.token)).WithTTL(ttl)
		return txn.SetEntry(entry)
	})
}

func (l *lease) Release() error {
	err := l.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(l.key))
		if err != nil {
			return err
		}
		value, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		if string(value) != l.token {
			// expired and re-acquired by another holder, nothing to release
			return nil
		}
		return txn.Delete([]byte(l.key))
	})
	if err == badger.ErrKeyNotFound {
		// lease already expired
		return nil
	}
	return err
}

func (l *lease) checkOwnership(txn *badger.Txn) error {
	item, err := txn.Get([]byte(l.key))
	if err != nil {
		return err
	}
	value, err := item.ValueCopy(nil)
	if err != nil {
		return err
	}
	if string(value) != l.token {
		return fmt.Errorf("lease on %s is held by another owner", l.key)
	}
	return nil
}
