package dbbadger_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/copays/copayd/internal/core/ports"
	dbbadger "github.com/copays/copayd/internal/infrastructure/storage/badger"
)

func TestLockerAcquireRelease(t *testing.T) {
	locker := newTestLocker(t)
	ctx := context.Background()

	lease, err := locker.Acquire(ctx, "walletid", time.Second, 100*time.Millisecond)
	require.NoError(t, err)
	require.Equal(t, "walletid", lease.Key())
	require.NotEmpty(t, lease.Token())

	// a second holder cannot acquire within its wait budget
	_, err = locker.Acquire(ctx, "walletid", time.Second, 150*time.Millisecond)
	require.EqualError(t, err, ports.ErrLockUnavailable.Error())

	// an unrelated key is unaffected
	other, err := locker.Acquire(ctx, "otherwallet", time.Second, 100*time.Millisecond)
	require.NoError(t, err)
	require.NoError(t, other.Release())

	require.NoError(t, lease.Release())

	lease, err = locker.Acquire(ctx, "walletid", time.Second, 100*time.Millisecond)
	require.NoError(t, err)
	require.NoError(t, lease.Release())
}

func TestLockerLeaseExpiry(t *testing.T) {
	locker := newTestLocker(t)
	ctx := context.Background()

	lease, err := locker.Acquire(ctx, "walletid", 300*time.Millisecond, 100*time.Millisecond)
	require.NoError(t, err)

	// crash simulation: the lease is never released but expires on its own
	next, err := locker.Acquire(ctx, "walletid", time.Second, 2*time.Second)
	require.NoError(t, err)
	require.NotEqual(t, lease.Token(), next.Token())

	// releasing the stale lease is a no-op, it does not steal the new one
	require.NoError(t, lease.Release())
	_, err = locker.Acquire(ctx, "walletid", time.Second, 150*time.Millisecond)
	require.EqualError(t, err, ports.ErrLockUnavailable.Error())

	require.NoError(t, next.Release())
}

func TestLockerRenew(t *testing.T) {
	locker := newTestLocker(t)
	ctx := context.Background()

	lease, err := locker.Acquire(ctx, "walletid", 300*time.Millisecond, 100*time.Millisecond)
	require.NoError(t, err)

	time.Sleep(200 * time.Millisecond)
	require.NoError(t, lease.Renew(time.Second))

	time.Sleep(200 * time.Millisecond)
	_, err = locker.Acquire(ctx, "walletid", time.Second, 100*time.Millisecond)
	require.EqualError(t, err, ports.ErrLockUnavailable.Error())

	require.NoError(t, lease.Release())
}

func TestLockerContextCancellation(t *testing.T) {
	locker := newTestLocker(t)

	lease, err := locker.Acquire(
		context.Background(), "walletid", time.Second, 100*time.Millisecond,
	)
	require.NoError(t, err)
	defer lease.Release()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(100 * time.Millisecond)
		cancel()
	}()

	_, err = locker.Acquire(ctx, "walletid", time.Second, 5*time.Second)
	require.ErrorIs(t, err, context.Canceled)
}

func newTestLocker(t *testing.T) ports.Locker {
	t.Helper()

	locker, err := dbbadger.NewLocker(t.TempDir(), nil)
	require.NoError(t, err)
	return locker
}
