package application

import (
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/copays/copayd/internal/core/ports"
)

const (
	// WalletLockTTL is the lease duration of the per-wallet lock. It must
	// outlive the worst-case storage latency of a read-validate-write
	// sequence. An expired lease makes the wallet acquirable again, so a
	// crashed mutation never wedges a wallet permanently.
	WalletLockTTL = 10 * time.Second
	// WalletLockMaxWait is the bounded wait on lock acquisition before giving
	// up with ErrLockUnavailable.
	WalletLockMaxWait = 5 * time.Second
	// BroadcastTimeout bounds the in-flight broadcast call. Broadcast is not
	// idempotent, on timeout the proposal stays accepted and the caller must
	// check remote state before resubmitting.
	BroadcastTimeout = 15 * time.Second
)

// releaseLease frees a held wallet lock. A failed release is only logged, the
// lease expires by TTL anyway and the committed transition must not be undone.
func releaseLease(lease ports.Lease) {
	if err := lease.Release(); err != nil {
		log.WithError(err).Warnf("failed to release lock on wallet %s", lease.Key())
	}
}
