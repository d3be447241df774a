package inmemory

import (
	"context"
	"sort"
	"sync"

	"github.com/copays/copayd/internal/core/domain"
)

type addressRepositoryImpl struct {
	addresses map[string]domain.Address
	mtx       sync.RWMutex
}

func (r *addressRepositoryImpl) InsertAddress(
	ctx context.Context, address *domain.Address,
) error {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	r.addresses[address.Key()] = *address
	return nil
}

func (r *addressRepositoryImpl) GetAddress(
	ctx context.Context, walletId string, index uint32,
) (*domain.Address, error) {
	r.mtx.RLock()
	defer r.mtx.RUnlock()

	key := (&domain.Address{WalletId: walletId, Index: index}).Key()
	address, ok := r.addresses[key]
	if !ok {
		return nil, domain.ErrAddressNotFound
	}
	return &address, nil
}

func (r *addressRepositoryImpl) ListAddressesForWallet(
	ctx context.Context, walletId string,
) ([]*domain.Address, error) {
	r.mtx.RLock()
	defer r.mtx.RUnlock()

	addresses := make([]*domain.Address, 0)
	for key := range r.addresses {
		address := r.addresses[key]
		if address.WalletId == walletId {
			addresses = append(addresses, &address)
		}
	}
	sort.Slice(addresses, func(i, j int) bool {
		return addresses[i].Index < addresses[j].Index
	})
	return addresses, nil
}

type notificationRepositoryImpl struct {
	notifications map[string]domain.Notification
	mtx           sync.RWMutex
}

func (r *notificationRepositoryImpl) InsertNotification(
	ctx context.Context, notification *domain.Notification,
) error {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	r.notifications[notification.Id] = *notification
	return nil
}

func (r *notificationRepositoryImpl) ListNotificationsForWallet(
	ctx context.Context, walletId string,
) ([]*domain.Notification, error) {
	r.mtx.RLock()
	defer r.mtx.RUnlock()

	notifications := make([]*domain.Notification, 0)
	for id := range r.notifications {
		notification := r.notifications[id]
		if notification.WalletId == walletId {
			notifications = append(notifications, &notification)
		}
	}
	sort.Slice(notifications, func(i, j int) bool {
		return notifications[i].CreatedAt < notifications[j].CreatedAt
	})
	return notifications, nil
}

type preferencesRepositoryImpl struct {
	preferences map[string]domain.Preferences
	mtx         sync.RWMutex
}

func (r *preferencesRepositoryImpl) UpsertPreferences(
	ctx context.Context, preferences *domain.Preferences,
) error {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	r.preferences[preferences.Key()] = *preferences
	return nil
}

func (r *preferencesRepositoryImpl) GetPreferences(
	ctx context.Context, walletId, copayerId string,
) (*domain.Preferences, error) {
	r.mtx.RLock()
	defer r.mtx.RUnlock()

	key := (&domain.Preferences{WalletId: walletId, CopayerId: copayerId}).Key()
	preferences, ok := r.preferences[key]
	if !ok {
		return nil, domain.ErrPreferencesNotFound
	}
	return &preferences, nil
}

func (r *preferencesRepositoryImpl) ListPreferencesForWallet(
	ctx context.Context, walletId string,
) ([]*domain.Preferences, error) {
	r.mtx.RLock()
	defer r.mtx.RUnlock()

	preferences := make([]*domain.Preferences, 0)
	for key := range r.preferences {
		p := r.preferences[key]
		if p.WalletId == walletId {
			preferences = append(preferences, &p)
		}
	}
	return preferences, nil
}

type pushSubscriptionRepositoryImpl struct {
	subs map[string]domain.PushSubscription
	mtx  sync.RWMutex
}

func (r *pushSubscriptionRepositoryImpl) UpsertPushSubscription(
	ctx context.Context, sub *domain.PushSubscription,
) error {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	r.subs[sub.Key()] = *sub
	return nil
}

func (r *pushSubscriptionRepositoryImpl) ListPushSubscriptionsForCopayer(
	ctx context.Context, copayerId string,
) ([]*domain.PushSubscription, error) {
	r.mtx.RLock()
	defer r.mtx.RUnlock()

	subs := make([]*domain.PushSubscription, 0)
	for key := range r.subs {
		sub := r.subs[key]
		if sub.CopayerId == copayerId {
			subs = append(subs, &sub)
		}
	}
	return subs, nil
}

func (r *pushSubscriptionRepositoryImpl) DeletePushSubscription(
	ctx context.Context, copayerId, token string,
) error {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	key := (&domain.PushSubscription{CopayerId: copayerId, Token: token}).Key()
	delete(r.subs, key)
	return nil
}

type txConfirmationSubRepositoryImpl struct {
	subs map[string]domain.TxConfirmationSub
	mtx  sync.RWMutex
}

func (r *txConfirmationSubRepositoryImpl) UpsertTxConfirmationSub(
	ctx context.Context, sub *domain.TxConfirmationSub,
) error {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	r.subs[sub.Key()] = *sub
	return nil
}

func (r *txConfirmationSubRepositoryImpl) ListActiveTxConfirmationSubs(
	ctx context.Context,
) ([]*domain.TxConfirmationSub, error) {
	r.mtx.RLock()
	defer r.mtx.RUnlock()

	subs := make([]*domain.TxConfirmationSub, 0)
	for key := range r.subs {
		sub := r.subs[key]
		if sub.Active {
			subs = append(subs, &sub)
		}
	}
	return subs, nil
}

func (r *txConfirmationSubRepositoryImpl) DeactivateTxConfirmationSub(
	ctx context.Context, copayerId, txid string,
) error {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	key := (&domain.TxConfirmationSub{CopayerId: copayerId, TxId: txid}).Key()
	sub, ok := r.subs[key]
	if !ok {
		return nil
	}
	sub.Active = false
	r.subs[key] = sub
	return nil
}
