package dbbadger

import (
	"context"

	"github.com/timshannon/badgerhold/v4"

	"github.com/copays/copayd/internal/core/domain"
)

type preferencesRepositoryImpl struct {
	store *badgerhold.Store
}

func NewPreferencesRepositoryImpl(store *badgerhold.Store) domain.PreferencesRepository {
	return preferencesRepositoryImpl{store}
}

func (r preferencesRepositoryImpl) UpsertPreferences(
	ctx context.Context, preferences *domain.Preferences,
) error {
	return r.store.Upsert(preferences.Key(), *preferences)
}

func (r preferencesRepositoryImpl) GetPreferences(
	ctx context.Context, walletId, copayerId string,
) (*domain.Preferences, error) {
	key := (&domain.Preferences{WalletId: walletId, CopayerId: copayerId}).Key()

	var preferences domain.Preferences
	if err := r.store.Get(key, &preferences); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, domain.ErrPreferencesNotFound
		}
		return nil, err
	}
	return &preferences, nil
}

func (r preferencesRepositoryImpl) ListPreferencesForWallet(
	ctx context.Context, walletId string,
) ([]*domain.Preferences, error) {
	query := badgerhold.Where("WalletId").Eq(walletId)

	var list []domain.Preferences
	if err := r.store.Find(&list, query); err != nil {
		return nil, err
	}

	preferences := make([]*domain.Preferences, 0, len(list))
	for i := range list {
		preferences = append(preferences, &list[i])
	}
	return preferences, nil
}

type pushSubscriptionRepositoryImpl struct {
	store *badgerhold.Store
}

func NewPushSubscriptionRepositoryImpl(store *badgerhold.Store) domain.PushSubscriptionRepository {
	return pushSubscriptionRepositoryImpl{store}
}

func (r pushSubscriptionRepositoryImpl) UpsertPushSubscription(
	ctx context.Context, sub *domain.PushSubscription,
) error {
	return r.store.Upsert(sub.Key(), *sub)
}

func (r pushSubscriptionRepositoryImpl) ListPushSubscriptionsForCopayer(
	ctx context.Context, copayerId string,
) ([]*domain.PushSubscription, error) {
	query := badgerhold.Where("CopayerId").Eq(copayerId)

	var list []domain.PushSubscription
	if err := r.store.Find(&list, query); err != nil {
		return nil, err
	}

	subs := make([]*domain.PushSubscription, 0, len(list))
	for i := range list {
		subs = append(subs, &list[i])
	}
	return subs, nil
}

func (r pushSubscriptionRepositoryImpl) DeletePushSubscription(
	ctx context.Context, copayerId, token string,
) error {
	key := (&domain.PushSubscription{CopayerId: copayerId, Token: token}).Key()

	if err := r.store.Delete(key, domain.PushSubscription{}); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil
		}
		return err
	}
	return nil
}

type txConfirmationSubRepositoryImpl struct {
	store *badgerhold.Store
}

func NewTxConfirmationSubRepositoryImpl(store *badgerhold.Store) domain.TxConfirmationSubRepository {
	return txConfirmationSubRepositoryImpl{store}
}

func (r txConfirmationSubRepositoryImpl) UpsertTxConfirmationSub(
	ctx context.Context, sub *domain.TxConfirmationSub,
) error {
	return r.store.Upsert(sub.Key(), *sub)
}

func (r txConfirmationSubRepositoryImpl) ListActiveTxConfirmationSubs(
	ctx context.Context,
) ([]*domain.TxConfirmationSub, error) {
	query := badgerhold.Where("Active").Eq(true)

	var list []domain.TxConfirmationSub
	if err := r.store.Find(&list, query); err != nil {
		return nil, err
	}

	subs := make([]*domain.TxConfirmationSub, 0, len(list))
	for i := range list {
		subs = append(subs, &list[i])
	}
	return subs, nil
}

func (r txConfirmationSubRepositoryImpl) DeactivateTxConfirmationSub(
	ctx context.Context, copayerId, txid string,
) error {
	key := (&domain.TxConfirmationSub{CopayerId: copayerId, TxId: txid}).Key()

	var sub domain.TxConfirmationSub
	if err := r.store.Get(key, &sub); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil
		}
		return err
	}

	sub.Active = false
	return r.store.Update(key, sub)
}
