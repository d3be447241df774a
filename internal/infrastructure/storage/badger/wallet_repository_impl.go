package dbbadger

import (
	"context"

	"github.com/timshannon/badgerhold/v4"

	"github.com/copays/copayd/internal/core/domain"
)

type walletRepositoryImpl struct {
	store *badgerhold.Store
}

func NewWalletRepositoryImpl(store *badgerhold.Store) domain.WalletRepository {
	return walletRepositoryImpl{store}
}

func (r walletRepositoryImpl) InsertWallet(
	ctx context.Context, wallet *domain.Wallet,
) error {
	if err := r.store.Insert(wallet.Id, *wallet); err != nil {
		if err == badgerhold.ErrKeyExists {
			return domain.ErrWalletAlreadyExists
		}
		return err
	}
	return nil
}

func (r walletRepositoryImpl) GetWallet(
	ctx context.Context, walletId string,
) (*domain.Wallet, error) {
	var wallet domain.Wallet
	if err := r.store.Get(walletId, &wallet); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, domain.ErrWalletNotFound
		}
		return nil, err
	}
	return &wallet, nil
}

func (r walletRepositoryImpl) ListWallets(
	ctx context.Context,
) ([]*domain.Wallet, error) {
	var list []domain.Wallet
	if err := r.store.Find(&list, nil); err != nil {
		return nil, err
	}

	wallets := make([]*domain.Wallet, 0, len(list))
	for i := range list {
		wallets = append(wallets, &list[i])
	}
	return wallets, nil
}

func (r walletRepositoryImpl) UpdateWallet(
	ctx context.Context,
	walletId string,
	updateFn func(w *domain.Wallet) (*domain.Wallet, error),
) error {
	wallet, err := r.GetWallet(ctx, walletId)
	if err != nil {
		return err
	}

	updated, err := updateFn(wallet)
	if err != nil {
		return err
	}

	return r.store.Update(walletId, *updated)
}
