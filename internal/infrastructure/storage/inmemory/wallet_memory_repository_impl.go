package inmemory

import (
	"context"
	"sync"

	"github.com/copays/copayd/internal/core/domain"
)

type walletRepositoryImpl struct {
	wallets map[string]domain.Wallet
	mtx     sync.RWMutex
}

func (r *walletRepositoryImpl) InsertWallet(
	ctx context.Context, wallet *domain.Wallet,
) error {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	if _, ok := r.wallets[wallet.Id]; ok {
		return domain.ErrWalletAlreadyExists
	}
	r.wallets[wallet.Id] = *wallet
	return nil
}

func (r *walletRepositoryImpl) GetWallet(
	ctx context.Context, walletId string,
) (*domain.Wallet, error) {
	r.mtx.RLock()
	defer r.mtx.RUnlock()

	wallet, ok := r.wallets[walletId]
	if !ok {
		return nil, domain.ErrWalletNotFound
	}
	wallet.Copayers = append([]domain.Copayer(nil), wallet.Copayers...)
	return &wallet, nil
}

func (r *walletRepositoryImpl) ListWallets(
	ctx context.Context,
) ([]*domain.Wallet, error) {
	r.mtx.RLock()
	defer r.mtx.RUnlock()

	wallets := make([]*domain.Wallet, 0, len(r.wallets))
	for id := range r.wallets {
		wallet := r.wallets[id]
		wallet.Copayers = append([]domain.Copayer(nil), wallet.Copayers...)
		wallets = append(wallets, &wallet)
	}
	return wallets, nil
}

func (r *walletRepositoryImpl) UpdateWallet(
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

	r.mtx.Lock()
	defer r.mtx.Unlock()
	r.wallets[walletId] = *updated
	return nil
}
