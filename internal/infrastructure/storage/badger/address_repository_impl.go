package dbbadger

import (
	"context"

	"github.com/timshannon/badgerhold/v4"

	"github.com/copays/copayd/internal/core/domain"
)

type addressRepositoryImpl struct {
	store *badgerhold.Store
}

func NewAddressRepositoryImpl(store *badgerhold.Store) domain.AddressRepository {
	return addressRepositoryImpl{store}
}

func (r addressRepositoryImpl) InsertAddress(
	ctx context.Context, address *domain.Address,
) error {
	return r.store.Insert(address.Key(), *address)
}

func (r addressRepositoryImpl) GetAddress(
	ctx context.Context, walletId string, index uint32,
) (*domain.Address, error) {
	key := (&domain.Address{WalletId: walletId, Index: index}).Key()

	var address domain.Address
	if err := r.store.Get(key, &address); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, domain.ErrAddressNotFound
		}
		return nil, err
	}
	return &address, nil
}

func (r addressRepositoryImpl) ListAddressesForWallet(
	ctx context.Context, walletId string,
) ([]*domain.Address, error) {
	query := badgerhold.Where("WalletId").Eq(walletId).SortBy("Index")

	var list []domain.Address
	if err := r.store.Find(&list, query); err != nil {
		return nil, err
	}

	addresses := make([]*domain.Address, 0, len(list))
	for i := range list {
		addresses = append(addresses, &list[i])
	}
	return addresses, nil
}
