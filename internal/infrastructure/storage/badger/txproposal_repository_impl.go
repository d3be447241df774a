package dbbadger

import (
	"context"

	"github.com/timshannon/badgerhold/v4"

	"github.com/copays/copayd/internal/core/domain"
)

type txProposalRepositoryImpl struct {
	store *badgerhold.Store
}

func NewTxProposalRepositoryImpl(store *badgerhold.Store) domain.TxProposalRepository {
	return txProposalRepositoryImpl{store}
}

func (r txProposalRepositoryImpl) InsertTxProposal(
	ctx context.Context, txp *domain.TxProposal,
) error {
	return r.store.Insert(txp.Id, *txp)
}

func (r txProposalRepositoryImpl) GetTxProposal(
	ctx context.Context, txpId string,
) (*domain.TxProposal, error) {
	var txp domain.TxProposal
	if err := r.store.Get(txpId, &txp); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, domain.ErrTxProposalNotFound
		}
		return nil, err
	}
	return &txp, nil
}

func (r txProposalRepositoryImpl) UpdateTxProposal(
	ctx context.Context,
	txpId string,
	updateFn func(txp *domain.TxProposal) (*domain.TxProposal, error),
) error {
	txp, err := r.GetTxProposal(ctx, txpId)
	if err != nil {
		return err
	}

	updated, err := updateFn(txp)
	if err != nil {
		return err
	}

	return r.store.Update(txpId, *updated)
}

func (r txProposalRepositoryImpl) ListTxProposalsForWallet(
	ctx context.Context, walletId string,
) ([]*domain.TxProposal, error) {
	query := badgerhold.Where("WalletId").Eq(walletId).SortBy("CreatedAt").Reverse()

	var list []domain.TxProposal
	if err := r.store.Find(&list, query); err != nil {
		return nil, err
	}

	txps := make([]*domain.TxProposal, 0, len(list))
	for i := range list {
		txps = append(txps, &list[i])
	}
	return txps, nil
}
