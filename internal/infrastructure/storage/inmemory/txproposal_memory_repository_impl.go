package inmemory

import (
	"context"
	"sort"
	"sync"

	"github.com/copays/copayd/internal/core/domain"
)

type txProposalRepositoryImpl struct {
	txps map[string]domain.TxProposal
	mtx  sync.RWMutex
}

func (r *txProposalRepositoryImpl) InsertTxProposal(
	ctx context.Context, txp *domain.TxProposal,
) error {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	r.txps[txp.Id] = *txp
	return nil
}

func (r *txProposalRepositoryImpl) GetTxProposal(
	ctx context.Context, txpId string,
) (*domain.TxProposal, error) {
	r.mtx.RLock()
	defer r.mtx.RUnlock()

	txp, ok := r.txps[txpId]
	if !ok {
		return nil, domain.ErrTxProposalNotFound
	}
	txp.Actions = append([]domain.TxProposalAction(nil), txp.Actions...)
	return &txp, nil
}

func (r *txProposalRepositoryImpl) UpdateTxProposal(
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

	r.mtx.Lock()
	defer r.mtx.Unlock()
	r.txps[txpId] = *updated
	return nil
}

func (r *txProposalRepositoryImpl) ListTxProposalsForWallet(
	ctx context.Context, walletId string,
) ([]*domain.TxProposal, error) {
	r.mtx.RLock()
	defer r.mtx.RUnlock()

	txps := make([]*domain.TxProposal, 0)
	for id := range r.txps {
		txp := r.txps[id]
		if txp.WalletId == walletId {
			txps = append(txps, &txp)
		}
	}
	sort.Slice(txps, func(i, j int) bool {
		return txps[i].CreatedAt > txps[j].CreatedAt
	})
	return txps, nil
}
