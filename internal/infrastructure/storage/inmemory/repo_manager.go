package inmemory

import (
	"github.com/copays/copayd/internal/core/domain"
	"github.com/copays/copayd/internal/core/ports"
)

type repoManager struct {
	walletRepository            domain.WalletRepository
	txProposalRepository        domain.TxProposalRepository
	addressRepository           domain.AddressRepository
	notificationRepository      domain.NotificationRepository
	preferencesRepository       domain.PreferencesRepository
	pushSubscriptionRepository  domain.PushSubscriptionRepository
	txConfirmationSubRepository domain.TxConfirmationSubRepository
}

// NewRepoManager returns a volatile implementation of the storage contract,
// useful for development and tests.
func NewRepoManager() ports.RepoManager {
	return &repoManager{
		walletRepository:            &walletRepositoryImpl{wallets: map[string]domain.Wallet{}},
		txProposalRepository:        &txProposalRepositoryImpl{txps: map[string]domain.TxProposal{}},
		addressRepository:           &addressRepositoryImpl{addresses: map[string]domain.Address{}},
		notificationRepository:      &notificationRepositoryImpl{notifications: map[string]domain.Notification{}},
		preferencesRepository:       &preferencesRepositoryImpl{preferences: map[string]domain.Preferences{}},
		pushSubscriptionRepository:  &pushSubscriptionRepositoryImpl{subs: map[string]domain.PushSubscription{}},
		txConfirmationSubRepository: &txConfirmationSubRepositoryImpl{subs: map[string]domain.TxConfirmationSub{}},
	}
}

func (r *repoManager) WalletRepository() domain.WalletRepository {
	return r.walletRepository
}

func (r *repoManager) TxProposalRepository() domain.TxProposalRepository {
	return r.txProposalRepository
}

func (r *repoManager) AddressRepository() domain.AddressRepository {
	return r.addressRepository
}

func (r *repoManager) NotificationRepository() domain.NotificationRepository {
	return r.notificationRepository
}

func (r *repoManager) PreferencesRepository() domain.PreferencesRepository {
	return r.preferencesRepository
}

func (r *repoManager) PushSubscriptionRepository() domain.PushSubscriptionRepository {
	return r.pushSubscriptionRepository
}

func (r *repoManager) TxConfirmationSubRepository() domain.TxConfirmationSubRepository {
	return r.txConfirmationSubRepository
}

func (r *repoManager) Close() {}
