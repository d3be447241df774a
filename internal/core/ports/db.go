package ports

import (
	"github.com/copays/copayd/internal/core/domain"
)

// RepoManager gives access to all the repositories of the storage layer from
// a single entrypoint.
type RepoManager interface {
	WalletRepository() domain.WalletRepository
	TxProposalRepository() domain.TxProposalRepository
	AddressRepository() domain.AddressRepository
	NotificationRepository() domain.NotificationRepository
	PreferencesRepository() domain.PreferencesRepository
	PushSubscriptionRepository() domain.PushSubscriptionRepository
	TxConfirmationSubRepository() domain.TxConfirmationSubRepository

	Close()
}
