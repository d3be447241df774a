package dbbadger

import (
	"fmt"
	"path/filepath"

	"github.com/dgraph-io/badger/v3"
	"github.com/dgraph-io/badger/v3/options"
	"github.com/timshannon/badgerhold/v4"

	"github.com/copays/copayd/internal/core/domain"
	"github.com/copays/copayd/internal/core/ports"
)

type repoManager struct {
	store *badgerhold.Store

	walletRepository            domain.WalletRepository
	txProposalRepository        domain.TxProposalRepository
	addressRepository           domain.AddressRepository
	notificationRepository      domain.NotificationRepository
	preferencesRepository       domain.PreferencesRepository
	pushSubscriptionRepository  domain.PushSubscriptionRepository
	txConfirmationSubRepository domain.TxConfirmationSubRepository
}

// NewRepoManager opens (or creates if not existing) the badger store on disk
// and gives access to all the repositories backed by it.
func NewRepoManager(baseDbDir string, logger badger.Logger) (ports.RepoManager, error) {
	store, err := createDb(filepath.Join(baseDbDir, "wallets"), logger)
	if err != nil {
		return nil, fmt.Errorf("opening wallets db: %w", err)
	}

	return &repoManager{
		store:                       store,
		walletRepository:            NewWalletRepositoryImpl(store),
		txProposalRepository:        NewTxProposalRepositoryImpl(store),
		addressRepository:           NewAddressRepositoryImpl(store),
		notificationRepository:      NewNotificationRepositoryImpl(store),
		preferencesRepository:       NewPreferencesRepositoryImpl(store),
		pushSubscriptionRepository:  NewPushSubscriptionRepositoryImpl(store),
		txConfirmationSubRepository: NewTxConfirmationSubRepositoryImpl(store),
	}, nil
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

func (r *repoManager) Close() {
	r.store.Close()
}

func createDb(dbDir string, logger badger.Logger) (*badgerhold.Store, error) {
	opts := badger.DefaultOptions(dbDir)
	opts.Logger = logger
	opts.Compression = options.ZSTD

	return badgerhold.Open(badgerhold.Options{
		Encoder:          badgerhold.DefaultEncode,
		Decoder:          badgerhold.DefaultDecode,
		SequenceBandwith: 100,
		Options:          opts,
	})
}
