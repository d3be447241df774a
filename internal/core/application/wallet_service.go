package application

import (
	"context"

	log "github.com/sirupsen/logrus"

	"github.com/copays/copayd/internal/core/domain"
	"github.com/copays/copayd/internal/core/ports"
)

// WalletService coordinates the wallet and copayer lifecycle: creation, join,
// address derivation and the lock-free per-copayer preference records.
type WalletService interface {
	CreateWallet(
		ctx context.Context,
		name, coin, network string, m, n int, singleAddress bool,
	) (*domain.Wallet, error)
	JoinWallet(
		ctx context.Context,
		walletId, name, xpub, requestPubKey string,
	) (*domain.Copayer, error)
	CreateAddress(ctx context.Context, walletId string) (*domain.Address, error)
	GetWallet(ctx context.Context, walletId string) (*domain.Wallet, error)
	GetWalletStatus(ctx context.Context, walletId string) (*WalletStatus, error)
	ListAddresses(ctx context.Context, walletId string) ([]*domain.Address, error)
	UpdatePreferences(ctx context.Context, preferences *domain.Preferences) error
	GetPreferences(ctx context.Context, walletId, copayerId string) (*domain.Preferences, error)
	SubscribePush(ctx context.Context, sub *domain.PushSubscription) error
	UnsubscribePush(ctx context.Context, copayerId, token string) error
}

// WalletStatus is the composite read-only view of a wallet returned by
// GetWalletStatus: the wallet record, its pending proposals and the spendable
// balance of its derived addresses.
type WalletStatus struct {
	Wallet             *domain.Wallet
	PendingTxProposals []*domain.TxProposal
	Balance            uint64
}

type walletService struct {
	repoManager   ports.RepoManager
	chainRegistry ports.ChainRegistry
	locker        ports.Locker
	notifier      *notifier
}

func NewWalletService(
	repoManager ports.RepoManager,
	chainRegistry ports.ChainRegistry,
	locker ports.Locker,
	pubsub ports.PubSub,
) WalletService {
	return &walletService{
		repoManager:   repoManager,
		chainRegistry: chainRegistry,
		locker:        locker,
		notifier:      newNotifier(pubsub, repoManager.NotificationRepository()),
	}
}

// CreateWallet validates the m-of-n policy and persists a new pending wallet
// with no copayers. No lock is needed, there is no existing state to race
// with; id collisions are caught by the storage uniqueness constraint.
func (s *walletService) CreateWallet(
	ctx context.Context,
	name, coin, network string, m, n int, singleAddress bool,
) (*domain.Wallet, error) {
	if _, err := s.chainRegistry.Adapter(coin); err != nil {
		return nil, err
	}

	wallet, err := domain.NewWallet(name, coin, network, m, n, singleAddress)
	if err != nil {
		return nil, err
	}

	if err := s.repoManager.WalletRepository().InsertWallet(ctx, wallet); err != nil {
		return nil, err
	}

	log.Infof("created %d-of-%d %s wallet %s", m, n, coin, wallet.Id)
	return wallet, nil
}

// JoinWallet appends a copayer to a pending wallet under the wallet lock.
// Re-joining with the same key material is detected through the deterministic
// copayer id. The last join completes the wallet.
func (s *walletService) JoinWallet(
	ctx context.Context,
	walletId, name, xpub, requestPubKey string,
) (*domain.Copayer, error) {
	lease, err := s.locker.Acquire(ctx, walletId, WalletLockTTL, WalletLockMaxWait)
	if err != nil {
		return nil, err
	}

	var copayer *domain.Copayer
	notifications := make([]*domain.Notification, 0, 2)

	err = s.repoManager.WalletRepository().UpdateWallet(
		ctx, walletId,
		func(w *domain.Wallet) (*domain.Wallet, error) {
			c := domain.NewCopayer(w, name, xpub, requestPubKey)
			if err := w.AddCopayer(c); err != nil {
				return nil, err
			}
			copayer = c

			notifications = append(notifications, domain.NewNotification(
				domain.NotificationNewCopayer, w.Id, c.Id,
				map[string]interface{}{
					"walletId":    w.Id,
					"copayerId":   c.Id,
					"copayerName": c.Name,
				},
			))
			if w.IsComplete() {
				notifications = append(notifications, domain.NewNotification(
					domain.NotificationWalletComplete, w.Id, w.Creator().Id,
					map[string]interface{}{"walletId": w.Id},
				))
			}
			return w, nil
		},
	)
	if err == nil {
		s.notifier.store(ctx, notifications)
	}
	releaseLease(lease)

	if err != nil {
		return nil, err
	}

	s.notifier.publish(notifications)

	log.Debugf("copayer %s joined wallet %s", copayer.Id, walletId)
	return copayer, nil
}

// CreateAddress derives the next wallet address under the wallet lock. The
// derivation counter is advanced and committed with the wallet before the
// address record is appended, so an index is never handed out twice even if
// the append fails midway.
func (s *walletService) CreateAddress(
	ctx context.Context, walletId string,
) (*domain.Address, error) {
	lease, err := s.locker.Acquire(ctx, walletId, WalletLockTTL, WalletLockMaxWait)
	if err != nil {
		return nil, err
	}
	defer releaseLease(lease)

	addressRepo := s.repoManager.AddressRepository()

	var address *domain.Address
	derived := false
	err = s.repoManager.WalletRepository().UpdateWallet(
		ctx, walletId,
		func(w *domain.Wallet) (*domain.Wallet, error) {
			if !w.IsComplete() {
				return nil, domain.ErrWalletNotComplete
			}

			if w.SingleAddress && w.NextAddressIndex > 0 {
				existing, err := addressRepo.GetAddress(ctx, w.Id, 0)
				if err != nil {
					return nil, err
				}
				address = existing
				return w, nil
			}

			adapter, err := s.chainRegistry.Adapter(w.Coin)
			if err != nil {
				return nil, err
			}

			addr, err := adapter.DeriveAddress(w, w.AdvanceAddressIndex())
			if err != nil {
				return nil, err
			}
			address = addr
			derived = true
			return w, nil
		},
	)
	if err != nil {
		return nil, err
	}

	if derived {
		if err := addressRepo.InsertAddress(ctx, address); err != nil {
			return nil, err
		}
	}
	return address, nil
}

// GetWallet returns a consistent snapshot of the wallet without taking the
// lock.
func (s *walletService) GetWallet(
	ctx context.Context, walletId string,
) (*domain.Wallet, error) {
	return s.repoManager.WalletRepository().GetWallet(ctx, walletId)
}

// GetWalletStatus assembles the wallet record, its pending proposals and the
// balance reported by the blockchain state collaborator for its addresses.
// No lock is taken, the returned view is a point-in-time snapshot.
func (s *walletService) GetWalletStatus(
	ctx context.Context, walletId string,
) (*WalletStatus, error) {
	wallet, err := s.repoManager.WalletRepository().GetWallet(ctx, walletId)
	if err != nil {
		return nil, err
	}

	proposals, err := s.repoManager.TxProposalRepository().ListTxProposalsForWallet(
		ctx, walletId,
	)
	if err != nil {
		return nil, err
	}
	pending := make([]*domain.TxProposal, 0, len(proposals))
	for _, txp := range proposals {
		if txp.IsPending() {
			pending = append(pending, txp)
		}
	}

	status := &WalletStatus{Wallet: wallet, PendingTxProposals: pending}

	addresses, err := s.repoManager.AddressRepository().ListAddressesForWallet(ctx, walletId)
	if err != nil {
		return nil, err
	}
	if len(addresses) > 0 {
		adapter, err := s.chainRegistry.Adapter(wallet.Coin)
		if err != nil {
			return nil, err
		}
		addressValues := make([]string, 0, len(addresses))
		for _, addr := range addresses {
			addressValues = append(addressValues, addr.Value)
		}
		utxos, err := adapter.ListUtxos(ctx, addressValues)
		if err != nil {
			return nil, err
		}
		for _, utxo := range utxos {
			status.Balance += utxo.Amount
		}
	}
	return status, nil
}

// ListAddresses returns the addresses derived so far, no lock taken.
func (s *walletService) ListAddresses(
	ctx context.Context, walletId string,
) ([]*domain.Address, error) {
	return s.repoManager.AddressRepository().ListAddressesForWallet(ctx, walletId)
}

// UpdatePreferences upserts the notification preferences of a copayer.
// Preferences cannot affect fund movements, so no wallet lock is taken.
func (s *walletService) UpdatePreferences(
	ctx context.Context, preferences *domain.Preferences,
) error {
	if err := s.checkCopayer(ctx, preferences.WalletId, preferences.CopayerId); err != nil {
		return err
	}
	return s.repoManager.PreferencesRepository().UpsertPreferences(ctx, preferences)
}

func (s *walletService) GetPreferences(
	ctx context.Context, walletId, copayerId string,
) (*domain.Preferences, error) {
	return s.repoManager.PreferencesRepository().GetPreferences(ctx, walletId, copayerId)
}

// SubscribePush registers a device push token for a copayer, lock-free.
func (s *walletService) SubscribePush(
	ctx context.Context, sub *domain.PushSubscription,
) error {
	return s.repoManager.PushSubscriptionRepository().UpsertPushSubscription(ctx, sub)
}

func (s *walletService) UnsubscribePush(
	ctx context.Context, copayerId, token string,
) error {
	return s.repoManager.PushSubscriptionRepository().DeletePushSubscription(
		ctx, copayerId, token,
	)
}

func (s *walletService) checkCopayer(
	ctx context.Context, walletId, copayerId string,
) error {
	wallet, err := s.repoManager.WalletRepository().GetWallet(ctx, walletId)
	if err != nil {
		return err
	}
	if _, ok := wallet.CopayerById(copayerId); !ok {
		return domain.ErrCopayerNotFound
	}
	return nil
}
