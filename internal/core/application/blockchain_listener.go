package application

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/copays/copayd/internal/core/domain"
	"github.com/copays/copayd/internal/core/ports"
)

// BlockchainListener watches the chain on behalf of the wallets: it emits a
// creator-only TxConfirmation event the first time a watched transaction
// confirms, and a global NewIncomingTx event the first time an unspent output
// appears on a wallet address. Both scans are lock-free, observing the chain
// does not mutate wallet fund-movement state.
type BlockchainListener interface {
	Start()
	Stop()
}

type blockchainListener struct {
	repoManager   ports.RepoManager
	chainRegistry ports.ChainRegistry
	notifier      *notifier
	interval      time.Duration
	// seenUtxos maps wallet id to the outpoints already notified, primed from
	// the persisted NewIncomingTx notifications on the first scan of a wallet.
	// Accessed from the loop goroutine only.
	seenUtxos map[string]map[string]bool
	quit      chan struct{}
	done      chan struct{}
}

func NewBlockchainListener(
	repoManager ports.RepoManager,
	chainRegistry ports.ChainRegistry,
	pubsub ports.PubSub,
	interval time.Duration,
) BlockchainListener {
	return &blockchainListener{
		repoManager:   repoManager,
		chainRegistry: chainRegistry,
		notifier:      newNotifier(pubsub, repoManager.NotificationRepository()),
		interval:      interval,
		seenUtxos:     make(map[string]map[string]bool),
		quit:          make(chan struct{}),
		done:          make(chan struct{}),
	}
}

func (l *blockchainListener) Start() {
	log.Infof("start watching the chain every %s", l.interval)
	go l.loop()
}

func (l *blockchainListener) Stop() {
	close(l.quit)
	<-l.done
	log.Debug("stopped watching the chain")
}

func (l *blockchainListener) loop() {
	defer close(l.done)

	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			l.checkConfirmations()
			l.checkIncomingFunds()
		case <-l.quit:
			return
		}
	}
}

func (l *blockchainListener) checkConfirmations() {
	ctx, cancel := context.WithTimeout(context.Background(), l.interval)
	defer cancel()

	subs, err := l.repoManager.TxConfirmationSubRepository().ListActiveTxConfirmationSubs(ctx)
	if err != nil {
		log.WithError(err).Warn("failed to list tx confirmation subscriptions")
		return
	}

	for _, sub := range subs {
		if err := l.checkSub(ctx, sub); err != nil {
			log.WithError(err).Warnf("failed to check confirmation of tx %s", sub.TxId)
		}
	}
}

func (l *blockchainListener) checkSub(
	ctx context.Context, sub *domain.TxConfirmationSub,
) error {
	wallet, err := l.repoManager.WalletRepository().GetWallet(ctx, sub.WalletId)
	if err != nil {
		return err
	}
	adapter, err := l.chainRegistry.Adapter(wallet.Coin)
	if err != nil {
		return err
	}

	confirmations, err := adapter.GetTxConfirmations(ctx, sub.TxId)
	if err != nil {
		return err
	}
	if confirmations <= 0 {
		return nil
	}

	notifications := []*domain.Notification{domain.NewNotification(
		domain.NotificationTxConfirmation, sub.WalletId, sub.CopayerId,
		map[string]interface{}{
			"txid":          sub.TxId,
			"confirmations": confirmations,
		},
	)}
	l.notifier.store(ctx, notifications)

	if err := l.repoManager.TxConfirmationSubRepository().DeactivateTxConfirmationSub(
		ctx, sub.CopayerId, sub.TxId,
	); err != nil {
		return err
	}

	l.notifier.publish(notifications)
	return nil
}

func (l *blockchainListener) checkIncomingFunds() {
	ctx, cancel := context.WithTimeout(context.Background(), l.interval)
	defer cancel()

	wallets, err := l.repoManager.WalletRepository().ListWallets(ctx)
	if err != nil {
		log.WithError(err).Warn("failed to list wallets")
		return
	}

	for _, wallet := range wallets {
		if !wallet.IsComplete() {
			continue
		}
		if err := l.checkWalletFunds(ctx, wallet); err != nil {
			log.WithError(err).Warnf(
				"failed to check incoming funds of wallet %s", wallet.Id,
			)
		}
	}
}

func (l *blockchainListener) checkWalletFunds(
	ctx context.Context, wallet *domain.Wallet,
) error {
	addresses, err := l.repoManager.AddressRepository().ListAddressesForWallet(
		ctx, wallet.Id,
	)
	if err != nil {
		return err
	}
	if len(addresses) <= 0 {
		return nil
	}

	seen, err := l.seenOutpoints(ctx, wallet.Id)
	if err != nil {
		return err
	}

	adapter, err := l.chainRegistry.Adapter(wallet.Coin)
	if err != nil {
		return err
	}

	addressValues := make([]string, 0, len(addresses))
	for _, address := range addresses {
		addressValues = append(addressValues, address.Value)
	}
	utxos, err := adapter.ListUtxos(ctx, addressValues)
	if err != nil {
		return err
	}

	notifications := make([]*domain.Notification, 0)
	for _, utxo := range utxos {
		outpoint := fmt.Sprintf("%s:%d", utxo.TxId, utxo.VOut)
		if seen[outpoint] {
			continue
		}
		seen[outpoint] = true

		notifications = append(notifications, domain.NewNotification(
			domain.NotificationNewIncomingTx, wallet.Id, "",
			map[string]interface{}{
				"txid":    utxo.TxId,
				"vout":    utxo.VOut,
				"amount":  utxo.Amount,
				"address": utxo.Address,
			},
		))
	}
	if len(notifications) <= 0 {
		return nil
	}

	l.notifier.store(ctx, notifications)
	l.notifier.publish(notifications)
	return nil
}

// seenOutpoints returns the set of outpoints already notified for a wallet.
// On the first scan of a wallet the set is primed from the persisted
// NewIncomingTx notifications, so funds notified before a restart are not
// notified again.
func (l *blockchainListener) seenOutpoints(
	ctx context.Context, walletId string,
) (map[string]bool, error) {
	if seen, ok := l.seenUtxos[walletId]; ok {
		return seen, nil
	}

	notifications, err := l.repoManager.NotificationRepository().ListNotificationsForWallet(
		ctx, walletId,
	)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	for _, notification := range notifications {
		if notification.Type != domain.NotificationNewIncomingTx {
			continue
		}
		outpoint := fmt.Sprintf(
			"%v:%v", notification.Data["txid"], notification.Data["vout"],
		)
		seen[outpoint] = true
	}
	l.seenUtxos[walletId] = seen
	return seen, nil
}
