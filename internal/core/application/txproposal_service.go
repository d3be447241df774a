package application

import (
	"context"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/copays/copayd/internal/core/domain"
	"github.com/copays/copayd/internal/core/ports"
)

// TxProposalService drives the transaction proposal state machine: creation,
// signature collection, rejection and broadcast. Every mutating operation
// runs under the wallet lock; for a single wallet the sequence of committed
// transitions is totally ordered by lock acquisition order.
type TxProposalService interface {
	CreateTxProposal(
		ctx context.Context,
		walletId, creatorId string,
		outputs []domain.Output, feeRate uint64,
	) (*domain.TxProposal, error)
	SignTxProposal(
		ctx context.Context,
		txpId, copayerId string, signatures []string,
	) (*domain.TxProposal, error)
	RejectTxProposal(
		ctx context.Context,
		txpId, copayerId, comment string,
	) (*domain.TxProposal, error)
	BroadcastTxProposal(
		ctx context.Context, txpId, copayerId string,
	) (string, error)
	GetTxProposal(ctx context.Context, txpId string) (*domain.TxProposal, error)
	ListTxProposals(ctx context.Context, walletId string) ([]*domain.TxProposal, error)
	SubscribeTxConfirmation(ctx context.Context, copayerId, walletId, txid string) error
	UnsubscribeTxConfirmation(ctx context.Context, copayerId, txid string) error
}

type txProposalService struct {
	repoManager   ports.RepoManager
	chainRegistry ports.ChainRegistry
	locker        ports.Locker
	notifier      *notifier
}

func NewTxProposalService(
	repoManager ports.RepoManager,
	chainRegistry ports.ChainRegistry,
	locker ports.Locker,
	pubsub ports.PubSub,
) TxProposalService {
	return &txProposalService{
		repoManager:   repoManager,
		chainRegistry: chainRegistry,
		locker:        locker,
		notifier:      newNotifier(pubsub, repoManager.NotificationRepository()),
	}
}

// CreateTxProposal builds and persists a new pending proposal. The utxo set
// is fetched from the blockchain state collaborator before the lock is taken,
// fund availability is checked against it but never re-derived internally.
func (s *txProposalService) CreateTxProposal(
	ctx context.Context,
	walletId, creatorId string,
	outputs []domain.Output, feeRate uint64,
) (*domain.TxProposal, error) {
	wallet, err := s.repoManager.WalletRepository().GetWallet(ctx, walletId)
	if err != nil {
		return nil, err
	}
	adapter, err := s.chainRegistry.Adapter(wallet.Coin)
	if err != nil {
		return nil, err
	}

	addresses, err := s.repoManager.AddressRepository().ListAddressesForWallet(ctx, walletId)
	if err != nil {
		return nil, err
	}
	indexByAddress := make(map[string]uint32, len(addresses))
	addressValues := make([]string, 0, len(addresses))
	for _, addr := range addresses {
		indexByAddress[addr.Value] = addr.Index
		addressValues = append(addressValues, addr.Value)
	}

	utxos, err := adapter.ListUtxos(ctx, addressValues)
	if err != nil {
		return nil, err
	}
	for i := range utxos {
		utxos[i].AddressIndex = indexByAddress[utxos[i].Address]
	}

	lease, err := s.locker.Acquire(ctx, walletId, WalletLockTTL, WalletLockMaxWait)
	if err != nil {
		return nil, err
	}

	var txp *domain.TxProposal
	var notifications []*domain.Notification

	err = func() error {
		wallet, err := s.repoManager.WalletRepository().GetWallet(ctx, walletId)
		if err != nil {
			return err
		}
		if _, ok := wallet.CopayerById(creatorId); !ok {
			return domain.ErrCopayerNotFound
		}

		proposal, err := domain.NewTxProposal(wallet, creatorId, outputs, feeRate)
		if err != nil {
			return err
		}

		unsigned, err := adapter.BuildUnsignedTx(wallet, outputs, utxos, feeRate)
		if err != nil {
			return err
		}
		proposal.RawTx = unsigned.RawTx
		proposal.Fee = unsigned.Fee
		proposal.Inputs = toProposalInputs(unsigned.Inputs)

		if err := s.repoManager.TxProposalRepository().InsertTxProposal(ctx, proposal); err != nil {
			return err
		}
		txp = proposal

		notifications = []*domain.Notification{domain.NewNotification(
			domain.NotificationNewTxProposal, walletId, creatorId,
			map[string]interface{}{
				"txProposalId": proposal.Id,
				"amount":       proposal.Amount,
			},
		)}
		s.notifier.store(ctx, notifications)
		return nil
	}()
	releaseLease(lease)

	if err != nil {
		return nil, err
	}

	s.notifier.publish(notifications)

	log.Debugf("copayer %s created proposal %s on wallet %s", creatorId, txp.Id, walletId)
	return txp, nil
}

// SignTxProposal records an accept action with its signature payload. The
// signatures are validated against the proposal transaction through the chain
// capability of the wallet coin. Reaching the quorum moves the proposal to
// accepted without emitting any event, the outgoing-tx notification fires on
// broadcast when funds actually move.
func (s *txProposalService) SignTxProposal(
	ctx context.Context,
	txpId, copayerId string, signatures []string,
) (*domain.TxProposal, error) {
	walletId, err := s.walletForProposal(ctx, txpId)
	if err != nil {
		return nil, err
	}

	lease, err := s.locker.Acquire(ctx, walletId, WalletLockTTL, WalletLockMaxWait)
	if err != nil {
		return nil, err
	}

	var updated *domain.TxProposal
	err = func() error {
		wallet, err := s.repoManager.WalletRepository().GetWallet(ctx, walletId)
		if err != nil {
			return err
		}
		copayer, ok := wallet.CopayerById(copayerId)
		if !ok {
			return domain.ErrCopayerNotFound
		}
		adapter, err := s.chainRegistry.Adapter(wallet.Coin)
		if err != nil {
			return err
		}

		return s.repoManager.TxProposalRepository().UpdateTxProposal(
			ctx, txpId,
			func(txp *domain.TxProposal) (*domain.TxProposal, error) {
				if !txp.IsPending() {
					return nil, domain.ErrTxProposalNotPending
				}
				if txp.ActionBy(copayerId) != nil {
					return nil, domain.ErrCopayerVoted
				}

				ok, err := adapter.VerifySignatures(
					wallet, copayer, txp.RawTx, txp.Inputs, signatures,
				)
				if err != nil {
					return nil, err
				}
				if !ok {
					return nil, ports.ErrInvalidSignature
				}

				if err := txp.Sign(copayerId, signatures); err != nil {
					return nil, err
				}
				updated = txp
				return txp, nil
			},
		)
	}()
	releaseLease(lease)

	if err != nil {
		return nil, err
	}

	if updated.IsAccepted() {
		log.Debugf("proposal %s reached quorum", txpId)
	}
	return updated, nil
}

// RejectTxProposal records a reject action. When the remaining un-acted
// copayers plus the current accepts can no longer reach the quorum, the
// proposal becomes finally rejected and a single TxProposalFinallyRejected
// event fires carrying the rejector ids and display names.
func (s *txProposalService) RejectTxProposal(
	ctx context.Context,
	txpId, copayerId, comment string,
) (*domain.TxProposal, error) {
	walletId, err := s.walletForProposal(ctx, txpId)
	if err != nil {
		return nil, err
	}

	lease, err := s.locker.Acquire(ctx, walletId, WalletLockTTL, WalletLockMaxWait)
	if err != nil {
		return nil, err
	}

	var updated *domain.TxProposal
	var notifications []*domain.Notification

	err = func() error {
		wallet, err := s.repoManager.WalletRepository().GetWallet(ctx, walletId)
		if err != nil {
			return err
		}
		if _, ok := wallet.CopayerById(copayerId); !ok {
			return domain.ErrCopayerNotFound
		}

		if err := s.repoManager.TxProposalRepository().UpdateTxProposal(
			ctx, txpId,
			func(txp *domain.TxProposal) (*domain.TxProposal, error) {
				if err := txp.Reject(copayerId, comment); err != nil {
					return nil, err
				}
				updated = txp
				return txp, nil
			},
		); err != nil {
			return err
		}

		if updated.IsFinallyRejected() {
			rejectors := updated.Rejectors()
			names := make([]string, 0, len(rejectors))
			for _, id := range rejectors {
				if c, ok := wallet.CopayerById(id); ok {
					names = append(names, c.Name)
				}
			}
			notifications = []*domain.Notification{domain.NewNotification(
				domain.NotificationTxProposalFinallyRejected, walletId, copayerId,
				map[string]interface{}{
					"txProposalId":   updated.Id,
					"rejectedBy":     rejectors,
					"rejectorsNames": strings.Join(names, ", "),
				},
			)}
			s.notifier.store(ctx, notifications)
		}
		return nil
	}()
	releaseLease(lease)

	if err != nil {
		return nil, err
	}

	s.notifier.publish(notifications)
	return updated, nil
}

// BroadcastTxProposal submits the fully-signed transaction of an accepted
// proposal. On failure the proposal stays accepted and the call can be
// retried by any copayer without re-collecting signatures; on success the
// proposal reaches the terminal broadcast status and NewOutgoingTx fires.
func (s *txProposalService) BroadcastTxProposal(
	ctx context.Context, txpId, copayerId string,
) (string, error) {
	walletId, err := s.walletForProposal(ctx, txpId)
	if err != nil {
		return "", err
	}

	lease, err := s.locker.Acquire(ctx, walletId, WalletLockTTL, WalletLockMaxWait)
	if err != nil {
		return "", err
	}

	var txid string
	var notifications []*domain.Notification

	err = func() error {
		wallet, err := s.repoManager.WalletRepository().GetWallet(ctx, walletId)
		if err != nil {
			return err
		}
		if _, ok := wallet.CopayerById(copayerId); !ok {
			return domain.ErrCopayerNotFound
		}

		txp, err := s.repoManager.TxProposalRepository().GetTxProposal(ctx, txpId)
		if err != nil {
			return err
		}
		if !txp.IsAccepted() {
			return domain.ErrTxProposalNotAccepted
		}

		adapter, err := s.chainRegistry.Adapter(wallet.Coin)
		if err != nil {
			return err
		}

		signedTx, err := adapter.FinalizeTx(
			wallet, txp.RawTx, txp.Inputs, txp.AcceptSignatures(),
		)
		if err != nil {
			return err
		}

		bctx, cancel := context.WithTimeout(ctx, BroadcastTimeout)
		defer cancel()
		id, err := adapter.Broadcast(bctx, signedTx)
		if err != nil {
			return fmt.Errorf("%w: %s", ports.ErrBroadcastFailed, err)
		}
		txid = id

		if err := s.repoManager.TxProposalRepository().UpdateTxProposal(
			ctx, txpId,
			func(txp *domain.TxProposal) (*domain.TxProposal, error) {
				if err := txp.MarkBroadcast(txid); err != nil {
					return nil, err
				}
				return txp, nil
			},
		); err != nil {
			return err
		}

		notifications = []*domain.Notification{domain.NewNotification(
			domain.NotificationNewOutgoingTx, walletId, copayerId,
			map[string]interface{}{
				"txProposalId": txpId,
				"txid":         txid,
				"amount":       txp.Amount,
			},
		)}
		s.notifier.store(ctx, notifications)
		return nil
	}()
	releaseLease(lease)

	if err != nil {
		return "", err
	}

	s.notifier.publish(notifications)

	log.Infof("proposal %s broadcast as tx %s", txpId, txid)
	return txid, nil
}

// GetTxProposal returns a consistent snapshot of a proposal, no lock taken.
func (s *txProposalService) GetTxProposal(
	ctx context.Context, txpId string,
) (*domain.TxProposal, error) {
	return s.repoManager.TxProposalRepository().GetTxProposal(ctx, txpId)
}

// ListTxProposals returns the proposals of a wallet, no lock taken.
func (s *txProposalService) ListTxProposals(
	ctx context.Context, walletId string,
) ([]*domain.TxProposal, error) {
	return s.repoManager.TxProposalRepository().ListTxProposalsForWallet(ctx, walletId)
}

// SubscribeTxConfirmation registers the interest of a copayer in the
// confirmation of a transaction. Append-only record, no wallet lock.
func (s *txProposalService) SubscribeTxConfirmation(
	ctx context.Context, copayerId, walletId, txid string,
) error {
	wallet, err := s.repoManager.WalletRepository().GetWallet(ctx, walletId)
	if err != nil {
		return err
	}
	if _, ok := wallet.CopayerById(copayerId); !ok {
		return domain.ErrCopayerNotFound
	}

	sub := domain.NewTxConfirmationSub(copayerId, walletId, txid)
	return s.repoManager.TxConfirmationSubRepository().UpsertTxConfirmationSub(ctx, sub)
}

func (s *txProposalService) UnsubscribeTxConfirmation(
	ctx context.Context, copayerId, txid string,
) error {
	return s.repoManager.TxConfirmationSubRepository().DeactivateTxConfirmationSub(
		ctx, copayerId, txid,
	)
}

func (s *txProposalService) walletForProposal(
	ctx context.Context, txpId string,
) (string, error) {
	// unlocked read just to learn the wallet to lock; all guards are
	// re-evaluated on the fresh state read under the lock.
	txp, err := s.repoManager.TxProposalRepository().GetTxProposal(ctx, txpId)
	if err != nil {
		return "", err
	}
	return txp.WalletId, nil
}

func toProposalInputs(utxos []ports.Utxo) []domain.TxProposalInput {
	inputs := make([]domain.TxProposalInput, 0, len(utxos))
	for _, u := range utxos {
		inputs = append(inputs, domain.TxProposalInput{
			TxId:         u.TxId,
			VOut:         u.VOut,
			Amount:       u.Amount,
			Address:      u.Address,
			AddressIndex: u.AddressIndex,
		})
	}
	return inputs
}
