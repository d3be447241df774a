package application_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/copays/copayd/internal/core/application"
	"github.com/copays/copayd/internal/core/domain"
	"github.com/copays/copayd/internal/core/ports"
	"github.com/copays/copayd/internal/infrastructure/chain"
)

func TestTxProposalFullFlow(t *testing.T) {
	t.Parallel()
	env := newTestEnv()
	ctx := context.Background()

	wallet, copayers := env.newCompleteWallet(t, 2, 3)
	env.fundWallet(t, wallet.Id, 100000)

	txp, err := env.txpSvc.CreateTxProposal(
		ctx, wallet.Id, copayers[0].Id,
		[]domain.Output{{Address: "destination", Amount: 50000}},
		10,
	)
	require.NoError(t, err)
	require.True(t, txp.IsPending())
	require.NotEmpty(t, txp.RawTx)
	require.NotEmpty(t, txp.Inputs)
	require.Equal(t, 1, env.pubsub.countTopic(domain.NotificationNewTxProposal))

	// first signature, quorum not reached yet, nothing fires
	txp, err = env.txpSvc.SignTxProposal(ctx, txp.Id, copayers[0].Id, []string{"sig0"})
	require.NoError(t, err)
	require.True(t, txp.IsPending())

	// quorum reached, the transition is silent
	txp, err = env.txpSvc.SignTxProposal(ctx, txp.Id, copayers[1].Id, []string{"sig1"})
	require.NoError(t, err)
	require.True(t, txp.IsAccepted())
	require.Equal(t, 0, env.pubsub.countTopic(domain.NotificationNewOutgoingTx))

	txid, err := env.txpSvc.BroadcastTxProposal(ctx, txp.Id, copayers[0].Id)
	require.NoError(t, err)
	require.NotEmpty(t, txid)
	require.Equal(t, 1, env.pubsub.countTopic(domain.NotificationNewOutgoingTx))

	txp, err = env.txpSvc.GetTxProposal(ctx, txp.Id)
	require.NoError(t, err)
	require.True(t, txp.IsBroadcast())
	require.Equal(t, txid, txp.TxId)
}

func TestFailingCreateTxProposal(t *testing.T) {
	t.Parallel()
	env := newTestEnv()
	ctx := context.Background()

	wallet, copayers := env.newCompleteWallet(t, 2, 3)
	env.fundWallet(t, wallet.Id, 1000)

	t.Run("insufficient_funds", func(t *testing.T) {
		txp, err := env.txpSvc.CreateTxProposal(
			ctx, wallet.Id, copayers[0].Id,
			[]domain.Output{{Address: "destination", Amount: 50000}},
			10,
		)
		require.Nil(t, txp)
		require.EqualError(t, err, ports.ErrInsufficientFunds.Error())
	})

	t.Run("unknown_copayer", func(t *testing.T) {
		txp, err := env.txpSvc.CreateTxProposal(
			ctx, wallet.Id, "stranger",
			[]domain.Output{{Address: "destination", Amount: 100}},
			0,
		)
		require.Nil(t, txp)
		require.EqualError(t, err, domain.ErrCopayerNotFound.Error())
	})
}

func TestSignTxProposalInvalidSignature(t *testing.T) {
	t.Parallel()
	env := newTestEnv()
	ctx := context.Background()

	wallet, copayers := env.newCompleteWallet(t, 2, 3)
	env.fundWallet(t, wallet.Id, 100000)

	txp := env.newPendingProposal(t, wallet, copayers[0].Id)

	signed, err := env.txpSvc.SignTxProposal(ctx, txp.Id, copayers[0].Id, []string{"badsig"})
	require.Nil(t, signed)
	require.EqualError(t, err, ports.ErrInvalidSignature.Error())

	// the rejected payload left no action behind, the copayer can retry
	found, err := env.txpSvc.GetTxProposal(ctx, txp.Id)
	require.NoError(t, err)
	require.Empty(t, found.Actions)

	_, err = env.txpSvc.SignTxProposal(ctx, txp.Id, copayers[0].Id, []string{"sig0"})
	require.NoError(t, err)
}

func TestRejectTxProposal(t *testing.T) {
	t.Parallel()
	env := newTestEnv()
	ctx := context.Background()

	wallet, copayers := env.newCompleteWallet(t, 2, 2)
	env.fundWallet(t, wallet.Id, 100000)

	txp := env.newPendingProposal(t, wallet, copayers[0].Id)

	// 2-of-2: a single rejection makes the quorum unreachable
	rejected, err := env.txpSvc.RejectTxProposal(ctx, txp.Id, copayers[1].Id, "no")
	require.NoError(t, err)
	require.True(t, rejected.IsFinallyRejected())

	require.Equal(t, 1, env.pubsub.countTopic(domain.NotificationTxProposalFinallyRejected))
	message, ok := env.pubsub.lastMessageForTopic(domain.NotificationTxProposalFinallyRejected)
	require.True(t, ok)
	require.Contains(t, message, copayers[1].Id)
	require.Contains(t, message, copayers[1].Name)

	// terminal status, late actions fail
	_, err = env.txpSvc.SignTxProposal(ctx, txp.Id, copayers[0].Id, []string{"sig0"})
	require.EqualError(t, err, domain.ErrTxProposalNotPending.Error())
}

func TestRejectTxProposalSingleEventForManyRejectors(t *testing.T) {
	t.Parallel()
	env := newTestEnv()
	ctx := context.Background()

	wallet, copayers := env.newCompleteWallet(t, 2, 3)
	env.fundWallet(t, wallet.Id, 100000)

	txp := env.newPendingProposal(t, wallet, copayers[0].Id)

	_, err := env.txpSvc.RejectTxProposal(ctx, txp.Id, copayers[0].Id, "")
	require.NoError(t, err)
	require.Equal(t, 0, env.pubsub.countTopic(domain.NotificationTxProposalFinallyRejected))

	rejected, err := env.txpSvc.RejectTxProposal(ctx, txp.Id, copayers[1].Id, "")
	require.NoError(t, err)
	require.True(t, rejected.IsFinallyRejected())
	require.Equal(t, 1, env.pubsub.countTopic(domain.NotificationTxProposalFinallyRejected))

	message, _ := env.pubsub.lastMessageForTopic(domain.NotificationTxProposalFinallyRejected)
	require.Contains(t, message, fmt.Sprintf("%s, %s", copayers[0].Name, copayers[1].Name))
}

func TestBroadcastFailureLeavesProposalAccepted(t *testing.T) {
	t.Parallel()
	env := newTestEnv()
	ctx := context.Background()

	wallet, copayers := env.newCompleteWallet(t, 2, 3)
	env.fundWallet(t, wallet.Id, 100000)

	txp := env.newAcceptedProposal(t, wallet, copayers)

	env.adapter.setBroadcastErr(errors.New("connection refused"))
	txid, err := env.txpSvc.BroadcastTxProposal(ctx, txp.Id, copayers[0].Id)
	require.Empty(t, txid)
	require.ErrorIs(t, err, ports.ErrBroadcastFailed)
	require.Equal(t, 0, env.pubsub.countTopic(domain.NotificationNewOutgoingTx))

	found, err := env.txpSvc.GetTxProposal(ctx, txp.Id)
	require.NoError(t, err)
	require.True(t, found.IsAccepted())

	// the retry reuses the collected signatures
	env.adapter.setBroadcastErr(nil)
	txid, err = env.txpSvc.BroadcastTxProposal(ctx, txp.Id, copayers[1].Id)
	require.NoError(t, err)
	require.NotEmpty(t, txid)
	require.Equal(t, 1, env.pubsub.countTopic(domain.NotificationNewOutgoingTx))
}

func TestFailingBroadcastTxProposal(t *testing.T) {
	t.Parallel()
	env := newTestEnv()
	ctx := context.Background()

	wallet, copayers := env.newCompleteWallet(t, 2, 3)
	env.fundWallet(t, wallet.Id, 100000)

	txp := env.newPendingProposal(t, wallet, copayers[0].Id)

	txid, err := env.txpSvc.BroadcastTxProposal(ctx, txp.Id, copayers[0].Id)
	require.Empty(t, txid)
	require.EqualError(t, err, domain.ErrTxProposalNotAccepted.Error())
}

func TestConcurrentSignTxProposal(t *testing.T) {
	t.Parallel()
	env := newTestEnv()
	ctx := context.Background()

	wallet, copayers := env.newCompleteWallet(t, 2, 3)
	env.fundWallet(t, wallet.Id, 100000)

	txp := env.newPendingProposal(t, wallet, copayers[0].Id)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	wg.Add(2)
	for i := 0; i < 2; i++ {
		go func(i int) {
			defer wg.Done()
			_, errs[i] = env.txpSvc.SignTxProposal(
				ctx, txp.Id, copayers[i].Id, []string{fmt.Sprintf("sig%d", i)},
			)
		}(i)
	}
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])

	found, err := env.txpSvc.GetTxProposal(ctx, txp.Id)
	require.NoError(t, err)
	require.True(t, found.IsAccepted())
	require.Len(t, found.Actions, 2)
}

func TestListTxProposals(t *testing.T) {
	t.Parallel()
	env := newTestEnv()
	ctx := context.Background()

	wallet, copayers := env.newCompleteWallet(t, 2, 3)
	env.fundWallet(t, wallet.Id, 100000)

	first := env.newPendingProposal(t, wallet, copayers[0].Id)
	second := env.newPendingProposal(t, wallet, copayers[1].Id)

	txps, err := env.txpSvc.ListTxProposals(ctx, wallet.Id)
	require.NoError(t, err)
	require.Len(t, txps, 2)

	ids := []string{txps[0].Id, txps[1].Id}
	require.Contains(t, ids, first.Id)
	require.Contains(t, ids, second.Id)
}

func TestTxConfirmationListener(t *testing.T) {
	t.Parallel()
	env := newTestEnv()
	ctx := context.Background()

	wallet, copayers := env.newCompleteWallet(t, 2, 3)
	env.fundWallet(t, wallet.Id, 100000)

	require.NoError(t, env.txpSvc.SubscribeTxConfirmation(
		ctx, copayers[0].Id, wallet.Id, "watchedtx",
	))

	registry := chain.NewRegistry()
	registry.RegisterAdapter("btc", env.adapter)
	listener := application.NewBlockchainListener(
		env.repoManager, registry, env.pubsub, 20*time.Millisecond,
	)
	listener.Start()
	defer listener.Stop()

	// unconfirmed, nothing fires
	time.Sleep(60 * time.Millisecond)
	require.Equal(t, 0, env.pubsub.countTopic(domain.NotificationTxConfirmation))

	env.adapter.setConfirmations("watchedtx", 1)
	require.Eventually(t, func() bool {
		return env.pubsub.countTopic(domain.NotificationTxConfirmation) == 1
	}, 2*time.Second, 20*time.Millisecond)

	// the interest record is served once, no duplicate event on later scans
	time.Sleep(100 * time.Millisecond)
	require.Equal(t, 1, env.pubsub.countTopic(domain.NotificationTxConfirmation))

	message, ok := env.pubsub.lastMessageForTopic(domain.NotificationTxConfirmation)
	require.True(t, ok)
	require.Contains(t, message, "watchedtx")
	require.Contains(t, message, copayers[0].Id)
}

func TestIncomingTxListener(t *testing.T) {
	t.Parallel()
	env := newTestEnv()
	ctx := context.Background()

	wallet, _ := env.newCompleteWallet(t, 2, 3)
	address, err := env.walletSvc.CreateAddress(ctx, wallet.Id)
	require.NoError(t, err)

	registry := chain.NewRegistry()
	registry.RegisterAdapter("btc", env.adapter)
	listener := application.NewBlockchainListener(
		env.repoManager, registry, env.pubsub, 20*time.Millisecond,
	)
	listener.Start()
	defer listener.Stop()

	// no coins on the wallet addresses yet, nothing fires
	time.Sleep(60 * time.Millisecond)
	require.Equal(t, 0, env.pubsub.countTopic(domain.NotificationNewIncomingTx))

	env.adapter.addUtxo(ports.Utxo{
		TxId: "incomingtx", VOut: 0, Amount: 70000, Address: address.Value,
	})
	require.Eventually(t, func() bool {
		return env.pubsub.countTopic(domain.NotificationNewIncomingTx) == 1
	}, 2*time.Second, 20*time.Millisecond)

	// the same utxo is notified once
	time.Sleep(100 * time.Millisecond)
	require.Equal(t, 1, env.pubsub.countTopic(domain.NotificationNewIncomingTx))

	message, ok := env.pubsub.lastMessageForTopic(domain.NotificationNewIncomingTx)
	require.True(t, ok)
	require.Contains(t, message, "incomingtx")
	require.Contains(t, message, address.Value)

	env.adapter.addUtxo(ports.Utxo{
		TxId: "incomingtx2", VOut: 1, Amount: 30000, Address: address.Value,
	})
	require.Eventually(t, func() bool {
		return env.pubsub.countTopic(domain.NotificationNewIncomingTx) == 2
	}, 2*time.Second, 20*time.Millisecond)

	// a fresh listener primes the seen set from the stored notifications and
	// stays quiet about the already notified coins
	restarted := application.NewBlockchainListener(
		env.repoManager, registry, env.pubsub, 20*time.Millisecond,
	)
	restarted.Start()
	time.Sleep(100 * time.Millisecond)
	restarted.Stop()
	require.Equal(t, 2, env.pubsub.countTopic(domain.NotificationNewIncomingTx))
}

func (e *testEnv) newPendingProposal(
	t *testing.T, wallet *domain.Wallet, creatorId string,
) *domain.TxProposal {
	t.Helper()

	txp, err := e.txpSvc.CreateTxProposal(
		context.Background(), wallet.Id, creatorId,
		[]domain.Output{{Address: "destination", Amount: 50000}},
		10,
	)
	require.NoError(t, err)
	return txp
}

func (e *testEnv) newAcceptedProposal(
	t *testing.T, wallet *domain.Wallet, copayers []*domain.Copayer,
) *domain.TxProposal {
	t.Helper()
	ctx := context.Background()

	txp := e.newPendingProposal(t, wallet, copayers[0].Id)
	for i := 0; i < wallet.M; i++ {
		updated, err := e.txpSvc.SignTxProposal(
			ctx, txp.Id, copayers[i].Id, []string{fmt.Sprintf("sig%d", i)},
		)
		require.NoError(t, err)
		txp = updated
	}
	require.True(t, txp.IsAccepted())
	return txp
}
