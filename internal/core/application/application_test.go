package application_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/copays/copayd/internal/core/application"
	"github.com/copays/copayd/internal/core/domain"
	"github.com/copays/copayd/internal/core/ports"
	"github.com/copays/copayd/internal/infrastructure/chain"
	"github.com/copays/copayd/internal/infrastructure/storage/inmemory"
)

type testEnv struct {
	repoManager ports.RepoManager
	pubsub      *recordingPubSub
	adapter     *fakeChainAdapter
	walletSvc   application.WalletService
	txpSvc      application.TxProposalService
}

func newTestEnv() *testEnv {
	repoManager := inmemory.NewRepoManager()
	locker := inmemory.NewLocker()
	pubsub := newRecordingPubSub()
	adapter := newFakeChainAdapter()

	registry := chain.NewRegistry()
	registry.RegisterAdapter("btc", adapter)

	return &testEnv{
		repoManager: repoManager,
		pubsub:      pubsub,
		adapter:     adapter,
		walletSvc:   application.NewWalletService(repoManager, registry, locker, pubsub),
		txpSvc:      application.NewTxProposalService(repoManager, registry, locker, pubsub),
	}
}

func (e *testEnv) newCompleteWallet(
	t *testing.T, m, n int,
) (*domain.Wallet, []*domain.Copayer) {
	t.Helper()
	ctx := context.Background()

	wallet, err := e.walletSvc.CreateWallet(ctx, "shared", "btc", "mainnet", m, n, false)
	require.NoError(t, err)

	copayers := make([]*domain.Copayer, 0, n)
	for i := 0; i < n; i++ {
		copayer, err := e.walletSvc.JoinWallet(
			ctx, wallet.Id,
			fmt.Sprintf("copayer %d", i),
			fmt.Sprintf("xpub%03d", i),
			fmt.Sprintf("reqkey%03d", i),
		)
		require.NoError(t, err)
		copayers = append(copayers, copayer)
	}

	wallet, err = e.walletSvc.GetWallet(ctx, wallet.Id)
	require.NoError(t, err)
	require.True(t, wallet.IsComplete())
	return wallet, copayers
}

func (e *testEnv) fundWallet(t *testing.T, walletId string, amount uint64) {
	t.Helper()
	ctx := context.Background()

	address, err := e.walletSvc.CreateAddress(ctx, walletId)
	require.NoError(t, err)

	e.adapter.addUtxo(ports.Utxo{
		TxId:    fmt.Sprintf("fundingtx%d", address.Index),
		VOut:    0,
		Amount:  amount,
		Address: address.Value,
	})
}

type fakeChainAdapter struct {
	mtx             sync.Mutex
	utxosByAddress  map[string][]ports.Utxo
	confirmations   map[string]uint32
	broadcastErr    error
	broadcastedTxs  []string
	nextBroadcastId string
}

func newFakeChainAdapter() *fakeChainAdapter {
	return &fakeChainAdapter{
		utxosByAddress:  map[string][]ports.Utxo{},
		confirmations:   map[string]uint32{},
		nextBroadcastId: "txid001",
	}
}

func (a *fakeChainAdapter) addUtxo(utxo ports.Utxo) {
	a.mtx.Lock()
	defer a.mtx.Unlock()
	a.utxosByAddress[utxo.Address] = append(a.utxosByAddress[utxo.Address], utxo)
}

func (a *fakeChainAdapter) setBroadcastErr(err error) {
	a.mtx.Lock()
	defer a.mtx.Unlock()
	a.broadcastErr = err
}

func (a *fakeChainAdapter) setConfirmations(txid string, count uint32) {
	a.mtx.Lock()
	defer a.mtx.Unlock()
	a.confirmations[txid] = count
}

func (a *fakeChainAdapter) DeriveAddress(
	wallet *domain.Wallet, index uint32,
) (*domain.Address, error) {
	return &domain.Address{
		WalletId:     wallet.Id,
		Index:        index,
		Path:         fmt.Sprintf("m/0/%d", index),
		Value:        fmt.Sprintf("%s-addr-%d", wallet.Id, index),
		ScriptPubKey: fmt.Sprintf("script-%d", index),
	}, nil
}

func (a *fakeChainAdapter) BuildUnsignedTx(
	wallet *domain.Wallet, outputs []domain.Output,
	utxos []ports.Utxo, feeRate uint64,
) (*ports.UnsignedTx, error) {
	var amount, total uint64
	for _, out := range outputs {
		amount += out.Amount
	}
	for _, utxo := range utxos {
		total += utxo.Amount
	}
	fee := feeRate * 100
	if total < amount+fee {
		return nil, ports.ErrInsufficientFunds
	}
	return &ports.UnsignedTx{RawTx: "rawtx", Fee: fee, Inputs: utxos}, nil
}

func (a *fakeChainAdapter) VerifySignatures(
	wallet *domain.Wallet, copayer *domain.Copayer,
	rawTx string, inputs []domain.TxProposalInput, signatures []string,
) (bool, error) {
	if len(signatures) <= 0 {
		return false, nil
	}
	for _, sig := range signatures {
		if sig == "badsig" {
			return false, nil
		}
	}
	return true, nil
}

func (a *fakeChainAdapter) FinalizeTx(
	wallet *domain.Wallet, rawTx string,
	inputs []domain.TxProposalInput, signatures [][]string,
) (string, error) {
	return "signedtx", nil
}

func (a *fakeChainAdapter) Broadcast(
	ctx context.Context, signedTx string,
) (string, error) {
	a.mtx.Lock()
	defer a.mtx.Unlock()
	if a.broadcastErr != nil {
		return "", a.broadcastErr
	}
	a.broadcastedTxs = append(a.broadcastedTxs, signedTx)
	return a.nextBroadcastId, nil
}

func (a *fakeChainAdapter) ListUtxos(
	ctx context.Context, addresses []string,
) ([]ports.Utxo, error) {
	a.mtx.Lock()
	defer a.mtx.Unlock()

	utxos := make([]ports.Utxo, 0)
	for _, addr := range addresses {
		utxos = append(utxos, a.utxosByAddress[addr]...)
	}
	return utxos, nil
}

func (a *fakeChainAdapter) GetTxConfirmations(
	ctx context.Context, txid string,
) (uint32, error) {
	a.mtx.Lock()
	defer a.mtx.Unlock()
	return a.confirmations[txid], nil
}

type recordingPubSub struct {
	mtx       sync.Mutex
	published []publishedEvent
}

type publishedEvent struct {
	topic   string
	message string
}

func newRecordingPubSub() *recordingPubSub {
	return &recordingPubSub{published: make([]publishedEvent, 0)}
}

func (p *recordingPubSub) Subscribe(topic, endpoint, secret string) (string, error) {
	return "subid", nil
}

func (p *recordingPubSub) Unsubscribe(topic, id string) error {
	return nil
}

func (p *recordingPubSub) ListSubscriptionsForTopic(topic string) []ports.Subscription {
	return nil
}

func (p *recordingPubSub) Publish(topic, message string) error {
	p.mtx.Lock()
	defer p.mtx.Unlock()
	p.published = append(p.published, publishedEvent{topic, message})
	return nil
}

func (p *recordingPubSub) Close() {}

func (p *recordingPubSub) countTopic(topic string) int {
	p.mtx.Lock()
	defer p.mtx.Unlock()

	count := 0
	for _, event := range p.published {
		if event.topic == topic {
			count++
		}
	}
	return count
}

func (p *recordingPubSub) lastMessageForTopic(topic string) (string, bool) {
	p.mtx.Lock()
	defer p.mtx.Unlock()

	for i := len(p.published) - 1; i >= 0; i-- {
		if p.published[i].topic == topic {
			return p.published[i].message, true
		}
	}
	return "", false
}
