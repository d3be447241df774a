package ports

import (
	"context"
	"errors"

	"github.com/copays/copayd/internal/core/domain"
)

var (
	// ErrChainNotSupported is returned when no adapter is registered for a coin.
	ErrChainNotSupported = errors.New("coin is not supported")
	// ErrInvalidSignature is returned when a signature payload does not match
	// the proposal transaction.
	ErrInvalidSignature = errors.New("signature does not match transaction proposal")
	// ErrInsufficientFunds is returned when the wallet coins cannot cover the
	// requested outputs plus fee.
	ErrInsufficientFunds = errors.New("insufficient funds")
	// ErrBroadcastFailed is returned when the network rejected or did not
	// answer a broadcast. The proposal stays accepted and the broadcast can be
	// retried without re-collecting signatures.
	ErrBroadcastFailed = errors.New("transaction broadcast failed")
)

// Utxo is an unspent coin of a wallet address as seen by the blockchain
// state collaborator.
type Utxo struct {
	TxId    string
	VOut    uint32
	Amount  uint64
	Address string
	// AddressIndex is the wallet derivation index of the owning address,
	// resolved by the caller before building transactions.
	AddressIndex uint32
}

// UnsignedTx is a transaction built by a chain adapter for a proposal, not
// yet carrying any signature.
type UnsignedTx struct {
	RawTx  string
	Fee    uint64
	Inputs []Utxo
}

// ChainAdapter is the per-coin capability set the engine calls into. The
// engine never embeds chain-specific logic itself.
type ChainAdapter interface {
	// DeriveAddress derives the wallet multisig address at the given index.
	DeriveAddress(wallet *domain.Wallet, index uint32) (*domain.Address, error)
	// BuildUnsignedTx selects coins among the given utxos and builds the
	// unsigned transaction paying the outputs at the given fee rate. It fails
	// with ErrInsufficientFunds when the utxos cannot cover outputs plus fee.
	BuildUnsignedTx(
		wallet *domain.Wallet, outputs []domain.Output,
		utxos []Utxo, feeRate uint64,
	) (*UnsignedTx, error)
	// VerifySignatures checks the per-input signature payload of a copayer
	// against the proposal transaction.
	VerifySignatures(
		wallet *domain.Wallet, copayer *domain.Copayer,
		rawTx string, inputs []domain.TxProposalInput, signatures []string,
	) (bool, error)
	// FinalizeTx assembles the fully-signed transaction from the unsigned one
	// and the collected per-copayer signature payloads.
	FinalizeTx(
		wallet *domain.Wallet, rawTx string,
		inputs []domain.TxProposalInput, signatures [][]string,
	) (string, error)
	// Broadcast submits the fully-signed transaction to the network and
	// returns its transaction id.
	Broadcast(ctx context.Context, signedTx string) (string, error)
	// ListUtxos returns the unspent coins of the given addresses.
	ListUtxos(ctx context.Context, addresses []string) ([]Utxo, error)
	// GetTxConfirmations returns the number of confirmations of a transaction.
	GetTxConfirmations(ctx context.Context, txid string) (uint32, error)
}

// ChainRegistry maps coin identifiers to their capability set. Adapters are
// registered once at startup, the engine selects one per wallet via its coin
// field.
type ChainRegistry interface {
	// Adapter returns the capability set for the given coin, or
	// ErrChainNotSupported.
	Adapter(coin string) (ChainAdapter, error)
}
