package domain

import "context"

// TxProposalRepository is the abstraction for any kind of database intended
// to persist TxProposals.
type TxProposalRepository interface {
	// InsertTxProposal persists a new proposal.
	InsertTxProposal(ctx context.Context, txp *TxProposal) error
	// GetTxProposal returns the proposal with the given id, or
	// ErrTxProposalNotFound.
	GetTxProposal(ctx context.Context, txpId string) (*TxProposal, error)
	// UpdateTxProposal commits the changes made by updateFn to the proposal in
	// a single atomic overwrite.
	UpdateTxProposal(
		ctx context.Context,
		txpId string,
		updateFn func(txp *TxProposal) (*TxProposal, error),
	) error
	// ListTxProposalsForWallet returns all the proposals of a wallet, most
	// recent first.
	ListTxProposalsForWallet(ctx context.Context, walletId string) ([]*TxProposal, error)
}
