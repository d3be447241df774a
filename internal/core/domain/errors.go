package domain

import "errors"

var (
	// ErrWalletInvalidMN is thrown when the m-of-n policy is malformed.
	ErrWalletInvalidMN = errors.New("required signatures must be between 1 and the total number of copayers")
	// ErrWalletTooManyCopayers is thrown when n exceeds the policy ceiling.
	ErrWalletTooManyCopayers = errors.New("total number of copayers exceeds the maximum allowed")
	// ErrWalletNotFound ...
	ErrWalletNotFound = errors.New("wallet not found")
	// ErrWalletAlreadyExists ...
	ErrWalletAlreadyExists = errors.New("wallet with same id already exists")
	// ErrWalletFull is thrown when joining a wallet with all copayer slots taken.
	ErrWalletFull = errors.New("wallet is already full")
	// ErrWalletNotComplete is thrown when an operation requires all copayers to have joined.
	ErrWalletNotComplete = errors.New("wallet is not complete")
	// ErrCopayerAlreadyInWallet is thrown when the same key material joins twice.
	ErrCopayerAlreadyInWallet = errors.New("copayer already in wallet")
	// ErrCopayerNotFound ...
	ErrCopayerNotFound = errors.New("copayer not found in wallet")
	// ErrAddressNotFound ...
	ErrAddressNotFound = errors.New("address not found")
	// ErrPreferencesNotFound ...
	ErrPreferencesNotFound = errors.New("preferences not found")
	// ErrTxProposalNotFound ...
	ErrTxProposalNotFound = errors.New("transaction proposal not found")
	// ErrTxProposalNoOutputs ...
	ErrTxProposalNoOutputs = errors.New("transaction proposal must have at least one output")
	// ErrTxProposalInvalidAmount ...
	ErrTxProposalInvalidAmount = errors.New("output amount must be positive")
	// ErrTxProposalNotPending is thrown when acting on a proposal past the pending status.
	ErrTxProposalNotPending = errors.New("transaction proposal is not pending")
	// ErrTxProposalNotAccepted is thrown when broadcasting a proposal without quorum.
	ErrTxProposalNotAccepted = errors.New("transaction proposal is not accepted")
	// ErrCopayerVoted is thrown when a copayer acts twice on the same proposal.
	ErrCopayerVoted = errors.New("copayer already voted on this proposal")
)
