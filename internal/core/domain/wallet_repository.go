package domain

import "context"

// WalletRepository is the abstraction for any kind of database intended to
// persist Wallets. Writes are atomic per document.
type WalletRepository interface {
	// InsertWallet persists a new wallet, failing with ErrWalletAlreadyExists
	// on id collision.
	InsertWallet(ctx context.Context, wallet *Wallet) error
	// GetWallet returns the wallet with the given id, or ErrWalletNotFound.
	GetWallet(ctx context.Context, walletId string) (*Wallet, error)
	// ListWallets returns all persisted wallets.
	ListWallets(ctx context.Context) ([]*Wallet, error)
	// UpdateWallet commits the changes made by updateFn to the wallet in a
	// single atomic overwrite.
	UpdateWallet(
		ctx context.Context,
		walletId string,
		updateFn func(w *Wallet) (*Wallet, error),
	) error
}
