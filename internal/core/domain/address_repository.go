package domain

import "context"

// AddressRepository is the abstraction for any kind of database intended to
// persist derived Addresses. Addresses are append-only.
type AddressRepository interface {
	// InsertAddress persists a newly derived address.
	InsertAddress(ctx context.Context, address *Address) error
	// GetAddress returns the address of a wallet at the given index, if any.
	GetAddress(ctx context.Context, walletId string, index uint32) (*Address, error)
	// ListAddressesForWallet returns all the addresses derived for a wallet in
	// derivation order.
	ListAddressesForWallet(ctx context.Context, walletId string) ([]*Address, error)
}
