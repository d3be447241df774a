package domain

import "strconv"

// Address is a chain address derived for a wallet at a given index.
// Addresses are append-only and never reused.
type Address struct {
	WalletId     string
	Index        uint32
	Path         string
	Value        string
	ScriptPubKey string
	CreatedAt    int64
}

// Key returns the storage key of the address, unique per wallet and index.
func (a *Address) Key() string {
	return a.WalletId + ":" + strconv.FormatUint(uint64(a.Index), 10)
}
