package domain

import "time"

// Preferences are the per-copayer notification settings. They do not affect
// fund-movement invariants, so mutating them does not require the wallet lock.
type Preferences struct {
	WalletId       string
	CopayerId      string
	Language       string
	Unit           string
	TokenAddresses []string
}

// Key returns the storage key of the preferences record.
func (p *Preferences) Key() string {
	return p.WalletId + ":" + p.CopayerId
}

// PushSubscription is a device push token registered by a copayer.
type PushSubscription struct {
	CopayerId   string
	Token       string
	PackageName string
	Platform    string
	CreatedAt   int64
}

// Key returns the storage key of the push subscription.
func (s *PushSubscription) Key() string {
	return s.CopayerId + ":" + s.Token
}

// TxConfirmationSub registers the interest of a copayer in the confirmation
// of a transaction. It is an append-only interest record, written without the
// wallet lock.
type TxConfirmationSub struct {
	CopayerId string
	WalletId  string
	TxId      string
	Active    bool
	CreatedAt int64
}

// NewTxConfirmationSub returns an active confirmation subscription.
func NewTxConfirmationSub(copayerId, walletId, txid string) *TxConfirmationSub {
	return &TxConfirmationSub{
		CopayerId: copayerId,
		WalletId:  walletId,
		TxId:      txid,
		Active:    true,
		CreatedAt: time.Now().Unix(),
	}
}

// Key returns the storage key of the confirmation subscription.
func (s *TxConfirmationSub) Key() string {
	return s.CopayerId + ":" + s.TxId
}
