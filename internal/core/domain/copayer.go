package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// Copayer is one of the n parties co-owning a wallet. Its id is derived
// deterministically from the coin and the extended public key so that
// joining twice with the same key material is detectable.
type Copayer struct {
	Id            string
	WalletId      string
	Name          string
	XPub          string
	RequestPubKey string
	Index         int
	CreatedAt     int64
}

// NewCopayer returns a copayer for the given wallet with its deterministic id.
func NewCopayer(wallet *Wallet, name, xpub, requestPubKey string) *Copayer {
	return &Copayer{
		Id:            CopayerId(wallet.Coin, xpub),
		WalletId:      wallet.Id,
		Name:          name,
		XPub:          xpub,
		RequestPubKey: requestPubKey,
		CreatedAt:     time.Now().Unix(),
	}
}

// CopayerId derives the copayer identifier from the coin and the joining
// extended public key.
func CopayerId(coin, xpub string) string {
	hash := sha256.Sum256([]byte(fmt.Sprintf("%s|%s", coin, xpub)))
	return hex.EncodeToString(hash[:])
}
