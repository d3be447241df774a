package domain

import (
	"time"

	"github.com/google/uuid"
)

const (
	// WalletStatusPending is the status of a wallet waiting for all copayers to join.
	WalletStatusPending = "pending"
	// WalletStatusComplete is the status of a wallet with all its copayers joined.
	WalletStatusComplete = "complete"

	// MaxCopayers is the policy ceiling for the total number of copayers of a wallet.
	MaxCopayers = 15

	// DefaultDerivationScheme is the derivation scheme tag used for new wallets.
	DefaultDerivationScheme = "BIP44"
)

// Wallet is the data structure representing an m-of-n multisig wallet shared
// by a list of copayers. The copayer list is ordered by join time and becomes
// immutable once the wallet is complete.
type Wallet struct {
	Id               string
	Name             string
	Coin             string
	Network          string
	M                int
	N                int
	DerivationScheme string
	Status           string
	Copayers         []Copayer
	// NextAddressIndex is the monotonic per-wallet derivation counter. It only
	// ever grows, so no two addresses of the same wallet can share an index.
	NextAddressIndex uint32
	SingleAddress    bool
	CreatedAt        int64
}

// NewWallet returns a pending wallet with no copayers after validating the
// m-of-n policy.
func NewWallet(
	name, coin, network string, m, n int, singleAddress bool,
) (*Wallet, error) {
	if m < 1 || m > n {
		return nil, ErrWalletInvalidMN
	}
	if n > MaxCopayers {
		return nil, ErrWalletTooManyCopayers
	}

	return &Wallet{
		Id:               uuid.New().String(),
		Name:             name,
		Coin:             coin,
		Network:          network,
		M:                m,
		N:                n,
		DerivationScheme: DefaultDerivationScheme,
		Status:           WalletStatusPending,
		Copayers:         make([]Copayer, 0, n),
		SingleAddress:    singleAddress,
		CreatedAt:        time.Now().Unix(),
	}, nil
}

// IsComplete returns whether all n copayers have joined the wallet.
func (w *Wallet) IsComplete() bool {
	return w.Status == WalletStatusComplete
}

// AddCopayer appends a copayer to the wallet, assigning it the next join
// index. The wallet becomes complete when the n-th copayer joins.
func (w *Wallet) AddCopayer(c *Copayer) error {
	if _, ok := w.CopayerById(c.Id); ok {
		return ErrCopayerAlreadyInWallet
	}
	if w.IsComplete() || len(w.Copayers) >= w.N {
		return ErrWalletFull
	}

	c.Index = len(w.Copayers)
	w.Copayers = append(w.Copayers, *c)
	if len(w.Copayers) == w.N {
		w.Status = WalletStatusComplete
	}
	return nil
}

// CopayerById returns the copayer with the given id, if it joined the wallet.
func (w *Wallet) CopayerById(id string) (*Copayer, bool) {
	for i := range w.Copayers {
		if w.Copayers[i].Id == id {
			return &w.Copayers[i], true
		}
	}
	return nil, false
}

// Creator returns the copayer that created the wallet, ie. the first joiner.
func (w *Wallet) Creator() *Copayer {
	if len(w.Copayers) <= 0 {
		return nil
	}
	return &w.Copayers[0]
}

// AdvanceAddressIndex returns the next unused derivation index and advances
// the counter. Callers must persist the wallet afterwards while holding the
// wallet lock.
func (w *Wallet) AdvanceAddressIndex() uint32 {
	index := w.NextAddressIndex
	w.NextAddressIndex++
	return index
}
