package domain_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/copays/copayd/internal/core/domain"
)

func TestNewWallet(t *testing.T) {
	t.Parallel()

	wallet, err := domain.NewWallet("shared", "btc", "mainnet", 2, 3, false)
	require.NoError(t, err)
	require.NotEmpty(t, wallet.Id)
	require.Equal(t, domain.WalletStatusPending, wallet.Status)
	require.Equal(t, 2, wallet.M)
	require.Equal(t, 3, wallet.N)
	require.Equal(t, domain.DefaultDerivationScheme, wallet.DerivationScheme)
	require.Empty(t, wallet.Copayers)
	require.False(t, wallet.IsComplete())
}

func TestFailingNewWallet(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		m           int
		n           int
		expectedErr error
	}{
		{
			name:        "m_greater_than_n",
			m:           3,
			n:           2,
			expectedErr: domain.ErrWalletInvalidMN,
		},
		{
			name:        "m_zero",
			m:           0,
			n:           2,
			expectedErr: domain.ErrWalletInvalidMN,
		},
		{
			name:        "m_negative",
			m:           -1,
			n:           2,
			expectedErr: domain.ErrWalletInvalidMN,
		},
		{
			name:        "too_many_copayers",
			m:           2,
			n:           domain.MaxCopayers + 1,
			expectedErr: domain.ErrWalletTooManyCopayers,
		},
	}

	for i := range tests {
		tt := tests[i]

		t.Run(tt.name, func(t *testing.T) {
			wallet, err := domain.NewWallet("shared", "btc", "mainnet", tt.m, tt.n, false)
			require.Nil(t, wallet)
			require.EqualError(t, err, tt.expectedErr.Error())
		})
	}
}

func TestAddCopayer(t *testing.T) {
	t.Parallel()

	wallet, err := domain.NewWallet("shared", "btc", "mainnet", 2, 3, false)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		copayer := newCopayerForWallet(wallet, i)
		require.NoError(t, wallet.AddCopayer(copayer))
		require.Equal(t, i, copayer.Index)
	}

	require.True(t, wallet.IsComplete())
	require.Len(t, wallet.Copayers, 3)
	require.Equal(t, wallet.Copayers[0].Id, wallet.Creator().Id)
}

func TestFailingAddCopayer(t *testing.T) {
	t.Parallel()

	t.Run("duplicated_copayer", func(t *testing.T) {
		wallet, err := domain.NewWallet("shared", "btc", "mainnet", 2, 3, false)
		require.NoError(t, err)

		copayer := newCopayerForWallet(wallet, 0)
		require.NoError(t, wallet.AddCopayer(copayer))

		rejoining := domain.NewCopayer(wallet, "other name", copayer.XPub, "reqkey")
		err = wallet.AddCopayer(rejoining)
		require.EqualError(t, err, domain.ErrCopayerAlreadyInWallet.Error())
	})

	t.Run("wallet_full", func(t *testing.T) {
		wallet, err := domain.NewWallet("shared", "btc", "mainnet", 1, 2, false)
		require.NoError(t, err)

		require.NoError(t, wallet.AddCopayer(newCopayerForWallet(wallet, 0)))
		require.NoError(t, wallet.AddCopayer(newCopayerForWallet(wallet, 1)))
		require.True(t, wallet.IsComplete())

		err = wallet.AddCopayer(newCopayerForWallet(wallet, 2))
		require.EqualError(t, err, domain.ErrWalletFull.Error())
	})
}

func TestAdvanceAddressIndex(t *testing.T) {
	t.Parallel()

	wallet, err := domain.NewWallet("shared", "btc", "mainnet", 1, 1, false)
	require.NoError(t, err)

	require.Equal(t, uint32(0), wallet.AdvanceAddressIndex())
	require.Equal(t, uint32(1), wallet.AdvanceAddressIndex())
	require.Equal(t, uint32(2), wallet.NextAddressIndex)
}

func TestCopayerId(t *testing.T) {
	t.Parallel()

	id := domain.CopayerId("btc", "xpub000")
	require.Equal(t, domain.CopayerId("btc", "xpub000"), id)
	require.NotEqual(t, domain.CopayerId("btc", "xpub001"), id)
	require.NotEqual(t, domain.CopayerId("bch", "xpub000"), id)
}

func newCopayerForWallet(wallet *domain.Wallet, i int) *domain.Copayer {
	return domain.NewCopayer(
		wallet,
		fmt.Sprintf("copayer %d", i),
		fmt.Sprintf("xpub%03d", i),
		fmt.Sprintf("reqkey%03d", i),
	)
}
