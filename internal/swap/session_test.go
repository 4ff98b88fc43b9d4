package swap

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rovshanmuradov/compressed-swap/internal/blockchain/solbc"
	"github.com/rovshanmuradov/compressed-swap/internal/quote"
	"github.com/rovshanmuradov/compressed-swap/internal/wallet"
)

func TestSessionConnectReadsWalletBalance(t *testing.T) {
	w := newWallet(t)
	f := newFixture(t, testConfig(), w, Deps{})
	f.net.Node(devnetURL).SetBalance(w.Address(), 3_000_000_000)

	s := NewSession(f.orch)
	st := s.Connect(context.Background())
	require.True(t, st.Connected)
	assert.False(t, st.DemoMode)
	require.True(t, st.BalanceSynced)
	assert.Equal(t, "3", st.Balance.String())
	assert.True(t, f.market.BalanceOf("SOL").Equal(decimal.NewFromInt(3)))

	// the chain balance bounds what a swap may spend
	err := f.market.Settle("SOL", decimal.NewFromInt(4), "USDC", decimal.NewFromInt(680))
	assert.ErrorIs(t, err, quote.ErrInsufficientBalance)
	assert.NoError(t, f.market.Settle("SOL", decimal.NewFromInt(2), "USDC", decimal.NewFromInt(340)))
}

func TestSessionSubmitRefreshesWalletBalance(t *testing.T) {
	w := newWallet(t)
	f := newFixture(t, testConfig(), w, Deps{})
	node := f.net.Node(devnetURL)
	node.SetBalance(w.Address(), 5_000_000_000)

	s := NewSession(f.orch)
	s.Connect(context.Background())

	node.SetBalance(w.Address(), 4_500_000_000)
	out, err := s.Submit(context.Background(), solToUSDC("1", false))
	require.NoError(t, err)
	require.True(t, out.Confirmed())
	assert.False(t, out.Record.IsSimulated)

	assert.Equal(t, "4.5", f.market.BalanceOf("SOL").String())
	assert.Equal(t, 2, node.Calls(solbc.MethodBalance))
}

func TestSessionConnectWithoutWalletKeepsSeededBalance(t *testing.T) {
	f := newFixture(t, testConfig(), wallet.Disconnected{}, Deps{})

	s := NewSession(f.orch)
	st := s.Connect(context.Background())
	assert.True(t, st.DemoMode)
	assert.False(t, st.BalanceSynced)
	assert.Zero(t, f.net.Node(devnetURL).Calls(solbc.MethodBalance))
	assert.Equal(t, "2.5", f.market.BalanceOf("SOL").String())

	_, err := s.SyncBalance(context.Background())
	assert.ErrorIs(t, err, ErrNoWallet)
}

func TestSessionConnectBalanceReadFailure(t *testing.T) {
	w := newWallet(t)
	f := newFixture(t, testConfig(), w, Deps{})
	f.net.Node(devnetURL).FailNext(solbc.MethodBalance, errors.New("account lookup failed"))

	st := NewSession(f.orch).Connect(context.Background())
	assert.True(t, st.Connected)
	assert.False(t, st.BalanceSynced)
	assert.Equal(t, "2.5", f.market.BalanceOf("SOL").String())
}
