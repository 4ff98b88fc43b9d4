package faucet

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/rovshanmuradov/compressed-swap/internal/blockchain/solbc"
	"github.com/rovshanmuradov/compressed-swap/internal/blockchain/solbc/rpc"
	"github.com/rovshanmuradov/compressed-swap/internal/events"
	"github.com/rovshanmuradov/compressed-swap/internal/ledger"
	"github.com/rovshanmuradov/compressed-swap/internal/wallet"
)

const (
	nodeA = "https://api.devnet.solana.com"
	nodeB = "https://devnet.helius-rpc.com"
)

type recorder struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recorder) Publish(e events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

type fixture struct {
	faucet *Faucet
	net    *solbc.SimNetwork
	ledger *ledger.Ledger
	events *recorder
	addr   string
}

func newFixture(t *testing.T, urls ...string) *fixture {
	t.Helper()
	logger := zaptest.NewLogger(t)
	pool, err := rpc.NewPool(urls)
	require.NoError(t, err)
	net := solbc.NewSimNetwork(3)
	exec := rpc.NewExecutor(pool, net.Dialer(),
		rpc.WithPolicy(rpc.Policy{MaxRetries: 3, BaseDelay: time.Millisecond}),
		rpc.WithLogger(logger))

	w, err := wallet.NewRandom()
	require.NoError(t, err)

	led := ledger.New()
	rec := &recorder{}
	f := New(exec,
		WithLedger(led),
		WithEvents(rec),
		WithConfirmTimeout(time.Second),
		WithLogger(logger))
	return &fixture{faucet: f, net: net, ledger: led, events: rec, addr: w.Address()}
}

func TestRequestCreditsBalance(t *testing.T) {
	f := newFixture(t, nodeA)

	res, err := f.faucet.Request(context.Background(), f.addr, decimal.NewFromInt(1))
	require.NoError(t, err)

	assert.Equal(t, uint64(0), res.Before)
	assert.Equal(t, uint64(1_000_000_000), res.After)
	assert.True(t, res.Credited().Equal(decimal.NewFromInt(1)))
	assert.Equal(t, nodeA, res.Endpoint)
	assert.NotEmpty(t, res.Signature)

	require.Equal(t, 1, f.ledger.Len())
	rec := res.Record
	assert.Equal(t, ledger.KindAirdrop, rec.Kind)
	assert.Equal(t, ledger.StatusSuccess, rec.Status)
	assert.Contains(t, rec.ExplorerURL, res.Signature)
	assert.False(t, rec.IsCompressed)

	require.Len(t, f.events.events, 1)
	ev, ok := f.events.events[0].(events.BalanceChangedEvent)
	require.True(t, ok)
	assert.Equal(t, f.addr, ev.WalletAddress)
	assert.Equal(t, uint64(1_000_000_000), ev.NewBalance)
}

func TestRequestCapsAmount(t *testing.T) {
	f := newFixture(t, nodeA)

	res, err := f.faucet.Request(context.Background(), f.addr, decimal.NewFromInt(5))
	require.NoError(t, err)
	assert.True(t, res.Requested.Equal(decimal.NewFromInt(MaxAirdropSOL)))
	assert.Equal(t, uint64(2_000_000_000), res.After-res.Before)
}

func TestRequestMovesToNextEndpoint(t *testing.T) {
	f := newFixture(t, nodeA, nodeB)
	f.net.Node(nodeA).FailNext(solbc.MethodAirdrop, errors.New("airdrop request limit reached"))

	res, err := f.faucet.Request(context.Background(), f.addr, decimal.RequireFromString("0.5"))
	require.NoError(t, err)
	assert.Equal(t, nodeB, res.Endpoint)
	assert.Equal(t, 1, f.net.Node(nodeA).Calls(solbc.MethodAirdrop))
	assert.Equal(t, 1, f.net.Node(nodeB).Calls(solbc.MethodAirdrop))
}

func TestRequestFailsAfterEveryEndpoint(t *testing.T) {
	f := newFixture(t, nodeA, nodeB)
	f.net.Node(nodeA).SetDown(true)
	f.net.Node(nodeB).SetDown(true)

	_, err := f.faucet.Request(context.Background(), f.addr, decimal.NewFromInt(1))
	require.ErrorIs(t, err, ErrAirdropFailed)

	calls := f.net.Node(nodeA).Calls(solbc.MethodBalance) + f.net.Node(nodeB).Calls(solbc.MethodBalance)
	assert.Equal(t, 4, calls)

	all := f.ledger.All()
	require.Len(t, all, 1)
	assert.Equal(t, ledger.StatusFailed, all[0].Status)
	assert.Empty(t, f.events.events)
}

func TestRequestRejectsBadInput(t *testing.T) {
	f := newFixture(t, nodeA)

	_, err := f.faucet.Request(context.Background(), f.addr, decimal.Zero)
	assert.ErrorIs(t, err, ErrInvalidAmount)
	_, err = f.faucet.Request(context.Background(), "not-an-address", decimal.NewFromInt(1))
	assert.ErrorIs(t, err, ErrInvalidAddress)
	assert.Zero(t, f.ledger.Len())
}

func TestRequestCanceled(t *testing.T) {
	f := newFixture(t, nodeA)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.faucet.Request(ctx, f.addr, decimal.NewFromInt(1))
	assert.ErrorIs(t, err, context.Canceled)
}
