package solbc

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rovshanmuradov/compressed-swap/internal/blockchain"
	"github.com/rovshanmuradov/compressed-swap/internal/blockchain/solbc/rpc"
)

func TestSimulatorSignaturesLookReal(t *testing.T) {
	sim := NewSimulator("http://sim", 42)
	for i := 0; i < 50; i++ {
		sig, err := sim.Send(context.Background(), &blockchain.SignedOperation{})
		require.NoError(t, err)
		assert.Contains(t, []int{87, 88}, len(sig))
	}
	assert.Len(t, sim.Sent(), 50)
	assert.Equal(t, 50, sim.Calls(MethodSend))
}

func TestSimulatorIsDeterministic(t *testing.T) {
	a := NewSimulator("http://sim", 7)
	b := NewSimulator("http://sim", 7)
	for i := 0; i < 5; i++ {
		sa, _ := a.Send(context.Background(), &blockchain.SignedOperation{})
		sb, _ := b.Send(context.Background(), &blockchain.SignedOperation{})
		assert.Equal(t, sa, sb)
	}
}

func TestSimulatorScriptedFailures(t *testing.T) {
	sim := NewSimulator("http://sim", 1)
	boom := errors.New("boom")
	sim.FailNext(MethodBlockhash, boom, rpc.ErrTimeout)

	_, err := sim.LatestBlockhash(context.Background())
	assert.ErrorIs(t, err, boom)
	_, err = sim.LatestBlockhash(context.Background())
	assert.ErrorIs(t, err, rpc.ErrTimeout)
	hash, err := sim.LatestBlockhash(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, hash)
	assert.Equal(t, 3, sim.Calls(MethodBlockhash))
}

func TestSimulatorDown(t *testing.T) {
	sim := NewSimulator("http://sim", 1)
	sim.SetDown(true)
	assert.ErrorIs(t, sim.Health(context.Background()), ErrNodeDown)
	sim.SetDown(false)
	assert.NoError(t, sim.Health(context.Background()))
}

func TestSimulatorAirdropCreditsBalance(t *testing.T) {
	sim := NewSimulator("http://sim", 1)
	sim.SetBalance("wallet", 5)

	_, err := sim.RequestAirdrop(context.Background(), "wallet", 10)
	require.NoError(t, err)
	bal, err := sim.GetBalance(context.Background(), "wallet")
	require.NoError(t, err)
	assert.Equal(t, uint64(15), bal)
}

func TestSimulatorConfirmDelayRespectsContext(t *testing.T) {
	sim := NewSimulator("http://sim", 1)
	sim.SetConfirmDelay(time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := sim.Confirm(ctx, "sig")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestSimulatorConfirmReportsOnChainError(t *testing.T) {
	sim := NewSimulator("http://sim", 1)
	sim.SetConfirmError(errors.New("custom program error: 0x1"))

	res, err := sim.Confirm(context.Background(), "sig")
	require.NoError(t, err)
	assert.Error(t, res.Err)
	assert.Equal(t, "sig", res.Identifier)
}

func TestSimNetworkWithExecutor(t *testing.T) {
	network := NewSimNetwork(3)
	network.Node("http://a").FailNext(MethodSend, &rpc.RateLimitedError{Endpoint: "http://a", Err: errors.New("429")})

	pool, err := rpc.NewPool([]string{"http://a", "http://b"})
	require.NoError(t, err)
	exec := rpc.NewExecutor(pool, network.Dialer(),
		rpc.WithPolicy(rpc.Policy{MaxRetries: 3, BaseDelay: time.Millisecond, MaxJitter: time.Millisecond}))

	sig, err := rpc.Execute(context.Background(), exec, "send",
		func(ctx context.Context, c blockchain.Connection) (string, error) {
			return c.Send(ctx, &blockchain.SignedOperation{})
		})
	require.NoError(t, err)
	assert.NotEmpty(t, sig)

	assert.Equal(t, 1, network.Node("http://a").Calls(MethodSend))
	assert.Equal(t, 1, network.Node("http://b").Calls(MethodSend))

	ep, _ := pool.Get("http://a")
	assert.Equal(t, 1, ep.RateLimited)
}
