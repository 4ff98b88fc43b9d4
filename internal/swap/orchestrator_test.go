package swap

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/rovshanmuradov/compressed-swap/internal/blockchain"
	"github.com/rovshanmuradov/compressed-swap/internal/blockchain/solbc"
	"github.com/rovshanmuradov/compressed-swap/internal/blockchain/solbc/rpc"
	"github.com/rovshanmuradov/compressed-swap/internal/compression"
	"github.com/rovshanmuradov/compressed-swap/internal/events"
	"github.com/rovshanmuradov/compressed-swap/internal/ledger"
	"github.com/rovshanmuradov/compressed-swap/internal/quote"
	"github.com/rovshanmuradov/compressed-swap/internal/signature"
	"github.com/rovshanmuradov/compressed-swap/internal/wallet"
)

const devnetURL = "https://api.devnet.solana.com"

type fixture struct {
	orch   *Orchestrator
	ledger *ledger.Ledger
	market *quote.Market
	net    *solbc.SimNetwork
	exec   *rpc.Executor
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.SwapCooldown = 0
	cfg.ConfirmTimeout = 500 * time.Millisecond
	cfg.ResetWindow = time.Hour
	cfg.DecompressDelay = 0
	cfg.ExecuteDelay = 0
	cfg.CompressDelay = 0
	return cfg
}

func newFixture(t *testing.T, cfg Config, signer blockchain.Signer, deps Deps, urls ...string) *fixture {
	t.Helper()
	if len(urls) == 0 {
		urls = []string{devnetURL}
	}
	logger := zaptest.NewLogger(t)

	pool, err := rpc.NewPool(urls, rpc.WithPoolLogger(logger))
	require.NoError(t, err)
	net := solbc.NewSimNetwork(11)
	exec := rpc.NewExecutor(pool, net.Dialer(),
		rpc.WithPolicy(rpc.Policy{MaxRetries: 3, BaseDelay: time.Millisecond}),
		rpc.WithLogger(logger))

	market := quote.DefaultMarket()
	led := ledger.New()

	deps.Executor = exec
	deps.Signer = signer
	deps.Estimator = quote.NewEstimator(market)
	deps.Ledger = led
	deps.Logger = logger
	orch, err := New(cfg, deps)
	require.NoError(t, err)
	t.Cleanup(orch.Close)

	return &fixture{orch: orch, ledger: led, market: market, net: net, exec: exec}
}

func solToUSDC(amount string, compress bool) Request {
	return Request{
		From:        "SOL",
		To:          "USDC",
		Amount:      decimal.RequireFromString(amount),
		SlippageBps: 50,
		Compress:    compress,
	}
}

func newWallet(t *testing.T) *wallet.Wallet {
	t.Helper()
	w, err := wallet.NewRandom()
	require.NoError(t, err)
	return w
}

func TestNewRequiresEstimatorAndLedger(t *testing.T) {
	_, err := New(DefaultConfig(), Deps{Ledger: ledger.New()})
	assert.Error(t, err)
	_, err = New(DefaultConfig(), Deps{Estimator: quote.NewEstimator(quote.DefaultMarket())})
	assert.Error(t, err)
}

func TestSubmitWithoutSignerRunsDemoPath(t *testing.T) {
	f := newFixture(t, testConfig(), wallet.Disconnected{}, Deps{})

	out, err := f.orch.Submit(context.Background(), solToUSDC("1", false))
	require.NoError(t, err)
	require.True(t, out.Confirmed(), "outcome: %+v", out)

	rec := out.Record
	assert.True(t, rec.IsSimulated)
	assert.True(t, signature.NewValidator().IsSimulated(rec.TransactionID))
	assert.Equal(t, ledger.StatusSuccess, rec.Status)
	assert.False(t, rec.IsCompressed)
	assert.Nil(t, rec.Metrics)
	assert.Equal(t, compression.RegularFee, rec.NetworkFee)
	assert.Empty(t, rec.ExplorerURL)
	assert.Equal(t, "169.15", rec.OutputAmount.String())

	assert.Equal(t, 1, f.ledger.Len())
	assert.Zero(t, f.net.Node(devnetURL).Calls(solbc.MethodSend))
	assert.Equal(t, PhaseConfirmed, f.orch.Phase())
	assert.False(t, f.orch.Busy())
}

func TestSubmitDemoCompressedCarriesMetrics(t *testing.T) {
	f := newFixture(t, testConfig(), nil, Deps{})

	out, err := f.orch.Submit(context.Background(), solToUSDC("0.5", true))
	require.NoError(t, err)
	require.True(t, out.Confirmed())

	rec := out.Record
	require.NotNil(t, rec.Metrics)
	assert.True(t, rec.IsCompressed)
	assert.NoError(t, rec.Metrics.Validate())
	assert.Equal(t, rec.Metrics.CompressedFee, rec.NetworkFee)
	assert.LessOrEqual(t, rec.NetworkFee, compression.RegularFee)
}

func TestSubmitRequireSignerFails(t *testing.T) {
	cfg := testConfig()
	cfg.RequireSigner = true
	f := newFixture(t, cfg, wallet.Disconnected{}, Deps{})

	out, err := f.orch.Submit(context.Background(), solToUSDC("1", true))
	require.NoError(t, err)
	require.True(t, out.Failed())

	assert.Equal(t, KindSigner, out.Kind)
	assert.Equal(t, MsgSigner, out.Message)
	assert.True(t, blockchain.IsSignerError(out.Err))
	assert.Equal(t, ledger.StatusFailed, out.Record.Status)
	assert.True(t, out.Record.IsSimulated)
	assert.False(t, out.Record.IsCompressed)
	assert.Equal(t, 1, f.ledger.Len())
}

func TestSubmitWalletPath(t *testing.T) {
	w := newWallet(t)
	f := newFixture(t, testConfig(), w, Deps{})

	out, err := f.orch.Submit(context.Background(), solToUSDC("1", true))
	require.NoError(t, err)
	require.True(t, out.Confirmed(), "outcome: %+v", out)

	rec := out.Record
	assert.False(t, rec.IsSimulated)
	assert.True(t, signature.IsNative(rec.TransactionID))
	assert.Equal(t, devnetURL, rec.Endpoint)
	assert.False(t, rec.IsLocal)
	assert.Contains(t, rec.ExplorerURL, rec.TransactionID)
	assert.Contains(t, rec.ExplorerURL, "?cluster=devnet")
	require.NotNil(t, rec.Metrics)

	node := f.net.Node(devnetURL)
	require.Len(t, node.Sent(), 1)
	assert.Equal(t, w.Address(), node.Sent()[0].Operation.Payer)
	assert.Equal(t, 1, node.Calls(solbc.MethodConfirm))

	// demo balances follow the swap
	assert.True(t, f.market.BalanceOf("SOL").LessThan(decimal.RequireFromString("2.5")))
}

func TestSubmitFallsBackToDemoWhenNoEndpointAnswers(t *testing.T) {
	f := newFixture(t, testConfig(), newWallet(t), Deps{})
	f.net.Node(devnetURL).SetDown(true)

	out, err := f.orch.Submit(context.Background(), solToUSDC("1", false))
	require.NoError(t, err)
	require.True(t, out.Confirmed())
	assert.True(t, out.Record.IsSimulated)
}

func TestSubmitRateLimitedFailsWithMessage(t *testing.T) {
	f := newFixture(t, testConfig(), newWallet(t), Deps{})
	node := f.net.Node(devnetURL)
	rl := &rpc.RateLimitedError{Endpoint: devnetURL, Err: errors.New("429 Too Many Requests")}
	node.FailNext(solbc.MethodSend, rl, rl, rl)

	out, err := f.orch.Submit(context.Background(), solToUSDC("1", true))
	require.NoError(t, err)
	require.True(t, out.Failed())

	assert.Equal(t, KindRateLimited, out.Kind)
	assert.Equal(t, MsgRateLimited, out.Message)
	assert.Equal(t, 3, node.Calls(solbc.MethodSend))

	rec := out.Record
	assert.Equal(t, ledger.StatusFailed, rec.Status)
	assert.Equal(t, string(KindRateLimited), rec.ErrorKind)
	assert.False(t, rec.IsSimulated)
	assert.Nil(t, rec.Metrics)
	assert.Equal(t, 1, f.ledger.Len())
}

func TestSubmitConfirmTimeoutCountsAsSuccess(t *testing.T) {
	cfg := testConfig()
	cfg.ConfirmTimeout = 20 * time.Millisecond
	f := newFixture(t, cfg, newWallet(t), Deps{})
	f.net.Node(devnetURL).SetConfirmDelay(time.Second)

	out, err := f.orch.Submit(context.Background(), solToUSDC("1", false))
	require.NoError(t, err)
	require.True(t, out.Confirmed(), "outcome: %+v", out)
	assert.False(t, out.Record.IsSimulated)

	ep, ok := f.exec.Pool().Get(devnetURL)
	require.True(t, ok)
	assert.Zero(t, ep.Failures)
}

func TestSubmitOnChainFailure(t *testing.T) {
	f := newFixture(t, testConfig(), newWallet(t), Deps{})
	f.net.Node(devnetURL).SetConfirmError(errors.New("InstructionError: custom program error 0x1"))

	out, err := f.orch.Submit(context.Background(), solToUSDC("1", true))
	require.NoError(t, err)
	require.True(t, out.Failed())

	assert.Equal(t, KindOnChain, out.Kind)
	assert.Equal(t, MsgOnChain, out.Message)
	assert.Contains(t, out.Record.Error, "custom program error")
	assert.NotEmpty(t, out.Record.TransactionID)
	assert.Empty(t, out.Record.ExplorerURL)
}

func TestSubmitConfirmRequestErrorFails(t *testing.T) {
	f := newFixture(t, testConfig(), newWallet(t), Deps{})
	f.net.Node(devnetURL).FailNext(solbc.MethodConfirm, errors.New("signature status unavailable"))

	out, err := f.orch.Submit(context.Background(), solToUSDC("1", false))
	require.NoError(t, err)
	require.True(t, out.Failed())
	assert.Equal(t, ledger.StatusFailed, out.Record.Status)
	assert.Contains(t, out.Record.Error, "signature status unavailable")
	assert.Equal(t, 1, f.net.Node(devnetURL).Calls(solbc.MethodConfirm))
}

func TestSubmitValidationLeavesNoRecord(t *testing.T) {
	f := newFixture(t, testConfig(), nil, Deps{})

	cases := []Request{
		solToUSDC("0", false),
		{From: "SOL", To: "SOL", Amount: decimal.NewFromInt(1), SlippageBps: 50},
		{From: "SOL", To: "USDC", Amount: decimal.NewFromInt(1), SlippageBps: 5000},
		{From: "DOGE", To: "USDC", Amount: decimal.NewFromInt(1), SlippageBps: 50},
	}
	for i, req := range cases {
		t.Run(fmt.Sprint(i), func(t *testing.T) {
			_, err := f.orch.Submit(context.Background(), req)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}
	assert.Zero(t, f.ledger.Len())
	assert.Equal(t, PhaseIdle, f.orch.Phase())
}

func TestSubmitRejectsReentrantOperation(t *testing.T) {
	cfg := testConfig()
	cfg.ExecuteDelay = 200 * time.Millisecond
	f := newFixture(t, cfg, nil, Deps{})

	done := make(chan Outcome, 1)
	go func() {
		out, _ := f.orch.Submit(context.Background(), solToUSDC("1", false))
		done <- out
	}()
	require.Eventually(t, f.orch.Busy, time.Second, time.Millisecond)

	_, err := f.orch.Submit(context.Background(), solToUSDC("2", false))
	assert.ErrorIs(t, err, ErrOperationInFlight)

	out := <-done
	assert.True(t, out.Confirmed())
	assert.Equal(t, 1, f.ledger.Len())
}

func TestSubmitAllowedDuringDisplayWindow(t *testing.T) {
	f := newFixture(t, testConfig(), nil, Deps{})

	first, err := f.orch.Submit(context.Background(), solToUSDC("1", false))
	require.NoError(t, err)
	require.Equal(t, PhaseConfirmed, f.orch.Phase())

	second, err := f.orch.Submit(context.Background(), solToUSDC("0.1", false))
	require.NoError(t, err)

	all := f.ledger.All()
	require.Len(t, all, 2)
	assert.Equal(t, second.Record.ID, all[0].ID)
	assert.Equal(t, first.Record.ID, all[1].ID)
	assert.NotEqual(t, first.OperationID, second.OperationID)
}

func TestPhaseResetsToIdleAfterWindow(t *testing.T) {
	cfg := testConfig()
	cfg.ResetWindow = 20 * time.Millisecond
	f := newFixture(t, cfg, nil, Deps{})

	_, err := f.orch.Submit(context.Background(), solToUSDC("1", false))
	require.NoError(t, err)
	assert.Eventually(t, func() bool { return f.orch.Phase() == PhaseIdle },
		time.Second, 5*time.Millisecond)
}

func TestSubmitCanceledContext(t *testing.T) {
	f := newFixture(t, testConfig(), nil, Deps{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out, err := f.orch.Submit(ctx, solToUSDC("1", false))
	require.NoError(t, err)
	require.True(t, out.Failed())
	assert.Equal(t, KindCanceled, out.Kind)
	assert.Equal(t, 1, f.ledger.Len())
}

func TestSubmitCanceledBeforePathKeepsConfiguredPath(t *testing.T) {
	f := newFixture(t, testConfig(), newWallet(t), Deps{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out, err := f.orch.Submit(ctx, solToUSDC("1", false))
	require.NoError(t, err)
	require.True(t, out.Failed())
	assert.Equal(t, KindCanceled, out.Kind)
	assert.False(t, out.Record.IsSimulated)
	assert.Zero(t, f.net.Node(devnetURL).Calls(solbc.MethodHealth))

	demo := newFixture(t, testConfig(), wallet.Disconnected{}, Deps{})
	out, err = demo.orch.Submit(ctx, solToUSDC("1", false))
	require.NoError(t, err)
	assert.True(t, out.Record.IsSimulated)
}

func TestSwapCooldownSpacesOperations(t *testing.T) {
	cfg := testConfig()
	cfg.SwapCooldown = 100 * time.Millisecond
	f := newFixture(t, cfg, nil, Deps{})

	start := time.Now()
	for i := 0; i < 2; i++ {
		out, err := f.orch.Submit(context.Background(), solToUSDC("0.1", false))
		require.NoError(t, err)
		require.True(t, out.Confirmed())
	}
	assert.GreaterOrEqual(t, time.Since(start), 90*time.Millisecond)
}

func TestPhaseEventsInOrder(t *testing.T) {
	bus := events.NewBus(zap.NewNop(), 64)
	defer bus.Shutdown(context.Background())
	ch, sub := bus.Channel(32, events.PhaseChanged, events.OperationCompleted)
	defer sub.Unsubscribe()

	f := newFixture(t, testConfig(), nil, Deps{Events: bus})
	out, err := f.orch.Submit(context.Background(), solToUSDC("1", true))
	require.NoError(t, err)
	require.True(t, out.Confirmed())

	var phases []string
	timeout := time.After(time.Second)
	for {
		select {
		case e := <-ch:
			switch ev := e.(type) {
			case events.PhaseChangedEvent:
				assert.Equal(t, out.OperationID, ev.OperationID)
				phases = append(phases, ev.To)
			case events.OperationCompletedEvent:
				assert.Equal(t, out.Record.ID, ev.Record.ID)
				assert.Equal(t, []string{"preparing", "decompressing", "executing", "compressing", "confirmed"}, phases)
				return
			}
		case <-timeout:
			t.Fatalf("completion event not received, phases so far: %v", phases)
		}
	}
}

func TestMetricsCountOutcomes(t *testing.T) {
	metrics := NewMetrics(prometheus.NewRegistry())
	f := newFixture(t, testConfig(), nil, Deps{Metrics: metrics})

	_, err := f.orch.Submit(context.Background(), solToUSDC("1", false))
	require.NoError(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.operations.WithLabelValues("confirmed", "demo", "")))
	assert.Equal(t, 0.0, testutil.ToFloat64(metrics.inFlight))
}

func TestSessionConnect(t *testing.T) {
	local := "http://127.0.0.1:8899"
	f := newFixture(t, testConfig(), newWallet(t), Deps{}, local, devnetURL)
	f.net.Node(local).SetDown(true)

	s := NewSession(f.orch)
	st := s.Connect(context.Background())

	assert.True(t, st.Connected)
	assert.False(t, st.DemoMode)
	assert.Equal(t, []string{devnetURL}, st.Healthy)
	assert.Equal(t, devnetURL, st.Endpoint)
	assert.Equal(t, solbc.ClusterDevnet, st.Network)
	assert.False(t, st.IsLocal)
	assert.NotEmpty(t, st.Wallet)
	assert.True(t, st.BalanceSynced)
	assert.Equal(t, st, s.Status())
}

func TestSessionConnectWithoutEndpoints(t *testing.T) {
	orch, err := New(testConfig(), Deps{
		Estimator: quote.NewEstimator(quote.DefaultMarket()),
		Ledger:    ledger.New(),
	})
	require.NoError(t, err)
	defer orch.Close()

	s := NewSession(orch)
	st := s.Connect(context.Background())
	assert.False(t, st.Connected)
	assert.True(t, st.DemoMode)

	out, err := s.Submit(context.Background(), solToUSDC("1", false))
	require.NoError(t, err)
	assert.True(t, out.Confirmed())
	assert.True(t, out.Record.IsSimulated)
}
