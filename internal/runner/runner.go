// internal/runner/runner.go
package runner

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/compressed-swap/internal/blockchain"
	"github.com/rovshanmuradov/compressed-swap/internal/blockchain/solbc"
	"github.com/rovshanmuradov/compressed-swap/internal/blockchain/solbc/rpc"
	"github.com/rovshanmuradov/compressed-swap/internal/config"
	"github.com/rovshanmuradov/compressed-swap/internal/events"
	"github.com/rovshanmuradov/compressed-swap/internal/export"
	"github.com/rovshanmuradov/compressed-swap/internal/faucet"
	"github.com/rovshanmuradov/compressed-swap/internal/ledger"
	"github.com/rovshanmuradov/compressed-swap/internal/quote"
	"github.com/rovshanmuradov/compressed-swap/internal/swap"
	"github.com/rovshanmuradov/compressed-swap/internal/wallet"
)

const (
	eventBuffer     = 256
	shutdownTimeout = 10 * time.Second
)

// Runner owns every long-lived component of the swap engine.
type Runner struct {
	Config   *config.Config
	Logger   *zap.Logger
	Registry *prometheus.Registry

	Pool         *rpc.Pool
	Executor     *rpc.Executor
	Signer       blockchain.Signer
	Bus          *events.Bus
	Ledger       *ledger.Ledger
	Estimator    *quote.Estimator
	Orchestrator *swap.Orchestrator
	Session      *swap.Session
	Faucet       *faucet.Faucet
	Exporter     *export.Exporter

	shutdown *ShutdownHandler
}

// Option configures a Runner.
type Option func(*options)

type options struct {
	dialer   blockchain.Dialer
	signer   blockchain.Signer
	registry *prometheus.Registry
	approver wallet.Approver
}

// WithDialer replaces the solana-go dialer, e.g. with a simulated network.
func WithDialer(d blockchain.Dialer) Option {
	return func(o *options) { o.dialer = d }
}

// WithSimulatedNetwork routes every endpoint to an in-memory node seeded
// with seed, for running the engine offline.
func WithSimulatedNetwork(seed uint64) Option {
	return WithDialer(solbc.NewSimNetwork(seed).Dialer())
}

// WithSigner replaces the signer loaded from the configuration.
func WithSigner(s blockchain.Signer) Option {
	return func(o *options) { o.signer = s }
}

// WithRegistry registers metrics on reg instead of a fresh registry.
func WithRegistry(reg *prometheus.Registry) Option {
	return func(o *options) { o.registry = reg }
}

// WithApprover asks fn before the loaded wallet signs anything.
func WithApprover(fn wallet.Approver) Option {
	return func(o *options) { o.approver = fn }
}

// New wires the engine described by cfg.
func New(cfg *config.Config, logger *zap.Logger, opts ...Option) (*Runner, error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	if o.dialer == nil {
		o.dialer = solbc.Dialer(logger)
	}
	if o.registry == nil {
		o.registry = prometheus.NewRegistry()
		o.registry.MustRegister(collectors.NewGoCollector())
	}

	signer := o.signer
	if signer == nil {
		var err error
		signer, err = LoadSigner(cfg, o.approver)
		if err != nil {
			return nil, err
		}
	}

	pool, err := rpc.NewPool(cfg.RPCList, append(cfg.PoolOptions(), rpc.WithPoolLogger(logger))...)
	if err != nil {
		return nil, fmt.Errorf("endpoint pool: %w", err)
	}
	exec := rpc.NewExecutor(pool, o.dialer,
		rpc.WithPolicy(cfg.RetryPolicy()),
		rpc.WithMetrics(rpc.NewMetrics(o.registry)),
		rpc.WithLogger(logger))

	market := quote.DefaultMarket()
	if err := cfg.ApplyTokens(market); err != nil {
		return nil, err
	}
	if err := cfg.ApplyPrices(market); err != nil {
		return nil, err
	}
	estimator := quote.NewEstimator(market)

	bus := events.NewBus(logger, eventBuffer)
	led := ledger.New()

	orch, err := swap.New(cfg.SwapConfig(), swap.Deps{
		Executor:  exec,
		Signer:    signer,
		Estimator: estimator,
		Ledger:    led,
		Events:    bus,
		Metrics:   swap.NewMetrics(o.registry),
		Logger:    logger,
	})
	if err != nil {
		return nil, err
	}

	r := &Runner{
		Config:       cfg,
		Logger:       logger,
		Registry:     o.registry,
		Pool:         pool,
		Executor:     exec,
		Signer:       signer,
		Bus:          bus,
		Ledger:       led,
		Estimator:    estimator,
		Orchestrator: orch,
		Session:      swap.NewSession(orch),
		Faucet: faucet.New(exec,
			faucet.WithEvents(bus),
			faucet.WithLedger(led),
			faucet.WithCluster(cfg.Cluster),
			faucet.WithLogger(logger)),
		Exporter: export.NewExporter(logger),
		shutdown: NewShutdownHandler(logger),
	}

	r.shutdown.AddFunc("event bus", func() error {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return bus.Shutdown(ctx)
	})
	r.shutdown.AddFunc("orchestrator", func() error {
		orch.Close()
		return nil
	})
	if signer.Available() {
		sub := TrackBalance(bus, market, signer.Address())
		r.shutdown.AddFunc("balance tracking", func() error {
			sub.Unsubscribe()
			return nil
		})
	}

	logger.Info("Swap engine ready",
		zap.Strings("rpc", cfg.GetMaskedRPCList()),
		zap.String("cluster", cfg.Cluster),
		zap.Bool("wallet", signer.Available()))
	return r, nil
}

// LoadSigner builds the wallet named by cfg, or a disconnected signer when
// none is configured.
func LoadSigner(cfg *config.Config, approver wallet.Approver) (blockchain.Signer, error) {
	opts := []wallet.Option{wallet.WithPriority(cfg.PriorityConfig())}
	if approver != nil {
		opts = append(opts, wallet.WithApprover(approver))
	}

	switch {
	case cfg.PrivateKey != "":
		w, err := wallet.NewWallet(cfg.PrivateKey, opts...)
		if err != nil {
			return nil, fmt.Errorf("private key: %w", err)
		}
		return w, nil
	case cfg.Keypair != "":
		w, err := wallet.LoadKeypairFile(cfg.Keypair, opts...)
		if err != nil {
			return nil, fmt.Errorf("keypair %s: %w", cfg.Keypair, err)
		}
		return w, nil
	default:
		return wallet.Disconnected{}, nil
	}
}

// TrackBalance applies balance changes observed for address, such as a
// confirmed airdrop, to the market's SOL balance.
func TrackBalance(bus *events.Bus, market *quote.Market, address string) events.Subscription {
	return bus.SubscribeFunc(events.BalanceChanged, func(_ context.Context, e events.Event) error {
		ev, ok := e.(events.BalanceChangedEvent)
		if !ok || ev.WalletAddress != address {
			return nil
		}
		market.SetBalance("SOL", quote.SOLFromLamports(ev.NewBalance))
		return nil
	})
}

// WalletAddress returns the signer address, empty without a wallet.
func (r *Runner) WalletAddress() string {
	if r.Signer == nil || !r.Signer.Available() {
		return ""
	}
	return r.Signer.Address()
}

// ServeMetrics exposes the registry on cfg.MetricsAddr until ctx is done.
// It returns immediately when no address is configured.
func (r *Runner) ServeMetrics(ctx context.Context) error {
	addr := r.Config.MetricsAddr
	if addr == "" {
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(r.Registry, promhttp.HandlerOpts{}))
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	r.shutdown.AddFunc("metrics server", func() error {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(sctx)
	})

	r.Logger.Info("Serving metrics", zap.String("addr", addr))
	go func() {
		<-ctx.Done()
		_ = srv.Close()
	}()
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("metrics server: %w", err)
	}
	return nil
}

// Close releases every component.
func (r *Runner) Close(ctx context.Context) error {
	return r.shutdown.Shutdown(ctx)
}
