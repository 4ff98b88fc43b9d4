// internal/faucet/faucet.go
package faucet

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/compressed-swap/internal/blockchain"
	"github.com/rovshanmuradov/compressed-swap/internal/blockchain/solbc"
	"github.com/rovshanmuradov/compressed-swap/internal/blockchain/solbc/rpc"
	"github.com/rovshanmuradov/compressed-swap/internal/events"
	"github.com/rovshanmuradov/compressed-swap/internal/ledger"
	"github.com/rovshanmuradov/compressed-swap/internal/quote"
)

const (
	// MaxAirdropSOL is the most a single request may ask for.
	MaxAirdropSOL = 2
	// DefaultConfirmTimeout bounds the wait for one airdrop to land.
	DefaultConfirmTimeout = 30 * time.Second
)

var (
	ErrInvalidAmount  = errors.New("airdrop amount must be positive")
	ErrInvalidAddress = errors.New("invalid wallet address")
	// ErrBalanceUnchanged means the faucet answered but nothing was credited.
	ErrBalanceUnchanged = errors.New("balance did not increase after airdrop")
	// ErrAirdropFailed is returned once every endpoint has been tried.
	ErrAirdropFailed = errors.New("airdrop failed on every endpoint")
)

var maxAirdrop = decimal.NewFromInt(MaxAirdropSOL)

// Result describes a successful airdrop.
type Result struct {
	Signature string
	Endpoint  string
	Requested decimal.Decimal
	Before    uint64
	After     uint64
	Record    ledger.Record
}

// Credited returns the observed balance increase in SOL.
func (r Result) Credited() decimal.Decimal {
	return quote.SOLFromLamports(r.After - r.Before)
}

// Faucet requests devnet/testnet SOL through the endpoint pool.
type Faucet struct {
	exec           *rpc.Executor
	ledger         *ledger.Ledger
	events         events.Publisher
	cluster        string
	confirmTimeout time.Duration
	logger         *zap.Logger
}

// Option configures a Faucet.
type Option func(*Faucet)

// WithEvents publishes balance changes.
func WithEvents(p events.Publisher) Option {
	return func(f *Faucet) {
		if p != nil {
			f.events = p
		}
	}
}

// WithLedger records every airdrop.
func WithLedger(l *ledger.Ledger) Option {
	return func(f *Faucet) { f.ledger = l }
}

// WithCluster sets the cluster used for explorer links.
func WithCluster(cluster string) Option {
	return func(f *Faucet) { f.cluster = cluster }
}

// WithConfirmTimeout bounds the confirmation wait per attempt.
func WithConfirmTimeout(d time.Duration) Option {
	return func(f *Faucet) {
		if d > 0 {
			f.confirmTimeout = d
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *zap.Logger) Option {
	return func(f *Faucet) {
		if logger != nil {
			f.logger = logger.Named("faucet")
		}
	}
}

// New creates a faucet over exec.
func New(exec *rpc.Executor, opts ...Option) *Faucet {
	f := &Faucet{
		exec:           exec,
		events:         events.Nop{},
		cluster:        solbc.ClusterDevnet,
		confirmTimeout: DefaultConfirmTimeout,
		logger:         zap.NewNop(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Request airdrops sol (capped at MaxAirdropSOL) to address. Each attempt
// runs on a fresh endpoint: read the balance, request, confirm and read the
// balance again. Up to twice the number of endpoints are tried.
func (f *Faucet) Request(ctx context.Context, address string, sol decimal.Decimal) (Result, error) {
	if !sol.IsPositive() {
		return Result{}, ErrInvalidAmount
	}
	if _, err := solana.PublicKeyFromBase58(address); err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	if sol.GreaterThan(maxAirdrop) {
		f.logger.Info("Airdrop amount capped",
			zap.String("requested", sol.String()),
			zap.Int("max", MaxAirdropSOL))
		sol = maxAirdrop
	}
	lamports := uint64(sol.Mul(decimal.NewFromUint64(solana.LAMPORTS_PER_SOL)).IntPart())

	attempts := 2 * f.exec.Pool().Len()
	res, err := rpc.Execute(ctx, f.exec, "requestAirdrop",
		func(ctx context.Context, conn blockchain.Connection) (Result, error) {
			return f.attempt(ctx, conn, address, lamports)
		},
		rpc.WithMaxTries(attempts))
	res.Requested = sol

	rec := ledger.Record{
		Kind:          ledger.KindAirdrop,
		To:            "SOL",
		InputAmount:   sol,
		TransactionID: res.Signature,
		Endpoint:      res.Endpoint,
		IsLocal:       res.Endpoint != "" && solbc.IsLocal(res.Endpoint),
	}
	if err != nil {
		err = fmt.Errorf("%w after %d attempts: %w", ErrAirdropFailed, attempts, err)
		rec.Status = ledger.StatusFailed
		rec.Error = err.Error()
		f.logger.Warn("Airdrop failed", zap.String("address", address), zap.Error(err))
	} else {
		rec.Status = ledger.StatusSuccess
		rec.OutputAmount = res.Credited()
		rec.ExplorerURL = solbc.ExplorerURL(res.Signature, f.cluster)
		f.logger.Info("Airdrop confirmed",
			zap.String("signature", res.Signature),
			zap.String("amount", res.Credited().String()),
			zap.String("url", res.Endpoint))
		if perr := f.events.Publish(events.BalanceChangedEvent{
			BaseEvent:     events.NewBase(events.BalanceChanged),
			WalletAddress: address,
			OldBalance:    res.Before,
			NewBalance:    res.After,
		}); perr != nil {
			f.logger.Debug("Balance event not published", zap.Error(perr))
		}
	}

	if f.ledger != nil {
		stored, lerr := f.ledger.Append(rec)
		if lerr != nil {
			f.logger.Error("Failed to record airdrop", zap.Error(lerr))
		}
		res.Record = stored
	}
	return res, err
}

func (f *Faucet) attempt(ctx context.Context, conn blockchain.Connection, address string, lamports uint64) (Result, error) {
	res := Result{Endpoint: conn.Endpoint()}

	before, err := conn.GetBalance(ctx, address)
	if err != nil {
		return res, nextEndpoint(ctx, res.Endpoint, err)
	}
	res.Before = before

	sig, err := conn.RequestAirdrop(ctx, address, lamports)
	if err != nil {
		return res, nextEndpoint(ctx, res.Endpoint, err)
	}
	res.Signature = sig

	cctx, cancel := context.WithTimeout(ctx, f.confirmTimeout)
	defer cancel()
	confirmed, err := conn.Confirm(cctx, sig)
	if err != nil {
		return res, nextEndpoint(ctx, res.Endpoint, err)
	}
	if confirmed.Err != nil {
		return res, nextEndpoint(ctx, res.Endpoint, confirmed.Err)
	}

	after, err := conn.GetBalance(ctx, address)
	if err != nil {
		return res, nextEndpoint(ctx, res.Endpoint, err)
	}
	res.After = after
	if after <= before {
		return res, nextEndpoint(ctx, res.Endpoint, ErrBalanceUnchanged)
	}
	return res, nil
}

// nextEndpoint marks err retryable so the executor moves on to another
// endpoint. Rate-limits keep their class and cancellation stays final.
func nextEndpoint(ctx context.Context, endpoint string, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if rpc.IsRetryableError(err) {
		return err
	}
	return &rpc.TransientNetworkError{Endpoint: endpoint, Err: err}
}
