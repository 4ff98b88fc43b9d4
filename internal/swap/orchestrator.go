// internal/swap/orchestrator.go
package swap

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/rovshanmuradov/compressed-swap/internal/blockchain"
	"github.com/rovshanmuradov/compressed-swap/internal/blockchain/solbc"
	"github.com/rovshanmuradov/compressed-swap/internal/blockchain/solbc/rpc"
	"github.com/rovshanmuradov/compressed-swap/internal/compression"
	"github.com/rovshanmuradov/compressed-swap/internal/events"
	"github.com/rovshanmuradov/compressed-swap/internal/ledger"
	"github.com/rovshanmuradov/compressed-swap/internal/logger"
	"github.com/rovshanmuradov/compressed-swap/internal/quote"
	"github.com/rovshanmuradov/compressed-swap/internal/signature"
)

var (
	// ErrOperationInFlight rejects a submission while another one runs.
	ErrOperationInFlight = errors.New("another swap is still in progress")

	errOnChain = errors.New("transaction failed on chain")
)

// Config holds the orchestration timings and policies.
type Config struct {
	// SwapCooldown is the minimum spacing between two swaps.
	SwapCooldown time.Duration
	// ConfirmTimeout bounds the confirmation wait. When it fires first the
	// swap is treated as landed.
	ConfirmTimeout time.Duration
	// ResetWindow is how long a terminal phase stays visible before Idle.
	ResetWindow     time.Duration
	DecompressDelay time.Duration
	ExecuteDelay    time.Duration
	CompressDelay   time.Duration
	MinSlippageBps  int
	MaxSlippageBps  int
	// RequireSigner fails swaps instead of falling back to the demo path
	// when no wallet is attached.
	RequireSigner bool
	Cluster       string
}

// DefaultConfig returns the timings of the interactive demo.
func DefaultConfig() Config {
	return Config{
		SwapCooldown:    2 * time.Second,
		ConfirmTimeout:  2 * time.Second,
		ResetWindow:     3 * time.Second,
		DecompressDelay: 800 * time.Millisecond,
		ExecuteDelay:    1 * time.Second,
		CompressDelay:   800 * time.Millisecond,
		MinSlippageBps:  DefaultMinSlippageBps,
		MaxSlippageBps:  DefaultMaxSlippageBps,
		Cluster:         solbc.ClusterDevnet,
	}
}

// Deps are the collaborators of an Orchestrator. Executor and Signer may be
// nil, in which case every swap takes the demo path.
type Deps struct {
	Executor   *rpc.Executor
	Signer     blockchain.Signer
	Estimator  *quote.Estimator
	Validator  *signature.Validator
	Calculator *compression.Calculator
	Ledger     *ledger.Ledger
	Events     events.Publisher
	Metrics    *Metrics
	Logger     *zap.Logger
}

// Orchestrator drives one swap at a time through its phases.
type Orchestrator struct {
	cfg     Config
	deps    Deps
	limiter *rate.Limiter
	logger  *zap.Logger

	mu         sync.Mutex
	phase      Phase
	phaseSince time.Time
	inFlight   bool
	opID       string
	generation uint64
	resetTimer *time.Timer
}

// New creates an orchestrator.
func New(cfg Config, deps Deps) (*Orchestrator, error) {
	if deps.Estimator == nil {
		return nil, fmt.Errorf("quote estimator is required")
	}
	if deps.Ledger == nil {
		return nil, fmt.Errorf("ledger is required")
	}
	if deps.Validator == nil {
		deps.Validator = signature.NewValidator()
	}
	if deps.Calculator == nil {
		deps.Calculator = compression.NewCalculator(nil)
	}
	if deps.Events == nil {
		deps.Events = events.Nop{}
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if cfg.MaxSlippageBps == 0 {
		cfg.MinSlippageBps, cfg.MaxSlippageBps = DefaultMinSlippageBps, DefaultMaxSlippageBps
	}

	limit := rate.Inf
	if cfg.SwapCooldown > 0 {
		limit = rate.Every(cfg.SwapCooldown)
	}

	return &Orchestrator{
		cfg:        cfg,
		deps:       deps,
		limiter:    rate.NewLimiter(limit, 1),
		logger:     deps.Logger.Named("swap"),
		phaseSince: time.Now(),
	}, nil
}

// Phase returns the current phase.
func (o *Orchestrator) Phase() Phase {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.phase
}

// Busy reports whether an operation is between submission and its
// terminal phase.
func (o *Orchestrator) Busy() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.inFlight
}

// Close stops the pending reset timer.
func (o *Orchestrator) Close() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.resetTimer != nil {
		o.resetTimer.Stop()
	}
}

// operation is the per-submission state.
type operation struct {
	id      string
	gen     uint64
	req     Request
	log     *zap.Logger
	started time.Time
}

// result is what the phases produced before the record is built.
type result struct {
	quote     quote.Quote
	txID      string
	simulated bool
	metrics   *compression.Metrics
	endpoint  string
}

// Submit validates req and runs it to a terminal phase. Validation failures
// and re-entrant submissions return an error and leave no record. Once
// accepted, exactly one record is appended and the returned Outcome tells
// whether it was confirmed; the error is nil in that case.
func (o *Orchestrator) Submit(ctx context.Context, req Request) (Outcome, error) {
	if err := req.Validate(o.deps.Estimator.Market(), o.cfg.MinSlippageBps, o.cfg.MaxSlippageBps); err != nil {
		return Outcome{}, err
	}

	op, err := o.begin(req)
	if err != nil {
		return Outcome{}, err
	}

	res, runErr := o.execute(ctx, op)
	return o.finish(op, res, runErr), nil
}

func (o *Orchestrator) begin(req Request) (*operation, error) {
	o.mu.Lock()
	if o.inFlight {
		o.mu.Unlock()
		return nil, ErrOperationInFlight
	}
	o.inFlight = true
	o.generation++
	if o.resetTimer != nil {
		o.resetTimer.Stop()
	}
	if o.phase.Terminal() {
		o.phase = PhaseIdle
	}
	gen := o.generation
	o.mu.Unlock()

	opLog, id := logger.WithOperation(o.logger, "swap")
	o.mu.Lock()
	o.opID = id
	o.mu.Unlock()

	o.deps.Metrics.setInFlight(true)
	opLog.Info("Swap submitted",
		zap.String("amount", req.Amount.String()),
		zap.String("from", req.From),
		zap.String("to", req.To),
		zap.Int("slippage_bps", req.SlippageBps),
		zap.Bool("compress", req.Compress))
	o.publish(events.OperationStartedEvent{
		BaseEvent:   events.NewBase(events.OperationStarted),
		OperationID: id,
		Kind:        ledger.KindSwap,
		From:        req.From,
		To:          req.To,
		Amount:      req.Amount.String(),
		Compressed:  req.Compress,
	})

	return &operation{id: id, gen: gen, req: req, log: opLog, started: time.Now()}, nil
}

func (o *Orchestrator) execute(ctx context.Context, op *operation) (result, error) {
	defer logger.TrackPerformance(op.log, "swap")()
	// until a path is chosen the record follows the configured one
	res := result{simulated: !o.walletConfigured()}
	req := op.req

	o.transition(op, PhasePreparing)
	if err := o.limiter.Wait(ctx); err != nil {
		return res, fmt.Errorf("swap cooldown: %w", err)
	}
	q, err := o.deps.Estimator.Estimate(req.Amount, req.From, req.To, req.SlippageBps)
	if err != nil {
		return res, fmt.Errorf("quote: %w", err)
	}
	res.quote = q

	walletBacked, err := o.choosePath(ctx, op)
	if err != nil {
		return res, err
	}
	res.simulated = !walletBacked

	o.transition(op, PhaseDecompressing)
	if req.Compress {
		if err := sleepCtx(ctx, o.cfg.DecompressDelay); err != nil {
			return res, err
		}
	}

	o.transition(op, PhaseExecuting)
	if walletBacked {
		res.txID, res.endpoint, err = o.executeOnChain(ctx, op)
		if err != nil {
			return res, err
		}
	} else {
		if err := sleepCtx(ctx, o.cfg.ExecuteDelay); err != nil {
			return res, err
		}
		res.txID = o.deps.Validator.Generate(signature.LabelSwap)
	}
	if !o.deps.Validator.IsValid(res.txID) {
		return res, fmt.Errorf("unrecognised transaction identifier %q", res.txID)
	}

	o.transition(op, PhaseCompressing)
	if req.Compress {
		if err := sleepCtx(ctx, o.cfg.CompressDelay); err != nil {
			return res, err
		}
		m := o.deps.Calculator.Compute(req.Amount)
		if err := m.Validate(); err != nil {
			return res, fmt.Errorf("compression metrics: %w", err)
		}
		res.metrics = &m
	}
	return res, nil
}

// walletConfigured reports whether a wallet-backed path is possible at all.
func (o *Orchestrator) walletConfigured() bool {
	return o.deps.Signer != nil && o.deps.Signer.Available() && o.deps.Executor != nil
}

// choosePath returns true for the wallet-backed path: a signer is attached
// and at least one endpoint answers.
func (o *Orchestrator) choosePath(ctx context.Context, op *operation) (bool, error) {
	signer := o.deps.Signer
	if signer == nil || !signer.Available() {
		if o.cfg.RequireSigner {
			return false, blockchain.NewSignerError("", blockchain.ErrSignerUnavailable)
		}
		op.log.Info("Running in demo mode", zap.String("reason", "no signer"))
		return false, nil
	}
	if o.deps.Executor == nil {
		op.log.Info("Running in demo mode", zap.String("reason", "no endpoints"))
		return false, nil
	}

	_, err := rpc.Execute(ctx, o.deps.Executor, "getHealth",
		func(ctx context.Context, c blockchain.Connection) (struct{}, error) {
			return struct{}{}, c.Health(ctx)
		})
	if err != nil {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		op.log.Warn("Running in demo mode", zap.String("reason", "no healthy endpoint"), zap.Error(err))
		return false, nil
	}
	return true, nil
}

func (o *Orchestrator) executeOnChain(ctx context.Context, op *operation) (string, string, error) {
	exec := o.deps.Executor
	signer := o.deps.Signer
	market := o.deps.Estimator.Market()

	blockhash, err := rpc.Execute(ctx, exec, "getLatestBlockhash",
		func(ctx context.Context, c blockchain.Connection) (string, error) {
			return c.LatestBlockhash(ctx)
		})
	if err != nil {
		return "", "", err
	}

	from, _ := market.Token(op.req.From)
	to, _ := market.Token(op.req.To)
	signed, err := signer.Sign(ctx, &blockchain.Operation{
		Payer:      signer.Address(),
		FromMint:   from.Mint,
		ToMint:     to.Mint,
		Amount:     op.req.Amount.InexactFloat64(),
		Blockhash:  blockhash,
		Compressed: op.req.Compress,
	})
	if err != nil {
		return "", "", err
	}

	var endpoint string
	id, err := rpc.Execute(ctx, exec, "sendTransaction",
		func(ctx context.Context, c blockchain.Connection) (string, error) {
			endpoint = c.Endpoint()
			return c.Send(ctx, signed)
		})
	if err != nil {
		return "", endpoint, err
	}
	logger.WithTransaction(op.log, id).Info("Transaction sent", zap.String("url", endpoint))

	return id, endpoint, o.awaitConfirmation(ctx, op, id)
}

// awaitConfirmation races the confirmation against ConfirmTimeout. A timer
// win counts as success; an explicit on-chain error or a failed confirm
// request fails the swap.
func (o *Orchestrator) awaitConfirmation(ctx context.Context, op *operation, id string) error {
	cctx, cancel := context.WithTimeout(ctx, o.cfg.ConfirmTimeout)
	defer cancel()

	res, err := rpc.Execute(cctx, o.deps.Executor, "confirmTransaction",
		func(ctx context.Context, c blockchain.Connection) (blockchain.ConfirmationResult, error) {
			return c.Confirm(ctx, id)
		})
	switch {
	case err == nil && res.Err != nil:
		return fmt.Errorf("%w: %v", errOnChain, res.Err)
	case err == nil:
		op.log.Debug("Confirmation received", zap.Uint64("slot", res.Slot))
		return nil
	case ctx.Err() != nil:
		return ctx.Err()
	case cctx.Err() != nil:
		op.log.Info("Confirmation still pending, continuing", zap.Duration("waited", o.cfg.ConfirmTimeout))
		return nil
	default:
		return err
	}
}

func (o *Orchestrator) finish(op *operation, res result, runErr error) Outcome {
	req := op.req
	rec := ledger.Record{
		Kind:          ledger.KindSwap,
		From:          req.From,
		To:            req.To,
		InputAmount:   req.Amount,
		TransactionID: res.txID,
		IsSimulated:   res.simulated,
		Endpoint:      res.endpoint,
		IsLocal:       res.endpoint != "" && solbc.IsLocal(res.endpoint),
	}

	kind := Classify(runErr)
	if runErr == nil {
		rec.Status = ledger.StatusSuccess
		rec.OutputAmount = res.quote.Output
		rec.IsCompressed = res.metrics != nil
		rec.Metrics = res.metrics
		rec.NetworkFee = compression.RegularFee
		if res.metrics != nil {
			rec.NetworkFee = res.metrics.CompressedFee
		}
		if !res.simulated {
			rec.ExplorerURL = solbc.ExplorerURL(res.txID, o.cfg.Cluster)
		}
	} else {
		rec.Status = ledger.StatusFailed
		rec.ErrorKind = string(kind)
		rec.Error = runErr.Error()
	}

	stored, err := o.deps.Ledger.Append(rec)
	if err != nil {
		op.log.Error("Failed to record swap", zap.Error(err))
		stored = rec
	}

	out := Outcome{
		OperationID: op.id,
		Record:      stored,
		Quote:       res.quote,
		Kind:        kind,
		Message:     kind.Message(),
		Err:         runErr,
	}

	if runErr == nil {
		out.Phase = PhaseConfirmed
		if err := o.deps.Estimator.Market().Settle(req.From, req.Amount, req.To, res.quote.Output); err != nil {
			op.log.Warn("Demo balances not updated", zap.Error(err))
		}
		o.transition(op, PhaseConfirmed)
		op.log.Info("Swap confirmed",
			zap.String("signature", stored.TransactionID),
			zap.Bool("simulated", stored.IsSimulated),
			zap.Duration("elapsed", time.Since(op.started)))
		o.publish(events.OperationCompletedEvent{
			BaseEvent:   events.NewBase(events.OperationCompleted),
			OperationID: op.id,
			Record:      stored,
		})
	} else {
		out.Phase = PhaseFailed
		o.transition(op, PhaseFailed)
		op.log.Warn("Swap failed",
			zap.String("kind", string(kind)),
			zap.String("message", out.Message),
			zap.Error(runErr))
		o.publish(events.OperationFailedEvent{
			BaseEvent:   events.NewBase(events.OperationFailed),
			OperationID: op.id,
			Record:      stored,
			Kind:        string(kind),
			Message:     out.Message,
			Error:       runErr,
		})
	}

	o.deps.Metrics.observeOutcome(out)
	o.release(op)
	return out
}

// release ends the in-flight window and schedules the return to Idle.
func (o *Orchestrator) release(op *operation) {
	o.deps.Metrics.setInFlight(false)

	o.mu.Lock()
	defer o.mu.Unlock()
	o.inFlight = false
	if o.cfg.ResetWindow <= 0 {
		o.resetLocked(op.gen)
		return
	}
	o.resetTimer = time.AfterFunc(o.cfg.ResetWindow, func() {
		o.mu.Lock()
		defer o.mu.Unlock()
		o.resetLocked(op.gen)
	})
}

func (o *Orchestrator) resetLocked(gen uint64) {
	if gen != o.generation || o.inFlight || !o.phase.Terminal() {
		return
	}
	from := o.phase
	o.phase = PhaseIdle
	o.phaseSince = time.Now()
	o.publish(events.PhaseChangedEvent{
		BaseEvent:   events.NewBase(events.PhaseChanged),
		OperationID: o.opID,
		From:        from.String(),
		To:          PhaseIdle.String(),
	})
}

func (o *Orchestrator) transition(op *operation, to Phase) {
	o.mu.Lock()
	from := o.phase
	if !CanTransition(from, to) {
		o.mu.Unlock()
		op.log.Error("Illegal phase transition",
			zap.Stringer("from", from),
			zap.Stringer("to", to))
		return
	}
	elapsed := time.Since(o.phaseSince)
	o.phase = to
	o.phaseSince = time.Now()
	o.mu.Unlock()

	if from != PhaseIdle {
		o.deps.Metrics.observePhase(from, elapsed)
	}
	op.log.Debug("Phase changed", zap.String("phase", to.String()))
	o.publish(events.PhaseChangedEvent{
		BaseEvent:   events.NewBase(events.PhaseChanged),
		OperationID: op.id,
		From:        from.String(),
		To:          to.String(),
		Elapsed:     elapsed,
	})
}

func (o *Orchestrator) publish(e events.Event) {
	if err := o.deps.Events.Publish(e); err != nil {
		o.logger.Debug("Event not published",
			zap.String("event_type", string(e.Type())),
			zap.Error(err))
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
