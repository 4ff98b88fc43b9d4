// internal/swap/session.go
package swap

import (
	"context"
	"errors"
	"sync"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/compressed-swap/internal/blockchain"
	"github.com/rovshanmuradov/compressed-swap/internal/blockchain/solbc"
	"github.com/rovshanmuradov/compressed-swap/internal/blockchain/solbc/rpc"
	"github.com/rovshanmuradov/compressed-swap/internal/events"
	"github.com/rovshanmuradov/compressed-swap/internal/quote"
)

// ErrNoWallet is returned by SyncBalance when there is no wallet to read.
var ErrNoWallet = errors.New("no wallet connected")

// ConnectionStatus describes what Connect found.
type ConnectionStatus struct {
	Connected bool
	DemoMode  bool
	Network   string
	Endpoint  string
	IsLocal   bool
	Healthy   []string
	Wallet    string
	// Balance is the wallet's SOL balance read on connect. BalanceSynced is
	// false when it could not be read.
	Balance       decimal.Decimal
	BalanceSynced bool
}

// Session is the long-lived front of an orchestrator: it owns the
// connection status shown to the user.
type Session struct {
	orch   *Orchestrator
	logger *zap.Logger

	mu     sync.RWMutex
	status ConnectionStatus
}

// NewSession wraps orch.
func NewSession(orch *Orchestrator) *Session {
	return &Session{
		orch:   orch,
		logger: orch.logger.Named("session"),
		status: ConnectionStatus{DemoMode: true, Network: "Demo"},
	}
}

// Orchestrator returns the wrapped orchestrator.
func (s *Session) Orchestrator() *Orchestrator {
	return s.orch
}

// Connect probes every configured endpoint. With no healthy endpoint or no
// signer the session stays in demo mode; swaps still run locally.
func (s *Session) Connect(ctx context.Context) ConnectionStatus {
	st := ConnectionStatus{DemoMode: true, Network: "Demo"}

	if signer := s.orch.deps.Signer; signer != nil && signer.Available() {
		st.Wallet = signer.Address()
	}

	if exec := s.orch.deps.Executor; exec != nil {
		healthy, err := exec.ProbeAll(ctx)
		if err != nil {
			s.logger.Warn("Endpoint probe interrupted", zap.Error(err))
		}
		st.Healthy = healthy
		if len(st.Healthy) > 0 {
			st.Connected = true
			st.Endpoint = st.Healthy[0]
			st.Network = solbc.NetworkName(st.Endpoint)
			st.IsLocal = solbc.IsLocal(st.Endpoint)
			st.DemoMode = st.Wallet == ""
		}
	}

	if st.Connected && st.Wallet != "" {
		bal, err := s.SyncBalance(ctx)
		if err != nil {
			s.logger.Warn("Wallet balance not read", zap.String("wallet", st.Wallet), zap.Error(err))
		} else {
			st.Balance, st.BalanceSynced = bal, true
		}
	}

	if st.Connected {
		s.logger.Info("Connected to RPC",
			zap.String("url", st.Endpoint),
			zap.String("network", st.Network),
			zap.Int("healthy", len(st.Healthy)),
			zap.Bool("local", st.IsLocal))
	}
	if st.DemoMode {
		s.logger.Info("Running in demo mode",
			zap.Bool("connected", st.Connected),
			zap.Bool("wallet", st.Wallet != ""))
	}

	s.mu.Lock()
	s.status = st
	s.mu.Unlock()

	s.orch.publish(events.ConnectionChangedEvent{
		BaseEvent: events.NewBase(events.ConnectionChanged),
		Connected: st.Connected,
		Network:   st.Network,
		Endpoint:  st.Endpoint,
		IsLocal:   st.IsLocal,
		Healthy:   st.Healthy,
	})
	return st
}

// Status returns the result of the last Connect.
func (s *Session) Status() ConnectionStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// SyncBalance reads the wallet's lamport balance through the endpoint pool
// and stores it as the market's SOL balance.
func (s *Session) SyncBalance(ctx context.Context) (decimal.Decimal, error) {
	signer, exec := s.orch.deps.Signer, s.orch.deps.Executor
	if signer == nil || !signer.Available() || exec == nil {
		return decimal.Zero, ErrNoWallet
	}
	address := signer.Address()

	lamports, err := rpc.Execute(ctx, exec, "getBalance",
		func(ctx context.Context, c blockchain.Connection) (uint64, error) {
			return c.GetBalance(ctx, address)
		})
	if err != nil {
		return decimal.Zero, err
	}

	bal := quote.SOLFromLamports(lamports)
	s.orch.deps.Estimator.Market().SetBalance("SOL", bal)
	s.logger.Debug("Wallet balance synced", zap.String("wallet", address), zap.String("sol", bal.String()))
	return bal, nil
}

// Submit forwards to the orchestrator. A confirmed wallet-backed swap is
// followed by a balance sync.
func (s *Session) Submit(ctx context.Context, req Request) (Outcome, error) {
	out, err := s.orch.Submit(ctx, req)
	if err == nil && out.Confirmed() && !out.Record.IsSimulated {
		if _, serr := s.SyncBalance(ctx); serr != nil {
			s.logger.Warn("Wallet balance not refreshed", zap.Error(serr))
		}
	}
	return out, err
}
