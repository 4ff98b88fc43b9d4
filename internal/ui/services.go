package ui

import (
	"context"
	"errors"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/compressed-swap/internal/export"
	"github.com/rovshanmuradov/compressed-swap/internal/faucet"
	"github.com/rovshanmuradov/compressed-swap/internal/ledger"
	"github.com/rovshanmuradov/compressed-swap/internal/logger"
	"github.com/rovshanmuradov/compressed-swap/internal/quote"
	"github.com/rovshanmuradov/compressed-swap/internal/swap"
)

// ErrNoFaucet is reported when airdrops are not available.
var ErrNoFaucet = errors.New("faucet not configured")

// ErrNoExporter is reported when ledger export is not available.
var ErrNoExporter = errors.New("export not configured")

// Services gives screens access to the swap engine. Long running calls are
// exposed as tea.Cmds so they never block the update loop.
type Services struct {
	Ctx       context.Context
	Session   *swap.Session
	Faucet    *faucet.Faucet
	Ledger    *ledger.Ledger
	Estimator *quote.Estimator
	Logs      *logger.LogBuffer
	Exporter  *export.Exporter
	ExportDir string
	Logger    *zap.Logger
	// Wallet is the signer address, empty in demo mode.
	Wallet string
}

func (s *Services) context() context.Context {
	if s.Ctx == nil {
		return context.Background()
	}
	return s.Ctx
}

// Market returns the demo market.
func (s *Services) Market() *quote.Market {
	return s.Estimator.Market()
}

// Connect probes the endpoints.
func (s *Services) Connect() tea.Cmd {
	return func() tea.Msg {
		return ConnectedMsg{Status: s.Session.Connect(s.context())}
	}
}

// Submit runs req through the orchestrator.
func (s *Services) Submit(req swap.Request) tea.Cmd {
	return func() tea.Msg {
		out, err := s.Session.Submit(s.context(), req)
		return SwapDoneMsg{Outcome: out, Err: err}
	}
}

// Airdrop requests sol for the wallet.
func (s *Services) Airdrop(sol decimal.Decimal) tea.Cmd {
	return func() tea.Msg {
		if s.Faucet == nil || s.Wallet == "" {
			return AirdropDoneMsg{Err: ErrNoFaucet}
		}
		res, err := s.Faucet.Request(s.context(), s.Wallet, sol)
		if err != nil && s.Logger != nil {
			s.Logger.Warn("Airdrop request failed", zap.Error(err))
		}
		return AirdropDoneMsg{Result: res, Err: err}
	}
}

// Export writes the ledger records matching filter to ExportDir as CSV.
func (s *Services) Export(filter string) tea.Cmd {
	return func() tea.Msg {
		if s.Exporter == nil {
			return ExportDoneMsg{Err: ErrNoExporter}
		}
		path, err := s.Exporter.Export(s.Ledger, export.Options{
			Format:    export.FormatCSV,
			Filter:    filter,
			OutputDir: s.ExportDir,
		})
		return ExportDoneMsg{Path: path, Err: err}
	}
}
