package app

import (
	"context"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/rovshanmuradov/compressed-swap/internal/events"
	"github.com/rovshanmuradov/compressed-swap/internal/ledger"
	"github.com/rovshanmuradov/compressed-swap/internal/logger"
	"github.com/rovshanmuradov/compressed-swap/internal/quote"
	"github.com/rovshanmuradov/compressed-swap/internal/swap"
	"github.com/rovshanmuradov/compressed-swap/internal/ui"
)

func newModel(t *testing.T) (*Model, chan tea.Msg) {
	t.Helper()
	log := zaptest.NewLogger(t)

	cfg := swap.DefaultConfig()
	cfg.SwapCooldown = 0
	cfg.DecompressDelay = 0
	cfg.ExecuteDelay = 0
	cfg.CompressDelay = 0

	est := quote.NewEstimator(quote.DefaultMarket())
	led := ledger.New()
	orch, err := swap.New(cfg, swap.Deps{Estimator: est, Ledger: led, Logger: log})
	require.NoError(t, err)
	t.Cleanup(orch.Close)

	msgs := make(chan tea.Msg, 8)
	svc := &ui.Services{
		Ctx:       context.Background(),
		Session:   swap.NewSession(orch),
		Ledger:    led,
		Estimator: est,
		Logs:      logger.NewLogBuffer(50),
		Logger:    log,
	}
	m := New(svc, msgs)
	m.Update(tea.WindowSizeMsg{Width: 140, Height: 50})
	return m, msgs
}

func TestModelSwitchesTabs(t *testing.T) {
	m, _ := newModel(t)
	assert.Equal(t, ui.TabSwap, m.Router().ActiveTab())

	m.Update(tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, ui.TabHistory, m.Router().ActiveTab())
	assert.Contains(t, m.View(), "No operations yet")

	m.Update(tea.KeyMsg{Type: tea.KeyShiftTab})
	m.Update(tea.KeyMsg{Type: tea.KeyShiftTab})
	assert.Equal(t, ui.TabLogs, m.Router().ActiveTab())
}

func TestModelQuits(t *testing.T) {
	m, _ := newModel(t)
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestModelShowsConnection(t *testing.T) {
	m, _ := newModel(t)

	m.Update(ui.ConnectedMsg{Status: swap.ConnectionStatus{
		Connected: true,
		Network:   "devnet",
		Endpoint:  "https://api.devnet.solana.com",
		Healthy:   []string{"https://api.devnet.solana.com"},
		DemoMode:  true,
	}})
	view := m.View()
	assert.Contains(t, view, "devnet")
	assert.Contains(t, view, "demo")
}

func TestModelFollowsPhaseEvents(t *testing.T) {
	m, msgs := newModel(t)

	_, cmd := m.Update(ui.EventMsg{Event: events.PhaseChangedEvent{
		BaseEvent: events.NewBase(events.PhaseChanged),
		From:      "preparing",
		To:        "decompressing",
	}})
	assert.Contains(t, m.View(), "Phase: decompressing")

	// the model keeps listening for the next event
	require.NotNil(t, cmd)
	next := ui.EventMsg{Event: events.PhaseChangedEvent{BaseEvent: events.NewBase(events.PhaseChanged), To: "executing"}}
	msgs <- next

	got := make(chan tea.Msg, 1)
	go func() { got <- cmd() }()
	select {
	case msg := <-got:
		assert.Equal(t, next, msg)
	case <-time.After(time.Second):
		t.Fatal("event not delivered")
	}
}

func TestModelUpdatesSavingsAfterSwap(t *testing.T) {
	m, _ := newModel(t)

	out, err := m.svc.Session.Submit(context.Background(), swap.Request{
		From: "SOL", To: "USDC", Amount: decimal.NewFromInt(1), SlippageBps: 50, Compress: true,
	})
	require.NoError(t, err)
	require.True(t, out.Confirmed())

	m.Update(ui.SwapDoneMsg{Outcome: out})
	assert.NotContains(t, m.View(), "Gas saved: 0.00%")
}
