package ui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/rovshanmuradov/compressed-swap/internal/events"
	"github.com/rovshanmuradov/compressed-swap/internal/faucet"
	"github.com/rovshanmuradov/compressed-swap/internal/swap"
)

// Tea message types for UI communication

// EventMsg wraps a bus event for the UI.
type EventMsg struct {
	Event events.Event
}

// ConnectedMsg carries the result of the endpoint probe.
type ConnectedMsg struct {
	Status swap.ConnectionStatus
}

// SwapDoneMsg is the answer to a submitted swap. Err is set only when the
// swap was rejected before it started.
type SwapDoneMsg struct {
	Outcome swap.Outcome
	Err     error
}

// AirdropDoneMsg is the answer to a faucet request.
type AirdropDoneMsg struct {
	Result faucet.Result
	Err    error
}

// ExportDoneMsg is the answer to a ledger export.
type ExportDoneMsg struct {
	Path string
	Err  error
}

// TickMsg refreshes time based widgets.
type TickMsg struct{}

// ListenEvents returns a tea.Cmd that waits for the next bus event.
func ListenEvents(ch <-chan tea.Msg) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		return <-ch
	}
}

// Tab identifies a console tab.
type Tab int

const (
	TabSwap Tab = iota
	TabHistory
	TabLogs
)

var tabNames = []string{"Swap", "History", "Logs"}

// String returns the tab title.
func (t Tab) String() string {
	if int(t) < 0 || int(t) >= len(tabNames) {
		return "unknown"
	}
	return tabNames[t]
}

// Tabs lists every tab in display order.
func Tabs() []Tab {
	return []Tab{TabSwap, TabHistory, TabLogs}
}
