package component

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"github.com/rovshanmuradov/compressed-swap/internal/ui/style"
)

// ConnectionInfo is what the header shows about the network.
type ConnectionInfo struct {
	Connected bool
	DemoMode  bool
	Network   string
	Endpoint  string
	IsLocal   bool
	Healthy   int
}

// StatusHeader provides a clean header with essential status information
type StatusHeader struct {
	wallet   string
	conn     ConnectionInfo
	phase    string
	gasSaved float64
	style    StatusHeaderStyle
	width    int
}

// StatusHeaderStyle contains all styling for the status header
type StatusHeaderStyle struct {
	container lipgloss.Style
	title     lipgloss.Style
	wallet    lipgloss.Style
	rpcGood   lipgloss.Style
	rpcBad    lipgloss.Style
	demo      lipgloss.Style
	phase     lipgloss.Style
	savings   lipgloss.Style
}

// NewStatusHeader creates a new status header component
func NewStatusHeader() *StatusHeader {
	palette := style.DefaultPalette()

	return &StatusHeader{
		wallet: "not connected",
		phase:  "idle",
		style: StatusHeaderStyle{
			container: lipgloss.NewStyle().
				Background(palette.Background).
				Foreground(palette.Text).
				Border(lipgloss.RoundedBorder()).
				BorderForeground(palette.Primary).
				Padding(0, 2).
				MarginBottom(1),

			title: lipgloss.NewStyle().
				Foreground(palette.Primary).
				Bold(true),

			wallet: lipgloss.NewStyle().
				Foreground(palette.TextSecondary),

			rpcGood: lipgloss.NewStyle().
				Foreground(palette.Success).
				Bold(true),

			rpcBad: lipgloss.NewStyle().
				Foreground(palette.Error).
				Bold(true),

			demo: lipgloss.NewStyle().
				Foreground(palette.Demo).
				Bold(true),

			phase: lipgloss.NewStyle().
				Foreground(palette.Info),

			savings: lipgloss.NewStyle().
				Foreground(palette.Compressed).
				Bold(true),
		},
	}
}

// SetWallet updates the wallet address display
func (sh *StatusHeader) SetWallet(wallet string) {
	switch {
	case wallet == "":
		sh.wallet = "not connected"
	case len(wallet) > 8:
		sh.wallet = wallet[:4] + "..." + wallet[len(wallet)-4:]
	default:
		sh.wallet = wallet
	}
}

// SetConnection updates the RPC connection status
func (sh *StatusHeader) SetConnection(info ConnectionInfo) {
	sh.conn = info
}

// SetPhase updates the orchestration phase
func (sh *StatusHeader) SetPhase(phase string) {
	sh.phase = phase
}

// SetGasSaved updates the cumulative gas reduction
func (sh *StatusHeader) SetGasSaved(v float64) {
	sh.gasSaved = v
}

// SetWidth sets the component width for responsive layout
func (sh *StatusHeader) SetWidth(width int) {
	sh.width = width
	sh.style.container = sh.style.container.Width(max(width-4, 0))
}

// View renders the status header
func (sh *StatusHeader) View() string {
	content := lipgloss.JoinHorizontal(
		lipgloss.Left,
		sh.style.title.Render("Compressed Swap"),
		" | ",
		sh.style.wallet.Render(fmt.Sprintf("Wallet: %s", sh.wallet)),
		" | ",
		sh.renderConnection(),
		" | ",
		sh.style.phase.Render(fmt.Sprintf("Phase: %s", sh.phase)),
		" | ",
		sh.style.savings.Render(fmt.Sprintf("Gas saved: %.2f%%", sh.gasSaved)),
	)

	return sh.style.container.Render(content)
}

func (sh *StatusHeader) renderConnection() string {
	if !sh.conn.Connected {
		return sh.style.rpcBad.Render("● RPC: offline (demo)")
	}

	network := sh.conn.Network
	if sh.conn.IsLocal {
		network += " (local)"
	}
	status := sh.style.rpcGood.Render(fmt.Sprintf("● %s %d/ok", network, sh.conn.Healthy))
	if sh.conn.DemoMode {
		status += " " + sh.style.demo.Render("demo")
	}
	return status
}

// GetHeight returns the component height for layout calculations
func (sh *StatusHeader) GetHeight() int {
	return 4 // Border + content + margin
}
