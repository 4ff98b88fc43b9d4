// Package app is the root Bubble Tea model of the swap console.
package app

import (
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/rovshanmuradov/compressed-swap/internal/events"
	"github.com/rovshanmuradov/compressed-swap/internal/swap"
	"github.com/rovshanmuradov/compressed-swap/internal/ui"
	"github.com/rovshanmuradov/compressed-swap/internal/ui/component"
	"github.com/rovshanmuradov/compressed-swap/internal/ui/router"
	"github.com/rovshanmuradov/compressed-swap/internal/ui/screen"
	"github.com/rovshanmuradov/compressed-swap/internal/ui/style"
)

const refreshInterval = time.Second

// Model ties the header, the tab router and the help line together.
type Model struct {
	svc    *ui.Services
	msgs   <-chan tea.Msg
	keyMap ui.KeyMap

	router *router.Router
	header *component.StatusHeader
	help   help.Model

	width  int
	height int
}

// New builds the console. msgs carries bus events forwarded by an
// UpdateSender and may be nil.
func New(svc *ui.Services, msgs <-chan tea.Msg) *Model {
	r := router.New(map[ui.Tab]router.Screen{
		ui.TabSwap:    screen.NewSwapScreen(svc),
		ui.TabHistory: screen.NewHistoryScreen(svc),
		ui.TabLogs:    screen.NewLogsScreen(svc.Logs),
	})

	header := component.NewStatusHeader()
	header.SetWallet(svc.Wallet)

	return &Model{
		svc:    svc,
		msgs:   msgs,
		keyMap: ui.DefaultKeyMap(),
		router: r,
		header: header,
		help:   help.New(),
	}
}

// Router exposes the tab router.
func (m *Model) Router() *router.Router {
	return m.router
}

// Header exposes the status header.
func (m *Model) Header() *component.StatusHeader {
	return m.header
}

func tick() tea.Cmd {
	return tea.Tick(refreshInterval, func(time.Time) tea.Msg { return ui.TickMsg{} })
}

// Init starts the screens, the first endpoint probe and the event pump.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(
		m.router.Init(),
		m.svc.Connect(),
		ui.ListenEvents(m.msgs),
		tick(),
	)
}

// Update handles global keys and forwards everything else to the router.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keyMap.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keyMap.NextTab):
			m.router.Next()
			return m, nil
		case key.Matches(msg, m.keyMap.PrevTab):
			m.router.Prev()
			return m, nil
		case key.Matches(msg, m.keyMap.Help):
			m.help.ShowAll = !m.help.ShowAll
			m.resize()
			return m, nil
		case key.Matches(msg, m.keyMap.Reconnect):
			return m, m.svc.Connect()
		}
		return m, m.router.Update(msg)

	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.resize()
		return m, nil

	case ui.ConnectedMsg:
		st := msg.Status
		m.header.SetConnection(component.ConnectionInfo{
			Connected: st.Connected,
			DemoMode:  st.DemoMode,
			Network:   st.Network,
			Endpoint:  st.Endpoint,
			IsLocal:   st.IsLocal,
			Healthy:   len(st.Healthy),
		})
		if st.Wallet != "" {
			m.header.SetWallet(st.Wallet)
		}
		return m, m.router.Update(msg)

	case ui.EventMsg:
		m.applyEvent(msg.Event)
		return m, tea.Batch(m.router.Update(msg), ui.ListenEvents(m.msgs))

	case ui.SwapDoneMsg, ui.AirdropDoneMsg:
		m.header.SetGasSaved(m.svc.Ledger.Stats().AverageSavings)
		return m, m.router.Update(msg)

	case ui.TickMsg:
		return m, tea.Batch(m.router.Update(msg), tick())
	}

	return m, m.router.Update(msg)
}

func (m *Model) applyEvent(e events.Event) {
	switch e := e.(type) {
	case events.PhaseChangedEvent:
		m.header.SetPhase(e.To)
	case events.OperationCompletedEvent, events.OperationFailedEvent:
		m.header.SetGasSaved(m.svc.Ledger.Stats().AverageSavings)
	case events.OperationStartedEvent:
		m.header.SetPhase(swap.PhasePreparing.String())
	}
}

func (m *Model) resize() {
	m.header.SetWidth(m.width)
	m.help.Width = m.width

	used := m.header.GetHeight() + lipgloss.Height(m.tabsView()) + lipgloss.Height(m.help.View(m.keyMap)) + 1
	m.router.SetSize(m.width, max(m.height-used, 10))
}

func (m *Model) tabsView() string {
	tabs := make([]string, 0, len(m.router.Tabs()))
	for _, t := range m.router.Tabs() {
		if t == m.router.ActiveTab() {
			tabs = append(tabs, style.ActiveTab.Render(t.String()))
		} else {
			tabs = append(tabs, style.InactiveTab.Render(t.String()))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
}

// View renders the whole console.
func (m *Model) View() string {
	var b strings.Builder
	b.WriteString(m.header.View())
	b.WriteString("\n")
	b.WriteString(m.tabsView())
	b.WriteString("\n\n")
	b.WriteString(m.router.View())
	b.WriteString("\n")
	b.WriteString(m.help.View(m.keyMap))
	return b.String()
}
