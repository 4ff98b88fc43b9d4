package screen

import (
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/rovshanmuradov/compressed-swap/internal/ledger"
	"github.com/rovshanmuradov/compressed-swap/internal/ui"
	"github.com/rovshanmuradov/compressed-swap/internal/ui/component"
	"github.com/rovshanmuradov/compressed-swap/internal/ui/router"
	"github.com/rovshanmuradov/compressed-swap/internal/ui/style"
)

var historyFilters = []string{"all", "compressed", "standard"}

// HistoryScreen lists ledger records newest first
type HistoryScreen struct {
	width  int
	height int
	keyMap ui.KeyMap
	svc    *ui.Services
	ledger *ledger.Ledger

	table  table.Model
	trend  *component.Sparkline
	filter int
	rows   []ledger.Record

	exporting bool
	notice    string
	noticeErr bool
}

// NewHistoryScreen creates the history tab over the services' ledger
func NewHistoryScreen(svc *ui.Services) *HistoryScreen {
	palette := style.DefaultPalette()

	t := table.New(
		table.WithColumns(historyColumns(80)),
		table.WithFocused(true),
		table.WithHeight(10),
	)
	st := table.DefaultStyles()
	st.Header = st.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(palette.TextMuted).
		BorderBottom(true).
		Bold(true)
	st.Selected = st.Selected.
		Foreground(palette.Background).
		Background(palette.Primary)
	t.SetStyles(st)

	h := &HistoryScreen{
		keyMap: ui.DefaultKeyMap(),
		svc:    svc,
		ledger: svc.Ledger,
		table:  t,
		trend:  component.NewSparkline(30, "%"),
	}
	h.Refresh()
	return h
}

func historyColumns(width int) []table.Column {
	flex := max((width-66)/2, 8)
	return []table.Column{
		{Title: "Time", Width: 8},
		{Title: "Kind", Width: 7},
		{Title: "Pair", Width: 11},
		{Title: "In", Width: 12},
		{Title: "Out", Width: 12},
		{Title: "Path", Width: 10},
		{Title: "Status", Width: 6 + flex/2},
		{Title: "Tx", Width: flex},
	}
}

// Init initializes the screen
func (h *HistoryScreen) Init() tea.Cmd {
	return nil
}

// Filter returns the active filter name.
func (h *HistoryScreen) Filter() string {
	return historyFilters[h.filter]
}

// Rows returns the records on display.
func (h *HistoryScreen) Rows() []ledger.Record {
	return h.rows
}

// Refresh reloads the table from the ledger
func (h *HistoryScreen) Refresh() {
	pred, err := ledger.ParseFilter(h.Filter())
	if err != nil {
		pred = ledger.All
	}
	h.rows = h.ledger.Filter(pred)

	rows := make([]table.Row, 0, len(h.rows))
	for _, r := range h.rows {
		rows = append(rows, recordRow(r))
	}
	h.table.SetRows(rows)

	// the trend reads oldest to newest
	compressed := h.ledger.Filter(ledger.Compressed)
	savings := make([]float64, 0, len(compressed))
	for i := len(compressed) - 1; i >= 0; i-- {
		if m := compressed[i].Metrics; m != nil {
			savings = append(savings, m.SavingsPercentage)
		}
	}
	h.trend.SetData(savings)
}

func recordRow(r ledger.Record) table.Row {
	pair := r.From + "→" + r.To
	if r.Kind == ledger.KindAirdrop {
		pair = "faucet→SOL"
	}
	path := "standard"
	if r.IsCompressed {
		path = "compressed"
	}
	if r.IsSimulated {
		path += "*"
	}
	out := "-"
	if r.Succeeded() {
		out = r.OutputAmount.String()
	}
	return table.Row{
		r.CreatedAt.Format("15:04:05"),
		string(r.Kind),
		pair,
		r.InputAmount.String(),
		out,
		path,
		string(r.Status),
		shortID(r.TransactionID),
	}
}

// Update handles table navigation and ledger changes
func (h *HistoryScreen) Update(msg tea.Msg) (router.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if key.Matches(msg, h.keyMap.FilterCycle) {
			h.filter = (h.filter + 1) % len(historyFilters)
			h.Refresh()
			return h, nil
		}
		if key.Matches(msg, h.keyMap.Export) {
			if h.exporting {
				return h, nil
			}
			h.exporting = true
			h.notice, h.noticeErr = "Exporting...", false
			return h, h.svc.Export(h.Filter())
		}
		var cmd tea.Cmd
		h.table, cmd = h.table.Update(msg)
		return h, cmd

	case ui.ExportDoneMsg:
		h.exporting = false
		if msg.Err != nil {
			h.notice, h.noticeErr = fmt.Sprintf("Export failed: %v", msg.Err), true
		} else {
			h.notice, h.noticeErr = "Exported to "+msg.Path, false
		}

	case ui.EventMsg, ui.SwapDoneMsg, ui.AirdropDoneMsg:
		h.Refresh()
	}
	return h, nil
}

// SetSize sets the screen dimensions
func (h *HistoryScreen) SetSize(width, height int) {
	h.width = width
	h.height = height
	h.table.SetColumns(historyColumns(width))
	h.table.SetHeight(max(height-14, 4))
}

// View renders the history screen
func (h *HistoryScreen) View() string {
	stats := h.ledger.Stats()

	var filters []string
	for i, f := range historyFilters {
		if i == h.filter {
			filters = append(filters, style.ActiveTab.Render(f))
		} else {
			filters = append(filters, style.InactiveTab.Render(f))
		}
	}

	summary := fmt.Sprintf("%d operations · %d ok · %d failed · gas reduction %.8f SOL · avg savings %.2f%%",
		stats.Count, stats.Succeeded, stats.Failed, stats.TotalGasReduction, stats.AverageSavings)

	body := h.table.View()
	if len(h.rows) == 0 {
		body = style.Muted.Render("No operations yet")
	}

	parts := []string{
		lipgloss.JoinHorizontal(lipgloss.Top, filters...),
		"",
		style.Card.Render(body),
		style.Label.Render(summary),
		style.Label.Render("Savings trend ") + h.trend.View(),
		style.Muted.Render("* simulated"),
	}
	if h.notice != "" {
		noticeStyle := style.Success
		if h.noticeErr {
			noticeStyle = style.Error
		}
		parts = append(parts, noticeStyle.Render(h.notice))
	}
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}
