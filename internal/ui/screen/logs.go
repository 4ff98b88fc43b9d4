package screen

import (
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/rovshanmuradov/compressed-swap/internal/logger"
	"github.com/rovshanmuradov/compressed-swap/internal/ui"
	"github.com/rovshanmuradov/compressed-swap/internal/ui/component"
	"github.com/rovshanmuradov/compressed-swap/internal/ui/router"
	"github.com/rovshanmuradov/compressed-swap/internal/ui/style"
)

const logLimit = 500

// LogsScreen shows the in-memory log buffer
type LogsScreen struct {
	keyMap ui.KeyMap
	buffer *logger.LogBuffer
	viewer *component.LogViewer
}

// NewLogsScreen creates the logs tab over buf
func NewLogsScreen(buf *logger.LogBuffer) *LogsScreen {
	return &LogsScreen{
		keyMap: ui.DefaultKeyMap(),
		buffer: buf,
		viewer: component.NewLogViewer(buf, logLimit),
	}
}

// Init initializes the screen
func (l *LogsScreen) Init() tea.Cmd {
	return nil
}

// Update handles scrolling and the level filter
func (l *LogsScreen) Update(msg tea.Msg) (router.Screen, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok && key.Matches(msg, l.keyMap.FilterCycle) {
		l.viewer.CycleLevel()
		return l, nil
	}
	switch msg.(type) {
	case tea.KeyMsg, tea.MouseMsg:
		return l, l.viewer.Update(msg)
	}
	return l, nil
}

// SetSize sets the screen dimensions
func (l *LogsScreen) SetSize(width, height int) {
	l.viewer.SetSize(width, max(height-10, 6))
}

// View renders the logs screen
func (l *LogsScreen) View() string {
	footer := ""
	if l.buffer != nil {
		total, dropped := l.buffer.GetStats()
		footer = style.Muted.Render(fmt.Sprintf("%d entries logged, %d rotated out", total, dropped))
	}
	return lipgloss.JoinVertical(lipgloss.Left, l.viewer.View(), footer)
}
