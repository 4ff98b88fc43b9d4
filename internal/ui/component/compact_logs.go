package component

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap/zapcore"

	"github.com/rovshanmuradov/compressed-swap/internal/logger"
	"github.com/rovshanmuradov/compressed-swap/internal/ui/style"
)

// shownFields are the structured fields worth printing next to a message.
var shownFields = []string{"operation_id", "phase", "method", "url", "signature", "error"}

// LogViewer renders the newest entries of a LogBuffer
type LogViewer struct {
	buffer   *logger.LogBuffer
	viewport viewport.Model
	minLevel zapcore.Level
	limit    int
	follow   bool
	style    LogViewerStyle
	width    int
	height   int
	title    string
}

// LogViewerStyle contains all styling for the log viewer
type LogViewerStyle struct {
	container lipgloss.Style
	title     lipgloss.Style
	timestamp lipgloss.Style
	field     lipgloss.Style
	levels    map[zapcore.Level]lipgloss.Style
}

// NewLogViewer creates a log viewer over buf showing up to limit entries.
func NewLogViewer(buf *logger.LogBuffer, limit int) *LogViewer {
	palette := style.DefaultPalette()
	if limit <= 0 {
		limit = 200
	}

	return &LogViewer{
		buffer:   buf,
		minLevel: zapcore.InfoLevel,
		limit:    limit,
		follow:   true,
		title:    "Activity",
		style: LogViewerStyle{
			container: lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(palette.Info).
				Padding(0, 1),

			title: lipgloss.NewStyle().
				Foreground(palette.Info).
				Bold(true),

			timestamp: lipgloss.NewStyle().
				Foreground(palette.TextMuted),

			field: lipgloss.NewStyle().
				Foreground(palette.TextSecondary),

			levels: map[zapcore.Level]lipgloss.Style{
				zapcore.DebugLevel: lipgloss.NewStyle().Foreground(palette.TextMuted),
				zapcore.InfoLevel:  lipgloss.NewStyle().Foreground(palette.Info),
				zapcore.WarnLevel:  lipgloss.NewStyle().Foreground(palette.Warning).Bold(true),
				zapcore.ErrorLevel: lipgloss.NewStyle().Foreground(palette.Error).Bold(true),
			},
		},
		viewport: viewport.New(50, 4),
	}
}

// SetSize sets the component dimensions
func (lv *LogViewer) SetSize(width, height int) {
	lv.width = width
	lv.height = height
	lv.style.container = lv.style.container.Width(max(width-2, 0))

	lv.viewport.Width = max(width-4, 10)
	lv.viewport.Height = max(height-3, 2)
	lv.refresh()
}

// MinLevel returns the lowest level shown.
func (lv *LogViewer) MinLevel() zapcore.Level {
	return lv.minLevel
}

// CycleLevel steps the threshold through debug, info, warn and error.
func (lv *LogViewer) CycleLevel() {
	if lv.minLevel >= zapcore.ErrorLevel {
		lv.minLevel = zapcore.DebugLevel
	} else {
		lv.minLevel++
	}
	lv.refresh()
}

// Update handles viewport scrolling. Scrolling up stops following new lines
// until the bottom is reached again.
func (lv *LogViewer) Update(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	lv.viewport, cmd = lv.viewport.Update(msg)
	lv.follow = lv.viewport.AtBottom()
	return cmd
}

// View renders the log viewer
func (lv *LogViewer) View() string {
	lv.refresh()

	title := fmt.Sprintf("%s (level ≥ %s)", lv.title, lv.minLevel.CapitalString())
	content := lipgloss.JoinVertical(
		lipgloss.Left,
		lv.style.title.Render(title),
		lv.viewport.View(),
	)
	return lv.style.container.Render(content)
}

// Lines returns the formatted entries that pass the level filter.
func (lv *LogViewer) Lines() []string {
	if lv.buffer == nil {
		return nil
	}

	var lines []string
	for _, entry := range lv.buffer.GetRecentLogs(lv.limit) {
		level := parseLevel(entry.Level)
		if level < lv.minLevel {
			continue
		}
		lines = append(lines, lv.format(entry, level))
	}
	return lines
}

func (lv *LogViewer) refresh() {
	if lv.buffer == nil {
		lv.viewport.SetContent("No log buffer available")
		return
	}

	lines := lv.Lines()
	if len(lines) == 0 {
		lv.viewport.SetContent("No logs at this level yet")
		return
	}
	lv.viewport.SetContent(strings.Join(lines, "\n"))
	if lv.follow {
		lv.viewport.GotoBottom()
	}
}

func (lv *LogViewer) format(entry logger.LogEntry, level zapcore.Level) string {
	levelStyle, ok := lv.style.levels[level]
	if !ok {
		levelStyle = lv.style.levels[zapcore.ErrorLevel]
	}

	line := fmt.Sprintf("%s %s %s",
		lv.style.timestamp.Render(entry.Timestamp.Format("15:04:05")),
		levelStyle.Render(fmt.Sprintf("%-5s", level.CapitalString())),
		entry.Message)

	if extra := formatFields(entry.Fields); extra != "" {
		line += " " + lv.style.field.Render(extra)
	}
	return line
}

func formatFields(fields map[string]interface{}) string {
	if len(fields) == 0 {
		return ""
	}
	var parts []string
	for _, k := range shownFields {
		if v, ok := fields[k]; ok {
			parts = append(parts, fmt.Sprintf("%s=%v", k, v))
		}
	}
	sort.Strings(parts)
	return strings.Join(parts, " ")
}

// parseLevel maps a buffered level name onto zap's levels. Unknown names
// count as info.
func parseLevel(name string) zapcore.Level {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(strings.ToLower(name))); err != nil {
		if strings.EqualFold(name, "warning") {
			return zapcore.WarnLevel
		}
		return zapcore.InfoLevel
	}
	return level
}
