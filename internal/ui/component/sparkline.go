package component

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/rovshanmuradov/compressed-swap/internal/ui/style"
)

var sparkChars = []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

// Sparkline is a one line chart of the most recent values, used for the
// savings trend of compressed swaps.
type Sparkline struct {
	data  []float64
	width int
	color lipgloss.Color
	unit  string
}

// NewSparkline creates a sparkline keeping the last width points.
func NewSparkline(width int, unit string) *Sparkline {
	return &Sparkline{
		width: max(width, 1),
		color: style.DefaultPalette().Compressed,
		unit:  unit,
	}
}

// SetData replaces the points, keeping only the newest width of them.
func (s *Sparkline) SetData(data []float64) {
	if len(data) > s.width {
		data = data[len(data)-s.width:]
	}
	s.data = append(s.data[:0], data...)
}

// Len returns how many points are drawn.
func (s *Sparkline) Len() int {
	return len(s.data)
}

// Bars returns the unstyled bar characters.
func (s *Sparkline) Bars() string {
	if len(s.data) == 0 {
		return ""
	}

	lo, hi := s.data[0], s.data[0]
	for _, v := range s.data {
		lo, hi = min(lo, v), max(hi, v)
	}
	if lo == hi {
		return strings.Repeat(string(sparkChars[len(sparkChars)/2]), len(s.data))
	}

	var b strings.Builder
	for _, v := range s.data {
		idx := int((v - lo) / (hi - lo) * float64(len(sparkChars)-1))
		b.WriteRune(sparkChars[min(max(idx, 0), len(sparkChars)-1)])
	}
	return b.String()
}

// View renders the bars followed by the latest value.
func (s *Sparkline) View() string {
	if len(s.data) == 0 {
		return style.Muted.Render("no data yet")
	}
	last := s.data[len(s.data)-1]
	return lipgloss.NewStyle().Foreground(s.color).Render(s.Bars()) +
		" " + style.Label.Render(fmt.Sprintf("%.2f%s", last, s.unit))
}
