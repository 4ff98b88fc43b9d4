package component

import (
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/rovshanmuradov/compressed-swap/internal/swap"
	"github.com/rovshanmuradov/compressed-swap/internal/ui/style"
)

var trackedPhases = []swap.Phase{
	swap.PhasePreparing,
	swap.PhaseDecompressing,
	swap.PhaseExecuting,
	swap.PhaseCompressing,
	swap.PhaseConfirmed,
}

// PhaseTracker draws the orchestration phases as a step line with a
// spinner on the active step.
type PhaseTracker struct {
	phase   swap.Phase
	failed  swap.Phase
	spinner spinner.Model
	palette style.Palette
}

// NewPhaseTracker creates an idle tracker.
func NewPhaseTracker() *PhaseTracker {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(style.Cyan)
	return &PhaseTracker{spinner: s, palette: style.DefaultPalette()}
}

// Tick starts the spinner animation.
func (pt *PhaseTracker) Tick() tea.Cmd {
	return pt.spinner.Tick
}

// Update advances the spinner.
func (pt *PhaseTracker) Update(msg tea.Msg) tea.Cmd {
	if _, ok := msg.(spinner.TickMsg); !ok {
		return nil
	}
	var cmd tea.Cmd
	pt.spinner, cmd = pt.spinner.Update(msg)
	return cmd
}

// Phase returns the phase on display.
func (pt *PhaseTracker) Phase() swap.Phase {
	return pt.phase
}

// Set moves the tracker to p. The step that was active when a failure
// arrived is remembered so it can be marked.
func (pt *PhaseTracker) Set(p swap.Phase) {
	if p == swap.PhaseFailed && !pt.phase.Terminal() {
		pt.failed = pt.phase
	}
	if p == swap.PhaseIdle {
		pt.failed = swap.PhaseIdle
	}
	pt.phase = p
}

// Active reports whether an operation is running.
func (pt *PhaseTracker) Active() bool {
	return pt.phase != swap.PhaseIdle && !pt.phase.Terminal()
}

// View renders the step line.
func (pt *PhaseTracker) View() string {
	done := lipgloss.NewStyle().Foreground(pt.palette.Success)
	pending := style.Muted
	current := lipgloss.NewStyle().Foreground(pt.palette.Primary).Bold(true)
	failed := lipgloss.NewStyle().Foreground(pt.palette.Error).Bold(true)

	steps := make([]string, 0, len(trackedPhases))
	for _, p := range trackedPhases {
		switch {
		case pt.phase == swap.PhaseFailed && p == pt.failed:
			steps = append(steps, failed.Render("✗ "+p.String()))
		case pt.phase == swap.PhaseFailed:
			if p < pt.failed {
				steps = append(steps, done.Render("✓ "+p.String()))
			} else {
				steps = append(steps, pending.Render("· "+p.String()))
			}
		case p == pt.phase && p == swap.PhaseConfirmed:
			steps = append(steps, done.Render("✓ "+p.String()))
		case p == pt.phase:
			steps = append(steps, current.Render(pt.spinner.View()+p.String()))
		case pt.phase != swap.PhaseIdle && p < pt.phase:
			steps = append(steps, done.Render("✓ "+p.String()))
		default:
			steps = append(steps, pending.Render("· "+p.String()))
		}
	}
	return strings.Join(steps, style.Muted.Render(" → "))
}
