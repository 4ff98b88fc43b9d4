package router

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/rovshanmuradov/compressed-swap/internal/ui"
)

// Screen is one tab of the console
type Screen interface {
	Init() tea.Cmd
	Update(msg tea.Msg) (Screen, tea.Cmd)
	View() string
	SetSize(width, height int)
}

// Router owns one screen per tab. Key presses go to the active screen only,
// every other message reaches all screens so background tabs stay current.
type Router struct {
	screens map[ui.Tab]Screen
	order   []ui.Tab
	active  int
	width   int
	height  int
}

// New creates a router over screens, shown in ui.Tabs order.
func New(screens map[ui.Tab]Screen) *Router {
	r := &Router{screens: screens}
	for _, t := range ui.Tabs() {
		if _, ok := screens[t]; ok {
			r.order = append(r.order, t)
		}
	}
	return r
}

// Init initializes every screen
func (r *Router) Init() tea.Cmd {
	cmds := make([]tea.Cmd, 0, len(r.order))
	for _, t := range r.order {
		cmds = append(cmds, r.screens[t].Init())
	}
	return tea.Batch(cmds...)
}

// Update routes msg to the screens
func (r *Router) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		r.SetSize(msg.Width, msg.Height)
		return nil

	case tea.KeyMsg, tea.MouseMsg:
		current := r.Current()
		if current == nil {
			return nil
		}
		next, cmd := current.Update(msg)
		r.screens[r.ActiveTab()] = next
		return cmd
	}

	var cmds []tea.Cmd
	for _, t := range r.order {
		next, cmd := r.screens[t].Update(msg)
		r.screens[t] = next
		cmds = append(cmds, cmd)
	}
	return tea.Batch(cmds...)
}

// View renders the active screen
func (r *Router) View() string {
	current := r.Current()
	if current == nil {
		return "No screen available"
	}
	return current.View()
}

// SetSize sets the size for every screen
func (r *Router) SetSize(width, height int) {
	r.width = width
	r.height = height
	for _, t := range r.order {
		r.screens[t].SetSize(width, height)
	}
}

// Next activates the following tab, wrapping around.
func (r *Router) Next() {
	if len(r.order) == 0 {
		return
	}
	r.active = (r.active + 1) % len(r.order)
}

// Prev activates the preceding tab, wrapping around.
func (r *Router) Prev() {
	if len(r.order) == 0 {
		return
	}
	r.active = (r.active + len(r.order) - 1) % len(r.order)
}

// Select activates t if the router has it.
func (r *Router) Select(t ui.Tab) bool {
	for i, o := range r.order {
		if o == t {
			r.active = i
			return true
		}
	}
	return false
}

// ActiveTab returns the tab on display
func (r *Router) ActiveTab() ui.Tab {
	if len(r.order) == 0 {
		return ui.TabSwap
	}
	return r.order[r.active]
}

// Tabs returns the tabs in display order.
func (r *Router) Tabs() []ui.Tab {
	return append([]ui.Tab(nil), r.order...)
}

// Current returns the active screen
func (r *Router) Current() Screen {
	if len(r.order) == 0 {
		return nil
	}
	return r.screens[r.order[r.active]]
}
