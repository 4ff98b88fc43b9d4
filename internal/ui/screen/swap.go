package screen

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"

	"github.com/rovshanmuradov/compressed-swap/internal/events"
	"github.com/rovshanmuradov/compressed-swap/internal/quote"
	"github.com/rovshanmuradov/compressed-swap/internal/swap"
	"github.com/rovshanmuradov/compressed-swap/internal/ui"
	"github.com/rovshanmuradov/compressed-swap/internal/ui/component"
	"github.com/rovshanmuradov/compressed-swap/internal/ui/router"
	"github.com/rovshanmuradov/compressed-swap/internal/ui/style"
)

// airdropSOL is what one faucet key press asks for.
var airdropSOL = decimal.NewFromInt(1)

type swapField int

const (
	fieldFrom swapField = iota
	fieldTo
	fieldAmount
	fieldSlippage
	fieldCount
)

var fieldLabels = [fieldCount]string{"From", "To", "Amount", "Slippage %"}

// SwapScreen is the swap form with live quote and phase tracking
type SwapScreen struct {
	width  int
	height int
	keyMap ui.KeyMap
	svc    *ui.Services

	symbols  []string
	from     int
	to       int
	amount   textinput.Model
	slippage textinput.Model
	focus    swapField
	compress bool

	card    *component.QuoteCard
	tracker *component.PhaseTracker

	submitting bool
	airdrop    bool
	demo       bool
	notice     string
	noticeErr  bool

	labelStyle     lipgloss.Style
	focusStyle     lipgloss.Style
	containerStyle lipgloss.Style
}

// NewSwapScreen creates the swap form
func NewSwapScreen(svc *ui.Services) *SwapScreen {
	palette := style.DefaultPalette()

	amount := textinput.New()
	amount.Placeholder = "0.0"
	amount.CharLimit = 24
	amount.Width = 18

	slippage := textinput.New()
	slippage.Placeholder = "0.5"
	slippage.CharLimit = 6
	slippage.Width = 8
	slippage.SetValue("0.5")

	s := &SwapScreen{
		keyMap:   ui.DefaultKeyMap(),
		svc:      svc,
		symbols:  svc.Market().Symbols(),
		amount:   amount,
		slippage: slippage,
		focus:    fieldAmount,
		card:     component.NewQuoteCard(),
		tracker:  component.NewPhaseTracker(),
		demo:     svc.Wallet == "",

		labelStyle: lipgloss.NewStyle().
			Foreground(palette.TextSecondary).
			Width(12),

		focusStyle: lipgloss.NewStyle().
			Foreground(palette.Primary).
			Bold(true).
			Width(12),

		containerStyle: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(palette.Primary).
			Padding(1, 2),
	}
	s.from = s.indexOf("SOL", 0)
	s.to = s.indexOf("USDC", min(1, len(s.symbols)-1))
	s.amount.Focus()
	return s
}

func (s *SwapScreen) indexOf(symbol string, fallback int) int {
	for i, sym := range s.symbols {
		if sym == symbol {
			return i
		}
	}
	return max(fallback, 0)
}

// Init initializes the screen
func (s *SwapScreen) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, s.tracker.Tick())
}

// Update handles form input and swap progress
func (s *SwapScreen) Update(msg tea.Msg) (router.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return s, s.handleKey(msg)

	case ui.EventMsg:
		if e, ok := msg.Event.(events.PhaseChangedEvent); ok {
			if p, ok := swap.ParsePhase(e.To); ok {
				s.tracker.Set(p)
			}
		}
		return s, nil

	case ui.ConnectedMsg:
		s.demo = msg.Status.DemoMode || !msg.Status.Connected
		if msg.Status.BalanceSynced {
			s.setNotice(fmt.Sprintf("Wallet balance %s SOL", quote.Format(msg.Status.Balance, 9)), false)
		}
		return s, nil

	case ui.SwapDoneMsg:
		s.submitting = false
		s.handleOutcome(msg)
		s.refreshQuote()
		return s, nil

	case ui.AirdropDoneMsg:
		s.airdrop = false
		if msg.Err != nil {
			s.setNotice(fmt.Sprintf("Airdrop failed: %v", msg.Err), true)
		} else {
			s.setNotice(fmt.Sprintf("Airdrop credited %s SOL", quote.Format(msg.Result.Credited(), 9)), false)
		}
		return s, nil
	}

	return s, s.tracker.Update(msg)
}

func (s *SwapScreen) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, s.keyMap.Submit):
		return s.submit()

	case key.Matches(msg, s.keyMap.Flip):
		s.from, s.to = s.to, s.from
		s.refreshQuote()
		return nil

	case key.Matches(msg, s.keyMap.Compress):
		s.compress = !s.compress
		s.card.SetCompress(s.compress)
		return nil

	case key.Matches(msg, s.keyMap.Airdrop):
		if s.airdrop {
			return nil
		}
		s.airdrop = true
		s.setNotice("Requesting airdrop...", false)
		return s.svc.Airdrop(airdropSOL)

	case key.Matches(msg, s.keyMap.Up):
		s.setFocus((s.focus + fieldCount - 1) % fieldCount)
		return nil

	case key.Matches(msg, s.keyMap.Down):
		s.setFocus((s.focus + 1) % fieldCount)
		return nil
	}

	if s.focus == fieldFrom || s.focus == fieldTo {
		step := 0
		switch {
		case key.Matches(msg, s.keyMap.Left):
			step = -1
		case key.Matches(msg, s.keyMap.Right):
			step = 1
		}
		if step != 0 && len(s.symbols) > 0 {
			n := len(s.symbols)
			if s.focus == fieldFrom {
				s.from = (s.from + step + n) % n
			} else {
				s.to = (s.to + step + n) % n
			}
			s.refreshQuote()
		}
		return nil
	}

	var cmd tea.Cmd
	if s.focus == fieldAmount {
		s.amount, cmd = s.amount.Update(msg)
	} else {
		s.slippage, cmd = s.slippage.Update(msg)
	}
	s.refreshQuote()
	return cmd
}

func (s *SwapScreen) setFocus(f swapField) {
	s.focus = f
	s.amount.Blur()
	s.slippage.Blur()
	switch f {
	case fieldAmount:
		s.amount.Focus()
	case fieldSlippage:
		s.slippage.Focus()
	}
}

func (s *SwapScreen) setNotice(text string, isErr bool) {
	s.notice, s.noticeErr = text, isErr
}

// Request builds the order from the form.
func (s *SwapScreen) Request() (swap.Request, error) {
	amount, err := decimal.NewFromString(strings.TrimSpace(s.amount.Value()))
	if err != nil {
		return swap.Request{}, errors.New("amount is not a number")
	}
	pct, err := strconv.ParseFloat(strings.TrimSpace(s.slippage.Value()), 64)
	if err != nil {
		return swap.Request{}, errors.New("slippage is not a number")
	}
	if len(s.symbols) == 0 {
		return swap.Request{}, errors.New("no tokens available")
	}

	return swap.Request{
		Operator:    s.svc.Wallet,
		From:        s.symbols[s.from],
		To:          s.symbols[s.to],
		Amount:      amount,
		SlippageBps: int(pct*100 + 0.5),
		Compress:    s.compress,
	}, nil
}

func (s *SwapScreen) submit() tea.Cmd {
	if s.submitting || s.tracker.Active() {
		s.setNotice("A swap is already in progress", true)
		return nil
	}
	req, err := s.Request()
	if err != nil {
		s.setNotice(err.Error(), true)
		return nil
	}

	s.submitting = true
	s.card.SetMetrics(nil)
	s.setNotice(fmt.Sprintf("Swapping %s %s → %s", req.Amount.String(), req.From, req.To), false)
	return tea.Batch(s.svc.Submit(req), s.tracker.Tick())
}

func (s *SwapScreen) handleOutcome(msg ui.SwapDoneMsg) {
	if msg.Err != nil {
		if errors.Is(msg.Err, swap.ErrOperationInFlight) {
			s.setNotice("A swap is already in progress", true)
		} else {
			s.setNotice(msg.Err.Error(), true)
		}
		return
	}

	out := msg.Outcome
	s.tracker.Set(out.Phase)
	if !out.Confirmed() {
		s.setNotice(out.Message, true)
		return
	}

	rec := out.Record
	if rec.Metrics != nil {
		m := *rec.Metrics
		s.card.SetMetrics(&m)
	}
	mode := "on-chain"
	if rec.IsSimulated {
		mode = "simulated"
	}
	s.setNotice(fmt.Sprintf("Received %s %s (%s, tx %s)",
		rec.OutputAmount.String(), rec.To, mode, shortID(rec.TransactionID)), false)
}

func (s *SwapScreen) refreshQuote() {
	raw := strings.TrimSpace(s.amount.Value())
	if raw == "" {
		s.card.Clear()
		return
	}
	req, err := s.Request()
	if err != nil {
		s.card.SetQuote(quote.Quote{}, err)
		return
	}
	s.card.SetQuote(s.svc.Estimator.Estimate(req.Amount, req.From, req.To, req.SlippageBps))
}

// SetSize sets the screen dimensions
func (s *SwapScreen) SetSize(width, height int) {
	s.width = width
	s.height = height
	s.card.SetWidth(max(width/2-2, 30))
}

// View renders the swap screen
func (s *SwapScreen) View() string {
	form := s.formView()
	card := s.card.View()

	body := lipgloss.JoinHorizontal(lipgloss.Top, s.containerStyle.Render(form), " ", card)
	if s.width > 0 && s.width < 90 {
		body = lipgloss.JoinVertical(lipgloss.Left, s.containerStyle.Render(form), card)
	}

	parts := []string{body, "", s.tracker.View()}
	if s.notice != "" {
		noticeStyle := style.Success
		if s.noticeErr {
			noticeStyle = style.Error
		}
		parts = append(parts, "", noticeStyle.Render(s.notice))
	}
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (s *SwapScreen) formView() string {
	market := s.svc.Market()
	var lines []string
	for f := fieldFrom; f < fieldCount; f++ {
		label := s.labelStyle.Render(fieldLabels[f])
		if f == s.focus {
			label = s.focusStyle.Render("▸ " + fieldLabels[f])
		}

		var value string
		switch f {
		case fieldFrom, fieldTo:
			idx := s.from
			if f == fieldTo {
				idx = s.to
			}
			if len(s.symbols) > 0 {
				sym := s.symbols[idx]
				value = fmt.Sprintf("◂ %-5s ▸ %s", sym,
					style.Muted.Render("bal "+market.BalanceOf(sym).String()))
			}
		case fieldAmount:
			value = s.amount.View()
		case fieldSlippage:
			value = s.slippage.View()
		}
		lines = append(lines, label+value)
	}

	compress := style.Muted.Render("off")
	if s.compress {
		compress = lipgloss.NewStyle().Foreground(style.CompressedColor).Bold(true).Render("on")
	}
	lines = append(lines, "", s.labelStyle.Render("Compress")+compress)

	if s.demo {
		lines = append(lines, lipgloss.NewStyle().Foreground(style.DemoColor).Render("Demo mode: swaps are simulated"))
	}
	return strings.Join(lines, "\n")
}

func shortID(id string) string {
	if len(id) <= 12 {
		return id
	}
	return id[:6] + "…" + id[len(id)-6:]
}
