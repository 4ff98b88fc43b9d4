package component

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/rovshanmuradov/compressed-swap/internal/compression"
	"github.com/rovshanmuradov/compressed-swap/internal/quote"
	"github.com/rovshanmuradov/compressed-swap/internal/ui/style"
)

// QuoteCard shows the live estimate for the form and, once a compressed
// swap finished, its compression metrics.
type QuoteCard struct {
	quote    *quote.Quote
	err      error
	compress bool
	metrics  *compression.Metrics
	fees     compression.FeeComparison
	width    int
	palette  style.Palette
}

// NewQuoteCard creates an empty card.
func NewQuoteCard() *QuoteCard {
	return &QuoteCard{
		fees:    compression.CompareFees(),
		palette: style.DefaultPalette(),
	}
}

// SetWidth sets the card width.
func (qc *QuoteCard) SetWidth(width int) {
	qc.width = width
}

// SetQuote shows q. A non-nil err replaces the estimate.
func (qc *QuoteCard) SetQuote(q quote.Quote, err error) {
	if err != nil {
		qc.quote, qc.err = nil, err
		return
	}
	qc.quote, qc.err = &q, nil
}

// Clear removes the estimate.
func (qc *QuoteCard) Clear() {
	qc.quote, qc.err = nil, nil
}

// SetCompress marks which path the next swap will take.
func (qc *QuoteCard) SetCompress(on bool) {
	qc.compress = on
}

// SetMetrics shows the metrics of the last compressed swap. nil hides them.
func (qc *QuoteCard) SetMetrics(m *compression.Metrics) {
	qc.metrics = m
}

// View renders the card.
func (qc *QuoteCard) View() string {
	var b strings.Builder

	b.WriteString(style.Title.Render("Estimate"))
	b.WriteString("\n")
	switch {
	case qc.err != nil:
		b.WriteString(style.Error.Render(qc.err.Error()))
	case qc.quote == nil:
		b.WriteString(style.Muted.Render("Enter an amount to see a quote"))
	default:
		q := qc.quote
		fmt.Fprintf(&b, "%s %s → %s %s\n", q.Amount.String(), q.From, q.Formatted, q.To)
		b.WriteString(style.Label.Render(fmt.Sprintf("1 %s = %s %s · slippage %.2f%%",
			q.From, q.Rate.Round(6).String(), q.To, float64(q.SlippageBps)/100)))
	}

	b.WriteString("\n\n")
	b.WriteString(qc.feeLine())

	if qc.metrics != nil {
		b.WriteString("\n\n")
		b.WriteString(qc.metricsView(*qc.metrics))
	}

	card := style.Card
	if qc.width > 0 {
		card = card.Width(max(qc.width-2, 20))
	}
	return card.Render(b.String())
}

func (qc *QuoteCard) feeLine() string {
	path := lipgloss.NewStyle().Foreground(qc.palette.Standard).Render("standard")
	if qc.compress {
		path = lipgloss.NewStyle().Foreground(qc.palette.Compressed).Bold(true).Render("compressed")
	}
	return fmt.Sprintf("Path: %s\n%s", path, style.Muted.Render(qc.fees.String()))
}

func (qc *QuoteCard) metricsView(m compression.Metrics) string {
	accent := lipgloss.NewStyle().Foreground(qc.palette.Compressed).Bold(true)
	rows := [][2]string{
		{"Size", fmt.Sprintf("%s → %s", m.OriginalSizeString(), m.CompressedSizeString())},
		{"Ratio", m.RatioString()},
		{"Savings", m.SavingsString()},
		{"Fee", m.CompressedFeeString()},
		{"Fee saved", m.FeeSavingsString()},
	}

	lines := []string{accent.Render("Last compression")}
	for _, r := range rows {
		lines = append(lines, fmt.Sprintf("%s %s", style.Label.Render(fmt.Sprintf("%-10s", r[0])), r[1]))
	}
	return strings.Join(lines, "\n")
}
