// internal/quote/market.go
package quote

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/shopspring/decimal"
)

var (
	ErrUnknownToken        = errors.New("unknown token")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrTokenExists         = errors.New("token already listed")
)

// CustomTokenBalance is the starting balance of a user-added token.
var CustomTokenBalance = decimal.NewFromInt(1_000_000_000)

// Token is a tradable asset.
type Token struct {
	Symbol   string
	Name     string
	Mint     string
	Decimals int32
}

// Market is the session-scoped price and balance context. It replaces any
// process-wide tables: each session owns its own Market.
type Market struct {
	mu       sync.RWMutex
	order    []string
	tokens   map[string]Token
	prices   map[string]decimal.Decimal
	balances map[string]decimal.Decimal
}

// NewMarket creates an empty market.
func NewMarket() *Market {
	return &Market{
		tokens:   make(map[string]Token),
		prices:   make(map[string]decimal.Decimal),
		balances: make(map[string]decimal.Decimal),
	}
}

// DefaultMarket lists SOL, USDC and BONK with demo prices and balances.
func DefaultMarket() *Market {
	m := NewMarket()
	m.AddToken(Token{Symbol: "SOL", Name: "Solana", Mint: "So11111111111111111111111111111111111111112", Decimals: 9},
		decimal.NewFromInt(170))
	m.AddToken(Token{Symbol: "USDC", Name: "USD Coin", Mint: "CLEuMG7pzJX9xAuKCFzBP154uiG1GaNo4Fq7x6KAcAfG", Decimals: 6},
		decimal.NewFromInt(1))
	m.AddToken(Token{Symbol: "BONK", Name: "Bonk", Mint: "DezXAZ8z7PnrnRJjz3wXBoRgixCa6xjnB7YaB1pPB263", Decimals: 5},
		decimal.RequireFromString("0.00002"))

	m.SetBalance("SOL", decimal.RequireFromString("2.5"))
	m.SetBalance("USDC", decimal.NewFromInt(150))
	m.SetBalance("BONK", decimal.NewFromInt(50_000_000))
	return m
}

func normalize(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

// AddToken registers or replaces a token together with its price.
func (m *Market) AddToken(t Token, price decimal.Decimal) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t.Symbol = normalize(t.Symbol)
	if _, ok := m.tokens[t.Symbol]; !ok {
		m.order = append(m.order, t.Symbol)
	}
	m.tokens[t.Symbol] = t
	m.prices[t.Symbol] = price
}

// AddCustomToken lists a user-supplied token with a positive price and the
// CustomTokenBalance. A symbol or mint already listed is rejected.
func (m *Market) AddCustomToken(t Token, price decimal.Decimal) error {
	t.Symbol = normalize(t.Symbol)
	if t.Symbol == "" || t.Mint == "" {
		return errors.New("custom token needs a symbol and a mint")
	}
	if !price.IsPositive() {
		return fmt.Errorf("price of %s must be positive, got %s", t.Symbol, price)
	}
	if t.Name == "" {
		t.Name = t.Symbol
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.tokens {
		if existing.Symbol == t.Symbol || existing.Mint == t.Mint {
			return fmt.Errorf("%w: %s (%s)", ErrTokenExists, t.Symbol, existing.Symbol)
		}
	}
	m.order = append(m.order, t.Symbol)
	m.tokens[t.Symbol] = t
	m.prices[t.Symbol] = price
	m.balances[t.Symbol] = CustomTokenBalance
	return nil
}

// SetPrice overrides the price of a known token.
func (m *Market) SetPrice(symbol string, price decimal.Decimal) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	symbol = normalize(symbol)
	if _, ok := m.tokens[symbol]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownToken, symbol)
	}
	if !price.IsPositive() {
		return fmt.Errorf("price of %s must be positive, got %s", symbol, price)
	}
	m.prices[symbol] = price
	return nil
}

// PriceOf returns the reference price of symbol.
func (m *Market) PriceOf(symbol string) (decimal.Decimal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	price, ok := m.prices[normalize(symbol)]
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: %s", ErrUnknownToken, symbol)
	}
	return price, nil
}

// Token looks a token up by symbol.
func (m *Market) Token(symbol string) (Token, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.tokens[normalize(symbol)]
	return t, ok
}

// Symbols returns the token symbols in registration order.
func (m *Market) Symbols() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, len(m.order))
	copy(out, m.order)
	return out
}

// SOLFromLamports converts a lamport amount to SOL.
func SOLFromLamports(lamports uint64) decimal.Decimal {
	return decimal.NewFromUint64(lamports).Shift(-9)
}

// SetBalance sets the balance of symbol, either seeded or read from chain.
func (m *Market) SetBalance(symbol string, amount decimal.Decimal) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.balances[normalize(symbol)] = amount
}

// BalanceOf returns the balance of symbol.
func (m *Market) BalanceOf(symbol string) decimal.Decimal {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.balances[normalize(symbol)]
}

// Settle moves balances for a completed swap: amountIn leaves from and
// amountOut arrives in to.
func (m *Market) Settle(from string, amountIn decimal.Decimal, to string, amountOut decimal.Decimal) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	from, to = normalize(from), normalize(to)
	if _, ok := m.tokens[from]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownToken, from)
	}
	if _, ok := m.tokens[to]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownToken, to)
	}
	if m.balances[from].LessThan(amountIn) {
		return fmt.Errorf("%w: have %s %s, need %s", ErrInsufficientBalance, m.balances[from], from, amountIn)
	}
	m.balances[from] = m.balances[from].Sub(amountIn)
	m.balances[to] = m.balances[to].Add(amountOut)
	return nil
}
