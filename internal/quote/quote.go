// internal/quote/quote.go
package quote

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// ErrInvalidAmount is returned for non-positive input amounts.
var ErrInvalidAmount = errors.New("amount must be positive")

const (
	largeAmountPlaces = 6
	smallAmountPlaces = 8
	bpsDenominator    = 10_000
)

// Quote is the estimated result of swapping Amount of From into To.
type Quote struct {
	From        string
	To          string
	Amount      decimal.Decimal
	SlippageBps int
	// Output is the rounded estimated amount received.
	Output decimal.Decimal
	// Rate is how many To one From buys before slippage.
	Rate      decimal.Decimal
	Formatted string
}

// Estimator prices swaps against a Market.
type Estimator struct {
	market *Market
}

// NewEstimator binds an estimator to a market.
func NewEstimator(market *Market) *Estimator {
	return &Estimator{market: market}
}

// Market returns the bound market.
func (e *Estimator) Market() *Market {
	return e.market
}

// Estimate converts amount of from into to at reference prices and applies
// the slippage haircut. The result is a pure function of its inputs and
// the current prices.
func (e *Estimator) Estimate(amount decimal.Decimal, from, to string, slippageBps int) (Quote, error) {
	if !amount.IsPositive() {
		return Quote{}, ErrInvalidAmount
	}
	if slippageBps < 0 || slippageBps > bpsDenominator {
		return Quote{}, fmt.Errorf("slippage %d bps out of range", slippageBps)
	}

	fromPrice, err := e.market.PriceOf(from)
	if err != nil {
		return Quote{}, err
	}
	toPrice, err := e.market.PriceOf(to)
	if err != nil {
		return Quote{}, err
	}
	toToken, _ := e.market.Token(to)

	rate := fromPrice.Div(toPrice)
	haircut := decimal.NewFromInt(1).Sub(decimal.New(int64(slippageBps), 0).Div(decimal.NewFromInt(bpsDenominator)))
	raw := amount.Mul(fromPrice).Div(toPrice).Mul(haircut)

	output := Round(raw, toToken.Decimals)
	return Quote{
		From:        from,
		To:          to,
		Amount:      amount,
		SlippageBps: slippageBps,
		Output:      output,
		Rate:        rate,
		Formatted:   output.String(),
	}, nil
}

// Round keeps at most 6 fractional digits for amounts of at least one and
// at most 8 below one, never more than the token's decimals.
func Round(v decimal.Decimal, decimals int32) decimal.Decimal {
	places := int32(smallAmountPlaces)
	if v.Abs().GreaterThanOrEqual(decimal.NewFromInt(1)) {
		places = largeAmountPlaces
	}
	if decimals >= 0 && decimals < places {
		places = decimals
	}
	return v.Round(places)
}

// Format renders v with the same rounding policy.
func Format(v decimal.Decimal, decimals int32) string {
	return Round(v, decimals).String()
}
