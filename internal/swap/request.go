// internal/swap/request.go
package swap

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/rovshanmuradov/compressed-swap/internal/quote"
)

const (
	DefaultMinSlippageBps = 10
	DefaultMaxSlippageBps = 500
)

// ErrValidation is matched by every ValidationError.
var ErrValidation = errors.New("invalid swap request")

// ValidationError rejects a request before it is submitted.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// Request is an immutable swap order.
type Request struct {
	Operator    string
	From        string
	To          string
	Amount      decimal.Decimal
	SlippageBps int
	Compress    bool
}

// Validate checks the request against the market and slippage bounds.
func (r Request) Validate(market *quote.Market, minBps, maxBps int) error {
	if !r.Amount.IsPositive() {
		return &ValidationError{Field: "amount", Reason: "must be greater than zero"}
	}
	if strings.TrimSpace(r.From) == "" || strings.TrimSpace(r.To) == "" {
		return &ValidationError{Field: "token", Reason: "source and destination are required"}
	}
	if strings.EqualFold(strings.TrimSpace(r.From), strings.TrimSpace(r.To)) {
		return &ValidationError{Field: "token", Reason: "source and destination must differ"}
	}
	if r.SlippageBps < minBps || r.SlippageBps > maxBps {
		return &ValidationError{
			Field:  "slippage",
			Reason: fmt.Sprintf("%d bps outside [%d, %d]", r.SlippageBps, minBps, maxBps),
		}
	}
	if market != nil {
		if _, ok := market.Token(r.From); !ok {
			return &ValidationError{Field: "from", Reason: fmt.Sprintf("unknown token %s", r.From)}
		}
		if _, ok := market.Token(r.To); !ok {
			return &ValidationError{Field: "to", Reason: fmt.Sprintf("unknown token %s", r.To)}
		}
	}
	return nil
}
