// internal/swap/outcome.go
package swap

import (
	"context"
	"errors"

	"github.com/rovshanmuradov/compressed-swap/internal/blockchain"
	"github.com/rovshanmuradov/compressed-swap/internal/blockchain/solbc/rpc"
	"github.com/rovshanmuradov/compressed-swap/internal/ledger"
	"github.com/rovshanmuradov/compressed-swap/internal/quote"
)

// ErrorKind classifies why an operation failed.
type ErrorKind string

const (
	KindNone        ErrorKind = ""
	KindRateLimited ErrorKind = "rate_limited"
	KindValidation  ErrorKind = "validation"
	KindSigner      ErrorKind = "signer"
	KindNetwork     ErrorKind = "network"
	KindOnChain     ErrorKind = "on_chain"
	KindCanceled    ErrorKind = "canceled"
	KindUnknown     ErrorKind = "unknown"
)

// User-facing failure messages.
const (
	MsgRateLimited = "Rate limit exceeded. Please wait a few moments and try again."
	MsgSigner      = "Wallet unavailable or the request was rejected."
	MsgNetwork     = "Network error: no RPC endpoint answered. Please try again."
	MsgOnChain     = "The transaction was rejected by the network."
	MsgCanceled    = "The swap was canceled."
	MsgGeneric     = "Swap failed. Please try again."
)

// Classify maps a failure to its kind.
func Classify(err error) ErrorKind {
	switch {
	case err == nil:
		return KindNone
	case rpc.IsRateLimited(err):
		return KindRateLimited
	case errors.Is(err, ErrValidation):
		return KindValidation
	case blockchain.IsSignerError(err):
		return KindSigner
	case errors.Is(err, errOnChain):
		return KindOnChain
	case errors.Is(err, context.Canceled):
		return KindCanceled
	}
	var exhausted *rpc.ExhaustedRetriesError
	if errors.As(err, &exhausted) || rpc.IsRetryableError(err) {
		return KindNetwork
	}
	return KindUnknown
}

// Message returns the text shown to the user for kind.
func (k ErrorKind) Message() string {
	switch k {
	case KindNone:
		return ""
	case KindRateLimited:
		return MsgRateLimited
	case KindSigner:
		return MsgSigner
	case KindNetwork:
		return MsgNetwork
	case KindOnChain:
		return MsgOnChain
	case KindCanceled:
		return MsgCanceled
	default:
		return MsgGeneric
	}
}

// Outcome is the terminal result of a submitted operation: either
// Confirmed with its record or Failed with a kind. Both carry the record
// that was appended to the ledger.
type Outcome struct {
	OperationID string
	Phase       Phase
	Record      ledger.Record
	Quote       quote.Quote
	Kind        ErrorKind
	Message     string
	Err         error
}

// Confirmed reports a successful operation.
func (o Outcome) Confirmed() bool {
	return o.Phase == PhaseConfirmed
}

// Failed reports a failed operation.
func (o Outcome) Failed() bool {
	return o.Phase == PhaseFailed
}
