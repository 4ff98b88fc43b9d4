// internal/blockchain/blockchain.go
package blockchain

import (
	"errors"
	"fmt"
)

var (
	// ErrSignerUnavailable is returned when no wallet is connected.
	ErrSignerUnavailable = errors.New("signer unavailable")
	// ErrUserRejected is returned when the wallet declined the operation.
	ErrUserRejected = errors.New("user rejected the operation")
)

// SignerError wraps a non-retryable failure coming from the Signer.
type SignerError struct {
	Address string
	Err     error
}

func (e *SignerError) Error() string {
	if e.Address == "" {
		return fmt.Sprintf("signer error: %v", e.Err)
	}
	return fmt.Sprintf("signer error [%s]: %v", e.Address, e.Err)
}

func (e *SignerError) Unwrap() error {
	return e.Err
}

// NewSignerError wraps err as a SignerError for address.
func NewSignerError(address string, err error) error {
	return &SignerError{Address: address, Err: err}
}

// IsSignerError reports whether err came from the Signer.
func IsSignerError(err error) bool {
	var se *SignerError
	return errors.As(err, &se) ||
		errors.Is(err, ErrSignerUnavailable) ||
		errors.Is(err, ErrUserRejected)
}
