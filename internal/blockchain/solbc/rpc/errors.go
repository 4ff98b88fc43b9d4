// internal/blockchain/solbc/rpc/errors.go
package rpc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
)

var (
	// ErrNoEndpoints is returned when the pool is built without any URL.
	ErrNoEndpoints = errors.New("no RPC endpoints configured")

	// ErrRateLimit is the sentinel for HTTP 429 style responses.
	ErrRateLimit = errors.New("rate limit exceeded")

	// ErrTimeout is the sentinel for request timeouts.
	ErrTimeout = errors.New("request timeout")

	// ErrConnectionFailed is the sentinel for transport failures.
	ErrConnectionFailed = errors.New("connection failed")
)

// Error is an RPC error with the endpoint and method it happened on.
type Error struct {
	Err     error
	NodeURL string
	Method  string
}

func (e *Error) Error() string {
	return fmt.Sprintf("RPC error [%s] at %s: %v", e.Method, e.NodeURL, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError wraps err with endpoint context.
func NewError(err error, nodeURL, method string) error {
	return &Error{
		Err:     err,
		NodeURL: nodeURL,
		Method:  method,
	}
}

// RateLimitedError marks a failure the endpoint reported as throttling.
type RateLimitedError struct {
	Endpoint string
	Err      error
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("rate limited by %s: %v", e.Endpoint, e.Err)
}

func (e *RateLimitedError) Unwrap() error {
	return e.Err
}

// TransientNetworkError marks a retryable transport or availability failure.
type TransientNetworkError struct {
	Endpoint string
	Err      error
}

func (e *TransientNetworkError) Error() string {
	return fmt.Sprintf("transient network error at %s: %v", e.Endpoint, e.Err)
}

func (e *TransientNetworkError) Unwrap() error {
	return e.Err
}

// ExhaustedRetriesError is returned once the retry budget is spent. It
// unwraps to the last underlying error.
type ExhaustedRetriesError struct {
	Attempts    int
	RateLimited bool
	Last        error
}

func (e *ExhaustedRetriesError) Error() string {
	return fmt.Sprintf("exhausted %d attempts: %v", e.Attempts, e.Last)
}

func (e *ExhaustedRetriesError) Unwrap() error {
	return e.Last
}

// ErrorClass is the retry classification of an error.
type ErrorClass int

const (
	ClassNone ErrorClass = iota
	ClassRateLimited
	ClassTransient
	ClassPermanent
)

func (c ErrorClass) String() string {
	switch c {
	case ClassNone:
		return "none"
	case ClassRateLimited:
		return "rate_limited"
	case ClassTransient:
		return "transient"
	default:
		return "permanent"
	}
}

// Retryable reports whether the class triggers another attempt.
func (c ErrorClass) Retryable() bool {
	return c == ClassRateLimited || c == ClassTransient
}

var rateLimitMarkers = []string{
	"429",
	"too many requests",
	"rate limit",
}

var transientMarkers = []string{
	"timeout",
	"timed out",
	"connection refused",
	"connection reset",
	"no such host",
	"broken pipe",
	"eof",
	"502",
	"503",
	"504",
	"service unavailable",
	"bad gateway",
}

// Classify decides whether err is a rate-limit, a transient failure or a
// permanent one. Typed errors win over text markers.
func Classify(err error) ErrorClass {
	if err == nil {
		return ClassNone
	}

	var exhausted *ExhaustedRetriesError
	if errors.As(err, &exhausted) {
		return ClassPermanent
	}
	if errors.Is(err, context.Canceled) {
		return ClassPermanent
	}

	var rl *RateLimitedError
	if errors.As(err, &rl) || errors.Is(err, ErrRateLimit) {
		return ClassRateLimited
	}

	var tr *TransientNetworkError
	if errors.As(err, &tr) ||
		errors.Is(err, ErrTimeout) ||
		errors.Is(err, ErrConnectionFailed) ||
		errors.Is(err, context.DeadlineExceeded) {
		return ClassTransient
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return ClassTransient
	}

	msg := strings.ToLower(err.Error())
	for _, marker := range rateLimitMarkers {
		if strings.Contains(msg, marker) {
			return ClassRateLimited
		}
	}
	for _, marker := range transientMarkers {
		if strings.Contains(msg, marker) {
			return ClassTransient
		}
	}
	return ClassPermanent
}

// IsRateLimited reports whether err, or the last error behind an
// ExhaustedRetriesError, was a rate-limit.
func IsRateLimited(err error) bool {
	var exhausted *ExhaustedRetriesError
	if errors.As(err, &exhausted) {
		return exhausted.RateLimited
	}
	return Classify(err) == ClassRateLimited
}

// IsRetryableError reports whether err triggers another attempt.
func IsRetryableError(err error) bool {
	return Classify(err).Retryable()
}
