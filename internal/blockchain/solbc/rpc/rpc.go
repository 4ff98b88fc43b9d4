// internal/blockchain/solbc/rpc/rpc.go
package rpc

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// maxShift caps the exponent so BaseDelay<<attempt cannot overflow.
const maxShift = 30

// Policy is the declared retry policy of the executor.
type Policy struct {
	// MaxRetries is the total number of attempts.
	MaxRetries int
	// BaseDelay is the flat delay for ordinary failures and the exponential
	// base for rate-limited ones.
	BaseDelay time.Duration
	// MaxJitter bounds the random delay added after a rate-limit.
	MaxJitter time.Duration
}

// DefaultPolicy returns 3 attempts, 1s base delay and up to 1s of jitter.
func DefaultPolicy() Policy {
	return Policy{
		MaxRetries: DefaultMaxRetries,
		BaseDelay:  DefaultBaseDelay,
		MaxJitter:  DefaultMaxJitter,
	}
}

func (p Policy) withDefaults() Policy {
	if p.MaxRetries <= 0 {
		p.MaxRetries = DefaultMaxRetries
	}
	if p.BaseDelay < 0 {
		p.BaseDelay = 0
	}
	if p.MaxJitter < 0 {
		p.MaxJitter = 0
	}
	return p
}

// Delay returns the pause before the attempt following failure number
// attempt (zero based). Rate-limited failures back off exponentially with
// jitter, everything else retries at BaseDelay.
func (p Policy) Delay(attempt int, rateLimited bool, jitter func(time.Duration) time.Duration) time.Duration {
	if !rateLimited {
		return p.BaseDelay
	}
	shift := min(max(attempt, 0), maxShift)
	d := p.BaseDelay << shift
	if p.MaxJitter > 0 && jitter != nil {
		d += jitter(p.MaxJitter)
	}
	return d
}

// UniformJitter draws uniformly from [0, bound).
func UniformJitter(bound time.Duration) time.Duration {
	if bound <= 0 {
		return 0
	}
	return time.Duration(rand.Int64N(int64(bound)))
}

// RetryOption tunes a single Retry call.
type RetryOption func(*retryConfig)

type retryConfig struct {
	jitter   func(time.Duration) time.Duration
	notify   []func(err error, delay time.Duration)
	maxTries int
}

// WithMaxTries overrides the policy's attempt budget for one call.
func WithMaxTries(n int) RetryOption {
	return func(c *retryConfig) {
		if n > 0 {
			c.maxTries = n
		}
	}
}

// WithNotify registers a callback invoked before every wait.
func WithNotify(fn func(err error, delay time.Duration)) RetryOption {
	return func(c *retryConfig) {
		if fn != nil {
			c.notify = append(c.notify, fn)
		}
	}
}

// WithJitterSource replaces the jitter generator.
func WithJitterSource(fn func(time.Duration) time.Duration) RetryOption {
	return func(c *retryConfig) {
		if fn != nil {
			c.jitter = fn
		}
	}
}

// policyBackOff adapts Policy to backoff.BackOff. The operation records the
// class of its last failure so the next delay can depend on it.
type policyBackOff struct {
	policy      Policy
	jitter      func(time.Duration) time.Duration
	attempt     int
	rateLimited bool
}

func (b *policyBackOff) NextBackOff() time.Duration {
	d := b.policy.Delay(b.attempt, b.rateLimited, b.jitter)
	b.attempt++
	return d
}

func (b *policyBackOff) Reset() {
	b.attempt = 0
	b.rateLimited = false
}

// Retry runs op until it succeeds, fails permanently or the policy's
// attempt budget is spent. Only rate-limited and transient failures are
// retried. A spent budget yields *ExhaustedRetriesError.
func Retry[T any](ctx context.Context, policy Policy, op func(context.Context) (T, error), opts ...RetryOption) (T, error) {
	policy = policy.withDefaults()
	cfg := &retryConfig{jitter: UniformJitter}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.maxTries > 0 {
		policy.MaxRetries = cfg.maxTries
	}

	b := &policyBackOff{policy: policy, jitter: cfg.jitter}
	attempts := 0
	var (
		last      error
		lastClass ErrorClass
	)

	operation := func() (T, error) {
		attempts++
		res, err := op(ctx)
		if err == nil {
			return res, nil
		}

		last, lastClass = err, Classify(err)
		switch lastClass {
		case ClassRateLimited:
			b.rateLimited = true
		case ClassTransient:
			b.rateLimited = false
		default:
			return res, backoff.Permanent(err)
		}
		return res, err
	}

	res, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(b),
		backoff.WithMaxTries(uint(policy.MaxRetries)),
		backoff.WithMaxElapsedTime(0),
		backoff.WithNotify(func(err error, d time.Duration) {
			for _, fn := range cfg.notify {
				fn(err, d)
			}
		}),
	)
	if err == nil {
		return res, nil
	}

	if ctx.Err() == nil && lastClass.Retryable() && attempts >= policy.MaxRetries {
		return res, &ExhaustedRetriesError{
			Attempts:    attempts,
			RateLimited: lastClass == ClassRateLimited,
			Last:        last,
		}
	}
	var permanent *backoff.PermanentError
	if errors.As(err, &permanent) {
		return res, permanent.Unwrap()
	}
	return res, err
}
