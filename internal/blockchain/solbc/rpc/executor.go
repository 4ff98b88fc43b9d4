// internal/blockchain/solbc/rpc/executor.go
package rpc

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rovshanmuradov/compressed-swap/internal/blockchain"
)

// Executor runs network calls against the endpoint pool under a retry policy.
type Executor struct {
	pool    *Pool
	conns   *connCache
	policy  Policy
	jitter  func(time.Duration) time.Duration
	metrics *Metrics
	logger  *zap.Logger
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// WithPolicy overrides the default retry policy.
func WithPolicy(p Policy) ExecutorOption {
	return func(e *Executor) { e.policy = p.withDefaults() }
}

// WithJitter overrides the jitter generator.
func WithJitter(fn func(time.Duration) time.Duration) ExecutorOption {
	return func(e *Executor) {
		if fn != nil {
			e.jitter = fn
		}
	}
}

// WithMetrics attaches Prometheus collectors.
func WithMetrics(m *Metrics) ExecutorOption {
	return func(e *Executor) { e.metrics = m }
}

// WithLogger attaches a logger.
func WithLogger(logger *zap.Logger) ExecutorOption {
	return func(e *Executor) {
		if logger != nil {
			e.logger = logger.Named("rpc-executor")
		}
	}
}

// NewExecutor binds a pool and a dialer.
func NewExecutor(pool *Pool, dial blockchain.Dialer, opts ...ExecutorOption) *Executor {
	e := &Executor{
		pool:   pool,
		conns:  newConnCache(dial),
		policy: DefaultPolicy(),
		jitter: UniformJitter,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Pool returns the underlying endpoint pool.
func (e *Executor) Pool() *Pool {
	return e.pool
}

// Policy returns the active retry policy.
func (e *Executor) Policy() Policy {
	return e.policy
}

// Execute runs op on a freshly selected endpoint for every attempt. Failures
// penalise the endpoint in the pool; rate-limits back off exponentially.
func Execute[T any](
	ctx context.Context,
	e *Executor,
	method string,
	op func(context.Context, blockchain.Connection) (T, error),
	opts ...RetryOption,
) (T, error) {
	attempt := func(ctx context.Context) (T, error) {
		var zero T

		ep := e.pool.Select()
		conn, err := e.conns.get(ep.URL)
		if err != nil {
			e.pool.MarkFailed(ep.URL, false)
			e.metrics.observeFailure(method, ClassTransient)
			return zero, &TransientNetworkError{Endpoint: ep.URL, Err: err}
		}

		start := time.Now()
		res, err := op(ctx, conn)
		if err != nil {
			// the caller gave up; the node is not to blame
			if ctx.Err() != nil {
				return res, ctx.Err()
			}
			class := Classify(err)
			if class.Retryable() {
				e.pool.MarkFailed(ep.URL, class == ClassRateLimited)
			}
			e.metrics.observeFailure(method, class)
			e.logger.Debug("RPC request failed",
				zap.String("method", method),
				zap.String("url", ep.URL),
				zap.String("class", class.String()),
				zap.Error(err))
			return res, NewError(err, ep.URL, method)
		}

		e.pool.MarkSucceeded(ep.URL)
		e.metrics.observeSuccess(method, time.Since(start))
		return res, nil
	}

	base := []RetryOption{
		WithJitterSource(e.jitter),
		WithNotify(func(err error, delay time.Duration) {
			e.logger.Info("Request failed, retrying",
				zap.String("method", method),
				zap.Duration("delay", delay),
				zap.Error(err))
		}),
	}

	res, err := Retry(ctx, e.policy, attempt, append(base, opts...)...)
	if err != nil {
		var exhausted *ExhaustedRetriesError
		if errors.As(err, &exhausted) {
			e.metrics.observeExhausted()
			e.logger.Warn("Retry budget exhausted",
				zap.String("method", method),
				zap.Int("attempts", exhausted.Attempts),
				zap.Bool("rate_limited", exhausted.RateLimited),
				zap.Error(exhausted.Last))
		}
	}
	return res, err
}

// ProbeAll health-checks every endpoint concurrently and returns the URLs
// that answered. Endpoints that did not answer are penalised. A done ctx
// stops the probe and is returned; endpoints are not penalised for it.
func (e *Executor) ProbeAll(ctx context.Context) ([]string, error) {
	endpoints := e.pool.Snapshot()

	var (
		mu      sync.Mutex
		healthy []string
	)
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentProbes)
	for _, ep := range endpoints {
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}
			conn, err := e.conns.get(ep.URL)
			if err != nil {
				e.pool.MarkFailed(ep.URL, false)
				return nil
			}

			checkCtx, cancel := context.WithTimeout(gCtx, healthCheckTimeout)
			defer cancel()

			if err := conn.Health(checkCtx); err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				e.pool.MarkFailed(ep.URL, IsRateLimited(err))
				e.logger.Warn("Node health check failed",
					zap.String("url", ep.URL),
					zap.Error(err))
				return nil
			}

			mu.Lock()
			healthy = append(healthy, ep.URL)
			mu.Unlock()
			return nil
		})
	}
	err := g.Wait()

	// keep configuration order for stable output
	ordered := make([]string, 0, len(healthy))
	for _, ep := range endpoints {
		for _, url := range healthy {
			if url == ep.URL {
				ordered = append(ordered, url)
				break
			}
		}
	}
	return ordered, err
}
