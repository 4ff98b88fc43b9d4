// internal/blockchain/solbc/rpc/pool.go
package rpc

import (
	"strings"
	"time"

	"go.uber.org/zap"
)

// PoolOption configures a Pool.
type PoolOption func(*Pool)

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) PoolOption {
	return func(p *Pool) { p.now = now }
}

// WithBaseCooldown sets the cooldown applied after a non rate-limited failure.
func WithBaseCooldown(d time.Duration) PoolOption {
	return func(p *Pool) {
		if d > 0 {
			p.baseCooldown = d
		}
	}
}

// WithRateLimitCooldown sets the cooldown applied after a rate-limited failure.
func WithRateLimitCooldown(d time.Duration) PoolOption {
	return func(p *Pool) {
		if d > 0 {
			p.rateLimitCooldown = d
		}
	}
}

// WithPoolLogger attaches a logger.
func WithPoolLogger(logger *zap.Logger) PoolOption {
	return func(p *Pool) {
		if logger != nil {
			p.logger = logger.Named("rpc-pool")
		}
	}
}

// NewPool creates a pool over urls. Duplicates and blanks are dropped; the
// resulting set never changes for the lifetime of the pool.
func NewPool(urls []string, opts ...PoolOption) (*Pool, error) {
	p := &Pool{
		baseCooldown:      DefaultBaseCooldown,
		rateLimitCooldown: DefaultRateLimitCooldown,
		now:               time.Now,
		logger:            zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}

	seen := make(map[string]struct{}, len(urls))
	for _, raw := range urls {
		url := strings.TrimSpace(raw)
		if url == "" {
			continue
		}
		if _, ok := seen[url]; ok {
			continue
		}
		seen[url] = struct{}{}
		p.endpoints = append(p.endpoints, &Endpoint{URL: url})
	}
	if len(p.endpoints) == 0 {
		return nil, ErrNoEndpoints
	}
	return p, nil
}

// Select returns the least recently used endpoint that is not cooling down.
// When every endpoint is cooling down the one whose cooldown ends first is
// returned. The chosen endpoint's LastUsedAt is set to now.
func (p *Pool) Select() Endpoint {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.now()
	var best *Endpoint
	for _, ep := range p.endpoints {
		if ep.CoolingAt(now) {
			continue
		}
		if best == nil || ep.LastUsedAt.Before(best.LastUsedAt) {
			best = ep
		}
	}

	if best == nil {
		for _, ep := range p.endpoints {
			if best == nil || ep.CooldownUntil.Before(best.CooldownUntil) {
				best = ep
			}
		}
		p.logger.Debug("All endpoints cooling down, taking the earliest",
			zap.String("url", best.URL),
			zap.Duration("remaining", best.CooldownUntil.Sub(now)))
	}

	best.LastUsedAt = now
	return *best
}

// MarkFailed penalises an endpoint. Rate-limited failures cool it down for
// the rate-limit cooldown, anything else for the base cooldown. An existing
// longer cooldown is never shortened.
func (p *Pool) MarkFailed(url string, rateLimited bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	ep := p.find(url)
	if ep == nil {
		return
	}

	penalty := p.baseCooldown
	if rateLimited {
		penalty = p.rateLimitCooldown
		ep.RateLimited++
	}
	ep.Failures++

	until := p.now().Add(penalty)
	if until.After(ep.CooldownUntil) {
		ep.CooldownUntil = until
	}

	p.logger.Debug("Endpoint penalised",
		zap.String("url", url),
		zap.Bool("rate_limited", rateLimited),
		zap.Int("failures", ep.Failures),
		zap.Time("cooldown_until", ep.CooldownUntil))
}

// MarkSucceeded clears the consecutive failure counter.
func (p *Pool) MarkSucceeded(url string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if ep := p.find(url); ep != nil {
		ep.Failures = 0
	}
}

// Get returns a copy of the endpoint state for url.
func (p *Pool) Get(url string) (Endpoint, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	ep := p.find(url)
	if ep == nil {
		return Endpoint{}, false
	}
	return *ep, true
}

// Snapshot returns copies of all endpoints in configuration order.
func (p *Pool) Snapshot() []Endpoint {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]Endpoint, len(p.endpoints))
	for i, ep := range p.endpoints {
		out[i] = *ep
	}
	return out
}

// Len returns the number of endpoints.
func (p *Pool) Len() int {
	return len(p.endpoints)
}

func (p *Pool) find(url string) *Endpoint {
	for _, ep := range p.endpoints {
		if ep.URL == url {
			return ep
		}
	}
	return nil
}
