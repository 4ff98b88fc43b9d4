// internal/blockchain/solbc/rpc/types.go
package rpc

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	// DefaultBaseCooldown is the minimum pause between two uses of an endpoint
	// after a plain failure.
	DefaultBaseCooldown = 1 * time.Second
	// DefaultRateLimitCooldown is the penalty applied after a 429.
	DefaultRateLimitCooldown = 10 * time.Second

	DefaultMaxRetries = 3
	DefaultBaseDelay  = 1 * time.Second
	DefaultMaxJitter  = 1 * time.Second

	healthCheckTimeout  = 5 * time.Second
	maxConcurrentProbes = 8
)

// Endpoint is a candidate RPC node together with its usage state.
type Endpoint struct {
	URL           string
	LastUsedAt    time.Time
	CooldownUntil time.Time
	Failures      int
	RateLimited   int
}

// CoolingAt reports whether the endpoint is still penalised at t.
func (e Endpoint) CoolingAt(t time.Time) bool {
	return e.CooldownUntil.After(t)
}

// Pool is a fixed set of endpoints with LRU selection under cooldowns.
type Pool struct {
	mu                sync.Mutex
	endpoints         []*Endpoint
	baseCooldown      time.Duration
	rateLimitCooldown time.Duration
	now               func() time.Time
	logger            *zap.Logger
}
