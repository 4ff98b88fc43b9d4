// internal/blockchain/solbc/rpc/client.go
package rpc

import (
	"fmt"
	"sync"

	"github.com/rovshanmuradov/compressed-swap/internal/blockchain"
)

// connCache dials each endpoint once and reuses the Connection.
type connCache struct {
	mu    sync.Mutex
	dial  blockchain.Dialer
	conns map[string]blockchain.Connection
}

func newConnCache(dial blockchain.Dialer) *connCache {
	return &connCache{
		dial:  dial,
		conns: make(map[string]blockchain.Connection),
	}
}

func (c *connCache) get(url string) (blockchain.Connection, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if conn, ok := c.conns[url]; ok {
		return conn, nil
	}
	if c.dial == nil {
		return nil, fmt.Errorf("no dialer for %s", url)
	}
	conn, err := c.dial(url)
	if err != nil {
		return nil, err
	}
	c.conns[url] = conn
	return conn, nil
}
