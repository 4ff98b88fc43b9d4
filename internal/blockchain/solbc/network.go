// internal/blockchain/solbc/network.go
package solbc

import (
	"net/url"
	"strings"
)

// Cluster names as used by the explorer.
const (
	ClusterDevnet  = "devnet"
	ClusterTestnet = "testnet"
	ClusterMainnet = "mainnet-beta"
	ClusterLocal   = "localnet"
)

// IsLocal reports whether endpoint points at a validator on this machine.
func IsLocal(endpoint string) bool {
	host := endpoint
	if u, err := url.Parse(endpoint); err == nil && u.Host != "" {
		host = u.Hostname()
	}
	host = strings.ToLower(host)
	return host == "localhost" || host == "127.0.0.1" || host == "0.0.0.0" || host == "::1"
}

// NetworkName guesses the cluster an endpoint serves.
func NetworkName(endpoint string) string {
	lower := strings.ToLower(endpoint)
	switch {
	case IsLocal(endpoint):
		return ClusterLocal
	case strings.Contains(lower, "devnet"):
		return ClusterDevnet
	case strings.Contains(lower, "testnet"):
		return ClusterTestnet
	default:
		return ClusterMainnet
	}
}

// ExplorerURL links an identifier on the public explorer for cluster.
func ExplorerURL(identifier, cluster string) string {
	if cluster == "" || cluster == ClusterMainnet {
		return "https://explorer.solana.com/tx/" + identifier
	}
	if cluster == ClusterLocal {
		return "https://explorer.solana.com/tx/" + identifier + "?cluster=custom"
	}
	return "https://explorer.solana.com/tx/" + identifier + "?cluster=" + cluster
}
