// internal/blockchain/solbc/errors.go
package solbc

import (
	"fmt"
	"strings"

	"github.com/gagliardetto/solana-go/rpc/jsonrpc"

	"github.com/rovshanmuradov/compressed-swap/internal/blockchain/solbc/rpc"
)

// JSON-RPC codes that nodes and providers use for throttling and for
// temporary unavailability.
const (
	codeRateLimited     = 429
	codeRateLimitedJSON = -32429
	codeNodeUnhealthy   = -32005
	codeBlockNotAvail   = -32004
	codeSlotSkipped     = -32007
	codeServerError     = -32603
)

// SimulationFailure is the preflight failure detail extracted from an RPC error.
type SimulationFailure struct {
	Message string
	Logs    []string
}

func (f *SimulationFailure) Error() string {
	if len(f.Logs) == 0 {
		return f.Message
	}
	return fmt.Sprintf("%s (last log: %s)", f.Message, f.Logs[len(f.Logs)-1])
}

// classifyRPCError maps solana-go errors onto the executor's typed errors so
// the retry policy can tell throttling from outages and from real rejections.
func classifyRPCError(endpoint string, err error) error {
	if err == nil {
		return nil
	}

	rpcErr, ok := err.(*jsonrpc.RPCError)
	if !ok {
		return err
	}

	switch rpcErr.Code {
	case codeRateLimited, codeRateLimitedJSON:
		return &rpc.RateLimitedError{Endpoint: endpoint, Err: err}
	case codeNodeUnhealthy, codeBlockNotAvail, codeSlotSkipped, codeServerError:
		return &rpc.TransientNetworkError{Endpoint: endpoint, Err: err}
	}

	if strings.Contains(rpcErr.Message, "Transaction simulation failed") {
		return analyzeSimulation(rpcErr)
	}
	return err
}

// analyzeSimulation pulls program logs out of a preflight failure.
func analyzeSimulation(rpcErr *jsonrpc.RPCError) error {
	failure := &SimulationFailure{Message: rpcErr.Message}
	dataMap, ok := rpcErr.Data.(map[string]interface{})
	if !ok {
		return failure
	}
	if logs, ok := dataMap["logs"].([]interface{}); ok {
		for _, entry := range logs {
			if s, ok := entry.(string); ok {
				failure.Logs = append(failure.Logs, s)
			}
		}
	}
	return failure
}
