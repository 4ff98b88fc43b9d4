// internal/blockchain/types.go
package blockchain

import (
	"context"
	"time"
)

// LamportsPerSOL converts between SOL and lamports.
const LamportsPerSOL = 1_000_000_000

// Operation is an unsigned swap payload ready to be approved by a Signer.
type Operation struct {
	Payer      string
	FromMint   string
	ToMint     string
	Amount     float64
	Blockhash  string
	Lamports   uint64
	Compressed bool
}

// SignedOperation is an Operation approved by a Signer together with the
// serialized wire form a Connection can submit.
type SignedOperation struct {
	Operation Operation
	Signer    string
	Payload   []byte
}

// ConfirmationResult is the outcome of waiting for an identifier to land.
type ConfirmationResult struct {
	Identifier string
	Slot       uint64
	// Err is the on-chain error reported for the transaction, nil on success.
	Err         error
	ConfirmedAt time.Time
}

// Connection is the network capability every endpoint offers.
type Connection interface {
	// Endpoint returns the URL this connection talks to.
	Endpoint() string
	// Health checks that the node answers at all.
	Health(ctx context.Context) error
	// LatestBlockhash returns a recent blockhash to anchor a new operation.
	LatestBlockhash(ctx context.Context) (string, error)
	// Send submits a signed operation and returns its identifier.
	Send(ctx context.Context, op *SignedOperation) (string, error)
	// Confirm waits until the identifier is confirmed or ctx expires.
	Confirm(ctx context.Context, id string) (ConfirmationResult, error)
	// GetBalance returns the lamport balance of an address.
	GetBalance(ctx context.Context, address string) (uint64, error)
	// RequestAirdrop asks the cluster faucet for lamports.
	RequestAirdrop(ctx context.Context, address string, lamports uint64) (string, error)
}

// Signer approves pending operations on behalf of an address.
type Signer interface {
	Available() bool
	Address() string
	Sign(ctx context.Context, op *Operation) (*SignedOperation, error)
}

// Dialer opens a Connection for an endpoint URL.
type Dialer func(endpoint string) (Connection, error)
