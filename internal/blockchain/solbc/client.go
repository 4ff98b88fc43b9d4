// internal/blockchain/solbc/client.go
package solbc

import (
	"context"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/compressed-swap/internal/blockchain"
)

const (
	confirmPollInterval = 500 * time.Millisecond
	confirmTimeout      = 30 * time.Second
)

// Client is a thin blockchain.Connection adapter over solana-go.
type Client struct {
	rpc    *rpc.Client
	url    string
	logger *zap.Logger
}

// NewClient creates a client for rpcURL.
func NewClient(rpcURL string, logger *zap.Logger) *Client {
	return &Client{
		rpc:    rpc.New(rpcURL),
		url:    rpcURL,
		logger: logger.Named("solbc-client"),
	}
}

// Dialer returns a blockchain.Dialer producing solana-go clients.
func Dialer(logger *zap.Logger) blockchain.Dialer {
	return func(endpoint string) (blockchain.Connection, error) {
		return NewClient(endpoint, logger), nil
	}
}

func (c *Client) Endpoint() string {
	return c.url
}

// Health asks the node for its version, the cheapest call every node serves.
func (c *Client) Health(ctx context.Context) error {
	if _, err := c.rpc.GetVersion(ctx); err != nil {
		return classifyRPCError(c.url, err)
	}
	return nil
}

// LatestBlockhash returns the latest finalized blockhash.
func (c *Client) LatestBlockhash(ctx context.Context) (string, error) {
	result, err := c.rpc.GetLatestBlockhash(ctx, rpc.CommitmentFinalized)
	if err != nil {
		c.logger.Debug("GetLatestBlockhash error", zap.Error(err))
		return "", classifyRPCError(c.url, err)
	}
	return result.Value.Blockhash.String(), nil
}

// Send submits the serialized transaction carried by op.
func (c *Client) Send(ctx context.Context, op *blockchain.SignedOperation) (string, error) {
	if op == nil || len(op.Payload) == 0 {
		return "", fmt.Errorf("empty signed operation")
	}
	sig, err := c.rpc.SendRawTransactionWithOpts(ctx, op.Payload, rpc.TransactionOpts{
		SkipPreflight:       false,
		PreflightCommitment: rpc.CommitmentConfirmed,
	})
	if err != nil {
		c.logger.Error("SendRawTransaction error", zap.Error(err))
		return "", classifyRPCError(c.url, err)
	}
	return sig.String(), nil
}

// Confirm polls the signature status until it is confirmed or finalized.
func (c *Client) Confirm(ctx context.Context, id string) (blockchain.ConfirmationResult, error) {
	sig, err := solana.SignatureFromBase58(id)
	if err != nil {
		return blockchain.ConfirmationResult{}, fmt.Errorf("invalid signature %q: %w", id, err)
	}

	ticker := time.NewTicker(confirmPollInterval)
	defer ticker.Stop()
	timeout := time.After(confirmTimeout)

	for {
		select {
		case <-ctx.Done():
			return blockchain.ConfirmationResult{}, ctx.Err()
		case <-timeout:
			return blockchain.ConfirmationResult{}, fmt.Errorf("confirmation timeout for %s", id)
		case <-ticker.C:
			statuses, err := c.rpc.GetSignatureStatuses(ctx, false, sig)
			if err != nil {
				c.logger.Warn("Error getting signature statuses", zap.Error(err))
				continue
			}
			if statuses == nil || len(statuses.Value) == 0 || statuses.Value[0] == nil {
				continue
			}
			status := statuses.Value[0]
			if status.Err != nil {
				return blockchain.ConfirmationResult{
					Identifier:  id,
					Slot:        status.Slot,
					Err:         fmt.Errorf("transaction failed: %v", status.Err),
					ConfirmedAt: time.Now(),
				}, nil
			}
			if status.ConfirmationStatus == rpc.ConfirmationStatusFinalized ||
				status.ConfirmationStatus == rpc.ConfirmationStatusConfirmed {
				return blockchain.ConfirmationResult{
					Identifier:  id,
					Slot:        status.Slot,
					ConfirmedAt: time.Now(),
				}, nil
			}
		}
	}
}

// GetBalance returns the confirmed lamport balance of address.
func (c *Client) GetBalance(ctx context.Context, address string) (uint64, error) {
	pubkey, err := solana.PublicKeyFromBase58(address)
	if err != nil {
		return 0, fmt.Errorf("invalid address %q: %w", address, err)
	}
	result, err := c.rpc.GetBalance(ctx, pubkey, rpc.CommitmentConfirmed)
	if err != nil {
		c.logger.Debug("GetBalance error", zap.Error(err))
		return 0, classifyRPCError(c.url, err)
	}
	return result.Value, nil
}

// RequestAirdrop asks the cluster faucet for lamports.
func (c *Client) RequestAirdrop(ctx context.Context, address string, lamports uint64) (string, error) {
	pubkey, err := solana.PublicKeyFromBase58(address)
	if err != nil {
		return "", fmt.Errorf("invalid address %q: %w", address, err)
	}
	sig, err := c.rpc.RequestAirdrop(ctx, pubkey, lamports, rpc.CommitmentConfirmed)
	if err != nil {
		c.logger.Debug("RequestAirdrop error", zap.Error(err))
		return "", classifyRPCError(c.url, err)
	}
	return sig.String(), nil
}

// Guarantee that Client implements blockchain.Connection.
var _ blockchain.Connection = (*Client)(nil)
