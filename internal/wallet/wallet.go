// ==================================
// File: internal/wallet/wallet.go
// ==================================
package wallet

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/mr-tron/base58"

	"github.com/rovshanmuradov/compressed-swap/internal/blockchain"
)

// DefaultProofLamports is the self-transfer amount used to put a swap on chain.
const DefaultProofLamports uint64 = 100

// Approver is asked before each signature. Returning an error rejects it.
type Approver func(ctx context.Context, op *blockchain.Operation) error

// Wallet is a local Solana keypair acting as a blockchain.Signer.
type Wallet struct {
	PrivateKey solana.PrivateKey
	PublicKey  solana.PublicKey
	approve    Approver
	priority   PriorityConfig
}

// Option configures a Wallet.
type Option func(*Wallet)

// WithApprover installs an approval hook.
func WithApprover(fn Approver) Option {
	return func(w *Wallet) { w.approve = fn }
}

// WithPriority prepends the compute budget of cfg to every transaction.
func WithPriority(cfg PriorityConfig) Option {
	return func(w *Wallet) { w.priority = cfg }
}

// NewWallet creates a wallet from a base58-encoded private key.
func NewWallet(privateKeyBase58 string, opts ...Option) (*Wallet, error) {
	privateKeyBytes, err := base58.Decode(privateKeyBase58)
	if err != nil {
		return nil, fmt.Errorf("failed to decode private key: %w", err)
	}
	if len(privateKeyBytes) != 64 {
		return nil, fmt.Errorf("invalid private key length: expected 64 bytes, got %d", len(privateKeyBytes))
	}
	return fromKey(solana.PrivateKey(privateKeyBytes), opts...), nil
}

// LoadKeypairFile reads a solana-keygen JSON keypair.
func LoadKeypairFile(path string, opts ...Option) (*Wallet, error) {
	key, err := solana.PrivateKeyFromSolanaKeygenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load keypair %s: %w", path, err)
	}
	return fromKey(key, opts...), nil
}

// NewRandom generates a fresh keypair, used for demo sessions.
func NewRandom(opts ...Option) (*Wallet, error) {
	acc := solana.NewWallet()
	if acc == nil {
		return nil, fmt.Errorf("failed to generate keypair")
	}
	return fromKey(acc.PrivateKey, opts...), nil
}

func fromKey(key solana.PrivateKey, opts ...Option) *Wallet {
	w := &Wallet{
		PrivateKey: key,
		PublicKey:  key.PublicKey(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Available reports whether the wallet holds a key.
func (w *Wallet) Available() bool {
	return w != nil && len(w.PrivateKey) == 64
}

// Address returns the base58 public key.
func (w *Wallet) Address() string {
	if w == nil {
		return ""
	}
	return w.PublicKey.String()
}

// Sign builds and signs a self-transfer that anchors op on chain.
func (w *Wallet) Sign(ctx context.Context, op *blockchain.Operation) (*blockchain.SignedOperation, error) {
	if !w.Available() {
		return nil, blockchain.ErrSignerUnavailable
	}
	if op == nil {
		return nil, fmt.Errorf("nil operation")
	}
	if w.approve != nil {
		if err := w.approve(ctx, op); err != nil {
			return nil, blockchain.NewSignerError(w.Address(), fmt.Errorf("%w: %v", blockchain.ErrUserRejected, err))
		}
	}

	blockhash, err := solana.HashFromBase58(op.Blockhash)
	if err != nil {
		return nil, fmt.Errorf("invalid blockhash %q: %w", op.Blockhash, err)
	}

	lamports := op.Lamports
	if lamports == 0 {
		lamports = DefaultProofLamports
	}

	instructions := append(w.priority.Instructions(),
		system.NewTransferInstruction(lamports, w.PublicKey, w.PublicKey).Build())
	tx, err := solana.NewTransaction(instructions, blockhash, solana.TransactionPayer(w.PublicKey))
	if err != nil {
		return nil, fmt.Errorf("failed to build transaction: %w", err)
	}
	if err := w.SignTransaction(tx); err != nil {
		return nil, blockchain.NewSignerError(w.Address(), err)
	}

	payload, err := tx.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("failed to serialize transaction: %w", err)
	}

	signed := *op
	signed.Payer = w.Address()
	signed.Lamports = lamports
	return &blockchain.SignedOperation{
		Operation: signed,
		Signer:    w.Address(),
		Payload:   payload,
	}, nil
}

// SignTransaction signs tx with the wallet key.
func (w *Wallet) SignTransaction(tx *solana.Transaction) error {
	_, err := tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		if key.Equals(w.PublicKey) {
			return &w.PrivateKey
		}
		return nil
	})
	return err
}

// String returns the public key.
func (w *Wallet) String() string {
	return w.Address()
}

// Disconnected is the signer used when no wallet is attached.
type Disconnected struct{}

func (Disconnected) Available() bool { return false }

func (Disconnected) Address() string { return "" }

func (Disconnected) Sign(context.Context, *blockchain.Operation) (*blockchain.SignedOperation, error) {
	return nil, blockchain.ErrSignerUnavailable
}

var (
	_ blockchain.Signer = (*Wallet)(nil)
	_ blockchain.Signer = Disconnected{}
)
