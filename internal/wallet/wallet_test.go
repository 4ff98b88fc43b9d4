package wallet

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rovshanmuradov/compressed-swap/internal/blockchain"
)

func testBlockhash() string {
	var h solana.Hash
	for i := range h {
		h[i] = byte(i + 1)
	}
	return h.String()
}

func TestNewWalletRoundTrip(t *testing.T) {
	w, err := NewRandom()
	require.NoError(t, err)

	again, err := NewWallet(w.PrivateKey.String())
	require.NoError(t, err)
	assert.Equal(t, w.Address(), again.Address())
}

func TestNewWalletRejectsBadKeys(t *testing.T) {
	_, err := NewWallet("0OIl")
	assert.Error(t, err)

	_, err = NewWallet("3yZe7d")
	assert.Error(t, err)
}

func TestLoadKeypairFile(t *testing.T) {
	w, err := NewRandom()
	require.NoError(t, err)

	ints := make([]int, len(w.PrivateKey))
	for i, b := range w.PrivateKey {
		ints[i] = int(b)
	}
	raw, err := json.Marshal(ints)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "id.json")
	require.NoError(t, os.WriteFile(path, raw, 0600))

	loaded, err := LoadKeypairFile(path)
	require.NoError(t, err)
	assert.Equal(t, w.Address(), loaded.Address())
}

func TestSignProducesPayload(t *testing.T) {
	w, err := NewRandom()
	require.NoError(t, err)
	require.True(t, w.Available())

	signed, err := w.Sign(context.Background(), &blockchain.Operation{
		FromMint:  "SOL",
		ToMint:    "USDC",
		Amount:    1,
		Blockhash: testBlockhash(),
	})
	require.NoError(t, err)
	assert.Equal(t, w.Address(), signed.Signer)
	assert.Equal(t, w.Address(), signed.Operation.Payer)
	assert.Equal(t, DefaultProofLamports, signed.Operation.Lamports)
	assert.Greater(t, len(signed.Payload), 64)
}

func TestSignRejectsBadBlockhash(t *testing.T) {
	w, err := NewRandom()
	require.NoError(t, err)

	_, err = w.Sign(context.Background(), &blockchain.Operation{Blockhash: "not-a-hash"})
	assert.Error(t, err)
}

func TestSignApproverRejection(t *testing.T) {
	w, err := NewRandom(WithApprover(func(context.Context, *blockchain.Operation) error {
		return errors.New("declined in wallet")
	}))
	require.NoError(t, err)

	_, err = w.Sign(context.Background(), &blockchain.Operation{Blockhash: testBlockhash()})
	require.Error(t, err)
	assert.ErrorIs(t, err, blockchain.ErrUserRejected)
	assert.True(t, blockchain.IsSignerError(err))
}

func TestDisconnected(t *testing.T) {
	var s blockchain.Signer = Disconnected{}
	assert.False(t, s.Available())
	_, err := s.Sign(context.Background(), &blockchain.Operation{})
	assert.ErrorIs(t, err, blockchain.ErrSignerUnavailable)

	var nilWallet *Wallet
	assert.False(t, nilWallet.Available())
	assert.Empty(t, nilWallet.Address())
}

func TestParsePriority(t *testing.T) {
	cfg, err := ParsePriority("")
	require.NoError(t, err)
	assert.Empty(t, cfg.Instructions())

	cfg, err = ParsePriority("medium")
	require.NoError(t, err)
	assert.Len(t, cfg.Instructions(), 2)
	assert.Equal(t, uint64(2_000), cfg.MaxPriorityFeeLamports())

	cfg, err = ParsePriority("extreme")
	require.NoError(t, err)
	assert.Len(t, cfg.Instructions(), 3)

	_, err = ParsePriority("ludicrous")
	assert.Error(t, err)
}

func TestSignPrependsComputeBudget(t *testing.T) {
	cfg, err := ParsePriority("low")
	require.NoError(t, err)
	w, err := NewRandom(WithPriority(cfg))
	require.NoError(t, err)

	signed, err := w.Sign(context.Background(), &blockchain.Operation{Blockhash: testBlockhash()})
	require.NoError(t, err)

	tx, err := solana.TransactionFromBytes(signed.Payload)
	require.NoError(t, err)
	require.Len(t, tx.Message.Instructions, 3)

	program, err := tx.Message.Program(tx.Message.Instructions[0].ProgramIDIndex)
	require.NoError(t, err)
	assert.Equal(t, solana.ComputeBudget, program)

	program, err = tx.Message.Program(tx.Message.Instructions[2].ProgramIDIndex)
	require.NoError(t, err)
	assert.Equal(t, solana.SystemProgramID, program)
}
