package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rovshanmuradov/compressed-swap/internal/blockchain/solbc"
	"github.com/rovshanmuradov/compressed-swap/internal/quote"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, []string{DefaultRPC}, cfg.RPCList)
	assert.Equal(t, solbc.ClusterDevnet, cfg.Cluster)
	assert.Equal(t, 3, cfg.Retries)
	assert.Equal(t, time.Second, cfg.BaseDelay)
	assert.Equal(t, 10*time.Second, cfg.RateLimitCooldown)
	assert.Equal(t, 2*time.Second, cfg.SwapCooldown)
	assert.Equal(t, 3*time.Second, cfg.ResetWindow)
	assert.False(t, cfg.HasSigner())
	assert.Equal(t, DefaultExportDir, cfg.ExportDir)
	assert.Empty(t, cfg.PriorityConfig().Instructions())

	sc := cfg.SwapConfig()
	assert.Equal(t, 2*time.Second, sc.ConfirmTimeout)
	assert.Equal(t, 10, sc.MinSlippageBps)
	assert.Equal(t, 500, sc.MaxSlippageBps)

	p := cfg.RetryPolicy()
	assert.Equal(t, 3, p.MaxRetries)
	assert.Equal(t, time.Second, p.MaxJitter)
	assert.Len(t, cfg.PoolOptions(), 2)
}

func TestLoadConfigFile(t *testing.T) {
	path := writeConfig(t, `{
		"rpc_list": ["https://api.testnet.solana.com", "http://localhost:8899"],
		"cluster": "testnet",
		"retries": 5,
		"base_delay_ms": 250,
		"swap_cooldown_ms": 0,
		"require_signer": true,
		"keypair": "/tmp/id.json",
		"debug_logging": true,
		"priority": "high",
		"prices": {"SOL": 150}
	}`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Len(t, cfg.RPCList, 2)
	assert.Equal(t, solbc.ClusterTestnet, cfg.Cluster)
	assert.Equal(t, 5, cfg.Retries)
	assert.Equal(t, 250*time.Millisecond, cfg.BaseDelay)
	assert.Zero(t, cfg.SwapCooldown)
	assert.True(t, cfg.RequireSigner)
	assert.True(t, cfg.HasSigner())
	assert.True(t, cfg.LoggerConfig().Debug)
	assert.Equal(t, uint32(800_000), cfg.PriorityConfig().ComputeUnits)

	m := quote.DefaultMarket()
	require.NoError(t, cfg.ApplyPrices(m))
	price, err := m.PriceOf("SOL")
	require.NoError(t, err)
	assert.True(t, price.Equal(decimal.NewFromInt(150)))
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	t.Setenv("SWAP_RPC_LIST", "https://a.example.com, https://b.example.com ,")
	t.Setenv("SWAP_RETRIES", "7")
	t.Setenv("SWAP_PRIVATE_KEY", "abc")

	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.RPCList)
	assert.Equal(t, 7, cfg.Retries)
	assert.Equal(t, "abc", cfg.PrivateKey)
}

func TestLoadConfigValidation(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"ws url", `{"rpc_list": ["wss://api.devnet.solana.com"]}`},
		{"unknown cluster", `{"cluster": "moon"}`},
		{"zero retries", `{"retries": 0}`},
		{"negative delay", `{"base_delay_ms": -1}`},
		{"zero confirm timeout", `{"confirm_timeout_ms": 0}`},
		{"slippage bounds", `{"min_slippage_bps": 600, "max_slippage_bps": 500}`},
		{"bad price", `{"prices": {"SOL": -1}}`},
		{"unknown priority", `{"priority": "ludicrous"}`},
		{"token without symbol", `{"tokens": [{"mint": "JUPyiwrYJFskUPiHa7hkeR8VUtAeFoSYbKedZNsDvCN", "price": 1}]}`},
		{"token bad mint", `{"tokens": [{"symbol": "JUP", "mint": "not-a-mint", "price": 1}]}`},
		{"token bad decimals", `{"tokens": [{"symbol": "JUP", "mint": "JUPyiwrYJFskUPiHa7hkeR8VUtAeFoSYbKedZNsDvCN", "decimals": 40, "price": 1}]}`},
		{"token without price", `{"tokens": [{"symbol": "JUP", "mint": "JUPyiwrYJFskUPiHa7hkeR8VUtAeFoSYbKedZNsDvCN"}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, tt.body))
			assert.Error(t, err)
		})
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.json"))
	assert.Error(t, err)
}

func TestApplyPricesUnknownToken(t *testing.T) {
	cfg := &Config{Prices: map[string]float64{"DOGE": 0.1}}
	assert.ErrorIs(t, cfg.ApplyPrices(quote.DefaultMarket()), quote.ErrUnknownToken)
}

func TestApplyTokens(t *testing.T) {
	path := writeConfig(t, `{
		"tokens": [
			{"symbol": "jup", "name": "Jupiter", "mint": "JUPyiwrYJFskUPiHa7hkeR8VUtAeFoSYbKedZNsDvCN", "decimals": 6, "price": 0.8}
		],
		"prices": {"JUP": 0.75}
	}`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.Len(t, cfg.Tokens, 1)

	m := quote.DefaultMarket()
	require.NoError(t, cfg.ApplyTokens(m))
	require.NoError(t, cfg.ApplyPrices(m))

	tok, ok := m.Token("JUP")
	require.True(t, ok)
	assert.Equal(t, "Jupiter", tok.Name)
	assert.Equal(t, int32(6), tok.Decimals)
	price, err := m.PriceOf("JUP")
	require.NoError(t, err)
	assert.True(t, price.Equal(decimal.RequireFromString("0.75")))
	assert.True(t, m.BalanceOf("JUP").Equal(quote.CustomTokenBalance))

	// listing the same mint twice fails
	assert.ErrorIs(t, cfg.ApplyTokens(m), quote.ErrTokenExists)
}

func TestMaskRPCForLogging(t *testing.T) {
	cfg := &Config{RPCList: []string{
		"https://mainnet.helius-rpc.com/?api-key=secret",
		"https://api.devnet.solana.com",
	}}
	masked := cfg.GetMaskedRPCList()
	assert.NotContains(t, masked[0], "secret")
	assert.Contains(t, masked[0], "helius-rpc.com")
	assert.Equal(t, "https://api.devnet.solana.com", masked[1])
}

func TestLoadDotEnv(t *testing.T) {
	assert.NoError(t, LoadDotEnv(filepath.Join(t.TempDir(), "missing.env")))

	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("SWAP_DOTENV_PROBE=1\n"), 0o600))
	t.Setenv("SWAP_DOTENV_PROBE", "")
	os.Unsetenv("SWAP_DOTENV_PROBE")
	require.NoError(t, LoadDotEnv(path))
	assert.Equal(t, "1", os.Getenv("SWAP_DOTENV_PROBE"))
}
