// =================================
// File: internal/config/config.go
// =================================
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"github.com/rovshanmuradov/compressed-swap/internal/blockchain/solbc"
	"github.com/rovshanmuradov/compressed-swap/internal/blockchain/solbc/rpc"
	"github.com/rovshanmuradov/compressed-swap/internal/logger"
	"github.com/rovshanmuradov/compressed-swap/internal/quote"
	"github.com/rovshanmuradov/compressed-swap/internal/swap"
	"github.com/rovshanmuradov/compressed-swap/internal/wallet"
)

// EnvPrefix prefixes every environment override, e.g. SWAP_RPC_LIST.
const EnvPrefix = "SWAP"

// Config holds application settings loaded from config.json and the
// environment.
type Config struct {
	RPCList []string `mapstructure:"rpc_list"`
	Cluster string   `mapstructure:"cluster"`
	Retries int      `mapstructure:"retries"`

	BaseDelay           time.Duration `mapstructure:"-"`
	BaseDelayMS         int           `mapstructure:"base_delay_ms"`
	MaxJitter           time.Duration `mapstructure:"-"`
	MaxJitterMS         int           `mapstructure:"max_jitter_ms"`
	EndpointCooldown    time.Duration `mapstructure:"-"`
	EndpointCooldownMS  int           `mapstructure:"endpoint_cooldown_ms"`
	RateLimitCooldown   time.Duration `mapstructure:"-"`
	RateLimitCooldownMS int           `mapstructure:"rate_limit_cooldown_ms"`

	SwapCooldown      time.Duration `mapstructure:"-"`
	SwapCooldownMS    int           `mapstructure:"swap_cooldown_ms"`
	ConfirmTimeout    time.Duration `mapstructure:"-"`
	ConfirmTimeoutMS  int           `mapstructure:"confirm_timeout_ms"`
	ResetWindow       time.Duration `mapstructure:"-"`
	ResetWindowMS     int           `mapstructure:"reset_window_ms"`
	DecompressDelay   time.Duration `mapstructure:"-"`
	DecompressDelayMS int           `mapstructure:"decompress_delay_ms"`
	ExecuteDelay      time.Duration `mapstructure:"-"`
	ExecuteDelayMS    int           `mapstructure:"execute_delay_ms"`
	CompressDelay     time.Duration `mapstructure:"-"`
	CompressDelayMS   int           `mapstructure:"compress_delay_ms"`

	MinSlippageBps int  `mapstructure:"min_slippage_bps"`
	MaxSlippageBps int  `mapstructure:"max_slippage_bps"`
	RequireSigner  bool `mapstructure:"require_signer"`

	// Keypair is a path to a solana-keygen JSON file.
	Keypair string `mapstructure:"keypair"`
	// PrivateKey is a base58 key, usually supplied through SWAP_PRIVATE_KEY.
	PrivateKey string `mapstructure:"private_key"`
	// Priority names the compute budget profile: none, low, medium, high, extreme.
	Priority string `mapstructure:"priority"`

	DebugLogging bool   `mapstructure:"debug_logging"`
	LogFile      string `mapstructure:"log_file"`
	MetricsAddr  string `mapstructure:"metrics_addr"`
	ExportDir    string `mapstructure:"export_dir"`

	// Prices overrides the demo market, symbol to USD.
	Prices map[string]float64 `mapstructure:"prices"`
	// Tokens lists custom tokens added to the market.
	Tokens []TokenConfig `mapstructure:"tokens"`
}

// TokenConfig is one custom token entry.
type TokenConfig struct {
	Symbol   string  `mapstructure:"symbol"`
	Name     string  `mapstructure:"name"`
	Mint     string  `mapstructure:"mint"`
	Decimals int32   `mapstructure:"decimals"`
	Price    float64 `mapstructure:"price"`
}

const (
	DefaultRPC                 = "https://api.devnet.solana.com"
	DefaultRetries             = rpc.DefaultMaxRetries
	DefaultBaseDelayMS         = 1000
	DefaultMaxJitterMS         = 1000
	DefaultEndpointCooldownMS  = 1000
	DefaultRateLimitCooldownMS = 10000
	DefaultSwapCooldownMS      = 2000
	DefaultConfirmTimeoutMS    = 2000
	DefaultResetWindowMS       = 3000
	DefaultDecompressDelayMS   = 800
	DefaultExecuteDelayMS      = 1000
	DefaultCompressDelayMS     = 800
	DefaultLogFile             = "logs/swap.log"
	DefaultExportDir           = "exports"

	maxTokenDecimals = 18
)

var knownClusters = []string{
	solbc.ClusterDevnet,
	solbc.ClusterTestnet,
	solbc.ClusterMainnet,
	solbc.ClusterLocal,
}

// LoadDotEnv loads path (".env" when empty) into the process environment.
// A missing file is not an error.
func LoadDotEnv(path string) error {
	if path == "" {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// LoadConfig reads configuration from path and applies SWAP_ environment
// overrides. An empty path means defaults and environment only.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()

	defaults := map[string]interface{}{
		"rpc_list":               []string{DefaultRPC},
		"cluster":                solbc.ClusterDevnet,
		"retries":                DefaultRetries,
		"base_delay_ms":          DefaultBaseDelayMS,
		"max_jitter_ms":          DefaultMaxJitterMS,
		"endpoint_cooldown_ms":   DefaultEndpointCooldownMS,
		"rate_limit_cooldown_ms": DefaultRateLimitCooldownMS,
		"swap_cooldown_ms":       DefaultSwapCooldownMS,
		"confirm_timeout_ms":     DefaultConfirmTimeoutMS,
		"reset_window_ms":        DefaultResetWindowMS,
		"decompress_delay_ms":    DefaultDecompressDelayMS,
		"execute_delay_ms":       DefaultExecuteDelayMS,
		"compress_delay_ms":      DefaultCompressDelayMS,
		"min_slippage_bps":       swap.DefaultMinSlippageBps,
		"max_slippage_bps":       swap.DefaultMaxSlippageBps,
		"require_signer":         false,
		"keypair":                "",
		"private_key":            "",
		"priority":               string(wallet.PriorityNone),
		"debug_logging":          false,
		"log_file":               DefaultLogFile,
		"metrics_addr":           "",
		"export_dir":             DefaultExportDir,
	}
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config error: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal error: %w", err)
	}

	// comma separated list in the environment
	if env := os.Getenv(EnvPrefix + "_RPC_LIST"); env != "" {
		cfg.RPCList = splitList(env)
	}

	// Convert ms to Duration
	cfg.BaseDelay = ms(cfg.BaseDelayMS)
	cfg.MaxJitter = ms(cfg.MaxJitterMS)
	cfg.EndpointCooldown = ms(cfg.EndpointCooldownMS)
	cfg.RateLimitCooldown = ms(cfg.RateLimitCooldownMS)
	cfg.SwapCooldown = ms(cfg.SwapCooldownMS)
	cfg.ConfirmTimeout = ms(cfg.ConfirmTimeoutMS)
	cfg.ResetWindow = ms(cfg.ResetWindowMS)
	cfg.DecompressDelay = ms(cfg.DecompressDelayMS)
	cfg.ExecuteDelay = ms(cfg.ExecuteDelayMS)
	cfg.CompressDelay = ms(cfg.CompressDelayMS)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func ms(v int) time.Duration {
	return time.Duration(v) * time.Millisecond
}

func splitList(raw string) []string {
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if clean := strings.TrimSpace(item); clean != "" {
			out = append(out, clean)
		}
	}
	return out
}

// validate checks required fields and ranges.
func (c *Config) validate() error {
	if len(c.RPCList) == 0 {
		return errors.New("rpc_list must contain at least one RPC endpoint")
	}
	for _, rpcURL := range c.RPCList {
		if err := validateURL(rpcURL, "http"); err != nil {
			return fmt.Errorf("invalid RPC URL %q: %w", c.MaskRPCForLogging(rpcURL), err)
		}
	}

	c.Cluster = strings.ToLower(strings.TrimSpace(c.Cluster))
	if !contains(knownClusters, c.Cluster) {
		return fmt.Errorf("unknown cluster %q", c.Cluster)
	}

	if c.Retries <= 0 {
		return errors.New("retries must be positive")
	}
	for name, v := range map[string]int{
		"base_delay_ms":          c.BaseDelayMS,
		"max_jitter_ms":          c.MaxJitterMS,
		"endpoint_cooldown_ms":   c.EndpointCooldownMS,
		"rate_limit_cooldown_ms": c.RateLimitCooldownMS,
		"swap_cooldown_ms":       c.SwapCooldownMS,
		"confirm_timeout_ms":     c.ConfirmTimeoutMS,
		"reset_window_ms":        c.ResetWindowMS,
		"decompress_delay_ms":    c.DecompressDelayMS,
		"execute_delay_ms":       c.ExecuteDelayMS,
		"compress_delay_ms":      c.CompressDelayMS,
	} {
		if v < 0 {
			return fmt.Errorf("invalid %s: %d", name, v)
		}
	}
	if c.ConfirmTimeoutMS == 0 {
		return errors.New("confirm_timeout_ms must be positive")
	}

	if c.MinSlippageBps < 0 || c.MaxSlippageBps > 10_000 || c.MinSlippageBps > c.MaxSlippageBps {
		return fmt.Errorf("invalid slippage bounds [%d, %d]", c.MinSlippageBps, c.MaxSlippageBps)
	}
	if _, err := wallet.ParsePriority(c.Priority); err != nil {
		return err
	}
	for symbol, price := range c.Prices {
		if price <= 0 {
			return fmt.Errorf("invalid price for %s: %v", symbol, price)
		}
	}
	for i, tok := range c.Tokens {
		if strings.TrimSpace(tok.Symbol) == "" {
			return fmt.Errorf("tokens[%d]: symbol is required", i)
		}
		if _, err := solana.PublicKeyFromBase58(tok.Mint); err != nil {
			return fmt.Errorf("tokens[%d] %s: invalid mint: %w", i, tok.Symbol, err)
		}
		if tok.Decimals < 0 || tok.Decimals > maxTokenDecimals {
			return fmt.Errorf("tokens[%d] %s: decimals %d outside [0, %d]", i, tok.Symbol, tok.Decimals, maxTokenDecimals)
		}
		if tok.Price <= 0 {
			return fmt.Errorf("tokens[%d] %s: price must be positive", i, tok.Symbol)
		}
	}
	return nil
}

func validateURL(rawURL, protocol string) error {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return errors.New("invalid URL format")
	}
	if !strings.HasPrefix(parsed.Scheme, protocol) || parsed.Host == "" {
		return errors.New("invalid URL protocol")
	}
	return nil
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

// RetryPolicy returns the executor retry policy.
func (c *Config) RetryPolicy() rpc.Policy {
	return rpc.Policy{
		MaxRetries: c.Retries,
		BaseDelay:  c.BaseDelay,
		MaxJitter:  c.MaxJitter,
	}
}

// PoolOptions returns the endpoint pool cooldowns.
func (c *Config) PoolOptions() []rpc.PoolOption {
	return []rpc.PoolOption{
		rpc.WithBaseCooldown(c.EndpointCooldown),
		rpc.WithRateLimitCooldown(c.RateLimitCooldown),
	}
}

// SwapConfig returns the orchestrator settings.
func (c *Config) SwapConfig() swap.Config {
	return swap.Config{
		SwapCooldown:    c.SwapCooldown,
		ConfirmTimeout:  c.ConfirmTimeout,
		ResetWindow:     c.ResetWindow,
		DecompressDelay: c.DecompressDelay,
		ExecuteDelay:    c.ExecuteDelay,
		CompressDelay:   c.CompressDelay,
		MinSlippageBps:  c.MinSlippageBps,
		MaxSlippageBps:  c.MaxSlippageBps,
		RequireSigner:   c.RequireSigner,
		Cluster:         c.Cluster,
	}
}

// LoggerConfig returns the logger settings.
func (c *Config) LoggerConfig() logger.Config {
	lc := logger.DefaultConfig()
	lc.LogFile = c.LogFile
	lc.Debug = c.DebugLogging
	return lc
}

// ApplyTokens lists the configured custom tokens on m, in file order.
func (c *Config) ApplyTokens(m *quote.Market) error {
	for _, tok := range c.Tokens {
		err := m.AddCustomToken(quote.Token{
			Symbol:   tok.Symbol,
			Name:     tok.Name,
			Mint:     tok.Mint,
			Decimals: tok.Decimals,
		}, decimal.NewFromFloat(tok.Price))
		if err != nil {
			return fmt.Errorf("custom token: %w", err)
		}
	}
	return nil
}

// ApplyPrices overrides prices of known tokens on m, in symbol order.
func (c *Config) ApplyPrices(m *quote.Market) error {
	symbols := make([]string, 0, len(c.Prices))
	for symbol := range c.Prices {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)
	for _, symbol := range symbols {
		if err := m.SetPrice(symbol, decimal.NewFromFloat(c.Prices[symbol])); err != nil {
			return fmt.Errorf("price override: %w", err)
		}
	}
	return nil
}

// HasSigner reports whether a key source is configured.
func (c *Config) HasSigner() bool {
	return c.Keypair != "" || c.PrivateKey != ""
}

// MaskRPCForLogging hides API keys carried in RPC URL query strings.
func (c *Config) MaskRPCForLogging(rpcURL string) string {
	parsed, err := url.Parse(rpcURL)
	if err != nil || parsed.RawQuery == "" {
		return rpcURL
	}
	q := parsed.Query()
	for key := range q {
		lower := strings.ToLower(key)
		if strings.Contains(lower, "key") || strings.Contains(lower, "token") {
			q.Set(key, "***")
		}
	}
	parsed.RawQuery = q.Encode()
	return parsed.String()
}

// GetMaskedRPCList returns the RPC list with masked API keys for logging.
func (c *Config) GetMaskedRPCList() []string {
	masked := make([]string, len(c.RPCList))
	for i, rpcURL := range c.RPCList {
		masked[i] = c.MaskRPCForLogging(rpcURL)
	}
	return masked
}

// PriorityConfig returns the compute budget profile named by Priority.
func (c *Config) PriorityConfig() wallet.PriorityConfig {
	cfg, _ := wallet.ParsePriority(c.Priority)
	return cfg
}
