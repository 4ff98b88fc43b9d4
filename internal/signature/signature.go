// internal/signature/signature.go
package signature

import (
	"math/rand/v2"
	"slices"
	"strings"
	"sync"

	"github.com/mr-tron/base58"
	"go.uber.org/zap"
)

const (
	// CompressedPrefix marks identifiers produced by the simulated compressed path.
	CompressedPrefix = "5zkCompressed"

	// Alphabet is the bitcoin base58 alphabet used by Solana.
	Alphabet = "123456789ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz"

	generatedBodyLen = 50
	minCompressedLen = 20
	maxCompressedLen = 80
	minNativeLen     = 87
	maxNativeLen     = 88
)

// Operation labels for generated identifiers.
const (
	LabelSwap   = "zkSwap"
	LabelMint   = "zkMint"
	LabelMintTo = "zkMintTo"
)

var labelPrefixes = []string{LabelMintTo, LabelMint, LabelSwap}

// KnownIdentifiers are the fixed demo identifiers always accepted.
var KnownIdentifiers = []string{
	"4ETf86tK5OfE9esQeXA8sFCUimBK38PTVpEBVZbjNZCZ4x4kNGxg3HPDdgzqVHZ7JfZu9AwxjR8N9LG9ztkqtjjG",
	"3vZ67CGoRYkuT76TtpP2VrtmQwwoBnNaEspnrPiJMPpZGUpMaVWXohHbJNjTHNsqVsKgzpkVSV5WfoRpuRHPnR2U",
	"4bqwGFAxLpNB3fgryJwQJPNVfgZNKMNz6kpMB4SXcmwVP3fJgpj3GfKTdWiSoMGWGANQqyEZYUxwXZRbCYrKGmZZ",
	"3HRgpZKvxDNAGsXjYxKQP5Qz5QJzWm6YAJULwLH8UPUpKQhLJ8QGLGFysCS3AstmZUCLYxsQNMMRYP9zWAFYSEVj",
	"2vJpzBFsHN5CkzEjSxpnMKXyJNHqXJjgLKgvmZCxLfd9DVzTvDDXYxmcQJKA1b9tRKUnKXVAJSG9jHjMQjpDwKqq",
	"5zkCompressedTxSignature111111111111111111111111111111111111111111111111",
	"5zkCompressedTxSignature222222222222222222222222222222222222222222222222",
	"5zkCompressedTxSignature333333333333333333333333333333333333333333333333",
	"5zkCompressedTxSignature444444444444444444444444444444444444444444444444",
	"5zkCompressedTxSignature555555555555555555555555555555555555555555555555",
}

// Validator recognises and synthesises transaction identifiers.
type Validator struct {
	mu     sync.Mutex
	rng    *rand.Rand
	known  []string
	logger *zap.Logger
}

// Option configures a Validator.
type Option func(*Validator)

// WithRand makes generation reproducible.
func WithRand(rng *rand.Rand) Option {
	return func(v *Validator) {
		if rng != nil {
			v.rng = rng
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *zap.Logger) Option {
	return func(v *Validator) {
		if logger != nil {
			v.logger = logger.Named("signature")
		}
	}
}

// WithKnown extends the allow-list.
func WithKnown(ids ...string) Option {
	return func(v *Validator) { v.known = append(v.known, ids...) }
}

// NewValidator creates a validator seeded from the runtime source.
func NewValidator(opts ...Option) *Validator {
	v := &Validator{
		rng:    rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
		known:  slices.Clone(KnownIdentifiers),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// IsValid reports whether id is an allow-listed identifier, a labelled demo
// identifier, a native 87-88 character base58 signature or a compressed
// prefix followed by 20-80 base58 characters.
func (v *Validator) IsValid(id string) bool {
	if id == "" {
		return false
	}
	if slices.Contains(v.known, id) {
		return true
	}
	for _, p := range labelPrefixes {
		if strings.HasPrefix(id, p) {
			return true
		}
	}
	if IsNative(id) {
		return true
	}
	return isCompressedShape(id)
}

// IsSimulated reports whether id came from the demo path rather than a
// real network.
func (v *Validator) IsSimulated(id string) bool {
	if slices.Contains(v.known, id) {
		return true
	}
	for _, p := range labelPrefixes {
		if strings.HasPrefix(id, p) {
			return true
		}
	}
	return isCompressedShape(id)
}

// Generate returns, with even odds, a random allow-listed identifier or the
// compressed prefix followed by 50 random base58 characters. label only
// names the operation for logging.
func (v *Validator) Generate(label string) string {
	v.mu.Lock()
	defer v.mu.Unlock()

	var id string
	if v.rng.Float64() > 0.5 && len(v.known) > 0 {
		id = v.known[v.rng.IntN(len(v.known))]
	} else {
		var b strings.Builder
		b.Grow(len(CompressedPrefix) + generatedBodyLen)
		b.WriteString(CompressedPrefix)
		for i := 0; i < generatedBodyLen; i++ {
			b.WriteByte(Alphabet[v.rng.IntN(len(Alphabet))])
		}
		id = b.String()
	}

	v.logger.Debug("Generated demo identifier",
		zap.String("label", label),
		zap.String("id", id))
	return id
}

// IsNative reports whether id has the shape of a Solana transaction signature.
func IsNative(id string) bool {
	return len(id) >= minNativeLen && len(id) <= maxNativeLen && isBase58(id)
}

func isCompressedShape(id string) bool {
	body, ok := strings.CutPrefix(id, CompressedPrefix)
	if !ok {
		return false
	}
	return len(body) >= minCompressedLen && len(body) <= maxCompressedLen && isBase58(body)
}

func isBase58(s string) bool {
	if s == "" {
		return false
	}
	_, err := base58.Decode(s)
	return err == nil
}
