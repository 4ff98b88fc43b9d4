// internal/compression/compression.go
package compression

import (
	"fmt"
	"math/rand/v2"
	"sync"

	"github.com/shopspring/decimal"
)

const (
	// RegularFee is the reference fee of an uncompressed transaction in SOL.
	RegularFee = 0.000005
	// CompressedTxFee is the flat estimate shown for a compressed transaction.
	CompressedTxFee = 0.0000001

	baseSize     = 1200
	sizeSpread   = 300
	baseDivisor  = 45
	divisorRange = 15
)

// Metrics describes the size and fee effect of compressing one operation.
type Metrics struct {
	OriginalSizeBytes   int     `json:"original_size_bytes"`
	CompressedSizeBytes int     `json:"compressed_size_bytes"`
	ProofSizeBytes      int     `json:"proof_size_bytes"`
	CompressionRatio    float64 `json:"compression_ratio"`
	GasReduction        float64 `json:"gas_reduction"`
	SavingsPercentage   float64 `json:"savings_percentage"`
	RegularFee          float64 `json:"regular_fee"`
	CompressedFee       float64 `json:"compressed_fee"`
	FeeSavings          float64 `json:"fee_savings"`
}

// Validate checks the relations every Metrics value must satisfy.
func (m Metrics) Validate() error {
	switch {
	case m.CompressedSizeBytes <= 0:
		return fmt.Errorf("compressed size must be positive, got %d", m.CompressedSizeBytes)
	case m.CompressedSizeBytes > m.OriginalSizeBytes:
		return fmt.Errorf("compressed size %d exceeds original %d", m.CompressedSizeBytes, m.OriginalSizeBytes)
	case m.CompressionRatio < 1:
		return fmt.Errorf("compression ratio %.4f below 1", m.CompressionRatio)
	case m.CompressedFee > m.RegularFee:
		return fmt.Errorf("compressed fee %.8f exceeds regular fee %.8f", m.CompressedFee, m.RegularFee)
	}
	return nil
}

func (m Metrics) RatioString() string {
	return fmt.Sprintf("%.2f:1", m.CompressionRatio)
}

func (m Metrics) OriginalSizeString() string {
	return fmt.Sprintf("%d bytes", m.OriginalSizeBytes)
}

func (m Metrics) CompressedSizeString() string {
	return fmt.Sprintf("%d bytes", m.CompressedSizeBytes)
}

func (m Metrics) SavingsString() string {
	return fmt.Sprintf("%.2f%%", m.SavingsPercentage)
}

func (m Metrics) GasReductionString() string {
	return formatSOL(m.GasReduction)
}

func (m Metrics) CompressedFeeString() string {
	return formatSOL(m.CompressedFee)
}

func (m Metrics) FeeSavingsString() string {
	return formatSOL(m.FeeSavings)
}

func formatSOL(v float64) string {
	return fmt.Sprintf("%.8f SOL", v)
}

// Calculator draws demo compression metrics.
type Calculator struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewCalculator creates a calculator. A nil rng uses a randomly seeded source.
func NewCalculator(rng *rand.Rand) *Calculator {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Calculator{rng: rng}
}

// Compute draws one set of metrics. The amount does not change the result;
// sizes depend only on the two random draws.
func (c *Calculator) Compute(_ decimal.Decimal) Metrics {
	c.mu.Lock()
	original := baseSize + c.rng.IntN(sizeSpread)
	divisor := baseDivisor + c.rng.IntN(divisorRange)
	c.mu.Unlock()

	return FromSizes(original, divisor)
}

// FromSizes derives the metrics for a given original size and divisor.
func FromSizes(original, divisor int) Metrics {
	if divisor < 1 {
		divisor = 1
	}
	compressed := max(original/divisor, 1)
	ratio := float64(original) / float64(compressed)
	compressedFee := RegularFee / ratio

	return Metrics{
		OriginalSizeBytes:   original,
		CompressedSizeBytes: compressed,
		ProofSizeBytes:      compressed,
		CompressionRatio:    ratio,
		GasReduction:        RegularFee * ratio,
		SavingsPercentage:   100 * (1 - float64(compressed)/float64(original)),
		RegularFee:          RegularFee,
		CompressedFee:       compressedFee,
		FeeSavings:          RegularFee - compressedFee,
	}
}

// FeeComparison is the static regular versus compressed fee summary.
type FeeComparison struct {
	Regular        float64
	Compressed     float64
	Savings        float64
	SavingsPercent float64
}

// CompareFees returns the flat fee comparison shown next to a quote.
func CompareFees() FeeComparison {
	savings := RegularFee - CompressedTxFee
	return FeeComparison{
		Regular:        RegularFee,
		Compressed:     CompressedTxFee,
		Savings:        savings,
		SavingsPercent: savings / RegularFee * 100,
	}
}

func (f FeeComparison) String() string {
	return fmt.Sprintf("regular %s, compressed %s, saves %s (%.0f%%)",
		formatSOL(f.Regular), formatSOL(f.Compressed), formatSOL(f.Savings), f.SavingsPercent)
}
