package ledger

import (
	"fmt"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rovshanmuradov/compressed-swap/internal/compression"
)

func compressedRecord(original, divisor int) Record {
	m := compression.FromSizes(original, divisor)
	return Record{
		From:         "SOL",
		To:           "USDC",
		InputAmount:  decimal.NewFromInt(1),
		OutputAmount: decimal.RequireFromString("169.15"),
		Status:       StatusSuccess,
		IsCompressed: true,
		Metrics:      &m,
	}
}

func standardRecord(status Status) Record {
	return Record{
		From:        "USDC",
		To:          "SOL",
		InputAmount: decimal.NewFromInt(10),
		Status:      status,
	}
}

func TestAppendPrependsAndAssignsIdentity(t *testing.T) {
	l := New()
	first, err := l.Append(standardRecord(StatusSuccess))
	require.NoError(t, err)
	second, err := l.Append(compressedRecord(1200, 45))
	require.NoError(t, err)

	assert.NotEmpty(t, first.ID)
	assert.NotEqual(t, first.ID, second.ID)
	assert.False(t, first.CreatedAt.IsZero())
	assert.Equal(t, KindSwap, first.Kind)

	all := l.All()
	require.Len(t, all, 2)
	assert.Equal(t, second.ID, all[0].ID)
	assert.Equal(t, first.ID, all[1].ID)
}

func TestAppendRejectsMetricsMismatch(t *testing.T) {
	l := New()
	r := standardRecord(StatusSuccess)
	r.IsCompressed = true
	_, err := l.Append(r)
	assert.ErrorIs(t, err, ErrInvalidRecord)

	r = compressedRecord(1200, 45)
	r.IsCompressed = false
	_, err = l.Append(r)
	assert.ErrorIs(t, err, ErrInvalidRecord)

	_, err = l.Append(Record{Status: "pending"})
	assert.ErrorIs(t, err, ErrInvalidRecord)
	assert.Zero(t, l.Len())
}

func TestRecordsAreImmutable(t *testing.T) {
	l := New()
	in := compressedRecord(1200, 45)
	stored, err := l.Append(in)
	require.NoError(t, err)

	in.Metrics.GasReduction = 999
	stored.Metrics.GasReduction = 999
	l.All()[0].Metrics.GasReduction = 999

	got, ok := l.Get(stored.ID)
	require.True(t, ok)
	assert.NotEqual(t, 999.0, got.Metrics.GasReduction)
}

func TestFilterIsIdempotent(t *testing.T) {
	l := New()
	for i := 0; i < 10; i++ {
		if i%3 == 0 {
			_, _ = l.Append(compressedRecord(1200+i, 45+i))
		} else {
			_, _ = l.Append(standardRecord(StatusSuccess))
		}
	}

	for _, p := range []Predicate{All, Compressed, Standard, Succeeded, OfKind(KindSwap)} {
		once := l.Filter(p)
		twice := filterSlice(once, p)
		assert.Equal(t, once, twice)
		assert.Equal(t, once, l.Filter(p))
	}
	assert.Len(t, l.Filter(Compressed), 4)
	assert.Len(t, l.Filter(Standard), 6)
	assert.Equal(t, 10, l.Len())
}

func filterSlice(records []Record, p Predicate) []Record {
	out := make([]Record, 0, len(records))
	for _, r := range records {
		if p(r) {
			out = append(out, r)
		}
	}
	return out
}

func TestParseFilter(t *testing.T) {
	for _, name := range []string{"", "all", "compressed", "standard", "swap", "airdrop"} {
		p, err := ParseFilter(name)
		require.NoError(t, err, name)
		assert.NotNil(t, p)
	}
	_, err := ParseFilter("bogus")
	assert.Error(t, err)
}

func TestStats(t *testing.T) {
	l := New()
	assert.Equal(t, Stats{}, l.Stats())

	a := compressedRecord(1200, 45)
	b := compressedRecord(1500, 50)
	_, _ = l.Append(a)
	_, _ = l.Append(b)
	_, _ = l.Append(standardRecord(StatusFailed))

	s := l.Stats()
	assert.Equal(t, 3, s.Count)
	assert.Equal(t, 2, s.Succeeded)
	assert.Equal(t, 1, s.Failed)
	assert.Equal(t, 2, s.WithMetrics)
	assert.InDelta(t, a.Metrics.GasReduction+b.Metrics.GasReduction, s.TotalGasReduction, 1e-12)
	assert.InDelta(t, (a.Metrics.SavingsPercentage+b.Metrics.SavingsPercentage)/2, s.AverageSavings, 1e-9)
	assert.Equal(t, s.TotalGasReduction, l.TotalGasReduction())
	assert.Equal(t, s.AverageSavings, l.AverageSavingsPercent())
}

func TestConcurrentAppend(t *testing.T) {
	l := New()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			r := standardRecord(StatusSuccess)
			r.TransactionID = fmt.Sprintf("tx-%d", i)
			_, err := l.Append(r)
			assert.NoError(t, err)
			_ = l.Stats()
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 20, l.Len())
}
