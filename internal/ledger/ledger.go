// internal/ledger/ledger.go
package ledger

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rovshanmuradov/compressed-swap/internal/compression"
)

// Status is the terminal status of a record.
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
)

// Kind is the category of a record.
type Kind string

const (
	KindSwap    Kind = "swap"
	KindAirdrop Kind = "airdrop"
)

// ErrInvalidRecord is returned by Append for records that break the
// metrics-iff-compressed rule.
var ErrInvalidRecord = errors.New("invalid record")

// Record is one finalized operation. Records are values; the ledger never
// hands out pointers into its own storage.
type Record struct {
	ID            string          `json:"id"`
	CreatedAt     time.Time       `json:"created_at"`
	Kind          Kind            `json:"kind"`
	From          string          `json:"from"`
	To            string          `json:"to"`
	InputAmount   decimal.Decimal `json:"input_amount"`
	OutputAmount  decimal.Decimal `json:"output_amount"`
	Status        Status          `json:"status"`
	TransactionID string          `json:"transaction_id,omitempty"`
	IsSimulated   bool            `json:"is_simulated"`
	IsCompressed  bool            `json:"is_compressed"`
	// Metrics is set iff IsCompressed.
	Metrics     *compression.Metrics `json:"metrics,omitempty"`
	NetworkFee  float64              `json:"network_fee"`
	Endpoint    string               `json:"endpoint,omitempty"`
	ExplorerURL string               `json:"explorer_url,omitempty"`
	IsLocal     bool                 `json:"is_local"`
	ErrorKind   string               `json:"error_kind,omitempty"`
	Error       string               `json:"error,omitempty"`
}

func (r Record) clone() Record {
	if r.Metrics != nil {
		m := *r.Metrics
		r.Metrics = &m
	}
	return r
}

// Succeeded reports whether the record is a success.
func (r Record) Succeeded() bool {
	return r.Status == StatusSuccess
}

// Predicate selects records.
type Predicate func(Record) bool

// All keeps every record.
func All(Record) bool { return true }

// Compressed keeps records that went through the compressed path.
func Compressed(r Record) bool { return r.IsCompressed }

// Standard keeps records that did not.
func Standard(r Record) bool { return !r.IsCompressed }

// Succeeded keeps successful records.
func Succeeded(r Record) bool { return r.Status == StatusSuccess }

// OfKind keeps records of kind k.
func OfKind(k Kind) Predicate {
	return func(r Record) bool { return r.Kind == k }
}

// ParseFilter maps the names used by the UI and CLI to predicates.
func ParseFilter(name string) (Predicate, error) {
	switch name {
	case "", "all":
		return All, nil
	case "compressed":
		return Compressed, nil
	case "standard":
		return Standard, nil
	case "swap":
		return OfKind(KindSwap), nil
	case "airdrop":
		return OfKind(KindAirdrop), nil
	default:
		return nil, fmt.Errorf("unknown filter %q", name)
	}
}

// Stats aggregates the ledger.
type Stats struct {
	Count             int
	Succeeded         int
	Failed            int
	WithMetrics       int
	TotalGasReduction float64
	AverageSavings    float64
}

// Ledger is an append-only in-memory log, most recent first.
type Ledger struct {
	mu      sync.RWMutex
	records []Record
	now     func() time.Time
}

// New creates an empty ledger.
func New() *Ledger {
	return &Ledger{now: time.Now}
}

// Append stores r in front of the log. Missing ids and timestamps are
// assigned. The stored copy is returned.
func (l *Ledger) Append(r Record) (Record, error) {
	if r.IsCompressed != (r.Metrics != nil) {
		return Record{}, fmt.Errorf("%w: compressed=%t but metrics present=%t",
			ErrInvalidRecord, r.IsCompressed, r.Metrics != nil)
	}
	if r.Status != StatusSuccess && r.Status != StatusFailed {
		return Record{}, fmt.Errorf("%w: status %q", ErrInvalidRecord, r.Status)
	}
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.Kind == "" {
		r.Kind = KindSwap
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if r.CreatedAt.IsZero() {
		r.CreatedAt = l.now()
	}
	r = r.clone()
	l.records = append([]Record{r}, l.records...)
	return r.clone(), nil
}

// All returns every record, most recent first.
func (l *Ledger) All() []Record {
	return l.Filter(All)
}

// Filter returns the records matching p without touching the log.
func (l *Ledger) Filter(p Predicate) []Record {
	if p == nil {
		p = All
	}
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]Record, 0, len(l.records))
	for _, r := range l.records {
		if p(r) {
			out = append(out, r.clone())
		}
	}
	return out
}

// Get finds a record by id.
func (l *Ledger) Get(id string) (Record, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for _, r := range l.records {
		if r.ID == id {
			return r.clone(), true
		}
	}
	return Record{}, false
}

// Len returns the number of records.
func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.records)
}

// TotalGasReduction sums the gas reduction of records with metrics.
func (l *Ledger) TotalGasReduction() float64 {
	return l.Stats().TotalGasReduction
}

// AverageSavingsPercent averages the savings of records with metrics.
func (l *Ledger) AverageSavingsPercent() float64 {
	return l.Stats().AverageSavings
}

// Stats computes all aggregates in one pass.
func (l *Ledger) Stats() Stats {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var (
		s          Stats
		savingsSum float64
	)
	s.Count = len(l.records)
	for _, r := range l.records {
		if r.Status == StatusSuccess {
			s.Succeeded++
		} else {
			s.Failed++
		}
		if r.Metrics == nil {
			continue
		}
		s.WithMetrics++
		s.TotalGasReduction += r.Metrics.GasReduction
		savingsSum += r.Metrics.SavingsPercentage
	}
	if s.WithMetrics > 0 {
		s.AverageSavings = savingsSum / float64(s.WithMetrics)
	}
	return s
}
