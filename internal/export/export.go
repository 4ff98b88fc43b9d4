package export

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/rovshanmuradov/compressed-swap/internal/ledger"
)

// Format represents the export file format
type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
)

// ErrNoRecords is returned when nothing matches the export criteria.
var ErrNoRecords = errors.New("no records match the export criteria")

// ParseFormat accepts "csv" or "json".
func ParseFormat(name string) (Format, error) {
	switch Format(name) {
	case FormatCSV, FormatJSON:
		return Format(name), nil
	default:
		return "", fmt.Errorf("unsupported format: %s", name)
	}
}

// Options configures the export behavior
type Options struct {
	Format    Format
	StartTime time.Time
	EndTime   time.Time
	// Filter is a ledger filter name: all, compressed, standard, swap, airdrop.
	Filter      string
	OnlySuccess bool
	OutputDir   string
}

// Exporter writes ledger snapshots to disk
type Exporter struct {
	logger *zap.Logger
	now    func() time.Time
}

// NewExporter creates a new exporter
func NewExporter(logger *zap.Logger) *Exporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Exporter{
		logger: logger.Named("export"),
		now:    time.Now,
	}
}

// Export writes the records of l selected by options and returns the file
// path. Records are written oldest first.
func (e *Exporter) Export(l *ledger.Ledger, options Options) (string, error) {
	pred, err := ledger.ParseFilter(options.Filter)
	if err != nil {
		return "", err
	}
	if options.Format == "" {
		options.Format = FormatCSV
	}
	if _, err := ParseFormat(string(options.Format)); err != nil {
		return "", err
	}

	records := e.filterRecords(l.Filter(pred), options)
	if len(records) == 0 {
		return "", ErrNoRecords
	}
	slices.Reverse(records)

	if options.OutputDir == "" {
		options.OutputDir = "."
	}
	if err := os.MkdirAll(options.OutputDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	outputPath := filepath.Join(options.OutputDir, e.generateFilename(options))

	switch options.Format {
	case FormatCSV:
		err = writeCSV(records, outputPath)
	case FormatJSON:
		err = e.writeJSON(records, outputPath)
	}
	if err != nil {
		return "", err
	}

	e.logger.Info("Ledger exported",
		zap.String("file", outputPath),
		zap.Int("count", len(records)),
		zap.String("format", string(options.Format)))
	return outputPath, nil
}

func (e *Exporter) filterRecords(records []ledger.Record, options Options) []ledger.Record {
	filtered := records[:0:0]
	for _, r := range records {
		if !options.StartTime.IsZero() && r.CreatedAt.Before(options.StartTime) {
			continue
		}
		if !options.EndTime.IsZero() && r.CreatedAt.After(options.EndTime) {
			continue
		}
		if options.OnlySuccess && !r.Succeeded() {
			continue
		}
		filtered = append(filtered, r)
	}
	return filtered
}

func (e *Exporter) generateFilename(options Options) string {
	prefix := "ledger_all"
	if options.Filter != "" {
		prefix = "ledger_" + options.Filter
	}
	return fmt.Sprintf("%s_%s.%s", prefix, e.now().Format("20060102_150405"), options.Format)
}

// CSVHeaders returns the column names of a CSV export.
func CSVHeaders() []string {
	return []string{
		"id", "time", "kind", "from", "to", "input", "output", "status",
		"transaction", "simulated", "compressed", "network_fee_sol",
		"original_size", "compressed_size", "savings_pct", "gas_reduction_sol",
		"endpoint", "error",
	}
}

func csvRow(r ledger.Record) []string {
	row := []string{
		r.ID,
		r.CreatedAt.Format(time.RFC3339),
		string(r.Kind),
		r.From,
		r.To,
		r.InputAmount.String(),
		r.OutputAmount.String(),
		string(r.Status),
		r.TransactionID,
		strconv.FormatBool(r.IsSimulated),
		strconv.FormatBool(r.IsCompressed),
		strconv.FormatFloat(r.NetworkFee, 'f', 9, 64),
		"", "", "", "",
		r.Endpoint,
		r.Error,
	}
	if m := r.Metrics; m != nil {
		row[12] = strconv.Itoa(m.OriginalSizeBytes)
		row[13] = strconv.Itoa(m.CompressedSizeBytes)
		row[14] = strconv.FormatFloat(m.SavingsPercentage, 'f', 2, 64)
		row[15] = strconv.FormatFloat(m.GasReduction, 'f', 9, 64)
	}
	return row
}

func writeCSV(records []ledger.Record, outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write(CSVHeaders()); err != nil {
		return fmt.Errorf("failed to write CSV headers: %w", err)
	}
	for _, r := range records {
		if err := writer.Write(csvRow(r)); err != nil {
			return fmt.Errorf("failed to write record: %w", err)
		}
	}
	writer.Flush()
	return writer.Error()
}

// Summary contains aggregate statistics for exported records
type Summary struct {
	Total             int       `json:"total"`
	Succeeded         int       `json:"succeeded"`
	Failed            int       `json:"failed"`
	Compressed        int       `json:"compressed"`
	Simulated         int       `json:"simulated"`
	TotalNetworkFee   float64   `json:"total_network_fee_sol"`
	TotalGasReduction float64   `json:"total_gas_reduction_sol"`
	AverageSavings    float64   `json:"average_savings_pct"`
	StartDate         time.Time `json:"start_date"`
	EndDate           time.Time `json:"end_date"`
}

// Summarize aggregates records given oldest first.
func Summarize(records []ledger.Record) Summary {
	s := Summary{Total: len(records)}
	if len(records) == 0 {
		return s
	}
	s.StartDate = records[0].CreatedAt
	s.EndDate = records[len(records)-1].CreatedAt

	var savings float64
	for _, r := range records {
		if r.Succeeded() {
			s.Succeeded++
		} else {
			s.Failed++
		}
		if r.IsSimulated {
			s.Simulated++
		}
		s.TotalNetworkFee += r.NetworkFee
		if r.Metrics != nil {
			s.Compressed++
			s.TotalGasReduction += r.Metrics.GasReduction
			savings += r.Metrics.SavingsPercentage
		}
	}
	if s.Compressed > 0 {
		s.AverageSavings = savings / float64(s.Compressed)
	}
	return s
}

func (e *Exporter) writeJSON(records []ledger.Record, outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create JSON file: %w", err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	data := struct {
		ExportTime time.Time       `json:"export_time"`
		Count      int             `json:"count"`
		Records    []ledger.Record `json:"records"`
		Summary    Summary         `json:"summary"`
	}{
		ExportTime: e.now(),
		Count:      len(records),
		Records:    records,
		Summary:    Summarize(records),
	}
	if err := encoder.Encode(data); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}
