// internal/swap/metrics.go
package swap

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics are the orchestrator's Prometheus collectors. A nil *Metrics
// records nothing.
type Metrics struct {
	operations *prometheus.CounterVec
	phases     *prometheus.HistogramVec
	inFlight   prometheus.Gauge
}

// NewMetrics builds the collectors and registers them on reg when non-nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "swap_operations_total",
			Help: "Finished swap operations by outcome, path and error kind",
		}, []string{"outcome", "path", "kind"}),
		phases: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "swap_phase_duration_seconds",
			Help:    "Time spent in each orchestration phase",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
		}, []string{"phase"}),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "swap_in_flight",
			Help: "1 while an operation is running",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.operations, m.phases, m.inFlight)
	}
	return m
}

func (m *Metrics) observePhase(p Phase, d time.Duration) {
	if m == nil {
		return
	}
	m.phases.WithLabelValues(p.String()).Observe(d.Seconds())
}

func (m *Metrics) observeOutcome(o Outcome) {
	if m == nil {
		return
	}
	path := "wallet"
	if o.Record.IsSimulated {
		path = "demo"
	}
	outcome := "confirmed"
	if o.Failed() {
		outcome = "failed"
	}
	m.operations.WithLabelValues(outcome, path, string(o.Kind)).Inc()
}

func (m *Metrics) setInFlight(v bool) {
	if m == nil {
		return
	}
	if v {
		m.inFlight.Set(1)
	} else {
		m.inFlight.Set(0)
	}
}
