// internal/blockchain/solbc/rpc/metrics.go
package rpc

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics are the executor's Prometheus collectors. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	requests  *prometheus.CounterVec
	failures  *prometheus.CounterVec
	exhausted prometheus.Counter
	latency   prometheus.Histogram
}

// NewMetrics builds the collectors and registers them on reg when non-nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "swap_rpc_requests_total",
			Help: "RPC attempts by method and result",
		}, []string{"method", "result"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "swap_rpc_failures_total",
			Help: "Failed RPC attempts by error class",
		}, []string{"class"}),
		exhausted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "swap_rpc_exhausted_total",
			Help: "Calls that spent their whole retry budget",
		}),
		latency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "swap_rpc_latency_seconds",
			Help:    "Latency of successful RPC attempts",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 10),
		}),
	}
	if reg != nil {
		reg.MustRegister(m.requests, m.failures, m.exhausted, m.latency)
	}
	return m
}

func (m *Metrics) observeSuccess(method string, latency time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(method, "ok").Inc()
	m.latency.Observe(latency.Seconds())
}

func (m *Metrics) observeFailure(method string, class ErrorClass) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(method, "error").Inc()
	m.failures.WithLabelValues(class.String()).Inc()
}

func (m *Metrics) observeExhausted() {
	if m == nil {
		return
	}
	m.exhausted.Inc()
}
