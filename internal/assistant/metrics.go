package assistant

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metric names.
const (
	MetricRequests   = "golocal_assistant_requests_total"
	MetricFallbacks  = "golocal_assistant_fallbacks_total"
	MetricSuperseded = "golocal_assistant_superseded_total"
	MetricLatency    = "golocal_assistant_request_duration_seconds"
)

const (
	outcomeAnswered  = "answered"
	outcomeFallback  = "fallback"
	outcomeCancelled = "cancelled"

	reasonUnconfigured = "unconfigured"
	reasonTimeout      = "timeout"
	reasonEmpty        = "empty"
	reasonError        = "error"
)

// Metrics contains Prometheus metrics for assistant requests.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	requests   *prometheus.CounterVec
	fallbacks  *prometheus.CounterVec
	superseded prometheus.Counter
	latency    prometheus.Histogram
}

// NewMetrics creates unregistered assistant metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricRequests,
				Help: "Total number of assistant questions by outcome",
			},
			[]string{"outcome"},
		),
		fallbacks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricFallbacks,
				Help: "Total number of fallback answers by reason",
			},
			[]string{"reason"},
		),
		superseded: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: MetricSuperseded,
				Help: "Total number of questions discarded because a newer one replaced them",
			},
		),
		latency: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    MetricLatency,
				Help:    "Time spent waiting for the completion provider",
				Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 20, 30},
			},
		),
	}
}

// Register registers all metrics with the given registry.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	for _, c := range m.Collectors() {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// Collectors returns all Prometheus collectors.
func (m *Metrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{m.requests, m.fallbacks, m.superseded, m.latency}
}

func (m *Metrics) incRequest(outcome string) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(outcome).Inc()
}

func (m *Metrics) incFallback(reason string) {
	if m == nil {
		return
	}
	m.fallbacks.WithLabelValues(reason).Inc()
}

func (m *Metrics) incSuperseded() {
	if m == nil {
		return
	}
	m.superseded.Inc()
}

func (m *Metrics) observeLatency(d time.Duration) {
	if m == nil {
		return
	}
	m.latency.Observe(d.Seconds())
}
