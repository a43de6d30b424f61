package bookmark

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metric names.
const (
	MetricToggles           = "golocal_bookmark_toggles_total"
	MetricPersistenceErrors = "golocal_bookmark_persistence_errors_total"
	MetricCorruptSets       = "golocal_bookmark_corrupt_sets_total"
)

// Metrics contains Prometheus metrics for bookmark operations.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	toggles           *prometheus.CounterVec
	persistenceErrors *prometheus.CounterVec
	corruptSets       *prometheus.CounterVec
}

// NewMetrics creates unregistered bookmark metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		toggles: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricToggles,
				Help: "Total number of confirmed bookmark toggles by set and outcome",
			},
			[]string{"set", "outcome"},
		),
		persistenceErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricPersistenceErrors,
				Help: "Total number of bookmark store failures by set and operation",
			},
			[]string{"set", "op"},
		),
		corruptSets: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricCorruptSets,
				Help: "Total number of unparseable bookmark sets treated as empty",
			},
			[]string{"set"},
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
	return []prometheus.Collector{m.toggles, m.persistenceErrors, m.corruptSets}
}

func (m *Metrics) incToggle(set SetName, outcome Outcome) {
	if m == nil {
		return
	}
	m.toggles.WithLabelValues(string(set), string(outcome)).Inc()
}

func (m *Metrics) incPersistenceError(set SetName, op string) {
	if m == nil {
		return
	}
	m.persistenceErrors.WithLabelValues(string(set), op).Inc()
}

func (m *Metrics) incCorrupt(set SetName) {
	if m == nil {
		return
	}
	m.corruptSets.WithLabelValues(string(set)).Inc()
}
