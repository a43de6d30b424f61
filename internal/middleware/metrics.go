package middleware

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metric names, all under the golocal namespace.
const (
	MetricRateLimitRequests     = "golocal_rate_limit_requests_total"
	MetricRateLimitBlocked      = "golocal_rate_limit_blocked_total"
	MetricRateLimitRedisErrors  = "golocal_rate_limit_store_errors_total"
	MetricHTTPRequestDuration   = "golocal_http_request_duration_seconds"
	MetricHTTPRequestsTotal     = "golocal_http_requests_total"
	MetricHTTPRequestSizeBytes  = "golocal_http_request_size_bytes"
	MetricHTTPResponseSizeBytes = "golocal_http_response_size_bytes"
)

var (
	rateLimitLabels = []string{"endpoint", "key_type"}
	httpLabels      = []string{"method", "path", "status"}

	// Ask requests wait on the completion provider, hence the long tail.
	latencyBuckets = []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 20}
	// 64B .. 1MiB; place lists with descriptions sit in the tens of KiB.
	sizeBuckets = prometheus.ExponentialBuckets(64, 4, 8)
)

// Metrics holds the counters and histograms recorded by the HTTP chain:
// per-route traffic plus rate limiter decisions.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	limitChecks      *prometheus.CounterVec
	limitRejections  *prometheus.CounterVec
	limitStoreErrors prometheus.Counter

	latency   *prometheus.HistogramVec
	requests  *prometheus.CounterVec
	reqBytes  *prometheus.HistogramVec
	respBytes *prometheus.HistogramVec
}

// NewMetrics creates unregistered middleware metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		limitChecks:     counterVec(MetricRateLimitRequests, "Rate limit checks by endpoint and key type", rateLimitLabels),
		limitRejections: counterVec(MetricRateLimitBlocked, "Requests rejected with 429 by endpoint and key type", rateLimitLabels),
		limitStoreErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: MetricRateLimitRedisErrors,
			Help: "Rate limit store failures; the request was let through",
		}),
		latency:   histogramVec(MetricHTTPRequestDuration, "HTTP request latency in seconds", latencyBuckets),
		requests:  counterVec(MetricHTTPRequestsTotal, "HTTP requests by route pattern and status", httpLabels),
		reqBytes:  histogramVec(MetricHTTPRequestSizeBytes, "HTTP request body size in bytes", sizeBuckets),
		respBytes: histogramVec(MetricHTTPResponseSizeBytes, "HTTP response body size in bytes", sizeBuckets),
	}
}

func counterVec(name, help string, labels []string) *prometheus.CounterVec {
	return prometheus.NewCounterVec(prometheus.CounterOpts{Name: name, Help: help}, labels)
}

func histogramVec(name, help string, buckets []float64) *prometheus.HistogramVec {
	return prometheus.NewHistogramVec(prometheus.HistogramOpts{Name: name, Help: help, Buckets: buckets}, httpLabels)
}

// Register adds every collector to reg, stopping at the first conflict.
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
	return []prometheus.Collector{
		m.limitChecks, m.limitRejections, m.limitStoreErrors,
		m.latency, m.requests, m.reqBytes, m.respBytes,
	}
}

// IncRateLimitRequests counts a rate limit check. keyType is "device" or "ip".
func (m *Metrics) IncRateLimitRequests(endpoint, keyType string) {
	if m != nil {
		m.limitChecks.WithLabelValues(endpoint, keyType).Inc()
	}
}

// IncRateLimitBlocked counts a rejected request.
func (m *Metrics) IncRateLimitBlocked(endpoint, keyType string) {
	if m != nil {
		m.limitRejections.WithLabelValues(endpoint, keyType).Inc()
	}
}

// IncRateLimitRedisErrors counts a fail-open event.
func (m *Metrics) IncRateLimitRedisErrors() {
	if m != nil {
		m.limitStoreErrors.Inc()
	}
}

// ObserveHTTPRequest records one request. path must be the route pattern,
// never the raw URL, to keep label cardinality bounded.
func (m *Metrics) ObserveHTTPRequest(method, path, status string, duration float64, requestSize, responseSize int64) {
	if m == nil {
		return
	}
	series := []string{method, path, status}
	m.latency.WithLabelValues(series...).Observe(duration)
	m.requests.WithLabelValues(series...).Inc()
	m.reqBytes.WithLabelValues(series...).Observe(float64(requestSize))
	m.respBytes.WithLabelValues(series...).Observe(float64(responseSize))
}
