package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/onnwee/golocal/internal/health"
)

// DefaultReadyTimeout bounds each dependency check of the readiness probe.
const DefaultReadyTimeout = 5 * time.Second

// HealthHandlers provides liveness and readiness endpoints for probes.
type HealthHandlers struct {
	deps    []health.Dependency
	timeout time.Duration
	logger  *slog.Logger
}

// NewHealthHandlers creates health handlers over deps. A non-positive
// timeout uses DefaultReadyTimeout; logger may be nil.
func NewHealthHandlers(deps []health.Dependency, timeout time.Duration, logger *slog.Logger) *HealthHandlers {
	if timeout <= 0 {
		timeout = DefaultReadyTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &HealthHandlers{deps: deps, timeout: timeout, logger: logger}
}

// HealthResponse represents the JSON response for health checks.
type HealthResponse struct {
	Status    string            `json:"status"`
	Checks    map[string]string `json:"checks"`
	Timestamp string            `json:"timestamp"`
}

// Health handles GET /health (liveness probe). If the process can answer,
// it is alive; dependencies are not consulted.
func (h *HealthHandlers) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r.Context(), http.StatusOK, HealthResponse{
		Status:    health.StatusHealthy,
		Checks:    map[string]string{"runtime": health.StatusOK},
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// Ready handles GET /ready (readiness probe). Returns 503 when a critical
// dependency fails; a failing optional dependency reports "degraded" with 200.
func (h *HealthHandlers) Ready(w http.ResponseWriter, r *http.Request) {
	report := health.Run(r.Context(), h.deps, h.timeout)
	for name, err := range report.Errors {
		h.logger.WarnContext(r.Context(), "dependency health check failed",
			slog.String("dependency", name), slog.String("error", err.Error()))
	}

	status := http.StatusOK
	if !report.Ready() {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, r.Context(), status, HealthResponse{
		Status:    report.Status,
		Checks:    report.Checks,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}
