package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

// staticRoutes are recorded under their own path.
var staticRoutes = map[string]bool{
	"/":                  true,
	"/places":            true,
	"/places/categories": true,
	"/profile":           true,
	"/profile/name":      true,
	"/profile/photo":     true,
	"/profile/dark-mode": true,
	"/map/viewport":      true,
	"/map/recenter":      true,
	"/map/region":        true,
	"/map/markers":       true,
	"/devices":           true,
	"/health":            true,
	"/ready":             true,
	"/metrics":           true,
}

// placeActions are the sub-resources of /places/{id}.
var placeActions = map[string]bool{
	"maplink": true,
	"ask":     true,
}

// normalizePath maps a request path to its route pattern so place ids do not
// become metric labels. Unknown paths collapse to "other".
func normalizePath(path string) string {
	if staticRoutes[path] {
		return path
	}

	parts := strings.Split(strings.TrimPrefix(path, "/"), "/")
	for _, p := range parts {
		if p == "" {
			return "other"
		}
	}

	switch parts[0] {
	case "places":
		switch {
		case len(parts) == 2:
			return "/places/{id}"
		case len(parts) == 3 && placeActions[parts[2]]:
			return "/places/{id}/" + parts[2]
		}
	case "bookmarks":
		// The set name has two values, so it stays in the label.
		switch len(parts) {
		case 2:
			return "/bookmarks/" + boundedSet(parts[1])
		case 3:
			return "/bookmarks/" + boundedSet(parts[1]) + "/{place_id}"
		}
	}
	return "other"
}

func boundedSet(s string) string {
	switch s {
	case "favorites", "seeLater":
		return s
	}
	return "{set}"
}

// metricsResponseWriter wraps http.ResponseWriter to capture status code and response size.
type metricsResponseWriter struct {
	http.ResponseWriter
	statusCode  int
	size        int64
	wroteHeader bool
}

func (mrw *metricsResponseWriter) WriteHeader(code int) {
	if mrw.wroteHeader {
		return
	}
	mrw.statusCode = code
	mrw.wroteHeader = true
	mrw.ResponseWriter.WriteHeader(code)
}

func (mrw *metricsResponseWriter) Write(b []byte) (int, error) {
	mrw.wroteHeader = true
	n, err := mrw.ResponseWriter.Write(b)
	mrw.size += int64(n)
	return n, err
}

func (mrw *metricsResponseWriter) Unwrap() http.ResponseWriter {
	return mrw.ResponseWriter
}

func newMetricsResponseWriter(w http.ResponseWriter) *metricsResponseWriter {
	return &metricsResponseWriter{
		ResponseWriter: w,
		statusCode:     http.StatusOK,
	}
}

// HTTPMetrics is a middleware that records HTTP request metrics: duration,
// request/response sizes and counts by method, route and status.
// /health, /ready and /metrics are not recorded.
func HTTPMetrics(metrics *Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.URL.Path {
			case "/health", "/ready", "/metrics":
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()
			mrw := newMetricsResponseWriter(w)

			requestSize := r.ContentLength
			if requestSize < 0 {
				requestSize = 0
			}

			next.ServeHTTP(mrw, r)

			metrics.ObserveHTTPRequest(
				r.Method,
				normalizePath(r.URL.Path),
				strconv.Itoa(mrw.statusCode),
				time.Since(start).Seconds(),
				requestSize,
				mrw.size,
			)
		})
	}
}
