package middleware

import (
	"net/http"
	"strings"

	"github.com/rs/cors"
)

// CORSConfig holds the configuration for CORS middleware.
type CORSConfig struct {
	AllowedOrigins   []string // exact origins, no wildcards
	AllowedMethods   []string // defaults to DefaultCORSMethods
	AllowedHeaders   []string // defaults to DefaultCORSHeaders
	AllowCredentials bool
	MaxAge           int // preflight cache duration in seconds
}

// Defaults used when the config leaves methods or headers empty.
var (
	DefaultCORSMethods = []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete}
	DefaultCORSHeaders = []string{"Content-Type", "Authorization", RequestIDHeader, DeviceIDHeader}
)

// CORS lets the web client call the API from an explicit origin allowlist.
// Header negotiation is delegated to rs/cors; on top of it, requests from an
// origin outside the list are refused with 403 instead of being served
// without CORS headers. With no origins configured it is a pass-through.
func CORS(cfg CORSConfig) func(http.Handler) http.Handler {
	var origins []string
	for _, origin := range cfg.AllowedOrigins {
		if origin = strings.TrimSpace(origin); origin != "" {
			origins = append(origins, origin)
		}
	}
	if len(origins) == 0 {
		return func(next http.Handler) http.Handler { return next }
	}

	methods := cfg.AllowedMethods
	if len(methods) == 0 {
		methods = DefaultCORSMethods
	}
	headers := cfg.AllowedHeaders
	if len(headers) == 0 {
		headers = DefaultCORSHeaders
	}

	c := cors.New(cors.Options{
		AllowedOrigins:       origins,
		AllowedMethods:       methods,
		AllowedHeaders:       headers,
		ExposedHeaders:       []string{RequestIDHeader, "Retry-After"},
		AllowCredentials:     cfg.AllowCredentials,
		MaxAge:               cfg.MaxAge,
		OptionsSuccessStatus: http.StatusNoContent,
	})

	return func(next http.Handler) http.Handler {
		withCORS := c.Handler(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Origin") != "" && !c.OriginAllowed(r) {
				w.Header().Add("Vary", "Origin")
				SetErrorCode(r.Context(), "forbidden")
				writeJSONError(w, http.StatusForbidden, "forbidden", "Origin not allowed")
				return
			}
			withCORS.ServeHTTP(w, r)
		})
	}
}
