package middleware

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/onnwee/golocal/internal/auth"
)

// DeviceIDHeader carries the device id when token auth is not configured.
const DeviceIDHeader = "X-Device-ID"

// TokenValidator validates device tokens. *auth.TokenService implements it.
type TokenValidator interface {
	Validate(token string) (*auth.Claims, error)
}

// DeviceIdentity resolves the calling device and stores its id in the context.
//
// With a validator, only "Authorization: Bearer <token>" is trusted and an
// invalid token is rejected with 401. Without one, the X-Device-ID header is
// accepted as-is after a format check. Requests without any identity pass
// through anonymously; handlers that need a device enforce that themselves.
func DeviceIdentity(validator TokenValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			if validator != nil {
				token, ok := bearerToken(r)
				if !ok {
					next.ServeHTTP(w, r)
					return
				}
				claims, err := validator.Validate(token)
				if err != nil {
					msg := "Invalid device token"
					if errors.Is(err, auth.ErrExpiredToken) {
						msg = "Device token has expired"
					}
					logger.DebugContext(ctx, "device token rejected", slog.String("error", err.Error()))
					SetErrorCode(ctx, "auth_failed")
					writeJSONError(w, http.StatusUnauthorized, "auth_failed", msg)
					return
				}
				next.ServeHTTP(w, r.WithContext(SetDeviceID(ctx, claims.DeviceID())))
				return
			}

			id := strings.TrimSpace(r.Header.Get(DeviceIDHeader))
			if id == "" {
				next.ServeHTTP(w, r)
				return
			}
			if !auth.ValidDeviceID(id) {
				SetErrorCode(ctx, "validation_error")
				writeJSONError(w, http.StatusBadRequest, "validation_error", "Malformed "+DeviceIDHeader+" header")
				return
			}
			next.ServeHTTP(w, r.WithContext(SetDeviceID(ctx, id)))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(h) <= len(prefix) || !strings.EqualFold(h[:len(prefix)], prefix) {
		return "", false
	}
	return strings.TrimSpace(h[len(prefix):]), true
}

// writeJSONError writes the API error envelope. The api package owns the
// canonical writer; middleware cannot import it.
func writeJSONError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]map[string]string{
		"error": {"code": code, "message": message},
	})
}
