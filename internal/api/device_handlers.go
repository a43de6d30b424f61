package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/onnwee/golocal/internal/auth"
)

// DeviceResponse is the body of POST /devices. Token is omitted when the
// server runs without a signing secret; clients then send X-Device-ID.
type DeviceResponse struct {
	DeviceID  string     `json:"device_id"`
	Token     string     `json:"token,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// DeviceHandlers issues device identities.
type DeviceHandlers struct {
	tokens *auth.TokenService
	logger *slog.Logger
}

// NewDeviceHandlers creates device handlers. tokens may be nil.
func NewDeviceHandlers(tokens *auth.TokenService, logger *slog.Logger) *DeviceHandlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &DeviceHandlers{tokens: tokens, logger: logger}
}

// Register handles POST /devices.
func (h *DeviceHandlers) Register(w http.ResponseWriter, r *http.Request) {
	resp := DeviceResponse{DeviceID: auth.NewDeviceID()}

	if h.tokens != nil {
		token, err := h.tokens.Issue(resp.DeviceID)
		if err != nil {
			h.logger.ErrorContext(r.Context(), "failed to issue device token", slog.String("error", err.Error()))
			writeCode(w, r, ErrCodeInternal, "Could not issue device token")
			return
		}
		expires := time.Now().Add(auth.DeviceTokenExpiry).UTC().Truncate(time.Second)
		resp.Token = token
		resp.ExpiresAt = &expires
	}

	writeJSON(w, r.Context(), http.StatusCreated, resp)
}
