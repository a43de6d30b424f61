package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/onnwee/golocal/internal/prefs"
	"github.com/onnwee/golocal/internal/profile"
)

const maxProfileBodyBytes = 8 << 10

// UpdateNameRequest is the body of PUT /profile/name.
type UpdateNameRequest struct {
	Name string `json:"name"`
}

// UpdatePhotoRequest is the body of PUT /profile/photo.
type UpdatePhotoRequest struct {
	Ref string `json:"ref"`
}

// UpdateDarkModeRequest is the body of PUT /profile/dark-mode.
type UpdateDarkModeRequest struct {
	Enabled *bool `json:"enabled"`
}

// ProfileHandlers serves the per-device profile.
type ProfileHandlers struct {
	service *profile.Service
}

// NewProfileHandlers creates profile handlers.
func NewProfileHandlers(service *profile.Service) *ProfileHandlers {
	return &ProfileHandlers{service: service}
}

// Get handles GET /profile.
func (h *ProfileHandlers) Get(w http.ResponseWriter, r *http.Request) {
	owner, ok := requireDevice(w, r)
	if !ok {
		return
	}
	writeJSON(w, r.Context(), http.StatusOK, h.service.Load(r.Context(), owner))
}

// UpdateName handles PUT /profile/name. A blank name resets to the default.
func (h *ProfileHandlers) UpdateName(w http.ResponseWriter, r *http.Request) {
	owner, ok := requireDevice(w, r)
	if !ok {
		return
	}
	var req UpdateNameRequest
	if !decodeBody(w, r, &req) {
		return
	}
	p, err := h.service.SetDisplayName(r.Context(), owner, req.Name)
	h.respond(w, r, p, err)
}

// UpdatePhoto handles PUT /profile/photo.
func (h *ProfileHandlers) UpdatePhoto(w http.ResponseWriter, r *http.Request) {
	owner, ok := requireDevice(w, r)
	if !ok {
		return
	}
	var req UpdatePhotoRequest
	if !decodeBody(w, r, &req) {
		return
	}
	p, err := h.service.SetAvatar(r.Context(), owner, req.Ref)
	h.respond(w, r, p, err)
}

// DeletePhoto handles DELETE /profile/photo.
func (h *ProfileHandlers) DeletePhoto(w http.ResponseWriter, r *http.Request) {
	owner, ok := requireDevice(w, r)
	if !ok {
		return
	}
	p, err := h.service.ClearAvatar(r.Context(), owner)
	h.respond(w, r, p, err)
}

// UpdateDarkMode handles PUT /profile/dark-mode.
func (h *ProfileHandlers) UpdateDarkMode(w http.ResponseWriter, r *http.Request) {
	owner, ok := requireDevice(w, r)
	if !ok {
		return
	}
	var req UpdateDarkModeRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Enabled == nil {
		writeCode(w, r, ErrCodeValidation, "enabled is required")
		return
	}
	p, err := h.service.SetDarkMode(r.Context(), owner, *req.Enabled)
	h.respond(w, r, p, err)
}

func (h *ProfileHandlers) respond(w http.ResponseWriter, r *http.Request, p profile.Profile, err error) {
	var perr *prefs.PersistenceError
	switch {
	case err == nil:
		writeJSON(w, r.Context(), http.StatusOK, p)
	case errors.Is(err, profile.ErrDisplayNameTooLong), errors.Is(err, profile.ErrEmptyAvatar):
		writeCode(w, r, ErrCodeValidation, err.Error())
	case errors.As(err, &perr):
		writeCode(w, r, ErrCodePersistence, "Não foi possível salvar. Tente novamente.")
	default:
		writeCode(w, r, ErrCodeInternal, "Profile update failed")
	}
}

// decodeBody decodes a bounded JSON body into v, writing 400 on failure.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxProfileBodyBytes)).Decode(v); err != nil {
		writeCode(w, r, ErrCodeBadRequest, "Invalid JSON in request body")
		return false
	}
	return true
}
