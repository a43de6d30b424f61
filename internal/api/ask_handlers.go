package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/onnwee/golocal/internal/assistant"
	"github.com/onnwee/golocal/internal/middleware"
	"github.com/onnwee/golocal/internal/place"
)

// maxAskBodyBytes bounds the ask request body; questions are short.
const maxAskBodyBytes = 4 << 10

// AskRequest is the body of POST /places/{id}/ask.
type AskRequest struct {
	Question string `json:"question"`
}

// AskResponse carries the answer text. Fallback is true when the AI endpoint
// could not answer and the fixed apology was returned instead.
type AskResponse struct {
	PlaceID  string `json:"place_id"`
	Answer   string `json:"answer"`
	Fallback bool   `json:"fallback"`
}

// AskHandlers answers free-form questions about a place.
type AskHandlers struct {
	catalog     *place.Catalog
	coordinator *assistant.Coordinator
	logger      *slog.Logger
}

// NewAskHandlers creates ask handlers. logger may be nil.
func NewAskHandlers(catalog *place.Catalog, coordinator *assistant.Coordinator, logger *slog.Logger) *AskHandlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &AskHandlers{catalog: catalog, coordinator: coordinator, logger: logger}
}

// Ask handles POST /places/{id}/ask.
//
// One question per device is in flight at a time: a newer question cancels
// the older one, which then answers 409 superseded.
func (h *AskHandlers) Ask(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	p, ok := h.catalog.Get(r.PathValue("id"))
	if !ok {
		writeCode(w, r, ErrCodeNotFound, "Place not found")
		return
	}

	var req AskRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxAskBodyBytes)).Decode(&req); err != nil {
		writeCode(w, r, ErrCodeBadRequest, "Invalid JSON in request body")
		return
	}
	question, err := assistant.ValidateQuestion(req.Question)
	if err != nil {
		writeCode(w, r, ErrCodeValidation, err.Error())
		return
	}

	answer, err := h.coordinator.Ask(ctx, askKey(ctx), assistant.ContextFor(p), question)
	switch {
	case errors.Is(err, assistant.ErrSuperseded):
		writeCode(w, r, ErrCodeSuperseded, "A newer question replaced this one")
		return
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		// The client went away; nobody is left to read a response.
		h.logger.DebugContext(ctx, "ask abandoned by client", slog.String("place_id", p.ID))
		return
	case err != nil:
		writeCode(w, r, ErrCodeValidation, err.Error())
		return
	}

	writeJSON(w, ctx, http.StatusOK, AskResponse{
		PlaceID:  p.ID,
		Answer:   answer.Text,
		Fallback: answer.Fallback,
	})
}

// askKey scopes supersession. Anonymous callers each get a server-generated
// key; the request id is client-controlled and cannot be trusted for this.
func askKey(ctx context.Context) string {
	if id := middleware.GetDeviceID(ctx); id != "" {
		return "device:" + id
	}
	return "anon:" + uuid.NewString()
}
