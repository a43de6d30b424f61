package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	openai "github.com/sashabaranov/go-openai"

	"github.com/onnwee/golocal/internal/assistant"
	"github.com/onnwee/golocal/internal/middleware"
)

// echoCompleter answers with the last user message so tests can check the
// place context reached the model.
type echoCompleter struct {
	mu   sync.Mutex
	last string
}

func (e *echoCompleter) CreateChatCompletion(_ context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	e.mu.Lock()
	e.last = req.Messages[len(req.Messages)-1].Content
	e.mu.Unlock()
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{{
			Message: openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: "Abre às 9h."},
		}},
	}, nil
}

func TestAsk_Answer(t *testing.T) {
	completer := &echoCompleter{}
	h := newTestServer(t, serverOptions{completer: completer})

	w := do(t, h, http.MethodPost, "/places/forte/ask", testDevice, `{"question":"Que horas abre?"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body: %s", w.Code, w.Body.String())
	}
	resp := decode[AskResponse](t, w)
	if resp.Answer != "Abre às 9h." || resp.Fallback || resp.PlaceID != "forte" {
		t.Errorf("response = %+v", resp)
	}

	completer.mu.Lock()
	defer completer.mu.Unlock()
	if !strings.Contains(completer.last, "Forte Itaipu") || !strings.Contains(completer.last, "Que horas abre?") {
		t.Errorf("prompt missing place or question: %q", completer.last)
	}
}

func TestAsk_FallbackWhenUnconfigured(t *testing.T) {
	h := newTestServer(t, serverOptions{})

	w := do(t, h, http.MethodPost, "/places/guarau/ask", "", `{"question":"Tem quiosque?"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	resp := decode[AskResponse](t, w)
	if !resp.Fallback || resp.Answer != assistant.FallbackText {
		t.Errorf("response = %+v, want fallback text", resp)
	}
}

func TestAsk_Errors(t *testing.T) {
	h := newTestServer(t, serverOptions{})

	tests := []struct {
		name       string
		target     string
		body       string
		wantStatus int
		wantCode   string
	}{
		{"unknown place", "/places/atlantis/ask", `{"question":"oi"}`, http.StatusNotFound, ErrCodeNotFound},
		{"blank question", "/places/forte/ask", `{"question":"   "}`, http.StatusBadRequest, ErrCodeValidation},
		{"question too long", "/places/forte/ask", `{"question":"` + strings.Repeat("x", assistant.MaxQuestionLength+1) + `"}`, http.StatusBadRequest, ErrCodeValidation},
		{"malformed body", "/places/forte/ask", `question`, http.StatusBadRequest, ErrCodeBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assertError(t, do(t, h, http.MethodPost, tt.target, testDevice, tt.body), tt.wantStatus, tt.wantCode)
		})
	}
}

func TestAskKey(t *testing.T) {
	ctx := middleware.SetDeviceID(context.Background(), "abc")
	if got := askKey(ctx); got != "device:abc" {
		t.Errorf("askKey(device) = %q, want device:abc", got)
	}
}

func TestAskKey_AnonymousIgnoresClientRequestID(t *testing.T) {
	var keys []string
	h := middleware.RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		keys = append(keys, askKey(r.Context()))
	}))

	for range 2 {
		req := httptest.NewRequest(http.MethodPost, "/places/forte/ask", nil)
		req.Header.Set(middleware.RequestIDHeader, "shared-id")
		h.ServeHTTP(httptest.NewRecorder(), req)
	}

	if len(keys) != 2 || keys[0] == keys[1] {
		t.Fatalf("anonymous keys = %v, want two distinct keys", keys)
	}
	for _, k := range keys {
		if strings.Contains(k, "shared-id") {
			t.Errorf("key %q derived from the client request id", k)
		}
	}
}
