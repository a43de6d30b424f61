package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/onnwee/golocal/internal/assistant"
	"github.com/onnwee/golocal/internal/bookmark"
	"github.com/onnwee/golocal/internal/health"
	"github.com/onnwee/golocal/internal/middleware"
	"github.com/onnwee/golocal/internal/place"
	"github.com/onnwee/golocal/internal/prefs"
	"github.com/onnwee/golocal/internal/profile"
	"github.com/onnwee/golocal/internal/viewport"
)

const testDataset = `[
  {"id": "forte", "nome": "Forte Itaipu", "descricao": "Fortaleza histórica na ponta da praia",
   "tipo": "histórico", "gratuito": false, "imagem": "forte.jpg",
   "localizacao": {"latitude": -24.20, "longitude": -46.80}},
  {"id": "guarau", "nome": "Praia do Guaraú", "descricao": "Praia tranquila de águas calmas",
   "tipo": "praia", "gratuito": true, "imagens": ["guarau-1.jpg", "guarau-2.jpg"],
   "localizacao": {"latitude": -24.37, "longitude": -47.01}},
  {"id": "mirante", "nome": "Mirante do Morro", "descricao": "Vista da cidade inteira",
   "tipo": "Mirante", "gratuito": true}
]`

const testDevice = "device-test-1"

var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

func testCatalog(t *testing.T) *place.Catalog {
	t.Helper()
	catalog, err := place.Load(strings.NewReader(testDataset), discardLogger)
	if err != nil {
		t.Fatalf("load test dataset: %v", err)
	}
	return catalog
}

// failingStore fails every call; used for persistence error paths.
type failingStore struct{}

var errStoreDown = errors.New("store down")

func (failingStore) Get(context.Context, string, prefs.Key) (string, bool, error) {
	return "", false, errStoreDown
}

func (failingStore) Set(context.Context, string, prefs.Key, string) error {
	return errStoreDown
}

type serverOptions struct {
	store     prefs.Store
	completer assistant.Completer
	deps      []health.Dependency
}

// newTestServer wires every handler group behind device identity in header
// mode, the same order the API binary uses.
func newTestServer(t *testing.T, opts serverOptions) http.Handler {
	t.Helper()
	if opts.store == nil {
		opts.store = prefs.NewInMemoryStore()
	}
	catalog := testCatalog(t)
	toggler := bookmark.NewToggler(opts.store, discardLogger, nil)
	service := assistant.NewService(opts.completer, assistant.Config{}, discardLogger, nil)

	mux := NewRouter(Handlers{
		Places:    NewPlaceHandlers(catalog, toggler),
		Ask:       NewAskHandlers(catalog, assistant.NewCoordinator(service, nil), discardLogger),
		Bookmarks: NewBookmarkHandlers(catalog, toggler),
		Profile:   NewProfileHandlers(profile.NewService(opts.store, discardLogger)),
		Map:       NewMapHandlers(catalog, viewport.NewCalculator(viewport.DefaultConfig())),
		Devices:   NewDeviceHandlers(nil, discardLogger),
		Health:    NewHealthHandlers(opts.deps, 0, discardLogger),
	}, RouterOptions{Version: "test"})

	return middleware.RequestID(middleware.DeviceIdentity(nil, discardLogger)(mux))
}

// do performs a request; device may be empty for anonymous calls.
func do(t *testing.T, h http.Handler, method, target, device, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if device != "" {
		req.Header.Set(middleware.DeviceIDHeader, device)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("failed to parse response: %v, body: %s", err, w.Body.String())
	}
	return v
}

func assertError(t *testing.T, w *httptest.ResponseRecorder, wantStatus int, wantCode string) {
	t.Helper()
	if w.Code != wantStatus {
		t.Fatalf("status = %d, want %d, body: %s", w.Code, wantStatus, w.Body.String())
	}
	resp := decode[ErrorResponse](t, w)
	if resp.Error.Code != wantCode {
		t.Errorf("error code = %s, want %s", resp.Error.Code, wantCode)
	}
}

func TestRouter_UnknownPath(t *testing.T) {
	h := newTestServer(t, serverOptions{})
	assertError(t, do(t, h, http.MethodGet, "/nope", "", ""), http.StatusNotFound, ErrCodeNotFound)
}

func TestRouter_Root(t *testing.T) {
	h := newTestServer(t, serverOptions{})
	w := do(t, h, http.MethodGet, "/", "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if body := decode[map[string]string](t, w); body["version"] != "test" {
		t.Errorf("version = %q, want test", body["version"])
	}
}

func TestRouter_MalformedDeviceHeader(t *testing.T) {
	h := newTestServer(t, serverOptions{})
	assertError(t, do(t, h, http.MethodGet, "/profile", "bad device!", ""), http.StatusBadRequest, ErrCodeValidation)
}

func TestRouter_AskLimiterWrapsOnlyAsk(t *testing.T) {
	catalog := testCatalog(t)
	service := assistant.NewService(nil, assistant.Config{}, discardLogger, nil)

	blocked := 0
	limiter := func(http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			blocked++
			WriteError(w, r.Context(), http.StatusTooManyRequests, ErrCodeRateLimited, "slow down")
		})
	}
	mux := NewRouter(Handlers{
		Places: NewPlaceHandlers(catalog, nil),
		Ask:    NewAskHandlers(catalog, assistant.NewCoordinator(service, nil), discardLogger),
	}, RouterOptions{AskLimiter: limiter})

	assertError(t, do(t, mux, http.MethodPost, "/places/forte/ask", "", `{"question":"oi"}`), http.StatusTooManyRequests, ErrCodeRateLimited)
	if w := do(t, mux, http.MethodGet, "/places", "", ""); w.Code != http.StatusOK {
		t.Errorf("GET /places status = %d, want 200", w.Code)
	}
	if blocked != 1 {
		t.Errorf("limiter invoked %d times, want 1", blocked)
	}
}

func TestRouter_AskBudgetIndependentOfBrowsing(t *testing.T) {
	catalog := testCatalog(t)
	service := assistant.NewService(nil, assistant.Config{}, discardLogger, nil)
	store := middleware.NewInMemoryRateLimitStore()

	mux := NewRouter(Handlers{
		Places: NewPlaceHandlers(catalog, nil),
		Ask:    NewAskHandlers(catalog, assistant.NewCoordinator(service, nil), discardLogger),
	}, RouterOptions{
		AskLimiter: middleware.RateLimiter(store, middleware.DefaultAskLimit(), middleware.DeviceKeyFunc(), nil, discardLogger),
	})
	var h http.Handler = middleware.RateLimiter(store, middleware.DefaultGlobalLimit(), middleware.DeviceKeyFunc(), nil, discardLogger)(mux)
	h = middleware.RequestID(middleware.DeviceIdentity(nil, discardLogger)(h))

	for i := 0; i < middleware.DefaultAskLimit().RequestsPerWindow; i++ {
		if w := do(t, h, http.MethodGet, "/places", "dev-1", ""); w.Code != http.StatusOK {
			t.Fatalf("list %d: status %d", i+1, w.Code)
		}
	}
	if w := do(t, h, http.MethodPost, "/places/forte/ask", "dev-1", `{"question":"Abre cedo?"}`); w.Code != http.StatusOK {
		t.Fatalf("first ask after browsing: status %d, body %s", w.Code, w.Body.String())
	}
}
