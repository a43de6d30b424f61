package api

import (
	"errors"
	"net/http"

	"github.com/onnwee/golocal/internal/bookmark"
	"github.com/onnwee/golocal/internal/middleware"
	"github.com/onnwee/golocal/internal/place"
	"github.com/onnwee/golocal/internal/prefs"
)

// BookmarkListResponse is the body of GET /bookmarks/{set}. Places holds the
// ids that still resolve against the catalogue, in set order.
type BookmarkListResponse struct {
	Set      bookmark.SetName `json:"set"`
	IDs      []string         `json:"ids"`
	Places   []place.Place    `json:"places"`
	Degraded bool             `json:"degraded"`
}

// BookmarkHandlers exposes the favorites and see-later sets.
type BookmarkHandlers struct {
	catalog *place.Catalog
	toggler *bookmark.Toggler
}

// NewBookmarkHandlers creates bookmark handlers.
func NewBookmarkHandlers(catalog *place.Catalog, toggler *bookmark.Toggler) *BookmarkHandlers {
	return &BookmarkHandlers{catalog: catalog, toggler: toggler}
}

// requireDevice returns the calling device id, or writes 401 and returns false.
func requireDevice(w http.ResponseWriter, r *http.Request) (string, bool) {
	owner := middleware.GetDeviceID(r.Context())
	if owner == "" {
		writeCode(w, r, ErrCodeAuthFailed, "Device identity required")
		return "", false
	}
	return owner, true
}

func parseSet(w http.ResponseWriter, r *http.Request) (bookmark.SetName, bool) {
	set, err := bookmark.ParseSetName(r.PathValue("set"))
	if err != nil {
		writeCode(w, r, ErrCodeNotFound, "Unknown bookmark set")
		return "", false
	}
	return set, true
}

// List handles GET /bookmarks/{set}. A store read failure is not an error:
// the set is shown empty with degraded=true.
func (h *BookmarkHandlers) List(w http.ResponseWriter, r *http.Request) {
	owner, ok := requireDevice(w, r)
	if !ok {
		return
	}
	set, ok := parseSet(w, r)
	if !ok {
		return
	}

	view := h.toggler.Load(r.Context(), owner, set)
	writeJSON(w, r.Context(), http.StatusOK, BookmarkListResponse{
		Set:      view.Set,
		IDs:      view.IDs,
		Places:   h.catalog.Resolve(view.IDs),
		Degraded: view.Degraded,
	})
}

// Toggle handles POST /bookmarks/{set}/{placeID}.
func (h *BookmarkHandlers) Toggle(w http.ResponseWriter, r *http.Request) {
	owner, ok := requireDevice(w, r)
	if !ok {
		return
	}
	set, ok := parseSet(w, r)
	if !ok {
		return
	}

	placeID := r.PathValue("placeID")
	if !h.catalog.Has(placeID) {
		writeCode(w, r, ErrCodeNotFound, "Place not found")
		return
	}

	result, err := h.toggler.Toggle(r.Context(), owner, set, placeID)
	if err != nil {
		var perr *prefs.PersistenceError
		if errors.As(err, &perr) {
			writeCode(w, r, ErrCodePersistence, "Não foi possível salvar. Tente novamente.")
			return
		}
		writeCode(w, r, ErrCodeInternal, "Bookmark toggle failed")
		return
	}

	writeJSON(w, r.Context(), http.StatusOK, result)
}
