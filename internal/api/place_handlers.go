package api

import (
	"errors"
	"net/http"

	"github.com/onnwee/golocal/internal/bookmark"
	"github.com/onnwee/golocal/internal/maplink"
	"github.com/onnwee/golocal/internal/middleware"
	"github.com/onnwee/golocal/internal/place"
	"github.com/onnwee/golocal/internal/query"
)

// PlaceResponse is a place as returned to clients. Bookmark flags are only
// present when the caller identified a device.
type PlaceResponse struct {
	place.Place
	IsFavorite *bool          `json:"is_favorite,omitempty"`
	IsSeeLater *bool          `json:"is_see_later,omitempty"`
	Links      *maplink.Links `json:"links,omitempty"`
}

// PlaceListResponse is the body of GET /places.
type PlaceListResponse struct {
	Places []PlaceResponse `json:"places"`
	Count  int             `json:"count"`
	// Degraded is set when bookmark flags could not be read.
	Degraded bool `json:"degraded,omitempty"`
}

// MapLinkResponse is the body of GET /places/{id}/maplink.
type MapLinkResponse struct {
	URL      string           `json:"url"`
	Platform maplink.Platform `json:"platform"`
	Mode     maplink.Mode     `json:"mode"`
}

// PlaceHandlers serves the read-only catalogue.
type PlaceHandlers struct {
	catalog *place.Catalog
	toggler *bookmark.Toggler
}

// NewPlaceHandlers creates place handlers. toggler may be nil, in which case
// places are never annotated with bookmark flags.
func NewPlaceHandlers(catalog *place.Catalog, toggler *bookmark.Toggler) *PlaceHandlers {
	return &PlaceHandlers{catalog: catalog, toggler: toggler}
}

// bookmarkFlags reads both sets for the calling device. ok is false for
// anonymous callers.
type bookmarkFlags struct {
	favorites bookmark.Set
	seeLater  bookmark.Set
	degraded  bool
	ok        bool
}

func (h *PlaceHandlers) flagsFor(r *http.Request) bookmarkFlags {
	owner := middleware.GetDeviceID(r.Context())
	if owner == "" || h.toggler == nil {
		return bookmarkFlags{}
	}
	fav := h.toggler.Load(r.Context(), owner, bookmark.Favorites)
	later := h.toggler.Load(r.Context(), owner, bookmark.SeeLater)
	return bookmarkFlags{
		favorites: bookmark.NewSet(fav.IDs...),
		seeLater:  bookmark.NewSet(later.IDs...),
		degraded:  fav.Degraded || later.Degraded,
		ok:        true,
	}
}

func (f bookmarkFlags) annotate(p place.Place) PlaceResponse {
	resp := PlaceResponse{Place: p}
	if f.ok {
		fav, later := f.favorites.Contains(p.ID), f.seeLater.Contains(p.ID)
		resp.IsFavorite, resp.IsSeeLater = &fav, &later
	}
	return resp
}

// ListPlaces handles GET /places?q=&filter=&sort=.
func (h *PlaceHandlers) ListPlaces(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()

	order, err := query.ParseSortOrder(params.Get("sort"))
	if err != nil {
		writeCode(w, r, ErrCodeValidation, "sort must be 'asc' or 'desc'")
		return
	}

	results := query.Query(h.catalog.All(), query.Criteria{
		SearchText: params.Get("q"),
		Filter:     query.ParseFilter(params.Get("filter")),
		Sort:       order,
	})

	flags := h.flagsFor(r)
	resp := PlaceListResponse{
		Places:   make([]PlaceResponse, 0, len(results)),
		Count:    len(results),
		Degraded: flags.degraded,
	}
	for _, p := range results {
		resp.Places = append(resp.Places, flags.annotate(p))
	}
	writeJSON(w, r.Context(), http.StatusOK, resp)
}

// Categories handles GET /places/categories.
func (h *PlaceHandlers) Categories(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r.Context(), http.StatusOK, map[string][]string{
		"categories": h.catalog.Categories(),
	})
}

// GetPlace handles GET /places/{id}. Map links for the platform given in
// ?platform= are included when the place is located.
func (h *PlaceHandlers) GetPlace(w http.ResponseWriter, r *http.Request) {
	p, ok := h.catalog.Get(r.PathValue("id"))
	if !ok {
		writeCode(w, r, ErrCodeNotFound, "Place not found")
		return
	}

	resp := h.flagsFor(r).annotate(p)
	resp.Links = maplink.LinksFor(p, maplink.ParsePlatform(r.URL.Query().Get("platform")))
	writeJSON(w, r.Context(), http.StatusOK, resp)
}

// MapLink handles GET /places/{id}/maplink?platform=&mode=.
func (h *PlaceHandlers) MapLink(w http.ResponseWriter, r *http.Request) {
	p, ok := h.catalog.Get(r.PathValue("id"))
	if !ok {
		writeCode(w, r, ErrCodeNotFound, "Place not found")
		return
	}

	params := r.URL.Query()
	mode, err := maplink.ParseMode(params.Get("mode"))
	if err != nil {
		writeCode(w, r, ErrCodeValidation, "mode must be 'view' or 'directions'")
		return
	}
	platform := maplink.ParsePlatform(params.Get("platform"))

	url, err := maplink.ForPlace(p, platform, mode)
	if errors.Is(err, maplink.ErrMissingLocation) {
		writeCode(w, r, ErrCodeMissingLocation, "Localização não disponível para este local")
		return
	}
	if err != nil {
		writeCode(w, r, ErrCodeInternal, "Could not build map link")
		return
	}

	writeJSON(w, r.Context(), http.StatusOK, MapLinkResponse{URL: url, Platform: platform, Mode: mode})
}
