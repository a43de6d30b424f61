package api

import (
	"errors"
	"math"
	"net/http"
	"net/url"
	"strconv"

	"github.com/onnwee/golocal/internal/geo"
	"github.com/onnwee/golocal/internal/middleware"
	"github.com/onnwee/golocal/internal/place"
	"github.com/onnwee/golocal/internal/query"
	"github.com/onnwee/golocal/internal/viewport"
)

// ViewportResponse is a map region with its marker size.
type ViewportResponse struct {
	Viewport viewport.Viewport `json:"viewport"`
	Tier     viewport.Tier     `json:"marker_size"`
	// LocationUnavailable is set when a recenter could not use the device
	// position and the map stayed where it was.
	LocationUnavailable bool `json:"location_unavailable,omitempty"`
}

// RecenterRequest is the body of POST /map/recenter: either a position or
// unavailable=true when the device could not obtain one.
type RecenterRequest struct {
	Lat         *float64 `json:"lat"`
	Lng         *float64 `json:"lng"`
	Unavailable bool     `json:"unavailable"`
}

// Marker is one pin on the map.
type Marker struct {
	ID       string         `json:"id"`
	Name     string         `json:"name"`
	Category string         `json:"category"`
	IsFree   bool           `json:"is_free"`
	Location geo.Coordinate `json:"location"`
	Geohash  string         `json:"geohash"`
	// DistanceKm is the great-circle distance from the request origin, set
	// only when the caller passed one.
	DistanceKm *float64 `json:"distance_km,omitempty"`
}

// MarkersResponse is the body of GET /map/markers.
type MarkersResponse struct {
	Markers []Marker `json:"markers"`
	Count   int      `json:"count"`
}

// MapHandlers serves map regions and markers. Each device has its own
// tracker; anonymous callers get a throwaway one at the initial viewport.
type MapHandlers struct {
	catalog  *place.Catalog
	calc     *viewport.Calculator
	initial  viewport.Viewport
	trackers *viewport.Trackers
}

// NewMapHandlers frames the catalogue once and creates the tracker registry.
func NewMapHandlers(catalog *place.Catalog, calc *viewport.Calculator) *MapHandlers {
	initial := calc.Initial(catalog.All())
	return &MapHandlers{
		catalog:  catalog,
		calc:     calc,
		initial:  initial,
		trackers: viewport.NewTrackers(calc, initial),
	}
}

func (h *MapHandlers) trackerFor(r *http.Request) *viewport.Tracker {
	if owner := middleware.GetDeviceID(r.Context()); owner != "" {
		return h.trackers.For(owner)
	}
	return viewport.NewTracker(h.calc, h.initial)
}

func viewportResponse(v viewport.Viewport) ViewportResponse {
	return ViewportResponse{Viewport: v, Tier: v.Tier()}
}

// Viewport handles GET /map/viewport.
func (h *MapHandlers) Viewport(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r.Context(), http.StatusOK, viewportResponse(h.trackerFor(r).Current()))
}

// Region handles POST /map/region. Degenerate regions are rejected and the
// previous viewport is kept.
func (h *MapHandlers) Region(w http.ResponseWriter, r *http.Request) {
	var region viewport.Viewport
	if !decodeBody(w, r, &region) {
		return
	}
	v, err := h.trackerFor(r).Apply(region)
	if errors.Is(err, viewport.ErrInvalidRegion) {
		writeCode(w, r, ErrCodeValidation, "Region must have a valid center and positive spans")
		return
	}
	writeJSON(w, r.Context(), http.StatusOK, viewportResponse(v))
}

// Recenter handles POST /map/recenter.
func (h *MapHandlers) Recenter(w http.ResponseWriter, r *http.Request) {
	var req RecenterRequest
	if !decodeBody(w, r, &req) {
		return
	}

	tracker := h.trackerFor(r)
	ticket := tracker.BeginLocate()

	if req.Unavailable {
		v, err := tracker.Unavailable(ticket)
		if errors.Is(err, viewport.ErrStaleLocation) {
			writeCode(w, r, ErrCodeSuperseded, "A newer location request replaced this one")
			return
		}
		resp := viewportResponse(v)
		resp.LocationUnavailable = true
		writeJSON(w, r.Context(), http.StatusOK, resp)
		return
	}

	if req.Lat == nil || req.Lng == nil {
		writeCode(w, r, ErrCodeValidation, "lat and lng are required unless unavailable is set")
		return
	}
	user := geo.Coordinate{Latitude: *req.Lat, Longitude: *req.Lng}
	if err := user.Validate(); err != nil {
		// Release the ticket so the map stays put.
		_, _ = tracker.Unavailable(ticket)
		writeCode(w, r, ErrCodeValidation, err.Error())
		return
	}

	v, err := tracker.Located(ticket, user)
	switch {
	case errors.Is(err, viewport.ErrStaleLocation):
		writeCode(w, r, ErrCodeSuperseded, "A newer location request replaced this one")
		return
	case err != nil:
		resp := viewportResponse(v)
		resp.LocationUnavailable = true
		writeJSON(w, r.Context(), http.StatusOK, resp)
		return
	}
	writeJSON(w, r.Context(), http.StatusOK, viewportResponse(v))
}

// Markers handles GET /map/markers?q=&filter=. Places without a location
// are never returned.
//
// An optional origin, either lat/lng or a geohash in near, adds distance_km
// to each marker. near is cut to DefaultPrecision so clients sharing a coarse
// cell get the same distances.
func (h *MapHandlers) Markers(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()
	origin, hasOrigin, err := markerOrigin(params)
	if err != nil {
		writeCode(w, r, ErrCodeValidation, err.Error())
		return
	}

	located := query.Query(h.catalog.WithLocation(), query.Criteria{
		SearchText: params.Get("q"),
		Filter:     query.ParseFilter(params.Get("filter")),
		Sort:       query.SortAsc,
	})

	resp := MarkersResponse{Markers: make([]Marker, 0, len(located)), Count: len(located)}
	for _, p := range located {
		m := Marker{
			ID:       p.ID,
			Name:     p.Name,
			Category: p.Category,
			IsFree:   p.IsFree,
			Location: *p.Location,
			Geohash:  p.Geohash,
		}
		if hasOrigin {
			km := math.Round(geo.DistanceKm(origin, *p.Location)*100) / 100
			m.DistanceKm = &km
		}
		resp.Markers = append(resp.Markers, m)
	}
	writeJSON(w, r.Context(), http.StatusOK, resp)
}

var (
	errOriginPair    = errors.New("lat and lng must be given together")
	errOriginGeohash = errors.New("near must be a geohash")
)

func markerOrigin(params url.Values) (geo.Coordinate, bool, error) {
	lat, lng, near := params.Get("lat"), params.Get("lng"), params.Get("near")

	switch {
	case lat != "" || lng != "":
		if lat == "" || lng == "" {
			return geo.Coordinate{}, false, errOriginPair
		}
		la, errLat := strconv.ParseFloat(lat, 64)
		ln, errLng := strconv.ParseFloat(lng, 64)
		if errLat != nil || errLng != nil {
			return geo.Coordinate{}, false, errOriginPair
		}
		c := geo.Coordinate{Latitude: la, Longitude: ln}
		if err := c.Validate(); err != nil {
			return geo.Coordinate{}, false, err
		}
		return c, true, nil

	case near != "":
		c, ok := geo.CellCenter(geo.RoundGeohash(near, geo.DefaultPrecision))
		if !ok {
			return geo.Coordinate{}, false, errOriginGeohash
		}
		return c, true, nil
	}
	return geo.Coordinate{}, false, nil
}
