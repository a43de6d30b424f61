package api

import (
	"net/http"
)

// Handlers groups every handler set the router mounts. Nil groups are not
// mounted.
type Handlers struct {
	Places    *PlaceHandlers
	Ask       *AskHandlers
	Bookmarks *BookmarkHandlers
	Profile   *ProfileHandlers
	Map       *MapHandlers
	Devices   *DeviceHandlers
	Health    *HealthHandlers
}

// RouterOptions carries the pieces built outside this package.
type RouterOptions struct {
	// AskLimiter wraps POST /places/{id}/ask with its own, tighter limit.
	AskLimiter func(http.Handler) http.Handler
	// Metrics serves GET /metrics, typically promhttp.HandlerFor.
	Metrics http.Handler
	// Version is reported at GET /.
	Version string
}

// NewRouter registers every route on a ServeMux using method patterns.
func NewRouter(h Handlers, opts RouterOptions) *http.ServeMux {
	mux := http.NewServeMux()

	if h.Places != nil {
		mux.HandleFunc("GET /places", h.Places.ListPlaces)
		mux.HandleFunc("GET /places/categories", h.Places.Categories)
		mux.HandleFunc("GET /places/{id}", h.Places.GetPlace)
		mux.HandleFunc("GET /places/{id}/maplink", h.Places.MapLink)
	}

	if h.Ask != nil {
		var ask http.Handler = http.HandlerFunc(h.Ask.Ask)
		if opts.AskLimiter != nil {
			ask = opts.AskLimiter(ask)
		}
		mux.Handle("POST /places/{id}/ask", ask)
	}

	if h.Bookmarks != nil {
		mux.HandleFunc("GET /bookmarks/{set}", h.Bookmarks.List)
		mux.HandleFunc("POST /bookmarks/{set}/{placeID}", h.Bookmarks.Toggle)
	}

	if h.Profile != nil {
		mux.HandleFunc("GET /profile", h.Profile.Get)
		mux.HandleFunc("PUT /profile/name", h.Profile.UpdateName)
		mux.HandleFunc("PUT /profile/photo", h.Profile.UpdatePhoto)
		mux.HandleFunc("DELETE /profile/photo", h.Profile.DeletePhoto)
		mux.HandleFunc("PUT /profile/dark-mode", h.Profile.UpdateDarkMode)
	}

	if h.Map != nil {
		mux.HandleFunc("GET /map/viewport", h.Map.Viewport)
		mux.HandleFunc("POST /map/recenter", h.Map.Recenter)
		mux.HandleFunc("POST /map/region", h.Map.Region)
		mux.HandleFunc("GET /map/markers", h.Map.Markers)
	}

	if h.Devices != nil {
		mux.HandleFunc("POST /devices", h.Devices.Register)
	}

	if h.Health != nil {
		mux.HandleFunc("GET /health", h.Health.Health)
		mux.HandleFunc("GET /ready", h.Health.Ready)
	}
	if opts.Metrics != nil {
		mux.Handle("GET /metrics", opts.Metrics)
	}

	version := opts.Version
	if version == "" {
		version = "dev"
	}
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, r.Context(), http.StatusOK, map[string]string{"service": "golocal-api", "version": version})
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		writeCode(w, r, ErrCodeNotFound, "The requested resource was not found")
	})

	return mux
}
