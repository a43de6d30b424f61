// Package maplink builds external map URLs for "view on map" and
// "how to get there" actions.
package maplink

import (
	"errors"
	"fmt"
	"strings"

	"github.com/onnwee/golocal/internal/geo"
	"github.com/onnwee/golocal/internal/place"
)

// Platform is the client family the link will be opened on.
type Platform string

const (
	PlatformIOS     Platform = "ios"
	PlatformAndroid Platform = "android"
	PlatformWeb     Platform = "web"
)

// Mode selects the kind of link.
type Mode string

const (
	ModeView       Mode = "view"
	ModeDirections Mode = "directions"
)

// URL bases. Apple Maps only opens natively on iOS; every other platform
// gets a Google Maps universal link.
const (
	appleMapsBase        = "http://maps.apple.com/"
	googleSearchBase     = "https://www.google.com/maps/search/"
	googleDirectionsBase = "https://www.google.com/maps/dir/"
)

// Errors.
var (
	ErrMissingLocation = errors.New("location not available for this place")
	ErrUnknownMode     = errors.New("map link mode must be 'view' or 'directions'")
)

// ParsePlatform maps client input onto a Platform. Anything unrecognised is
// treated as web.
func ParsePlatform(s string) Platform {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "ios", "iphone", "ipad", "ipados":
		return PlatformIOS
	case "android":
		return PlatformAndroid
	default:
		return PlatformWeb
	}
}

// ParseMode maps client input onto a Mode. Empty means view.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "view":
		return ModeView, nil
	case "directions", "route":
		return ModeDirections, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownMode, s)
	}
}

// Build returns the link for loc. A nil or invalid location yields
// ErrMissingLocation and no URL.
func Build(platform Platform, mode Mode, loc *geo.Coordinate) (string, error) {
	if loc == nil || !loc.Valid() {
		return "", ErrMissingLocation
	}
	ll := loc.String()

	switch mode {
	case ModeView:
		if platform == PlatformIOS {
			return appleMapsBase + "?ll=" + ll, nil
		}
		return googleSearchBase + "?api=1&query=" + ll, nil
	case ModeDirections:
		if platform == PlatformIOS {
			return appleMapsBase + "?daddr=" + ll, nil
		}
		return googleDirectionsBase + "?api=1&destination=" + ll, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownMode, mode)
	}
}

// ForPlace builds the link for a place.
func ForPlace(p place.Place, platform Platform, mode Mode) (string, error) {
	return Build(platform, mode, p.Location)
}

// Links holds both links of a located place.
type Links struct {
	View       string `json:"view"`
	Directions string `json:"directions"`
}

// LinksFor returns both links, or nil when the place has no location.
func LinksFor(p place.Place, platform Platform) *Links {
	view, err := ForPlace(p, platform, ModeView)
	if err != nil {
		return nil
	}
	directions, err := ForPlace(p, platform, ModeDirections)
	if err != nil {
		return nil
	}
	return &Links{View: view, Directions: directions}
}
