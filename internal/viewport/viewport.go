// Package viewport computes map regions: the initial region framing every
// located place, the region centred on the user, and the marker size for a
// given zoom.
package viewport

import (
	"errors"
	"math"

	"github.com/paulmach/orb"

	"github.com/onnwee/golocal/internal/geo"
	"github.com/onnwee/golocal/internal/place"
)

// Tier is the marker pin size in pixels.
type Tier int

// Marker tiers from most zoomed in to most zoomed out.
const (
	TierLarge  Tier = 48
	TierMedium Tier = 40
	TierSmall  Tier = 32
	TierTiny   Tier = 24
)

// Span thresholds for the marker tiers, in degrees of latitude.
const (
	largeTierMaxSpan  = 0.1
	mediumTierMaxSpan = 0.2
	smallTierMaxSpan  = 0.4
)

// ErrInvalidRegion is returned for regions with non-finite values or
// non-positive spans.
var ErrInvalidRegion = errors.New("invalid map region")

// Viewport is a visible map region.
type Viewport struct {
	CenterLat float64 `json:"center_lat"`
	CenterLng float64 `json:"center_lng"`
	LatSpan   float64 `json:"lat_span"`
	LngSpan   float64 `json:"lng_span"`
}

// Center returns the region center as a coordinate.
func (v Viewport) Center() geo.Coordinate {
	return geo.Coordinate{Latitude: v.CenterLat, Longitude: v.CenterLng}
}

// Valid reports whether the region can be shown: a valid center and finite,
// positive spans.
func (v Viewport) Valid() bool {
	if !v.Center().Valid() {
		return false
	}
	for _, s := range []float64{v.LatSpan, v.LngSpan} {
		if math.IsNaN(s) || math.IsInf(s, 0) || s <= 0 {
			return false
		}
	}
	return true
}

// Tier returns the marker tier for the region's latitude span.
func (v Viewport) Tier() Tier {
	return MarkerSizeTier(v.LatSpan)
}

// MarkerSizeTier maps a latitude span to a pin size. Smaller spans (more
// zoomed in) get larger pins. Non-finite or non-positive spans get the
// smallest pin.
func MarkerSizeTier(latSpan float64) Tier {
	switch {
	case math.IsNaN(latSpan) || math.IsInf(latSpan, 0) || latSpan <= 0:
		return TierTiny
	case latSpan < largeTierMaxSpan:
		return TierLarge
	case latSpan < mediumTierMaxSpan:
		return TierMedium
	case latSpan < smallTierMaxSpan:
		return TierSmall
	default:
		return TierTiny
	}
}

// Config holds the calculator constants.
type Config struct {
	// MinSpan is the floor for both spans of the initial region.
	MinSpan float64
	// Padding multiplies the bounding box extent.
	Padding float64
	// UserSpan is the span used when centring on the user.
	UserSpan float64
	// Fallback is returned when no place has a usable location.
	Fallback Viewport
}

// DefaultConfig frames Peruíbe, SP when the dataset has no coordinates.
func DefaultConfig() Config {
	return Config{
		MinSpan:  0.08,
		Padding:  1.5,
		UserSpan: 0.18,
		Fallback: Viewport{
			CenterLat: -24.32,
			CenterLng: -47.00,
			LatSpan:   0.8,
			LngSpan:   0.8,
		},
	}
}

// Calculator computes viewports from places and coordinates.
type Calculator struct {
	cfg Config
}

// NewCalculator creates a calculator. Zero or invalid config fields are
// replaced by DefaultConfig values.
func NewCalculator(cfg Config) *Calculator {
	def := DefaultConfig()
	if !(cfg.MinSpan > 0) {
		cfg.MinSpan = def.MinSpan
	}
	if !(cfg.Padding > 0) {
		cfg.Padding = def.Padding
	}
	if !(cfg.UserSpan > 0) {
		cfg.UserSpan = def.UserSpan
	}
	if !cfg.Fallback.Valid() {
		cfg.Fallback = def.Fallback
	}
	return &Calculator{cfg: cfg}
}

// Config returns the effective configuration.
func (c *Calculator) Config() Config {
	return c.cfg
}

// Initial frames every place with a valid location. The center is the
// bounding box midpoint and each span is max(MinSpan, extent*Padding).
// With no located places the configured fallback is returned.
func (c *Calculator) Initial(places []place.Place) Viewport {
	var points orb.MultiPoint
	for _, p := range places {
		if p.HasLocation() {
			points = append(points, orb.Point{p.Location.Longitude, p.Location.Latitude})
		}
	}
	if len(points) == 0 {
		return c.cfg.Fallback
	}

	bound := points.Bound()
	center := bound.Center()
	return Viewport{
		CenterLat: center.Lat(),
		CenterLng: center.Lon(),
		LatSpan:   math.Max(c.cfg.MinSpan, (bound.Top()-bound.Bottom())*c.cfg.Padding),
		LngSpan:   math.Max(c.cfg.MinSpan, (bound.Right()-bound.Left())*c.cfg.Padding),
	}
}

// RecenterOnUser returns a tight region around the user's coordinate. It
// does not look at the dataset.
func (c *Calculator) RecenterOnUser(user geo.Coordinate) (Viewport, error) {
	if err := user.Validate(); err != nil {
		return Viewport{}, err
	}
	return Viewport{
		CenterLat: user.Latitude,
		CenterLng: user.Longitude,
		LatSpan:   c.cfg.UserSpan,
		LngSpan:   c.cfg.UserSpan,
	}, nil
}
