// Package place holds the read-only catalogue of points of interest and the
// loader that turns the bundled dataset into it.
package place

import (
	"slices"

	"github.com/onnwee/golocal/internal/geo"
)

// Place is a single point of interest. Places are immutable once loaded.
type Place struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Category    string          `json:"category"`
	IsFree      bool            `json:"is_free"`
	Images      []string        `json:"images"`
	Location    *geo.Coordinate `json:"location,omitempty"`

	// Geohash is derived from Location at load time; empty when unlocated.
	Geohash string `json:"geohash,omitempty"`

	// Display-only fields, passed through untouched.
	Hours      string   `json:"hours,omitempty"`
	Fee        string   `json:"fee,omitempty"`
	Difficulty string   `json:"difficulty,omitempty"`
	Tips       string   `json:"tips,omitempty"`
	Trivia     string   `json:"trivia,omitempty"`
	Keywords   []string `json:"keywords,omitempty"`
}

// HasLocation reports whether the place can be shown on a map.
func (p Place) HasLocation() bool {
	return p.Location != nil && p.Location.Valid()
}

// Clone returns a deep copy so callers cannot mutate catalogue state.
func (p Place) Clone() Place {
	out := p
	out.Images = slices.Clone(p.Images)
	out.Keywords = slices.Clone(p.Keywords)
	if p.Location != nil {
		loc := *p.Location
		out.Location = &loc
	}
	return out
}
