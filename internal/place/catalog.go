package place

import (
	"fmt"
	"strings"
)

// Catalog is the immutable, ordered set of places. Safe for concurrent use.
type Catalog struct {
	places []Place
	byID   map[string]int
}

// NewCatalog indexes places by id. The slice is copied.
func NewCatalog(places []Place) (*Catalog, error) {
	c := &Catalog{
		places: make([]Place, 0, len(places)),
		byID:   make(map[string]int, len(places)),
	}
	for _, p := range places {
		if p.ID == "" {
			return nil, ErrMissingID
		}
		if _, exists := c.byID[p.ID]; exists {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateID, p.ID)
		}
		c.byID[p.ID] = len(c.places)
		c.places = append(c.places, p.Clone())
	}
	return c, nil
}

// Len returns the number of places.
func (c *Catalog) Len() int {
	return len(c.places)
}

// All returns every place in dataset order.
func (c *Catalog) All() []Place {
	out := make([]Place, len(c.places))
	for i, p := range c.places {
		out[i] = p.Clone()
	}
	return out
}

// Get looks up a place by id.
func (c *Catalog) Get(id string) (Place, bool) {
	i, ok := c.byID[id]
	if !ok {
		return Place{}, false
	}
	return c.places[i].Clone(), true
}

// Has reports whether id exists without copying the place.
func (c *Catalog) Has(id string) bool {
	_, ok := c.byID[id]
	return ok
}

// Resolve maps ids to places, preserving the order of ids and skipping ids
// that are not in the catalogue.
func (c *Catalog) Resolve(ids []string) []Place {
	out := make([]Place, 0, len(ids))
	for _, id := range ids {
		if p, ok := c.Get(id); ok {
			out = append(out, p)
		}
	}
	return out
}

// WithLocation returns the places that can be drawn on a map.
func (c *Catalog) WithLocation() []Place {
	var out []Place
	for _, p := range c.places {
		if p.HasLocation() {
			out = append(out, p.Clone())
		}
	}
	return out
}

// Categories returns the distinct categories in first-seen order.
// Comparison ignores case; the first spelling encountered is kept.
func (c *Catalog) Categories() []string {
	seen := make(map[string]bool)
	var out []string
	for _, p := range c.places {
		key := strings.ToLower(strings.TrimSpace(p.Category))
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, p.Category)
	}
	return out
}
