// Package bookmark implements the favorites and see-later id sets and the
// toggle operation that flips a place's membership in one of them.
package bookmark

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/onnwee/golocal/internal/prefs"
)

// SetName identifies one of the two independent bookmark sets.
type SetName string

const (
	Favorites SetName = "favorites"
	SeeLater  SetName = "seeLater"
)

// ErrUnknownSet is returned by ParseSetName for anything but the two sets.
var ErrUnknownSet = errors.New("unknown bookmark set")

// ParseSetName accepts the canonical names plus the URL-friendly "see-later".
func ParseSetName(s string) (SetName, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "favorites", "favoritos":
		return Favorites, nil
	case "seelater", "see-later", "see_later":
		return SeeLater, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownSet, s)
	}
}

// Key returns the preference key the set is stored under.
func (n SetName) Key() prefs.Key {
	if n == SeeLater {
		return prefs.KeySeeLater
	}
	return prefs.KeyFavorites
}

// Set is an insertion-ordered set of place ids. The zero value is empty.
// Sets are values: With and Without return new sets.
type Set struct {
	ids   []string
	index map[string]struct{}
}

// NewSet builds a set from ids, dropping blanks and repeats.
func NewSet(ids ...string) Set {
	s := Set{
		ids:   make([]string, 0, len(ids)),
		index: make(map[string]struct{}, len(ids)),
	}
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, dup := s.index[id]; dup {
			continue
		}
		s.index[id] = struct{}{}
		s.ids = append(s.ids, id)
	}
	return s
}

// Decode parses the stored JSON array form. An empty string is the empty set.
func Decode(raw string) (Set, error) {
	if strings.TrimSpace(raw) == "" {
		return NewSet(), nil
	}
	var ids []string
	if err := json.Unmarshal([]byte(raw), &ids); err != nil {
		return NewSet(), fmt.Errorf("failed to decode bookmark set: %w", err)
	}
	return NewSet(ids...), nil
}

// Encode returns the JSON array form, "[]" for the empty set.
func (s Set) Encode() string {
	ids := s.ids
	if ids == nil {
		ids = []string{}
	}
	data, _ := json.Marshal(ids)
	return string(data)
}

// Contains reports membership in O(1).
func (s Set) Contains(id string) bool {
	_, ok := s.index[id]
	return ok
}

// Len returns the number of ids.
func (s Set) Len() int {
	return len(s.ids)
}

// IDs returns the ids in insertion order.
func (s Set) IDs() []string {
	if s.ids == nil {
		return []string{}
	}
	return slices.Clone(s.ids)
}

// With returns a set with id appended. Adding a member is a no-op.
func (s Set) With(id string) Set {
	if s.Contains(id) {
		return s
	}
	return NewSet(append(slices.Clone(s.ids), id)...)
}

// Without returns a set with id removed, keeping the order of the rest.
func (s Set) Without(id string) Set {
	if !s.Contains(id) {
		return s
	}
	return NewSet(slices.DeleteFunc(slices.Clone(s.ids), func(v string) bool { return v == id })...)
}

// Equal reports whether both sets hold the same ids in the same order.
func (s Set) Equal(other Set) bool {
	return slices.Equal(s.ids, other.ids)
}
