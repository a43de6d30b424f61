// Package query implements the place list filter, text search and sort used by
// the explore and home screens.
//
// Query is pure: it never mutates its input and always returns a fresh slice.
package query

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/onnwee/golocal/internal/place"
)

// Filter selects places by price or category.
type Filter string

// Filter sentinels. Any other value is treated as a category name.
const (
	FilterAll  Filter = ""
	FilterFree Filter = "free"
	FilterPaid Filter = "paid"
)

// SortOrder is the direction of the name sort.
type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// ErrInvalidSortOrder is returned by ParseSortOrder for unknown values.
var ErrInvalidSortOrder = errors.New("sort order must be 'asc' or 'desc'")

// collationTag is the locale used for name ordering.
var collationTag = language.BrazilianPortuguese

// Criteria describes one query over the place list.
type Criteria struct {
	SearchText string
	Filter     Filter
	Sort       SortOrder
}

// ParseFilter maps client input onto a Filter. Portuguese sentinels from the
// mobile app ("gratuito", "pago", "todos") are accepted alongside the English ones.
func ParseFilter(s string) Filter {
	trimmed := strings.TrimSpace(s)
	switch strings.ToLower(trimmed) {
	case "", "all", "todos":
		return FilterAll
	case "free", "gratuito":
		return FilterFree
	case "paid", "pago":
		return FilterPaid
	default:
		return Filter(trimmed)
	}
}

// ParseSortOrder maps client input onto a SortOrder. Empty means ascending.
func ParseSortOrder(s string) (SortOrder, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "asc", "a-z":
		return SortAsc, nil
	case "desc", "z-a":
		return SortDesc, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidSortOrder, s)
	}
}

// Query filters by price/category, then by text, then sorts by name.
// The sort is stable, so places with equal names keep their relative order.
func Query(places []place.Place, c Criteria) []place.Place {
	fold := cases.Fold()

	out := make([]place.Place, 0, len(places))
	needle := fold.String(strings.TrimSpace(c.SearchText))

	for _, p := range places {
		if !matchesFilter(p, c.Filter) {
			continue
		}
		if needle != "" && !matchesText(p, needle, fold) {
			continue
		}
		out = append(out, p)
	}

	sortByName(out, c.Sort)
	return out
}

// matchesFilter compares category names exactly; "Histórico" and "histórico"
// are different categories.
func matchesFilter(p place.Place, f Filter) bool {
	switch f {
	case FilterAll:
		return true
	case FilterFree:
		return p.IsFree
	case FilterPaid:
		return !p.IsFree
	default:
		return p.Category == string(f)
	}
}

func matchesText(p place.Place, needle string, fold cases.Caser) bool {
	return strings.Contains(fold.String(p.Name), needle) ||
		strings.Contains(fold.String(p.Description), needle) ||
		strings.Contains(fold.String(p.Category), needle)
}

// sortByName orders places in place. A collator is built per call because
// collate.Collator is not safe for concurrent use.
func sortByName(places []place.Place, order SortOrder) {
	col := collate.New(collationTag)
	slices.SortStableFunc(places, func(a, b place.Place) int {
		cmp := col.CompareString(a.Name, b.Name)
		if order == SortDesc {
			return -cmp
		}
		return cmp
	})
}
