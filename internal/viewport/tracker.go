package viewport

import (
	"errors"
	"fmt"
	"sync"

	"github.com/onnwee/golocal/internal/geo"
)

// Location request errors.
var (
	// ErrLocationUnavailable reports that the device could not supply a position.
	ErrLocationUnavailable = errors.New("location unavailable")
	// ErrStaleLocation reports a location result for a superseded request.
	ErrStaleLocation = errors.New("location request superseded")
)

// Ticket identifies one location request.
type Ticket uint64

// Tracker holds the last accepted viewport of one map and arbitrates location
// requests: only the result for the newest ticket may move the map.
// Safe for concurrent use.
type Tracker struct {
	calc *Calculator

	mu      sync.Mutex
	current Viewport
	latest  Ticket
}

// NewTracker starts a tracker at initial, or at the calculator fallback if
// initial is not a valid region.
func NewTracker(calc *Calculator, initial Viewport) *Tracker {
	if !initial.Valid() {
		initial = calc.Config().Fallback
	}
	return &Tracker{calc: calc, current: initial}
}

// Current returns the last accepted viewport.
func (t *Tracker) Current() Viewport {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.current
}

// Apply records a user-driven region change. Degenerate regions are rejected
// and the previous viewport is kept.
func (t *Tracker) Apply(region Viewport) (Viewport, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !region.Valid() {
		return t.current, fmt.Errorf("%w: center=(%v,%v) span=(%v,%v)", ErrInvalidRegion,
			region.CenterLat, region.CenterLng, region.LatSpan, region.LngSpan)
	}
	t.current = region
	return t.current, nil
}

// BeginLocate starts a location request, superseding any pending one.
func (t *Tracker) BeginLocate() Ticket {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.latest++
	return t.latest
}

// Located completes a location request. The map recentres on the user only
// when ticket is still the newest request.
func (t *Tracker) Located(ticket Ticket, user geo.Coordinate) (Viewport, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if ticket != t.latest {
		return t.current, ErrStaleLocation
	}
	next, err := t.calc.RecenterOnUser(user)
	if err != nil {
		return t.current, fmt.Errorf("%w: %w", ErrLocationUnavailable, err)
	}
	t.current = next
	return t.current, nil
}

// Unavailable completes a location request that failed. The viewport stays
// where it was.
func (t *Tracker) Unavailable(ticket Ticket) (Viewport, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if ticket != t.latest {
		return t.current, ErrStaleLocation
	}
	return t.current, nil
}

// Trackers keeps one Tracker per device, created lazily at the initial
// viewport.
type Trackers struct {
	calc    *Calculator
	initial Viewport

	mu       sync.Mutex
	trackers map[string]*Tracker
}

// NewTrackers creates an empty tracker registry.
func NewTrackers(calc *Calculator, initial Viewport) *Trackers {
	return &Trackers{
		calc:     calc,
		initial:  initial,
		trackers: make(map[string]*Tracker),
	}
}

// For returns the tracker of owner, creating it if needed.
func (r *Trackers) For(owner string) *Tracker {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.trackers[owner]
	if !ok {
		t = NewTracker(r.calc, r.initial)
		r.trackers[owner] = t
	}
	return t
}
