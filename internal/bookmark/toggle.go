package bookmark

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/onnwee/golocal/internal/prefs"
)

// Outcome is the user-facing result of a toggle.
type Outcome string

const (
	Added   Outcome = "added"
	Removed Outcome = "removed"
)

// ErrEmptyPlaceID is returned when a toggle names no place.
var ErrEmptyPlaceID = errors.New("place id is required")

// Change is a planned toggle: the computed next state, not yet persisted.
type Change struct {
	Set     SetName
	PlaceID string
	Outcome Outcome
	Next    Set
}

// Plan computes the toggle of id in current without side effects.
// Present ids are removed; absent ids are appended.
func Plan(current Set, set SetName, id string) Change {
	if current.Contains(id) {
		return Change{Set: set, PlaceID: id, Outcome: Removed, Next: current.Without(id)}
	}
	return Change{Set: set, PlaceID: id, Outcome: Added, Next: current.With(id)}
}

// Result is a confirmed toggle.
type Result struct {
	Set     SetName  `json:"set"`
	PlaceID string   `json:"place_id"`
	Outcome Outcome  `json:"outcome"`
	IDs     []string `json:"ids"`
}

// View is a read of a set for display. Degraded is true when the store could
// not be read and the empty set was substituted.
type View struct {
	Set      SetName  `json:"set"`
	IDs      []string `json:"ids"`
	Degraded bool     `json:"degraded"`
}

// Toggler reads and writes bookmark sets through a preference store.
// Toggles on the same owner and set are serialized within the process.
type Toggler struct {
	store   prefs.Store
	logger  *slog.Logger
	metrics *Metrics
	locks   *keyedMutex
}

// NewToggler creates a Toggler. logger and metrics may be nil.
func NewToggler(store prefs.Store, logger *slog.Logger, metrics *Metrics) *Toggler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Toggler{
		store:   store,
		logger:  logger,
		metrics: metrics,
		locks:   newKeyedMutex(),
	}
}

// Read returns the persisted set. A missing key is the empty set. Content
// that does not parse is logged and treated as empty. A store failure is
// returned as a *prefs.PersistenceError.
func (t *Toggler) Read(ctx context.Context, owner string, set SetName) (Set, error) {
	raw, found, err := t.store.Get(ctx, owner, set.Key())
	if err != nil {
		t.metrics.incPersistenceError(set, "read")
		return Set{}, &prefs.PersistenceError{Op: "read", Key: set.Key(), Err: err}
	}
	if !found {
		return NewSet(), nil
	}
	s, err := Decode(raw)
	if err != nil {
		t.metrics.incCorrupt(set)
		t.logger.WarnContext(ctx, "bookmark set unparseable, treating as empty",
			"set", set, "owner", owner, "bytes", len(raw), "error", err)
		return NewSet(), nil
	}
	return s, nil
}

// Load reads a set for display, degrading to empty on store failure.
func (t *Toggler) Load(ctx context.Context, owner string, set SetName) View {
	s, err := t.Read(ctx, owner, set)
	if err != nil {
		t.logger.WarnContext(ctx, "bookmark set unavailable, showing empty", "set", set, "owner", owner, "error", err)
		return View{Set: set, IDs: []string{}, Degraded: true}
	}
	return View{Set: set, IDs: s.IDs()}
}

// Commit persists a planned change with exactly one store write.
func (t *Toggler) Commit(ctx context.Context, owner string, change Change) error {
	if err := t.store.Set(ctx, owner, change.Set.Key(), change.Next.Encode()); err != nil {
		t.metrics.incPersistenceError(change.Set, "write")
		return &prefs.PersistenceError{Op: "write", Key: change.Set.Key(), Err: err}
	}
	t.metrics.incToggle(change.Set, change.Outcome)
	return nil
}

// Toggle flips placeID's membership in set and persists the result.
//
// A read failure aborts before any write so unreadable state is never
// overwritten. On any error the caller must not treat the change as applied.
func (t *Toggler) Toggle(ctx context.Context, owner string, set SetName, placeID string) (Result, error) {
	if placeID == "" {
		return Result{}, ErrEmptyPlaceID
	}

	unlock := t.locks.Lock(owner + "\x00" + string(set))
	defer unlock()

	current, err := t.Read(ctx, owner, set)
	if err != nil {
		return Result{}, err
	}

	change := Plan(current, set, placeID)
	if err := t.Commit(ctx, owner, change); err != nil {
		t.logger.ErrorContext(ctx, "bookmark toggle not persisted",
			"set", set, "owner", owner, "place_id", placeID, "error", err)
		return Result{}, err
	}

	t.logger.DebugContext(ctx, "bookmark toggled",
		"set", set, "owner", owner, "place_id", placeID, "outcome", change.Outcome)

	return Result{
		Set:     set,
		PlaceID: placeID,
		Outcome: change.Outcome,
		IDs:     change.Next.IDs(),
	}, nil
}

// keyedMutex hands out one mutex per key and forgets keys nobody holds.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*refMutex
}

type refMutex struct {
	sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*refMutex)}
}

// Lock acquires the mutex for key and returns its release function.
func (k *keyedMutex) Lock(key string) func() {
	k.mu.Lock()
	m, ok := k.locks[key]
	if !ok {
		m = &refMutex{}
		k.locks[key] = m
	}
	m.refs++
	k.mu.Unlock()

	m.Lock()
	return func() {
		m.Unlock()
		k.mu.Lock()
		m.refs--
		if m.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
