package prefs

import "fmt"

// PersistenceError reports a failed read or write of a preference. Callers
// surface it to the user and must not treat the attempted change as applied.
type PersistenceError struct {
	Op  string // "read" or "write"
	Key Key
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("preference %s %s failed: %v", e.Key, e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}
