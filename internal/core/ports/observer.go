package ports

import "go.trai.ch/ember/internal/core/domain"

// StateObserver is the capability interface for application state that must
// survive a reload. Captured values are opaque to the engine; the observer
// that captured a value is the one asked to restore it.
type StateObserver interface {
	// ID identifies the observer. Must be unique among registered observers.
	ID() domain.StateID
	// Capture returns the observer's current state.
	Capture() (any, error)
	// Restore reinstates previously captured state.
	Restore(value any) error
}
