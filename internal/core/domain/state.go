package domain

import "time"

// StateCategory is the closed set of known state kinds a snapshot can carry.
type StateCategory string

const (
	// StateUserPreferences covers user-facing settings.
	StateUserPreferences StateCategory = "user-preferences"
	// StateLifecycle covers application-lifecycle state.
	StateLifecycle StateCategory = "application-lifecycle"
	// StateCustom covers application-defined state.
	StateCustom StateCategory = "custom"
)

// StateID identifies a registered state observer.
type StateID struct {
	Category StateCategory
	Name     string
}

// StateSnapshot is a captured copy of observer state taken immediately before
// a patch, keyed by observer identifier. Values are opaque to the engine.
type StateSnapshot struct {
	// Values maps observer identifiers to their captured state.
	Values map[StateID]any
	// CapturedAt is when the snapshot was taken.
	CapturedAt time.Time
}
