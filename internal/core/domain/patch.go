package domain

import "time"

// PatchKind describes how a patch affects the indirection table.
type PatchKind string

const (
	// PatchReplace swaps an existing implementation for a new one.
	PatchReplace PatchKind = "replace"
	// PatchAdd installs an implementation for a previously unbound symbol.
	PatchAdd PatchKind = "add"
)

// PatchID identifies a single patchable entry: a symbol within a unit.
type PatchID struct {
	Unit   InternedString
	Symbol string
}

// ImplHandle is an opaque reference to a currently-active implementation.
// The concrete meaning is owned by the runtime adapter (a function pointer,
// a plugin symbol, a table slot).
type ImplHandle any

// PatchRecord is a reversible record of one applied code change.
//
// Identifiers are unique among active patches: applying a second patch to the
// same identifier replaces the active record while preserving the original
// handle captured by the first apply, so RevertAll restores the pre-reload
// implementation, not an intermediate one.
type PatchRecord struct {
	// ID identifies the patched unit and symbol.
	ID PatchID
	// Kind is replace or add.
	Kind PatchKind
	// Original is the implementation handle that was active before the patch.
	// Nil for PatchAdd. Used for revert.
	Original ImplHandle
	// AppliedAt is when the patch was committed.
	AppliedAt time.Time
}
