package ports

import "go.trai.ch/ember/internal/core/domain"

// Runtime is the indirection table mapping stable identifiers to the
// currently-active implementation of each patchable symbol.
//
// Applying a patch updates a table entry; reverting restores the previous
// handle. Concrete strategies (in-process table, dynamic-library re-binding,
// supervised restart) live behind this port; the engine only sees handles.
type Runtime interface {
	// Resolve returns the active implementation for the identifier, if bound.
	Resolve(id domain.PatchID) (domain.ImplHandle, bool)
	// CanBind reports whether an unbound identifier could be installed as a
	// new binding. Strategy-specific: an in-process table admits any
	// identifier, a symbol-rebinding strategy requires the symbol to exist
	// in the reloaded artifact.
	CanBind(id domain.PatchID) bool
	// Bind installs the implementation for the identifier, returning the
	// previously bound handle if there was one.
	Bind(id domain.PatchID, impl domain.ImplHandle) (domain.ImplHandle, bool)
	// Unbind removes the binding for the identifier.
	Unbind(id domain.PatchID)
}
