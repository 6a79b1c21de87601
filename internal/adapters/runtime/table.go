// Package runtime provides the in-process indirection table strategy for
// code-unit replacement.
//
// True zero-downtime in-place patching requires platform support for dynamic
// symbol resolution. The table models the mechanism abstractly: a stable
// identifier maps to the currently-active implementation handle, and applying
// a patch swaps the entry. Native strategies (dynamic-library re-binding,
// supervised restart with state transfer) plug in behind the same port.
package runtime

import (
	"sync"

	"go.trai.ch/ember/internal/core/domain"
	"go.trai.ch/ember/internal/core/ports"
)

var _ ports.Runtime = (*Table)(nil)

// Table is a mutex-guarded indirection table from patch identifiers to
// implementation handles.
type Table struct {
	mu       sync.RWMutex
	bindings map[domain.PatchID]domain.ImplHandle
}

// NewTable creates a new empty indirection table.
func NewTable() *Table {
	return &Table{
		bindings: make(map[domain.PatchID]domain.ImplHandle),
	}
}

// Resolve returns the active implementation for the identifier, if bound.
func (t *Table) Resolve(id domain.PatchID) (domain.ImplHandle, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	impl, ok := t.bindings[id]
	return impl, ok
}

// CanBind reports whether the identifier could be installed as a new binding.
// The in-process table admits any identifier.
func (t *Table) CanBind(_ domain.PatchID) bool {
	return true
}

// Bind installs the implementation for the identifier and returns the
// previously bound handle if there was one.
func (t *Table) Bind(id domain.PatchID, impl domain.ImplHandle) (domain.ImplHandle, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	previous, existed := t.bindings[id]
	t.bindings[id] = impl
	return previous, existed
}

// Unbind removes the binding for the identifier.
func (t *Table) Unbind(id domain.PatchID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.bindings, id)
}

// Len returns the number of active bindings.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.bindings)
}
