// Package tracker maintains the source-unit dependency graph and computes
// rebuild sets.
package tracker

import (
	"fmt"
	"sort"
	"sync"

	"go.trai.ch/ember/internal/core/domain"
	"go.trai.ch/ember/internal/core/ports"
)

// Tracker owns the dependency graph. All access goes through its mutex; the
// graph itself is never exposed for external mutation.
type Tracker struct {
	mu        sync.Mutex
	graph     *domain.DependencyGraph
	forceFull bool
	logger    ports.Logger
}

// New creates a new Tracker.
func New(logger ports.Logger) *Tracker {
	return &Tracker{
		graph:  domain.NewDependencyGraph(),
		logger: logger,
	}
}

// RegisterUnit adds a unit to the graph.
func (t *Tracker) RegisterUnit(unit domain.InternedString) {
	if unit.String() == "" {
		t.warn("ignoring registration of empty unit id")
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.graph.Register(unit)
}

// UpdateDependencies replaces the dependency list of a unit.
//
// Malformed updates (empty unit id, empty dependency ids) are logged and
// ignored for that unit; the tracker never fails hard.
func (t *Tracker) UpdateDependencies(unit domain.InternedString, deps []domain.InternedString) {
	if unit.String() == "" {
		t.warn("ignoring dependency update for empty unit id")
		return
	}

	valid := make([]domain.InternedString, 0, len(deps))
	for _, dep := range deps {
		if dep.String() == "" {
			t.warn(fmt.Sprintf("ignoring empty dependency of unit %q", unit.String()))
			continue
		}
		valid = append(valid, dep)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.graph.SetDependencies(unit, valid)
}

// RebuildSetFor computes the set of units that must be rebuilt given the
// changed units: the changed units plus everything transitively dependent on
// them. When a full rebuild was forced, every known unit is returned and the
// flag clears itself.
func (t *Tracker) RebuildSetFor(changed []domain.InternedString) []domain.InternedString {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.forceFull {
		t.forceFull = false
		return t.allUnitsLocked(changed)
	}

	closure := t.graph.Closure(changed)
	return sortedUnits(closure)
}

// ForceFullRebuild marks the next rebuild-set computation to return every
// known unit regardless of the change set.
func (t *Tracker) ForceFullRebuild() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.forceFull = true
}

// Dependents returns the units directly depending on the given unit.
func (t *Tracker) Dependents(unit domain.InternedString) []domain.InternedString {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.graph.Dependents(unit)
}

// UnitCount returns the number of known units.
func (t *Tracker) UnitCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.graph.UnitCount()
}

// allUnitsLocked returns every known unit plus any changed units the graph
// has not seen yet. Callers must hold t.mu.
func (t *Tracker) allUnitsLocked(changed []domain.InternedString) []domain.InternedString {
	set := make(map[domain.InternedString]struct{}, t.graph.UnitCount()+len(changed))
	for unit := range t.graph.Units() {
		set[unit] = struct{}{}
	}
	for _, unit := range changed {
		set[unit] = struct{}{}
	}
	return sortedUnits(set)
}

func (t *Tracker) warn(msg string) {
	if t.logger != nil {
		t.logger.Warn(msg)
	}
}

// sortedUnits converts a unit set to a deterministic slice.
func sortedUnits(set map[domain.InternedString]struct{}) []domain.InternedString {
	units := make([]domain.InternedString, 0, len(set))
	for unit := range set {
		units = append(units, unit)
	}
	sort.Slice(units, func(i, j int) bool {
		return units[i].String() < units[j].String()
	})
	return units
}
