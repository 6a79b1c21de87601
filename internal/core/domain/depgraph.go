// Package domain contains the core domain models for the hot-reload engine.
package domain

import "iter"

// DependencyGraph is a directed graph of source-unit dependencies.
//
// Units are stored in an arena indexed by position; adjacency is kept in both
// directions (dependencies and dependents) as index lists. The graph tolerates
// cycles: rebuild sets are computed by iterative fixpoint, not recursive walks.
type DependencyGraph struct {
	units   []InternedString
	index   map[InternedString]int
	deps    [][]int
	revDeps [][]int
}

// NewDependencyGraph creates a new empty DependencyGraph.
func NewDependencyGraph() *DependencyGraph {
	return &DependencyGraph{
		index: make(map[InternedString]int),
	}
}

// Register adds a unit to the graph if it is not already present and returns
// its arena index.
func (g *DependencyGraph) Register(unit InternedString) int {
	if i, ok := g.index[unit]; ok {
		return i
	}
	i := len(g.units)
	g.units = append(g.units, unit)
	g.index[unit] = i
	g.deps = append(g.deps, nil)
	g.revDeps = append(g.revDeps, nil)
	return i
}

// Contains reports whether the unit is registered.
func (g *DependencyGraph) Contains(unit InternedString) bool {
	_, ok := g.index[unit]
	return ok
}

// UnitCount returns the number of registered units.
func (g *DependencyGraph) UnitCount() int {
	return len(g.units)
}

// SetDependencies replaces the dependency list of a unit. Both the unit and
// every dependency are registered implicitly. The dependents adjacency is kept
// in sync.
func (g *DependencyGraph) SetDependencies(unit InternedString, deps []InternedString) {
	u := g.Register(unit)

	// Remove the old forward edges from the reverse adjacency.
	for _, d := range g.deps[u] {
		g.revDeps[d] = removeIndex(g.revDeps[d], u)
	}
	g.deps[u] = g.deps[u][:0]

	for _, dep := range deps {
		d := g.Register(dep)
		if d == u || containsIndex(g.deps[u], d) {
			continue
		}
		g.deps[u] = append(g.deps[u], d)
		g.revDeps[d] = append(g.revDeps[d], u)
	}
}

// Dependencies returns the units the given unit directly depends on.
func (g *DependencyGraph) Dependencies(unit InternedString) []InternedString {
	u, ok := g.index[unit]
	if !ok {
		return nil
	}
	return g.resolve(g.deps[u])
}

// Dependents returns the units that directly depend on the given unit.
func (g *DependencyGraph) Dependents(unit InternedString) []InternedString {
	u, ok := g.index[unit]
	if !ok {
		return nil
	}
	return g.resolve(g.revDeps[u])
}

// Closure computes the set of units that must be rebuilt when the given units
// change: the changed units themselves plus everything transitively dependent
// on them. The computation is an iterative fixpoint over the dependents edges
// and terminates on cyclic graphs.
func (g *DependencyGraph) Closure(changed []InternedString) map[InternedString]struct{} {
	inSet := make([]bool, len(g.units))
	var frontier []int

	result := make(map[InternedString]struct{}, len(changed))
	for _, unit := range changed {
		// Unknown units are still part of the rebuild set; they simply have
		// no dependents to propagate to.
		result[unit] = struct{}{}
		if u, ok := g.index[unit]; ok && !inSet[u] {
			inSet[u] = true
			frontier = append(frontier, u)
		}
	}

	for len(frontier) > 0 {
		u := frontier[0]
		frontier = frontier[1:]
		for _, dependent := range g.revDeps[u] {
			if !inSet[dependent] {
				inSet[dependent] = true
				result[g.units[dependent]] = struct{}{}
				frontier = append(frontier, dependent)
			}
		}
	}

	return result
}

// Units returns an iterator over all registered units in registration order.
func (g *DependencyGraph) Units() iter.Seq[InternedString] {
	return func(yield func(InternedString) bool) {
		for _, u := range g.units {
			if !yield(u) {
				return
			}
		}
	}
}

func (g *DependencyGraph) resolve(indices []int) []InternedString {
	if len(indices) == 0 {
		return nil
	}
	out := make([]InternedString, len(indices))
	for i, idx := range indices {
		out[i] = g.units[idx]
	}
	return out
}

func containsIndex(s []int, v int) bool {
	for _, e := range s {
		if e == v {
			return true
		}
	}
	return false
}

func removeIndex(s []int, v int) []int {
	for i, e := range s {
		if e == v {
			return append(s[:i], s[i+1:]...)
		}
	}
	return s
}
