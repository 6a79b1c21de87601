// Package preserver captures and restores application state across reloads.
package preserver

import (
	"sync"
	"time"

	"go.trai.ch/ember/internal/core/domain"
	"go.trai.ch/ember/internal/core/ports"
	"go.trai.ch/zerr"
)

// Preserver holds registered state observers and a bounded stack of captured
// snapshots.
//
// Capture runs immediately before a patch batch, Restore immediately after a
// successful one. When a patch fails the snapshot is deliberately kept so the
// state survives a retry.
type Preserver struct {
	logger ports.Logger

	mu           sync.Mutex
	observers    map[domain.StateID]ports.StateObserver
	order        []domain.StateID
	snapshots    []domain.StateSnapshot
	maxSnapshots int
}

// New creates a new Preserver retaining at most maxSnapshots snapshots.
// A non-positive bound keeps a single snapshot.
func New(logger ports.Logger, maxSnapshots int) *Preserver {
	if maxSnapshots <= 0 {
		maxSnapshots = 1
	}
	return &Preserver{
		logger:       logger,
		observers:    make(map[domain.StateID]ports.StateObserver),
		maxSnapshots: maxSnapshots,
	}
}

// Register adds a state observer. Registering a second observer under the
// same identifier fails with ErrObserverAlreadyRegistered.
func (p *Preserver) Register(observer ports.StateObserver) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	id := observer.ID()
	if _, exists := p.observers[id]; exists {
		return zerr.With(zerr.Wrap(domain.ErrObserverAlreadyRegistered, "duplicate identifier"), "observer", id.Name)
	}
	p.observers[id] = observer
	p.order = append(p.order, id)
	return nil
}

// Unregister removes a state observer. Unknown identifiers are ignored.
func (p *Preserver) Unregister(id domain.StateID) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, exists := p.observers[id]; !exists {
		return
	}
	delete(p.observers, id)
	for i, registered := range p.order {
		if registered == id {
			p.order = append(p.order[:i], p.order[i+1:]...)
			break
		}
	}
}

// Capture asks every registered observer for its current state and pushes the
// resulting snapshot. A failing observer fails the whole capture and nothing
// is retained.
func (p *Preserver) Capture() (domain.StateSnapshot, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	snapshot := domain.StateSnapshot{
		Values:     make(map[domain.StateID]any, len(p.order)),
		CapturedAt: time.Now(),
	}
	for _, id := range p.order {
		value, err := p.observers[id].Capture()
		if err != nil {
			return domain.StateSnapshot{}, zerr.With(
				zerr.Wrap(domain.ErrStateCaptureFailed, err.Error()),
				"observer", id.Name,
			)
		}
		snapshot.Values[id] = value
	}

	p.snapshots = append(p.snapshots, snapshot)
	if len(p.snapshots) > p.maxSnapshots {
		p.snapshots = p.snapshots[len(p.snapshots)-p.maxSnapshots:]
	}
	return snapshot, nil
}

// Restore hands each value of the most recent snapshot back to the observer
// that produced it. The snapshot is consumed only once every observer
// succeeded; a failing observer leaves it in place for a retry. Values whose
// observer has since unregistered are skipped with a warning.
func (p *Preserver) Restore() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.snapshots) == 0 {
		return domain.ErrNoSnapshot
	}
	snapshot := p.snapshots[len(p.snapshots)-1]

	for _, id := range p.order {
		value, captured := snapshot.Values[id]
		if !captured {
			continue
		}
		if err := p.observers[id].Restore(value); err != nil {
			return zerr.With(
				zerr.Wrap(domain.ErrStateRestoreFailed, err.Error()),
				"observer", id.Name,
			)
		}
	}
	for id := range snapshot.Values {
		if _, registered := p.observers[id]; !registered {
			p.logger.Warn("dropping state for unregistered observer " + id.Name)
		}
	}
	p.snapshots = p.snapshots[:len(p.snapshots)-1]
	return nil
}

// DiscardOldest drops the oldest retained snapshot, if any.
func (p *Preserver) DiscardOldest() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.snapshots) > 0 {
		p.snapshots = p.snapshots[1:]
	}
}

// SnapshotCount returns the number of retained snapshots.
func (p *Preserver) SnapshotCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.snapshots)
}

// ObserverCount returns the number of registered observers.
func (p *Preserver) ObserverCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.observers)
}
