// Package watcher implements change detection for the hot-reload engine.
package watcher

import (
	"sort"
	"sync"
	"time"
	"unique"

	"go.trai.ch/ember/internal/core/domain"
)

// Debouncer coalesces rapid file system events into batched emissions.
//
// Events are buffered for the configured window; at the end of the window,
// events are grouped by path and only the most recent event per path is
// emitted, ordered by timestamp ascending. Editors frequently fire several
// notifications per logical save; debouncing prevents redundant rebuild churn.
type Debouncer struct {
	mu       sync.Mutex
	pending  map[unique.Handle[string]]domain.ChangeEvent
	timer    *time.Timer
	stopped  bool
	window   time.Duration
	callback func(events []domain.ChangeEvent)
}

// NewDebouncer creates a new debouncer with the given time window and callback.
func NewDebouncer(window time.Duration, callback func(events []domain.ChangeEvent)) *Debouncer {
	return &Debouncer{
		pending:  make(map[unique.Handle[string]]domain.ChangeEvent),
		window:   window,
		callback: callback,
	}
}

// Add buffers a change event. Later events for the same path supersede
// earlier ones. Each call restarts the debounce window.
func (d *Debouncer) Add(event domain.ChangeEvent) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}

	handle := event.Path.Value()
	if existing, ok := d.pending[handle]; !ok || !event.Timestamp.Before(existing.Timestamp) {
		d.pending[handle] = event
	}

	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.window, d.fire)
}

// fire is called when the debounce window expires.
func (d *Debouncer) fire() {
	d.mu.Lock()

	if d.stopped || len(d.pending) == 0 {
		d.timer = nil
		d.mu.Unlock()
		return
	}

	events := d.drainLocked()
	d.timer = nil
	d.mu.Unlock()

	if len(events) > 0 && d.callback != nil {
		go d.callback(events)
	}
}

// Flush immediately emits all pending events, bypassing the window.
// It blocks until the callback completes, making it suitable for graceful
// shutdown where buffered work must finish before proceeding.
func (d *Debouncer) Flush() {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}
	if d.timer != nil {
		if !d.timer.Stop() {
			// Timer already fired; let it complete rather than emitting twice.
			d.mu.Unlock()
			return
		}
		d.timer = nil
	}

	events := d.drainLocked()
	d.mu.Unlock()

	if len(events) > 0 && d.callback != nil {
		d.callback(events)
	}
}

// Stop cancels any pending timer and drops buffered events without emitting
// them. The debouncer accepts no further events after Stop.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.pending = make(map[unique.Handle[string]]domain.ChangeEvent)
}

// drainLocked extracts pending events sorted by timestamp ascending.
// Callers must hold d.mu.
func (d *Debouncer) drainLocked() []domain.ChangeEvent {
	events := make([]domain.ChangeEvent, 0, len(d.pending))
	for _, event := range d.pending {
		events = append(events, event)
	}
	d.pending = make(map[unique.Handle[string]]domain.ChangeEvent)

	sort.Slice(events, func(i, j int) bool {
		return events[i].Timestamp.Before(events[j].Timestamp)
	})
	return events
}
