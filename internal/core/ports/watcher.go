package ports

import (
	"context"
	"iter"

	"go.trai.ch/ember/internal/core/domain"
)

// Watcher defines the interface for observing source file changes.
//
// Implementations apply the ignore-pattern and extension filters before
// emitting. Raw events still require debouncing by the consumer.
type Watcher interface {
	// Start begins watching the given root directory.
	// It returns an error if the watcher fails to start.
	Start(ctx context.Context, root string) error
	// Stop stops the watcher and releases all resources.
	Stop() error
	// Events returns an iterator of filtered change events.
	Events() iter.Seq[domain.ChangeEvent]
}
