package ports

import "context"

// Span represents a single traced operation.
type Span interface {
	// End completes the span.
	End()
	// RecordError records an error on the span.
	RecordError(err error)
	// SetAttribute sets a key-value attribute on the span.
	SetAttribute(key string, value any)
}

// Tracer creates spans around reload sessions and pipeline stages.
type Tracer interface {
	// Start creates a new span as a child of the span in ctx, if any.
	Start(ctx context.Context, name string) (context.Context, Span)
	// Shutdown flushes and stops the tracer.
	Shutdown(ctx context.Context) error
}
