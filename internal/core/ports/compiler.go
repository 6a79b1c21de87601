package ports

import (
	"context"

	"go.trai.ch/ember/internal/core/domain"
)

// Compiler is the external build collaborator contract.
//
// The input is a set of source-unit identifiers; the output is built artifacts
// plus structured diagnostics. Unit-local compile failures are returned as
// error-severity diagnostics, not as a Go error: only infrastructure failures
// (process launch, timeout) return a non-nil error.
type Compiler interface {
	Compile(ctx context.Context, units []domain.InternedString) ([]domain.Artifact, []domain.Diagnostic, error)
}
