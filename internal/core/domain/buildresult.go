package domain

import "time"

// DiagnosticSeverity classifies a compiler diagnostic line.
type DiagnosticSeverity string

const (
	// SeverityWarning marks a non-fatal compiler diagnostic.
	SeverityWarning DiagnosticSeverity = "warning"
	// SeverityError marks a fatal compiler diagnostic.
	SeverityError DiagnosticSeverity = "error"
)

// Diagnostic is a single structured compiler message.
type Diagnostic struct {
	Severity DiagnosticSeverity
	Message  string
}

// Artifact is a handle to a built output for a single unit.
type Artifact struct {
	// Unit is the source unit the artifact was built from.
	Unit InternedString
	// Path is the location of the built output.
	Path InternedString
	// Symbols are the patchable symbols exported by the artifact.
	Symbols []string
}

// BuildResult is the immutable outcome of one compile invocation.
//
// A result with non-empty Errors is a valid, non-exceptional return value:
// unit-local compile failures are data, not errors. Only infrastructure
// failures (process launch, timeout) surface as Go errors.
type BuildResult struct {
	// Units are the source units that were compiled.
	Units []InternedString
	// Artifacts are the built outputs, one per successfully compiled unit.
	Artifacts []Artifact
	// Warnings are the non-fatal diagnostics emitted by the compiler.
	Warnings []Diagnostic
	// Errors are the fatal diagnostics emitted by the compiler.
	Errors []Diagnostic
	// Duration is the wall-clock time the compile took.
	Duration time.Duration
}

// Succeeded reports whether the compile produced no fatal diagnostics.
func (r *BuildResult) Succeeded() bool {
	return len(r.Errors) == 0
}

// UnitFingerprint is the cache entry recorded for a successfully built unit.
type UnitFingerprint struct {
	// Fingerprint is the content hash of the unit at build time.
	Fingerprint uint64
	// BuiltAt is when the unit was last successfully built.
	BuiltAt time.Time
}
