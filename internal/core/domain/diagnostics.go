package domain

import "time"

// ErrorKind is the fixed classification taxonomy for pipeline failures.
type ErrorKind string

const (
	// ErrorCompilation covers compiler and toolchain failures.
	ErrorCompilation ErrorKind = "compilation"
	// ErrorRuntime covers failures inside the live process.
	ErrorRuntime ErrorKind = "runtime"
	// ErrorFilesystem covers file access failures.
	ErrorFilesystem ErrorKind = "filesystem"
	// ErrorNetwork covers connectivity failures.
	ErrorNetwork ErrorKind = "network"
	// ErrorMemory covers allocation and OOM failures.
	ErrorMemory ErrorKind = "memory"
	// ErrorUnknown is the fallback when no other kind matches.
	ErrorUnknown ErrorKind = "unknown"
)

// RecoveryOutcome describes what happened after classification.
type RecoveryOutcome string

const (
	// OutcomeRecovered means a recovery strategy completed without error.
	OutcomeRecovered RecoveryOutcome = "recovered"
	// OutcomeUnhandled means every registered strategy failed or none applied.
	OutcomeUnhandled RecoveryOutcome = "unhandled"
	// OutcomeSkipped means automatic recovery was disabled.
	OutcomeSkipped RecoveryOutcome = "skipped"
)

// ErrorContext carries where an error happened.
type ErrorContext struct {
	// Stage is the pipeline stage that failed (watch, build, patch, restore…).
	Stage string
	// File is the source file involved, if known.
	File string
}

// ErrorRecord is one classified failure retained in the bounded error history.
type ErrorRecord struct {
	// ID uniquely identifies the record.
	ID string
	// Description is the error text, surfaced verbatim.
	Description string
	// Kind is the classification result.
	Kind ErrorKind
	// Context is where the error occurred.
	Context ErrorContext
	// SessionID references the reload session, if the error occurred inside one.
	SessionID string
	// Outcome is the recovery result.
	Outcome RecoveryOutcome
	// Strategy is the name of the strategy that recovered the error, if any.
	Strategy string
	// OccurredAt is when the error was handled.
	OccurredAt time.Time
}

// ErrorPattern tracks repeated identical failures for diagnostics. It never
// blocks recovery.
type ErrorPattern struct {
	// Description keys the pattern.
	Description string
	// File is the context file shared by the occurrences.
	File string
	// Frequency is how many times the error was seen.
	Frequency int
	// FirstSeen is the first occurrence.
	FirstSeen time.Time
	// LastSeen is the most recent occurrence.
	LastSeen time.Time
}

// ErrorStatistics summarizes the retained error history.
type ErrorStatistics struct {
	Total        int
	Recovered    int
	Unhandled    int
	RecoveryRate float64
	ByKind       map[ErrorKind]int
	LastHour     int
}
