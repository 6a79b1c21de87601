package app

import (
	"time"

	"go.trai.ch/ember/internal/core/domain"
)

// Status is a point-in-time view of the engine.
type Status struct {
	// Root is the watched source root.
	Root string
	// ActiveSessions are the non-terminal reload sessions.
	ActiveSessions []domain.ReloadSession
	// QueueLength is the number of queued reload requests.
	QueueLength int
	// KnownUnits is the number of units in the dependency graph.
	KnownUnits int
	// CachedUnits is the number of fingerprinted units in the build cache.
	CachedUnits int
	// ActivePatches is the number of patches currently applied.
	ActivePatches int
	// Snapshots is the number of retained state snapshots.
	Snapshots int
}

// DiagnosticReport is the structured diagnostic summary of the engine.
type DiagnosticReport struct {
	GeneratedAt   time.Time
	Reloads       domain.ReloadStatistics
	Errors        domain.ErrorStatistics
	Patterns      []domain.ErrorPattern
	RecentErrors  []domain.ErrorRecord
	ActivePatches []domain.PatchRecord
	CachedUnits   int
	KnownUnits    int
}
