package domain

import "time"

// WatcherConfig configures the file system watcher.
type WatcherConfig struct {
	// DebounceInterval is how long events are buffered before emission.
	DebounceInterval time.Duration
	// IgnoredPatterns are substring/glob patterns excluded from watching.
	IgnoredPatterns []string
	// WatchedExtensions is the extension allow-list. Empty means all files.
	WatchedExtensions []string
	// Recursive enables watching subdirectories.
	Recursive bool
	// MaxWatchDepth bounds recursion depth below the root.
	MaxWatchDepth int
}

// BuilderConfig configures the incremental builder.
type BuilderConfig struct {
	// Command is the external compiler invocation; unit ids are appended.
	Command []string
	// CompilationTimeout bounds a single compile invocation.
	CompilationTimeout time.Duration
	// IncrementalEnabled disables the fingerprint cache when false, forcing
	// full rebuilds.
	IncrementalEnabled bool
}

// PatcherConfig configures the patch applier.
type PatcherConfig struct {
	// ValidatePatches enables the pre-commit identifier validation pass.
	ValidatePatches bool
	// BackupOriginalBeforePatch records original handles for revert.
	BackupOriginalBeforePatch bool
	// MaxActivePatches bounds the active patch set.
	MaxActivePatches int
}

// CoordinatorConfig configures the reload coordinator.
type CoordinatorConfig struct {
	// MaxConcurrentReloads is the ceiling on non-terminal sessions.
	MaxConcurrentReloads int
	// ReloadTimeout is the wall-clock bound per session, measured from start.
	ReloadTimeout time.Duration
	// QueueSizeLimit bounds the pending request queue.
	QueueSizeLimit int
	// DependencyResolutionEnabled expands requests with convention-paired units.
	DependencyResolutionEnabled bool
	// PrioritizeCriticalReloads orders the queue by priority before arrival.
	PrioritizeCriticalReloads bool
	// MaxHistory bounds the retained session history.
	MaxHistory int
	// MaxRetainedSnapshots bounds the retained state snapshots.
	MaxRetainedSnapshots int
}

// RecoveryConfig configures error classification and recovery.
type RecoveryConfig struct {
	// MaxErrorHistory bounds the retained error records.
	MaxErrorHistory int
	// AutoRecoveryEnabled enables recovery strategy execution.
	AutoRecoveryEnabled bool
	// PatternDetectionEnabled enables repeated-failure pattern tracking.
	PatternDetectionEnabled bool
}

// Config is the full engine configuration. Every option has a safe default;
// a missing config file yields DefaultConfig.
type Config struct {
	// Root is the source root to watch.
	Root string
	// Watcher configures change detection.
	Watcher WatcherConfig
	// Builder configures compilation.
	Builder BuilderConfig
	// Patcher configures patch application.
	Patcher PatcherConfig
	// Coordinator configures reload sessions.
	Coordinator CoordinatorConfig
	// Recovery configures error handling.
	Recovery RecoveryConfig
}

// DefaultConfig returns the configuration used when no config file is found.
func DefaultConfig() Config {
	return Config{
		Root: ".",
		Watcher: WatcherConfig{
			DebounceInterval:  500 * time.Millisecond,
			IgnoredPatterns:   []string{".git", ".jj", "node_modules"},
			WatchedExtensions: nil,
			Recursive:         true,
			MaxWatchDepth:     16,
		},
		Builder: BuilderConfig{
			CompilationTimeout: 30 * time.Second,
			IncrementalEnabled: true,
		},
		Patcher: PatcherConfig{
			ValidatePatches:           true,
			BackupOriginalBeforePatch: true,
			MaxActivePatches:          256,
		},
		Coordinator: CoordinatorConfig{
			MaxConcurrentReloads:        1,
			ReloadTimeout:               30 * time.Second,
			QueueSizeLimit:              32,
			DependencyResolutionEnabled: true,
			PrioritizeCriticalReloads:   true,
			MaxHistory:                  100,
			MaxRetainedSnapshots:        4,
		},
		Recovery: RecoveryConfig{
			MaxErrorHistory:         128,
			AutoRecoveryEnabled:     true,
			PatternDetectionEnabled: true,
		},
	}
}
