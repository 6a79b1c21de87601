package config

// Emberfile represents the structure of the ember.yaml configuration file.
type Emberfile struct {
	Version     string          `yaml:"version"`
	Root        string          `yaml:"root"`
	Watcher     *WatcherDTO     `yaml:"watcher"`
	Builder     *BuilderDTO     `yaml:"builder"`
	Patcher     *PatcherDTO     `yaml:"patcher"`
	Coordinator *CoordinatorDTO `yaml:"coordinator"`
	Recovery    *RecoveryDTO    `yaml:"recovery"`
}

// WatcherDTO configures change detection.
type WatcherDTO struct {
	DebounceInterval  string   `yaml:"debounceInterval"`
	IgnoredPatterns   []string `yaml:"ignoredPatterns"`
	WatchedExtensions []string `yaml:"watchedExtensions"`
	Recursive         *bool    `yaml:"recursive"`
	MaxWatchDepth     *int     `yaml:"maxWatchDepth"`
}

// BuilderDTO configures compilation.
type BuilderDTO struct {
	Command            []string `yaml:"command"`
	CompilationTimeout string   `yaml:"compilationTimeout"`
	IncrementalEnabled *bool    `yaml:"incrementalEnabled"`
}

// PatcherDTO configures patch application.
type PatcherDTO struct {
	ValidatePatches           *bool `yaml:"validatePatches"`
	BackupOriginalBeforePatch *bool `yaml:"backupOriginalBeforePatch"`
	MaxActivePatches          *int  `yaml:"maxActivePatches"`
}

// CoordinatorDTO configures reload sessions.
type CoordinatorDTO struct {
	MaxConcurrentReloads        *int   `yaml:"maxConcurrentReloads"`
	ReloadTimeout               string `yaml:"reloadTimeout"`
	QueueSizeLimit              *int   `yaml:"queueSizeLimit"`
	DependencyResolutionEnabled *bool  `yaml:"dependencyResolutionEnabled"`
	PrioritizeCriticalReloads   *bool  `yaml:"prioritizeCriticalReloads"`
	MaxHistory                  *int   `yaml:"maxHistory"`
	MaxRetainedSnapshots        *int   `yaml:"maxRetainedSnapshots"`
}

// RecoveryDTO configures error handling.
type RecoveryDTO struct {
	MaxErrorHistory         *int  `yaml:"maxErrorHistory"`
	AutoRecoveryEnabled     *bool `yaml:"autoRecoveryEnabled"`
	PatternDetectionEnabled *bool `yaml:"patternDetectionEnabled"`
}
