package domain

import "go.trai.ch/zerr"

var (
	// ErrReloadInProgress is returned when a reload request exceeds the
	// concurrency ceiling and is queued for later execution.
	ErrReloadInProgress = zerr.New("reload already in progress, request queued")

	// ErrQueueFull is returned when the reload queue has reached its size limit.
	ErrQueueFull = zerr.New("reload queue is full")

	// ErrSessionNotFound is returned when a session id does not match any active session.
	ErrSessionNotFound = zerr.New("reload session not found")

	// ErrInvalidTransition is returned when a session status transition is not legal.
	ErrInvalidTransition = zerr.New("invalid session status transition")

	// ErrCancelNotAllowed is returned when cancellation is requested after a
	// session has entered the in-progress status.
	ErrCancelNotAllowed = zerr.New("session can no longer be cancelled")

	// ErrConcurrentBuildInProgress is returned when a compile is requested while a
	// previous compile on the same builder is still outstanding.
	ErrConcurrentBuildInProgress = zerr.New("concurrent build in progress")

	// ErrCompilerLaunchFailed is returned when the external compiler process cannot be started.
	ErrCompilerLaunchFailed = zerr.New("failed to launch compiler")

	// ErrCompilationTimeout is returned when the external compiler exceeds the configured timeout.
	ErrCompilationTimeout = zerr.New("compilation timed out")

	// ErrNoCompilerCommand is returned when no compiler command is configured.
	ErrNoCompilerCommand = zerr.New("no compiler command configured")

	// ErrValidationFailed is returned when a patch batch fails the pre-commit
	// validation pass. The whole batch is rejected.
	ErrValidationFailed = zerr.New("patch validation failed")

	// ErrPatchNotFound is returned when reverting an identifier that has no active patch.
	ErrPatchNotFound = zerr.New("patch not found")

	// ErrProtectedUnit is returned when a patch targets a protected namespace.
	ErrProtectedUnit = zerr.New("unit is protected and cannot be patched")

	// ErrTooManyPatches is returned when applying a batch would exceed the
	// configured maximum number of active patches.
	ErrTooManyPatches = zerr.New("active patch limit exceeded")

	// ErrSymbolNotFound is returned when an identifier cannot be resolved
	// against the live process.
	ErrSymbolNotFound = zerr.New("symbol not resolvable in live process")

	// ErrNoSnapshot is returned when restoring state without a captured snapshot.
	ErrNoSnapshot = zerr.New("no state snapshot available")

	// ErrObserverAlreadyRegistered is returned when registering a state observer
	// whose identifier is already taken.
	ErrObserverAlreadyRegistered = zerr.New("state observer already registered")

	// ErrStateCaptureFailed is returned when a state observer fails to capture its state.
	ErrStateCaptureFailed = zerr.New("failed to capture observer state")

	// ErrStateRestoreFailed is returned when a state observer fails to restore its state.
	ErrStateRestoreFailed = zerr.New("failed to restore observer state")

	// ErrUnknownUnit is returned when an operation references a unit that was
	// never registered with the dependency tracker.
	ErrUnknownUnit = zerr.New("unknown source unit")

	// ErrReloadFailed is returned when a reload session terminates in a failed status.
	ErrReloadFailed = zerr.New("reload failed")

	// ErrReloadTimedOut is returned when a reload session exceeds its timeout.
	ErrReloadTimedOut = zerr.New("reload timed out")

	// ErrConfigReadFailed is returned when the config file cannot be read.
	ErrConfigReadFailed = zerr.New("failed to read config file")

	// ErrConfigParseFailed is returned when the config file cannot be parsed.
	ErrConfigParseFailed = zerr.New("failed to parse config file")

	// ErrWatcherStartFailed is returned when the file system watcher cannot be started.
	ErrWatcherStartFailed = zerr.New("failed to start file watcher")

	// ErrFileOpenFailed is returned when a file cannot be opened.
	ErrFileOpenFailed = zerr.New("failed to open file")

	// ErrFileHashFailed is returned when fingerprinting a file fails.
	ErrFileHashFailed = zerr.New("failed to hash file content")
)
