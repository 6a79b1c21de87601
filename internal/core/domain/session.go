package domain

import "time"

// Priority orders queued reload requests. Higher values drain first.
type Priority int

const (
	// PriorityLow is for background refreshes.
	PriorityLow Priority = 0
	// PriorityNormal is the default request priority.
	PriorityNormal Priority = 10
	// PriorityHigh is for user-initiated reloads.
	PriorityHigh Priority = 20
	// PriorityCritical is for reloads that must preempt queued work.
	PriorityCritical Priority = 30
)

// ReloadRequest asks the coordinator to reload a set of changed units.
type ReloadRequest struct {
	// Units are the changed source units to reload.
	Units []InternedString
	// Priority orders the request in the queue.
	Priority Priority
	// Reason is a short human-readable trigger description.
	Reason string
	// SubmittedAt is when the request was submitted. FIFO tie-breaker.
	SubmittedAt time.Time
}

// SessionStatus is the finite state machine of a reload session.
type SessionStatus string

const (
	// StatusQueued means the request is waiting for a concurrency slot.
	StatusQueued SessionStatus = "queued"
	// StatusPreparing means a session exists but the pipeline has not started.
	StatusPreparing SessionStatus = "preparing"
	// StatusInProgress means the pipeline is executing.
	StatusInProgress SessionStatus = "inProgress"
	// StatusCompleted means the reload finished successfully.
	StatusCompleted SessionStatus = "completed"
	// StatusFailed means the reload terminated with an error.
	StatusFailed SessionStatus = "failed"
	// StatusCancelled means the reload was cancelled before it started.
	StatusCancelled SessionStatus = "cancelled"
	// StatusTimedOut means the reload exceeded its wall-clock timeout.
	StatusTimedOut SessionStatus = "timedOut"
)

// Terminal reports whether the status is a terminal state.
func (s SessionStatus) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled, StatusTimedOut:
		return true
	default:
		return false
	}
}

// CanTransitionTo reports whether moving from s to next is a legal transition.
func (s SessionStatus) CanTransitionTo(next SessionStatus) bool {
	switch s {
	case StatusQueued:
		return next == StatusPreparing || next == StatusCancelled
	case StatusPreparing:
		return next == StatusInProgress || next == StatusCancelled ||
			next == StatusFailed || next == StatusTimedOut
	case StatusInProgress:
		return next == StatusCompleted || next == StatusFailed || next == StatusTimedOut
	default:
		return false
	}
}

// ReloadSession is one end-to-end reload attempt. Sessions are immutable once
// they reach a terminal status; the coordinator owns all mutation.
type ReloadSession struct {
	// ID uniquely identifies the session.
	ID string
	// Request is the request that created the session.
	Request ReloadRequest
	// Status is the current FSM state.
	Status SessionStatus
	// StartedAt is when the session was created.
	StartedAt time.Time
	// EndedAt is when the session reached a terminal status.
	EndedAt time.Time
	// Result is the build result, set on completion.
	Result *BuildResult
	// Err is the error that terminated the session, if any.
	Err error
}

// Duration returns the session's wall-clock duration, or zero if not terminal.
func (s *ReloadSession) Duration() time.Duration {
	if !s.Status.Terminal() {
		return 0
	}
	return s.EndedAt.Sub(s.StartedAt)
}

// ReloadRecord is the immutable history entry appended on every terminal transition.
type ReloadRecord struct {
	SessionID string
	Units     []InternedString
	Priority  Priority
	Status    SessionStatus
	StartedAt time.Time
	EndedAt   time.Time
	Error     string
}

// ReloadStatistics is derived from history on demand, never cached.
type ReloadStatistics struct {
	Total           int
	Succeeded       int
	Failed          int
	Cancelled       int
	TimedOut        int
	SuccessRate     float64
	AverageDuration time.Duration
}
