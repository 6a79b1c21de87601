// Package coordinator owns reload sessions end to end: admission, queueing,
// the session state machine, and the reload pipeline itself.
package coordinator

import (
	"context"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.trai.ch/ember/internal/core/domain"
	"go.trai.ch/ember/internal/core/ports"
	"go.trai.ch/ember/internal/engine/builder"
	"go.trai.ch/ember/internal/engine/patcher"
	"go.trai.ch/ember/internal/engine/preserver"
	"go.trai.ch/ember/internal/engine/recovery"
	"go.trai.ch/ember/internal/engine/tracker"
	"go.trai.ch/zerr"
)

// pending is a queued session waiting for a concurrency slot.
type pending struct {
	session *domain.ReloadSession
	ctx     context.Context
	seq     uint64
}

// Coordinator serializes reload sessions under a concurrency ceiling and
// drives each one through capture, rebuild-set resolution, compilation, patch
// application, and state restoration.
//
// All session and queue mutation happens under one mutex. Queue draining after
// a terminal transition is synchronous under that lock; admitted sessions run
// on their own goroutine.
type Coordinator struct {
	builder   *builder.Builder
	patcher   *patcher.Patcher
	preserver *preserver.Preserver
	tracker   *tracker.Tracker
	recovery  *recovery.Handler
	logger    ports.Logger
	tracer    ports.Tracer
	cfg       domain.CoordinatorConfig

	mu         sync.Mutex
	sessions   map[string]*domain.ReloadSession
	terminated map[string]*domain.ReloadSession
	queue      []pending
	timers     map[string]*time.Timer
	history    []domain.ReloadRecord
	nextSeq    uint64
}

// New creates a new Coordinator.
func New(
	b *builder.Builder,
	p *patcher.Patcher,
	pr *preserver.Preserver,
	tr *tracker.Tracker,
	rec *recovery.Handler,
	logger ports.Logger,
	tracer ports.Tracer,
	cfg domain.CoordinatorConfig,
) *Coordinator {
	if cfg.MaxConcurrentReloads <= 0 {
		cfg.MaxConcurrentReloads = 1
	}
	return &Coordinator{
		builder:    b,
		patcher:    p,
		preserver:  pr,
		tracker:    tr,
		recovery:   rec,
		logger:     logger,
		tracer:     tracer,
		cfg:        cfg,
		sessions:   make(map[string]*domain.ReloadSession),
		terminated: make(map[string]*domain.ReloadSession),
		timers:     make(map[string]*time.Timer),
	}
}

// RequestReload admits the request under the concurrency ceiling or enqueues
// it. An enqueued request still yields a session id but reports
// ErrReloadInProgress so the caller knows it did not start.
func (c *Coordinator) RequestReload(ctx context.Context, req domain.ReloadRequest) (string, error) {
	if req.SubmittedAt.IsZero() {
		req.SubmittedAt = time.Now()
	}
	if c.cfg.DependencyResolutionEnabled {
		req.Units = expandUnits(req.Units)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	session := &domain.ReloadSession{
		ID:        uuid.NewString(),
		Request:   req,
		StartedAt: time.Now(),
	}

	if c.runningCountLocked() < c.cfg.MaxConcurrentReloads {
		session.Status = domain.StatusPreparing
		c.sessions[session.ID] = session
		c.startLocked(ctx, session)
		return session.ID, nil
	}

	if c.cfg.QueueSizeLimit > 0 && len(c.queue) >= c.cfg.QueueSizeLimit {
		return "", zerr.With(zerr.Wrap(domain.ErrQueueFull, "request rejected"), "limit", c.cfg.QueueSizeLimit)
	}

	session.Status = domain.StatusQueued
	c.sessions[session.ID] = session
	c.nextSeq++
	c.queue = append(c.queue, pending{session: session, ctx: ctx, seq: c.nextSeq})
	return session.ID, domain.ErrReloadInProgress
}

// CancelReload cancels a session that has not started executing. Sessions
// already in progress cannot be cancelled.
func (c *Coordinator) CancelReload(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	session, ok := c.sessions[id]
	if !ok {
		if _, done := c.terminated[id]; done {
			return zerr.With(zerr.Wrap(domain.ErrCancelNotAllowed, "session already terminated"), "session", id)
		}
		return zerr.With(zerr.Wrap(domain.ErrSessionNotFound, "cancel rejected"), "session", id)
	}
	if !session.Status.CanTransitionTo(domain.StatusCancelled) {
		return zerr.With(zerr.Wrap(domain.ErrCancelNotAllowed, "session already executing"), "status", string(session.Status))
	}

	for i, entry := range c.queue {
		if entry.session.ID == id {
			c.queue = append(c.queue[:i], c.queue[i+1:]...)
			break
		}
	}
	c.terminateLocked(session, domain.StatusCancelled, nil)
	return nil
}

// Session returns a copy of the session with the given id.
func (c *Coordinator) Session(id string) (domain.ReloadSession, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	session, ok := c.sessions[id]
	if !ok {
		session, ok = c.terminated[id]
	}
	if !ok {
		return domain.ReloadSession{}, zerr.With(zerr.Wrap(domain.ErrSessionNotFound, "unknown session id"), "session", id)
	}
	return *session, nil
}

// ActiveSessions returns copies of all non-terminal sessions, oldest first.
func (c *Coordinator) ActiveSessions() []domain.ReloadSession {
	c.mu.Lock()
	defer c.mu.Unlock()

	active := make([]domain.ReloadSession, 0, len(c.sessions))
	for _, session := range c.sessions {
		active = append(active, *session)
	}
	sort.Slice(active, func(i, j int) bool {
		return active[i].StartedAt.Before(active[j].StartedAt)
	})
	return active
}

// QueueLength returns the number of queued sessions.
func (c *Coordinator) QueueLength() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.queue)
}

// History returns the most recent terminal session records, newest first.
// A non-positive limit returns the full retained history.
func (c *Coordinator) History(limit int) []domain.ReloadRecord {
	c.mu.Lock()
	defer c.mu.Unlock()

	if limit <= 0 || limit > len(c.history) {
		limit = len(c.history)
	}
	records := make([]domain.ReloadRecord, 0, limit)
	for i := len(c.history) - 1; i >= len(c.history)-limit; i-- {
		records = append(records, c.history[i])
	}
	return records
}

// Statistics derives reload statistics from the retained history.
func (c *Coordinator) Statistics() domain.ReloadStatistics {
	c.mu.Lock()
	defer c.mu.Unlock()

	var stats domain.ReloadStatistics
	var totalDuration time.Duration
	for _, record := range c.history {
		stats.Total++
		switch record.Status {
		case domain.StatusCompleted:
			stats.Succeeded++
			totalDuration += record.EndedAt.Sub(record.StartedAt)
		case domain.StatusFailed:
			stats.Failed++
		case domain.StatusCancelled:
			stats.Cancelled++
		case domain.StatusTimedOut:
			stats.TimedOut++
		}
	}
	if stats.Total > 0 {
		stats.SuccessRate = float64(stats.Succeeded) / float64(stats.Total)
	}
	if stats.Succeeded > 0 {
		stats.AverageDuration = totalDuration / time.Duration(stats.Succeeded)
	}
	return stats
}

// startLocked arms the session timeout and launches the pipeline goroutine.
func (c *Coordinator) startLocked(ctx context.Context, session *domain.ReloadSession) {
	if c.cfg.ReloadTimeout > 0 {
		id := session.ID
		c.timers[id] = time.AfterFunc(c.cfg.ReloadTimeout, func() {
			c.timeOut(id)
		})
	}
	go c.run(ctx, session.ID)
}

// run drives one session through the reload pipeline.
func (c *Coordinator) run(ctx context.Context, id string) {
	c.mu.Lock()
	session, ok := c.sessions[id]
	if !ok || session.Status != domain.StatusPreparing {
		c.mu.Unlock()
		return
	}
	session.Status = domain.StatusInProgress
	units := session.Request.Units
	c.mu.Unlock()

	ctx, span := c.tracer.Start(ctx, "reload")
	defer span.End()
	span.SetAttribute("session", id)
	span.SetAttribute("units", len(units))

	result, err := c.pipeline(ctx, id, units)

	c.mu.Lock()
	defer c.mu.Unlock()
	session, ok = c.sessions[id]
	if !ok {
		// Timed out or otherwise terminated while the pipeline was running.
		return
	}
	session.Result = result
	if err != nil {
		span.RecordError(err)
		c.terminateLocked(session, domain.StatusFailed, err)
		return
	}
	c.terminateLocked(session, domain.StatusCompleted, nil)
}

// pipeline executes capture, rebuild-set resolution, compile, patch, and
// restore. A failure at any stage is classified and routed through recovery;
// the state snapshot is deliberately not consumed on failure.
func (c *Coordinator) pipeline(ctx context.Context, id string, units []domain.InternedString) (*domain.BuildResult, error) {
	contextFile := ""
	if len(units) > 0 {
		contextFile = units[0].String()
	}

	if _, err := c.preserver.Capture(); err != nil {
		c.handleFailure(err, "capture", contextFile, id)
		return nil, err
	}

	rebuildSet := c.tracker.RebuildSetFor(units)

	result, err := c.builder.Compile(ctx, rebuildSet)
	if err != nil {
		c.handleFailure(err, "build", contextFile, id)
		return nil, err
	}
	if !result.Succeeded() {
		err = zerr.With(zerr.Wrap(domain.ErrReloadFailed, "compilation produced errors"), "errors", len(result.Errors))
		c.handleFailure(compileError(result), "build", contextFile, id)
		return result, err
	}

	if _, err := c.patcher.Apply(result); err != nil {
		c.handleFailure(err, "patch", contextFile, id)
		return result, err
	}

	if err := c.preserver.Restore(); err != nil {
		c.handleFailure(err, "restore", contextFile, id)
		return result, err
	}

	return result, nil
}

// timeOut forces a running session into the timedOut state. The pipeline
// goroutine notices the terminal status when it finishes and discards its
// outcome.
func (c *Coordinator) timeOut(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	session, ok := c.sessions[id]
	if !ok || !session.Status.CanTransitionTo(domain.StatusTimedOut) {
		return
	}
	err := zerr.With(zerr.Wrap(domain.ErrReloadTimedOut, "session deadline exceeded"), "timeout", c.cfg.ReloadTimeout)
	c.terminateLocked(session, domain.StatusTimedOut, err)
	c.recovery.Handle(err, domain.ErrorContext{Stage: "reload"}, id)
}

// terminateLocked moves the session into a terminal status, records it in the
// bounded history, and drains the queue into freed slots.
//
// Terminal sessions leave the active map so a long-running watch does not
// accumulate them; they stay resolvable while their record is in history.
func (c *Coordinator) terminateLocked(session *domain.ReloadSession, status domain.SessionStatus, err error) {
	if !session.Status.CanTransitionTo(status) {
		c.logger.Warn("illegal session transition " + string(session.Status) + " to " + string(status))
		return
	}
	session.Status = status
	session.EndedAt = time.Now()
	session.Err = err

	if timer, armed := c.timers[session.ID]; armed {
		timer.Stop()
		delete(c.timers, session.ID)
	}

	delete(c.sessions, session.ID)
	c.terminated[session.ID] = session

	record := domain.ReloadRecord{
		SessionID: session.ID,
		Units:     session.Request.Units,
		Priority:  session.Request.Priority,
		Status:    status,
		StartedAt: session.StartedAt,
		EndedAt:   session.EndedAt,
	}
	if err != nil {
		record.Error = err.Error()
	}
	c.history = append(c.history, record)
	if c.cfg.MaxHistory > 0 && len(c.history) > c.cfg.MaxHistory {
		for _, evicted := range c.history[:len(c.history)-c.cfg.MaxHistory] {
			delete(c.terminated, evicted.SessionID)
		}
		c.history = c.history[len(c.history)-c.cfg.MaxHistory:]
	}

	c.drainLocked()
}

// drainLocked promotes queued sessions into freed concurrency slots.
func (c *Coordinator) drainLocked() {
	for len(c.queue) > 0 && c.runningCountLocked() < c.cfg.MaxConcurrentReloads {
		idx := c.nextQueuedLocked()
		entry := c.queue[idx]
		c.queue = append(c.queue[:idx], c.queue[idx+1:]...)

		entry.session.Status = domain.StatusPreparing
		c.startLocked(entry.ctx, entry.session)
	}
}

// nextQueuedLocked picks the next queue entry: highest priority first with
// FIFO ties, or plain FIFO when priority ordering is disabled.
func (c *Coordinator) nextQueuedLocked() int {
	best := 0
	if !c.cfg.PrioritizeCriticalReloads {
		for i, entry := range c.queue {
			if entry.seq < c.queue[best].seq {
				best = i
			}
		}
		return best
	}
	for i, entry := range c.queue {
		current := c.queue[best]
		if entry.session.Request.Priority > current.session.Request.Priority ||
			(entry.session.Request.Priority == current.session.Request.Priority && entry.seq < current.seq) {
			best = i
		}
	}
	return best
}

// runningCountLocked counts sessions holding a concurrency slot.
func (c *Coordinator) runningCountLocked() int {
	count := 0
	for _, session := range c.sessions {
		if session.Status == domain.StatusPreparing || session.Status == domain.StatusInProgress {
			count++
		}
	}
	return count
}

func (c *Coordinator) handleFailure(err error, stage, file, sessionID string) {
	record := c.recovery.Handle(err, domain.ErrorContext{Stage: stage, File: file}, sessionID)
	c.logger.Error(zerr.With(zerr.Wrap(err, "reload stage "+stage+" failed"), "outcome", string(record.Outcome)))
}

// compileError flattens build diagnostics into one error for classification.
func compileError(result *domain.BuildResult) error {
	messages := make([]string, 0, len(result.Errors))
	for _, diag := range result.Errors {
		messages = append(messages, diag.Message)
	}
	return zerr.Wrap(domain.ErrReloadFailed, "compilation failed: "+strings.Join(messages, "; "))
}

// expandUnits applies the naming-convention pairing: a model unit pulls in
// its view sibling and vice versa. A sibling joins the set only if it exists
// on disk; the convention must not fabricate units. The expansion runs once
// per request.
func expandUnits(units []domain.InternedString) []domain.InternedString {
	seen := make(map[domain.InternedString]struct{}, len(units))
	expanded := make([]domain.InternedString, 0, len(units))
	add := func(unit domain.InternedString) {
		if _, ok := seen[unit]; !ok {
			seen[unit] = struct{}{}
			expanded = append(expanded, unit)
		}
	}

	for _, unit := range units {
		add(unit)
		if sibling, ok := pairedUnit(unit.String()); ok && unitExists(sibling) {
			add(domain.NewInternedString(sibling))
		}
	}
	return expanded
}

func unitExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// pairedUnit maps foo_model.ext to foo_view.ext and back.
func pairedUnit(path string) (string, bool) {
	if base, rest, ok := cutLast(path, "_model."); ok {
		return base + "_view." + rest, true
	}
	if base, rest, ok := cutLast(path, "_view."); ok {
		return base + "_model." + rest, true
	}
	return "", false
}

func cutLast(s, sep string) (before, after string, found bool) {
	idx := strings.LastIndex(s, sep)
	if idx < 0 {
		return "", "", false
	}
	return s[:idx], s[idx+len(sep):], true
}
