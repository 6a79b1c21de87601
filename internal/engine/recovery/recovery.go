// Package recovery classifies pipeline failures and drives automatic
// recovery strategies.
package recovery

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.trai.ch/ember/internal/core/domain"
	"go.trai.ch/ember/internal/core/ports"
)

// patternThreshold is how many identical failures make a reported pattern.
const patternThreshold = 3

// Strategy is one recovery attempt for a class of errors. Recover returns nil
// when the error is considered handled.
type Strategy struct {
	Name    string
	Recover func(record domain.ErrorRecord) error
}

type patternKey struct {
	description string
	file        string
}

// Handler classifies errors, runs registered recovery strategies, and keeps a
// bounded history plus repeated-failure patterns.
type Handler struct {
	logger ports.Logger
	cfg    domain.RecoveryConfig

	mu         sync.Mutex
	strategies map[domain.ErrorKind][]Strategy
	history    []domain.ErrorRecord
	patterns   map[patternKey]*domain.ErrorPattern
}

// NewHandler creates a new error handler.
func NewHandler(logger ports.Logger, cfg domain.RecoveryConfig) *Handler {
	if cfg.MaxErrorHistory <= 0 {
		cfg.MaxErrorHistory = domain.DefaultConfig().Recovery.MaxErrorHistory
	}
	return &Handler{
		logger:     logger,
		cfg:        cfg,
		strategies: make(map[domain.ErrorKind][]Strategy),
		patterns:   make(map[patternKey]*domain.ErrorPattern),
	}
}

// RegisterStrategy adds a recovery strategy for the given error kind.
// Strategies run in registration order; the first one to succeed wins.
func (h *Handler) RegisterStrategy(kind domain.ErrorKind, strategy Strategy) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.strategies[kind] = append(h.strategies[kind], strategy)
}

// Handle classifies the error, attempts recovery, and records the outcome.
// It never returns an error itself; a failure to recover is an outcome, not
// a failure of the handler.
func (h *Handler) Handle(err error, errCtx domain.ErrorContext, sessionID string) domain.ErrorRecord {
	h.mu.Lock()
	defer h.mu.Unlock()

	record := domain.ErrorRecord{
		ID:          uuid.NewString(),
		Description: err.Error(),
		Kind:        Classify(err.Error()),
		Context:     errCtx,
		SessionID:   sessionID,
		OccurredAt:  time.Now(),
	}

	if !h.cfg.AutoRecoveryEnabled {
		record.Outcome = domain.OutcomeSkipped
	} else {
		record.Outcome = domain.OutcomeUnhandled
		for _, strategy := range h.strategies[record.Kind] {
			if recoverErr := strategy.Recover(record); recoverErr == nil {
				record.Outcome = domain.OutcomeRecovered
				record.Strategy = strategy.Name
				break
			} else {
				h.logger.Warn("recovery strategy " + strategy.Name + " failed: " + recoverErr.Error())
			}
		}
	}

	if h.cfg.PatternDetectionEnabled {
		h.trackPatternLocked(record)
	}

	h.history = append(h.history, record)
	if len(h.history) > h.cfg.MaxErrorHistory {
		h.history = h.history[len(h.history)-h.cfg.MaxErrorHistory:]
	}

	return record
}

// History returns the most recent records, newest first. A non-positive limit
// returns the full retained history.
func (h *Handler) History(limit int) []domain.ErrorRecord {
	h.mu.Lock()
	defer h.mu.Unlock()

	if limit <= 0 || limit > len(h.history) {
		limit = len(h.history)
	}
	records := make([]domain.ErrorRecord, 0, limit)
	for i := len(h.history) - 1; i >= len(h.history)-limit; i-- {
		records = append(records, h.history[i])
	}
	return records
}

// Patterns returns the detected repeated-failure patterns, most frequent
// first. A pattern is reported once the same description and file have been
// seen three times.
func (h *Handler) Patterns() []domain.ErrorPattern {
	h.mu.Lock()
	defer h.mu.Unlock()

	detected := make([]domain.ErrorPattern, 0, len(h.patterns))
	for _, pattern := range h.patterns {
		if pattern.Frequency >= patternThreshold {
			detected = append(detected, *pattern)
		}
	}
	sort.Slice(detected, func(i, j int) bool {
		if detected[i].Frequency != detected[j].Frequency {
			return detected[i].Frequency > detected[j].Frequency
		}
		return detected[i].Description < detected[j].Description
	})
	return detected
}

// Statistics summarizes the retained history.
func (h *Handler) Statistics() domain.ErrorStatistics {
	h.mu.Lock()
	defer h.mu.Unlock()

	stats := domain.ErrorStatistics{
		ByKind: make(map[domain.ErrorKind]int),
	}
	cutoff := time.Now().Add(-time.Hour)
	for _, record := range h.history {
		stats.Total++
		stats.ByKind[record.Kind]++
		switch record.Outcome {
		case domain.OutcomeRecovered:
			stats.Recovered++
		case domain.OutcomeUnhandled:
			stats.Unhandled++
		}
		if record.OccurredAt.After(cutoff) {
			stats.LastHour++
		}
	}
	if attempted := stats.Recovered + stats.Unhandled; attempted > 0 {
		stats.RecoveryRate = float64(stats.Recovered) / float64(attempted)
	}
	return stats
}

func (h *Handler) trackPatternLocked(record domain.ErrorRecord) {
	key := patternKey{description: record.Description, file: record.Context.File}
	pattern, seen := h.patterns[key]
	if !seen {
		h.patterns[key] = &domain.ErrorPattern{
			Description: record.Description,
			File:        record.Context.File,
			Frequency:   1,
			FirstSeen:   record.OccurredAt,
			LastSeen:    record.OccurredAt,
		}
		return
	}
	pattern.Frequency++
	pattern.LastSeen = record.OccurredAt
	if pattern.Frequency == patternThreshold {
		h.logger.Warn("repeated failure detected: " + record.Description)
	}
}
