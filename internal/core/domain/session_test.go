package domain_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.trai.ch/ember/internal/core/domain"
)

func TestSessionStatus_Terminal(t *testing.T) {
	terminal := []domain.SessionStatus{
		domain.StatusCompleted, domain.StatusFailed, domain.StatusCancelled, domain.StatusTimedOut,
	}
	for _, status := range terminal {
		assert.True(t, status.Terminal(), string(status))
	}

	active := []domain.SessionStatus{
		domain.StatusQueued, domain.StatusPreparing, domain.StatusInProgress,
	}
	for _, status := range active {
		assert.False(t, status.Terminal(), string(status))
	}
}

func TestSessionStatus_CanTransitionTo(t *testing.T) {
	tests := []struct {
		from    domain.SessionStatus
		to      domain.SessionStatus
		allowed bool
	}{
		{domain.StatusQueued, domain.StatusPreparing, true},
		{domain.StatusQueued, domain.StatusCancelled, true},
		{domain.StatusQueued, domain.StatusInProgress, false},
		{domain.StatusQueued, domain.StatusCompleted, false},
		{domain.StatusPreparing, domain.StatusInProgress, true},
		{domain.StatusPreparing, domain.StatusCancelled, true},
		{domain.StatusPreparing, domain.StatusFailed, true},
		{domain.StatusPreparing, domain.StatusTimedOut, true},
		{domain.StatusPreparing, domain.StatusCompleted, false},
		{domain.StatusInProgress, domain.StatusCompleted, true},
		{domain.StatusInProgress, domain.StatusFailed, true},
		{domain.StatusInProgress, domain.StatusTimedOut, true},
		{domain.StatusInProgress, domain.StatusCancelled, false},
		{domain.StatusCompleted, domain.StatusQueued, false},
		{domain.StatusFailed, domain.StatusInProgress, false},
		{domain.StatusCancelled, domain.StatusPreparing, false},
		{domain.StatusTimedOut, domain.StatusCompleted, false},
	}

	for _, tt := range tests {
		got := tt.from.CanTransitionTo(tt.to)
		assert.Equal(t, tt.allowed, got, "%s -> %s", tt.from, tt.to)
	}
}

func TestReloadSession_Duration(t *testing.T) {
	start := time.Now()
	session := &domain.ReloadSession{
		Status:    domain.StatusInProgress,
		StartedAt: start,
	}
	assert.Zero(t, session.Duration())

	session.Status = domain.StatusCompleted
	session.EndedAt = start.Add(250 * time.Millisecond)
	assert.Equal(t, 250*time.Millisecond, session.Duration())
}
