package app_test

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/ember/internal/adapters/config"
	"go.trai.ch/ember/internal/adapters/fs"
	"go.trai.ch/ember/internal/adapters/logger"
	"go.trai.ch/ember/internal/adapters/runtime"
	"go.trai.ch/ember/internal/adapters/telemetry"
	"go.trai.ch/ember/internal/app"
	"go.trai.ch/ember/internal/core/domain"
	"go.trai.ch/ember/internal/engine/tracker"
)

func newTestApp(t *testing.T) *app.App {
	t.Helper()

	log := logger.New()
	log.SetOutput(io.Discard)

	return app.New(
		config.NewLoader(log),
		log,
		telemetry.NewNoopTracer(),
		fs.NewFingerprinter(),
		runtime.NewTable(),
		tracker.New(log),
	)
}

// writeProject lays out a source file and an ember.yaml whose compiler is a
// no-op shell command, so reload sessions run the full pipeline for real.
func writeProject(t *testing.T, command string) (string, string) {
	t.Helper()
	dir := t.TempDir()

	unit := filepath.Join(dir, "profile_view.swift")
	require.NoError(t, os.WriteFile(unit, []byte("struct ProfileView {}\n"), 0o600))

	cfg := `
root: .
builder:
  command: ["sh", "-c", "` + command + `"]
coordinator:
  reloadTimeout: 5s
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, config.FileName), []byte(cfg), 0o600))
	return dir, unit
}

func waitForHistory(t *testing.T, a *app.App, want int) []domain.ReloadRecord {
	t.Helper()
	var history []domain.ReloadRecord
	require.Eventually(t, func() bool {
		var err error
		history, err = a.ReloadHistory(0)
		require.NoError(t, err)
		return len(history) >= want
	}, 5*time.Second, 10*time.Millisecond)
	return history
}

func TestApp_Reload_EndToEnd(t *testing.T) {
	dir, unit := writeProject(t, "true")
	a := newTestApp(t)
	require.NoError(t, a.Init(dir))

	id, err := a.Reload(context.Background(), []string{unit}, domain.PriorityNormal, "test")
	require.NoError(t, err)
	require.NotEmpty(t, id)

	history := waitForHistory(t, a, 1)
	assert.Equal(t, id, history[0].SessionID)
	assert.Equal(t, domain.StatusCompleted, history[0].Status)

	status, err := a.Status()
	require.NoError(t, err)
	assert.Equal(t, 1, status.ActivePatches)
	assert.Equal(t, 1, status.CachedUnits)

	stats, err := a.ReloadStatistics()
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Succeeded)
}

func TestApp_Reload_CompileFailure(t *testing.T) {
	dir, unit := writeProject(t, "echo 'x: error: boom'; exit 1")
	a := newTestApp(t)
	require.NoError(t, a.Init(dir))

	_, err := a.Reload(context.Background(), []string{unit}, domain.PriorityNormal, "test")
	require.NoError(t, err)

	history := waitForHistory(t, a, 1)
	assert.Equal(t, domain.StatusFailed, history[0].Status)

	report, err := a.DiagnosticReport()
	require.NoError(t, err)
	assert.Equal(t, 1, report.Errors.Total)
}

func TestApp_StateObservers(t *testing.T) {
	dir, _ := writeProject(t, "true")
	a := newTestApp(t)
	require.NoError(t, a.Init(dir))

	obs := &listObserver{id: domain.StateID{Category: domain.StateUserPreferences, Name: "theme"}, value: "dark"}
	require.NoError(t, a.RegisterObserver(obs))

	err := a.RegisterObserver(obs)
	assert.ErrorIs(t, err, domain.ErrObserverAlreadyRegistered)

	snapshot, err := a.CaptureState()
	require.NoError(t, err)
	assert.Equal(t, "dark", snapshot.Values[obs.id])

	obs.value = "light"
	require.NoError(t, a.RestoreState())
	assert.Equal(t, "dark", obs.value)
}

func TestApp_CancelQueuedReload(t *testing.T) {
	dir, unit := writeProject(t, "sleep 1")
	a := newTestApp(t)
	require.NoError(t, a.Init(dir))

	_, err := a.Reload(context.Background(), []string{unit}, domain.PriorityNormal, "first")
	require.NoError(t, err)

	queued, err := a.Reload(context.Background(), []string{unit}, domain.PriorityNormal, "second")
	require.ErrorIs(t, err, domain.ErrReloadInProgress)
	require.NoError(t, a.CancelReload(queued))

	history := waitForHistory(t, a, 1)
	statuses := make([]domain.SessionStatus, 0, len(history))
	for _, record := range history {
		statuses = append(statuses, record.Status)
	}
	assert.Contains(t, statuses, domain.StatusCancelled)
}

func TestApp_Watch_ReloadsOnFileChange(t *testing.T) {
	dir, unit := writeProject(t, "true")
	cfg := `
root: .
watcher:
  debounceInterval: 50ms
  watchedExtensions: [".swift"]
builder:
  command: ["sh", "-c", "true"]
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, config.FileName), []byte(cfg), 0o600))

	a := newTestApp(t)
	require.NoError(t, a.Init(dir))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- a.Watch(ctx) }()

	// Give the watcher time to arm, then touch the source file.
	time.Sleep(200 * time.Millisecond)
	require.NoError(t, os.WriteFile(unit, []byte("struct ProfileView { let v = 2 }\n"), 0o600))

	waitForHistory(t, a, 1)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop after cancellation")
	}
}

func TestApp_InitFailure(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, config.FileName), []byte("watcher: [broken\n"), 0o600))

	a := newTestApp(t)
	err := a.Init(dir)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrConfigParseFailed)
}

type listObserver struct {
	id    domain.StateID
	value string
}

func (o *listObserver) ID() domain.StateID { return o.id }

func (o *listObserver) Capture() (any, error) { return o.value, nil }

func (o *listObserver) Restore(value any) error {
	s, ok := value.(string)
	if !ok {
		return errors.New("unexpected snapshot type")
	}
	o.value = s
	return nil
}
