package builder_test

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/ember/internal/core/domain"
	"go.trai.ch/ember/internal/engine/builder"
	"go.trai.ch/ember/internal/engine/tracker"
)

type fakeLogger struct{}

func (fakeLogger) Info(string)         {}
func (fakeLogger) Warn(string)         {}
func (fakeLogger) Error(error)         {}
func (fakeLogger) SetOutput(io.Writer) {}
func (fakeLogger) SetJSON(bool)        {}

type fakeCompiler struct {
	calls   [][]domain.InternedString
	diags   []domain.Diagnostic
	err     error
	entered chan struct{}
	release chan struct{}
}

func (c *fakeCompiler) Compile(
	_ context.Context,
	units []domain.InternedString,
) ([]domain.Artifact, []domain.Diagnostic, error) {
	c.calls = append(c.calls, units)
	if c.entered != nil {
		close(c.entered)
		c.entered = nil
	}
	if c.release != nil {
		<-c.release
	}
	if c.err != nil {
		return nil, nil, c.err
	}
	artifacts := make([]domain.Artifact, len(units))
	for i, unit := range units {
		artifacts[i] = domain.Artifact{Unit: unit, Path: unit, Symbols: []string{unit.String()}}
	}
	return artifacts, c.diags, nil
}

type fakeFingerprinter struct {
	hashes map[string]uint64
	err    error
}

func (f *fakeFingerprinter) Fingerprint(path string) (uint64, error) {
	if f.err != nil {
		return 0, f.err
	}
	return f.hashes[path], nil
}

func newBuilder(comp *fakeCompiler, fp *fakeFingerprinter) (*builder.Builder, *tracker.Tracker) {
	tr := tracker.New(fakeLogger{})
	cfg := domain.BuilderConfig{IncrementalEnabled: true}
	return builder.New(comp, fp, tr, fakeLogger{}, cfg), tr
}

func TestBuilder_Compile_Success(t *testing.T) {
	comp := &fakeCompiler{}
	fp := &fakeFingerprinter{hashes: map[string]uint64{"a.swift": 1, "b.swift": 2}}
	b, tr := newBuilder(comp, fp)

	result, err := b.Compile(context.Background(), domain.NewInternedStrings([]string{"a.swift", "b.swift"}))
	require.NoError(t, err)
	require.True(t, result.Succeeded())
	assert.Len(t, result.Artifacts, 2)
	assert.Equal(t, 2, b.CacheSize())
	assert.Equal(t, 2, tr.UnitCount())
}

func TestBuilder_Compile_SkipsUnchangedUnits(t *testing.T) {
	comp := &fakeCompiler{}
	fp := &fakeFingerprinter{hashes: map[string]uint64{"a.swift": 1, "b.swift": 2}}
	b, _ := newBuilder(comp, fp)

	changed := domain.NewInternedStrings([]string{"a.swift", "b.swift"})
	_, err := b.Compile(context.Background(), changed)
	require.NoError(t, err)

	// Only a.swift changes on disk.
	fp.hashes["a.swift"] = 10

	result, err := b.Compile(context.Background(), changed)
	require.NoError(t, err)
	require.Len(t, comp.calls, 2)
	assert.Equal(t, domain.NewInternedStrings([]string{"a.swift"}), comp.calls[1])
	assert.Equal(t, domain.NewInternedStrings([]string{"a.swift"}), result.Units)
}

func TestBuilder_Compile_NothingToDo(t *testing.T) {
	comp := &fakeCompiler{}
	fp := &fakeFingerprinter{hashes: map[string]uint64{"a.swift": 1}}
	b, _ := newBuilder(comp, fp)

	changed := domain.NewInternedStrings([]string{"a.swift"})
	_, err := b.Compile(context.Background(), changed)
	require.NoError(t, err)

	result, err := b.Compile(context.Background(), changed)
	require.NoError(t, err)
	assert.Empty(t, result.Units)
	assert.Len(t, comp.calls, 1)
}

func TestBuilder_Compile_ErrorsAreData(t *testing.T) {
	comp := &fakeCompiler{diags: []domain.Diagnostic{
		{Severity: domain.SeverityError, Message: "a.swift:3: error: expected '}'"},
		{Severity: domain.SeverityWarning, Message: "a.swift:9: warning: unused variable"},
	}}
	fp := &fakeFingerprinter{hashes: map[string]uint64{"a.swift": 1}}
	b, _ := newBuilder(comp, fp)

	result, err := b.Compile(context.Background(), domain.NewInternedStrings([]string{"a.swift"}))
	require.NoError(t, err)
	assert.False(t, result.Succeeded())
	assert.Len(t, result.Errors, 1)
	assert.Len(t, result.Warnings, 1)

	// Failed builds must not populate the cache.
	assert.Equal(t, 0, b.CacheSize())
}

func TestBuilder_Compile_InfrastructureFailure(t *testing.T) {
	comp := &fakeCompiler{err: domain.ErrCompilerLaunchFailed}
	fp := &fakeFingerprinter{hashes: map[string]uint64{"a.swift": 1}}
	b, _ := newBuilder(comp, fp)

	_, err := b.Compile(context.Background(), domain.NewInternedStrings([]string{"a.swift"}))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrCompilerLaunchFailed)
}

func TestBuilder_Compile_SingleFlight(t *testing.T) {
	comp := &fakeCompiler{
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	entered := comp.entered
	fp := &fakeFingerprinter{hashes: map[string]uint64{"a.swift": 1}}
	b, _ := newBuilder(comp, fp)

	done := make(chan error, 1)
	go func() {
		_, err := b.Compile(context.Background(), domain.NewInternedStrings([]string{"a.swift"}))
		done <- err
	}()

	<-entered
	_, err := b.Compile(context.Background(), domain.NewInternedStrings([]string{"b.swift"}))
	assert.ErrorIs(t, err, domain.ErrConcurrentBuildInProgress)

	close(comp.release)
	require.NoError(t, <-done)
}

func TestBuilder_ForceFullRebuild(t *testing.T) {
	comp := &fakeCompiler{}
	fp := &fakeFingerprinter{hashes: map[string]uint64{"a.swift": 1}}
	b, _ := newBuilder(comp, fp)

	changed := domain.NewInternedStrings([]string{"a.swift"})
	_, err := b.Compile(context.Background(), changed)
	require.NoError(t, err)

	b.ForceFullRebuild()

	result, err := b.Compile(context.Background(), changed)
	require.NoError(t, err)
	assert.Equal(t, changed, result.Units)
}

func TestBuilder_NeedsRebuild(t *testing.T) {
	comp := &fakeCompiler{}
	fp := &fakeFingerprinter{hashes: map[string]uint64{"a.swift": 1}}
	b, _ := newBuilder(comp, fp)

	unit := domain.NewInternedString("a.swift")
	assert.True(t, b.NeedsRebuild(unit), "never built")

	_, err := b.Compile(context.Background(), []domain.InternedString{unit})
	require.NoError(t, err)
	assert.False(t, b.NeedsRebuild(unit), "fingerprint unchanged")

	fp.hashes["a.swift"] = 2
	assert.True(t, b.NeedsRebuild(unit), "fingerprint changed")

	fp.err = errors.New("stat failed")
	assert.True(t, b.NeedsRebuild(unit), "unreadable unit")
}
