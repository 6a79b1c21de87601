package compiler_test

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/ember/internal/adapters/compiler"
	"go.trai.ch/ember/internal/core/domain"
)

type fakeLogger struct{}

func (fakeLogger) Info(string)         {}
func (fakeLogger) Warn(string)         {}
func (fakeLogger) Error(error)         {}
func (fakeLogger) SetOutput(io.Writer) {}
func (fakeLogger) SetJSON(bool)        {}

func TestParseDiagnostics(t *testing.T) {
	output := `
main.swift:4:12: error: expected '}' at end of brace statement
main.swift:9:5: warning: variable 'x' was never used
linking module
util.swift:1:1: error: cannot find 'helper' in scope
`

	diags := compiler.ParseDiagnostics(output)
	require.Len(t, diags, 3)
	assert.Equal(t, domain.SeverityError, diags[0].Severity)
	assert.Contains(t, diags[0].Message, "expected '}'")
	assert.Equal(t, domain.SeverityWarning, diags[1].Severity)
	assert.Equal(t, domain.SeverityError, diags[2].Severity)
}

func TestParseDiagnostics_Empty(t *testing.T) {
	assert.Empty(t, compiler.ParseDiagnostics(""))
	assert.Empty(t, compiler.ParseDiagnostics("all good\n"))
}

func TestShell_Compile_Success(t *testing.T) {
	shell := compiler.NewShell(domain.BuilderConfig{
		Command:            []string{"true"},
		CompilationTimeout: 10 * time.Second,
	}, fakeLogger{})

	units := domain.NewInternedStrings([]string{"src/profile_view.swift"})
	artifacts, diags, err := shell.Compile(context.Background(), units)
	require.NoError(t, err)
	assert.Empty(t, diags)
	require.Len(t, artifacts, 1)
	assert.Equal(t, units[0], artifacts[0].Unit)
	assert.Equal(t, []string{"profile_view"}, artifacts[0].Symbols)
}

func TestShell_Compile_DiagnosticsFromOutput(t *testing.T) {
	shell := compiler.NewShell(domain.BuilderConfig{
		Command: []string{"sh", "-c", `echo "main.swift:1: error: boom"; exit 1`},
	}, fakeLogger{})

	artifacts, diags, err := shell.Compile(context.Background(), domain.NewInternedStrings([]string{"main.swift"}))
	require.NoError(t, err, "compile failure is data, not an error")
	assert.Empty(t, artifacts)
	require.Len(t, diags, 1)
	assert.Equal(t, domain.SeverityError, diags[0].Severity)
	assert.Contains(t, diags[0].Message, "boom")
}

func TestShell_Compile_SilentFailure(t *testing.T) {
	shell := compiler.NewShell(domain.BuilderConfig{
		Command: []string{"sh", "-c", "exit 3"},
	}, fakeLogger{})

	_, diags, err := shell.Compile(context.Background(), domain.NewInternedStrings([]string{"main.swift"}))
	require.NoError(t, err)
	require.Len(t, diags, 1, "a silent non-zero exit becomes one error diagnostic")
	assert.Equal(t, domain.SeverityError, diags[0].Severity)
}

func TestShell_Compile_LaunchFailure(t *testing.T) {
	shell := compiler.NewShell(domain.BuilderConfig{
		Command: []string{"/nonexistent/compiler"},
	}, fakeLogger{})

	_, _, err := shell.Compile(context.Background(), domain.NewInternedStrings([]string{"main.swift"}))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrCompilerLaunchFailed)
}

func TestShell_Compile_Timeout(t *testing.T) {
	shell := compiler.NewShell(domain.BuilderConfig{
		Command:            []string{"sh", "-c", "sleep 10"},
		CompilationTimeout: 50 * time.Millisecond,
	}, fakeLogger{})

	_, _, err := shell.Compile(context.Background(), domain.NewInternedStrings([]string{"main.swift"}))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrCompilationTimeout)
}

func TestShell_Compile_NoCommand(t *testing.T) {
	shell := compiler.NewShell(domain.BuilderConfig{}, fakeLogger{})

	_, _, err := shell.Compile(context.Background(), nil)
	assert.ErrorIs(t, err, domain.ErrNoCompilerCommand)
}
