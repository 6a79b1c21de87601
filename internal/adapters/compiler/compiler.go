// Package compiler provides a shell-based compiler adapter.
//
// The adapter satisfies the compiler contract only: unit identifiers in,
// artifacts and structured diagnostics out. The concrete invocation syntax is
// whatever command the configuration provides.
package compiler

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"go.trai.ch/ember/internal/core/domain"
	"go.trai.ch/ember/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.Compiler = (*Shell)(nil)

// Shell invokes an external compiler command with the changed unit paths
// appended as arguments.
type Shell struct {
	cfg    domain.BuilderConfig
	logger ports.Logger
}

// NewShell creates a new shell compiler with the given configuration.
func NewShell(cfg domain.BuilderConfig, logger ports.Logger) *Shell {
	return &Shell{cfg: cfg, logger: logger}
}

// Compile runs the configured command for the given units.
//
// Unit-local failures are returned as error diagnostics in the second return
// value; only infrastructure failures (launch, timeout) return a non-nil error.
func (s *Shell) Compile(
	ctx context.Context,
	units []domain.InternedString,
) ([]domain.Artifact, []domain.Diagnostic, error) {
	if len(s.cfg.Command) == 0 {
		return nil, nil, domain.ErrNoCompilerCommand
	}

	if s.cfg.CompilationTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.CompilationTimeout)
		defer cancel()
	}

	args := make([]string, 0, len(s.cfg.Command)-1+len(units))
	args = append(args, s.cfg.Command[1:]...)
	for _, unit := range units {
		args = append(args, unit.String())
	}

	cmd := exec.CommandContext(ctx, s.cfg.Command[0], args...) //nolint:gosec // user provided command
	cmd.Env = os.Environ()

	var output bytes.Buffer
	cmd.Stdout = &output
	cmd.Stderr = &output

	runErr := cmd.Run()
	diags := ParseDiagnostics(output.String())

	if runErr != nil {
		if ctx.Err() != nil {
			return nil, nil, zerr.With(zerr.Wrap(domain.ErrCompilationTimeout, "compiler exceeded deadline"), "timeout", s.cfg.CompilationTimeout.String())
		}

		var exitErr *exec.ExitError
		if !errors.As(runErr, &exitErr) {
			return nil, nil, zerr.Wrap(domain.ErrCompilerLaunchFailed, runErr.Error())
		}

		// Compiler ran but failed. Surface what it said as diagnostics; a
		// silent non-zero exit becomes a single error diagnostic.
		if !hasErrors(diags) {
			diags = append(diags, domain.Diagnostic{
				Severity: domain.SeverityError,
				Message:  strings.TrimSpace(output.String()),
			})
		}
		s.logDiagnostics(diags)
		return nil, diags, nil
	}

	s.logDiagnostics(diags)

	if hasErrors(diags) {
		return nil, diags, nil
	}

	artifacts := make([]domain.Artifact, len(units))
	for i, unit := range units {
		artifacts[i] = domain.Artifact{
			Unit:    unit,
			Path:    unit,
			Symbols: []string{unitSymbol(unit)},
		}
	}
	return artifacts, diags, nil
}

func (s *Shell) logDiagnostics(diags []domain.Diagnostic) {
	if s.logger == nil {
		return
	}
	for _, d := range diags {
		if d.Severity == domain.SeverityWarning {
			s.logger.Warn(d.Message)
		}
	}
}

// ParseDiagnostics classifies compiler output lines by textual marker.
// Lines containing "error:" are fatal, lines containing "warning:" are not;
// everything else is passed through unclassified.
func ParseDiagnostics(output string) []domain.Diagnostic {
	var diags []domain.Diagnostic
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		switch {
		case strings.Contains(line, "error:"):
			diags = append(diags, domain.Diagnostic{Severity: domain.SeverityError, Message: line})
		case strings.Contains(line, "warning:"):
			diags = append(diags, domain.Diagnostic{Severity: domain.SeverityWarning, Message: line})
		}
	}
	return diags
}

func hasErrors(diags []domain.Diagnostic) bool {
	for _, d := range diags {
		if d.Severity == domain.SeverityError {
			return true
		}
	}
	return false
}

// unitSymbol derives the primary patchable symbol from a unit path.
func unitSymbol(unit domain.InternedString) string {
	base := filepath.Base(unit.String())
	return strings.TrimSuffix(base, filepath.Ext(base))
}
