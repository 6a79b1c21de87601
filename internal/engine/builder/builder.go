// Package builder implements dependency-aware incremental compilation.
package builder

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.trai.ch/ember/internal/core/domain"
	"go.trai.ch/ember/internal/core/ports"
	"go.trai.ch/ember/internal/engine/tracker"
	"go.trai.ch/zerr"
)

// Builder invokes the external compiler for a rebuild set and maintains a
// compilation cache keyed by unit and modification fingerprint.
//
// Compilation is single-flight per builder instance: a second concurrent
// Compile fails fast with ErrConcurrentBuildInProgress instead of queueing,
// to avoid toolchain contention.
type Builder struct {
	compiler      ports.Compiler
	fingerprinter ports.Fingerprinter
	tracker       *tracker.Tracker
	logger        ports.Logger
	cfg           domain.BuilderConfig

	inFlight atomic.Bool

	mu             sync.Mutex
	cache          map[domain.InternedString]domain.UnitFingerprint
	forceSelection bool
}

// New creates a new Builder.
func New(
	compiler ports.Compiler,
	fingerprinter ports.Fingerprinter,
	tr *tracker.Tracker,
	logger ports.Logger,
	cfg domain.BuilderConfig,
) *Builder {
	return &Builder{
		compiler:      compiler,
		fingerprinter: fingerprinter,
		tracker:       tr,
		logger:        logger,
		cfg:           cfg,
		cache:         make(map[domain.InternedString]domain.UnitFingerprint),
	}
}

// Compile builds the given units and returns the structured result.
//
// A result with non-empty Errors is a valid return value; only infrastructure
// failures return a non-nil error. On success the compilation cache and the
// dependency tracker are updated atomically with the result.
func (b *Builder) Compile(ctx context.Context, units []domain.InternedString) (*domain.BuildResult, error) {
	if !b.inFlight.CompareAndSwap(false, true) {
		return nil, domain.ErrConcurrentBuildInProgress
	}
	defer b.inFlight.Store(false)

	selected := b.selectUnits(units)
	if len(selected) == 0 {
		return &domain.BuildResult{}, nil
	}

	start := time.Now()
	artifacts, diags, err := b.compiler.Compile(ctx, selected)
	duration := time.Since(start)

	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, "compiler invocation failed"), "units", len(selected))
	}

	result := &domain.BuildResult{
		Units:     selected,
		Artifacts: artifacts,
		Duration:  duration,
	}
	for _, d := range diags {
		if d.Severity == domain.SeverityError {
			result.Errors = append(result.Errors, d)
		} else {
			result.Warnings = append(result.Warnings, d)
		}
	}

	if result.Succeeded() {
		b.commit(result)
	}

	return result, nil
}

// NeedsRebuild reports whether the unit's current fingerprint differs from
// the cached one. Units that were never built, or whose fingerprint cannot be
// computed, always need a rebuild.
func (b *Builder) NeedsRebuild(unit domain.InternedString) bool {
	b.mu.Lock()
	entry, cached := b.cache[unit]
	b.mu.Unlock()

	if !cached {
		return true
	}

	fp, err := b.fingerprinter.Fingerprint(unit.String())
	if err != nil {
		return true
	}
	return fp != entry.Fingerprint
}

// ForceFullRebuild invalidates unit selection for the next Compile call.
// The artifact cache entries are kept; only the skip decision is bypassed.
func (b *Builder) ForceFullRebuild() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.forceSelection = true
}

// CacheSize returns the number of cached unit fingerprints.
func (b *Builder) CacheSize() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.cache)
}

// selectUnits filters the rebuild set down to units that actually need
// rebuilding. Incremental selection is skipped when disabled by configuration
// or when a full rebuild was forced.
func (b *Builder) selectUnits(units []domain.InternedString) []domain.InternedString {
	b.mu.Lock()
	force := b.forceSelection || !b.cfg.IncrementalEnabled
	b.forceSelection = false
	b.mu.Unlock()

	if force {
		return units
	}

	selected := make([]domain.InternedString, 0, len(units))
	for _, unit := range units {
		if b.NeedsRebuild(unit) {
			selected = append(selected, unit)
		}
	}
	return selected
}

// commit records fingerprints for the built units and registers them with the
// dependency tracker, under a single lock so cache and tracker move together.
func (b *Builder) commit(result *domain.BuildResult) {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now()
	for _, unit := range result.Units {
		fp, err := b.fingerprinter.Fingerprint(unit.String())
		if err != nil {
			// A unit that vanished between compile and commit simply stays
			// uncached and will be rebuilt next time.
			if b.logger != nil {
				b.logger.Warn("could not fingerprint built unit " + unit.String())
			}
			delete(b.cache, unit)
			continue
		}
		b.cache[unit] = domain.UnitFingerprint{Fingerprint: fp, BuiltAt: now}
		b.tracker.RegisterUnit(unit)
	}
}
