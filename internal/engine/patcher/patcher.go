// Package patcher applies build artifacts to the running process as
// reversible patches.
package patcher

import (
	"sort"
	"strings"
	"sync"
	"time"

	"go.trai.ch/ember/internal/core/domain"
	"go.trai.ch/ember/internal/core/ports"
	"go.trai.ch/zerr"
)

// Guard decides whether an identifier is safe to patch. Identifiers in
// protected or system namespaces must be rejected before any table mutation.
type Guard func(id domain.PatchID) bool

// DefaultGuard rejects identifiers in reserved namespaces: underscore-prefixed
// symbols and units under a system directory stay untouched.
func DefaultGuard(id domain.PatchID) bool {
	if strings.HasPrefix(id.Symbol, "_") {
		return false
	}
	unit := id.Unit.String()
	return !strings.HasPrefix(unit, "system/") && !strings.Contains(unit, "/system/")
}

// Patcher makes build artifacts effective in the running process.
//
// Patch application mutates shared, unversioned process state, so apply and
// revert are serialized behind a single mutex: they never interleave.
type Patcher struct {
	runtime ports.Runtime
	logger  ports.Logger
	cfg     domain.PatcherConfig
	guard   Guard

	mu     sync.Mutex
	active map[domain.PatchID]domain.PatchRecord
}

// New creates a new Patcher. A nil guard admits every identifier.
func New(rt ports.Runtime, logger ports.Logger, cfg domain.PatcherConfig, guard Guard) *Patcher {
	return &Patcher{
		runtime: rt,
		logger:  logger,
		cfg:     cfg,
		guard:   guard,
		active:  make(map[domain.PatchID]domain.PatchRecord),
	}
}

// CanPatch reports whether the identifier passes the guard predicate.
func (p *Patcher) CanPatch(id domain.PatchID) bool {
	return p.guard == nil || p.guard(id)
}

// Apply makes the artifacts of a build result effective, all or nothing.
//
// When validation is enabled, every identifier is first re-resolved against
// the live process; a single unresolvable identifier fails the whole batch
// with ErrValidationFailed and no table entry is touched.
func (p *Patcher) Apply(result *domain.BuildResult) ([]domain.PatchRecord, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	ids := make([]domain.PatchID, 0, len(result.Artifacts))
	impls := make(map[domain.PatchID]domain.ImplHandle, len(result.Artifacts))
	for _, artifact := range result.Artifacts {
		for _, symbol := range artifact.Symbols {
			id := domain.PatchID{Unit: artifact.Unit, Symbol: symbol}
			ids = append(ids, id)
			impls[id] = artifact.Path
		}
	}

	if err := p.validateLocked(ids); err != nil {
		return nil, err
	}

	if p.cfg.MaxActivePatches > 0 && p.pendingActiveCount(ids) > p.cfg.MaxActivePatches {
		return nil, zerr.With(zerr.Wrap(domain.ErrTooManyPatches, "patch ceiling reached"), "limit", p.cfg.MaxActivePatches)
	}

	records := make([]domain.PatchRecord, 0, len(ids))
	now := time.Now()
	for _, id := range ids {
		previous, existed := p.runtime.Bind(id, impls[id])

		record := domain.PatchRecord{
			ID:        id,
			Kind:      domain.PatchAdd,
			AppliedAt: now,
		}
		if existed {
			record.Kind = domain.PatchReplace
		}

		if prior, alreadyPatched := p.active[id]; alreadyPatched {
			// Re-patching an already-patched identifier keeps the original
			// pre-reload handle so RevertAll restores the true original.
			record.Kind = prior.Kind
			record.Original = prior.Original
		} else if existed && p.cfg.BackupOriginalBeforePatch {
			record.Original = previous
		}

		p.active[id] = record
		records = append(records, record)
	}

	return records, nil
}

// Revert restores the original reference recorded at apply time for the
// given identifier.
func (p *Patcher) Revert(id domain.PatchID) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.revertLocked(id)
}

// RevertAll reverts every active patch. Identifiers are reverted in
// deterministic order; the first failure aborts.
func (p *Patcher) RevertAll() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	ids := make([]domain.PatchID, 0, len(p.active))
	for id := range p.active {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		if ids[i].Unit.String() != ids[j].Unit.String() {
			return ids[i].Unit.String() < ids[j].Unit.String()
		}
		return ids[i].Symbol < ids[j].Symbol
	})

	for _, id := range ids {
		if err := p.revertLocked(id); err != nil {
			return err
		}
	}
	return nil
}

// ActivePatches returns a snapshot of the currently applied patch records.
func (p *Patcher) ActivePatches() []domain.PatchRecord {
	p.mu.Lock()
	defer p.mu.Unlock()

	records := make([]domain.PatchRecord, 0, len(p.active))
	for _, record := range p.active {
		records = append(records, record)
	}
	sort.Slice(records, func(i, j int) bool {
		if records[i].ID.Unit.String() != records[j].ID.Unit.String() {
			return records[i].ID.Unit.String() < records[j].ID.Unit.String()
		}
		return records[i].ID.Symbol < records[j].ID.Symbol
	})
	return records
}

func (p *Patcher) revertLocked(id domain.PatchID) error {
	record, ok := p.active[id]
	if !ok {
		return zerr.With(
			zerr.With(
				zerr.Wrap(domain.ErrPatchNotFound, "nothing to revert"),
				"unit", id.Unit.String(),
			),
			"symbol", id.Symbol,
		)
	}

	if record.Kind == domain.PatchAdd || record.Original == nil {
		p.runtime.Unbind(id)
	} else {
		p.runtime.Bind(id, record.Original)
	}
	delete(p.active, id)
	return nil
}

// validateLocked checks guard policy and, when enabled, re-resolves every
// identifier against the live process before anything is committed.
func (p *Patcher) validateLocked(ids []domain.PatchID) error {
	for _, id := range ids {
		if !p.CanPatch(id) {
			return zerr.With(
				zerr.With(
					zerr.Wrap(domain.ErrProtectedUnit, "guard rejected identifier"),
					"unit", id.Unit.String(),
				),
				"symbol", id.Symbol,
			)
		}
	}

	if !p.cfg.ValidatePatches {
		return nil
	}

	for _, id := range ids {
		// A fresh symbol is resolvable by definition (it will be added);
		// a replace target must resolve against the live process.
		if _, alreadyPatched := p.active[id]; alreadyPatched {
			continue
		}
		if _, bound := p.runtime.Resolve(id); !bound && !p.runtime.CanBind(id) {
			return zerr.With(
				zerr.With(
					zerr.Wrap(domain.ErrValidationFailed, domain.ErrSymbolNotFound.Error()),
					"unit", id.Unit.String(),
				),
				"symbol", id.Symbol,
			)
		}
	}
	return nil
}

// pendingActiveCount computes how many patches would be active after the
// batch is applied.
func (p *Patcher) pendingActiveCount(ids []domain.PatchID) int {
	count := len(p.active)
	for _, id := range ids {
		if _, ok := p.active[id]; !ok {
			count++
		}
	}
	return count
}
