package patcher_test

import (
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/ember/internal/adapters/runtime"
	"go.trai.ch/ember/internal/core/domain"
	"go.trai.ch/ember/internal/engine/patcher"
)

type fakeLogger struct{}

func (fakeLogger) Info(string)         {}
func (fakeLogger) Warn(string)         {}
func (fakeLogger) Error(error)         {}
func (fakeLogger) SetOutput(io.Writer) {}
func (fakeLogger) SetJSON(bool)        {}

// sealedTable wraps the in-process table but refuses new bindings, modeling a
// strategy where only existing symbols can be replaced.
type sealedTable struct {
	*runtime.Table
}

func (sealedTable) CanBind(domain.PatchID) bool { return false }

func defaultCfg() domain.PatcherConfig {
	return domain.PatcherConfig{
		ValidatePatches:           true,
		BackupOriginalBeforePatch: true,
		MaxActivePatches:          256,
	}
}

func patchID(unit, symbol string) domain.PatchID {
	return domain.PatchID{Unit: domain.NewInternedString(unit), Symbol: symbol}
}

func buildResult(unit, symbol string) *domain.BuildResult {
	u := domain.NewInternedString(unit)
	return &domain.BuildResult{
		Units: []domain.InternedString{u},
		Artifacts: []domain.Artifact{
			{Unit: u, Path: domain.NewInternedString(unit + ".o"), Symbols: []string{symbol}},
		},
	}
}

func TestPatcher_Apply_AddAndReplace(t *testing.T) {
	table := runtime.NewTable()
	p := patcher.New(table, fakeLogger{}, defaultCfg(), nil)

	records, err := p.Apply(buildResult("greeter.swift", "greeter"))
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, domain.PatchAdd, records[0].Kind)

	impl, bound := table.Resolve(patchID("greeter.swift", "greeter"))
	require.True(t, bound)
	assert.Equal(t, domain.NewInternedString("greeter.swift.o"), impl)

	// Second apply replaces, but the record keeps the original add semantics
	// so a full revert unbinds instead of restoring an intermediate handle.
	records, err = p.Apply(buildResult("greeter.swift", "greeter"))
	require.NoError(t, err)
	assert.Equal(t, domain.PatchAdd, records[0].Kind)
}

func TestPatcher_Apply_ReplaceKeepsOriginal(t *testing.T) {
	table := runtime.NewTable()
	id := patchID("greeter.swift", "greeter")
	table.Bind(id, "original-impl")

	p := patcher.New(table, fakeLogger{}, defaultCfg(), nil)

	records, err := p.Apply(buildResult("greeter.swift", "greeter"))
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, domain.PatchReplace, records[0].Kind)
	assert.Equal(t, "original-impl", records[0].Original)

	require.NoError(t, p.Revert(id))
	impl, bound := table.Resolve(id)
	require.True(t, bound)
	assert.Equal(t, "original-impl", impl)
}

func TestPatcher_Apply_AllOrNothing(t *testing.T) {
	table := sealedTable{runtime.NewTable()}
	table.Bind(patchID("a.swift", "a"), "a-impl")

	p := patcher.New(table, fakeLogger{}, defaultCfg(), nil)

	// a resolves, b does not; the whole batch must fail untouched.
	a := domain.NewInternedString("a.swift")
	b := domain.NewInternedString("b.swift")
	result := &domain.BuildResult{
		Units: []domain.InternedString{a, b},
		Artifacts: []domain.Artifact{
			{Unit: a, Path: domain.NewInternedString("a.o"), Symbols: []string{"a"}},
			{Unit: b, Path: domain.NewInternedString("b.o"), Symbols: []string{"b"}},
		},
	}

	_, err := p.Apply(result)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrValidationFailed)
	assert.ErrorContains(t, err, domain.ErrSymbolNotFound.Error())

	impl, _ := table.Resolve(patchID("a.swift", "a"))
	assert.Equal(t, "a-impl", impl, "failed batch must not touch the table")
	assert.Empty(t, p.ActivePatches())
}

func TestPatcher_Apply_GuardRejectsProtected(t *testing.T) {
	table := runtime.NewTable()
	guard := func(id domain.PatchID) bool { return id.Symbol != "forbidden" }
	p := patcher.New(table, fakeLogger{}, defaultCfg(), guard)

	_, err := p.Apply(buildResult("sys.swift", "forbidden"))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrProtectedUnit)

	_, bound := table.Resolve(patchID("sys.swift", "forbidden"))
	assert.False(t, bound)
}

func TestPatcher_Apply_MaxActivePatches(t *testing.T) {
	cfg := defaultCfg()
	cfg.MaxActivePatches = 1
	p := patcher.New(runtime.NewTable(), fakeLogger{}, cfg, nil)

	_, err := p.Apply(buildResult("a.swift", "a"))
	require.NoError(t, err)

	_, err = p.Apply(buildResult("b.swift", "b"))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrTooManyPatches)

	// Re-patching an already active identifier does not grow the set.
	_, err = p.Apply(buildResult("a.swift", "a"))
	assert.NoError(t, err)
}

func TestPatcher_Revert_NotFound(t *testing.T) {
	p := patcher.New(runtime.NewTable(), fakeLogger{}, defaultCfg(), nil)

	err := p.Revert(patchID("ghost.swift", "ghost"))
	assert.ErrorIs(t, err, domain.ErrPatchNotFound)
}

func TestPatcher_RevertAll(t *testing.T) {
	table := runtime.NewTable()
	replaced := patchID("a.swift", "a")
	table.Bind(replaced, "a-original")

	p := patcher.New(table, fakeLogger{}, defaultCfg(), nil)

	_, err := p.Apply(buildResult("a.swift", "a"))
	require.NoError(t, err)
	_, err = p.Apply(buildResult("b.swift", "b"))
	require.NoError(t, err)

	require.NoError(t, p.RevertAll())

	impl, bound := table.Resolve(replaced)
	require.True(t, bound)
	assert.Equal(t, "a-original", impl)

	_, bound = table.Resolve(patchID("b.swift", "b"))
	assert.False(t, bound, "added patch must be unbound on revert")
	assert.Empty(t, p.ActivePatches())
}

func TestPatcher_DefaultGuard(t *testing.T) {
	assert.False(t, patcher.DefaultGuard(patchID("a.swift", "_private")))
	assert.False(t, patcher.DefaultGuard(patchID("system/boot.swift", "boot")))
	assert.False(t, patcher.DefaultGuard(patchID("src/system/boot.swift", "boot")))
	assert.True(t, patcher.DefaultGuard(patchID("src/app.swift", "app")))
}
