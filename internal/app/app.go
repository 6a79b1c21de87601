// Package app implements the application layer for ember.
package app

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"go.trai.ch/ember/internal/adapters/compiler"
	"go.trai.ch/ember/internal/adapters/watcher"
	"go.trai.ch/ember/internal/core/domain"
	"go.trai.ch/ember/internal/core/ports"
	"go.trai.ch/ember/internal/engine/builder"
	"go.trai.ch/ember/internal/engine/coordinator"
	"go.trai.ch/ember/internal/engine/patcher"
	"go.trai.ch/ember/internal/engine/preserver"
	"go.trai.ch/ember/internal/engine/recovery"
	"go.trai.ch/ember/internal/engine/tracker"
	"go.trai.ch/zerr"
	"golang.org/x/sync/errgroup"
)

// App wires the hot-reload engine together behind a small facade.
//
// Configuration-free collaborators arrive through the constructor; everything
// that needs configuration is built on first use, after the config file has
// been loaded.
type App struct {
	configLoader  ports.ConfigLoader
	logger        ports.Logger
	tracer        ports.Tracer
	fingerprinter ports.Fingerprinter
	runtime       ports.Runtime
	tracker       *tracker.Tracker

	mu          sync.Mutex
	initialized bool
	cfg         domain.Config
	builder     *builder.Builder
	patcher     *patcher.Patcher
	preserver   *preserver.Preserver
	recovery    *recovery.Handler
	coordinator *coordinator.Coordinator
}

// New creates a new App instance.
func New(
	loader ports.ConfigLoader,
	logger ports.Logger,
	tracer ports.Tracer,
	fingerprinter ports.Fingerprinter,
	rt ports.Runtime,
	tr *tracker.Tracker,
) *App {
	return &App{
		configLoader:  loader,
		logger:        logger,
		tracer:        tracer,
		fingerprinter: fingerprinter,
		runtime:       rt,
		tracker:       tr,
	}
}

// Init loads the configuration from cwd and builds the engine. It is
// idempotent; later calls are no-ops.
func (a *App) Init(cwd string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.initLocked(cwd)
}

// Reload requests a reload of the given source paths. The returned session id
// identifies the reload; ErrReloadInProgress means the request was queued.
func (a *App) Reload(ctx context.Context, paths []string, priority domain.Priority, reason string) (string, error) {
	if err := a.ensureInit(); err != nil {
		return "", err
	}
	return a.coordinator.RequestReload(ctx, domain.ReloadRequest{
		Units:       domain.NewInternedStrings(paths),
		Priority:    priority,
		Reason:      reason,
		SubmittedAt: time.Now(),
	})
}

// CancelReload cancels a queued or preparing reload session.
func (a *App) CancelReload(id string) error {
	if err := a.ensureInit(); err != nil {
		return err
	}
	return a.coordinator.CancelReload(id)
}

// Watch runs the change-detection loop until the context is cancelled.
// Debounced change batches feed reload requests; a session started just
// before cancellation is allowed to finish.
func (a *App) Watch(ctx context.Context) error {
	if err := a.ensureInit(); err != nil {
		return err
	}
	defer func() { _ = a.tracer.Shutdown(context.Background()) }()

	w, err := watcher.NewWatcher(a.cfg.Watcher)
	if err != nil {
		return err
	}

	reloadCtx := context.WithoutCancel(ctx)
	debouncer := watcher.NewDebouncer(a.cfg.Watcher.DebounceInterval, func(events []domain.ChangeEvent) {
		paths := make([]string, 0, len(events))
		for _, event := range events {
			paths = append(paths, event.Path.String())
		}
		if _, err := a.Reload(reloadCtx, paths, domain.PriorityNormal, "file change"); err != nil {
			if errors.Is(err, domain.ErrReloadInProgress) {
				a.logger.Info("reload queued for " + strings.Join(paths, ", "))
				return
			}
			a.logger.Error(zerr.Wrap(err, "reload request rejected"))
		}
	})

	if err := w.Start(ctx, a.cfg.Root); err != nil {
		return err
	}
	a.logger.Info("watching " + a.cfg.Root)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		for event := range w.Events() {
			debouncer.Add(event)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		debouncer.Flush()
		debouncer.Stop()
		return w.Stop()
	})
	return g.Wait()
}

// RegisterObserver registers application state to be preserved across reloads.
func (a *App) RegisterObserver(observer ports.StateObserver) error {
	if err := a.ensureInit(); err != nil {
		return err
	}
	return a.preserver.Register(observer)
}

// CaptureState takes a state snapshot outside of any reload session.
func (a *App) CaptureState() (domain.StateSnapshot, error) {
	if err := a.ensureInit(); err != nil {
		return domain.StateSnapshot{}, err
	}
	return a.preserver.Capture()
}

// RestoreState restores the most recent state snapshot.
func (a *App) RestoreState() error {
	if err := a.ensureInit(); err != nil {
		return err
	}
	return a.preserver.Restore()
}

// Status reports the engine's current state.
func (a *App) Status() (Status, error) {
	if err := a.ensureInit(); err != nil {
		return Status{}, err
	}
	return Status{
		Root:           a.cfg.Root,
		ActiveSessions: a.coordinator.ActiveSessions(),
		QueueLength:    a.coordinator.QueueLength(),
		KnownUnits:     a.tracker.UnitCount(),
		CachedUnits:    a.builder.CacheSize(),
		ActivePatches:  len(a.patcher.ActivePatches()),
		Snapshots:      a.preserver.SnapshotCount(),
	}, nil
}

// ReloadHistory returns the most recent terminal reload records, newest first.
func (a *App) ReloadHistory(limit int) ([]domain.ReloadRecord, error) {
	if err := a.ensureInit(); err != nil {
		return nil, err
	}
	return a.coordinator.History(limit), nil
}

// ReloadStatistics derives reload statistics from the session history.
func (a *App) ReloadStatistics() (domain.ReloadStatistics, error) {
	if err := a.ensureInit(); err != nil {
		return domain.ReloadStatistics{}, err
	}
	return a.coordinator.Statistics(), nil
}

// DiagnosticReport assembles the full structured diagnostic report.
func (a *App) DiagnosticReport() (DiagnosticReport, error) {
	if err := a.ensureInit(); err != nil {
		return DiagnosticReport{}, err
	}
	return DiagnosticReport{
		GeneratedAt:   time.Now(),
		Reloads:       a.coordinator.Statistics(),
		Errors:        a.recovery.Statistics(),
		Patterns:      a.recovery.Patterns(),
		RecentErrors:  a.recovery.History(10),
		ActivePatches: a.patcher.ActivePatches(),
		CachedUnits:   a.builder.CacheSize(),
		KnownUnits:    a.tracker.UnitCount(),
	}, nil
}

func (a *App) ensureInit() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.initialized {
		return nil
	}
	return a.initLocked(".")
}

func (a *App) initLocked(cwd string) error {
	if a.initialized {
		return nil
	}

	cfg, err := a.configLoader.Load(cwd)
	if err != nil {
		return zerr.Wrap(err, "failed to load configuration")
	}
	a.cfg = cfg

	comp := compiler.NewShell(cfg.Builder, a.logger)
	a.builder = builder.New(comp, a.fingerprinter, a.tracker, a.logger, cfg.Builder)
	a.patcher = patcher.New(a.runtime, a.logger, cfg.Patcher, patcher.DefaultGuard)
	a.preserver = preserver.New(a.logger, cfg.Coordinator.MaxRetainedSnapshots)
	a.recovery = recovery.NewHandler(a.logger, cfg.Recovery)
	a.registerRecoveryStrategies()
	a.coordinator = coordinator.New(
		a.builder, a.patcher, a.preserver, a.tracker, a.recovery,
		a.logger, a.tracer, cfg.Coordinator,
	)

	a.initialized = true
	return nil
}

// registerRecoveryStrategies installs the built-in recovery strategies.
func (a *App) registerRecoveryStrategies() {
	a.recovery.RegisterStrategy(domain.ErrorCompilation, recovery.Strategy{
		Name: "force-full-rebuild",
		Recover: func(domain.ErrorRecord) error {
			a.tracker.ForceFullRebuild()
			a.builder.ForceFullRebuild()
			return nil
		},
	})
	a.recovery.RegisterStrategy(domain.ErrorRuntime, recovery.Strategy{
		Name: "revert-patches",
		Recover: func(domain.ErrorRecord) error {
			return a.patcher.RevertAll()
		},
	})
	a.recovery.RegisterStrategy(domain.ErrorMemory, recovery.Strategy{
		Name: "drop-oldest-snapshot",
		Recover: func(domain.ErrorRecord) error {
			a.preserver.DiscardOldest()
			return nil
		},
	})
}
