// Package config provides the configuration loader for ember.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.trai.ch/ember/internal/core/domain"
	"go.trai.ch/ember/internal/core/ports"
	"go.trai.ch/zerr"
	"gopkg.in/yaml.v3"
)

// FileName is the name of the configuration file.
const FileName = "ember.yaml"

var _ ports.ConfigLoader = (*Loader)(nil)

// Loader implements ports.ConfigLoader using a YAML file.
type Loader struct {
	Logger ports.Logger
}

// NewLoader creates a new Loader with the given logger.
func NewLoader(logger ports.Logger) *Loader {
	return &Loader{Logger: logger}
}

// Load discovers ember.yaml by walking up from cwd and merges it over the
// defaults. A missing file is not an error: every option has a safe default.
func (l *Loader) Load(cwd string) (domain.Config, error) {
	cfg := domain.DefaultConfig()

	configPath, found := l.findConfiguration(cwd)
	if !found {
		return cfg, nil
	}

	data, err := os.ReadFile(configPath) //nolint:gosec // discovered config path
	if err != nil {
		return cfg, zerr.With(zerr.Wrap(domain.ErrConfigReadFailed, err.Error()), "path", configPath)
	}

	var file Emberfile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return cfg, zerr.With(zerr.Wrap(domain.ErrConfigParseFailed, err.Error()), "path", configPath)
	}

	if err := l.merge(&cfg, &file); err != nil {
		return cfg, zerr.With(err, "path", configPath)
	}

	// Paths in the config are relative to the config file's directory.
	if !filepath.IsAbs(cfg.Root) {
		cfg.Root = filepath.Join(filepath.Dir(configPath), cfg.Root)
	}

	return cfg, nil
}

// findConfiguration walks up the directory tree looking for ember.yaml.
func (l *Loader) findConfiguration(cwd string) (string, bool) {
	currentDir := cwd
	for {
		candidate := filepath.Join(currentDir, FileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true
		}

		parentDir := filepath.Dir(currentDir)
		if parentDir == currentDir {
			// Reached root
			return "", false
		}
		currentDir = parentDir
	}
}

//nolint:cyclop // straight-line option merging
func (l *Loader) merge(cfg *domain.Config, file *Emberfile) error {
	if file.Root != "" {
		cfg.Root = file.Root
	}

	if w := file.Watcher; w != nil {
		if err := mergeDuration(&cfg.Watcher.DebounceInterval, w.DebounceInterval, "watcher.debounceInterval"); err != nil {
			return err
		}
		if w.IgnoredPatterns != nil {
			cfg.Watcher.IgnoredPatterns = w.IgnoredPatterns
		}
		if w.WatchedExtensions != nil {
			cfg.Watcher.WatchedExtensions = w.WatchedExtensions
		}
		mergeBool(&cfg.Watcher.Recursive, w.Recursive)
		mergeInt(&cfg.Watcher.MaxWatchDepth, w.MaxWatchDepth)
	}

	if b := file.Builder; b != nil {
		if b.Command != nil {
			cfg.Builder.Command = b.Command
		}
		if err := mergeDuration(&cfg.Builder.CompilationTimeout, b.CompilationTimeout, "builder.compilationTimeout"); err != nil {
			return err
		}
		mergeBool(&cfg.Builder.IncrementalEnabled, b.IncrementalEnabled)
	}

	if p := file.Patcher; p != nil {
		mergeBool(&cfg.Patcher.ValidatePatches, p.ValidatePatches)
		mergeBool(&cfg.Patcher.BackupOriginalBeforePatch, p.BackupOriginalBeforePatch)
		mergeInt(&cfg.Patcher.MaxActivePatches, p.MaxActivePatches)
	}

	if c := file.Coordinator; c != nil {
		mergeInt(&cfg.Coordinator.MaxConcurrentReloads, c.MaxConcurrentReloads)
		if err := mergeDuration(&cfg.Coordinator.ReloadTimeout, c.ReloadTimeout, "coordinator.reloadTimeout"); err != nil {
			return err
		}
		mergeInt(&cfg.Coordinator.QueueSizeLimit, c.QueueSizeLimit)
		mergeBool(&cfg.Coordinator.DependencyResolutionEnabled, c.DependencyResolutionEnabled)
		mergeBool(&cfg.Coordinator.PrioritizeCriticalReloads, c.PrioritizeCriticalReloads)
		mergeInt(&cfg.Coordinator.MaxHistory, c.MaxHistory)
		mergeInt(&cfg.Coordinator.MaxRetainedSnapshots, c.MaxRetainedSnapshots)
	}

	if r := file.Recovery; r != nil {
		mergeInt(&cfg.Recovery.MaxErrorHistory, r.MaxErrorHistory)
		mergeBool(&cfg.Recovery.AutoRecoveryEnabled, r.AutoRecoveryEnabled)
		mergeBool(&cfg.Recovery.PatternDetectionEnabled, r.PatternDetectionEnabled)
	}

	return nil
}

func mergeDuration(dst *time.Duration, raw, option string) error {
	if raw == "" {
		return nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return zerr.With(
			zerr.Wrap(domain.ErrConfigParseFailed, err.Error()),
			"option", option,
		)
	}
	if d < 0 {
		return zerr.With(
			zerr.Wrap(domain.ErrConfigParseFailed, fmt.Sprintf("negative duration %q", raw)),
			"option", option,
		)
	}
	*dst = d
	return nil
}

func mergeBool(dst *bool, src *bool) {
	if src != nil {
		*dst = *src
	}
}

func mergeInt(dst *int, src *int) {
	if src != nil {
		*dst = *src
	}
}
