package watcher

import (
	"context"
	"fmt"
	"io/fs"
	"iter"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unique"

	"github.com/fsnotify/fsnotify"
	"go.trai.ch/ember/internal/core/domain"
	"go.trai.ch/ember/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.Watcher = (*Watcher)(nil)

const eventChannelBuffer = 100

// Watcher implements file system watching using fsnotify.
//
// Ignore patterns and the extension allow-list are applied before emission;
// raw event bursts still need debouncing by the consumer.
type Watcher struct {
	fsWatcher *fsnotify.Watcher
	cfg       domain.WatcherConfig
	root      unique.Handle[string]
	events    chan domain.ChangeEvent
}

// NewWatcher creates a new file system watcher with the given configuration.
func NewWatcher(cfg domain.WatcherConfig) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, zerr.Wrap(domain.ErrWatcherStartFailed, err.Error())
	}
	return &Watcher{
		fsWatcher: fsWatcher,
		cfg:       cfg,
		events:    make(chan domain.ChangeEvent, eventChannelBuffer),
	}, nil
}

// Start begins watching the given root directory.
func (w *Watcher) Start(ctx context.Context, root string) error {
	abs, err := filepath.Abs(root)
	if err != nil {
		return zerr.Wrap(domain.ErrWatcherStartFailed, err.Error())
	}
	w.root = unique.Make(abs)

	for dir := range w.watchableDirs(abs) {
		if err := w.fsWatcher.Add(dir); err != nil {
			return zerr.With(zerr.Wrap(domain.ErrWatcherStartFailed, err.Error()), "dir", dir)
		}
	}

	go w.processEvents(ctx)

	return nil
}

// Stop stops the watcher and releases all resources.
func (w *Watcher) Stop() error {
	return w.fsWatcher.Close()
}

// Events returns an iterator of filtered change events.
func (w *Watcher) Events() iter.Seq[domain.ChangeEvent] {
	return func(yield func(domain.ChangeEvent) bool) {
		for event := range w.events {
			if !yield(event) {
				return
			}
		}
	}
}

// watchableDirs walks the directory tree and yields all directories that pass
// the ignore and depth rules. A non-recursive watcher yields only the root.
func (w *Watcher) watchableDirs(root string) iter.Seq[string] {
	return func(yield func(string) bool) {
		if !w.cfg.Recursive {
			yield(root)
			return
		}
		_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				// Continue walking even if a directory is inaccessible.
				return nil //nolint:nilerr // skip problematic directories
			}
			if !d.IsDir() {
				return nil
			}
			if w.ignored(path) {
				return fs.SkipDir
			}
			if w.cfg.MaxWatchDepth > 0 && w.depth(w.root.Value(), path) > w.cfg.MaxWatchDepth {
				return fs.SkipDir
			}
			if !yield(path) {
				return filepath.SkipAll
			}
			return nil
		})
	}
}

// depth returns how many levels below root the path sits.
func (w *Watcher) depth(root, path string) int {
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == "." {
		return 0
	}
	return strings.Count(rel, string(filepath.Separator)) + 1
}

// ignored reports whether the path matches an ignore pattern.
// Patterns match either as a glob against the base name or as a substring of
// the full path.
func (w *Watcher) ignored(path string) bool {
	base := filepath.Base(path)
	for _, pattern := range w.cfg.IgnoredPatterns {
		if ok, err := filepath.Match(pattern, base); err == nil && ok {
			return true
		}
		if strings.Contains(path, pattern) {
			return true
		}
	}
	return false
}

// allowed reports whether the file passes the extension allow-list.
// An empty allow-list admits every file.
func (w *Watcher) allowed(path string) bool {
	if len(w.cfg.WatchedExtensions) == 0 {
		return true
	}
	ext := filepath.Ext(path)
	for _, allowed := range w.cfg.WatchedExtensions {
		if strings.EqualFold(ext, allowed) {
			return true
		}
	}
	return false
}

// processEvents converts raw fsnotify events into domain.ChangeEvents.
func (w *Watcher) processEvents(ctx context.Context) {
	defer close(w.events)

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}

			// A new directory must join the watch before filtering: directory
			// paths rarely pass the extension allow-list.
			if w.cfg.Recursive && event.Op&fsnotify.Create == fsnotify.Create {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() && !w.ignored(event.Name) {
					for dir := range w.watchableDirs(event.Name) {
						_ = w.fsWatcher.Add(dir)
					}
				}
			}

			changeEvent := w.convertEvent(event)
			if changeEvent == nil {
				continue
			}

			select {
			case w.events <- *changeEvent:
			case <-ctx.Done():
				return
			}

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			// Log to stderr and keep processing.
			fmt.Fprintf(os.Stderr, "watcher: file system error: %v\n", err)
		}
	}
}

// convertEvent converts an fsnotify event to a domain.ChangeEvent, applying
// the ignore and extension filters. Returns nil for events that are filtered out.
func (w *Watcher) convertEvent(event fsnotify.Event) *domain.ChangeEvent {
	path := event.Name
	if w.ignored(path) || !w.allowed(path) {
		return nil
	}

	var kind domain.ChangeKind
	switch {
	case event.Op&fsnotify.Write == fsnotify.Write:
		kind = domain.ChangeModified
	case event.Op&fsnotify.Create == fsnotify.Create:
		kind = domain.ChangeCreated
	case event.Op&fsnotify.Remove == fsnotify.Remove:
		kind = domain.ChangeDeleted
	case event.Op&fsnotify.Rename == fsnotify.Rename:
		kind = domain.ChangeRenamed
	default:
		return nil
	}

	return &domain.ChangeEvent{
		Path:      domain.NewInternedString(path),
		Kind:      kind,
		Timestamp: time.Now(),
	}
}
