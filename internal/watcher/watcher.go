// Package watcher monitors project source trees for changes that should
// trigger a rebuild, debouncing rapid bursts of events (editor saves,
// `cargo build` scratch writes) into a single coalesced notification.
package watcher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/conneroisu/trunkgo/internal/errors"
)

// FileWatcher watches a set of paths for changes, with debouncing and
// ignore-pattern filtering.
type FileWatcher struct {
	watcher   *fsnotify.Watcher
	debouncer *debouncer
	filters   []FileFilter
	handlers  []ChangeHandler
	mutex     sync.RWMutex
	logger    errors.Logger
}

// ChangeEvent represents a single file change.
type ChangeEvent struct {
	Type    EventType
	Path    string
	ModTime time.Time
	Size    int64
}

// EventType represents the type of file change.
type EventType int

const (
	EventTypeCreated EventType = iota
	EventTypeModified
	EventTypeDeleted
	EventTypeRenamed
)

func (e EventType) String() string {
	switch e {
	case EventTypeCreated:
		return "created"
	case EventTypeModified:
		return "modified"
	case EventTypeDeleted:
		return "deleted"
	case EventTypeRenamed:
		return "renamed"
	default:
		return "unknown"
	}
}

// FileFilter determines if a file's change should be reported. A path is
// reported only if every registered filter returns true for it.
type FileFilter func(path string) bool

// ChangeHandler is invoked once per debounced batch of changes.
type ChangeHandler func(events []ChangeEvent) error

// debouncer groups rapid file changes together within a delay window.
type debouncer struct {
	delay   time.Duration
	events  chan ChangeEvent
	output  chan []ChangeEvent
	timer   *time.Timer
	pending []ChangeEvent
	mutex   sync.Mutex
}

// New creates a FileWatcher. debounceDelay is the quiet period required
// after the last event before a batch is flushed to handlers; logger may be
// nil, in which case watcher errors, handler failures and dropped events are
// not logged.
func New(debounceDelay time.Duration, logger errors.Logger) (*FileWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(errors.TypeIO, "creating file watcher", err)
	}

	fw := &FileWatcher{
		watcher: w,
		logger:  logger,
		debouncer: &debouncer{
			delay:   debounceDelay,
			events:  make(chan ChangeEvent, 256),
			output:  make(chan []ChangeEvent, 16),
			pending: make([]ChangeEvent, 0),
		},
	}

	return fw, nil
}

// AddFilter registers a predicate a changed path must satisfy to be
// reported. Use IgnoreGlobs to build a filter from a project's watch.ignore
// configuration, and DefaultIgnores for dist and VCS metadata.
func (fw *FileWatcher) AddFilter(filter FileFilter) {
	fw.mutex.Lock()
	defer fw.mutex.Unlock()
	fw.filters = append(fw.filters, filter)
}

// AddHandler registers a callback invoked with each debounced batch.
func (fw *FileWatcher) AddHandler(handler ChangeHandler) {
	fw.mutex.Lock()
	defer fw.mutex.Unlock()
	fw.handlers = append(fw.handlers, handler)
}

// AddPath watches a single file or directory, resolving symlinks first so
// the watched identity matches the canonical path reported by fsnotify.
func (fw *FileWatcher) AddPath(path string) error {
	real, err := canonicalize(path)
	if err != nil {
		return err
	}
	return fw.watcher.Add(real)
}

// AddRecursive walks root and watches every directory beneath it, skipping
// subtrees rejected by the registered filters (so `dist`, `.git`, and a
// project's staging directory are never watched).
func (fw *FileWatcher) AddRecursive(root string) error {
	real, err := canonicalize(root)
	if err != nil {
		return err
	}

	return filepath.Walk(real, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			return nil
		}
		if !fw.accepts(path) {
			return filepath.SkipDir
		}
		return fw.watcher.Add(path)
	})
}

func canonicalize(path string) (string, error) {
	cleaned := filepath.Clean(path)
	real, err := filepath.EvalSymlinks(cleaned)
	if err != nil {
		return "", errors.Wrap(errors.TypeSourceMissing, fmt.Sprintf("resolving watch path %s", path), err)
	}
	return real, nil
}

// Start begins watching; it returns immediately and runs until ctx is done.
func (fw *FileWatcher) Start(ctx context.Context) {
	go fw.debouncer.run(ctx)
	go fw.processEvents(ctx)
	go fw.watchLoop(ctx)
}

// Close stops the underlying fsnotify watcher.
func (fw *FileWatcher) Close() error {
	fw.mutex.Lock()
	if fw.debouncer.timer != nil {
		fw.debouncer.timer.Stop()
	}
	fw.mutex.Unlock()
	return fw.watcher.Close()
}

func (fw *FileWatcher) accepts(path string) bool {
	fw.mutex.RLock()
	filters := fw.filters
	fw.mutex.RUnlock()

	for _, filter := range filters {
		if !filter(path) {
			return false
		}
	}
	return true
}

func (fw *FileWatcher) watchLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-fw.watcher.Events:
			if !ok {
				return
			}
			fw.handleFsnotifyEvent(event)
		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
			if fw.logger != nil {
				fw.logger.Warnw("file watcher error", "error", err)
			}
		}
	}
}

func (fw *FileWatcher) handleFsnotifyEvent(event fsnotify.Event) {
	if !fw.accepts(event.Name) {
		return
	}

	var modTime time.Time
	var size int64
	if info, err := os.Stat(event.Name); err == nil {
		modTime = info.ModTime()
		size = info.Size()
	}

	var eventType EventType
	switch {
	case event.Op&fsnotify.Create == fsnotify.Create:
		eventType = EventTypeCreated
	case event.Op&fsnotify.Write == fsnotify.Write:
		eventType = EventTypeModified
	case event.Op&fsnotify.Remove == fsnotify.Remove:
		eventType = EventTypeDeleted
	case event.Op&fsnotify.Rename == fsnotify.Rename:
		eventType = EventTypeRenamed
	default:
		eventType = EventTypeModified
	}

	select {
	case fw.debouncer.events <- ChangeEvent{Type: eventType, Path: event.Name, ModTime: modTime, Size: size}:
	default:
		if fw.logger != nil {
			fw.logger.Warnw("watcher event channel full, dropping event", "path", event.Name)
		}
	}
}

func (fw *FileWatcher) processEvents(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case events, ok := <-fw.debouncer.output:
			if !ok {
				return
			}
			fw.mutex.RLock()
			handlers := fw.handlers
			fw.mutex.RUnlock()

			for _, handler := range handlers {
				if err := handler(events); err != nil && fw.logger != nil {
					fw.logger.Warnw("watch handler failed", "error", err)
				}
			}
		}
	}
}

func (d *debouncer) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case event := <-d.events:
			d.addEvent(event)
		}
	}
}

func (d *debouncer) addEvent(event ChangeEvent) {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	d.pending = append(d.pending, event)

	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.delay, d.flush)
}

func (d *debouncer) flush() {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	if len(d.pending) == 0 {
		return
	}

	byPath := make(map[string]ChangeEvent, len(d.pending))
	for _, event := range d.pending {
		byPath[event.Path] = event
	}

	events := make([]ChangeEvent, 0, len(byPath))
	for _, event := range byPath {
		events = append(events, event)
	}

	select {
	case d.output <- events:
	default:
	}

	d.pending = d.pending[:0]
}

// IgnoreGlobs builds a FileFilter that rejects any path matching one of the
// given glob patterns (a watch.ignore list), matching against both the full
// path and its base name.
func IgnoreGlobs(patterns []string) FileFilter {
	return func(path string) bool {
		base := filepath.Base(path)
		for _, pattern := range patterns {
			if ok, _ := filepath.Match(pattern, base); ok {
				return false
			}
			if ok, _ := filepath.Match(pattern, path); ok {
				return false
			}
		}
		return true
	}
}

// DefaultIgnores rejects a project's publish directory, staging directory,
// and VCS metadata, regardless of user-supplied watch.ignore entries.
func DefaultIgnores(distDir, stagingDir string) FileFilter {
	return func(path string) bool {
		segs := strings.Split(filepath.ToSlash(path), "/")
		for _, seg := range segs {
			if seg == ".git" {
				return false
			}
		}
		for _, dir := range []string{distDir, stagingDir} {
			if dir == "" {
				continue
			}
			rel, err := filepath.Rel(dir, path)
			if err == nil && !strings.HasPrefix(rel, "..") {
				return false
			}
		}
		return true
	}
}
