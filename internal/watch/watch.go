// Package watch reports changed markup files below a set of paths, one
// callback per file per burst of writes.
package watch

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/grantcarthew/tagfmt/internal/files"
)

// DefaultDelay is how long a file must be quiet before OnChange fires.
const DefaultDelay = 300 * time.Millisecond

// Config holds file watcher configuration.
type Config struct {
	Paths    []string          // Files or directories to watch
	Include  []string          // Globs selecting files inside directories (default files.DefaultInclude)
	Exclude  []string          // Globs to ignore
	Delay    time.Duration     // Debounce delay (0 = DefaultDelay)
	OnChange func(path string) // Called with the absolute path of a changed file
	Debug    bool              // Enable debug logging
}

// Watcher watches files for changes and triggers callbacks.
type Watcher struct {
	config    Config
	fsWatcher *fsnotify.Watcher
	debouncer *debouncer
	roots     []string        // Absolute watched directories
	files     map[string]bool // Absolute explicitly watched files
	mu        sync.Mutex
	running   bool
	done      chan struct{}
	debugLog  func(format string, args ...any)
}

// New creates a new file watcher.
func New(cfg Config) (*Watcher, error) {
	if len(cfg.Paths) == 0 {
		return nil, fmt.Errorf("at least one path is required")
	}
	if cfg.OnChange == nil {
		return nil, fmt.Errorf("OnChange callback is required")
	}
	if cfg.Delay <= 0 {
		cfg.Delay = DefaultDelay
	}

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	w := &Watcher{
		config:    cfg,
		fsWatcher: fsWatcher,
		files:     make(map[string]bool),
		done:      make(chan struct{}),
	}

	if cfg.Debug {
		w.debugLog = func(format string, args ...any) {
			log.Printf("[WATCHER] "+format, args...)
		}
	} else {
		w.debugLog = func(format string, args ...any) {}
	}

	w.debouncer = newDebouncer(cfg.Delay, func(path string) {
		w.debugLog("Changed: %s", path)
		cfg.OnChange(path)
	})

	return w, nil
}

// Start starts watching the configured paths.
func (w *Watcher) Start() error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return fmt.Errorf("watcher already running")
	}
	w.running = true
	w.mu.Unlock()

	go w.eventLoop()

	for _, path := range w.config.Paths {
		if err := w.addPath(path); err != nil {
			w.Stop()
			return fmt.Errorf("failed to add watch path %s: %w", path, err)
		}
	}

	return nil
}

// Stop stops the file watcher. Pending debounced changes are dropped.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = false
	w.mu.Unlock()

	w.debouncer.stop()

	err := w.fsWatcher.Close()

	// Wait for event loop to finish
	<-w.done

	return err
}

// addPath adds a path (file or directory) to the watcher.
// For directories, recursively adds all subdirectories.
func (w *Watcher) addPath(path string) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	info, err := os.Stat(absPath)
	if err != nil {
		return err
	}

	if !info.IsDir() {
		// Single file - watch its directory
		dir := filepath.Dir(absPath)
		if err := w.fsWatcher.Add(dir); err != nil {
			return err
		}
		w.mu.Lock()
		w.files[absPath] = true
		w.mu.Unlock()
		w.debugLog("Watching file: %s (via directory: %s)", absPath, dir)
		return nil
	}

	w.mu.Lock()
	w.roots = append(w.roots, absPath)
	w.mu.Unlock()
	return w.addDir(absPath)
}

// addDir registers dir and every non-skipped directory below it.
func (w *Watcher) addDir(dir string) error {
	return filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && files.SkipDir(d.Name()) {
			return filepath.SkipDir
		}
		if err := w.fsWatcher.Add(path); err != nil {
			return err
		}
		w.debugLog("Watching directory: %s", path)
		return nil
	})
}

// relevant reports whether a changed path should be reported.
func (w *Watcher) relevant(path string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.files[path] {
		return true
	}
	if strings.HasPrefix(filepath.Base(path), ".") {
		return false
	}
	for _, root := range w.roots {
		rel, err := filepath.Rel(root, path)
		if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
			continue
		}
		if skipped(rel) {
			continue
		}
		if files.Match(rel, w.config.Include, w.config.Exclude) {
			return true
		}
	}
	return false
}

// skipped reports whether any directory in rel is skipped.
func skipped(rel string) bool {
	parts := strings.Split(filepath.ToSlash(filepath.Dir(rel)), "/")
	for _, part := range parts {
		if part != "." && files.SkipDir(part) {
			return true
		}
	}
	return false
}

// eventLoop processes file system events.
func (w *Watcher) eventLoop() {
	defer close(w.done)

	for {
		select {
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			w.handle(event)

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			w.debugLog("Watcher error: %v", err)
		}
	}
}

func (w *Watcher) handle(event fsnotify.Event) {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return
	}

	info, err := os.Stat(event.Name)
	if err != nil {
		return
	}

	// New directories are registered so files created in them are seen.
	if info.IsDir() {
		if event.Has(fsnotify.Create) && !files.SkipDir(filepath.Base(event.Name)) && w.underRoot(event.Name) {
			if err := w.addDir(event.Name); err != nil {
				w.debugLog("Failed to add new directory: %v", err)
			}
		}
		return
	}

	if !w.relevant(event.Name) {
		return
	}
	w.debugLog("Event: %s %s", event.Op, event.Name)
	w.debouncer.trigger(event.Name)
}

func (w *Watcher) underRoot(path string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, root := range w.roots {
		if rel, err := filepath.Rel(root, path); err == nil && !strings.HasPrefix(rel, "..") {
			return true
		}
	}
	return false
}

// debouncer delays callbacks per key until the key has been quiet for
// delay.
type debouncer struct {
	delay    time.Duration
	callback func(key string)
	timers   map[string]*time.Timer
	mu       sync.Mutex
}

// newDebouncer creates a new debouncer.
func newDebouncer(delay time.Duration, callback func(key string)) *debouncer {
	return &debouncer{
		delay:    delay,
		callback: callback,
		timers:   make(map[string]*time.Timer),
	}
}

// trigger (re)starts the timer for key.
func (d *debouncer) trigger(key string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timers == nil {
		return
	}
	if t, ok := d.timers[key]; ok {
		t.Stop()
	}

	var timer *time.Timer
	timer = time.AfterFunc(d.delay, func() {
		d.mu.Lock()
		if d.timers[key] != timer {
			d.mu.Unlock()
			return
		}
		delete(d.timers, key)
		d.mu.Unlock()
		d.callback(key)
	})
	d.timers[key] = timer
}

// stop cancels all pending timers. Later triggers are ignored.
func (d *debouncer) stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, t := range d.timers {
		t.Stop()
	}
	d.timers = nil
}
