// Package watcher monitors the configuration file and source data
// directories, emitting classified events when something relevant
// changes.
package watcher

import (
	"context"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Kind says what changed.
type Kind int

const (
	// ConfigChanged fires when the configuration file is written.
	ConfigChanged Kind = iota
	// SourceFileChanged fires when a CSV data file appears or changes
	// in a watched directory.
	SourceFileChanged
)

func (k Kind) String() string {
	switch k {
	case ConfigChanged:
		return "config-changed"
	case SourceFileChanged:
		return "source-file-changed"
	default:
		return "unknown"
	}
}

// Event is one classified filesystem change.
type Event struct {
	Kind Kind
	Path string
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce sets how long to coalesce rapid changes to one path.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) { w.debounce = d }
}

// WithPollInterval sets the fallback polling cadence used when inotify
// is unavailable.
func WithPollInterval(d time.Duration) Option {
	return func(w *Watcher) { w.pollInterval = d }
}

// Watcher turns raw filesystem notifications into config and source
// events. When the native watcher cannot start it degrades to polling
// the config file's modification time.
type Watcher struct {
	configPath   string
	dirs         []string
	logger       *log.Logger
	debounce     time.Duration
	pollInterval time.Duration

	events chan Event

	mu      sync.Mutex
	pending map[string]*time.Timer

	stopCh chan struct{}
	doneCh chan struct{}
}

// New builds a watcher over the config file and the given source
// directories.
func New(configPath string, dirs []string, logger *log.Logger, opts ...Option) *Watcher {
	w := &Watcher{
		configPath:   configPath,
		dirs:         dirs,
		logger:       logger,
		debounce:     500 * time.Millisecond,
		pollInterval: 5 * time.Second,
		events:       make(chan Event, 16),
		pending:      make(map[string]*time.Timer),
		stopCh:       make(chan struct{}),
		doneCh:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Events is the stream of classified changes.
func (w *Watcher) Events() <-chan Event { return w.events }

// Start begins watching. It returns after the watch is established;
// delivery happens on a background goroutine until Stop or ctx ends.
// When the native watcher cannot start, it degrades to polling the
// config file, so Start always succeeds.
func (w *Watcher) Start(ctx context.Context) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		w.logger.Printf("native file watching unavailable (%v), falling back to polling", err)
		go w.pollLoop(ctx)
		return
	}

	if dir := filepath.Dir(w.configPath); dir != "" {
		if err := fsw.Add(dir); err != nil {
			w.logger.Printf("cannot watch config directory %s: %v", dir, err)
		}
	}
	for _, dir := range w.dirs {
		if err := fsw.Add(dir); err != nil {
			w.logger.Printf("cannot watch source directory %s: %v", dir, err)
		}
	}

	go w.watchLoop(ctx, fsw)
}

// Stop ends watching and waits for the delivery goroutine.
func (w *Watcher) Stop() {
	close(w.stopCh)
	<-w.doneCh
}

func (w *Watcher) watchLoop(ctx context.Context, fsw *fsnotify.Watcher) {
	defer close(w.doneCh)
	defer fsw.Close()
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case ev, ok := <-fsw.Events:
			if !ok {
				return
			}
			event, relevant := classify(ev.Name, ev.Op, w.configPath)
			if !relevant {
				continue
			}
			w.scheduleEmit(event)
		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			w.logger.Printf("file watch error: %v", err)
		}
	}
}

// scheduleEmit coalesces bursts of changes to one path into a single
// event after the debounce window.
func (w *Watcher) scheduleEmit(ev Event) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if timer, ok := w.pending[ev.Path]; ok {
		timer.Reset(w.debounce)
		return
	}
	w.pending[ev.Path] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.pending, ev.Path)
		w.mu.Unlock()
		select {
		case w.events <- ev:
		case <-w.stopCh:
		}
	})
}

// pollLoop watches the config file by modification time when inotify
// is unavailable. Source directories are not polled; CSV ingest waits
// for the next restart on such hosts.
func (w *Watcher) pollLoop(ctx context.Context) {
	defer close(w.doneCh)
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	var lastMod time.Time
	if info, err := os.Stat(w.configPath); err == nil {
		lastMod = info.ModTime()
	}
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case <-ticker.C:
			info, err := os.Stat(w.configPath)
			if err != nil {
				continue
			}
			if info.ModTime().After(lastMod) {
				lastMod = info.ModTime()
				select {
				case w.events <- Event{Kind: ConfigChanged, Path: w.configPath}:
				case <-w.stopCh:
					return
				}
			}
		}
	}
}

// classify decides whether a raw notification matters. Writes and
// creates count; deletes and renames do not. The config file maps to
// ConfigChanged, CSV files to SourceFileChanged, everything else is
// noise.
func classify(name string, op fsnotify.Op, configPath string) (Event, bool) {
	if op&(fsnotify.Write|fsnotify.Create) == 0 {
		return Event{}, false
	}
	if name == configPath {
		return Event{Kind: ConfigChanged, Path: name}, true
	}
	if strings.EqualFold(filepath.Ext(name), ".csv") {
		return Event{Kind: SourceFileChanged, Path: name}, true
	}
	return Event{}, false
}
