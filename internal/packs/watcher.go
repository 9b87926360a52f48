package packs

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"
)

// defaultDebounceWindow is how long an archive must stay quiet before it is
// reported. Drop folders receive large zips over many write events.
const defaultDebounceWindow = 500 * time.Millisecond

// ArchiveEvent reports one settled archive under a watched root.
type ArchiveEvent struct {
	Path string
	Time time.Time
}

// Watcher reports new or rewritten pack archives under a set of roots,
// coalescing filesystem events until each archive settles.
type Watcher struct {
	fsw       *fsnotify.Watcher
	pattern   string
	debounce  *debouncer
	onArchive func(ArchiveEvent)
	logger    Logger

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithWatchPattern overrides the archive glob pattern.
func WithWatchPattern(pattern string) WatcherOption {
	return func(w *Watcher) {
		if pattern != "" {
			w.pattern = pattern
		}
	}
}

// WithDebounceWindow overrides how long archives must stay quiet before
// being reported.
func WithDebounceWindow(window time.Duration) WatcherOption {
	return func(w *Watcher) {
		if window > 0 {
			w.debounce.window = window
		}
	}
}

// WithWatchLogger attaches a structured logger.
func WithWatchLogger(logger Logger) WatcherOption {
	return func(w *Watcher) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// NewWatcher builds a Watcher delivering settled archives to onArchive.
// Callbacks run on the watcher's event goroutine.
func NewWatcher(onArchive func(ArchiveEvent), opts ...WatcherOption) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &Watcher{
		fsw:       fsw,
		pattern:   defaultPattern,
		onArchive: onArchive,
		logger:    noopLogger{},
	}
	w.debounce = newDebouncer(defaultDebounceWindow, w.flush)
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// AddRoot watches root and every non-hidden directory below it.
func (w *Watcher) AddRoot(root string) error {
	if err := w.fsw.Add(root); err != nil {
		return err
	}
	w.logger.Info("watching pack root", "path", root)
	return w.walkAndAdd(root)
}

func (w *Watcher) walkAndAdd(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if !entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		sub := filepath.Join(dir, entry.Name())
		if err := w.fsw.Add(sub); err != nil {
			w.logger.Warn("cannot watch directory", "path", sub, "err", err)
			continue
		}
		if err := w.walkAndAdd(sub); err != nil {
			w.logger.Warn("cannot walk directory", "path", sub, "err", err)
		}
	}
	return nil
}

// Start launches the event loop. Safe to call once; subsequent calls are
// no-ops until Stop.
func (w *Watcher) Start(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return
	}
	w.running = true
	ctx, w.cancel = context.WithCancel(ctx)
	go w.handleEvents(ctx)
}

func (w *Watcher) handleEvents(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if !strings.HasPrefix(filepath.Base(event.Name), ".") {
						if err := w.fsw.Add(event.Name); err == nil {
							w.walkAndAdd(event.Name)
						}
					}
					continue
				}
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			if !w.matches(event.Name) {
				continue
			}
			w.debounce.add(ArchiveEvent{Path: event.Name, Time: time.Now()})
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Error("watch error", "err", err)
		}
	}
}

func (w *Watcher) matches(path string) bool {
	if strings.HasPrefix(filepath.Base(path), ".") {
		return false
	}
	ok, err := doublestar.Match(w.pattern, filepath.ToSlash(path))
	return err == nil && ok
}

func (w *Watcher) flush(events []ArchiveEvent) {
	for _, ev := range events {
		w.logger.Info("archive settled", "path", ev.Path)
		w.onArchive(ev)
	}
}

// Stop halts the event loop, flushes pending archives, and releases the
// filesystem watcher. Safe to call whether or not Start ran.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	if w.running {
		w.running = false
		w.cancel()
	}
	w.mu.Unlock()

	w.debounce.stop()
	return w.fsw.Close()
}

// debouncer coalesces events per path and flushes them in one batch once
// the window passes without new activity.
type debouncer struct {
	window  time.Duration
	onFlush func([]ArchiveEvent)

	mu      sync.Mutex
	pending map[string]ArchiveEvent
	timer   *time.Timer
	stopped bool
}

func newDebouncer(window time.Duration, onFlush func([]ArchiveEvent)) *debouncer {
	return &debouncer{
		window:  window,
		onFlush: onFlush,
		pending: make(map[string]ArchiveEvent),
	}
}

func (d *debouncer) add(ev ArchiveEvent) {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}
	d.pending[ev.Path] = ev
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.window, d.flush)
	d.mu.Unlock()
}

func (d *debouncer) flush() {
	d.mu.Lock()
	events := make([]ArchiveEvent, 0, len(d.pending))
	for _, ev := range d.pending {
		events = append(events, ev)
	}
	d.pending = make(map[string]ArchiveEvent)
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.mu.Unlock()

	if len(events) > 0 && d.onFlush != nil {
		d.onFlush(events)
	}
}

func (d *debouncer) stop() {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}
	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.mu.Unlock()

	d.flush()
}
