package store

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher hot-reloads config.json when it is edited outside the process
// (spec.md §4.C), debounced the same way the teacher debounces compose
// file edits: a single timer, reset on every burst of events.
type Watcher struct {
	watcher  *fsnotify.Watcher
	store    *Store
	debounce time.Duration
	onReload func(model PolicyConfigChange)
	stopCh   chan struct{}
	stopped  chan struct{}
}

// PolicyConfigChange is passed to the reload callback so callers can log
// or react without re-reading the store themselves.
type PolicyConfigChange struct {
	Err error
}

// NewWatcher watches s's data directory for external edits to config.json.
func NewWatcher(s *Store, onReload func(PolicyConfigChange)) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fw.Add(s.dataDir); err != nil {
		fw.Close()
		return nil, err
	}
	return &Watcher{
		watcher:  fw,
		store:    s,
		debounce: 500 * time.Millisecond,
		onReload: onReload,
		stopCh:   make(chan struct{}),
		stopped:  make(chan struct{}),
	}, nil
}

func (w *Watcher) Start(ctx context.Context) {
	go w.loop(ctx)
}

func (w *Watcher) Stop() error {
	close(w.stopCh)
	<-w.stopped
	return w.watcher.Close()
}

func (w *Watcher) loop(ctx context.Context) {
	defer close(w.stopped)

	var timer *time.Timer
	var timerCh <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != configFile {
				continue
			}
			if !(event.Has(fsnotify.Write) || event.Has(fsnotify.Create)) {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.NewTimer(w.debounce)
			timerCh = timer.C
		case <-timerCh:
			timerCh = nil
			w.reload(ctx)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			slog.ErrorContext(ctx, "config watcher error", "error", err)
		}
	}
}

func (w *Watcher) reload(ctx context.Context) {
	w.store.mu.Lock()
	cfg := w.store.config.Clone()
	ok, err := readJSON(w.store.path(configFile), &cfg)
	if err == nil && ok {
		w.store.config = cfg
	}
	w.store.mu.Unlock()

	if err != nil {
		slog.ErrorContext(ctx, "failed to reload config.json after external edit", "error", err)
	} else {
		slog.InfoContext(ctx, "reloaded config.json after external edit")
	}
	if w.onReload != nil {
		w.onReload(PolicyConfigChange{Err: err})
	}
}
