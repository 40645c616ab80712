// Package contentwatch turns edits of <dir>/<key>.json on disk into cache invalidations.
package contentwatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/cuihairu/playhub/internal/ports"
)

const DefaultDebounce = 200 * time.Millisecond

// Watcher reports which content key changed under one directory.
type Watcher struct {
	dir      string
	debounce time.Duration
	onChange func(ports.ContentKey)
	logger   *slog.Logger
	watcher  *fsnotify.Watcher

	mu         sync.Mutex
	running    bool
	debouncers map[ports.ContentKey]pending
	seq        uint64
	stop       chan struct{}
	done       chan struct{}
}

type pending struct {
	timer *time.Timer
	seq   uint64
}

// New prepares a watcher for dir; onChange runs once per burst of events on a key.
func New(dir string, debounce time.Duration, onChange func(ports.ContentKey), logger *slog.Logger) (*Watcher, error) {
	if onChange == nil {
		return nil, errors.New("contentwatch: onChange required")
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if logger == nil {
		logger = slog.Default()
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	return &Watcher{
		dir:        dir,
		debounce:   debounce,
		onChange:   onChange,
		logger:     logger.With("component", "contentwatch"),
		watcher:    fw,
		debouncers: make(map[ports.ContentKey]pending),
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
	}, nil
}

// Start begins watching; it returns once the directory is registered.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return errors.New("contentwatch: already running")
	}
	w.running = true
	w.mu.Unlock()

	if err := w.watcher.Add(w.dir); err != nil {
		w.mu.Lock()
		w.running = false
		w.mu.Unlock()
		return fmt.Errorf("watch %s: %w", w.dir, err)
	}
	go w.loop(ctx)
	w.logger.Info("watching content dir", "dir", w.dir, "debounce", w.debounce.String())
	return nil
}

func (w *Watcher) loop(ctx context.Context) {
	defer close(w.done)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stop:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handle(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("file watcher error", "error", err)
		}
	}
}

func (w *Watcher) handle(event fsnotify.Event) {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
		!event.Has(fsnotify.Rename) && !event.Has(fsnotify.Remove) {
		return
	}
	key, ok := KeyForPath(event.Name)
	if !ok {
		return
	}
	w.logger.Debug("content file event", "op", event.Op.String(), "file", event.Name)

	w.mu.Lock()
	defer w.mu.Unlock()
	if p, exists := w.debouncers[key]; exists {
		p.timer.Stop()
	}
	w.seq++
	seq := w.seq
	w.debouncers[key] = pending{
		timer: time.AfterFunc(w.debounce, func() { w.fire(key, seq) }),
		seq:   seq,
	}
}

// fire runs a debounced callback unless a later event on key replaced it; a timer
// that was already running when Stop was called must not drop its successor.
func (w *Watcher) fire(key ports.ContentKey, seq uint64) {
	w.mu.Lock()
	p, ok := w.debouncers[key]
	if !ok || p.seq != seq {
		w.mu.Unlock()
		return
	}
	delete(w.debouncers, key)
	w.mu.Unlock()
	w.logger.Info("content file changed", "key", string(key))
	w.onChange(key)
}

// KeyForPath maps ".../<key>.json" to its content key; anything else is ignored.
func KeyForPath(path string) (ports.ContentKey, bool) {
	base := filepath.Base(path)
	if filepath.Ext(base) != ".json" {
		return "", false
	}
	key, err := ports.ParseContentKey(strings.TrimSuffix(base, ".json"))
	if err != nil {
		return "", false
	}
	return key, true
}

// Close stops the loop and any pending debounced callbacks.
func (w *Watcher) Close() error {
	w.mu.Lock()
	for k, p := range w.debouncers {
		p.timer.Stop()
		delete(w.debouncers, k)
	}
	running := w.running
	w.running = false
	w.mu.Unlock()

	if running {
		close(w.stop)
		<-w.done
	}
	return w.watcher.Close()
}
