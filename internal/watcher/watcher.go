// Package watcher monitors the inbox directory for job manifests and hands
// each one to a handler once it has stopped changing.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"streamdigest/internal/jobs"
	"streamdigest/internal/logging"
)

// Handler processes one manifest. Returned errors are logged; the watcher
// keeps running.
type Handler func(ctx context.Context, manifestPath string) error

const defaultSettleDelay = 500 * time.Millisecond

// Watcher feeds inbox manifests to a Handler one at a time.
type Watcher struct {
	dir     string
	handler Handler
	logger  *slog.Logger
	settle  time.Duration
	fs      *fsnotify.Watcher

	mu      sync.Mutex
	pending map[string]*time.Timer
}

// Option customizes a Watcher.
type Option func(*Watcher)

// WithSettleDelay sets how long a manifest must be quiet before it is handled.
func WithSettleDelay(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.settle = d
		}
	}
}

// New starts watching dir.
func New(dir string, handler Handler, logger *slog.Logger, opts ...Option) (*Watcher, error) {
	if handler == nil {
		return nil, errors.New("watcher: handler is required")
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := fsw.Add(dir); err != nil {
		_ = fsw.Close()
		return nil, fmt.Errorf("add watch path: %w", err)
	}
	w := &Watcher{
		dir:     dir,
		handler: handler,
		logger:  logging.NewComponentLogger(logger, "watcher"),
		settle:  defaultSettleDelay,
		fs:      fsw,
		pending: make(map[string]*time.Timer),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Run handles manifests already in the inbox, then new ones as they
// appear, until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	queue := make(chan string, 64)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		w.work(ctx, queue)
	}()
	defer func() {
		cancel()
		w.stopTimers()
		wg.Wait()
	}()

	existing, err := w.existingManifests()
	if err != nil {
		return err
	}
	w.logger.Info("inbox watcher started",
		logging.String("inbox", w.dir),
		logging.Int("existing", len(existing)),
	)
	for _, path := range existing {
		select {
		case queue <- path:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("inbox watcher stopped")
			return ctx.Err()
		case event, ok := <-w.fs.Events:
			if !ok {
				return errors.New("watcher events channel closed")
			}
			if !jobs.IsManifest(event.Name) {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			w.schedule(ctx, event.Name, queue)
		case err, ok := <-w.fs.Errors:
			if !ok {
				return errors.New("watcher errors channel closed")
			}
			logging.WarnWithContext(w.logger, "watcher error", "watcher_error", logging.Error(err))
		}
	}
}

// Close stops watching the directory.
func (w *Watcher) Close() error {
	return w.fs.Close()
}

func (w *Watcher) schedule(ctx context.Context, path string, queue chan<- string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if timer, ok := w.pending[path]; ok {
		timer.Reset(w.settle)
		return
	}
	w.pending[path] = time.AfterFunc(w.settle, func() {
		w.mu.Lock()
		delete(w.pending, path)
		w.mu.Unlock()
		select {
		case queue <- path:
		case <-ctx.Done():
		}
	})
}

func (w *Watcher) stopTimers() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for path, timer := range w.pending {
		timer.Stop()
		delete(w.pending, path)
	}
}

func (w *Watcher) work(ctx context.Context, queue <-chan string) {
	for {
		select {
		case <-ctx.Done():
			return
		case path := <-queue:
			if _, err := os.Stat(path); err != nil {
				w.logger.Debug("manifest vanished before processing", logging.String("manifest", path))
				continue
			}
			w.logger.Info("manifest detected", logging.String("manifest", path))
			if err := w.handler(ctx, path); err != nil {
				logging.ErrorWithContext(w.logger, "manifest processing failed", "manifest_failed",
					logging.String("manifest", path),
					logging.Error(err),
				)
			}
		}
	}
}

func (w *Watcher) existingManifests() ([]string, error) {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return nil, fmt.Errorf("read inbox: %w", err)
	}
	var out []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		path := filepath.Join(w.dir, entry.Name())
		if jobs.IsManifest(path) {
			out = append(out, path)
		}
	}
	sort.Strings(out)
	return out, nil
}
