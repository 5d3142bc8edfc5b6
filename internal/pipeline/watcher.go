package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// DefaultDebounce waits for editor writes to settle before reloading
const DefaultDebounce = 250 * time.Millisecond

// Watcher reloads a manifest file into a Reconciler whenever it changes
type Watcher struct {
	path       string
	reconciler *Reconciler
	logger     *zap.Logger
	debounce   time.Duration

	// OnReload, if set, is called after every reload attempt
	OnReload func(err error)
}

// NewWatcher creates a watcher for the manifest at path
func NewWatcher(path string, reconciler *Reconciler, logger *zap.Logger, debounce time.Duration) *Watcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Watcher{
		path:       filepath.Clean(path),
		reconciler: reconciler,
		logger:     logger.With(zap.String("path", path)),
		debounce:   debounce,
	}
}

// Run watches until ctx is done. The parent directory is watched rather than
// the file so that editors that replace the file by rename are seen.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create manifest watcher: %w", err)
	}
	defer fw.Close()

	if err := fw.Add(filepath.Dir(w.path)); err != nil {
		return fmt.Errorf("watch %q: %w", w.path, err)
	}

	var fire <-chan time.Time
	for {
		select {
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != w.path {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			fire = time.After(w.debounce)

		case <-fire:
			fire = nil
			w.reload(ctx)

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("manifest watcher failed", zap.Error(err))

		case <-ctx.Done():
			return nil
		}
	}
}

func (w *Watcher) reload(ctx context.Context) {
	m, err := LoadFile(w.path)
	if err == nil {
		err = w.reconciler.Apply(ctx, m)
	}
	if err != nil {
		w.logger.Error("manifest reload failed", zap.Error(err))
	} else {
		w.logger.Info("manifest reloaded")
	}
	if w.OnReload != nil {
		w.OnReload(err)
	}
}
