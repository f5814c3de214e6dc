package automaton

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long Watch waits after the last write before
// reloading. Editors and os.WriteFile truncate before writing, so the first
// event often sees an empty file.
const DefaultDebounce = 100 * time.Millisecond

type watchConfig struct {
	debounce time.Duration
	observe  func(*Graph, error)
}

// WatchOption configures Watch.
type WatchOption func(*watchConfig)

// WithDebounce sets the quiet period before a reload.
func WithDebounce(d time.Duration) WatchOption {
	return func(c *watchConfig) {
		c.debounce = d
	}
}

// OnReload is called after every reload attempt, with the new graph or the
// error that kept the previous one in service.
func OnReload(fn func(*Graph, error)) WatchOption {
	return func(c *watchConfig) {
		c.observe = fn
	}
}

// Watch reloads the holder whenever its source file is written or recreated.
// It blocks until ctx is cancelled. A broken edit is logged and the previous
// graph keeps serving.
func Watch(ctx context.Context, h *Holder, logger *slog.Logger, opts ...WatchOption) error {
	if h.Path() == "" {
		return ErrNoSource
	}
	cfg := watchConfig{debounce: DefaultDebounce}
	for _, opt := range opts {
		opt(&cfg)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	target := filepath.Clean(h.Path())
	// Editors often replace the file, so watch the directory.
	if err := watcher.Add(filepath.Dir(target)); err != nil {
		return fmt.Errorf("watch dir %q: %w", filepath.Dir(target), err)
	}

	// Stopped until the first relevant event; each event pushes it back.
	timer := time.NewTimer(time.Hour)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			timer.Reset(cfg.debounce)
		case <-timer.C:
			g, err := h.Reload()
			if cfg.observe != nil {
				cfg.observe(g, err)
			}
			if err != nil {
				logger.Error("Automaton reload failed, keeping previous graph", "path", target, "err", err)
				continue
			}
			logger.Info("Automaton reloaded", "path", target, "version", g.Version, "states", len(g.states))
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			return err
		}
	}
}
