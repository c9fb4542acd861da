package app

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"blocknotes/internal/storage"
)

// watcher reloads live blocks that another process changed in storage.
// File storage is watched with fsnotify; other drivers are polled.
type watcher struct {
	app      *App
	interval time.Duration

	// reloadFn defaults to the block service's Reload.
	reloadFn func(ctx context.Context, id string) error

	mu       sync.Mutex
	cancel   context.CancelFunc
	done     chan struct{}
	inflight sync.WaitGroup
}

func newWatcher(a *App, interval time.Duration) *watcher {
	return &watcher{app: a, interval: interval, reloadFn: a.blocks.Reload}
}

// Start begins watching in the background. It is a no-op when already
// running.
func (w *watcher) Start(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.cancel != nil {
		return
	}
	ctx, w.cancel = context.WithCancel(ctx)
	w.done = make(chan struct{})

	go func() {
		defer close(w.done)
		if w.app.files != nil {
			w.watchFiles(ctx, w.app.files)
			return
		}
		w.pollLoop(ctx)
	}()
}

// Stop terminates watching and waits for the loop and any reload still
// running from a debounced file event to finish. No reload starts after
// Stop returns.
func (w *watcher) Stop() {
	w.mu.Lock()
	cancel, done := w.cancel, w.done
	w.cancel = nil
	w.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
	w.inflight.Wait()
}

func (w *watcher) watchFiles(ctx context.Context, fs *storage.FileStore) {
	err := fs.Watch(ctx, func(ch storage.FileChange) {
		w.reload(ctx, ch.ID)
	})
	if err != nil {
		w.app.logger.Warn("file watch stopped", zap.Error(err))
	}
}

func (w *watcher) pollLoop(ctx context.Context) {
	if w.interval <= 0 {
		return
	}
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, id := range w.app.blocks.Live() {
				if ctx.Err() != nil {
					return
				}
				w.reload(ctx, id)
			}
		}
	}
}

func (w *watcher) reload(ctx context.Context, id string) {
	w.mu.Lock()
	if w.cancel == nil || ctx.Err() != nil {
		w.mu.Unlock()
		return
	}
	w.inflight.Add(1)
	w.mu.Unlock()
	defer w.inflight.Done()

	if err := w.reloadFn(ctx, id); err != nil {
		w.app.logger.Warn("reload block failed", zap.String("block_id", id), zap.Error(err))
	}
}

// StartWatching reloads live blocks when storage changes underneath them.
// It does nothing when watching is disabled or storage lives in memory.
func (a *App) StartWatching(ctx context.Context) {
	if !a.cfg.Storage.Watch || a.cfg.Storage.Driver == "memory" {
		return
	}
	if a.watcher == nil {
		a.watcher = newWatcher(a, a.cfg.Storage.PollInterval)
	}
	a.watcher.Start(ctx)
}
