package service

import (
	"context"
	"sync"
)

// ExportedRunningGuard is an exported alias so _test packages can test the guard.
type ExportedRunningGuard = runningGuard

// ─────────────────────────────────────────────────────────────
// runningGuard: one in-flight operation per key
// ─────────────────────────────────────────────────────────────

// runningGuard ensures only one operation runs for a given key (a block id)
// at a time, and lets callers wait for one key or for everything in flight.
// Keys may be locked while WaitAll is waiting.
type runningGuard struct {
	mu      sync.Mutex
	running map[string]chan struct{} // each closed when its key unlocks
	idle    chan struct{}            // closed when running drains; nil while nobody waits
}

// TryLock marks key as running. It returns false if key is already running.
func (g *runningGuard) TryLock(key string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.running == nil {
		g.running = make(map[string]chan struct{})
	}
	if _, ok := g.running[key]; ok {
		return false
	}
	g.running[key] = make(chan struct{})
	return true
}

// Unlock releases key. Must be called after TryLock returns true.
func (g *runningGuard) Unlock(key string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if done, ok := g.running[key]; ok {
		close(done)
		delete(g.running, key)
	}
	if len(g.running) == 0 && g.idle != nil {
		close(g.idle)
		g.idle = nil
	}
}

// Running reports whether key is locked.
func (g *runningGuard) Running(key string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.running[key]
	return ok
}

// Wait blocks until key is not running or ctx is cancelled. A key locked
// again right after an unlock is waited for too.
func (g *runningGuard) Wait(ctx context.Context, key string) {
	for {
		g.mu.Lock()
		done, ok := g.running[key]
		g.mu.Unlock()
		if !ok {
			return
		}
		select {
		case <-done:
		case <-ctx.Done():
			return
		}
	}
}

// WaitAll blocks until nothing is running or ctx is cancelled.
func (g *runningGuard) WaitAll(ctx context.Context) {
	g.mu.Lock()
	if len(g.running) == 0 {
		g.mu.Unlock()
		return
	}
	if g.idle == nil {
		g.idle = make(chan struct{})
	}
	idle := g.idle
	g.mu.Unlock()

	select {
	case <-idle:
	case <-ctx.Done():
	}
}
