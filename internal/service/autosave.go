package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/bep/debounce"
	"github.com/robfig/cron/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"blocknotes/internal/block"
	"blocknotes/internal/domain"
	"blocknotes/internal/log"
)

// DefaultAutosaveDelay is how long a block must be idle before it is saved.
const DefaultAutosaveDelay = 750 * time.Millisecond

// ─────────────────────────────────────────────────────────────
// Autosaver: saves edited blocks once typing pauses
// ─────────────────────────────────────────────────────────────

// Autosaver observes blocks and saves them after edits settle. Saves of the
// same block never overlap: an edit that arrives while its block is being
// saved marks it dirty and the running save goes around once more.
//
// A failed save is logged and leaves the block dirty; the next edit, Flush or
// scheduled flush retries it.
type Autosaver struct {
	store   domain.UnitStore
	delay   time.Duration
	logger  *zap.Logger
	emitter EventEmitter

	ctx    context.Context
	cancel context.CancelFunc
	guard  runningGuard

	mu      sync.Mutex
	tracked map[string]*trackedBlock
	cron    *cron.Cron
	closed  bool
}

type trackedBlock struct {
	b           *block.Block
	debounced   func(func())
	dirty       bool
	unsubscribe func()
}

type AutosaveOption func(*Autosaver)

func WithDelay(d time.Duration) AutosaveOption {
	return func(a *Autosaver) {
		if d > 0 {
			a.delay = d
		}
	}
}

func WithAutosaveLogger(l *zap.Logger) AutosaveOption {
	return func(a *Autosaver) {
		if l != nil {
			a.logger = l
		}
	}
}

// WithAutosaveEmitter reports block:saved and block:save-failed events.
func WithAutosaveEmitter(e EventEmitter) AutosaveOption {
	return func(a *Autosaver) { a.emitter = e }
}

// NewAutosaver creates an Autosaver that saves into store.
func NewAutosaver(store domain.UnitStore, opts ...AutosaveOption) *Autosaver {
	ctx, cancel := context.WithCancel(context.Background())
	a := &Autosaver{
		store:   store,
		delay:   DefaultAutosaveDelay,
		logger:  log.Get(),
		ctx:     ctx,
		cancel:  cancel,
		tracked: make(map[string]*trackedBlock),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.logger = a.logger.Named("autosave")
	return a
}

// Track starts saving b after edits. Tracking an already tracked block is a
// no-op. The returned func stops tracking without saving pending edits.
func (a *Autosaver) Track(b *block.Block) (untrack func()) {
	a.mu.Lock()
	defer a.mu.Unlock()
	id := b.ID()
	if a.closed {
		return func() {}
	}
	if _, ok := a.tracked[id]; !ok {
		t := &trackedBlock{b: b, debounced: debounce.New(a.delay)}
		t.unsubscribe = b.Subscribe(block.ObserverFunc(func(e block.Event) error {
			a.onEvent(t, e)
			return nil
		}))
		a.tracked[id] = t
	}
	return func() { a.Untrack(id) }
}

// Untrack stops saving the block with id.
func (a *Autosaver) Untrack(id string) {
	a.mu.Lock()
	t, ok := a.tracked[id]
	if ok {
		delete(a.tracked, id)
	}
	a.mu.Unlock()
	if ok {
		t.unsubscribe()
	}
}

// WaitIdle blocks until no save of the block with id is running, or ctx is
// done.
func (a *Autosaver) WaitIdle(ctx context.Context, id string) {
	a.guard.Wait(ctx, id)
}

// Tracked returns the ids of tracked blocks, sorted.
func (a *Autosaver) Tracked() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	ids := make([]string, 0, len(a.tracked))
	for id := range a.tracked {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Dirty reports whether the block has edits that are not saved yet.
func (a *Autosaver) Dirty(id string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	t, ok := a.tracked[id]
	return ok && t.dirty
}

func (a *Autosaver) onEvent(t *trackedBlock, e block.Event) {
	// Synced events come from our own saves.
	if e.Kind != block.EventBlockUpdated {
		return
	}
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return
	}
	t.dirty = true
	a.mu.Unlock()

	id := e.BlockID
	t.debounced(func() {
		if err := a.save(a.ctx, id); err != nil {
			a.logger.Warn("autosave failed", zap.String("block_id", id), zap.Error(err))
		}
	})
}

// save writes the block while it is dirty. It returns immediately if a save
// of the same block is already running; that save picks up the new edits.
func (a *Autosaver) save(ctx context.Context, id string) error {
	if !a.guard.TryLock(id) {
		return nil
	}
	for {
		a.mu.Lock()
		t, ok := a.tracked[id]
		if !ok || !t.dirty {
			// Released under a.mu so an edit marking the block dirty either
			// is seen here or finds the guard free.
			a.guard.Unlock(id)
			a.mu.Unlock()
			return nil
		}
		t.dirty = false
		a.mu.Unlock()

		err := t.b.Save(ctx, a.store)
		if err != nil {
			a.mu.Lock()
			t.dirty = true
			a.guard.Unlock(id)
			a.mu.Unlock()
			a.emit(EventBlockSaveFailed, t.b, err)
			return err
		}
		a.logger.Debug("block saved", zap.String("block_id", id))
		a.emit(EventBlockSaved, t.b, nil)
	}
}

func (a *Autosaver) emit(event string, b *block.Block, err error) {
	if a.emitter == nil {
		return
	}
	d := BlockEventData{BlockID: b.ID(), Type: b.Type()}
	if err != nil {
		d.Error = err.Error()
	}
	a.emitter.Emit(a.ctx, event, d)
}

// Flush saves every dirty block now, without waiting for the delay, and
// returns the combined errors. Blocks whose save is already running are
// left to that save; Flush waits for them to finish.
func (a *Autosaver) Flush(ctx context.Context) error {
	a.mu.Lock()
	var dirty []string
	for id, t := range a.tracked {
		if t.dirty {
			dirty = append(dirty, id)
		}
	}
	a.mu.Unlock()
	sort.Strings(dirty)

	var errs error
	for _, id := range dirty {
		if err := a.save(ctx, id); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("save block %s: %w", id, err))
		}
	}
	a.guard.WaitAll(ctx)
	return errs
}

// StartSchedule flushes dirty blocks on a cron schedule, e.g. "@every 30s"
// or "*/5 * * * *".
func (a *Autosaver) StartSchedule(spec string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return fmt.Errorf("autosaver closed")
	}
	if a.cron != nil {
		a.cron.Stop()
	}
	c := cron.New()
	if _, err := c.AddFunc(spec, func() {
		if err := a.Flush(a.ctx); err != nil {
			a.logger.Warn("scheduled flush failed", zap.Error(err))
		}
	}); err != nil {
		return fmt.Errorf("invalid flush schedule %q: %w", spec, err)
	}
	c.Start()
	a.cron = c
	a.logger.Debug("flush scheduled", zap.String("schedule", spec))
	return nil
}

// Close stops the schedule, saves pending edits and waits for in-flight
// saves, then stops tracking every block.
func (a *Autosaver) Close(ctx context.Context) error {
	a.mu.Lock()
	c := a.cron
	a.cron = nil
	a.mu.Unlock()
	if c != nil {
		select {
		case <-c.Stop().Done():
		case <-ctx.Done():
		}
	}

	err := a.Flush(ctx)

	a.mu.Lock()
	a.closed = true
	tracked := a.tracked
	a.tracked = make(map[string]*trackedBlock)
	a.mu.Unlock()
	for _, t := range tracked {
		t.unsubscribe()
	}
	a.cancel()
	return err
}
