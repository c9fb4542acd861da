package service

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"blocknotes/internal/block"
	"blocknotes/internal/domain"
)

// ─────────────────────────────────────────────────────────────
// Hook registry: per-type block lifecycle hooks
// ─────────────────────────────────────────────────────────────

// BlockHook is the contract for per-type lifecycle hooks.
type BlockHook interface {
	// BlockType returns the block type this hook handles.
	BlockType() domain.BlockType
	// OnCreate runs after a block is built and before it is stored. An error
	// aborts the creation.
	OnCreate(ctx context.Context, b *block.Block) error
	// OnDelete runs after a block was removed from the repository, with its
	// last stored unit.
	OnDelete(ctx context.Context, u domain.Unit) error
}

// HookRegistry manages registered hooks, at most one per block type.
type HookRegistry struct {
	mu    sync.RWMutex
	hooks map[domain.BlockType]BlockHook
}

// NewHookRegistry creates an empty registry.
func NewHookRegistry() *HookRegistry {
	return &HookRegistry{hooks: make(map[domain.BlockType]BlockHook)}
}

// Register adds a hook. Panics on duplicate registration.
func (r *HookRegistry) Register(h BlockHook) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t := h.BlockType()
	if _, exists := r.hooks[t]; exists {
		panic(fmt.Sprintf("hook registry: duplicate registration for block type %q", t))
	}
	r.hooks[t] = h
}

func (r *HookRegistry) lookup(t domain.BlockType) (BlockHook, bool) {
	if r == nil {
		return nil, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.hooks[t]
	return h, ok
}

// OnCreate dispatches to the hook for b's type, if any.
func (r *HookRegistry) OnCreate(ctx context.Context, b *block.Block) error {
	h, ok := r.lookup(b.Type())
	if !ok {
		return nil
	}
	return h.OnCreate(ctx, b)
}

// OnDelete dispatches to the hook for u's type, if any.
func (r *HookRegistry) OnDelete(ctx context.Context, u domain.Unit) error {
	h, ok := r.lookup(u.Type)
	if !ok {
		return nil
	}
	return h.OnDelete(ctx, u)
}

// Types lists the block types that have a hook, sorted.
func (r *HookRegistry) Types() []domain.BlockType {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.BlockType, 0, len(r.hooks))
	for t := range r.hooks {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
