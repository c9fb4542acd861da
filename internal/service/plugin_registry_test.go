package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"blocknotes/internal/block"
	"blocknotes/internal/domain"
	"blocknotes/internal/service"
	"blocknotes/internal/storage"
)

type recordingHook struct {
	typ       domain.BlockType
	createErr error
	deleteErr error
	created   []string
	deleted   []domain.Unit
}

func (h *recordingHook) BlockType() domain.BlockType { return h.typ }

func (h *recordingHook) OnCreate(_ context.Context, b *block.Block) error {
	h.created = append(h.created, b.ID())
	return h.createErr
}

func (h *recordingHook) OnDelete(_ context.Context, u domain.Unit) error {
	h.deleted = append(h.deleted, u)
	return h.deleteErr
}

func TestHookRegistry_DuplicatePanics(t *testing.T) {
	r := service.NewHookRegistry()
	r.Register(&recordingHook{typ: domain.BlockTypeCode})
	assert.Panics(t, func() { r.Register(&recordingHook{typ: domain.BlockTypeCode}) })
	assert.Equal(t, []domain.BlockType{domain.BlockTypeCode}, r.Types())
}

func TestHookRegistry_NilIsNoop(t *testing.T) {
	var r *service.HookRegistry
	b, err := block.New("x", domain.Quote{})
	require.NoError(t, err)
	assert.NoError(t, r.OnCreate(context.Background(), b))
	assert.NoError(t, r.OnDelete(context.Background(), b.Unit()))
	assert.Empty(t, r.Types())
}

func TestBlockService_RunsHooks(t *testing.T) {
	ctx := context.Background()
	hook := &recordingHook{typ: domain.BlockTypeCode}
	hooks := service.NewHookRegistry()
	hooks.Register(hook)
	svc := service.NewBlockService(storage.NewMemoryStore(), &service.MockEmitter{}, service.WithHooks(hooks))

	code, err := svc.Create(ctx, "code", map[string]any{"content": "x", "language": "go"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, "quote", map[string]any{"content": "q"})
	require.NoError(t, err)
	assert.Equal(t, []string{code.ID()}, hook.created)

	hook.deleteErr = errors.New("cleanup failed")
	require.NoError(t, svc.Delete(ctx, code.ID()), "hook failures do not fail the delete")
	require.Len(t, hook.deleted, 1)
	assert.Equal(t, domain.Code{Content: "x", Language: "go"}, hook.deleted[0].Data)
}

func TestBlockService_CreateHookAborts(t *testing.T) {
	ctx := context.Background()
	hooks := service.NewHookRegistry()
	hooks.Register(&recordingHook{typ: domain.BlockTypeTable, createErr: errors.New("no tables here")})
	store := storage.NewMemoryStore()
	svc := service.NewBlockService(store, &service.MockEmitter{}, service.WithHooks(hooks))

	_, err := svc.Create(ctx, "table", map[string]any{"rows": 1, "columns": 1})
	assert.ErrorContains(t, err, "no tables here")
	assert.Equal(t, 0, store.Puts())
	assert.Empty(t, svc.Live())
}
