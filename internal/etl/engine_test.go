package etl_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"blocknotes/internal/block"
	"blocknotes/internal/domain"
	"blocknotes/internal/etl"
	"blocknotes/internal/ident"
	"blocknotes/internal/service"
	"blocknotes/internal/storage"
)

// staticSource emits a fixed set of records, then err.
type staticSource struct {
	typ     string
	records []etl.Record
	err     error
}

func (s *staticSource) Spec() etl.SourceSpec { return etl.SourceSpec{Type: s.typ, Label: s.typ} }

func (s *staticSource) Read(ctx context.Context, _ etl.SourceConfig) (<-chan etl.Record, <-chan error) {
	out := make(chan etl.Record)
	errCh := make(chan error, 1)
	go func() {
		defer close(out)
		defer close(errCh)
		for _, r := range s.records {
			select {
			case out <- r:
			case <-ctx.Done():
				return
			}
		}
		if s.err != nil {
			errCh <- s.err
		}
	}()
	return out, errCh
}

func newEngine(t *testing.T) (*etl.Engine, *service.BlockService, *storage.MemoryStore) {
	t.Helper()
	store := storage.NewMemoryStore()
	svc := service.NewBlockService(store, &service.MockEmitter{},
		service.WithFactory(block.NewFactory(block.WithIDGenerator(ident.Sequence("b")))))
	return &etl.Engine{Dest: &etl.BlockWriter{Blocks: svc}}, svc, store
}

var sample = []etl.Record{
	{ID: "ext-1", Type: "heading", Data: map[string]any{"content": "Intro", "level": 1}},
	{Type: "paragraph", Data: map[string]any{"content": "body"}},
	{ID: "ext-2", Type: "quote", Data: map[string]any{"content": "said"}},
}

func TestEngine_RunUpsert(t *testing.T) {
	ctx := context.Background()
	etl.RegisterSource(&staticSource{typ: "test_upsert", records: sample})
	engine, svc, store := newEngine(t)

	res, err := engine.Run(ctx, &etl.Job{SourceType: "test_upsert"})
	require.NoError(t, err)
	assert.Equal(t, "success", res.Status)
	assert.Equal(t, 3, res.Read)
	assert.Equal(t, 3, res.Written)
	assert.Equal(t, []string{"ext-1", "b-1", "ext-2"}, res.IDs)

	u, err := store.Get(ctx, "ext-1")
	require.NoError(t, err)
	assert.Equal(t, domain.Heading{Content: "Intro", Level: 1}, u.Data)

	// A second run overwrites the id-carrying records in place.
	res, err = engine.Run(ctx, &etl.Job{SourceType: "test_upsert", Types: []string{"heading", "quote"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"ext-1", "ext-2"}, res.IDs)
	assert.Equal(t, 1, res.Skipped)

	units, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, units, 3)
}

func TestEngine_RunCreateModeAndLimit(t *testing.T) {
	ctx := context.Background()
	etl.RegisterSource(&staticSource{typ: "test_create", records: sample})
	engine, _, store := newEngine(t)

	res, err := engine.Run(ctx, &etl.Job{SourceType: "test_create", Mode: etl.ImportCreate, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, []string{"b-1", "b-2"}, res.IDs)
	assert.Equal(t, 1, res.Skipped)

	_, err = store.Get(ctx, "ext-1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestEngine_RunPartialFailure(t *testing.T) {
	ctx := context.Background()
	etl.RegisterSource(&staticSource{typ: "test_partial", records: []etl.Record{
		{Type: "bullet", Data: map[string]any{"content": "ok"}},
		{Type: "banner", Data: map[string]any{"content": "x"}},
		{ID: "h", Type: "heading", Data: map[string]any{"content": "x", "level": 9}},
	}})
	engine, _, _ := newEngine(t)

	res, err := engine.Run(ctx, &etl.Job{SourceType: "test_partial"})
	require.Error(t, err)
	assert.Equal(t, "partial", res.Status)
	assert.Equal(t, 1, res.Written)
	require.Len(t, res.Failures, 2)
	assert.Equal(t, 1, res.Failures[0].Index)
	assert.Equal(t, "h", res.Failures[1].ID)

	var unsupported *domain.UnsupportedTypeError
	assert.ErrorAs(t, err, &unsupported)
	assert.True(t, domain.IsValidation(err))
}

func TestEngine_RunErrors(t *testing.T) {
	ctx := context.Background()
	engine, _, _ := newEngine(t)

	res, err := engine.Run(ctx, &etl.Job{SourceType: "nope"})
	require.Error(t, err)
	assert.Equal(t, "error", res.Status)

	boom := errors.New("connection reset")
	etl.RegisterSource(&staticSource{typ: "test_broken", records: sample[:1], err: boom})
	res, err = engine.Run(ctx, &etl.Job{SourceType: "test_broken"})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, "partial", res.Status)
	assert.Equal(t, 1, res.Written)
}

func TestEngine_Preview(t *testing.T) {
	ctx := context.Background()
	etl.RegisterSource(&staticSource{typ: "test_preview", records: sample})
	engine, _, store := newEngine(t)

	records, err := engine.Preview(ctx, "test_preview", nil, 2)
	require.NoError(t, err)
	assert.Equal(t, sample[:2], records)
	assert.Zero(t, store.Puts())

	records, err = engine.Preview(ctx, "test_preview", nil, 0)
	require.NoError(t, err)
	assert.Len(t, records, 3)
}

func TestRecordFromObject(t *testing.T) {
	rec, err := etl.RecordFromObject(map[string]any{"id": "x", "type": "quote", "data": map[string]any{"content": "q"}}, "")
	require.NoError(t, err)
	assert.Equal(t, etl.Record{ID: "x", Type: "quote", Data: map[string]any{"content": "q"}}, rec)

	rec, err = etl.RecordFromObject(map[string]any{"id": 7, "content": "c"}, "bullet")
	require.NoError(t, err)
	assert.Equal(t, etl.Record{ID: "7", Type: "bullet", Data: map[string]any{"content": "c"}}, rec)

	_, err = etl.RecordFromObject(map[string]any{"content": "c"}, "")
	assert.Error(t, err)
}

func TestParseImportMode(t *testing.T) {
	m, err := etl.ParseImportMode("")
	require.NoError(t, err)
	assert.Equal(t, etl.ImportUpsert, m)

	m, err = etl.ParseImportMode("create")
	require.NoError(t, err)
	assert.Equal(t, etl.ImportCreate, m)

	_, err = etl.ParseImportMode("merge")
	assert.Error(t, err)
}
