package block_test

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"blocknotes/internal/block"
	"blocknotes/internal/domain"
	"blocknotes/internal/ident"
)

func validFields(t domain.BlockType) map[string]any {
	switch t {
	case domain.BlockTypeHeading:
		return map[string]any{"content": "Title", "level": 1}
	case domain.BlockTypeImage:
		return map[string]any{"src": "a.png", "alt": "alt", "caption": "cap"}
	case domain.BlockTypeLink:
		return map[string]any{"url": "https://example.com", "caption": "Example"}
	case domain.BlockTypeCode:
		return map[string]any{"content": "fmt.Println()", "language": "go"}
	case domain.BlockTypeList:
		return map[string]any{"items": []any{"one", "two"}}
	case domain.BlockTypeTable:
		return map[string]any{"rows": 2, "columns": 3}
	case domain.BlockTypeSubpage:
		return map[string]any{"pageId": "page-1"}
	default:
		return map[string]any{"content": "text"}
	}
}

func TestFactory_CreatesEveryType(t *testing.T) {
	f := block.NewFactory()
	for _, typ := range f.Types() {
		t.Run(string(typ), func(t *testing.T) {
			b, err := f.CreateBlock(string(typ), validFields(typ))
			require.NoError(t, err)
			assert.Equal(t, typ, b.Type())
			assert.Equal(t, typ, b.GetData().BlockType())
			assert.NotEmpty(t, b.ID())
		})
	}
}

func TestFactory_UnsupportedType(t *testing.T) {
	f := block.NewFactory()
	_, err := f.CreateBlock("bogus", map[string]any{})

	var unsupported *domain.UnsupportedTypeError
	require.True(t, errors.As(err, &unsupported))
	assert.Equal(t, "bogus", unsupported.Tag)
}

func TestFactory_MissingField(t *testing.T) {
	f := block.NewFactory()
	_, err := f.CreateBlock("link", map[string]any{"url": "https://x"})

	var missing *domain.MissingFieldError
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, "caption", missing.Field)
}

func TestFactory_ImageEmptySrc(t *testing.T) {
	f := block.NewFactory()
	_, err := f.CreateBlock("image", map[string]any{"src": "", "alt": "x", "caption": "y"})
	assert.True(t, domain.IsValidation(err))
}

func TestFactory_UsesIDGenerator(t *testing.T) {
	f := block.NewFactory(block.WithIDGenerator(ident.Sequence("blk")))
	a, err := f.CreateBlock("paragraph", map[string]any{"content": "a"})
	require.NoError(t, err)
	b, err := f.CreateBlock("paragraph", map[string]any{"content": "b"})
	require.NoError(t, err)
	assert.Equal(t, "blk-1", a.ID())
	assert.Equal(t, "blk-2", b.ID())
}

func TestFactory_UniqueIDsUnderConcurrency(t *testing.T) {
	f := block.NewFactory()
	const n = 10000
	ids := make([]string, n)

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			b, err := f.CreateBlock("paragraph", map[string]any{"content": ""})
			if err == nil {
				ids[i] = b.ID()
			}
		}(i)
	}
	wg.Wait()

	seen := make(map[string]struct{}, n)
	for _, id := range ids {
		require.NotEmpty(t, id)
		seen[id] = struct{}{}
	}
	assert.Len(t, seen, n)
}

func TestFactory_RestoreRoundTrip(t *testing.T) {
	f := block.NewFactory()
	for _, typ := range f.Types() {
		t.Run(string(typ), func(t *testing.T) {
			orig, err := f.CreateBlock(string(typ), validFields(typ))
			require.NoError(t, err)

			raw, err := json.Marshal(orig.Unit())
			require.NoError(t, err)
			u, err := domain.DecodeUnit(raw)
			require.NoError(t, err)

			restored, err := f.Restore(u)
			require.NoError(t, err)
			assert.Equal(t, orig.ID(), restored.ID())
			assert.Equal(t, orig.Type(), restored.Type())
			assert.Equal(t, orig.GetData(), restored.GetData())
		})
	}
}

func TestFactory_RestoreRejects(t *testing.T) {
	f := block.NewFactory()

	_, err := f.Restore(domain.Unit{ID: "x", Type: "bogus", Data: domain.Paragraph{}})
	var unsupported *domain.UnsupportedTypeError
	assert.True(t, errors.As(err, &unsupported))

	_, err = f.Restore(domain.Unit{ID: "x", Type: domain.BlockTypeQuote})
	var missing *domain.MissingFieldError
	assert.True(t, errors.As(err, &missing))

	_, err = f.Restore(domain.Unit{ID: "x", Type: domain.BlockTypeQuote, Data: domain.Paragraph{}})
	assert.True(t, domain.IsValidation(err))
}

func TestFactory_RestoreAssignsMissingID(t *testing.T) {
	f := block.NewFactory(block.WithIDGenerator(ident.Sequence("r")))
	b, err := f.Restore(domain.Unit{Type: domain.BlockTypeQuote, Data: domain.Quote{Content: "q"}})
	require.NoError(t, err)
	assert.Equal(t, "r-1", b.ID())
}

// Heading edit sequence: a valid level sticks, an out-of-range one is refused.
func TestFactory_HeadingScenario(t *testing.T) {
	f := block.NewFactory()
	b, err := f.CreateBlock("heading", map[string]any{"content": "Intro", "level": 1})
	require.NoError(t, err)

	_, err = b.Patch(map[string]any{"level": 2})
	require.NoError(t, err)

	_, err = b.Patch(map[string]any{"level": 7})
	require.Error(t, err)
	assert.True(t, domain.IsValidation(err))

	h, ok := block.DataAs[domain.Heading](b)
	require.True(t, ok)
	assert.Equal(t, 2, h.Level)
	assert.Equal(t, "Intro", h.Content)
}
