package storage_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"blocknotes/internal/domain"
)

// ─────────────────────────────────────────────────────────────
// Shared repository behaviour, run against every backend
// ─────────────────────────────────────────────────────────────

func runRepositoryTests(t *testing.T, newRepo func(t *testing.T) domain.UnitRepository) {
	ctx := context.Background()

	t.Run("put then get", func(t *testing.T) {
		repo := newRepo(t)
		u := domain.Unit{ID: "h1", Type: domain.BlockTypeHeading, Data: domain.Heading{Content: "Intro", Level: 2}}

		stored, err := repo.Put(ctx, u)
		require.NoError(t, err)
		assert.Equal(t, u, stored)

		got, err := repo.Get(ctx, "h1")
		require.NoError(t, err)
		assert.Equal(t, u, got)
	})

	t.Run("put replaces", func(t *testing.T) {
		repo := newRepo(t)
		_, err := repo.Put(ctx, domain.Unit{ID: "p", Type: domain.BlockTypeParagraph, Data: domain.Paragraph{Content: "a"}})
		require.NoError(t, err)
		_, err = repo.Put(ctx, domain.Unit{ID: "p", Type: domain.BlockTypeParagraph, Data: domain.Paragraph{Content: "b"}})
		require.NoError(t, err)

		got, err := repo.Get(ctx, "p")
		require.NoError(t, err)
		assert.Equal(t, domain.Paragraph{Content: "b"}, got.Data)

		all, err := repo.List(ctx)
		require.NoError(t, err)
		assert.Len(t, all, 1)
	})

	t.Run("list", func(t *testing.T) {
		repo := newRepo(t)
		units := []domain.Unit{
			{ID: "a", Type: domain.BlockTypeList, Data: domain.List{Items: []string{"x", "y"}}},
			{ID: "b", Type: domain.BlockTypeTable, Data: domain.Table{Rows: 1, Columns: 2, Content: "[]"}},
			{ID: "c", Type: domain.BlockTypeLink, Data: domain.Link{URL: "https://go.dev", Caption: "Go"}},
		}
		for _, u := range units {
			_, err := repo.Put(ctx, u)
			require.NoError(t, err)
		}
		got, err := repo.List(ctx)
		require.NoError(t, err)
		assert.ElementsMatch(t, units, got)
	})

	t.Run("get unknown", func(t *testing.T) {
		repo := newRepo(t)
		_, err := repo.Get(ctx, "missing")
		assert.True(t, errors.Is(err, domain.ErrNotFound))
	})

	t.Run("delete", func(t *testing.T) {
		repo := newRepo(t)
		_, err := repo.Put(ctx, domain.Unit{ID: "q", Type: domain.BlockTypeQuote, Data: domain.Quote{Content: "x"}})
		require.NoError(t, err)

		require.NoError(t, repo.Delete(ctx, "q"))
		_, err = repo.Get(ctx, "q")
		assert.True(t, errors.Is(err, domain.ErrNotFound))
		assert.True(t, errors.Is(repo.Delete(ctx, "q"), domain.ErrNotFound))
	})

	t.Run("rejects invalid units", func(t *testing.T) {
		repo := newRepo(t)
		_, err := repo.Put(ctx, domain.Unit{Type: domain.BlockTypeQuote, Data: domain.Quote{}})
		assert.True(t, domain.IsValidation(err))

		_, err = repo.Put(ctx, domain.Unit{ID: "x", Type: domain.BlockTypeImage, Data: domain.Image{}})
		assert.True(t, domain.IsValidation(err))

		_, err = repo.Put(ctx, domain.Unit{ID: "x", Type: domain.BlockTypeQuote, Data: domain.Bullet{}})
		assert.True(t, domain.IsValidation(err))
	})
}
