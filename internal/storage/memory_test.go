package storage_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"blocknotes/internal/domain"
	"blocknotes/internal/storage"
)

func TestMemoryStore(t *testing.T) {
	runRepositoryTests(t, func(t *testing.T) domain.UnitRepository {
		return storage.NewMemoryStore()
	})
}

func TestMemoryStore_ListInInsertionOrder(t *testing.T) {
	ctx := context.Background()
	s := storage.NewMemoryStore()
	for _, id := range []string{"z", "a", "m"} {
		_, err := s.Put(ctx, domain.Unit{ID: id, Type: domain.BlockTypeBullet, Data: domain.Bullet{Content: id}})
		require.NoError(t, err)
	}
	units, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, units, 3)
	assert.Equal(t, "z", units[0].ID)
	assert.Equal(t, "a", units[1].ID)
	assert.Equal(t, "m", units[2].ID)
}

func TestMemoryStore_Transform(t *testing.T) {
	ctx := context.Background()
	s := storage.NewMemoryStore()
	s.Transform = func(u domain.Unit) domain.Unit {
		img := u.Data.(domain.Image)
		img.Src = "https://cdn/" + img.Src
		u.Data = img
		return u
	}

	got, err := s.Put(ctx, domain.Unit{ID: "i", Type: domain.BlockTypeImage, Data: domain.Image{Src: "x.png"}})
	require.NoError(t, err)
	assert.Equal(t, "https://cdn/x.png", got.Data.(domain.Image).Src)

	stored, err := s.Get(ctx, "i")
	require.NoError(t, err)
	assert.Equal(t, got, stored)
}

func TestMemoryStore_Failure(t *testing.T) {
	ctx := context.Background()
	s := storage.NewMemoryStore()
	boom := errors.New("offline")
	s.SetFailure(boom)

	_, err := s.Put(ctx, domain.Unit{ID: "q", Type: domain.BlockTypeQuote, Data: domain.Quote{}})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, s.Puts())

	s.SetFailure(nil)
	_, err = s.Put(ctx, domain.Unit{ID: "q", Type: domain.BlockTypeQuote, Data: domain.Quote{}})
	assert.NoError(t, err)
	assert.Equal(t, 2, s.Puts())
}

func TestMemoryStore_StoresCopies(t *testing.T) {
	ctx := context.Background()
	s := storage.NewMemoryStore()
	items := []string{"a"}
	_, err := s.Put(ctx, domain.Unit{ID: "l", Type: domain.BlockTypeList, Data: domain.List{Items: items}})
	require.NoError(t, err)
	items[0] = "mutated"

	got, err := s.Get(ctx, "l")
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, got.Data.(domain.List).Items)
}

func TestMemoryStore_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := storage.NewMemoryStore().Put(ctx, domain.Unit{ID: "q", Type: domain.BlockTypeQuote, Data: domain.Quote{}})
	assert.ErrorIs(t, err, context.Canceled)
}
