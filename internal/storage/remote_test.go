package storage_test

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"blocknotes/internal/block"
	"blocknotes/internal/domain"
	"blocknotes/internal/storage"
)

// blockServer serves the remote block API on top of a MemoryStore.
func blockServer(t *testing.T, backing *storage.MemoryStore) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/blocks", func(w http.ResponseWriter, r *http.Request) {
		units, err := backing.List(r.Context())
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		json.NewEncoder(w).Encode(units)
	})
	mux.HandleFunc("/blocks/", func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimPrefix(r.URL.Path, "/blocks/")
		switch r.Method {
		case http.MethodPut:
			body, _ := io.ReadAll(r.Body)
			u, err := domain.DecodeUnit(body)
			if err != nil || u.ID != id {
				http.Error(w, "bad unit", http.StatusBadRequest)
				return
			}
			stored, err := backing.Put(r.Context(), u)
			if err != nil {
				http.Error(w, err.Error(), http.StatusInternalServerError)
				return
			}
			json.NewEncoder(w).Encode(stored)
		case http.MethodGet:
			u, err := backing.Get(r.Context(), id)
			if errors.Is(err, domain.ErrNotFound) {
				http.NotFound(w, r)
				return
			}
			json.NewEncoder(w).Encode(u)
		case http.MethodDelete:
			if err := backing.Delete(r.Context(), id); err != nil {
				http.NotFound(w, r)
				return
			}
			w.WriteHeader(http.StatusNoContent)
		}
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestRemoteStore(t *testing.T) {
	runRepositoryTests(t, func(t *testing.T) domain.UnitRepository {
		srv := blockServer(t, storage.NewMemoryStore())
		s, err := storage.NewRemoteStore(srv.URL + "/")
		require.NoError(t, err)
		return s
	})
}

func TestRemoteStore_ReturnsServerFields(t *testing.T) {
	backing := storage.NewMemoryStore()
	backing.Transform = func(u domain.Unit) domain.Unit {
		img := u.Data.(domain.Image)
		img.Src = "https://cdn.example/" + img.Src
		u.Data = img
		return u
	}
	srv := blockServer(t, backing)
	s, err := storage.NewRemoteStore(srv.URL)
	require.NoError(t, err)

	got, err := s.Put(t.Context(), domain.Unit{ID: "i", Type: domain.BlockTypeImage, Data: domain.Image{Src: "a.png"}})
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example/a.png", got.Data.(domain.Image).Src)
}

func TestRemoteStore_PartialReplyKeepsSentFields(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"id":"i","type":"image","data":{"src":"https://cdn/x.png"}}`)
	}))
	defer srv.Close()

	s, err := storage.NewRemoteStore(srv.URL)
	require.NoError(t, err)

	sent := domain.Image{Src: "blob:local", Alt: "a cat", Caption: "my cat"}
	got, err := s.Put(t.Context(), domain.Unit{ID: "i", Type: domain.BlockTypeImage, Data: sent})
	require.NoError(t, err)
	assert.Equal(t, domain.Image{Src: "https://cdn/x.png", Alt: "a cat", Caption: "my cat"}, got.Data)

	// a block saved through the same store only takes the authored field
	b, err := block.New("i", sent)
	require.NoError(t, err)
	require.NoError(t, b.Save(t.Context(), s))
	assert.Equal(t, domain.Image{Src: "https://cdn/x.png", Alt: "a cat", Caption: "my cat"}, b.GetData())
}

func TestRemoteStore_BadReplyData(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"id":"h","type":"heading","data":{"level":"deep"}}`)
	}))
	defer srv.Close()

	s, err := storage.NewRemoteStore(srv.URL)
	require.NoError(t, err)
	_, err = s.Put(t.Context(), domain.Unit{ID: "h", Type: domain.BlockTypeHeading, Data: domain.Heading{Content: "x", Level: 1}})
	assert.True(t, domain.IsValidation(err))
}

func TestRemoteStore_StatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer token", r.Header.Get("Authorization"))
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	s, err := storage.NewRemoteStore(srv.URL, storage.WithHeader("Authorization", "Bearer token"))
	require.NoError(t, err)

	_, err = s.Put(t.Context(), domain.Unit{ID: "q", Type: domain.BlockTypeQuote, Data: domain.Quote{}})
	var statusErr *storage.StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusTooManyRequests, statusErr.Status)
	assert.Equal(t, "quota exceeded", statusErr.Body)
}

func TestRemoteStore_EmptyBodyEchoesUnit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	s, err := storage.NewRemoteStore(srv.URL)
	require.NoError(t, err)
	u := domain.Unit{ID: "q", Type: domain.BlockTypeQuote, Data: domain.Quote{Content: "x"}}
	got, err := s.Put(t.Context(), u)
	require.NoError(t, err)
	assert.Equal(t, u, got)
}

func TestNewRemoteStore_InvalidURL(t *testing.T) {
	_, err := storage.NewRemoteStore("not a url")
	assert.Error(t, err)
}
