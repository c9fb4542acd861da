package storage

import (
	"context"
	"sort"
	"sync"

	"blocknotes/internal/domain"
)

// MemoryStore keeps units in process memory. It is used for ephemeral
// documents and in tests.
type MemoryStore struct {
	// Transform, when set, rewrites each unit before it is stored and echoed
	// back, the way a backend may fill in fields of its own.
	Transform func(domain.Unit) domain.Unit

	mu    sync.Mutex
	units map[string]memoryEntry
	seq   uint64
	puts  int
	fail  error
}

type memoryEntry struct {
	unit domain.Unit
	seq  uint64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{units: map[string]memoryEntry{}}
}

// SetFailure makes every Put fail with err until it is called with nil.
func (s *MemoryStore) SetFailure(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fail = err
}

// Puts returns how many Put calls reached the store.
func (s *MemoryStore) Puts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.puts
}

func (s *MemoryStore) Put(ctx context.Context, u domain.Unit) (domain.Unit, error) {
	if err := ctx.Err(); err != nil {
		return domain.Unit{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.puts++
	if s.fail != nil {
		return domain.Unit{}, s.fail
	}
	if err := checkUnit(u); err != nil {
		return domain.Unit{}, err
	}
	stored := u.Clone()
	if s.Transform != nil {
		stored = s.Transform(stored)
		if err := checkUnit(stored); err != nil {
			return domain.Unit{}, err
		}
	}
	e, ok := s.units[u.ID]
	if !ok {
		s.seq++
		e.seq = s.seq
	}
	e.unit = stored
	s.units[u.ID] = e
	return stored.Clone(), nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (domain.Unit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.units[id]
	if !ok {
		return domain.Unit{}, notFound(id)
	}
	return e.unit.Clone(), nil
}

// List returns units in first-insertion order.
func (s *MemoryStore) List(context.Context) ([]domain.Unit, error) {
	s.mu.Lock()
	entries := make([]memoryEntry, 0, len(s.units))
	for _, e := range s.units {
		entries = append(entries, e)
	}
	s.mu.Unlock()

	sort.Slice(entries, func(i, j int) bool { return entries[i].seq < entries[j].seq })
	out := make([]domain.Unit, len(entries))
	for i, e := range entries {
		out[i] = e.unit.Clone()
	}
	return out, nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.units[id]; !ok {
		return notFound(id)
	}
	delete(s.units, id)
	return nil
}
