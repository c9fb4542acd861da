package ident

import (
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidULID(t *testing.T) {
	tests := []struct {
		id       string
		expected bool
	}{
		{ULID(), true},
		{"0", false},
		{"invalidulid", false},
		{"01B4E6BXY0PRJ5G420D25MWQY!", false},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			assert.Equal(t, tt.expected, ValidULID(tt.id))
		})
	}
}

func TestUUID(t *testing.T) {
	_, err := uuid.Parse(UUID())
	assert.NoError(t, err)
}

func TestGenerators_Unique(t *testing.T) {
	for name, gen := range map[string]Generator{"uuid": UUID, "ulid": ULID, "sequence": Sequence("b")} {
		t.Run(name, func(t *testing.T) {
			var wg sync.WaitGroup
			var mu sync.Mutex
			ids := make(map[string]struct{})

			const numIDs = 10000
			wg.Add(numIDs)
			for i := 0; i < numIDs; i++ {
				go func() {
					defer wg.Done()
					id := gen()
					mu.Lock()
					defer mu.Unlock()
					ids[id] = struct{}{}
				}()
			}
			wg.Wait()

			assert.Equal(t, numIDs, len(ids))
		})
	}
}

func TestSequence(t *testing.T) {
	gen := Sequence("blk")
	assert.Equal(t, "blk-1", gen())
	assert.Equal(t, "blk-2", gen())
}

func TestByName(t *testing.T) {
	gen, err := ByName("ulid")
	require.NoError(t, err)
	assert.True(t, ValidULID(gen()))

	_, err = ByName("snowflake")
	assert.Error(t, err)
}
