package engine

import (
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/gpures/internal/reservation"
)

func TestUUIDv7Generator_Version(t *testing.T) {
	key := UUIDv7Generator{}.Generate()

	parsed, err := uuid.Parse(key)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(7), parsed.Version())
	assert.Equal(t, parsed.String(), key, "key must be in canonical form")
}

func TestUUIDv7Generator_UniqueUnderConcurrency(t *testing.T) {
	const workers = 64
	gen := UUIDv7Generator{}

	var (
		mu   sync.Mutex
		seen = make(map[string]bool, workers)
		wg   sync.WaitGroup
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			k := gen.Generate()
			mu.Lock()
			seen[k] = true
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Len(t, seen, workers)
}

func TestUUIDv7Generator_DistinctIDs(t *testing.T) {
	gen := UUIDv7Generator{}
	a := reservation.DeriveID("alice", gen.Generate())
	b := reservation.DeriveID("alice", gen.Generate())
	assert.NotEqual(t, a, b)
}
