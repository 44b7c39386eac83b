package testutil

import (
	"fmt"
	"sync"
)

// SequenceKeys generates idempotency keys "<prefix>-0001", "<prefix>-0002",
// and so on.
//
// Reservation ids are derived from (owner, key), so a scenario run with
// SequenceKeys yields byte-identical ids and golden traces on every run.
//
// Thread-safety: SequenceKeys is safe for concurrent use via internal mutex.
type SequenceKeys struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewSequenceKeys creates a generator. An empty prefix defaults to "key".
func NewSequenceKeys(prefix string) *SequenceKeys {
	if prefix == "" {
		prefix = "key"
	}
	return &SequenceKeys{prefix: prefix}
}

// Generate returns the next key.
//
// Implements engine.KeyGenerator.
func (g *SequenceKeys) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%s-%04d", g.prefix, g.n)
}
