package testutil

import (
	"fmt"
	"sync"
)

// SequenceIDs generates predictable ids for tests: "<prefix>-1", "<prefix>-2", ...
//
// This enables deterministic ledger histories and golden output comparison.
// The same scenario with the same SequenceIDs produces identical transaction ids.
//
// Thread-safety: SequenceIDs is safe for concurrent use via internal mutex.
type SequenceIDs struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewSequenceIDs creates a new id generator.
//
// If prefix is empty, ids use "test".
func NewSequenceIDs(prefix string) *SequenceIDs {
	if prefix == "" {
		prefix = "test"
	}
	return &SequenceIDs{prefix: prefix}
}

// Generate returns the next id.
//
// Implements ledger.IDGenerator.
func (g *SequenceIDs) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%s-%d", g.prefix, g.n)
}
