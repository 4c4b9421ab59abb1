package testutil

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSequenceIDs_Increment(t *testing.T) {
	gen := NewSequenceIDs("tx")

	assert.Equal(t, "tx-1", gen.Generate())
	assert.Equal(t, "tx-2", gen.Generate())
	assert.Equal(t, "tx-3", gen.Generate())
}

func TestSequenceIDs_EmptyPrefixDefault(t *testing.T) {
	gen := NewSequenceIDs("")

	assert.Equal(t, "test-1", gen.Generate())
}

func TestSequenceIDs_ThreadSafe(t *testing.T) {
	gen := NewSequenceIDs("tx")

	var mu sync.Mutex
	seen := make(map[string]bool)
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				id := gen.Generate()
				mu.Lock()
				seen[id] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Len(t, seen, 1000)
}
