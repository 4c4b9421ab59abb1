// Package keylock provides in-process mutual exclusion keyed by string.
//
// The ledger locks per customer and the sync engine per tenant. Entries are
// reference counted and removed when the last holder unlocks, so the map
// does not grow with the number of keys ever seen.
package keylock

import "sync"

// Map hands out one mutex per key.
//
// Thread-safety: all methods are safe for concurrent use.
type Map struct {
	mu    sync.Mutex
	locks map[string]*entry
}

type entry struct {
	mu   sync.Mutex
	refs int
}

// New creates an empty lock map.
func New() *Map {
	return &Map{locks: make(map[string]*entry)}
}

// Lock blocks until the mutex for key is held and returns its release
// function. The release function must be called exactly once.
func (m *Map) Lock(key string) (unlock func()) {
	m.mu.Lock()
	e, ok := m.locks[key]
	if !ok {
		e = &entry{}
		m.locks[key] = e
	}
	e.refs++
	m.mu.Unlock()

	e.mu.Lock()

	return func() {
		e.mu.Unlock()

		m.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(m.locks, key)
		}
		m.mu.Unlock()
	}
}

// Len returns the number of keys currently held or waited on.
func (m *Map) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.locks)
}
