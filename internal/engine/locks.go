package engine

import "sync"

// resourceLocks hands out one mutex per resource id. Entries are never
// removed; the key space is the resource catalog.
type resourceLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newResourceLocks() *resourceLocks {
	return &resourceLocks{locks: make(map[string]*sync.Mutex)}
}

// lock acquires the mutex for resourceID and returns its release function.
func (l *resourceLocks) lock(resourceID string) func() {
	l.mu.Lock()
	m, ok := l.locks[resourceID]
	if !ok {
		m = &sync.Mutex{}
		l.locks[resourceID] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}
