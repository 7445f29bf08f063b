package dispatch

import "sync"

// userLocks serializes dispatch cycles per sender address. The ledger offers
// no atomicity between its read and the subsequent append, so two
// near-simultaneous messages from one user must not both resolve against the
// same "last" record. Entries are reference-counted and removed when idle so
// the map does not grow with the total user population.
type userLocks struct {
	mu      sync.Mutex
	entries map[string]*userLockEntry
}

type userLockEntry struct {
	mu   sync.Mutex
	refs int
}

func newUserLocks() *userLocks {
	return &userLocks{entries: make(map[string]*userLockEntry)}
}

// lock acquires the per-key mutex and returns its release function.
func (l *userLocks) lock(key string) func() {
	l.mu.Lock()
	entry, ok := l.entries[key]
	if !ok {
		entry = &userLockEntry{}
		l.entries[key] = entry
	}
	entry.refs++
	l.mu.Unlock()

	entry.mu.Lock()
	return func() {
		entry.mu.Unlock()
		l.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(l.entries, key)
		}
		l.mu.Unlock()
	}
}
