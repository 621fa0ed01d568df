package service

import "sync"

// busLocks serializes location updates per bus ID within this process.
// Entries are reference counted and dropped when no caller holds them.
type busLocks struct {
	mu    sync.Mutex
	locks map[string]*busLock
}

type busLock struct {
	mu   sync.Mutex
	refs int
}

func newBusLocks() *busLocks {
	return &busLocks{locks: make(map[string]*busLock)}
}

// lock blocks until id is free and returns the matching unlock func.
func (l *busLocks) lock(id string) func() {
	l.mu.Lock()
	bl, ok := l.locks[id]
	if !ok {
		bl = &busLock{}
		l.locks[id] = bl
	}
	bl.refs++
	l.mu.Unlock()

	bl.mu.Lock()

	return func() {
		bl.mu.Unlock()

		l.mu.Lock()
		bl.refs--
		if bl.refs == 0 {
			delete(l.locks, id)
		}
		l.mu.Unlock()
	}
}

// size returns the number of IDs currently locked or waited on.
func (l *busLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
