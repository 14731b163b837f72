package service

import (
	"sync"

	"github.com/google/uuid"
)

// sesionLocks serializes all mutating operations on a single session.
// Different sessions map to different mutexes and proceed in parallel;
// reads never take these locks.
type sesionLocks struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*sync.Mutex
}

func newSesionLocks() *sesionLocks {
	return &sesionLocks{locks: make(map[uuid.UUID]*sync.Mutex)}
}

// Acquire locks the mutex for the given session and returns its unlock func.
// Entries are never evicted: the set of sessions a single process touches
// during its lifetime is bounded by the number of cashiers on shift.
func (l *sesionLocks) Acquire(sesionID uuid.UUID) func() {
	l.mu.Lock()
	m, ok := l.locks[sesionID]
	if !ok {
		m = &sync.Mutex{}
		l.locks[sesionID] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}
