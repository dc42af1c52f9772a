package service

import (
	"sync"

	"github.com/google/uuid"
)

// operadorLocks serializes all balance-affecting writes per operator.
// Reads never take these locks; transferencias take both ends in a fixed
// global order (ascending UUID) so two concurrent transfers cannot deadlock.
type operadorLocks struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*sync.Mutex
}

func newOperadorLocks() *operadorLocks {
	return &operadorLocks{locks: make(map[uuid.UUID]*sync.Mutex)}
}

func (l *operadorLocks) get(id uuid.UUID) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()
	m, ok := l.locks[id]
	if !ok {
		m = &sync.Mutex{}
		l.locks[id] = m
	}
	return m
}

// lock acquires the operator's write lock and returns its release func.
func (l *operadorLocks) lock(id uuid.UUID) func() {
	m := l.get(id)
	m.Lock()
	return m.Unlock
}

// lockPair acquires both operators' locks in ascending UUID order.
func (l *operadorLocks) lockPair(a, b uuid.UUID) func() {
	first, second := a, b
	if second.String() < first.String() {
		first, second = second, first
	}
	m1, m2 := l.get(first), l.get(second)
	m1.Lock()
	m2.Lock()
	return func() {
		m2.Unlock()
		m1.Unlock()
	}
}
