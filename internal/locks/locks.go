// Package locks provides a keyed mutex shared between the sync engine and
// the file migration engine. Both engines mutate the same attachment
// records; holding the per-attachment lock serializes operations on one
// attachment while leaving unrelated attachments unaffected.
package locks

import "sync"

// KeyedMutex is a set of independent mutexes addressed by string key.
// The zero value is not usable; construct with New.
type KeyedMutex struct {
	mu    sync.Mutex
	locks map[string]*entry
}

type entry struct {
	mu   sync.Mutex
	refs int
}

// New creates an empty KeyedMutex.
func New() *KeyedMutex {
	return &KeyedMutex{locks: make(map[string]*entry)}
}

// Acquire blocks until the lock for key is held.
func (k *KeyedMutex) Acquire(key string) {
	k.mu.Lock()
	e, ok := k.locks[key]
	if !ok {
		e = &entry{}
		k.locks[key] = e
	}
	e.refs++
	k.mu.Unlock()

	e.mu.Lock()
}

// TryAcquire attempts to take the lock for key without blocking.
func (k *KeyedMutex) TryAcquire(key string) bool {
	k.mu.Lock()
	e, ok := k.locks[key]
	if !ok {
		e = &entry{}
		k.locks[key] = e
	}

	if !e.mu.TryLock() {
		k.mu.Unlock()
		return false
	}
	e.refs++
	k.mu.Unlock()
	return true
}

// Release drops the lock for key. The per-key entry is reclaimed once no
// goroutine waits on it.
func (k *KeyedMutex) Release(key string) {
	k.mu.Lock()
	e, ok := k.locks[key]
	if !ok {
		k.mu.Unlock()
		return
	}
	e.refs--
	if e.refs == 0 {
		delete(k.locks, key)
	}
	k.mu.Unlock()

	e.mu.Unlock()
}
