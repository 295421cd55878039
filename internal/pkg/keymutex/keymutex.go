/*
Package keymutex provides mutual exclusion scoped to string keys.

It is used to make check-then-create sequences atomic per canonical key
(an email, a conversation pair key, a group member key) without serializing
operations on unrelated keys. Entries are reference counted and removed as
soon as the last holder releases the key, so the map stays bounded by the
number of in-flight operations.
*/
package keymutex

import "sync"

// KeyMutex hands out one mutex per key on demand.
// The zero value is not usable; call New.
type KeyMutex struct {
	// mu protects concurrent access to the entries map.
	mu sync.Mutex

	// entries maps a key to its mutex and the number of current holders/waiters.
	entries map[string]*entry
}

type entry struct {
	mu   sync.Mutex
	refs int
}

// New creates and returns a new KeyMutex instance.
func New() *KeyMutex {
	return &KeyMutex{
		entries: make(map[string]*entry),
	}
}

// Lock acquires the mutex for the given key, blocking while another caller
// holds it. Distinct keys never block each other.
func (k *KeyMutex) Lock(key string) {
	k.mu.Lock()
	e, ok := k.entries[key]
	if !ok {
		e = &entry{}
		k.entries[key] = e
	}
	e.refs++
	k.mu.Unlock()

	e.mu.Lock()
}

// Unlock releases the mutex for the given key. The entry is dropped from the
// map once no goroutine holds or waits on it.
func (k *KeyMutex) Unlock(key string) {
	k.mu.Lock()
	e, ok := k.entries[key]
	if ok {
		e.refs--
		if e.refs == 0 {
			delete(k.entries, key)
		}
	}
	k.mu.Unlock()

	if ok {
		e.mu.Unlock()
	}
}
