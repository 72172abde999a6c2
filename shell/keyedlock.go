package shell

import (
	"sync"
)

// KeyedLock provides an exclusive critical section per string key. The
// managers use it to serialize read-then-write operations on the same entity:
// loan operations lock the book id (and the user id for the borrow ceiling),
// deletions lock the library id.
//
// Mutexes are created on first use and kept for the life of the process; the
// key space is bounded by the entity count, so no eviction is needed.
type KeyedLock struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// The key builders below namespace the lock keys per entity kind, so a book
// and a library with the same opaque id never share a mutex. Managers that
// must serialize against each other (catalog deletes vs. circulation writes)
// share one KeyedLock instance and these builders.

// LibraryLockKey builds the lock key for a library id.
func LibraryLockKey(libraryID string) string { return "library:" + libraryID }

// BookLockKey builds the lock key for a book id.
func BookLockKey(bookID string) string { return "book:" + bookID }

// UserLockKey builds the lock key for a user id.
func UserLockKey(userID string) string { return "user:" + userID }

// NewKeyedLock creates an empty KeyedLock.
func NewKeyedLock() *KeyedLock {
	return &KeyedLock{
		locks: make(map[string]*sync.Mutex),
	}
}

// Lock acquires the exclusive lock for the given key, blocking until it is free.
func (k *KeyedLock) Lock(key string) {
	k.lockFor(key).Lock()
}

// Unlock releases the exclusive lock for the given key.
func (k *KeyedLock) Unlock(key string) {
	k.lockFor(key).Unlock()
}

// LockOrdered acquires the locks for both keys in lexicographic order, so
// two callers locking the same pair in different argument order cannot
// deadlock. Equal keys are locked once.
func (k *KeyedLock) LockOrdered(first, second string) {
	if first == second {
		k.Lock(first)
		return
	}

	if first > second {
		first, second = second, first
	}

	k.Lock(first)
	k.Lock(second)
}

// UnlockOrdered releases the locks acquired by LockOrdered.
func (k *KeyedLock) UnlockOrdered(first, second string) {
	if first == second {
		k.Unlock(first)
		return
	}

	if first > second {
		first, second = second, first
	}

	k.Unlock(second)
	k.Unlock(first)
}

func (k *KeyedLock) lockFor(key string) *sync.Mutex {
	k.mu.Lock()
	defer k.mu.Unlock()

	lock, found := k.locks[key]
	if !found {
		lock = &sync.Mutex{}
		k.locks[key] = lock
	}

	return lock
}
