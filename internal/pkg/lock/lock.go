// Package lock provides per-key locking so that each queue row has at most
// one operator action in flight while other rows stay interactive.
package lock

import (
	"sort"
	"sync"
)

// keyMutex wraps a mutex with reference counting for cleanup.
type keyMutex struct {
	mu       sync.Mutex
	refCount int
}

// KeyLock hands out one mutex per key. Entries are dropped once no caller
// holds or waits on them, so the map does not grow with every row ever touched.
type KeyLock struct {
	mu    sync.Mutex
	locks map[int64]*keyMutex
	held  map[int64]struct{}
}

// NewKeyLock creates a new KeyLock instance.
func NewKeyLock() *KeyLock {
	return &KeyLock{
		locks: make(map[int64]*keyMutex),
		held:  make(map[int64]struct{}),
	}
}

// acquireRef returns the mutex for key with its reference count bumped.
func (kl *KeyLock) acquireRef(key int64) *keyMutex {
	kl.mu.Lock()
	defer kl.mu.Unlock()

	m, ok := kl.locks[key]
	if !ok {
		m = &keyMutex{}
		kl.locks[key] = m
	}
	m.refCount++
	return m
}

func (kl *KeyLock) releaseRef(key int64, m *keyMutex) {
	kl.mu.Lock()
	defer kl.mu.Unlock()

	m.refCount--
	if m.refCount == 0 {
		delete(kl.locks, key)
	}
}

// Lock blocks until the lock for key is held.
func (kl *KeyLock) Lock(key int64) {
	m := kl.acquireRef(key)
	m.mu.Lock()
	kl.markHeld(key)
}

// TryLock acquires the lock for key without blocking.
// Returns true if the lock was acquired, false otherwise.
func (kl *KeyLock) TryLock(key int64) bool {
	m := kl.acquireRef(key)
	if m.mu.TryLock() {
		kl.markHeld(key)
		return true
	}
	kl.releaseRef(key, m)
	return false
}

// Unlock releases the lock for key. Unlocking a key that is not held is a no-op.
func (kl *KeyLock) Unlock(key int64) {
	kl.mu.Lock()
	m, ok := kl.locks[key]
	_, isHeld := kl.held[key]
	if !ok || !isHeld {
		kl.mu.Unlock()
		return
	}
	delete(kl.held, key)
	kl.mu.Unlock()

	m.mu.Unlock()
	kl.releaseRef(key, m)
}

// WithLock executes fn while holding the lock for key.
func (kl *KeyLock) WithLock(key int64, fn func() error) error {
	kl.Lock(key)
	defer kl.Unlock(key)
	return fn()
}

// IsLocked reports whether key is currently held.
// This is a point-in-time check and may change immediately after.
func (kl *KeyLock) IsLocked(key int64) bool {
	kl.mu.Lock()
	defer kl.mu.Unlock()
	_, ok := kl.held[key]
	return ok
}

// Held returns the currently held keys in ascending order.
func (kl *KeyLock) Held() []int64 {
	kl.mu.Lock()
	keys := make([]int64, 0, len(kl.held))
	for k := range kl.held {
		keys = append(keys, k)
	}
	kl.mu.Unlock()

	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

func (kl *KeyLock) markHeld(key int64) {
	kl.mu.Lock()
	defer kl.mu.Unlock()
	kl.held[key] = struct{}{}
}
