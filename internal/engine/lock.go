package engine

import (
	"fmt"
	"sync"
)

// keyedMutex serializes saves per (entityType, id, tenant) key. Different
// keys never contend: each key gets its own mutex, created on first use and
// dropped once no goroutine holds or waits on it.
//
// This is the chosen answer to the read-then-write race in save: two
// concurrent saves for the same aggregate would otherwise both observe the
// same current row and produce two current rows or a lost update.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyedLock
}

type keyedLock struct {
	mu   sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*keyedLock)}
}

// lock acquires the mutex for key and returns the matching unlock.
func (k *keyedMutex) lock(key string) func() {
	k.mu.Lock()
	l, ok := k.locks[key]
	if !ok {
		l = &keyedLock{}
		k.locks[key] = l
	}
	l.refs++
	k.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		k.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}

// saveKey builds the lock key for one aggregate. Ids at or below zero share
// the type-scoped creation key, serializing logical-id assignment for new
// entities of that type and tenant.
func saveKey(entityType string, id int64, tenant string) string {
	if id <= 0 {
		return fmt.Sprintf("%s/%s/new", entityType, tenant)
	}
	return fmt.Sprintf("%s/%s/%d", entityType, tenant, id)
}
