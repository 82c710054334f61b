package assignment

import (
	"context"
	"fmt"
	"sync"
)

// ScopeLocker serializes cursor read and assignment write for one scope.
type ScopeLocker interface {
	// Lock blocks until the scope is held or ctx is done. The returned
	// function releases the lock; calls after the first are no-ops.
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

// ScopeKey names the lock for a tenant and optional campaign.
func ScopeKey(tenantID int64, campaignID *int64) string {
	if campaignID == nil {
		return fmt.Sprintf("leadintake:rr:%d:all", tenantID)
	}
	return fmt.Sprintf("leadintake:rr:%d:%d", tenantID, *campaignID)
}

// KeyedMutex is an in-process ScopeLocker. Entries are dropped once unused.
type KeyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyedEntry
}

type keyedEntry struct {
	ch   chan struct{}
	refs int
}

// NewKeyedMutex creates an empty KeyedMutex.
func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{locks: make(map[string]*keyedEntry)}
}

func (k *KeyedMutex) Lock(ctx context.Context, key string) (func(), error) {
	k.mu.Lock()
	entry, ok := k.locks[key]
	if !ok {
		entry = &keyedEntry{ch: make(chan struct{}, 1)}
		k.locks[key] = entry
	}
	entry.refs++
	k.mu.Unlock()

	select {
	case entry.ch <- struct{}{}:
	case <-ctx.Done():
		k.release(key, entry, false)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() { k.release(key, entry, true) })
	}, nil
}

func (k *KeyedMutex) release(key string, entry *keyedEntry, held bool) {
	if held {
		<-entry.ch
	}
	k.mu.Lock()
	entry.refs--
	if entry.refs == 0 {
		delete(k.locks, key)
	}
	k.mu.Unlock()
}

// size reports the number of live entries.
func (k *KeyedMutex) size() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.locks)
}

var _ ScopeLocker = (*KeyedMutex)(nil)
