package session

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"
)

// keyedLocks serializes work per session ID. Entries are dropped once no
// caller holds or waits for them.
type keyedLocks struct {
	mu    sync.Mutex
	locks map[string]*lockEntry
}

type lockEntry struct {
	sem  *semaphore.Weighted
	refs int
}

func newKeyedLocks() *keyedLocks {
	return &keyedLocks{locks: make(map[string]*lockEntry)}
}

// acquire takes the lock for key. With wait set it blocks until the lock
// is free or ctx is done; otherwise it fails fast with ErrBusy.
func (k *keyedLocks) acquire(ctx context.Context, key string, wait bool) (func(), error) {
	k.mu.Lock()
	e, ok := k.locks[key]
	if !ok {
		e = &lockEntry{sem: semaphore.NewWeighted(1)}
		k.locks[key] = e
	}
	e.refs++
	k.mu.Unlock()

	if wait {
		if err := e.sem.Acquire(ctx, 1); err != nil {
			k.drop(key, e)
			return nil, err
		}
	} else if !e.sem.TryAcquire(1) {
		k.drop(key, e)
		return nil, ErrBusy
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			e.sem.Release(1)
			k.drop(key, e)
		})
	}, nil
}

func (k *keyedLocks) drop(key string, e *lockEntry) {
	k.mu.Lock()
	defer k.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(k.locks, key)
	}
}

// size returns the number of tracked keys.
func (k *keyedLocks) size() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.locks)
}
