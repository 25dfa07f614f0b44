// Package lock provides the in-process implementation of the per-key exclusive
// lock used to serialize availability check-then-insert sequences.
package lock

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrNotAcquired means the key stayed held until the caller's deadline passed.
// A caller that cancels its own context gets context.Canceled instead.
var ErrNotAcquired = errors.New("lock not acquired")

// acquireError reports why ctx ended before key could be acquired.
func acquireError(ctx context.Context, key string) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s: %w", ErrNotAcquired, key, ctx.Err())
	}
	return ctx.Err()
}

// Locker acquires an exclusive lock on key. The returned unlock func must be
// called exactly once. Implementations return ErrNotAcquired when ctx's
// deadline passes while another holder keeps the key.
type Locker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

type entry struct {
	ch   chan struct{}
	refs int
}

// KeyedMutex is a Locker that serializes callers sharing a key inside one
// process. Entries are dropped once no caller holds or waits for them.
type KeyedMutex struct {
	mu      sync.Mutex
	entries map[string]*entry
}

func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{entries: make(map[string]*entry)}
}

func (k *KeyedMutex) acquireEntry(key string) *entry {
	k.mu.Lock()
	defer k.mu.Unlock()

	e, ok := k.entries[key]
	if !ok {
		e = &entry{ch: make(chan struct{}, 1)}
		k.entries[key] = e
	}
	e.refs++
	return e
}

func (k *KeyedMutex) releaseEntry(key string, e *entry) {
	k.mu.Lock()
	defer k.mu.Unlock()

	e.refs--
	if e.refs == 0 {
		delete(k.entries, key)
	}
}

// Lock blocks until the key is free or ctx is done. Running out of time while
// the key is held yields ErrNotAcquired.
func (k *KeyedMutex) Lock(ctx context.Context, key string) (func(), error) {
	e := k.acquireEntry(key)

	select {
	case e.ch <- struct{}{}:
	case <-ctx.Done():
		k.releaseEntry(key, e)
		return nil, acquireError(ctx, key)
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-e.ch
			k.releaseEntry(key, e)
		})
	}, nil
}

// Size reports how many keys are currently held or awaited.
func (k *KeyedMutex) Size() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.entries)
}
