// Package lock provides per-entity exclusive access keyed by entity id.
//
// A purchase locks its market, the paying wallet and, on the whitelisted
// path, the certificate. Asset selection within an inventory is serialized
// by the store. Keys are always
// acquired in sorted order so two calls sharing keys cannot deadlock.
package lock

import (
	"context"
	"errors"
	"slices"
	"sync"
)

// ErrLockHeld is returned when a key stays held until the context ends.
var ErrLockHeld = errors.New("lock: already held")

// Locker acquires exclusive access to a set of keys. The returned unlock
// function releases all of them and is safe to call more than once.
type Locker interface {
	Lock(ctx context.Context, keys ...string) (unlock func(), err error)
}

// Keyed is an in-process Locker backed by one mutex per live key.
type Keyed struct {
	mu    sync.Mutex
	locks map[string]*keyedEntry
}

type keyedEntry struct {
	ch   chan struct{} // buffered(1); holding the token means holding the lock
	refs int
}

// NewKeyed creates an in-process keyed locker.
func NewKeyed() *Keyed {
	return &Keyed{locks: make(map[string]*keyedEntry)}
}

func (k *Keyed) Lock(ctx context.Context, keys ...string) (func(), error) {
	keys = normalize(keys)

	var held []string
	release := func() {
		for i := len(held) - 1; i >= 0; i-- {
			k.release(held[i])
		}
		held = nil
	}

	for _, key := range keys {
		if err := k.acquire(ctx, key); err != nil {
			release()
			return nil, err
		}
		held = append(held, key)
	}

	var once sync.Once
	return func() { once.Do(release) }, nil
}

func (k *Keyed) acquire(ctx context.Context, key string) error {
	k.mu.Lock()
	e, ok := k.locks[key]
	if !ok {
		e = &keyedEntry{ch: make(chan struct{}, 1)}
		k.locks[key] = e
	}
	e.refs++
	k.mu.Unlock()

	select {
	case e.ch <- struct{}{}:
		return nil
	case <-ctx.Done():
		k.unref(key, e)
		return errors.Join(ErrLockHeld, ctx.Err())
	}
}

func (k *Keyed) release(key string) {
	k.mu.Lock()
	e := k.locks[key]
	k.mu.Unlock()

	<-e.ch
	k.unref(key, e)
}

func (k *Keyed) unref(key string, e *keyedEntry) {
	k.mu.Lock()
	defer k.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(k.locks, key)
	}
}

// normalize sorts and de-duplicates keys, dropping empty ones.
func normalize(keys []string) []string {
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		if k != "" {
			out = append(out, k)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}

// Compile-time interface check.
var _ Locker = (*Keyed)(nil)
