// Package lock provides keyed in-process locks that serialize purchases and
// balance changes touching the same user or product.
package lock

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"
)

// keyMutex is a mutex with a reference count so idle keys can be dropped.
type keyMutex struct {
	ch   chan struct{} // buffered(1); holding the token means holding the lock
	refs int
}

// KeyLock hands out one mutex per string key.
type KeyLock struct {
	mu    sync.Mutex
	locks map[string]*keyMutex
}

// NewKeyLock creates a new KeyLock instance.
func NewKeyLock() *KeyLock {
	return &KeyLock{locks: make(map[string]*keyMutex)}
}

// UserKey is the lock key guarding a user's balance.
func UserKey(userID int64) string {
	return fmt.Sprintf("user:%d", userID)
}

// ProductKey is the lock key guarding a product's stock.
func ProductKey(productID string) string {
	return "product:" + productID
}

func (kl *KeyLock) acquire(key string) *keyMutex {
	kl.mu.Lock()
	defer kl.mu.Unlock()

	m, ok := kl.locks[key]
	if !ok {
		m = &keyMutex{ch: make(chan struct{}, 1)}
		kl.locks[key] = m
	}
	m.refs++
	return m
}

func (kl *KeyLock) release(key string, m *keyMutex) {
	kl.mu.Lock()
	defer kl.mu.Unlock()

	m.refs--
	if m.refs == 0 {
		delete(kl.locks, key)
	}
}

// unlock releases the key. Unlocking a key that is not held panics.
func (kl *KeyLock) unlock(key string) {
	kl.mu.Lock()
	m, ok := kl.locks[key]
	kl.mu.Unlock()
	if !ok {
		panic("lock: unlock of unlocked key " + key)
	}

	select {
	case <-m.ch:
	default:
		panic("lock: unlock of unlocked key " + key)
	}
	kl.release(key, m)
}

// lockContext waits for the key until ctx is done.
func (kl *KeyLock) lockContext(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m := kl.acquire(key)

	select {
	case m.ch <- struct{}{}:
		return nil
	case <-ctx.Done():
		kl.release(key, m)
		return ctx.Err()
	}
}

// LockMany acquires every key in sorted order, skipping duplicates, so two
// callers asking for overlapping sets cannot deadlock. The timeout bounds the
// whole acquisition. On failure no key remains held.
func (kl *KeyLock) LockMany(ctx context.Context, timeout time.Duration, keys ...string) (unlock func(), err error) {
	sorted := slices.Clone(keys)
	slices.Sort(sorted)
	sorted = slices.Compact(sorted)

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	held := make([]string, 0, len(sorted))
	unlockHeld := func() {
		for i := len(held) - 1; i >= 0; i-- {
			kl.unlock(held[i])
		}
	}

	for _, key := range sorted {
		if err := kl.lockContext(ctx, key); err != nil {
			unlockHeld()
			if errors.Is(err, context.DeadlineExceeded) && timeout > 0 {
				return nil, ErrLockTimeout
			}
			return nil, err
		}
		held = append(held, key)
	}

	var once sync.Once
	return func() { once.Do(unlockHeld) }, nil
}

// WithLock executes fn while holding every key, acquired as LockMany does.
func (kl *KeyLock) WithLock(ctx context.Context, timeout time.Duration, keys []string, fn func() error) error {
	unlock, err := kl.LockMany(ctx, timeout, keys...)
	if err != nil {
		return err
	}
	defer unlock()

	return fn()
}
