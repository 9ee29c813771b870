// Package lock provides per-user mutual exclusion. The effect worker takes
// it around every write so that no two writes for one user overlap. The
// lock does not order waiters; write order comes from the worker routing
// each user to a single goroutine.
package lock

import (
	"context"
	"sync"
)

// entry is a user's mutex plus the number of goroutines holding or waiting
// for it. The entry is dropped once nobody references it.
type entry struct {
	mu   sync.Mutex
	refs int
}

// UserLock hands out one mutex per user id.
type UserLock struct {
	mu      sync.Mutex
	entries map[int64]*entry
}

// NewUserLock creates a new UserLock instance.
func NewUserLock() *UserLock {
	return &UserLock{entries: make(map[int64]*entry)}
}

func (ul *UserLock) acquire(userID int64) *entry {
	ul.mu.Lock()
	defer ul.mu.Unlock()
	e, ok := ul.entries[userID]
	if !ok {
		e = &entry{}
		ul.entries[userID] = e
	}
	e.refs++
	return e
}

func (ul *UserLock) release(userID int64, e *entry) {
	ul.mu.Lock()
	defer ul.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(ul.entries, userID)
	}
}

// Lock blocks until the user's lock is held.
func (ul *UserLock) Lock(userID int64) {
	ul.acquire(userID).mu.Lock()
}

// Unlock releases the user's lock. Unlocking a user that is not locked is
// a no-op.
func (ul *UserLock) Unlock(userID int64) {
	ul.mu.Lock()
	e, ok := ul.entries[userID]
	ul.mu.Unlock()
	if !ok {
		return
	}
	e.mu.Unlock()
	ul.release(userID, e)
}

// TryLock acquires the lock only if it is free.
func (ul *UserLock) TryLock(userID int64) bool {
	e := ul.acquire(userID)
	if e.mu.TryLock() {
		return true
	}
	ul.release(userID, e)
	return false
}

// LockContext acquires the lock or gives up when ctx is done.
func (ul *UserLock) LockContext(ctx context.Context, userID int64) error {
	e := ul.acquire(userID)
	if e.mu.TryLock() {
		return nil
	}

	done := make(chan struct{})
	go func() {
		e.mu.Lock()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		// The waiter still gets the mutex eventually; hand it straight back.
		go func() {
			<-done
			e.mu.Unlock()
			ul.release(userID, e)
		}()
		if ctx.Err() == context.DeadlineExceeded {
			return ErrLockTimeout
		}
		return ctx.Err()
	}
}

// WithLock executes fn while holding the user's lock.
func (ul *UserLock) WithLock(userID int64, fn func() error) error {
	ul.Lock(userID)
	defer ul.Unlock(userID)
	return fn()
}

// WithLockContext executes fn while holding the user's lock, giving up if
// ctx ends before the lock is acquired.
func (ul *UserLock) WithLockContext(ctx context.Context, userID int64, fn func() error) error {
	if err := ul.LockContext(ctx, userID); err != nil {
		return err
	}
	defer ul.Unlock(userID)
	return fn()
}

// Held returns the number of users with a held or awaited lock.
func (ul *UserLock) Held() int {
	ul.mu.Lock()
	defer ul.mu.Unlock()
	return len(ul.entries)
}
