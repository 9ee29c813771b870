package lock

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

// TestUserLock_SerialisesPerUser checks that concurrent read-modify-write
// sequences under the lock end with the sequential result.
func TestUserLock_SerialisesPerUser(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		initial := rapid.Int64Range(0, 1000).Draw(t, "initial")
		amounts := rapid.SliceOfN(rapid.Int64Range(-50, 50), 2, 30).Draw(t, "amounts")
		userID := rapid.Int64Range(1, 1000000).Draw(t, "userID")

		ul := NewUserLock()
		counter := initial
		want := initial
		for _, a := range amounts {
			want += a
		}

		var wg sync.WaitGroup
		wg.Add(len(amounts))
		for _, a := range amounts {
			go func(amount int64) {
				defer wg.Done()
				_ = ul.WithLock(userID, func() error {
					counter += amount
					return nil
				})
			}(a)
		}
		wg.Wait()

		if counter != want {
			t.Fatalf("counter mismatch: got %d, want %d", counter, want)
		}
		if held := ul.Held(); held != 0 {
			t.Fatalf("expected no held entries after release, got %d", held)
		}
	})
}

// TestUserLock_IndependentUsers checks that locking one user never blocks
// another.
func TestUserLock_IndependentUsers(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		a := rapid.Int64Range(1, 1000).Draw(t, "a")
		b := rapid.Int64Range(1001, 2000).Draw(t, "b")

		ul := NewUserLock()
		ul.Lock(a)
		if !ul.TryLock(b) {
			t.Fatalf("user %d blocked by lock on %d", b, a)
		}
		if ul.TryLock(a) {
			t.Fatalf("user %d locked twice", a)
		}
		ul.Unlock(b)
		ul.Unlock(a)
	})
}

func TestUserLock_LockContextTimeout(t *testing.T) {
	ul := NewUserLock()
	ul.Lock(1)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := ul.WithLockContext(ctx, 1, func() error {
		t.Fatal("fn must not run without the lock")
		return nil
	})
	assert.ErrorIs(t, err, ErrLockTimeout)

	ul.Unlock(1)
	require.Eventually(t, func() bool { return ul.Held() == 0 }, time.Second, 5*time.Millisecond)

	require.NoError(t, ul.WithLockContext(context.Background(), 1, func() error { return nil }))
}

func TestUserLock_UnlockUnknownIsNoop(t *testing.T) {
	ul := NewUserLock()
	assert.NotPanics(t, func() { ul.Unlock(42) })
	assert.Zero(t, ul.Held())
}
