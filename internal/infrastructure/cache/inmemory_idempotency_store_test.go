package cache

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newClockedStore returns a store whose clock only moves when advance is called
func newClockedStore(t *testing.T) (*InMemoryIdempotencyStore, func(time.Duration)) {
	t.Helper()
	store := NewInMemoryIdempotencyStore()
	t.Cleanup(func() { _ = store.Close() })

	var mu sync.Mutex
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	store.now = func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	}
	return store, func(d time.Duration) {
		mu.Lock()
		now = now.Add(d)
		mu.Unlock()
	}
}

func reminderKey(taskID uuid.UUID, due time.Time) string {
	return fmt.Sprintf("reminder:%s:%d", taskID, due.Unix())
}

func TestInMemoryIdempotencyStore_ClaimReminder(t *testing.T) {
	ctx := context.Background()
	due := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	t.Run("first scan claims, overlapping scan is refused", func(t *testing.T) {
		store, advance := newClockedStore(t)
		key := reminderKey(uuid.New(), due)

		claimed, err := store.MarkProcessed(ctx, key, 3*time.Hour)
		require.NoError(t, err)
		assert.True(t, claimed)

		advance(time.Minute)
		claimed, err = store.MarkProcessed(ctx, key, 3*time.Hour)
		require.NoError(t, err)
		assert.False(t, claimed)
	})

	t.Run("rescheduled task gets a fresh key", func(t *testing.T) {
		store, _ := newClockedStore(t)
		taskID := uuid.New()

		claimed, err := store.MarkProcessed(ctx, reminderKey(taskID, due), 3*time.Hour)
		require.NoError(t, err)
		require.True(t, claimed)

		claimed, err = store.MarkProcessed(ctx, reminderKey(taskID, due.Add(time.Hour)), 3*time.Hour)
		require.NoError(t, err)
		assert.True(t, claimed)
	})

	t.Run("claim lapses exactly at its ttl", func(t *testing.T) {
		store, advance := newClockedStore(t)
		key := reminderKey(uuid.New(), due)

		_, err := store.MarkProcessed(ctx, key, 2*time.Minute)
		require.NoError(t, err)

		advance(2*time.Minute - time.Nanosecond)
		held, err := store.IsProcessed(ctx, key)
		require.NoError(t, err)
		assert.True(t, held)

		advance(time.Nanosecond)
		held, err = store.IsProcessed(ctx, key)
		require.NoError(t, err)
		assert.False(t, held)

		claimed, err := store.MarkProcessed(ctx, key, 2*time.Minute)
		require.NoError(t, err)
		assert.True(t, claimed)
	})
}

func TestInMemoryIdempotencyStore_ReleaseAfterFailedEnqueue(t *testing.T) {
	ctx := context.Background()
	store, _ := newClockedStore(t)
	key := reminderKey(uuid.New(), time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC))

	claimed, err := store.MarkProcessed(ctx, key, 3*time.Hour)
	require.NoError(t, err)
	require.True(t, claimed)

	require.NoError(t, store.Release(ctx, key))
	held, err := store.IsProcessed(ctx, key)
	require.NoError(t, err)
	assert.False(t, held)

	claimed, err = store.MarkProcessed(ctx, key, 3*time.Hour)
	require.NoError(t, err)
	assert.True(t, claimed, "the next scan can queue the reminder again")

	assert.NoError(t, store.Release(ctx, "reminder:unknown"))
}

func TestInMemoryIdempotencyStore_CleanupDropsLapsedClaims(t *testing.T) {
	ctx := context.Background()
	store, advance := newClockedStore(t)
	due := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	short := reminderKey(uuid.New(), due)
	long := reminderKey(uuid.New(), due)
	_, err := store.MarkProcessed(ctx, short, time.Minute)
	require.NoError(t, err)
	_, err = store.MarkProcessed(ctx, long, time.Hour)
	require.NoError(t, err)
	require.Equal(t, 2, store.Size())

	advance(5 * time.Minute)
	store.cleanup()

	assert.Equal(t, 1, store.Size())
	held, err := store.IsProcessed(ctx, long)
	require.NoError(t, err)
	assert.True(t, held)
}

func TestInMemoryIdempotencyStore_ConcurrentScansClaimOnce(t *testing.T) {
	ctx := context.Background()
	store, _ := newClockedStore(t)
	key := reminderKey(uuid.New(), time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC))

	const scanners = 50
	var claims atomic.Int32
	var wg sync.WaitGroup
	wg.Add(scanners)
	for range scanners {
		go func() {
			defer wg.Done()
			claimed, err := store.MarkProcessed(ctx, key, 3*time.Hour)
			assert.NoError(t, err)
			if claimed {
				claims.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), claims.Load())
}

func TestInMemoryIdempotencyStore_CloseIsRepeatable(t *testing.T) {
	store := NewInMemoryIdempotencyStore()
	assert.NoError(t, store.Close())
	assert.NoError(t, store.Close())
}
